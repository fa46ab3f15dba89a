package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/juju/errors"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/satriahrh/pronounce/adapters"
	"github.com/satriahrh/pronounce/adapters/llm"
	"github.com/satriahrh/pronounce/adapters/mongo"
	"github.com/satriahrh/pronounce/adapters/speech"
	"github.com/satriahrh/pronounce/domain/repositories"
	"github.com/satriahrh/pronounce/internal/api"
	"github.com/satriahrh/pronounce/internal/config"
	"github.com/satriahrh/pronounce/internal/metrics"
	"github.com/satriahrh/pronounce/internal/outbox"
	"github.com/satriahrh/pronounce/internal/websocket"
	"github.com/satriahrh/pronounce/usecase"
)

func main() {
	seed := flag.Bool("seed", false, "upsert the sample users and sentences into MongoDB on start")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fallback, _ := zap.NewProduction()
		fallback.Fatal("Loading config failed", zap.Error(err))
	}

	// Initialize logger
	logger, err := newLogger(cfg.Log)
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	if err := run(cfg, logger, *seed); err != nil {
		logger.Fatal("Server failed", zap.Error(err))
	}
	logger.Info("Server exited")
}

func newLogger(cfg config.LogConfig) (*zap.Logger, error) {
	if cfg.Development() {
		return zap.NewDevelopment()
	}
	zcfg := zap.NewProductionConfig()
	zcfg.Level = zap.NewAtomicLevelAt(cfg.ZapLevel())
	return zcfg.Build()
}

func run(cfg *config.Config, logger *zap.Logger, seed bool) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Initialize adapters
	store, err := openStorage(ctx, cfg.Storage, seed, logger)
	if err != nil {
		return err
	}
	defer store.close()

	generator, err := newGenerator(ctx, cfg.LLM, logger)
	if err != nil {
		return errors.Annotate(err, "creating feedback generator")
	}

	analyzer, closeAnalyzer, err := newAnalyzer(ctx, cfg.Speech, logger)
	if err != nil {
		return errors.Annotate(err, "creating speech analyzer")
	}
	defer closeAnalyzer()

	collector := metrics.NewCollector()
	registry := metrics.NewRegistry(collector)

	// Initialize usecase services
	relay := usecase.NewStreamRelay(store.feedbacks, store.outbox, collector, cfg.Server.PersistTimeout, logger)
	feedbackService := usecase.NewFeedbackService(
		store.users,
		store.sentences,
		analyzer,
		generator,
		relay,
		repositories.AudioConfig{
			SampleRate: cfg.Speech.SampleRate,
			Encoding:   cfg.Speech.Encoding,
			Language:   cfg.Speech.Language,
		},
		logger,
	)
	resultService := usecase.NewResultService(store.users, store.sentences, store.feedbacks, usecase.NewAggregator(store.feedbacks))
	reconciler := outbox.NewReconciler(store.outbox, store.feedbacks, collector, cfg.Outbox.Interval, cfg.Outbox.BatchSize, logger)

	// Create Echo instance
	e := echo.New()
	e.HideBanner = true

	// Middleware
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())

	// Initialize API routes
	api.InitRoutes(e, api.Dependencies{
		Feedback:  feedbackService,
		Results:   resultService,
		Metrics:   metrics.Handler(registry),
		WebSocket: websocket.NewHandler(feedbackService, logger).Handle,
		Logger:    logger,
	})

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("Server started",
			zap.String("port", cfg.Server.Port),
			zap.String("storage", cfg.Storage.Backend),
			zap.String("llm", cfg.LLM.Provider),
			zap.String("speech", cfg.Speech.Provider))
		if err := e.Start(":" + cfg.Server.Port); err != nil && err != http.ErrServerClosed {
			return errors.Annotate(err, "serving http")
		}
		return nil
	})
	g.Go(func() error {
		return reconciler.Run(gctx)
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Server is shutting down...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := e.Shutdown(shutdownCtx); err != nil {
			return errors.Annotate(err, "shutting down server")
		}
		return nil
	})

	return g.Wait()
}

type storage struct {
	users     repositories.UserRepository
	sentences repositories.SentenceRepository
	feedbacks repositories.FeedbackRepository
	outbox    repositories.OutboxRepository
	close     func()
}

func openStorage(ctx context.Context, cfg config.StorageConfig, seed bool, logger *zap.Logger) (*storage, error) {
	if cfg.Backend == config.StorageMemory {
		logger.Warn("Using in-memory storage, records are lost on restart")
		return &storage{
			users:     adapters.NewMemoryUserRepository(sampleUsers()...),
			sentences: adapters.NewMemorySentenceRepository(sampleSentences()...),
			feedbacks: adapters.NewMemoryFeedbackRepository(),
			outbox:    adapters.NewMemoryOutboxRepository(),
			close:     func() {},
		}, nil
	}

	client, err := mongo.NewClient(ctx, mongo.Config{URI: cfg.MongoURI, Database: cfg.MongoDatabase}, logger)
	if err != nil {
		return nil, err
	}
	if err := client.EnsureIndexes(ctx); err != nil {
		_ = client.Close(context.Background())
		return nil, err
	}

	users := mongo.NewUserRepository(client.Database)
	sentences := mongo.NewSentenceRepository(client.Database)
	if seed {
		if err := seedMongo(ctx, users, sentences); err != nil {
			_ = client.Close(context.Background())
			return nil, err
		}
		logger.Info("Sample data seeded")
	}

	return &storage{
		users:     users,
		sentences: sentences,
		feedbacks: mongo.NewFeedbackRepository(client.Database),
		outbox:    mongo.NewOutboxRepository(client.Database),
		close: func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = client.Close(ctx)
		},
	}, nil
}

func newGenerator(ctx context.Context, cfg config.LLMConfig, logger *zap.Logger) (repositories.FeedbackGenerator, error) {
	timeout := int(cfg.Timeout / time.Second)

	switch cfg.Provider {
	case config.LLMGemini:
		return llm.NewGeminiGenerator(ctx, llm.GeminiConfig{
			APIKey:          cfg.GeminiAPIKey,
			Model:           cfg.GeminiModel,
			Temperature:     cfg.Temperature,
			MaxOutputTokens: cfg.MaxOutputTokens,
			TimeoutSeconds:  timeout,
			SystemPrompt:    cfg.SystemPrompt,
			Language:        cfg.Language,
		}, logger)
	case config.LLMOpenAI:
		return llm.NewOpenAIGenerator(llm.OpenAIConfig{
			APIKey:         cfg.OpenAIAPIKey,
			BaseURL:        cfg.OpenAIBaseURL,
			Model:          cfg.OpenAIModel,
			Temperature:    cfg.Temperature,
			MaxTokens:      cfg.MaxOutputTokens,
			TimeoutSeconds: timeout,
			SystemPrompt:   cfg.SystemPrompt,
			Language:       cfg.Language,
		}, logger)
	default:
		logger.Warn("Using mock feedback generator")
		return llm.NewMockGenerator(50 * time.Millisecond), nil
	}
}

func newAnalyzer(ctx context.Context, cfg config.SpeechConfig, logger *zap.Logger) (repositories.SpeechAnalyzer, func(), error) {
	switch cfg.Provider {
	case config.SpeechAzure:
		analyzer, err := speech.NewAzureAnalyzer(speech.AzureConfig{
			SubscriptionKey: cfg.AzureKey,
			Region:          cfg.AzureRegion,
			Language:        cfg.Language,
		}, logger)
		return analyzer, func() {}, err
	case config.SpeechGoogle:
		analyzer, err := speech.NewGoogleAnalyzer(ctx, cfg.Language, logger)
		if err != nil {
			return nil, nil, err
		}
		return analyzer, func() { _ = analyzer.Close() }, nil
	default:
		logger.Warn("Using mock speech analyzer")
		return speech.NewMockAnalyzer(logger), func() {}, nil
	}
}
