package llm

import (
	"context"
	"fmt"
	"io"
	"iter"
	"strings"
	"time"

	"go.uber.org/zap"
	"google.golang.org/genai"

	"github.com/satriahrh/pronounce/domain"
	"github.com/satriahrh/pronounce/domain/repositories"
)

const (
	defaultModel          = "gemini-2.0-flash"
	defaultTemperature    = 0.7
	defaultTopP           = 0.95
	defaultTopK           = 40
	defaultMaxTokens      = 1024
	defaultTimeoutSeconds = 60
)

// GeminiConfig holds configuration for the Gemini feedback generator
// Required fields:
// - APIKey: Google AI API key
// Optional fields fall back to package defaults when zero.
type GeminiConfig struct {
	APIKey          string
	BaseURL         string
	Model           string
	Temperature     float32
	TopP            float32
	TopK            float32
	MaxOutputTokens int
	TimeoutSeconds  int
	SystemPrompt    string
	Language        string
}

// ValidateGeminiConfig validates the GeminiConfig
func ValidateGeminiConfig(config GeminiConfig) error {
	if config.APIKey == "" {
		return fmt.Errorf("Google AI API key is required")
	}

	// Validate temperature is in the valid range
	if config.Temperature != 0 && (config.Temperature < 0 || config.Temperature > 2) {
		return fmt.Errorf("temperature must be between 0 and 2, got %f", config.Temperature)
	}

	// Validate topP is in the valid range
	if config.TopP != 0 && (config.TopP < 0 || config.TopP > 1) {
		return fmt.Errorf("topP must be between 0 and 1, got %f", config.TopP)
	}

	if config.TopK < 0 {
		return fmt.Errorf("topK must be positive, got %f", config.TopK)
	}

	if config.MaxOutputTokens < 0 {
		return fmt.Errorf("maxOutputTokens must be positive, got %d", config.MaxOutputTokens)
	}

	if config.TimeoutSeconds < 0 {
		return fmt.Errorf("timeout must be positive, got %d", config.TimeoutSeconds)
	}

	return nil
}

// applyGeminiDefaults fills zero fields and logs every default it applies
func applyGeminiDefaults(config GeminiConfig, logger *zap.Logger) GeminiConfig {
	if config.Model == "" {
		config.Model = defaultModel
		logger.Info("Using default model", zap.String("model", config.Model))
	}
	if config.Temperature == 0 {
		config.Temperature = defaultTemperature
		logger.Info("Using default temperature", zap.Float32("temperature", config.Temperature))
	}
	if config.TopP == 0 {
		config.TopP = defaultTopP
		logger.Info("Using default topP", zap.Float32("topP", config.TopP))
	}
	if config.TopK == 0 {
		config.TopK = defaultTopK
		logger.Info("Using default topK", zap.Float32("topK", config.TopK))
	}
	if config.MaxOutputTokens == 0 {
		config.MaxOutputTokens = defaultMaxTokens
		logger.Info("Using default maxOutputTokens", zap.Int("maxOutputTokens", config.MaxOutputTokens))
	}
	if config.TimeoutSeconds == 0 {
		config.TimeoutSeconds = defaultTimeoutSeconds
		logger.Info("Using default timeoutSeconds", zap.Int("timeoutSeconds", config.TimeoutSeconds))
	}
	if config.SystemPrompt == "" {
		config.SystemPrompt = DefaultSystemPrompt
	}
	return config
}

// GeminiGenerator implements FeedbackGenerator using Google's Gemini API
type GeminiGenerator struct {
	client *genai.Client
	config GeminiConfig
	logger *zap.Logger
}

var _ repositories.FeedbackGenerator = (*GeminiGenerator)(nil)

// NewGeminiGenerator creates a new Gemini feedback generator
func NewGeminiGenerator(ctx context.Context, config GeminiConfig, logger *zap.Logger) (*GeminiGenerator, error) {
	if err := ValidateGeminiConfig(config); err != nil {
		return nil, err
	}
	config = applyGeminiDefaults(config, logger)

	clientConfig := &genai.ClientConfig{
		APIKey:  config.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if config.BaseURL != "" {
		clientConfig.HTTPOptions = genai.HTTPOptions{BaseURL: config.BaseURL}
	}

	client, err := genai.NewClient(ctx, clientConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	return &GeminiGenerator{
		client: client,
		config: config,
		logger: logger,
	}, nil
}

// GenerateFeedback starts a streaming generation
func (g *GeminiGenerator) GenerateFeedback(ctx context.Context, req repositories.FeedbackRequest) (repositories.FeedbackStream, error) {
	contents := []*genai.Content{
		genai.NewContentFromText(BuildPrompt(req, g.config.Language), genai.RoleUser),
	}

	config := &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(g.config.SystemPrompt, genai.RoleUser),
		Temperature:       genai.Ptr(g.config.Temperature),
		TopP:              genai.Ptr(g.config.TopP),
		TopK:              genai.Ptr(g.config.TopK),
		MaxOutputTokens:   int32(g.config.MaxOutputTokens),
	}

	ctx, cancel := context.WithTimeout(ctx, time.Duration(g.config.TimeoutSeconds)*time.Second)
	seq := g.client.Models.GenerateContentStream(ctx, g.config.Model, contents, config)

	g.logger.Debug("Gemini stream started", zap.String("model", g.config.Model))
	return newGeminiStream(seq, cancel), nil
}

// geminiStream turns the push iterator of the SDK into a pull stream
type geminiStream struct {
	next   func() (*genai.GenerateContentResponse, error, bool)
	stop   func()
	cancel context.CancelFunc
	done   bool
}

func newGeminiStream(seq iter.Seq2[*genai.GenerateContentResponse, error], cancel context.CancelFunc) *geminiStream {
	next, stop := iter.Pull2(seq)
	return &geminiStream{next: next, stop: stop, cancel: cancel}
}

// Recv implements FeedbackStream
func (s *geminiStream) Recv() (string, error) {
	for !s.done {
		resp, err, ok := s.next()
		if !ok {
			s.done = true
			break
		}
		if err != nil {
			s.done = true
			return "", domain.UpstreamError(err, "gemini stream")
		}

		text, finishErr := geminiChunk(resp)
		if finishErr != nil {
			s.done = true
			return "", finishErr
		}
		if text != "" {
			return text, nil
		}
	}
	return "", io.EOF
}

// Close implements FeedbackStream
func (s *geminiStream) Close() error {
	s.done = true
	s.stop()
	if s.cancel != nil {
		s.cancel()
	}
	return nil
}

// geminiChunk extracts the text of one streamed response and reports a
// blocked or abnormally finished generation as an upstream error.
func geminiChunk(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil {
		return "", nil
	}
	if resp.PromptFeedback != nil && resp.PromptFeedback.BlockReason != "" {
		return "", domain.UpstreamError(fmt.Errorf("prompt blocked: %s", resp.PromptFeedback.BlockReason), "gemini stream")
	}
	if len(resp.Candidates) == 0 {
		return "", nil
	}

	candidate := resp.Candidates[0]
	var b strings.Builder
	if candidate.Content != nil {
		for _, part := range candidate.Content.Parts {
			if part == nil || part.Thought {
				continue
			}
			b.WriteString(part.Text)
		}
	}

	switch candidate.FinishReason {
	case "", genai.FinishReasonUnspecified, genai.FinishReasonStop, genai.FinishReasonMaxTokens:
		return b.String(), nil
	default:
		return "", domain.UpstreamError(fmt.Errorf("finish reason %s", candidate.FinishReason), "gemini stream")
	}
}
