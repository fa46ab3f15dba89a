package llm

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/satriahrh/pronounce/domain"
	"github.com/satriahrh/pronounce/domain/repositories"
)

const (
	defaultOpenAIModel = openai.GPT4oMini
)

// OpenAIConfig holds configuration for the OpenAI compatible feedback generator
type OpenAIConfig struct {
	APIKey         string
	BaseURL        string
	Model          string
	Temperature    float32
	MaxTokens      int
	TimeoutSeconds int
	SystemPrompt   string
	Language       string
}

// ValidateOpenAIConfig validates the OpenAIConfig
func ValidateOpenAIConfig(config OpenAIConfig) error {
	if config.APIKey == "" {
		return fmt.Errorf("OpenAI API key is required")
	}
	if config.Temperature < 0 || config.Temperature > 2 {
		return fmt.Errorf("temperature must be between 0 and 2, got %f", config.Temperature)
	}
	if config.MaxTokens < 0 {
		return fmt.Errorf("max tokens must be positive, got %d", config.MaxTokens)
	}
	if config.TimeoutSeconds < 0 {
		return fmt.Errorf("timeout must be positive, got %d", config.TimeoutSeconds)
	}
	return nil
}

// OpenAIGenerator implements FeedbackGenerator on the chat completions API
type OpenAIGenerator struct {
	client *openai.Client
	config OpenAIConfig
	logger *zap.Logger
}

var _ repositories.FeedbackGenerator = (*OpenAIGenerator)(nil)

// NewOpenAIGenerator creates a new OpenAI feedback generator
func NewOpenAIGenerator(config OpenAIConfig, logger *zap.Logger) (*OpenAIGenerator, error) {
	if err := ValidateOpenAIConfig(config); err != nil {
		return nil, err
	}

	if config.Model == "" {
		config.Model = defaultOpenAIModel
		logger.Info("Using default model", zap.String("model", config.Model))
	}
	if config.MaxTokens == 0 {
		config.MaxTokens = defaultMaxTokens
		logger.Info("Using default maxTokens", zap.Int("maxTokens", config.MaxTokens))
	}
	if config.TimeoutSeconds == 0 {
		config.TimeoutSeconds = defaultTimeoutSeconds
		logger.Info("Using default timeoutSeconds", zap.Int("timeoutSeconds", config.TimeoutSeconds))
	}
	if config.SystemPrompt == "" {
		config.SystemPrompt = DefaultSystemPrompt
	}

	clientConfig := openai.DefaultConfig(config.APIKey)
	if config.BaseURL != "" {
		clientConfig.BaseURL = config.BaseURL
	}

	return &OpenAIGenerator{
		client: openai.NewClientWithConfig(clientConfig),
		config: config,
		logger: logger,
	}, nil
}

// GenerateFeedback starts a streaming chat completion
func (g *OpenAIGenerator) GenerateFeedback(ctx context.Context, req repositories.FeedbackRequest) (repositories.FeedbackStream, error) {
	ctx, cancel := context.WithTimeout(ctx, time.Duration(g.config.TimeoutSeconds)*time.Second)

	stream, err := g.client.CreateChatCompletionStream(ctx, openai.ChatCompletionRequest{
		Model: g.config.Model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: g.config.SystemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: BuildPrompt(req, g.config.Language)},
		},
		MaxTokens:   g.config.MaxTokens,
		Temperature: g.config.Temperature,
		Stream:      true,
	})
	if err != nil {
		cancel()
		return nil, domain.UpstreamError(err, "openai stream")
	}

	g.logger.Debug("OpenAI stream started", zap.String("model", g.config.Model))
	return &openAIStream{stream: stream, cancel: cancel}, nil
}

type openAIStream struct {
	stream *openai.ChatCompletionStream
	cancel context.CancelFunc
	done   bool
}

// Recv implements FeedbackStream
func (s *openAIStream) Recv() (string, error) {
	for !s.done {
		resp, err := s.stream.Recv()
		if errors.Is(err, io.EOF) {
			s.done = true
			break
		}
		if err != nil {
			s.done = true
			return "", domain.UpstreamError(err, "openai stream")
		}
		if len(resp.Choices) == 0 {
			continue
		}

		choice := resp.Choices[0]
		if choice.FinishReason == openai.FinishReasonContentFilter {
			s.done = true
			return "", domain.UpstreamError(fmt.Errorf("finish reason %s", choice.FinishReason), "openai stream")
		}
		if choice.Delta.Content != "" {
			return choice.Delta.Content, nil
		}
	}
	return "", io.EOF
}

// Close implements FeedbackStream
func (s *openAIStream) Close() error {
	s.done = true
	s.cancel()
	return s.stream.Close()
}
