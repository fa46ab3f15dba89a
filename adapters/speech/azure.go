package speech

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/satriahrh/pronounce/domain"
	"github.com/satriahrh/pronounce/domain/entities"
	"github.com/satriahrh/pronounce/domain/repositories"
)

const (
	defaultAzureLanguage       = "en-US"
	defaultAzureTimeoutSeconds = 30
	defaultAzureSampleRate     = 16000

	// AzureResultKey is the result property under which the assessment is stored
	AzureResultKey = "PropertyId.SpeechServiceResponse_JsonResult"

	azureRecognitionPath = "/speech/recognition/conversation/cognitiveservices/v1"
)

// AzureConfig holds configuration for the Azure pronunciation assessment adapter
// Required fields:
// - SubscriptionKey: Speech resource key
// - Region or Endpoint: where the speech resource lives
type AzureConfig struct {
	SubscriptionKey string
	Region          string
	Endpoint        string // Optional: overrides the regional endpoint
	Language        string
	TimeoutSeconds  int
	EnableMiscue    bool
}

// azureAssessmentParams is sent base64 encoded in the Pronunciation-Assessment header
type azureAssessmentParams struct {
	ReferenceText string `json:"ReferenceText"`
	GradingSystem string `json:"GradingSystem"`
	Granularity   string `json:"Granularity"`
	Dimension     string `json:"Dimension"`
	EnableMiscue  bool   `json:"EnableMiscue"`
}

// azureStatus is the subset of the response we need to judge success
type azureStatus struct {
	RecognitionStatus string `json:"RecognitionStatus"`
}

// AzureAnalyzer implements SpeechAnalyzer using the Azure speech REST API
type AzureAnalyzer struct {
	key        string
	endpoint   string
	language   string
	miscue     bool
	httpClient *http.Client
	logger     *zap.Logger
}

var _ repositories.SpeechAnalyzer = (*AzureAnalyzer)(nil)

// ValidateAzureConfig validates the AzureConfig
func ValidateAzureConfig(config AzureConfig) error {
	if config.SubscriptionKey == "" {
		return fmt.Errorf("azure speech subscription key is required")
	}
	if config.Region == "" && config.Endpoint == "" {
		return fmt.Errorf("azure speech region or endpoint is required")
	}
	if config.TimeoutSeconds < 0 {
		return fmt.Errorf("timeout must be positive, got %d", config.TimeoutSeconds)
	}
	return nil
}

// NewAzureAnalyzer creates a new Azure pronunciation analyzer
func NewAzureAnalyzer(config AzureConfig, logger *zap.Logger) (*AzureAnalyzer, error) {
	if err := ValidateAzureConfig(config); err != nil {
		return nil, err
	}

	endpoint := strings.TrimRight(config.Endpoint, "/")
	if endpoint == "" {
		endpoint = fmt.Sprintf("https://%s.stt.speech.microsoft.com", config.Region)
		logger.Info("Using regional endpoint", zap.String("endpoint", endpoint))
	}

	language := config.Language
	if language == "" {
		language = defaultAzureLanguage
		logger.Info("Using default language", zap.String("language", language))
	}

	timeout := config.TimeoutSeconds
	if timeout == 0 {
		timeout = defaultAzureTimeoutSeconds
		logger.Info("Using default timeoutSeconds", zap.Int("timeoutSeconds", timeout))
	}

	return &AzureAnalyzer{
		key:        config.SubscriptionKey,
		endpoint:   endpoint,
		language:   language,
		miscue:     config.EnableMiscue,
		httpClient: &http.Client{Timeout: time.Duration(timeout) * time.Second},
		logger:     logger,
	}, nil
}

// Analyze implements SpeechAnalyzer
func (a *AzureAnalyzer) Analyze(ctx context.Context, audio []byte, referenceText string, config repositories.AudioConfig) (entities.AnalysisPayload, error) {
	if len(audio) == 0 {
		return nil, fmt.Errorf("audio cannot be empty")
	}

	language := config.Language
	if language == "" {
		language = a.language
	}

	params, err := json.Marshal(azureAssessmentParams{
		ReferenceText: referenceText,
		GradingSystem: "HundredMark",
		Granularity:   "Phoneme",
		Dimension:     "Comprehensive",
		EnableMiscue:  a.miscue,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal assessment params: %w", err)
	}

	query := url.Values{}
	query.Set("language", language)
	query.Set("format", "detailed")
	requestURL := a.endpoint + azureRecognitionPath + "?" + query.Encode()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, requestURL, bytes.NewReader(audio))
	if err != nil {
		return nil, fmt.Errorf("failed to create HTTP request: %w", err)
	}
	httpReq.Header.Set("Ocp-Apim-Subscription-Key", a.key)
	httpReq.Header.Set("Content-Type", azureContentType(config))
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("Pronunciation-Assessment", base64.StdEncoding.EncodeToString(params))

	a.logger.Debug("Sending pronunciation assessment request",
		zap.String("language", language),
		zap.Int("audioSize", len(audio)))

	resp, err := a.httpClient.Do(httpReq)
	if err != nil {
		return nil, domain.UpstreamError(err, "azure speech request")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, domain.UpstreamError(err, "reading azure speech response")
	}

	if resp.StatusCode != http.StatusOK {
		a.logger.Error("Azure speech returned error",
			zap.Int("statusCode", resp.StatusCode),
			zap.String("response", string(body)))
		return nil, domain.UpstreamError(fmt.Errorf("status %d", resp.StatusCode), "azure speech request")
	}

	var status azureStatus
	if err := json.Unmarshal(body, &status); err != nil {
		return nil, domain.UpstreamError(err, "decoding azure speech response")
	}
	if status.RecognitionStatus != "Success" {
		return nil, domain.UpstreamError(fmt.Errorf("recognition status %s", status.RecognitionStatus), "azure speech")
	}

	a.logger.Info("Pronunciation assessment received", zap.Int("responseSize", len(body)))
	return entities.NewAnalysisPayload(AzureResultKey, body), nil
}

func azureContentType(config repositories.AudioConfig) string {
	switch strings.ToUpper(config.Encoding) {
	case "OGG_OPUS":
		return "audio/ogg; codecs=opus"
	default:
		rate := config.SampleRate
		if rate == 0 {
			rate = defaultAzureSampleRate
		}
		return fmt.Sprintf("audio/wav; codecs=audio/pcm; samplerate=%d", rate)
	}
}
