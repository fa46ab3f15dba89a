package speech

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	speech "cloud.google.com/go/speech/apiv1"
	"cloud.google.com/go/speech/apiv1/speechpb"
	"go.uber.org/zap"

	"github.com/satriahrh/pronounce/domain"
	"github.com/satriahrh/pronounce/domain/entities"
	"github.com/satriahrh/pronounce/domain/repositories"
)

// GoogleResultKey is the result property under which transcript scores are stored
const GoogleResultKey = "GoogleSpeech_JsonResult"

// recognizer is the part of the Cloud Speech client used here
type recognizer interface {
	Recognize(ctx context.Context, req *speechpb.RecognizeRequest) (*speechpb.RecognizeResponse, error)
	Close() error
}

type cloudRecognizer struct {
	client *speech.Client
}

func (c cloudRecognizer) Recognize(ctx context.Context, req *speechpb.RecognizeRequest) (*speechpb.RecognizeResponse, error) {
	return c.client.Recognize(ctx, req)
}

func (c cloudRecognizer) Close() error {
	return c.client.Close()
}

// GoogleAnalyzer implements SpeechAnalyzer on Google Cloud Speech-to-Text.
// The provider only transcribes, so scores are derived from the transcript.
type GoogleAnalyzer struct {
	recognizer recognizer
	language   string
	logger     *zap.Logger
}

var _ repositories.SpeechAnalyzer = (*GoogleAnalyzer)(nil)

// NewGoogleAnalyzer creates a Cloud Speech client using application default credentials
func NewGoogleAnalyzer(ctx context.Context, language string, logger *zap.Logger) (*GoogleAnalyzer, error) {
	client, err := speech.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create speech client: %w", err)
	}
	if language == "" {
		language = defaultAzureLanguage
		logger.Info("Using default language", zap.String("language", language))
	}
	return &GoogleAnalyzer{
		recognizer: cloudRecognizer{client: client},
		language:   language,
		logger:     logger,
	}, nil
}

// Close releases the underlying client
func (g *GoogleAnalyzer) Close() error {
	return g.recognizer.Close()
}

// Analyze implements SpeechAnalyzer
func (g *GoogleAnalyzer) Analyze(ctx context.Context, audio []byte, referenceText string, config repositories.AudioConfig) (entities.AnalysisPayload, error) {
	if len(audio) == 0 {
		return nil, fmt.Errorf("audio cannot be empty")
	}

	encoding, err := getAudioEncoding(config.Encoding)
	if err != nil {
		return nil, err
	}

	language := config.Language
	if language == "" {
		language = g.language
	}

	resp, err := g.recognizer.Recognize(ctx, &speechpb.RecognizeRequest{
		Config: &speechpb.RecognitionConfig{
			Encoding:             encoding,
			SampleRateHertz:      int32(config.SampleRate),
			LanguageCode:         language,
			EnableWordConfidence: true,
		},
		Audio: &speechpb.RecognitionAudio{
			AudioSource: &speechpb.RecognitionAudio_Content{Content: audio},
		},
	})
	if err != nil {
		return nil, domain.UpstreamError(err, "google speech recognize")
	}

	transcript, words, confidence := collectTranscript(resp)
	g.logger.Info("Transcription completed",
		zap.String("transcript", transcript),
		zap.Float64("confidence", confidence))

	assessment := ScoreTranscript(referenceText, transcript, words, confidence)
	blob, err := json.Marshal(assessment)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal assessment: %w", err)
	}
	return entities.NewAnalysisPayload(GoogleResultKey, blob), nil
}

// collectTranscript joins the best alternative of every result
func collectTranscript(resp *speechpb.RecognizeResponse) (string, []TranscriptWord, float64) {
	var parts []string
	var words []TranscriptWord
	var confidenceSum float64
	results := 0

	for _, result := range resp.GetResults() {
		alternatives := result.GetAlternatives()
		if len(alternatives) == 0 {
			continue
		}
		best := alternatives[0]
		parts = append(parts, strings.TrimSpace(best.GetTranscript()))
		confidenceSum += float64(best.GetConfidence())
		results++
		for _, w := range best.GetWords() {
			words = append(words, TranscriptWord{
				Word:       w.GetWord(),
				Confidence: float64(w.GetConfidence()),
			})
		}
	}

	var confidence float64
	if results > 0 {
		confidence = confidenceSum / float64(results)
	}
	return strings.Join(parts, " "), words, confidence
}

// getAudioEncoding converts string encoding to Google Speech API enum
func getAudioEncoding(encoding string) (speechpb.RecognitionConfig_AudioEncoding, error) {
	switch strings.ToUpper(encoding) {
	case "", "WAV", "LINEAR16":
		return speechpb.RecognitionConfig_LINEAR16, nil
	case "FLAC":
		return speechpb.RecognitionConfig_FLAC, nil
	case "MULAW":
		return speechpb.RecognitionConfig_MULAW, nil
	case "AMR":
		return speechpb.RecognitionConfig_AMR, nil
	case "AMR_WB":
		return speechpb.RecognitionConfig_AMR_WB, nil
	case "OGG_OPUS":
		return speechpb.RecognitionConfig_OGG_OPUS, nil
	case "WEBM_OPUS":
		return speechpb.RecognitionConfig_WEBM_OPUS, nil
	default:
		return speechpb.RecognitionConfig_ENCODING_UNSPECIFIED, fmt.Errorf("unsupported encoding: %s", encoding)
	}
}
