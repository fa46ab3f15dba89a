package repositories

import (
	"context"

	"github.com/satriahrh/pronounce/domain/entities"
)

// SpeechAnalyzer abstracts pronunciation assessment services
type SpeechAnalyzer interface {
	// Analyze scores audio against referenceText and returns the provider result
	Analyze(ctx context.Context, audio []byte, referenceText string, config AudioConfig) (entities.AnalysisPayload, error)
}

// AudioConfig represents audio configuration for speech analysis
type AudioConfig struct {
	SampleRate int    `json:"sample_rate"`
	Encoding   string `json:"encoding"`
	Language   string `json:"language"`
}
