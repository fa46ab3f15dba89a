package speech

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"github.com/satriahrh/pronounce/domain/entities"
	"github.com/satriahrh/pronounce/domain/repositories"
)

// MockResultKey is the result property used by the mock analyzer
const MockResultKey = "Mock_JsonResult_v1"

// MockAnalyzer is a placeholder implementation returning fixed scores
type MockAnalyzer struct {
	scores entities.ScoreSet
	logger *zap.Logger
}

var _ repositories.SpeechAnalyzer = (*MockAnalyzer)(nil)

// NewMockAnalyzer creates a new mock analyzer
func NewMockAnalyzer(logger *zap.Logger) *MockAnalyzer {
	return &MockAnalyzer{
		scores: entities.ScoreSet{Accuracy: 88, Fluency: 91, Completeness: 95, Pronunciation: 90},
		logger: logger,
	}
}

// Analyze implements repositories.SpeechAnalyzer
func (m *MockAnalyzer) Analyze(ctx context.Context, audio []byte, referenceText string, config repositories.AudioConfig) (entities.AnalysisPayload, error) {
	if len(audio) == 0 {
		return nil, fmt.Errorf("audio cannot be empty")
	}

	m.logger.Info("Processing mock pronunciation assessment",
		zap.Int("audioSize", len(audio)),
		zap.Int("sampleRate", config.SampleRate),
		zap.String("encoding", config.Encoding))

	blob, err := json.Marshal(map[string]any{
		"RecognitionStatus": "Success",
		"DisplayText":       referenceText,
		"NBest": []map[string]any{{
			"Display":                          referenceText,
			string(entities.AccuracyScore):     m.scores.Accuracy,
			string(entities.FluencyScore):      m.scores.Fluency,
			string(entities.CompletenessScore): m.scores.Completeness,
			string(entities.PronScore):         m.scores.Pronunciation,
		}},
	})
	if err != nil {
		return nil, err
	}
	return entities.NewAnalysisPayload(MockResultKey, blob), nil
}
