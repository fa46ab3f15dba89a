package entities

import "fmt"

// ScoreName is the name of a pronunciation sub-score inside a provider result
type ScoreName string

const (
	AccuracyScore     ScoreName = "AccuracyScore"
	FluencyScore      ScoreName = "FluencyScore"
	CompletenessScore ScoreName = "CompletenessScore"
	PronScore         ScoreName = "PronScore"
)

// RequiredScores lists every score that must be present after extraction.
var RequiredScores = []ScoreName{
	AccuracyScore,
	FluencyScore,
	CompletenessScore,
	PronScore,
}

// ScoreSet holds the four extracted sub-scores of one analysis
type ScoreSet struct {
	Accuracy      float64 `json:"accuracy" bson:"accuracy"`
	Fluency       float64 `json:"fluency" bson:"fluency"`
	Completeness  float64 `json:"completeness" bson:"completeness"`
	Pronunciation float64 `json:"pronunciation" bson:"pronunciation"`
}

// Get returns the score stored under name
func (s ScoreSet) Get(name ScoreName) (float64, error) {
	switch name {
	case AccuracyScore:
		return s.Accuracy, nil
	case FluencyScore:
		return s.Fluency, nil
	case CompletenessScore:
		return s.Completeness, nil
	case PronScore:
		return s.Pronunciation, nil
	}
	return 0, fmt.Errorf("unknown score %q", name)
}

// Set stores value under name
func (s *ScoreSet) Set(name ScoreName, value float64) error {
	switch name {
	case AccuracyScore:
		s.Accuracy = value
	case FluencyScore:
		s.Fluency = value
	case CompletenessScore:
		s.Completeness = value
	case PronScore:
		s.Pronunciation = value
	default:
		return fmt.Errorf("unknown score %q", name)
	}
	return nil
}

// ScoreSummary is the aggregate accuracy of a user's stored feedback.
// Average is nil when the user has no records; a zero average is real data.
type ScoreSummary struct {
	UserID  int64    `json:"user_id"`
	Count   int      `json:"count"`
	Average *float64 `json:"average"`
}

// IsEmpty reports whether the summary carries no data
func (s ScoreSummary) IsEmpty() bool {
	return s.Average == nil
}
