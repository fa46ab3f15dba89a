package speech

import (
	"testing"
)

func TestScoreTranscript(t *testing.T) {
	tests := []struct {
		name             string
		reference        string
		transcript       string
		words            []TranscriptWord
		wantAccuracy     float64
		wantCompleteness float64
		wantFluency      float64
	}{
		{
			name:             "perfect",
			reference:        "Great job overall.",
			transcript:       "great job overall",
			words:            []TranscriptWord{{"great", 0.9}, {"job", 0.9}, {"overall", 0.9}},
			wantAccuracy:     100,
			wantCompleteness: 100,
			wantFluency:      90,
		},
		{
			name:             "one substitution",
			reference:        "where is the station",
			transcript:       "where is a station",
			wantAccuracy:     75,
			wantCompleteness: 75,
			wantFluency:      75,
		},
		{
			name:             "missing word",
			reference:        "a table for two please",
			transcript:       "a table for two",
			words:            []TranscriptWord{{"a", 1}, {"table", 1}, {"for", 1}, {"two", 0.6}},
			wantAccuracy:     80,
			wantCompleteness: 80,
			wantFluency:      90,
		},
		{
			name:             "nothing recognised",
			reference:        "hello there",
			transcript:       "",
			wantAccuracy:     0,
			wantCompleteness: 0,
			wantFluency:      0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ScoreTranscript(tt.reference, tt.transcript, tt.words, 0)

			if got.AccuracyScore != tt.wantAccuracy {
				t.Errorf("Expected accuracy %.1f, got %.1f", tt.wantAccuracy, got.AccuracyScore)
			}
			if got.CompletenessScore != tt.wantCompleteness {
				t.Errorf("Expected completeness %.1f, got %.1f", tt.wantCompleteness, got.CompletenessScore)
			}
			if got.FluencyScore != tt.wantFluency {
				t.Errorf("Expected fluency %.1f, got %.1f", tt.wantFluency, got.FluencyScore)
			}

			wantPron := round1(0.6*got.AccuracyScore + 0.2*got.FluencyScore + 0.2*got.CompletenessScore)
			if got.PronScore != wantPron {
				t.Errorf("Expected pron %.1f, got %.1f", wantPron, got.PronScore)
			}
		})
	}
}

func TestScoreTranscript_ExtraWordsCapAccuracy(t *testing.T) {
	got := ScoreTranscript("hi", "hi hi hi hi", nil, 0.5)
	if got.AccuracyScore != 0 {
		t.Errorf("Expected accuracy clamped to 0, got %.1f", got.AccuracyScore)
	}
	if got.CompletenessScore != 100 {
		t.Errorf("Expected completeness 100, got %.1f", got.CompletenessScore)
	}
	if got.FluencyScore != 50 {
		t.Errorf("Expected fluency from overall confidence, got %.1f", got.FluencyScore)
	}
}

func TestNormalizeWords(t *testing.T) {
	got := normalizeWords("Hello, World! It's fine.")
	want := []string{"hello", "world", "its", "fine"}
	if len(got) != len(want) {
		t.Fatalf("Expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Expected %q, got %q", want[i], got[i])
		}
	}
}
