package speech

import (
	"math"
	"strings"
	"unicode"

	"github.com/texttheater/golang-levenshtein/levenshtein"

	"github.com/satriahrh/pronounce/domain/entities"
)

// wordOptions counts a substituted word as one error, like WER does
var wordOptions = levenshtein.Options{
	InsCost: 1,
	DelCost: 1,
	SubCost: 1,
	Matches: levenshtein.IdenticalRunes,
}

// TranscriptAssessment is the result blob produced from a plain transcript.
// Field names follow the score names used by pronunciation providers.
type TranscriptAssessment struct {
	AccuracyScore     float64          `json:"AccuracyScore"`
	FluencyScore      float64          `json:"FluencyScore"`
	CompletenessScore float64          `json:"CompletenessScore"`
	PronScore         float64          `json:"PronScore"`
	WordErrorRate     float64          `json:"WordErrorRate"`
	ReferenceText     string           `json:"ReferenceText"`
	Transcript        string           `json:"Transcript"`
	Words             []TranscriptWord `json:"Words,omitempty"`
}

// TranscriptWord is one recognised word with its confidence
type TranscriptWord struct {
	Word       string  `json:"Word"`
	Confidence float64 `json:"Confidence"`
}

// ScoreTranscript compares a recognised transcript with the reference text.
// Accuracy is 100*(1-WER), completeness the share of reference words that
// were matched, fluency the mean recogniser confidence.
func ScoreTranscript(reference, transcript string, words []TranscriptWord, confidence float64) TranscriptAssessment {
	ref := normalizeWords(reference)
	hyp := normalizeWords(transcript)

	result := TranscriptAssessment{
		ReferenceText: reference,
		Transcript:    transcript,
		Words:         words,
	}

	if len(ref) == 0 {
		return result
	}

	source, target := encodeWords(ref, hyp)
	distance := levenshtein.DistanceForStrings(source, target, wordOptions)
	wer := math.Min(1, float64(distance)/float64(len(ref)))

	matched := 0
	for _, op := range levenshtein.EditScriptForStrings(source, target, wordOptions) {
		if op == levenshtein.Match {
			matched++
		}
	}

	result.WordErrorRate = round1(wer)
	result.AccuracyScore = round1(100 * (1 - wer))
	result.CompletenessScore = round1(100 * float64(matched) / float64(len(ref)))
	result.FluencyScore = round1(100 * meanConfidence(words, confidence, 1-wer))
	result.PronScore = round1(0.6*result.AccuracyScore + 0.2*result.FluencyScore + 0.2*result.CompletenessScore)
	return result
}

// Scores returns the assessment as a ScoreSet
func (a TranscriptAssessment) Scores() entities.ScoreSet {
	return entities.ScoreSet{
		Accuracy:      a.AccuracyScore,
		Fluency:       a.FluencyScore,
		Completeness:  a.CompletenessScore,
		Pronunciation: a.PronScore,
	}
}

func meanConfidence(words []TranscriptWord, overall, fallback float64) float64 {
	if len(words) > 0 {
		var sum float64
		for _, w := range words {
			sum += w.Confidence
		}
		return clamp01(sum / float64(len(words)))
	}
	if overall > 0 {
		return clamp01(overall)
	}
	return clamp01(fallback)
}

// normalizeWords lowercases and strips punctuation
func normalizeWords(text string) []string {
	cleaned := strings.Map(func(r rune) rune {
		if unicode.IsPunct(r) {
			return -1
		}
		return unicode.ToLower(r)
	}, text)
	return strings.Fields(cleaned)
}

// encodeWords maps every distinct word to one private-use rune so the
// rune based edit distance works on words.
func encodeWords(ref, hyp []string) ([]rune, []rune) {
	ids := make(map[string]rune)
	encode := func(words []string) []rune {
		out := make([]rune, len(words))
		for i, w := range words {
			id, ok := ids[w]
			if !ok {
				id = rune(0xE000 + len(ids))
				ids[w] = id
			}
			out[i] = id
		}
		return out
	}
	return encode(ref), encode(hyp)
}

func clamp01(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
