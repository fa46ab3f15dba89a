package llm

import (
	"fmt"
	"strings"

	"github.com/satriahrh/pronounce/domain/entities"
	"github.com/satriahrh/pronounce/domain/repositories"
)

// maxResultChars caps the provider blob embedded in a prompt
const maxResultChars = 8000

// DefaultSystemPrompt instructs the model how to write feedback
const DefaultSystemPrompt = `You are a friendly pronunciation coach.
You receive a target sentence, four pronunciation scores between 0 and 100
and the detailed result of an automatic pronunciation assessment.
Explain in a few short paragraphs what the learner did well, which words or
sounds need work and one concrete exercise to practise. Do not repeat the raw
JSON and do not invent scores that are not given.`

// BuildPrompt renders the user prompt for one feedback request
func BuildPrompt(req repositories.FeedbackRequest, language string) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Target sentence: %q\n", req.SentenceText)
	fmt.Fprintf(&b, "Accuracy: %.1f\n", req.Scores.Accuracy)
	fmt.Fprintf(&b, "Fluency: %.1f\n", req.Scores.Fluency)
	fmt.Fprintf(&b, "Completeness: %.1f\n", req.Scores.Completeness)
	fmt.Fprintf(&b, "Pronunciation: %.1f\n", req.Scores.Pronunciation)

	if _, blob, ok := req.Payload.JSONResult(); ok && len(blob) > 0 {
		detail := string(blob)
		if len(detail) > maxResultChars {
			detail = detail[:maxResultChars] + "...(truncated)"
		}
		b.WriteString("\nDetailed assessment:\n")
		b.WriteString(detail)
		b.WriteString("\n")
	}

	if language != "" {
		fmt.Fprintf(&b, "\nWrite the feedback in %s.\n", language)
	}
	return b.String()
}

// fallbackFeedback is used by the mock generator
func fallbackFeedback(scores entities.ScoreSet) string {
	var b strings.Builder
	switch {
	case scores.Pronunciation >= 85:
		b.WriteString("Great job overall. ")
	case scores.Pronunciation >= 60:
		b.WriteString("Good effort. ")
	default:
		b.WriteString("Keep practising. ")
	}

	fmt.Fprintf(&b, "Your accuracy was %.0f and your fluency was %.0f. ", scores.Accuracy, scores.Fluency)
	if scores.Completeness < 100 {
		b.WriteString("Try to say every word of the sentence. ")
	}
	if scores.Fluency < scores.Accuracy {
		b.WriteString("Work on a smoother rhythm with fewer pauses.")
	} else {
		b.WriteString("Focus on the individual sounds that were marked as weak.")
	}
	return strings.TrimSpace(b.String())
}
