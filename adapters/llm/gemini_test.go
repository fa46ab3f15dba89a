package llm

import (
	"errors"
	"io"
	"iter"
	"testing"

	"go.uber.org/zap"
	"google.golang.org/genai"

	"github.com/satriahrh/pronounce/domain"
)

func textResponse(text string, reason genai.FinishReason) *genai.GenerateContentResponse {
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			Content:      genai.NewContentFromText(text, genai.RoleModel),
			FinishReason: reason,
		}},
	}
}

func seqOf(items ...any) iter.Seq2[*genai.GenerateContentResponse, error] {
	return func(yield func(*genai.GenerateContentResponse, error) bool) {
		for _, item := range items {
			var ok bool
			switch v := item.(type) {
			case error:
				ok = yield(nil, v)
			case *genai.GenerateContentResponse:
				ok = yield(v, nil)
			}
			if !ok {
				return
			}
		}
	}
}

func drain(t *testing.T, s *geminiStream) ([]string, error) {
	t.Helper()
	var out []string
	for {
		text, err := s.Recv()
		if err == io.EOF {
			return out, nil
		}
		if err != nil {
			return out, err
		}
		out = append(out, text)
	}
}

func TestGeminiStream_Fragments(t *testing.T) {
	cancelled := false
	s := newGeminiStream(seqOf(
		textResponse("Great ", ""),
		textResponse("", ""),
		textResponse("job ", ""),
		textResponse("overall.", genai.FinishReasonStop),
	), func() { cancelled = true })

	got, err := drain(t, s)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	want := []string{"Great ", "job ", "overall."}
	if len(got) != len(want) {
		t.Fatalf("Expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Fragment %d: expected %q, got %q", i, want[i], got[i])
		}
	}

	// Exhausted streams keep returning EOF
	if _, err := s.Recv(); err != io.EOF {
		t.Errorf("Expected EOF, got %v", err)
	}

	if err := s.Close(); err != nil {
		t.Errorf("Close failed: %v", err)
	}
	if !cancelled {
		t.Error("Expected Close to cancel the request context")
	}
}

func TestGeminiStream_UpstreamError(t *testing.T) {
	s := newGeminiStream(seqOf(
		textResponse("Great ", ""),
		errors.New("503 unavailable"),
		textResponse("never", ""),
	), nil)
	defer s.Close()

	got, err := drain(t, s)
	if !domain.IsUpstream(err) {
		t.Errorf("Expected upstream error, got %v", err)
	}
	if len(got) != 1 {
		t.Errorf("Expected one fragment before failure, got %v", got)
	}
}

func TestGeminiChunk_FinishReasons(t *testing.T) {
	tests := []struct {
		reason  genai.FinishReason
		wantErr bool
	}{
		{"", false},
		{genai.FinishReasonStop, false},
		{genai.FinishReasonMaxTokens, false},
		{genai.FinishReasonSafety, true},
		{"RECITATION", true},
	}

	for _, tt := range tests {
		t.Run(string(tt.reason), func(t *testing.T) {
			_, err := geminiChunk(textResponse("x", tt.reason))
			if (err != nil) != tt.wantErr {
				t.Errorf("Expected error %v, got %v", tt.wantErr, err)
			}
		})
	}

	blocked := &genai.GenerateContentResponse{
		PromptFeedback: &genai.GenerateContentResponsePromptFeedback{BlockReason: genai.BlockedReasonSafety},
	}
	if _, err := geminiChunk(blocked); !domain.IsUpstream(err) {
		t.Errorf("Expected blocked prompt to be an upstream error, got %v", err)
	}
}

func TestValidateGeminiConfig(t *testing.T) {
	tests := []struct {
		name    string
		config  GeminiConfig
		wantErr bool
	}{
		{"missing key", GeminiConfig{}, true},
		{"valid", GeminiConfig{APIKey: "k"}, false},
		{"bad temperature", GeminiConfig{APIKey: "k", Temperature: 3}, true},
		{"bad topP", GeminiConfig{APIKey: "k", TopP: 1.5}, true},
		{"negative tokens", GeminiConfig{APIKey: "k", MaxOutputTokens: -1}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateGeminiConfig(tt.config)
			if (err != nil) != tt.wantErr {
				t.Errorf("Expected error %v, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestApplyGeminiDefaults(t *testing.T) {
	config := applyGeminiDefaults(GeminiConfig{APIKey: "k", Model: "gemini-custom"}, zap.NewNop())

	if config.Model != "gemini-custom" {
		t.Errorf("Expected model to be kept, got %s", config.Model)
	}
	if config.MaxOutputTokens != defaultMaxTokens {
		t.Errorf("Expected default max tokens, got %d", config.MaxOutputTokens)
	}
	if config.SystemPrompt != DefaultSystemPrompt {
		t.Error("Expected default system prompt")
	}
}
