package entities

import (
	"encoding/json"
	"testing"
)

func TestAnalysisPayloadJSONResult(t *testing.T) {
	tests := []struct {
		name     string
		payload  AnalysisPayload
		wantKey  string
		wantBlob string
		wantOK   bool
	}{
		{
			name: "prefixed key",
			payload: AnalysisPayload{
				"result_properties": map[string]any{
					"Foo_JsonResult_Bar": `{"AccuracyScore":88}`,
				},
			},
			wantKey:  "Foo_JsonResult_Bar",
			wantBlob: `{"AccuracyScore":88}`,
			wantOK:   true,
		},
		{
			name: "first matching key in sorted order",
			payload: AnalysisPayload{
				"result_properties": map[string]any{
					"Z_JsonResult":    `{"a":1}`,
					"A_JsonResult":    `{"a":2}`,
					"Unrelated_Field": "x",
				},
			},
			wantKey:  "A_JsonResult",
			wantBlob: `{"a":2}`,
			wantOK:   true,
		},
		{
			name: "raw message value",
			payload: AnalysisPayload{
				"result_properties": map[string]any{
					"JsonResult": json.RawMessage(`{"b":1}`),
				},
			},
			wantKey:  "JsonResult",
			wantBlob: `{"b":1}`,
			wantOK:   true,
		},
		{
			name: "no marker",
			payload: AnalysisPayload{
				"result_properties": map[string]any{
					"SpeechServiceResponse_Result": "{}",
				},
			},
			wantOK: false,
		},
		{
			name:    "no result properties",
			payload: AnalysisPayload{"other": 1},
			wantOK:  false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			key, blob, ok := tt.payload.JSONResult()
			if ok != tt.wantOK {
				t.Fatalf("Expected ok %v, got %v", tt.wantOK, ok)
			}
			if !ok {
				return
			}
			if key != tt.wantKey {
				t.Errorf("Expected key %s, got %s", tt.wantKey, key)
			}
			if string(blob) != tt.wantBlob {
				t.Errorf("Expected blob %s, got %s", tt.wantBlob, string(blob))
			}
		})
	}
}

func TestNewAnalysisPayload(t *testing.T) {
	payload := NewAnalysisPayload("Provider_JsonResult", []byte(`{"PronScore":90}`))

	key, blob, ok := payload.JSONResult()
	if !ok {
		t.Fatal("Expected marker key to be found")
	}
	if key != "Provider_JsonResult" {
		t.Errorf("Expected key Provider_JsonResult, got %s", key)
	}
	if string(blob) != `{"PronScore":90}` {
		t.Errorf("Unexpected blob %s", string(blob))
	}
}
