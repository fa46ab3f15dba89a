package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/juju/errors"
	"go.uber.org/zap/zapcore"
)

var configKeys = []string{
	"CONFIG_FILE", "PORT", "SHUTDOWN_TIMEOUT", "PERSIST_TIMEOUT", "STORAGE_BACKEND",
	"MONGODB_URI", "MONGODB_DATABASE", "LLM_PROVIDER", "GEMINI_API_KEY", "GEMINI_MODEL",
	"OPENAI_API_KEY", "OPENAI_MODEL", "OPENAI_BASE_URL", "LLM_TEMPERATURE",
	"LLM_MAX_OUTPUT_TOKENS", "LLM_TIMEOUT", "FEEDBACK_LANGUAGE", "SPEECH_PROVIDER",
	"AZURE_SPEECH_KEY", "AZURE_SPEECH_REGION", "SPEECH_LANGUAGE", "SPEECH_SAMPLE_RATE",
	"SPEECH_ENCODING", "OUTBOX_INTERVAL", "LOG_LEVEL", "APP_ENV",
}

// clearEnv blanks every key Load reads so the host environment cannot leak in
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range configKeys {
		t.Setenv(key, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if cfg.Server.Port != "8080" {
		t.Errorf("Expected port 8080, got %s", cfg.Server.Port)
	}
	if cfg.Storage.Backend != StorageMemory {
		t.Errorf("Expected memory storage, got %s", cfg.Storage.Backend)
	}
	if cfg.LLM.Provider != LLMMock || cfg.Speech.Provider != SpeechMock {
		t.Errorf("Expected mock providers, got %s and %s", cfg.LLM.Provider, cfg.Speech.Provider)
	}
	if cfg.Server.PersistTimeout != 10*time.Second {
		t.Errorf("Expected persist timeout 10s, got %s", cfg.Server.PersistTimeout)
	}
}

func TestLoadFileThenEnv(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()

	path := filepath.Join(dir, "config.yaml")
	content := `
server:
  port: "9090"
  persist_timeout: 3s
llm:
  provider: openai
  openai_api_key: file-key
  system_prompt: "Be kind."
speech:
  sample_rate: 8000
outbox:
  interval: 1m
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}
	t.Setenv("CONFIG_FILE", path)
	t.Setenv("PORT", "7070")
	t.Setenv("LLM_TEMPERATURE", "0.2")
	t.Setenv("SPEECH_PROVIDER", "GOOGLE")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if cfg.Server.Port != "7070" {
		t.Errorf("Expected env port 7070, got %s", cfg.Server.Port)
	}
	if cfg.Server.PersistTimeout != 3*time.Second {
		t.Errorf("Expected persist timeout 3s, got %s", cfg.Server.PersistTimeout)
	}
	if cfg.LLM.Provider != LLMOpenAI || cfg.LLM.OpenAIAPIKey != "file-key" {
		t.Errorf("Expected openai provider with file key, got %s/%s", cfg.LLM.Provider, cfg.LLM.OpenAIAPIKey)
	}
	if cfg.LLM.SystemPrompt != "Be kind." {
		t.Errorf("Expected system prompt from file, got '%s'", cfg.LLM.SystemPrompt)
	}
	if cfg.LLM.Temperature < 0.19 || cfg.LLM.Temperature > 0.21 {
		t.Errorf("Expected temperature 0.2, got %f", cfg.LLM.Temperature)
	}
	if cfg.Speech.Provider != SpeechGoogle {
		t.Errorf("Expected google speech, got %s", cfg.Speech.Provider)
	}
	if cfg.Speech.SampleRate != 8000 {
		t.Errorf("Expected sample rate 8000, got %d", cfg.Speech.SampleRate)
	}
	if cfg.Outbox.Interval != time.Minute {
		t.Errorf("Expected outbox interval 1m, got %s", cfg.Outbox.Interval)
	}
}

func TestLoadLogMode(t *testing.T) {
	tests := []struct {
		name        string
		env         map[string]string
		development bool
		level       zapcore.Level
	}{
		{"Default", nil, false, zapcore.InfoLevel},
		{"DebugLevel", map[string]string{"LOG_LEVEL": "DEBUG"}, true, zapcore.DebugLevel},
		{"DevelopmentEnv", map[string]string{"APP_ENV": "development"}, true, zapcore.InfoLevel},
		{"ProductionWarn", map[string]string{"LOG_LEVEL": "warn", "APP_ENV": "production"}, false, zapcore.WarnLevel},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			cfg, err := Load()
			if err != nil {
				t.Fatalf("Expected no error, got %v", err)
			}
			if cfg.Log.Development() != tt.development {
				t.Errorf("Expected development %v, got %v", tt.development, cfg.Log.Development())
			}
			if cfg.Log.ZapLevel() != tt.level {
				t.Errorf("Expected level %s, got %s", tt.level, cfg.Log.ZapLevel())
			}
		})
	}
}

func TestLoadInvalid(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"UnknownStorage", map[string]string{"STORAGE_BACKEND": "postgres"}},
		{"GeminiWithoutKey", map[string]string{"LLM_PROVIDER": "gemini"}},
		{"OpenAIWithoutKey", map[string]string{"LLM_PROVIDER": "openai"}},
		{"UnknownLLM", map[string]string{"LLM_PROVIDER": "claude"}},
		{"AzureWithoutRegion", map[string]string{"SPEECH_PROVIDER": "azure", "AZURE_SPEECH_KEY": "k"}},
		{"BadDuration", map[string]string{"LLM_TIMEOUT": "soon"}},
		{"BadSampleRate", map[string]string{"SPEECH_SAMPLE_RATE": "fast"}},
		{"NegativeSampleRate", map[string]string{"SPEECH_SAMPLE_RATE": "-1"}},
		{"BadTemperature", map[string]string{"LLM_TEMPERATURE": "warm"}},
		{"UnknownLogLevel", map[string]string{"LOG_LEVEL": "loud"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			_, err := Load()
			if !errors.Is(err, errors.NotValid) {
				t.Errorf("Expected NotValid error, got %v", err)
			}
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	clearEnv(t)
	t.Setenv("CONFIG_FILE", filepath.Join(t.TempDir(), "absent.yaml"))

	if _, err := Load(); err == nil {
		t.Error("Expected error for missing config file, got nil")
	}
}
