package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/juju/errors"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"
)

// Storage backends
const (
	StorageMongo  = "mongo"
	StorageMemory = "memory"
)

// LLM providers
const (
	LLMGemini = "gemini"
	LLMOpenAI = "openai"
	LLMMock   = "mock"
)

// Speech providers
const (
	SpeechAzure  = "azure"
	SpeechGoogle = "google"
	SpeechMock   = "mock"
)

// Config is the full server configuration
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Storage StorageConfig `yaml:"storage"`
	LLM     LLMConfig     `yaml:"llm"`
	Speech  SpeechConfig  `yaml:"speech"`
	Outbox  OutboxConfig  `yaml:"outbox"`
	Log     LogConfig     `yaml:"log"`
}

type ServerConfig struct {
	Port            string        `yaml:"port"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	PersistTimeout  time.Duration `yaml:"persist_timeout"`
}

type StorageConfig struct {
	Backend       string `yaml:"backend"`
	MongoURI      string `yaml:"mongodb_uri"`
	MongoDatabase string `yaml:"mongodb_database"`
}

type LLMConfig struct {
	Provider        string        `yaml:"provider"`
	GeminiAPIKey    string        `yaml:"gemini_api_key"`
	GeminiModel     string        `yaml:"gemini_model"`
	OpenAIAPIKey    string        `yaml:"openai_api_key"`
	OpenAIModel     string        `yaml:"openai_model"`
	OpenAIBaseURL   string        `yaml:"openai_base_url"`
	Temperature     float32       `yaml:"temperature"`
	MaxOutputTokens int           `yaml:"max_output_tokens"`
	Timeout         time.Duration `yaml:"timeout"`
	Language        string        `yaml:"feedback_language"`
	SystemPrompt    string        `yaml:"system_prompt"`
}

type SpeechConfig struct {
	Provider    string `yaml:"provider"`
	AzureKey    string `yaml:"azure_key"`
	AzureRegion string `yaml:"azure_region"`
	Language    string `yaml:"language"`
	SampleRate  int    `yaml:"sample_rate"`
	Encoding    string `yaml:"encoding"`
}

type OutboxConfig struct {
	Interval  time.Duration `yaml:"interval"`
	BatchSize int           `yaml:"batch_size"`
}

type LogConfig struct {
	Level string `yaml:"level"`
	Env   string `yaml:"env"`
}

// Development reports whether the human readable development logger is wanted
func (l LogConfig) Development() bool {
	return strings.EqualFold(l.Level, "debug") || strings.EqualFold(l.Env, "development")
}

// ZapLevel is the minimum level of the production logger
func (l LogConfig) ZapLevel() zapcore.Level {
	level, err := zapcore.ParseLevel(l.Level)
	if err != nil {
		return zapcore.InfoLevel
	}
	return level
}

// Default returns the configuration used when nothing else is set
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            "8080",
			ShutdownTimeout: 10 * time.Second,
			PersistTimeout:  10 * time.Second,
		},
		Storage: StorageConfig{
			Backend:       StorageMemory,
			MongoURI:      "mongodb://localhost:27017",
			MongoDatabase: "pronounce",
		},
		LLM: LLMConfig{
			Provider:        LLMMock,
			Temperature:     0.7,
			MaxOutputTokens: 1024,
			Timeout:         60 * time.Second,
		},
		Speech: SpeechConfig{
			Provider:   SpeechMock,
			Language:   "en-US",
			SampleRate: 16000,
			Encoding:   "LINEAR16",
		},
		Outbox: OutboxConfig{
			Interval:  30 * time.Second,
			BatchSize: 50,
		},
		Log: LogConfig{
			Level: "info",
			Env:   "production",
		},
	}
}

// Load reads .env, then the YAML file named by CONFIG_FILE, then the
// environment. Later sources override earlier ones.
func Load() (*Config, error) {
	// .env is optional
	_ = godotenv.Load()

	cfg := Default()
	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return errors.Annotatef(err, "reading config file %s", path)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return errors.NewNotValid(err, "parsing config file "+path)
	}
	return nil
}

func (c *Config) applyEnv() error {
	c.Server.Port = getEnv("PORT", c.Server.Port)
	c.Storage.Backend = strings.ToLower(getEnv("STORAGE_BACKEND", c.Storage.Backend))
	c.Storage.MongoURI = getEnv("MONGODB_URI", c.Storage.MongoURI)
	c.Storage.MongoDatabase = getEnv("MONGODB_DATABASE", c.Storage.MongoDatabase)

	c.LLM.Provider = strings.ToLower(getEnv("LLM_PROVIDER", c.LLM.Provider))
	c.LLM.GeminiAPIKey = getEnv("GEMINI_API_KEY", c.LLM.GeminiAPIKey)
	c.LLM.GeminiModel = getEnv("GEMINI_MODEL", c.LLM.GeminiModel)
	c.LLM.OpenAIAPIKey = getEnv("OPENAI_API_KEY", c.LLM.OpenAIAPIKey)
	c.LLM.OpenAIModel = getEnv("OPENAI_MODEL", c.LLM.OpenAIModel)
	c.LLM.OpenAIBaseURL = getEnv("OPENAI_BASE_URL", c.LLM.OpenAIBaseURL)
	c.LLM.Language = getEnv("FEEDBACK_LANGUAGE", c.LLM.Language)

	c.Speech.Provider = strings.ToLower(getEnv("SPEECH_PROVIDER", c.Speech.Provider))
	c.Speech.AzureKey = getEnv("AZURE_SPEECH_KEY", c.Speech.AzureKey)
	c.Speech.AzureRegion = getEnv("AZURE_SPEECH_REGION", c.Speech.AzureRegion)
	c.Speech.Language = getEnv("SPEECH_LANGUAGE", c.Speech.Language)
	c.Speech.Encoding = getEnv("SPEECH_ENCODING", c.Speech.Encoding)

	c.Log.Level = strings.ToLower(getEnv("LOG_LEVEL", c.Log.Level))
	c.Log.Env = strings.ToLower(getEnv("APP_ENV", c.Log.Env))

	var err error
	if c.Server.ShutdownTimeout, err = getEnvDuration("SHUTDOWN_TIMEOUT", c.Server.ShutdownTimeout); err != nil {
		return err
	}
	if c.Server.PersistTimeout, err = getEnvDuration("PERSIST_TIMEOUT", c.Server.PersistTimeout); err != nil {
		return err
	}
	if c.LLM.Timeout, err = getEnvDuration("LLM_TIMEOUT", c.LLM.Timeout); err != nil {
		return err
	}
	if c.Outbox.Interval, err = getEnvDuration("OUTBOX_INTERVAL", c.Outbox.Interval); err != nil {
		return err
	}
	if c.LLM.MaxOutputTokens, err = getEnvInt("LLM_MAX_OUTPUT_TOKENS", c.LLM.MaxOutputTokens); err != nil {
		return err
	}
	if c.Speech.SampleRate, err = getEnvInt("SPEECH_SAMPLE_RATE", c.Speech.SampleRate); err != nil {
		return err
	}
	if raw := os.Getenv("LLM_TEMPERATURE"); raw != "" {
		v, err := strconv.ParseFloat(raw, 32)
		if err != nil {
			return errors.NotValidf("LLM_TEMPERATURE %q", raw)
		}
		c.LLM.Temperature = float32(v)
	}
	return nil
}

// Validate checks the combination of providers and their credentials
func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return errors.NotValidf("PORT empty")
	}

	switch c.Storage.Backend {
	case StorageMemory:
	case StorageMongo:
		if c.Storage.MongoURI == "" {
			return errors.NotValidf("MONGODB_URI empty with mongo storage")
		}
	default:
		return errors.NotValidf("STORAGE_BACKEND %q", c.Storage.Backend)
	}

	switch c.LLM.Provider {
	case LLMMock:
	case LLMGemini:
		if c.LLM.GeminiAPIKey == "" {
			return errors.NotValidf("GEMINI_API_KEY empty with gemini provider")
		}
	case LLMOpenAI:
		if c.LLM.OpenAIAPIKey == "" {
			return errors.NotValidf("OPENAI_API_KEY empty with openai provider")
		}
	default:
		return errors.NotValidf("LLM_PROVIDER %q", c.LLM.Provider)
	}

	switch c.Speech.Provider {
	case SpeechMock, SpeechGoogle:
	case SpeechAzure:
		if c.Speech.AzureKey == "" || c.Speech.AzureRegion == "" {
			return errors.NotValidf("AZURE_SPEECH_KEY and AZURE_SPEECH_REGION required with azure provider")
		}
	default:
		return errors.NotValidf("SPEECH_PROVIDER %q", c.Speech.Provider)
	}

	if c.Speech.SampleRate <= 0 {
		return errors.NotValidf("SPEECH_SAMPLE_RATE %d", c.Speech.SampleRate)
	}
	if c.Outbox.Interval <= 0 {
		return errors.NotValidf("OUTBOX_INTERVAL %s", c.Outbox.Interval)
	}
	if _, err := zapcore.ParseLevel(c.Log.Level); err != nil {
		return errors.NotValidf("LOG_LEVEL %q", c.Log.Level)
	}
	return nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) (time.Duration, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, errors.NotValidf("%s %q", key, raw)
	}
	return d, nil
}

func getEnvInt(key string, fallback int) (int, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, errors.NotValidf("%s %q", key, raw)
	}
	return v, nil
}
