package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

type Config struct {
	HTTPAddr     string        `env:"HTTP_ADDR" envDefault:":8000"`
	ReadTimeout  time.Duration `env:"HTTP_READ_TIMEOUT" envDefault:"30s"`
	WriteTimeout time.Duration `env:"HTTP_WRITE_TIMEOUT" envDefault:"90s"`
	IdleTimeout  time.Duration `env:"HTTP_IDLE_TIMEOUT" envDefault:"120s"`
	CORSOrigins  []string      `env:"CORS_ORIGINS" envSeparator:","`

	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`

	// Per-connection timeout for every upstream client.
	UpstreamTimeout time.Duration `env:"UPSTREAM_TIMEOUT" envDefault:"30s"`

	Transcribe TranscribeConfig
	TTS        TTSConfig
	Sign       SignConfig
	Logs       LogStoreConfig
}

// TranscribeConfig selects and configures the speech-to-text provider.
type TranscribeConfig struct {
	Provider         string `env:"TRANSCRIBE_PROVIDER" envDefault:"openai"`
	Model            string `env:"TRANSCRIBE_MODEL" envDefault:"whisper-1"`
	OpenAIAPIKey     string `env:"OPENAI_API_KEY"`
	OpenAIBaseURL    string `env:"OPENAI_BASE_URL"`
	ElevenLabsAPIKey string `env:"ELEVENLABS_API_KEY"`
	ElevenLabsURL    string `env:"ELEVENLABS_STT_URL" envDefault:"https://api.elevenlabs.io/v1/speech-to-text"`
}

// APIKey returns the credential of the selected provider.
func (c TranscribeConfig) APIKey() string {
	if strings.EqualFold(c.Provider, "elevenlabs") {
		return c.ElevenLabsAPIKey
	}
	return c.OpenAIAPIKey
}

type TTSConfig struct {
	ServerURL string `env:"COQUI_SERVER_URL" envDefault:"http://localhost:5002"`
	Model     string `env:"TTS_MODEL" envDefault:"tts_models/en/ljspeech/tacotron2-DDC"`
}

type SignConfig struct {
	APIKey string `env:"SIGNALL_API_KEY"`
	APIURL string `env:"SIGNALL_API_URL" envDefault:"https://api.signall.us"`
}

// LogStoreConfig picks the conversation log backend.
type LogStoreConfig struct {
	Backend string `env:"LOG_BACKEND" envDefault:"local"`
	Dir     string `env:"LOG_DIR" envDefault:"conversation_logs"`
	S3      S3Config
}

type S3Config struct {
	Bucket    string `env:"S3_BUCKET"`
	Endpoint  string `env:"S3_ENDPOINT"`
	Region    string `env:"S3_REGION" envDefault:"us-east-1"`
	AccessKey string `env:"S3_ACCESS_KEY"`
	SecretKey string `env:"S3_SECRET_KEY"`
	Prefix    string `env:"S3_PREFIX"`
}

// Enabled reports whether enough S3 settings are present to build a client.
func (c S3Config) Enabled() bool {
	return c.Bucket != ""
}

// Overrides holds CLI flag values that take priority over env vars.
type Overrides struct {
	EnvFile  string
	HTTPAddr string
	LogLevel string
	LogDir   string
}

// Load reads configuration from .env file, environment variables, and CLI overrides.
// Priority: CLI flags > environment variables > .env file > struct defaults.
func Load(overrides Overrides) (*Config, error) {
	envFile := overrides.EnvFile
	if envFile == "" {
		envFile = ".env"
	}
	if _, err := os.Stat(envFile); err == nil {
		_ = godotenv.Load(envFile)
	}

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, err
	}

	if overrides.HTTPAddr != "" {
		cfg.HTTPAddr = overrides.HTTPAddr
	}
	if overrides.LogLevel != "" {
		cfg.LogLevel = overrides.LogLevel
	}
	if overrides.LogDir != "" {
		cfg.Logs.Dir = overrides.LogDir
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch strings.ToLower(c.Transcribe.Provider) {
	case "openai", "elevenlabs":
	default:
		return fmt.Errorf("unsupported TRANSCRIBE_PROVIDER %q (supported: openai, elevenlabs)", c.Transcribe.Provider)
	}
	switch strings.ToLower(c.Logs.Backend) {
	case "local":
	case "s3", "tiered":
		if !c.Logs.S3.Enabled() {
			return fmt.Errorf("LOG_BACKEND=%s requires S3_BUCKET", c.Logs.Backend)
		}
	default:
		return fmt.Errorf("unsupported LOG_BACKEND %q (supported: local, s3, tiered)", c.Logs.Backend)
	}
	if c.UpstreamTimeout <= 0 {
		return fmt.Errorf("UPSTREAM_TIMEOUT must be positive, got %s", c.UpstreamTimeout)
	}
	return nil
}
