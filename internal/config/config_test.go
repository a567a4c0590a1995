package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	cleanup := setEnvs(t, map[string]string{
		"OPENAI_API_KEY":   "sk-test",
		"COQUI_SERVER_URL": "http://tts.local:5002",
	})
	defer cleanup()

	t.Run("defaults", func(t *testing.T) {
		cfg, err := Load(Overrides{EnvFile: "nonexistent.env"})
		require.NoError(t, err)
		assert.Equal(t, ":8000", cfg.HTTPAddr)
		assert.Equal(t, "info", cfg.LogLevel)
		assert.Equal(t, 30*time.Second, cfg.UpstreamTimeout)
		assert.Equal(t, "openai", cfg.Transcribe.Provider)
		assert.Equal(t, "whisper-1", cfg.Transcribe.Model)
		assert.Equal(t, "https://api.signall.us", cfg.Sign.APIURL)
		assert.Equal(t, "local", cfg.Logs.Backend)
		assert.Equal(t, "conversation_logs", cfg.Logs.Dir)
		assert.Empty(t, cfg.Sign.APIKey)
	})

	t.Run("env_vars_read", func(t *testing.T) {
		cfg, err := Load(Overrides{EnvFile: "nonexistent.env"})
		require.NoError(t, err)
		assert.Equal(t, "http://tts.local:5002", cfg.TTS.ServerURL)
		assert.Equal(t, "sk-test", cfg.Transcribe.APIKey())
	})

	t.Run("cli_overrides_take_priority", func(t *testing.T) {
		cfg, err := Load(Overrides{
			EnvFile:  "nonexistent.env",
			HTTPAddr: ":9090",
			LogLevel: "debug",
			LogDir:   "/tmp/convlogs",
		})
		require.NoError(t, err)
		assert.Equal(t, ":9090", cfg.HTTPAddr)
		assert.Equal(t, "debug", cfg.LogLevel)
		assert.Equal(t, "/tmp/convlogs", cfg.Logs.Dir)
	})
}

func TestLoadEnvFile(t *testing.T) {
	cleanup := setEnvs(t, map[string]string{"SIGNALL_API_KEY": ""})
	defer cleanup()
	os.Unsetenv("SIGNALL_API_KEY")

	path := t.TempDir() + "/test.env"
	require.NoError(t, os.WriteFile(path, []byte("SIGNALL_API_KEY=from-file\n"), 0o644))
	defer os.Unsetenv("SIGNALL_API_KEY")

	cfg, err := Load(Overrides{EnvFile: path})
	require.NoError(t, err)
	assert.Equal(t, "from-file", cfg.Sign.APIKey)
}

func TestLoadInvalid(t *testing.T) {
	tests := []struct {
		name string
		envs map[string]string
	}{
		{"unknown_provider", map[string]string{"TRANSCRIBE_PROVIDER": "deepgram"}},
		{"unknown_backend", map[string]string{"LOG_BACKEND": "postgres"}},
		{"s3_without_bucket", map[string]string{"LOG_BACKEND": "s3", "S3_BUCKET": ""}},
		{"tiered_without_bucket", map[string]string{"LOG_BACKEND": "tiered", "S3_BUCKET": ""}},
		{"bad_timeout", map[string]string{"UPSTREAM_TIMEOUT": "soon"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cleanup := setEnvs(t, tt.envs)
			defer cleanup()
			_, err := Load(Overrides{EnvFile: "nonexistent.env"})
			assert.Error(t, err)
		})
	}
}

func TestLoadTieredBackend(t *testing.T) {
	cleanup := setEnvs(t, map[string]string{"LOG_BACKEND": "tiered", "S3_BUCKET": "convlogs"})
	defer cleanup()
	cfg, err := Load(Overrides{EnvFile: "nonexistent.env"})
	require.NoError(t, err)
	assert.Equal(t, "tiered", cfg.Logs.Backend)
	assert.Equal(t, "convlogs", cfg.Logs.S3.Bucket)
}

func TestTranscribeAPIKey(t *testing.T) {
	c := TranscribeConfig{Provider: "elevenlabs", OpenAIAPIKey: "a", ElevenLabsAPIKey: "b"}
	assert.Equal(t, "b", c.APIKey())
	c.Provider = "openai"
	assert.Equal(t, "a", c.APIKey())
}

// setEnvs sets environment variables and returns a cleanup function.
func setEnvs(t *testing.T, envs map[string]string) func() {
	t.Helper()
	originals := make(map[string]string)
	unset := make([]string, 0)

	for k, v := range envs {
		if orig, ok := os.LookupEnv(k); ok {
			originals[k] = orig
		} else {
			unset = append(unset, k)
		}
		os.Setenv(k, v)
	}

	return func() {
		for k, v := range originals {
			os.Setenv(k, v)
		}
		for _, k := range unset {
			os.Unsetenv(k)
		}
	}
}
