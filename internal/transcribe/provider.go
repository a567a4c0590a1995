package transcribe

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/snarg/signbridge/internal/config"
)

// Provider is the interface for speech-to-text backends.
type Provider interface {
	Transcribe(ctx context.Context, data []byte, filename string, opts Options) (*Response, error)
	Name() string  // "openai", "elevenlabs"
	Model() string // model identifier for logs and /config
	Close()
}

// Translator is implemented by providers that can translate speech to English text.
type Translator interface {
	Translate(ctx context.Context, data []byte, filename string, opts Options) (*Response, error)
}

// Options are per-request options. Zero-value fields are omitted from the
// upstream request, which leaves the provider to auto-detect.
type Options struct {
	Language string // ISO-639-1 hint ("en", "ar")
	Prompt   string // vocabulary context; OpenAI only
}

// Response is the common transcription result from any provider.
type Response struct {
	Text     string
	Language string
	Duration float64 // audio duration in seconds, 0 if unknown
}

// NewProvider builds the provider selected by cfg.Provider. A missing
// credential is a construction error.
func NewProvider(cfg config.TranscribeConfig, timeout time.Duration) (Provider, error) {
	key := cfg.APIKey()
	switch strings.ToLower(cfg.Provider) {
	case "", "openai":
		return NewOpenAIProvider(key, cfg.OpenAIBaseURL, cfg.Model, timeout)
	case "elevenlabs":
		model := cfg.Model
		if model == "" || model == "whisper-1" {
			model = "scribe_v1"
		}
		return NewElevenLabsProvider(key, cfg.ElevenLabsURL, model, timeout)
	default:
		return nil, fmt.Errorf("unsupported transcription provider: %s (supported: openai, elevenlabs)", cfg.Provider)
	}
}

// newHTTPClient returns a client with its own transport so Close can release
// the provider's connections without touching http.DefaultTransport.
func newHTTPClient(timeout time.Duration) *http.Client {
	return &http.Client{
		Timeout:   timeout,
		Transport: http.DefaultTransport.(*http.Transport).Clone(),
	}
}
