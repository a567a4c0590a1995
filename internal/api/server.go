package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/snarg/signbridge/internal/config"
	"github.com/snarg/signbridge/internal/dialogue"
	"github.com/snarg/signbridge/internal/metrics"
	"github.com/snarg/signbridge/internal/signlang"
	"github.com/snarg/signbridge/internal/storage"
	"github.com/snarg/signbridge/internal/synthesize"
	"github.com/snarg/signbridge/internal/transcribe"
)

// Transcriber is the speech-to-text surface the handlers use.
type Transcriber interface {
	Transcribe(ctx context.Context, data []byte, filename, lang, prompt string) (*transcribe.Result, error)
	Translate(ctx context.Context, data []byte, filename string) (*transcribe.Result, error)
}

// SpeechSynthesizer is the text-to-speech surface the handlers use.
type SpeechSynthesizer interface {
	Synthesize(ctx context.Context, req synthesize.Request) ([]byte, error)
	HealthCheck(ctx context.Context) bool
	ServerInfo(ctx context.Context) (map[string]any, error)
	ServerURL() string
}

// SignTranslator looks up sign-language videos. It never fails.
type SignTranslator interface {
	TextToSign(ctx context.Context, text, language string) signlang.Result
}

// Orchestrator produces a spoken reply to one utterance.
type Orchestrator interface {
	Handle(ctx context.Context, input, mode string) (*dialogue.Reply, error)
}

// ServerOptions holds the dependencies for the HTTP server.
type ServerOptions struct {
	Config      *config.Config
	Transcriber Transcriber
	TTS         SpeechSynthesizer
	Signs       SignTranslator
	Logs        storage.LogStore
	Dialogue    Orchestrator
	Version     string
	StartTime   time.Time
	Log         zerolog.Logger
}

type Server struct {
	http *http.Server
	log  zerolog.Logger
}

func NewServer(opts ServerOptions) *Server {
	cfg := opts.Config
	return &Server{
		http: &http.Server{
			Addr:         cfg.HTTPAddr,
			Handler:      NewRouter(opts),
			ReadTimeout:  cfg.ReadTimeout,
			WriteTimeout: cfg.WriteTimeout,
			IdleTimeout:  cfg.IdleTimeout,
		},
		log: opts.Log,
	}
}

// NewRouter builds the full route table. Exposed separately so tests can
// drive it with httptest without binding a port.
func NewRouter(opts ServerOptions) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(RequestID)
	r.Use(Logger(opts.Log))
	r.Use(Recoverer)
	r.Use(CORS(opts.Config.CORSOrigins))
	r.Use(metrics.InstrumentHandler)

	health := NewHealthHandler(opts.Config, opts.Version, opts.StartTime)
	r.Get("/", health.Root)
	r.Get("/health", health.ServeHTTP)
	r.Get("/config", health.Config)
	r.Handle("/metrics", promhttp.Handler())

	NewSpeechHandler(opts.Transcriber, opts.Log).Routes(r)
	NewTTSHandler(opts.TTS, opts.Log).Routes(r)
	NewSignHandler(opts.Signs, opts.Log).Routes(r)
	NewLogHandler(opts.Logs, opts.Log).Routes(r)
	NewDialogueHandler(opts.Dialogue, opts.Log).Routes(r)

	return r
}

func (s *Server) Start() error {
	s.log.Info().Str("addr", s.http.Addr).Msg("http server starting")
	err := s.http.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info().Msg("http server shutting down")
	return s.http.Shutdown(ctx)
}
