package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/snarg/signbridge/internal/api"
	"github.com/snarg/signbridge/internal/config"
	"github.com/snarg/signbridge/internal/dialogue"
	"github.com/snarg/signbridge/internal/signlang"
	"github.com/snarg/signbridge/internal/storage"
	"github.com/snarg/signbridge/internal/synthesize"
	"github.com/snarg/signbridge/internal/transcribe"
)

var version = "1.0.0"

func main() {
	startTime := time.Now()

	var overrides config.Overrides
	flag.StringVar(&overrides.EnvFile, "env-file", "", "path to .env file (default .env)")
	flag.StringVar(&overrides.HTTPAddr, "addr", "", "HTTP listen address (overrides HTTP_ADDR)")
	flag.StringVar(&overrides.LogLevel, "log-level", "", "log level (overrides LOG_LEVEL)")
	flag.StringVar(&overrides.LogDir, "log-dir", "", "conversation log directory (overrides LOG_DIR)")
	showVersion := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Println(version)
		return
	}

	if err := run(overrides, startTime); err != nil {
		early := zerolog.New(os.Stderr).With().Timestamp().Logger()
		early.Fatal().Err(err).Msg("signbridge exited with error")
	}
}

// run owns every long-lived resource so deferred Close calls execute on the
// error paths too.
func run(overrides config.Overrides, startTime time.Time) error {
	// Config
	cfg, err := config.Load(overrides)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	// Logger
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	log := zerolog.New(os.Stdout).With().Timestamp().Logger().Level(level)
	log.Info().Str("version", version).Msg("signbridge starting")

	// Context for graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Speech-to-text
	provider, err := transcribe.NewProvider(cfg.Transcribe, cfg.UpstreamTimeout)
	if err != nil {
		return fmt.Errorf("transcription provider: %w", err)
	}
	defer provider.Close()
	// /config reports the model actually in use, which differs from
	// TRANSCRIBE_MODEL when the provider substitutes its own default.
	cfg.Transcribe.Model = provider.Model()
	sttLog := log.With().Str("component", "transcribe").Logger()
	stt := transcribe.NewService(provider, sttLog)
	log.Info().Str("provider", provider.Name()).Str("model", provider.Model()).Msg("transcription configured")

	// Text-to-speech
	ttsLog := log.With().Str("component", "tts").Logger()
	tts := synthesize.NewCoquiClient(cfg.TTS.ServerURL, cfg.UpstreamTimeout, ttsLog)
	defer tts.Close()
	if !tts.HealthCheck(ctx) {
		log.Warn().Str("url", cfg.TTS.ServerURL).Msg("tts server not reachable at startup, /tts will fail until it is")
	}

	// Sign lookup
	signLog := log.With().Str("component", "signlang").Logger()
	signs := signlang.NewClient(cfg.Sign.APIKey, cfg.Sign.APIURL, cfg.UpstreamTimeout, signLog)
	defer signs.Close()
	if !signs.RemoteEnabled() {
		log.Info().Msg("SIGNALL_API_KEY not set, serving prerecorded signs only")
	}

	// Conversation logs
	store, err := storage.New(cfg.Logs, log)
	if err != nil {
		return fmt.Errorf("conversation log store: %w", err)
	}
	log.Info().Str("backend", store.Type()).Str("dir", cfg.Logs.Dir).Msg("conversation log store ready")

	orch := dialogue.NewOrchestrator(dialogue.EchoResponder{}, tts, log)

	// HTTP Server
	httpLog := log.With().Str("component", "http").Logger()
	srv := api.NewServer(api.ServerOptions{
		Config:      cfg,
		Transcriber: stt,
		TTS:         tts,
		Signs:       signs,
		Logs:        store,
		Dialogue:    orch,
		Version:     version,
		StartTime:   startTime,
		Log:         httpLog,
	})

	// Start HTTP server in background
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	// Wait for shutdown signal or server error
	var serveErr error
	select {
	case <-ctx.Done():
		log.Info().Msg("shutdown signal received")
	case serveErr = <-errCh:
		if serveErr != nil {
			log.Error().Err(serveErr).Msg("http server error")
		}
	}

	// Graceful shutdown with 10s timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("http server shutdown error")
	}

	log.Info().Msg("signbridge stopped")
	return serveErr
}
