package api

import (
	"fmt"
	"net/http"
	"time"

	"github.com/snarg/signbridge/internal/config"
)

type HealthResponse struct {
	Status  string `json:"status"`
	Uptime  string `json:"uptime"`
	Version string `json:"version"`
}

// ConfigResponse describes the models and upstreams the server runs with.
type ConfigResponse struct {
	WhisperModel   string          `json:"whisper_model"`
	CoquiServerURL string          `json:"coqui_server_url"`
	TTSModel       string          `json:"tts_model"`
	APIVersion     string          `json:"api_version"`
	Features       map[string]bool `json:"features"`
}

type HealthHandler struct {
	cfg       *config.Config
	version   string
	startTime time.Time
	now       func() time.Time
}

func NewHealthHandler(cfg *config.Config, version string, startTime time.Time) *HealthHandler {
	return &HealthHandler{
		cfg:       cfg,
		version:   version,
		startTime: startTime,
		now:       time.Now,
	}
}

// Root handles GET /.
func (h *HealthHandler) Root(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, map[string]string{
		"message": "Sign Language Interpreter API",
		"version": h.version,
		"health":  "/health",
	})
}

// ServeHTTP handles GET /health. It reports liveness only; upstream
// reachability is exposed separately on /tts/health.
func (h *HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, HealthResponse{
		Status:  "ok",
		Uptime:  formatUptime(h.now().Sub(h.startTime)),
		Version: h.version,
	})
}

// Config handles GET /config.
func (h *HealthHandler) Config(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, ConfigResponse{
		WhisperModel:   h.cfg.Transcribe.Model,
		CoquiServerURL: h.cfg.TTS.ServerURL,
		TTSModel:       h.cfg.TTS.Model,
		APIVersion:     h.version,
		Features: map[string]bool{
			"speech_to_text":         true,
			"text_to_speech":         true,
			"sign_language":          true,
			"conversation_logging":   true,
			"dialogue_orchestration": true,
		},
	})
}

// formatUptime renders d as whole hours and minutes, e.g. "20h 5m".
func formatUptime(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	secs := int64(d.Seconds())
	return fmt.Sprintf("%dh %dm", secs/3600, (secs%3600)/60)
}
