package api

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/snarg/signbridge/internal/synthesize"
	"golang.org/x/text/language"
)

const (
	maxTTSText       = 5000
	defaultTTSLang   = "en-US"
	speechAttachment = `attachment; filename="speech.wav"`
)

// TTSRequest is the body of POST /tts. Language is validated but the basic
// Coqui server ignores it; LanguageID is forwarded for multilingual models.
type TTSRequest struct {
	Text       string `json:"text"`
	Language   string `json:"language"`
	SpeakerID  string `json:"speaker_id,omitempty"`
	LanguageID string `json:"language_id,omitempty"`
	StyleWav   string `json:"style_wav,omitempty"`
}

func (req *TTSRequest) validate() error {
	n := utf8.RuneCountInString(req.Text)
	if n < 1 || n > maxTTSText {
		return fmt.Errorf("text must be between 1 and %d characters, got %d", maxTTSText, n)
	}
	if strings.TrimSpace(req.Language) == "" {
		req.Language = defaultTTSLang
	}
	if _, err := language.Parse(strings.ReplaceAll(req.Language, "_", "-")); err != nil {
		return fmt.Errorf("invalid language %q", req.Language)
	}
	return nil
}

// TTSReachability is the body of GET /tts/health.
type TTSReachability struct {
	Reachable bool   `json:"reachable"`
	ServerURL string `json:"server_url"`
}

// TTSHandler proxies speech synthesis to the Coqui server.
type TTSHandler struct {
	tts SpeechSynthesizer
	log zerolog.Logger
}

func NewTTSHandler(tts SpeechSynthesizer, log zerolog.Logger) *TTSHandler {
	return &TTSHandler{
		tts: tts,
		log: log.With().Str("handler", "tts").Logger(),
	}
}

// Routes registers the text-to-speech endpoints.
func (h *TTSHandler) Routes(r chi.Router) {
	r.Post("/tts", h.Synthesize)
	r.Get("/tts/health", h.Health)
	r.Get("/tts/info", h.Info)
}

// Synthesize handles POST /tts and returns raw WAV bytes as an attachment.
func (h *TTSHandler) Synthesize(w http.ResponseWriter, r *http.Request) {
	var req TTSRequest
	if err := DecodeJSON(r, &req); err != nil {
		WriteErrorDetail(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}
	if err := req.validate(); err != nil {
		WriteErrorDetail(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	wav, err := h.tts.Synthesize(context.WithoutCancel(r.Context()), synthesize.Request{
		Text:       req.Text,
		SpeakerID:  req.SpeakerID,
		LanguageID: req.LanguageID,
		StyleWav:   req.StyleWav,
	})
	if err != nil {
		h.log.Error().Err(err).Int("text_len", len(req.Text)).Msg("synthesis failed")
		WriteErrorDetail(w, http.StatusInternalServerError, "failed to synthesize speech", err.Error())
		return
	}

	w.Header().Set("Content-Type", "audio/wav")
	w.Header().Set("Content-Disposition", speechAttachment)
	w.WriteHeader(http.StatusOK)
	w.Write(wav)
}

// Health handles GET /tts/health. Always 200; the body says whether the
// Coqui server answered its health probe.
func (h *TTSHandler) Health(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, TTSReachability{
		Reachable: h.tts.HealthCheck(context.WithoutCancel(r.Context())),
		ServerURL: h.tts.ServerURL(),
	})
}

// Info handles GET /tts/info by relaying the Coqui server's model info.
func (h *TTSHandler) Info(w http.ResponseWriter, r *http.Request) {
	info, err := h.tts.ServerInfo(context.WithoutCancel(r.Context()))
	if err != nil {
		h.log.Warn().Err(err).Msg("tts server info failed")
		WriteErrorDetail(w, http.StatusBadGateway, "tts server info unavailable", err.Error())
		return
	}
	WriteJSON(w, http.StatusOK, info)
}
