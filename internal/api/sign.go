package api

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/snarg/signbridge/internal/signlang"
)

const maxSignText = 500

// SignRequest is the body of POST /translate-sign.
type SignRequest struct {
	Text     string `json:"text"`
	Language string `json:"language"`
}

func (req *SignRequest) validate() error {
	n := utf8.RuneCountInString(req.Text)
	if n < 1 || n > maxSignText {
		return fmt.Errorf("text must be between 1 and %d characters, got %d", maxSignText, n)
	}
	if strings.TrimSpace(req.Language) == "" {
		req.Language = signlang.DefaultLanguage
	}
	return nil
}

// SignHandler serves text-to-sign lookups. Remote failures never reach the
// caller; the lookup falls back to prerecorded videos.
type SignHandler struct {
	signs SignTranslator
	log   zerolog.Logger
}

func NewSignHandler(signs SignTranslator, log zerolog.Logger) *SignHandler {
	return &SignHandler{
		signs: signs,
		log:   log.With().Str("handler", "translate-sign").Logger(),
	}
}

// Routes registers the sign lookup endpoint.
func (h *SignHandler) Routes(r chi.Router) {
	r.Post("/translate-sign", h.Translate)
}

// Translate handles POST /translate-sign.
func (h *SignHandler) Translate(w http.ResponseWriter, r *http.Request) {
	var req SignRequest
	if err := DecodeJSON(r, &req); err != nil {
		WriteErrorDetail(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}
	if err := req.validate(); err != nil {
		WriteErrorDetail(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	WriteJSON(w, http.StatusOK, h.signs.TextToSign(context.WithoutCancel(r.Context()), req.Text, req.Language))
}
