package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/snarg/signbridge/internal/dialogue"
)

// DialogueRequest is the body of POST /dialogue.
type DialogueRequest struct {
	UserInput *string `json:"user_input"`
	Mode      string  `json:"mode"`
}

type DialogueHandler struct {
	orch Orchestrator
	log  zerolog.Logger
}

func NewDialogueHandler(orch Orchestrator, log zerolog.Logger) *DialogueHandler {
	return &DialogueHandler{
		orch: orch,
		log:  log.With().Str("handler", "dialogue").Logger(),
	}
}

// Routes registers the dialogue endpoint.
func (h *DialogueHandler) Routes(r chi.Router) {
	r.Post("/dialogue", h.Handle)
}

// Handle handles POST /dialogue.
func (h *DialogueHandler) Handle(w http.ResponseWriter, r *http.Request) {
	var req DialogueRequest
	if err := DecodeJSON(r, &req); err != nil {
		WriteErrorDetail(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}
	if req.UserInput == nil {
		WriteErrorDetail(w, http.StatusBadRequest, "invalid request body", "user_input is required")
		return
	}

	reply, err := h.orch.Handle(context.WithoutCancel(r.Context()), *req.UserInput, req.Mode)
	switch {
	case errors.Is(err, dialogue.ErrInvalidMode):
		WriteErrorDetail(w, http.StatusBadRequest, dialogue.ErrInvalidMode.Error(), err.Error())
		return
	case err != nil:
		h.log.Error().Err(err).Str("mode", req.Mode).Msg("dialogue failed")
		WriteErrorDetail(w, http.StatusInternalServerError, dialogue.ErrDialogueFailed.Error(), err.Error())
		return
	}
	WriteJSON(w, http.StatusOK, reply)
}
