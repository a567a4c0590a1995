package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/snarg/signbridge/internal/storage"
)

// LogRequest is the body of POST /log. TranslatedText is a pointer so a
// missing field can be told apart from an empty string.
type LogRequest struct {
	SignInput      *string `json:"sign_input"`
	TranslatedText *string `json:"translated_text"`
	ResponseSpeech *string `json:"response_speech"`
	Timestamp      *string `json:"timestamp"`
	SessionID      string  `json:"session_id"`
}

type LogSavedResponse struct {
	Status string `json:"status"`
	LogID  string `json:"log_id"`
}

type LogHistoryResponse struct {
	SessionID string          `json:"session_id"`
	Logs      []storage.Entry `json:"logs"`
	Count     int             `json:"count"`
}

// LogHandler records and replays conversation logs.
type LogHandler struct {
	store storage.LogStore
	log   zerolog.Logger
}

func NewLogHandler(store storage.LogStore, log zerolog.Logger) *LogHandler {
	return &LogHandler{
		store: store,
		log:   log.With().Str("handler", "log").Logger(),
	}
}

// Routes registers the conversation log endpoints.
func (h *LogHandler) Routes(r chi.Router) {
	r.Post("/log", h.Append)
	r.Get("/log/{session_id}", h.History)
}

// Append handles POST /log.
func (h *LogHandler) Append(w http.ResponseWriter, r *http.Request) {
	var req LogRequest
	if err := DecodeJSON(r, &req); err != nil {
		WriteErrorDetail(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}
	if req.TranslatedText == nil {
		WriteErrorDetail(w, http.StatusBadRequest, "invalid request body", "translated_text is required")
		return
	}

	e := storage.Entry{
		SignInput:      req.SignInput,
		TranslatedText: *req.TranslatedText,
		ResponseSpeech: req.ResponseSpeech,
		SessionID:      req.SessionID,
	}
	if req.Timestamp != nil {
		ts, err := parseTimestamp(*req.Timestamp)
		if err != nil {
			WriteErrorDetail(w, http.StatusBadRequest, "invalid request body", err.Error())
			return
		}
		e.Timestamp = ts
	}

	id, err := h.store.Append(context.WithoutCancel(r.Context()), e)
	if err != nil {
		h.writeStoreError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, LogSavedResponse{Status: "saved", LogID: id})
}

// History handles GET /log/{session_id}.
func (h *LogHandler) History(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "session_id")
	entries, err := h.store.Query(context.WithoutCancel(r.Context()), sessionID)
	if err != nil {
		h.writeStoreError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, LogHistoryResponse{
		SessionID: sessionID,
		Logs:      entries,
		Count:     len(entries),
	})
}

func (h *LogHandler) writeStoreError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, storage.ErrInvalidSession):
		WriteErrorDetail(w, http.StatusBadRequest, storage.ErrInvalidSession.Error(), err.Error())
	case errors.Is(err, storage.ErrLogRead):
		h.log.Error().Err(err).Msg("log query failed")
		WriteErrorDetail(w, http.StatusInternalServerError, storage.ErrLogRead.Error(), err.Error())
	default:
		h.log.Error().Err(err).Str("backend", h.store.Type()).Msg("log append failed")
		WriteErrorDetail(w, http.StatusInternalServerError, storage.ErrLogWrite.Error(), err.Error())
	}
}

// naiveLayout is ISO-8601 without a zone offset, as Python's isoformat()
// emits for naive datetimes.
const naiveLayout = "2006-01-02T15:04:05.999999999"

// parseTimestamp accepts RFC 3339 or a zone-less ISO-8601 value, which is
// taken as UTC.
func parseTimestamp(s string) (time.Time, error) {
	if ts, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return ts, nil
	}
	ts, err := time.ParseInLocation(naiveLayout, s, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("timestamp %q is not ISO-8601", s)
	}
	return ts, nil
}
