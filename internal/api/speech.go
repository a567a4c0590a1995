package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/snarg/signbridge/internal/audio"
	"github.com/snarg/signbridge/internal/transcribe"
)

// audioField is the multipart field carrying the upload.
const audioField = "audio_file"

// maxUploadBody leaves room for multipart framing around a MaxSize file.
const maxUploadBody = audio.MaxSize + 1<<20

// TranscriptResponse is the body of a successful /stt call. Confidence is
// always null: Whisper does not report one.
type TranscriptResponse struct {
	Transcript string   `json:"transcript"`
	Confidence *float64 `json:"confidence"`
	Language   string   `json:"language,omitempty"`
}

// SpeechHandler serves speech-to-text uploads.
type SpeechHandler struct {
	stt Transcriber
	log zerolog.Logger
}

func NewSpeechHandler(stt Transcriber, log zerolog.Logger) *SpeechHandler {
	return &SpeechHandler{
		stt: stt,
		log: log.With().Str("handler", "stt").Logger(),
	}
}

// Routes registers the speech-to-text endpoints.
func (h *SpeechHandler) Routes(r chi.Router) {
	r.Post("/stt", h.Transcribe)
	r.Post("/stt/translate", h.Translate)
}

// Transcribe handles POST /stt. Accepts a multipart audio_file, an optional
// ?language= hint and an optional ?prompt= to bias vocabulary.
func (h *SpeechHandler) Transcribe(w http.ResponseWriter, r *http.Request) {
	data, filename, ok := h.readUpload(w, r)
	if !ok {
		return
	}

	q := r.URL.Query()
	res, err := h.stt.Transcribe(context.WithoutCancel(r.Context()), data, filename, q.Get("language"), q.Get("prompt"))
	if err != nil {
		h.writeSTTError(w, err)
		return
	}
	if res.Transcript == "" {
		WriteError(w, http.StatusBadRequest, transcribe.ErrNoSpeechDetected.Error())
		return
	}

	WriteJSON(w, http.StatusOK, TranscriptResponse{
		Transcript: res.Transcript,
		Language:   res.Language,
	})
}

// Translate handles POST /stt/translate: speech in any language to English text.
func (h *SpeechHandler) Translate(w http.ResponseWriter, r *http.Request) {
	data, filename, ok := h.readUpload(w, r)
	if !ok {
		return
	}

	res, err := h.stt.Translate(context.WithoutCancel(r.Context()), data, filename)
	if err != nil {
		h.writeSTTError(w, err)
		return
	}
	if res.Transcript == "" {
		WriteError(w, http.StatusBadRequest, transcribe.ErrNoSpeechDetected.Error())
		return
	}
	WriteJSON(w, http.StatusOK, TranscriptResponse{Transcript: res.Transcript, Language: "en"})
}

// readUpload extracts and validates the audio file. On failure it has already
// written the error response.
func (h *SpeechHandler) readUpload(w http.ResponseWriter, r *http.Request) ([]byte, string, bool) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBody)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			WriteErrorDetail(w, http.StatusBadRequest, audio.ErrPayloadTooLarge.Error(), err.Error())
			return nil, "", false
		}
		WriteErrorDetail(w, http.StatusBadRequest, "invalid multipart form", err.Error())
		return nil, "", false
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile(audioField)
	if err != nil {
		WriteErrorDetail(w, http.StatusBadRequest, "missing audio file", "multipart field "+audioField+" is required")
		return nil, "", false
	}
	defer file.Close()

	data, err := audio.Validate(header.Filename, file)
	switch {
	case errors.Is(err, audio.ErrInvalidFormat):
		WriteErrorDetail(w, http.StatusBadRequest, audio.ErrInvalidFormat.Error(), err.Error())
		return nil, "", false
	case errors.Is(err, audio.ErrPayloadTooLarge):
		WriteErrorDetail(w, http.StatusBadRequest, audio.ErrPayloadTooLarge.Error(), err.Error())
		return nil, "", false
	case err != nil:
		WriteErrorDetail(w, http.StatusBadRequest, "failed to read audio file", err.Error())
		return nil, "", false
	}
	h.log.Debug().
		Str("format", audio.Format(header.Filename)).
		Int("bytes", len(data)).
		Msg("audio upload accepted")
	return data, header.Filename, true
}

func (h *SpeechHandler) writeSTTError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, transcribe.ErrInvalidLanguage):
		WriteErrorDetail(w, http.StatusBadRequest, transcribe.ErrInvalidLanguage.Error(), err.Error())
	case errors.Is(err, transcribe.ErrNoSpeechDetected):
		WriteError(w, http.StatusBadRequest, transcribe.ErrNoSpeechDetected.Error())
	case errors.Is(err, transcribe.ErrTranslationUnsupported):
		WriteErrorDetail(w, http.StatusNotImplemented, transcribe.ErrTranslationUnsupported.Error(), err.Error())
	default:
		h.log.Error().Err(err).Msg("speech-to-text failed")
		WriteErrorDetail(w, http.StatusInternalServerError, "failed to transcribe audio", err.Error())
	}
}
