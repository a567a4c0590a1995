// Package dialogue turns one user utterance into a spoken reply.
package dialogue

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/snarg/signbridge/internal/synthesize"
)

var (
	ErrInvalidMode    = errors.New("invalid mode")
	ErrDialogueFailed = errors.New("dialogue processing failed")
)

// Input modes accepted by Handle. Both are treated identically today.
const (
	ModeSpeech = "speech"
	ModeText   = "text"
)

// Responder produces the reply text for a user utterance.
type Responder interface {
	Respond(ctx context.Context, input string) (string, error)
}

// EchoResponder acknowledges the input without interpreting it.
type EchoResponder struct{}

func (EchoResponder) Respond(_ context.Context, input string) (string, error) {
	return fmt.Sprintf("I understand you said: '%s'. How can I assist you further?", input), nil
}

// Synthesizer is the part of the TTS client the orchestrator needs.
type Synthesizer interface {
	Synthesize(ctx context.Context, req synthesize.Request) ([]byte, error)
}

// Reply is the orchestrator output.
type Reply struct {
	Text        string `json:"reply_text"`
	AudioBase64 string `json:"reply_audio_base64"`
}

type Orchestrator struct {
	responder Responder
	tts       Synthesizer
	log       zerolog.Logger
}

// NewOrchestrator wires a responder to a synthesizer. A nil responder falls
// back to EchoResponder.
func NewOrchestrator(responder Responder, tts Synthesizer, log zerolog.Logger) *Orchestrator {
	if responder == nil {
		responder = EchoResponder{}
	}
	return &Orchestrator{
		responder: responder,
		tts:       tts,
		log:       log.With().Str("component", "dialogue").Logger(),
	}
}

// ValidMode reports whether mode is one Handle accepts.
func ValidMode(mode string) bool {
	return mode == ModeSpeech || mode == ModeText
}

// Handle generates a reply to input and always synthesizes it. Synthesis
// failures are not absorbed: the caller gets ErrDialogueFailed.
func (o *Orchestrator) Handle(ctx context.Context, input, mode string) (*Reply, error) {
	if !ValidMode(mode) {
		return nil, fmt.Errorf("%w: %q (must be %q or %q)", ErrInvalidMode, mode, ModeSpeech, ModeText)
	}

	text, err := o.responder.Respond(ctx, input)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDialogueFailed, err)
	}

	audio, err := o.tts.Synthesize(ctx, synthesize.Request{Text: text})
	if err != nil {
		o.log.Warn().Err(err).Str("mode", mode).Msg("reply synthesis failed")
		return nil, fmt.Errorf("%w: %w", ErrDialogueFailed, err)
	}

	o.log.Debug().Str("mode", mode).Int("audio_bytes", len(audio)).Msg("dialogue reply ready")
	return &Reply{
		Text:        text,
		AudioBase64: base64.StdEncoding.EncodeToString(audio),
	}, nil
}
