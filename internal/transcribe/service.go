package transcribe

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/abadojack/whatlanggo"
	"github.com/rs/zerolog"
	"github.com/snarg/signbridge/internal/metrics"
	"golang.org/x/text/language"
)

var (
	ErrTranscriptionFailed    = errors.New("transcription failed")
	ErrNoSpeechDetected       = errors.New("no speech detected in audio file")
	ErrInvalidLanguage        = errors.New("invalid language code")
	ErrTranslationUnsupported = errors.New("translation not supported by provider")
)

// Result is what callers get back from Service.
type Result struct {
	Transcript string
	Language   string // empty when neither the provider nor detection knows
}

// Service wraps a Provider with language-hint normalisation, error
// classification and metrics. It does not retry.
type Service struct {
	provider Provider
	log      zerolog.Logger
}

func NewService(provider Provider, log zerolog.Logger) *Service {
	return &Service{
		provider: provider,
		log:      log.With().Str("provider", provider.Name()).Logger(),
	}
}

// Transcribe converts audio to text. prompt, when set, is passed to the
// provider as vocabulary context. An empty transcript is not an error here;
// callers map it to ErrNoSpeechDetected.
func (s *Service) Transcribe(ctx context.Context, data []byte, filename, lang, prompt string) (*Result, error) {
	hint, err := NormalizeLanguage(lang)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	resp, err := s.provider.Transcribe(ctx, data, filename, Options{Language: hint, Prompt: prompt})
	metrics.ObserveUpstream("transcribe", start, err)
	if err != nil {
		s.log.Error().Err(err).Str("filename", filename).Msg("transcription failed")
		return nil, fmt.Errorf("%w: %w", ErrTranscriptionFailed, err)
	}

	res := &Result{
		Transcript: strings.TrimSpace(resp.Text),
		Language:   canonicalLanguage(resp.Language),
	}
	if res.Language == "" {
		res.Language = detectLanguage(res.Transcript)
	}
	s.log.Debug().
		Int("bytes", len(data)).
		Str("language", res.Language).
		Float64("audio_seconds", resp.Duration).
		Dur("elapsed", time.Since(start)).
		Msg("transcribed")
	return res, nil
}

// Translate converts audio in any language to English text.
func (s *Service) Translate(ctx context.Context, data []byte, filename string) (*Result, error) {
	tr, ok := s.provider.(Translator)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrTranslationUnsupported, s.provider.Name())
	}

	start := time.Now()
	resp, err := tr.Translate(ctx, data, filename, Options{})
	metrics.ObserveUpstream("translate", start, err)
	if err != nil {
		s.log.Error().Err(err).Str("filename", filename).Msg("translation failed")
		return nil, fmt.Errorf("%w: %w", ErrTranscriptionFailed, err)
	}
	return &Result{Transcript: strings.TrimSpace(resp.Text), Language: resp.Language}, nil
}

// NormalizeLanguage turns a BCP 47 tag ("en-US", "ar_SA") into the ISO-639-1
// base language Whisper expects ("en"). Empty input stays empty.
func NormalizeLanguage(lang string) (string, error) {
	lang = strings.TrimSpace(lang)
	if lang == "" {
		return "", nil
	}
	tag, err := language.Parse(strings.ReplaceAll(lang, "_", "-"))
	if err != nil {
		return "", fmt.Errorf("%w: %q", ErrInvalidLanguage, lang)
	}
	base, _ := tag.Base()
	return base.String(), nil
}

// canonicalLanguage maps what providers report ("english" from Whisper,
// "eng" from ElevenLabs) to ISO-639-1. Unrecognised values pass through.
func canonicalLanguage(lang string) string {
	lang = strings.TrimSpace(lang)
	if lang == "" {
		return ""
	}
	if code, err := NormalizeLanguage(lang); err == nil {
		return code
	}
	for l, name := range whatlanggo.Langs {
		if strings.EqualFold(name, lang) {
			return l.Iso6391()
		}
	}
	return lang
}

// detectLanguage guesses the language of a transcript. Returns "" unless the
// detector is confident.
func detectLanguage(text string) string {
	if text == "" {
		return ""
	}
	info := whatlanggo.Detect(text)
	if !info.IsReliable() {
		return ""
	}
	return info.Lang.Iso6391()
}
