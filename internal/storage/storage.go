// Package storage persists conversation log entries. Entries are append-only:
// nothing in this package edits or deletes an entry once written.
package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/snarg/signbridge/internal/config"
)

var (
	ErrLogWrite       = errors.New("failed to log conversation")
	ErrLogRead        = errors.New("failed to retrieve conversation history")
	ErrInvalidSession = errors.New("invalid session id")
)

const maxSessionIDLen = 128

// Entry is one logged interaction.
type Entry struct {
	LogID          string    `json:"log_id"`
	SignInput      *string   `json:"sign_input"`
	TranslatedText string    `json:"translated_text"`
	ResponseSpeech *string   `json:"response_speech"`
	Timestamp      time.Time `json:"timestamp"`
	SessionID      string    `json:"session_id"`
}

// LogStore is the append/query surface the API depends on.
type LogStore interface {
	// Append stores e under a freshly generated log id and returns that id.
	// A zero Timestamp is replaced with the current time.
	Append(ctx context.Context, e Entry) (string, error)

	// Query returns every entry of the session, oldest partition first.
	// An unknown session yields an empty slice, not an error.
	Query(ctx context.Context, sessionID string) ([]Entry, error)

	// Type returns "local", "s3", or "tiered".
	Type() string
}

// New creates a LogStore based on config. For S3-backed stores the bucket is
// checked before returning.
func New(cfg config.LogStoreConfig, log zerolog.Logger) (LogStore, error) {
	switch strings.ToLower(cfg.Backend) {
	case "", "local":
		return NewLocalStore(cfg.Dir, log), nil
	case "s3", "tiered":
	default:
		return nil, fmt.Errorf("unsupported log backend: %s", cfg.Backend)
	}

	s3store, err := NewS3Store(cfg.S3, log)
	if err != nil {
		return nil, fmt.Errorf("S3 init failed: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := s3store.HeadBucket(ctx); err != nil {
		return nil, fmt.Errorf("S3 startup check failed (bucket=%q endpoint=%q): %w",
			cfg.S3.Bucket, cfg.S3.Endpoint, err)
	}
	log.Info().Str("bucket", cfg.S3.Bucket).Str("endpoint", cfg.S3.Endpoint).Msg("S3 connection verified")

	if strings.EqualFold(cfg.Backend, "s3") {
		return s3store, nil
	}
	return NewTieredStore(s3store, NewLocalStore(cfg.Dir, log), log), nil
}

// ValidateSessionID rejects ids that cannot safely appear in a file name or
// object key.
func ValidateSessionID(id string) error {
	switch {
	case id == "":
		return fmt.Errorf("%w: must not be empty", ErrInvalidSession)
	case len(id) > maxSessionIDLen:
		return fmt.Errorf("%w: longer than %d characters", ErrInvalidSession, maxSessionIDLen)
	case id == "." || id == ".." || strings.ContainsAny(id, "/\\\x00"):
		return fmt.Errorf("%w: %q", ErrInvalidSession, id)
	}
	return nil
}

// prepare fills in the generated fields of a new entry.
func prepare(e Entry, now time.Time) (Entry, error) {
	if err := ValidateSessionID(e.SessionID); err != nil {
		return e, err
	}
	e.LogID = uuid.NewString()
	if e.Timestamp.IsZero() {
		e.Timestamp = now
	}
	return e, nil
}

// partitionDate is the calendar day (UTC) an entry written at t belongs to.
func partitionDate(t time.Time) string {
	return t.UTC().Format("20060102")
}
