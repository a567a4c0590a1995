package storage

import (
	"context"

	"github.com/rs/zerolog"
)

// TieredStore combines local disk (source of truth) with S3 (backup/durability).
// Write path: append locally first, then copy the entry to S3.
// Read path: local only; S3 is a replica for operators.
type TieredStore struct {
	s3    *S3Store
	local *LocalStore
	log   zerolog.Logger
}

// NewTieredStore creates a tiered local-primary + S3-backup store.
func NewTieredStore(s3 *S3Store, local *LocalStore, log zerolog.Logger) *TieredStore {
	return &TieredStore{
		s3:    s3,
		local: local,
		log:   log.With().Str("component", "tiered-log-store").Logger(),
	}
}

// Append writes to local disk first (fatal on failure), then S3 (warning on
// failure). The id and timestamp assigned locally are kept in the replica.
func (s *TieredStore) Append(ctx context.Context, e Entry) (string, error) {
	now := s.local.now()
	prepared, err := prepare(e, now)
	if err != nil {
		return "", err
	}
	if err := s.local.appendPrepared(prepared, now); err != nil {
		return "", err
	}
	if err := s.s3.putPrepared(ctx, prepared, now); err != nil {
		s.log.Warn().Err(err).Str("log_id", prepared.LogID).Msg("S3 backup write failed")
	}
	return prepared.LogID, nil
}

func (s *TieredStore) Query(ctx context.Context, sessionID string) ([]Entry, error) {
	return s.local.Query(ctx, sessionID)
}

func (s *TieredStore) Type() string { return "tiered" }
