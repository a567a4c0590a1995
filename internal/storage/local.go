package storage

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"hash/fnv"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/snarg/signbridge/internal/metrics"
)

const (
	partitionExt   = ".jsonl"
	partitionLocks = 64
)

// LocalStore keeps one JSONL file per session and UTC day:
// {dir}/{session_id}_{YYYYMMDD}.jsonl
type LocalStore struct {
	dir string
	now func() time.Time
	log zerolog.Logger

	locks [partitionLocks]sync.Mutex // striped by partition path
}

// NewLocalStore creates a local filesystem log store rooted at dir.
func NewLocalStore(dir string, log zerolog.Logger) *LocalStore {
	return &LocalStore{
		dir: dir,
		now: func() time.Time { return time.Now().UTC() },
		log: log.With().Str("component", "local-log-store").Logger(),
	}
}

func (s *LocalStore) Append(ctx context.Context, e Entry) (string, error) {
	now := s.now()
	e, err := prepare(e, now)
	if err != nil {
		return "", err
	}
	if err := s.appendPrepared(e, now); err != nil {
		return "", err
	}
	return e.LogID, nil
}

// appendPrepared writes an entry whose id and timestamp are already set into
// the partition for the day of now.
func (s *LocalStore) appendPrepared(e Entry, now time.Time) error {
	line, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("%w: encode entry: %w", ErrLogWrite, err)
	}
	line = append(line, '\n')

	path := s.partitionPath(e.SessionID, partitionDate(now))
	if err := s.appendLine(path, line); err != nil {
		metrics.ConversationLogWritesTotal.WithLabelValues("local", "error").Inc()
		s.log.Error().Err(err).Str("path", path).Msg("conversation log append failed")
		return fmt.Errorf("%w: %w", ErrLogWrite, err)
	}
	metrics.ConversationLogWritesTotal.WithLabelValues("local", "ok").Inc()
	return nil
}

func (s *LocalStore) appendLine(path string, line []byte) error {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("mkdir %s: %w", s.dir, err)
	}

	lock := s.partitionLock(path)
	lock.Lock()
	defer lock.Unlock()

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open: %w", err)
	}
	if _, err := f.Write(line); err != nil {
		f.Close()
		return fmt.Errorf("write: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close: %w", err)
	}
	return nil
}

func (s *LocalStore) Query(ctx context.Context, sessionID string) ([]Entry, error) {
	if err := ValidateSessionID(sessionID); err != nil {
		return nil, err
	}

	dirEntries, err := os.ReadDir(s.dir)
	if errors.Is(err, os.ErrNotExist) {
		return []Entry{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLogRead, err)
	}

	// ReadDir sorts by name, so partitions come back in date order.
	entries := []Entry{}
	for _, de := range dirEntries {
		if de.IsDir() || !isPartitionOf(de.Name(), sessionID) {
			continue
		}
		path := filepath.Join(s.dir, de.Name())
		got, err := s.readPartition(path)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrLogRead, err)
		}
		entries = append(entries, got...)
	}
	return entries, nil
}

func (s *LocalStore) readPartition(path string) ([]Entry, error) {
	lock := s.partitionLock(path)
	lock.Lock()
	defer lock.Unlock()

	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var out []Entry
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 64*1024), 16<<20)
	lineNo := 0
	for sc.Scan() {
		lineNo++
		raw := strings.TrimSpace(sc.Text())
		if raw == "" {
			continue
		}
		var e Entry
		if err := json.Unmarshal([]byte(raw), &e); err != nil {
			s.log.Warn().Err(err).Str("path", path).Int("line", lineNo).Msg("skipping undecodable log line")
			continue
		}
		out = append(out, e)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return out, nil
}

// partitionLock returns the mutex guarding path. Unrelated partitions may
// share a stripe.
func (s *LocalStore) partitionLock(path string) *sync.Mutex {
	h := fnv.New32a()
	h.Write([]byte(path))
	return &s.locks[h.Sum32()%partitionLocks]
}

func (s *LocalStore) partitionPath(sessionID, date string) string {
	return filepath.Join(s.dir, sessionID+"_"+date+partitionExt)
}

// isPartitionOf matches exactly {sessionID}_{8 digits}.jsonl, so session "a"
// never picks up the files of session "a_b".
func isPartitionOf(name, sessionID string) bool {
	rest, ok := strings.CutPrefix(name, sessionID+"_")
	if !ok {
		return false
	}
	date, ok := strings.CutSuffix(rest, partitionExt)
	if !ok || len(date) != 8 {
		return false
	}
	for _, c := range date {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}

func (s *LocalStore) Type() string { return "local" }

// Dir returns the log directory path.
func (s *LocalStore) Dir() string { return s.dir }
