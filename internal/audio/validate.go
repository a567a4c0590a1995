// Package audio checks uploaded audio payloads before they are handed to a
// transcription provider.
package audio

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"sort"
	"strings"
)

// MaxSize is the largest accepted upload, in bytes.
const MaxSize = 10 << 20

var (
	ErrInvalidFormat   = errors.New("invalid audio format")
	ErrPayloadTooLarge = errors.New("audio file too large")
)

var allowedFormats = map[string]bool{
	".wav":  true,
	".mp3":  true,
	".m4a":  true,
	".ogg":  true,
	".flac": true,
}

// AllowedFormats returns the accepted extensions in sorted order.
func AllowedFormats() []string {
	out := make([]string, 0, len(allowedFormats))
	for ext := range allowedFormats {
		out = append(out, ext)
	}
	sort.Strings(out)
	return out
}

// Format returns the lowercase extension of filename without the dot ("wav").
func Format(filename string) string {
	return strings.TrimPrefix(strings.ToLower(filepath.Ext(filename)), ".")
}

// Validate checks the extension of filename and reads at most MaxSize bytes
// from r. The returned bytes are exactly what was read.
func Validate(filename string, r io.Reader) ([]byte, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	if !allowedFormats[ext] {
		return nil, fmt.Errorf("%w: %q (allowed: %s)", ErrInvalidFormat, ext, strings.Join(AllowedFormats(), ", "))
	}

	data, err := io.ReadAll(io.LimitReader(r, MaxSize+1))
	if err != nil {
		return nil, fmt.Errorf("read audio: %w", err)
	}
	if len(data) > MaxSize {
		return nil, fmt.Errorf("%w: maximum size is %d MB", ErrPayloadTooLarge, MaxSize>>20)
	}
	return data, nil
}
