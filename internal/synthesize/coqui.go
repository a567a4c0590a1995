// Package synthesize talks to a Coqui-compatible text-to-speech server.
package synthesize

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/snarg/signbridge/internal/metrics"
)

// HealthTimeout bounds HealthCheck independently of the client timeout.
const HealthTimeout = 5 * time.Second

var (
	ErrServerUnreachable = errors.New("tts server unreachable")
	ErrSynthesisServer   = errors.New("tts server error")
	ErrSynthesisFailed   = errors.New("tts synthesis failed")
)

// ServerError is returned when the TTS server answers with a non-2xx status.
// errors.Is(err, ErrSynthesisServer) matches it.
type ServerError struct {
	StatusCode int
	Body       string
}

func (e *ServerError) Error() string {
	return fmt.Sprintf("tts server error: %d - %s", e.StatusCode, e.Body)
}

func (e *ServerError) Is(target error) bool { return target == ErrSynthesisServer }

// Request is the payload for one synthesis call. Optional fields are only
// sent when set.
type Request struct {
	Text       string `json:"text"`
	SpeakerID  string `json:"speaker_id,omitempty"`
	LanguageID string `json:"language_id,omitempty"`
	StyleWav   string `json:"style_wav,omitempty"`
}

// CoquiClient calls the /api/tts endpoint of a Coqui TTS server.
type CoquiClient struct {
	serverURL string
	client    *http.Client
	log       zerolog.Logger
	closeOnce sync.Once
}

// NewCoquiClient creates a client for the server at serverURL.
func NewCoquiClient(serverURL string, timeout time.Duration, log zerolog.Logger) *CoquiClient {
	return &CoquiClient{
		serverURL: strings.TrimRight(serverURL, "/"),
		client: &http.Client{
			Timeout:   timeout,
			Transport: http.DefaultTransport.(*http.Transport).Clone(),
		},
		log: log,
	}
}

// ServerURL returns the configured base URL.
func (c *CoquiClient) ServerURL() string { return c.serverURL }

// Synthesize converts text to WAV audio bytes.
func (c *CoquiClient) Synthesize(ctx context.Context, req Request) ([]byte, error) {
	start := time.Now()
	audio, err := c.synthesize(ctx, req)
	metrics.ObserveUpstream("tts", start, err)
	if err != nil {
		c.log.Error().Err(err).Int("text_len", len(req.Text)).Msg("synthesis failed")
		return nil, err
	}
	c.log.Debug().Int("bytes", len(audio)).Dur("elapsed", time.Since(start)).Msg("synthesized")
	return audio, nil
}

func (c *CoquiClient) synthesize(ctx context.Context, req Request) ([]byte, error) {
	payload, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("%w: encode request: %w", ErrSynthesisFailed, err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.serverURL+"/api/tts", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("%w: create request: %w", ErrSynthesisFailed, err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return nil, c.classify(err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read response: %w", ErrSynthesisFailed, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &ServerError{StatusCode: resp.StatusCode, Body: string(body)}
	}
	return body, nil
}

// classify separates "could not connect" from every other transport failure.
// Timeouts, including dial timeouts, count as synthesis failures.
func (c *CoquiClient) classify(err error) error {
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return fmt.Errorf("%w: %w", ErrSynthesisFailed, err)
	}
	var opErr *net.OpError
	var dnsErr *net.DNSError
	if (errors.As(err, &opErr) && opErr.Op == "dial") || errors.As(err, &dnsErr) {
		return fmt.Errorf("%w: cannot connect to TTS server at %s, make sure the server is running", ErrServerUnreachable, c.serverURL)
	}
	return fmt.Errorf("%w: %w", ErrSynthesisFailed, err)
}

// HealthCheck probes {server}/health. It never returns an error; any failure
// reports false.
func (c *CoquiClient) HealthCheck(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, HealthTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.serverURL+"/health", nil)
	if err != nil {
		return false
	}
	resp, err := c.client.Do(req)
	if err != nil {
		c.log.Debug().Err(err).Msg("tts health check failed")
		return false
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)
	return resp.StatusCode == http.StatusOK
}

// ServerInfo returns the server's model and speaker description as reported
// by {server}/api/tts/info.
func (c *CoquiClient) ServerInfo(ctx context.Context) (map[string]any, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.serverURL+"/api/tts/info", nil)
	if err != nil {
		return nil, fmt.Errorf("%w: create request: %w", ErrSynthesisFailed, err)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, c.classify(err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read response: %w", ErrSynthesisFailed, err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &ServerError{StatusCode: resp.StatusCode, Body: string(body)}
	}
	var info map[string]any
	if err := json.Unmarshal(body, &info); err != nil {
		return nil, fmt.Errorf("%w: decode server info: %w", ErrSynthesisFailed, err)
	}
	return info, nil
}

// Close releases idle connections. Safe to call more than once.
func (c *CoquiClient) Close() {
	c.closeOnce.Do(c.client.CloseIdleConnections)
}
