// Package signlang maps text to sign-language video URLs, preferring the
// SignAll API and falling back to a prerecorded table.
package signlang

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/snarg/signbridge/internal/metrics"
)

const DefaultLanguage = "ASL"

const (
	SourceRemote      = "remote"
	SourcePrerecorded = "prerecorded"
)

// Result is the outcome of a text-to-sign lookup. Source is always set.
type Result struct {
	VideoURL string `json:"video_url"`
	Text     string `json:"text"`
	Language string `json:"language"`
	Source   string `json:"source"`
}

type remoteRequest struct {
	Text     string `json:"text"`
	Language string `json:"language"`
	Format   string `json:"format"`
}

type remoteResponse struct {
	VideoURL string `json:"video_url"`
}

// Client calls the SignAll text-to-sign API.
type Client struct {
	apiKey    string
	apiURL    string
	client    *http.Client
	log       zerolog.Logger
	closeOnce sync.Once
}

// NewClient creates a sign lookup client. With an empty apiKey every lookup
// is served from the prerecorded table without touching the network.
func NewClient(apiKey, apiURL string, timeout time.Duration, log zerolog.Logger) *Client {
	return &Client{
		apiKey: apiKey,
		apiURL: strings.TrimRight(apiURL, "/"),
		client: &http.Client{
			Timeout:   timeout,
			Transport: http.DefaultTransport.(*http.Transport).Clone(),
		},
		log: log,
	}
}

// RemoteEnabled reports whether a credential is configured.
func (c *Client) RemoteEnabled() bool { return c.apiKey != "" }

// TextToSign returns a video reference for text. It never fails: remote
// errors are logged and answered from the prerecorded table.
func (c *Client) TextToSign(ctx context.Context, text, language string) Result {
	if language == "" {
		language = DefaultLanguage
	}

	if !c.RemoteEnabled() {
		return c.fallback(text, language)
	}

	start := time.Now()
	url, err := c.remote(ctx, text, language)
	metrics.ObserveUpstream("signall", start, err)
	if err != nil {
		c.log.Warn().Err(err).Str("language", language).Msg("signall lookup failed, using prerecorded sign")
		return c.fallback(text, language)
	}

	metrics.SignLookupsTotal.WithLabelValues(SourceRemote).Inc()
	return Result{
		VideoURL: url,
		Text:     text,
		Language: language,
		Source:   SourceRemote,
	}
}

func (c *Client) fallback(text, language string) Result {
	metrics.SignLookupsTotal.WithLabelValues(SourcePrerecorded).Inc()
	return Prerecorded(text, language)
}

func (c *Client) remote(ctx context.Context, text, language string) (string, error) {
	payload, err := json.Marshal(remoteRequest{Text: text, Language: language, Format: "mp4"})
	if err != nil {
		return "", fmt.Errorf("encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiURL+"/v1/text-to-sign", bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("signall request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("signall API error (status %d): %s", resp.StatusCode, string(body))
	}

	var out remoteResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	if out.VideoURL == "" {
		return "", fmt.Errorf("signall response has no video_url")
	}
	return out.VideoURL, nil
}

// Close releases idle connections. Safe to call more than once.
func (c *Client) Close() {
	c.closeOnce.Do(c.client.CloseIdleConnections)
}
