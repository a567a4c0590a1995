package transcribe

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"sync"
	"time"
)

const defaultElevenLabsEndpoint = "https://api.elevenlabs.io/v1/speech-to-text"

// ElevenLabsProvider calls the ElevenLabs Speech-to-Text API.
// Implements the Provider interface.
type ElevenLabsProvider struct {
	apiKey    string
	endpoint  string
	model     string // "scribe_v1" or "scribe_v2"
	client    *http.Client
	closeOnce sync.Once
}

// elevenlabsResponse is the JSON response from the ElevenLabs STT API.
type elevenlabsResponse struct {
	LanguageCode        string  `json:"language_code"`
	LanguageProbability float64 `json:"language_probability"`
	Text                string  `json:"text"`
}

// NewElevenLabsProvider creates a new ElevenLabs STT client. endpoint may be
// empty to use the public API.
func NewElevenLabsProvider(apiKey, endpoint, model string, timeout time.Duration) (*ElevenLabsProvider, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("ELEVENLABS_API_KEY is not set")
	}
	if endpoint == "" {
		endpoint = defaultElevenLabsEndpoint
	}
	return &ElevenLabsProvider{
		apiKey:   apiKey,
		endpoint: endpoint,
		model:    model,
		client:   newHTTPClient(timeout),
	}, nil
}

// Name returns the provider name.
func (el *ElevenLabsProvider) Name() string { return "elevenlabs" }

// Model returns the configured model identifier.
func (el *ElevenLabsProvider) Model() string { return el.model }

// Transcribe uploads the audio as multipart/form-data and returns the result.
func (el *ElevenLabsProvider) Transcribe(ctx context.Context, data []byte, filename string, opts Options) (*Response, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	part, err := w.CreateFormFile("file", filepath.Base(filename))
	if err != nil {
		return nil, fmt.Errorf("create form file: %w", err)
	}
	if _, err := part.Write(data); err != nil {
		return nil, fmt.Errorf("copy audio data: %w", err)
	}

	w.WriteField("model_id", el.model)

	// Omitted language lets ElevenLabs auto-detect.
	if opts.Language != "" {
		w.WriteField("language_code", opts.Language)
	}

	w.Close()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, el.endpoint, &buf)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", w.FormDataContentType())
	req.Header.Set("xi-api-key", el.apiKey)

	resp, err := el.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("elevenlabs request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("elevenlabs API error (status %d): %s", resp.StatusCode, string(body))
	}

	var result elevenlabsResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	return &Response{
		Text:     result.Text,
		Language: result.LanguageCode,
	}, nil
}

// Close releases idle upstream connections. Safe to call more than once.
func (el *ElevenLabsProvider) Close() {
	el.closeOnce.Do(el.client.CloseIdleConnections)
}
