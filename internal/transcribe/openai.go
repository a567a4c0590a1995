package transcribe

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	openai "github.com/sashabaranov/go-openai"
)

// OpenAIProvider calls the OpenAI (or an OpenAI-compatible) Whisper API.
// Implements Provider and Translator.
type OpenAIProvider struct {
	client     *openai.Client
	httpClient *http.Client
	model      string
	closeOnce  sync.Once
}

// NewOpenAIProvider creates a Whisper client. baseURL may be empty to use the
// public OpenAI endpoint.
func NewOpenAIProvider(apiKey, baseURL, model string, timeout time.Duration) (*OpenAIProvider, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("OPENAI_API_KEY is not set")
	}
	if model == "" {
		model = openai.Whisper1
	}

	httpClient := newHTTPClient(timeout)
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	cfg.HTTPClient = httpClient

	return &OpenAIProvider{
		client:     openai.NewClientWithConfig(cfg),
		httpClient: httpClient,
		model:      model,
	}, nil
}

// Name returns the provider name.
func (p *OpenAIProvider) Name() string { return "openai" }

// Model returns the configured model identifier.
func (p *OpenAIProvider) Model() string { return p.model }

// Transcribe sends the audio to /audio/transcriptions with verbose_json so the
// detected language comes back with the text. The filename's extension tells
// the API which container format the bytes are in.
func (p *OpenAIProvider) Transcribe(ctx context.Context, data []byte, filename string, opts Options) (*Response, error) {
	resp, err := p.client.CreateTranscription(ctx, p.request(data, filename, opts))
	if err != nil {
		return nil, fmt.Errorf("whisper request: %w", err)
	}
	return &Response{
		Text:     resp.Text,
		Language: resp.Language,
		Duration: resp.Duration,
	}, nil
}

// Translate sends the audio to /audio/translations, which always yields English.
func (p *OpenAIProvider) Translate(ctx context.Context, data []byte, filename string, opts Options) (*Response, error) {
	opts.Language = ""
	resp, err := p.client.CreateTranslation(ctx, p.request(data, filename, opts))
	if err != nil {
		return nil, fmt.Errorf("whisper translation request: %w", err)
	}
	return &Response{
		Text:     resp.Text,
		Language: "en",
		Duration: resp.Duration,
	}, nil
}

func (p *OpenAIProvider) request(data []byte, filename string, opts Options) openai.AudioRequest {
	return openai.AudioRequest{
		Model:    p.model,
		FilePath: filename,
		Reader:   bytes.NewReader(data),
		Prompt:   opts.Prompt,
		Language: opts.Language,
		Format:   openai.AudioResponseFormatVerboseJSON,
	}
}

// Close releases idle upstream connections. Safe to call more than once.
func (p *OpenAIProvider) Close() {
	p.closeOnce.Do(p.httpClient.CloseIdleConnections)
}
