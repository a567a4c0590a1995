package signlang

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTextToSign_NoKeyNeverCallsRemote(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
	}))
	defer srv.Close()

	c := NewClient("", srv.URL, time.Second, zerolog.Nop())
	for _, text := range []string{"hello", "xyz123", ""} {
		res := c.TextToSign(context.Background(), text, "")
		assert.NotEmpty(t, res.VideoURL)
		assert.Equal(t, SourcePrerecorded, res.Source)
		assert.Equal(t, DefaultLanguage, res.Language)
	}
	assert.Equal(t, int32(0), hits.Load())
}

func TestTextToSign_Remote(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/text-to-sign", r.URL.Path)
		assert.Equal(t, "Bearer key-1", r.Header.Get("Authorization"))
		var req map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "Where is the hospital?", req["text"])
		assert.Equal(t, "BSL", req["language"])
		assert.Equal(t, "mp4", req["format"])
		w.Write([]byte(`{"video_url":"not even a url"}`))
	}))
	defer srv.Close()

	c := NewClient("key-1", srv.URL, time.Second, zerolog.Nop())
	res := c.TextToSign(context.Background(), "Where is the hospital?", "BSL")
	assert.Equal(t, Result{
		VideoURL: "not even a url",
		Text:     "Where is the hospital?",
		Language: "BSL",
		Source:   SourceRemote,
	}, res)
}

func TestTextToSign_RemoteFailuresFallBack(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{"status_500", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusInternalServerError) }},
		{"status_401", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusUnauthorized) }},
		{"bad_json", func(w http.ResponseWriter, r *http.Request) { w.Write([]byte("<html>")) }},
		{"empty_url", func(w http.ResponseWriter, r *http.Request) { w.Write([]byte(`{"video_url":""}`)) }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(tt.handler)
			defer srv.Close()

			res := NewClient("key", srv.URL, time.Second, zerolog.Nop()).TextToSign(context.Background(), "  Hello ", "ASL")
			assert.Equal(t, "https://cdn.example.com/signs/hello.mp4", res.VideoURL)
			assert.Equal(t, SourcePrerecorded, res.Source)
			assert.Equal(t, "  Hello ", res.Text)
		})
	}
}

func TestTextToSign_UnreachableFallsBack(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	res := NewClient("key", url, time.Second, zerolog.Nop()).TextToSign(context.Background(), "water", "ASL")
	assert.Equal(t, "https://cdn.example.com/signs/water.mp4", res.VideoURL)
	assert.Equal(t, SourcePrerecorded, res.Source)
}

func TestPrerecorded_Normalization(t *testing.T) {
	want := Prerecorded("hello", "ASL").VideoURL
	assert.Equal(t, "https://cdn.example.com/signs/hello.mp4", want)
	assert.Equal(t, want, Prerecorded("Hello", "ASL").VideoURL)
	assert.Equal(t, want, Prerecorded("  hello  ", "ASL").VideoURL)
	assert.Equal(t, want, Prerecorded("\tHELLO\n", "ASL").VideoURL)
	assert.Equal(t, "https://cdn.example.com/signs/thank_you.mp4", Prerecorded("Thank You", "ASL").VideoURL)
}

func TestPrerecorded_Default(t *testing.T) {
	res := Prerecorded("xyz123", "ASL")
	assert.Equal(t, DefaultVideoURL, res.VideoURL)
	assert.Equal(t, SourcePrerecorded, res.Source)
	assert.Equal(t, "xyz123", res.Text)
}

func TestClose_Idempotent(t *testing.T) {
	c := NewClient("", "http://localhost:1", time.Second, zerolog.Nop())
	c.Close()
	c.Close()
}
