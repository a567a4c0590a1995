package transcribe

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestElevenLabsProvider_Transcribe(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "xi-key", r.Header.Get("xi-api-key"))
		require.NoError(t, r.ParseMultipartForm(1<<20))
		assert.Equal(t, "scribe_v1", r.FormValue("model_id"))
		assert.Equal(t, "en", r.FormValue("language_code"))
		_, hdr, err := r.FormFile("file")
		require.NoError(t, err)
		assert.Equal(t, "note.ogg", hdr.Filename)
		w.Write([]byte(`{"language_code":"eng","language_probability":0.98,"text":"I need water"}`))
	}))
	defer srv.Close()

	p, err := NewElevenLabsProvider("xi-key", srv.URL, "scribe_v1", 5*time.Second)
	require.NoError(t, err)
	defer p.Close()

	resp, err := p.Transcribe(context.Background(), []byte("ogg"), "note.ogg", Options{Language: "en"})
	require.NoError(t, err)
	assert.Equal(t, "I need water", resp.Text)
	assert.Equal(t, "eng", resp.Language)
}

func TestElevenLabsProvider_StatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		w.Write([]byte(`{"detail":"bad audio"}`))
	}))
	defer srv.Close()

	p, err := NewElevenLabsProvider("xi-key", srv.URL, "scribe_v1", 5*time.Second)
	require.NoError(t, err)
	_, err = p.Transcribe(context.Background(), []byte("x"), "a.wav", Options{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 422")
	assert.Contains(t, err.Error(), "bad audio")
}

func TestNewElevenLabsProvider_RequiresKey(t *testing.T) {
	_, err := NewElevenLabsProvider("", "", "scribe_v1", time.Second)
	assert.Error(t, err)
}
