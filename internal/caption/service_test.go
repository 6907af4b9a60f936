package caption

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newBackend(t *testing.T, status int, body string) (*httptest.Server, *[]map[string]any) {
	t.Helper()
	var requests []map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.True(t, strings.HasSuffix(r.URL.Path, "/models/"+DefaultModel+":generateContent"), r.URL.Path)
		assert.Equal(t, "test-key", r.URL.Query().Get("key"))

		var req map[string]any
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		requests = append(requests, req)

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv, &requests
}

func TestGenerateCaption(t *testing.T) {
	srv, requests := newBackend(t, http.StatusOK,
		`{"candidates":[{"content":{"parts":[{"text":"  Love, laughter and cake!  "}]}}]}`)

	svc, err := NewService(context.Background(), &Config{APIKey: "test-key", Endpoint: srv.URL + "/"}, zerolog.Nop())
	require.NoError(t, err)
	require.True(t, svc.IsConfigured())

	got := svc.GenerateCaption(context.Background(), "aGVsbG8=")
	assert.Equal(t, "Love, laughter and cake!", got)

	require.Len(t, *requests, 1)
	raw, _ := json.Marshal((*requests)[0])
	assert.Contains(t, string(raw), "aGVsbG8=")
	assert.Contains(t, string(raw), "image/jpeg")
	assert.Contains(t, string(raw), "140 characters")
}

func TestGenerateCaptionFailsOpen(t *testing.T) {
	srv, _ := newBackend(t, http.StatusInternalServerError, `{"error":{"code":500,"message":"boom"}}`)

	svc, err := NewService(context.Background(), &Config{APIKey: "test-key", Endpoint: srv.URL + "/"}, zerolog.Nop())
	require.NoError(t, err)
	assert.Equal(t, FailureMessage, svc.GenerateCaption(context.Background(), "aGVsbG8="))
}

func TestGenerateCaptionEmptyResponse(t *testing.T) {
	srv, _ := newBackend(t, http.StatusOK, `{"candidates":[]}`)

	svc, err := NewService(context.Background(), &Config{APIKey: "test-key", Endpoint: srv.URL + "/"}, zerolog.Nop())
	require.NoError(t, err)
	assert.Equal(t, FailureMessage, svc.GenerateCaption(context.Background(), "aGVsbG8="))
}

func TestGenerateCaptionNotConfigured(t *testing.T) {
	svc, err := NewService(context.Background(), &Config{}, zerolog.Nop())
	require.NoError(t, err)
	assert.False(t, svc.IsConfigured())
	assert.Equal(t, NotConfiguredMessage, svc.GenerateCaption(context.Background(), "aGVsbG8="))
}
