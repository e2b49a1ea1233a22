package geminiservice

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClientWithConfig("test-key", "gemini-test", srv.URL)
}

func TestGenerateTextSuccess(t *testing.T) {
	logger := zerolog.Nop()
	var gotPath, gotKey string
	var gotPayload GeminiPayload

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotKey = r.Header.Get("x-goog-api-key")
		assert.Empty(t, r.URL.RawQuery)
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&gotPayload))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"candidates":[{"content":{"role":"model","parts":[{"text":"Drink "},{"text":"water."}]}}]}`))
	})

	text, err := client.GenerateText(context.Background(), &logger, "stay healthy")
	require.NoError(t, err)

	assert.Equal(t, "Drink water.", text)
	assert.Equal(t, "/models/gemini-test:generateContent", gotPath)
	assert.Equal(t, "test-key", gotKey)
	require.Len(t, gotPayload.Contents, 1)
	assert.Equal(t, "user", gotPayload.Contents[0].Role)
	assert.Equal(t, "stay healthy", gotPayload.Contents[0].Parts[0].Text)
}

func TestGenerateTextAPIError(t *testing.T) {
	logger := zerolog.Nop()
	calls := 0
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":{"code":429,"message":"Resource has been exhausted","status":"RESOURCE_EXHAUSTED"}}`))
	})

	_, err := client.GenerateText(context.Background(), &logger, "prompt")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Resource has been exhausted")
	assert.Equal(t, 1, calls, "failures are not retried")
}

func TestGenerateTextNonJSONError(t *testing.T) {
	logger := zerolog.Nop()
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad gateway", http.StatusBadGateway)
	})

	_, err := client.GenerateText(context.Background(), &logger, "prompt")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "502")
}

func TestGenerateTextEmptyCandidates(t *testing.T) {
	logger := zerolog.Nop()
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"candidates":[]}`))
	})

	_, err := client.GenerateText(context.Background(), &logger, "prompt")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no content")
}

func TestGenerateTextMissingKey(t *testing.T) {
	logger := zerolog.Nop()
	client := NewClientWithConfig("", "", "")

	_, err := client.GenerateText(context.Background(), &logger, "prompt")
	assert.ErrorIs(t, err, ErrMissingAPIKey)
	assert.False(t, client.Configured())
	assert.Equal(t, "missing_api_key", client.Health()["status"])
}

func TestNewClientWithConfigDefaults(t *testing.T) {
	client := NewClientWithConfig("k", "models/gemini-2.0-flash", "https://example.test/v1beta/")
	assert.Equal(t, "gemini-2.0-flash", client.Model())
	assert.Equal(t, "https://example.test/v1beta", client.baseURL)

	client = NewClientWithConfig("k", " ", "")
	assert.Equal(t, defaultModel, client.Model())
	assert.Equal(t, defaultBaseURL, client.baseURL)
	assert.Equal(t, "configured", client.Health()["status"])
}

func TestNewClientReadsEnvironment(t *testing.T) {
	t.Setenv("GOOGLE_API_KEY", "")
	t.Setenv("GEMINI_API_KEY", "fallback-key")
	t.Setenv("GEMINI_MODEL", "gemini-env")
	t.Setenv("GEMINI_BASE_URL", "http://localhost:9999")

	client := NewClient()
	assert.Equal(t, "fallback-key", client.apiKey)
	assert.Equal(t, "gemini-env", client.Model())
	assert.Equal(t, "http://localhost:9999", client.baseURL)
}

type stubGenerator struct {
	text string
	err  error
}

func (s stubGenerator) GenerateText(context.Context, *zerolog.Logger, string) (string, error) {
	return s.text, s.err
}

func TestRespond(t *testing.T) {
	logger := zerolog.Nop()

	ok := Respond(context.Background(), &logger, stubGenerator{text: "mock text"}, "p")
	assert.Equal(t, ModelResponse{Text: "mock text"}, ok)

	failed := Respond(context.Background(), &logger, stubGenerator{err: errors.New("quota exceeded")}, "p")
	assert.True(t, failed.Failed)
	assert.True(t, strings.HasPrefix(failed.Text, "Error:"))
	assert.Equal(t, "Error: quota exceeded", failed.Text)
}

func TestTransportFailureDoesNotExposeKey(t *testing.T) {
	logger := zerolog.Nop()

	srv := httptest.NewServer(http.NotFoundHandler())
	unreachable := srv.URL
	srv.Close()

	client := NewClientWithConfig("SECRET-KEY-123", "", unreachable)
	resp := Respond(context.Background(), &logger, client, "prompt")

	assert.True(t, resp.Failed)
	assert.True(t, strings.HasPrefix(resp.Text, "Error: request failed:"))
	assert.NotContains(t, resp.Text, "SECRET-KEY-123")
	assert.NotContains(t, resp.Text, unreachable)
}

func TestTimeoutDoesNotExposeKey(t *testing.T) {
	logger := zerolog.Nop()
	release := make(chan struct{})
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		<-release
	})
	t.Cleanup(func() { close(release) })
	client.httpClient.Timeout = 50 * time.Millisecond

	resp := Respond(context.Background(), &logger, client, "prompt")

	assert.True(t, resp.Failed)
	assert.NotContains(t, resp.Text, "test-key")
	assert.NotContains(t, resp.Text, "generateContent")
}
