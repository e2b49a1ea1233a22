package geminiservice

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	_ "github.com/joho/godotenv/autoload"
	"github.com/rs/zerolog"
)

// --- Gemini API Configuration ---
const (
	defaultBaseURL = "https://generativelanguage.googleapis.com/v1beta"
	defaultModel   = "gemini-1.5-flash"
	requestTimeout = 30 * time.Second
	apiKeyHeader   = "x-goog-api-key"
)

// ErrMissingAPIKey is returned by GenerateText when no API key was configured.
var ErrMissingAPIKey = errors.New("GOOGLE_API_KEY is not set")

// --- Structs for Gemini API Request/Response ---

type GeminiPayload struct {
	Contents []GeminiContent `json:"contents"`
}

type GeminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []GeminiPart `json:"parts"`
}

type GeminiPart struct {
	Text string `json:"text,omitempty"`
}

type GeminiResponse struct {
	Candidates []struct {
		Content GeminiContent `json:"content"`
	} `json:"candidates"`
}

type geminiErrorResponse struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error"`
}

// TextGenerator is anything that turns a prompt into generated text.
type TextGenerator interface {
	GenerateText(ctx context.Context, logger *zerolog.Logger, prompt string) (string, error)
}

// Client calls the generateContent endpoint of a single hosted model.
type Client struct {
	apiKey     string
	baseURL    string
	model      string
	httpClient *http.Client
}

// NewClient builds a Client from the environment (.env is loaded automatically).
// A missing key is not fatal here: the page still renders and every generation
// attempt reports the problem in place of a result.
func NewClient() *Client {
	apiKey := strings.TrimSpace(os.Getenv("GOOGLE_API_KEY"))
	if apiKey == "" {
		apiKey = strings.TrimSpace(os.Getenv("GEMINI_API_KEY"))
	}

	return NewClientWithConfig(apiKey, os.Getenv("GEMINI_MODEL"), os.Getenv("GEMINI_BASE_URL"))
}

// NewClientWithConfig builds a Client from explicit values. Empty model and
// baseURL fall back to the defaults.
func NewClientWithConfig(apiKey, model, baseURL string) *Client {
	model = strings.TrimPrefix(strings.TrimSpace(model), "models/")
	if model == "" {
		model = defaultModel
	}
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}

	return &Client{
		apiKey:     apiKey,
		baseURL:    baseURL,
		model:      model,
		httpClient: &http.Client{Timeout: requestTimeout},
	}
}

// Model returns the name of the model this client talks to.
func (c *Client) Model() string {
	return c.model
}

// Configured reports whether an API key is present.
func (c *Client) Configured() bool {
	return c.apiKey != ""
}

// GenerateText sends one prompt and returns the text of the first candidate.
// There is exactly one attempt per call.
func (c *Client) GenerateText(ctx context.Context, logger *zerolog.Logger, prompt string) (string, error) {
	if c.apiKey == "" {
		logger.Error().Msg("GOOGLE_API_KEY environment variable is not set")
		return "", ErrMissingAPIKey
	}

	payload := GeminiPayload{
		Contents: []GeminiContent{
			{Role: "user", Parts: []GeminiPart{{Text: prompt}}},
		},
	}

	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("failed to marshal payload: %w", err)
	}

	// The key travels in a header so it never appears in URL-bearing errors.
	endpoint := fmt.Sprintf("%s/models/%s:generateContent", c.baseURL, c.model)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payloadBytes))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(apiKeyHeader, c.apiKey)

	logger.Info().Str("model", c.model).Int("prompt_chars", len(prompt)).Msg("Calling Gemini API")
	started := time.Now()

	resp, err := c.httpClient.Do(req)
	if err != nil {
		// Report the cause only; the URL adds nothing the visitor needs.
		var urlErr *url.Error
		if errors.As(err, &urlErr) {
			err = urlErr.Err
		}
		logger.Warn().Err(err).Msg("Gemini request failed")
		return "", fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(resp.Body)
		var apiErr geminiErrorResponse
		if json.Unmarshal(body, &apiErr) == nil && apiErr.Error.Message != "" {
			err = fmt.Errorf("gemini api error (%s): %s", resp.Status, apiErr.Error.Message)
		} else {
			err = fmt.Errorf("gemini api returned %s", resp.Status)
		}
		logger.Warn().Err(err).Int("status", resp.StatusCode).Msg("Gemini returned non-2xx status")
		return "", err
	}

	var geminiResp GeminiResponse
	if err := json.NewDecoder(resp.Body).Decode(&geminiResp); err != nil {
		return "", fmt.Errorf("failed to decode response: %w", err)
	}

	if len(geminiResp.Candidates) == 0 || len(geminiResp.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("no content found in Gemini response")
	}

	var text strings.Builder
	for _, part := range geminiResp.Candidates[0].Content.Parts {
		text.WriteString(part.Text)
	}

	logger.Info().Dur("elapsed", time.Since(started)).Int("response_chars", text.Len()).Msg("Gemini response received")
	return text.String(), nil
}

// ModelResponse is what the page shows for one generation: either the model's
// text or an "Error: ..." message.
type ModelResponse struct {
	Text   string
	Failed bool
}

// Respond is the single call site between the page and the model: any failure
// is turned into a plain "Error: ..." message shown in place of a result.
func Respond(ctx context.Context, logger *zerolog.Logger, gen TextGenerator, prompt string) ModelResponse {
	text, err := gen.GenerateText(ctx, logger, prompt)
	if err != nil {
		return ModelResponse{Text: fmt.Sprintf("Error: %s", err.Error()), Failed: true}
	}
	return ModelResponse{Text: text}
}

// Health reports the configured model without calling it.
func (c *Client) Health() map[string]string {
	stats := map[string]string{
		"model":    c.model,
		"base_url": c.baseURL,
		"status":   "configured",
	}
	if !c.Configured() {
		stats["status"] = "missing_api_key"
		stats["message"] = "Set GOOGLE_API_KEY to enable generation."
	}
	return stats
}
