// Package anthropic implements verifier.Verifier against the Anthropic
// Messages API.
package anthropic

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"nameguard/internal/verifier"
)

const (
	providerName     = "anthropic"
	DefaultBaseURL   = "https://api.anthropic.com"
	APIVersion       = "2023-06-01"
	DefaultMaxTokens = 1024
	// Error bodies are only read for diagnostics.
	maxErrorBody = 4 << 10
)

// Client sends one Messages API request per Verify call. It never retries.
type Client struct {
	baseURL    string
	apiKey     string
	model      string
	maxTokens  int
	httpClient *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL overrides the API endpoint.
func WithBaseURL(u string) Option {
	return func(c *Client) {
		if u != "" {
			c.baseURL = strings.TrimRight(u, "/")
		}
	}
}

// WithMaxTokens caps the reply length.
func WithMaxTokens(n int) Option {
	return func(c *Client) {
		if n > 0 {
			c.maxTokens = n
		}
	}
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithTimeout sets the per-request timeout on the default HTTP client.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.httpClient = &http.Client{Timeout: d}
		}
	}
}

// New creates a Messages API client for the given model.
func New(apiKey, model string, opts ...Option) *Client {
	c := &Client{
		baseURL:    DefaultBaseURL,
		apiKey:     apiKey,
		model:      model,
		maxTokens:  DefaultMaxTokens,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type messagesRequest struct {
	Model     string    `json:"model"`
	MaxTokens int       `json:"max_tokens"`
	Messages  []message `json:"messages"`
}

type contentBlock struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type messagesResponse struct {
	Content []contentBlock `json:"content"`
}

type errorResponse struct {
	Error struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

// Verify renders the request's prompt, posts it as a single user message and
// returns the text of the first text block in the reply.
func (c *Client) Verify(ctx context.Context, req verifier.Request) (string, error) {
	prompt, err := req.Render()
	if err != nil {
		return "", verifier.NewProviderError(verifier.ErrorInternal, providerName, "render prompt", err)
	}

	payload, err := json.Marshal(messagesRequest{
		Model:     c.model,
		MaxTokens: c.maxTokens,
		Messages:  []message{{Role: "user", Content: prompt}},
	})
	if err != nil {
		return "", verifier.NewProviderError(verifier.ErrorInternal, providerName, "encode request", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/messages", bytes.NewReader(payload))
	if err != nil {
		return "", verifier.NewProviderError(verifier.ErrorInternal, providerName, "build request", err)
	}
	httpReq.Header.Set("content-type", "application/json")
	httpReq.Header.Set("x-api-key", c.apiKey)
	httpReq.Header.Set("anthropic-version", APIVersion)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		if isTimeout(ctx, err) {
			return "", verifier.NewProviderError(verifier.ErrorTimeout, providerName, "request timed out", err)
		}
		return "", verifier.NewProviderError(verifier.ErrorProviderOutage, providerName, "request failed", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		if isTimeout(ctx, err) {
			return "", verifier.NewProviderError(verifier.ErrorTimeout, providerName, "reading response timed out", err)
		}
		return "", verifier.NewProviderError(verifier.ErrorProviderOutage, providerName, "read response", err)
	}

	return parseMessagesResponse(resp.StatusCode, body)
}

func parseMessagesResponse(status int, body []byte) (string, error) {
	if status != http.StatusOK {
		return "", statusError(status, body)
	}

	var resp messagesResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", verifier.NewProviderError(verifier.ErrorBadData, providerName, "decode response", err)
	}
	for _, block := range resp.Content {
		if block.Type == "text" {
			return block.Text, nil
		}
	}
	return "", verifier.NewProviderError(verifier.ErrorBadData, providerName, "response has no text content", nil)
}

func statusError(status int, body []byte) error {
	if len(body) > maxErrorBody {
		body = body[:maxErrorBody]
	}
	msg := fmt.Sprintf("unexpected status %d", status)
	var apiErr errorResponse
	if json.Unmarshal(body, &apiErr) == nil && apiErr.Error.Message != "" {
		msg = fmt.Sprintf("status %d: %s: %s", status, apiErr.Error.Type, apiErr.Error.Message)
	}

	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return verifier.NewProviderError(verifier.ErrorAuthentication, providerName, msg, nil)
	case status == http.StatusTooManyRequests:
		return verifier.NewProviderError(verifier.ErrorRateLimited, providerName, msg, nil)
	case status >= 500:
		return verifier.NewProviderError(verifier.ErrorProviderOutage, providerName, msg, nil)
	default:
		return verifier.NewProviderError(verifier.ErrorBadData, providerName, msg, nil)
	}
}

func isTimeout(ctx context.Context, err error) bool {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return true
	}
	var netErr interface{ Timeout() bool }
	return errors.As(err, &netErr) && netErr.Timeout()
}
