package router

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	openai "github.com/sashabaranov/go-openai"
)

const (
	// OpenRouterBaseURL is the default API endpoint; any OpenAI-compatible
	// base URL can be configured instead.
	OpenRouterBaseURL = "https://openrouter.ai/api/v1"

	retryWaitDefault = 100 * time.Millisecond
)

// Config describes how to reach the model provider.
type Config struct {
	// Model in provider/model format, e.g. "google/gemma-3-27b-it".
	Model string
	// ContextSize is the model's context window in tokens.
	ContextSize int
	// Keys holds one or more API keys. On retryable failures the client
	// cycles through them in order, wrapping after the last.
	Keys []string
	// APIBase overrides OpenRouterBaseURL when non-empty.
	APIBase string
	// SiteURL and SiteName are optional OpenRouter attribution headers
	// (HTTP-Referer and X-Title). Empty values are not sent.
	SiteURL  string
	SiteName string
	// KeyStartIndex selects the first key to use, modulo len(Keys).
	KeyStartIndex int
}

type headerTransport struct {
	Transport http.RoundTripper
	SiteURL   string
	SiteName  string
}

func (t *headerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	base := t.Transport
	if base == nil {
		base = http.DefaultTransport
	}

	if t.SiteURL != "" {
		req.Header.Set("HTTP-Referer", t.SiteURL)
	}
	if t.SiteName != "" {
		req.Header.Set("X-Title", t.SiteName)
	}

	return base.RoundTrip(req)
}

// Client wraps one go-openai client per configured key and rotates between
// them when requests fail with retryable errors.
type Client struct {
	cfg     Config
	clients []*openai.Client

	mu  sync.Mutex
	cur int

	retryWait time.Duration
}

// NewClient validates cfg and builds the per-key clients. All of them share
// one HTTP client so the attribution headers ride on every request.
func NewClient(cfg Config) (*Client, error) {
	if cfg.Model == "" {
		return nil, fmt.Errorf("model is required")
	}
	if len(cfg.Keys) == 0 {
		return nil, fmt.Errorf("at least one API key is required")
	}

	baseURL := cfg.APIBase
	if baseURL == "" {
		baseURL = OpenRouterBaseURL
	}

	httpClient := &http.Client{
		Transport: &headerTransport{
			Transport: http.DefaultTransport,
			SiteURL:   cfg.SiteURL,
			SiteName:  cfg.SiteName,
		},
	}

	clients := make([]*openai.Client, 0, len(cfg.Keys))
	for _, key := range cfg.Keys {
		clientConfig := openai.DefaultConfig(key)
		clientConfig.BaseURL = baseURL
		clientConfig.HTTPClient = httpClient
		clients = append(clients, openai.NewClientWithConfig(clientConfig))
	}

	start := cfg.KeyStartIndex % len(cfg.Keys)
	if start < 0 {
		start += len(cfg.Keys)
	}

	log.Info().
		Str("model", cfg.Model).
		Str("baseURL", baseURL).
		Int("keys", len(cfg.Keys)).
		Msg("OpenRouter client created")

	return &Client{
		cfg:       cfg,
		clients:   clients,
		cur:       start,
		retryWait: retryWaitDefault,
	}, nil
}

// Model returns the configured model name.
func (c *Client) Model() string { return c.cfg.Model }

// ContextSize returns the configured context window in tokens.
func (c *Client) ContextSize() int { return c.cfg.ContextSize }

// CreateChatCompletion sends the request with the current key. A retryable
// failure advances to the next key and tries again; with N keys, N
// consecutive failures use every key exactly once before the final error is
// surfaced. Non-retryable errors propagate immediately.
func (c *Client) CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
	var lastErr error

	for attempt := 0; attempt < len(c.clients); attempt++ {
		c.mu.Lock()
		cur := c.cur
		c.mu.Unlock()

		resp, err := c.clients[cur].CreateChatCompletion(ctx, req)
		if err == nil {
			return resp, nil
		}
		lastErr = err

		if !shouldRetry(err) {
			return openai.ChatCompletionResponse{}, err
		}

		c.advanceKey(cur)
		log.Warn().Int("keyIndex", cur).Err(err).Msg("request failed, cycling to next API key")

		if attempt < len(c.clients)-1 {
			select {
			case <-ctx.Done():
				return openai.ChatCompletionResponse{}, ctx.Err()
			case <-time.After(c.retryWait):
			}
		}
	}

	return openai.ChatCompletionResponse{}, fmt.Errorf("all %d API keys exhausted: %w", len(c.clients), lastErr)
}

// advanceKey moves the cursor past the key that just failed. If a concurrent
// call already rotated away from it, the cursor is left alone.
func (c *Client) advanceKey(failed int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cur == failed {
		c.cur = (c.cur + 1) % len(c.clients)
	}
}

// shouldRetry decides whether cycling to another key could help. Client
// errors other than rate limit (429), capacity (413), and auth (401/403) are
// not retryable; neither is a cancelled or expired caller context.
func shouldRetry(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	statusCode := 0
	var apiErr *openai.APIError
	var reqErr *openai.RequestError
	switch {
	case errors.As(err, &apiErr):
		statusCode = apiErr.HTTPStatusCode
	case errors.As(err, &reqErr):
		statusCode = reqErr.HTTPStatusCode
	default:
		// Transport-level failure, worth trying the next key.
		return true
	}

	if statusCode >= 400 &&
		statusCode < 500 &&
		statusCode != http.StatusTooManyRequests &&
		statusCode != http.StatusRequestEntityTooLarge &&
		statusCode != http.StatusUnauthorized &&
		statusCode != http.StatusForbidden {
		return false
	}

	return true
}
