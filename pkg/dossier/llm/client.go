package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

// Endpoint is one configured completion API target.
type Endpoint struct {
	BaseURL string
	APIKey  string
	Model   string
}

// Client sends chat completions to a prioritized list of endpoints.
// Endpoints are tried in order, once each; a failing endpoint is skipped
// rather than retried. The backoff between attempts only exists to avoid
// hammering a flaky network path, not to retry the same endpoint.
type Client struct {
	endpoints   []Endpoint
	temperature float64
	backoff     time.Duration
	httpClient  *http.Client
	logger      *slog.Logger
}

// NewClient creates a failover client over the given endpoints, primary
// first. Duplicate endpoint configurations are dropped.
func NewClient(endpoints []Endpoint, temperature float64, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}

	seen := make(map[Endpoint]struct{}, len(endpoints))
	deduped := make([]Endpoint, 0, len(endpoints))
	for _, ep := range endpoints {
		ep.BaseURL = strings.TrimRight(ep.BaseURL, "/")
		if _, ok := seen[ep]; ok {
			continue
		}
		seen[ep] = struct{}{}
		deduped = append(deduped, ep)
	}

	return &Client{
		endpoints:   deduped,
		temperature: temperature,
		backoff:     time.Second,
		httpClient:  &http.Client{},
		logger:      logger.With("component", "llm"),
	}
}

// ---------- Wire Types (OpenAI-compatible) ----------

type chatRequest struct {
	Model       string    `json:"model"`
	Temperature float64   `json:"temperature"`
	Messages    []Message `json:"messages"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// Complete sends the messages to each endpoint in order and returns the
// first successful reply. timeout bounds each endpoint attempt
// separately; it is not a deadline for the whole sequence. When every
// endpoint fails, the returned error is an *ExhaustedError.
func (c *Client) Complete(ctx context.Context, messages []Message, timeout time.Duration) (string, error) {
	var attempts []Attempt

	for i, ep := range c.endpoints {
		reply, failure := c.tryEndpoint(ctx, ep, messages, timeout)
		if failure == nil {
			c.logger.Debug("completion succeeded",
				"endpoint", ep.BaseURL,
				"model", ep.Model,
				"attempt", i+1,
			)
			return reply, nil
		}

		attempts = append(attempts, Attempt{URL: ep.BaseURL, Err: failure})

		var statusErr *StatusError
		if errors.As(failure, &statusErr) {
			c.logger.Warn("endpoint returned error status",
				"endpoint", ep.BaseURL,
				"status", statusErr.Status,
				"body", statusErr.Body,
			)
			continue
		}

		c.logger.Warn("endpoint attempt failed", "endpoint", ep.BaseURL, "error", failure)
		if i < len(c.endpoints)-1 {
			sleepCtx(ctx, c.backoff)
		}
	}

	return "", &ExhaustedError{Attempts: attempts}
}

// tryEndpoint issues a single completion request against one endpoint
// and classifies the outcome into the API error taxonomy.
func (c *Client) tryEndpoint(ctx context.Context, ep Endpoint, messages []Message, timeout time.Duration) (string, error) {
	payload, err := json.Marshal(chatRequest{
		Model:       ep.Model,
		Temperature: c.temperature,
		Messages:    messages,
	})
	if err != nil {
		return "", &UnknownError{URL: ep.BaseURL, Err: fmt.Errorf("marshaling request: %w", err)}
	}

	attemptCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(attemptCtx, http.MethodPost,
		ep.BaseURL+"/v1/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return "", &UnknownError{URL: ep.BaseURL, Err: fmt.Errorf("creating request: %w", err)}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+ep.APIKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", &NetworkError{URL: ep.BaseURL, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", &NetworkError{URL: ep.BaseURL, Err: fmt.Errorf("reading response: %w", err)}
	}

	if resp.StatusCode != http.StatusOK {
		return "", &StatusError{
			URL:    ep.BaseURL,
			Status: resp.StatusCode,
			Body:   excerpt(string(body), 200),
		}
	}

	var parsed chatResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", &UnknownError{URL: ep.BaseURL, Err: fmt.Errorf("parsing response: %w", err)}
	}
	if len(parsed.Choices) == 0 {
		return "", &UnknownError{URL: ep.BaseURL, Err: errors.New("response contained no choices")}
	}

	return parsed.Choices[0].Message.Content, nil
}

// sleepCtx sleeps for d or until ctx is done, whichever comes first.
func sleepCtx(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
	case <-ctx.Done():
	}
}

func excerpt(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max]
}
