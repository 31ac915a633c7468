package suggest

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
)

// ErrRateLimited is returned when the upstream keeps answering 429 after
// all retries. Handlers translate it into a 429 of their own instead of
// falling back to heuristics.
var ErrRateLimited = errors.New("upstream rate limit exceeded")

// UpstreamError carries the status and (truncated) body of a failed
// upstream response for diagnostics.
type UpstreamError struct {
	Status int
	Body   string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("upstream returned status %d", e.Status)
}

// diagnosticBodyCap bounds how much upstream body is kept around.
const diagnosticBodyCap = 500

// Completer produces a raw model completion for a system/user prompt pair.
type Completer interface {
	Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

// SarvamConfig configures the Sarvam chat-completions client, including
// its retry schedule. Rate limits back off exponentially from
// RateLimitBase; other failures back off linearly.
type SarvamConfig struct {
	URL         string
	APIKey      string
	Model       string
	MaxTokens   int
	Temperature float64

	MaxRetries       int
	RateLimitBase    time.Duration
	ServerErrorStep  time.Duration
	NetworkErrorStep time.Duration
}

// SarvamClient is a Completer backed by the Sarvam AI chat-completions
// API.
type SarvamClient struct {
	cfg    SarvamConfig
	client *http.Client
}

func NewSarvamClient(cfg SarvamConfig, client *http.Client) *SarvamClient {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &SarvamClient{cfg: cfg, client: client}
}

type completionRequest struct {
	Messages    []completionMessage `json:"messages"`
	Model       string              `json:"model"`
	MaxTokens   int                 `json:"max_tokens"`
	Temperature float64             `json:"temperature"`
}

type completionMessage struct {
	Content string `json:"content"`
	Role    string `json:"role"`
}

type completionResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// Complete calls the upstream with bounded retries. 429 responses wait
// RateLimitBase*2^attempt before retrying and surface ErrRateLimited once
// the budget is spent. Other non-2xx responses retry on a linear
// ServerErrorStep schedule and surface an UpstreamError. Transport errors
// retry on a linear NetworkErrorStep schedule.
func (c *SarvamClient) Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	payload, err := json.Marshal(completionRequest{
		Messages: []completionMessage{
			{Content: systemPrompt, Role: "system"},
			{Content: userPrompt, Role: "user"},
		},
		Model:       c.cfg.Model,
		MaxTokens:   c.cfg.MaxTokens,
		Temperature: c.cfg.Temperature,
	})
	if err != nil {
		return "", fmt.Errorf("marshaling completion request: %w", err)
	}

	var lastErr error
	for attempt := 0; attempt <= c.cfg.MaxRetries; {
		slog.Debug("Calling suggestion upstream", "attempt", attempt+1, "max_attempts", c.cfg.MaxRetries+1)
		resp, err := c.post(ctx, payload)
		if err != nil {
			if attempt == c.cfg.MaxRetries {
				return "", fmt.Errorf("calling suggestion upstream: %w", err)
			}
			attempt++
			if err := sleepWithContext(ctx, time.Duration(attempt)*c.cfg.NetworkErrorStep); err != nil {
				return "", err
			}
			continue
		}

		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			content, err := decodeCompletion(resp)
			if err != nil {
				return "", err
			}
			return content, nil
		}

		body, _ := io.ReadAll(io.LimitReader(resp.Body, diagnosticBodyCap))
		resp.Body.Close()

		if resp.StatusCode == http.StatusTooManyRequests {
			if attempt == c.cfg.MaxRetries {
				return "", fmt.Errorf("%w after %d attempts", ErrRateLimited, attempt+1)
			}
			wait := c.cfg.RateLimitBase * (1 << attempt)
			attempt++
			if err := sleepWithContext(ctx, wait); err != nil {
				return "", err
			}
			continue
		}

		lastErr = &UpstreamError{Status: resp.StatusCode, Body: string(body)}
		slog.Warn("Suggestion upstream error", "status", resp.StatusCode, "attempt", attempt+1)
		if attempt == c.cfg.MaxRetries {
			return "", lastErr
		}
		attempt++
		if err := sleepWithContext(ctx, time.Duration(attempt)*c.cfg.ServerErrorStep); err != nil {
			return "", err
		}
	}
	return "", lastErr
}

func (c *SarvamClient) post(ctx context.Context, payload []byte) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.URL, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("api-subscription-key", c.cfg.APIKey)
	req.Header.Set("Content-Type", "application/json")
	return c.client.Do(req)
}

func decodeCompletion(resp *http.Response) (string, error) {
	defer resp.Body.Close()
	var out completionResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decoding completion response: %w", err)
	}
	if len(out.Choices) == 0 {
		return "", nil
	}
	return out.Choices[0].Message.Content, nil
}

func sleepWithContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
