// Package llm is a small client for OpenAI-compatible chat-completion endpoints.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/okian/artemis/pkg/logger"
	"github.com/okian/artemis/pkg/metrics"
)

// Message is one chat turn.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Roles understood by chat endpoints.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Request holds the parameters for a completion call.
type Request struct {
	Task        string // metrics label, e.g. "estimate" or "tutor"
	Messages    []Message
	Temperature float64
	MaxTokens   int
}

// Response holds the result of a completion call.
type Response struct {
	Text      string
	Model     string
	LatencyMs int64
}

// Client provides access to a language model.
type Client interface {
	Complete(ctx context.Context, req Request) (*Response, error)
}

type chatClient struct {
	endpoint   string
	model      string
	apiKey     string
	timeout    time.Duration
	maxRetries int
	http       *http.Client
	log        logger.Logger
}

// NewClient creates a client for endpoint (a base URL such as
// https://api.openai.com/v1) and model.
func NewClient(endpoint, model string, opts ...Option) Client {
	c := &chatClient{
		endpoint:   strings.TrimRight(endpoint, "/"),
		model:      model,
		timeout:    8 * time.Second,
		maxRetries: 1,
		http: &http.Client{
			Transport: &http.Transport{
				DialContext: (&net.Dialer{Timeout: 5 * time.Second}).DialContext,
			},
		},
		log: logger.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type chatRequest struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	Temperature float64   `json:"temperature"`
	MaxTokens   int       `json:"max_tokens,omitempty"`
}

type chatResponse struct {
	Model   string `json:"model"`
	Choices []struct {
		Message Message `json:"message"`
	} `json:"choices"`
}

func (c *chatClient) Complete(ctx context.Context, req Request) (*Response, error) {
	start := time.Now()
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	body := chatRequest{
		Model:       c.model,
		Messages:    req.Messages,
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
	}

	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		resp, err := c.do(ctx, body)
		if err == nil {
			latency := time.Since(start).Milliseconds()
			metrics.RecordLLMLatency(req.Task, "ok", float64(latency))
			return &Response{Text: resp.text, Model: resp.model, LatencyMs: latency}, nil
		}
		lastErr = err
		if ctx.Err() != nil || errors.Is(err, ErrInvalidOutput) {
			break
		}
	}

	var out error
	switch {
	case ctx.Err() != nil:
		out = ErrTimeout
	case isConnectionError(lastErr):
		out = ErrUnavailable
	case errors.Is(lastErr, ErrInvalidOutput):
		out = lastErr
	default:
		out = fmt.Errorf("%w: %v", ErrRetryExhausted, lastErr)
	}
	metrics.RecordLLMLatency(req.Task, outcome(out), float64(time.Since(start).Milliseconds()))
	c.log.Warn(ctx, "llm call failed",
		logger.String("task", req.Task),
		logger.String("model", c.model),
		logger.Error(lastErr),
	)
	return nil, out
}

type completion struct {
	text  string
	model string
}

func (c *chatClient) do(ctx context.Context, body chatRequest) (*completion, error) {
	data, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshaling request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint+"/chat/completions", bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	httpResp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer httpResp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(httpResp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}
	if httpResp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("llm endpoint returned status %d: %s", httpResp.StatusCode, string(respBody))
	}

	var resp chatResponse
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return nil, fmt.Errorf("%w: decoding response: %v", ErrInvalidOutput, err)
	}
	if len(resp.Choices) == 0 || strings.TrimSpace(resp.Choices[0].Message.Content) == "" {
		return nil, fmt.Errorf("%w: empty completion", ErrInvalidOutput)
	}
	return &completion{text: resp.Choices[0].Message.Content, model: resp.Model}, nil
}

func isConnectionError(err error) bool {
	var opErr *net.OpError
	return errors.As(err, &opErr)
}

func outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrTimeout):
		return "timeout"
	case errors.Is(err, ErrUnavailable):
		return "unavailable"
	case errors.Is(err, ErrInvalidOutput):
		return "invalid_output"
	default:
		return "error"
	}
}
