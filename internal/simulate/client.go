package simulate

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/okian/artemis/internal/domain/catalog"
	"github.com/okian/artemis/internal/domain/model"
)

// Submission outcomes.
const (
	ResultAccepted  = "accepted"
	ResultDuplicate = "duplicate"
	ResultFailed    = "failed"
)

// ErrUnexpectedStatus is returned for responses outside the documented set.
var ErrUnexpectedStatus = errors.New("unexpected status")

// Client talks to the Artemis HTTP API.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient creates a client for baseURL with the given request timeout.
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
	}
}

type ackResponse struct {
	Status    string `json:"status"`
	Duplicate bool   `json:"duplicate"`
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Health checks that the service answers on /healthz.
func (c *Client) Health(ctx context.Context) error {
	resp, err := c.do(ctx, http.MethodGet, "/healthz", nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: %d", ErrUnexpectedStatus, resp.StatusCode)
	}
	return nil
}

// Submit posts one submission and reports whether it was accepted or a duplicate.
func (c *Client) Submit(ctx context.Context, sub model.Submission) (string, error) {
	resp, err := c.do(ctx, http.MethodPost, "/sessions", sub)
	if err != nil {
		return ResultFailed, err
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusAccepted:
		_, _ = io.Copy(io.Discard, resp.Body)
		return ResultAccepted, nil
	case http.StatusOK:
		var ack ackResponse
		if err := json.NewDecoder(resp.Body).Decode(&ack); err == nil && !ack.Duplicate {
			return ResultAccepted, nil
		}
		return ResultDuplicate, nil
	default:
		return ResultFailed, readError(resp)
	}
}

// Profile fetches the profile of userID.
func (c *Client) Profile(ctx context.Context, userID string) (*model.Profile, error) {
	var p model.Profile
	if err := c.getJSON(ctx, "/profiles/"+url.PathEscape(userID), &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// Classification fetches the band of userID's current IQ.
func (c *Client) Classification(ctx context.Context, userID string) (model.Classification, error) {
	var cl model.Classification
	err := c.getJSON(ctx, "/profiles/"+url.PathEscape(userID)+"/classification", &cl)
	return cl, err
}

// Skills fetches the server's skill catalog.
func (c *Client) Skills(ctx context.Context) ([]catalog.SkillCategory, error) {
	var body struct {
		Skills []catalog.SkillCategory `json:"skills"`
	}
	err := c.getJSON(ctx, "/skills", &body)
	return body.Skills, err
}

func (c *Client) getJSON(ctx context.Context, path string, v any) error {
	resp, err := c.do(ctx, http.MethodGet, path, nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return readError(resp)
	}
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}

func (c *Client) do(ctx context.Context, method, path string, body any) (*http.Response, error) {
	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request body: %w", err)
		}
		r = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, r)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, path, err)
	}
	return resp, nil
}

func readError(resp *http.Response) error {
	var e errorResponse
	if err := json.NewDecoder(resp.Body).Decode(&e); err == nil && e.Message != "" {
		return fmt.Errorf("%w: %d %s: %s", ErrUnexpectedStatus, resp.StatusCode, e.Code, e.Message)
	}
	return fmt.Errorf("%w: %d", ErrUnexpectedStatus, resp.StatusCode)
}
