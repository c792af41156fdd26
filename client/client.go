// Package client is a Go consumer of the reading-progress API. It wraps the
// HTTP endpoints and keeps a per-document local state machine in sync with
// the server through the SSE stream.
package client

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/leafmark/leafmark-backend/internal/domain"
)

// APIError is a decoded server error envelope.
type APIError struct {
	Status  int    `json:"-"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s (%d): %s", e.Code, e.Status, e.Message)
}

type Client struct {
	baseURL string
	userID  string
	httpc   *http.Client
}

type Option func(*Client)

// WithHTTPClient overrides the transport, mainly for tests.
func WithHTTPClient(httpc *http.Client) Option {
	return func(c *Client) { c.httpc = httpc }
}

// WithUserID sets the X-User-Id header on every request. Without it the
// server resolves the demo user.
func WithUserID(userID string) Option {
	return func(c *Client) { c.userID = userID }
}

func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpc:   &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// FindProgress returns nil, nil when no record exists for the document.
func (c *Client) FindProgress(ctx context.Context, documentID string) (*domain.ReadingProgress, error) {
	q := url.Values{"documentId": {documentID}}
	req, err := c.newRequest(ctx, http.MethodGet, "/api/progress?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.httpc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("find progress: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, decodeError(resp)
	}
	var progress *domain.ReadingProgress
	if err := json.NewDecoder(resp.Body).Decode(&progress); err != nil {
		return nil, fmt.Errorf("find progress: decode: %w", err)
	}
	return progress, nil
}

// CommitProgress upserts the document's progress and returns the persisted
// record, page already clamped by the server.
func (c *Client) CommitProgress(ctx context.Context, documentID string, page, totalPages int) (*domain.ReadingProgress, error) {
	body, err := json.Marshal(map[string]interface{}{
		"documentId": documentID,
		"page":       page,
		"totalPages": totalPages,
	})
	if err != nil {
		return nil, err
	}
	req, err := c.newRequest(ctx, http.MethodPost, "/api/progress", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.httpc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("commit progress: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, decodeError(resp)
	}
	var progress domain.ReadingProgress
	if err := json.NewDecoder(resp.Body).Decode(&progress); err != nil {
		return nil, fmt.Errorf("commit progress: decode: %w", err)
	}
	return &progress, nil
}

func (c *Client) newRequest(ctx context.Context, method, path string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, err
	}
	if c.userID != "" {
		req.Header.Set("X-User-Id", c.userID)
	}
	return req, nil
}

func decodeError(resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	var envelope struct {
		Error APIError `json:"error"`
	}
	if err := json.Unmarshal(raw, &envelope); err == nil && envelope.Error.Message != "" {
		apiErr := envelope.Error
		apiErr.Status = resp.StatusCode
		return &apiErr
	}
	return &APIError{
		Status:  resp.StatusCode,
		Code:    "upstream_error",
		Message: strings.TrimSpace(string(raw)),
	}
}

// Stream is a live progress subscription carried over SSE.
type Stream struct {
	events chan domain.ReadingProgress
	cancel context.CancelFunc

	mu        sync.Mutex
	err       error
	closeOnce sync.Once
}

func (s *Stream) Events() <-chan domain.ReadingProgress { return s.events }

// Err reports why the stream ended. Nil after a local Close.
func (s *Stream) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

func (s *Stream) Close() {
	s.closeOnce.Do(s.cancel)
}

// StreamProgress opens the SSE endpoint for the document. The returned
// stream ends when ctx is cancelled, Close is called, or the connection
// drops.
func (c *Client) StreamProgress(ctx context.Context, documentID string) (*Stream, error) {
	streamCtx, cancel := context.WithCancel(ctx)

	q := url.Values{"documentId": {documentID}}
	req, err := c.newRequest(streamCtx, http.MethodGet, "/api/progress/stream?"+q.Encode(), nil)
	if err != nil {
		cancel()
		return nil, err
	}
	req.Header.Set("Accept", "text/event-stream")

	httpc := &http.Client{Transport: c.httpc.Transport} // no read timeout on a long-lived stream
	resp, err := httpc.Do(req)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("stream progress: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		err := decodeError(resp)
		resp.Body.Close()
		cancel()
		return nil, err
	}

	stream := &Stream{
		events: make(chan domain.ReadingProgress, 16),
		cancel: cancel,
	}
	go stream.read(streamCtx, resp.Body)
	return stream, nil
}

// read consumes data: frames until the body ends. Non-data lines and
// malformed payloads are skipped.
func (s *Stream) read(ctx context.Context, body io.ReadCloser) {
	defer body.Close()
	defer close(s.events)

	scanner := bufio.NewScanner(body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		if !strings.HasPrefix(line, "data:") {
			continue
		}
		payload := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
		if payload == "" {
			continue
		}
		var progress domain.ReadingProgress
		if err := json.Unmarshal([]byte(payload), &progress); err != nil {
			continue
		}
		select {
		case s.events <- progress:
		case <-ctx.Done():
			return
		}
	}
	if err := scanner.Err(); err != nil && ctx.Err() == nil {
		s.mu.Lock()
		s.err = err
		s.mu.Unlock()
	}
}
