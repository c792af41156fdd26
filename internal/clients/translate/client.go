// Package translate calls a LibreTranslate-compatible HTTP endpoint.
package translate

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/leafmark/leafmark-backend/internal/platform/apierr"
	"github.com/leafmark/leafmark-backend/internal/platform/logger"
)

const defaultBaseURL = "https://lingva.ml"

type Request struct {
	Text           string `json:"text"`
	TargetLanguage string `json:"targetLanguage"`
	SourceLanguage string `json:"sourceLanguage,omitempty"`
}

// Payload is the wire shape LibreTranslate expects.
type Payload struct {
	Q      string `json:"q"`
	Source string `json:"source"`
	Target string `json:"target"`
	Format string `json:"format"`
}

type Response struct {
	TranslatedText string `json:"translatedText"`
}

type Client interface {
	Translate(ctx context.Context, req Request) (*Response, error)
}

type client struct {
	log     *logger.Logger
	baseURL string
	http    *http.Client
}

func NewClient(log *logger.Logger) Client {
	baseURL := strings.TrimSpace(os.Getenv("TRANSLATE_URL"))
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &client{
		log:     log.With("client", "translate"),
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 30 * time.Second},
	}
}

// BuildPayload validates the request and fills in defaults: plain-text
// format and source-language auto-detection.
func BuildPayload(req Request) (Payload, error) {
	if strings.TrimSpace(req.Text) == "" {
		return Payload{}, apierr.Validation("translation text must not be empty")
	}
	target := strings.TrimSpace(req.TargetLanguage)
	if target == "" {
		return Payload{}, apierr.Validation("targetLanguage is required")
	}
	source := strings.TrimSpace(req.SourceLanguage)
	if source == "" {
		source = "auto"
	}
	return Payload{
		Q:      req.Text,
		Source: source,
		Target: target,
		Format: "text",
	}, nil
}

func (c *client) Translate(ctx context.Context, req Request) (*Response, error) {
	payload, err := BuildPayload(req)
	if err != nil {
		return nil, err
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal translate payload: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build translate request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, apierr.Upstream("translate_failed", fmt.Errorf("translate request: %w", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		errText, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, apierr.Upstream("translate_failed",
			fmt.Errorf("translate request failed with status %d: %s", resp.StatusCode, strings.TrimSpace(string(errText))))
	}

	var out Response
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, apierr.Upstream("translate_failed", fmt.Errorf("decode translate response: %w", err))
	}
	if out.TranslatedText == "" {
		return nil, apierr.Upstream("translate_failed", fmt.Errorf("unexpected translate response shape"))
	}
	return &out, nil
}
