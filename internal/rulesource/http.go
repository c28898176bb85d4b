package rulesource

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/angeloszaimis/circuit-gate/internal/rule"
)

const (
	maxPayloadBytes    = 1 << 20
	defaultHTTPTimeout = 10 * time.Second
)

// HTTP fetches a JSON rule list with a GET request.
type HTTP struct {
	url    string
	client *http.Client
}

type HTTPOption func(*HTTP)

func WithHTTPClient(c *http.Client) HTTPOption {
	return func(h *HTTP) { h.client = c }
}

func NewHTTP(url string, opts ...HTTPOption) *HTTP {
	h := &HTTP{
		url:    url,
		client: &http.Client{Timeout: defaultHTTPTimeout},
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

func (h *HTTP) ReadRules(ctx context.Context, _ string) ([]rule.Rule, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, h.url, nil)
	if err != nil {
		return nil, fmt.Errorf("build rules request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := h.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch rules from %s: %w", h.url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch rules from %s: %w %d", h.url, ErrUnexpectedStatus, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxPayloadBytes))
	if err != nil {
		return nil, fmt.Errorf("read rules from %s: %w", h.url, err)
	}

	rules, err := decodeJSON(body)
	if err != nil {
		return nil, fmt.Errorf("rules from %s: %w", h.url, err)
	}
	return rules, nil
}
