package registry

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
)

// HTTPSource fetches organization documents over HTTP. It performs no retries.
type HTTPSource struct {
	cfg    Config
	client *http.Client
}

// NewHTTPSource builds a registry client. A nil client falls back to one without its own
// timeout; deadlines come from the caller's context.
func NewHTTPSource(cfg Config, client *http.Client) (*HTTPSource, error) {
	cfg = cfg.withDefaults()
	cfg.BaseURL = strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	cfg.Resource = strings.Trim(strings.TrimSpace(cfg.Resource), "/")

	parsed, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("registry: parse base url: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return nil, fmt.Errorf("registry: unsupported base url scheme %q", parsed.Scheme)
	}
	if parsed.Host == "" {
		return nil, errors.New("registry: base url host is required")
	}

	if client == nil {
		client = &http.Client{}
	}
	return &HTTPSource{cfg: cfg, client: client}, nil
}

// Config returns the effective configuration.
func (s *HTTPSource) Config() Config {
	return s.cfg
}

// URL returns the registry address queried for id.
func (s *HTTPSource) URL(id string) string {
	target := s.cfg.BaseURL + "/" + url.PathEscape(id)
	if s.cfg.Resource != "" {
		target += "/" + s.cfg.Resource
	}
	return target
}

// Fetch retrieves the registry document for id. When ctx carries no deadline the
// configured Timeout bounds the request.
func (s *HTTPSource) Fetch(ctx context.Context, id string) ([]byte, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	// Callers without their own deadline still get the configured one.
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.Timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.URL(id), nil)
	if err != nil {
		return nil, fmt.Errorf("registry: build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", s.cfg.UserAgent)

	resp, err := s.client.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, fmt.Errorf("registry: fetch %s: %w", id, ctxErr)
		}
		return nil, &TransientError{Err: err}
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
	case resp.StatusCode == http.StatusNotFound,
		resp.StatusCode == http.StatusGone,
		resp.StatusCode == http.StatusBadRequest:
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, ErrNotFound
	default:
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, &TransientError{
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("unexpected status %s", resp.Status),
		}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, s.cfg.MaxBodyBytes+1))
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, fmt.Errorf("registry: read %s: %w", id, ctxErr)
		}
		return nil, &TransientError{StatusCode: resp.StatusCode, Err: fmt.Errorf("read body: %w", err)}
	}
	if int64(len(body)) > s.cfg.MaxBodyBytes {
		return nil, &TransientError{
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("response exceeds %d bytes", s.cfg.MaxBodyBytes),
		}
	}

	var compact bytes.Buffer
	if err := json.Compact(&compact, body); err != nil {
		return nil, &TransientError{StatusCode: resp.StatusCode, Err: fmt.Errorf("decode body: %w", err)}
	}
	return compact.Bytes(), nil
}
