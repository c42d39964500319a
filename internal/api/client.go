package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"codeberg.org/mutker/healthsync/internal/errors"
	"codeberg.org/mutker/healthsync/internal/logger"
	"github.com/google/uuid"
)

// HTTPClient is the subset of *http.Client used here
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Observer receives one call per finished request. status is 0 when no
// response arrived.
type Observer func(endpoint string, status int, elapsed time.Duration)

// Client talks to the backend. It is safe for concurrent use.
type Client struct {
	cfg      Config
	http     HTTPClient
	logger   logger.Logger
	observer Observer
}

type Option func(*Client)

func WithHTTPClient(h HTTPClient) Option {
	return func(c *Client) {
		c.http = h
	}
}

func WithObserver(o Observer) Option {
	return func(c *Client) {
		c.observer = o
	}
}

func New(cfg Config, log logger.Logger, opts ...Option) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	c := &Client{
		cfg:    cfg,
		http:   &http.Client{},
		logger: log,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

type request struct {
	method  string
	path    string
	query   url.Values
	body    any
	headers map[string]string
}

// errorBody is what the backend sends alongside non-2xx statuses
type errorBody struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Code    string `json:"code"`
}

func (c *Client) do(ctx context.Context, r request, out any) error {
	errFactory := errors.New()

	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	var body io.Reader
	var payload []byte
	if r.body != nil {
		var err error
		payload, err = json.Marshal(r.body)
		if err != nil {
			return errFactory.Wrap(ErrEncodeRequest, err)
		}
		body = bytes.NewReader(payload)
	}

	target := strings.TrimRight(c.cfg.BaseURL, "/") + r.path
	if len(r.query) > 0 {
		target += "?" + r.query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, r.method, target, body)
	if err != nil {
		return errFactory.Wrap(ErrEncodeRequest, err)
	}

	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.cfg.UserAgent)
	req.Header.Set("X-Platform", c.cfg.Platform)
	req.Header.Set("X-Request-ID", uuid.NewString())
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.cfg.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.Token)
	}
	for k, v := range r.headers {
		req.Header.Set(k, v)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.observe(r.path, 0, start)
		classified := errors.FromTransport(err)
		c.logger.Debug().
			Err(err).
			Str("method", r.method).
			Str("path", r.path).
			Str("code", string(classified.Code())).
			Msg("Request failed before response")
		return classified
	}
	defer resp.Body.Close()
	c.observe(r.path, resp.StatusCode, start)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return c.statusError(r, resp)
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil && !errors.Is(err, io.EOF) {
		return errFactory.Wrap(ErrDecode, err).WithStatus(resp.StatusCode)
	}
	return nil
}

func (c *Client) statusError(r request, resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))

	var eb errorBody
	_ = json.Unmarshal(raw, &eb)

	detail := eb.Message
	if detail == "" {
		detail = eb.Error
	}
	if detail == "" {
		detail = http.StatusText(resp.StatusCode)
	}
	cause := fmt.Errorf("%s %s: %d %s", r.method, r.path, resp.StatusCode, detail)

	var classified errors.Error
	switch eb.Code {
	case "SERVICE_UNAVAILABLE", "MAINTENANCE_MODE":
		classified = errors.Unavailable(cause).WithStatus(resp.StatusCode)
	default:
		classified = errors.FromStatus(resp.StatusCode, cause)
	}

	c.logger.Debug().
		Str("method", r.method).
		Str("path", r.path).
		Int("status", resp.StatusCode).
		Str("code", string(classified.Code())).
		Msg("Request rejected")
	return classified
}

func (c *Client) observe(endpoint string, status int, start time.Time) {
	if c.observer != nil {
		c.observer(endpoint, status, time.Since(start))
	}
}

// envelope is the common success wrapper
type envelope[T any] struct {
	Success bool   `json:"success"`
	Data    T      `json:"data"`
	Error   string `json:"error,omitempty"`
}

// check turns a 2xx response that reports failure into an error
func (e envelope[T]) check(path string) error {
	if e.Success {
		return nil
	}
	msg := e.Error
	if msg == "" {
		msg = "request reported failure"
	}
	return errors.New().Wrap(errors.ErrUnknown, fmt.Errorf("%s: %s", path, msg))
}
