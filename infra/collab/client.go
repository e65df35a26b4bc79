package collab

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/google/uuid"

	"github.com/kilianp07/collabsched/core/session"
	"github.com/kilianp07/collabsched/infra/logger"
)

// RequestIDHeader carries a per-request correlation id.
const RequestIDHeader = "X-Request-ID"

// Authorizer sets credentials on an outgoing request.
type Authorizer interface {
	SetAuthHeader(r *http.Request) error
}

// Created is the part of the scheduler's create response the uploader uses.
type Created struct {
	ID       string `json:"id"`
	GuestURL string `json:"guestUrl,omitempty"`
}

// StatusError reports a non-2xx response.
type StatusError struct {
	Op     string
	Code   int
	Status string
	Body   string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("%s: %s", e.Op, e.Status)
	}
	return fmt.Sprintf("%s: %s: %s", e.Op, e.Status, e.Body)
}

// Client talks to the Collaborate scheduler.
type Client struct {
	baseURL  string
	probeURL string
	auth     Authorizer
	http     *http.Client
	log      logger.Logger
	debug    bool
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithLogger sets the client logger.
func WithLogger(l logger.Logger) Option {
	return func(c *Client) { c.log = l }
}

// WithDebug dumps every request and response at debug level.
func WithDebug(on bool) Option {
	return func(c *Client) { c.debug = on }
}

// New builds a client from cfg. cfg should already have defaults applied.
func New(cfg Config, auth Authorizer, opts ...Option) *Client {
	c := &Client{
		baseURL:  cfg.BaseURL,
		probeURL: cfg.ProbeURL,
		auth:     auth,
		http:     &http.Client{Timeout: time.Duration(cfg.TimeoutSeconds) * time.Second},
		log:      logger.NopLogger{},
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.debug {
		hc := *c.http
		hc.Transport = &dumpTransport{next: hc.Transport, log: c.log}
		c.http = &hc
	}
	return c
}

// Probe checks that the token is accepted.
func (c *Client) Probe(ctx context.Context) error {
	resp, err := c.do(ctx, http.MethodGet, c.probeURL, nil)
	if err != nil {
		return fmt.Errorf("probe: %w", err)
	}
	defer resp.Body.Close()
	if err := checkStatus("could not connect to Collaborate with given token", resp); err != nil {
		return err
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

// CreateSession posts one resolved session.
func (c *Client) CreateSession(ctx context.Context, p session.Payload) (Created, error) {
	body, err := json.Marshal(p)
	if err != nil {
		return Created{}, fmt.Errorf("encode session %q: %w", p.Name(), err)
	}
	resp, err := c.do(ctx, http.MethodPost, c.baseURL+"/sessions", body)
	if err != nil {
		return Created{}, fmt.Errorf("create session %q: %w", p.Name(), err)
	}
	defer resp.Body.Close()
	if err := checkStatus("create session "+p.Name(), resp); err != nil {
		return Created{}, err
	}
	var out Created
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return Created{}, fmt.Errorf("decode create response: %w", err)
	}
	return out, nil
}

// DeleteOccurrence removes one occurrence of a session.
func (c *Client) DeleteOccurrence(ctx context.Context, sessionID, occurrenceID string) error {
	u := fmt.Sprintf("%s/sessions/%s/occurrences/%s", c.baseURL, url.PathEscape(sessionID), url.PathEscape(occurrenceID))
	resp, err := c.do(ctx, http.MethodDelete, u, nil)
	if err != nil {
		return fmt.Errorf("delete occurrence: %w", err)
	}
	defer resp.Body.Close()
	return checkStatus("delete occurrence "+occurrenceID, resp)
}

func (c *Client) do(ctx context.Context, method, u string, body []byte) (*http.Response, error) {
	var r io.Reader
	if body != nil {
		r = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, u, r)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set(RequestIDHeader, uuid.NewString())
	if c.auth != nil {
		if err := c.auth.SetAuthHeader(req); err != nil {
			return nil, fmt.Errorf("failed to set auth header: %w", err)
		}
	}
	return c.http.Do(req)
}

func checkStatus(op string, resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
	return &StatusError{Op: op, Code: resp.StatusCode, Status: resp.Status, Body: string(bytes.TrimSpace(body))}
}
