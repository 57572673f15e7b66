// Package apiclient talks to the marketplace REST backend. It holds no session
// state: authenticated calls take the access token as an argument.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

const (
	defaultTimeout  = 30 * time.Second
	requestIDHeader = "X-Request-ID"
	requestFailed   = "API request failed"
	uploadFailed    = "Image upload failed"
)

var apiSuffix = regexp.MustCompile(`/?api/?$`)

type Client struct {
	baseURL    string
	httpClient *http.Client
}

type Option func(*Client)

// WithHTTPClient replaces the underlying client, e.g. with an oauth2 or test client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.httpClient.Timeout = d
	}
}

func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: defaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) BaseURL() string {
	return c.baseURL
}

// ResolveMediaURL turns a root-relative media path into an absolute URL on the
// backend origin (the base URL without its /api suffix).
func (c *Client) ResolveMediaURL(u string) string {
	return ResolveMediaURL(c.baseURL, u)
}

func ResolveMediaURL(baseURL, u string) string {
	if !strings.HasPrefix(u, "/") {
		return u
	}
	return apiSuffix.ReplaceAllString(baseURL, "") + u
}

// RequestOption adjusts the headers of one request. Options run after the defaults,
// so they win.
type RequestOption func(h http.Header)

func WithHeader(key, value string) RequestOption {
	return func(h http.Header) {
		h.Set(key, value)
	}
}

func WithBearer(token string) RequestOption {
	return WithHeader("Authorization", "Bearer "+token)
}

// request sends a JSON request. A 204 leaves out untouched.
func (c *Client) request(ctx context.Context, method, endpoint string, body, out any, opts ...RequestOption) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return errors.Wrapf(err, "[Client.request] marshal %s %s", method, endpoint)
		}
		reader = bytes.NewReader(data)
	}

	header := http.Header{}
	header.Set("Content-Type", "application/json")
	header.Set("Accept", "application/json")
	for _, opt := range opts {
		opt(header)
	}
	return c.send(ctx, method, endpoint, reader, header, out, requestFailed)
}

// authenticatedRequest is request with the bearer token applied last.
func (c *Client) authenticatedRequest(ctx context.Context, token, method, endpoint string, body, out any, opts ...RequestOption) error {
	return c.request(ctx, method, endpoint, body, out, append(opts, WithBearer(token))...)
}

func (c *Client) send(ctx context.Context, method, endpoint string, body io.Reader, header http.Header, out any, failPrefix string) error {
	url := c.baseURL + endpoint
	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return errors.Wrapf(err, "[Client.send] build %s %s", method, endpoint)
	}
	req.Header = header
	if req.Header.Get(requestIDHeader) == "" {
		req.Header.Set(requestIDHeader, uuid.New().String())
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		log.Debug().Err(err).Str("method", method).Str("path", endpoint).Msg("[Client.send] transport failure")
		return &TransportError{Method: method, URL: url, Err: err}
	}
	defer resp.Body.Close()

	log.Debug().
		Str("method", method).
		Str("path", endpoint).
		Int("status", resp.StatusCode).
		Dur("duration", time.Since(start)).
		Str("request_id", req.Header.Get(requestIDHeader)).
		Msg("[Client.send]")

	if resp.StatusCode == http.StatusNoContent {
		return nil
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		data, _ := io.ReadAll(resp.Body)
		return newAPIError(resp, data, failPrefix)
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return errors.Wrapf(err, "[Client.send] decode %s %s", method, endpoint)
	}
	return nil
}
