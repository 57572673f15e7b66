package apiclient

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/jrsteele09/go-marketplace-client/internal/errors"
	"github.com/jrsteele09/go-marketplace-client/users"
)

// APIError is a non-2xx response. Message is taken from the body's "error" or
// "detail" field, or synthesised from the status line.
type APIError struct {
	StatusCode int
	Status     string
	Message    string
	Body       []byte
}

func (e *APIError) Error() string {
	return e.Message
}

// IsClientError reports a 4xx response; retrying those cannot succeed.
func (e *APIError) IsClientError() bool {
	return e.StatusCode >= 400 && e.StatusCode < 500
}

// FieldErrors decodes a validation error body of the form {"field": ["msg", ...]}.
// It returns nil when the body has no such shape.
func (e *APIError) FieldErrors() users.FieldErrors {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(e.Body, &raw); err != nil {
		return nil
	}
	fe := users.FieldErrors{}
	for field, value := range raw {
		var msgs []string
		if err := json.Unmarshal(value, &msgs); err == nil && len(msgs) > 0 {
			fe[field] = msgs
		}
	}
	if len(fe) == 0 {
		return nil
	}
	return fe
}

// TransportError is a request that never produced an HTTP response.
type TransportError struct {
	Method string
	URL    string
	Err    error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Method, e.URL, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// StatusCode returns the HTTP status carried by err, or 0.
func StatusCode(err error) int {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode
	}
	return 0
}

// IsUnauthorized reports a 401 from the backend.
func IsUnauthorized(err error) bool {
	return StatusCode(err) == http.StatusUnauthorized
}

func newAPIError(resp *http.Response, body []byte, fallbackPrefix string) *APIError {
	status := strings.TrimSpace(resp.Status)
	if status == "" {
		status = fmt.Sprintf("%d %s", resp.StatusCode, http.StatusText(resp.StatusCode))
	}
	return &APIError{
		StatusCode: resp.StatusCode,
		Status:     status,
		Message:    errorMessage(body, fmt.Sprintf("%s: %s", fallbackPrefix, status)),
		Body:       body,
	}
}

func errorMessage(body []byte, fallback string) string {
	var payload map[string]any
	if err := json.Unmarshal(body, &payload); err != nil {
		return fallback
	}
	for _, field := range []string{"error", "detail"} {
		if s, ok := payload[field].(string); ok && s != "" {
			return s
		}
	}
	return fallback
}
