package backend

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrEmptyDocument is returned when a PDF endpoint answers 2xx with no bytes.
var ErrEmptyDocument = errors.New("generated PDF is empty")

// HTTPError represents a non-2xx HTTP response from the backend.
type HTTPError struct {
	StatusCode int
	// Body is the raw response text.
	Body string
	// Detail and ErrorText are the "detail" and "error" members of a JSON
	// error body, when present and textual.
	Detail    string
	ErrorText string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Body)
}

func newHTTPError(status int, body []byte) *HTTPError {
	e := &HTTPError{StatusCode: status, Body: strings.TrimSpace(string(body))}

	var payload map[string]any
	if err := json.Unmarshal(body, &payload); err == nil {
		if s, ok := payload["detail"].(string); ok {
			e.Detail = s
		}
		if s, ok := payload["error"].(string); ok {
			e.ErrorText = s
		}
	}
	return e
}

// IsStatus returns true if err (or any wrapped error) is an HTTPError with the given status code.
func IsStatus(err error, code int) bool {
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.StatusCode == code
	}
	return false
}

// DetailOr returns the backend's "detail" message carried by err, or fallback.
func DetailOr(err error, fallback string) string {
	var httpErr *HTTPError
	if errors.As(err, &httpErr) && httpErr.Detail != "" {
		return httpErr.Detail
	}
	return fallback
}

// ErrorOrDetail prefers the "error" member, then "detail", then fallback.
func ErrorOrDetail(err error, fallback string) string {
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		if httpErr.ErrorText != "" {
			return httpErr.ErrorText
		}
		if httpErr.Detail != "" {
			return httpErr.Detail
		}
	}
	return fallback
}

// TextOr returns the raw response text carried by err, or fallback.
func TextOr(err error, fallback string) string {
	var httpErr *HTTPError
	if errors.As(err, &httpErr) && httpErr.Body != "" {
		return httpErr.Body
	}
	return fallback
}
