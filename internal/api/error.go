package api

import (
	"fmt"
	"time"

	"github.com/go-faster/errors"
)

// APIError is the normalized error value for failed API calls. When the server
// responds with the standard error body it is decoded here; for malformed or
// empty bodies only Status and Message are populated.
type APIError struct {
	Timestamp time.Time `json:"timestamp"`
	Status    int       `json:"status"`
	Kind      string    `json:"error"`
	Message   string    `json:"message"`
	// Errors maps field names to validation messages on invalid payloads.
	Errors map[string]string `json:"errors,omitempty"`
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("api: %d %s", e.Status, e.Message)
	}
	return fmt.Sprintf("api: unexpected status %d", e.Status)
}

// IsValidation reports whether the error carries per-field validation messages.
func (e *APIError) IsValidation() bool {
	return len(e.Errors) > 0
}

// StatusOf returns the HTTP status carried by err, or 0 when err is not an
// APIError.
func StatusOf(err error) int {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Status
	}
	return 0
}

// MessageOf returns the server-provided message for err, falling back to the
// given default. Views use it to surface failures without leaking transport
// details.
func MessageOf(err error, fallback string) string {
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}
	return fallback
}
