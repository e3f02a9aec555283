package gateway

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

// APIError is a non-2xx response from the backend. Detail carries the
// backend-supplied reason when the body held the usual {"detail": "..."}
// error envelope, and is empty otherwise.
type APIError struct {
	StatusCode int
	Detail     string
}

func (e *APIError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("backend returned %d: %s", e.StatusCode, e.Detail)
	}
	return fmt.Sprintf("backend returned %d", e.StatusCode)
}

// IsUnauthorized reports whether err is a 401/403 response.
func IsUnauthorized(err error) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == http.StatusUnauthorized || apiErr.StatusCode == http.StatusForbidden
	}
	return false
}

// Detail extracts the backend-supplied reason from err, or "" if err carried
// none (network failures, malformed bodies).
func Detail(err error) string {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Detail
	}
	return ""
}

func newAPIError(statusCode int, body []byte) *APIError {
	var envelope struct {
		Detail string `json:"detail"`
	}
	// The detail field may also hold structured validation errors; those
	// don't unmarshal into a string and the Detail stays empty.
	_ = json.Unmarshal(body, &envelope)
	return &APIError{StatusCode: statusCode, Detail: envelope.Detail}
}
