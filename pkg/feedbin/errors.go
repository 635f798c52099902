package feedbin

import (
	"fmt"
	"net/http"

	"github.com/cockroachdb/errors"
)

// ErrNotConfigured is returned when the client was built without credentials.
// It is a configuration problem and is never retried.
var ErrNotConfigured = errors.New(
	"Feedbin credentials not configured. Set FEEDBIN_EMAIL and FEEDBIN_PASSWORD environment variables.")

// APIError is a non-success reply from Feedbin.
type APIError struct {
	StatusCode int
	Status     string
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("Feedbin API error %d %s: %s", e.StatusCode, e.Status, e.Body)
}

// Retryable reports whether repeating the same request may succeed.
func (e *APIError) Retryable() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= 500
}

// IsStatus reports whether err wraps an *APIError with the given status code.
func IsStatus(err error, code int) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == code
}
