package directory

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"

	"golang.org/x/oauth2"
)

var (
	// ErrGroupNotFound is returned by providers when a group does not exist.
	ErrGroupNotFound = errors.New("group not found")
	// ErrInvalidStudentID is returned for ids the provider can not address.
	ErrInvalidStudentID = errors.New("invalid student id")
	// ErrUnavailable marks provider failures worth retrying that carry no HTTP status.
	ErrUnavailable = errors.New("directory unavailable")
)

const maxBodyInError = 512

// APIError is a non success response of the provider.
type APIError struct {
	Op     string
	Status int
	Body   string
}

// NewAPIError truncates body to keep log entries readable.
func NewAPIError(op string, status int, body []byte) *APIError {
	if len(body) > maxBodyInError {
		body = body[:maxBodyInError]
	}

	return &APIError{Op: op, Status: status, Body: string(body)}
}

func (e *APIError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("%s: %d %s", e.Op, e.Status, http.StatusText(e.Status))
	}

	return fmt.Sprintf("%s: %d %s: %s", e.Op, e.Status, http.StatusText(e.Status), e.Body)
}

// IsTransient reports whether retrying err may succeed: network failures,
// timeouts of a single attempt, 5xx and 429 responses.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}

	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Status >= http.StatusInternalServerError || apiErr.Status == http.StatusTooManyRequests
	}

	if errors.Is(err, ErrUnavailable) || errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	// a rejected token request arrives wrapped in a *url.Error, which is a net.Error
	var tokenErr *oauth2.RetrieveError
	if errors.As(err, &tokenErr) {
		if tokenErr.Response == nil {
			return false
		}

		status := tokenErr.Response.StatusCode

		return status >= http.StatusInternalServerError || status == http.StatusTooManyRequests
	}

	var netErr net.Error

	return errors.As(err, &netErr)
}
