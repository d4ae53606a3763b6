package fetcher

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrInvalidProxyAddress is returned when the proxy address cannot be parsed.
	ErrInvalidProxyAddress = errors.New("invalid proxy address")

	// ErrBodyTooLarge is wrapped by FetchError when a response exceeds the body limit.
	ErrBodyTooLarge = errors.New("response body too large")
)

// FetchError describes why one fetch produced no body.
type FetchError struct {
	// URL is the requested URL.
	URL string

	// StatusCode is set when the upstream answered with a non-2xx status.
	StatusCode int

	// Timeout is true when the request exceeded the per-request timeout.
	Timeout bool

	// Limit is the timeout in effect, reported when Timeout is true.
	Limit time.Duration

	// Err is the underlying error, if any.
	Err error
}

// Error returns the failure reason.
func (e *FetchError) Error() string {
	switch {
	case e.Timeout:
		return fmt.Sprintf("timeout after %s", e.Limit)
	case e.StatusCode != 0:
		return fmt.Sprintf("unexpected status %d", e.StatusCode)
	case e.Err != nil:
		return e.Err.Error()
	default:
		return "fetch failed"
	}
}

// Unwrap returns the underlying error.
func (e *FetchError) Unwrap() error {
	return e.Err
}

// IsTimeout reports whether err is a FetchError caused by the request timeout.
func IsTimeout(err error) bool {
	var fe *FetchError
	return errors.As(err, &fe) && fe.Timeout
}
