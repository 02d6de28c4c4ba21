package application

import (
	"errors"
	"fmt"
)

var (
	ErrMissingInput    = errors.New("missing input")
	ErrInvalidURL      = errors.New("invalid url")
	ErrHostNotAllowed  = errors.New("host not allowed")
	ErrUpstreamFailure = errors.New("upstream failure")
	ErrConfiguration   = errors.New("configuration error")
	ErrPartialFailure  = errors.New("migration finished with failures")
)

// UpstreamError reports a non-2xx or bodiless upstream response.
type UpstreamError struct {
	Status int
}

func (e *UpstreamError) Error() string {
	if e.Status == 0 {
		return "upstream returned no body"
	}
	return fmt.Sprintf("upstream responded with status %d", e.Status)
}

func (e *UpstreamError) Unwrap() error {
	return ErrUpstreamFailure
}

// ResponseStatus is the status relayed to the client: the upstream error status, or 502.
func (e *UpstreamError) ResponseStatus() int {
	if e.Status >= 400 && e.Status <= 599 {
		return e.Status
	}
	return 502
}
