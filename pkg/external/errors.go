package external

import (
	"errors"
	"fmt"
)

// ErrMissingAPIKey indicates the provider API key is absent or empty. This is
// a configuration error: the request is never issued and no retry will help
// until the key is supplied.
var ErrMissingAPIKey = errors.New("market data provider API key is not configured")

// FetchError represents a non-success HTTP status from the provider. It is
// transient from the caller's perspective; retries are user-initiated.
type FetchError struct {
	Endpoint   string
	StatusCode int
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("provider returned status %d for %s", e.StatusCode, e.Endpoint)
}

// DecodeError represents a response body that is not valid JSON or does not
// match the expected shape.
type DecodeError struct {
	Endpoint string
	Err      error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("failed to decode %s response: %v", e.Endpoint, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}
