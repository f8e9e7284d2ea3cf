package chain

import (
	"errors"
	"fmt"
)

var (
	// ErrUnreachable is returned when no REST endpoint produced a response
	ErrUnreachable = errors.New("unable to connect to blockchain API")

	// ErrWallet is returned when there is no usable signing key
	ErrWallet = errors.New("no signing key configured: set SIGNER_KEY_HEX to a hex encoded secp256k1 private key")
)

// StatusError is a non-2xx answer from the chain REST API
type StatusError struct {
	Endpoint   string
	Path       string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("chain returned HTTP %d for %s", e.StatusCode, e.Path)
	}
	return fmt.Sprintf("chain returned HTTP %d for %s: %s", e.StatusCode, e.Path, e.Body)
}

// NotFound reports whether the chain answered 404
func (e *StatusError) NotFound() bool {
	return e.StatusCode == 404
}

// DecodeError is a 2xx response whose body did not have the expected shape
type DecodeError struct {
	Path string
	Err  error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("malformed response from %s: %v", e.Path, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// truncate keeps error bodies readable in logs
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
