package fetch

import (
	"fmt"
	"strings"

	"github.com/shpitdev/country-lookup/pkg/pipeline/redact"
)

// NetworkError means the request never produced a response (DNS, refused connection, TLS, ...).
type NetworkError struct {
	Label string
	URL   string
	Err   error
}

func (e *NetworkError) Error() string {
	if e == nil {
		return "network error"
	}
	msg := "network error"
	if e.Err != nil {
		msg = "network error: " + redact.Secrets(e.Err.Error())
	}
	if strings.TrimSpace(e.Label) != "" {
		return strings.TrimSpace(e.Label) + ": " + msg
	}
	return msg
}

func (e *NetworkError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// RemoteError is a completed response with a non-2xx status.
//
// The response body is never parsed: failure bodies are not guaranteed to be JSON.
type RemoteError struct {
	Label      string
	StatusCode int
	Status     string
}

func (e *RemoteError) Error() string {
	if e == nil {
		return "remote error"
	}
	label := strings.TrimSpace(e.Label)
	if label == "" {
		label = "Something went wrong"
	}
	return fmt.Sprintf("%s (%d)", label, e.StatusCode)
}

// MalformedResponseError is a 2xx response whose body could not be decoded.
type MalformedResponseError struct {
	Label string
	Err   error
}

func (e *MalformedResponseError) Error() string {
	if e == nil || e.Err == nil {
		return "malformed response"
	}
	return "malformed response: " + e.Err.Error()
}

func (e *MalformedResponseError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}
