package stream

import (
	"errors"
	"fmt"
)

var (
	// ErrSessionActive is returned by Connect when the handler already owns a
	// session that has not terminated.
	ErrSessionActive = errors.New("stream: session already active")

	// ErrReadTimeout is the cause reported when no bytes arrive within the
	// configured read timeout.
	ErrReadTimeout = errors.New("stream: read timeout exceeded")
)

// DecodingError means a data line did not decode into the payload type. The
// session keeps going.
type DecodingError struct {
	Payload string
	Err     error
}

func (e *DecodingError) Error() string {
	return fmt.Sprintf("decoding event payload: %v", e.Err)
}

func (e *DecodingError) Unwrap() error {
	return e.Err
}

// EncodingError means a line was not valid UTF-8. The session is torn down.
type EncodingError struct {
	Line []byte
}

func (e *EncodingError) Error() string {
	return fmt.Sprintf("malformed event line: %d bytes of invalid utf-8", len(e.Line))
}

// TransportError wraps a failure reported by the transport at completion.
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("stream transport: %v", e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// StatusError is reported by HTTPTransport when the server answers with a
// non-2xx status. Body holds at most the first few KB of the response.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("unexpected status code %d", e.StatusCode)
	}
	return fmt.Sprintf("unexpected status code %d: %s", e.StatusCode, e.Body)
}
