package stream

import (
	"errors"
	"fmt"
)

// ErrTransportFailed marks a lost push connection. It is retryable by
// subscribing again.
var ErrTransportFailed = errors.New("push transport failed")

type TransportFailedError struct {
	Topic string
	Err   error
}

func (e *TransportFailedError) Error() string {
	return fmt.Sprintf("topic %s: %v: %v", e.Topic, ErrTransportFailed, e.Err)
}

func (e *TransportFailedError) Unwrap() []error {
	return []error{ErrTransportFailed, e.Err}
}

// Retryable is always true for transport failures.
func (e *TransportFailedError) Retryable() bool {
	return true
}
