package api

import (
	"errors"
	"fmt"
)

var (
	// ErrUnauthenticated means there is no usable credential. The session
	// has already been invalidated when it is returned.
	ErrUnauthenticated = errors.New("unauthenticated")

	// ErrUnexpectedShape means the server answered with a non-list where a
	// list was expected.
	ErrUnexpectedShape = errors.New("unexpected response shape")
)

// RequestFailedError is a non-2xx answer other than an auth failure.
type RequestFailedError struct {
	Method   string
	Endpoint string
	Status   int
	Message  string
}

func (e *RequestFailedError) Error() string {
	return fmt.Sprintf("%s %s: %d %s", e.Method, e.Endpoint, e.Status, e.Message)
}

// StatusOf returns the HTTP status of a RequestFailedError in err's chain, or 0.
func StatusOf(err error) int {
	var rf *RequestFailedError
	if errors.As(err, &rf) {
		return rf.Status
	}
	return 0
}
