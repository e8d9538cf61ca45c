package provider

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"syscall"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

var (
	// ErrUnavailable means the upstream could not be reached or refused the
	// call (connection refused, auth, quota, 5xx).
	ErrUnavailable = errors.New("provider: service unavailable")

	// ErrTimeout means the upstream did not answer in time.
	ErrTimeout = errors.New("provider: request timed out")

	// ErrMalformed means the upstream answered with something unusable.
	ErrMalformed = errors.New("provider: malformed response")
)

// HTTPStatusError captures non-2xx upstream responses.
type HTTPStatusError struct {
	StatusCode int
	URL        string
	Body       string
}

func (e *HTTPStatusError) Error() string {
	return fmt.Sprintf("unexpected status %d from %s: %s", e.StatusCode, e.URL, e.Body)
}

// HTTPStatusCode returns the upstream status code.
func (e *HTTPStatusError) HTTPStatusCode() int {
	return e.StatusCode
}

type httpStatusCoder interface {
	HTTPStatusCode() int
}

// Error pairs a classification sentinel with the underlying cause.
// errors.Is matches both.
type Error struct {
	Kind error
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return e.Kind.Error()
	}
	return fmt.Sprintf("%v: %v", e.Kind, e.Err)
}

func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// Classify tags err with ErrUnavailable, ErrTimeout or ErrMalformed when the
// cause is recognised. Unrecognised errors and nil are returned unchanged.
func Classify(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrUnavailable) || errors.Is(err, ErrTimeout) || errors.Is(err, ErrMalformed) {
		return err
	}
	if kind := kindOf(err); kind != nil {
		return &Error{Kind: kind, Err: err}
	}
	return err
}

func kindOf(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return ErrTimeout
	}
	if errors.Is(err, syscall.ECONNREFUSED) {
		return ErrUnavailable
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return ErrTimeout
	}

	var sc httpStatusCoder
	if errors.As(err, &sc) {
		return kindOfStatus(sc.HTTPStatusCode())
	}

	if st, ok := status.FromError(err); ok {
		switch st.Code() {
		case codes.DeadlineExceeded:
			return ErrTimeout
		case codes.Unavailable, codes.Unauthenticated, codes.PermissionDenied, codes.ResourceExhausted:
			return ErrUnavailable
		}
	}
	return nil
}

func kindOfStatus(code int) error {
	switch {
	case code == http.StatusRequestTimeout || code == http.StatusGatewayTimeout:
		return ErrTimeout
	case code == http.StatusUnauthorized || code == http.StatusForbidden || code == http.StatusTooManyRequests:
		return ErrUnavailable
	case code >= 500:
		return ErrUnavailable
	}
	return nil
}
