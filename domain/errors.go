package domain

import (
	"errors"
	"fmt"
	"net/http"
	"time"
)

type ErrorKind string

const (
	KindConfiguration     ErrorKind = "configuration"
	KindTimeout           ErrorKind = "timeout"
	KindTransientProvider ErrorKind = "transient_provider"
	KindUpstreamFetch     ErrorKind = "upstream_fetch"
	KindUnexpected        ErrorKind = "unexpected"
	KindNotFound          ErrorKind = "not_found"
	KindInvalid           ErrorKind = "invalid"
	KindUnauthorized      ErrorKind = "unauthorized"
	KindConflict          ErrorKind = "conflict"
)

// Error is the typed failure surfaced by services. Message is safe to show
// to end users; Err carries the underlying cause for logs.
type Error struct {
	Kind    ErrorKind
	Message string
	Err     error

	// Bound is set for timeouts.
	Bound time.Duration
	// URL and Status are set for upstream fetch failures.
	URL    string
	Status int
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

func ConfigurationError(msg string) error {
	return &Error{Kind: KindConfiguration, Message: msg}
}

func TimeoutError(bound time.Duration) error {
	return &Error{
		Kind:    KindTimeout,
		Message: fmt.Sprintf("AI request timed out after %d seconds. Please try a shorter query.", int(bound.Seconds())),
		Bound:   bound,
		Err:     errTimeout,
	}
}

// TransientProviderError wraps the final attempt's error after the retry
// budget is spent. errors.Unwrap returns that error unchanged.
func TransientProviderError(attempts int, last error) error {
	return &Error{
		Kind:    KindTransientProvider,
		Message: fmt.Sprintf("AI provider unavailable after %d attempts", attempts),
		Err:     last,
	}
}

func UpstreamFetchError(url string, status int) error {
	return &Error{
		Kind:    KindUpstreamFetch,
		Message: fmt.Sprintf("upstream returned %d %s", status, http.StatusText(status)),
		URL:     url,
		Status:  status,
	}
}

func UnexpectedError(err error) error {
	return &Error{Kind: KindUnexpected, Message: "Failed to generate AI response", Err: err}
}

func NotFoundError(what string) error {
	return &Error{Kind: KindNotFound, Message: what + " not found"}
}

func InvalidError(msg string) error {
	return &Error{Kind: KindInvalid, Message: msg}
}

func UnauthorizedError(msg string) error {
	return &Error{Kind: KindUnauthorized, Message: msg}
}

func ConflictError(msg string) error {
	return &Error{Kind: KindConflict, Message: msg}
}

var errTimeout = errors.New("deadline exceeded")

// ErrTransient marks provider failures worth another attempt. Adapters wrap
// connectivity-class errors with it.
var ErrTransient = errors.New("transient provider failure")

func IsTransient(err error) bool {
	return errors.Is(err, ErrTransient)
}

// KindOf returns the kind of the first *Error in the chain, or KindUnexpected.
func KindOf(err error) ErrorKind {
	var de *Error
	if errors.As(err, &de) {
		return de.Kind
	}
	return KindUnexpected
}

func StatusCode(err error) int {
	switch KindOf(err) {
	case KindConfiguration, KindInvalid:
		return http.StatusBadRequest
	case KindUnauthorized:
		return http.StatusUnauthorized
	case KindNotFound:
		return http.StatusNotFound
	case KindConflict:
		return http.StatusConflict
	case KindTimeout:
		return http.StatusGatewayTimeout
	case KindTransientProvider, KindUpstreamFetch:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// PublicMessage is what an end user may see for err.
func PublicMessage(err error) string {
	var de *Error
	if errors.As(err, &de) && de.Kind != KindUnexpected {
		return de.Message
	}
	return "An unexpected error occurred"
}
