package request

import (
	"errors"
	"fmt"
	"net/http"
)

// Sentinel kinds. Every error returned by Executor.Do matches exactly one of
// them with errors.Is.
var (
	ErrInvalidRequest = errors.New("invalid request")
	ErrEncode         = errors.New("encode request body")
	ErrRepeatSubmit   = errors.New("duplicate submission in progress, please do not resubmit")
	ErrRateLimit      = errors.New("client rate limit")
	ErrToken          = errors.New("token unavailable")
	ErrTransport      = errors.New("transport failure")
	ErrTimeout        = errors.New("request timed out")
	ErrDecode         = errors.New("malformed response")

	ErrUnauthorized = errors.New("authentication failed")
	ErrForbidden    = errors.New("operation not permitted")
	ErrLocked       = errors.New("account locked")
	ErrServer       = errors.New("server error")
	ErrBusiness     = errors.New("request rejected")
)

// Error is a failure that never produced a usable response.
type Error struct {
	Op   string
	Kind error
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %v", e.Op, e.Kind)
	}
	return fmt.Sprintf("%s: %v: %v", e.Op, e.Kind, e.Err)
}

// Unwrap exposes both the kind and the cause to errors.Is/As.
func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// NewKind returns an Error of kind without an underlying cause.
func NewKind(op string, kind error) error {
	return &Error{Op: op, Kind: kind}
}

// WrapKind returns an Error of kind wrapping err.
func WrapKind(op string, kind, err error) error {
	return &Error{Op: op, Kind: kind, Err: err}
}

// StatusError is a response whose HTTP status or envelope code is not success.
type StatusError struct {
	Op         string
	Kind       error
	Method     string
	URL        string
	HTTPStatus int
	// Code is the envelope code, or the HTTP status when the body had none.
	Code int
	Msg  string
	// Response is the full response, for callers that need the body.
	Response *Response
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s: %s %s: %d %s", e.Op, e.Method, e.URL, e.Code, e.Msg)
}

func (e *StatusError) Unwrap() error { return e.Kind }

// kindForCode maps an envelope code to its sentinel.
func kindForCode(code int) error {
	switch code {
	case http.StatusUnauthorized:
		return ErrUnauthorized
	case http.StatusForbidden:
		return ErrForbidden
	case http.StatusLocked:
		return ErrLocked
	case http.StatusInternalServerError:
		return ErrServer
	default:
		return ErrBusiness
	}
}

// defaultMessage fills in a message when the server sent none.
func defaultMessage(code int) string {
	switch code {
	case http.StatusUnauthorized:
		return "authentication failed, cannot access system resources"
	case http.StatusForbidden:
		return "no permission for the current operation"
	case http.StatusNotFound:
		return "resource does not exist"
	default:
		return "unknown system error, please contact the administrator"
	}
}

// kindLabel names a sentinel for metrics.
func kindLabel(err error) string {
	switch {
	case errors.Is(err, ErrRepeatSubmit):
		return "repeat_submit"
	case errors.Is(err, ErrRateLimit):
		return "rate_limit"
	case errors.Is(err, ErrToken):
		return "token"
	case errors.Is(err, ErrTimeout):
		return "timeout"
	case errors.Is(err, ErrTransport):
		return "transport"
	case errors.Is(err, ErrDecode):
		return "decode"
	case errors.Is(err, ErrEncode):
		return "encode"
	case errors.Is(err, ErrUnauthorized):
		return "unauthorized"
	case errors.Is(err, ErrForbidden):
		return "forbidden"
	case errors.Is(err, ErrLocked):
		return "locked"
	case errors.Is(err, ErrServer):
		return "server"
	case errors.Is(err, ErrBusiness):
		return "business"
	default:
		return "other"
	}
}
