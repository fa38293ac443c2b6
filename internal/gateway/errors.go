// internal/gateway/errors.go
//
// Typed gateway failures.
//
// Every handler returns (body, error).  Failures are *Error values tagged
// with a Kind; the response writer is the only place that turns a Kind into
// an HTTP status and a message.  Any other error reaching the boundary is
// treated as KindInternal.
package gateway

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/yanizio/adept-gateway/internal/config"
)

// Kind classifies a failure.
type Kind int

const (
	KindInternal Kind = iota
	KindMissingCredentials
	KindInvalidKey
	KindExpired
	KindRouteNotFound
	KindForbidden
	KindBadRequest
	KindFormNotFound
	KindRecordNotFound
)

var kindNames = [...]string{
	KindInternal:           "internal",
	KindMissingCredentials: "missing_credentials",
	KindInvalidKey:         "invalid_key",
	KindExpired:            "expired",
	KindRouteNotFound:      "route_not_found",
	KindForbidden:          "forbidden",
	KindBadRequest:         "bad_request",
	KindFormNotFound:       "form_not_found",
	KindRecordNotFound:     "record_not_found",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Wire messages.
const (
	msgMissingCredentials = "Missing API key or tenant ID"
	msgInvalidKey         = "Invalid API key"
	msgExpired            = "API key expired"
	msgInvalidRoute       = "Invalid resource/action or insufficient permissions"
	msgRouteNotFound      = "Unknown resource or action"
	msgForbidden          = "Insufficient permissions"
	msgFormNotFound       = "Form not found"
	msgRecordNotFound     = "Record not found"
	msgInternal           = "Internal server error"
)

// Error is a classified gateway failure.
type Error struct {
	Kind    Kind
	Message string // client-facing; empty means the Kind default
	Err     error  // cause, logged but shown only when configured
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" {
		msg = e.Kind.String()
	}
	if e.Err != nil {
		return msg + ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

func fail(k Kind, msg string) *Error { return &Error{Kind: k, Message: msg} }

func internal(err error) *Error { return &Error{Kind: KindInternal, Err: err} }

// classify returns err as *Error, wrapping unknown errors as internal.
func classify(err error) *Error {
	var ge *Error
	if errors.As(err, &ge) {
		return ge
	}
	return internal(err)
}

// statusAndMessage maps e to the HTTP status and client message under cfg.
func statusAndMessage(e *Error, cfg config.Gateway) (int, string) {
	status, msg := http.StatusInternalServerError, msgInternal

	switch e.Kind {
	case KindMissingCredentials:
		status, msg = http.StatusUnauthorized, msgMissingCredentials
	case KindInvalidKey:
		status, msg = http.StatusUnauthorized, msgInvalidKey
	case KindExpired:
		status, msg = http.StatusUnauthorized, msgExpired
	case KindRouteNotFound:
		status, msg = http.StatusBadRequest, msgInvalidRoute
		if cfg.DistinctRouteErrors {
			status, msg = http.StatusNotFound, msgRouteNotFound
		}
	case KindForbidden:
		status, msg = http.StatusBadRequest, msgInvalidRoute
		if cfg.DistinctRouteErrors {
			status, msg = http.StatusForbidden, msgForbidden
		}
	case KindBadRequest:
		status, msg = http.StatusBadRequest, "Bad request"
	case KindFormNotFound:
		status, msg = http.StatusNotFound, msgFormNotFound
	case KindRecordNotFound:
		status, msg = http.StatusNotFound, msgRecordNotFound
	case KindInternal:
		if cfg.ExposeInternalErrors && e.Err != nil {
			msg = e.Err.Error()
		}
		return status, msg
	}

	if e.Message != "" {
		msg = e.Message
	}
	return status, msg
}
