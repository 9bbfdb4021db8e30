// internal/app/system/gateway/errors.go
package gateway

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// ErrSessionExpired means the access token was rejected and no refresh
// could restore it. The session keys have already been cleared when this
// is returned.
var ErrSessionExpired = errors.New("gateway: session expired")

// Fallback messages shown when the backend sends none.
const (
	MsgUnauthorized   = "No autorizado."
	MsgRequestFailed  = "Error en la solicitud."
	MsgNetworkFailure = "No se pudo conectar con el servidor. Intenta de nuevo."
	MsgSessionExpired = "Tu sesión ha expirado. Inicia sesión de nuevo."
)

// NetworkFailure is a transport-level failure: no response was received.
type NetworkFailure struct {
	Op  string
	Err error
}

func (e *NetworkFailure) Error() string {
	return fmt.Sprintf("gateway: %s: %v", e.Op, e.Err)
}

func (e *NetworkFailure) Unwrap() error { return e.Err }

// RequestError is a non-2xx response from the backend.
type RequestError struct {
	Status  int
	Message string

	// Generic is set when the body carried no message and Message is one
	// of the gateway's fallbacks.
	Generic bool
}

func (e *RequestError) Error() string {
	return fmt.Sprintf("gateway: status %d: %s", e.Status, e.Message)
}

// newRequestError builds a RequestError from a response body, falling back
// to a generic message when the body carries none.
func newRequestError(status int, body []byte) *RequestError {
	if msg := messageFromBody(body); msg != "" {
		return &RequestError{Status: status, Message: msg}
	}
	msg := MsgRequestFailed
	if status == http.StatusUnauthorized {
		msg = MsgUnauthorized
	}
	return &RequestError{Status: status, Message: msg, Generic: true}
}

// messageFromBody extracts a human-readable message from a JSON error body.
func messageFromBody(body []byte) string {
	if len(body) == 0 {
		return ""
	}
	var m map[string]any
	if err := json.Unmarshal(body, &m); err != nil {
		return ""
	}
	for _, k := range []string{"message", "Message", "title", "error"} {
		if s, ok := m[k].(string); ok && strings.TrimSpace(s) != "" {
			return strings.TrimSpace(s)
		}
	}
	return ""
}

// StatusOf returns the HTTP status carried by err, or 0.
func StatusOf(err error) int {
	var re *RequestError
	if errors.As(err, &re) {
		return re.Status
	}
	return 0
}

// MessageOf renders any gateway error as a single message for the user.
// Errors the gateway did not produce yield fallback.
func MessageOf(err error, fallback string) string {
	if err == nil {
		return ""
	}
	var re *RequestError
	var nf *NetworkFailure
	switch {
	case errors.Is(err, ErrSessionExpired):
		return MsgSessionExpired
	case errors.As(err, &re):
		return re.Message
	case errors.As(err, &nf):
		return MsgNetworkFailure
	}
	return fallback
}

// BackendMessage returns the message the backend sent with a failed
// request, or "" when it sent none or err is not a RequestError.
func BackendMessage(err error) string {
	var re *RequestError
	if errors.As(err, &re) && !re.Generic {
		return re.Message
	}
	return ""
}
