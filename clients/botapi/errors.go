package botapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// TransportError is a failure to reach the backend or read its reply:
// dial errors, timeouts, truncated or undecodable bodies.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// APIError is an application-level failure: a non-2xx status or a payload
// reporting success:false or status:"error".
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("status=%d", e.StatusCode)
	}
	return fmt.Sprintf("status=%d: %s", e.StatusCode, e.Message)
}

// IsTransport reports whether err is a TransportError.
func IsTransport(err error) bool {
	var te *TransportError
	return errors.As(err, &te)
}

// IsAPI reports whether err is an APIError.
func IsAPI(err error) bool {
	var ae *APIError
	return errors.As(err, &ae)
}

// Message returns the user-facing text for err: the server message of an
// APIError, a generic network message for a TransportError.
func Message(err error) string {
	if err == nil {
		return ""
	}
	var ae *APIError
	if errors.As(err, &ae) {
		if ae.Message != "" {
			return ae.Message
		}
		return fmt.Sprintf("HTTP %d %s", ae.StatusCode, http.StatusText(ae.StatusCode))
	}
	if IsTransport(err) {
		return "Network error: bot API unreachable"
	}
	return err.Error()
}

func newAPIError(status int, body []byte) *APIError {
	var env envelope
	msg := ""
	if err := json.Unmarshal(body, &env); err == nil {
		msg = env.errorText()
		if msg == "" {
			msg = env.Message
		}
	}
	if msg == "" {
		msg = strings.TrimSpace(string(body))
		if len(msg) > 200 {
			msg = msg[:200]
		}
	}
	return &APIError{StatusCode: status, Message: msg}
}
