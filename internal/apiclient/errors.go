package apiclient

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// RemoteError is returned for every failed call: the server answered with a
// non-2xx status, or it could not be reached (Status 0).
type RemoteError struct {
	Status  int
	Message string

	// cause is the transport error when the server could not be reached.
	cause error
}

func (e *RemoteError) Error() string {
	if e.Status == 0 {
		return e.Message
	}
	return fmt.Sprintf("%s (status %d)", e.Message, e.Status)
}

// Unwrap returns the transport error, if any, so callers can match
// context.Canceled or context.DeadlineExceeded.
func (e *RemoteError) Unwrap() error {
	return e.cause
}

// Unauthorized reports whether the server rejected the credential.
func (e *RemoteError) Unauthorized() bool {
	return e.Status == http.StatusUnauthorized
}

// AsRemote extracts a *RemoteError from err.
func AsRemote(err error) (*RemoteError, bool) {
	var remote *RemoteError
	ok := errors.As(err, &remote)
	return remote, ok
}

// Message returns the human-readable message of err, or fallback if err
// carries none.
func Message(err error, fallback string) string {
	if remote, ok := AsRemote(err); ok && remote.Message != "" {
		return remote.Message
	}
	return fallback
}

// errorBody is the shape of an error response. Some handlers use "error"
// instead of "message".
type errorBody struct {
	Message string `json:"message"`
	Error   string `json:"error"`
}

// decodeError builds a RemoteError from a non-2xx response body. An
// unparseable body falls back to fallback.
func decodeError(status int, body []byte, fallback string) *RemoteError {
	var eb errorBody
	if err := json.Unmarshal(body, &eb); err == nil {
		if msg := strings.TrimSpace(eb.Message); msg != "" {
			return &RemoteError{Status: status, Message: msg}
		}
		if msg := strings.TrimSpace(eb.Error); msg != "" {
			return &RemoteError{Status: status, Message: msg}
		}
	}
	return &RemoteError{Status: status, Message: fallback}
}
