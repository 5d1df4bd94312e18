package api

import (
	"fmt"
	"net/http"
)

// APIError is a structured error decoded from the server's error body.
// ErrorCode carries the server's numeric code (1xxx validation, 2xxx
// drop lifecycle, 3xxx auth and limits, 4xxx internal) so callers can
// tell, say, an expired drop from a burned one behind the same 410.
type APIError struct {
	Status    int
	Code      string
	ErrorCode int
	Message   string
}

func (e *APIError) Error() string {
	if e == nil {
		return ""
	}
	msg := e.Message
	if msg == "" && e.Status > 0 {
		msg = http.StatusText(e.Status)
	}
	if msg == "" {
		return "drop server error"
	}
	if e.ErrorCode > 0 {
		return fmt.Sprintf("%s (code %d)", msg, e.ErrorCode)
	}
	return msg
}

// Gone reports whether the drop reached a terminal state: expired,
// burned, or past its retrieval limit.
func (e *APIError) Gone() bool {
	return e != nil && e.Status == http.StatusGone
}

// InvalidPassword reports whether the server rejected the password.
func (e *APIError) InvalidPassword() bool {
	return e != nil && e.Status == http.StatusUnauthorized
}

// Throttled reports whether retrieval attempts are being rate limited.
func (e *APIError) Throttled() bool {
	return e != nil && e.Status == http.StatusTooManyRequests
}
