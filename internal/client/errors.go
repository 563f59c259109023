package client

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/bytedance/sonic"
)

// APIError is a non-2xx response from the server.
type APIError struct {
	StatusCode int    `json:"-"`
	Message    string `json:"error"`
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("termhost: HTTP %d", e.StatusCode)
	}
	return fmt.Sprintf("termhost: HTTP %d: %s", e.StatusCode, e.Message)
}

// decodeError fills e from an {"error": ...} body, falling back to the raw
// text.
func decodeError(body []byte, e *APIError) error {
	if err := sonic.Unmarshal(body, e); err != nil || e.Message == "" {
		e.Message = strings.TrimSpace(string(body))
		return err
	}
	return nil
}

func statusOf(err error) int {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode
	}
	return 0
}

// IsNotFound reports whether err is a 404 from the server.
func IsNotFound(err error) bool {
	return statusOf(err) == http.StatusNotFound
}

// IsConflict reports whether err is a 409 (name taken or capacity reached).
func IsConflict(err error) bool {
	return statusOf(err) == http.StatusConflict
}

// IsTimeout reports whether err is a 504 from an exec that ran out of time.
func IsTimeout(err error) bool {
	return statusOf(err) == http.StatusGatewayTimeout
}

// clientSide reports whether err is the caller's fault. Such errors say
// nothing about the server's health and do not trip the breaker.
func clientSide(err error) bool {
	status := statusOf(err)
	return status >= 400 && status < 500
}
