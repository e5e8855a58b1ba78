package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
)

// AuthError represents a request the server understood and rejected: bad
// credentials, a banned account, an expired session. Detail carries the
// human-readable message the server attached.
type AuthError struct {
	StatusCode int
	Detail     string
}

// Error implements the error interface
func (e *AuthError) Error() string {
	return e.Detail
}

// Is matches any *AuthError regardless of status or detail, so callers can
// write errors.Is(err, &AuthError{}).
func (e *AuthError) Is(target error) bool {
	targetErr, ok := target.(*AuthError)
	if !ok {
		return false
	}
	if targetErr.StatusCode != 0 && e.StatusCode != targetErr.StatusCode {
		return false
	}
	if targetErr.Detail != "" && e.Detail != targetErr.Detail {
		return false
	}
	return true
}

// IsAuthError extracts an AuthError from an error chain.
func IsAuthError(err error) (*AuthError, bool) {
	var authErr *AuthError
	if errors.As(err, &authErr) {
		return authErr, true
	}
	return nil, false
}

// errorBody is the shape the server uses for rejections.
type errorBody struct {
	Detail string `json:"detail"`
}

// errorFromResponse turns a non-2xx response into an AuthError, falling
// back to the HTTP status text when the body carries no detail.
func errorFromResponse(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))

	var eb errorBody
	if err := json.Unmarshal(body, &eb); err == nil && eb.Detail != "" {
		return &AuthError{StatusCode: resp.StatusCode, Detail: eb.Detail}
	}

	return &AuthError{
		StatusCode: resp.StatusCode,
		Detail:     fmt.Sprintf("request failed: %s", http.StatusText(resp.StatusCode)),
	}
}
