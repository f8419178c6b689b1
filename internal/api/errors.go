// Copyright (c) 2025-2026 KS Foundation
// SPDX-License-Identifier: GPL-3.0-or-later

package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Sentinel errors for the common failure classes. Handlers branch on these
// with errors.Is; everything else is surfaced as a transient notification.
var (
	// ErrSessionExpired is returned after the 401 cascade has cleared the
	// stored tokens. The caller is expected to redirect to the login page.
	ErrSessionExpired = errors.New("session expired")

	// ErrNotFound is returned for 404 responses on a specific record.
	ErrNotFound = errors.New("not found")

	// ErrForbidden is returned for 403 responses.
	ErrForbidden = errors.New("forbidden")

	// ErrCaptcha is returned when the backend rejects the bot-mitigation token.
	ErrCaptcha = errors.New("captcha verification failed")
)

// Error is a decoded content-API error response. DRF-style bodies carry
// either a "detail" string or a map of field names to message lists; both
// shapes land here.
type Error struct {
	StatusCode int
	Detail     string
	Fields     map[string][]string
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("api: %d: %s", e.StatusCode, e.Detail)
	}
	if len(e.Fields) > 0 {
		parts := make([]string, 0, len(e.Fields))
		for field, msgs := range e.Fields {
			parts = append(parts, field+": "+strings.Join(msgs, "; "))
		}
		return fmt.Sprintf("api: %d: %s", e.StatusCode, strings.Join(parts, ", "))
	}
	return fmt.Sprintf("api: %d", e.StatusCode)
}

// Is maps status codes onto the sentinel errors so callers can use errors.Is
// without digging into the struct.
func (e *Error) Is(target error) bool {
	switch target {
	case ErrNotFound:
		return e.StatusCode == http.StatusNotFound
	case ErrForbidden:
		return e.StatusCode == http.StatusForbidden
	case ErrCaptcha:
		_, ok := e.Fields["recaptcha"]
		return ok
	}
	return false
}

// IsUnauthorized reports whether err is a 401 from a cascade-exempt
// endpoint, or the cascade sentinel itself.
func IsUnauthorized(err error) bool {
	if errors.Is(err, ErrSessionExpired) {
		return true
	}
	var apiErr *Error
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusUnauthorized
}

// FieldError returns the first message for a field, or "".
func (e *Error) FieldError(field string) string {
	if msgs, ok := e.Fields[field]; ok && len(msgs) > 0 {
		return msgs[0]
	}
	return ""
}

// Message returns a human-readable summary suitable for a flash notification.
func (e *Error) Message() string {
	if e.Detail != "" {
		return e.Detail
	}
	if msg := e.FieldError("recaptcha"); msg != "" {
		return msg
	}
	for _, msgs := range e.Fields {
		if len(msgs) > 0 {
			return msgs[0]
		}
	}
	return http.StatusText(e.StatusCode)
}

// decodeError builds an *Error from a non-2xx response body. The body may be
// {"detail": "..."}, a field-error map, or not JSON at all.
func decodeError(statusCode int, body []byte) *Error {
	apiErr := &Error{StatusCode: statusCode}
	if len(body) == 0 {
		return apiErr
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(body, &raw); err != nil {
		return apiErr
	}

	for key, val := range raw {
		var s string
		if err := json.Unmarshal(val, &s); err == nil {
			if key == "detail" || key == "error" || key == "status" {
				apiErr.Detail = s
				continue
			}
			if apiErr.Fields == nil {
				apiErr.Fields = make(map[string][]string)
			}
			apiErr.Fields[key] = []string{s}
			continue
		}
		var list []string
		if err := json.Unmarshal(val, &list); err == nil && len(list) > 0 {
			if apiErr.Fields == nil {
				apiErr.Fields = make(map[string][]string)
			}
			apiErr.Fields[key] = list
		}
	}
	return apiErr
}
