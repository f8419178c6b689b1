// Copyright (c) 2025-2026 KS Foundation
// SPDX-License-Identifier: GPL-3.0-or-later

// Package api is the typed client for the content API. It owns bearer-token
// attachment, the session-expiry cascade, pagination decoding, and the
// generic resource/manager abstractions the admin screens are built on.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// TokenSource supplies the bearer token for outgoing requests and clears it
// when the session-expiry cascade fires. The production implementation is
// backed by the server session; tests use an in-memory one.
type TokenSource interface {
	// Access returns the current access token, or "" when logged out.
	Access(ctx context.Context) string

	// Clear removes the persisted token pair.
	Clear(ctx context.Context)
}

// StaticTokens is a fixed TokenSource, used by tests and one-shot calls.
type StaticTokens struct {
	token   string
	cleared bool
}

// NewStaticTokens returns a TokenSource that always yields token.
func NewStaticTokens(token string) *StaticTokens {
	return &StaticTokens{token: token}
}

// Access implements TokenSource.
func (s *StaticTokens) Access(context.Context) string {
	if s.cleared {
		return ""
	}
	return s.token
}

// Clear implements TokenSource.
func (s *StaticTokens) Clear(context.Context) { s.cleared = true }

// Cleared reports whether the cascade cleared this source.
func (s *StaticTokens) Cleared() bool { return s.cleared }

// exemptPaths are never subject to the session-expiry cascade: a 401 from
// login means bad credentials, a 401 from the identity or refresh endpoint
// is the expiry signal itself. Exempting them keeps invalid-login handling
// and expired-session handling from looping into each other.
var exemptPaths = []string{
	"/auth/login/",
	"/auth/me/",
	"/auth/token/refresh/",
}

const defaultTimeout = 15 * time.Second

// Client talks to the content API.
type Client struct {
	baseURL string
	http    *http.Client
	tokens  TokenSource

	// expired, when set, is invoked once per cascade so the owning session
	// can be destroyed alongside the tokens.
	expired func(ctx context.Context)
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithTokenSource sets the bearer-token source.
func WithTokenSource(ts TokenSource) Option {
	return func(c *Client) { c.tokens = ts }
}

// WithExpiredHook sets the callback invoked when the expiry cascade fires.
func WithExpiredHook(fn func(ctx context.Context)) Option {
	return func(c *Client) { c.expired = fn }
}

// NewClient creates a content-API client for the given base URL
// (e.g. http://localhost:8000/api).
func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: defaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL returns the configured API base URL.
func (c *Client) BaseURL() string { return c.baseURL }

// WithTokens returns a shallow copy of the client bound to a different token
// source. Used to scope the shared client to one request's session.
func (c *Client) WithTokens(ts TokenSource, expired func(ctx context.Context)) *Client {
	clone := *c
	clone.tokens = ts
	clone.expired = expired
	return &clone
}

func (c *Client) url(path string, query url.Values) string {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	return u
}

func isExempt(rawURL string) bool {
	for _, p := range exemptPaths {
		if strings.Contains(rawURL, p) {
			return true
		}
	}
	return false
}

// do issues one request and decodes the response into out (when non-nil).
// Non-2xx responses become *Error; a non-exempt 401 additionally triggers
// the session-expiry cascade and returns ErrSessionExpired.
func (c *Client) do(ctx context.Context, method, rawURL string, body io.Reader, contentType string, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, rawURL, body)
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("Accept", "application/json")
	if c.tokens != nil {
		if token := c.tokens.Access(ctx); token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, rawURL, err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode == http.StatusUnauthorized && !isExempt(rawURL) {
		// Session expiry cascade: clear tokens once, notify, and hand the
		// caller a sentinel it can turn into a login redirect.
		slog.Warn("session expired, clearing tokens", "category", "auth", "url", rawURL)
		if c.tokens != nil {
			c.tokens.Clear(ctx)
		}
		if c.expired != nil {
			c.expired(ctx)
		}
		return ErrSessionExpired
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeError(resp.StatusCode, respBody)
	}

	if out == nil || len(respBody) == 0 {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("decoding %s %s response: %w", method, rawURL, err)
	}
	return nil
}

func (c *Client) get(ctx context.Context, path string, query url.Values, out any) error {
	return c.do(ctx, http.MethodGet, c.url(path, query), nil, "", out)
}

// getURL follows an absolute URL, used for the opaque "next" page cursor.
func (c *Client) getURL(ctx context.Context, rawURL string, out any) error {
	return c.do(ctx, http.MethodGet, rawURL, nil, "", out)
}

func (c *Client) postJSON(ctx context.Context, path string, payload, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encoding payload: %w", err)
	}
	return c.do(ctx, http.MethodPost, c.url(path, nil), bytes.NewReader(body), "application/json", out)
}

func (c *Client) patchJSON(ctx context.Context, path string, payload, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encoding payload: %w", err)
	}
	return c.do(ctx, http.MethodPatch, c.url(path, nil), bytes.NewReader(body), "application/json", out)
}

func (c *Client) postForm(ctx context.Context, path string, form *Form, out any) error {
	body, contentType, err := form.Encode()
	if err != nil {
		return err
	}
	return c.do(ctx, http.MethodPost, c.url(path, nil), body, contentType, out)
}

func (c *Client) patchForm(ctx context.Context, path string, form *Form, out any) error {
	body, contentType, err := form.Encode()
	if err != nil {
		return err
	}
	return c.do(ctx, http.MethodPatch, c.url(path, nil), body, contentType, out)
}

func (c *Client) delete(ctx context.Context, path string) error {
	return c.do(ctx, http.MethodDelete, c.url(path, nil), nil, "", nil)
}
