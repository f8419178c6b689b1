// Copyright (c) 2025-2026 KS Foundation
// SPDX-License-Identifier: GPL-3.0-or-later

package api

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestClientAttachesBearerToken(t *testing.T) {
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id": 1, "email": "a@b.c"}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, WithTokenSource(NewStaticTokens("tok123")))
	if _, err := c.Me(context.Background()); err != nil {
		t.Fatalf("Me() error = %v", err)
	}
	if gotAuth != "Bearer tok123" {
		t.Errorf("Authorization = %q, want %q", gotAuth, "Bearer tok123")
	}
}

func TestClientOmitsHeaderWhenLoggedOut(t *testing.T) {
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		_, _ = w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, WithTokenSource(NewStaticTokens("")))
	if _, err := c.Carousel().List(context.Background(), Query{}); err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if gotAuth != "" {
		t.Errorf("Authorization = %q, want empty", gotAuth)
	}
}

func TestClientExpiryCascade(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"detail": "Token is invalid or expired"}`, http.StatusUnauthorized)
	}))
	defer srv.Close()

	tokens := NewStaticTokens("stale")
	hookFired := false
	c := NewClient(srv.URL,
		WithTokenSource(tokens),
		WithExpiredHook(func(context.Context) { hookFired = true }))

	_, err := c.Books().List(context.Background(), Query{})
	if !errors.Is(err, ErrSessionExpired) {
		t.Fatalf("List() error = %v, want ErrSessionExpired", err)
	}
	if !tokens.Cleared() {
		t.Error("token source not cleared by cascade")
	}
	if !hookFired {
		t.Error("expired hook not invoked")
	}
}

func TestClientExemptPathsSkipCascade(t *testing.T) {
	tests := []struct {
		name string
		call func(c *Client) error
	}{
		{"login", func(c *Client) error {
			_, err := c.Login(context.Background(), Credentials{Email: "a@b.c", Password: "nope"})
			return err
		}},
		{"me", func(c *Client) error {
			_, err := c.Me(context.Background())
			return err
		}},
		{"refresh", func(c *Client) error {
			_, err := c.Refresh(context.Background(), "stale")
			return err
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, `{"detail": "No active account found"}`, http.StatusUnauthorized)
			}))
			defer srv.Close()

			tokens := NewStaticTokens("tok")
			c := NewClient(srv.URL, WithTokenSource(tokens))

			err := tt.call(c)
			if errors.Is(err, ErrSessionExpired) {
				t.Fatal("exempt endpoint triggered the expiry cascade")
			}
			var apiErr *Error
			if !errors.As(err, &apiErr) {
				t.Fatalf("error = %v, want *Error", err)
			}
			if apiErr.StatusCode != http.StatusUnauthorized {
				t.Errorf("StatusCode = %d, want 401", apiErr.StatusCode)
			}
			if tokens.Cleared() {
				t.Error("token source cleared by an exempt endpoint")
			}
		})
	}
}

func TestClientDecodesFieldErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"email": ["This field is required."], "recaptcha": ["Invalid token"]}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	err := c.Register(context.Background(), Registration{})
	var apiErr *Error
	if !errors.As(err, &apiErr) {
		t.Fatalf("error = %v, want *Error", err)
	}
	if got := apiErr.FieldError("email"); got != "This field is required." {
		t.Errorf("FieldError(email) = %q", got)
	}
	if !errors.Is(err, ErrCaptcha) {
		t.Error("recaptcha field error does not match ErrCaptcha")
	}
}

func TestClientNotFoundSentinel(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"detail": "Not found."}`, http.StatusNotFound)
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	_, err := c.Posts().Get(context.Background(), 999)
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("Get() error = %v, want ErrNotFound", err)
	}
}

func TestClientRefreshKeepsRefreshToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access": "fresh-access"}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	pair, err := c.Refresh(context.Background(), "keep-me")
	if err != nil {
		t.Fatalf("Refresh() error = %v", err)
	}
	if pair.Access != "fresh-access" {
		t.Errorf("Access = %q", pair.Access)
	}
	if pair.Refresh != "keep-me" {
		t.Errorf("Refresh = %q, want original token retained", pair.Refresh)
	}
}

func TestDecodeErrorShapes(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		wantDetail string
		wantField  string
		wantMsg    string
	}{
		{"detail", `{"detail": "Permission denied"}`, "Permission denied", "", ""},
		{"error key", `{"error": "Something broke"}`, "Something broke", "", ""},
		{"field string", `{"title": "Too long"}`, "", "title", "Too long"},
		{"field list", `{"title": ["Too long", "Also bad"]}`, "", "title", "Too long"},
		{"not json", `<html>gateway timeout</html>`, "", "", ""},
		{"empty", ``, "", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := decodeError(http.StatusBadRequest, []byte(tt.body))
			if e.Detail != tt.wantDetail {
				t.Errorf("Detail = %q, want %q", e.Detail, tt.wantDetail)
			}
			if tt.wantField != "" {
				if got := e.FieldError(tt.wantField); got != tt.wantMsg {
					t.Errorf("FieldError(%q) = %q, want %q", tt.wantField, got, tt.wantMsg)
				}
			}
		})
	}
}
