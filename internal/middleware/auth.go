// Copyright (c) 2025-2026 KS Foundation
// SPDX-License-Identifier: GPL-3.0-or-later

// Package middleware provides HTTP middleware for authentication,
// authorization, and request context handling.
package middleware

import (
	"context"
	"net/http"
	"net/url"

	"github.com/ksfoundation/ksf-web/internal/model"
	"github.com/ksfoundation/ksf-web/internal/session"
)

// ContextKey is a type for context keys to avoid collisions.
type ContextKey string

// Context keys for request-scoped data.
const (
	ContextKeyUser        ContextKey = "user"
	ContextKeyRequestPath ContextKey = "request_path"
)

// LoadUser creates middleware that resolves the signed-in user into the
// request context. Anonymous requests pass through with no user; a session
// the backend rejected is already destroyed by the time this returns.
func LoadUser(store *session.Store) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, err := store.FetchUser(r.Context())
			if err != nil || user == nil {
				next.ServeHTTP(w, r)
				return
			}
			ctx := context.WithValue(r.Context(), ContextKeyUser, user)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// Auth creates middleware that requires a signed-in user. Unauthenticated
// requests are redirected to the login page with the original URL carried
// in ?next= so login can return the user where they were headed.
func Auth() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if GetUser(r) == nil {
				target := "/login"
				if dest := r.URL.RequestURI(); dest != "/" && dest != "" {
					target += "?next=" + url.QueryEscape(dest)
				}
				http.Redirect(w, r, target, http.StatusSeeOther)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireRole creates middleware that restricts a route to the given roles.
// STAFF additionally requires admin approval; signed-in users lacking the
// role land on the home page rather than an error screen.
func RequireRole(roles ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user := GetUser(r)
			if user == nil {
				http.Redirect(w, r, "/login", http.StatusSeeOther)
				return
			}
			if !roleAllowed(user, roles) {
				http.Redirect(w, r, "/", http.StatusSeeOther)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func roleAllowed(user *model.User, roles []string) bool {
	for _, role := range roles {
		switch role {
		case model.RoleAdmin:
			if user.IsAdmin() {
				return true
			}
		case model.RoleStaff:
			if user.IsStaff() {
				return true
			}
		default:
			if user.Role == role {
				return true
			}
		}
	}
	return false
}

// GetUser retrieves the current user from the request context.
// Returns nil if no user is in context.
func GetUser(r *http.Request) *model.User {
	user, ok := r.Context().Value(ContextKeyUser).(*model.User)
	if !ok {
		return nil
	}
	return user
}

// RequestPath creates middleware that stores the request path in context
// for templates that highlight the active navigation item.
func RequestPath() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := context.WithValue(r.Context(), ContextKeyRequestPath, r.URL.Path)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetRequestPath retrieves the request path from context, or "".
func GetRequestPath(r *http.Request) string {
	path, _ := r.Context().Value(ContextKeyRequestPath).(string)
	return path
}
