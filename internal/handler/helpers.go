// Copyright (c) 2025-2026 KS Foundation
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/ksfoundation/ksf-web/internal/api"
	"github.com/ksfoundation/ksf-web/internal/model"
	"github.com/ksfoundation/ksf-web/internal/render"
)

// StaffRoles are the roles admitted to the back-office.
var StaffRoles = []string{model.RoleStaff, model.RoleAdmin}

// flashAndRedirect sets a flash message and redirects to the given URL.
// Uses http.StatusSeeOther (303) for POST/PUT/DELETE redirects.
func flashAndRedirect(w http.ResponseWriter, r *http.Request, renderer *render.Renderer, url, message, messageType string) {
	renderer.SetFlash(r, message, messageType)
	http.Redirect(w, r, url, http.StatusSeeOther)
}

// flashError sets an error flash message and redirects to the given URL.
func flashError(w http.ResponseWriter, r *http.Request, renderer *render.Renderer, url, message string) {
	flashAndRedirect(w, r, renderer, url, message, "error")
}

// flashSuccess sets a success flash message and redirects to the given URL.
func flashSuccess(w http.ResponseWriter, r *http.Request, renderer *render.Renderer, url, message string) {
	flashAndRedirect(w, r, renderer, url, message, "success")
}

// parseFormOrRedirect parses the request form and redirects with an error
// message on failure. Returns true if parsing succeeded.
func parseFormOrRedirect(w http.ResponseWriter, r *http.Request, renderer *render.Renderer, redirectURL string) bool {
	if err := r.ParseForm(); err != nil {
		flashError(w, r, renderer, redirectURL, "Invalid form data")
		return false
	}
	return true
}

// logAndInternalError logs an error and writes a 500 response.
func logAndInternalError(w http.ResponseWriter, logMsg string, args ...any) {
	slog.Error(logMsg, args...)
	http.Error(w, "Internal Server Error", http.StatusInternalServerError)
}

// idParam parses the {id} chi route parameter.
func idParam(r *http.Request) (int64, error) {
	return int64Param(r, "id")
}

// int64Param extracts a named numeric route parameter.
func int64Param(r *http.Request, name string) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, name), 10, 64)
}

func formatID(id int64) string {
	return strconv.FormatInt(id, 10)
}

// loginURLFor builds the login redirect preserving the current location.
func loginURLFor(r *http.Request) string {
	target := "/login"
	if dest := r.URL.RequestURI(); dest != "/" && dest != "" {
		target += "?next=" + url.QueryEscape(dest)
	}
	return target
}

// handleAPIError translates a content-API failure into the right page-level
// response: expired sessions go back through login, missing records turn
// into a not-found flash, everything else surfaces the backend's message.
func handleAPIError(w http.ResponseWriter, r *http.Request, renderer *render.Renderer, redirectURL string, err error) {
	switch {
	case errors.Is(err, api.ErrSessionExpired):
		renderer.SetFlash(r, "Your session has expired. Please sign in again.", "error")
		http.Redirect(w, r, loginURLFor(r), http.StatusSeeOther)
	case errors.Is(err, api.ErrNotFound):
		flashError(w, r, renderer, redirectURL, "Not found")
	case errors.Is(err, api.ErrForbidden):
		flashError(w, r, renderer, redirectURL, "You do not have permission to do that")
	default:
		var apiErr *api.Error
		if errors.As(err, &apiErr) {
			flashError(w, r, renderer, redirectURL, apiErr.Message())
			return
		}
		slog.Error("api request failed", "category", "api", "path", r.URL.Path, "error", err)
		flashError(w, r, renderer, redirectURL, "Something went wrong. Please try again.")
	}
}

// safeNext returns the validated ?next= destination, or fallback. Only
// same-site paths are accepted; anything absolute is an open redirect.
func safeNext(r *http.Request, fallback string) string {
	next := r.FormValue("next")
	if next == "" {
		next = r.URL.Query().Get("next")
	}
	if next == "" || !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") {
		return fallback
	}
	return next
}

// parseUpload parses a form that may carry file parts. Plain urlencoded
// submissions (no file chosen, scripted clients) pass through unchanged.
func parseUpload(r *http.Request) error {
	if err := r.ParseMultipartForm(MaxUploadSize); err != nil {
		if errors.Is(err, http.ErrNotMultipart) {
			return r.ParseForm()
		}
		return err
	}
	return nil
}

// showParam parses the ?show=N reveal parameter used by the notice board
// and comment threads, bounded to what was actually fetched.
func showParam(r *http.Request, initial, max int) int {
	show := initial
	if raw := r.URL.Query().Get("show"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > initial {
			show = n
		}
	}
	if show > max {
		show = max
	}
	return show
}

// redirectIfExpired sends the user to the login screen when err is the
// session-expiry cascade, and reports whether it did. Callers that can
// degrade gracefully on other errors use this instead of handleAPIError.
func redirectIfExpired(w http.ResponseWriter, r *http.Request, renderer *render.Renderer, err error) bool {
	if !errors.Is(err, api.ErrSessionExpired) {
		return false
	}
	flashError(w, r, renderer, loginURLFor(r), "Your session has expired. Please sign in again.")
	return true
}

// maxLoadPages caps how many cursor pages a single request may walk, so a
// crafted ?pages= value cannot fan out into unbounded backend calls.
const maxLoadPages = 20

// pagesParam parses the ?pages=N load-more parameter (1 when absent).
func pagesParam(r *http.Request) int {
	pages := 1
	if raw := r.URL.Query().Get("pages"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 1 {
			pages = n
		}
	}
	if pages > maxLoadPages {
		pages = maxLoadPages
	}
	return pages
}

// fetchPages lists up to n pages of res, following the backend cursor, and
// returns the accumulated results, the total count, and whether more pages
// remain.
func fetchPages[T any](ctx context.Context, res api.Resource[T], q api.Query, n int) ([]T, int, bool, error) {
	page, err := res.List(ctx, q)
	if err != nil {
		return nil, 0, false, err
	}
	items := page.Results
	count := page.Count
	for i := 1; i < n && page.Next != ""; i++ {
		page, err = res.ListNext(ctx, page.Next)
		if err != nil {
			return nil, 0, false, err
		}
		items = append(items, page.Results...)
		if page.Count > 0 {
			count = page.Count
		}
	}
	return items, count, page.Next != "", nil
}

// fieldErrors extracts the field->message map from a backend validation
// failure for inline form rendering, or nil when err carries none.
func fieldErrors(err error) map[string]string {
	var apiErr *api.Error
	if !errors.As(err, &apiErr) || len(apiErr.Fields) == 0 {
		return nil
	}
	out := make(map[string]string, len(apiErr.Fields))
	for field, msgs := range apiErr.Fields {
		if len(msgs) > 0 {
			out[field] = msgs[0]
		}
	}
	return out
}
