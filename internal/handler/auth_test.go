// Copyright (c) 2025-2026 KS Foundation
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"encoding/json"
	"net/http"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ksfoundation/ksf-web/internal/model"
)

func TestLoginRedirectsStaffToBackOffice(t *testing.T) {
	backend := newFakeBackend()
	backend.allowLogin(t, model.RoleAdmin, true)
	app := newTestApp(t, backend)

	resp := app.login("staff@ksf.org", "secret")
	assert.Equal(t, "/admin", resp.Header.Get("Location"))
}

func TestLoginRedirectsRegularUserHome(t *testing.T) {
	backend := newFakeBackend()
	backend.allowLogin(t, model.RoleUser, false)
	app := newTestApp(t, backend)

	resp := app.login("reader@ksf.org", "secret")
	assert.Equal(t, "/", resp.Header.Get("Location"))
}

func TestLoginHonorsNextParameter(t *testing.T) {
	backend := newFakeBackend()
	backend.allowLogin(t, model.RoleUser, false)
	app := newTestApp(t, backend)

	resp, _ := app.postForm("/login", url.Values{
		"email":    {"reader@ksf.org"},
		"password": {"secret"},
		"next":     {"/blog/3"},
	})
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "/blog/3", resp.Header.Get("Location"))
}

func TestLoginRejectsExternalNext(t *testing.T) {
	backend := newFakeBackend()
	backend.allowLogin(t, model.RoleUser, false)
	app := newTestApp(t, backend)

	resp, _ := app.postForm("/login", url.Values{
		"email":    {"reader@ksf.org"},
		"password": {"secret"},
		"next":     {"https://evil.example/phish"},
	})
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "/", resp.Header.Get("Location"))
}

func TestLoginWrongPasswordStaysAnonymous(t *testing.T) {
	backend := newFakeBackend()
	backend.handle("/auth/login/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"detail": "No active account found with the given credentials"}`))
	})
	app := newTestApp(t, backend)

	resp, _ := app.postForm("/login", url.Values{
		"email":    {"reader@ksf.org"},
		"password": {"wrong"},
	})
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "/login", resp.Header.Get("Location"))

	// The flash message lands on the next page load.
	resp, body := app.get("/login")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "Invalid email or password.")

	// Still anonymous: the back-office stays behind the login wall.
	resp, _ = app.get("/admin")
	assert.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Location"), "/login")
}

func TestLoginLockoutAfterRepeatedFailures(t *testing.T) {
	backend := newFakeBackend()
	backend.handle("/auth/login/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"detail": "No active account found with the given credentials"}`))
	})
	app := newTestApp(t, backend)

	form := url.Values{"email": {"reader@ksf.org"}, "password": {"wrong"}}
	for i := 0; i < 5; i++ {
		app.postForm("/login", form)
	}
	loginCalls := backend.countCalls("POST /auth/login/")

	// The account is now locked; the backend is no longer consulted.
	resp, _ := app.postForm("/login", form)
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, loginCalls, backend.countCalls("POST /auth/login/"))

	_, body := app.get("/login")
	assert.Contains(t, body, "locked")
}

func TestBackOfficeRequiresStaffRole(t *testing.T) {
	backend := newFakeBackend()
	backend.allowLogin(t, model.RoleUser, false)
	app := newTestApp(t, backend)

	// Anonymous visitors are sent to login with the destination preserved.
	resp, _ := app.get("/admin")
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "/login?next=%2Fadmin", resp.Header.Get("Location"))

	// A signed-in regular user lands back on the home page.
	app.login("reader@ksf.org", "secret")
	resp, _ = app.get("/admin")
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "/", resp.Header.Get("Location"))
}

func TestUnapprovedStaffCannotEnterBackOffice(t *testing.T) {
	backend := newFakeBackend()
	backend.allowLogin(t, model.RoleStaff, false)
	app := newTestApp(t, backend)

	app.login("applicant@ksf.org", "secret")
	resp, _ := app.get("/admin")
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "/", resp.Header.Get("Location"))
}

func TestLogoutClearsSession(t *testing.T) {
	backend := newFakeBackend()
	backend.allowLogin(t, model.RoleAdmin, true)
	app := newTestApp(t, backend)

	app.login("staff@ksf.org", "secret")

	resp, _ := app.postForm("/logout", url.Values{})
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "/", resp.Header.Get("Location"))

	resp, _ = app.get("/admin")
	assert.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Location"), "/login")
}

func TestUsersScreenIsAdminOnly(t *testing.T) {
	backend := newFakeBackend()
	backend.allowLogin(t, model.RoleStaff, true)
	backend.handle("/auth/manage/", emptyPage())
	app := newTestApp(t, backend)

	app.login("staff@ksf.org", "secret")
	resp, _ := app.get("/admin/users")
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "/", resp.Header.Get("Location"))
	assert.Zero(t, backend.countCalls("GET /auth/manage/"))
}

// requirePasswordFields decodes a JSON body and 400s unless every listed
// field is present and non-empty, the way a DRF serializer would.
func requirePasswordFields(got *map[string]string, fields ...string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(got)
		for _, field := range fields {
			if (*got)[field] == "" {
				w.WriteHeader(http.StatusBadRequest)
				return
			}
		}
		w.WriteHeader(http.StatusOK)
	}
}

func TestChangePasswordSendsUpdateWithConfirm(t *testing.T) {
	backend := newFakeBackend()
	backend.allowLogin(t, model.RoleUser, false)
	var got map[string]string
	fields := requirePasswordFields(&got, "old_password", "new_password", "confirm_password")
	backend.handle("/auth/change-password/", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPatch && r.Method != http.MethodPut {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		fields(w, r)
	})
	app := newTestApp(t, backend)
	app.login("user@ksf.org", "secret")

	resp, _ := app.postForm("/profile/password", url.Values{
		"old_password":     {"old-secret"},
		"new_password":     {"new-secret-9"},
		"confirm_password": {"new-secret-9"},
	})
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "/profile", resp.Header.Get("Location"))
	assert.Equal(t, 1, backend.countCalls("PATCH /auth/change-password/"))
	assert.Equal(t, "old-secret", got["old_password"])
	assert.Equal(t, "new-secret-9", got["confirm_password"])

	_, body := app.get("/profile")
	assert.Contains(t, body, "Password changed.")
}

func TestPasswordResetLinkCarriesUserAndToken(t *testing.T) {
	backend := newFakeBackend()
	var got map[string]string
	fields := requirePasswordFields(&got, "password", "confirm_password", "token", "uidb64")
	backend.handle("/auth/password-reset-confirm/", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPatch {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		fields(w, r)
	})
	app := newTestApp(t, backend)

	resp, body := app.get("/password-reset/dXNlcjk/tok-4af1")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, `action="/password-reset/dXNlcjk/tok-4af1"`)

	resp, _ = app.postForm("/password-reset/dXNlcjk/tok-4af1", url.Values{
		"password":         {"new-secret-9"},
		"confirm_password": {"new-secret-9"},
	})
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "/login", resp.Header.Get("Location"))
	assert.Equal(t, 1, backend.countCalls("PATCH /auth/password-reset-confirm/"))
	assert.Equal(t, "dXNlcjk", got["uidb64"])
	assert.Equal(t, "tok-4af1", got["token"])
}

func TestPasswordResetExpiredTokenShowsError(t *testing.T) {
	backend := newFakeBackend()
	backend.handle("/auth/password-reset-confirm/", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error": "Token is not valid, please request a new one"}`))
	})
	app := newTestApp(t, backend)

	resp, _ := app.postForm("/password-reset/dXNlcjk/stale", url.Values{
		"password":         {"new-secret-9"},
		"confirm_password": {"new-secret-9"},
	})
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "/forgot-password", resp.Header.Get("Location"))
}
