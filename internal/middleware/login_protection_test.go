// Copyright (c) 2025-2026 KS Foundation
// SPDX-License-Identifier: GPL-3.0-or-later

package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestLoginProtectionAccountLockout(t *testing.T) {
	lp := NewLoginProtection(LoginProtectionConfig{
		MaxFailedAttempts: 3,
		LockoutDuration:   time.Minute,
		AttemptWindow:     time.Minute,
	})

	email := "user@ksf.org"
	if locked, _ := lp.IsAccountLocked(email); locked {
		t.Fatal("fresh account reported locked")
	}

	lp.RecordFailedAttempt(email)
	lp.RecordFailedAttempt(email)
	if got := lp.GetRemainingAttempts(email); got != 1 {
		t.Errorf("GetRemainingAttempts() = %d, want 1", got)
	}

	locked, dur := lp.RecordFailedAttempt(email)
	if !locked {
		t.Fatal("third failure did not lock the account")
	}
	if dur != time.Minute {
		t.Errorf("lock duration = %v, want 1m", dur)
	}
	if locked, _ := lp.IsAccountLocked(email); !locked {
		t.Error("IsAccountLocked() = false after lockout")
	}

	// Other accounts are unaffected.
	if locked, _ := lp.IsAccountLocked("other@ksf.org"); locked {
		t.Error("unrelated account reported locked")
	}
}

func TestLoginProtectionSuccessClearsAttempts(t *testing.T) {
	lp := NewLoginProtection(LoginProtectionConfig{MaxFailedAttempts: 3})

	email := "user@ksf.org"
	lp.RecordFailedAttempt(email)
	lp.RecordFailedAttempt(email)
	lp.RecordSuccessfulLogin(email)

	if got := lp.GetRemainingAttempts(email); got != 3 {
		t.Errorf("GetRemainingAttempts() = %d after success, want 3", got)
	}
}

func TestLoginProtectionMiddlewareThrottlesPosts(t *testing.T) {
	lp := NewLoginProtection(LoginProtectionConfig{
		IPRateLimit: 1,
		IPBurst:     2,
	})
	handler := lp.Middleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	post := func() int {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/login", nil)
		req.Header.Set("X-Real-IP", "203.0.113.9")
		handler.ServeHTTP(rec, req)
		return rec.Code
	}

	if got := post(); got != http.StatusOK {
		t.Fatalf("first POST status = %d", got)
	}
	if got := post(); got != http.StatusOK {
		t.Fatalf("second POST status = %d", got)
	}
	if got := post(); got != http.StatusTooManyRequests {
		t.Errorf("burst-exceeding POST status = %d, want 429", got)
	}

	// GET requests are never throttled.
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/login", nil)
	req.Header.Set("X-Real-IP", "203.0.113.9")
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("GET status = %d, want 200", rec.Code)
	}
}

func TestGetClientIP(t *testing.T) {
	tests := []struct {
		name    string
		headers map[string]string
		remote  string
		want    string
	}{
		{"x-real-ip", map[string]string{"X-Real-IP": "198.51.100.1"}, "10.0.0.1:1234", "198.51.100.1"},
		{"x-forwarded-for", map[string]string{"X-Forwarded-For": "198.51.100.2"}, "10.0.0.1:1234", "198.51.100.2"},
		{"remote addr", nil, "192.0.2.1:4321", "192.0.2.1:4321"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tt.remote
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			if got := GetClientIP(req); got != tt.want {
				t.Errorf("GetClientIP() = %q, want %q", got, tt.want)
			}
		})
	}
}
