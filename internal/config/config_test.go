// Copyright (c) 2025-2026 KS Foundation
// SPDX-License-Identifier: GPL-3.0-or-later

package config

import (
	"strings"
	"testing"
)

const validSecret = "Abcdefghij1234567890!@#$%^&*()xy"

func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("KSF_SESSION_SECRET", validSecret)
}

func TestLoadDefaults(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.ServerAddr() != "localhost:8080" {
		t.Errorf("ServerAddr = %q, want localhost:8080", cfg.ServerAddr())
	}
	if !cfg.IsDevelopment() {
		t.Error("expected development mode by default")
	}
	if cfg.RecaptchaEnabled() {
		t.Error("recaptcha should be disabled without a site key")
	}
	if cfg.UseRedisCache() {
		t.Error("redis cache should be disabled without a URL")
	}
}

func TestAPIURLDerivedFromHost(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("KSF_SERVER_HOST", "example.org")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if got := cfg.APIURL(); got != "http://example.org:8000/api" {
		t.Errorf("APIURL = %q", got)
	}
}

func TestAPIURLExplicitTrimsSlash(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("KSF_API_BASE_URL", "https://api.ksfoundation.org/api/")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if got := cfg.APIURL(); got != "https://api.ksfoundation.org/api" {
		t.Errorf("APIURL = %q", got)
	}
}

func TestLoadRejectsShortSecret(t *testing.T) {
	t.Setenv("KSF_SESSION_SECRET", "too-short")

	if _, err := Load(); err == nil {
		t.Fatal("expected error for short session secret")
	}
}

func TestLoadRejectsKnownWeakSecret(t *testing.T) {
	t.Setenv("KSF_SESSION_SECRET", "change-me-to-32-byte-secret-key!")

	_, err := Load()
	if err == nil {
		t.Fatal("expected error for known weak secret")
	}
	if !strings.Contains(err.Error(), "known default") {
		t.Errorf("unexpected error message: %v", err)
	}
}

func TestHasMinimumEntropy(t *testing.T) {
	tests := []struct {
		name   string
		secret string
		want   bool
	}{
		{"three classes", "abcDEF123", true},
		{"four classes", "abcDEF123!@#", true},
		{"lowercase only", "abcdefghijkl", false},
		{"two classes", "abcdef123456", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := hasMinimumEntropy(tt.secret); got != tt.want {
				t.Errorf("hasMinimumEntropy(%q) = %v, want %v", tt.secret, got, tt.want)
			}
		})
	}
}
