// Copyright (c) 2025-2026 KS Foundation
// SPDX-License-Identifier: GPL-3.0-or-later

package util

import "testing"

func TestSlugify(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"simple", "Annual Health Camp", "annual-health-camp"},
		{"punctuation", "Books, Notices & More!", "books-notices-more"},
		{"accents", "Café résumé", "cafe-resume"},
		{"collapsed hyphens", "a  --  b", "a-b"},
		{"trimmed", " -edge- ", "edge"},
		{"empty", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Slugify(tt.in); got != tt.want {
				t.Errorf("Slugify(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestIsValidSlug(t *testing.T) {
	valid := []string{"a", "health-camp-2026", "x9"}
	invalid := []string{"", "-leading", "trailing-", "two--hyphens", "Upper", "spa ce"}

	for _, s := range valid {
		if !IsValidSlug(s) {
			t.Errorf("IsValidSlug(%q) = false, want true", s)
		}
	}
	for _, s := range invalid {
		if IsValidSlug(s) {
			t.Errorf("IsValidSlug(%q) = true, want false", s)
		}
	}
}
