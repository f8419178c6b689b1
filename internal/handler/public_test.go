// Copyright (c) 2025-2026 KS Foundation
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHomeShowsFallbackSlideWhenCarouselEmpty(t *testing.T) {
	backend := newFakeBackend()
	backend.handle("/core/carousel/", emptyPage())
	backend.handle("/core/notices/", emptyPage())
	backend.handle("/health/camps/", emptyPage())
	app := newTestApp(t, backend)

	resp, body := app.get("/")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 1, strings.Count(body, "Serving the Community"),
		"exactly one fallback slide")
}

func TestHomeShowsFallbackSlideWhenCarouselFails(t *testing.T) {
	backend := newFakeBackend()
	backend.handle("/core/carousel/", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	})
	backend.handle("/core/notices/", emptyPage())
	backend.handle("/health/camps/", emptyPage())
	app := newTestApp(t, backend)

	resp, body := app.get("/")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "Serving the Community")
}

func TestHomeHidesInactiveSlides(t *testing.T) {
	backend := newFakeBackend()
	backend.handle("/core/carousel/", jsonResponse(`{"count": 2, "next": null, "results": [
		{"id": 1, "title": "Winter Drive", "image": "/media/winter.jpg", "caption": "", "is_active": true, "order": 1},
		{"id": 2, "title": "Draft Slide", "image": "/media/draft.jpg", "caption": "", "is_active": false, "order": 2}
	]}`))
	backend.handle("/core/notices/", emptyPage())
	backend.handle("/health/camps/", emptyPage())
	app := newTestApp(t, backend)

	resp, body := app.get("/")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "Winter Drive")
	assert.NotContains(t, body, "Draft Slide")
	assert.NotContains(t, body, "Serving the Community")
}

func TestHomeNoticeBoardRevealsMore(t *testing.T) {
	var results []string
	for i := 1; i <= 8; i++ {
		results = append(results,
			`{"id": `+formatID(int64(i))+`, "title": "Notice `+formatID(int64(i))+`", "content": "x", "is_active": true, "created_at": "2026-01-0`+formatID(int64(i))+`T10:00:00Z"}`)
	}
	backend := newFakeBackend()
	backend.handle("/core/carousel/", emptyPage())
	backend.handle("/core/notices/", jsonResponse(`{"count": 8, "next": null, "results": [`+strings.Join(results, ",")+`]}`))
	backend.handle("/health/camps/", emptyPage())
	app := newTestApp(t, backend)

	_, body := app.get("/")
	assert.Contains(t, body, "Notice 5")
	assert.NotContains(t, body, "Notice 6")

	_, body = app.get("/?show=10")
	assert.Contains(t, body, "Notice 8")
}

func TestLibraryFiltersPassThrough(t *testing.T) {
	backend := newFakeBackend()
	backend.handle("/library/books/", func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "Novel", q.Get("category"))
		assert.Equal(t, "available", q.Get("status"))
		assert.Equal(t, "tagore", q.Get("search"))
		emptyPage()(w, r)
	})
	app := newTestApp(t, backend)

	resp, _ := app.get("/library?search=tagore&category=Novel&status=available")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, 1, backend.countCalls("GET /library/books/"))
}

func TestLibraryAllCategoryIsNotForwarded(t *testing.T) {
	backend := newFakeBackend()
	backend.handle("/library/books/", func(w http.ResponseWriter, r *http.Request) {
		assert.Empty(t, r.URL.Query().Get("category"))
		emptyPage()(w, r)
	})
	app := newTestApp(t, backend)

	resp, _ := app.get("/library?category=All")
	require.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestBlogReadCountedOncePerSession(t *testing.T) {
	backend := newFakeBackend()
	backend.handle("/blog/posts/1/", jsonResponse(
		`{"id": 1, "title": "Annual Report", "content": "<p>hello</p>", "author": 2, "read_count": 10, "created_at": "2026-01-10T10:00:00Z"}`))
	backend.handle("/blog/posts/1/increment_read/", jsonResponse(`{}`))
	backend.handle("/blog/comments/", emptyPage())
	app := newTestApp(t, backend)

	for i := 0; i < 3; i++ {
		resp, body := app.get("/blog/1")
		require.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Contains(t, body, "Annual Report")
	}
	assert.Equal(t, 1, backend.countCalls("POST /blog/posts/1/increment_read/"),
		"read counter bumps once per session")
}

func TestBlogReadRetriedAfterIncrementFailure(t *testing.T) {
	backend := newFakeBackend()
	backend.handle("/blog/posts/1/", jsonResponse(
		`{"id": 1, "title": "Annual Report", "content": "<p>hello</p>", "author": 2, "read_count": 10, "created_at": "2026-01-10T10:00:00Z"}`))
	var attempts int32
	backend.handle("/blog/posts/1/increment_read/", func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&attempts, 1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		jsonResponse(`{}`)(w, r)
	})
	backend.handle("/blog/comments/", emptyPage())
	app := newTestApp(t, backend)

	for i := 0; i < 3; i++ {
		resp, _ := app.get("/blog/1")
		require.Equal(t, http.StatusOK, resp.StatusCode, "page still renders when the counter fails")
	}
	assert.Equal(t, 2, backend.countCalls("POST /blog/posts/1/increment_read/"),
		"failed increment retried on the next visit, then settled")
}

func TestBlogCommentRequiresLogin(t *testing.T) {
	backend := newFakeBackend()
	app := newTestApp(t, backend)

	resp, _ := app.postForm("/blog/1/comments", url.Values{"text": {"nice"}})
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Location"), "/login")
	assert.Zero(t, backend.countCalls("POST /blog/comments/"))
}

func TestContactValidationEchoesForm(t *testing.T) {
	backend := newFakeBackend()
	backend.handle("/core/contact/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"email": ["Enter a valid email address."]}`))
	})
	app := newTestApp(t, backend)

	resp, body := app.postForm("/contact", url.Values{
		"name":    {"Rahim Uddin"},
		"email":   {"not-an-email"},
		"subject": {"Books"},
		"message": {"When does the library open?"},
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "Enter a valid email address.")
	assert.Contains(t, body, "Rahim Uddin", "typed values survive a rejection")
	assert.Contains(t, body, "When does the library open?")
}

func TestContactSuccessRedirectsWithFlash(t *testing.T) {
	backend := newFakeBackend()
	backend.handle("/core/contact/", jsonResponse(`{"id": 4}`))
	app := newTestApp(t, backend)

	resp, _ := app.postForm("/contact", url.Values{
		"name":    {"Rahim Uddin"},
		"email":   {"rahim@example.org"},
		"subject": {"Books"},
		"message": {"Thanks!"},
	})
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "/contact", resp.Header.Get("Location"))

	_, body := app.get("/contact")
	assert.Contains(t, body, "Thank you for reaching out")
}

func TestHealthCampsSplitUpcomingAndCompleted(t *testing.T) {
	future := time.Now().Add(48 * time.Hour).UTC().Format(time.RFC3339)
	past := time.Now().Add(-48 * time.Hour).UTC().Format(time.RFC3339)
	backend := newFakeBackend()
	backend.handle("/health/camps/", jsonResponse(`{"count": 2, "next": null, "results": [
		{"id": 1, "title": "Eye Camp", "location": "Sylhet", "date_time": "`+future+`"},
		{"id": 2, "title": "Dental Camp", "location": "Dhaka", "date_time": "`+past+`"}
	]}`))
	app := newTestApp(t, backend)

	resp, body := app.get("/healthcamps")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "Eye Camp")
	assert.Contains(t, body, "Dental Camp")
}

func TestWarmFillsCachesThroughEveryPage(t *testing.T) {
	backend := newFakeBackend()
	backend.handle("/core/carousel/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if r.URL.Query().Get("cursor") == "p2" {
			_, _ = w.Write([]byte(`{"count": 2, "next": null, "results": [
				{"id": 2, "title": "Second", "image": "/media/b.jpg", "is_active": true, "order": 2}]}`))
			return
		}
		next := "http://" + r.Host + "/core/carousel/?cursor=p2"
		_, _ = w.Write([]byte(`{"count": 2, "next": "` + next + `", "results": [
			{"id": 1, "title": "First", "image": "/media/a.jpg", "is_active": true, "order": 1}]}`))
	})
	backend.handle("/core/notices/", emptyPage())
	backend.handle("/core/members/", emptyPage())
	backend.handle("/health/camps/", emptyPage())
	app := newTestApp(t, backend)

	require.NoError(t, app.public.Warm(context.Background()))
	require.Equal(t, 2, backend.countCalls("GET /core/carousel/"))

	// The warmed cache now serves the home page without new backend reads.
	before := backend.countCalls("GET /core/carousel/")
	_, body := app.get("/")
	assert.Contains(t, body, "First")
	assert.Contains(t, body, "Second")
	assert.Equal(t, before, backend.countCalls("GET /core/carousel/"))
}

func TestMembersOrderedByPosition(t *testing.T) {
	backend := newFakeBackend()
	backend.handle("/core/members/", jsonResponse(`{"count": 2, "next": null, "results": [
		{"id": 1, "name": "Karim Mia", "designation": "Treasurer", "order": 2},
		{"id": 2, "name": "Ayesha Begum", "designation": "President", "order": 1}
	]}`))
	app := newTestApp(t, backend)

	resp, body := app.get("/members")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	ayesha := strings.Index(body, "Ayesha Begum")
	karim := strings.Index(body, "Karim Mia")
	require.Positive(t, ayesha)
	require.Positive(t, karim)
	assert.Less(t, ayesha, karim, "president sorts before treasurer")
}
