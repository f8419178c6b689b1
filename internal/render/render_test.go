// Copyright (c) 2025-2026 KS Foundation
// SPDX-License-Identifier: GPL-3.0-or-later

package render

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"testing/fstest"
	"time"

	"github.com/alexedwards/scs/v2"

	"github.com/ksfoundation/ksf-web/internal/model"
)

func testTemplatesFS() fstest.MapFS {
	return fstest.MapFS{
		"layouts/base.html": {Data: []byte(
			`{{define "base"}}<html><body>{{if .Flash}}<div class="flash {{.FlashType}}">{{.Flash}}</div>{{end}}{{template "content" .}}</body></html>{{end}}`,
		)},
		"layouts/admin.html": {Data: []byte(
			`{{define "admin-shell"}}<nav>admin</nav>{{end}}`,
		)},
		"partials/card.html": {Data: []byte(
			`{{define "card"}}<div class="card">{{.}}</div>{{end}}`,
		)},
		"public/home.html": {Data: []byte(
			`{{define "content"}}<h1>{{.Title}}</h1>{{template "card" "x"}}{{end}}`,
		)},
		"admin/books.html": {Data: []byte(
			`{{define "content"}}{{template "admin-shell" .}}<p>{{.Title}}</p>{{end}}`,
		)},
	}
}

func newTestRenderer(t *testing.T, sm *scs.SessionManager) *Renderer {
	t.Helper()
	r, err := New(Config{
		TemplatesFS:    testTemplatesFS(),
		SessionManager: sm,
		RecaptchaKey:   "site-key",
		IsDev:          true,
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return r
}

func TestRenderPublicPage(t *testing.T) {
	r := newTestRenderer(t, nil)

	rec := httptest.NewRecorder()
	err := r.Render(rec, httptest.NewRequest(http.MethodGet, "/", nil), "public/home", TemplateData{Title: "Welcome"})
	if err != nil {
		t.Fatalf("Render() error = %v", err)
	}

	body := rec.Body.String()
	if !strings.Contains(body, "<h1>Welcome</h1>") {
		t.Errorf("body missing page content: %q", body)
	}
	if !strings.Contains(body, `<div class="card">x</div>`) {
		t.Errorf("body missing partial: %q", body)
	}
	if got := rec.Header().Get("Content-Type"); got != "text/html; charset=utf-8" {
		t.Errorf("Content-Type = %q", got)
	}
}

func TestRenderAdminPageUsesShell(t *testing.T) {
	r := newTestRenderer(t, nil)

	rec := httptest.NewRecorder()
	err := r.Render(rec, httptest.NewRequest(http.MethodGet, "/admin/books", nil), "admin/books", TemplateData{Title: "Books"})
	if err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	if !strings.Contains(rec.Body.String(), "<nav>admin</nav>") {
		t.Errorf("admin shell missing: %q", rec.Body.String())
	}
}

func TestRenderUnknownTemplate(t *testing.T) {
	r := newTestRenderer(t, nil)
	err := r.Render(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil), "public/nope", TemplateData{})
	if err == nil {
		t.Error("Render() of unknown template succeeded, want error")
	}
}

func TestRenderFlashMessage(t *testing.T) {
	sm := scs.New()
	sm.Lifetime = time.Hour
	ctx, err := sm.Load(context.Background(), "")
	if err != nil {
		t.Fatalf("Load(): %v", err)
	}

	r := newTestRenderer(t, sm)
	req := httptest.NewRequest(http.MethodGet, "/", nil).WithContext(ctx)
	r.SetFlash(req, "Book created", "success")

	rec := httptest.NewRecorder()
	if err := r.Render(rec, req, "public/home", TemplateData{Title: "Home"}); err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	if !strings.Contains(rec.Body.String(), `<div class="flash success">Book created</div>`) {
		t.Errorf("flash missing: %q", rec.Body.String())
	}

	// Flash is consumed on first render.
	rec = httptest.NewRecorder()
	if err := r.Render(rec, req, "public/home", TemplateData{Title: "Home"}); err != nil {
		t.Fatalf("second Render() error = %v", err)
	}
	if strings.Contains(rec.Body.String(), "Book created") {
		t.Error("flash survived a second render")
	}
}

func TestTemplateFuncFormatDate(t *testing.T) {
	r := newTestRenderer(t, nil)
	fn := r.templateFuncs()["formatDate"].(func(model.Date) string)

	if got := fn(model.NewDate(2026, time.March, 5)); got != "Mar 5, 2026" {
		t.Errorf("formatDate = %q", got)
	}
	if got := fn(model.Date{}); got != "" {
		t.Errorf("formatDate(zero) = %q, want empty", got)
	}
}
