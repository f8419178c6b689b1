// Copyright (c) 2025-2026 KS Foundation
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"log/slog"
	"net/http"

	"github.com/ksfoundation/ksf-web/internal/logging"
	"github.com/ksfoundation/ksf-web/internal/middleware"
	"github.com/ksfoundation/ksf-web/internal/model"
	"github.com/ksfoundation/ksf-web/internal/render"
	"github.com/ksfoundation/ksf-web/internal/session"
	"github.com/ksfoundation/ksf-web/internal/version"
)

// recentEvents is how many log events the dashboard activity panel shows.
const recentEvents = 15

// AdminHandler serves the back-office dashboard. The individual resource
// screens are handled by resourceScreen instances; this handler covers the
// landing page with backend statistics and recent gateway activity.
type AdminHandler struct {
	sessions *session.Store
	renderer *render.Renderer
	events   *logging.EventBuffer
	version  version.Info
}

// NewAdminHandler creates a new AdminHandler.
func NewAdminHandler(sessions *session.Store, renderer *render.Renderer, events *logging.EventBuffer, ver version.Info) *AdminHandler {
	return &AdminHandler{sessions: sessions, renderer: renderer, events: events, version: ver}
}

// DashboardData holds data for the admin dashboard template.
type DashboardData struct {
	Stats    model.DashboardStats
	StatsErr bool
	Events   []logging.Event
	Version  string
}

// Dashboard handles GET /admin. Statistics come from the backend; a fetch
// failure still renders the page with the activity panel and a notice.
func (h *AdminHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	data := DashboardData{Version: h.version.String()}

	stats, err := h.sessions.Client(r.Context()).DashboardStats(r.Context())
	if err != nil {
		if handled := redirectIfExpired(w, r, h.renderer, err); handled {
			return
		}
		slog.Warn("loading dashboard stats failed", "category", "api", "error", err)
		data.StatsErr = true
	} else {
		data.Stats = stats
	}

	if h.events != nil {
		data.Events = h.events.Recent(recentEvents)
	}

	err = h.renderer.Render(w, r, "admin/dashboard", render.TemplateData{
		Title: "Dashboard",
		User:  middleware.GetUser(r),
		Path:  r.URL.Path,
		Data:  data,
	})
	if err != nil {
		logAndInternalError(w, "rendering page failed", "template", "admin/dashboard", "error", err)
	}
}
