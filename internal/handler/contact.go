// Copyright (c) 2025-2026 KS Foundation
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"errors"
	"net/http"
	"strings"

	"github.com/ksfoundation/ksf-web/internal/api"
	"github.com/ksfoundation/ksf-web/internal/middleware"
	"github.com/ksfoundation/ksf-web/internal/render"
	"github.com/ksfoundation/ksf-web/internal/session"
)

// ContactHandler serves the public contact form.
type ContactHandler struct {
	sessions *session.Store
	renderer *render.Renderer
}

// NewContactHandler creates a new ContactHandler.
func NewContactHandler(sessions *session.Store, renderer *render.Renderer) *ContactHandler {
	return &ContactHandler{sessions: sessions, renderer: renderer}
}

// ContactData holds data for the contact template. Form fields are echoed
// back so a validation failure does not lose what the visitor typed.
type ContactData struct {
	Form   api.ContactSubmission
	Errors map[string]string
}

// Show handles GET /contact.
func (h *ContactHandler) Show(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, ContactData{})
}

// Submit handles POST /contact - forwards the submission, captcha token
// included, to the backend and re-renders with inline errors on rejection.
func (h *ContactHandler) Submit(w http.ResponseWriter, r *http.Request) {
	if !parseFormOrRedirect(w, r, h.renderer, "/contact") {
		return
	}

	form := api.ContactSubmission{
		Name:         strings.TrimSpace(r.FormValue("name")),
		Email:        strings.TrimSpace(r.FormValue("email")),
		Subject:      strings.TrimSpace(r.FormValue("subject")),
		Message:      strings.TrimSpace(r.FormValue("message")),
		CaptchaToken: r.FormValue("g-recaptcha-response"),
	}

	err := h.sessions.Anonymous().SubmitContact(r.Context(), form)
	if err != nil {
		if errs := fieldErrors(err); errs != nil {
			h.render(w, r, ContactData{Form: form, Errors: errs})
			return
		}
		if errors.Is(err, api.ErrCaptcha) {
			h.renderer.SetFlash(r, "Captcha verification failed. Please try again.", "error")
			h.render(w, r, ContactData{Form: form})
			return
		}
		handleAPIError(w, r, h.renderer, "/contact", err)
		return
	}

	flashSuccess(w, r, h.renderer, "/contact", "Thank you for reaching out. We will get back to you soon.")
}

func (h *ContactHandler) render(w http.ResponseWriter, r *http.Request, data ContactData) {
	err := h.renderer.Render(w, r, "public/contact", render.TemplateData{
		Title: "Contact Us",
		User:  middleware.GetUser(r),
		Path:  r.URL.Path,
		Data:  data,
	})
	if err != nil {
		logAndInternalError(w, "rendering page failed", "template", "public/contact", "error", err)
	}
}
