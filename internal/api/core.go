// Copyright (c) 2025-2026 KS Foundation
// SPDX-License-Identifier: GPL-3.0-or-later

package api

import (
	"context"

	"github.com/ksfoundation/ksf-web/internal/model"
)

// Notices returns the announcements resource. Listing supports ?search=
// over title and description plus a has_attachment filter.
func (c *Client) Notices() Resource[model.Notice] {
	return NewResource[model.Notice](c, "/core/notices/")
}

// Members returns the team-member resource, ordered by display position.
func (c *Client) Members() Resource[model.Member] {
	return NewResource[model.Member](c, "/core/members/")
}

// Carousel returns the home-page slide resource.
func (c *Client) Carousel() Resource[model.CarouselSlide] {
	return NewResource[model.CarouselSlide](c, "/core/carousel/")
}

// ContactMessages returns the admin-side contact inbox resource.
func (c *Client) ContactMessages() Resource[model.ContactMessage] {
	return NewResource[model.ContactMessage](c, "/core/contact/")
}

// ContactSubmission is the public contact form payload.
type ContactSubmission struct {
	Name         string `json:"name"`
	Email        string `json:"email"`
	Subject      string `json:"subject,omitempty"`
	Message      string `json:"message"`
	CaptchaToken string `json:"recaptcha_token,omitempty"`
}

// SubmitContact files a message from the public contact form. Unlike the
// inbox resource this needs no authentication.
func (c *Client) SubmitContact(ctx context.Context, sub ContactSubmission) error {
	return c.postJSON(ctx, "/core/contact/", sub, nil)
}

// MarkMessageRead flags an inbox message as handled.
func (c *Client) MarkMessageRead(ctx context.Context, id int64) (model.ContactMessage, error) {
	return c.ContactMessages().Update(ctx, id, map[string]bool{"is_read": true})
}
