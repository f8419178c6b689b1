// Copyright (c) 2025-2026 KS Foundation
// SPDX-License-Identifier: GPL-3.0-or-later

package model

import "time"

// Notice is a notice-board entry, optionally carrying a file attachment.
type Notice struct {
	ID         int64     `json:"id"`
	Title      string    `json:"title"`
	Content    string    `json:"content"`
	Attachment *string   `json:"attachment,omitempty"`
	IsActive   bool      `json:"is_active"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// HasAttachment reports whether the notice carries a downloadable file.
func (n Notice) HasAttachment() bool {
	return n.Attachment != nil && *n.Attachment != ""
}

// Member is a committee/team member shown on the members page, ordered by
// the Order field.
type Member struct {
	ID            int64   `json:"id"`
	Name          string  `json:"name"`
	Designation   string  `json:"designation"`
	Bio           string  `json:"bio"`
	Image         *string `json:"image,omitempty"`
	ContactNumber string  `json:"contact_number"`
	Email         string  `json:"email"`
	Order         int     `json:"order"`
}

// CarouselSlide is a home-page carousel entry. Only active slides are shown,
// ordered by the Order field.
type CarouselSlide struct {
	ID       int64  `json:"id"`
	Title    string `json:"title"`
	Image    string `json:"image"`
	Caption  string `json:"caption"`
	IsActive bool   `json:"is_active"`
	Order    int    `json:"order"`
}

// ContactMessage is a submission from the public contact form.
type ContactMessage struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Subject   string    `json:"subject"`
	Message   string    `json:"message"`
	IsRead    bool      `json:"is_read"`
	CreatedAt time.Time `json:"created_at"`
}
