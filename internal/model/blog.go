// Copyright (c) 2025-2026 KS Foundation
// SPDX-License-Identifier: GPL-3.0-or-later

package model

import "time"

// BlogPost is a blog entry with backend-supplied rich-text content.
// Content is sanitized before rendering; it is never trusted as-is.
type BlogPost struct {
	ID         int64     `json:"id"`
	Title      string    `json:"title"`
	Content    string    `json:"content"`
	Author     int64     `json:"author"`
	AuthorName string    `json:"author_name"`
	Image      *string   `json:"image,omitempty"`
	ReadCount  int       `json:"read_count"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// DisplayAuthor returns the display-name override when set.
func (p BlogPost) DisplayAuthor() string {
	if p.AuthorName != "" {
		return p.AuthorName
	}
	return "KS Foundation"
}

// Comment is a reader comment on a blog post.
type Comment struct {
	ID        int64     `json:"id"`
	Post      int64     `json:"post"`
	User      int64     `json:"user"`
	UserName  string    `json:"user_name,omitempty"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"created_at"`
}

// CanModify reports whether the given user may edit or delete the comment.
// Owners may modify their own comments; admins may modify any.
func (c Comment) CanModify(u *User) bool {
	if u == nil {
		return false
	}
	return u.ID == c.User || u.IsAdmin()
}
