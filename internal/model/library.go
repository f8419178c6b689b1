// Copyright (c) 2025-2026 KS Foundation
// SPDX-License-Identifier: GPL-3.0-or-later

package model

import "time"

// BookCategories is the fixed category list offered by the catalog filters
// and the admin book form.
var BookCategories = []string{
	"Novel",
	"Children",
	"Academic",
	"Islamic",
	"Fiction",
	"Non-Fiction",
	"General Knowledge",
	"Science Fiction",
	"Self Help",
	"History",
	"Poetry",
	"Biography",
	"Other",
}

// Book is a library catalog entry.
type Book struct {
	ID           int64     `json:"id"`
	Title        string    `json:"title"`
	BengaliTitle *string   `json:"bengali_title,omitempty"`
	Author       string    `json:"author"`
	Category     string    `json:"category"`
	SerialNumber string    `json:"serial_number"`
	Description  string    `json:"description"`
	CoverImage   *string   `json:"cover_image,omitempty"`
	IsAvailable  bool      `json:"is_available"`
	Quantity     int       `json:"quantity"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// BorrowedBook is a loan record attached to a book.
type BorrowedBook struct {
	ID           int64     `json:"id"`
	Book         int64     `json:"book"`
	BookTitle    string    `json:"book_title,omitempty"`
	BookSerial   string    `json:"book_serial,omitempty"`
	BorrowerName string    `json:"borrower_name"`
	BorrowDate   Date      `json:"borrow_date"`
	ReturnDate   Date      `json:"return_date"`
	IsReturned   bool      `json:"is_returned"`
	ReturnedDate *Date     `json:"returned_date,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

// IsOverdue reports whether an unreturned loan is past its due date.
func (b BorrowedBook) IsOverdue() bool {
	if b.IsReturned || b.ReturnDate.IsZero() {
		return false
	}
	return b.ReturnDate.Before(Today().Time)
}
