// Copyright (c) 2025-2026 KS Foundation
// SPDX-License-Identifier: GPL-3.0-or-later

package api

import (
	"context"

	"github.com/ksfoundation/ksf-web/internal/model"
)

// Books returns the library catalogue resource. Listing supports ?search=
// over title and author plus a category filter.
func (c *Client) Books() Resource[model.Book] {
	return NewResource[model.Book](c, "/library/books/")
}

// BorrowedBooks returns the loan-tracking resource. Listing supports a
// status filter (borrowed, returned, overdue).
func (c *Client) BorrowedBooks() Resource[model.BorrowedBook] {
	return NewResource[model.BorrowedBook](c, "/library/borrowed-books/")
}

// MarkReturned closes out a loan, stamping today's date server-side, and
// returns the updated record.
func (c *Client) MarkReturned(ctx context.Context, id int64) (model.BorrowedBook, error) {
	var b model.BorrowedBook
	err := c.BorrowedBooks().Do(ctx, id, "mark_returned", &b)
	return b, err
}
