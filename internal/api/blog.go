// Copyright (c) 2025-2026 KS Foundation
// SPDX-License-Identifier: GPL-3.0-or-later

package api

import (
	"context"
	"strconv"

	"github.com/ksfoundation/ksf-web/internal/model"
)

// Posts returns the blog resource. Listing supports ?search= over title
// and content.
func (c *Client) Posts() Resource[model.BlogPost] {
	return NewResource[model.BlogPost](c, "/blog/posts/")
}

// IncrementRead bumps a post's read counter. Called at most once per
// session per post; the session layer tracks which posts were counted.
func (c *Client) IncrementRead(ctx context.Context, id int64) error {
	return c.Posts().Do(ctx, id, "increment_read", nil)
}

// Comments returns the comment resource. Listing filters by post via the
// post query parameter.
func (c *Client) Comments() Resource[model.Comment] {
	return NewResource[model.Comment](c, "/blog/comments/")
}

// PostComments lists all comments for one post.
func (c *Client) PostComments(ctx context.Context, postID int64) (Page[model.Comment], error) {
	q := Query{}.WithFilter("post", strconv.FormatInt(postID, 10))
	return c.Comments().List(ctx, q)
}
