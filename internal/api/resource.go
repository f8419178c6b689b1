// Copyright (c) 2025-2026 KS Foundation
// SPDX-License-Identifier: GPL-3.0-or-later

package api

import (
	"context"
	"fmt"
	"net/url"
)

// Query carries the list parameters every collection endpoint understands:
// free-text search, categorical filters, and a page-size hint.
type Query struct {
	Search   string
	Filters  url.Values
	PageSize int
}

// Values renders the query as URL parameters.
func (q Query) Values() url.Values {
	v := url.Values{}
	if q.Search != "" {
		v.Set("search", q.Search)
	}
	for key, vals := range q.Filters {
		for _, val := range vals {
			if val != "" {
				v.Add(key, val)
			}
		}
	}
	if q.PageSize > 0 {
		v.Set("page_size", fmt.Sprintf("%d", q.PageSize))
	}
	return v
}

// WithFilter returns a copy of the query with one filter set.
func (q Query) WithFilter(key, value string) Query {
	filters := url.Values{}
	for k, vals := range q.Filters {
		filters[k] = append([]string(nil), vals...)
	}
	if value == "" {
		filters.Del(key)
	} else {
		filters.Set(key, value)
	}
	q.Filters = filters
	return q
}

// Resource is the typed CRUD surface over one collection endpoint. Every
// managed entity (books, notices, users, ...) is an instantiation of this
// one abstraction.
type Resource[T any] struct {
	client *Client
	path   string // collection path with trailing slash, e.g. "/library/books/"
}

// NewResource creates a resource bound to a collection path.
func NewResource[T any](c *Client, path string) Resource[T] {
	return Resource[T]{client: c, path: path}
}

// Path returns the collection path.
func (r Resource[T]) Path() string { return r.path }

// List fetches the first page matching the query.
func (r Resource[T]) List(ctx context.Context, q Query) (Page[T], error) {
	var page Page[T]
	if err := r.client.get(ctx, r.path, q.Values(), &page); err != nil {
		return Page[T]{}, err
	}
	return page, nil
}

// ListNext follows an opaque next-page cursor returned by a prior List.
func (r Resource[T]) ListNext(ctx context.Context, next string) (Page[T], error) {
	var page Page[T]
	if err := r.client.getURL(ctx, next, &page); err != nil {
		return Page[T]{}, err
	}
	return page, nil
}

// Get fetches one record by ID.
func (r Resource[T]) Get(ctx context.Context, id int64) (T, error) {
	var item T
	if err := r.client.get(ctx, r.itemPath(id), nil, &item); err != nil {
		var zero T
		return zero, err
	}
	return item, nil
}

// Create posts a new record. A *Form payload is sent as multipart when it
// carries a file part; any other payload is sent as JSON.
func (r Resource[T]) Create(ctx context.Context, payload any) (T, error) {
	var item T
	var err error
	if form, ok := payload.(*Form); ok {
		err = r.client.postForm(ctx, r.path, form, &item)
	} else {
		err = r.client.postJSON(ctx, r.path, payload, &item)
	}
	if err != nil {
		var zero T
		return zero, err
	}
	return item, nil
}

// Update patches an existing record by ID, with the same payload handling
// as Create.
func (r Resource[T]) Update(ctx context.Context, id int64, payload any) (T, error) {
	var item T
	var err error
	if form, ok := payload.(*Form); ok {
		err = r.client.patchForm(ctx, r.itemPath(id), form, &item)
	} else {
		err = r.client.patchJSON(ctx, r.itemPath(id), payload, &item)
	}
	if err != nil {
		var zero T
		return zero, err
	}
	return item, nil
}

// Delete removes a record by ID.
func (r Resource[T]) Delete(ctx context.Context, id int64) error {
	return r.client.delete(ctx, r.itemPath(id))
}

// Do invokes a side-effecting action endpoint nested under a record, e.g.
// mark_returned or toggle-staff. The decoded response lands in out when
// non-nil.
func (r Resource[T]) Do(ctx context.Context, id int64, action string, out any) error {
	return r.client.postJSON(ctx, r.itemPath(id)+action+"/", struct{}{}, out)
}

func (r Resource[T]) itemPath(id int64) string {
	return fmt.Sprintf("%s%d/", r.path, id)
}
