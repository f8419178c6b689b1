// Copyright (c) 2025-2026 KS Foundation
// SPDX-License-Identifier: GPL-3.0-or-later

package api

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// SearchDebounceInterval is the quiet period applied to free-text search
// input before a refetch fires. Keystrokes inside the window are coalesced
// into a single request carrying the final text.
const SearchDebounceInterval = 500 * time.Millisecond

// Manager is the stateful accumulator behind every resource screen: it
// holds the fetched item list, the next-page cursor, and the in-flight
// bookkeeping, and routes all mutation through local patches so a screen
// never refetches after a successful create/edit/delete.
//
// Responses are sequence-numbered: any fetch that resolves after a newer
// fetch has started is discarded, which closes the stale-response race a
// debounce-only design leaves open.
//
// The server-rendered screens drive Load and LoadMore directly; the
// browser-side search widget holds its own debounce, so SearchDebounced
// and the Apply* local patches serve long-lived holders of a Manager,
// such as the cache warmer and API consumers that keep a list resident.
type Manager[T any] struct {
	res  Resource[T]
	idOf func(T) int64

	mu          sync.Mutex
	items       []T
	next        string
	count       int
	query       Query
	seq         uint64
	loading     bool
	loadingMore bool

	debounceMu    sync.Mutex
	debounce      *time.Timer
	debounceDelay time.Duration
	closed        bool
}

// NewManager creates a manager over the given resource. idOf extracts the
// record identifier used by the local patch operations.
func NewManager[T any](res Resource[T], idOf func(T) int64) *Manager[T] {
	return &Manager[T]{
		res:           res,
		idOf:          idOf,
		debounceDelay: SearchDebounceInterval,
	}
}

// SetDebounce overrides the search quiet period. Used by tests.
func (m *Manager[T]) SetDebounce(d time.Duration) {
	m.debounceMu.Lock()
	defer m.debounceMu.Unlock()
	m.debounceDelay = d
}

// Items returns a copy of the accumulated list.
func (m *Manager[T]) Items() []T {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]T, len(m.items))
	copy(out, m.items)
	return out
}

// Count returns the server-reported total, or the local length for
// unpaginated responses.
func (m *Manager[T]) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.count
}

// HasMore reports whether a further page cursor is held.
func (m *Manager[T]) HasMore() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.next != ""
}

// Loading reports whether an initial load is in flight.
func (m *Manager[T]) Loading() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.loading
}

// LoadingMore reports whether a load-more fetch is in flight.
func (m *Manager[T]) LoadingMore() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.loadingMore
}

// Query returns the current query.
func (m *Manager[T]) Query() Query {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.query
}

// SetQuery replaces the query and refetches immediately, resetting the
// accumulated list. Used for filter changes, which are never debounced.
func (m *Manager[T]) SetQuery(ctx context.Context, q Query) error {
	m.mu.Lock()
	m.query = q
	m.mu.Unlock()
	return m.Refresh(ctx)
}

// SetFilter sets one categorical filter and refetches immediately.
func (m *Manager[T]) SetFilter(ctx context.Context, key, value string) error {
	m.mu.Lock()
	m.query = m.query.WithFilter(key, value)
	m.mu.Unlock()
	return m.Refresh(ctx)
}

// Refresh fetches the first page for the current query, replacing the
// accumulated list. Concurrent refreshes resolve in favor of the newest.
func (m *Manager[T]) Refresh(ctx context.Context) error {
	m.mu.Lock()
	m.seq++
	seq := m.seq
	m.loading = true
	q := m.query
	m.mu.Unlock()

	page, err := m.res.List(ctx, q)

	m.mu.Lock()
	defer m.mu.Unlock()
	if seq != m.seq {
		// A newer fetch superseded this one while it was in flight.
		slog.Debug("discarding stale list response", "category", "api", "path", m.res.Path())
		return nil
	}
	m.loading = false
	if err != nil {
		return err
	}
	m.items = page.Results
	m.next = page.Next
	m.count = page.Count
	return nil
}

// SearchDebounced schedules a refetch for the given free-text value after
// the quiet period, superseding any pending trigger. The request carries
// only the final text, no matter how many keystrokes arrived in between.
func (m *Manager[T]) SearchDebounced(ctx context.Context, text string) {
	m.mu.Lock()
	m.query.Search = text
	m.mu.Unlock()

	m.debounceMu.Lock()
	defer m.debounceMu.Unlock()
	if m.closed {
		return
	}
	if m.debounce != nil {
		m.debounce.Stop()
	}
	m.debounce = time.AfterFunc(m.debounceDelay, func() {
		if err := m.Refresh(ctx); err != nil {
			slog.Warn("debounced search fetch failed", "category", "api", "path", m.res.Path(), "error", err)
		}
	})
}

// LoadMore fetches the held cursor's page and appends its results, never
// replacing what is already accumulated. The cursor is replaced by whatever
// the response provides, which may be none, terminating pagination.
func (m *Manager[T]) LoadMore(ctx context.Context) error {
	m.mu.Lock()
	next := m.next
	if next == "" || m.loadingMore {
		m.mu.Unlock()
		return nil
	}
	seq := m.seq
	m.loadingMore = true
	m.mu.Unlock()

	page, err := m.res.ListNext(ctx, next)

	m.mu.Lock()
	defer m.mu.Unlock()
	m.loadingMore = false
	if seq != m.seq {
		return nil
	}
	if err != nil {
		return err
	}
	m.items = append(m.items, page.Results...)
	m.next = page.Next
	if page.Count > 0 {
		m.count = page.Count
	}
	return nil
}

// ApplyCreate prepends a newly created item to the visible list.
func (m *Manager[T]) ApplyCreate(item T) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items = append([]T{item}, m.items...)
	m.count++
}

// ApplyUpdate replaces the matching item in place. Unknown IDs are ignored.
func (m *Manager[T]) ApplyUpdate(item T) {
	id := m.idOf(item)
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.items {
		if m.idOf(m.items[i]) == id {
			m.items[i] = item
			return
		}
	}
}

// ApplyDelete removes the matching item from the visible list.
func (m *Manager[T]) ApplyDelete(id int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.items {
		if m.idOf(m.items[i]) == id {
			m.items = append(m.items[:i], m.items[i+1:]...)
			if m.count > 0 {
				m.count--
			}
			return
		}
	}
}

// Close cancels any pending debounced trigger. In-flight requests are not
// aborted; their responses are discarded by sequence number.
func (m *Manager[T]) Close() {
	m.debounceMu.Lock()
	defer m.debounceMu.Unlock()
	m.closed = true
	if m.debounce != nil {
		m.debounce.Stop()
		m.debounce = nil
	}
}
