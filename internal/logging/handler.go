// Package logging provides a custom slog handler that retains WARN and ERROR
// records in a bounded in-memory buffer, surfaced as the "recent activity"
// panel on the admin dashboard.
package logging

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"
)

// Event levels.
const (
	EventLevelInfo    = "info"
	EventLevelWarning = "warning"
	EventLevelError   = "error"
)

// Event categories.
const (
	EventCategoryAuth    = "auth"
	EventCategoryContent = "content"
	EventCategoryUser    = "user"
	EventCategoryAPI     = "api"
	EventCategorySystem  = "system"
)

// Event is a retained log record.
type Event struct {
	Time     time.Time
	Level    string
	Category string
	Message  string
	Attrs    map[string]string
}

// EventBuffer is a fixed-capacity ring of recent events. Safe for
// concurrent use.
type EventBuffer struct {
	mu     sync.RWMutex
	events []Event
	next   int
	filled bool
}

// NewEventBuffer creates a buffer retaining up to capacity events.
func NewEventBuffer(capacity int) *EventBuffer {
	if capacity < 1 {
		capacity = 1
	}
	return &EventBuffer{events: make([]Event, capacity)}
}

// Add appends an event, evicting the oldest when full.
func (b *EventBuffer) Add(e Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events[b.next] = e
	b.next++
	if b.next == len(b.events) {
		b.next = 0
		b.filled = true
	}
}

// Recent returns up to n events, newest first.
func (b *EventBuffer) Recent(n int) []Event {
	b.mu.RLock()
	defer b.mu.RUnlock()

	size := b.next
	if b.filled {
		size = len(b.events)
	}
	if n > size {
		n = size
	}

	out := make([]Event, 0, n)
	for i := 1; i <= n; i++ {
		idx := (b.next - i + len(b.events)) % len(b.events)
		out = append(out, b.events[idx])
	}
	return out
}

// Len returns the number of retained events.
func (b *EventBuffer) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.filled {
		return len(b.events)
	}
	return b.next
}

// EventBufferHandler is a slog.Handler that wraps another handler and also
// retains WARN and ERROR level records in an EventBuffer.
type EventBufferHandler struct {
	inner  slog.Handler
	buffer *EventBuffer
	level  slog.Level
	attrs  []slog.Attr
}

// NewEventBufferHandler creates a handler that wraps the given handler.
// Records at WARN level and above are retained in the buffer.
func NewEventBufferHandler(inner slog.Handler, buffer *EventBuffer) *EventBufferHandler {
	return &EventBufferHandler{
		inner:  inner,
		buffer: buffer,
		level:  slog.LevelWarn,
	}
}

// Enabled implements slog.Handler.
func (h *EventBufferHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.inner.Enabled(ctx, level)
}

// Handle implements slog.Handler.
func (h *EventBufferHandler) Handle(ctx context.Context, r slog.Record) error {
	if err := h.inner.Handle(ctx, r); err != nil {
		return err
	}
	if r.Level >= h.level {
		h.buffer.Add(h.toEvent(r))
	}
	return nil
}

// WithAttrs implements slog.Handler.
func (h *EventBufferHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &EventBufferHandler{
		inner:  h.inner.WithAttrs(attrs),
		buffer: h.buffer,
		level:  h.level,
		attrs:  append(append([]slog.Attr{}, h.attrs...), attrs...),
	}
}

// WithGroup implements slog.Handler.
func (h *EventBufferHandler) WithGroup(name string) slog.Handler {
	return &EventBufferHandler{
		inner:  h.inner.WithGroup(name),
		buffer: h.buffer,
		level:  h.level,
		attrs:  h.attrs,
	}
}

func (h *EventBufferHandler) toEvent(r slog.Record) Event {
	e := Event{
		Time:    r.Time,
		Level:   slogLevelToEventLevel(r.Level),
		Message: r.Message,
		Attrs:   make(map[string]string),
	}
	for _, a := range h.attrs {
		e.Attrs[a.Key] = a.Value.String()
	}
	r.Attrs(func(a slog.Attr) bool {
		if a.Key == "category" {
			e.Category = a.Value.String()
			return true
		}
		e.Attrs[a.Key] = a.Value.String()
		return true
	})
	if e.Category == "" {
		e.Category = inferCategory(r.Message)
	}
	return e
}

func slogLevelToEventLevel(level slog.Level) string {
	switch {
	case level >= slog.LevelError:
		return EventLevelError
	case level >= slog.LevelWarn:
		return EventLevelWarning
	default:
		return EventLevelInfo
	}
}

// inferCategory guesses a category from the message text when no explicit
// "category" attribute is present.
func inferCategory(message string) string {
	msg := strings.ToLower(message)
	switch {
	case strings.Contains(msg, "login") || strings.Contains(msg, "logout") || strings.Contains(msg, "auth") || strings.Contains(msg, "session"):
		return EventCategoryAuth
	case strings.Contains(msg, "user") || strings.Contains(msg, "profile"):
		return EventCategoryUser
	case strings.Contains(msg, "fetch") || strings.Contains(msg, "request") || strings.Contains(msg, "api"):
		return EventCategoryAPI
	case strings.Contains(msg, "book") || strings.Contains(msg, "notice") || strings.Contains(msg, "post") || strings.Contains(msg, "camp") || strings.Contains(msg, "slide"):
		return EventCategoryContent
	default:
		return EventCategorySystem
	}
}
