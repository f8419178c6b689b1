package logging

import (
	"bytes"
	"log/slog"
	"testing"
)

func newTestLogger(buf *EventBuffer) *slog.Logger {
	var discard bytes.Buffer
	inner := slog.NewTextHandler(&discard, &slog.HandlerOptions{Level: slog.LevelDebug})
	return slog.New(NewEventBufferHandler(inner, buf))
}

func TestEventBufferHandler_RetainsWarnAndAbove(t *testing.T) {
	buf := NewEventBuffer(10)
	logger := newTestLogger(buf)

	logger.Debug("debug message")
	logger.Info("info message")
	logger.Warn("login failed", "email", "x@y.z")
	logger.Error("fetch failed", "error", "boom")

	if got := buf.Len(); got != 2 {
		t.Fatalf("Len = %d, want 2", got)
	}

	events := buf.Recent(10)
	if events[0].Message != "fetch failed" || events[0].Level != EventLevelError {
		t.Errorf("newest event = %+v", events[0])
	}
	if events[1].Message != "login failed" || events[1].Level != EventLevelWarning {
		t.Errorf("second event = %+v", events[1])
	}
	if events[1].Attrs["email"] != "x@y.z" {
		t.Errorf("attrs = %v", events[1].Attrs)
	}
}

func TestEventBufferHandler_ExplicitCategory(t *testing.T) {
	buf := NewEventBuffer(4)
	logger := newTestLogger(buf)

	logger.Warn("something odd", "category", EventCategoryContent)

	events := buf.Recent(1)
	if events[0].Category != EventCategoryContent {
		t.Errorf("Category = %q, want %q", events[0].Category, EventCategoryContent)
	}
	if _, ok := events[0].Attrs["category"]; ok {
		t.Error("category attribute should not be duplicated into Attrs")
	}
}

func TestEventBuffer_RingEviction(t *testing.T) {
	buf := NewEventBuffer(3)
	logger := newTestLogger(buf)

	logger.Warn("one")
	logger.Warn("two")
	logger.Warn("three")
	logger.Warn("four")

	if got := buf.Len(); got != 3 {
		t.Fatalf("Len = %d, want 3", got)
	}
	events := buf.Recent(3)
	want := []string{"four", "three", "two"}
	for i, w := range want {
		if events[i].Message != w {
			t.Errorf("events[%d].Message = %q, want %q", i, events[i].Message, w)
		}
	}
}

func TestInferCategory(t *testing.T) {
	tests := []struct {
		message string
		want    string
	}{
		{"login failed for user", EventCategoryAuth},
		{"session expired", EventCategoryAuth},
		{"profile update rejected", EventCategoryUser},
		{"failed to fetch books", EventCategoryAPI},
		{"disk almost full", EventCategorySystem},
	}
	for _, tt := range tests {
		if got := inferCategory(tt.message); got != tt.want {
			t.Errorf("inferCategory(%q) = %q, want %q", tt.message, got, tt.want)
		}
	}
}
