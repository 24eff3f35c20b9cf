package testutils

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

// MockHandler records the log calls going through it and implements slog.Handler.
// It is safe for concurrent use, and handlers derived with WithAttrs or WithGroup share its records.
type MockHandler struct {
	// IgnoreBelow is the highest level not handled.
	IgnoreBelow slog.Level

	mu      *sync.Mutex
	records *[]slog.Record
}

// NewMockHandler returns a new MockHandler.
// Records with a level <= ignoreBelow are not handled.
func NewMockHandler(ignoreBelow slog.Level) *MockHandler {
	return &MockHandler{
		IgnoreBelow: ignoreBelow,
		mu:          &sync.Mutex{},
		records:     &[]slog.Record{},
	}
}

// Logger returns a logger writing to h.
func (h *MockHandler) Logger() *slog.Logger {
	return slog.New(h)
}

// Records returns a copy of the handled records.
func (h *MockHandler) Records() []slog.Record {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]slog.Record(nil), *h.records...)
}

// Levels returns how many records were handled per level.
func (h *MockHandler) Levels() map[slog.Level]uint {
	levels := make(map[slog.Level]uint)
	for _, r := range h.Records() {
		levels[r.Level]++
	}
	return levels
}

// AssertLevels asserts that the handled records match the expected count per level.
// A nil levels asserts nothing was logged.
func (h *MockHandler) AssertLevels(t *testing.T, levels map[slog.Level]uint) bool {
	t.Helper()

	if levels == nil {
		return assert.Empty(t, h.Records(), "expected no log records")
	}
	return assert.Equal(t, levels, h.Levels(), "unexpected log levels")
}

// Contains reports whether a record of level has a message containing msg.
func (h *MockHandler) Contains(level slog.Level, msg string) bool {
	for _, r := range h.Records() {
		if r.Level == level && strings.Contains(r.Message, msg) {
			return true
		}
	}
	return false
}

// OutputLogs outputs the handled records in a readable format.
func (h *MockHandler) OutputLogs(t *testing.T) {
	t.Helper()

	for _, r := range h.Records() {
		t.Logf("Logged %v %s:", r.Level, r.Message)
		r.Attrs(func(attr slog.Attr) bool {
			t.Log(attr.String())
			return true
		})
	}
}

// Enabled implements Handler.Enabled.
func (h *MockHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level > h.IgnoreBelow
}

// Handle implements Handler.Handle.
func (h *MockHandler) Handle(_ context.Context, record slog.Record) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	*h.records = append(*h.records, record.Clone())
	return nil
}

// WithAttrs implements Handler.WithAttrs.
func (h *MockHandler) WithAttrs([]slog.Attr) slog.Handler {
	return h
}

// WithGroup implements Handler.WithGroup.
func (h *MockHandler) WithGroup(string) slog.Handler {
	return h
}
