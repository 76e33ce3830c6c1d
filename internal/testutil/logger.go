package testutil

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"
)

// TestLogger captures structured logs for assertion in tests.
type TestLogger struct {
	Logger *slog.Logger

	mu      sync.RWMutex
	entries []LogEntry
}

// LogEntry represents a captured log entry. Attrs include those added with
// Logger.With, keyed by their group path.
type LogEntry struct {
	Time    time.Time
	Level   slog.Level
	Message string
	Attrs   map[string]any
}

// NewTestLogger creates a debug-level logger that records every entry.
func NewTestLogger(t *testing.T) *TestLogger {
	t.Helper()
	tl := &TestLogger{}
	tl.Logger = slog.New(&captureHandler{sink: tl})
	return tl
}

type captureHandler struct {
	sink  *TestLogger
	attrs []slog.Attr
	group string
}

func (h *captureHandler) Enabled(context.Context, slog.Level) bool { return true }

func (h *captureHandler) Handle(_ context.Context, r slog.Record) error {
	entry := LogEntry{
		Time:    r.Time,
		Level:   r.Level,
		Message: r.Message,
		Attrs:   make(map[string]any, len(h.attrs)+r.NumAttrs()),
	}
	for _, a := range h.attrs {
		entry.Attrs[a.Key] = a.Value.Any()
	}
	r.Attrs(func(a slog.Attr) bool {
		entry.Attrs[h.key(a.Key)] = a.Value.Any()
		return true
	})

	h.sink.mu.Lock()
	h.sink.entries = append(h.sink.entries, entry)
	h.sink.mu.Unlock()
	return nil
}

func (h *captureHandler) key(k string) string {
	if h.group == "" {
		return k
	}
	return h.group + "." + k
}

func (h *captureHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	next := &captureHandler{sink: h.sink, group: h.group}
	next.attrs = append(next.attrs, h.attrs...)
	for _, a := range attrs {
		next.attrs = append(next.attrs, slog.Attr{Key: h.key(a.Key), Value: a.Value})
	}
	return next
}

func (h *captureHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	return &captureHandler{sink: h.sink, attrs: h.attrs, group: h.key(name)}
}

// Entries returns a copy of all captured log entries.
func (l *TestLogger) Entries() []LogEntry {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]LogEntry, len(l.entries))
	copy(out, l.entries)
	return out
}

// Find returns the entries whose message contains substring.
func (l *TestLogger) Find(substring string) []LogEntry {
	var out []LogEntry
	for _, e := range l.Entries() {
		if strings.Contains(e.Message, substring) {
			out = append(out, e)
		}
	}
	return out
}

// CountLevel returns the number of entries at level or above.
func (l *TestLogger) CountLevel(level slog.Level) int {
	n := 0
	for _, e := range l.Entries() {
		if e.Level >= level {
			n++
		}
	}
	return n
}

// AssertLogged fails the test if no entry message contains msg.
func (l *TestLogger) AssertLogged(t *testing.T, msg string) {
	t.Helper()
	if len(l.Find(msg)) == 0 {
		t.Errorf("expected a log entry containing %q, got %d entries", msg, len(l.Entries()))
	}
}

// AssertNoErrors fails the test for every error-level entry.
func (l *TestLogger) AssertNoErrors(t *testing.T) {
	t.Helper()
	for _, e := range l.Entries() {
		if e.Level >= slog.LevelError {
			t.Errorf("unexpected error log: %s %v", e.Message, e.Attrs)
		}
	}
}
