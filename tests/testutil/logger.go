package testutil

import (
	"bytes"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/systmms/secretmgr/internal/logging"
)

// syncBuffer is a bytes.Buffer safe for the concurrent loads of a store.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (s *syncBuffer) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.buf.Write(p)
}

func (s *syncBuffer) String() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.buf.String()
}

func (s *syncBuffer) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.buf.Reset()
}

// TestLogger is a logging.Logger whose output is kept for assertions.
//
//	logger := NewTestLogger(t)
//	store := secrets.New(src, secrets.WithLogger(logger.Logger))
//	logger.AssertContains(t, "load_failed")
type TestLogger struct {
	*logging.Logger
	out *syncBuffer
}

// NewTestLogger captures everything including debug messages.
func NewTestLogger(t *testing.T) *TestLogger {
	t.Helper()

	out := &syncBuffer{}
	return &TestLogger{Logger: logging.NewWithWriter(out, true), out: out}
}

// Output returns what has been logged so far.
func (l *TestLogger) Output() string {
	return l.out.String()
}

// Clear drops the captured output.
func (l *TestLogger) Clear() {
	l.out.Reset()
}

// Lines returns the non-empty logged lines.
func (l *TestLogger) Lines() []string {
	var lines []string
	for _, line := range strings.Split(l.Output(), "\n") {
		if strings.TrimSpace(line) != "" {
			lines = append(lines, line)
		}
	}
	return lines
}

// AssertContains asserts that the log output contains substr.
func (l *TestLogger) AssertContains(t *testing.T, substr string) {
	t.Helper()
	assert.Contains(t, l.Output(), substr, "Expected log output to contain %q", substr)
}

// AssertNotContains asserts that the log output does not contain substr.
func (l *TestLogger) AssertNotContains(t *testing.T, substr string) {
	t.Helper()
	assert.NotContains(t, l.Output(), substr, "Expected log output to NOT contain %q", substr)
}
