package logsvc

import (
	"sync"

	"github.com/kyleyee20/aevum/core"
)

// NewNopLogger returns a logger that drops every entry.
func NewNopLogger() core.Logger { return core.Discard }

// Entry is one call recorded by a RecordingLogger.
type Entry struct {
	Level string
	Msg   string
	Args  []interface{}
}

// RecordingLogger keeps every entry in memory; tests inspect Entries.
type RecordingLogger struct {
	mu      sync.Mutex
	entries []Entry
}

var _ core.Logger = (*RecordingLogger)(nil)

func NewRecordingLogger() *RecordingLogger { return &RecordingLogger{} }

func (l *RecordingLogger) record(level, msg string, args []interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, Entry{Level: level, Msg: msg, Args: args})
}

func (l *RecordingLogger) Entries() []Entry {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]Entry, len(l.entries))
	copy(out, l.entries)
	return out
}

// Count returns how many entries were logged at level.
func (l *RecordingLogger) Count(level string) int {
	var n int
	for _, e := range l.Entries() {
		if e.Level == level {
			n++
		}
	}
	return n
}

func (l *RecordingLogger) Debug(msg string, args ...interface{}) { l.record("debug", msg, args) }
func (l *RecordingLogger) Info(msg string, args ...interface{})  { l.record("info", msg, args) }
func (l *RecordingLogger) Warn(msg string, args ...interface{})  { l.record("warn", msg, args) }
func (l *RecordingLogger) Error(msg string, args ...interface{}) { l.record("error", msg, args) }
func (l *RecordingLogger) Fatal(msg string, args ...interface{}) { l.record("fatal", msg, args) }
