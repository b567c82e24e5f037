package core

// Logger is the logging surface every component depends on.
// args are alternating keys and values, e.g. log.Warn("corrupt record", "key", key, "error", err).
type Logger interface {
	Debug(msg string, args ...interface{})
	Info(msg string, args ...interface{})
	Warn(msg string, args ...interface{})
	Error(msg string, args ...interface{})
	Fatal(msg string, args ...interface{})
}

// Discard drops every entry.
var Discard Logger = discard{}

type discard struct{}

func (discard) Debug(string, ...interface{}) {}
func (discard) Info(string, ...interface{})  {}
func (discard) Warn(string, ...interface{})  {}
func (discard) Error(string, ...interface{}) {}
func (discard) Fatal(string, ...interface{}) {}
