package logsvc

import (
	"fmt"

	"github.com/rollbar/rollbar-go"
	"github.com/rollbar/rollbar-go/errors"

	"github.com/kyleyee20/aevum/core"
)

// RollbarLogger reports warnings and errors to Rollbar and forwards every entry to next.
type RollbarLogger struct {
	next core.Logger
}

var _ core.Logger = (*RollbarLogger)(nil)

func NewRollbarLogger(next core.Logger, conf *core.Config) *RollbarLogger {
	rollbar.SetToken(conf.RollbarToken)
	rollbar.SetEnvironment(conf.Env)
	rollbar.SetServerRoot("github.com/kyleyee20/aevum")
	rollbar.SetStackTracer(errors.StackTracer)
	rollbar.SetEnabled(conf.RollbarToken != "" && !conf.TestMode)
	return &RollbarLogger{next: next}
}

func (l RollbarLogger) Enable(enabled bool) {
	rollbar.SetEnabled(enabled)
}

// expected fmt: msg, key1, value1, key2, value2...
// the first error value becomes the reported error; every pair lands in the custom data.
func (l RollbarLogger) prepare(msg string, args []interface{}) []interface{} {
	extras := make(map[string]interface{}, len(args)/2+1)
	var reported error
	for i := 0; i < len(args); i += 2 {
		key := fmt.Sprint(args[i])
		var val interface{} = "(MISSING)"
		if i+1 < len(args) {
			val = args[i+1]
		}
		if err, ok := val.(error); ok && reported == nil {
			reported = err
		}
		extras[key] = val
	}

	newArgs := make([]interface{}, 0, 3)
	if reported != nil {
		extras["message"] = msg
		newArgs = append(newArgs, reported)
	} else {
		newArgs = append(newArgs, msg)
	}
	return append(newArgs, extras)
}

func (l RollbarLogger) Debug(msg string, args ...interface{}) {
	l.next.Debug(msg, args...)
}

func (l RollbarLogger) Info(msg string, args ...interface{}) {
	l.next.Info(msg, args...)
}

func (l RollbarLogger) Warn(msg string, args ...interface{}) {
	rollbar.Warning(l.prepare(msg, args)...)
	l.next.Warn(msg, args...)
}

func (l RollbarLogger) Error(msg string, args ...interface{}) {
	rollbar.Error(l.prepare(msg, args)...)
	l.next.Error(msg, args...)
}

func (l RollbarLogger) Fatal(msg string, args ...interface{}) {
	rollbar.Critical(l.prepare(msg, args)...)
	rollbar.Wait()
	l.next.Fatal(msg, args...)
}
