package logsvc

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/kyleyee20/aevum/core"
)

// ZapLogger writes structured key/value entries through a sugared zap logger.
type ZapLogger struct {
	s *zap.SugaredLogger
}

var _ core.Logger = (*ZapLogger)(nil)

// NewZapLogger builds a development logger (console, debug level) in DEV and debug mode, and a
// production JSON logger otherwise.
func NewZapLogger(conf *core.Config) (*ZapLogger, error) {
	var zc zap.Config
	if conf.Env == "DEV" || conf.Debug {
		zc = zap.NewDevelopmentConfig()
		zc.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	} else {
		zc = zap.NewProductionConfig()
		zc.EncoderConfig.TimeKey = "ts"
		zc.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	}
	base, err := zc.Build(zap.AddCallerSkip(1))
	if err != nil {
		return nil, err
	}
	return &ZapLogger{s: base.Sugar().With("app", conf.AppName, "env", conf.Env)}, nil
}

// NewZapFrom wraps an existing zap logger, e.g. zaptest's.
func NewZapFrom(l *zap.Logger) *ZapLogger {
	return &ZapLogger{s: l.Sugar()}
}

func (l *ZapLogger) With(args ...interface{}) *ZapLogger {
	return &ZapLogger{s: l.s.With(args...)}
}

func (l *ZapLogger) Sync() error { return l.s.Sync() }

func (l *ZapLogger) Debug(msg string, args ...interface{}) { l.s.Debugw(msg, args...) }
func (l *ZapLogger) Info(msg string, args ...interface{})  { l.s.Infow(msg, args...) }
func (l *ZapLogger) Warn(msg string, args ...interface{})  { l.s.Warnw(msg, args...) }
func (l *ZapLogger) Error(msg string, args ...interface{}) { l.s.Errorw(msg, args...) }
func (l *ZapLogger) Fatal(msg string, args ...interface{}) { l.s.Fatalw(msg, args...) }
