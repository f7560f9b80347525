package logger

import "github.com/robfig/cron/v3"

type cronLogger struct {
	l *Logger
}

// CronLogger adapts the logger to cron.Logger so scheduler events land in the same sink.
func (l *Logger) CronLogger() cron.Logger {
	return cronLogger{l: l.With("component", "cron")}
}

func (c cronLogger) Info(msg string, keysAndValues ...interface{}) {
	c.l.Debug(msg, keysAndValues...)
}

func (c cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	c.l.Error(msg, append(keysAndValues, "error", err)...)
}
