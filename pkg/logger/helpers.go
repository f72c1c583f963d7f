package logger

import (
	"time"

	"github.com/rs/zerolog"
)

// LogRequest logs HTTP request information
func LogRequest(l Logger, method, url string, statusCode int, duration time.Duration) {
	fields := map[string]interface{}{
		"method":      method,
		"url":         url,
		"status_code": statusCode,
		"duration_ms": duration.Milliseconds(),
	}

	switch {
	case statusCode >= 200 && statusCode < 300:
		l.DebugWithFields("HTTP request completed", fields)
	case statusCode == 429:
		l.WarnWithFields("HTTP request rate limited", fields)
	case statusCode >= 400 && statusCode < 500:
		l.WarnWithFields("HTTP request client error", fields)
	default:
		l.ErrorWithFields("HTTP request server error", fields)
	}
}

// LogDownload logs the outcome of one writeup download
func LogDownload(l Logger, machineID int, machineName, outcome string, err error) {
	entry := l.WithFields(map[string]interface{}{
		"machine_id":   machineID,
		"machine_name": machineName,
		"outcome":      outcome,
	})

	if err != nil {
		entry.WithError(err).Error("Download failed")
		return
	}
	entry.Info("Download finished")
}

// LogRateLimit logs rate limiting events
func LogRateLimit(l Logger, url string, wait time.Duration, attempt int) {
	l.WithFields(map[string]interface{}{
		"url":     url,
		"wait":    wait,
		"attempt": attempt,
		"action":  "rate_limited",
	}).Warn("Rate limit reached, backing off")
}

// NewNopLogger creates a no-operation logger for testing
func NewNopLogger() Logger {
	return &nopLogger{}
}

type nopLogger struct{}

func (n *nopLogger) Debug(msg string)                                          {}
func (n *nopLogger) Info(msg string)                                           {}
func (n *nopLogger) Warn(msg string)                                           {}
func (n *nopLogger) Error(msg string)                                          {}
func (n *nopLogger) WithField(key string, value interface{}) Logger            { return n }
func (n *nopLogger) WithFields(fields map[string]interface{}) Logger           { return n }
func (n *nopLogger) WithError(err error) Logger                                { return n }
func (n *nopLogger) DebugWithFields(msg string, fields map[string]interface{}) {}
func (n *nopLogger) InfoWithFields(msg string, fields map[string]interface{})  {}
func (n *nopLogger) WarnWithFields(msg string, fields map[string]interface{})  {}
func (n *nopLogger) ErrorWithFields(msg string, fields map[string]interface{}) {}
func (n *nopLogger) Zerolog() *zerolog.Logger {
	nop := zerolog.Nop()
	return &nop
}
