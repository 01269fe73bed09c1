// Package logger wraps logrus behind a small, leveled API so the rest of
// the core never imports logrus directly and never accidentally logs a
// decrypted credential or a full request body at info level. The
// persisted request-log viewer used by the admin UI is a separate,
// out-of-scope collaborator (spec.md §1) — this package only emits
// process-level structured logs.
package logger

import (
	"io"
	"os"
	"time"

	"github.com/sirupsen/logrus"
)

// Config configures the process-wide logger, mirroring the fields named
// in spec.md §6: LOG_LEVEL, LOG_FILE, LOG_MAX_DAYS.
type Config struct {
	Level   string // debug|info|warn|error
	File    string // empty means stderr only
	MaxDays int    // retention is owned by the out-of-scope log sink; kept for config compatibility
}

// Logger is a leveled logger that can derive request-scoped children
// carrying fixed fields (Request sets request id, family, operation).
type Logger struct {
	entry *logrus.Entry
}

func New(cfg Config) (*Logger, error) {
	base := logrus.New()
	base.SetFormatter(&logrus.JSONFormatter{TimestampFormat: time.RFC3339})

	level, err := logrus.ParseLevel(orDefault(cfg.Level, "info"))
	if err != nil {
		level = logrus.InfoLevel
	}
	base.SetLevel(level)

	var out io.Writer = os.Stderr
	if cfg.File != "" {
		f, err := os.OpenFile(cfg.File, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return nil, err
		}
		out = io.MultiWriter(os.Stderr, f)
	}
	base.SetOutput(out)

	return &Logger{entry: logrus.NewEntry(base)}, nil
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

// With returns a child logger carrying the given fixed fields.
func (l *Logger) With(fields map[string]any) *Logger {
	return &Logger{entry: l.entry.WithFields(fields)}
}

// Request returns a child logger scoped to one inbound request.
func (l *Logger) Request(requestID, family, operation string) *Logger {
	return l.With(map[string]any{
		"request_id": requestID,
		"family":     family,
		"operation":  operation,
	})
}

func (l *Logger) Debugf(format string, args ...any) { l.entry.Debugf(format, args...) }
func (l *Logger) Infof(format string, args ...any)  { l.entry.Infof(format, args...) }
func (l *Logger) Warnf(format string, args ...any)  { l.entry.Warnf(format, args...) }
func (l *Logger) Errorf(format string, args ...any) { l.entry.Errorf(format, args...) }

// ErrorErr logs err attached as a field. Callers must have already
// scrubbed sensitive values (credentials, full bodies) from msg/err.
func (l *Logger) ErrorErr(msg string, err error) {
	l.entry.WithError(err).Error(msg)
}
