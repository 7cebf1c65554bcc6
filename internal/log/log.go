// Package log writes diagnostics to a log file. The terminal is redrawn every
// tick, so nothing here ever writes to stdout or stderr.
package log

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/jscyril/tinyplayer/internal/config"
	"github.com/jscyril/tinyplayer/internal/filesystem"
	"github.com/sirupsen/logrus"
)

// enabled is false until Setup opens a log file
var enabled bool

var logger = newDiscardLogger()

func newDiscardLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

// Setup opens the configured log file. With no file configured all log calls
// are dropped.
func Setup(cfg config.Logs) (io.Closer, error) {
	enabled = false
	logger = newDiscardLogger()

	if cfg.File == "" {
		return io.NopCloser(nil), nil
	}

	fs := filesystem.API()
	if err := fs.MkdirAll(filepath.Dir(cfg.File), 0755); err != nil {
		return nil, fmt.Errorf("create log directory: %w", err)
	}

	f, err := fs.OpenFile(cfg.File, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0666)
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}
	logger.SetOutput(f)

	if cfg.JSON {
		logger.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{DisableColors: true, FullTimestamp: true})
	}

	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)

	enabled = true
	return f, nil
}

// Fields is an alias so callers need not import logrus
type Fields = logrus.Fields

// WithFields returns an entry carrying structured context
func WithFields(fields Fields) *logrus.Entry {
	return logger.WithFields(fields)
}

func Error(args ...interface{}) {
	if enabled {
		logger.Error(args...)
	}
}
func Errorf(format string, args ...interface{}) {
	if enabled {
		logger.Errorf(format, args...)
	}
}
func Warnf(format string, args ...interface{}) {
	if enabled {
		logger.Warnf(format, args...)
	}
}
func Infof(format string, args ...interface{}) {
	if enabled {
		logger.Infof(format, args...)
	}
}
func Debugf(format string, args ...interface{}) {
	if enabled {
		logger.Debugf(format, args...)
	}
}
