// Package log is the logging surface shared by the simulator packages.
package log

import (
	"io"
	"os"

	"github.com/sirupsen/logrus"
)

type Logger interface {
	Infof(format string, args ...interface{})
	Warnf(format string, args ...interface{})
	Errorf(format string, args ...interface{})
	Debugf(format string, args ...interface{})
}

// New returns a text logger writing to stderr.
func New(debug bool) Logger {
	return NewWriter(os.Stderr, debug)
}

// NewWriter returns a text logger writing to w.
func NewWriter(w io.Writer, debug bool) Logger {
	l := logrus.New()
	l.SetOutput(w)
	l.SetLevel(logrus.InfoLevel)
	if debug {
		l.SetLevel(logrus.DebugLevel)
	}
	l.Formatter = &logrus.TextFormatter{
		DisableColors:   true,
		DisableSorting:  true,
		DisableQuote:    true,
		FullTimestamp:   true,
		TimestampFormat: "15:04:05.000",
	}
	return l
}

// WithField returns a logger that tags every line with key=value.
// Loggers not created by this package are returned unchanged.
func WithField(l Logger, key string, value interface{}) Logger {
	switch ll := l.(type) {
	case *logrus.Logger:
		return ll.WithField(key, value)
	case *logrus.Entry:
		return ll.WithField(key, value)
	}
	return l
}
