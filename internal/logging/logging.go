// Package logging builds the process logger.
package logging

import (
	"io"
	"os"

	"github.com/sirupsen/logrus"
)

// New returns a JSON logrus logger tagged with the service name. An unknown
// level falls back to info.
func New(service, level string) *logrus.Entry {
	return newLogger(os.Stdout, service, level)
}

func newLogger(out io.Writer, service, level string) *logrus.Entry {
	l := logrus.New()
	l.SetOutput(out)
	l.SetFormatter(&logrus.JSONFormatter{})
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		lvl = logrus.InfoLevel
	}
	l.SetLevel(lvl)
	return l.WithField("service", service)
}
