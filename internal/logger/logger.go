// Package logger provides a wrapper around logrus for structured logging.
package logger

import (
	"io"
	"os"

	"github.com/sirupsen/logrus"
)

// Options configures a logger
type Options struct {
	Level   string
	JSON    bool
	Service string
	Output  io.Writer
}

// New creates a logger. Output defaults to stdout. When Service is set every
// entry carries a service field.
func New(opts Options) *logrus.Logger {
	log := logrus.New()

	out := opts.Output
	if out == nil {
		out = os.Stdout
	}
	log.SetOutput(out)

	if opts.JSON {
		log.SetFormatter(&logrus.JSONFormatter{})
	} else {
		log.SetFormatter(&logrus.TextFormatter{
			FullTimestamp: true,
			ForceColors:   out == os.Stdout,
		})
	}

	level, err := logrus.ParseLevel(opts.Level)
	if err != nil {
		log.Warnf("Invalid log level '%s', defaulting to info", opts.Level)
		level = logrus.InfoLevel
	}
	log.SetLevel(level)

	if opts.Service != "" {
		log.AddHook(serviceHook{service: opts.Service})
	}
	return log
}

// NewLogger creates a stdout logger, JSON when ENVIRONMENT=production
func NewLogger(logLevel string) *logrus.Logger {
	return New(Options{
		Level: logLevel,
		JSON:  os.Getenv("ENVIRONMENT") == "production",
	})
}

type serviceHook struct {
	service string
}

func (h serviceHook) Levels() []logrus.Level {
	return logrus.AllLevels
}

func (h serviceHook) Fire(entry *logrus.Entry) error {
	if _, ok := entry.Data["service"]; !ok {
		entry.Data["service"] = h.service
	}
	return nil
}
