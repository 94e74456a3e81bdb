// Package logging configures the shared logrus logger.
package logging

import (
	"io"
	"os"

	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

const (
	fileMaxSizeMB  = 50
	fileMaxBackups = 3
	fileMaxAgeDays = 14
)

// Config selects the log level and destinations.
type Config struct {
	Debug   bool
	NoColor bool
	// File mirrors log lines to a rotating file when set.
	File string
}

// New builds a configured logger and returns its root entry. Log lines
// go to stderr so reports printed on stdout stay machine readable.
func New(cfg Config) *logrus.Entry {
	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
		DisableColors: cfg.NoColor,
	})
	if cfg.Debug {
		logger.SetLevel(logrus.DebugLevel)
	}

	var out io.Writer = os.Stderr
	if cfg.File != "" {
		out = io.MultiWriter(os.Stderr, &lumberjack.Logger{
			Filename:   cfg.File,
			MaxSize:    fileMaxSizeMB,
			MaxBackups: fileMaxBackups,
			MaxAge:     fileMaxAgeDays,
		})
	}
	logger.SetOutput(out)
	return logrus.NewEntry(logger)
}
