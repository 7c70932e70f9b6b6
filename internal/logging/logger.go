package logging

import (
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Options selects where log entries go. An empty Path with Stderr unset
// discards everything, which is what the TUI wants when no log file is
// configured.
type Options struct {
	Path   string
	Level  string
	Stderr bool
	Source string
}

// New builds a logrus logger writing to a rotating file and optionally to
// stderr.
func New(opts Options) (*logrus.Logger, io.Closer, error) {
	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05",
		DisableColors:   !opts.Stderr,
	})

	level, err := logrus.ParseLevel(levelOrDefault(opts.Level))
	if err != nil {
		return nil, nil, err
	}
	logger.SetLevel(level)

	var writers []io.Writer
	var closer io.Closer = nopCloser{}
	if opts.Path != "" {
		if err := os.MkdirAll(filepath.Dir(opts.Path), 0o700); err != nil {
			return nil, nil, err
		}
		file := &lumberjack.Logger{
			Filename:   opts.Path,
			MaxSize:    10, // megabytes
			MaxBackups: 3,
			MaxAge:     28, // days
			Compress:   true,
		}
		writers = append(writers, file)
		closer = file
	}
	if opts.Stderr {
		writers = append(writers, os.Stderr)
	}
	switch len(writers) {
	case 0:
		logger.SetOutput(io.Discard)
	case 1:
		logger.SetOutput(writers[0])
	default:
		logger.SetOutput(io.MultiWriter(writers...))
	}

	if opts.Source != "" {
		logger.AddHook(sourceHook(opts.Source))
	}
	return logger, closer, nil
}

// Discard returns a logger that drops everything. Used by tests and as the
// fallback when a component is built without one.
func Discard() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func levelOrDefault(level string) string {
	level = strings.TrimSpace(level)
	if level == "" {
		return "info"
	}
	return level
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// sourceHook stamps every entry with the emitting program component.
type sourceHook string

func (h sourceHook) Levels() []logrus.Level { return logrus.AllLevels }

func (h sourceHook) Fire(e *logrus.Entry) error {
	if _, ok := e.Data["source"]; !ok {
		e.Data["source"] = string(h)
	}
	return nil
}
