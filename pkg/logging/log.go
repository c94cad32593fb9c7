// Package logging creates the named logrus loggers used by the commands.
package logging

import (
	"fmt"
	"io"
	"os"
	"path"
	"runtime"

	"github.com/sirupsen/logrus"
)

// NamedLogger creates a logger writing to stderr whose entries are prefixed with name.
func NamedLogger(name string) *logrus.Logger {
	return &logrus.Logger{
		Out: os.Stderr,
		Formatter: &CustomTextFormatter{
			TextFormatter: logrus.TextFormatter{
				FullTimestamp:   true,
				TimestampFormat: "15:04:05",
			},
			Name: name,
		},
		Hooks: make(logrus.LevelHooks),
		Level: logrus.InfoLevel,
	}
}

// Configure sets the level of logger from a level name. verbose forces debug.
func Configure(logger *logrus.Logger, level string, verbose bool) error {
	if verbose {
		logger.SetLevel(logrus.DebugLevel)
		return nil
	}
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return fmt.Errorf("invalid log level: %w", err)
	}
	logger.SetLevel(lvl)
	return nil
}

// Discard returns a logger that drops every entry.
func Discard() *logrus.Logger {
	logger := NamedLogger("discard")
	logger.SetOutput(io.Discard)
	return logger
}

// CustomTextFormatter prefixes the message with the logger name and, at
// debug level, the calling file and line.
type CustomTextFormatter struct {
	logrus.TextFormatter
	Name string
}

// Format renders a single log entry
func (f *CustomTextFormatter) Format(entry *logrus.Entry) ([]byte, error) {
	prefix := fmt.Sprintf("[%s]", f.Name)
	if entry.Level >= logrus.DebugLevel {
		if _, file, no, ok := runtime.Caller(7); ok {
			prefix = fmt.Sprintf("[%s %s:%03d]", f.Name, path.Base(file), no)
		}
	}
	e := *entry
	e.Message = prefix + " " + entry.Message
	return f.TextFormatter.Format(&e)
}
