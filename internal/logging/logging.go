// Package logging builds the process-wide slog handler. Records are
// formatted by charmbracelet/log: colored text on a terminal, JSON
// otherwise, or whatever format is configured explicitly.
package logging

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/mattn/go-isatty"
)

// Supported formats.
const (
	FormatAuto   = "auto"
	FormatText   = "text"
	FormatJSON   = "json"
	FormatLogfmt = "logfmt"
)

var (
	ErrInvalidLevel  = errors.New("invalid log level")
	ErrInvalidFormat = errors.New("invalid log format")
)

// Formats lists the accepted format names.
var Formats = []string{FormatAuto, FormatText, FormatJSON, FormatLogfmt}

// CreateHandlerWithStrings returns a handler writing to w at the given level
// and format.
func CreateHandlerWithStrings(w io.Writer, level, format string) (*log.Logger, error) {
	lvl, err := ParseLevel(level)
	if err != nil {
		return nil, err
	}
	formatter, err := parseFormat(w, format)
	if err != nil {
		return nil, err
	}

	return log.NewWithOptions(w, log.Options{
		Level:           lvl,
		Formatter:       formatter,
		ReportTimestamp: true,
		TimeFormat:      time.RFC3339,
	}), nil
}

// New builds a *slog.Logger on top of CreateHandlerWithStrings.
func New(w io.Writer, level, format string) (*slog.Logger, error) {
	h, err := CreateHandlerWithStrings(w, level, format)
	if err != nil {
		return nil, err
	}
	return slog.New(h), nil
}

// Setup installs a logger as the slog default and returns it.
func Setup(w io.Writer, level, format string) (*slog.Logger, error) {
	logger, err := New(w, level, format)
	if err != nil {
		return nil, err
	}
	slog.SetDefault(logger)
	return logger, nil
}

// Discard returns a logger that drops everything. Used by tests.
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError + 1}))
}

// ParseLevel maps a level name to a charmbracelet/log level. "warning" and
// "trace" are accepted as aliases.
func ParseLevel(level string) (log.Level, error) {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "", "info":
		return log.InfoLevel, nil
	case "debug", "trace":
		return log.DebugLevel, nil
	case "warn", "warning":
		return log.WarnLevel, nil
	case "error":
		return log.ErrorLevel, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrInvalidLevel, level)
}

func parseFormat(w io.Writer, format string) (log.Formatter, error) {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "", FormatAuto:
		if isTerminal(w) {
			return log.TextFormatter, nil
		}
		return log.JSONFormatter, nil
	case FormatText:
		return log.TextFormatter, nil
	case FormatJSON:
		return log.JSONFormatter, nil
	case FormatLogfmt:
		return log.LogfmtFormatter, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrInvalidFormat, format)
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}
