package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/adrg/xdg"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// DefaultLogFile is relative to the XDG state home.
const DefaultLogFile = "skill-sync/skill-sync.log"

// Options controls SetupLogger.
type Options struct {
	Verbosity int
	// Console adds a human-readable writer on stderr. The TUI owns the
	// terminal, so only headless runs enable it.
	Console bool
	// File overrides the log file location.
	File string
}

// SetupLogger configures the global logger and returns the log file handle,
// which the caller closes on exit. A log file that cannot be opened is
// reported and skipped.
func SetupLogger(opts Options) io.Closer {
	switch opts.Verbosity {
	case 0:
		zerolog.SetGlobalLevel(zerolog.WarnLevel)
	case 1:
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	case 2:
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	default:
		zerolog.SetGlobalLevel(zerolog.TraceLevel)
	}

	var writers []io.Writer
	if opts.Console {
		writers = append(writers, zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})
	}

	logPath, pathErr := logFilePath(opts.File)
	var file *os.File
	var fileErr error
	if pathErr == nil {
		file, fileErr = openLogFile(logPath)
		if fileErr == nil {
			writers = append(writers, file)
		}
	}

	if len(writers) == 0 {
		writers = append(writers, io.Discard)
	}
	log.Logger = zerolog.New(io.MultiWriter(writers...)).With().Timestamp().Logger()

	if opts.Verbosity >= 2 {
		log.Logger = log.Logger.With().Caller().Logger()
	}

	switch {
	case pathErr != nil:
		log.Warn().Err(pathErr).Msg("Could not resolve log file path")
	case fileErr != nil:
		log.Warn().Err(fileErr).Str("path", logPath).Msg("Failed to create log file")
	}
	log.Debug().Int("verbosity", opts.Verbosity).Str("logFile", logPath).Msg("Logger initialized")

	if file == nil {
		return nopCloser{}
	}
	return file
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// GetLogger returns a logger tagged with a component name
func GetLogger(name string) zerolog.Logger {
	return log.With().Str("component", name).Logger()
}

// LogOperationStart logs the start of an operation and returns a function to log its completion
func LogOperationStart(logger zerolog.Logger, operation string) func() {
	start := time.Now()
	logger.Debug().Str("operation", operation).Msg("Operation started")

	return func() {
		logger.Debug().
			Str("operation", operation).
			Dur("duration", time.Since(start)).
			Msg("Operation completed")
	}
}

func logFilePath(override string) (string, error) {
	if override != "" {
		return override, nil
	}
	return xdg.StateFile(DefaultLogFile)
}

func openLogFile(logPath string) (*os.File, error) {
	if err := os.MkdirAll(filepath.Dir(logPath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}
	file, err := os.OpenFile(logPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}
	return file, nil
}
