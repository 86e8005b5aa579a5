package logger

import (
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"
)

var (
	log zerolog.Logger
)

// Rotation limits for file output.
const (
	maxSizeMB  = 50
	maxBackups = 3
	maxAgeDays = 28
)

// Init initializes the logger writing to stdout.
// Log level can be configured via LOG_LEVEL environment variable (trace, debug, info, warn, error).
func Init() (zerolog.Logger, error) {
	return InitWithOptions("", false)
}

// InitWithOptions initializes the logger with the specified options.
// If logFile is set, JSON logs go to a size-rotated file.
// If pretty is true, uses ConsoleWriter for human-readable output (only valid when logFile is empty).
// Log level can be configured via LOG_LEVEL environment variable.
func InitWithOptions(logFile string, pretty bool) (zerolog.Logger, error) {
	level := parseLogLevel(os.Getenv("LOG_LEVEL"))
	return initWithLevel(logFile, pretty, level), nil
}

// InitWithLevel is InitWithOptions with an explicit level name, used when
// the level comes from a run file. An empty name falls back to LOG_LEVEL.
func InitWithLevel(logFile string, pretty bool, levelName string) (zerolog.Logger, error) {
	if levelName == "" {
		levelName = os.Getenv("LOG_LEVEL")
	}
	return initWithLevel(logFile, pretty, parseLogLevel(levelName)), nil
}

func initWithLevel(logFile string, pretty bool, level zerolog.Level) zerolog.Logger {
	var output io.Writer
	switch {
	case logFile != "":
		output = &lumberjack.Logger{
			Filename:   logFile,
			MaxSize:    maxSizeMB,
			MaxBackups: maxBackups,
			MaxAge:     maxAgeDays,
		}
	case pretty:
		output = zerolog.ConsoleWriter{Out: os.Stdout}
	default:
		output = os.Stdout
	}

	log = zerolog.New(output).
		Level(level).
		With().
		Timestamp().
		Logger()

	switch {
	case logFile != "":
		log.Info().Str("path", logFile).Str("level", level.String()).Msg("Logger initialized")
	case pretty:
		log.Info().Str("output", "stdout").Str("format", "pretty").Str("level", level.String()).Msg("Logger initialized")
	default:
		log.Info().Str("output", "stdout").Str("level", level.String()).Msg("Logger initialized")
	}
	return log
}

// Get returns the logger built by the last Init call, or a no-op logger.
func Get() zerolog.Logger {
	return log
}

// Component derives a child logger tagged with a component name.
func Component(base zerolog.Logger, name string) zerolog.Logger {
	return base.With().Str("component", name).Logger()
}

// Helper functions
func parseLogLevel(level string) zerolog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return zerolog.DebugLevel
	case "info", "":
		return zerolog.InfoLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	case "trace":
		return zerolog.TraceLevel
	default:
		return zerolog.InfoLevel
	}
}
