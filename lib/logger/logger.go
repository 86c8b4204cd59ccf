// Package logger provides named, leveled loggers for the application.
// Each component requests its logger once by name (e.g. logger.Get("fetch"));
// the level is configured globally from the serve command before anything
// starts logging.
package logger

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
)

// levelVar holds the process wide log level. slog.LevelVar is safe for
// concurrent use, so the level can be set after loggers were handed out.
var levelVar = &slog.LevelVar{}

var defaultHandler slog.Handler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
	Level: levelVar,
})

// Get returns a logger for the given component name. Loggers returned before
// SetLevel was called pick up the configured level automatically.
func Get(component string) *slog.Logger {
	return slog.New(defaultHandler).With("component", component)
}

// SetLevel configures the global log level. It must be one of
// debug, info, warn(ing) or error.
func SetLevel(level string) error {
	parsed, err := parseLevel(level)
	if err != nil {
		return err
	}
	levelVar.Set(parsed)
	return nil
}

// parseLevel converts a string level to a slog.Level
func parseLevel(level string) (slog.Level, error) {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warning", "warn":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf("invalid log level: %s. must be one of debug, info, warn, error", level)
	}
}
