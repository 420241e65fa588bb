package log

import (
	"io"
	"os"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Config captures options for configuring the process logger.
type Config struct {
	Level  string    // "debug", "info", ...; falls back to INCIDENT_LOG_LEVEL then "warn"
	Output io.Writer // defaults to os.Stderr so command output stays clean
	Pretty bool      // human-readable console output
}

var (
	mu   sync.Mutex
	base = zerolog.Nop()
)

// Configure replaces the process logger. Components receive children of it
// through WithComponent.
func Configure(cfg Config) zerolog.Logger {
	level := zerolog.WarnLevel
	raw := cfg.Level
	if raw == "" {
		raw = os.Getenv("INCIDENT_LOG_LEVEL")
	}
	if raw != "" {
		if parsed, err := zerolog.ParseLevel(raw); err == nil {
			level = parsed
		}
	}
	zerolog.TimeFieldFormat = time.RFC3339

	writer := cfg.Output
	if writer == nil {
		writer = os.Stderr
	}
	if cfg.Pretty {
		writer = zerolog.ConsoleWriter{Out: writer, TimeFormat: time.Kitchen}
	}

	logger := zerolog.New(writer).Level(level).With().Timestamp().Logger()

	mu.Lock()
	base = logger
	mu.Unlock()

	return logger
}

func Base() zerolog.Logger {
	mu.Lock()
	defer mu.Unlock()
	return base
}

// WithComponent returns a child logger annotated with the given component name.
func WithComponent(component string) zerolog.Logger {
	return Base().With().Str(FieldComponent, component).Logger()
}
