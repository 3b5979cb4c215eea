package configs

import (
	"log/slog"
	"strings"
)

// Logger selects the verbosity and encoding of the process logger.
// Level accepts debug, info, warn and error; Format accepts "text" and
// "json". Unrecognized values fall back to info and text rather than
// failing startup.
type Logger struct {
	Level  string `env:"LEVEL" envDefault:"info"`
	Format string `env:"FORMAT" envDefault:"text"`
}

// SlogLevel maps the configured level onto slog's scale.
func (c Logger) SlogLevel() slog.Level {
	switch strings.ToLower(c.Level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error", "err":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// JSON reports whether log records should be encoded as JSON.
func (c Logger) JSON() bool {
	return strings.EqualFold(c.Format, "json")
}
