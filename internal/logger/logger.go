// Package logger builds the process wide zerolog logger.
package logger

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Output formats.
const (
	FormatConsole = "console"
	FormatJSON    = "json"
)

// Config selects level and format.
type Config struct {
	Level  string `json:"level,omitempty" yaml:"level,omitempty" env:"LEVEL"`
	Format string `json:"format,omitempty" yaml:"format,omitempty" env:"FORMAT"`
}

// Validate checks level and format.
func (c *Config) Validate() error {
	if _, err := parseLevel(c.Level); err != nil {
		return err
	}
	switch strings.ToLower(c.Format) {
	case "", FormatConsole, FormatJSON:
		return nil
	}
	return fmt.Errorf("unsupported log format %q", c.Format)
}

// New returns a logger writing to w, or stderr when w is nil.
func New(config Config, w io.Writer) zerolog.Logger {
	if w == nil {
		w = os.Stderr
	}
	level, err := parseLevel(config.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}
	if strings.ToLower(config.Format) != FormatJSON {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339, NoColor: true}
	}
	return zerolog.New(w).Level(level).With().Timestamp().Str("service", "reconciler").Logger()
}

func parseLevel(level string) (zerolog.Level, error) {
	if level == "" {
		return zerolog.InfoLevel, nil
	}
	ret, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil {
		return zerolog.NoLevel, fmt.Errorf("unsupported log level %q", level)
	}
	return ret, nil
}
