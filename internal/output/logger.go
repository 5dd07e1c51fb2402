/*
PURPOSE:
  Provides a structured logger for prompt-eval.
  Wraps zerolog for consistent output.

REQUIREMENTS:
  User-specified:
  - "Sane" CLI output. Not spammy.

  Implementation-discovered:
  - Logs go to stderr: stdout carries the evaluation report.
  - Level is selectable from the CLI (--log-level).

ARCHITECTURE INTEGRATION:
  - Used everywhere.

USAGE:
  output.Logger.Info().Str("dir", dir).Msg("message")

RELATED FILES:
  - internal/cli/root.go
*/

package output

import (
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// Logger is the process-wide logger. It writes human-readable lines to
// stderr so stdout carries only the report.
var Logger zerolog.Logger

func init() {
	Logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen}).
		With().Timestamp().Logger()
}

// SetLogger allows overriding the default logger (e.g. for testing or config changes)
func SetLogger(l zerolog.Logger) {
	Logger = l
}

// SetLevel sets the global log level from its name (debug, info, warn, error).
func SetLevel(name string) error {
	lvl, err := zerolog.ParseLevel(name)
	if err != nil {
		return fmt.Errorf("invalid log level %q: %w", name, err)
	}
	if lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(lvl)
	return nil
}
