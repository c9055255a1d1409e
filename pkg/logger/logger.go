package logger

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Setup configures the global zerolog logger.
//
// format is one of auto, json or human. auto picks the console writer when
// stdout is a terminal and JSON otherwise.
func Setup(level, format string) error {
	useConsoleWriter := false
	switch strings.ToLower(format) {
	case "auto", "":
		useConsoleWriter = isatty.IsTerminal(os.Stdout.Fd())
	case "human":
		useConsoleWriter = true
	case "json":
	default:
		return fmt.Errorf("invalid log format: %s, expected: [auto, json, human]", format)
	}

	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil {
		return fmt.Errorf("invalid log level %q: %w", level, err)
	}
	if lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}

	var writer io.Writer = os.Stdout
	if useConsoleWriter {
		writer = zerolog.ConsoleWriter{
			Out:        os.Stdout,
			TimeFormat: time.RFC3339,
			NoColor:    !isatty.IsTerminal(os.Stdout.Fd()),
		}
	}

	zerolog.SetGlobalLevel(lvl)
	log.Logger = zerolog.New(writer).With().Timestamp().Logger()
	return nil
}
