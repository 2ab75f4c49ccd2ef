// Package logging configures the global zerolog logger.
package logging

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const (
	FormatConsole = "console"
	FormatJSON    = "json"
)

// Setup sets the global level and output format. An unknown level falls
// back to info.
func Setup(level, format string) error {
	return SetupWriter(os.Stderr, level, format)
}

func SetupWriter(out io.Writer, level, format string) error {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix

	lvl, err := zerolog.ParseLevel(level)
	if err != nil || level == "" {
		lvl = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(lvl)

	switch format {
	case FormatConsole, "":
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339})
	case FormatJSON:
		log.Logger = zerolog.New(out).With().Timestamp().Logger()
	default:
		return fmt.Errorf("unknown log format %q", format)
	}
	return nil
}
