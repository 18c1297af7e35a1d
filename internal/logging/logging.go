// Package logging configures the global zerolog logger.
package logging

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const (
	FormatConsole = "console"
	FormatJSON    = "json"
)

// InitDefault sets up a console logger before flags and config are read.
func InitDefault() {
	Init("info", FormatConsole, os.Stderr)
}

// Init sets the global level and output format. Unknown levels fall back
// to info; anything but "json" is written for humans.
func Init(level, format string, out io.Writer) {
	if out == nil {
		out = os.Stderr
	}

	lvl, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(lvl)
	zerolog.TimeFieldFormat = time.RFC3339

	if strings.EqualFold(format, FormatJSON) {
		log.Logger = zerolog.New(out).With().Timestamp().Logger()
	} else {
		log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: out, TimeFormat: time.TimeOnly}).
			With().Timestamp().Logger()
	}

	if err != nil && level != "" {
		log.Warn().Str("level", level).Msg("unknown log level, using info")
	}
}
