// Package logs configures the global zerolog logger from the feed config.
package logs

import (
	"io"
	"os"
	"time"

	"github.com/Borislavv/infinite-feed/pkg/config"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Setup points the global logger at w (stderr when nil) with the configured level and format.
func Setup(cfg config.Logs, w io.Writer) {
	if w == nil {
		w = os.Stderr
	}
	if cfg.Console {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.TimeOnly, NoColor: w != os.Stderr}
	}

	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	log.Logger = zerolog.New(w).With().Timestamp().Logger()

	if err != nil {
		log.Warn().Err(err).Msgf("[logs] unknown level %q, falling back to info", cfg.Level)
	}
}
