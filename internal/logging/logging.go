package logging

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

type Config interface {
	GetEnv() string
	GetLogLevel() string
}

// Setup configures the global zerolog logger. DEV gets a human readable console writer on
// stderr, everything else JSON lines.
func Setup(cfg Config) {
	SetupWithWriter(cfg, os.Stderr)
}

func SetupWithWriter(cfg Config, w io.Writer) {
	level, err := zerolog.ParseLevel(cfg.GetLogLevel())
	if err != nil || cfg.GetLogLevel() == "" {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	zerolog.TimeFieldFormat = time.RFC3339

	if cfg.GetEnv() == "DEV" {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.Kitchen}
	}
	log.Logger = zerolog.New(w).With().Timestamp().Logger()
}
