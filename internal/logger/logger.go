package logger

import (
	"io"
	"os"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Setup configures the global logger. Terminals get human readable output,
// anything else gets JSON lines so CI logs stay machine parsable.
func Setup(debug bool) zerolog.Logger {
	return setup(os.Stderr, debug, isatty.IsTerminal(os.Stderr.Fd()))
}

func setup(out io.Writer, debug, console bool) zerolog.Logger {
	level := zerolog.InfoLevel
	if debug {
		level = zerolog.DebugLevel
	}

	logger := zerolog.New(out).Level(level).With().Timestamp().Logger()

	if console {
		logger = logger.Output(zerolog.ConsoleWriter{Out: out, FormatTimestamp: func(i any) string {
			return time.Now().Format(time.Kitchen)
		}})
	}

	if debug {
		logger = logger.With().Caller().Stack().Logger()
	}

	log.Logger = logger
	zerolog.DefaultContextLogger = &logger

	return logger
}
