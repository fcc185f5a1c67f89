// Package log is a thin wrapper around zerolog writing to stderr.
// stdout stays clean because launcher output parsing may share it.
package log

import (
	"fmt"
	"os"

	"github.com/rs/zerolog"
)

var logger zerolog.Logger

func init() {
	consoleWriter := zerolog.ConsoleWriter{
		Out:        os.Stderr,
		TimeFormat: "15:04:05",
	}
	logger = zerolog.New(consoleWriter).With().Timestamp().Logger().Level(zerolog.InfoLevel)
}

// SetVerbose lowers the threshold to debug.
func SetVerbose(verbose bool) {
	if verbose {
		logger = logger.Level(zerolog.DebugLevel)
	}
}

func Debug(msg string) {
	logger.Debug().Msg(msg)
}

func Debugf(format string, args ...any) {
	logger.Debug().Msg(fmt.Sprintf(format, args...))
}

func Info(msg string) {
	logger.Info().Msg(msg)
}

func Infof(format string, args ...any) {
	logger.Info().Msg(fmt.Sprintf(format, args...))
}

func Warn(msg string) {
	logger.Warn().Msg(msg)
}

func Warnf(format string, args ...any) {
	logger.Warn().Msg(fmt.Sprintf(format, args...))
}

func Error(msg string) {
	logger.Error().Msg(msg)
}

func Errorf(format string, args ...any) {
	logger.Error().Msg(fmt.Sprintf(format, args...))
}
