/*
Package logx wraps zerolog for the livechat server.

It owns the process-wide logger: human-readable console output while developing,
JSON lines in every other environment. Packages either call the key/value helpers
(Info, Warn, Error, Fatal) or derive a component logger with Component.
*/
package logx

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// InitGlobalLogger replaces the global zerolog logger.
// Development mode logs at debug level through a ConsoleWriter on stderr;
// otherwise the logger emits JSON on stdout at info level.
func InitGlobalLogger(isDevelopment bool) {
	initLogger(os.Stdout, isDevelopment)
}

func initLogger(out io.Writer, isDevelopment bool) {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix

	logger := zerolog.New(out).With().Timestamp().Logger().Level(zerolog.InfoLevel)

	if isDevelopment {
		logger = logger.Output(zerolog.ConsoleWriter{
			Out:        os.Stderr,
			TimeFormat: time.RFC3339,
		}).Level(zerolog.DebugLevel)
	}

	log.Logger = logger.With().Caller().Logger()
}

// Logger returns the global logger.
func Logger() *zerolog.Logger {
	return &log.Logger
}

// Component returns a child of the global logger tagged with the given component name.
func Component(name string) zerolog.Logger {
	return Logger().With().Str("component", name).Logger()
}

// pairs drops the field list when it is not made of key/value pairs, zerolog
// would otherwise panic on the odd trailing key.
func pairs(level string, fields []any) []any {
	if len(fields)%2 == 0 {
		return fields
	}

	Logger().Warn().
		Str("log_level", level).
		Int("fields_count", len(fields)).
		Msg("logx: odd number of fields, fields dropped")
	return nil
}

// Info logs msg at info level with optional key/value fields.
func Info(msg string, fields ...any) {
	Logger().Info().Fields(pairs("info", fields)).CallerSkipFrame(1).Msg(msg)
}

// Warn logs msg at warn level with optional key/value fields.
func Warn(msg string, fields ...any) {
	Logger().Warn().Fields(pairs("warn", fields)).CallerSkipFrame(1).Msg(msg)
}

// Error logs err and msg at error level with optional key/value fields.
func Error(err error, msg string, fields ...any) {
	Logger().Error().Err(err).Fields(pairs("error", fields)).CallerSkipFrame(1).Msg(msg)
}

// Fatal logs at fatal level and exits the process.
func Fatal(err error, msg string, fields ...any) {
	Logger().Fatal().Err(err).Fields(pairs("fatal", fields)).CallerSkipFrame(1).Msg(msg)
}
