// Package logging configures the process-wide slog logger. Records are
// written by a zap console core on the given writer, normally stderr.
//
// Setup should be called once, before the first log statement; until then
// slog's built-in default handler is used.
package logging

import (
	"io"
	"log/slog"

	"go.uber.org/zap"
	"go.uber.org/zap/exp/zapslog"
	"go.uber.org/zap/zapcore"
)

// LevelForVerbosity maps the number of -v flags to a level. No flag logs
// warnings and errors; each flag lowers the threshold by one level, down
// to debug.
func LevelForVerbosity(verbosity int) slog.Level {
	level := slog.LevelWarn - slog.Level(4*verbosity)
	if level < slog.LevelDebug {
		return slog.LevelDebug
	}
	return level
}

func zapLevel(l slog.Level) zapcore.Level {
	switch {
	case l >= slog.LevelError:
		return zapcore.ErrorLevel
	case l >= slog.LevelWarn:
		return zapcore.WarnLevel
	case l >= slog.LevelInfo:
		return zapcore.InfoLevel
	default:
		return zapcore.DebugLevel
	}
}

// Setup installs a logger writing to w at the level selected by verbosity
// and returns it.
func Setup(w io.Writer, verbosity int) *slog.Logger {
	encCfg := zap.NewDevelopmentEncoderConfig()
	core := zapcore.NewCore(
		zapcore.NewConsoleEncoder(encCfg),
		zapcore.AddSync(w),
		zap.NewAtomicLevelAt(zapLevel(LevelForVerbosity(verbosity))),
	)

	logger := slog.New(NewContextLogHandler(zapslog.NewHandler(core)))
	slog.SetDefault(logger)
	return logger
}
