package whatsapp

import (
	"context"
	"fmt"
	"log/slog"

	waLog "go.mau.fi/whatsmeow/util/log"

	"github.com/kartavyaai/kartavyabot/internal/config"
)

// slogLogger routes whatsmeow's printf-style logging into slog.
type slogLogger struct {
	logger   *slog.Logger
	minLevel slog.Level
}

var _ waLog.Logger = slogLogger{}

func newLogger(module, level string) waLog.Logger {
	minLevel := slog.LevelWarn
	if level != "" {
		minLevel = config.ParseLevel(level)
	}
	return slogLogger{
		logger:   slog.Default().With("component", "whatsmeow", "module", module),
		minLevel: minLevel,
	}
}

func (l slogLogger) log(level slog.Level, format string, args []any) {
	if level < l.minLevel {
		return
	}
	ctx := context.Background()
	if !l.logger.Enabled(ctx, level) {
		return
	}
	l.logger.Log(ctx, level, fmt.Sprintf(format, args...))
}

func (l slogLogger) Debugf(msg string, args ...any) { l.log(slog.LevelDebug, msg, args) }
func (l slogLogger) Infof(msg string, args ...any)  { l.log(slog.LevelInfo, msg, args) }
func (l slogLogger) Warnf(msg string, args ...any)  { l.log(slog.LevelWarn, msg, args) }
func (l slogLogger) Errorf(msg string, args ...any) { l.log(slog.LevelError, msg, args) }

func (l slogLogger) Sub(module string) waLog.Logger {
	return slogLogger{logger: l.logger.With("submodule", module), minLevel: l.minLevel}
}
