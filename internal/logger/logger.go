package logger

import (
	"strings"

	"github.com/gookit/slog"
	"github.com/gookit/slog/handler"
)

// Logger is the minimal logging surface shared across the application.
type Logger interface {
	Debug(args ...any)
	Info(args ...any)
	Warn(args ...any)
	Error(args ...any)
	Debugf(format string, args ...any)
	Infof(format string, args ...any)
	Warnf(format string, args ...any)
	Errorf(format string, args ...any)
}

// Fields carries structured key/value pairs for a single log line.
type Fields map[string]any

// Log is the process logger. It works at info level until Init is called.
var Log Logger = New("info")

// Init replaces the process logger with one at the given level.
// Unknown or empty levels fall back to info.
func Init(level string) {
	Log = New(level)
}

// New builds a gookit/slog JSON console logger for the given level.
func New(level string) Logger {
	name := strings.ToLower(strings.TrimSpace(level))
	if name == "" {
		name = "info"
	}
	logLevel := slog.LevelByName(name)

	var levels slog.Levels
	for _, lv := range slog.AllLevels {
		if lv <= logLevel {
			levels = append(levels, lv)
		}
	}

	h := handler.NewConsoleHandler(levels)
	h.SetFormatter(slog.NewJSONFormatter(func(f *slog.JSONFormatter) {
		f.Fields = []string{
			slog.FieldKeyDatetime,
			slog.FieldKeyLevel,
			slog.FieldKeyMessage,
		}
		f.Aliases = slog.StringMap{
			slog.FieldKeyDatetime: "time",
			slog.FieldKeyLevel:    "level",
			slog.FieldKeyMessage:  "message",
		}
		f.TimeFormat = "2006-01-02T15:04:05.000Z07:00"
	}))

	return slog.NewWithHandlers(h)
}

func InfoWithFields(msg string, fields Fields) {
	if lg, ok := Log.(*slog.Logger); ok {
		lg.WithFields(slog.M(fields)).Info(msg)
		return
	}
	Log.Info(msg)
}

func WarnWithFields(msg string, fields Fields) {
	if lg, ok := Log.(*slog.Logger); ok {
		lg.WithFields(slog.M(fields)).Warn(msg)
		return
	}
	Log.Warn(msg)
}

func DebugWithFields(msg string, fields Fields) {
	if lg, ok := Log.(*slog.Logger); ok {
		lg.WithFields(slog.M(fields)).Debug(msg)
		return
	}
	Log.Debug(msg)
}

func ErrorWithFields(msg string, fields Fields) {
	if lg, ok := Log.(*slog.Logger); ok {
		lg.WithFields(slog.M(fields)).Error(msg)
		return
	}
	Log.Error(msg)
}
