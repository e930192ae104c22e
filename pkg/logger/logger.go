// Package logger wraps slog with a tint handler for the daemon's colored
// structured output. Before Init the helpers fall back to the slog
// default, so library code can log unconditionally.
package logger

import (
	"log/slog"
	"os"
	"sync"

	"github.com/lmittmann/tint"
)

var (
	once   sync.Once
	logger *slog.Logger
)

type Options struct {
	Level      slog.Leveler // slog.LevelInfo, slog.LevelDebug, etc.
	Writer     *os.File     // default: os.Stdout
	TimeFormat string       // default: time.RFC3339
}

func Init(opts *Options) {
	once.Do(func() {
		writer := opts.Writer
		if writer == nil {
			writer = os.Stdout
		}

		handler := tint.NewHandler(writer, &tint.Options{
			Level:      opts.Level,
			TimeFormat: opts.TimeFormat,
		})

		logger = slog.New(handler)
		slog.SetDefault(logger)
	})
}

func log() *slog.Logger {
	if logger != nil {
		return logger
	}
	return slog.Default()
}

func Info(msg string, args ...any)  { log().Info(msg, args...) }
func Debug(msg string, args ...any) { log().Debug(msg, args...) }
func Warn(msg string, args ...any)  { log().Warn(msg, args...) }
func Error(msg string, args ...any) { log().Error(msg, args...) }
