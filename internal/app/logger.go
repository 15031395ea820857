package app

import (
	"io"
	"log/slog"

	"github.com/lmittmann/tint"

	"github.com/vk/queryflow/internal/config"
)

// newLogger builds the process logger: tinted text for humans, JSON for log
// pipelines.
func newLogger(level slog.Level, format config.LogFormat, output io.Writer) *slog.Logger {
	if format == config.LogFormatJSON {
		return slog.New(slog.NewJSONHandler(output, &slog.HandlerOptions{Level: level}))
	}
	return slog.New(tint.NewHandler(output, &tint.Options{
		Level:      level,
		TimeFormat: "2006-01-02 15:04:05.000Z07:00",
	}))
}
