package logger

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// New 创建 JSON 格式的日志器，pretty 为 true 时输出便于本地阅读的格式
func New(level string, pretty bool) zerolog.Logger {
	return NewWithWriter(os.Stdout, level, pretty)
}

func NewWithWriter(w io.Writer, level string, pretty bool) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil || level == "" {
		lvl = zerolog.InfoLevel
	}

	if pretty {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.DateTime}
	}

	return zerolog.New(w).Level(lvl).With().Timestamp().Logger()
}
