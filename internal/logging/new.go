package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/dmitrijs2005/gophmarks/internal/filex"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Options selects the logger implementation and its sink.
type Options struct {
	Level  string // debug | info | warn | error
	Format string // text | json | zap
	File   string // empty means stderr
}

// New builds a Logger from opts. The returned closer releases the log file
// (if any) and flushes zap buffers; it is never nil.
func New(opts Options) (Logger, func() error, error) {
	var w io.Writer = os.Stderr
	closeFn := func() error { return nil }

	if opts.File != "" {
		path, err := filex.EnsureParentDir(opts.File)
		if err != nil {
			return nil, closeFn, err
		}
		rotating := &lumberjack.Logger{
			Filename:   path,
			MaxSize:    10, // megabytes
			MaxBackups: 3,
			MaxAge:     28, // days
		}
		w = rotating
		closeFn = rotating.Close
	}

	switch strings.ToLower(opts.Format) {
	case "zap":
		core := zapcore.NewCore(
			zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig()),
			zapcore.AddSync(w),
			zapLevel(opts.Level),
		)
		zl := NewZapLogger(zap.New(core))
		fileClose := closeFn
		closeFn = func() error {
			_ = zl.Sync()
			return fileClose()
		}
		return zl, closeFn, nil
	case "json":
		h := slog.NewJSONHandler(w, &slog.HandlerOptions{Level: slogLevel(opts.Level)})
		return NewSlogLogger(slog.New(h)), closeFn, nil
	default:
		h := slog.NewTextHandler(w, &slog.HandlerOptions{Level: slogLevel(opts.Level)})
		return NewSlogLogger(slog.New(h)), closeFn, nil
	}
}

func slogLevel(lvl string) slog.Level {
	switch strings.ToLower(lvl) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func zapLevel(lvl string) zapcore.Level {
	switch strings.ToLower(lvl) {
	case "debug":
		return zapcore.DebugLevel
	case "warn":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

// Nop returns a Logger that discards everything. Useful in tests.
func Nop() Logger {
	return NewSlogLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
}
