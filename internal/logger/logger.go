// internal/logger/logger.go
//
// Structured JSON logger (Zap + Lumberjack).
//
// Context
// -------
// The gateway writes lifecycle, access, and error events to one JSON log per
// day under `<dir>/YYYY-MM-DD.log`.  When running in an interactive TTY we
// tee the same events to stdout.  Rotation, compression, and retention are
// handled by Lumberjack.
//
// Usage
// -----
//
//	log, err := logger.New(cfg.Log.Dir, cfg.Log.Level, runningInTTY())
//	if err != nil { … }
//	log.Infow("gateway online", "addr", addr)
//
//	// Request scope: the access middleware stores a child logger.
//	logger.FromContext(ctx).Warnw("touch failed", "err", err)
//
// Notes
// -----
// • Zap core uses ISO-8601 timestamps and lowercase levels.
// • Errors are written to the same sink via `ErrorOutput`.
// • Oxford commas, two spaces after periods.
package logger

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/natefinch/lumberjack"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New returns a *zap.SugaredLogger that writes JSON to dir/YYYY-MM-DD.log.
// When tee == true, a console core is also attached.  The logger is
// installed as the process-wide default via zap.ReplaceGlobals.
func New(dir, level string, tee bool) (*zap.SugaredLogger, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}

	lvl := zap.InfoLevel
	if level != "" {
		if err := lvl.Set(level); err != nil {
			return nil, err
		}
	}

	fileName := time.Now().Format("2006-01-02") + ".log"
	fileSink := &lumberjack.Logger{
		Filename:   filepath.Join(dir, fileName),
		MaxSize:    50, // MB
		MaxBackups: 7,  // keep last seven files
		MaxAge:     14, // days
		Compress:   true,
	}

	encCfg := zapcore.EncoderConfig{
		TimeKey:      "ts",
		LevelKey:     "level",
		MessageKey:   "msg",
		CallerKey:    "caller",
		EncodeTime:   zapcore.ISO8601TimeEncoder,
		EncodeLevel:  zapcore.LowercaseLevelEncoder,
		EncodeCaller: zapcore.ShortCallerEncoder,
	}
	cores := []zapcore.Core{
		zapcore.NewCore(zapcore.NewJSONEncoder(encCfg), zapcore.AddSync(fileSink), lvl),
	}

	if tee {
		cores = append(cores, zapcore.NewCore(
			zapcore.NewConsoleEncoder(encCfg),
			zapcore.AddSync(os.Stdout),
			lvl,
		))
	}

	z := zap.New(
		zapcore.NewTee(cores...),
		zap.AddCaller(),
		zap.ErrorOutput(zapcore.AddSync(fileSink)),
	).Sugar()

	// Make this the global logger so zap.L() works everywhere after startup.
	zap.ReplaceGlobals(z.Desugar())

	z.Infow("logger online", "tee", tee, "level", lvl.String())
	return z, nil
}

/*──────────────────────────── request scope ───────────────────────────────*/

type ctxKey struct{}

// WithContext returns a copy of ctx carrying l.
func WithContext(ctx context.Context, l *zap.SugaredLogger) context.Context {
	return context.WithValue(ctx, ctxKey{}, l)
}

// FromContext returns the request logger, or the global sugared logger when
// none was attached.
func FromContext(ctx context.Context) *zap.SugaredLogger {
	if l, ok := ctx.Value(ctxKey{}).(*zap.SugaredLogger); ok && l != nil {
		return l
	}
	return zap.S()
}
