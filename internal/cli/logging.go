package cli

import (
	"context"
	"io"
	"log/slog"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// newZapLogger builds the process logger: production JSON encoding, written
// to w, at the configured level (Debug when verbose).
func newZapLogger(w io.Writer, level slog.Level, verbose bool) *zap.Logger {
	if verbose {
		level = slog.LevelDebug
	}
	core := zapcore.NewCore(
		zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig()),
		zapcore.AddSync(w),
		zap.NewAtomicLevelAt(zapLevel(level)),
	)
	return zap.New(core)
}

// zapHandler adapts a zap.Logger to slog.Handler so the library packages,
// which log through slog, share the CLI's zap sink.
type zapHandler struct {
	logger *zap.Logger
	group  string
}

func newSlogLogger(z *zap.Logger) *slog.Logger {
	return slog.New(&zapHandler{logger: z})
}

func (h *zapHandler) Enabled(_ context.Context, level slog.Level) bool {
	return h.logger.Core().Enabled(zapLevel(level))
}

func (h *zapHandler) Handle(_ context.Context, r slog.Record) error {
	ce := h.logger.Check(zapLevel(r.Level), r.Message)
	if ce == nil {
		return nil
	}
	if !r.Time.IsZero() {
		ce.Time = r.Time
	}
	fields := make([]zap.Field, 0, r.NumAttrs())
	r.Attrs(func(a slog.Attr) bool {
		if f, ok := zapField(a); ok {
			fields = append(fields, f)
		}
		return true
	})
	if h.group != "" {
		fields = []zap.Field{zap.Dict(h.group, fields...)}
	}
	ce.Write(fields...)
	return nil
}

func (h *zapHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	fields := make([]zap.Field, 0, len(attrs))
	for _, a := range attrs {
		if f, ok := zapField(a); ok {
			fields = append(fields, f)
		}
	}
	if h.group != "" {
		fields = []zap.Field{zap.Dict(h.group, fields...)}
	}
	return &zapHandler{logger: h.logger.With(fields...), group: h.group}
}

func (h *zapHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	group := name
	if h.group != "" {
		group = h.group + "." + name
	}
	return &zapHandler{logger: h.logger, group: group}
}

func zapLevel(l slog.Level) zapcore.Level {
	switch {
	case l < slog.LevelInfo:
		return zapcore.DebugLevel
	case l < slog.LevelWarn:
		return zapcore.InfoLevel
	case l < slog.LevelError:
		return zapcore.WarnLevel
	default:
		return zapcore.ErrorLevel
	}
}

func zapField(a slog.Attr) (zap.Field, bool) {
	if a.Equal(slog.Attr{}) {
		return zap.Field{}, false
	}
	v := a.Value.Resolve()
	switch v.Kind() {
	case slog.KindString:
		return zap.String(a.Key, v.String()), true
	case slog.KindInt64:
		return zap.Int64(a.Key, v.Int64()), true
	case slog.KindUint64:
		return zap.Uint64(a.Key, v.Uint64()), true
	case slog.KindFloat64:
		return zap.Float64(a.Key, v.Float64()), true
	case slog.KindBool:
		return zap.Bool(a.Key, v.Bool()), true
	case slog.KindDuration:
		return zap.Duration(a.Key, v.Duration()), true
	case slog.KindTime:
		return zap.Time(a.Key, v.Time()), true
	case slog.KindGroup:
		attrs := v.Group()
		fields := make([]zap.Field, 0, len(attrs))
		for _, ga := range attrs {
			if f, ok := zapField(ga); ok {
				fields = append(fields, f)
			}
		}
		if a.Key == "" {
			return zap.Inline(fieldList(fields)), len(fields) > 0
		}
		return zap.Dict(a.Key, fields...), true
	default:
		if err, ok := v.Any().(error); ok {
			return zap.NamedError(a.Key, err), true
		}
		return zap.Any(a.Key, v.Any()), true
	}
}

// fieldList inlines the fields of an unnamed slog group.
type fieldList []zap.Field

func (fl fieldList) MarshalLogObject(enc zapcore.ObjectEncoder) error {
	for _, f := range fl {
		f.AddTo(enc)
	}
	return nil
}
