package logging

import (
	"context"
	"io"
	"log/slog"
	"runtime"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// ZapHandler implements slog.Handler on top of a zap core. Records are encoded by
// zap's console encoder (development) or JSON encoder (production).
type ZapHandler struct {
	core      zapcore.Core
	level     slog.Leveler
	pkgLevels map[string]slog.Level
	name      string
	fields    []zap.Field
}

var _ slog.Handler = (*ZapHandler)(nil)

// NewZapHandler creates a handler writing to core under the given logger name.
// pkgLevels overrides level for loggers whose dotted name starts with a key.
func NewZapHandler(core zapcore.Core, level slog.Leveler, pkgLevels map[string]slog.Level, name string) *ZapHandler {
	return &ZapHandler{
		core:      core,
		level:     level,
		pkgLevels: pkgLevels,
		name:      name,
	}
}

func newZapCore(output io.Writer, json bool) zapcore.Core {
	var encoder zapcore.Encoder

	if json {
		encCfg := zap.NewProductionEncoderConfig()
		encCfg.EncodeTime = zapcore.ISO8601TimeEncoder
		encoder = zapcore.NewJSONEncoder(encCfg)
	} else {
		encCfg := zap.NewDevelopmentEncoderConfig()
		encCfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
		encCfg.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05.000000")
		encoder = zapcore.NewConsoleEncoder(encCfg)
	}

	return zapcore.NewCore(encoder, zapcore.Lock(zapcore.AddSync(output)), zapcore.DebugLevel)
}

// Handle implements slog.Handler by writing the record as a zap entry.
func (h *ZapHandler) Handle(_ context.Context, r slog.Record) error {
	//nolint:exhaustruct
	entry := zapcore.Entry{
		Level:      zapLevel(r.Level),
		Time:       r.Time,
		LoggerName: h.name,
		Message:    r.Message,
	}

	if r.PC != 0 {
		frame, _ := runtime.CallersFrames([]uintptr{r.PC}).Next()
		entry.Caller = zapcore.EntryCaller{
			Defined:  true,
			PC:       frame.PC,
			File:     frame.File,
			Line:     frame.Line,
			Function: frame.Function,
		}
	}

	checked := h.core.Check(entry, nil)
	if checked == nil {
		return nil
	}

	fields := make([]zap.Field, 0, len(h.fields)+r.NumAttrs())
	fields = append(fields, h.fields...)

	r.Attrs(func(a slog.Attr) bool {
		fields = append(fields, zapField(a))

		return true
	})

	checked.Write(fields...)

	return nil
}

// WithAttrs implements slog.Handler.WithAttrs.
func (h *ZapHandler) WithAttrs(attrs []slog.Attr) Handler {
	fields := make([]zap.Field, 0, len(h.fields)+len(attrs))
	fields = append(fields, h.fields...)

	for _, attr := range attrs {
		fields = append(fields, zapField(attr))
	}

	return h.with(fields)
}

// WithGroup implements slog.Handler.WithGroup. Attributes added afterwards are
// nested under name.
func (h *ZapHandler) WithGroup(name string) Handler {
	if name == "" {
		return h
	}

	fields := make([]zap.Field, 0, len(h.fields)+1)
	fields = append(fields, h.fields...)
	fields = append(fields, zap.Namespace(name))

	return h.with(fields)
}

// Enabled implements slog.Handler.Enabled. A matching package filter takes
// precedence over the global level.
func (h *ZapHandler) Enabled(_ context.Context, level slog.Level) bool {
	if pkgLevel, ok := h.pkgLevel(); ok {
		return level >= pkgLevel
	}

	return level >= h.level.Level()
}

func (h *ZapHandler) with(fields []zap.Field) *ZapHandler {
	return &ZapHandler{
		core:      h.core,
		level:     h.level,
		pkgLevels: h.pkgLevels,
		name:      h.name,
		fields:    fields,
	}
}

// pkgLevel looks up the most specific filter for the logger name:
// "repo.user.sqlite" tries "repo.user.sqlite", "repo.user", "repo", then "".
func (h *ZapHandler) pkgLevel() (slog.Level, bool) {
	if len(h.pkgLevels) == 0 {
		return 0, false
	}

	parts := strings.Split(h.name, ".")

	for i := len(parts); i >= 0; i-- {
		if level, ok := h.pkgLevels[strings.Join(parts[:i], ".")]; ok {
			return level, true
		}
	}

	return 0, false
}

func zapLevel(level slog.Level) zapcore.Level {
	switch {
	case level >= slog.LevelError:
		return zapcore.ErrorLevel
	case level >= slog.LevelWarn:
		return zapcore.WarnLevel
	case level >= slog.LevelInfo:
		return zapcore.InfoLevel
	default:
		return zapcore.DebugLevel
	}
}

//nolint:cyclop
func zapField(attr slog.Attr) zap.Field {
	value := attr.Value.Resolve()

	//nolint:exhaustive
	switch value.Kind() {
	case slog.KindGroup:
		return zap.Object(attr.Key, zapGroup(value.Group()))
	case slog.KindString:
		return zap.String(attr.Key, value.String())
	case slog.KindInt64:
		return zap.Int64(attr.Key, value.Int64())
	case slog.KindUint64:
		return zap.Uint64(attr.Key, value.Uint64())
	case slog.KindFloat64:
		return zap.Float64(attr.Key, value.Float64())
	case slog.KindBool:
		return zap.Bool(attr.Key, value.Bool())
	case slog.KindDuration:
		return zap.Duration(attr.Key, value.Duration())
	case slog.KindTime:
		return zap.Time(attr.Key, value.Time())
	default:
		return zap.Any(attr.Key, value.Any())
	}
}

type zapGroup []slog.Attr

func (g zapGroup) MarshalLogObject(enc zapcore.ObjectEncoder) error {
	for _, attr := range g {
		zapField(attr).AddTo(enc)
	}

	return nil
}
