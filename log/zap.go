package log

import (
	"context"
	"fmt"
	"io"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"moul.io/zapfilter"
)

type Level = zapcore.Level

const (
	InfoLevel   Level = zap.InfoLevel
	WarnLevel   Level = zap.WarnLevel
	ErrorLevel  Level = zap.ErrorLevel
	DPanicLevel Level = zap.DPanicLevel
	PanicLevel  Level = zap.PanicLevel
	FatalLevel  Level = zap.FatalLevel
	DebugLevel  Level = zap.DebugLevel
)

type Field = zap.Field

type Logger struct {
	l     *zap.Logger
	level Level
}

//nolint:gochecknoglobals // field constructor aliases
var (
	Skip       = zap.Skip
	Binary     = zap.Binary
	Bool       = zap.Bool
	Duration   = zap.Duration
	Float64    = zap.Float64
	Float32    = zap.Float32
	Int        = zap.Int
	Int64      = zap.Int64
	Int32      = zap.Int32
	Uint       = zap.Uint
	Uint64     = zap.Uint64
	Uint32     = zap.Uint32
	String     = zap.String
	Stringer   = zap.Stringer
	Time       = zap.Time
	Any        = zap.Any
	ErrorField = zap.Error
)

func (l *Logger) Debug(msg string, fields ...Field) {
	l.l.Debug(msg, fields...)
}

func (l *Logger) Info(msg string, fields ...Field) {
	l.l.Info(msg, fields...)
}

func (l *Logger) Warn(msg string, fields ...Field) {
	l.l.Warn(msg, fields...)
}

func (l *Logger) Error(msg string, fields ...Field) {
	l.l.Error(msg, fields...)
}

func (l *Logger) DPanic(msg string, fields ...Field) {
	l.l.DPanic(msg, fields...)
}

func (l *Logger) Panic(msg string, fields ...Field) {
	l.l.Panic(msg, fields...)
}

func (l *Logger) Fatal(msg string, fields ...Field) {
	l.l.Fatal(msg, fields...)
}

// sugared variants for the rare spots where building fields is overkill

func (l *Logger) Debugw(msg string, keysAndValues ...any) {
	l.l.Sugar().Debugw(msg, keysAndValues...)
}

func (l *Logger) Infow(msg string, keysAndValues ...any) {
	l.l.Sugar().Infow(msg, keysAndValues...)
}

func (l *Logger) Warnw(msg string, keysAndValues ...any) {
	l.l.Sugar().Warnw(msg, keysAndValues...)
}

func (l *Logger) Errorw(msg string, keysAndValues ...any) {
	l.l.Sugar().Errorw(msg, keysAndValues...)
}

func (l *Logger) Named(name string) *Logger {
	return &Logger{l: l.l.Named(name), level: l.level}
}

func (l *Logger) Level() Level {
	return l.level
}

func (l *Logger) Sync() error {
	return l.l.Sync()
}

type Option = zap.Option

//nolint:gochecknoglobals // option aliases
var (
	WithCaller    = zap.WithCaller
	AddStacktrace = zap.AddStacktrace
	AddCallerSkip = zap.AddCallerSkip
)

// New creates a logger writing JSON output to writer.
// Messages below level are discarded.
func New(writer io.Writer, level Level, opts ...Option) *Logger {
	if writer == nil {
		panic("the writer is nil")
	}
	cfg := zap.NewProductionConfig()
	core := zapcore.NewCore(
		zapcore.NewJSONEncoder(cfg.EncoderConfig),
		zapcore.AddSync(writer),
		level,
	)
	return &Logger{
		l:     zap.New(core, opts...),
		level: level,
	}
}

// DevLogger creates a console logger for interactive use.
func DevLogger(writer io.Writer, level Level, opts ...Option) *Logger {
	if writer == nil {
		panic("the writer is nil")
	}
	cfg := zap.NewDevelopmentEncoderConfig()
	cfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
	core := zapcore.NewCore(
		zapcore.NewConsoleEncoder(cfg),
		zapcore.AddSync(writer),
		level,
	)
	return &Logger{
		l:     zap.New(core, opts...),
		level: level,
	}
}

// DevLoggerWithFilter is DevLogger with zapfilter rules applied
// (for example "racesim.cache:debug *:info").
// Invalid rules fall back to the unfiltered logger.
func DevLoggerWithFilter(writer io.Writer, level Level, rules string, opts ...Option) *Logger {
	base := DevLogger(writer, level, opts...)
	filter, err := zapfilter.ParseRules(rules)
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid log filter rules %q: %v\n", rules, err)
		return base
	}
	return &Logger{
		l:     zap.New(zapfilter.NewFilteringCore(base.l.Core(), filter)),
		level: level,
	}
}

func ParseLevel(text string) (Level, error) {
	return zapcore.ParseLevel(text)
}

//nolint:gochecknoglobals // package default logger
var std = New(os.Stderr, InfoLevel)

func Default() *Logger {
	return std
}

// ResetDefault replaces the package default logger.
// Not safe for concurrent use; call it during startup.
func ResetDefault(l *Logger) {
	std = l
	Info = std.Info
	Warn = std.Warn
	Error = std.Error
	Debug = std.Debug
	Panic = std.Panic
	DPanic = std.DPanic
	Fatal = std.Fatal
}

//nolint:gochecknoglobals // bound to the default logger, rebound by ResetDefault
var (
	Info   = std.Info
	Warn   = std.Warn
	Error  = std.Error
	Debug  = std.Debug
	Panic  = std.Panic
	DPanic = std.DPanic
	Fatal  = std.Fatal
)

func Sync() error {
	if std != nil {
		return std.Sync()
	}
	return nil
}

type ctxKey struct{}

// NewContext returns a context carrying l.
func NewContext(ctx context.Context, l *Logger) context.Context {
	return context.WithValue(ctx, ctxKey{}, l)
}

// GetFromContext returns the logger stored in ctx or the package default.
func GetFromContext(ctx context.Context) *Logger {
	if l, ok := ctx.Value(ctxKey{}).(*Logger); ok {
		return l
	}
	return std
}
