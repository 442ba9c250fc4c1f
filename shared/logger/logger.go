package logger

import (
	"os"
	"strings"
	"time"
)

// Log is the process-wide logger. It starts as a console zap logger and is
// replaced by Configure once configuration has been loaded.
var Log Logger

// Field represents a typed key-value pair for structured logging
type Field struct {
	Key   string
	Type  FieldType
	Value any
}

// FieldType defines the type of a log field
type FieldType int

const (
	StringType FieldType = iota
	IntType
	Int64Type
	Uint64Type
	Float64Type
	BoolType
	ErrorType
	DurationType
	AnyType
	StringsType
)

// Logger defines the interface for structured logging
type Logger interface {
	Info(msg string, fields ...Field)
	Error(msg string, fields ...Field)
	Debug(msg string, fields ...Field)
	Warn(msg string, fields ...Field)
	Fatal(msg string, fields ...Field)

	// With returns a child logger that always carries the given fields.
	With(fields ...Field) Logger
}

// Options selects and tunes a logger backend.
type Options struct {
	Backend     string // zap, noop
	Level       string // debug, info, warn, error
	File        string // rotated JSON file, empty for console only
	Development bool
}

func String(key, value string) Field {
	return Field{Key: key, Type: StringType, Value: value}
}

func Int(key string, value int) Field {
	return Field{Key: key, Type: IntType, Value: value}
}

func Int64(key string, value int64) Field {
	return Field{Key: key, Type: Int64Type, Value: value}
}

func Uint64(key string, value uint64) Field {
	return Field{Key: key, Type: Uint64Type, Value: value}
}

func Float64(key string, value float64) Field {
	return Field{Key: key, Type: Float64Type, Value: value}
}

func Bool(key string, value bool) Field {
	return Field{Key: key, Type: BoolType, Value: value}
}

func Err(err error) Field {
	return Field{Key: "error", Type: ErrorType, Value: err}
}

func Duration(key string, value time.Duration) Field {
	return Field{Key: key, Type: DurationType, Value: value}
}

func Any(key string, value any) Field {
	return Field{Key: key, Type: AnyType, Value: value}
}

func Strings(key string, value []string) Field {
	return Field{Key: key, Type: StringsType, Value: value}
}

func init() {
	Log = New(Options{
		Backend:     os.Getenv("SQLQ_LOGGER"),
		Level:       os.Getenv("SQLQ_LOG_LEVEL"),
		Development: os.Getenv("SQLQ_ENV") == "development",
	})
}

// New builds a logger for the requested backend. Unknown backends fall back to zap.
func New(opts Options) Logger {
	switch strings.ToLower(opts.Backend) {
	case "noop", "none":
		return NewNoOpLogger()
	default:
		return NewZapLogger(opts)
	}
}

// Configure replaces the global logger.
func Configure(opts Options) {
	Log = New(opts)
}

// SetGlobalLogger allows users to replace the global logger
func SetGlobalLogger(l Logger) {
	Log = l
}

func Info(msg string, fields ...Field) {
	Log.Info(msg, fields...)
}

func Error(msg string, fields ...Field) {
	Log.Error(msg, fields...)
}

func Debug(msg string, fields ...Field) {
	Log.Debug(msg, fields...)
}

func Warn(msg string, fields ...Field) {
	Log.Warn(msg, fields...)
}

func Fatal(msg string, fields ...Field) {
	Log.Fatal(msg, fields...)
}
