// Package logger provides process-wide logging for lexgraph.
// Debug and Info messages are only emitted in verbose mode so that the
// answering pipeline can be traced step by step. Warnings and errors are
// always written. Output is produced by a zap core, either as console lines
// (CLI) or as JSON (server mode).
package logger

import (
	"io"
	"os"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	mu      sync.RWMutex
	verbose bool
	jsonOut bool
	level             = zapcore.WarnLevel
	output  io.Writer = os.Stderr
	sugar   *zap.SugaredLogger
)

func init() {
	rebuild()
}

// rebuild recreates the zap core from the current settings (caller must hold mu).
func rebuild() {
	encCfg := zap.NewProductionEncoderConfig()
	encCfg.EncodeLevel = zapcore.CapitalLevelEncoder
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	var encoder zapcore.Encoder
	if jsonOut {
		encoder = zapcore.NewJSONEncoder(encCfg)
	} else {
		// Console lines stay close to "[LEVEL] message".
		encCfg.TimeKey = ""
		encCfg.CallerKey = ""
		encCfg.ConsoleSeparator = " "
		encCfg.EncodeLevel = func(l zapcore.Level, enc zapcore.PrimitiveArrayEncoder) {
			enc.AppendString("[" + l.CapitalString() + "]")
		}
		encoder = zapcore.NewConsoleEncoder(encCfg)
	}

	enabled := level
	if verbose {
		enabled = zapcore.DebugLevel
	}

	core := zapcore.NewCore(encoder, zapcore.AddSync(output), enabled)
	sugar = zap.New(core).Sugar()
}

// SetVerbose enables or disables verbose logging.
func SetVerbose(v bool) {
	mu.Lock()
	defer mu.Unlock()
	verbose = v
	rebuild()
}

// IsVerbose returns true if verbose mode is enabled.
func IsVerbose() bool {
	mu.RLock()
	defer mu.RUnlock()
	return verbose
}

// SetLevel sets the minimum level written when not verbose
// ("debug", "info", "warn", "error").
func SetLevel(name string) error {
	l, err := zapcore.ParseLevel(name)
	if err != nil {
		return err
	}
	mu.Lock()
	defer mu.Unlock()
	level = l
	rebuild()
	return nil
}

// SetJSON switches between console and JSON encoding.
func SetJSON(v bool) {
	mu.Lock()
	defer mu.Unlock()
	jsonOut = v
	rebuild()
}

// SetOutput sets the output writer for logs.
// Defaults to os.Stderr. Useful for testing.
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	output = w
	rebuild()
}

// Debug logs a formatted message at debug level.
func Debug(format string, args ...any) {
	mu.RLock()
	defer mu.RUnlock()
	sugar.Debugf(format, args...)
}

// Section prints a section header if verbose mode is enabled.
func Section(name string) {
	mu.RLock()
	defer mu.RUnlock()
	if verbose {
		io.WriteString(output, "\n=== "+name+" ===\n") //nolint:errcheck
	}
}

// Info logs a formatted message at info level.
func Info(format string, args ...any) {
	mu.RLock()
	defer mu.RUnlock()
	sugar.Infof(format, args...)
}

// Warn logs a formatted message at warn level.
func Warn(format string, args ...any) {
	mu.RLock()
	defer mu.RUnlock()
	sugar.Warnf(format, args...)
}

// Error logs a formatted message at error level.
func Error(format string, args ...any) {
	mu.RLock()
	defer mu.RUnlock()
	sugar.Errorf(format, args...)
}

// Infow logs a message with structured key/value pairs at info level.
func Infow(msg string, keysAndValues ...any) {
	mu.RLock()
	defer mu.RUnlock()
	sugar.Infow(msg, keysAndValues...)
}

// Warnw logs a message with structured key/value pairs at warn level.
func Warnw(msg string, keysAndValues ...any) {
	mu.RLock()
	defer mu.RUnlock()
	sugar.Warnw(msg, keysAndValues...)
}

// Sync flushes any buffered log entries.
func Sync() error {
	mu.RLock()
	defer mu.RUnlock()
	return sugar.Sync()
}
