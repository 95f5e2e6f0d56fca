// Package observability configures the process-wide zap logger used by
// the CLI layer and the orchestrator for diagnostic output (§7:
// per-source timeouts are logged under --verbose/--trace, never surfaced
// as failures).
package observability

import (
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// CLILogger is the process-wide logger. It is a no-op logger until Init
// is called, so packages that log during early init (before flag
// parsing) never panic on a nil logger.
var CLILogger *zap.Logger = zap.NewNop()

// Options controls the logger built by Init.
type Options struct {
	// Verbose enables info-level diagnostics (per-source timeouts,
	// cache outcomes).
	Verbose bool
	// Trace enables debug-level diagnostics (per-item recoverable
	// failures that are otherwise swallowed entirely).
	Trace bool
	// NoColor disables ANSI level coloring in the console encoder.
	NoColor bool
}

// Init builds and installs CLILogger per opts, returning it for callers
// that want a local reference. Diagnostics go to stderr so stdout stays
// reserved for --json/--csv/--text results.
func Init(opts Options) *zap.Logger {
	level := zapcore.WarnLevel
	switch {
	case opts.Trace:
		level = zapcore.DebugLevel
	case opts.Verbose:
		level = zapcore.InfoLevel
	}

	encoderCfg := zap.NewDevelopmentEncoderConfig()
	encoderCfg.TimeKey = ""
	encoderCfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
	if opts.NoColor {
		encoderCfg.EncodeLevel = zapcore.CapitalLevelEncoder
	}

	core := zapcore.NewCore(
		zapcore.NewConsoleEncoder(encoderCfg),
		zapcore.Lock(os.Stderr),
		level,
	)

	CLILogger = zap.New(core)
	return CLILogger
}

// Sync flushes any buffered log entries. Errors from syncing a console
// stream (e.g. ENOTTY on a redirected stderr) are expected and ignored.
func Sync() {
	_ = CLILogger.Sync()
}
