// Package logx is the process-wide log sink the supervisor emits through.
//
// It is deliberately tiny: a package-level cell holding an enable flag and
// an optional adapter function, set via Init. The supervisor never holds a
// reference to a logger directly — every call site goes through the
// free-standing Emit function, matching arkeep-io-arkeep's own convention
// of a process-wide *zap.Logger built once in cmd/main.go
// and threaded via .Named()/.With(), generalized here into a package cell
// so the sink can be set by applications that embed the supervisor as a
// library, not just by a binary's main().
package logx

import (
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Adapter receives one fully-formatted log line. Applications register one
// via Init to route okws log output into their own logging pipeline.
type Adapter func(line string)

var (
	mu      sync.Mutex
	enabled bool
	adapter Adapter
	fallback *zap.Logger
)

func init() {
	fallback = buildFallbackLogger()
}

// Init configures the process-wide sink. It is idempotent and safe to call
// multiple times — the last call wins. Passing a nil adapter falls back to
// stdout via a zap logger.
func Init(enable bool, adapt Adapter) {
	mu.Lock()
	defer mu.Unlock()
	enabled = enable
	adapter = adapt
}

// Emit composes "[OkWs] <timestamp> <message>" and dispatches it to the
// configured adapter, or to stdout if none is set. It is a no-op when
// logging is disabled or when enabled but never Init'd. Emit never panics:
// the sink must never raise from the supervisor's hot paths, so any
// adapter panic is recovered and silently dropped.
func Emit(message string, fields ...zapcore.Field) {
	mu.Lock()
	en, adapt := enabled, adapter
	mu.Unlock()

	if !en {
		return
	}

	line := formatLine(message, fields)

	if adapt != nil {
		safeInvoke(adapt, line)
		return
	}

	fallback.Info(line)
}

func formatLine(message string, fields []zapcore.Field) string {
	line := fmt.Sprintf("[OkWs] %s %s", time.Now().Format(time.RFC3339), message)
	for _, f := range fields {
		line += " " + f.Key + "=" + fieldValue(f)
	}
	return line
}

func fieldValue(f zapcore.Field) string {
	switch f.Type {
	case zapcore.StringType:
		return f.String
	case zapcore.ErrorType:
		if err, ok := f.Interface.(error); ok && err != nil {
			return err.Error()
		}
		return ""
	case zapcore.DurationType:
		return time.Duration(f.Integer).String()
	case zapcore.Int64Type, zapcore.Int32Type:
		return fmt.Sprintf("%d", f.Integer)
	case zapcore.BoolType:
		return fmt.Sprintf("%t", f.Integer == 1)
	default:
		return fmt.Sprintf("%v", f.Interface)
	}
}

// safeInvoke calls adapt(line) and recovers from any panic inside it, so a
// misbehaving adapter can never raise out of the supervisor's hot paths.
func safeInvoke(adapt Adapter, line string) {
	defer func() {
		_ = recover()
	}()
	adapt(line)
}

func buildFallbackLogger() *zap.Logger {
	cfg := zap.NewProductionConfig()
	cfg.Encoding = "console"
	cfg.EncoderConfig.TimeKey = ""
	cfg.EncoderConfig.CallerKey = ""
	cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	cfg.OutputPaths = []string{"stdout"}
	cfg.ErrorOutputPaths = []string{"stdout"}
	logger, err := cfg.Build()
	if err != nil {
		return zap.NewNop()
	}
	return logger
}
