// Package nlog provides the leveled, low-allocation logging surface used
// throughout the scanner. It mirrors the call shape of the teacher's
// glog wrapper (Infof/Warningf/Errorf, verbosity-gated V(n)) but is backed
// by go.uber.org/zap so that log lines come out structured.
package nlog

import (
	"os"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	mu      sync.Mutex
	sugar   = mustBuild()
	verbose int32
)

func mustBuild() *zap.SugaredLogger {
	level := zapcore.InfoLevel
	if lv := os.Getenv("LATTICE_LOG_LEVEL"); lv != "" {
		_ = level.Set(lv)
	}
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(level)
	cfg.EncoderConfig.TimeKey = "ts"
	l, err := cfg.Build(zap.AddCallerSkip(1))
	if err != nil {
		// fall back to a bare logger rather than panicking at init time
		l = zap.NewNop()
	}
	return l.Sugar()
}

// SetVerbosity sets the module-local verbosity threshold consulted by V(n).
// It plays the role the teacher's "glog -v" flag plays for glog.FastV.
func SetVerbosity(n int) { atomic.StoreInt32(&verbose, int32(n)) }

func Infof(format string, args ...interface{})    { sugar.Infof(format, args...) }
func Warningf(format string, args ...interface{}) { sugar.Warnf(format, args...) }
func Errorf(format string, args ...interface{})   { sugar.Errorf(format, args...) }
func Fatalf(format string, args ...interface{})   { sugar.Fatalf(format, args...) }

func Infoln(args ...interface{})    { sugar.Info(args...) }
func Warningln(args ...interface{}) { sugar.Warn(args...) }
func Errorln(args ...interface{})   { sugar.Error(args...) }

// Verbose gates expensive-to-format diagnostic logging, same purpose as
// glog.FastV(level, module) in the teacher: skip the call entirely unless
// the configured verbosity is high enough.
type Verbose bool

// V reports whether logging at level n is enabled, mirroring glog's V(n).
func V(n int32) Verbose {
	return Verbose(atomic.LoadInt32(&verbose) >= n)
}

func (v Verbose) Infof(format string, args ...interface{}) {
	if v {
		sugar.Infof(format, args...)
	}
}

func (v Verbose) Infoln(args ...interface{}) {
	if v {
		sugar.Info(args...)
	}
}

// With returns a child logger tagged with the given key/value pairs, used
// by components that want every line correlated with a trace-id or
// session-id without threading a formatted prefix through every call site.
func With(kv ...interface{}) *zap.SugaredLogger {
	return sugar.With(kv...)
}

// Sync flushes any buffered log entries; call once on process shutdown.
func Sync() error {
	mu.Lock()
	defer mu.Unlock()
	return sugar.Sync()
}
