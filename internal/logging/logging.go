// Package logging owns the process-wide zap logger.
//
// Shells initialize it once from flags or config; everything else calls
// L() and logs structured fields. The TUI uses a file sink because stdout
// belongs to the terminal renderer.
package logging

import (
	"net/http"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	global *zap.Logger = zap.NewNop()
	level  zap.AtomicLevel
)

// Config selects level, encoding and destination.
type Config struct {
	// Level is debug, info, warn or error; unknown values mean info.
	Level string `yaml:"level"`
	// Format is console or json.
	Format string `yaml:"format"`
	// Output is stdout, stderr or a file path. Empty means stderr.
	Output string `yaml:"output"`
}

// Init builds and installs the global logger.
func Init(cfg Config) error {
	var lv zapcore.Level
	if err := lv.UnmarshalText([]byte(cfg.Level)); err != nil {
		lv = zapcore.InfoLevel
	}
	level = zap.NewAtomicLevelAt(lv)

	var zc zap.Config
	if cfg.Format == "json" {
		zc = zap.NewProductionConfig()
	} else {
		zc = zap.NewDevelopmentConfig()
	}
	zc.Level = level
	if cfg.Output == "" {
		cfg.Output = "stderr"
	}
	zc.OutputPaths = []string{cfg.Output}
	zc.ErrorOutputPaths = []string{cfg.Output}

	logger, err := zc.Build(zap.AddStacktrace(zapcore.ErrorLevel))
	if err != nil {
		return err
	}
	global = logger
	return nil
}

// Discard silences all logging; the TUI uses it when no log file is set,
// since writing to the terminal would corrupt the canvas.
func Discard() {
	global = zap.NewNop()
}

// SetLevel changes the level at runtime.
func SetLevel(l string) {
	var lv zapcore.Level
	if err := lv.UnmarshalText([]byte(l)); err != nil {
		return
	}
	level.SetLevel(lv)
}

// L returns the global logger.
func L() *zap.Logger { return global }

// S returns the sugared form for printf-style call sites.
func S() *zap.SugaredLogger { return global.Sugar() }

// Sync flushes buffered entries; call it on the way out.
func Sync() {
	_ = global.Sync()
}

// statusWriter captures the response code for the request log.
type statusWriter struct {
	http.ResponseWriter
	status int
	bytes  int64
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

func (w *statusWriter) Write(b []byte) (int, error) {
	n, err := w.ResponseWriter.Write(b)
	w.bytes += int64(n)
	return n, err
}

// Flush passes through so SSE handlers keep streaming when wrapped.
func (w *statusWriter) Flush() {
	if f, ok := w.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// Middleware logs one line per completed request.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(sw, r)
		L().Info("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", sw.status),
			zap.Int64("bytes", sw.bytes),
			zap.Duration("duration", time.Since(start)),
		)
	})
}
