// Package server exposes the scanner, the layout engines, the deleter and
// the live-update stream over HTTP. The JSON wire shapes are exactly the
// scanner's RawNode and the engines' Frame, so a browser client renders
// what a local shell renders.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"path/filepath"
	"strconv"
	"time"

	"go.uber.org/zap"

	"spaceview/internal/diskinfo"
	"spaceview/internal/events"
	"spaceview/internal/layout"
	"spaceview/internal/logging"
	"spaceview/internal/platform"
	"spaceview/internal/scale"
	"spaceview/internal/scan"
	"spaceview/internal/trash"
	"spaceview/internal/tree"
)

// keepalive is how often idle SSE connections get a comment so proxies
// do not reap them.
const keepalive = 20 * time.Second

// Config carries the server's own settings plus the per-request defaults
// handlers fall back to.
type Config struct {
	Addr string
	// ScanDefaults fills in depth and max-children when the query string
	// leaves them out.
	ScanDefaults scan.Options
	// Engines are the layout tunables /api/layout renders with.
	Engines layout.Config
	// ScalerFor resolves the size curve for a mode; nil uses the
	// builder's default curve everywhere.
	ScalerFor func(layout.Mode) (scale.Func, error)
}

// Server wires the collaborators behind the HTTP surface.
type Server struct {
	cfg   Config
	cache *scan.Cache
	sizer diskinfo.Sizer
	bin   *trash.Bin
	bus   *events.Broadcaster
}

// New assembles a server. Every dependency is required except bus, which
// may be nil to disable /api/events.
func New(cfg Config, cache *scan.Cache, sizer diskinfo.Sizer, bin *trash.Bin, bus *events.Broadcaster) *Server {
	if cfg.Addr == "" {
		cfg.Addr = ":5005"
	}
	return &Server{cfg: cfg, cache: cache, sizer: sizer, bin: bin, bus: bus}
}

// Handler builds the route table.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /api/scan", s.handleScan)
	mux.HandleFunc("GET /api/layout", s.handleLayout)
	mux.HandleFunc("GET /api/roots", s.handleRoots)
	mux.HandleFunc("GET /api/disk-info", s.handleDiskInfo)
	mux.HandleFunc("GET /api/clean-targets", s.handleCleanTargets)
	mux.HandleFunc("POST /api/delete", s.handleDelete)
	mux.HandleFunc("GET /api/trash", s.handleTrashList)
	mux.HandleFunc("POST /api/restore", s.handleRestore)
	mux.HandleFunc("GET /api/events", s.handleEvents)
	return logging.Middleware(mux)
}

// ListenAndServe runs until ctx is canceled, then drains connections.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()
	logging.L().Info("listening", zap.String("addr", s.cfg.Addr))

	select {
	case <-ctx.Done():
		shutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutCtx)
	case err := <-errCh:
		return err
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "OK"})
}

// scanParams resolves path/depth/max_children with the configured
// defaults. An empty path scans the platform start directory.
func (s *Server) scanParams(r *http.Request) (string, scan.Options) {
	q := r.URL.Query()
	path := q.Get("path")
	if path == "" {
		path = platform.Impl.DefaultStartPath()
	}
	opt := s.cfg.ScanDefaults
	if d, err := strconv.Atoi(q.Get("depth")); err == nil {
		opt.Depth = d
	}
	if mc, err := strconv.Atoi(q.Get("max_children")); err == nil {
		opt.MaxChildren = mc
	}
	return path, opt
}

func (s *Server) handleScan(w http.ResponseWriter, r *http.Request) {
	path, opt := s.scanParams(r)

	start := time.Now()
	root, st, err := s.cache.Scan(r.Context(), path, opt)
	if err != nil {
		writeScanErr(w, path, err)
		return
	}
	logging.L().Info("scan served",
		zap.String("path", path),
		zap.Int64("bytes", st.Bytes),
		zap.Int64("files", st.Files),
		zap.Duration("elapsed", time.Since(start)),
	)
	if s.bus != nil {
		s.bus.Publish(events.Event{Type: events.TypeScanDone, Path: root.Path, Root: root.Path})
	}
	writeJSON(w, http.StatusOK, root)
}

func (s *Server) handleLayout(w http.ResponseWriter, r *http.Request) {
	path, opt := s.scanParams(r)
	q := r.URL.Query()

	mode := layout.Mode(q.Get("mode"))
	if q.Get("mode") == "" {
		mode = layout.ModeSunburst
	}
	engine, err := layout.ForMode(mode, s.cfg.Engines)
	if err != nil {
		writeErr(w, http.StatusBadRequest, err.Error())
		return
	}
	width := floatParam(q.Get("width"), 1200)
	height := floatParam(q.Get("height"), 800)
	if width <= 0 || height <= 0 {
		writeErr(w, http.StatusBadRequest, "width and height must be positive")
		return
	}

	root, _, err := s.cache.Scan(r.Context(), path, opt)
	if err != nil {
		writeScanErr(w, path, err)
		return
	}

	builder := tree.Builder{}
	if s.cfg.ScalerFor != nil {
		fn, err := s.cfg.ScalerFor(mode)
		if err != nil {
			writeErr(w, http.StatusBadRequest, err.Error())
			return
		}
		builder.Scale = fn
	}
	h := builder.Build(root)
	writeJSON(w, http.StatusOK, engine.Layout(h, 0, width, height))
}

func (s *Server) handleRoots(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, diskinfo.Roots())
}

func (s *Server) handleDiskInfo(w http.ResponseWriter, r *http.Request) {
	info, err := diskinfo.Collect(r.Context(), s.sizer)
	if err != nil {
		writeErr(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, info)
}

func (s *Server) handleCleanTargets(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, diskinfo.CleanTargets(r.Context(), s.sizer))
}

type deleteRequest struct {
	Path      string `json:"path"`
	Permanent bool   `json:"permanent"`
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	var req deleteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Path == "" {
		writeErr(w, http.StatusBadRequest, "body must be {\"path\": ..., \"permanent\": bool}")
		return
	}

	res, err := s.bin.Delete(r.Context(), req.Path, req.Permanent)
	switch {
	case errors.Is(err, trash.ErrProtected):
		logging.L().Warn("delete blocked", zap.String("path", req.Path))
		writeErr(w, http.StatusForbidden, "cannot delete a protected system path")
		return
	case errors.Is(err, fs.ErrNotExist):
		writeErr(w, http.StatusNotFound, fmt.Sprintf("no such path: %s", req.Path))
		return
	case err != nil:
		writeErr(w, http.StatusInternalServerError, err.Error())
		return
	}

	// Sizes above the deleted node changed everywhere.
	s.cache.Invalidate()
	if s.bus != nil {
		typ := events.TypeTrashed
		if res.Method == trash.MethodPermanent {
			typ = events.TypeDeleted
		}
		s.bus.Publish(events.Event{Type: typ, Path: req.Path, Root: filepath.Dir(req.Path)})
	}
	logging.L().Info("deleted",
		zap.String("path", req.Path),
		zap.String("method", res.Method),
		zap.Int("skipped", len(res.Skipped)),
	)
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleTrashList(w http.ResponseWriter, _ *http.Request) {
	entries, err := s.bin.List()
	if err != nil {
		writeErr(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

type restoreRequest struct {
	TrashName string `json:"trash_name"`
}

func (s *Server) handleRestore(w http.ResponseWriter, r *http.Request) {
	var req restoreRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.TrashName == "" {
		writeErr(w, http.StatusBadRequest, "body must be {\"trash_name\": ...}")
		return
	}
	restored, err := s.bin.Restore(r.Context(), req.TrashName)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			writeErr(w, http.StatusNotFound, err.Error())
			return
		}
		writeErr(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.cache.Invalidate()
	if s.bus != nil {
		s.bus.Publish(events.Event{Type: events.TypeCreated, Path: restored, Root: filepath.Dir(restored)})
	}
	writeJSON(w, http.StatusOK, map[string]string{"restored": restored})
}

// handleEvents streams the broadcaster over SSE: one hello event, then a
// data frame per published event, with keepalive comments in between.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	if s.bus == nil {
		writeErr(w, http.StatusServiceUnavailable, "live updates not enabled")
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeErr(w, http.StatusInternalServerError, "streaming not supported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	ch := s.bus.Subscribe()
	defer s.bus.Unsubscribe(ch)
	logging.L().Debug("sse client connected", zap.String("remote", r.RemoteAddr))

	hello, _ := events.Event{Type: "connected", Time: time.Now().Unix()}.SSE()
	w.Write(hello)
	flusher.Flush()

	ticker := time.NewTicker(keepalive)
	defer ticker.Stop()
	for {
		select {
		case <-r.Context().Done():
			logging.L().Debug("sse client gone", zap.String("remote", r.RemoteAddr))
			return
		case <-ticker.C:
			fmt.Fprint(w, ": keepalive\n\n")
			flusher.Flush()
		case ev, open := <-ch:
			if !open {
				return
			}
			frame, err := ev.SSE()
			if err != nil {
				continue
			}
			w.Write(frame)
			flusher.Flush()
		}
	}
}

func floatParam(raw string, def float64) float64 {
	if raw == "" {
		return def
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return def
	}
	return v
}

// writeScanErr maps scanner failures onto HTTP codes.
func writeScanErr(w http.ResponseWriter, path string, err error) {
	switch {
	case errors.Is(err, scan.ErrNotFound):
		writeErr(w, http.StatusNotFound, fmt.Sprintf("no such directory: %s", path))
	case errors.Is(err, scan.ErrNotDirectory):
		writeErr(w, http.StatusBadRequest, fmt.Sprintf("not a directory: %s", path))
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		writeErr(w, http.StatusRequestTimeout, "scan canceled")
	default:
		writeErr(w, http.StatusInternalServerError, err.Error())
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeErr(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
