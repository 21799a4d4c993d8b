// Package watch runs one tool over every PDF dropped into a folder.
package watch

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"strings"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"golang.org/x/sync/errgroup"

	"github.com/platinummonkey/pdfedit/internal/engine"
	"github.com/platinummonkey/pdfedit/internal/logger"
	"github.com/platinummonkey/pdfedit/internal/watermark"
)

// DefaultDebounce is how long a file must stay quiet before it is processed
const DefaultDebounce = 500 * time.Millisecond

// Watcher processes PDFs as they appear in an input directory
type Watcher struct {
	inputDir   string
	outputDir  string
	request    engine.Request
	session    engine.Config
	debounce   time.Duration
	workers    int
	healthAddr string
	pidFile    string
	logger     *logger.Logger

	status     *StatusTracker
	rescan     chan struct{}
	httpServer *http.Server
}

// Config holds configuration for the watcher
type Config struct {
	InputDir  string
	OutputDir string

	// Request is run against every input; Tool must not be merge
	Request engine.Request

	// Session configures the per-file session
	Session *engine.Config

	Debounce time.Duration // default 500ms
	Workers  int           // default GOMAXPROCS

	HealthCheckAddr string // Optional status server address (e.g. ":8080")
	PIDFile         string // Optional PID file path

	Logger *logger.Logger
}

// New creates a watcher
func New(cfg *Config) (*Watcher, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	if cfg.InputDir == "" || cfg.OutputDir == "" {
		return nil, fmt.Errorf("input and output directories are required")
	}
	if _, err := engine.ParseTool(string(cfg.Request.Tool)); err != nil {
		return nil, err
	}
	if cfg.Request.Tool == engine.ToolMerge {
		return nil, fmt.Errorf("merge cannot run per file")
	}

	in, err := filepath.Abs(cfg.InputDir)
	if err != nil {
		return nil, err
	}
	out, err := filepath.Abs(cfg.OutputDir)
	if err != nil {
		return nil, err
	}
	if in == out {
		return nil, fmt.Errorf("output directory must differ from the input directory")
	}

	log := cfg.Logger
	if log == nil {
		log = logger.Get()
	}

	session := engine.Config{}
	if cfg.Session != nil {
		session = *cfg.Session
	}
	session.Logger = log
	if session.Metrics == nil {
		// the embedded font is parsed once and shared by every file
		if session.Metrics, err = watermark.NewMetrics(); err != nil {
			return nil, err
		}
	}

	debounce := cfg.Debounce
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	workers := cfg.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	return &Watcher{
		inputDir:   in,
		outputDir:  out,
		request:    cfg.Request,
		session:    session,
		debounce:   debounce,
		workers:    workers,
		healthAddr: cfg.HealthCheckAddr,
		pidFile:    cfg.PIDFile,
		logger:     log.WithTool(string(cfg.Request.Tool)),
		status:     NewStatusTracker(),
		rescan:     make(chan struct{}, 1),
	}, nil
}

// Status returns the watcher's status tracker
func (w *Watcher) Status() *StatusTracker { return w.status }

// Run watches until ctx is cancelled or SIGINT/SIGTERM arrives, then waits
// for in-flight files to finish
func (w *Watcher) Run(ctx context.Context) error {
	w.logger.WithFields("input", w.inputDir, "output", w.outputDir, "workers", w.workers).Info("Starting watcher")

	if err := os.MkdirAll(w.outputDir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	if w.pidFile != "" {
		if err := w.writePIDFile(); err != nil {
			return fmt.Errorf("failed to write PID file: %w", err)
		}
		defer w.removePIDFile()
	}

	if w.healthAddr != "" {
		if err := w.startHealthCheck(); err != nil {
			return fmt.Errorf("failed to start health check: %w", err)
		}
		defer w.stopHealthCheck()
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer fw.Close()
	if err := fw.Add(w.inputDir); err != nil {
		return fmt.Errorf("failed to watch %s: %w", w.inputDir, err)
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGTERM, syscall.SIGINT)
	defer signal.Stop(sigChan)

	var g errgroup.Group
	g.SetLimit(w.workers)

	db := newDebouncer(w.debounce, func(path string) {
		if !w.pending(path) {
			return
		}
		g.Go(func() error {
			w.processFile(ctx, path)
			return nil
		})
	})
	defer func() {
		db.stop()
		w.logger.Info("Waiting for in-flight files")
		_ = g.Wait()
	}()

	w.scan(db)
	w.logger.Info("Watcher ready")

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("Context canceled, shutting down")
			return ctx.Err()

		case sig := <-sigChan:
			w.logger.WithFields("signal", sig.String()).Info("Received shutdown signal")
			return nil

		case <-w.rescan:
			w.scan(db)

		case ev, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if ev.Has(fsnotify.Remove) || !isPDF(ev.Name) {
				continue
			}
			if ev.Has(fsnotify.Rename) {
				if _, err := os.Stat(ev.Name); err != nil {
					continue
				}
			}
			db.trigger(ev.Name)

		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.logger.WithError(err).Warn("Watcher error")
		}
	}
}

// scan queues every PDF in the input directory whose output is missing or older
func (w *Watcher) scan(db *debouncer) {
	entries, err := os.ReadDir(w.inputDir)
	if err != nil {
		w.logger.WithError(err).Error("Failed to scan input directory")
		return
	}
	for _, e := range entries {
		path := filepath.Join(w.inputDir, e.Name())
		if e.Type().IsRegular() && isPDF(path) {
			db.trigger(path)
		}
	}
}

// Rescan asks a running watcher to scan the input directory again
func (w *Watcher) Rescan() bool {
	select {
	case w.rescan <- struct{}{}:
		return true
	default:
		return false
	}
}

// OutputPath returns where the result for input is written
func (w *Watcher) OutputPath(input string) string {
	base := strings.TrimSuffix(filepath.Base(input), filepath.Ext(input))
	return filepath.Join(w.outputDir, w.request.Tool.Filename(base))
}

// pending reports whether input exists and its output is missing or stale
func (w *Watcher) pending(input string) bool {
	in, err := os.Stat(input)
	if err != nil || !in.Mode().IsRegular() {
		return false
	}
	out, err := os.Stat(w.OutputPath(input))
	if err != nil {
		return true
	}
	return in.ModTime().After(out.ModTime())
}

// processFile runs the request on one input and writes the output. Failures
// are logged and counted; the watcher keeps going.
func (w *Watcher) processFile(ctx context.Context, input string) {
	log := w.logger.WithFields("file", filepath.Base(input))
	w.status.Started(input)
	start := time.Now()

	res, err := w.process(ctx, input)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			log.Info("Canceled")
		} else {
			log.WithError(err).Error("Processing failed")
		}
		w.status.Failed(input, err)
		return
	}

	w.status.Completed(input, time.Since(start))
	log.WithFields("output", filepath.Base(w.OutputPath(input)), "bytes", res.OutputSize, "duration", res.Duration).Info("Processed")
}

func (w *Watcher) process(ctx context.Context, input string) (*engine.Result, error) {
	data, err := os.ReadFile(input)
	if err != nil {
		return nil, fmt.Errorf("failed to read input: %w", err)
	}

	cfg := w.session
	s, err := engine.NewSession(data, &cfg)
	if err != nil {
		return nil, err
	}
	res, err := s.Process(ctx, w.request)
	if err != nil {
		return nil, err
	}

	if err := writeAtomic(w.OutputPath(input), res.Data); err != nil {
		return nil, err
	}
	return res, nil
}

// writeAtomic writes data next to path and renames it into place
func writeAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".pdfedit-*")
	if err != nil {
		return fmt.Errorf("failed to create output: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write output: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("failed to move output into place: %w", err)
	}
	return nil
}

func isPDF(path string) bool {
	base := filepath.Base(path)
	return strings.EqualFold(filepath.Ext(base), ".pdf") && !strings.HasPrefix(base, ".")
}

// writePIDFile writes the current process ID to the configured PID file
func (w *Watcher) writePIDFile() error {
	pid := os.Getpid()
	if err := os.WriteFile(w.pidFile, []byte(fmt.Sprintf("%d\n", pid)), 0644); err != nil {
		return fmt.Errorf("failed to write PID file: %w", err)
	}
	w.logger.WithFields("pid", pid, "file", w.pidFile).Info("Wrote PID file")
	return nil
}

func (w *Watcher) removePIDFile() {
	if w.pidFile == "" {
		return
	}
	if err := os.Remove(w.pidFile); err != nil {
		w.logger.WithFields("file", w.pidFile, "error", err).Warn("Failed to remove PID file")
	}
}
