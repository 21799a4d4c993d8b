package watch

import (
	"context"
	"encoding/json"
	"net/http"
	"path/filepath"
	"sync"
	"time"
)

// State is what the watcher is doing
type State string

const (
	// StateIdle means no file is being processed
	StateIdle State = "idle"

	// StateProcessing means at least one file is in flight
	StateProcessing State = "processing"
)

// Status is a point-in-time view of the watcher
type Status struct {
	State State `json:"state"`

	// InFlight lists the files being processed
	InFlight []string `json:"in_flight,omitempty"`

	Processed int `json:"processed"`
	Failed    int `json:"failed"`

	// LastFile is the most recently finished file
	LastFile     string         `json:"last_file,omitempty"`
	LastDuration *time.Duration `json:"last_duration,omitempty"`

	// LastError is the error of the most recent failure
	LastError string `json:"last_error,omitempty"`

	UptimeSeconds int64 `json:"uptime_seconds"`
}

// StatusTracker tracks the watcher's status in a thread-safe manner
type StatusTracker struct {
	mu        sync.RWMutex
	startTime time.Time
	inFlight  map[string]time.Time
	processed int
	failed    int
	lastFile  string
	lastDur   *time.Duration
	errMsg    string
}

// NewStatusTracker creates a new status tracker
func NewStatusTracker() *StatusTracker {
	return &StatusTracker{
		startTime: time.Now(),
		inFlight:  make(map[string]time.Time),
	}
}

// GetStatus returns the current status
func (st *StatusTracker) GetStatus() Status {
	st.mu.RLock()
	defer st.mu.RUnlock()

	s := Status{
		State:         StateIdle,
		Processed:     st.processed,
		Failed:        st.failed,
		LastFile:      st.lastFile,
		LastDuration:  st.lastDur,
		LastError:     st.errMsg,
		UptimeSeconds: int64(time.Since(st.startTime).Seconds()),
	}
	if len(st.inFlight) > 0 {
		s.State = StateProcessing
		for f := range st.inFlight {
			s.InFlight = append(s.InFlight, f)
		}
	}
	return s
}

// Started records that a file is being processed
func (st *StatusTracker) Started(path string) {
	st.mu.Lock()
	defer st.mu.Unlock()
	st.inFlight[filepath.Base(path)] = time.Now()
}

// Completed records a successful file
func (st *StatusTracker) Completed(path string, d time.Duration) {
	st.mu.Lock()
	defer st.mu.Unlock()
	st.finish(path)
	st.processed++
	st.lastDur = &d
}

// Failed records a failed file
func (st *StatusTracker) Failed(path string, err error) {
	st.mu.Lock()
	defer st.mu.Unlock()
	st.finish(path)
	st.failed++
	if err != nil {
		st.errMsg = err.Error()
	}
}

func (st *StatusTracker) finish(path string) {
	name := filepath.Base(path)
	delete(st.inFlight, name)
	st.lastFile = name
}

// handleStatus serves the current status as JSON
func (w *Watcher) handleStatus(rw http.ResponseWriter, _ *http.Request) {
	rw.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(rw).Encode(w.status.GetStatus()); err != nil {
		w.logger.WithError(err).Error("Failed to encode status")
		http.Error(rw, "Internal server error", http.StatusInternalServerError)
	}
}

// handleRescan handles POST /api/rescan
func (w *Watcher) handleRescan(rw http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(rw, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if !w.Rescan() {
		http.Error(rw, "Rescan already queued", http.StatusConflict)
		return
	}
	rw.WriteHeader(http.StatusAccepted)
}

func (w *Watcher) routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(rw http.ResponseWriter, _ *http.Request) {
		rw.WriteHeader(http.StatusOK)
		_, _ = rw.Write([]byte("OK\n"))
	})
	mux.HandleFunc("/status", w.handleStatus)
	mux.HandleFunc("/api/rescan", w.handleRescan)
	return mux
}

// startHealthCheck starts the status HTTP server
func (w *Watcher) startHealthCheck() error {
	w.httpServer = &http.Server{
		Addr:              w.healthAddr,
		Handler:           w.routes(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		w.logger.WithFields("addr", w.healthAddr).Info("Starting status server")
		if err := w.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			w.logger.WithError(err).Error("Status server failed")
		}
	}()
	return nil
}

// stopHealthCheck stops the status HTTP server
func (w *Watcher) stopHealthCheck() {
	if w.httpServer == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := w.httpServer.Shutdown(ctx); err != nil {
		w.logger.WithError(err).Warn("Failed to shut down status server gracefully")
	}
}
