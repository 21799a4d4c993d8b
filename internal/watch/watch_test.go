package watch

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/platinummonkey/pdfedit/internal/engine"
	"github.com/platinummonkey/pdfedit/internal/logger"
	"github.com/platinummonkey/pdfedit/internal/pdfdoc"
	"github.com/platinummonkey/pdfedit/internal/testpdf"
)

func rotateRequest() engine.Request {
	return engine.Request{Tool: engine.ToolRotate, Rotate: &engine.RotateParams{Delta: 90}}
}

func newWatcher(t *testing.T, cfg *Config) *Watcher {
	t.Helper()
	if cfg.InputDir == "" {
		cfg.InputDir = t.TempDir()
	}
	if cfg.OutputDir == "" {
		cfg.OutputDir = t.TempDir()
	}
	if cfg.Request.Tool == "" {
		cfg.Request = rotateRequest()
	}
	cfg.Logger = logger.NewNop()
	w, err := New(cfg)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return w
}

func writeInput(t *testing.T, dir, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestNew_Errors(t *testing.T) {
	dir := t.TempDir()
	tests := []struct {
		name string
		cfg  *Config
	}{
		{"nil config", nil},
		{"no input", &Config{OutputDir: dir, Request: rotateRequest()}},
		{"no output", &Config{InputDir: dir, Request: rotateRequest()}},
		{"unknown tool", &Config{InputDir: dir, OutputDir: t.TempDir(), Request: engine.Request{Tool: "protect"}}},
		{"merge", &Config{InputDir: dir, OutputDir: t.TempDir(), Request: engine.Request{Tool: engine.ToolMerge}}},
		{"same dir", &Config{InputDir: dir, OutputDir: dir + "/.", Request: rotateRequest()}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := New(tt.cfg); err == nil {
				t.Error("New() should fail")
			}
		})
	}
}

func TestNew_Defaults(t *testing.T) {
	w := newWatcher(t, &Config{})
	if w.debounce != DefaultDebounce {
		t.Errorf("debounce = %v, want %v", w.debounce, DefaultDebounce)
	}
	if w.workers < 1 {
		t.Errorf("workers = %d", w.workers)
	}
	if w.session.Metrics == nil {
		t.Error("metrics should be shared across files")
	}
}

func TestOutputPath(t *testing.T) {
	tests := []struct {
		tool engine.Tool
		want string
	}{
		{engine.ToolRotate, "report-rotate.pdf"},
		{engine.ToolSplit, "report-split.zip"},
		{engine.ToolToImages, "report-to-images.zip"},
	}
	for _, tt := range tests {
		w := newWatcher(t, &Config{Request: engine.Request{Tool: tt.tool}})
		got := w.OutputPath("/somewhere/report.PDF")
		if got != filepath.Join(w.outputDir, tt.want) {
			t.Errorf("OutputPath(%s) = %s, want %s", tt.tool, got, tt.want)
		}
	}
}

func TestPending(t *testing.T) {
	w := newWatcher(t, &Config{})
	input := writeInput(t, w.inputDir, "a.pdf", []byte("x"))

	if !w.pending(input) {
		t.Error("input without output should be pending")
	}
	if w.pending(filepath.Join(w.inputDir, "missing.pdf")) {
		t.Error("missing input should not be pending")
	}

	out := w.OutputPath(input)
	if err := os.WriteFile(out, []byte("y"), 0644); err != nil {
		t.Fatal(err)
	}
	old := time.Now().Add(-time.Hour)
	if err := os.Chtimes(input, old, old); err != nil {
		t.Fatal(err)
	}
	if w.pending(input) {
		t.Error("input older than its output should not be pending")
	}

	if err := os.Chtimes(out, old.Add(-time.Hour), old.Add(-time.Hour)); err != nil {
		t.Fatal(err)
	}
	if !w.pending(input) {
		t.Error("input newer than its output should be pending")
	}
}

func TestIsPDF(t *testing.T) {
	tests := map[string]bool{
		"/in/a.pdf":           true,
		"/in/B.PDF":           true,
		"/in/notes.txt":       false,
		"/in/.pdfedit-123":    false,
		"/in/.hidden.pdf":     false,
		"/in/archive.pdf.zip": false,
	}
	for path, want := range tests {
		if got := isPDF(path); got != want {
			t.Errorf("isPDF(%q) = %v, want %v", path, got, want)
		}
	}
}

func TestProcessFile(t *testing.T) {
	w := newWatcher(t, &Config{})
	input := writeInput(t, w.inputDir, "doc.pdf", testpdf.MustBuild(t, testpdf.Letter()))

	w.processFile(context.Background(), input)

	data, err := os.ReadFile(w.OutputPath(input))
	if err != nil {
		t.Fatalf("output not written: %v", err)
	}
	doc, err := pdfdoc.Load(data)
	if err != nil {
		t.Fatal(err)
	}
	if p, _ := doc.Page(0); p.Rotation != 90 {
		t.Errorf("rotation = %d, want 90", p.Rotation)
	}

	st := w.Status().GetStatus()
	if st.Processed != 1 || st.Failed != 0 || st.State != StateIdle || st.LastFile != "doc.pdf" {
		t.Errorf("status = %+v", st)
	}
}

func TestProcessFile_Corrupt(t *testing.T) {
	w := newWatcher(t, &Config{})
	input := writeInput(t, w.inputDir, "bad.pdf", []byte("not a pdf"))

	w.processFile(context.Background(), input)

	if _, err := os.Stat(w.OutputPath(input)); !errors.Is(err, os.ErrNotExist) {
		t.Error("failed files must not produce output")
	}
	st := w.Status().GetStatus()
	if st.Failed != 1 || st.LastError == "" {
		t.Errorf("status = %+v", st)
	}
	entries, _ := os.ReadDir(w.outputDir)
	if len(entries) != 0 {
		t.Errorf("output directory has %d leftover entries", len(entries))
	}
}

func TestRun_ProcessesExistingFiles(t *testing.T) {
	w := newWatcher(t, &Config{Debounce: 10 * time.Millisecond, Workers: 2})
	input := writeInput(t, w.inputDir, "scan.pdf", testpdf.MustBuild(t, testpdf.Letter(), testpdf.A4()))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	deadline := time.Now().Add(15 * time.Second)
	for w.Status().GetStatus().Processed == 0 {
		if time.Now().After(deadline) {
			cancel()
			t.Fatalf("file was not processed, status = %+v", w.Status().GetStatus())
		}
		time.Sleep(20 * time.Millisecond)
	}

	cancel()
	if err := <-done; !errors.Is(err, context.Canceled) {
		t.Errorf("Run() error = %v, want context.Canceled", err)
	}
	if _, err := os.Stat(w.OutputPath(input)); err != nil {
		t.Errorf("output missing: %v", err)
	}
}

func TestDebouncer_Coalesces(t *testing.T) {
	var fired atomic.Int32
	got := make(chan string, 4)
	d := newDebouncer(30*time.Millisecond, func(path string) {
		fired.Add(1)
		got <- path
	})
	defer d.stop()

	for range 5 {
		d.trigger("a.pdf")
		time.Sleep(time.Millisecond)
	}

	select {
	case p := <-got:
		if p != "a.pdf" {
			t.Errorf("fired for %q", p)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("debouncer never fired")
	}
	time.Sleep(100 * time.Millisecond)
	if n := fired.Load(); n != 1 {
		t.Errorf("fired %d times, want 1", n)
	}
}

func TestDebouncer_Stop(t *testing.T) {
	var fired atomic.Int32
	d := newDebouncer(20*time.Millisecond, func(string) { fired.Add(1) })

	d.trigger("a.pdf")
	d.stop()
	d.trigger("b.pdf")

	time.Sleep(80 * time.Millisecond)
	if n := fired.Load(); n != 0 {
		t.Errorf("fired %d times after stop", n)
	}
}

func TestStatusTracker(t *testing.T) {
	st := NewStatusTracker()
	if s := st.GetStatus(); s.State != StateIdle {
		t.Errorf("initial state = %s", s.State)
	}

	st.Started("/in/a.pdf")
	st.Started("/in/b.pdf")
	s := st.GetStatus()
	if s.State != StateProcessing || len(s.InFlight) != 2 {
		t.Errorf("status = %+v", s)
	}

	st.Completed("/in/a.pdf", time.Second)
	st.Failed("/in/b.pdf", errors.New("boom"))
	s = st.GetStatus()
	if s.State != StateIdle || s.Processed != 1 || s.Failed != 1 || s.LastError != "boom" || s.LastFile != "b.pdf" {
		t.Errorf("status = %+v", s)
	}
}

func TestStatusRoutes(t *testing.T) {
	w := newWatcher(t, &Config{})
	w.status.Completed("x.pdf", time.Second)
	srv := httptest.NewServer(w.routes())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/status")
	if err != nil {
		t.Fatal(err)
	}
	var st Status
	err = json.NewDecoder(resp.Body).Decode(&st)
	_ = resp.Body.Close()
	if err != nil {
		t.Fatal(err)
	}
	if st.Processed != 1 || st.LastFile != "x.pdf" {
		t.Errorf("status = %+v", st)
	}

	tests := []struct {
		method string
		want   int
	}{
		{http.MethodGet, http.StatusMethodNotAllowed},
		{http.MethodPost, http.StatusAccepted},
		{http.MethodPost, http.StatusConflict},
	}
	for _, tt := range tests {
		req, _ := http.NewRequest(tt.method, srv.URL+"/api/rescan", nil)
		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			t.Fatal(err)
		}
		_ = resp.Body.Close()
		if resp.StatusCode != tt.want {
			t.Errorf("%s /api/rescan = %d, want %d", tt.method, resp.StatusCode, tt.want)
		}
	}
}

func TestPIDFile(t *testing.T) {
	w := newWatcher(t, &Config{})
	w.pidFile = filepath.Join(t.TempDir(), "watch.pid")

	if err := w.writePIDFile(); err != nil {
		t.Fatalf("writePIDFile() error = %v", err)
	}
	content, err := os.ReadFile(w.pidFile)
	if err != nil {
		t.Fatal(err)
	}
	if pid, err := strconv.Atoi(strings.TrimSpace(string(content))); err != nil || pid != os.Getpid() {
		t.Errorf("PID file = %q, want %d", content, os.Getpid())
	}

	w.removePIDFile()
	if _, err := os.Stat(w.pidFile); !os.IsNotExist(err) {
		t.Error("PID file should be removed")
	}
}
