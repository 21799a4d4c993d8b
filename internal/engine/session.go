// Package engine ties the edit engines to the document library. A Session
// holds the pending edits for one loaded document and bakes them on demand
// through Process.
package engine

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/semaphore"

	"github.com/platinummonkey/pdfedit/internal/annotation"
	"github.com/platinummonkey/pdfedit/internal/geometry"
	"github.com/platinummonkey/pdfedit/internal/logger"
	"github.com/platinummonkey/pdfedit/internal/organize"
	"github.com/platinummonkey/pdfedit/internal/pdfdoc"
	"github.com/platinummonkey/pdfedit/internal/pdferr"
	"github.com/platinummonkey/pdfedit/internal/preview"
	"github.com/platinummonkey/pdfedit/internal/watermark"
)

var (
	// ErrBakeInProgress is returned when Process is called while another
	// Process of the same session is running
	ErrBakeInProgress = errors.New("a bake is already in progress")

	// ErrStaleSession is returned when the session was reset while a bake
	// was running; the bake's output is discarded
	ErrStaleSession = errors.New("session was reset during bake")
)

// Config holds session options
type Config struct {
	// RenderScale is the pixels-per-point scale annotations are captured at
	RenderScale float64

	// Layout overrides the watermark margin and tile sizes when non-zero
	WatermarkMargin float64
	TextTileSize    float64
	ImageTileSize   float64

	// StrokeSize is the default pen width in render pixels
	StrokeSize float64

	// CompressMinDimension overrides the recompression passthrough threshold
	CompressMinDimension int

	// Metrics measures watermark and annotation text; created when nil
	Metrics *watermark.Metrics

	// Renderer rasterizes pages for ToolToImages; created when nil
	Renderer *preview.Renderer

	Logger *logger.Logger
}

// Session is one loaded document and its pending edits. Methods are safe
// for concurrent use; at most one Process runs at a time.
type Session struct {
	cfg      Config
	log      *logger.Logger
	metrics  *watermark.Metrics
	renderer *preview.Renderer

	// source and pages never change after NewSession
	source []byte
	pages  []pdfdoc.PageInfo

	store   *annotation.Store
	gesture *annotation.Gesture
	bake    *semaphore.Weighted

	mu    sync.Mutex
	token string
	order []organize.Entry
	scale float64

	// afterRun is called between running a tool and committing its result
	afterRun func()
}

// NewSession loads data and starts an empty session
func NewSession(data []byte, cfg *Config) (*Session, error) {
	if cfg == nil {
		cfg = &Config{}
	}
	log := cfg.Logger
	if log == nil {
		log = logger.Get()
	}

	doc, err := pdfdoc.Load(data)
	if err != nil {
		return nil, err
	}
	pages, err := doc.Pages()
	if err != nil {
		return nil, fmt.Errorf("failed to read pages: %w", err)
	}

	metrics := cfg.Metrics
	if metrics == nil {
		if metrics, err = watermark.NewMetrics(); err != nil {
			return nil, err
		}
	}

	scale := cfg.RenderScale
	if scale <= 0 {
		scale = 1
	}
	strokeSize := cfg.StrokeSize
	if strokeSize <= 0 {
		strokeSize = 8
	}

	store := annotation.NewStore()
	s := &Session{
		cfg:      *cfg,
		log:      log,
		metrics:  metrics,
		renderer: cfg.Renderer,
		source:   slices.Clone(data),
		pages:    pages,
		store:    store,
		gesture:  annotation.NewGesture(store, annotation.Pen{Color: annotation.Black, Width: strokeSize}),
		bake:     semaphore.NewWeighted(1),
		token:    uuid.New().String(),
		order:    organize.New(len(pages)),
		scale:    scale,
	}

	s.log.WithSessionID(s.token).Infof("Opened document with %d pages", len(pages))
	return s, nil
}

// Token identifies the session's current generation. It changes on Reset.
func (s *Session) Token() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.token
}

// Store returns the pending annotations
func (s *Session) Store() *annotation.Store { return s.store }

// Gesture returns the freehand input recorder
func (s *Session) Gesture() *annotation.Gesture { return s.gesture }

// Source returns a copy of the loaded document
func (s *Session) Source() []byte { return slices.Clone(s.source) }

// PageCount returns the number of pages of the loaded document
func (s *Session) PageCount() int { return len(s.pages) }

// Page returns the geometry of a page
func (s *Session) Page(i int) (pdfdoc.PageInfo, error) {
	if i < 0 || i >= len(s.pages) {
		return pdfdoc.PageInfo{}, pdferr.PageOutOfRange(i, len(s.pages))
	}
	return s.pages[i], nil
}

// RenderScale returns the scale annotation coordinates are captured at
func (s *Session) RenderScale() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.scale
}

// SetRenderScale changes the capture scale. Existing annotations keep their
// pixel values, so it is only allowed while the store is empty.
func (s *Session) SetRenderScale(scale float64) error {
	if !(scale > 0) {
		return fmt.Errorf("render scale must be positive, got %v", scale)
	}
	if s.store.Len() > 0 {
		return fmt.Errorf("cannot change render scale with %d pending annotations", s.store.Len())
	}
	s.mu.Lock()
	s.scale = scale
	s.mu.Unlock()
	return nil
}

// Transform returns the render/document mapping for page i
func (s *Session) Transform(i int) (geometry.Transform, error) {
	p, err := s.Page(i)
	if err != nil {
		return geometry.Transform{}, err
	}
	return geometry.NewTransform(s.RenderScale(), p.Height)
}

// Order returns a copy of the working page order
func (s *Session) Order() []organize.Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.order)
}

// MovePage moves the entry at from to position to
func (s *Session) MovePage(from, to int) error {
	return s.editOrder(func(e []organize.Entry) ([]organize.Entry, error) {
		return organize.Reorder(e, from, to)
	})
}

// RotatePage adds delta degrees to one entry
func (s *Session) RotatePage(id string, delta int) error {
	return s.editOrder(func(e []organize.Entry) ([]organize.Entry, error) {
		return organize.Rotate(e, id, delta)
	})
}

// RemovePage drops one entry from the working order
func (s *Session) RemovePage(id string) error {
	return s.editOrder(func(e []organize.Entry) ([]organize.Entry, error) {
		return organize.Remove(e, id)
	})
}

func (s *Session) editOrder(fn func([]organize.Entry) ([]organize.Entry, error)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	next, err := fn(s.order)
	if err != nil {
		return err
	}
	s.order = next
	return nil
}

// Reset drops every pending edit and starts a new generation. A bake still
// running finishes with ErrStaleSession.
func (s *Session) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.store.Reset()
	s.gesture.Cancel()
	s.order = organize.New(len(s.pages))
	old := s.token
	s.token = uuid.New().String()

	s.log.WithSessionID(s.token).WithFields("previous", old).Info("Session reset")
}

// snapshot is the state a bake works from
type snapshot struct {
	token   string
	scale   float64
	order   []organize.Entry
	objects []annotation.Object
}

func (s *Session) snapshot() snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return snapshot{
		token:   s.token,
		scale:   s.scale,
		order:   slices.Clone(s.order),
		objects: s.store.All(),
	}
}

// Process runs one tool against the loaded document and returns the output.
// The session's document is never modified. Validation errors keep their
// pdferr kind; library failures are wrapped as pdferr.ErrBakeFailed.
func (s *Session) Process(ctx context.Context, req Request) (*Result, error) {
	if !s.bake.TryAcquire(1) {
		return nil, ErrBakeInProgress
	}
	defer s.bake.Release(1)

	snap := s.snapshot()
	log := s.log.WithSessionID(snap.token).WithTool(string(req.Tool))
	log.Debug("Processing")

	start := time.Now()
	res, err := s.run(ctx, req, snap, log)
	if err != nil {
		if ctx.Err() == nil {
			err = pdferr.Bake(string(req.Tool), err)
		}
		log.WithError(err).Warn("Processing failed")
		return nil, err
	}

	if s.afterRun != nil {
		s.afterRun()
	}
	if s.Token() != snap.token {
		log.Warn("Discarding result of a reset session")
		return nil, ErrStaleSession
	}

	res.Tool = req.Tool
	res.Duration = time.Since(start)
	res.InputSize = int64(len(s.source))
	res.OutputSize = int64(len(res.Data))

	log.WithFields("duration", res.Duration, "bytes", res.OutputSize, "pages", res.PageCount).Info("Processed")
	return res, nil
}

func (s *Session) run(ctx context.Context, req Request, snap snapshot, log *logger.Logger) (*Result, error) {
	switch req.Tool {
	case ToolMerge:
		if req.Merge == nil {
			return nil, missingParams(req.Tool)
		}
		return s.merge(*req.Merge)
	case ToolSplit:
		return s.split(ctx)
	case ToolCrop:
		if req.Crop == nil {
			return nil, missingParams(req.Tool)
		}
		return s.crop(*req.Crop)
	case ToolRotate:
		if req.Rotate == nil {
			return nil, missingParams(req.Tool)
		}
		return s.rotate(*req.Rotate)
	case ToolOrganize:
		entries := snap.order
		if req.Organize != nil && req.Organize.Entries != nil {
			entries = req.Organize.Entries
		}
		return s.organize(entries)
	case ToolWatermark:
		if req.Watermark == nil {
			return nil, missingParams(req.Tool)
		}
		return s.watermark(ctx, *req.Watermark)
	case ToolCompress:
		if req.Compress == nil {
			return nil, missingParams(req.Tool)
		}
		return s.compress(ctx, *req.Compress, log)
	case ToolAnnotate:
		return s.annotate(ctx, snap)
	case ToolToImages:
		if req.ToImages == nil {
			return nil, missingParams(req.Tool)
		}
		return s.toImages(ctx, *req.ToImages)
	}
	return nil, fmt.Errorf("unknown tool %q", req.Tool)
}

func missingParams(t Tool) error {
	return fmt.Errorf("%s request has no parameters", t)
}
