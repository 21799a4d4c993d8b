// Package compress shrinks the raster images embedded in a PDF.
//
// The pipeline walks every image occurrence reported by a Source, processes
// each distinct image object once, and substitutes a smaller stream of the
// same family (JPEG stays JPEG, Flate stays Flate). A failure on one image
// is logged and leaves that image untouched.
package compress

import (
	"context"
	"fmt"

	"github.com/platinummonkey/pdfedit/internal/logger"
)

// MinDimension is the smallest width and height worth recompressing
const MinDimension = 100

// Stream filter names
const (
	FilterDCT   = "DCTDecode"
	FilterFlate = "FlateDecode"
)

// ImageRef is one occurrence of an image in a page's resources
type ImageRef struct {
	// Page is the 0-indexed page the occurrence was found on
	Page int

	// Name is the resource name, e.g. "Im0"
	Name string

	// Key is the indirect object number, the image's identity
	Key int

	Width  int
	Height int

	// Filter is the outermost stream filter, empty when unfiltered
	Filter string

	// Length is the encoded stream length in bytes
	Length int
}

// Stream is the pixel payload of an image object
type Stream struct {
	// Filter is FilterDCT or FilterFlate
	Filter string

	// Data holds JPEG bytes for FilterDCT and decoded samples for FilterFlate
	Data []byte

	Width  int
	Height int

	// ColorSpace is DeviceGray, DeviceRGB or DeviceCMYK
	ColorSpace string

	BitsPerComponent int
}

// Source exposes a document's images to the pipeline
type Source interface {
	// Images lists every image occurrence, page by page
	Images() ([]ImageRef, error)

	// ImageData returns the payload of an image object
	ImageData(key int) (*Stream, error)

	// Replace swaps the payload of an image object, which updates every page
	// referencing it. It returns the new encoded length.
	Replace(key int, s *Stream) (int, error)
}

// Stats summarises one run
type Stats struct {
	// Images is the number of occurrences walked
	Images int

	// Recompressed is the number of distinct images replaced
	Recompressed int

	// Skipped is the number of distinct images passed through on purpose
	Skipped int

	// Failed is the number of distinct images left as is after an error
	Failed int

	CacheHits   int
	CacheMisses int

	// Substitutions counts occurrences now pointing at a replaced stream
	Substitutions int

	BytesBefore int64
	BytesAfter  int64
}

// Config holds pipeline options
type Config struct {
	Level Level

	// MinDimension overrides the passthrough threshold when positive
	MinDimension int

	Logger *logger.Logger
}

// Pipeline recompresses the images of one document per Run
type Pipeline struct {
	settings Settings
	minDim   int
	log      *logger.Logger
}

// New creates a pipeline for the configured level
func New(cfg *Config) (*Pipeline, error) {
	settings, err := cfg.Level.Settings()
	if err != nil {
		return nil, err
	}

	log := cfg.Logger
	if log == nil {
		log = logger.Get()
	}
	minDim := cfg.MinDimension
	if minDim <= 0 {
		minDim = MinDimension
	}

	return &Pipeline{settings: settings, minDim: minDim, log: log}, nil
}

// Run walks the images of src and replaces those that shrink. Only listing
// failures and cancellation are returned; per-image errors are logged.
func (p *Pipeline) Run(ctx context.Context, src Source) (*Stats, error) {
	refs, err := src.Images()
	if err != nil {
		return nil, fmt.Errorf("failed to list images: %w", err)
	}

	cache := NewCache()
	stats := &Stats{}

	for _, ref := range refs {
		if err := ctx.Err(); err != nil {
			return stats, err
		}
		stats.Images++

		outcome, ok := cache.Lookup(ref.Key)
		if !ok {
			outcome = p.process(src, ref, stats)
			cache.Store(ref.Key, outcome)
		}
		if outcome == Replaced {
			stats.Substitutions++
		}
	}

	stats.CacheHits = cache.Hits()
	stats.CacheMisses = cache.Misses()

	p.log.Infof("Compressed %d of %d images (%d skipped, %d failed), %d -> %d bytes",
		stats.Recompressed, cache.Len(), stats.Skipped, stats.Failed, stats.BytesBefore, stats.BytesAfter)
	return stats, nil
}

func (p *Pipeline) process(src Source, ref ImageRef, stats *Stats) Outcome {
	log := p.log.WithPage(ref.Page).WithFields("image", ref.Name, "object", ref.Key)

	if ref.Width < p.minDim || ref.Height < p.minDim {
		log.Debugf("Skipping %dx%d image", ref.Width, ref.Height)
		stats.Skipped++
		return Passthrough
	}

	s, err := src.ImageData(ref.Key)
	if err != nil {
		log.WithError(err).Warn("Failed to read image, leaving it unchanged")
		stats.Failed++
		return Failed
	}

	out, err := Recompress(s, p.settings)
	if err != nil {
		log.WithError(err).Warn("Failed to recompress image, leaving it unchanged")
		stats.Failed++
		return Failed
	}
	if out == nil {
		log.Debug("Image would not shrink")
		stats.Skipped++
		return Passthrough
	}

	n, err := src.Replace(ref.Key, out)
	if err != nil {
		log.WithError(err).Warn("Failed to replace image, leaving it unchanged")
		stats.Failed++
		return Failed
	}

	log.Debugf("Recompressed %dx%d -> %dx%d", s.Width, s.Height, out.Width, out.Height)
	stats.Recompressed++
	stats.BytesBefore += int64(ref.Length)
	stats.BytesAfter += int64(n)
	return Replaced
}
