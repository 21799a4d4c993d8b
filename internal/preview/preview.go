// Package preview rasterizes PDF pages for display. It is never used when
// baking; edits are always applied to the document itself.
package preview

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/png"

	"github.com/unidoc/unipdf/v3/common"
	"github.com/unidoc/unipdf/v3/common/license"
	unipdf "github.com/unidoc/unipdf/v3/model"
	"github.com/unidoc/unipdf/v3/render"

	"github.com/platinummonkey/pdfedit/internal/geometry"
	"github.com/platinummonkey/pdfedit/internal/logger"
)

func init() {
	common.SetLogger(common.NewConsoleLogger(common.LogLevelError))
}

// Config holds renderer options
type Config struct {
	// MeteredKey is the unidoc API key; rendering may be refused without one
	MeteredKey string

	// Margin is the viewport margin used by RenderFit
	Margin float64

	Logger *logger.Logger
}

// Renderer rasterizes pages
type Renderer struct {
	margin float64
	log    *logger.Logger
}

// Preview is a rendered page and the transform between its pixels and the
// page's points. Annotations placed on the preview use this transform.
type Preview struct {
	Image     image.Image
	Transform geometry.Transform
}

// NewRenderer creates a renderer
func NewRenderer(cfg *Config) (*Renderer, error) {
	if cfg == nil {
		cfg = &Config{}
	}
	log := cfg.Logger
	if log == nil {
		log = logger.Get()
	}
	if cfg.MeteredKey != "" {
		if err := license.SetMeteredKey(cfg.MeteredKey); err != nil {
			return nil, fmt.Errorf("failed to set unidoc key: %w", err)
		}
	}
	margin := cfg.Margin
	if margin <= 0 {
		margin = geometry.DefaultViewportMargin
	}
	return &Renderer{margin: margin, log: log}, nil
}

func openPage(data []byte, page int) (*unipdf.PdfPage, int, error) {
	reader, err := unipdf.NewPdfReader(bytes.NewReader(data))
	if err != nil {
		return nil, 0, fmt.Errorf("failed to create PDF reader: %w", err)
	}
	numPages, err := reader.GetNumPages()
	if err != nil {
		return nil, 0, fmt.Errorf("failed to get page count: %w", err)
	}
	if page < 0 || page >= numPages {
		return nil, numPages, fmt.Errorf("invalid page index %d (PDF has %d pages)", page, numPages)
	}
	p, err := reader.GetPage(page + 1)
	if err != nil {
		return nil, numPages, fmt.Errorf("failed to get page %d: %w", page+1, err)
	}
	return p, numPages, nil
}

func pageSize(p *unipdf.PdfPage) (float64, float64, error) {
	box, err := p.GetMediaBox()
	if err != nil {
		return 0, 0, fmt.Errorf("failed to get media box: %w", err)
	}
	return box.Urx - box.Llx, box.Ury - box.Lly, nil
}

// RenderPage renders the 0-indexed page at scale pixels per point
func (r *Renderer) RenderPage(data []byte, page int, scale float64) (*Preview, error) {
	if !(scale > 0) {
		return nil, fmt.Errorf("render scale must be positive, got %v", scale)
	}
	p, _, err := openPage(data, page)
	if err != nil {
		return nil, err
	}
	return r.render(p, page, scale)
}

// RenderFit renders a page at the scale that fits it in the viewport
func (r *Renderer) RenderFit(data []byte, page int, viewportWidth, viewportHeight float64) (*Preview, error) {
	p, _, err := openPage(data, page)
	if err != nil {
		return nil, err
	}
	w, h, err := pageSize(p)
	if err != nil {
		return nil, err
	}
	scale, err := geometry.FitScale(viewportWidth, viewportHeight, w, h, r.margin)
	if err != nil {
		return nil, err
	}
	return r.render(p, page, scale)
}

// RenderAll renders every page at scale, checking ctx between pages
func (r *Renderer) RenderAll(ctx context.Context, data []byte, scale float64) ([]*Preview, error) {
	if !(scale > 0) {
		return nil, fmt.Errorf("render scale must be positive, got %v", scale)
	}
	_, count, err := openPage(data, 0)
	if err != nil {
		return nil, err
	}

	out := make([]*Preview, 0, count)
	for i := 0; i < count; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		pv, err := r.RenderPage(data, i, scale)
		if err != nil {
			return nil, fmt.Errorf("failed to render page %d: %w", i+1, err)
		}
		out = append(out, pv)
	}

	r.log.WithFields("page_count", count).Info("Rendered all pages")
	return out, nil
}

func (r *Renderer) render(p *unipdf.PdfPage, page int, scale float64) (*Preview, error) {
	w, h, err := pageSize(p)
	if err != nil {
		return nil, err
	}
	t, err := geometry.NewTransform(scale, h)
	if err != nil {
		return nil, err
	}

	device := render.NewImageDevice()
	device.OutputWidth = int(w*scale + 0.5)

	img, err := device.Render(p)
	if err != nil {
		return nil, fmt.Errorf("failed to render page: %w", err)
	}

	bounds := img.Bounds()
	r.log.WithPage(page).WithFields("width", bounds.Dx(), "height", bounds.Dy()).Debug("Rendered page")
	return &Preview{Image: img, Transform: t}, nil
}

// EncodePNG encodes a rendered page
func EncodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("failed to encode image: %w", err)
	}
	return buf.Bytes(), nil
}
