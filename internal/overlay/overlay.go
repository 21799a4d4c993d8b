// Package overlay draws annotations and watermarks onto a transparent,
// single-page PDF the size of a target page. The page is then stamped onto
// the document by pdfdoc.
//
// gopdf uses a top-left origin, the same as render space, so render pixels
// map to overlay points by dividing by the render scale. Document-space
// input (watermark placements, drawing outlines) is flipped explicitly.
package overlay

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/signintech/gopdf"

	"github.com/platinummonkey/pdfedit/internal/annotation"
	"github.com/platinummonkey/pdfedit/internal/fonts"
	"github.com/platinummonkey/pdfedit/internal/geometry"
	"github.com/platinummonkey/pdfedit/internal/logger"
	"github.com/platinummonkey/pdfedit/internal/stroke"
	"github.com/platinummonkey/pdfedit/internal/watermark"
)

// Config holds overlay options
type Config struct {
	// Metrics measures text for clipping; required for text boxes with a width
	Metrics *watermark.Metrics

	Logger *logger.Logger
}

// Page is an overlay under construction
type Page struct {
	pdf     gopdf.GoPdf
	width   float64
	height  float64
	metrics *watermark.Metrics
	log     *logger.Logger
	drawn   int

	// fonts added to the PDF so far
	fonts map[fonts.Font]bool
}

// New starts an overlay page of width x height points
func New(width, height float64, cfg *Config) (*Page, error) {
	if !(width > 0) || !(height > 0) {
		return nil, fmt.Errorf("overlay size must be positive, got %vx%v", width, height)
	}
	if cfg == nil {
		cfg = &Config{}
	}
	log := cfg.Logger
	if log == nil {
		log = logger.Get()
	}

	p := &Page{width: width, height: height, metrics: cfg.Metrics, log: log, fonts: make(map[fonts.Font]bool)}
	p.pdf.Start(gopdf.Config{PageSize: gopdf.Rect{W: width, H: height}})
	p.pdf.AddPage()
	return p, nil
}

// Drawn returns the number of items drawn so far. An overlay with nothing
// drawn has no content and must not be stamped.
func (p *Page) Drawn() int { return p.drawn }

// setFont selects f at size, embedding it on first use
func (p *Page) setFont(f fonts.Font, size float64) error {
	if !p.fonts[f] {
		if err := p.pdf.AddTTFFontData(string(f), f.TTF()); err != nil {
			return fmt.Errorf("failed to add font %s: %w", f, err)
		}
		p.fonts[f] = true
	}
	return p.pdf.SetFont(string(f), "", size)
}

// DrawObject draws one annotation. t maps the session's render space onto
// this page.
func (p *Page) DrawObject(obj annotation.Object, t geometry.Transform) error {
	drawn := true
	var err error
	switch o := obj.(type) {
	case *annotation.Text:
		drawn, err = p.drawText(o, t)
	case *annotation.Image:
		err = p.drawImage(o, t)
	case *annotation.Drawing:
		err = p.drawDrawing(o, t)
	default:
		err = fmt.Errorf("unsupported annotation %T", obj)
	}
	if err != nil {
		return fmt.Errorf("%s %s: %w", obj.Kind(), obj.ObjectID(), err)
	}
	if drawn {
		p.drawn++
	}
	return nil
}

// drawText reports false when clipping left nothing to draw
func (p *Page) drawText(o *annotation.Text, t geometry.Transform) (bool, error) {
	f, err := fonts.Parse(o.FontFamily)
	if err != nil {
		return false, err
	}
	size := t.Length(o.FontSize)
	text := o.Text

	if o.RenderWidth > 0 && p.metrics != nil {
		text, err = p.metrics.Truncate(f, text, size, t.Length(o.RenderWidth))
		if err != nil {
			return false, err
		}
	}
	if strings.TrimSpace(text) == "" {
		return false, nil
	}

	if err := p.setFont(f, size); err != nil {
		return false, err
	}
	p.pdf.SetTextColor(o.Color.R, o.Color.G, o.Color.B)

	// Baseline one font size below the box top
	p.pdf.SetXY(t.Length(o.X), t.Length(o.Y)+size)
	return true, p.pdf.Text(text)
}

func (p *Page) drawImage(o *annotation.Image, t geometry.Transform) error {
	if _, err := watermark.ImageFormat(o.Data); err != nil {
		return err
	}
	holder, err := gopdf.ImageHolderByBytes(o.Data)
	if err != nil {
		return fmt.Errorf("failed to load image: %w", err)
	}
	rect := &gopdf.Rect{W: t.Length(o.RenderWidth), H: t.Length(o.RenderHeight)}
	return p.pdf.ImageByHolder(holder, t.Length(o.X), t.Length(o.Y), rect)
}

func (p *Page) drawDrawing(o *annotation.Drawing, t geometry.Transform) error {
	pts := make([]stroke.Point, len(o.Points))
	for i, s := range o.Points {
		x, y := t.ToDocument(s.X, s.Y)
		pts[i] = stroke.Point{X: x, Y: y, Pressure: s.Pressure}
	}

	outline, err := stroke.Outline(pts, stroke.DefaultOptions(t.Length(o.StrokeWidth)))
	if err != nil {
		return err
	}

	flipped := stroke.FlipY(outline, p.height)
	poly := make([]gopdf.Point, len(flipped))
	for i, v := range flipped {
		poly[i] = gopdf.Point{X: v.X, Y: v.Y}
	}

	p.pdf.SetFillColor(o.Color.R, o.Color.G, o.Color.B)
	p.pdf.SetStrokeColor(o.Color.R, o.Color.G, o.Color.B)
	p.pdf.SetLineWidth(0)
	p.pdf.Polygon(poly, "F")
	return nil
}

// DrawWatermark draws every placement of spec. Placements are in document
// space; opacity is applied when the overlay is stamped.
func (p *Page) DrawWatermark(spec watermark.Spec, placements []watermark.Placement) error {
	var holder gopdf.ImageHolder
	switch spec.Kind {
	case watermark.KindText:
		if err := p.setFont(fonts.Sans, spec.FontSize); err != nil {
			return err
		}
		p.pdf.SetTextColor(spec.Color.R, spec.Color.G, spec.Color.B)
	case watermark.KindImage:
		var err error
		holder, err = gopdf.ImageHolderByBytes(spec.Image)
		if err != nil {
			return fmt.Errorf("failed to load watermark image: %w", err)
		}
	default:
		return fmt.Errorf("unknown watermark kind %q", spec.Kind)
	}

	for _, pl := range placements {
		// Pivot is the box's bottom-left corner
		px, py := pl.X, p.height-pl.Y
		p.pdf.Rotate(pl.Rotation, px, py)

		var err error
		if spec.Kind == watermark.KindText {
			p.pdf.SetXY(px, py-pl.Descent)
			err = p.pdf.Text(spec.Text)
		} else {
			err = p.pdf.ImageByHolder(holder, px, py-pl.Height, &gopdf.Rect{W: pl.Width, H: pl.Height})
		}

		p.pdf.RotateReset()
		if err != nil {
			return fmt.Errorf("failed to draw watermark at (%.1f, %.1f): %w", pl.X, pl.Y, err)
		}
		p.drawn++
	}

	p.log.Debugf("Drew %d watermark placements", len(placements))
	return nil
}

// Bytes finishes the overlay and returns the PDF
func (p *Page) Bytes() ([]byte, error) {
	var buf bytes.Buffer
	if err := p.pdf.Write(&buf); err != nil {
		return nil, fmt.Errorf("failed to write overlay: %w", err)
	}
	return buf.Bytes(), nil
}
