// Package watermark computes where text or image watermarks go on a page.
//
// Placement is pure and shared by preview and bake: the preview converts the
// placements to render space, the bake draws the very same placements into
// an overlay page. Coordinates are document points, origin bottom-left.
package watermark

import (
	"fmt"
	"math"
	"strings"

	"github.com/platinummonkey/pdfedit/internal/annotation"
	"github.com/platinummonkey/pdfedit/internal/geometry"
)

// Kind is the watermark content type
type Kind string

const (
	KindText  Kind = "text"
	KindImage Kind = "image"
)

// Mode is single or tiled placement
type Mode string

const (
	ModeSingle Mode = "single"
	ModeTiled  Mode = "tiled"
)

// Anchor names a single-mode position
type Anchor string

const (
	AnchorCenter      Anchor = "center"
	AnchorTopLeft     Anchor = "top-left"
	AnchorTopRight    Anchor = "top-right"
	AnchorBottomLeft  Anchor = "bottom-left"
	AnchorBottomRight Anchor = "bottom-right"
)

// Layout defaults
const (
	DefaultMargin     = 50.0
	DefaultTextTile   = 150.0
	DefaultImageTile  = 250.0
	DefaultImageScale = 0.5

	// MinTileSize bounds the tiled grid to a few thousand placements
	MinTileSize = 10.0
)

// Spec describes a watermark. Only the content field matching Kind is set.
type Spec struct {
	Kind Kind

	// Text content, for KindText
	Text     string
	FontSize float64
	Color    annotation.Color

	// Image holds PNG or JPEG bytes, for KindImage
	Image []byte

	// Opacity in [0, 1]
	Opacity float64

	// Rotation in degrees, counterclockwise, in [-180, 180]
	Rotation float64

	Mode   Mode
	Anchor Anchor
}

// Validate checks the spec and fills in the default mode and anchor
func (s *Spec) Validate() error {
	switch s.Kind {
	case KindText:
		if strings.TrimSpace(s.Text) == "" {
			return fmt.Errorf("text watermark needs text")
		}
		if len(s.Image) > 0 {
			return fmt.Errorf("text watermark must not carry an image")
		}
		if !(s.FontSize > 0) {
			return fmt.Errorf("font size must be positive, got %v", s.FontSize)
		}
	case KindImage:
		if len(s.Image) == 0 {
			return fmt.Errorf("image watermark needs image data")
		}
		if s.Text != "" {
			return fmt.Errorf("image watermark must not carry text")
		}
	default:
		return fmt.Errorf("unknown watermark kind %q", s.Kind)
	}

	if !(s.Opacity >= 0 && s.Opacity <= 1) {
		return fmt.Errorf("opacity must be in [0,1], got %v", s.Opacity)
	}
	if !(s.Rotation >= -180 && s.Rotation <= 180) {
		return fmt.Errorf("rotation must be in [-180,180], got %v", s.Rotation)
	}

	if s.Mode == "" {
		s.Mode = ModeSingle
	}
	if s.Mode != ModeSingle && s.Mode != ModeTiled {
		return fmt.Errorf("unknown placement mode %q", s.Mode)
	}
	if s.Anchor == "" {
		s.Anchor = AnchorCenter
	}
	switch s.Anchor {
	case AnchorCenter, AnchorTopLeft, AnchorTopRight, AnchorBottomLeft, AnchorBottomRight:
	default:
		return fmt.Errorf("unknown anchor %q", s.Anchor)
	}
	return nil
}

// Placement is one watermark instance on a page.
type Placement struct {
	// X, Y is the bottom-left corner of the unrotated box and the rotation pivot
	X float64
	Y float64

	Width  float64
	Height float64

	// Descent is the distance from the box bottom up to the text baseline
	Descent float64

	// Rotation in degrees, counterclockwise about (X, Y)
	Rotation float64

	Opacity float64
}

// Rect returns the unrotated box
func (p Placement) Rect() geometry.Rect {
	return geometry.Rect{X: p.X, Y: p.Y, Width: p.Width, Height: p.Height}
}

// Corners returns the four corners of the rotated box
func (p Placement) Corners() [4][2]float64 {
	s, c := math.Sincos(p.Rotation * math.Pi / 180)
	local := [4][2]float64{{0, 0}, {p.Width, 0}, {p.Width, p.Height}, {0, p.Height}}
	var out [4][2]float64
	for i, v := range local {
		out[i] = [2]float64{p.X + v[0]*c - v[1]*s, p.Y + v[0]*s + v[1]*c}
	}
	return out
}

// RenderPlacement is a placement in render space for the preview.
type RenderPlacement struct {
	// X, Y is the top-left corner of the unrotated box in pixels
	X      float64
	Y      float64
	Width  float64
	Height float64

	// PivotX, PivotY is the rotation pivot (the box's bottom-left corner)
	PivotX float64
	PivotY float64

	// Rotation in degrees, clockwise, as screen transforms expect
	Rotation float64

	Opacity float64
}

// Render converts a placement to render space
func (p Placement) Render(t geometry.Transform) RenderPlacement {
	x, y, w, h := t.RenderBox(p.Rect())
	px, py := t.ToRender(p.X, p.Y)
	return RenderPlacement{
		X:        x,
		Y:        y,
		Width:    w,
		Height:   h,
		PivotX:   px,
		PivotY:   py,
		Rotation: -p.Rotation,
		Opacity:  p.Opacity,
	}
}

// Measurer sizes watermark content
type Measurer interface {
	// TextSize returns the advance width, the line height and the descent
	// of text at the given size, in points
	TextSize(text string, fontSize float64) (width, height, descent float64, err error)

	// ImageSize returns the natural pixel size of encoded image bytes
	ImageSize(data []byte) (width, height int, err error)
}

// Layout holds the placement constants
type Layout struct {
	Margin     float64
	TextTile   float64
	ImageTile  float64
	ImageScale float64
	Measurer   Measurer
}

// DefaultLayout returns the standard constants measuring with m
func DefaultLayout(m Measurer) Layout {
	return Layout{
		Margin:     DefaultMargin,
		TextTile:   DefaultTextTile,
		ImageTile:  DefaultImageTile,
		ImageScale: DefaultImageScale,
		Measurer:   m,
	}
}

// Place computes the placements of spec on a page with the default layout
func Place(spec Spec, pageWidth, pageHeight float64, m Measurer) ([]Placement, error) {
	return DefaultLayout(m).Place(spec, pageWidth, pageHeight)
}

// Place computes the placements of spec on a page of the given size. The
// result depends only on its inputs.
func (l Layout) Place(spec Spec, pageWidth, pageHeight float64) ([]Placement, error) {
	if err := spec.Validate(); err != nil {
		return nil, err
	}
	if !(pageWidth > 0) || !(pageHeight > 0) {
		return nil, fmt.Errorf("page size must be positive, got %vx%v", pageWidth, pageHeight)
	}

	w, h, descent, err := l.contentSize(spec)
	if err != nil {
		return nil, err
	}

	newPlacement := func(x, y float64) Placement {
		return Placement{
			X:        x,
			Y:        y,
			Width:    w,
			Height:   h,
			Descent:  descent,
			Rotation: spec.Rotation,
			Opacity:  spec.Opacity,
		}
	}

	if spec.Mode == ModeTiled {
		tile := l.TextTile
		if spec.Kind == KindImage {
			tile = l.ImageTile
		}
		if !(tile >= MinTileSize) {
			return nil, fmt.Errorf("tile size must be at least %v, got %v", MinTileSize, tile)
		}

		var out []Placement
		for _, y := range tileAxis(pageHeight, tile) {
			for _, x := range tileAxis(pageWidth, tile) {
				out = append(out, newPlacement(x, y))
			}
		}
		return out, nil
	}

	x, y := l.anchor(spec.Anchor, pageWidth, pageHeight, w, h)
	return []Placement{newPlacement(x, y)}, nil
}

// tileAxis runs from -extent in tile steps and stops after the first value at
// or beyond 2*extent.
func tileAxis(extent, tile float64) []float64 {
	var out []float64
	for i := 0; ; i++ {
		v := -extent + float64(i)*tile
		out = append(out, v)
		if v >= 2*extent {
			return out
		}
	}
}

func (l Layout) anchor(a Anchor, pw, ph, w, h float64) (x, y float64) {
	m := l.Margin
	switch a {
	case AnchorTopLeft:
		return m, ph - m - h
	case AnchorTopRight:
		return pw - m - w, ph - m - h
	case AnchorBottomLeft:
		return m, m
	case AnchorBottomRight:
		return pw - m - w, m
	default:
		return (pw - w) / 2, (ph - h) / 2
	}
}

func (l Layout) contentSize(spec Spec) (w, h, descent float64, err error) {
	if l.Measurer == nil {
		return 0, 0, 0, fmt.Errorf("no measurer configured")
	}
	if spec.Kind == KindText {
		w, h, descent, err = l.Measurer.TextSize(spec.Text, spec.FontSize)
		if err != nil {
			return 0, 0, 0, fmt.Errorf("failed to measure text: %w", err)
		}
		return w, h, descent, nil
	}

	iw, ih, err := l.Measurer.ImageSize(spec.Image)
	if err != nil {
		return 0, 0, 0, err
	}
	return float64(iw) * l.ImageScale, float64(ih) * l.ImageScale, 0, nil
}
