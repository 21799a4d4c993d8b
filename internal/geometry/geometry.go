// Package geometry converts between render space and document space.
//
// Render space is the on-screen pixel grid of a page drawn at some scale,
// origin top-left with y growing downward. Document space is the PDF's own
// coordinate system in points, origin bottom-left with y growing upward.
// Values from the two spaces must never be mixed; every conversion goes
// through a Transform that carries the scale explicitly.
package geometry

import (
	"fmt"
	"math"
)

// DefaultViewportMargin is the fraction of the viewport left free around a
// fitted page.
const DefaultViewportMargin = 0.08

// Rect is an axis-aligned rectangle. In document space (X, Y) is the
// bottom-left corner.
type Rect struct {
	X      float64
	Y      float64
	Width  float64
	Height float64
}

// Right returns the x coordinate of the right edge
func (r Rect) Right() float64 { return r.X + r.Width }

// Top returns the y coordinate of the edge opposite Y
func (r Rect) Top() float64 { return r.Y + r.Height }

// Empty reports whether the rectangle has no area
func (r Rect) Empty() bool {
	return r.Width <= 0 || r.Height <= 0
}

// Contains reports whether o lies fully inside r
func (r Rect) Contains(o Rect) bool {
	return o.X >= r.X && o.Y >= r.Y && o.Right() <= r.Right() && o.Top() <= r.Top()
}

// Intersect returns the overlap of r and o. The result is Empty when they
// do not overlap.
func (r Rect) Intersect(o Rect) Rect {
	x0 := math.Max(r.X, o.X)
	y0 := math.Max(r.Y, o.Y)
	x1 := math.Min(r.Right(), o.Right())
	y1 := math.Min(r.Top(), o.Top())
	if x1 <= x0 || y1 <= y0 {
		return Rect{X: x0, Y: y0}
	}
	return Rect{X: x0, Y: y0, Width: x1 - x0, Height: y1 - y0}
}

// Offset returns r moved by (dx, dy)
func (r Rect) Offset(dx, dy float64) Rect {
	return Rect{X: r.X + dx, Y: r.Y + dy, Width: r.Width, Height: r.Height}
}

func (r Rect) String() string {
	return fmt.Sprintf("{x:%.2f y:%.2f w:%.2f h:%.2f}", r.X, r.Y, r.Width, r.Height)
}

// Transform maps one page between render space and document space.
type Transform struct {
	// Scale is render pixels per document point
	Scale float64

	// PageHeight is the page height in document points
	PageHeight float64
}

// NewTransform validates and returns a Transform
func NewTransform(scale, pageHeight float64) (Transform, error) {
	if !(scale > 0) || math.IsInf(scale, 0) {
		return Transform{}, fmt.Errorf("render scale must be positive, got %v", scale)
	}
	if !(pageHeight > 0) {
		return Transform{}, fmt.Errorf("page height must be positive, got %v", pageHeight)
	}
	return Transform{Scale: scale, PageHeight: pageHeight}, nil
}

// ToDocument converts a render-space point to document space
func (t Transform) ToDocument(renderX, renderY float64) (docX, docY float64) {
	return renderX / t.Scale, t.PageHeight - renderY/t.Scale
}

// ToRender converts a document-space point to render space
func (t Transform) ToRender(docX, docY float64) (renderX, renderY float64) {
	return docX * t.Scale, (t.PageHeight - docY) * t.Scale
}

// Length converts a render-space distance to document points
func (t Transform) Length(render float64) float64 {
	return render / t.Scale
}

// RenderLength converts a document-space distance to render pixels
func (t Transform) RenderLength(doc float64) float64 {
	return doc * t.Scale
}

// PlaceBox converts a box anchored at its top-left corner in render space to
// a document rectangle anchored at its bottom-left corner:
//
//	y = pageHeight - renderY/scale - renderHeight/scale
func (t Transform) PlaceBox(renderX, renderY, renderWidth, renderHeight float64) Rect {
	w := t.Length(renderWidth)
	h := t.Length(renderHeight)
	return Rect{
		X:      renderX / t.Scale,
		Y:      t.PageHeight - renderY/t.Scale - h,
		Width:  w,
		Height: h,
	}
}

// RenderBox is the inverse of PlaceBox; it returns the top-left corner and
// size in render pixels.
func (t Transform) RenderBox(r Rect) (x, y, w, h float64) {
	x, y = t.ToRender(r.X, r.Top())
	return x, y, t.RenderLength(r.Width), t.RenderLength(r.Height)
}

// FitScale returns the render scale that fits a page of pageWidth x pageHeight
// points inside a viewport, leaving margin (a fraction, e.g. 0.08) free.
func FitScale(viewportWidth, viewportHeight, pageWidth, pageHeight, margin float64) (float64, error) {
	if viewportWidth <= 0 || viewportHeight <= 0 {
		return 0, fmt.Errorf("viewport must be positive, got %vx%v", viewportWidth, viewportHeight)
	}
	if pageWidth <= 0 || pageHeight <= 0 {
		return 0, fmt.Errorf("page size must be positive, got %vx%v", pageWidth, pageHeight)
	}
	if margin < 0 || margin >= 1 {
		return 0, fmt.Errorf("viewport margin must be in [0,1), got %v", margin)
	}
	scale := math.Min(viewportWidth/pageWidth, viewportHeight/pageHeight)
	return scale * (1 - margin), nil
}
