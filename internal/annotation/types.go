// Package annotation holds the pending edits of a session: text boxes, images
// and freehand drawings placed on top of existing pages.
//
// All positional fields are render-space pixels at the session's render
// scale. They are converted to document space only when the objects are
// baked into the PDF.
package annotation

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/platinummonkey/pdfedit/internal/fonts"
	"github.com/platinummonkey/pdfedit/internal/stroke"
)

// Kind identifies the concrete type of an Object
type Kind string

const (
	// KindText is a single-line text box
	KindText Kind = "text"

	// KindImage is a placed raster image
	KindImage Kind = "image"

	// KindDrawing is a freehand stroke
	KindDrawing Kind = "drawing"
)

var (
	// ErrObjectNotFound is returned when an ID is not in the store
	ErrObjectNotFound = errors.New("annotation not found")

	// ErrDuplicateID is returned when adding an object whose ID is already taken
	ErrDuplicateID = errors.New("annotation id already in use")

	// ErrInvalidObject is returned for objects that cannot be baked
	ErrInvalidObject = errors.New("invalid annotation")
)

// Object is one of *Text, *Image or *Drawing.
type Object interface {
	// ObjectID returns the object's session-unique ID
	ObjectID() string

	// Page returns the 0-indexed page the object sits on
	Page() int

	// Kind returns the concrete type tag
	Kind() Kind

	// Validate reports whether the object can be baked
	Validate() error

	clone() Object
	setID(id string)
}

// Color is an sRGB colour
type Color struct {
	R uint8
	G uint8
	B uint8
}

// Black is the default ink colour
var Black = Color{}

// ParseColor parses "#rrggbb" or "rrggbb"
func ParseColor(s string) (Color, error) {
	h := strings.TrimPrefix(strings.TrimSpace(s), "#")
	if len(h) != 6 {
		return Color{}, fmt.Errorf("invalid colour %q: expected #rrggbb", s)
	}
	v, err := strconv.ParseUint(h, 16, 32)
	if err != nil {
		return Color{}, fmt.Errorf("invalid colour %q: %w", s, err)
	}
	return Color{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v)}, nil
}

// String returns the colour as "#rrggbb"
func (c Color) String() string {
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}

// Text is a text box anchored at its top-left corner
type Text struct {
	ID        string
	PageIndex int

	// X, Y is the top-left corner in render pixels
	X float64
	Y float64

	Text string

	// FontSize is in render pixels
	FontSize float64

	// FontFamily is sans (default), bold, italic or mono
	FontFamily string

	Color Color

	// RenderWidth clips the text box when set (render pixels, 0 = unclipped)
	RenderWidth float64
}

func (t *Text) ObjectID() string { return t.ID }
func (t *Text) Page() int        { return t.PageIndex }
func (t *Text) Kind() Kind       { return KindText }
func (t *Text) setID(id string)  { t.ID = id }
func (t *Text) clone() Object    { return cloneOf(t) }

// Validate checks the text box
func (t *Text) Validate() error {
	if err := validatePlacement(t.PageIndex, t.X, t.Y); err != nil {
		return err
	}
	if !(t.FontSize > 0) || math.IsInf(t.FontSize, 0) {
		return fmt.Errorf("%w: font size must be positive, got %v", ErrInvalidObject, t.FontSize)
	}
	if t.RenderWidth < 0 {
		return fmt.Errorf("%w: negative text width %v", ErrInvalidObject, t.RenderWidth)
	}
	if strings.TrimSpace(t.Text) == "" {
		return fmt.Errorf("%w: empty text", ErrInvalidObject)
	}
	if _, err := fonts.Parse(t.FontFamily); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidObject, err)
	}
	return nil
}

// Image is a raster image anchored at its top-left corner
type Image struct {
	ID        string
	PageIndex int

	X            float64
	Y            float64
	RenderWidth  float64
	RenderHeight float64

	// Data holds the encoded PNG or JPEG bytes
	Data []byte
}

func (i *Image) ObjectID() string { return i.ID }
func (i *Image) Page() int        { return i.PageIndex }
func (i *Image) Kind() Kind       { return KindImage }
func (i *Image) setID(id string)  { i.ID = id }
func (i *Image) clone() Object    { return cloneOf(i) }

// Validate checks the image box. The format of Data is checked at bake time.
func (i *Image) Validate() error {
	if err := validatePlacement(i.PageIndex, i.X, i.Y); err != nil {
		return err
	}
	if !(i.RenderWidth > 0) || !(i.RenderHeight > 0) {
		return fmt.Errorf("%w: image size must be positive, got %vx%v", ErrInvalidObject, i.RenderWidth, i.RenderHeight)
	}
	if len(i.Data) == 0 {
		return fmt.Errorf("%w: image has no data", ErrInvalidObject)
	}
	return nil
}

// Drawing is a freehand stroke
type Drawing struct {
	ID        string
	PageIndex int

	// Points are render-space samples with pressure
	Points []stroke.Point

	Color Color

	// StrokeWidth is the pen size in render pixels
	StrokeWidth float64
}

func (d *Drawing) ObjectID() string { return d.ID }
func (d *Drawing) Page() int        { return d.PageIndex }
func (d *Drawing) Kind() Kind       { return KindDrawing }
func (d *Drawing) setID(id string)  { d.ID = id }
func (d *Drawing) clone() Object    { return cloneOf(d) }

// Validate checks the drawing
func (d *Drawing) Validate() error {
	if d.PageIndex < 0 {
		return fmt.Errorf("%w: negative page index %d", ErrInvalidObject, d.PageIndex)
	}
	if len(d.Points) < stroke.MinPoints {
		return fmt.Errorf("%w: %w", ErrInvalidObject, stroke.ErrStrokeTooShort)
	}
	if !(d.StrokeWidth > 0) {
		return fmt.Errorf("%w: stroke width must be positive, got %v", ErrInvalidObject, d.StrokeWidth)
	}
	return nil
}

func cloneOf[T any](v *T) *T {
	c := *v
	return &c
}

func validatePlacement(page int, x, y float64) error {
	if page < 0 {
		return fmt.Errorf("%w: negative page index %d", ErrInvalidObject, page)
	}
	if math.IsNaN(x) || math.IsNaN(y) || math.IsInf(x, 0) || math.IsInf(y, 0) {
		return fmt.Errorf("%w: position (%v, %v) is not finite", ErrInvalidObject, x, y)
	}
	return nil
}
