package annotation

import (
	"github.com/platinummonkey/pdfedit/internal/stroke"
)

// GestureState is the state of the freehand drawing tool
type GestureState int

const (
	// GestureIdle means no pointer is down
	GestureIdle GestureState = iota

	// GestureDrawing means a gesture is being recorded
	GestureDrawing
)

func (s GestureState) String() string {
	if s == GestureDrawing {
		return "drawing"
	}
	return "idle"
}

// PrimaryButton is the only pointer button that starts a gesture
const PrimaryButton = 0

// Pen is the style applied to committed strokes
type Pen struct {
	Color Color
	Width float64
}

// Gesture records pointer input for the freehand tool. Samples collect in a
// current-gesture slot that is separate from the store; a gesture becomes a
// Drawing only when it ends with enough points.
//
// A Gesture is driven from a single input loop and is not safe for
// concurrent use.
type Gesture struct {
	store   *Store
	pen     Pen
	state   GestureState
	page    int
	current []stroke.Point
}

// NewGesture returns an idle gesture recorder committing into store
func NewGesture(store *Store, pen Pen) *Gesture {
	return &Gesture{store: store, pen: pen}
}

// SetPen changes the style used for the next committed stroke
func (g *Gesture) SetPen(pen Pen) {
	g.pen = pen
}

// State returns the current state
func (g *Gesture) State() GestureState {
	return g.state
}

// Current returns a copy of the samples of the gesture in progress
func (g *Gesture) Current() []stroke.Point {
	return append([]stroke.Point(nil), g.current...)
}

// PointerDown starts a gesture on page. Non-primary buttons and presses
// while already drawing are ignored.
func (g *Gesture) PointerDown(page int, button int, p stroke.Point) {
	if button != PrimaryButton || g.state == GestureDrawing {
		return
	}
	g.state = GestureDrawing
	g.page = page
	g.current = append(g.current[:0], p)
}

// PointerMove appends a sample. It is ignored while idle.
func (g *Gesture) PointerMove(p stroke.Point) {
	if g.state != GestureDrawing {
		return
	}
	g.current = append(g.current, p)
}

// PointerUp ends the gesture. It returns the new object's ID, or "" when the
// gesture was too short and was discarded.
func (g *Gesture) PointerUp() (string, error) {
	return g.end()
}

// PointerLeave ends the gesture exactly like PointerUp
func (g *Gesture) PointerLeave() (string, error) {
	return g.end()
}

// Cancel drops the gesture in progress without committing it
func (g *Gesture) Cancel() {
	g.state = GestureIdle
	g.current = nil
}

func (g *Gesture) end() (string, error) {
	if g.state != GestureDrawing {
		return "", nil
	}
	points := g.current
	g.state = GestureIdle
	g.current = nil

	if len(points) < stroke.MinPoints {
		return "", nil
	}
	return g.store.Add(&Drawing{
		PageIndex:   g.page,
		Points:      points,
		Color:       g.pen.Color,
		StrokeWidth: g.pen.Width,
	})
}
