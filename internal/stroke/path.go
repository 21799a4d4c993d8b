package stroke

import (
	"strconv"
	"strings"

	"seehuhn.de/go/geom/vec"
)

// SVGPath renders an outline as an SVG path. Each outline point becomes the
// control point of a quadratic curve ending at the midpoint to its successor,
// which rounds off the polygon's corners.
func SVGPath(outline []vec.Vec2) string {
	if len(outline) == 0 {
		return ""
	}

	var b strings.Builder
	b.WriteString("M ")
	writePair(&b, outline[0])
	b.WriteString(" Q")
	for i, p := range outline {
		next := outline[(i+1)%len(outline)]
		b.WriteByte(' ')
		writePair(&b, p)
		b.WriteByte(' ')
		writePair(&b, vec.Vec2{X: (p.X + next.X) / 2, Y: (p.Y + next.Y) / 2})
	}
	b.WriteString(" Z")
	return b.String()
}

func writePair(b *strings.Builder, p vec.Vec2) {
	b.WriteString(strconv.FormatFloat(p.X, 'f', 2, 64))
	b.WriteByte(' ')
	b.WriteString(strconv.FormatFloat(p.Y, 'f', 2, 64))
}

// FlipY mirrors a whole path across the horizontal axis of a page of the
// given height (y -> height - y). Use it to move an outline between a
// bottom-left and a top-left origin. Translating alone would mirror strokes.
func FlipY(path []vec.Vec2, height float64) []vec.Vec2 {
	out := make([]vec.Vec2, len(path))
	for i, p := range path {
		out[i] = vec.Vec2{X: p.X, Y: height - p.Y}
	}
	return out
}

// Bounds returns the bounding box of a path as min and max corners.
func Bounds(path []vec.Vec2) (minP, maxP vec.Vec2) {
	if len(path) == 0 {
		return
	}
	minP, maxP = path[0], path[0]
	for _, p := range path[1:] {
		minP.X = min(minP.X, p.X)
		minP.Y = min(minP.Y, p.Y)
		maxP.X = max(maxP.X, p.X)
		maxP.Y = max(maxP.Y, p.Y)
	}
	return minP, maxP
}
