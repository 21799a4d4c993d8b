// Package stroke turns freehand pointer input into a fillable outline.
//
// A gesture is an ordered list of samples with pressure. The samples are
// first streamlined (each point is pulled toward its predecessor), then
// offset to both sides by a pressure-dependent radius. The left side, an end
// cap, the reversed right side and a start cap form one closed polygon whose
// fill looks like a variable-width pen stroke.
package stroke

import (
	"errors"
	"math"

	"seehuhn.de/go/geom/vec"
)

// MinPoints is the shortest gesture that produces a stroke.
const MinPoints = 3

// ErrStrokeTooShort is returned for gestures with fewer than MinPoints samples.
var ErrStrokeTooShort = errors.New("stroke has fewer than 3 points")

const (
	// fixedPi avoids exact half-turn rotations producing coincident points
	fixedPi = math.Pi + 0.0001

	// default pressure for samples without a pressure reading
	defaultPressure = 0.5

	// runs shorter than this (in units) at the tail are folded into the end cap
	tailLength = 3
)

// Point is one pointer sample.
type Point struct {
	X        float64
	Y        float64
	Pressure float64 // 0..1, negative means unknown
}

// Options tunes the outline.
type Options struct {
	// Size is the base stroke diameter
	Size float64

	// Thinning is how strongly pressure affects the width (0 = constant width)
	Thinning float64

	// Smoothing drops outline points closer than Size*Smoothing to the previous one
	Smoothing float64

	// Streamline pulls each sample toward the previous one (0..1)
	Streamline float64
}

// DefaultOptions returns the tuned constants used by the editor's pen.
func DefaultOptions(size float64) Options {
	return Options{
		Size:       size,
		Thinning:   0.5,
		Smoothing:  0.5,
		Streamline: 0.5,
	}
}

type strokePoint struct {
	point         vec.Vec2
	pressure      float64
	vector        vec.Vec2
	distance      float64
	runningLength float64
}

// Outline returns the closed outline polygon of a gesture.
func Outline(points []Point, opts Options) ([]vec.Vec2, error) {
	if len(points) < MinPoints {
		return nil, ErrStrokeTooShort
	}
	if opts.Size <= 0 {
		opts.Size = 8
	}
	sp := streamline(points, opts)
	if len(sp) < 2 {
		// Every sample coincided; draw a dot.
		return dotOutline(sp[0].point, radius(opts, sp[0].pressure)), nil
	}
	return outline(sp, opts), nil
}

// streamline smooths the raw samples and annotates them with direction and
// running length.
func streamline(points []Point, opts Options) []strokePoint {
	t := 0.15 + (1-opts.Streamline)*0.85

	pressureOf := func(p Point) float64 {
		if p.Pressure < 0 {
			return defaultPressure
		}
		return math.Min(p.Pressure, 1)
	}

	first := vec.Vec2{X: points[0].X, Y: points[0].Y}
	out := []strokePoint{{
		point:    first,
		pressure: pressureOf(points[0]),
		vector:   vec.Vec2{X: 1, Y: 1},
	}}

	prev := out[0]
	running := 0.0
	reachedMinimum := false
	last := len(points) - 1

	for i := 1; i < len(points); i++ {
		raw := vec.Vec2{X: points[i].X, Y: points[i].Y}
		var p vec.Vec2
		if i == last {
			p = raw
		} else {
			p = lerp(prev.point, raw, t)
		}
		if p == prev.point {
			continue
		}

		d := p.Sub(prev.point).Length()
		running += d

		// Skip the jittery first few samples until the stroke has some length.
		if i < last && !reachedMinimum {
			if running < opts.Size {
				continue
			}
			reachedMinimum = true
		}

		prev = strokePoint{
			point:         p,
			pressure:      pressureOf(points[i]),
			vector:        unit(prev.point.Sub(p)),
			distance:      d,
			runningLength: running,
		}
		out = append(out, prev)
	}

	if len(out) > 1 {
		out[0].vector = out[1].vector
	}
	return out
}

func radius(opts Options, pressure float64) float64 {
	if opts.Thinning == 0 {
		return opts.Size / 2
	}
	return opts.Size * (0.5 - opts.Thinning*(0.5-pressure))
}

func outline(points []strokePoint, opts Options) []vec.Vec2 {
	n := len(points)
	total := points[n-1].runningLength
	minDistance := math.Pow(opts.Size*opts.Smoothing, 2)

	var left, right []vec.Vec2

	prevVector := points[0].vector
	pl := points[0].point
	pr := pl
	var tl, tr vec.Vec2
	prevSharp := false
	r := radius(opts, points[n-1].pressure)

	for i, sp := range points {
		if i < n-1 && total-sp.runningLength < tailLength {
			continue
		}

		r = math.Max(0.01, radius(opts, sp.pressure))

		nextVector := sp.vector
		nextDpr := 1.0
		if i < n-1 {
			nextVector = points[i+1].vector
			nextDpr = dot(sp.vector, nextVector)
		}
		prevDpr := dot(sp.vector, prevVector)

		sharp := prevDpr < 0 && !prevSharp
		nextSharp := nextDpr < 0

		if sharp || nextSharp {
			// Round the corner with a half-turn fan on both sides.
			offset := perp(prevVector).Mul(r)
			for step := 0.0; step <= 1; step += 0.13 {
				tl = rotateAround(sp.point.Sub(offset), sp.point, fixedPi*step)
				left = append(left, tl)
				tr = rotateAround(sp.point.Add(offset), sp.point, fixedPi*-step)
				right = append(right, tr)
			}
			pl, pr = tl, tr
			if nextSharp {
				prevSharp = true
			}
			continue
		}
		prevSharp = false

		if i == n-1 {
			offset := perp(sp.vector).Mul(r)
			left = append(left, sp.point.Sub(offset))
			right = append(right, sp.point.Add(offset))
			continue
		}

		offset := perp(lerp(nextVector, sp.vector, nextDpr)).Mul(r)

		tl = sp.point.Sub(offset)
		if i <= 1 || dist2(pl, tl) > minDistance {
			left = append(left, tl)
			pl = tl
		}
		tr = sp.point.Add(offset)
		if i <= 1 || dist2(pr, tr) > minDistance {
			right = append(right, tr)
			pr = tr
		}
		prevVector = sp.vector
	}

	if len(left) == 0 || len(right) == 0 {
		return dotOutline(points[0].point, r)
	}

	firstPoint := points[0].point
	lastPoint := points[n-1].point

	var startCap []vec.Vec2
	for step := 0.0; step <= 1; step += 1.0 / 13 {
		startCap = append(startCap, rotateAround(right[0], firstPoint, fixedPi*step))
	}

	var endCap []vec.Vec2
	direction := perp(points[n-1].vector.Mul(-1))
	capStart := lastPoint.Add(direction.Mul(r))
	for step := 1.0 / 29; step < 1; step += 1.0 / 29 {
		endCap = append(endCap, rotateAround(capStart, lastPoint, fixedPi*3*step))
	}

	out := make([]vec.Vec2, 0, len(left)+len(endCap)+len(right)+len(startCap))
	out = append(out, left...)
	out = append(out, endCap...)
	for i := len(right) - 1; i >= 0; i-- {
		out = append(out, right[i])
	}
	out = append(out, startCap...)
	return out
}

// dotOutline returns a small circle for a degenerate gesture.
func dotOutline(center vec.Vec2, r float64) []vec.Vec2 {
	start := center.Add(vec.Vec2{X: r, Y: 0})
	out := make([]vec.Vec2, 0, 13)
	for step := 0.0; step < 1; step += 1.0 / 13 {
		out = append(out, rotateAround(start, center, 2*math.Pi*step))
	}
	return out
}

func lerp(a, b vec.Vec2, t float64) vec.Vec2 {
	return a.Add(b.Sub(a).Mul(t))
}

func unit(v vec.Vec2) vec.Vec2 {
	l := v.Length()
	if l == 0 {
		return vec.Vec2{}
	}
	return v.Mul(1 / l)
}

func perp(v vec.Vec2) vec.Vec2 {
	return vec.Vec2{X: v.Y, Y: -v.X}
}

func dot(a, b vec.Vec2) float64 {
	return a.X*b.X + a.Y*b.Y
}

func dist2(a, b vec.Vec2) float64 {
	d := a.Sub(b)
	return d.X*d.X + d.Y*d.Y
}

func rotateAround(p, c vec.Vec2, angle float64) vec.Vec2 {
	s, co := math.Sin(angle), math.Cos(angle)
	px, py := p.X-c.X, p.Y-c.Y
	return vec.Vec2{X: px*co - py*s + c.X, Y: px*s + py*co + c.Y}
}
