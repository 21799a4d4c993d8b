// Package crop computes crop boxes from page margins.
package crop

import (
	"fmt"
	"math"
	"sort"

	"github.com/platinummonkey/pdfedit/internal/geometry"
	"github.com/platinummonkey/pdfedit/internal/pdferr"
)

// Unit says how margin values are interpreted
type Unit string

const (
	// UnitAbsolute margins are in document points
	UnitAbsolute Unit = "pt"

	// UnitPercent margins are 0-100 percent of the page dimension they
	// run along (left/right of the width, top/bottom of the height)
	UnitPercent Unit = "percent"
)

// ParseUnit accepts "pt", "points", "%" and "percent"
func ParseUnit(s string) (Unit, error) {
	switch s {
	case "", "pt", "points", "absolute":
		return UnitAbsolute, nil
	case "%", "percent", "pct":
		return UnitPercent, nil
	default:
		return "", fmt.Errorf("unknown margin unit %q", s)
	}
}

// Mode selects which pages a crop applies to
type Mode string

const (
	// ModeCurrent crops only the active page
	ModeCurrent Mode = "current"

	// ModeAll crops every page, each against its own size
	ModeAll Mode = "all"
)

// Margins are the distances to trim from each edge
type Margins struct {
	Top    float64
	Bottom float64
	Left   float64
	Right  float64
	Unit   Unit
}

// PageSize is a page's width and height in points
type PageSize struct {
	Width  float64
	Height float64
}

// resolve returns the margins in points for a page of the given size
func (m Margins) resolve(width, height float64) (top, bottom, left, right float64) {
	if m.Unit == UnitPercent {
		return m.Top / 100 * height, m.Bottom / 100 * height, m.Left / 100 * width, m.Right / 100 * width
	}
	return m.Top, m.Bottom, m.Left, m.Right
}

func (m Margins) validate() error {
	for _, v := range []float64{m.Top, m.Bottom, m.Left, m.Right} {
		if v < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: margins must be finite and non-negative", pdferr.ErrInvalidCropDimensions)
		}
	}
	if m.Unit != "" && m.Unit != UnitAbsolute && m.Unit != UnitPercent {
		return fmt.Errorf("%w: unknown margin unit %q", pdferr.ErrInvalidCropDimensions, m.Unit)
	}
	return nil
}

// ComputeBox returns the crop box of one page in document space. A box with
// no area is an error naming the page; it is never clamped.
func ComputeBox(pageIndex int, width, height float64, m Margins) (geometry.Rect, error) {
	if err := m.validate(); err != nil {
		return geometry.Rect{}, pdferr.NewPageError(pageIndex, err)
	}

	top, bottom, left, right := m.resolve(width, height)
	box := geometry.Rect{
		X:      left,
		Y:      bottom,
		Width:  width - left - right,
		Height: height - top - bottom,
	}

	if box.Width <= 0 || box.Height <= 0 {
		return geometry.Rect{}, pdferr.NewPageError(pageIndex, fmt.Errorf(
			"%w: margins leave %.2fx%.2f of a %.2fx%.2f page",
			pdferr.ErrInvalidCropDimensions, box.Width, box.Height, width, height))
	}
	return box, nil
}

// Plan computes the crop boxes for a crop request, keyed by page index.
// Every page in scope is validated before anything is returned.
func Plan(pages []PageSize, m Margins, mode Mode, active int) (map[int]geometry.Rect, error) {
	var indices []int
	switch mode {
	case ModeCurrent, "":
		if active < 0 || active >= len(pages) {
			return nil, pdferr.PageOutOfRange(active, len(pages))
		}
		indices = []int{active}
	case ModeAll:
		for i := range pages {
			indices = append(indices, i)
		}
	default:
		return nil, fmt.Errorf("unknown crop mode %q", mode)
	}

	boxes := make(map[int]geometry.Rect, len(indices))
	for _, i := range indices {
		box, err := ComputeBox(i, pages[i].Width, pages[i].Height, m)
		if err != nil {
			return nil, err
		}
		boxes[i] = box
	}
	return boxes, nil
}

// SortedPages returns the keys of a plan in ascending order
func SortedPages(plan map[int]geometry.Rect) []int {
	pages := make([]int, 0, len(plan))
	for p := range plan {
		pages = append(pages, p)
	}
	sort.Ints(pages)
	return pages
}
