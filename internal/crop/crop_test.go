package crop

import (
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/platinummonkey/pdfedit/internal/geometry"
	"github.com/platinummonkey/pdfedit/internal/pdferr"
)

func approxRect(a, b geometry.Rect) bool {
	const eps = 1e-9
	return math.Abs(a.X-b.X) < eps && math.Abs(a.Y-b.Y) < eps &&
		math.Abs(a.Width-b.Width) < eps && math.Abs(a.Height-b.Height) < eps
}

func TestPlan_LetterPercentAllPages(t *testing.T) {
	pages := []PageSize{{612, 792}, {612, 792}, {612, 792}}
	m := Margins{Top: 10, Bottom: 10, Left: 5, Right: 5, Unit: UnitPercent}

	plan, err := Plan(pages, m, ModeAll, 0)
	if err != nil {
		t.Fatalf("Plan() error = %v", err)
	}
	if len(plan) != 3 {
		t.Fatalf("Plan() returned %d boxes, want 3", len(plan))
	}

	want := geometry.Rect{X: 30.6, Y: 79.2, Width: 550.8, Height: 633.6}
	for _, i := range SortedPages(plan) {
		if !approxRect(plan[i], want) {
			t.Errorf("page %d box = %v, want %v", i, plan[i], want)
		}
	}
}

func TestPlan_CurrentOnlyTouchesActivePage(t *testing.T) {
	pages := []PageSize{{612, 792}, {595, 842}}
	m := Margins{Top: 20, Bottom: 20, Left: 20, Right: 20, Unit: UnitAbsolute}

	plan, err := Plan(pages, m, ModeCurrent, 1)
	if err != nil {
		t.Fatalf("Plan() error = %v", err)
	}
	if _, ok := plan[0]; ok || len(plan) != 1 {
		t.Fatalf("Plan() = %v, want only page 1", plan)
	}
	want := geometry.Rect{X: 20, Y: 20, Width: 555, Height: 802}
	if !approxRect(plan[1], want) {
		t.Errorf("box = %v, want %v", plan[1], want)
	}

	if _, err := Plan(pages, m, ModeCurrent, 2); !errors.Is(err, pdferr.ErrPageIndexOutOfRange) {
		t.Errorf("active page out of range error = %v", err)
	}
}

func TestPlan_AllModeUsesEachPageSize(t *testing.T) {
	pages := []PageSize{{600, 800}, {300, 400}}
	m := Margins{Left: 10, Right: 10, Top: 25, Bottom: 25, Unit: UnitPercent}

	plan, err := Plan(pages, m, ModeAll, 0)
	if err != nil {
		t.Fatalf("Plan() error = %v", err)
	}

	if !approxRect(plan[0], geometry.Rect{X: 60, Y: 200, Width: 480, Height: 400}) {
		t.Errorf("page 0 box = %v", plan[0])
	}
	if !approxRect(plan[1], geometry.Rect{X: 30, Y: 100, Width: 240, Height: 200}) {
		t.Errorf("page 1 box = %v", plan[1])
	}
}

func TestPlan_ValidatesEveryPageFirst(t *testing.T) {
	// The margins fit the first page but not the second
	pages := []PageSize{{612, 792}, {100, 100}}
	m := Margins{Left: 60, Right: 60, Unit: UnitAbsolute}

	plan, err := Plan(pages, m, ModeAll, 0)
	if plan != nil {
		t.Error("Plan() should not return partial results")
	}
	if !errors.Is(err, pdferr.ErrInvalidCropDimensions) {
		t.Fatalf("Plan() error = %v, want ErrInvalidCropDimensions", err)
	}

	var pe *pdferr.PageError
	if !errors.As(err, &pe) || pe.Page != 1 {
		t.Errorf("error should name page index 1, got %v", err)
	}
	if !strings.Contains(err.Error(), "page 2") {
		t.Errorf("message %q should name the 1-indexed page", err.Error())
	}
}

func TestComputeBox_ContainmentAndLinearity(t *testing.T) {
	sizes := []PageSize{{612, 792}, {595.28, 841.89}, {1000, 50}}

	for _, size := range sizes {
		page := geometry.Rect{Width: size.Width, Height: size.Height}
		for pct := 0.0; pct < 50; pct += 2.5 {
			m := Margins{Top: pct, Bottom: pct, Left: pct, Right: pct, Unit: UnitPercent}
			box, err := ComputeBox(0, size.Width, size.Height, m)
			if err != nil {
				t.Fatalf("ComputeBox(%v, %v%%) error = %v", size, pct, err)
			}

			if !page.Contains(box) {
				t.Errorf("box %v escapes page %v", box, page)
			}
			wantW := size.Width * (1 - 2*pct/100)
			wantH := size.Height * (1 - 2*pct/100)
			if math.Abs(box.Width-wantW) > 1e-9 || math.Abs(box.Height-wantH) > 1e-9 {
				t.Errorf("%v%% on %v: size %vx%v, want %vx%v", pct, size, box.Width, box.Height, wantW, wantH)
			}
		}
	}
}

func TestComputeBox_Rejects(t *testing.T) {
	tests := []struct {
		name string
		m    Margins
	}{
		{"horizontal margins fill page", Margins{Left: 306, Right: 306, Unit: UnitAbsolute}},
		{"vertical margins exceed page", Margins{Top: 500, Bottom: 400, Unit: UnitAbsolute}},
		{"percent sums to 100", Margins{Top: 50, Bottom: 50, Unit: UnitPercent}},
		{"negative margin", Margins{Left: -5, Unit: UnitAbsolute}},
		{"nan margin", Margins{Top: math.NaN(), Unit: UnitAbsolute}},
		{"unknown unit", Margins{Unit: "inch"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ComputeBox(0, 612, 792, tt.m)
			if !errors.Is(err, pdferr.ErrInvalidCropDimensions) {
				t.Errorf("ComputeBox() error = %v, want ErrInvalidCropDimensions", err)
			}
			if !pdferr.IsValidation(err) {
				t.Error("crop rejection should be a validation error")
			}
		})
	}
}

func TestParseUnit(t *testing.T) {
	for in, want := range map[string]Unit{"": UnitAbsolute, "pt": UnitAbsolute, "%": UnitPercent, "percent": UnitPercent} {
		got, err := ParseUnit(in)
		if err != nil || got != want {
			t.Errorf("ParseUnit(%q) = %v, %v; want %v", in, got, err, want)
		}
	}
	if _, err := ParseUnit("cm"); err == nil {
		t.Error("ParseUnit(cm) should fail")
	}
}
