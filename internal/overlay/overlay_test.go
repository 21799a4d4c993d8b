package overlay

import (
	"bytes"
	"errors"
	"image/png"
	"math"
	"regexp"
	"strconv"
	"testing"

	"github.com/platinummonkey/pdfedit/internal/annotation"
	"github.com/platinummonkey/pdfedit/internal/fonts"
	"github.com/platinummonkey/pdfedit/internal/geometry"
	"github.com/platinummonkey/pdfedit/internal/logger"
	"github.com/platinummonkey/pdfedit/internal/pdfdoc"
	"github.com/platinummonkey/pdfedit/internal/pdferr"
	"github.com/platinummonkey/pdfedit/internal/stroke"
	"github.com/platinummonkey/pdfedit/internal/testpdf"
	"github.com/platinummonkey/pdfedit/internal/watermark"
)

func newPage(t *testing.T) *Page {
	t.Helper()
	m, err := watermark.NewMetrics()
	if err != nil {
		t.Fatal(err)
	}
	p, err := New(612, 792, &Config{Metrics: m, Logger: logger.NewNop()})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return p
}

func pngBytes(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, testpdf.Gradient(40, 20)); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

// checkPDF parses an overlay and checks it is one page of the given size
func checkPDF(t *testing.T, data []byte, w, h float64) {
	t.Helper()
	doc, err := pdfdoc.Load(data)
	if err != nil {
		t.Fatalf("overlay does not parse: %v", err)
	}
	if doc.PageCount() != 1 {
		t.Fatalf("overlay has %d pages", doc.PageCount())
	}
	p, _ := doc.Page(0)
	if math.Abs(p.Width-w) > 0.01 || math.Abs(p.Height-h) > 0.01 {
		t.Errorf("overlay is %vx%v, want %vx%v", p.Width, p.Height, w, h)
	}
}

func TestNew_RejectsEmptySize(t *testing.T) {
	if _, err := New(0, 100, nil); err == nil {
		t.Error("New(0, 100) should fail")
	}
}

func TestDrawObjects(t *testing.T) {
	p := newPage(t)
	tr, err := geometry.NewTransform(1.5, 792)
	if err != nil {
		t.Fatal(err)
	}

	objects := []annotation.Object{
		&annotation.Text{PageIndex: 0, X: 150, Y: 150, Text: "Hello", FontSize: 24},
		&annotation.Text{PageIndex: 0, X: 10, Y: 10, Text: "clipped text box", FontSize: 18, RenderWidth: 30},
		&annotation.Image{PageIndex: 0, X: 300, Y: 300, RenderWidth: 120, RenderHeight: 60, Data: pngBytes(t)},
		&annotation.Drawing{
			PageIndex:   0,
			Points:      []stroke.Point{{X: 10, Y: 10, Pressure: 0.5}, {X: 60, Y: 40, Pressure: 0.6}, {X: 120, Y: 20, Pressure: 0.4}},
			Color:       annotation.Color{R: 200},
			StrokeWidth: 6,
		},
	}
	for _, obj := range objects {
		if err := p.DrawObject(obj, tr); err != nil {
			t.Fatalf("DrawObject(%s) error = %v", obj.Kind(), err)
		}
	}
	if p.Drawn() != len(objects) {
		t.Errorf("Drawn() = %d, want %d", p.Drawn(), len(objects))
	}

	data, err := p.Bytes()
	if err != nil {
		t.Fatalf("Bytes() error = %v", err)
	}
	checkPDF(t, data, 612, 792)
}

func TestDrawObject_Errors(t *testing.T) {
	p := newPage(t)
	tr, _ := geometry.NewTransform(1, 792)

	bad := &annotation.Image{PageIndex: 0, RenderWidth: 10, RenderHeight: 10, Data: []byte("GIF89a not supported")}
	if err := p.DrawObject(bad, tr); !errors.Is(err, pdferr.ErrUnsupportedImageFormat) {
		t.Errorf("DrawObject(gif) error = %v, want ErrUnsupportedImageFormat", err)
	}

	short := &annotation.Drawing{Points: []stroke.Point{{X: 1, Y: 1}}, StrokeWidth: 2}
	if err := p.DrawObject(short, tr); !errors.Is(err, stroke.ErrStrokeTooShort) {
		t.Errorf("DrawObject(short) error = %v, want ErrStrokeTooShort", err)
	}
	if p.Drawn() != 0 {
		t.Errorf("failed objects counted as drawn: %d", p.Drawn())
	}
}

func TestDrawObject_TextFonts(t *testing.T) {
	tr, _ := geometry.NewTransform(1, 792)

	for _, family := range []string{"", "bold", "italic", "monospace"} {
		p := newPage(t)
		obj := &annotation.Text{PageIndex: 0, X: 20, Y: 20, Text: "Reviewed", FontSize: 16, FontFamily: family}
		if err := p.DrawObject(obj, tr); err != nil {
			t.Errorf("DrawObject(%q) error = %v", family, err)
		}
		if p.Drawn() != 1 {
			t.Errorf("DrawObject(%q) drew %d", family, p.Drawn())
		}
	}

	p := newPage(t)
	bad := &annotation.Text{PageIndex: 0, Text: "x", FontSize: 16, FontFamily: "Comic Sans"}
	if err := p.DrawObject(bad, tr); !errors.Is(err, fonts.ErrUnknownFont) {
		t.Errorf("DrawObject(Comic Sans) error = %v, want ErrUnknownFont", err)
	}
}

func TestDrawObject_TextClippedToNothing(t *testing.T) {
	p := newPage(t)
	tr, _ := geometry.NewTransform(1, 792)

	obj := &annotation.Text{PageIndex: 0, X: 10, Y: 10, Text: "Approved", FontSize: 24, RenderWidth: 2}
	if err := p.DrawObject(obj, tr); err != nil {
		t.Fatalf("DrawObject() error = %v", err)
	}
	if p.Drawn() != 0 {
		t.Errorf("Drawn() = %d, want 0 for text clipped away", p.Drawn())
	}
}

// imageCM matches the placement gopdf writes for an image
var imageCM = regexp.MustCompile(`([-\d.]+) 0 0\s+([-\d.]+) ([-\d.]+) ([-\d.]+) cm /I\d+ Do`)

func TestDrawObject_ImagePosition(t *testing.T) {
	p := newPage(t)
	tr, err := geometry.NewTransform(2, 792)
	if err != nil {
		t.Fatal(err)
	}

	// Render pixels at scale 2: top-left (50, 100) points, 60x30 points
	obj := &annotation.Image{PageIndex: 0, X: 100, Y: 200, RenderWidth: 120, RenderHeight: 60, Data: testpdf.JPEG(t, 40, 20, 90)}
	if err := p.DrawObject(obj, tr); err != nil {
		t.Fatalf("DrawObject() error = %v", err)
	}
	data, err := p.Bytes()
	if err != nil {
		t.Fatal(err)
	}

	doc, err := pdfdoc.Load(data)
	if err != nil {
		t.Fatal(err)
	}
	content, err := doc.Content(0)
	if err != nil {
		t.Fatalf("Content() error = %v", err)
	}
	m := imageCM.FindSubmatch(content)
	if m == nil {
		t.Fatalf("no image placement in %q", content)
	}

	// PDF origin is bottom-left: 792 - 100 - 30
	want := []float64{60, 30, 50, 662}
	for k, v := range m[1:] {
		got, err := strconv.ParseFloat(string(v), 64)
		if err != nil {
			t.Fatal(err)
		}
		if math.Abs(got-want[k]) > 0.01 {
			t.Errorf("image cm = %s, want %v", m[0], want)
			break
		}
	}
}

func TestDrawWatermark(t *testing.T) {
	m, err := watermark.NewMetrics()
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name string
		spec watermark.Spec
	}{
		{"text single", watermark.Spec{Kind: watermark.KindText, Text: "DRAFT", FontSize: 48, Opacity: 0.3, Rotation: 45}},
		{"text tiled", watermark.Spec{Kind: watermark.KindText, Text: "CONFIDENTIAL", FontSize: 24, Opacity: 0.5, Rotation: -30, Mode: watermark.ModeTiled}},
		{"image corner", watermark.Spec{Kind: watermark.KindImage, Image: pngBytes(t), Opacity: 1, Anchor: watermark.AnchorBottomRight}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			placements, err := watermark.Place(tt.spec, 612, 792, m)
			if err != nil {
				t.Fatalf("Place() error = %v", err)
			}

			p := newPage(t)
			if err := p.DrawWatermark(tt.spec, placements); err != nil {
				t.Fatalf("DrawWatermark() error = %v", err)
			}
			if p.Drawn() != len(placements) {
				t.Errorf("Drawn() = %d, want %d", p.Drawn(), len(placements))
			}

			data, err := p.Bytes()
			if err != nil {
				t.Fatal(err)
			}
			checkPDF(t, data, 612, 792)
		})
	}
}
