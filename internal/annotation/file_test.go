package annotation

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/platinummonkey/pdfedit/internal/stroke"
)

func TestParse(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "logo.png"), []byte("png-bytes"), 0644); err != nil {
		t.Fatal(err)
	}

	doc := `
version: 1
render_scale: 1.5
objects:
  - kind: text
    page: 0
    x: 15
    y: 30
    text: Approved
    font_size: 24
    color: "#cc0000"
  - kind: image
    page: 1
    x: 100
    y: 100
    width: 60
    height: 40
    path: logo.png
  - kind: drawing
    page: 1
    stroke_width: 3
    points:
      - {x: 0, y: 0, p: 0.5}
      - {x: 4, y: 2, p: 0.6}
      - {x: 8, y: 5, p: 0.7}
`

	set, err := Parse([]byte(doc), dir)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if set.RenderScale != 1.5 {
		t.Errorf("RenderScale = %v, want 1.5", set.RenderScale)
	}

	want := []Object{
		&Text{PageIndex: 0, X: 15, Y: 30, Text: "Approved", FontSize: 24, Color: Color{R: 0xcc}},
		&Image{PageIndex: 1, X: 100, Y: 100, RenderWidth: 60, RenderHeight: 40, Data: []byte("png-bytes")},
		&Drawing{
			PageIndex: 1,
			Points: []stroke.Point{
				{X: 0, Y: 0, Pressure: 0.5},
				{X: 4, Y: 2, Pressure: 0.6},
				{X: 8, Y: 5, Pressure: 0.7},
			},
			StrokeWidth: 3,
		},
	}
	if diff := cmp.Diff(want, set.Objects); diff != "" {
		t.Errorf("Parse() objects mismatch (-want +got):\n%s", diff)
	}
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"bad version", "version: 7\nobjects: []\n"},
		{"unknown kind", "version: 1\nobjects:\n  - kind: sticker\n"},
		{"bad colour", "version: 1\nobjects:\n  - kind: text\n    color: red\n"},
		{"missing image", "version: 1\nobjects:\n  - kind: image\n    path: nope.png\n"},
		{"not yaml", "version: [\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Parse([]byte(tt.doc), t.TempDir()); err == nil {
				t.Error("Parse() should fail")
			}
		})
	}
}

func TestSaveAndLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "annotations.yaml")

	in := &Set{
		RenderScale: 2,
		Objects: []Object{
			&Text{ID: "t1", PageIndex: 0, X: 1, Y: 2, Text: "note", FontSize: 12, Color: Color{G: 10}, RenderWidth: 80},
			&Image{ID: "i1", PageIndex: 2, X: 3, Y: 4, RenderWidth: 5, RenderHeight: 6, Data: []byte{0x89, 'P', 'N', 'G'}},
		},
	}

	if err := SaveFile(path, in); err != nil {
		t.Fatalf("SaveFile() error = %v", err)
	}
	if _, err := os.Stat(path + ".tmp"); !os.IsNotExist(err) {
		t.Error("temp file should be renamed away")
	}

	out, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile() error = %v", err)
	}
	if diff := cmp.Diff(in, out); diff != "" {
		t.Errorf("LoadFile() mismatch (-want +got):\n%s", diff)
	}
}
