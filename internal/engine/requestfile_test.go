package engine

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/platinummonkey/pdfedit/internal/annotation"
	"github.com/platinummonkey/pdfedit/internal/compress"
	"github.com/platinummonkey/pdfedit/internal/crop"
	"github.com/platinummonkey/pdfedit/internal/watermark"
)

func TestParseRequest_Crop(t *testing.T) {
	req, err := ParseRequest([]byte(`
tool: crop
crop:
  top: 10
  bottom: 10
  left: 5
  right: 5
  unit: percent
  mode: current
  page: 2
`), "")
	if err != nil {
		t.Fatalf("ParseRequest() error = %v", err)
	}
	want := &CropParams{
		Margins:    crop.Margins{Top: 10, Bottom: 10, Left: 5, Right: 5, Unit: crop.UnitPercent},
		Mode:       crop.ModeCurrent,
		ActivePage: 1,
	}
	if diff := cmp.Diff(want, req.Crop); diff != "" {
		t.Errorf("crop params mismatch (-want +got):\n%s", diff)
	}
}

func TestParseRequest_Watermark(t *testing.T) {
	req, err := ParseRequest([]byte(`
tool: watermark
watermark:
  text: CONFIDENTIAL
  font_size: 36
  color: "#cc0000"
  opacity: 0.3
  rotation: -45
  mode: tiled
  pages: [1, 3]
`), "")
	if err != nil {
		t.Fatalf("ParseRequest() error = %v", err)
	}
	want := &WatermarkParams{
		Spec: watermark.Spec{
			Kind: watermark.KindText, Text: "CONFIDENTIAL", FontSize: 36,
			Color: annotation.Color{R: 0xcc}, Opacity: 0.3, Rotation: -45,
			Mode: watermark.ModeTiled, Anchor: watermark.AnchorCenter,
		},
		Pages: []int{0, 2},
	}
	if diff := cmp.Diff(want, req.Watermark); diff != "" {
		t.Errorf("watermark params mismatch (-want +got):\n%s", diff)
	}
}

func TestParseRequest_WatermarkImagePath(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "logo.png"), []byte("\x89PNG\r\n\x1a\nrest"), 0o644); err != nil {
		t.Fatal(err)
	}
	req, err := loadRequestFrom(t, dir, `
tool: watermark
watermark:
  kind: image
  image: logo.png
  opacity: 1
`)
	if err != nil {
		t.Fatalf("LoadRequest() error = %v", err)
	}
	if string(req.Watermark.Spec.Image[:4]) != "\x89PNG" {
		t.Error("image bytes should be read relative to the request file")
	}
}

// loadRequestFrom writes a request file into dir and loads it
func loadRequestFrom(t *testing.T, dir, body string) (Request, error) {
	t.Helper()
	path := filepath.Join(dir, "request.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return LoadRequest(path)
}

func TestParseRequest_Organize(t *testing.T) {
	req, err := ParseRequest([]byte(`
tool: organize
organize:
  pages:
    - page: 4
    - page: 1
      rotate: -90
    - page: 2
`), "")
	if err != nil {
		t.Fatalf("ParseRequest() error = %v", err)
	}
	got := req.Organize.Entries
	if len(got) != 3 || got[0].OriginalIndex != 3 || got[1].OriginalIndex != 0 || got[1].RotationDelta != 270 {
		t.Errorf("entries = %+v", got)
	}
	if got[0].ID == "" || got[0].ID == got[1].ID {
		t.Error("entries need distinct IDs")
	}
}

func TestParseRequest_Defaults(t *testing.T) {
	req, err := ParseRequest([]byte("tool: compress\n"), "")
	if err != nil {
		t.Fatal(err)
	}
	if req.Compress.Level != compress.LevelMedium {
		t.Errorf("default level = %s", req.Compress.Level)
	}

	req, err = ParseRequest([]byte("tool: to-images\n"), "")
	if err != nil {
		t.Fatal(err)
	}
	if req.ToImages.Scale != 2 {
		t.Errorf("default scale = %v", req.ToImages.Scale)
	}
}

func TestParseRequest_Errors(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"unknown tool", "tool: protect\n"},
		{"bad yaml", "tool: [\n"},
		{"crop without params", "tool: crop\n"},
		{"bad unit", "tool: crop\ncrop: {unit: inches}\n"},
		{"bad level", "tool: compress\ncompress: {level: max}\n"},
		{"bad colour", "tool: watermark\nwatermark: {text: x, color: red, opacity: 1}\n"},
		{"empty text", "tool: watermark\nwatermark: {text: '', opacity: 1}\n"},
		{"missing merge file", "tool: merge\nmerge: {files: [nope.pdf]}\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ParseRequest([]byte(tt.yaml), t.TempDir()); err == nil {
				t.Error("ParseRequest() should fail")
			}
		})
	}
}
