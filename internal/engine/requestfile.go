package engine

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/platinummonkey/pdfedit/internal/annotation"
	"github.com/platinummonkey/pdfedit/internal/compress"
	"github.com/platinummonkey/pdfedit/internal/crop"
	"github.com/platinummonkey/pdfedit/internal/organize"
	"github.com/platinummonkey/pdfedit/internal/watermark"
)

// requestDoc is the YAML form of a Request. Page numbers are 1-indexed and
// file paths are relative to the request file.
type requestDoc struct {
	Tool      string        `yaml:"tool"`
	Merge     *mergeDoc     `yaml:"merge,omitempty"`
	Crop      *cropDoc      `yaml:"crop,omitempty"`
	Rotate    *rotateDoc    `yaml:"rotate,omitempty"`
	Organize  *organizeDoc  `yaml:"organize,omitempty"`
	Watermark *watermarkDoc `yaml:"watermark,omitempty"`
	Compress  *compressDoc  `yaml:"compress,omitempty"`
	ToImages  *toImagesDoc  `yaml:"to_images,omitempty"`
}

type mergeDoc struct {
	Files []string `yaml:"files"`
}

type cropDoc struct {
	Top    float64 `yaml:"top"`
	Bottom float64 `yaml:"bottom"`
	Left   float64 `yaml:"left"`
	Right  float64 `yaml:"right"`
	Unit   string  `yaml:"unit"`
	Mode   string  `yaml:"mode"`
	Page   int     `yaml:"page"`
}

type rotateDoc struct {
	Degrees int   `yaml:"degrees"`
	Pages   []int `yaml:"pages"`
}

type organizeDoc struct {
	Pages []organizeEntryDoc `yaml:"pages"`
}

type organizeEntryDoc struct {
	Page   int `yaml:"page"`
	Rotate int `yaml:"rotate"`
}

type watermarkDoc struct {
	Kind     string  `yaml:"kind"`
	Text     string  `yaml:"text"`
	FontSize float64 `yaml:"font_size"`
	Color    string  `yaml:"color"`
	Image    string  `yaml:"image"`
	Opacity  float64 `yaml:"opacity"`
	Rotation float64 `yaml:"rotation"`
	Mode     string  `yaml:"mode"`
	Anchor   string  `yaml:"anchor"`
	Pages    []int   `yaml:"pages"`
}

type compressDoc struct {
	Level string `yaml:"level"`
}

type toImagesDoc struct {
	Scale float64 `yaml:"scale"`
}

// LoadRequest reads a YAML request file
func LoadRequest(path string) (Request, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Request{}, fmt.Errorf("failed to read request: %w", err)
	}
	req, err := ParseRequest(data, filepath.Dir(path))
	if err != nil {
		return Request{}, fmt.Errorf("%s: %w", path, err)
	}
	return req, nil
}

// ParseRequest decodes a YAML request. Relative paths resolve against baseDir.
func ParseRequest(data []byte, baseDir string) (Request, error) {
	var doc requestDoc
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return Request{}, fmt.Errorf("failed to parse request: %w", err)
	}

	tool, err := ParseTool(doc.Tool)
	if err != nil {
		return Request{}, err
	}
	req := Request{Tool: tool}

	switch tool {
	case ToolMerge:
		if doc.Merge == nil {
			return Request{}, missingParams(tool)
		}
		req.Merge = &MergeParams{}
		for _, f := range doc.Merge.Files {
			b, err := os.ReadFile(resolve(baseDir, f))
			if err != nil {
				return Request{}, fmt.Errorf("failed to read merge input: %w", err)
			}
			req.Merge.Documents = append(req.Merge.Documents, b)
		}

	case ToolCrop:
		if doc.Crop == nil {
			return Request{}, missingParams(tool)
		}
		unit, err := crop.ParseUnit(doc.Crop.Unit)
		if err != nil {
			return Request{}, err
		}
		mode := crop.Mode(doc.Crop.Mode)
		if mode == "" {
			mode = crop.ModeAll
		}
		req.Crop = &CropParams{
			Margins: crop.Margins{
				Top: doc.Crop.Top, Bottom: doc.Crop.Bottom,
				Left: doc.Crop.Left, Right: doc.Crop.Right,
				Unit: unit,
			},
			Mode:       mode,
			ActivePage: max(doc.Crop.Page, 1) - 1,
		}

	case ToolRotate:
		if doc.Rotate == nil {
			return Request{}, missingParams(tool)
		}
		req.Rotate = &RotateParams{Delta: doc.Rotate.Degrees, Pages: zeroIndexed(doc.Rotate.Pages)}

	case ToolOrganize:
		if doc.Organize != nil {
			indices := make([]int, len(doc.Organize.Pages))
			for i, p := range doc.Organize.Pages {
				indices[i] = p.Page - 1
			}
			entries := organize.FromIndices(indices)
			for i, p := range doc.Organize.Pages {
				entries[i].RotationDelta = organize.Normalize(p.Rotate)
			}
			req.Organize = &OrganizeParams{Entries: entries}
		}

	case ToolWatermark:
		if doc.Watermark == nil {
			return Request{}, missingParams(tool)
		}
		spec, err := doc.Watermark.spec(baseDir)
		if err != nil {
			return Request{}, err
		}
		req.Watermark = &WatermarkParams{Spec: spec, Pages: zeroIndexed(doc.Watermark.Pages)}

	case ToolCompress:
		level := compress.LevelMedium
		if doc.Compress != nil && doc.Compress.Level != "" {
			if level, err = compress.ParseLevel(doc.Compress.Level); err != nil {
				return Request{}, err
			}
		}
		req.Compress = &CompressParams{Level: level}

	case ToolToImages:
		scale := 2.0
		if doc.ToImages != nil && doc.ToImages.Scale > 0 {
			scale = doc.ToImages.Scale
		}
		req.ToImages = &ToImagesParams{Scale: scale}
	}
	return req, nil
}

func (w *watermarkDoc) spec(baseDir string) (watermark.Spec, error) {
	spec := watermark.Spec{
		Kind:     watermark.Kind(w.Kind),
		Text:     w.Text,
		FontSize: w.FontSize,
		Opacity:  w.Opacity,
		Rotation: w.Rotation,
		Mode:     watermark.Mode(w.Mode),
		Anchor:   watermark.Anchor(w.Anchor),
	}
	if spec.Kind == "" {
		spec.Kind = watermark.KindText
	}
	if w.Color != "" {
		c, err := annotation.ParseColor(w.Color)
		if err != nil {
			return watermark.Spec{}, err
		}
		spec.Color = c
	}
	if w.Image != "" {
		data, err := os.ReadFile(resolve(baseDir, w.Image))
		if err != nil {
			return watermark.Spec{}, fmt.Errorf("failed to read watermark image: %w", err)
		}
		spec.Image = data
	}
	if err := spec.Validate(); err != nil {
		return watermark.Spec{}, err
	}
	return spec, nil
}

func resolve(baseDir, path string) string {
	if filepath.IsAbs(path) || baseDir == "" {
		return path
	}
	return filepath.Join(baseDir, path)
}

func zeroIndexed(pages []int) []int {
	if len(pages) == 0 {
		return nil
	}
	out := make([]int, len(pages))
	for i, p := range pages {
		out[i] = p - 1
	}
	return out
}
