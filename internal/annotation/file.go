package annotation

import (
	"encoding/base64"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/platinummonkey/pdfedit/internal/stroke"
)

// FileVersion is the current version of the annotation file format
const FileVersion = 1

// Set is a batch of objects together with the render scale their
// coordinates were captured at.
type Set struct {
	RenderScale float64
	Objects     []Object
}

type fileDoc struct {
	Version     int      `yaml:"version"`
	RenderScale float64  `yaml:"render_scale"`
	Objects     []record `yaml:"objects"`
}

type record struct {
	Kind        Kind          `yaml:"kind"`
	ID          string        `yaml:"id,omitempty"`
	Page        int           `yaml:"page"`
	X           float64       `yaml:"x,omitempty"`
	Y           float64       `yaml:"y,omitempty"`
	Text        string        `yaml:"text,omitempty"`
	FontSize    float64       `yaml:"font_size,omitempty"`
	FontFamily  string        `yaml:"font_family,omitempty"`
	Color       string        `yaml:"color,omitempty"`
	Width       float64       `yaml:"width,omitempty"`
	Height      float64       `yaml:"height,omitempty"`
	Path        string        `yaml:"path,omitempty"`
	Data        string        `yaml:"data,omitempty"`
	StrokeWidth float64       `yaml:"stroke_width,omitempty"`
	Points      []pointRecord `yaml:"points,omitempty"`
}

type pointRecord struct {
	X        float64 `yaml:"x"`
	Y        float64 `yaml:"y"`
	Pressure float64 `yaml:"p"`
}

// LoadFile reads an annotation file. Image records may carry their bytes
// inline or reference a file relative to the annotation file.
func LoadFile(path string) (*Set, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read annotation file: %w", err)
	}

	set, err := Parse(data, filepath.Dir(path))
	if err != nil {
		return nil, fmt.Errorf("failed to parse annotation file %s: %w", path, err)
	}
	return set, nil
}

// Parse decodes an annotation document. baseDir resolves relative image paths.
func Parse(data []byte, baseDir string) (*Set, error) {
	var doc fileDoc
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, err
	}

	if doc.Version != FileVersion {
		return nil, fmt.Errorf("unsupported annotation file version %d (expected %d)", doc.Version, FileVersion)
	}
	if doc.RenderScale == 0 {
		doc.RenderScale = 1
	}

	set := &Set{RenderScale: doc.RenderScale}
	for i, rec := range doc.Objects {
		obj, err := rec.object(baseDir)
		if err != nil {
			return nil, fmt.Errorf("object %d: %w", i, err)
		}
		set.Objects = append(set.Objects, obj)
	}
	return set, nil
}

// SaveFile writes objects to path atomically
func SaveFile(path string, set *Set) error {
	doc := fileDoc{Version: FileVersion, RenderScale: set.RenderScale}
	for _, obj := range set.Objects {
		doc.Objects = append(doc.Objects, newRecord(obj))
	}

	data, err := yaml.Marshal(&doc)
	if err != nil {
		return fmt.Errorf("failed to marshal annotations: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create annotation directory: %w", err)
	}

	// Write to a temp file, then rename
	tmpFile := path + ".tmp"
	if err := os.WriteFile(tmpFile, data, 0644); err != nil {
		return fmt.Errorf("failed to write temp annotation file: %w", err)
	}
	if err := os.Rename(tmpFile, path); err != nil {
		os.Remove(tmpFile)
		return fmt.Errorf("failed to rename temp annotation file: %w", err)
	}
	return nil
}

func (r record) object(baseDir string) (Object, error) {
	color := Black
	if r.Color != "" {
		c, err := ParseColor(r.Color)
		if err != nil {
			return nil, err
		}
		color = c
	}

	switch r.Kind {
	case KindText:
		return &Text{
			ID:          r.ID,
			PageIndex:   r.Page,
			X:           r.X,
			Y:           r.Y,
			Text:        r.Text,
			FontSize:    r.FontSize,
			FontFamily:  r.FontFamily,
			Color:       color,
			RenderWidth: r.Width,
		}, nil
	case KindImage:
		var data []byte
		switch {
		case r.Data != "":
			b, err := base64.StdEncoding.DecodeString(r.Data)
			if err != nil {
				return nil, fmt.Errorf("failed to decode image data: %w", err)
			}
			data = b
		case r.Path != "":
			p := r.Path
			if !filepath.IsAbs(p) {
				p = filepath.Join(baseDir, p)
			}
			b, err := os.ReadFile(p)
			if err != nil {
				return nil, fmt.Errorf("failed to read image: %w", err)
			}
			data = b
		}
		return &Image{
			ID:           r.ID,
			PageIndex:    r.Page,
			X:            r.X,
			Y:            r.Y,
			RenderWidth:  r.Width,
			RenderHeight: r.Height,
			Data:         data,
		}, nil
	case KindDrawing:
		points := make([]stroke.Point, len(r.Points))
		for i, p := range r.Points {
			points[i] = stroke.Point{X: p.X, Y: p.Y, Pressure: p.Pressure}
		}
		return &Drawing{
			ID:          r.ID,
			PageIndex:   r.Page,
			Points:      points,
			Color:       color,
			StrokeWidth: r.StrokeWidth,
		}, nil
	default:
		return nil, fmt.Errorf("%w: unknown kind %q", ErrInvalidObject, r.Kind)
	}
}

func newRecord(obj Object) record {
	switch o := obj.(type) {
	case *Text:
		return record{
			Kind:       KindText,
			ID:         o.ID,
			Page:       o.PageIndex,
			X:          o.X,
			Y:          o.Y,
			Text:       o.Text,
			FontSize:   o.FontSize,
			FontFamily: o.FontFamily,
			Color:      o.Color.String(),
			Width:      o.RenderWidth,
		}
	case *Image:
		return record{
			Kind:   KindImage,
			ID:     o.ID,
			Page:   o.PageIndex,
			X:      o.X,
			Y:      o.Y,
			Width:  o.RenderWidth,
			Height: o.RenderHeight,
			Data:   base64.StdEncoding.EncodeToString(o.Data),
		}
	case *Drawing:
		points := make([]pointRecord, len(o.Points))
		for i, p := range o.Points {
			points[i] = pointRecord{X: p.X, Y: p.Y, Pressure: p.Pressure}
		}
		return record{
			Kind:        KindDrawing,
			ID:          o.ID,
			Page:        o.PageIndex,
			Color:       o.Color.String(),
			StrokeWidth: o.StrokeWidth,
			Points:      points,
		}
	default:
		panic(fmt.Sprintf("annotation: unknown object type %T", obj))
	}
}
