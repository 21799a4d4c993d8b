package engine

import (
	"fmt"
	"time"

	"github.com/platinummonkey/pdfedit/internal/compress"
	"github.com/platinummonkey/pdfedit/internal/crop"
	"github.com/platinummonkey/pdfedit/internal/organize"
	"github.com/platinummonkey/pdfedit/internal/watermark"
)

// Tool names one edit or transform operation
type Tool string

const (
	ToolMerge     Tool = "merge"
	ToolSplit     Tool = "split"
	ToolCrop      Tool = "crop"
	ToolRotate    Tool = "rotate"
	ToolOrganize  Tool = "organize"
	ToolWatermark Tool = "watermark"
	ToolCompress  Tool = "compress"
	ToolAnnotate  Tool = "annotate"
	ToolToImages  Tool = "to-images"
)

// Tools lists every tool in menu order
var Tools = []Tool{
	ToolMerge, ToolSplit, ToolCrop, ToolRotate, ToolOrganize,
	ToolWatermark, ToolCompress, ToolAnnotate, ToolToImages,
}

// ParseTool validates a tool name
func ParseTool(s string) (Tool, error) {
	for _, t := range Tools {
		if string(t) == s {
			return t, nil
		}
	}
	return "", fmt.Errorf("unknown tool %q", s)
}

// Format returns the kind of output the tool produces
func (t Tool) Format() Format {
	if t == ToolSplit || t == ToolToImages {
		return FormatZip
	}
	return FormatPDF
}

// Filename returns the output name for base processed by t
func (t Tool) Filename(base string) string {
	return fmt.Sprintf("%s-%s.%s", base, t, t.Format())
}

// Request selects a tool and carries its parameters. Only the field for
// Tool is read; split and annotate take none.
type Request struct {
	Tool Tool

	Merge     *MergeParams
	Crop      *CropParams
	Rotate    *RotateParams
	Organize  *OrganizeParams
	Watermark *WatermarkParams
	Compress  *CompressParams
	ToImages  *ToImagesParams
}

// MergeParams lists the documents appended after the session's document
type MergeParams struct {
	Documents [][]byte
}

// CropParams are document-space crop margins
type CropParams struct {
	Margins crop.Margins
	Mode    crop.Mode

	// ActivePage is the 0-indexed page cropped in crop.ModeCurrent
	ActivePage int
}

// RotateParams adds Delta degrees to the selected pages
type RotateParams struct {
	// Pages are 0-indexed; empty selects every page
	Pages []int

	// Delta must be a multiple of 90
	Delta int
}

// OrganizeParams is the output page order. Nil Entries use the session's
// working order.
type OrganizeParams struct {
	Entries []organize.Entry
}

// WatermarkParams stamps Spec onto the selected pages
type WatermarkParams struct {
	Spec watermark.Spec

	// Pages are 0-indexed; empty selects every page
	Pages []int
}

// CompressParams selects the recompression level
type CompressParams struct {
	Level compress.Level
}

// ToImagesParams sets the rasterization scale in pixels per point
type ToImagesParams struct {
	Scale float64
}

// Format is the kind of bytes a Result holds
type Format string

const (
	FormatPDF Format = "pdf"
	FormatZip Format = "zip"
)

// Result represents the output of one Process call
type Result struct {
	Tool Tool

	// Data is the produced document or archive
	Data   []byte
	Format Format

	// PageCount is the number of pages in the output PDF, or entries in the archive
	PageCount int

	InputSize  int64
	OutputSize int64

	// Duration is the time taken by the tool
	Duration time.Duration

	// Warnings collects non-fatal problems, e.g. images left uncompressed
	Warnings []string

	// Compress holds the pipeline statistics for ToolCompress
	Compress *compress.Stats
}

// Filename returns a download name for the result derived from base
func (r *Result) Filename(base string) string {
	return r.Tool.Filename(base)
}
