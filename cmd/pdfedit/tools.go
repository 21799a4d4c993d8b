package main

import (
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/platinummonkey/pdfedit/internal/annotation"
	"github.com/platinummonkey/pdfedit/internal/compress"
	"github.com/platinummonkey/pdfedit/internal/crop"
	"github.com/platinummonkey/pdfedit/internal/engine"
	"github.com/platinummonkey/pdfedit/internal/organize"
	"github.com/platinummonkey/pdfedit/internal/watermark"
)

var mergeCmd = &cobra.Command{
	Use:   "merge <first.pdf> <more.pdf>...",
	Short: "Concatenate documents",
	Long: `Concatenate two or more documents in the order given.

Examples:
  pdfedit merge cover.pdf report.pdf appendix.pdf -o full.pdf`,
	Args: cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		var docs [][]byte
		for _, path := range args[1:] {
			data, err := readInput(path)
			if err != nil {
				return err
			}
			docs = append(docs, data)
		}
		return runTool(cmd, args[0], engine.Request{Tool: engine.ToolMerge, Merge: &engine.MergeParams{Documents: docs}})
	},
}

var splitCmd = &cobra.Command{
	Use:   "split <in.pdf>",
	Short: "Split a document into one PDF per page, zipped",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runTool(cmd, args[0], engine.Request{Tool: engine.ToolSplit})
	},
}

var cropCmd = &cobra.Command{
	Use:   "crop <in.pdf>",
	Short: "Trim page margins",
	Long: `Trim margins from the current page or from every page.

Margins are points, or percent of the page dimension they run along when
--unit percent is given. Margins that leave no area fail without writing.

Examples:
  # Trim 10% top and bottom, 5% left and right, on every page
  pdfedit crop in.pdf --unit percent --top 10 --bottom 10 --left 5 --right 5

  # Trim 36pt off the left of page 3 only
  pdfedit crop in.pdf --mode current --page 3 --left 36`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		f := cmd.Flags()
		unitName, _ := f.GetString("unit")
		unit, err := crop.ParseUnit(unitName)
		if err != nil {
			return err
		}
		mode, _ := f.GetString("mode")
		page, _ := f.GetInt("page")

		var m crop.Margins
		m.Top, _ = f.GetFloat64("top")
		m.Bottom, _ = f.GetFloat64("bottom")
		m.Left, _ = f.GetFloat64("left")
		m.Right, _ = f.GetFloat64("right")
		m.Unit = unit

		return runTool(cmd, args[0], engine.Request{Tool: engine.ToolCrop, Crop: &engine.CropParams{
			Margins:    m,
			Mode:       crop.Mode(mode),
			ActivePage: page - 1,
		}})
	},
}

var rotateCmd = &cobra.Command{
	Use:   "rotate <in.pdf>",
	Short: "Rotate pages by a multiple of 90 degrees",
	Long: `Rotate pages clockwise by a multiple of 90 degrees.

Examples:
  pdfedit rotate in.pdf --degrees 90
  pdfedit rotate in.pdf --degrees -90 --pages 2,4-6`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openSession(args[0])
		if err != nil {
			return err
		}
		degrees, _ := cmd.Flags().GetInt("degrees")
		pages, err := pageFlag(cmd, "pages", s.PageCount())
		if err != nil {
			return err
		}
		return process(cmd, s, args[0], engine.Request{Tool: engine.ToolRotate, Rotate: &engine.RotateParams{Pages: pages, Delta: degrees}})
	},
}

var organizeCmd = &cobra.Command{
	Use:   "organize <in.pdf>",
	Short: "Reorder, duplicate, drop and rotate pages",
	Long: `Build a new document from an ordered list of source pages.

--order lists source pages (1-indexed) in output order; pages left out are
dropped and pages may repeat. --rotate adds a rotation to output positions.

Examples:
  # Last page first, drop page 3
  pdfedit organize in.pdf --order 4,1,2

  # Reverse and turn the first output page upside down
  pdfedit organize in.pdf --order 4-1 --rotate 1=180`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openSession(args[0])
		if err != nil {
			return err
		}

		entries := s.Order()
		if order, _ := cmd.Flags().GetString("order"); order != "" {
			indices, err := organize.ParsePages(order, s.PageCount())
			if err != nil {
				return err
			}
			entries = organize.FromIndices(indices)
		}

		rotations, _ := cmd.Flags().GetStringToInt("rotate")
		for pos, deg := range rotations {
			n, err := strconv.Atoi(pos)
			if err != nil || n < 1 || n > len(entries) {
				return fmt.Errorf("invalid output position %q", pos)
			}
			if entries, err = organize.Rotate(entries, entries[n-1].ID, deg); err != nil {
				return err
			}
		}

		return process(cmd, s, args[0], engine.Request{Tool: engine.ToolOrganize, Organize: &engine.OrganizeParams{Entries: entries}})
	},
}

var watermarkCmd = &cobra.Command{
	Use:   "watermark <in.pdf>",
	Short: "Stamp a text or image watermark",
	Long: `Stamp a text or image watermark once per page or tiled across it.

Examples:
  pdfedit watermark in.pdf --text DRAFT --opacity 0.3 --rotation 45
  pdfedit watermark in.pdf --text CONFIDENTIAL --mode tiled --color "#cc0000"
  pdfedit watermark in.pdf --image logo.png --anchor bottom-right --pages 1`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openSession(args[0])
		if err != nil {
			return err
		}
		spec, err := watermarkSpec(cmd)
		if err != nil {
			return err
		}
		pages, err := pageFlag(cmd, "pages", s.PageCount())
		if err != nil {
			return err
		}
		return process(cmd, s, args[0], engine.Request{Tool: engine.ToolWatermark, Watermark: &engine.WatermarkParams{Spec: spec, Pages: pages}})
	},
}

func watermarkSpec(cmd *cobra.Command) (watermark.Spec, error) {
	f := cmd.Flags()
	text, _ := f.GetString("text")
	imagePath, _ := f.GetString("image")
	colorHex, _ := f.GetString("color")
	mode, _ := f.GetString("mode")
	anchor, _ := f.GetString("anchor")

	spec := watermark.Spec{Kind: watermark.KindText, Text: text, Mode: watermark.Mode(mode), Anchor: watermark.Anchor(anchor)}
	spec.FontSize, _ = f.GetFloat64("font-size")
	spec.Opacity, _ = f.GetFloat64("opacity")
	spec.Rotation, _ = f.GetFloat64("rotation")

	if imagePath != "" {
		data, err := os.ReadFile(imagePath)
		if err != nil {
			return watermark.Spec{}, fmt.Errorf("failed to read watermark image: %w", err)
		}
		spec.Kind = watermark.KindImage
		spec.Image = data
	}
	c, err := annotation.ParseColor(colorHex)
	if err != nil {
		return watermark.Spec{}, err
	}
	spec.Color = c

	if err := spec.Validate(); err != nil {
		return watermark.Spec{}, err
	}
	return spec, nil
}

var compressCmd = &cobra.Command{
	Use:   "compress <in.pdf>",
	Short: "Recompress embedded images",
	Long: `Downscale and re-encode embedded raster images. Images shared across pages
are processed once. Images that cannot be processed are left as they are.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		name := cfg.CompressLevel
		if cmd.Flags().Changed("level") {
			name, _ = cmd.Flags().GetString("level")
		}
		level, err := compress.ParseLevel(name)
		if err != nil {
			return err
		}
		return runTool(cmd, args[0], engine.Request{Tool: engine.ToolCompress, Compress: &engine.CompressParams{Level: level}})
	},
}

var annotateCmd = &cobra.Command{
	Use:   "annotate <in.pdf> <annotations.yaml>",
	Short: "Bake text, image and freehand annotations into the document",
	Long: `Bake the annotations of an annotation file into the page content.

Object coordinates are render pixels at the file's render_scale.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		set, err := annotation.LoadFile(args[1])
		if err != nil {
			return err
		}
		s, err := openSession(args[0])
		if err != nil {
			return err
		}
		if set.RenderScale > 0 {
			if err := s.SetRenderScale(set.RenderScale); err != nil {
				return err
			}
		}
		for _, obj := range set.Objects {
			if _, err := s.Store().Add(obj); err != nil {
				return err
			}
		}
		return process(cmd, s, args[0], engine.Request{Tool: engine.ToolAnnotate})
	},
}

var toImagesCmd = &cobra.Command{
	Use:   "to-images <in.pdf>",
	Short: "Render every page to PNG, zipped",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		scale, _ := cmd.Flags().GetFloat64("scale")
		return runTool(cmd, args[0], engine.Request{Tool: engine.ToolToImages, ToImages: &engine.ToImagesParams{Scale: scale}})
	},
}

var runCmd = &cobra.Command{
	Use:   "run <in.pdf> <request.yaml>",
	Short: "Run the tool described by a request file",
	Long: `Run one tool with the parameters of a YAML request file. Page numbers in
the file are 1-indexed and paths are relative to the file.

Example request:
  tool: watermark
  watermark:
    text: DRAFT
    font_size: 48
    opacity: 0.25
    rotation: 45
    mode: tiled`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		req, err := engine.LoadRequest(args[1])
		if err != nil {
			return err
		}
		return runTool(cmd, args[0], req)
	},
}

// pageFlag parses a page list flag; unset means every page
func pageFlag(cmd *cobra.Command, name string, pageCount int) ([]int, error) {
	s, _ := cmd.Flags().GetString(name)
	if s == "" {
		return nil, nil
	}
	return organize.ParsePages(s, pageCount)
}

func init() {
	rootCmd.AddCommand(mergeCmd, splitCmd, cropCmd, rotateCmd, organizeCmd,
		watermarkCmd, compressCmd, annotateCmd, toImagesCmd, runCmd)

	cropCmd.Flags().Float64("top", 0, "top margin")
	cropCmd.Flags().Float64("bottom", 0, "bottom margin")
	cropCmd.Flags().Float64("left", 0, "left margin")
	cropCmd.Flags().Float64("right", 0, "right margin")
	cropCmd.Flags().String("unit", "pt", "margin unit (pt, percent)")
	cropCmd.Flags().String("mode", string(crop.ModeAll), "pages to crop (current, all)")
	cropCmd.Flags().Int("page", 1, "current page for --mode current")

	rotateCmd.Flags().Int("degrees", 90, "clockwise rotation, a multiple of 90")
	rotateCmd.Flags().String("pages", "", "pages to rotate, e.g. 1,3-5 (default all)")

	organizeCmd.Flags().String("order", "", "source pages in output order, e.g. 3,1-2")
	organizeCmd.Flags().StringToInt("rotate", nil, "rotation per output position, e.g. 1=90,3=-90")

	watermarkCmd.Flags().String("text", "", "watermark text")
	watermarkCmd.Flags().String("image", "", "PNG or JPEG watermark image")
	watermarkCmd.Flags().Float64("font-size", 48, "text size in points")
	watermarkCmd.Flags().String("color", "#808080", "text colour")
	watermarkCmd.Flags().Float64("opacity", 0.3, "opacity between 0 and 1")
	watermarkCmd.Flags().Float64("rotation", 0, "counterclockwise rotation in degrees")
	watermarkCmd.Flags().String("mode", string(watermark.ModeSingle), "placement (single, tiled)")
	watermarkCmd.Flags().String("anchor", string(watermark.AnchorCenter), "single placement anchor (center, top-left, top-right, bottom-left, bottom-right)")
	watermarkCmd.Flags().String("pages", "", "pages to stamp, e.g. 1,3-5 (default all)")
	watermarkCmd.MarkFlagsMutuallyExclusive("text", "image")
	watermarkCmd.MarkFlagsOneRequired("text", "image")

	compressCmd.Flags().String("level", string(compress.LevelMedium), "compression level (low, medium, high)")

	toImagesCmd.Flags().Float64("scale", 2, "pixels per point")
}
