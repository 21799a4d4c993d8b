package main

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/platinummonkey/pdfedit/internal/engine"
	"github.com/platinummonkey/pdfedit/internal/pdfdoc"
	"github.com/platinummonkey/pdfedit/internal/preview"
)

var renderCmd = &cobra.Command{
	Use:   "render <in.pdf>",
	Short: "Render one page to PNG",
	Long: `Render one page to PNG, either at a fixed scale or fitted to the
configured viewport (viewport-width x viewport-height).

Examples:
  pdfedit render in.pdf --page 2 --scale 2 -o page2.png
  pdfedit render in.pdf --fit`,
	Args: cobra.ExactArgs(1),
	RunE: runRender,
}

var infoCmd = &cobra.Command{
	Use:   "info <in.pdf>",
	Short: "Show document and page information",
	Args:  cobra.ExactArgs(1),
	RunE:  runInfo,
}

func init() {
	rootCmd.AddCommand(renderCmd, infoCmd)

	renderCmd.Flags().Int("page", 1, "page to render")
	renderCmd.Flags().Float64("scale", 0, "pixels per point (default render-scale)")
	renderCmd.Flags().Bool("fit", false, "fit the page to the viewport")
	renderCmd.Flags().Int("viewport-width", 1024, "viewport width in pixels for --fit")
	renderCmd.Flags().Int("viewport-height", 1366, "viewport height in pixels for --fit")
	renderCmd.MarkFlagsMutuallyExclusive("scale", "fit")

	infoCmd.Flags().Bool("json", false, "output in JSON format")
}

func runRender(cmd *cobra.Command, args []string) error {
	data, err := readInput(args[0])
	if err != nil {
		return err
	}
	r, err := newRenderer()
	if err != nil {
		return err
	}

	f := cmd.Flags()
	page, _ := f.GetInt("page")
	fit, _ := f.GetBool("fit")
	scale, _ := f.GetFloat64("scale")
	if scale == 0 {
		scale = cfg.RenderScale
	}

	var pv *preview.Preview
	if fit {
		pv, err = r.RenderFit(data, page-1, float64(cfg.ViewportWidth), float64(cfg.ViewportHeight))
	} else {
		pv, err = r.RenderPage(data, page-1, scale)
	}
	if err != nil {
		return err
	}

	png, err := preview.EncodePNG(pv.Image)
	if err != nil {
		return err
	}
	name := fmt.Sprintf("%s-page-%d.png", baseName(args[0]), page)
	log.WithFields("scale", pv.Transform.Scale, "size", pv.Image.Bounds().Size()).Debug("Rendered page")
	return writeResult(cmd, &engine.Result{Data: png, PageCount: 1, OutputSize: int64(len(png))}, outputPath(cmd, name))
}

type pageReport struct {
	Page     int     `json:"page"`
	Width    float64 `json:"width"`
	Height   float64 `json:"height"`
	Rotation int     `json:"rotation"`
	Images   int     `json:"images"`
}

type infoReport struct {
	File      string       `json:"file"`
	Version   string       `json:"version"`
	PageCount int          `json:"page_count"`
	Encrypted bool         `json:"encrypted"`
	Images    int          `json:"images"`
	Pages     []pageReport `json:"pages"`
}

func runInfo(cmd *cobra.Command, args []string) error {
	data, err := readInput(args[0])
	if err != nil {
		return err
	}
	doc, err := pdfdoc.Load(data)
	if err != nil {
		return err
	}
	doc.WithLogger(log)

	pages, err := doc.Pages()
	if err != nil {
		return err
	}
	images, err := doc.Images()
	if err != nil {
		return err
	}

	info := doc.Info()
	report := infoReport{
		File:      args[0],
		Version:   info.Version,
		PageCount: info.PageCount,
		Encrypted: info.Encrypted,
	}
	perPage := make(map[int]int)
	distinct := make(map[int]bool)
	for _, img := range images {
		perPage[img.Page]++
		distinct[img.Key] = true
	}
	report.Images = len(distinct)
	for i, p := range pages {
		report.Pages = append(report.Pages, pageReport{
			Page: i + 1, Width: p.Width, Height: p.Height, Rotation: p.Rotation, Images: perPage[i],
		})
	}

	out := cmd.OutOrStdout()
	if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	}

	fmt.Fprintf(out, "File:      %s\n", report.File)
	fmt.Fprintf(out, "Version:   %s\n", report.Version)
	fmt.Fprintf(out, "Pages:     %d\n", report.PageCount)
	fmt.Fprintf(out, "Encrypted: %t\n", report.Encrypted)
	fmt.Fprintf(out, "Images:    %d\n\n", report.Images)

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "PAGE\tSIZE (pt)\tROTATION\tIMAGES")
	for _, p := range report.Pages {
		fmt.Fprintf(tw, "%d\t%.1f x %.1f\t%d\t%d\n", p.Page, p.Width, p.Height, p.Rotation, p.Images)
	}
	return tw.Flush()
}
