package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/platinummonkey/pdfedit/internal/config"
	"github.com/platinummonkey/pdfedit/internal/engine"
	"github.com/platinummonkey/pdfedit/internal/logger"
	"github.com/platinummonkey/pdfedit/internal/preview"
)

var (
	cfgFile string

	// set by PersistentPreRunE
	cfg *config.Config
	log *logger.Logger
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "pdfedit",
	Short: "Edit and transform PDF documents",
	Long: `pdfedit applies edits to PDF documents and writes a new file.

Tools:
  - Merge several documents, or split one into single pages
  - Crop margins, rotate, reorder and remove pages
  - Stamp text or image watermarks
  - Recompress embedded images
  - Bake text, image and freehand annotations into the page
  - Render pages to PNG

The input document is never modified.`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: setup,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "config file (default is $HOME/.pdfedit.yaml)")
	flags.String("output-dir", ".", "directory results are written to")
	flags.StringP("out", "o", "", "output file ('-' for stdout); overrides --output-dir")
	flags.String("log-level", "info", "log level (debug, info, warn, error)")
	flags.String("log-format", "console", "log format (console, json)")
	flags.Float64("render-scale", 1.5, "pixels per point annotations are captured at")
	flags.String("unidoc-api-key", "", "unidoc metered key used for rendering")
}

// setup loads configuration and the logger for every command
func setup(cmd *cobra.Command, _ []string) error {
	var err error
	cfg, err = config.Load(cfgFile, cmd.Flags())
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	if err := logger.Init(cfg.LoggerConfig()); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	log = logger.Get()
	log.Debug(cfg.String())
	return nil
}

// sessionConfig returns the engine settings with a renderer for rasterizing tools
func sessionConfig() (*engine.Config, error) {
	sc := cfg.SessionConfig(log)
	r, err := newRenderer()
	if err != nil {
		return nil, err
	}
	sc.Renderer = r
	return sc, nil
}

func newRenderer() (*preview.Renderer, error) {
	return preview.NewRenderer(&preview.Config{MeteredKey: cfg.UnidocAPIKey, Logger: log})
}
