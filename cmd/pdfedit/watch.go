package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/platinummonkey/pdfedit/internal/compress"
	"github.com/platinummonkey/pdfedit/internal/engine"
	"github.com/platinummonkey/pdfedit/internal/watch"
)

// watchCmd represents the watch command
var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Run a tool on every PDF dropped into a folder",
	Long: `Watch an input directory and run one tool over each PDF that appears or
changes in it. Results are written to the output directory as
<name>-<tool>.pdf (or .zip for split and to-images).

Files already present at startup are processed when their result is missing
or older than the input. The watcher stops on SIGTERM/SIGINT after in-flight
files finish.

Examples:
  # Compress everything dropped into ~/Inbox
  pdfedit watch --watch-input-dir ~/Inbox --watch-output-dir ~/Outbox

  # Run a request file with a status endpoint
  pdfedit watch --watch-input-dir in --watch-output-dir out \
    --watch-request stamp.yaml --watch-health-addr :8080`,
	Args: cobra.NoArgs,
	RunE: runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)

	flags := watchCmd.Flags()
	flags.String("watch-input-dir", "", "directory to watch for PDFs")
	flags.String("watch-output-dir", "", "directory results are written to (default output-dir)")
	flags.String("watch-tool", "compress", "tool to run (any but merge)")
	flags.String("watch-request", "", "request file to run instead of --watch-tool")
	flags.Duration("watch-debounce", watch.DefaultDebounce, "quiet period before a file is processed")
	flags.Int("watch-workers", 0, "files processed in parallel (default GOMAXPROCS)")
	flags.String("watch-health-addr", "", "status HTTP address (e.g., :8080)")
	flags.String("watch-pid-file", "", "PID file path")
}

// watchRequest builds the request run against every file
func watchRequest() (engine.Request, error) {
	if cfg.Watch.Request != "" {
		return engine.LoadRequest(cfg.Watch.Request)
	}
	req, err := engine.ParseRequest([]byte("tool: "+cfg.Watch.Tool), "")
	if err != nil {
		return engine.Request{}, err
	}
	if req.Compress != nil {
		if req.Compress.Level, err = compress.ParseLevel(cfg.CompressLevel); err != nil {
			return engine.Request{}, err
		}
	}
	return req, nil
}

func runWatch(_ *cobra.Command, _ []string) error {
	if err := cfg.ValidateWatch(); err != nil {
		return err
	}
	req, err := watchRequest()
	if err != nil {
		return err
	}
	sc, err := sessionConfig()
	if err != nil {
		return err
	}

	w, err := watch.New(&watch.Config{
		InputDir:        cfg.Watch.InputDir,
		OutputDir:       cfg.Watch.OutputDir,
		Request:         req,
		Session:         sc,
		Debounce:        cfg.Watch.Debounce,
		Workers:         cfg.Watch.Workers,
		HealthCheckAddr: cfg.Watch.HealthAddr,
		PIDFile:         cfg.Watch.PIDFile,
		Logger:          log,
	})
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}

	log.WithFields("input", cfg.Watch.InputDir, "output", cfg.Watch.OutputDir, "tool", req.Tool).
		Info("Watching for documents")
	if err := w.Run(context.Background()); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
