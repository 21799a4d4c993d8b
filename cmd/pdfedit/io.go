package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/platinummonkey/pdfedit/internal/engine"
)

// readInput reads a document from path, or stdin for "-"
func readInput(path string) ([]byte, error) {
	if path == "-" {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return nil, fmt.Errorf("failed to read stdin: %w", err)
		}
		return data, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read input: %w", err)
	}
	return data, nil
}

// openSession reads path and starts a session over it
func openSession(path string) (*engine.Session, error) {
	data, err := readInput(path)
	if err != nil {
		return nil, err
	}
	sc, err := sessionConfig()
	if err != nil {
		return nil, err
	}
	return engine.NewSession(data, sc)
}

// baseName is the input's file name without extension, used to name outputs
func baseName(input string) string {
	if input == "-" {
		return "document"
	}
	return strings.TrimSuffix(filepath.Base(input), filepath.Ext(input))
}

// outputPath returns where to write a result for input, or "-" for stdout
func outputPath(cmd *cobra.Command, name string) string {
	if out, _ := cmd.Flags().GetString("out"); out != "" {
		return out
	}
	return filepath.Join(cfg.OutputDir, name)
}

// runTool processes req against the document at input and writes the result
func runTool(cmd *cobra.Command, input string, req engine.Request) error {
	s, err := openSession(input)
	if err != nil {
		return err
	}
	return process(cmd, s, input, req)
}

func process(cmd *cobra.Command, s *engine.Session, input string, req engine.Request) error {
	res, err := s.Process(context.Background(), req)
	if err != nil {
		return err
	}
	return writeResult(cmd, res, outputPath(cmd, res.Filename(baseName(input))))
}

func writeResult(cmd *cobra.Command, res *engine.Result, path string) error {
	for _, w := range res.Warnings {
		log.Warn(w)
	}

	if path == "-" {
		_, err := cmd.OutOrStdout().Write(res.Data)
		return err
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
	}
	if err := os.WriteFile(path, res.Data, 0644); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}

	log.WithFields(
		"tool", res.Tool,
		"output", path,
		"pages", res.PageCount,
		"input_bytes", res.InputSize,
		"output_bytes", res.OutputSize,
		"duration", res.Duration,
	).Info("Wrote result")
	fmt.Fprintln(cmd.ErrOrStderr(), path)
	return nil
}
