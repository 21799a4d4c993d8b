package main

import (
	"errors"
	"fmt"
	"testing"

	"github.com/platinummonkey/pdfedit/internal/pdferr"
)

func TestExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"page out of range", pdferr.PageOutOfRange(4, 3), 2},
		{"wrapped crop", pdferr.NewPageError(1, pdferr.ErrInvalidCropDimensions), 2},
		{"corrupt", fmt.Errorf("load: %w", pdferr.ErrCorruptDocument), 2},
		{"password", pdferr.ErrPasswordProtected, 2},
		{"bake failure", pdferr.Bake("stamp", errors.New("boom")), 1},
		{"other", errors.New("disk full"), 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := exitCode(tt.err); got != tt.want {
				t.Errorf("exitCode() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestBaseName(t *testing.T) {
	tests := map[string]string{
		"-":                 "document",
		"scan.pdf":          "scan",
		"/tmp/a/report.PDF": "report",
		"notes":             "notes",
	}
	for in, want := range tests {
		if got := baseName(in); got != want {
			t.Errorf("baseName(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestCommandsRegistered(t *testing.T) {
	want := []string{"merge", "split", "crop", "rotate", "organize", "watermark", "compress",
		"annotate", "to-images", "run", "render", "info", "watch", "version"}
	for _, name := range want {
		cmd, _, err := rootCmd.Find([]string{name})
		if err != nil || cmd.Name() != name {
			t.Errorf("command %q not registered", name)
		}
	}
}
