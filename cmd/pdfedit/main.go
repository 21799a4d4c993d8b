// Command pdfedit edits and transforms PDF documents.
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/platinummonkey/pdfedit/internal/pdferr"
)

func main() {
	if err := Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		if log != nil {
			_ = log.Sync()
		}
		os.Exit(exitCode(err))
	}
	if log != nil {
		_ = log.Sync()
	}
}

// exitCode is 2 for rejected input and 1 for everything else
func exitCode(err error) int {
	if pdferr.IsValidation(err) ||
		errors.Is(err, pdferr.ErrCorruptDocument) ||
		errors.Is(err, pdferr.ErrPasswordProtected) {
		return 2
	}
	return 1
}
