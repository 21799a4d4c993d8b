// Package fonts names the embedded Go fonts text can be set in. Metrics and
// the overlay both take their bytes from here, so measured and drawn text
// always agree.
package fonts

import (
	"errors"
	"fmt"
	"strings"

	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/goitalic"
	"golang.org/x/image/font/gofont/gomono"
	"golang.org/x/image/font/gofont/goregular"
)

// Font is an embedded font family
type Font string

const (
	Sans   Font = "sans"
	Bold   Font = "bold"
	Italic Font = "italic"
	Mono   Font = "mono"
)

// ErrUnknownFont is returned for names that map to no embedded font
var ErrUnknownFont = errors.New("unknown font family")

// Parse maps a family name to an embedded font. Empty means Sans.
func Parse(name string) (Font, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "sans", "sans-serif", "regular":
		return Sans, nil
	case "bold":
		return Bold, nil
	case "italic":
		return Italic, nil
	case "mono", "monospace":
		return Mono, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownFont, name)
	}
}

// TTF returns the TrueType data of f
func (f Font) TTF() []byte {
	switch f {
	case Bold:
		return gobold.TTF
	case Italic:
		return goitalic.TTF
	case Mono:
		return gomono.TTF
	default:
		return goregular.TTF
	}
}
