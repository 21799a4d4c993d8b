// Package testpdf builds small PDFs for tests.
package testpdf

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"testing"

	"github.com/signintech/gopdf"

	"github.com/platinummonkey/pdfedit/internal/fonts"
)

// Page describes one fixture page
type Page struct {
	Width  float64
	Height float64

	// Label is drawn near the top-left corner when set
	Label string

	// JPEG is drawn full width across the top half when set
	JPEG []byte
}

// Letter returns a US Letter page
func Letter() Page { return Page{Width: 612, Height: 792} }

// A4 returns an A4 page
func A4() Page { return Page{Width: 595, Height: 842} }

// Build renders pages into a PDF
func Build(pages ...Page) ([]byte, error) {
	if len(pages) == 0 {
		return nil, fmt.Errorf("no pages")
	}

	pdf := gopdf.GoPdf{}
	pdf.Start(gopdf.Config{
		PageSize: gopdf.Rect{W: pages[0].Width, H: pages[0].Height},
	})
	if err := pdf.AddTTFFontData(string(fonts.Sans), fonts.Sans.TTF()); err != nil {
		return nil, fmt.Errorf("failed to add font: %w", err)
	}

	for i, p := range pages {
		pdf.AddPageWithOption(gopdf.PageOption{PageSize: &gopdf.Rect{W: p.Width, H: p.Height}})

		if p.Label != "" {
			if err := pdf.SetFont(string(fonts.Sans), "", 14); err != nil {
				return nil, err
			}
			pdf.SetXY(36, 50)
			if err := pdf.Text(p.Label); err != nil {
				return nil, fmt.Errorf("page %d: %w", i+1, err)
			}
		}

		if p.JPEG != nil {
			holder, err := gopdf.ImageHolderByBytes(p.JPEG)
			if err != nil {
				return nil, fmt.Errorf("page %d: %w", i+1, err)
			}
			rect := &gopdf.Rect{W: p.Width, H: p.Height / 2}
			if err := pdf.ImageByHolder(holder, 0, 0, rect); err != nil {
				return nil, fmt.Errorf("page %d: %w", i+1, err)
			}
		}
	}

	var buf bytes.Buffer
	if err := pdf.Write(&buf); err != nil {
		return nil, fmt.Errorf("failed to write PDF: %w", err)
	}
	return buf.Bytes(), nil
}

// MustBuild is Build for tests
func MustBuild(tb testing.TB, pages ...Page) []byte {
	tb.Helper()
	data, err := Build(pages...)
	if err != nil {
		tb.Fatalf("testpdf.Build() error = %v", err)
	}
	return data
}

// Gradient returns a w x h RGB test image
func Gradient(w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x * 255 / w), G: uint8(y * 255 / h), B: uint8((x + y) % 256), A: 255})
		}
	}
	return img
}

// JPEG encodes a gradient of the given size
func JPEG(tb testing.TB, w, h, quality int) []byte {
	tb.Helper()
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, Gradient(w, h), &jpeg.Options{Quality: quality}); err != nil {
		tb.Fatal(err)
	}
	return buf.Bytes()
}
