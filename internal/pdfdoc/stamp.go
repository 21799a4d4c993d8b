package pdfdoc

import (
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"
)

// Stamp draws the first page of overlay on top of page i. The overlay page
// must have the unrotated crop box size of page i; it is centred at scale 1
// so its coordinates line up with the crop box. /Rotate is left as it was.
func (d *Document) Stamp(i int, overlay []byte, opacity float64) error {
	info, err := d.Page(i)
	if err != nil {
		return err
	}
	if opacity <= 0 || opacity > 1 {
		return fmt.Errorf("opacity %.2f out of range (0, 1]", opacity)
	}

	f, err := os.CreateTemp("", "pdfedit-overlay-*.pdf")
	if err != nil {
		return fmt.Errorf("failed to create overlay file: %w", err)
	}
	defer os.Remove(f.Name())

	if _, err := f.Write(overlay); err != nil {
		f.Close()
		return fmt.Errorf("failed to write overlay file: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to write overlay file: %w", err)
	}

	desc := fmt.Sprintf("pos:c, scale:1 rel, rotation:0, opacity:%.2f", opacity)
	wm, err := api.PDFWatermark(f.Name(), desc, true, false, types.POINTS)
	if err != nil {
		return fmt.Errorf("failed to prepare overlay: %w", err)
	}

	// pdfcpu folds /Rotate into the boxes of a rotated page and places the
	// overlay in the rotated frame. The overlay is drawn unrotated, so the
	// page is stamped at 0 and its rotation put back afterwards.
	if info.Rotation != 0 {
		if err := d.SetRotation(i, 0); err != nil {
			return err
		}
	}

	pages := []string{strconv.Itoa(i + 1)}
	err = d.transform(func(rs io.ReadSeeker, w io.Writer) error {
		return api.AddWatermarks(rs, w, pages, wm, newConfig())
	})
	if info.Rotation != 0 {
		if rerr := d.SetRotation(i, info.Rotation); rerr != nil && err == nil {
			err = rerr
		}
	}
	if err != nil {
		return fmt.Errorf("failed to stamp page %d: %w", i+1, err)
	}

	d.log.WithPage(i).Debug("Stamped overlay")
	return nil
}
