package pdfdoc

import (
	"errors"
	"fmt"

	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"

	"github.com/platinummonkey/pdfedit/internal/geometry"
	"github.com/platinummonkey/pdfedit/internal/organize"
)

// PageInfo describes a page's geometry in PDF points
type PageInfo struct {
	// Width and Height are the visible (crop box) size
	Width  float64
	Height float64

	// Rotation is the /Rotate value normalized to 0, 90, 180 or 270
	Rotation int

	MediaBox geometry.Rect
	CropBox  geometry.Rect
}

func toRect(r *types.Rectangle) geometry.Rect {
	return geometry.Rect{X: r.LL.X, Y: r.LL.Y, Width: r.Width(), Height: r.Height()}
}

func (d *Document) pageDict(i int) (types.Dict, *model.InheritedPageAttrs, error) {
	if err := d.checkPage(i); err != nil {
		return nil, nil, err
	}
	dict, _, inh, err := d.ctx.PageDict(i+1, false)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get page %d: %w", i+1, err)
	}
	if dict == nil || inh == nil || inh.MediaBox == nil {
		return nil, nil, fmt.Errorf("page %d has no media box", i+1)
	}
	return dict, inh, nil
}

// Page returns the geometry of page i
func (d *Document) Page(i int) (PageInfo, error) {
	_, inh, err := d.pageDict(i)
	if err != nil {
		return PageInfo{}, err
	}

	media := toRect(inh.MediaBox)
	crop := media
	if inh.CropBox != nil {
		if c := toRect(inh.CropBox).Intersect(media); !c.Empty() {
			crop = c
		}
	}

	return PageInfo{
		Width:    crop.Width,
		Height:   crop.Height,
		Rotation: organize.Normalize(inh.Rotate),
		MediaBox: media,
		CropBox:  crop,
	}, nil
}

// Pages returns the geometry of every page
func (d *Document) Pages() ([]PageInfo, error) {
	out := make([]PageInfo, d.PageCount())
	for i := range out {
		p, err := d.Page(i)
		if err != nil {
			return nil, err
		}
		out[i] = p
	}
	return out, nil
}

// SetCropBox sets the visible area of page i. box is relative to the page's
// current visible area and is clipped to the media box.
func (d *Document) SetCropBox(i int, box geometry.Rect) error {
	dict, _, err := d.pageDict(i)
	if err != nil {
		return err
	}
	info, err := d.Page(i)
	if err != nil {
		return err
	}

	abs := box.Offset(info.CropBox.X, info.CropBox.Y).Intersect(info.MediaBox)
	if abs.Empty() {
		return fmt.Errorf("crop box %s lies outside page %d", box, i+1)
	}

	r := types.NewRectangle(abs.X, abs.Y, abs.Right(), abs.Top())
	dict.Update("CropBox", r.Array())

	d.log.WithPage(i).Debugf("Set crop box %s", abs)
	return nil
}

// SetRotation sets page i's absolute /Rotate value
func (d *Document) SetRotation(i, degrees int) error {
	if degrees%90 != 0 {
		return fmt.Errorf("rotation %d is not a multiple of 90", degrees)
	}
	dict, _, err := d.pageDict(i)
	if err != nil {
		return err
	}
	dict.Update("Rotate", types.Integer(organize.Normalize(degrees)))
	return nil
}

// Content returns the decoded content stream of page i. A page without
// content returns nil.
func (d *Document) Content(i int) ([]byte, error) {
	dict, _, err := d.pageDict(i)
	if err != nil {
		return nil, err
	}
	bb, err := d.ctx.PageContent(dict, i+1)
	if errors.Is(err, model.ErrNoContent) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read content of page %d: %w", i+1, err)
	}
	return bb, nil
}
