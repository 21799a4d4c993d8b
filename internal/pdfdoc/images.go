package pdfdoc

import (
	"fmt"
	"regexp"
	"slices"

	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"

	"github.com/platinummonkey/pdfedit/internal/compress"
)

var _ compress.Source = (*Document)(nil)

// doOp matches the operand of a Do operator
var doOp = regexp.MustCompile(`/([^\s/\[\]()<>{}%]+)\s+Do\b`)

// invoked returns the XObject names painted by page i's content. Resources
// may be shared between pages, so a name listed there is not enough.
func (d *Document) invoked(i int) (map[string]bool, error) {
	content, err := d.Content(i)
	if err != nil {
		return nil, err
	}
	names := make(map[string]bool)
	for _, m := range doOp.FindAllSubmatch(content, -1) {
		name := string(m[1])
		names[name] = true
		if dec, err := types.DecodeName(name); err == nil {
			names[dec] = true
		}
	}
	return names, nil
}

// Images lists the image XObjects painted by each page's content, in page
// order and by resource name within a page. A shared image appears once per
// page painting it, with the same Key.
func (d *Document) Images() ([]compress.ImageRef, error) {
	var refs []compress.ImageRef

	for i := 0; i < d.PageCount(); i++ {
		_, inh, err := d.pageDict(i)
		if err != nil {
			return nil, err
		}
		if inh.Resources == nil {
			continue
		}
		used, err := d.invoked(i)
		if err != nil {
			return nil, err
		}
		if len(used) == 0 {
			continue
		}

		obj, found := inh.Resources.Find("XObject")
		if !found {
			continue
		}
		xobjects, err := d.ctx.DereferenceDict(obj)
		if err != nil {
			return nil, fmt.Errorf("failed to read XObjects of page %d: %w", i+1, err)
		}

		names := make([]string, 0, len(xobjects))
		for name := range xobjects {
			names = append(names, name)
		}
		slices.Sort(names)

		for _, name := range names {
			if !used[name] {
				continue
			}
			ir, ok := xobjects[name].(types.IndirectRef)
			if !ok {
				continue
			}
			sd, _, err := d.ctx.DereferenceStreamDict(ir)
			if err != nil || sd == nil {
				continue
			}
			if st := sd.NameEntry("Subtype"); st == nil || *st != "Image" {
				continue
			}

			refs = append(refs, compress.ImageRef{
				Page:   i,
				Name:   name,
				Key:    ir.ObjectNumber.Value(),
				Width:  intEntry(sd.Dict, "Width"),
				Height: intEntry(sd.Dict, "Height"),
				Filter: filterName(sd),
				Length: len(sd.Raw),
			})
		}
	}
	return refs, nil
}

// ImageData returns the payload of image object key. DCT images return their
// JPEG bytes untouched, Flate images their decoded samples.
func (d *Document) ImageData(key int) (*compress.Stream, error) {
	sd, err := d.imageStream(key)
	if err != nil {
		return nil, err
	}

	s := &compress.Stream{
		Filter:           filterName(sd),
		Width:            intEntry(sd.Dict, "Width"),
		Height:           intEntry(sd.Dict, "Height"),
		BitsPerComponent: intEntry(sd.Dict, "BitsPerComponent"),
	}
	if cs := sd.NameEntry("ColorSpace"); cs != nil {
		s.ColorSpace = *cs
	}

	switch s.Filter {
	case compress.FilterDCT:
		s.Data = sd.Raw
	case compress.FilterFlate:
		if err := sd.Decode(); err != nil {
			return nil, fmt.Errorf("failed to inflate image %d: %w", key, err)
		}
		s.Data = sd.Content
	default:
		return nil, fmt.Errorf("%w: filter %q", compress.ErrUnsupportedStream, s.Filter)
	}
	return s, nil
}

// Replace swaps the payload of image object key. Every page referencing the
// object picks up the new stream.
func (d *Document) Replace(key int, s *compress.Stream) (int, error) {
	entry, ok := d.ctx.Table[key]
	if !ok || entry == nil {
		return 0, fmt.Errorf("image object %d not found", key)
	}
	sd, ok := entry.Object.(types.StreamDict)
	if !ok {
		return 0, fmt.Errorf("object %d is not a stream", key)
	}

	sd.Delete("DecodeParms")
	sd.FilterPipeline = []types.PDFFilter{{Name: s.Filter}}
	sd.Update("Filter", types.Name(s.Filter))

	switch s.Filter {
	case compress.FilterDCT:
		sd.Raw = s.Data
		sd.Content = nil
	case compress.FilterFlate:
		sd.Content = s.Data
		if err := sd.Encode(); err != nil {
			return 0, fmt.Errorf("failed to deflate image %d: %w", key, err)
		}
	default:
		return 0, fmt.Errorf("%w: filter %q", compress.ErrUnsupportedStream, s.Filter)
	}

	n := int64(len(sd.Raw))
	sd.StreamLength = &n
	sd.Update("Length", types.Integer(n))
	sd.Update("Width", types.Integer(s.Width))
	sd.Update("Height", types.Integer(s.Height))
	sd.Update("ColorSpace", types.Name(s.ColorSpace))
	sd.Update("BitsPerComponent", types.Integer(s.BitsPerComponent))

	entry.Object = sd
	return int(n), nil
}

func (d *Document) imageStream(key int) (*types.StreamDict, error) {
	entry, ok := d.ctx.Table[key]
	if !ok || entry == nil {
		return nil, fmt.Errorf("image object %d not found", key)
	}
	sd, ok := entry.Object.(types.StreamDict)
	if !ok {
		return nil, fmt.Errorf("object %d is not a stream", key)
	}
	return &sd, nil
}

// filterName returns the only filter of a stream. Chained filters are
// reported joined so callers treat them as unsupported.
func filterName(sd *types.StreamDict) string {
	switch len(sd.FilterPipeline) {
	case 0:
		return ""
	case 1:
		return sd.FilterPipeline[0].Name
	}
	name := sd.FilterPipeline[0].Name
	for _, f := range sd.FilterPipeline[1:] {
		name += "+" + f.Name
	}
	return name
}

func intEntry(d types.Dict, key string) int {
	if v := d.IntEntry(key); v != nil {
		return *v
	}
	return 0
}
