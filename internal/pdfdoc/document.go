// Package pdfdoc is the boundary to the PDF object model (pdfcpu). Every
// structural edit the engine makes goes through a Document: page boxes,
// rotation, page collection, overlay stamping and image stream replacement.
//
// Pages are 0-indexed in this package's API and translated to pdfcpu's
// 1-indexed page numbers internally.
package pdfdoc

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"

	"github.com/platinummonkey/pdfedit/internal/logger"
	"github.com/platinummonkey/pdfedit/internal/pdferr"
)

// Document is an editable PDF held in memory. It is not safe for concurrent
// use.
type Document struct {
	ctx *model.Context
	log *logger.Logger
}

// Info summarises a document
type Info struct {
	PageCount int
	Version   string
	Encrypted bool
}

func newConfig() *model.Configuration {
	api.DisableConfigDir()
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	return conf
}

// Load parses PDF bytes. Unreadable input is ErrCorruptDocument, encrypted
// input that cannot be opened is ErrPasswordProtected.
func Load(data []byte) (*Document, error) {
	ctx, err := api.ReadContext(bytes.NewReader(data), newConfig())
	if err != nil {
		return nil, classifyReadError(data, err)
	}
	if err := api.ValidateContext(ctx); err != nil {
		return nil, classifyReadError(data, err)
	}

	log := logger.Get()
	log.WithFields("pages", ctx.PageCount, "bytes", len(data)).Debug("Loaded PDF")

	return &Document{ctx: ctx, log: log}, nil
}

// LoadFile reads and parses a PDF file
func LoadFile(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read PDF: %w", err)
	}
	doc, err := Load(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return doc, nil
}

func classifyReadError(data []byte, err error) error {
	if bytes.Contains(data, []byte("/Encrypt")) {
		return fmt.Errorf("%w: %v", pdferr.ErrPasswordProtected, err)
	}
	return fmt.Errorf("%w: %v", pdferr.ErrCorruptDocument, err)
}

// WithLogger sets the logger used for debug output
func (d *Document) WithLogger(l *logger.Logger) *Document {
	if l != nil {
		d.log = l
	}
	return d
}

// PageCount returns the number of pages
func (d *Document) PageCount() int {
	return d.ctx.PageCount
}

// Info returns basic document facts
func (d *Document) Info() Info {
	version := "unknown"
	if d.ctx.HeaderVersion != nil {
		version = d.ctx.HeaderVersion.String()
	}
	return Info{
		PageCount: d.ctx.PageCount,
		Version:   version,
		Encrypted: d.ctx.Encrypt != nil,
	}
}

func (d *Document) checkPage(i int) error {
	if i < 0 || i >= d.ctx.PageCount {
		return pdferr.PageOutOfRange(i, d.ctx.PageCount)
	}
	return nil
}

// Bytes serializes the document. The document stays usable afterwards.
func (d *Document) Bytes() ([]byte, error) {
	var buf bytes.Buffer
	if err := api.WriteContext(d.ctx, &buf); err != nil {
		return nil, fmt.Errorf("failed to write PDF: %w", err)
	}
	out := buf.Bytes()

	// Writing leaves offsets behind in the context; start over from the output
	ctx, err := api.ReadContext(bytes.NewReader(out), newConfig())
	if err != nil {
		return nil, fmt.Errorf("failed to re-read written PDF: %w", err)
	}
	if err := api.ValidateContext(ctx); err != nil {
		return nil, fmt.Errorf("failed to validate written PDF: %w", err)
	}
	d.ctx = ctx
	return out, nil
}

// WriteTo writes the serialized document to w
func (d *Document) WriteTo(w io.Writer) (int64, error) {
	data, err := d.Bytes()
	if err != nil {
		return 0, err
	}
	n, err := w.Write(data)
	return int64(n), err
}

// transform runs a pdfcpu stream operation over the current bytes and
// replaces the document with its output.
func (d *Document) transform(op func(rs io.ReadSeeker, w io.Writer) error) error {
	in, err := d.Bytes()
	if err != nil {
		return err
	}
	var out bytes.Buffer
	if err := op(bytes.NewReader(in), &out); err != nil {
		return err
	}
	next, err := Load(out.Bytes())
	if err != nil {
		return err
	}
	d.ctx = next.ctx
	return nil
}

// Collect returns a new document made of the given source pages in order.
// Indices may repeat.
func (d *Document) Collect(indices []int) (*Document, error) {
	if len(indices) == 0 {
		return nil, fmt.Errorf("no pages to collect")
	}
	pages := make([]string, len(indices))
	for i, idx := range indices {
		if err := d.checkPage(idx); err != nil {
			return nil, err
		}
		pages[i] = strconv.Itoa(idx + 1)
	}

	in, err := d.Bytes()
	if err != nil {
		return nil, err
	}
	var out bytes.Buffer
	if err := api.Collect(bytes.NewReader(in), &out, pages, newConfig()); err != nil {
		return nil, fmt.Errorf("failed to collect pages: %w", err)
	}

	doc, err := Load(out.Bytes())
	if err != nil {
		return nil, err
	}
	return doc.WithLogger(d.log), nil
}

// SplitPages returns one single-page PDF per page
func (d *Document) SplitPages() ([][]byte, error) {
	out := make([][]byte, 0, d.PageCount())
	for i := 0; i < d.PageCount(); i++ {
		page, err := d.Collect([]int{i})
		if err != nil {
			return nil, fmt.Errorf("failed to extract page %d: %w", i+1, err)
		}
		data, err := page.Bytes()
		if err != nil {
			return nil, err
		}
		out = append(out, data)
	}
	return out, nil
}

// Merge concatenates documents in order
func Merge(docs ...*Document) (*Document, error) {
	if len(docs) == 0 {
		return nil, fmt.Errorf("no documents to merge")
	}
	if len(docs) == 1 {
		data, err := docs[0].Bytes()
		if err != nil {
			return nil, err
		}
		return Load(data)
	}

	readers := make([]io.ReadSeeker, len(docs))
	for i, doc := range docs {
		data, err := doc.Bytes()
		if err != nil {
			return nil, err
		}
		readers[i] = bytes.NewReader(data)
	}

	var out bytes.Buffer
	if err := api.MergeRaw(readers, &out, false, newConfig()); err != nil {
		return nil, fmt.Errorf("failed to merge PDFs: %w", err)
	}
	return Load(out.Bytes())
}
