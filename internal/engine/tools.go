package engine

import (
	"context"
	"fmt"

	"github.com/platinummonkey/pdfedit/internal/bundle"
	"github.com/platinummonkey/pdfedit/internal/compress"
	"github.com/platinummonkey/pdfedit/internal/crop"
	"github.com/platinummonkey/pdfedit/internal/logger"
	"github.com/platinummonkey/pdfedit/internal/organize"
	"github.com/platinummonkey/pdfedit/internal/overlay"
	"github.com/platinummonkey/pdfedit/internal/pdfdoc"
	"github.com/platinummonkey/pdfedit/internal/pdferr"
	"github.com/platinummonkey/pdfedit/internal/preview"
	"github.com/platinummonkey/pdfedit/internal/watermark"
)

// load returns a fresh document over the session's bytes
func (s *Session) load() (*pdfdoc.Document, error) {
	doc, err := pdfdoc.Load(s.source)
	if err != nil {
		return nil, err
	}
	return doc.WithLogger(s.log), nil
}

func pdfResult(doc *pdfdoc.Document) (*Result, error) {
	data, err := doc.Bytes()
	if err != nil {
		return nil, err
	}
	return &Result{Data: data, Format: FormatPDF, PageCount: doc.PageCount()}, nil
}

// selectPages validates explicit page indices, or returns every page
func (s *Session) selectPages(pages []int) ([]int, error) {
	if len(pages) == 0 {
		all := make([]int, len(s.pages))
		for i := range all {
			all[i] = i
		}
		return all, nil
	}
	for _, p := range pages {
		if p < 0 || p >= len(s.pages) {
			return nil, pdferr.PageOutOfRange(p, len(s.pages))
		}
	}
	return pages, nil
}

func (s *Session) merge(p MergeParams) (*Result, error) {
	if len(p.Documents) == 0 {
		return nil, fmt.Errorf("merge needs at least one more document")
	}

	docs := make([]*pdfdoc.Document, 0, len(p.Documents)+1)
	for i, data := range append([][]byte{s.source}, p.Documents...) {
		doc, err := pdfdoc.Load(data)
		if err != nil {
			return nil, fmt.Errorf("document %d: %w", i+1, err)
		}
		docs = append(docs, doc)
	}

	merged, err := pdfdoc.Merge(docs...)
	if err != nil {
		return nil, err
	}
	return pdfResult(merged)
}

func (s *Session) split(ctx context.Context) (*Result, error) {
	doc, err := s.load()
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	parts, err := doc.SplitPages()
	if err != nil {
		return nil, err
	}

	files := make([]bundle.File, len(parts))
	for i, data := range parts {
		files[i] = bundle.File{Name: bundle.PageName("page", i, len(parts), "pdf"), Data: data}
	}

	data, err := bundle.Zip(files)
	if err != nil {
		return nil, err
	}
	return &Result{Data: data, Format: FormatZip, PageCount: len(files)}, nil
}

func (s *Session) crop(p CropParams) (*Result, error) {
	sizes := make([]crop.PageSize, len(s.pages))
	for i, pg := range s.pages {
		sizes[i] = crop.PageSize{Width: pg.Width, Height: pg.Height}
	}

	// Every page in scope is checked before the document is touched
	plan, err := crop.Plan(sizes, p.Margins, p.Mode, p.ActivePage)
	if err != nil {
		return nil, err
	}

	doc, err := s.load()
	if err != nil {
		return nil, err
	}
	for _, i := range crop.SortedPages(plan) {
		if err := doc.SetCropBox(i, plan[i]); err != nil {
			return nil, pdferr.NewPageError(i, err)
		}
	}
	return pdfResult(doc)
}

func (s *Session) rotate(p RotateParams) (*Result, error) {
	if p.Delta%90 != 0 {
		return nil, fmt.Errorf("rotation %d is not a multiple of 90", p.Delta)
	}
	pages, err := s.selectPages(p.Pages)
	if err != nil {
		return nil, err
	}

	doc, err := s.load()
	if err != nil {
		return nil, err
	}
	for _, i := range pages {
		if err := doc.SetRotation(i, organize.Absolute(s.pages[i].Rotation, p.Delta)); err != nil {
			return nil, pdferr.NewPageError(i, err)
		}
	}
	return pdfResult(doc)
}

func (s *Session) organize(entries []organize.Entry) (*Result, error) {
	if err := organize.Validate(entries, len(s.pages)); err != nil {
		return nil, err
	}

	doc, err := s.load()
	if err != nil {
		return nil, err
	}
	out, err := doc.Collect(organize.Indices(entries))
	if err != nil {
		return nil, err
	}
	for i, e := range entries {
		rot := organize.Absolute(s.pages[e.OriginalIndex].Rotation, e.RotationDelta)
		if err := out.SetRotation(i, rot); err != nil {
			return nil, pdferr.NewPageError(i, err)
		}
	}
	return pdfResult(out)
}

func (s *Session) layout() watermark.Layout {
	l := watermark.DefaultLayout(s.metrics)
	if s.cfg.WatermarkMargin > 0 {
		l.Margin = s.cfg.WatermarkMargin
	}
	if s.cfg.TextTileSize > 0 {
		l.TextTile = s.cfg.TextTileSize
	}
	if s.cfg.ImageTileSize > 0 {
		l.ImageTile = s.cfg.ImageTileSize
	}
	return l
}

// WatermarkPlacements computes the placements of spec on page i with the
// session's layout. Preview and bake share it.
func (s *Session) WatermarkPlacements(spec watermark.Spec, i int) ([]watermark.Placement, error) {
	p, err := s.Page(i)
	if err != nil {
		return nil, err
	}
	return s.layout().Place(spec, p.Width, p.Height)
}

func (s *Session) watermark(ctx context.Context, p WatermarkParams) (*Result, error) {
	spec := p.Spec
	if err := spec.Validate(); err != nil {
		return nil, err
	}
	pages, err := s.selectPages(p.Pages)
	if err != nil {
		return nil, err
	}

	// Place every page first so bad content fails before any stamping
	placements := make(map[int][]watermark.Placement, len(pages))
	for _, i := range pages {
		pl, err := s.WatermarkPlacements(spec, i)
		if err != nil {
			return nil, pdferr.NewPageError(i, err)
		}
		placements[i] = pl
	}

	doc, err := s.load()
	if err != nil {
		return nil, err
	}
	if spec.Opacity == 0 {
		return pdfResult(doc)
	}

	for _, i := range pages {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		page, err := overlay.New(s.pages[i].Width, s.pages[i].Height, &overlay.Config{Metrics: s.metrics, Logger: s.log})
		if err != nil {
			return nil, err
		}
		if err := page.DrawWatermark(spec, placements[i]); err != nil {
			return nil, pdferr.NewPageError(i, err)
		}
		if page.Drawn() == 0 {
			continue
		}
		data, err := page.Bytes()
		if err != nil {
			return nil, err
		}
		if err := doc.Stamp(i, data, spec.Opacity); err != nil {
			return nil, pdferr.NewPageError(i, err)
		}
	}
	return pdfResult(doc)
}

func (s *Session) compress(ctx context.Context, p CompressParams, log *logger.Logger) (*Result, error) {
	pipeline, err := compress.New(&compress.Config{
		Level:        p.Level,
		MinDimension: s.cfg.CompressMinDimension,
		Logger:       log,
	})
	if err != nil {
		return nil, err
	}

	doc, err := s.load()
	if err != nil {
		return nil, err
	}
	stats, err := pipeline.Run(ctx, doc)
	if err != nil {
		return nil, err
	}

	res, err := pdfResult(doc)
	if err != nil {
		return nil, err
	}
	res.Compress = stats
	if stats.Failed > 0 {
		res.Warnings = append(res.Warnings, fmt.Sprintf("%d images could not be recompressed and were left unchanged", stats.Failed))
	}
	return res, nil
}

func (s *Session) annotate(ctx context.Context, snap snapshot) (*Result, error) {
	data, err := BakeAnnotations(ctx, s.source, snap.objects, snap.scale, &BakeOptions{Metrics: s.metrics, Logger: s.log})
	if err != nil {
		return nil, err
	}
	res := &Result{Data: data, Format: FormatPDF, PageCount: len(s.pages)}
	if len(snap.objects) == 0 {
		res.Warnings = append(res.Warnings, "no annotations to apply")
	}
	return res, nil
}

func (s *Session) toImages(ctx context.Context, p ToImagesParams) (*Result, error) {
	if !(p.Scale > 0) {
		return nil, fmt.Errorf("image scale must be positive, got %v", p.Scale)
	}
	r := s.renderer
	if r == nil {
		var err error
		if r, err = preview.NewRenderer(&preview.Config{Logger: s.log}); err != nil {
			return nil, err
		}
	}

	previews, err := r.RenderAll(ctx, s.source, p.Scale)
	if err != nil {
		return nil, err
	}

	files := make([]bundle.File, len(previews))
	for i, pv := range previews {
		data, err := preview.EncodePNG(pv.Image)
		if err != nil {
			return nil, pdferr.NewPageError(i, err)
		}
		files[i] = bundle.File{Name: bundle.PageName("page", i, len(previews), "png"), Data: data}
	}

	data, err := bundle.Zip(files)
	if err != nil {
		return nil, err
	}
	return &Result{Data: data, Format: FormatZip, PageCount: len(files)}, nil
}
