package engine

import (
	"context"
	"fmt"

	"github.com/platinummonkey/pdfedit/internal/annotation"
	"github.com/platinummonkey/pdfedit/internal/geometry"
	"github.com/platinummonkey/pdfedit/internal/logger"
	"github.com/platinummonkey/pdfedit/internal/overlay"
	"github.com/platinummonkey/pdfedit/internal/pdfdoc"
	"github.com/platinummonkey/pdfedit/internal/pdferr"
	"github.com/platinummonkey/pdfedit/internal/watermark"
)

// BakeOptions holds BakeAnnotations options
type BakeOptions struct {
	// Metrics clips text boxes to their width; created when nil
	Metrics *watermark.Metrics

	Logger *logger.Logger
}

// BakeAnnotations draws objects onto the document in data and returns the
// new bytes. Object coordinates are render pixels at scale. All objects are
// validated before the document is touched; each page with objects gets one
// overlay.
func BakeAnnotations(ctx context.Context, data []byte, objects []annotation.Object, scale float64, opts *BakeOptions) ([]byte, error) {
	if opts == nil {
		opts = &BakeOptions{}
	}
	log := opts.Logger
	if log == nil {
		log = logger.Get()
	}
	if !(scale > 0) {
		return nil, fmt.Errorf("render scale must be positive, got %v", scale)
	}

	doc, err := pdfdoc.Load(data)
	if err != nil {
		return nil, err
	}
	doc.WithLogger(log)

	byPage, err := groupObjects(doc.PageCount(), objects)
	if err != nil {
		return nil, err
	}
	if len(byPage) == 0 {
		return doc.Bytes()
	}

	metrics := opts.Metrics
	if metrics == nil {
		if metrics, err = watermark.NewMetrics(); err != nil {
			return nil, err
		}
	}

	for page := 0; page < doc.PageCount(); page++ {
		objs := byPage[page]
		if len(objs) == 0 {
			continue
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if err := bakePage(doc, page, objs, scale, metrics, log); err != nil {
			return nil, pdferr.NewPageError(page, err)
		}
	}

	log.Infof("Baked %d annotations onto %d pages", len(objects), len(byPage))
	return doc.Bytes()
}

// groupObjects validates objects and groups them by page, keeping z-order
func groupObjects(pageCount int, objects []annotation.Object) (map[int][]annotation.Object, error) {
	byPage := make(map[int][]annotation.Object)
	for _, obj := range objects {
		if obj.Page() < 0 || obj.Page() >= pageCount {
			return nil, pdferr.PageOutOfRange(obj.Page(), pageCount)
		}
		if err := obj.Validate(); err != nil {
			return nil, pdferr.NewPageError(obj.Page(), err)
		}
		if img, ok := obj.(*annotation.Image); ok {
			if _, err := watermark.ImageFormat(img.Data); err != nil {
				return nil, pdferr.NewPageError(obj.Page(), err)
			}
		}
		byPage[obj.Page()] = append(byPage[obj.Page()], obj)
	}
	return byPage, nil
}

func bakePage(doc *pdfdoc.Document, page int, objs []annotation.Object, scale float64, metrics *watermark.Metrics, log *logger.Logger) error {
	info, err := doc.Page(page)
	if err != nil {
		return err
	}
	t, err := geometry.NewTransform(scale, info.Height)
	if err != nil {
		return err
	}

	ov, err := overlay.New(info.Width, info.Height, &overlay.Config{Metrics: metrics, Logger: log})
	if err != nil {
		return err
	}
	for _, obj := range objs {
		if err := ov.DrawObject(obj, t); err != nil {
			return err
		}
	}

	if ov.Drawn() == 0 {
		log.WithPage(page).Debugf("Nothing to bake")
		return nil
	}

	data, err := ov.Bytes()
	if err != nil {
		return err
	}
	if err := doc.Stamp(page, data, 1); err != nil {
		return err
	}

	log.WithPage(page).Debugf("Baked %d annotations", ov.Drawn())
	return nil
}
