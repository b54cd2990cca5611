package backfill

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/catalog-sync/internal/catalog"
	"github.com/sells-group/catalog-sync/internal/facet"
	"github.com/sells-group/catalog-sync/internal/model"
)

// FacetBackfill re-extracts facets for stored products and fills only
// the attributes that are still unset.
type FacetBackfill struct {
	store     catalog.Store
	writer    *catalog.Writer
	extractor *facet.Extractor
	pageSize  int
	log       *zap.Logger
}

// NewFacetBackfill creates a FacetBackfill.
func NewFacetBackfill(store catalog.Store, writer *catalog.Writer, extractor *facet.Extractor, pageSize int) *FacetBackfill {
	if extractor == nil {
		extractor = facet.NewExtractor()
	}
	return &FacetBackfill{
		store:     store,
		writer:    writer,
		extractor: extractor,
		pageSize:  pageSize,
		log:       zap.L().With(zap.String("component", "backfill.facets")),
	}
}

// FacetOptions controls FacetBackfill.Run.
type FacetOptions struct {
	DryRun bool
	Limit  int
}

// FacetResult summarizes a facet backfill.
type FacetResult struct {
	Scanned int                     `json:"scanned"`
	Changed int                     `json:"changed"`
	Filled  map[model.FacetName]int `json:"filled"`
	Write   catalog.BatchResult     `json:"write"`
}

// Run walks active products page by page. Each page's patches are
// written before the next page is read unless DryRun is set.
func (b *FacetBackfill) Run(ctx context.Context, opts FacetOptions) (*FacetResult, error) {
	res := &FacetResult{Filled: make(map[model.FacetName]int)}

	err := eachPage(ctx, b.store, b.pageSize, opts.Limit, func(page []model.Product) error {
		var patches []catalog.IDPatch
		for _, p := range page {
			res.Scanned++
			found := b.extractor.Extract(p.Text(), facet.Context{Department: p.DepartmentCode, Category: p.Category})

			fill := p.Facets.Clone()
			names := facet.ApplyUnset(&fill, found)
			if len(names) == 0 {
				continue
			}

			added := make(model.Facets, len(names))
			for _, n := range names {
				added[n] = fill[n]
				res.Filled[n]++
			}
			res.Changed++
			patches = append(patches, catalog.IDPatch{ID: p.ID, SKU: p.SKU, Patch: catalog.FacetsPatch(added)})
		}

		if opts.DryRun || len(patches) == 0 {
			return nil
		}
		res.Write.Merge(b.writer.ApplyPatches(ctx, patches))
		return nil
	})
	if err != nil {
		return res, eris.Wrap(err, "backfill: facets")
	}

	b.log.Info("facet backfill finished",
		zap.Int("scanned", res.Scanned),
		zap.Int("changed", res.Changed),
		zap.Int("updated", res.Write.Updated),
		zap.Int("failed", res.Write.Failed),
		zap.Bool("dry_run", opts.DryRun),
	)
	return res, nil
}
