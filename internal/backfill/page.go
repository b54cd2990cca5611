// Package backfill reprocesses stored products: bulk reclassification
// and facet re-extraction.
package backfill

import (
	"context"

	"github.com/sells-group/catalog-sync/internal/catalog"
	"github.com/sells-group/catalog-sync/internal/model"
)

const defaultPageSize = 500

// eachPage walks active products in id order, limit products at most
// when limit > 0.
func eachPage(ctx context.Context, store catalog.Store, pageSize, limit int, fn func([]model.Product) error) error {
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}
	var (
		after int64
		seen  int
	)
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		size := pageSize
		if limit > 0 {
			size = min(size, limit-seen)
			if size <= 0 {
				return nil
			}
		}

		page, err := store.List(ctx, catalog.ListFilter{AfterID: after, Limit: size, ActiveOnly: true})
		if err != nil {
			return err
		}
		if len(page) == 0 {
			return nil
		}
		if err := fn(page); err != nil {
			return err
		}
		seen += len(page)
		after = page[len(page)-1].ID
		if len(page) < size {
			return nil
		}
	}
}
