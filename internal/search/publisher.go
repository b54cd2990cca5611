package search

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/catalog-sync/internal/catalog"
	"github.com/sells-group/catalog-sync/internal/resilience"
	"github.com/sells-group/catalog-sync/pkg/searchindex"
)

// ErrBatchesFailed is returned when at least one batch could not be
// published after retries.
var ErrBatchesFailed = eris.New("index batches failed")

// MaxBatchSize is the largest batch the index accepts in one call.
const MaxBatchSize = 1000

// ReportFunc receives publish progress.
type ReportFunc func(done, total int)

// Options configures a Publisher.
type Options struct {
	Index     string
	BatchSize int
	// Clear empties the index before the first batch.
	Clear bool
	// ConfigureFacets pushes FacetFields to the index settings first.
	ConfigureFacets bool
	Retry           resilience.RetryConfig
}

// Result summarizes a publish.
type Result struct {
	Objects       int      `json:"objects"`
	Deleted       int      `json:"deleted"`
	Batches       int      `json:"batches"`
	FailedBatches int      `json:"failed_batches"`
	Errors        []string `json:"errors,omitempty"`
	Duration      string   `json:"duration"`
}

// Publisher streams active products from the store to the index and
// removes retired ones.
type Publisher struct {
	store  catalog.Store
	client searchindex.Client
	opts   Options
	log    *zap.Logger
}

// NewPublisher creates a Publisher. BatchSize is clamped to [1, MaxBatchSize].
func NewPublisher(store catalog.Store, client searchindex.Client, opts Options) *Publisher {
	if opts.BatchSize <= 0 || opts.BatchSize > MaxBatchSize {
		opts.BatchSize = MaxBatchSize
	}
	if opts.Retry.ShouldRetry == nil {
		opts.Retry.ShouldRetry = retryBatch
	}
	if opts.Retry.OnRetry == nil {
		opts.Retry.OnRetry = resilience.RetryLogger("search.publisher", "batch")
	}
	return &Publisher{
		store:  store,
		client: client,
		opts:   opts,
		log:    zap.L().With(zap.String("component", "search.publisher")),
	}
}

// retryBatch retries everything except client errors the index will
// keep rejecting.
func retryBatch(err error) bool {
	var se *searchindex.StatusError
	if errors.As(err, &se) {
		return se.Status == http.StatusTooManyRequests || se.Status >= 500
	}
	return true
}

// Publish uploads every active product, then removes retired products
// from the index unless it was cleared first. A batch that still fails
// after its retries is recorded and the rest continue; the returned error
// then wraps ErrBatchesFailed.
func (p *Publisher) Publish(ctx context.Context, report ReportFunc) (*Result, error) {
	start := time.Now()
	res := &Result{}

	total, err := p.store.Count(ctx, catalog.ListFilter{ActiveOnly: true})
	if err != nil {
		return res, eris.Wrap(err, "search: count products")
	}

	if p.opts.ConfigureFacets {
		if _, err := p.client.ConfigureFacets(ctx, p.opts.Index, FacetFields()); err != nil {
			return res, eris.Wrap(err, "search: configure facets")
		}
	}
	if p.opts.Clear {
		if _, err := p.client.Clear(ctx, p.opts.Index); err != nil {
			return res, eris.Wrap(err, "search: clear index")
		}
	}

	if report != nil {
		report(0, total)
	}

	var (
		after int64
		done  int
	)
	for {
		if err := ctx.Err(); err != nil {
			return res, eris.Wrap(err, "search: publish")
		}

		page, err := p.store.List(ctx, catalog.ListFilter{AfterID: after, Limit: p.opts.BatchSize, ActiveOnly: true})
		if err != nil {
			return res, eris.Wrap(err, "search: list products")
		}
		if len(page) == 0 {
			break
		}
		after = page[len(page)-1].ID

		objects := make([]searchindex.Object, len(page))
		for i, prod := range page {
			objects[i] = ToObject(prod)
		}

		ok, err := p.send(ctx, res, len(objects), func(ctx context.Context) error {
			_, err := p.client.BatchUpsert(ctx, p.opts.Index, objects)
			return err
		})
		if err != nil {
			return res, err
		}
		if ok {
			res.Objects += len(objects)
		}

		done += len(page)
		if report != nil {
			report(done, max(total, done))
		}
		if len(page) < p.opts.BatchSize {
			break
		}
	}

	if !p.opts.Clear {
		if err := p.removeRetired(ctx, res); err != nil {
			return res, err
		}
	}

	res.Duration = time.Since(start).Round(time.Millisecond).String()
	p.log.Info("index publish finished",
		zap.Int("objects", res.Objects),
		zap.Int("deleted", res.Deleted),
		zap.Int("batches", res.Batches),
		zap.Int("failed_batches", res.FailedBatches),
	)

	if res.FailedBatches > 0 {
		return res, eris.Wrapf(ErrBatchesFailed, "search: %d of %d batches failed", res.FailedBatches, res.Batches)
	}
	return res, nil
}

// removeRetired deletes the objects of every inactive product. Deleting an
// object the index never held is a no-op.
func (p *Publisher) removeRetired(ctx context.Context, res *Result) error {
	var after int64
	for {
		if err := ctx.Err(); err != nil {
			return eris.Wrap(err, "search: publish")
		}
		page, err := p.store.List(ctx, catalog.ListFilter{AfterID: after, Limit: p.opts.BatchSize, InactiveOnly: true})
		if err != nil {
			return eris.Wrap(err, "search: list retired products")
		}
		if len(page) == 0 {
			return nil
		}
		after = page[len(page)-1].ID

		ids := make([]string, len(page))
		for i, prod := range page {
			ids[i] = prod.SKU
		}
		ok, err := p.send(ctx, res, len(ids), func(ctx context.Context) error {
			_, err := p.client.BatchDelete(ctx, p.opts.Index, ids)
			return err
		})
		if err != nil {
			return err
		}
		if ok {
			res.Deleted += len(ids)
		}
		if len(page) < p.opts.BatchSize {
			return nil
		}
	}
}

// send runs one batch call under the retry policy. A batch that exhausts
// its retries is recorded in res and reported as not ok; only
// cancellation is returned as an error.
func (p *Publisher) send(ctx context.Context, res *Result, n int, call func(context.Context) error) (bool, error) {
	res.Batches++
	err := resilience.Do(ctx, p.opts.Retry, call)
	if err == nil {
		return true, nil
	}
	if ctx.Err() != nil {
		return false, eris.Wrap(ctx.Err(), "search: publish")
	}
	res.FailedBatches++
	res.Errors = append(res.Errors, err.Error())
	p.log.Error("index batch failed",
		zap.Int("batch", res.Batches),
		zap.Int("objects", n),
		zap.Error(err),
	)
	return false, nil
}
