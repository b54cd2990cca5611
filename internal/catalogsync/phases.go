package catalogsync

import (
	"context"
	"errors"
	"os"
	"path"
	"path/filepath"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/catalog-sync/internal/catalog"
	"github.com/sells-group/catalog-sync/internal/feed"
	"github.com/sells-group/catalog-sync/internal/fetcher"
	"github.com/sells-group/catalog-sync/internal/metrics"
	"github.com/sells-group/catalog-sync/internal/model"
	"github.com/sells-group/catalog-sync/internal/resilience"
	"github.com/sells-group/catalog-sync/internal/search"
	"github.com/sells-group/catalog-sync/internal/transform"
)

// FetchConfig configures the fetch phase.
type FetchConfig struct {
	Source    fetcher.Source
	RemoteDir string
	LocalDir  string
	// Required files fail the phase when absent from the listing.
	Required []string
	// Optional files are skipped when absent.
	Optional []string
	Retry    resilience.RetryConfig
}

// FetchPhase downloads the feed files into LocalDir.
func FetchPhase(cfg FetchConfig) PhaseFunc {
	if cfg.Retry.OnRetry == nil {
		cfg.Retry.OnRetry = resilience.RetryLogger("catalogsync.fetch", "download")
	}
	log := zap.L().With(zap.String("component", "catalogsync.fetch"))

	return func(ctx context.Context, report ProgressFunc) (*PhaseResult, error) {
		if err := os.MkdirAll(cfg.LocalDir, 0o755); err != nil {
			return nil, eris.Wrapf(err, "fetch: create %s", cfg.LocalDir)
		}

		entries, err := resilience.DoVal(ctx, cfg.Retry, func(ctx context.Context) ([]fetcher.Entry, error) {
			return cfg.Source.List(ctx, cfg.RemoteDir)
		})
		if err != nil {
			return nil, eris.Wrapf(err, "fetch: list %s", cfg.RemoteDir)
		}
		sizes := make(map[string]int64, len(entries))
		for _, e := range entries {
			sizes[e.Name] = e.Size
		}

		var want []string
		var total int64
		for _, name := range cfg.Required {
			size, ok := sizes[name]
			if !ok {
				return nil, eris.Errorf("fetch: %s not found in %s", name, cfg.RemoteDir)
			}
			want = append(want, name)
			total += size
		}
		for _, name := range cfg.Optional {
			size, ok := sizes[name]
			if !ok {
				log.Warn("optional feed file missing", zap.String("file", name))
				continue
			}
			want = append(want, name)
			total += size
		}

		res := &PhaseResult{}
		var fetched int64
		report(0, int(total))
		for _, name := range want {
			base := fetched
			n, err := resilience.DoVal(ctx, cfg.Retry, func(ctx context.Context) (int64, error) {
				return cfg.Source.Fetch(ctx, path.Join(cfg.RemoteDir, name), filepath.Join(cfg.LocalDir, name),
					func(written int64) { report(int(base+written), int(total)) })
			})
			if err != nil {
				return res, eris.Wrapf(err, "fetch: download %s", name)
			}
			fetched += n
			res.Files = append(res.Files, name)
			res.Processed++
			log.Info("downloaded", zap.String("file", name), zap.Int64("bytes", n))
		}
		report(int(max(fetched, total)), int(max(fetched, total)))
		return res, nil
	}
}

// TransformLoadConfig configures the transform-load phase.
type TransformLoadConfig struct {
	LocalDir      string
	InventoryFile string
	QuantityFile  string
	DeletedFile   string
	Delimiter     string
	Parser        *feed.Parser
	Transformer   *transform.Transformer
	Writer        *catalog.Writer
	// Workers bounds the parse and normalize fan-out. Default 8.
	Workers int
	// BatchSize is the number of lines normalized and written together.
	// Default 500.
	BatchSize int
	Metrics   *metrics.Registry
}

// TransformLoadPhase parses the inventory file, writes normalized products
// and then applies the quantity and deletion files when present.
func TransformLoadPhase(cfg TransformLoadConfig) PhaseFunc {
	if cfg.Workers <= 0 {
		cfg.Workers = 8
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 500
	}
	if cfg.Parser == nil {
		cfg.Parser = feed.NewParser(feed.ParserOptions{Delimiter: cfg.Delimiter})
	}
	tl := &transformLoad{cfg: cfg, log: zap.L().With(zap.String("component", "catalogsync.transform_load"))}
	return tl.run
}

type transformLoad struct {
	cfg TransformLoadConfig
	log *zap.Logger
}

type numberedLine struct {
	no   int
	text string
}

func (t *transformLoad) run(ctx context.Context, report ProgressFunc) (*PhaseResult, error) {
	inventory := filepath.Join(t.cfg.LocalDir, t.cfg.InventoryFile)
	if _, err := os.Stat(inventory); err != nil {
		return nil, eris.Wrapf(err, "transform_load: inventory %s", inventory)
	}

	var total int
	files := []string{inventory}
	for _, name := range []string{t.cfg.QuantityFile, t.cfg.DeletedFile} {
		if name != "" {
			files = append(files, filepath.Join(t.cfg.LocalDir, name))
		}
	}
	for _, f := range files {
		n, err := countFile(f)
		if err != nil {
			return nil, err
		}
		total += n
	}

	res := &PhaseResult{}
	done := 0
	report(0, total)
	step := func(n int) {
		done += n
		report(done, total)
	}

	if err := t.loadInventory(ctx, inventory, res, step); err != nil {
		return res, err
	}
	if t.cfg.QuantityFile != "" {
		if err := t.applyQuantities(ctx, filepath.Join(t.cfg.LocalDir, t.cfg.QuantityFile), res, step); err != nil {
			return res, err
		}
	}
	if t.cfg.DeletedFile != "" {
		if err := t.applyDeletions(ctx, filepath.Join(t.cfg.LocalDir, t.cfg.DeletedFile), res, step); err != nil {
			return res, err
		}
	}

	t.log.Info("transform-load complete",
		zap.Int("processed", res.Processed),
		zap.Int("inserted", res.Inserted),
		zap.Int("updated", res.Updated),
		zap.Int("quantity_updated", res.QuantityUpdated),
		zap.Int("deleted", res.Deleted),
		zap.Int("skipped", res.Skipped),
		zap.Int("malformed", res.Malformed),
		zap.Int("errored", res.Errored),
	)
	return res, nil
}

func (t *transformLoad) loadInventory(ctx context.Context, file string, res *PhaseResult, step func(int)) error {
	f, err := os.Open(file)
	if err != nil {
		return eris.Wrapf(err, "transform_load: open %s", file)
	}
	defer f.Close() //nolint:errcheck

	var stats feed.Stats
	batch := make([]numberedLine, 0, t.cfg.BatchSize)
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		if err := t.writeBatch(ctx, batch, &stats, res); err != nil {
			return err
		}
		step(len(batch))
		batch = batch[:0]
		return nil
	}

	err = feed.Scan(ctx, f, func(lineNo int, line string) error {
		batch = append(batch, numberedLine{no: lineNo, text: line})
		if len(batch) < t.cfg.BatchSize {
			return nil
		}
		return flush()
	})
	if err == nil {
		err = flush()
	}
	res.Skipped += stats.Skipped
	res.Malformed += stats.Malformed
	t.cfg.Metrics.AddRecords("skipped", stats.Skipped)
	t.cfg.Metrics.AddRecords("malformed", stats.Malformed)
	if err != nil {
		return eris.Wrapf(err, "transform_load: load %s", filepath.Base(file))
	}
	return nil
}

// writeBatch normalizes lines in parallel and writes the products in line
// order.
func (t *transformLoad) writeBatch(ctx context.Context, lines []numberedLine, stats *feed.Stats, res *PhaseResult) error {
	type outcome struct {
		product *model.Product
		err     error
	}
	out := make([]outcome, len(lines))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(t.cfg.Workers)
	for i, line := range lines {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			raw, err := t.cfg.Parser.Parse(line.text)
			if err != nil {
				out[i].err = err
				return nil
			}
			out[i].product = t.cfg.Transformer.Normalize(raw)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return eris.Wrap(err, "transform_load: normalize")
	}

	products := make([]*model.Product, 0, len(lines))
	for i, o := range out {
		if err := stats.Record(o.err); err != nil {
			if errors.Is(err, feed.ErrSkipped) {
				t.log.Debug("skipped", zap.Int("line", lines[i].no), zap.Error(err))
			} else {
				t.log.Warn("malformed record", zap.Int("line", lines[i].no), zap.Error(err))
			}
			continue
		}
		products = append(products, o.product)
	}

	br := t.cfg.Writer.WriteBatch(ctx, products)
	res.Processed += br.Total()
	res.Inserted += br.Inserted
	res.Updated += br.Updated
	res.Errored += br.Conflicts + br.Failed
	for _, e := range br.Errors {
		if len(res.Errors) < maxStateErrors {
			res.Errors = append(res.Errors, e.SKU+": "+e.Err)
		}
	}
	t.cfg.Metrics.AddRecords("inserted", br.Inserted)
	t.cfg.Metrics.AddRecords("updated", br.Updated)
	t.cfg.Metrics.AddRecords("conflict", br.Conflicts)
	t.cfg.Metrics.AddRecords("failed", br.Failed)
	return ctx.Err()
}

func (t *transformLoad) applyQuantities(ctx context.Context, file string, res *PhaseResult, step func(int)) error {
	return t.eachSideLine(ctx, file, step, func(line string) error {
		rec, err := feed.ParseQuantityLine(line)
		if err != nil {
			return err
		}
		found, err := t.cfg.Writer.UpdateQuantity(ctx, rec.StockNumber, rec.Quantity)
		if err != nil {
			return err
		}
		if found {
			res.QuantityUpdated++
		}
		return nil
	}, res)
}

func (t *transformLoad) applyDeletions(ctx context.Context, file string, res *PhaseResult, step func(int)) error {
	return t.eachSideLine(ctx, file, step, func(line string) error {
		rec, err := feed.ParseDeletedLine(line, t.cfg.Delimiter)
		if err != nil {
			return err
		}
		found, err := t.cfg.Writer.MarkDeleted(ctx, rec.StockNumber)
		if err != nil {
			return err
		}
		if found {
			res.Deleted++
		}
		return nil
	}, res)
}

// eachSideLine applies fn to every line of an optional side file. Per-line
// failures are counted and do not stop the file.
func (t *transformLoad) eachSideLine(ctx context.Context, file string, step func(int), fn func(string) error, res *PhaseResult) error {
	f, err := os.Open(file)
	if errors.Is(err, os.ErrNotExist) {
		t.log.Info("side file not present", zap.String("file", filepath.Base(file)))
		return nil
	}
	if err != nil {
		return eris.Wrapf(err, "transform_load: open %s", file)
	}
	defer f.Close() //nolint:errcheck

	n := 0
	err = feed.Scan(ctx, f, func(lineNo int, line string) error {
		n++
		if n%500 == 0 {
			step(500)
		}
		err := fn(line)
		switch {
		case err == nil:
		case errors.Is(err, feed.ErrSkipped):
			res.Skipped++
		case errors.Is(err, feed.ErrMalformedRecord):
			res.Malformed++
			t.log.Warn("malformed side record", zap.String("file", filepath.Base(file)), zap.Int("line", lineNo), zap.Error(err))
		default:
			if ctx.Err() != nil {
				return ctx.Err()
			}
			res.Errored++
			t.log.Warn("side record failed", zap.String("file", filepath.Base(file)), zap.Int("line", lineNo), zap.Error(err))
		}
		return nil
	})
	step(n % 500)
	if err != nil {
		return eris.Wrapf(err, "transform_load: apply %s", filepath.Base(file))
	}
	return nil
}

// countFile returns the line count of file, or 0 when it does not exist.
func countFile(file string) (int, error) {
	f, err := os.Open(file)
	if errors.Is(err, os.ErrNotExist) {
		return 0, nil
	}
	if err != nil {
		return 0, eris.Wrapf(err, "transform_load: open %s", file)
	}
	defer f.Close() //nolint:errcheck
	return feed.CountLines(f)
}

// IndexPublishPhase pushes the active catalog to the search index.
func IndexPublishPhase(pub *search.Publisher, reg *metrics.Registry) PhaseFunc {
	return func(ctx context.Context, report ProgressFunc) (*PhaseResult, error) {
		out, err := pub.Publish(ctx, search.ReportFunc(report))
		res := &PhaseResult{}
		if out != nil {
			res.Published = out.Objects
			res.Errors = out.Errors
			reg.AddIndexBatches("ok", out.Batches-out.FailedBatches)
			reg.AddIndexBatches("failed", out.FailedBatches)
		}
		if err != nil {
			return res, eris.Wrap(err, "index_publish: publish")
		}
		return res, nil
	}
}
