package backfill

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/catalog-sync/internal/catalog"
	"github.com/sells-group/catalog-sync/internal/classify"
	"github.com/sells-group/catalog-sync/internal/model"
)

// Reclassifier diffs stored categories against the engine and applies
// the reviewed changes through the writer.
type Reclassifier struct {
	store    catalog.Store
	writer   *catalog.Writer
	engine   *classify.Engine
	pageSize int
	now      func() time.Time
	log      *zap.Logger
}

// NewReclassifier creates a Reclassifier reading pageSize products at a time.
func NewReclassifier(store catalog.Store, writer *catalog.Writer, engine *classify.Engine, pageSize int) *Reclassifier {
	if engine == nil {
		engine = classify.New()
	}
	return &Reclassifier{
		store:    store,
		writer:   writer,
		engine:   engine,
		pageSize: pageSize,
		now:      time.Now,
		log:      zap.L().With(zap.String("component", "backfill.reclassify")),
	}
}

// Plan scans active products and returns every proposed change. It
// writes nothing.
func (r *Reclassifier) Plan(ctx context.Context) (*classify.Analysis, error) {
	analysis := classify.NewAnalysis()
	err := eachPage(ctx, r.store, r.pageSize, 0, func(page []model.Product) error {
		for _, p := range page {
			analysis.Scanned++
			if c := r.engine.Diff(p); c != nil {
				analysis.Add(*c)
			}
		}
		return nil
	})
	if err != nil {
		return nil, eris.Wrap(err, "backfill: plan reclassification")
	}
	return analysis, nil
}

// RunOptions controls Run.
type RunOptions struct {
	DryRun    bool
	BatchSize int
	// ReportDir receives a CSV of the planned changes when set.
	ReportDir string
}

// RunResult is the outcome of one reclassification run.
type RunResult struct {
	Analysis   *classify.Analysis   `json:"analysis"`
	Apply      *catalog.ApplyResult `json:"apply"`
	ReportPath string               `json:"report_path,omitempty"`
}

// Run plans, reports, and then applies unless DryRun is set.
func (r *Reclassifier) Run(ctx context.Context, opts RunOptions) (*RunResult, error) {
	analysis, err := r.Plan(ctx)
	if err != nil {
		return nil, err
	}
	res := &RunResult{Analysis: analysis}

	r.log.Info("reclassification planned",
		zap.Int("scanned", analysis.Scanned),
		zap.Int("changes", analysis.TotalChanges),
		zap.Bool("dry_run", opts.DryRun),
	)

	if opts.ReportDir != "" && analysis.TotalChanges > 0 {
		path, err := r.writeReport(opts.ReportDir, analysis.Changes)
		if err != nil {
			return res, err
		}
		res.ReportPath = path
	}

	res.Apply, err = r.writer.ApplyClassificationChanges(ctx, analysis.Changes, catalog.ApplyOptions{
		DryRun:    opts.DryRun,
		BatchSize: opts.BatchSize,
	})
	if err != nil {
		return res, eris.Wrap(err, "backfill: apply reclassification")
	}
	return res, nil
}

func (r *Reclassifier) writeReport(dir string, changes []model.ClassificationChange) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", eris.Wrapf(err, "backfill: create report dir %s", dir)
	}
	path := filepath.Join(dir, "reclassify-"+r.now().UTC().Format("20060102-150405")+".csv")
	f, err := os.Create(path)
	if err != nil {
		return "", eris.Wrapf(err, "backfill: create report %s", path)
	}
	defer f.Close() //nolint:errcheck

	if err := classify.WriteChangesCSV(f, changes); err != nil {
		return "", err
	}
	return path, nil
}
