package catalog

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/catalog-sync/internal/model"
)

// Outcome is the result of writing one product.
type Outcome string

const (
	Inserted Outcome = "inserted"
	Updated  Outcome = "updated"
)

// RecordError ties a failed write to its SKU.
type RecordError struct {
	SKU string `json:"sku"`
	Err string `json:"error"`
}

// BatchResult tallies a WriteBatch or ApplyPatches call.
type BatchResult struct {
	Inserted  int           `json:"inserted"`
	Updated   int           `json:"updated"`
	Conflicts int           `json:"conflicts"`
	Failed    int           `json:"failed"`
	Errors    []RecordError `json:"errors,omitempty"`
}

// Total is the number of records attempted.
func (r BatchResult) Total() int {
	return r.Inserted + r.Updated + r.Conflicts + r.Failed
}

// Merge adds o into r.
func (r *BatchResult) Merge(o BatchResult) {
	r.Inserted += o.Inserted
	r.Updated += o.Updated
	r.Conflicts += o.Conflicts
	r.Failed += o.Failed
	r.Errors = append(r.Errors, o.Errors...)
}

// maxRecordedErrors bounds BatchResult.Errors.
const maxRecordedErrors = 100

func (r *BatchResult) record(sku string, err error) {
	if errors.Is(err, ErrPersistenceConflict) {
		r.Conflicts++
	} else {
		r.Failed++
	}
	if len(r.Errors) < maxRecordedErrors {
		r.Errors = append(r.Errors, RecordError{SKU: sku, Err: err.Error()})
	}
}

// Writer is the only component that persists products.
type Writer struct {
	store   Store
	backups BackupStore
	log     *zap.Logger
	batchID func() string
}

// NewWriter creates a Writer. backups may be nil when classification
// changes are never applied through this writer.
func NewWriter(store Store, backups BackupStore) *Writer {
	return &Writer{
		store:   store,
		backups: backups,
		log:     zap.L().With(zap.String("component", "catalog.writer")),
		batchID: uuid.NewString,
	}
}

// Write inserts p when no product has its SKU and updates the existing
// row otherwise. p.ID is set on success.
func (w *Writer) Write(ctx context.Context, p *model.Product) (Outcome, error) {
	if strings.TrimSpace(p.SKU) == "" {
		return "", eris.New("catalog: product has no sku")
	}

	existing, err := w.store.FindBySKU(ctx, p.SKU)
	if err != nil {
		return "", err
	}
	if existing == nil {
		id, err := w.store.Insert(ctx, p)
		if err != nil {
			return "", err
		}
		p.ID = id
		return Inserted, nil
	}

	p.ID = existing.ID
	if err := w.store.Update(ctx, existing.ID, ProductPatch(p)); err != nil {
		return "", err
	}
	return Updated, nil
}

// WriteBatch writes each product independently. A failed record is
// logged and counted; the rest of the batch continues.
func (w *Writer) WriteBatch(ctx context.Context, products []*model.Product) BatchResult {
	var res BatchResult
	for _, p := range products {
		if err := ctx.Err(); err != nil {
			res.record(p.SKU, err)
			continue
		}
		outcome, err := w.Write(ctx, p)
		if err != nil {
			w.logFailure(p.SKU, err)
			res.record(p.SKU, err)
			continue
		}
		switch outcome {
		case Inserted:
			res.Inserted++
		case Updated:
			res.Updated++
		}
	}
	return res
}

func (w *Writer) logFailure(sku string, err error) {
	if errors.Is(err, ErrPersistenceConflict) {
		w.log.Warn("persistence conflict, record skipped", zap.String("sku", sku), zap.Error(err))
		return
	}
	w.log.Error("write failed, record skipped", zap.String("sku", sku), zap.Error(err))
}

// UpdateQuantity sets stock for sku. It reports false when the SKU is
// not in the catalog.
func (w *Writer) UpdateQuantity(ctx context.Context, sku string, qty int) (bool, error) {
	return w.patchSKU(ctx, sku, QuantityPatch(qty))
}

// MarkDeleted retires sku. It reports false when the SKU is not in the catalog.
func (w *Writer) MarkDeleted(ctx context.Context, sku string) (bool, error) {
	return w.patchSKU(ctx, sku, DeletedPatch())
}

func (w *Writer) patchSKU(ctx context.Context, sku string, patch Patch) (bool, error) {
	existing, err := w.store.FindBySKU(ctx, sku)
	if err != nil {
		return false, err
	}
	if existing == nil {
		return false, nil
	}
	if err := w.store.Update(ctx, existing.ID, patch); err != nil {
		return false, err
	}
	return true, nil
}

// IDPatch is a patch addressed to a stored product.
type IDPatch struct {
	ID    int64
	SKU   string
	Patch Patch
}

// ApplyPatches updates each product independently. Successes count as Updated.
func (w *Writer) ApplyPatches(ctx context.Context, patches []IDPatch) BatchResult {
	var res BatchResult
	for _, p := range patches {
		if err := ctx.Err(); err != nil {
			res.record(p.SKU, err)
			continue
		}
		if err := w.store.Update(ctx, p.ID, p.Patch); err != nil {
			w.logFailure(p.SKU, err)
			res.record(p.SKU, err)
			continue
		}
		res.Updated++
	}
	return res
}

// ApplyOptions controls ApplyClassificationChanges.
type ApplyOptions struct {
	DryRun    bool
	BatchSize int
}

// ApplyResult summarizes an apply or rollback.
type ApplyResult struct {
	DryRun   bool          `json:"dry_run"`
	Planned  int           `json:"planned"`
	Applied  int           `json:"applied"`
	Failed   int           `json:"failed"`
	BatchIDs []string      `json:"batch_ids,omitempty"`
	Errors   []RecordError `json:"errors,omitempty"`
}

// ApplyClassificationChanges moves products to their proposed categories
// in batches. Each batch's backup is saved before any of its updates run;
// a failed backup stops the apply. DryRun reports the plan and writes nothing.
func (w *Writer) ApplyClassificationChanges(ctx context.Context, changes []model.ClassificationChange, opts ApplyOptions) (*ApplyResult, error) {
	res := &ApplyResult{DryRun: opts.DryRun, Planned: len(changes)}
	if opts.DryRun || len(changes) == 0 {
		return res, nil
	}
	if w.backups == nil {
		return res, eris.New("catalog: no backup store configured")
	}

	size := opts.BatchSize
	if size <= 0 {
		size = 500
	}

	for start := 0; start < len(changes); start += size {
		if err := ctx.Err(); err != nil {
			return res, eris.Wrap(err, "catalog: apply classification changes")
		}
		chunk := changes[start:min(start+size, len(changes))]

		batchID := w.batchID()
		if err := w.backups.SaveSnapshot(ctx, batchID, backupRows(chunk)); err != nil {
			return res, eris.Wrapf(err, "catalog: backup batch %s", batchID)
		}
		res.BatchIDs = append(res.BatchIDs, batchID)

		for _, c := range chunk {
			if err := w.store.Update(ctx, c.ProductID, CategoryPatch(c.ToCategory, c.ToRegulated)); err != nil {
				w.logFailure(c.SKU, err)
				res.Failed++
				res.Errors = append(res.Errors, RecordError{SKU: c.SKU, Err: err.Error()})
				continue
			}
			res.Applied++
		}

		w.log.Info("classification batch applied",
			zap.String("batch_id", batchID),
			zap.Int("changes", len(chunk)),
			zap.Int("applied_total", res.Applied),
		)
	}
	return res, nil
}

func backupRows(changes []model.ClassificationChange) []BackupRow {
	rows := make([]BackupRow, len(changes))
	for i, c := range changes {
		rows[i] = BackupRow{
			ProductID:    c.ProductID,
			SKU:          c.SKU,
			Name:         c.Name,
			OldCategory:  c.FromCategory,
			OldRegulated: c.FromRegulated,
			NewCategory:  c.ToCategory,
			Reason:       c.Reason,
		}
	}
	return rows
}

// Rollback restores the categories saved for batchID. Rows that fail to
// restore are reported without stopping the rest.
func (w *Writer) Rollback(ctx context.Context, batchID string) (*ApplyResult, error) {
	if w.backups == nil {
		return nil, eris.New("catalog: no backup store configured")
	}
	rows, err := w.backups.LoadSnapshot(ctx, batchID)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, eris.Errorf("catalog: backup batch %s not found", batchID)
	}

	res := &ApplyResult{Planned: len(rows), BatchIDs: []string{batchID}}
	for _, r := range rows {
		if err := ctx.Err(); err != nil {
			return res, eris.Wrap(err, "catalog: rollback")
		}
		if err := w.store.Update(ctx, r.ProductID, CategoryPatch(r.OldCategory, r.OldRegulated)); err != nil {
			w.logFailure(r.SKU, err)
			res.Failed++
			res.Errors = append(res.Errors, RecordError{SKU: r.SKU, Err: err.Error()})
			continue
		}
		res.Applied++
	}

	w.log.Info("classification batch rolled back",
		zap.String("batch_id", batchID),
		zap.Int("restored", res.Applied),
		zap.Int("failed", res.Failed),
	)
	return res, nil
}
