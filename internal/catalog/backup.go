package catalog

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/catalog-sync/internal/db"
	"github.com/sells-group/catalog-sync/internal/model"
)

// BackupRow is the pre-change state of one product in a change batch.
type BackupRow struct {
	BatchID      string
	ProductID    int64
	SKU          string
	Name         string
	OldCategory  model.Category
	OldRegulated bool
	NewCategory  model.Category
	Reason       string
	CreatedAt    time.Time
}

// BatchInfo summarizes one saved backup batch.
type BatchInfo struct {
	BatchID   string    `json:"batch_id"`
	Rows      int       `json:"rows"`
	CreatedAt time.Time `json:"created_at"`
}

// BackupStore persists classification backups for rollback.
type BackupStore interface {
	SaveSnapshot(ctx context.Context, batchID string, rows []BackupRow) error
	LoadSnapshot(ctx context.Context, batchID string) ([]BackupRow, error)
	Batches(ctx context.Context, limit int) ([]BatchInfo, error)
}

var backupColumns = []string{
	"batch_id", "product_id", "sku", "name", "old_category", "old_regulated",
	"new_category", "reason", "created_at",
}

// PostgresBackupStore keeps backups in catalog.category_backups.
type PostgresBackupStore struct {
	pool db.Pool
}

// NewPostgresBackupStore creates a PostgresBackupStore.
func NewPostgresBackupStore(pool db.Pool) *PostgresBackupStore {
	return &PostgresBackupStore{pool: pool}
}

// SaveSnapshot bulk-loads rows. Saving a batch again replaces the rows it
// already holds for the same products, so a retried apply stays restorable.
func (s *PostgresBackupStore) SaveSnapshot(ctx context.Context, batchID string, rows []BackupRow) error {
	now := time.Now().UTC()
	data := make([][]any, len(rows))
	for i, r := range rows {
		data[i] = []any{
			batchID, r.ProductID, r.SKU, r.Name, string(r.OldCategory), r.OldRegulated,
			string(r.NewCategory), r.Reason, now,
		}
	}
	n, err := db.BulkUpsert(ctx, s.pool, db.UpsertSpec{
		Schema:       "catalog",
		Table:        "category_backups",
		Columns:      backupColumns,
		ConflictKeys: []string{"batch_id", "product_id"},
		// The first snapshot of a product in a batch is the one to restore.
		UpdateCols: []string{"sku", "name", "new_category", "reason"},
	}, data)
	if err != nil {
		return eris.Wrapf(err, "catalog: save backup %s", batchID)
	}
	if int(n) != len(rows) {
		return eris.Errorf("catalog: backup %s stored %d of %d rows", batchID, n, len(rows))
	}
	return nil
}

// LoadSnapshot returns the rows of one batch in insertion order.
func (s *PostgresBackupStore) LoadSnapshot(ctx context.Context, batchID string) ([]BackupRow, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT batch_id::text, product_id, sku, name, old_category, old_regulated, new_category, reason, created_at
		 FROM catalog.category_backups WHERE batch_id = $1 ORDER BY id`, batchID)
	if err != nil {
		return nil, eris.Wrapf(err, "catalog: load backup %s", batchID)
	}
	defer rows.Close()

	var out []BackupRow
	for rows.Next() {
		var (
			r        BackupRow
			old, nxt string
		)
		if err := rows.Scan(&r.BatchID, &r.ProductID, &r.SKU, &r.Name, &old, &r.OldRegulated, &nxt, &r.Reason, &r.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "catalog: scan backup row")
		}
		r.OldCategory = model.Category(old)
		r.NewCategory = model.Category(nxt)
		out = append(out, r)
	}
	return out, eris.Wrap(rows.Err(), "catalog: iterate backup rows")
}

// Batches lists the most recent backup batches.
func (s *PostgresBackupStore) Batches(ctx context.Context, limit int) ([]BatchInfo, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.pool.Query(ctx,
		`SELECT batch_id::text, count(*), min(created_at)
		 FROM catalog.category_backups GROUP BY batch_id ORDER BY 3 DESC LIMIT $1`, limit)
	if err != nil {
		return nil, eris.Wrap(err, "catalog: list backup batches")
	}
	defer rows.Close()

	var out []BatchInfo
	for rows.Next() {
		var b BatchInfo
		if err := rows.Scan(&b.BatchID, &b.Rows, &b.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "catalog: scan backup batch")
		}
		out = append(out, b)
	}
	return out, eris.Wrap(rows.Err(), "catalog: iterate backup batches")
}
