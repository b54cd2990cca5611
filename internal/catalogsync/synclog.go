package catalogsync

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/rotisserie/eris"

	"github.com/sells-group/catalog-sync/internal/db"
)

// Run log statuses.
const (
	StatusRunning  = "running"
	StatusComplete = "complete"
	StatusFailed   = "failed"
)

// RunEntry is a row of catalog.sync_log.
type RunEntry struct {
	ID          int64          `json:"id"`
	RunID       string         `json:"run_id"`
	Status      string         `json:"status"`
	StartedAt   time.Time      `json:"started_at"`
	CompletedAt *time.Time     `json:"completed_at,omitempty"`
	Error       string         `json:"error,omitempty"`
	Metadata    map[string]any `json:"metadata,omitempty"`
}

// RunLog records sync runs. SyncLog is the Postgres implementation.
type RunLog interface {
	Start(ctx context.Context, runID string) (int64, error)
	Complete(ctx context.Context, id int64, summary *Summary) error
	Fail(ctx context.Context, id int64, errMsg string) error
}

// SyncLog reads and writes catalog.sync_log.
type SyncLog struct {
	pool db.Pool
}

// NewSyncLog creates a SyncLog backed by pool.
func NewSyncLog(pool db.Pool) *SyncLog {
	return &SyncLog{pool: pool}
}

// Start records the beginning of a run and returns the row id.
func (s *SyncLog) Start(ctx context.Context, runID string) (int64, error) {
	var id int64
	err := s.pool.QueryRow(ctx,
		`INSERT INTO catalog.sync_log (run_id, status, started_at)
		 VALUES ($1, 'running', now()) RETURNING id`,
		runID,
	).Scan(&id)
	if err != nil {
		return 0, eris.Wrapf(err, "synclog: start run %s", runID)
	}
	return id, nil
}

// Complete marks a run as finished and stores its summary.
func (s *SyncLog) Complete(ctx context.Context, id int64, summary *Summary) error {
	metaJSON := []byte("{}")
	if summary != nil {
		var err error
		metaJSON, err = json.Marshal(summary)
		if err != nil {
			return eris.Wrap(err, "synclog: marshal summary")
		}
	}

	_, err := s.pool.Exec(ctx,
		`UPDATE catalog.sync_log
		 SET status = 'complete', completed_at = now(), metadata = $1
		 WHERE id = $2`,
		metaJSON, id,
	)
	if err != nil {
		return eris.Wrapf(err, "synclog: complete run %d", id)
	}
	return nil
}

// Fail marks a run as failed.
func (s *SyncLog) Fail(ctx context.Context, id int64, errMsg string) error {
	_, err := s.pool.Exec(ctx,
		`UPDATE catalog.sync_log
		 SET status = 'failed', completed_at = now(), error = $1
		 WHERE id = $2`,
		errMsg, id,
	)
	if err != nil {
		return eris.Wrapf(err, "synclog: fail run %d", id)
	}
	return nil
}

// LastSuccess returns when the most recent complete run started, or nil.
func (s *SyncLog) LastSuccess(ctx context.Context) (*time.Time, error) {
	var t time.Time
	err := s.pool.QueryRow(ctx,
		`SELECT started_at FROM catalog.sync_log
		 WHERE status = 'complete'
		 ORDER BY started_at DESC LIMIT 1`,
	).Scan(&t)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, eris.Wrap(err, "synclog: last success")
	}
	return &t, nil
}

// List returns up to limit entries, newest first.
func (s *SyncLog) List(ctx context.Context, limit int) ([]RunEntry, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.pool.Query(ctx,
		`SELECT id, run_id, status, started_at, completed_at, error, metadata
		 FROM catalog.sync_log ORDER BY started_at DESC LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, eris.Wrap(err, "synclog: list")
	}
	defer rows.Close()

	var entries []RunEntry
	for rows.Next() {
		var e RunEntry
		var errStr *string
		var metaJSON []byte
		if err := rows.Scan(&e.ID, &e.RunID, &e.Status, &e.StartedAt, &e.CompletedAt, &errStr, &metaJSON); err != nil {
			return nil, eris.Wrap(err, "synclog: scan entry")
		}
		if errStr != nil {
			e.Error = *errStr
		}
		if len(metaJSON) > 0 {
			_ = json.Unmarshal(metaJSON, &e.Metadata)
		}
		entries = append(entries, e)
	}
	return entries, eris.Wrap(rows.Err(), "synclog: iterate")
}
