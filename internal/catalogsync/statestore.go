package catalogsync

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/catalog-sync/internal/db"
)

// StateStore persists the SyncState of the current run. Load returns nil
// when nothing is stored.
type StateStore interface {
	Load(ctx context.Context) (*SyncState, error)
	Save(ctx context.Context, s *SyncState) error
	Clear(ctx context.Context) error
}

// SQLiteStateStore keeps the state in a local SQLite file.
type SQLiteStateStore struct {
	db *sql.DB
}

// NewSQLiteStateStore opens the database at path in WAL mode and creates
// the state table.
func NewSQLiteStateStore(ctx context.Context, path string) (*SQLiteStateStore, error) {
	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, stmt := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
		`CREATE TABLE IF NOT EXISTS sync_state (
			id         INTEGER PRIMARY KEY CHECK (id = 1),
			state      TEXT NOT NULL,
			updated_at DATETIME NOT NULL
		)`,
	} {
		if _, err := conn.ExecContext(ctx, stmt); err != nil {
			conn.Close() //nolint:errcheck
			return nil, eris.Wrapf(err, "sqlite: exec %s", stmt)
		}
	}
	return &SQLiteStateStore{db: conn}, nil
}

// Close closes the database.
func (s *SQLiteStateStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStateStore) Load(ctx context.Context) (*SyncState, error) {
	var raw string
	err := s.db.QueryRowContext(ctx, `SELECT state FROM sync_state WHERE id = 1`).Scan(&raw)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, eris.Wrap(err, "sqlite: load state")
	}
	return decodeState([]byte(raw))
}

func (s *SQLiteStateStore) Save(ctx context.Context, st *SyncState) error {
	data, err := json.Marshal(st)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal state")
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO sync_state (id, state, updated_at) VALUES (1, ?, ?)
		 ON CONFLICT (id) DO UPDATE SET state = excluded.state, updated_at = excluded.updated_at`,
		string(data), time.Now().UTC(),
	)
	return eris.Wrap(err, "sqlite: save state")
}

func (s *SQLiteStateStore) Clear(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM sync_state`)
	return eris.Wrap(err, "sqlite: clear state")
}

// PostgresStateStore keeps the state in catalog.sync_state.
type PostgresStateStore struct {
	pool db.Pool
}

// NewPostgresStateStore creates a store over pool. The table comes from the
// catalog migrations.
func NewPostgresStateStore(pool db.Pool) *PostgresStateStore {
	return &PostgresStateStore{pool: pool}
}

func (s *PostgresStateStore) Load(ctx context.Context) (*SyncState, error) {
	var raw []byte
	err := s.pool.QueryRow(ctx, `SELECT state FROM catalog.sync_state WHERE id = 1`).Scan(&raw)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, eris.Wrap(err, "postgres: load state")
	}
	return decodeState(raw)
}

func (s *PostgresStateStore) Save(ctx context.Context, st *SyncState) error {
	data, err := json.Marshal(st)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal state")
	}
	_, err = s.pool.Exec(ctx,
		`INSERT INTO catalog.sync_state (id, state, updated_at) VALUES (1, $1, now())
		 ON CONFLICT (id) DO UPDATE SET state = $1, updated_at = now()`,
		data,
	)
	return eris.Wrap(err, "postgres: save state")
}

func (s *PostgresStateStore) Clear(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM catalog.sync_state`)
	return eris.Wrap(err, "postgres: clear state")
}

func decodeState(data []byte) (*SyncState, error) {
	var st SyncState
	if err := json.Unmarshal(data, &st); err != nil {
		return nil, eris.Wrap(err, "catalogsync: decode state")
	}
	if _, err := ParsePhase(string(st.Phase)); err != nil {
		return nil, err
	}
	for _, p := range Phases {
		st.Of(p)
	}
	return &st, nil
}

// MemoryStateStore holds the state in process. It backs dry runs and tests.
type MemoryStateStore struct {
	mu    sync.Mutex
	state *SyncState
	saves int
}

func (m *MemoryStateStore) Load(context.Context) (*SyncState, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.Clone(), nil
}

func (m *MemoryStateStore) Save(_ context.Context, s *SyncState) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state = s.Clone()
	m.saves++
	return nil
}

func (m *MemoryStateStore) Clear(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state = nil
	return nil
}

// Saves returns how many times Save ran.
func (m *MemoryStateStore) Saves() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saves
}
