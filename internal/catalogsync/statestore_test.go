package catalogsync

import (
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSQLiteStateStore(t *testing.T) *SQLiteStateStore {
	t.Helper()
	st, err := NewSQLiteStateStore(context.Background(), filepath.Join(t.TempDir(), "state.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() }) //nolint:errcheck
	return st
}

func TestSQLiteStateStore_SaveLoadClear(t *testing.T) {
	st := newTestSQLiteStateStore(t)
	ctx := context.Background()

	now := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)
	state := NewState("run-1", now)
	state.Advance(now.Add(time.Minute))
	state.Report(40, 80, now.Add(2*time.Minute))
	state.RecordError(errors.New("write timeout"), now.Add(3*time.Minute))

	require.NoError(t, st.Save(ctx, state))

	got, err := st.Load(ctx)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "run-1", got.RunID)
	assert.Equal(t, PhaseTransformLoad, got.Phase)
	assert.InDelta(t, 100.0, got.Of(PhaseFetch).Percent, 0.001)
	assert.InDelta(t, 50.0, got.Of(PhaseTransformLoad).Percent, 0.001)
	assert.Equal(t, "write timeout", got.Of(PhaseTransformLoad).Error)
	assert.Equal(t, []string{"transform-load: write timeout"}, got.Errors)
	assert.True(t, got.Of(PhaseTransformLoad).LastActivity.Equal(now.Add(2*time.Minute)))

	require.NoError(t, st.Clear(ctx))
	got, err = st.Load(ctx)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestSQLiteStateStore_Overwrite(t *testing.T) {
	st := newTestSQLiteStateStore(t)
	ctx := context.Background()

	state := NewState("run-1", time.Now())
	require.NoError(t, st.Save(ctx, state))
	state.Advance(time.Now())
	state.Advance(time.Now())
	require.NoError(t, st.Save(ctx, state))

	got, err := st.Load(ctx)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, PhaseIndexPublish, got.Phase)
}

func TestSQLiteStateStore_LoadMissing(t *testing.T) {
	st := newTestSQLiteStateStore(t)
	got, err := st.Load(context.Background())
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestPostgresStateStore_Load(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	data, err := json.Marshal(NewState("run-7", time.Now()))
	require.NoError(t, err)
	mock.ExpectQuery("SELECT state FROM catalog.sync_state").
		WillReturnRows(pgxmock.NewRows([]string{"state"}).AddRow(data))

	got, err := NewPostgresStateStore(mock).Load(context.Background())
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "run-7", got.RunID)
	assert.Equal(t, PhaseFetch, got.Phase)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStateStore_LoadMissing(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectQuery("SELECT state FROM catalog.sync_state").
		WillReturnRows(pgxmock.NewRows([]string{"state"}))

	got, err := NewPostgresStateStore(mock).Load(context.Background())
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestPostgresStateStore_SaveAndClear(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectExec("INSERT INTO catalog.sync_state .* ON CONFLICT \\(id\\) DO UPDATE").
		WithArgs(pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec("DELETE FROM catalog.sync_state").
		WillReturnResult(pgxmock.NewResult("DELETE", 1))

	st := NewPostgresStateStore(mock)
	require.NoError(t, st.Save(context.Background(), NewState("run-7", time.Now())))
	require.NoError(t, st.Clear(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStateStore_SaveError(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectExec("INSERT INTO catalog.sync_state").
		WithArgs(pgxmock.AnyArg()).
		WillReturnError(errors.New("connection refused"))

	err = NewPostgresStateStore(mock).Save(context.Background(), NewState("r", time.Now()))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "postgres: save state")
}

func TestDecodeState_RejectsUnknownPhase(t *testing.T) {
	_, err := decodeState([]byte(`{"run_id":"x","phase":"publish"}`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown phase")
}

func TestDecodeState_FillsMissingProgress(t *testing.T) {
	st, err := decodeState([]byte(`{"run_id":"x","phase":"index-publish"}`))
	require.NoError(t, err)
	for _, p := range Phases {
		assert.NotNil(t, st.Progress[p])
	}
}

func TestState_Lifecycle(t *testing.T) {
	now := time.Now()
	s := NewState("r", now)
	assert.Equal(t, PhaseFetch, s.Phase)
	assert.False(t, s.Complete())

	s.Report(5, 0, now.Add(time.Second))
	assert.Zero(t, s.Of(PhaseFetch).Percent, "unknown total leaves percent alone")
	assert.Equal(t, time.Second, s.Idle(now.Add(2*time.Second)))

	s.Report(200, 100, now.Add(2*time.Second))
	assert.InDelta(t, 100.0, s.Of(PhaseFetch).Percent, 0.001, "percent is capped")

	assert.Equal(t, PhaseTransformLoad, s.Advance(now))
	s.Report(10, 100, now)
	s.Restart(now)
	assert.Zero(t, s.Of(PhaseTransformLoad).Percent)
	assert.Equal(t, 1, s.Of(PhaseTransformLoad).Restarts)
	assert.InDelta(t, 100.0, s.Of(PhaseFetch).Percent, 0.001)

	assert.Equal(t, PhaseIndexPublish, s.Advance(now))
	assert.Equal(t, PhaseComplete, s.Advance(now))
	assert.Equal(t, PhaseComplete, s.Advance(now))
	assert.True(t, s.Complete())
	assert.NotNil(t, s.CompletedAt)
}

func TestState_ErrorsBounded(t *testing.T) {
	s := NewState("r", time.Now())
	for range maxStateErrors + 10 {
		s.RecordError(errors.New("boom"), time.Now())
	}
	assert.Len(t, s.Errors, maxStateErrors)
	s.RecordError(nil, time.Now())
	assert.Len(t, s.Errors, maxStateErrors)
}

func TestState_CloneIsIndependent(t *testing.T) {
	s := NewState("r", time.Now())
	c := s.Clone()
	c.Of(PhaseFetch).Percent = 50
	c.Errors = append(c.Errors, "x")
	assert.Zero(t, s.Of(PhaseFetch).Percent)
	assert.Empty(t, s.Errors)
	assert.Nil(t, (*SyncState)(nil).Clone())
}

func TestParsePhase(t *testing.T) {
	tests := []struct {
		in      string
		want    Phase
		wantErr bool
	}{
		{"fetch", PhaseFetch, false},
		{"transform-load", PhaseTransformLoad, false},
		{"index-publish", PhaseIndexPublish, false},
		{"complete", PhaseComplete, false},
		{"load", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParsePhase(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSyncLog_StartCompleteFail(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectQuery("INSERT INTO catalog.sync_log").
		WithArgs("run-1").
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(int64(42)))
	mock.ExpectExec("UPDATE catalog.sync_log\\s+SET status = 'complete'").
		WithArgs(pgxmock.AnyArg(), int64(42)).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectExec("UPDATE catalog.sync_log\\s+SET status = 'failed'").
		WithArgs("boom", int64(43)).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	l := NewSyncLog(mock)
	id, err := l.Start(context.Background(), "run-1")
	require.NoError(t, err)
	assert.Equal(t, int64(42), id)
	require.NoError(t, l.Complete(context.Background(), id, &Summary{RunID: "run-1", Inserted: 3}))
	require.NoError(t, l.Fail(context.Background(), 43, "boom"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSyncLog_LastSuccess(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	ts := time.Date(2026, 1, 5, 8, 0, 0, 0, time.UTC)
	mock.ExpectQuery("SELECT started_at FROM catalog.sync_log").
		WillReturnRows(pgxmock.NewRows([]string{"started_at"}).AddRow(ts))
	mock.ExpectQuery("SELECT started_at FROM catalog.sync_log").
		WillReturnRows(pgxmock.NewRows([]string{"started_at"}))

	l := NewSyncLog(mock)
	got, err := l.LastSuccess(context.Background())
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.True(t, got.Equal(ts))

	got, err = l.LastSuccess(context.Background())
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestSyncLog_List(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	started := time.Date(2026, 1, 5, 8, 0, 0, 0, time.UTC)
	completed := started.Add(20 * time.Minute)
	errMsg := "fetch: list /ftpdownloads: timeout"
	mock.ExpectQuery("SELECT id, run_id, status, started_at, completed_at, error, metadata").
		WithArgs(5).
		WillReturnRows(pgxmock.NewRows([]string{"id", "run_id", "status", "started_at", "completed_at", "error", "metadata"}).
			AddRow(int64(2), "run-b", StatusFailed, started, &completed, &errMsg, []byte(`{}`)).
			AddRow(int64(1), "run-a", StatusComplete, started.Add(-time.Hour), &completed, (*string)(nil), []byte(`{"inserted":12}`)))

	entries, err := NewSyncLog(mock).List(context.Background(), 5)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, errMsg, entries[0].Error)
	assert.Equal(t, "run-a", entries[1].RunID)
	assert.InDelta(t, 12.0, entries[1].Metadata["inserted"], 0.001)
}
