package catalogsync

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/sells-group/catalog-sync/internal/metrics"
)

func init() {
	zap.ReplaceGlobals(zap.NewNop())
}

func fastOptions() Options {
	return Options{
		MonitorInterval:  10 * time.Millisecond,
		StallThreshold:   40 * time.Millisecond,
		MaxPhaseRestarts: 3,
	}
}

// countingPhase returns a phase that reports n units and succeeds.
func countingPhase(calls *atomic.Int32, res *PhaseResult) PhaseFunc {
	return func(_ context.Context, report ProgressFunc) (*PhaseResult, error) {
		calls.Add(1)
		report(5, 10)
		report(10, 10)
		return res, nil
	}
}

type fakeRunLog struct {
	mu        sync.Mutex
	started   []string
	completed []*Summary
	failed    []string
}

func (f *fakeRunLog) Start(_ context.Context, runID string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.started = append(f.started, runID)
	return int64(len(f.started)), nil
}

func (f *fakeRunLog) Complete(_ context.Context, _ int64, s *Summary) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.completed = append(f.completed, s)
	return nil
}

func (f *fakeRunLog) Fail(_ context.Context, _ int64, msg string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failed = append(f.failed, msg)
	return nil
}

func TestNew_RequiresEveryPhase(t *testing.T) {
	var calls atomic.Int32
	_, err := New(map[Phase]PhaseFunc{
		PhaseFetch: countingPhase(&calls, nil),
	}, nil, fastOptions())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "transform-load")
}

func TestRun_CompletesAllPhases(t *testing.T) {
	var fetch, load, publish atomic.Int32
	states := &MemoryStateStore{}
	runLog := &fakeRunLog{}

	o, err := New(map[Phase]PhaseFunc{
		PhaseFetch:         countingPhase(&fetch, &PhaseResult{Files: []string{"inv.txt"}}),
		PhaseTransformLoad: countingPhase(&load, &PhaseResult{Processed: 3, Inserted: 2, Updated: 1, QuantityUpdated: 2, Deleted: 1, Malformed: 1}),
		PhaseIndexPublish:  countingPhase(&publish, &PhaseResult{Published: 3}),
	}, states, fastOptions(), WithRunLog(runLog))
	require.NoError(t, err)

	summary, err := o.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, StatusComplete, summary.Status)
	assert.Equal(t, PhaseComplete, summary.Phase)
	assert.False(t, summary.Resumed)
	assert.Equal(t, 3, summary.Processed)
	assert.Equal(t, 2, summary.Inserted)
	assert.Equal(t, 1, summary.Updated)
	assert.Equal(t, 2, summary.QuantityUpdated)
	assert.Equal(t, 1, summary.Deleted)
	assert.Equal(t, 1, summary.Malformed)
	assert.Equal(t, 3, summary.Published)
	assert.Zero(t, summary.Restarts)

	assert.Equal(t, int32(1), fetch.Load())
	assert.Equal(t, int32(1), load.Load())
	assert.Equal(t, int32(1), publish.Load())

	stored, err := states.Load(context.Background())
	require.NoError(t, err)
	assert.Nil(t, stored, "state is cleared after completion")

	final := o.State()
	require.NotNil(t, final)
	assert.True(t, final.Complete())

	require.Len(t, runLog.completed, 1)
	assert.Equal(t, summary.RunID, runLog.started[0])
	assert.Empty(t, runLog.failed)
}

func TestRun_StallRestartsOnlyCurrentPhase(t *testing.T) {
	var fetch, load, publish atomic.Int32
	states := &MemoryStateStore{}
	reg := metrics.NewRegistry()

	var fetchAtStall *PhaseProgress
	transformLoad := func(ctx context.Context, report ProgressFunc) (*PhaseResult, error) {
		if load.Add(1) == 1 {
			st, err := states.Load(ctx)
			if err != nil {
				return nil, err
			}
			fetchAtStall = st.Of(PhaseFetch)
			report(1, 100)
			// Hang until the monitor cancels the attempt.
			<-ctx.Done()
			return nil, context.Cause(ctx)
		}
		report(100, 100)
		return &PhaseResult{Processed: 100, Inserted: 100}, nil
	}

	o, err := New(map[Phase]PhaseFunc{
		PhaseFetch:         countingPhase(&fetch, &PhaseResult{}),
		PhaseTransformLoad: transformLoad,
		PhaseIndexPublish:  countingPhase(&publish, &PhaseResult{Published: 100}),
	}, states, fastOptions(), WithMetrics(reg))
	require.NoError(t, err)

	summary, err := o.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, StatusComplete, summary.Status)
	assert.Equal(t, 1, summary.Stalls)
	assert.Equal(t, 1, summary.Restarts)

	assert.Equal(t, int32(1), fetch.Load(), "fetch is not rerun")
	assert.Equal(t, int32(2), load.Load())
	assert.Equal(t, int32(1), publish.Load())

	final := o.State()
	require.NotNil(t, fetchAtStall)
	assert.Equal(t, *fetchAtStall, *final.Of(PhaseFetch), "fetch progress untouched by the restart")
	assert.Zero(t, final.Of(PhaseFetch).Restarts)

	tl := final.Of(PhaseTransformLoad)
	assert.Equal(t, 1, tl.Restarts)
	assert.Equal(t, 1, tl.Stalls)
	assert.InDelta(t, 100.0, tl.Percent, 0.001)
	assert.Contains(t, final.Errors[0], "transform-load")

	assert.InDelta(t, 1.0, testutil.ToFloat64(reg.Stalls.WithLabelValues("transform-load")), 0.001)
	assert.InDelta(t, 1.0, testutil.ToFloat64(reg.PhaseRestarts.WithLabelValues("transform-load")), 0.001)
	assert.InDelta(t, 1.0, testutil.ToFloat64(reg.Runs.WithLabelValues(StatusComplete)), 0.001)
}

func TestRun_ActivePhaseIsNotStalled(t *testing.T) {
	var fetch, publish atomic.Int32
	load := func(ctx context.Context, report ProgressFunc) (*PhaseResult, error) {
		// Runs well past the stall threshold but keeps reporting.
		for i := range 20 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(5 * time.Millisecond):
			}
			report(i+1, 20)
		}
		return &PhaseResult{}, nil
	}

	o, err := New(map[Phase]PhaseFunc{
		PhaseFetch:         countingPhase(&fetch, nil),
		PhaseTransformLoad: load,
		PhaseIndexPublish:  countingPhase(&publish, nil),
	}, nil, fastOptions())
	require.NoError(t, err)

	summary, err := o.Run(context.Background())
	require.NoError(t, err)
	assert.Zero(t, summary.Stalls)
	assert.Zero(t, summary.Restarts)
}

func TestRun_FailureRestartsSamePhase(t *testing.T) {
	var fetch, load, publish atomic.Int32
	flaky := func(_ context.Context, report ProgressFunc) (*PhaseResult, error) {
		if publish.Add(1) < 3 {
			return nil, errors.New("index unavailable")
		}
		report(1, 1)
		return &PhaseResult{Published: 1}, nil
	}

	o, err := New(map[Phase]PhaseFunc{
		PhaseFetch:         countingPhase(&fetch, nil),
		PhaseTransformLoad: countingPhase(&load, nil),
		PhaseIndexPublish:  flaky,
	}, nil, fastOptions())
	require.NoError(t, err)

	summary, err := o.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, summary.Restarts)
	assert.Equal(t, int32(1), fetch.Load())
	assert.Equal(t, int32(1), load.Load())
	assert.Equal(t, int32(3), publish.Load())
}

func TestRun_PhaseFailureKeepsState(t *testing.T) {
	var fetch, load, publish atomic.Int32
	states := &MemoryStateStore{}
	runLog := &fakeRunLog{}

	opts := fastOptions()
	opts.MaxPhaseRestarts = 1
	o, err := New(map[Phase]PhaseFunc{
		PhaseFetch:         countingPhase(&fetch, nil),
		PhaseTransformLoad: countingPhase(&load, nil),
		PhaseIndexPublish: func(context.Context, ProgressFunc) (*PhaseResult, error) {
			publish.Add(1)
			return nil, errors.New("index unreachable")
		},
	}, states, opts, WithRunLog(runLog))
	require.NoError(t, err)

	summary, err := o.Run(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrPhaseFailure))
	assert.Equal(t, StatusFailed, summary.Status)
	assert.Equal(t, PhaseIndexPublish, summary.Phase)
	assert.Equal(t, int32(2), publish.Load())

	stored, err := states.Load(context.Background())
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, PhaseIndexPublish, stored.Phase)
	assert.InDelta(t, 100.0, stored.Of(PhaseFetch).Percent, 0.001)
	assert.InDelta(t, 100.0, stored.Of(PhaseTransformLoad).Percent, 0.001)
	assert.Equal(t, "index unreachable", stored.Of(PhaseIndexPublish).Error)
	assert.Len(t, stored.Errors, 2)

	require.Len(t, runLog.failed, 1)
	assert.Contains(t, runLog.failed[0], "index-publish")
}

func TestRun_ResumesFromStoredPhase(t *testing.T) {
	var fetch, load, publish atomic.Int32
	states := &MemoryStateStore{}

	prior := NewState("run-prior", time.Now().Add(-time.Hour))
	prior.Advance(time.Now().Add(-50 * time.Minute))
	prior.Advance(time.Now().Add(-40 * time.Minute))
	require.NoError(t, states.Save(context.Background(), prior))

	o, err := New(map[Phase]PhaseFunc{
		PhaseFetch:         countingPhase(&fetch, nil),
		PhaseTransformLoad: countingPhase(&load, nil),
		PhaseIndexPublish:  countingPhase(&publish, &PhaseResult{Published: 7}),
	}, states, fastOptions())
	require.NoError(t, err)

	summary, err := o.Run(context.Background())
	require.NoError(t, err)
	assert.True(t, summary.Resumed)
	assert.Equal(t, "run-prior", summary.RunID)
	assert.Equal(t, 7, summary.Published)
	assert.Zero(t, fetch.Load())
	assert.Zero(t, load.Load())
	assert.Equal(t, int32(1), publish.Load())
}

func TestRun_CompletedStateStartsFresh(t *testing.T) {
	var fetch, load, publish atomic.Int32
	states := &MemoryStateStore{}

	done := NewState("run-done", time.Now())
	for range Phases {
		done.Advance(time.Now())
	}
	require.NoError(t, states.Save(context.Background(), done))

	o, err := New(map[Phase]PhaseFunc{
		PhaseFetch:         countingPhase(&fetch, nil),
		PhaseTransformLoad: countingPhase(&load, nil),
		PhaseIndexPublish:  countingPhase(&publish, nil),
	}, states, fastOptions())
	require.NoError(t, err)

	summary, err := o.Run(context.Background())
	require.NoError(t, err)
	assert.False(t, summary.Resumed)
	assert.NotEqual(t, "run-done", summary.RunID)
	assert.Equal(t, int32(1), fetch.Load())
}

func TestRun_CancelPersistsCurrentPhase(t *testing.T) {
	var fetch, publish atomic.Int32
	states := &MemoryStateStore{}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	o, err := New(map[Phase]PhaseFunc{
		PhaseFetch: countingPhase(&fetch, nil),
		PhaseTransformLoad: func(ctx context.Context, report ProgressFunc) (*PhaseResult, error) {
			report(3, 10)
			cancel()
			<-ctx.Done()
			return nil, ctx.Err()
		},
		PhaseIndexPublish: countingPhase(&publish, nil),
	}, states, fastOptions())
	require.NoError(t, err)

	summary, err := o.Run(ctx)
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
	assert.Equal(t, PhaseTransformLoad, summary.Phase)
	assert.Zero(t, publish.Load())

	stored, err := states.Load(context.Background())
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, PhaseTransformLoad, stored.Phase)
	assert.InDelta(t, 30.0, stored.Of(PhaseTransformLoad).Percent, 0.001)
	assert.Zero(t, stored.Of(PhaseTransformLoad).Restarts)
}

func TestRun_AbandonsPhaseIgnoringCancellation(t *testing.T) {
	var fetch, publish atomic.Int32
	release := make(chan struct{})
	t.Cleanup(func() { close(release) })

	opts := fastOptions()
	opts.MaxPhaseRestarts = 0
	o, err := New(map[Phase]PhaseFunc{
		PhaseFetch: countingPhase(&fetch, nil),
		PhaseTransformLoad: func(context.Context, ProgressFunc) (*PhaseResult, error) {
			<-release
			return nil, nil
		},
		PhaseIndexPublish: countingPhase(&publish, nil),
	}, nil, opts)
	require.NoError(t, err)

	summary, err := o.Run(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrPhaseFailure))
	assert.Equal(t, 1, summary.Stalls)
	assert.Zero(t, publish.Load())
}

func TestRun_RestartWaitsForAbandonedAttempt(t *testing.T) {
	var (
		calls    atomic.Int32
		inflight atomic.Int32
		peak     atomic.Int32
	)
	var fetch, publish atomic.Int32

	opts := fastOptions()
	opts.AbandonWait = time.Second
	o, err := New(map[Phase]PhaseFunc{
		PhaseFetch: countingPhase(&fetch, nil),
		PhaseTransformLoad: func(_ context.Context, report ProgressFunc) (*PhaseResult, error) {
			n := inflight.Add(1)
			defer inflight.Add(-1)
			for {
				p := peak.Load()
				if n <= p || peak.CompareAndSwap(p, n) {
					break
				}
			}
			if calls.Add(1) == 1 {
				// ignores ctx well past the abandon tick
				time.Sleep(200 * time.Millisecond)
				return nil, nil
			}
			report(1, 1)
			return &PhaseResult{Processed: 1}, nil
		},
		PhaseIndexPublish: countingPhase(&publish, nil),
	}, nil, opts)
	require.NoError(t, err)

	summary, err := o.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, StatusComplete, summary.Status)
	assert.Equal(t, int32(2), calls.Load())
	assert.Equal(t, int32(1), peak.Load(), "attempts must not overlap")
	assert.Equal(t, 1, summary.Stalls)
	assert.Equal(t, 1, summary.Processed)
}

func TestRun_AbandonedAttemptBlocksRestart(t *testing.T) {
	var calls, fetch, publish atomic.Int32
	release := make(chan struct{})
	t.Cleanup(func() { close(release) })

	opts := fastOptions()
	opts.MaxPhaseRestarts = 1
	opts.AbandonWait = 30 * time.Millisecond
	o, err := New(map[Phase]PhaseFunc{
		PhaseFetch: countingPhase(&fetch, nil),
		PhaseTransformLoad: func(context.Context, ProgressFunc) (*PhaseResult, error) {
			calls.Add(1)
			<-release
			return nil, nil
		},
		PhaseIndexPublish: countingPhase(&publish, nil),
	}, nil, opts)
	require.NoError(t, err)

	_, err = o.Run(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrPhaseFailure))
	assert.Contains(t, err.Error(), "abandoned attempt still running")
	assert.Equal(t, int32(1), calls.Load())
	assert.Zero(t, publish.Load())
}

func TestRunEvery_RunsUntilCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	var runs atomic.Int32

	err := RunEvery(ctx, 5*time.Millisecond, func(context.Context) error {
		if runs.Add(1) == 3 {
			cancel()
		}
		return errors.New("keep going")
	})
	require.NoError(t, err)
	assert.Equal(t, int32(3), runs.Load())
}
