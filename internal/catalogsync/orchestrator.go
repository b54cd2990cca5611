package catalogsync

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/catalog-sync/internal/metrics"
)

// ProgressFunc reports done of total units. Every call counts as activity
// for stall detection; total may be 0 when unknown.
type ProgressFunc func(done, total int)

// PhaseResult holds the counters a phase produced.
type PhaseResult struct {
	Processed int `json:"processed"`
	Inserted  int `json:"inserted"`
	Updated   int `json:"updated"`
	// QuantityUpdated and Deleted count side-file hits. They stay out of
	// Updated, which counts inventory-feed updates only.
	QuantityUpdated int      `json:"quantity_updated"`
	Deleted         int      `json:"deleted"`
	Skipped         int      `json:"skipped"`
	Malformed       int      `json:"malformed"`
	Errored         int      `json:"errored"`
	Published       int      `json:"published"`
	Files           []string `json:"files,omitempty"`
	Errors          []string `json:"errors,omitempty"`
}

// PhaseFunc runs one phase. It must return promptly once ctx is done.
type PhaseFunc func(ctx context.Context, report ProgressFunc) (*PhaseResult, error)

// Summary describes a finished or interrupted run.
type Summary struct {
	RunID           string        `json:"run_id"`
	Status          string        `json:"status"`
	Phase           Phase         `json:"phase"`
	Resumed         bool          `json:"resumed"`
	Processed       int           `json:"processed"`
	Inserted        int           `json:"inserted"`
	Updated         int           `json:"updated"`
	QuantityUpdated int           `json:"quantity_updated"`
	Deleted         int           `json:"deleted"`
	Skipped         int           `json:"skipped"`
	Malformed       int           `json:"malformed"`
	Errored         int           `json:"errored"`
	Published       int           `json:"published"`
	Restarts        int           `json:"restarts"`
	Stalls          int           `json:"stalls"`
	Errors          []string      `json:"errors,omitempty"`
	Duration        time.Duration `json:"duration"`
}

func (s *Summary) add(r *PhaseResult) {
	if r == nil {
		return
	}
	s.Processed += r.Processed
	s.Inserted += r.Inserted
	s.Updated += r.Updated
	s.QuantityUpdated += r.QuantityUpdated
	s.Deleted += r.Deleted
	s.Skipped += r.Skipped
	s.Malformed += r.Malformed
	s.Errored += r.Errored
	s.Published += r.Published
	s.Errors = append(s.Errors, r.Errors...)
}

// Options tunes the orchestrator loop.
type Options struct {
	// MonitorInterval is how often progress is sampled and persisted.
	MonitorInterval time.Duration
	// StallThreshold is the idle time after which a phase is restarted.
	StallThreshold time.Duration
	// MaxPhaseRestarts bounds restarts per phase within a run.
	MaxPhaseRestarts int
	// AbandonWait bounds how long a new attempt waits for an abandoned
	// one to exit. Attempts never overlap; on timeout the new attempt
	// fails with ErrAttemptRunning.
	AbandonWait time.Duration
}

func (o Options) withDefaults() Options {
	if o.MonitorInterval <= 0 {
		o.MonitorInterval = 5 * time.Minute
	}
	if o.StallThreshold <= 0 {
		o.StallThreshold = 10 * time.Minute
	}
	if o.MaxPhaseRestarts < 0 {
		o.MaxPhaseRestarts = 0
	}
	if o.AbandonWait <= 0 {
		o.AbandonWait = o.StallThreshold
	}
	return o
}

// Orchestrator drives a SyncState through the phases.
type Orchestrator struct {
	phases  map[Phase]PhaseFunc
	states  StateStore
	runLog  RunLog
	metrics *metrics.Registry
	opts    Options
	now     func() time.Time
	log     *zap.Logger

	mu       sync.Mutex
	snapshot *SyncState
	// straggler is closed once the last abandoned attempt exits.
	straggler <-chan struct{}
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithRunLog records each run in l.
func WithRunLog(l RunLog) Option {
	return func(o *Orchestrator) { o.runLog = l }
}

// WithMetrics reports to reg.
func WithMetrics(reg *metrics.Registry) Option {
	return func(o *Orchestrator) { o.metrics = reg }
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) { o.now = now }
}

// New creates an Orchestrator. phases must cover fetch, transform-load and
// index-publish.
func New(phases map[Phase]PhaseFunc, states StateStore, opts Options, options ...Option) (*Orchestrator, error) {
	for _, p := range Phases {
		if phases[p] == nil {
			return nil, eris.Errorf("catalogsync: no function for phase %s", p)
		}
	}
	if states == nil {
		states = &MemoryStateStore{}
	}
	o := &Orchestrator{
		phases: phases,
		states: states,
		opts:   opts.withDefaults(),
		now:    time.Now,
		log:    zap.L().With(zap.String("component", "catalogsync")),
	}
	for _, fn := range options {
		fn(o)
	}
	return o, nil
}

// State returns a copy of the latest state, or nil before Run.
func (o *Orchestrator) State() *SyncState {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.snapshot.Clone()
}

// Run resumes the stored run or starts a new one and drives it to
// completion. On a phase failure the state is left in that phase and the
// error wraps ErrPhaseFailure.
func (o *Orchestrator) Run(ctx context.Context) (*Summary, error) {
	start := o.now()

	state, err := o.states.Load(ctx)
	if err != nil {
		return nil, eris.Wrap(err, "catalogsync: load state")
	}
	resumed := state != nil && state.Phase != PhaseComplete
	if !resumed {
		state = NewState(uuid.NewString(), start)
	}
	summary := &Summary{RunID: state.RunID, Resumed: resumed}
	log := o.log.With(zap.String("run_id", state.RunID))
	if resumed {
		log.Info("resuming sync", zap.String("phase", string(state.Phase)))
	} else {
		log.Info("starting sync")
	}

	var logID int64
	if o.runLog != nil {
		if logID, err = o.runLog.Start(ctx, state.RunID); err != nil {
			return nil, eris.Wrap(err, "catalogsync: record run start")
		}
	}
	if err := o.persist(ctx, state); err != nil {
		return nil, err
	}

	finish := func(status string, runErr error) (*Summary, error) {
		summary.Status = status
		summary.Phase = state.Phase
		summary.Duration = o.now().Sub(start)
		for _, p := range Phases {
			summary.Restarts += state.Of(p).Restarts
			summary.Stalls += state.Of(p).Stalls
		}
		o.metrics.RunFinished(status)

		bg := context.WithoutCancel(ctx)
		if o.runLog != nil {
			var lerr error
			if runErr == nil {
				lerr = o.runLog.Complete(bg, logID, summary)
			} else {
				lerr = o.runLog.Fail(bg, logID, runErr.Error())
			}
			if lerr != nil {
				log.Error("record run outcome", zap.Error(lerr))
			}
		}
		return summary, runErr
	}

	for state.Phase != PhaseComplete {
		if err := ctx.Err(); err != nil {
			o.persistQuiet(context.WithoutCancel(ctx), state)
			return finish(StatusFailed, eris.Wrap(err, "catalogsync: canceled"))
		}

		phase := state.Phase
		phaseStart := o.now()
		state.Begin(phaseStart)
		o.persistQuiet(ctx, state)

		res, err := o.runPhase(ctx, state)
		o.metrics.ObservePhase(string(phase), o.now().Sub(phaseStart))

		if err == nil {
			summary.add(res)
			state.Advance(o.now())
			o.metrics.SetProgress(string(phase), 100)
			log.Info("phase complete", zap.String("phase", string(phase)))
			if err := o.persist(ctx, state); err != nil {
				return finish(StatusFailed, err)
			}
			continue
		}

		if ctx.Err() != nil {
			o.persistQuiet(context.WithoutCancel(ctx), state)
			return finish(StatusFailed, eris.Wrapf(ctx.Err(), "catalogsync: %s interrupted", phase))
		}

		summary.add(res)
		state.RecordError(err, o.now())
		pp := state.Of(phase)
		if pp.Restarts >= o.opts.MaxPhaseRestarts {
			log.Error("phase failed",
				zap.String("phase", string(phase)),
				zap.Int("restarts", pp.Restarts),
				zap.Error(err),
			)
			o.persistQuiet(context.WithoutCancel(ctx), state)
			return finish(StatusFailed, eris.Wrapf(ErrPhaseFailure, "catalogsync: %s: %v", phase, err))
		}

		if !errors.Is(err, ErrStallDetected) {
			// Failures restart on the next monitor tick.
			log.Warn("phase failed, restarting", zap.String("phase", string(phase)), zap.Error(err))
			o.persistQuiet(ctx, state)
			if !sleep(ctx, o.opts.MonitorInterval) {
				continue
			}
		}
		state.Restart(o.now())
		o.metrics.PhaseRestarted(string(phase))
		o.persistQuiet(ctx, state)
	}

	summary.Phase = PhaseComplete
	if !state.Complete() {
		return finish(StatusFailed, eris.New("catalogsync: completed with phases below 100%"))
	}
	if err := o.states.Clear(ctx); err != nil {
		log.Warn("clear state", zap.Error(err))
	}
	o.setSnapshot(state)
	log.Info("sync complete",
		zap.Int("processed", summary.Processed),
		zap.Int("inserted", summary.Inserted),
		zap.Int("updated", summary.Updated),
		zap.Int("quantity_updated", summary.QuantityUpdated),
		zap.Int("deleted", summary.Deleted),
		zap.Int("skipped", summary.Skipped),
		zap.Int("errored", summary.Errored),
		zap.Int("published", summary.Published),
	)
	return finish(StatusComplete, nil)
}

type phaseOutcome struct {
	res *PhaseResult
	err error
}

// runPhase runs the current phase while sampling its progress on every
// monitor tick. A phase idle past the stall threshold is canceled with
// ErrStallDetected; one that then stays silent for another tick is
// abandoned, and the next attempt first waits for it to exit.
func (o *Orchestrator) runPhase(ctx context.Context, state *SyncState) (*PhaseResult, error) {
	phase := state.Phase
	fn := o.phases[phase]
	log := o.log.With(zap.String("run_id", state.RunID), zap.String("phase", string(phase)))

	if err := o.awaitStraggler(ctx, phase, log); err != nil {
		return nil, err
	}

	pctx, cancel := context.WithCancelCause(ctx)
	defer cancel(nil)

	tr := &tracker{}
	done := make(chan phaseOutcome, 1)
	exited := make(chan struct{})
	go func() {
		defer close(exited)
		res, err := fn(pctx, tr.report(o.now))
		done <- phaseOutcome{res: res, err: err}
	}()

	ticker := time.NewTicker(o.opts.MonitorInterval)
	defer ticker.Stop()

	stalled := false
	for {
		select {
		case out := <-done:
			o.sample(state, tr)
			if out.err != nil && stalled {
				return out.res, eris.Wrapf(ErrStallDetected, "catalogsync: %s idle", phase)
			}
			return out.res, out.err

		case <-ticker.C:
			o.sample(state, tr)
			o.metrics.SetProgress(string(phase), state.Of(phase).Percent)
			o.persistQuiet(ctx, state)

			if stalled {
				log.Warn("phase ignored cancellation, abandoning attempt")
				o.mu.Lock()
				o.straggler = exited
				o.mu.Unlock()
				return nil, eris.Wrapf(ErrStallDetected, "catalogsync: %s abandoned", phase)
			}
			idle := state.Idle(o.now())
			if idle > o.opts.StallThreshold {
				stalled = true
				state.Of(phase).Stalls++
				o.metrics.StallDetected(string(phase))
				log.Warn("stall detected", zap.Duration("idle", idle))
				cancel(ErrStallDetected)
			}
		}
	}
}

// awaitStraggler blocks until the last abandoned attempt has exited, so a
// restarted phase never runs alongside its predecessor.
func (o *Orchestrator) awaitStraggler(ctx context.Context, phase Phase, log *zap.Logger) error {
	o.mu.Lock()
	prev := o.straggler
	o.mu.Unlock()
	if prev == nil {
		return nil
	}

	select {
	case <-prev:
	default:
		log.Info("waiting for abandoned attempt to exit")
		timer := time.NewTimer(o.opts.AbandonWait)
		defer timer.Stop()
		select {
		case <-prev:
		case <-ctx.Done():
			return eris.Wrapf(ctx.Err(), "catalogsync: %s waiting for abandoned attempt", phase)
		case <-timer.C:
			return eris.Wrapf(ErrAttemptRunning, "catalogsync: %s", phase)
		}
	}

	o.mu.Lock()
	if o.straggler == prev {
		o.straggler = nil
	}
	o.mu.Unlock()
	return nil
}

func (o *Orchestrator) sample(state *SyncState, tr *tracker) {
	done, total, at, ok := tr.latest()
	if ok {
		state.Report(done, total, at)
	}
}

func (o *Orchestrator) persist(ctx context.Context, state *SyncState) error {
	o.setSnapshot(state)
	if err := o.states.Save(ctx, state); err != nil {
		return eris.Wrap(err, "catalogsync: save state")
	}
	return nil
}

func (o *Orchestrator) persistQuiet(ctx context.Context, state *SyncState) {
	if err := o.persist(ctx, state); err != nil {
		o.log.Warn("persist state", zap.Error(err))
	}
}

func (o *Orchestrator) setSnapshot(state *SyncState) {
	o.mu.Lock()
	o.snapshot = state.Clone()
	o.mu.Unlock()
}

// tracker carries the latest report from a phase goroutine to the loop.
type tracker struct {
	mu    sync.Mutex
	done  int
	total int
	at    time.Time
	seen  bool
}

func (t *tracker) report(now func() time.Time) ProgressFunc {
	return func(done, total int) {
		t.mu.Lock()
		t.done, t.total, t.at, t.seen = done, total, now(), true
		t.mu.Unlock()
	}
}

func (t *tracker) latest() (done, total int, at time.Time, ok bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.done, t.total, t.at, t.seen
}

// sleep waits for d or until ctx is done, reporting whether d elapsed.
func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
