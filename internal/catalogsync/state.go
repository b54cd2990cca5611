// Package catalogsync sequences the fetch, transform-load and index-publish
// phases of a catalog sync, persisting progress so an interrupted run
// resumes in the phase it stopped in.
package catalogsync

import (
	"time"

	"github.com/rotisserie/eris"
)

var (
	// ErrPhaseFailure marks a phase that exhausted its restarts. The state
	// stays in that phase.
	ErrPhaseFailure = eris.New("phase failure")

	// ErrStallDetected is the cancellation cause of a phase that reported
	// no activity for longer than the stall threshold.
	ErrStallDetected = eris.New("stall detected")

	// ErrAttemptRunning means an abandoned attempt of a phase had not
	// exited when its replacement was due to start.
	ErrAttemptRunning = eris.New("abandoned attempt still running")
)

// Phase names a sync stage.
type Phase string

const (
	PhaseFetch         Phase = "fetch"
	PhaseTransformLoad Phase = "transform-load"
	PhaseIndexPublish  Phase = "index-publish"
	PhaseComplete      Phase = "complete"
)

// Phases lists the working phases in execution order.
var Phases = []Phase{PhaseFetch, PhaseTransformLoad, PhaseIndexPublish}

// Next returns the phase that follows p.
func (p Phase) Next() Phase {
	switch p {
	case PhaseFetch:
		return PhaseTransformLoad
	case PhaseTransformLoad:
		return PhaseIndexPublish
	default:
		return PhaseComplete
	}
}

// ParsePhase converts a phase name into a Phase.
func ParsePhase(s string) (Phase, error) {
	switch p := Phase(s); p {
	case PhaseFetch, PhaseTransformLoad, PhaseIndexPublish, PhaseComplete:
		return p, nil
	default:
		return "", eris.Errorf("catalogsync: unknown phase %q", s)
	}
}

// maxStateErrors bounds SyncState.Errors.
const maxStateErrors = 50

// PhaseProgress tracks one phase across attempts.
type PhaseProgress struct {
	Percent      float64    `json:"percent"`
	Done         int        `json:"done"`
	Total        int        `json:"total"`
	LastActivity time.Time  `json:"last_activity"`
	StartedAt    *time.Time `json:"started_at,omitempty"`
	CompletedAt  *time.Time `json:"completed_at,omitempty"`
	Restarts     int        `json:"restarts"`
	Stalls       int        `json:"stalls"`
	Error        string     `json:"error,omitempty"`
}

// SyncState is the persisted position of a run. Only the orchestrator loop
// mutates it.
type SyncState struct {
	RunID       string                   `json:"run_id"`
	Phase       Phase                    `json:"phase"`
	Progress    map[Phase]*PhaseProgress `json:"progress"`
	Errors      []string                 `json:"errors,omitempty"`
	StartedAt   time.Time                `json:"started_at"`
	UpdatedAt   time.Time                `json:"updated_at"`
	CompletedAt *time.Time               `json:"completed_at,omitempty"`
}

// NewState starts a run in the fetch phase.
func NewState(runID string, now time.Time) *SyncState {
	s := &SyncState{
		RunID:     runID,
		Phase:     PhaseFetch,
		Progress:  make(map[Phase]*PhaseProgress, len(Phases)),
		StartedAt: now,
		UpdatedAt: now,
	}
	for _, p := range Phases {
		s.Progress[p] = &PhaseProgress{LastActivity: now}
	}
	return s
}

// Of returns the progress record for p, creating it for states loaded from
// older snapshots.
func (s *SyncState) Of(p Phase) *PhaseProgress {
	if s.Progress == nil {
		s.Progress = make(map[Phase]*PhaseProgress, len(Phases))
	}
	pp, ok := s.Progress[p]
	if !ok {
		pp = &PhaseProgress{LastActivity: s.UpdatedAt}
		s.Progress[p] = pp
	}
	return pp
}

// Begin marks the current phase as started at now.
func (s *SyncState) Begin(now time.Time) {
	pp := s.Of(s.Phase)
	if pp.StartedAt == nil {
		t := now
		pp.StartedAt = &t
	}
	pp.LastActivity = now
	s.UpdatedAt = now
}

// Report records done of total units for the current phase. A report is
// activity even when total is unknown.
func (s *SyncState) Report(done, total int, at time.Time) {
	pp := s.Of(s.Phase)
	pp.Done, pp.Total = done, total
	if total > 0 {
		pp.Percent = min(100, float64(done)*100/float64(total))
	}
	if at.After(pp.LastActivity) {
		pp.LastActivity = at
	}
	s.UpdatedAt = at
}

// Idle returns how long the current phase has been silent.
func (s *SyncState) Idle(now time.Time) time.Duration {
	return now.Sub(s.Of(s.Phase).LastActivity)
}

// Advance completes the current phase and moves to the next one.
func (s *SyncState) Advance(now time.Time) Phase {
	if s.Phase == PhaseComplete {
		return s.Phase
	}
	pp := s.Of(s.Phase)
	pp.Percent = 100
	pp.Error = ""
	t := now
	pp.CompletedAt = &t
	pp.LastActivity = now

	s.Phase = s.Phase.Next()
	s.UpdatedAt = now
	if s.Phase == PhaseComplete {
		s.CompletedAt = &t
	} else {
		s.Of(s.Phase).LastActivity = now
	}
	return s.Phase
}

// RecordError notes err against the current phase without leaving it.
func (s *SyncState) RecordError(err error, now time.Time) {
	if err == nil {
		return
	}
	msg := string(s.Phase) + ": " + err.Error()
	s.Of(s.Phase).Error = err.Error()
	s.Errors = append(s.Errors, msg)
	if len(s.Errors) > maxStateErrors {
		s.Errors = s.Errors[len(s.Errors)-maxStateErrors:]
	}
	s.UpdatedAt = now
}

// Restart resets the current phase for another attempt. Other phases are
// left as they are.
func (s *SyncState) Restart(now time.Time) {
	pp := s.Of(s.Phase)
	pp.Restarts++
	pp.Percent = 0
	pp.Done, pp.Total = 0, 0
	pp.LastActivity = now
	s.UpdatedAt = now
}

// Complete reports whether every phase reached 100%.
func (s *SyncState) Complete() bool {
	if s.Phase != PhaseComplete {
		return false
	}
	for _, p := range Phases {
		if s.Of(p).Percent < 100 {
			return false
		}
	}
	return true
}

// Clone returns a deep copy.
func (s *SyncState) Clone() *SyncState {
	if s == nil {
		return nil
	}
	out := *s
	out.Progress = make(map[Phase]*PhaseProgress, len(s.Progress))
	for k, v := range s.Progress {
		pp := *v
		out.Progress[k] = &pp
	}
	out.Errors = append([]string(nil), s.Errors...)
	return &out
}
