package job

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// ErrCancelled marks an operation that stopped because cancellation was
// requested. It is a terminal state, not a failure.
var ErrCancelled = errors.New("operation cancelled")

// Progress is a point-in-time view of a tracker. Done and Total count the
// units of the current phase. Phase is 1-based; Phases is 0 when the caller
// did not declare how many phases the operation has.
type Progress struct {
	Stage  string `json:"stage"`
	Done   int    `json:"done"`
	Total  int    `json:"total"`
	Phase  int    `json:"phase"`
	Phases int    `json:"phases"`
}

// Fraction returns the completed share of the operation in [0, 1]. With
// declared phases each phase is an equal slice, so the value never falls
// when the next phase starts. Otherwise it is Done/Total of the current phase.
func (p Progress) Fraction() float64 {
	f := 0.0
	if p.Total > 0 {
		f = min(float64(p.Done)/float64(p.Total), 1)
	}
	if p.Phases <= 1 || p.Phase < 1 {
		return f
	}
	phase := min(p.Phase, p.Phases)
	return min((float64(phase-1)+f)/float64(p.Phases), 1)
}

// Tracker is shared between the worker running an operation and whoever
// observes it. All methods are safe for concurrent use.
type Tracker struct {
	mu        sync.Mutex
	stage     string
	done      int
	total     int
	phase     int
	phases    int
	cancelled bool
}

// NewTracker returns an idle tracker.
func NewTracker() *Tracker {
	return &Tracker{}
}

// SetStage records a human readable description of the current phase.
func (t *Tracker) SetStage(stage string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.stage = stage
}

// SetPhases declares how many phases (SetTotal calls) the operation will
// have. Call it before the first phase starts.
func (t *Tracker) SetPhases(n int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.phases = n
}

// SetTotal starts a new phase of total units and resets the counter.
func (t *Tracker) SetTotal(total int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.total = total
	t.done = 0
	t.phase++
}

// Advance adds n completed units. Negative values are ignored.
func (t *Tracker) Advance(n int) {
	if n <= 0 {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.done += n
}

// Snapshot returns the current progress.
func (t *Tracker) Snapshot() Progress {
	t.mu.Lock()
	defer t.mu.Unlock()
	return Progress{Stage: t.stage, Done: t.done, Total: t.total, Phase: t.phase, Phases: t.phases}
}

// Cancel requests cooperative cancellation.
func (t *Tracker) Cancel() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.cancelled = true
}

// Cancelled reports whether Cancel has been called.
func (t *Tracker) Cancelled() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.cancelled
}

// Checkpoint returns ErrCancelled when cancellation was requested on the
// tracker or ctx is done. Workers call it between records.
func (t *Tracker) Checkpoint(ctx context.Context) error {
	if t.Cancelled() {
		return ErrCancelled
	}
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrCancelled, err)
	}
	return nil
}
