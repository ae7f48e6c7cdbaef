package patcher

import (
	"context"
	"errors"
	"sync"
	"time"

	"compat-merger/core/job"
	"compat-merger/core/logger"
	"compat-merger/feature/transform"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ErrBusy is returned when a job is started while another one runs. Scans and
// generations share the installation and the patch file.
var ErrBusy = errors.New("another job is running")

// Finished jobs kept for polling.
const maxJobs = 64

// Kind names what a job does.
type Kind string

const (
	KindScan     Kind = "scan"
	KindGenerate Kind = "generate"
)

// Status is the pollable view of a job.
type Status struct {
	ID        string    `json:"id"`
	Kind      Kind      `json:"kind"`
	State     string    `json:"state"`
	Stage     string    `json:"stage"`
	Done      int       `json:"done"`
	Total     int       `json:"total"`
	Phase     int       `json:"phase"`
	Phases    int       `json:"phases"`
	Fraction  float64   `json:"fraction"`
	StartedAt time.Time `json:"started_at"`
	Error     string    `json:"error,omitempty"`
	Result    any       `json:"result,omitempty"`
}

// Terminal reports whether the job has finished.
func (s Status) Terminal() bool {
	return s.State != job.StateInProgress.String()
}

type tracked interface {
	status() Status
	cancel()
	finished() <-chan struct{}
}

type entry[T any] struct {
	id      string
	kind    Kind
	started time.Time
	future  *job.Future[T]
}

func (e *entry[T]) status() Status {
	res := e.future.Poll()
	st := Status{
		ID:        e.id,
		Kind:      e.kind,
		State:     res.State.String(),
		Stage:     res.Progress.Stage,
		Done:      res.Progress.Done,
		Total:     res.Progress.Total,
		Phase:     res.Progress.Phase,
		Phases:    res.Progress.Phases,
		Fraction:  res.Progress.Fraction(),
		StartedAt: e.started,
	}
	if res.Err != nil {
		st.Error = res.Err.Error()
	}
	if res.State == job.StateDone {
		st.Result = res.Value
	}
	return st
}

func (e *entry[T]) cancel()                   { e.future.Cancel() }
func (e *entry[T]) finished() <-chan struct{} { return e.future.Done() }

// Jobs runs scans and generations in the background, one at a time, and
// keeps the latest snapshot for later generations.
type Jobs struct {
	svc    *Service
	logger *zap.Logger
	ctx    context.Context
	stop   context.CancelFunc

	mu       sync.Mutex
	jobs     map[string]tracked
	order    []string
	active   tracked
	snapshot *Snapshot
}

// NewJobs creates an empty registry.
func NewJobs(svc *Service, logger *zap.Logger) *Jobs {
	ctx, stop := context.WithCancel(context.Background())
	return &Jobs{
		svc:    svc,
		logger: logger,
		ctx:    ctx,
		stop:   stop,
		jobs:   make(map[string]tracked),
	}
}

// Snapshot returns the result of the last successful scan, or nil.
func (j *Jobs) Snapshot() *Snapshot {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.snapshot
}

func (j *Jobs) setSnapshot(s *Snapshot) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.snapshot = s
}

func (j *Jobs) busy() bool {
	if j.active == nil {
		return false
	}
	select {
	case <-j.active.finished():
		return false
	default:
		return true
	}
}

func start[T any](j *Jobs, kind Kind, fn func(ctx context.Context, t *job.Tracker, l *zap.Logger) (T, error)) (string, error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.busy() {
		return "", ErrBusy
	}

	id := uuid.NewString()
	l := logger.WithJob(j.logger, id).With(zap.String("kind", string(kind)))
	l.Info("Job started")

	e := &entry[T]{
		id:      id,
		kind:    kind,
		started: time.Now(),
		future: job.Start(j.ctx, job.NewTracker(), func(ctx context.Context, t *job.Tracker) (T, error) {
			v, err := fn(ctx, t, l)
			if err != nil {
				l.Warn("Job ended", zap.Error(err))
			} else {
				l.Info("Job finished")
			}
			return v, err
		}),
	}
	j.jobs[id] = e
	j.order = append(j.order, id)
	j.active = e
	j.prune()
	return id, nil
}

// prune drops the oldest finished jobs beyond maxJobs. Caller holds mu.
func (j *Jobs) prune() {
	for len(j.order) > maxJobs {
		oldest := j.jobs[j.order[0]]
		select {
		case <-oldest.finished():
		default:
			return
		}
		delete(j.jobs, j.order[0])
		j.order = j.order[1:]
	}
}

// StartScan indexes the installation in the background.
func (j *Jobs) StartScan() (string, error) {
	return start(j, KindScan, func(ctx context.Context, t *job.Tracker, _ *zap.Logger) (Summary, error) {
		t.SetPhases(ScanPhases)
		snap, err := j.svc.Scan(ctx, t)
		if err != nil {
			return Summary{}, err
		}
		j.setSnapshot(snap)
		return snap.Summary, nil
	})
}

// StartGenerate writes a patch in the background. Without a previous scan
// the job scans first.
func (j *Jobs) StartGenerate(sel transform.Selection) (string, error) {
	if err := sel.Validate(); err != nil {
		return "", err
	}
	return start(j, KindGenerate, func(ctx context.Context, t *job.Tracker, l *zap.Logger) (*transform.Report, error) {
		snap := j.Snapshot()
		if snap != nil {
			t.SetPhases(GeneratePhases)
		} else {
			t.SetPhases(ScanPhases + GeneratePhases)
			l.Info("No scan available, scanning first")
			var err error
			if snap, err = j.svc.Scan(ctx, t); err != nil {
				return nil, err
			}
			j.setSnapshot(snap)
		}
		return j.svc.Generate(ctx, snap, sel, t)
	})
}

// Status returns the current state of a job.
func (j *Jobs) Status(id string) (Status, bool) {
	j.mu.Lock()
	e, ok := j.jobs[id]
	j.mu.Unlock()
	if !ok {
		return Status{}, false
	}
	return e.status(), true
}

// Wait blocks until the job finishes or ctx is done.
func (j *Jobs) Wait(ctx context.Context, id string) (Status, bool) {
	j.mu.Lock()
	e, ok := j.jobs[id]
	j.mu.Unlock()
	if !ok {
		return Status{}, false
	}
	select {
	case <-e.finished():
	case <-ctx.Done():
	}
	return e.status(), true
}

// Cancel requests cancellation of a job. Finished jobs are unaffected.
func (j *Jobs) Cancel(id string) bool {
	j.mu.Lock()
	e, ok := j.jobs[id]
	j.mu.Unlock()
	if ok {
		e.cancel()
	}
	return ok
}

// Shutdown cancels every running job.
func (j *Jobs) Shutdown() {
	j.stop()
}
