package job

import (
	"context"
	"errors"
)

// State is the tag of a Result.
type State int

const (
	StateInProgress State = iota
	StateDone
	StateFailed
	StateCancelled
)

func (s State) String() string {
	switch s {
	case StateInProgress:
		return "in_progress"
	case StateDone:
		return "done"
	case StateFailed:
		return "failed"
	case StateCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// Result is the outcome of an operation. Value is set only for StateDone and
// Err only for StateFailed and StateCancelled.
type Result[T any] struct {
	State    State
	Progress Progress
	Value    T
	Err      error
}

// Future runs one operation on a background goroutine.
type Future[T any] struct {
	tracker *Tracker
	done    chan struct{}
	result  Result[T]
}

// Start runs fn in the background. fn must call tracker.Checkpoint between
// units of work to honour cancellation.
func Start[T any](ctx context.Context, tracker *Tracker, fn func(ctx context.Context, t *Tracker) (T, error)) *Future[T] {
	f := &Future[T]{
		tracker: tracker,
		done:    make(chan struct{}),
	}

	go func() {
		defer close(f.done)
		v, err := fn(ctx, tracker)
		res := Result[T]{Progress: tracker.Snapshot()}
		switch {
		case err == nil:
			res.State = StateDone
			res.Value = v
		case errors.Is(err, ErrCancelled), errors.Is(err, context.Canceled):
			res.State = StateCancelled
			res.Err = err
		default:
			res.State = StateFailed
			res.Err = err
		}
		f.result = res
	}()

	return f
}

// Poll returns the terminal result, or an InProgress result carrying the
// current progress when the operation is still running.
func (f *Future[T]) Poll() Result[T] {
	select {
	case <-f.done:
		return f.result
	default:
		return Result[T]{State: StateInProgress, Progress: f.tracker.Snapshot()}
	}
}

// Wait blocks until the operation finishes or ctx is done, then polls.
func (f *Future[T]) Wait(ctx context.Context) Result[T] {
	select {
	case <-f.done:
	case <-ctx.Done():
	}
	return f.Poll()
}

// Done is closed when the operation has finished.
func (f *Future[T]) Done() <-chan struct{} {
	return f.done
}

// Cancel requests cooperative cancellation of the operation.
func (f *Future[T]) Cancel() {
	f.tracker.Cancel()
}

// Tracker returns the tracker the operation reports to.
func (f *Future[T]) Tracker() *Tracker {
	return f.tracker
}
