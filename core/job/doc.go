// Package job runs long operations (scanning an installation, generating the
// patch) on a single background goroutine and reports on them.
//
// A Tracker holds the stage name, a progress counter over a precomputed total
// and a cancellation flag, all behind one mutex. The worker advances it; any
// number of observers snapshot it.
//
// Start returns a Future. Poll never blocks and yields a Result tagged with
// one of StateInProgress, StateDone, StateFailed or StateCancelled. A worker
// that returns ErrCancelled (usually from Tracker.Checkpoint) ends in
// StateCancelled rather than StateFailed.
//
// # Usage
//
//	t := job.NewTracker()
//	f := job.Start(ctx, t, func(ctx context.Context, t *job.Tracker) (int, error) {
//	    for range items {
//	        if err := t.Checkpoint(ctx); err != nil {
//	            return 0, err
//	        }
//	        t.Advance(1)
//	    }
//	    return len(items), nil
//	})
//	res := f.Wait(ctx)
package job
