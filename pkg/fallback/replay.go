package fallback

import (
	"context"
	"errors"

	"github.com/dd0wney/portfolio-core/pkg/executor"
	"github.com/dd0wney/portfolio-core/pkg/logging"
	"github.com/dd0wney/portfolio-core/pkg/remote"
)

// triggerReplay requests a queue drain; coalesces while one is running.
func (r *Router) triggerReplay() {
	select {
	case r.replayCh <- struct{}{}:
	default:
	}
}

// replayLoop services replay requests until the router is closed.
func (r *Router) replayLoop() {
	for {
		select {
		case <-r.done:
			return
		case <-r.replayCh:
			r.SyncOfflineData(context.Background())
		}
	}
}

// SyncOfflineData drains the pending queue, FIFO per collection. A
// transient failure leaves the head in place and moves on to the next
// collection; an operation that exhausts its retry budget is dead-lettered
// so the queue never blocks indefinitely. Returns the number of
// successfully replayed operations.
//
// Drains are serialized: a manual sync racing the reconnect-triggered
// worker waits its turn and then finds whatever the first drain left,
// so no operation is ever replayed twice.
func (r *Router) SyncOfflineData(ctx context.Context) int {
	r.replayMu.Lock()
	defer r.replayMu.Unlock()

	timer := logging.StartTimer(r.logger, "offline queue drained")

	replayed := 0
	for _, collection := range r.queue.collections() {
		replayed += r.drainCollection(ctx, collection)
	}
	timer.End(logging.Count(replayed))

	if r.metrics != nil {
		r.metrics.QueueDepth.Set(float64(r.queue.depth()))
	}
	return replayed
}

func (r *Router) drainCollection(ctx context.Context, collection string) int {
	replayed := 0
	for {
		op := r.queue.peek(collection)
		if op == nil {
			return replayed
		}

		result := r.exec.Execute(ctx, func(ctx context.Context) (any, error) {
			return r.applyRemote(ctx, op.Collection, op.Kind, op.Payload)
		}, r.config.Executor)

		if result.Success {
			r.queue.pop(collection)
			r.afterReplaySuccess(op, result.Data)
			replayed++
			if r.metrics != nil {
				r.metrics.RecordReplay("success")
			}
			continue
		}

		attempts := r.queue.recordFailure(collection, result.Err.Error())

		// Non-retryable failures will never succeed; dead-letter at once
		permanent := errors.Is(result.Err, executor.ErrAuthorization) ||
			errors.Is(result.Err, executor.ErrValidation)

		if permanent || attempts >= r.config.MaxReplayRetries {
			r.queue.moveToDeadLetter(collection)
			if r.metrics != nil {
				r.metrics.RecordReplay("dead_letter")
				r.metrics.QueueDeadLettered.Inc()
			}
			r.logger.Error("pending operation dead-lettered",
				logging.Collection(collection),
				logging.Operation(string(op.Kind)),
				logging.Attempt(attempts),
				logging.Error(result.Err),
			)
			continue
		}

		// Transient failure: keep FIFO order, stop draining this collection
		if r.metrics != nil {
			r.metrics.RecordReplay("retry_later")
		}
		r.logger.Warn("replay deferred",
			logging.Collection(collection),
			logging.Attempt(attempts),
			logging.Error(result.Err),
		)
		return replayed
	}
}

// afterReplaySuccess confirms the local copy and refreshes the cache
// namespace for the replayed collection.
func (r *Router) afterReplaySuccess(op *PendingOperation, data any) {
	r.invalidateCollection(op.Collection)

	if op.Kind == KindDelete {
		r.local.Delete(op.Collection, stringField(op.Payload, "id"))
		return
	}
	id := stringField(op.Payload, "id")
	if row, ok := data.(remote.Row); ok {
		if rid := stringField(row, "id"); rid != "" {
			id = rid
		}
		r.confirmLocal(op.Collection, id, row)
		return
	}
	if id != "" {
		r.confirmLocal(op.Collection, id, op.Payload)
	}
}
