package fallback

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dd0wney/portfolio-core/pkg/cache"
	"github.com/dd0wney/portfolio-core/pkg/connmon"
	"github.com/dd0wney/portfolio-core/pkg/executor"
	"github.com/dd0wney/portfolio-core/pkg/localstore"
	"github.com/dd0wney/portfolio-core/pkg/logging"
	"github.com/dd0wney/portfolio-core/pkg/metrics"
	"github.com/dd0wney/portfolio-core/pkg/remote"
	"github.com/dd0wney/portfolio-core/pkg/validation"
)

const (
	DefaultCacheTTL         = 5 * time.Minute
	DefaultFreshnessWindow  = 15 * time.Minute
	DefaultMaxReplayRetries = 5
)

// Config controls caching and replay behavior.
type Config struct {
	CacheTTL         time.Duration // TTL for read-through cache entries
	FreshnessWindow  time.Duration // Local reads older than this are flagged stale
	MaxReplayRetries int           // Replay attempts before dead-lettering
	Executor         executor.Options
}

// Validate checks the config, applying defaults for zero values first.
func (c *Config) Validate() error {
	c.CacheTTL = validation.DefaultOrDuration(c.CacheTTL, DefaultCacheTTL)
	c.FreshnessWindow = validation.DefaultOrDuration(c.FreshnessWindow, DefaultFreshnessWindow)
	c.MaxReplayRetries = validation.DefaultOrInt(c.MaxReplayRetries, DefaultMaxReplayRetries)

	return validation.NewConfigValidator("fallback.Config").
		MinDuration("CacheTTL", c.CacheTTL, time.Second).
		Positive("MaxReplayRetries", c.MaxReplayRetries).
		Validate()
}

// Router tries the remote path first and transparently substitutes local
// persistence on failure or while offline.
type Router struct {
	remote  remote.Service
	local   localstore.Store
	cache   *cache.Cache
	monitor *connmon.Monitor
	exec    *executor.Executor
	config  Config
	logger  logging.Logger
	metrics *metrics.Registry

	queue       *pendingQueue
	unsubscribe func()
	replayCh    chan struct{}
	done        chan struct{}

	// replayMu serializes drains: the monitor-triggered replay worker
	// and manual syncs must never walk the same FIFO at once
	replayMu sync.Mutex
}

// NewRouter wires the router and subscribes it to connection transitions so
// the queue drains whenever the monitor reports online. Call Close to
// detach.
func NewRouter(
	remoteSvc remote.Service,
	local localstore.Store,
	c *cache.Cache,
	monitor *connmon.Monitor,
	exec *executor.Executor,
	config Config,
	logger logging.Logger,
	registry *metrics.Registry,
) (*Router, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = logging.NewNopLogger()
	}

	r := &Router{
		remote:   remoteSvc,
		local:    local,
		cache:    c,
		monitor:  monitor,
		exec:     exec,
		config:   config,
		logger:   logger.With(logging.Component("fallback")),
		metrics:  registry,
		queue:    newPendingQueue(),
		replayCh: make(chan struct{}, 1),
		done:     make(chan struct{}),
	}

	r.unsubscribe = monitor.Subscribe(func(state connmon.State) {
		if state.Status == connmon.StatusOnline {
			r.triggerReplay()
		}
	})
	go r.replayLoop()

	return r, nil
}

// Close detaches from the monitor and stops the replay worker.
func (r *Router) Close() {
	r.unsubscribe()
	close(r.done)
}

// PerformOperation routes one logical operation. Reads consult the cache
// first; writes invalidate the collection's cache prefix. Offline or failed
// remote calls fall back to local persistence, queueing mutations.
func (r *Router) PerformOperation(ctx context.Context, collection string, kind Kind, payload map[string]any) (*Result, error) {
	if err := validation.ValidateCollectionName(collection); err != nil {
		return nil, executor.ValidationError(string(kind), err)
	}

	switch kind {
	case KindRead:
		return r.read(ctx, collection, stringField(payload, "id"))
	case KindList:
		return r.list(ctx, collection)
	case KindCreate, KindUpdate, KindDelete:
		return r.mutate(ctx, collection, kind, payload)
	default:
		return nil, executor.UnknownOperationError(string(kind), "read, list, create, update, delete")
	}
}

// read fetches a single record: cache, then remote, then local copy.
func (r *Router) read(ctx context.Context, collection, id string) (*Result, error) {
	if id == "" {
		return nil, executor.ValidationError("read", errors.New("payload is missing id"))
	}

	cacheKey := collection + ":" + id
	if value, ok := r.cache.Get(cacheKey); ok {
		if r.metrics != nil {
			r.metrics.CacheHitsTotal.Inc()
		}
		return &Result{Provenance: ProvenanceCache, Data: value}, nil
	}
	if r.metrics != nil {
		r.metrics.CacheMissesTotal.Inc()
	}

	if r.monitor.IsOnline() {
		result := r.exec.Execute(ctx, func(ctx context.Context) (any, error) {
			rows, err := r.remote.Select(ctx, collection, remote.Filter{"id": id})
			if err != nil {
				return nil, err
			}
			if len(rows) == 0 {
				return nil, executor.NotFoundError("read", collection, id)
			}
			return rows[0], nil
		}, r.config.Executor)

		if result.Success {
			row := result.Data.(remote.Row)
			r.cache.Set(cacheKey, row, r.config.CacheTTL)
			r.confirmLocal(collection, id, row)
			return &Result{Provenance: ProvenanceRemote, Data: row}, nil
		}
		if errors.Is(result.Err, executor.ErrAuthorization) {
			return nil, result.Err
		}
		r.logger.Warn("remote read failed, serving local copy",
			logging.Collection(collection),
			logging.Error(result.Err),
		)
	}

	return r.readLocal(collection, id)
}

// list fetches all records in a collection.
func (r *Router) list(ctx context.Context, collection string) (*Result, error) {
	cacheKey := collection + ":all"
	if value, ok := r.cache.Get(cacheKey); ok {
		if r.metrics != nil {
			r.metrics.CacheHitsTotal.Inc()
		}
		return &Result{Provenance: ProvenanceCache, Data: value}, nil
	}
	if r.metrics != nil {
		r.metrics.CacheMissesTotal.Inc()
	}

	if r.monitor.IsOnline() {
		result := r.exec.Execute(ctx, func(ctx context.Context) (any, error) {
			return r.remote.Select(ctx, collection, nil)
		}, r.config.Executor)

		if result.Success {
			rows := result.Data.([]remote.Row)
			r.cache.Set(cacheKey, rows, r.config.CacheTTL)
			for _, row := range rows {
				if id := stringField(row, "id"); id != "" {
					r.confirmLocal(collection, id, row)
				}
			}
			return &Result{Provenance: ProvenanceRemote, Data: rows}, nil
		}
		if errors.Is(result.Err, executor.ErrAuthorization) {
			return nil, result.Err
		}
	}

	records, err := r.local.List(collection)
	if err != nil {
		return nil, err
	}
	now := time.Now()
	stale := false
	rows := make([]remote.Row, 0, len(records))
	for _, record := range records {
		rows = append(rows, remote.Row(record.Data))
		if record.Stale(r.config.FreshnessWindow, now) {
			stale = true
		}
	}
	return &Result{Provenance: ProvenanceLocal, Data: rows, Stale: stale}, nil
}

// mutate applies a write remotely when online, falling back to an
// optimistic local apply plus a queued replay entry.
func (r *Router) mutate(ctx context.Context, collection string, kind Kind, payload map[string]any) (*Result, error) {
	payload = ensureID(kind, payload)

	if r.monitor.IsOnline() {
		result := r.exec.Execute(ctx, func(ctx context.Context) (any, error) {
			return r.applyRemote(ctx, collection, kind, payload)
		}, r.config.Executor)

		if result.Success {
			r.invalidateCollection(collection)
			if row, ok := result.Data.(remote.Row); ok {
				if id := stringField(row, "id"); id != "" {
					r.confirmLocal(collection, id, row)
				}
			} else if kind == KindDelete {
				r.local.Delete(collection, stringField(payload, "id"))
			}
			return &Result{Provenance: ProvenanceRemote, Data: result.Data}, nil
		}
		if errors.Is(result.Err, executor.ErrAuthorization) || errors.Is(result.Err, executor.ErrValidation) {
			// Stale local data cannot stand in for a rejected write
			return nil, result.Err
		}
		r.logger.Warn("remote mutation failed, applying locally",
			logging.Collection(collection),
			logging.Operation(string(kind)),
			logging.Error(result.Err),
		)
	}

	if err := r.applyLocal(collection, kind, payload); err != nil {
		return nil, err
	}
	r.enqueueMutation(collection, kind, payload)
	r.invalidateCollection(collection)

	return &Result{Provenance: ProvenanceQueued, Data: payload, Stale: false}, nil
}

// applyRemote performs one remote mutation.
func (r *Router) applyRemote(ctx context.Context, collection string, kind Kind, payload map[string]any) (any, error) {
	switch kind {
	case KindCreate:
		return r.remote.Insert(ctx, collection, remote.Row(payload))
	case KindUpdate:
		return r.remote.Update(ctx, collection, stringField(payload, "id"), remote.Row(payload))
	case KindDelete:
		return nil, r.remote.Delete(ctx, collection, stringField(payload, "id"))
	default:
		return nil, executor.UnknownOperationError(string(kind), "create, update, delete")
	}
}

// applyLocal mirrors the mutation into local persistence.
func (r *Router) applyLocal(collection string, kind Kind, payload map[string]any) error {
	id := stringField(payload, "id")
	if kind == KindDelete {
		return r.local.Delete(collection, id)
	}
	return r.local.Put(&localstore.Record{
		ID:         id,
		Collection: collection,
		Data:       payload,
		UpdatedAt:  time.Now(),
	})
}

func (r *Router) enqueueMutation(collection string, kind Kind, payload map[string]any) {
	op := &PendingOperation{
		ID:         uuid.New().String(),
		Collection: collection,
		Kind:       kind,
		Payload:    payload,
		EnqueuedAt: time.Now(),
	}
	r.queue.enqueue(op)

	if r.metrics != nil {
		r.metrics.QueueEnqueued.Inc()
		r.metrics.QueueDepth.Set(float64(r.queue.depth()))
	}
	r.logger.Info("mutation queued for replay",
		logging.Collection(collection),
		logging.Operation(string(kind)),
		logging.String("pending_id", op.ID),
	)
}

// readLocal serves the best available local copy with a staleness flag.
func (r *Router) readLocal(collection, id string) (*Result, error) {
	record, err := r.local.Get(collection, id)
	if errors.Is(err, localstore.ErrNotFound) {
		return nil, executor.NotFoundError("read", collection, id)
	}
	if err != nil {
		return nil, err
	}
	return &Result{
		Provenance: ProvenanceLocal,
		Data:       remote.Row(record.Data),
		Stale:      record.Stale(r.config.FreshnessWindow, time.Now()),
	}, nil
}

// confirmLocal write-throughs a remotely confirmed row into local storage.
func (r *Router) confirmLocal(collection, id string, row remote.Row) {
	now := time.Now()
	r.local.Put(&localstore.Record{
		ID:              id,
		Collection:      collection,
		Data:            row,
		UpdatedAt:       now,
		LastConfirmedAt: now,
	})
}

func (r *Router) invalidateCollection(collection string) {
	removed := r.cache.Invalidate(collection + ":")
	if r.metrics != nil && removed > 0 {
		r.metrics.CacheInvalidations.WithLabelValues(collection + ":").Add(float64(removed))
	}
}

// PendingOperations returns copies of the queued mutations in drain order.
func (r *Router) PendingOperations() []*PendingOperation {
	return r.queue.snapshot()
}

// DeadLetters returns copies of operations that exhausted their replay
// budget.
func (r *Router) DeadLetters() []*PendingOperation {
	return r.queue.deadLetters()
}

// QueueDepth returns the number of operations waiting for replay.
func (r *Router) QueueDepth() int {
	return r.queue.depth()
}

// Reset drops the queue and dead-letter list. Used by the orchestrator's
// restart path.
func (r *Router) Reset() {
	r.queue.clear()
	if r.metrics != nil {
		r.metrics.QueueDepth.Set(0)
	}
}

func stringField(payload map[string]any, key string) string {
	if payload == nil {
		return ""
	}
	if value, ok := payload[key].(string); ok {
		return value
	}
	return ""
}

// ensureID gives offline creates a stable identity so replay targets the
// same row the local copy was stored under.
func ensureID(kind Kind, payload map[string]any) map[string]any {
	if payload == nil {
		payload = make(map[string]any)
	}
	if kind == KindCreate && stringField(payload, "id") == "" {
		payload["id"] = uuid.New().String()
	}
	return payload
}
