// Package orchestrator is the single entry point over the resilience
// subsystems: it dispatches named service methods, records telemetry for
// every call, aggregates subsystem health, and exposes recovery actions.
package orchestrator

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dd0wney/portfolio-core/pkg/cache"
	"github.com/dd0wney/portfolio-core/pkg/connmon"
	"github.com/dd0wney/portfolio-core/pkg/executor"
	"github.com/dd0wney/portfolio-core/pkg/fallback"
	"github.com/dd0wney/portfolio-core/pkg/health"
	"github.com/dd0wney/portfolio-core/pkg/localstore"
	"github.com/dd0wney/portfolio-core/pkg/logging"
	"github.com/dd0wney/portfolio-core/pkg/metrics"
	"github.com/dd0wney/portfolio-core/pkg/remote"
)

// Deps carries the subsystems the orchestrator coordinates. Remote,
// Router, Monitor, Cache, and Local are required; Health, Metrics, and
// Logger fall back to fresh or no-op instances.
type Deps struct {
	Remote  remote.Service
	Router  *fallback.Router
	Monitor *connmon.Monitor
	Cache   *cache.Cache
	Local   localstore.Store
	Health  *health.Checker
	Metrics *metrics.Registry
	Logger  logging.Logger
}

type serviceEntry struct {
	name    string
	methods map[string]Method
	order   []string // method names, sorted, for error messages
	restart func(ctx context.Context) error
}

// Orchestrator owns the dispatch table, the telemetry ring, and the
// periodic health poll. All public methods are safe for concurrent use.
type Orchestrator struct {
	deps    Deps
	config  Config
	logger  logging.Logger
	history *historyRing

	services map[string]*serviceEntry
	order    []string // service names, sorted

	mu         sync.RWMutex
	lastHealth health.Response

	cancel context.CancelFunc
	done   chan struct{}
}

// New wires the dispatch table over the injected subsystems and starts the
// background health poll. Call Close to stop it.
func New(deps Deps, config Config) (*Orchestrator, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if deps.Health == nil {
		deps.Health = health.NewChecker()
	}
	if deps.Logger == nil {
		deps.Logger = logging.NewNopLogger()
	}

	o := &Orchestrator{
		deps:     deps,
		config:   config,
		logger:   deps.Logger.With(logging.Component("orchestrator")),
		history:  newHistoryRing(config.HistorySize),
		services: make(map[string]*serviceEntry),
		done:     make(chan struct{}),
	}

	o.registerBuiltins()
	o.registerHealthChecks()
	o.lastHealth = o.deps.Health.Check()

	ctx, cancel := context.WithCancel(context.Background())
	o.cancel = cancel
	go o.healthLoop(ctx)

	return o, nil
}

// Close stops the health poll. It does not close the injected subsystems;
// the caller owns those.
func (o *Orchestrator) Close() {
	o.cancel()
	<-o.done
}

// Execute dispatches one named call and records it in the telemetry ring.
// Unknown services and methods fail without reaching any subsystem.
func (o *Orchestrator) Execute(ctx context.Context, service, method string, params map[string]any) (any, error) {
	record := &OperationRecord{
		ID:        uuid.NewString(),
		Service:   service,
		Method:    method,
		StartedAt: time.Now(),
		Status:    StatusPending,
	}

	entry, ok := o.services[service]
	if !ok {
		err := executor.UnknownOperationError(service+"."+method, strings.Join(o.order, ", "))
		o.finish(record, err)
		return nil, err
	}
	fn, ok := entry.methods[method]
	if !ok {
		err := executor.UnknownOperationError(service+"."+method, strings.Join(entry.order, ", "))
		o.finish(record, err)
		return nil, err
	}

	data, err := o.invoke(ctx, fn, params)
	o.finish(record, err)
	return data, err
}

// invoke runs one dispatched method, converting a panic in a subsystem
// into an ordinary internal error recorded like any other failure.
func (o *Orchestrator) invoke(ctx context.Context, fn Method, params map[string]any) (data any, err error) {
	defer func() {
		if r := recover(); r != nil {
			data = nil
			err = fmt.Errorf("service method panicked: %v", r)
			o.logger.Error("recovered panic in service method", logging.Any("panic", r))
		}
	}()
	return fn(ctx, params)
}

func (o *Orchestrator) finish(record *OperationRecord, err error) {
	record.Duration = time.Since(record.StartedAt)
	if err != nil {
		record.Status = StatusError
		record.ErrorCode = string(executor.CodeOf(err))
		record.ErrorMessage = err.Error()
	} else {
		record.Status = StatusSuccess
	}

	o.history.add(record)
	if o.deps.Metrics != nil {
		o.deps.Metrics.RecordOperation(record.Service, record.Method, string(record.Status), record.Duration)
	}

	if record.Status == StatusError {
		o.logger.Warn("operation failed",
			logging.Service(record.Service),
			logging.Method(record.Method),
			logging.String("code", record.ErrorCode),
			logging.Duration("duration", record.Duration))
		return
	}
	o.logger.Debug("operation completed",
		logging.Service(record.Service),
		logging.Method(record.Method),
		logging.Duration("duration", record.Duration))
}

// GetHealthStatus returns the most recent aggregate health snapshot.
func (o *Orchestrator) GetHealthStatus() health.Response {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.lastHealth
}

// GetOperationHistory returns the retained telemetry records, most recent
// first.
func (o *Orchestrator) GetOperationHistory() []OperationRecord {
	return o.history.recent()
}

// GetServiceMetrics returns per-service call aggregates.
func (o *Orchestrator) GetServiceMetrics() map[string]ServiceMetrics {
	return o.history.serviceMetrics()
}

// Services returns the registered service names, sorted.
func (o *Orchestrator) Services() []string {
	out := make([]string, len(o.order))
	copy(out, o.order)
	return out
}

// RestartService runs the named service's recovery action and refreshes
// the health snapshot afterwards.
func (o *Orchestrator) RestartService(ctx context.Context, service string) error {
	entry, ok := o.services[service]
	if !ok {
		return executor.UnknownOperationError("restart."+service, strings.Join(o.order, ", "))
	}

	timer := logging.StartTimer(o.logger, "service restarted", logging.Service(service))
	if err := entry.restart(ctx); err != nil {
		timer.EndError(err)
		return err
	}
	timer.End()

	o.refreshHealth()
	return nil
}

// SyncOfflineData forces a replay of queued mutations and returns how many
// were confirmed remotely.
func (o *Orchestrator) SyncOfflineData(ctx context.Context) int {
	return o.deps.Router.SyncOfflineData(ctx)
}

func (o *Orchestrator) register(name string, methods map[string]Method, restart func(ctx context.Context) error) {
	order := make([]string, 0, len(methods))
	for m := range methods {
		order = append(order, m)
	}
	sort.Strings(order)

	o.services[name] = &serviceEntry{
		name:    name,
		methods: methods,
		order:   order,
		restart: restart,
	}
	o.order = append(o.order, name)
	sort.Strings(o.order)
}

func (o *Orchestrator) healthLoop(ctx context.Context) {
	defer close(o.done)

	ticker := time.NewTicker(o.config.HealthCheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			o.refreshHealth()
		}
	}
}

func (o *Orchestrator) refreshHealth() {
	response := o.deps.Health.Check()

	o.mu.Lock()
	o.lastHealth = response
	o.mu.Unlock()

	if response.Status != health.StatusHealthy {
		o.logger.Warn("health degraded",
			logging.String("status", string(response.Status)),
			logging.Float64("healthy_ratio", response.HealthyRatio))
	}
}
