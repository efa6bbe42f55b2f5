package connmon

import (
	"context"
	"sync"
	"time"

	"github.com/dd0wney/portfolio-core/pkg/logging"
	"github.com/dd0wney/portfolio-core/pkg/metrics"
	"github.com/dd0wney/portfolio-core/pkg/validation"
)

const (
	DefaultProbeInterval    = 60 * time.Second
	DefaultProbeTimeout     = 5 * time.Second
	DefaultFailureThreshold = 3
	DefaultSlowProbeAbove   = 1 * time.Second
)

// Prober is the narrow slice of the remote service the monitor needs.
type Prober interface {
	Ping(ctx context.Context) (time.Duration, error)
}

// Config controls probing cadence and state-machine thresholds.
type Config struct {
	ProbeInterval    time.Duration // Fixed probing interval
	ProbeTimeout     time.Duration // Per-probe deadline
	FailureThreshold int           // Consecutive failures before unstable drops to offline
	SlowProbeAbove   time.Duration // Latency that degrades online to unstable
}

// Validate checks the config, applying defaults for zero values first.
func (c *Config) Validate() error {
	c.ProbeInterval = validation.DefaultOrDuration(c.ProbeInterval, DefaultProbeInterval)
	c.ProbeTimeout = validation.DefaultOrDuration(c.ProbeTimeout, DefaultProbeTimeout)
	c.FailureThreshold = validation.DefaultOrInt(c.FailureThreshold, DefaultFailureThreshold)
	c.SlowProbeAbove = validation.DefaultOrDuration(c.SlowProbeAbove, DefaultSlowProbeAbove)

	return validation.NewConfigValidator("connmon.Config").
		MinDuration("ProbeInterval", c.ProbeInterval, time.Second).
		MinDuration("ProbeTimeout", c.ProbeTimeout, 100*time.Millisecond).
		Positive("FailureThreshold", c.FailureThreshold).
		Validate()
}

// Monitor probes the remote provider on a fixed interval and maintains the
// connection state machine. Subscribers are notified synchronously on every
// state change.
type Monitor struct {
	prober  Prober
	config  Config
	logger  logging.Logger
	metrics *metrics.Registry

	mu    sync.Mutex
	state State

	subsMu sync.Mutex
	subs   map[int]func(State)
	nextID int

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates a monitor in the offline state. Logger and registry may be
// nil. Call Start to begin probing.
func New(prober Prober, config Config, logger logging.Logger, registry *metrics.Registry) (*Monitor, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = logging.NewNopLogger()
	}

	ctx, cancel := context.WithCancel(context.Background())
	m := &Monitor{
		prober:  prober,
		config:  config,
		logger:  logger.With(logging.Component("connmon")),
		metrics: registry,
		state: State{
			Status:  StatusOffline,
			Quality: QualityCritical,
		},
		subs:   make(map[int]func(State)),
		ctx:    ctx,
		cancel: cancel,
	}
	return m, nil
}

// Start launches the probe loop. The first probe fires immediately so the
// monitor leaves its initial offline state as soon as the provider answers.
func (m *Monitor) Start() {
	m.wg.Add(1)
	go func() {
		defer m.wg.Done()

		m.Probe()
		ticker := time.NewTicker(m.config.ProbeInterval)
		defer ticker.Stop()
		for {
			select {
			case <-m.ctx.Done():
				return
			case <-ticker.C:
				m.Probe()
			}
		}
	}()
}

// Close stops probing and waits for the loop to exit.
func (m *Monitor) Close() {
	m.cancel()
	m.wg.Wait()
}

// GetState returns a snapshot of the current state.
func (m *Monitor) GetState() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// IsOnline reports whether the connection is fully online.
func (m *Monitor) IsOnline() bool {
	return m.GetState().Status == StatusOnline
}

// IsStable reports whether the connection is online with no failure run.
func (m *Monitor) IsStable() bool {
	s := m.GetState()
	return s.Status == StatusOnline && s.ConsecutiveFailures == 0
}

// Subscribe registers a callback invoked synchronously on every state
// change. The returned function unsubscribes; calling it more than once is
// safe, including from inside a notification.
func (m *Monitor) Subscribe(fn func(State)) func() {
	m.subsMu.Lock()
	id := m.nextID
	m.nextID++
	m.subs[id] = fn
	m.subsMu.Unlock()

	return func() {
		m.subsMu.Lock()
		delete(m.subs, id)
		m.subsMu.Unlock()
	}
}

// ForceReconnect probes immediately, moving offline to reconnecting first.
// It returns the state observed after the probe settles.
func (m *Monitor) ForceReconnect() State {
	if m.metrics != nil {
		m.metrics.ReconnectAttemptsTotal.Inc()
	}
	return m.Probe()
}

// Probe performs one probe and advances the state machine.
func (m *Monitor) Probe() State {
	m.beginAttemptIfOffline()

	ctx, cancel := context.WithTimeout(m.ctx, m.config.ProbeTimeout)
	latency, err := m.prober.Ping(ctx)
	cancel()

	if m.metrics != nil {
		m.metrics.RecordProbe(err == nil, latency)
	}

	if err != nil {
		return m.probeFailed(err)
	}
	return m.probeSucceeded(latency)
}

// beginAttemptIfOffline marks the offline→reconnecting transition that
// precedes every probe attempted from the offline state.
func (m *Monitor) beginAttemptIfOffline() {
	m.mu.Lock()
	if m.state.Status != StatusOffline {
		m.mu.Unlock()
		return
	}
	m.state.Status = StatusReconnecting
	snapshot := m.state
	m.mu.Unlock()

	m.publish(snapshot)
}

func (m *Monitor) probeSucceeded(latency time.Duration) State {
	m.mu.Lock()
	prev := m.state.Status

	m.state.Latency = latency
	m.state.LastCheckedAt = time.Now()
	m.state.ConsecutiveFailures = 0

	if prev == StatusOnline && latency > m.config.SlowProbeAbove {
		m.state.Status = StatusUnstable
	} else {
		m.state.Status = StatusOnline
	}
	m.state.Quality = qualityFor(latency, 0, m.config.FailureThreshold)

	snapshot := m.state
	changed := snapshot.Status != prev
	m.mu.Unlock()

	if changed {
		m.logger.Info("connection state changed",
			logging.String("from", string(prev)),
			logging.String("to", string(snapshot.Status)),
			logging.Latency(latency),
		)
		m.publish(snapshot)
	}
	return snapshot
}

func (m *Monitor) probeFailed(err error) State {
	m.mu.Lock()
	prev := m.state.Status

	m.state.ConsecutiveFailures++
	m.state.LastCheckedAt = time.Now()

	switch prev {
	case StatusOnline:
		// A single failure after being healthy degrades to unstable
		m.state.Status = StatusUnstable
	case StatusUnstable:
		if m.state.ConsecutiveFailures >= m.config.FailureThreshold {
			m.state.Status = StatusOffline
		}
	case StatusReconnecting:
		m.state.Status = StatusOffline
	}
	m.state.Quality = qualityFor(m.state.Latency, m.state.ConsecutiveFailures, m.config.FailureThreshold)

	snapshot := m.state
	changed := snapshot.Status != prev
	m.mu.Unlock()

	if changed {
		m.logger.Warn("connection state changed",
			logging.String("from", string(prev)),
			logging.String("to", string(snapshot.Status)),
			logging.Int("consecutive_failures", snapshot.ConsecutiveFailures),
			logging.Error(err),
		)
		m.publish(snapshot)
	}
	return snapshot
}

// publish notifies subscribers from a snapshot copy so an unsubscribe
// during notification cannot corrupt iteration.
func (m *Monitor) publish(state State) {
	m.subsMu.Lock()
	callbacks := make([]func(State), 0, len(m.subs))
	for _, fn := range m.subs {
		callbacks = append(callbacks, fn)
	}
	m.subsMu.Unlock()

	for _, fn := range callbacks {
		fn(state)
	}

	if m.metrics != nil {
		m.metrics.SetConnectionStatus(string(state.Status))
		m.metrics.SetConnectionQuality(string(state.Quality))
		m.metrics.ConsecutiveFailures.Set(float64(state.ConsecutiveFailures))
	}
}
