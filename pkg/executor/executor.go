package executor

import (
	"context"
	"errors"
	"time"

	"github.com/dd0wney/portfolio-core/pkg/logging"
)

const (
	DefaultTimeout    = 10 * time.Second
	DefaultMaxRetries = 3
	DefaultBaseDelay  = 200 * time.Millisecond
	DefaultMaxDelay   = 5 * time.Second
)

// Operation is a single remote call. It must respect ctx cancellation;
// work that outlives its attempt's deadline is abandoned, not harvested.
type Operation func(ctx context.Context) (any, error)

// Options controls per-call timeout and retry behavior.
type Options struct {
	Timeout    time.Duration // Hard deadline per attempt
	MaxRetries int           // Total attempts, not additional retries
	BaseDelay  time.Duration // First backoff delay
	MaxDelay   time.Duration // Backoff ceiling
}

func (o Options) withDefaults() Options {
	if o.Timeout <= 0 {
		o.Timeout = DefaultTimeout
	}
	if o.MaxRetries <= 0 {
		o.MaxRetries = DefaultMaxRetries
	}
	if o.BaseDelay <= 0 {
		o.BaseDelay = DefaultBaseDelay
	}
	if o.MaxDelay <= 0 {
		o.MaxDelay = DefaultMaxDelay
	}
	return o
}

// Result is the uniform envelope returned for every execution.
// Failure information rides in Err; Execute never panics at the caller.
type Result struct {
	Success  bool
	Data     any
	Err      error
	Attempts int
	Duration time.Duration
}

// Executor runs remote operations with per-attempt timeouts and
// exponential backoff for transient failures.
type Executor struct {
	logger logging.Logger

	// sleep is injectable so tests can observe backoff without waiting
	sleep func(ctx context.Context, d time.Duration) error
}

// New creates an executor. A nil logger falls back to a no-op logger.
func New(logger logging.Logger) *Executor {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &Executor{
		logger: logger.With(logging.Component("executor")),
		sleep:  sleepCtx,
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Backoff returns the delay before the given attempt (1-based):
// min(base * 2^(attempt-1), max).
func Backoff(attempt int, base, max time.Duration) time.Duration {
	d := base
	for i := 1; i < attempt; i++ {
		d *= 2
		if d >= max {
			return max
		}
	}
	if d > max {
		return max
	}
	return d
}

// Execute runs op with a per-attempt timeout, retrying transient failures
// up to opts.MaxRetries attempts. Non-retryable errors (authorization,
// validation) propagate after the first attempt.
func (e *Executor) Execute(ctx context.Context, op Operation, opts Options) Result {
	opts = opts.withDefaults()
	start := time.Now()

	var lastErr error
	for attempt := 1; attempt <= opts.MaxRetries; attempt++ {
		if attempt > 1 {
			delay := Backoff(attempt-1, opts.BaseDelay, opts.MaxDelay)
			e.logger.Debug("backing off before retry",
				logging.Attempt(attempt),
				logging.Duration("delay", delay),
			)
			if err := e.sleep(ctx, delay); err != nil {
				return Result{Err: lastErr, Attempts: attempt - 1, Duration: time.Since(start)}
			}
		}

		data, err := e.attempt(ctx, op, opts.Timeout)
		if err == nil {
			return Result{Success: true, Data: data, Attempts: attempt, Duration: time.Since(start)}
		}
		lastErr = err

		if !IsRetryable(err) {
			e.logger.Debug("non-retryable failure",
				logging.Attempt(attempt),
				logging.Error(err),
			)
			return Result{Err: err, Attempts: attempt, Duration: time.Since(start)}
		}
		e.logger.Warn("attempt failed",
			logging.Attempt(attempt),
			logging.Error(err),
		)
	}

	return Result{Err: lastErr, Attempts: opts.MaxRetries, Duration: time.Since(start)}
}

// attempt runs op under a child context with a hard deadline. A timed-out
// attempt is reported as a timeout even if op returns a different error
// after the deadline fired.
func (e *Executor) attempt(ctx context.Context, op Operation, timeout time.Duration) (any, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	type outcome struct {
		data any
		err  error
	}
	done := make(chan outcome, 1)

	go func() {
		data, err := op(attemptCtx)
		done <- outcome{data, err}
	}()

	select {
	case <-attemptCtx.Done():
		if errors.Is(attemptCtx.Err(), context.DeadlineExceeded) {
			return nil, TimeoutError("execute")
		}
		return nil, attemptCtx.Err()
	case out := <-done:
		return out.data, out.err
	}
}
