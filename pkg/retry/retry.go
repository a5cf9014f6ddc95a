// Package retry executes fallible operations with bounded exponential
// backoff. Retry classification is based on the provider-neutral error
// taxonomy in pkg/core; stream operations retry only the establishment call,
// never mid-stream.
package retry

import (
	"context"
	"math/rand"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"

	"github.com/crosstalk-ai/crosstalk/pkg/core"
	"github.com/crosstalk-ai/crosstalk/pkg/core/types"
)

// JitterRange is a closed interval around 1.0 from which a uniform random
// delay multiplier is drawn.
type JitterRange struct {
	Low  float64 `json:"low"`
	High float64 `json:"high"`
}

// Policy is an immutable retry configuration.
type Policy struct {
	// MaxAttempts is the total number of invocations, including the first.
	MaxAttempts int `json:"max_attempts"`

	// BaseDelay is the delay before the first retry.
	BaseDelay time.Duration `json:"base_delay"`

	// MaxDelay caps the computed delay before jitter is applied.
	MaxDelay time.Duration `json:"max_delay"`

	// Multiplier is the exponential base: delay n = BaseDelay * Multiplier^n.
	Multiplier float64 `json:"multiplier"`

	// Jitter scales the computed delay by a uniform factor in [Low, High]
	// to avoid thundering herds. Default 0.9-1.1.
	Jitter JitterRange `json:"jitter"`

	// ShouldRetry classifies an error as retryable. Nil means the default
	// classification: core.IsRetryable.
	ShouldRetry func(error) bool `json:"-"`
}

// DefaultPolicy suits most operations: 3 attempts, 1s base, doubling.
func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts: 3,
		BaseDelay:   time.Second,
		MaxDelay:    30 * time.Second,
		Multiplier:  2.0,
		Jitter:      JitterRange{Low: 0.9, High: 1.1},
	}
}

// AggressivePolicy suits low-cost, low-latency operations.
func AggressivePolicy() Policy {
	p := DefaultPolicy()
	p.MaxAttempts = 5
	p.BaseDelay = 500 * time.Millisecond
	p.Multiplier = 1.5
	return p
}

// ConservativePolicy suits expensive or slow operations where a retry is
// itself costly.
func ConservativePolicy() Policy {
	p := DefaultPolicy()
	p.MaxAttempts = 2
	p.BaseDelay = 2 * time.Second
	return p
}

// PolicyForSettings derives a policy from request settings: high
// reasoning-effort requests are expensive to re-run, so they retry
// conservatively.
func PolicyForSettings(s types.GenerationSettings) Policy {
	if s.ReasoningEffort == types.EffortHigh {
		return ConservativePolicy()
	}
	return DefaultPolicy()
}

// OnRetryFunc observes a scheduled retry before the backoff sleep. It must
// not mutate shared state.
type OnRetryFunc func(attempt int, delay time.Duration, err error)

// Executor runs operations under a Policy. It holds no mutable state and is
// safe for unlimited concurrent callers.
type Executor struct {
	policy  Policy
	log     zerolog.Logger
	onRetry OnRetryFunc
	randFn  func() float64
}

// Option configures an Executor.
type Option func(*Executor)

// WithLogger attaches a structured logger; retries log at warn level.
func WithLogger(log zerolog.Logger) Option {
	return func(e *Executor) { e.log = log }
}

// WithOnRetry registers an observer hook invoked before each backoff sleep.
func WithOnRetry(fn OnRetryFunc) Option {
	return func(e *Executor) { e.onRetry = fn }
}

// WithRand overrides the jitter randomness source. Used by tests.
func WithRand(fn func() float64) Option {
	return func(e *Executor) { e.randFn = fn }
}

// New creates an Executor for the given policy.
func New(policy Policy, opts ...Option) *Executor {
	e := &Executor{
		policy: policy,
		log:    zerolog.Nop(),
		randFn: rand.Float64,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Policy returns the executor's policy.
func (e *Executor) Policy() Policy { return e.policy }

// Do runs op up to MaxAttempts times. Non-retryable errors propagate
// immediately; after the final attempt the last error propagates unchanged.
func Do[T any](ctx context.Context, e *Executor, op func(context.Context) (T, error)) (T, error) {
	var zero T
	p := e.policy
	if p.MaxAttempts < 1 {
		p.MaxAttempts = 1
	}
	shouldRetry := p.ShouldRetry
	if shouldRetry == nil {
		shouldRetry = core.IsRetryable
	}

	bo := newBackOff(p)

	var lastErr error
	for attempt := 1; attempt <= p.MaxAttempts; attempt++ {
		result, err := op(ctx)
		if err == nil {
			return result, nil
		}
		lastErr = err

		if attempt == p.MaxAttempts || !shouldRetry(err) {
			break
		}

		delay := e.nextDelay(bo, p, err)
		e.log.Warn().
			Int("attempt", attempt).
			Int("max_attempts", p.MaxAttempts).
			Dur("delay", delay).
			Err(err).
			Msg("retrying after transient error")
		if e.onRetry != nil {
			e.onRetry(attempt, delay, err)
		}

		if err := sleep(ctx, delay); err != nil {
			return zero, err
		}
	}
	return zero, lastErr
}

// DoStream retries only the establishment of a stream: once Next has been
// called on the returned stream, failures propagate as stream errors and are
// never silently retried, since re-sending partial output would duplicate
// data.
func DoStream(ctx context.Context, e *Executor, op func(context.Context) (core.DeltaStream, error)) (core.DeltaStream, error) {
	return Do(ctx, e, op)
}

// newBackOff builds the exponential timing source. Randomization is disabled
// there; jitter is applied separately so tests can pin it.
func newBackOff(p Policy) *backoff.ExponentialBackOff {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = p.BaseDelay
	bo.Multiplier = p.Multiplier
	bo.RandomizationFactor = 0
	bo.MaxInterval = p.MaxDelay
	bo.MaxElapsedTime = 0
	bo.Reset()
	return bo
}

// nextDelay computes min(MaxDelay, BaseDelay*Multiplier^n), raises it toward
// a provider retry-after hint when one is present, then applies jitter.
func (e *Executor) nextDelay(bo *backoff.ExponentialBackOff, p Policy, err error) time.Duration {
	delay := bo.NextBackOff()
	if delay == backoff.Stop || delay > p.MaxDelay {
		delay = p.MaxDelay
	}

	if hint, ok := core.RetryAfterHint(err); ok && hint > delay {
		delay = hint
		if delay > p.MaxDelay {
			delay = p.MaxDelay
		}
	}

	low, high := p.Jitter.Low, p.Jitter.High
	if low <= 0 || high < low {
		low, high = 1, 1
	}
	factor := low + e.randFn()*(high-low)
	return time.Duration(float64(delay) * factor)
}

// sleep waits for d, respecting context cancellation.
func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
