// Package resilient composes response caching and retry around a raw
// provider behind the unchanged core.Provider interface, so callers are
// unaware of either layer.
package resilient

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/crosstalk-ai/crosstalk/pkg/cache"
	"github.com/crosstalk-ai/crosstalk/pkg/core"
	"github.com/crosstalk-ai/crosstalk/pkg/core/types"
	"github.com/crosstalk-ai/crosstalk/pkg/retry"
)

// Provider decorates a raw provider with caching and retry.
type Provider struct {
	raw     core.Provider
	cache   *cache.Cache
	policy  *retry.Policy
	log     zerolog.Logger
	onRetry retry.OnRetryFunc
}

var _ core.Provider = (*Provider)(nil)

// Option configures the facade.
type Option func(*Provider)

// WithCache enables response caching for non-streaming calls.
func WithCache(c *cache.Cache) Option {
	return func(p *Provider) { p.cache = c }
}

// WithPolicy pins a retry policy. Without it the policy is derived per
// request from its generation settings.
func WithPolicy(policy retry.Policy) Option {
	return func(p *Provider) { p.policy = &policy }
}

// WithLogger attaches a structured logger.
func WithLogger(log zerolog.Logger) Option {
	return func(p *Provider) { p.log = log }
}

// WithOnRetry registers a retry observer hook.
func WithOnRetry(fn retry.OnRetryFunc) Option {
	return func(p *Provider) { p.onRetry = fn }
}

// Wrap returns a provider that transparently caches and retries calls to raw.
func Wrap(raw core.Provider, opts ...Option) *Provider {
	p := &Provider{
		raw: raw,
		log: zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// ModelID returns the wrapped provider's model id.
func (p *Provider) ModelID() string { return p.raw.ModelID() }

// Capabilities returns the wrapped provider's capabilities.
func (p *Provider) Capabilities() core.Capabilities { return p.raw.Capabilities() }

// Generate looks the request up in the cache, and on a miss executes the raw
// call under the retry policy and stores the result. Cache failures never
// mask or replace the underlying provider error: caching is best effort.
func (p *Provider) Generate(ctx context.Context, req *types.Request) (*types.Response, error) {
	if p.cache != nil {
		if resp := p.cache.Get(req); resp != nil {
			p.log.Debug().Str("model", p.raw.ModelID()).Msg("cache hit")
			return resp, nil
		}
	}

	resp, err := retry.Do(ctx, p.executor(req), func(ctx context.Context) (*types.Response, error) {
		return p.raw.Generate(ctx, req)
	})
	if err != nil {
		return nil, err
	}

	if p.cache != nil {
		p.cache.Store(resp, req)
	}
	return resp, nil
}

// Stream retries only the establishment of the stream and bypasses the cache
// entirely.
func (p *Provider) Stream(ctx context.Context, req *types.Request) (core.DeltaStream, error) {
	return retry.DoStream(ctx, p.executor(req), func(ctx context.Context) (core.DeltaStream, error) {
		return p.raw.Stream(ctx, req)
	})
}

func (p *Provider) executor(req *types.Request) *retry.Executor {
	policy := retry.PolicyForSettings(req.Settings)
	if p.policy != nil {
		policy = *p.policy
	}

	opts := []retry.Option{retry.WithLogger(p.log)}
	if p.onRetry != nil {
		opts = append(opts, retry.WithOnRetry(p.onRetry))
	}
	return retry.New(policy, opts...)
}
