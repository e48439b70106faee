package ml

import (
	"context"
	"fmt"
	"time"

	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"
)

// GuardedProvider wraps any Provider with a circuit breaker and a rate
// limiter, so a misbehaving remote model degrades to the rule-based path
// instead of stalling analyses.
type GuardedProvider struct {
	inner   Provider
	breaker *gobreaker.CircuitBreaker
	limiter *rate.Limiter
}

// GuardConfig tunes the provider guards.
type GuardConfig struct {
	MaxRequests         uint32        `yaml:"max_requests"`
	Interval            time.Duration `yaml:"interval"`
	Timeout             time.Duration `yaml:"timeout"`
	ConsecutiveFailures uint32        `yaml:"consecutive_failures"`
	RequestsPerSecond   float64       `yaml:"requests_per_second"`
	Burst               int           `yaml:"burst"`
}

// DefaultGuardConfig matches a modest remote inference endpoint.
func DefaultGuardConfig() GuardConfig {
	return GuardConfig{
		MaxRequests:         3,
		Interval:            time.Minute,
		Timeout:             2 * time.Minute,
		ConsecutiveFailures: 5,
		RequestsPerSecond:   10,
		Burst:               20,
	}
}

// NewGuardedProvider wraps inner with the configured guards.
func NewGuardedProvider(inner Provider, cfg GuardConfig) *GuardedProvider {
	settings := gobreaker.Settings{
		Name:        "ml-inference",
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.ConsecutiveFailures
		},
	}
	return &GuardedProvider{
		inner:   inner,
		breaker: gobreaker.NewCircuitBreaker(settings),
		limiter: rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), cfg.Burst),
	}
}

// Status passes through to the wrapped provider.
func (g *GuardedProvider) Status() ModelStatus {
	return g.inner.Status()
}

// Predict enforces the rate limit and routes the call through the breaker.
func (g *GuardedProvider) Predict(ctx context.Context, features FeatureVector) (*Prediction, error) {
	if !g.limiter.Allow() {
		return nil, fmt.Errorf("ml inference rate limit exceeded")
	}

	out, err := g.breaker.Execute(func() (interface{}, error) {
		return g.inner.Predict(ctx, features)
	})
	if err != nil {
		return nil, fmt.Errorf("ml inference: %w", err)
	}
	return out.(*Prediction), nil
}
