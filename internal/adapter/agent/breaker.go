package agent

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/sony/gobreaker/v2"

	"chatstream/internal/domain"
	"chatstream/internal/infra/config"
)

// Opener opens a stream for a request. Client and Breaker both implement it.
type Opener interface {
	Open(ctx context.Context, req domain.AgentRequest) (io.ReadCloser, error)
}

// Breaker guards an Opener with a circuit breaker. Only opening the stream
// counts toward tripping; failures after the body is returned do not.
// Nothing is retried.
type Breaker struct {
	inner Opener
	cb    *gobreaker.CircuitBreaker[io.ReadCloser]
}

// NewBreaker wraps inner. cfg.Enabled is not consulted; callers decide
// whether to wrap.
func NewBreaker(inner Opener, cfg config.BreakerConfig, logger *slog.Logger) *Breaker {
	maxFailures := cfg.MaxFailures
	if maxFailures == 0 {
		maxFailures = 3
	}
	if logger == nil {
		logger = slog.Default()
	}
	cb := gobreaker.NewCircuitBreaker[io.ReadCloser](gobreaker.Settings{
		Name:        "agent",
		MaxRequests: 1, // one probe while half-open
		Timeout:     cfg.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= maxFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state change",
				"breaker", name,
				"from", from.String(),
				"to", to.String(),
			)
		},
		IsSuccessful: func(err error) bool {
			// A user abort says nothing about the agent's health.
			return err == nil || errors.Is(err, context.Canceled)
		},
	})
	return &Breaker{inner: inner, cb: cb}
}

// Open implements Opener. While the breaker is open it fails fast with an
// error wrapping both domain.ErrTransportOpen and domain.ErrBreakerOpen.
func (b *Breaker) Open(ctx context.Context, req domain.AgentRequest) (io.ReadCloser, error) {
	body, err := b.cb.Execute(func() (io.ReadCloser, error) {
		return b.inner.Open(ctx, req)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return nil, fmt.Errorf("%w: %w: %w", domain.ErrTransportOpen, domain.ErrBreakerOpen, err)
	}
	return body, err
}

// State returns the current breaker state.
func (b *Breaker) State() gobreaker.State { return b.cb.State() }

var (
	_ Opener = (*Client)(nil)
	_ Opener = (*Breaker)(nil)
)
