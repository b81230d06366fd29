package agent

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sony/gobreaker/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chatstream/internal/domain"
	"chatstream/internal/infra/config"
)

type stubOpener struct {
	calls atomic.Int32
	open  func(ctx context.Context) (io.ReadCloser, error)
}

func (s *stubOpener) Open(ctx context.Context, _ domain.AgentRequest) (io.ReadCloser, error) {
	s.calls.Add(1)
	return s.open(ctx)
}

func failingOpener() *stubOpener {
	return &stubOpener{open: func(context.Context) (io.ReadCloser, error) {
		return nil, fmt.Errorf("%w: %w: agent returned 503", domain.ErrTransportOpen, domain.ErrServerError)
	}}
}

func TestBreakerPassesThrough(t *testing.T) {
	inner := &stubOpener{open: func(context.Context) (io.ReadCloser, error) {
		return io.NopCloser(strings.NewReader("data: {}\n")), nil
	}}
	b := NewBreaker(inner, config.BreakerConfig{MaxFailures: 2, OpenTimeout: time.Minute}, slog.Default())

	body, err := b.Open(context.Background(), sampleRequest())
	require.NoError(t, err)
	data, _ := io.ReadAll(body)
	assert.Equal(t, "data: {}\n", string(data))
	assert.Equal(t, gobreaker.StateClosed, b.State())
}

func TestBreakerOpensAndFailsFast(t *testing.T) {
	inner := failingOpener()
	b := NewBreaker(inner, config.BreakerConfig{MaxFailures: 3, OpenTimeout: time.Minute}, slog.Default())

	for i := 0; i < 3; i++ {
		_, err := b.Open(context.Background(), sampleRequest())
		require.Error(t, err)
		assert.ErrorIs(t, err, domain.ErrServerError)
		assert.NotErrorIs(t, err, domain.ErrBreakerOpen)
	}
	assert.Equal(t, int32(3), inner.calls.Load())
	assert.Equal(t, gobreaker.StateOpen, b.State())

	_, err := b.Open(context.Background(), sampleRequest())
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrBreakerOpen)
	assert.ErrorIs(t, err, domain.ErrTransportOpen)
	assert.True(t, domain.IsTerminalError(err))
	assert.Equal(t, domain.CodeBreakerOpen, domain.ErrorCodeOf(err))
	assert.Equal(t, int32(3), inner.calls.Load(), "inner opener must not be called while open")
}

func TestBreakerRecoversAfterTimeout(t *testing.T) {
	var healthy atomic.Bool
	inner := &stubOpener{open: func(context.Context) (io.ReadCloser, error) {
		if healthy.Load() {
			return io.NopCloser(strings.NewReader("")), nil
		}
		return nil, domain.ErrTransportOpen
	}}
	b := NewBreaker(inner, config.BreakerConfig{MaxFailures: 1, OpenTimeout: 50 * time.Millisecond}, slog.Default())

	_, err := b.Open(context.Background(), sampleRequest())
	require.Error(t, err)
	assert.Equal(t, gobreaker.StateOpen, b.State())

	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, gobreaker.StateHalfOpen, b.State())

	healthy.Store(true)
	body, err := b.Open(context.Background(), sampleRequest())
	require.NoError(t, err)
	body.Close()
	assert.Equal(t, gobreaker.StateClosed, b.State())
}

func TestBreakerIgnoresCancellation(t *testing.T) {
	inner := &stubOpener{open: func(ctx context.Context) (io.ReadCloser, error) {
		return nil, fmt.Errorf("%w: %w", domain.ErrTransportOpen, context.Canceled)
	}}
	b := NewBreaker(inner, config.BreakerConfig{MaxFailures: 1, OpenTimeout: time.Minute}, slog.Default())

	for i := 0; i < 3; i++ {
		_, err := b.Open(context.Background(), sampleRequest())
		require.Error(t, err)
		assert.True(t, errors.Is(err, context.Canceled))
	}
	assert.Equal(t, gobreaker.StateClosed, b.State())
	assert.Equal(t, int32(3), inner.calls.Load())
}
