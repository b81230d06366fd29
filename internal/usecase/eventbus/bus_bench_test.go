package eventbus

import (
	"context"
	"log/slog"
	"strings"
	"testing"
	"time"

	"chatstream/internal/domain"
)

// BenchmarkPublishSnapshot measures the per-frame cost a streaming session
// pays to notify a renderer and a logger.
func BenchmarkPublishSnapshot(b *testing.B) {
	bus := New(slog.Default())
	defer bus.Close()

	event := domain.Event{
		Type:      domain.EventStreamSnapshot,
		Timestamp: time.Now(),
		SessionID: "bench",
		State: domain.SessionState{
			Status:        domain.StatusStreaming,
			StreamingText: strings.Repeat("token ", 512),
		},
	}
	bus.Subscribe(domain.EventStreamSnapshot, func(_ context.Context, _ domain.Event) {})
	bus.SubscribeAll(func(_ context.Context, _ domain.Event) {})

	ctx := context.Background()
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		bus.Publish(ctx, event)
	}
}
