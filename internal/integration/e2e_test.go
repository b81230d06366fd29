//go:build integration
// +build integration

package integration

import (
	"testing"
	"time"

	"chatstream/internal/adapter/agent"
	"chatstream/internal/domain"
	"chatstream/internal/infra/config"
	"chatstream/internal/usecase"
)

func newLiveThread(cfg *Config) *usecase.ChatThread {
	c := config.Defaults()
	c.Agent.Endpoint = cfg.Endpoint
	return usecase.NewChatThread(agent.NewClient(c.Agent),
		usecase.WithSessionOptions(usecase.StreamOptions(c.Stream)...),
	)
}

func TestE2E_StreamCompletes(t *testing.T) {
	SkipIfShort(t)
	cfg := LoadConfig()
	SkipIfNoEndpoint(t, cfg.Endpoint)

	ctx := NewTestContext(t, cfg.TestTimeout)
	thread := newLiveThread(cfg)

	s, err := thread.Send(ctx, cfg.Query)
	if err != nil {
		t.Fatalf("Send failed: %v", err)
	}
	res := s.Wait()
	t.Logf("Agent response (%d frames, %d dropped): %s", res.Frames, res.Dropped, res.FinalText)

	if res.Status != domain.StatusCompleted {
		t.Fatalf("status = %s, err = %v", res.Status, res.Err)
	}
	if res.FinalText == "" {
		t.Error("expected a non-empty answer")
	}
	msgs := thread.Messages()
	if len(msgs) != 2 || msgs[1].Content != res.FinalText {
		t.Errorf("unexpected transcript: %+v", msgs)
	}
}

func TestE2E_AbortMidStream(t *testing.T) {
	SkipIfShort(t)
	cfg := LoadConfig()
	SkipIfNoEndpoint(t, cfg.Endpoint)
	if cfg.SkipSlow {
		t.Skip("Skipping slow test")
	}

	ctx := NewTestContext(t, cfg.TestTimeout)
	thread := newLiveThread(cfg)

	s, err := thread.Send(ctx, cfg.Query)
	if err != nil {
		t.Fatalf("Send failed: %v", err)
	}

	deadline := time.Now().Add(cfg.TestTimeout)
	for s.State().Status == domain.StatusSending && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	thread.Stop()
	res := s.Wait()

	if res.Status != domain.StatusAborted && res.Status != domain.StatusCompleted {
		t.Fatalf("status = %s, err = %v", res.Status, res.Err)
	}
}
