package integration

import (
	"context"
	"os"
	"testing"
	"time"
)

// Config holds integration test configuration from environment
type Config struct {
	Endpoint    string
	Query       string
	TestTimeout time.Duration
	SkipSlow    bool
}

// LoadConfig loads integration test configuration from environment
func LoadConfig() *Config {
	query := os.Getenv("CHATSTREAM_IT_QUERY")
	if query == "" {
		query = "Hello"
	}
	return &Config{
		Endpoint:    os.Getenv("CHATSTREAM_IT_ENDPOINT"),
		Query:       query,
		TestTimeout: 60 * time.Second,
		SkipSlow:    os.Getenv("SKIP_SLOW_TESTS") == "1",
	}
}

// SkipIfNoEndpoint skips the test when no live agent is configured
func SkipIfNoEndpoint(t *testing.T, endpoint string) {
	t.Helper()
	if endpoint == "" {
		t.Skip("Skipping integration test: CHATSTREAM_IT_ENDPOINT not set")
	}
}

// SkipIfShort skips integration tests in short mode
func SkipIfShort(t *testing.T) {
	t.Helper()
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}
}

// NewTestContext creates a context with timeout for integration tests
func NewTestContext(t *testing.T, timeout time.Duration) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	t.Cleanup(cancel)
	return ctx
}
