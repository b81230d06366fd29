package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaults(t *testing.T) {
	cfg := Defaults()
	if cfg.Agent.Endpoint != "http://localhost:8000/agent/stream" {
		t.Errorf("Endpoint = %q", cfg.Agent.Endpoint)
	}
	if cfg.Stream.ToolOutputsField != "tool_outputs" {
		t.Errorf("ToolOutputsField = %q, want %q", cfg.Stream.ToolOutputsField, "tool_outputs")
	}
	if cfg.Stream.Apology != "Sorry, an error occurred." {
		t.Errorf("Apology = %q", cfg.Stream.Apology)
	}
	if cfg.Logger.Level != "info" {
		t.Errorf("Logger.Level = %q, want %q", cfg.Logger.Level, "info")
	}
	if err := Validate(cfg); err != nil {
		t.Errorf("defaults should validate: %v", err)
	}
}

func TestLoadNonExistentReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Stream.MaxFrameBytes != 8*1024*1024 {
		t.Errorf("expected defaults, got MaxFrameBytes=%d", cfg.Stream.MaxFrameBytes)
	}
}

func TestLoadYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "chatstream.yaml")
	content := `
agent:
  endpoint: "https://agents.internal:9000/support/stream"
  conn_timeout: 5s
  breaker:
    enabled: true
    max_failures: 2
    open_timeout: 1m
stream:
  tool_outputs_field: "intermediate_steps"
  apology: "The assistant is unavailable."
logger:
  level: "debug"
  format: "json"
`
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Agent.Endpoint != "https://agents.internal:9000/support/stream" {
		t.Errorf("Endpoint = %q", cfg.Agent.Endpoint)
	}
	if cfg.Agent.ConnTimeout != 5*time.Second {
		t.Errorf("ConnTimeout = %v, want 5s", cfg.Agent.ConnTimeout)
	}
	if !cfg.Agent.Breaker.Enabled || cfg.Agent.Breaker.MaxFailures != 2 || cfg.Agent.Breaker.OpenTimeout != time.Minute {
		t.Errorf("Breaker = %+v", cfg.Agent.Breaker)
	}
	if cfg.Stream.ToolOutputsField != "intermediate_steps" {
		t.Errorf("ToolOutputsField = %q", cfg.Stream.ToolOutputsField)
	}
	// Unset fields keep their defaults.
	if cfg.Stream.ReadBufferBytes != 32*1024 {
		t.Errorf("ReadBufferBytes = %d, want default", cfg.Stream.ReadBufferBytes)
	}
	if cfg.Logger.Format != "json" {
		t.Errorf("Logger.Format = %q, want json", cfg.Logger.Format)
	}
}

func TestLoadInvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(path, []byte("agent: [unclosed"), 0600); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestLoadValidationFailure(t *testing.T) {
	path := filepath.Join(t.TempDir(), "invalid.yaml")
	if err := os.WriteFile(path, []byte("agent:\n  endpoint: \"ftp://example.com\"\n"), 0600); err != nil {
		t.Fatal(err)
	}
	_, err := Load(path)
	var ve *ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("expected *ValidationError, got %v", err)
	}
}

func TestLoadReadError(t *testing.T) {
	// A directory cannot be read as a file.
	if _, err := Load(t.TempDir()); err == nil {
		t.Fatal("expected read error")
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("CHATSTREAM_AGENT_ENDPOINT", "http://127.0.0.1:9999/stream")
	t.Setenv("CHATSTREAM_LOGGER_LEVEL", "debug")
	t.Setenv("CHATSTREAM_TRACER_ENABLED", "true")
	t.Setenv("CHATSTREAM_TRACER_EXPORTER", "stdout")
	t.Setenv("CHATSTREAM_STREAM_MAX_FRAME_BYTES", "1024")
	t.Setenv("CHATSTREAM_AGENT_BREAKER_ENABLED", "true")

	cfg := Defaults()
	if err := ApplyEnvOverrides(cfg); err != nil {
		t.Fatalf("ApplyEnvOverrides: %v", err)
	}
	if cfg.Agent.Endpoint != "http://127.0.0.1:9999/stream" {
		t.Errorf("Endpoint = %q", cfg.Agent.Endpoint)
	}
	if cfg.Logger.Level != "debug" {
		t.Errorf("Logger.Level = %q", cfg.Logger.Level)
	}
	if !cfg.Tracer.Enabled || cfg.Tracer.Exporter != "stdout" {
		t.Errorf("Tracer = %+v", cfg.Tracer)
	}
	if cfg.Stream.MaxFrameBytes != 1024 {
		t.Errorf("MaxFrameBytes = %d", cfg.Stream.MaxFrameBytes)
	}
	if !cfg.Agent.Breaker.Enabled {
		t.Error("expected breaker enabled")
	}
}

func TestEnvOverrideInvalidNumber(t *testing.T) {
	t.Setenv("CHATSTREAM_STREAM_MAX_FRAME_BYTES", "lots")
	if err := ApplyEnvOverrides(Defaults()); err == nil {
		t.Fatal("expected error for non-numeric override")
	}
}

func TestEnvOverridesBeatFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "chatstream.yaml")
	if err := os.WriteFile(path, []byte("logger:\n  level: warn\n"), 0600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("CHATSTREAM_LOGGER_LEVEL", "error")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Logger.Level != "error" {
		t.Errorf("Logger.Level = %q, want error", cfg.Logger.Level)
	}
}
