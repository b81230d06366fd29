package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultPath is the config file read when no --config flag is given.
const DefaultPath = "chatstream.yaml"

// envPrefix namespaces every environment override.
const envPrefix = "CHATSTREAM_"

// Config is the top-level application configuration.
type Config struct {
	Agent  AgentConfig  `yaml:"agent"`
	Stream StreamConfig `yaml:"stream"`
	Logger LoggerConfig `yaml:"logger"`
	Tracer TracerConfig `yaml:"tracer"`
}

// AgentConfig describes the remote streaming agent endpoint.
type AgentConfig struct {
	Endpoint    string        `yaml:"endpoint"`
	ConnTimeout time.Duration `yaml:"conn_timeout"`
	RespTimeout time.Duration `yaml:"resp_timeout"` // time to first response header, not the whole stream
	Pool        PoolConfig    `yaml:"pool"`
	Breaker     BreakerConfig `yaml:"breaker"`
}

// PoolConfig sizes the HTTP connection pool.
type PoolConfig struct {
	MaxIdleConns        int           `yaml:"max_idle_conns"`
	MaxIdleConnsPerHost int           `yaml:"max_idle_conns_per_host"`
	MaxConnsPerHost     int           `yaml:"max_conns_per_host"`
	IdleConnTimeout     time.Duration `yaml:"idle_conn_timeout"`
}

// BreakerConfig controls the optional circuit breaker in front of the
// transport. An open breaker fails new sessions fast; nothing is retried.
type BreakerConfig struct {
	Enabled     bool          `yaml:"enabled"`
	MaxFailures uint32        `yaml:"max_failures"` // consecutive open failures before tripping
	OpenTimeout time.Duration `yaml:"open_timeout"` // how long the breaker stays open
}

// StreamConfig tunes frame handling.
type StreamConfig struct {
	MaxFrameBytes    int    `yaml:"max_frame_bytes"`
	ReadBufferBytes  int    `yaml:"read_buffer_bytes"`
	ToolOutputsField string `yaml:"tool_outputs_field"`
	Apology          string `yaml:"apology"`
}

// LoggerConfig holds logging settings.
type LoggerConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// TracerConfig holds tracing settings.
type TracerConfig struct {
	Enabled     bool   `yaml:"enabled"`
	Exporter    string `yaml:"exporter"`
	Output      string `yaml:"output"` // stdout exporter target: "stdout", "stderr" or a file path
	ServiceName string `yaml:"service_name"`
}

// Defaults returns a Config with sensible defaults.
func Defaults() *Config {
	return &Config{
		Agent: AgentConfig{
			Endpoint:    "http://localhost:8000/agent/stream",
			ConnTimeout: 30 * time.Second,
			RespTimeout: 120 * time.Second,
			Pool: PoolConfig{
				MaxIdleConns:        4,
				MaxIdleConnsPerHost: 2,
				MaxConnsPerHost:     4,
				IdleConnTimeout:     90 * time.Second,
			},
			Breaker: BreakerConfig{
				Enabled:     false,
				MaxFailures: 3,
				OpenTimeout: 30 * time.Second,
			},
		},
		Stream: StreamConfig{
			MaxFrameBytes:    8 * 1024 * 1024,
			ReadBufferBytes:  32 * 1024,
			ToolOutputsField: "tool_outputs",
			Apology:          "Sorry, an error occurred.",
		},
		Logger: LoggerConfig{
			Level:  "info",
			Format: "text",
			Output: "stderr",
		},
		Tracer: TracerConfig{
			Enabled:     false,
			Exporter:    "noop",
			Output:      "stderr",
			ServiceName: "chatstream",
		},
	}
}

// Load reads a YAML config file over the defaults and applies env var
// overrides. A missing file is not an error.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	data, err := os.ReadFile(path)
	switch {
	case os.IsNotExist(err):
	case err != nil:
		return nil, fmt.Errorf("read config: %w", err)
	default:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := ApplyEnvOverrides(cfg); err != nil {
		return nil, err
	}
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ApplyEnvOverrides maps CHATSTREAM_* env vars to config fields.
func ApplyEnvOverrides(cfg *Config) error {
	if v := env("AGENT_ENDPOINT"); v != "" {
		cfg.Agent.Endpoint = v
	}
	if v := env("AGENT_BREAKER_ENABLED"); v != "" {
		cfg.Agent.Breaker.Enabled = v == "true"
	}
	if v := env("STREAM_MAX_FRAME_BYTES"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%sSTREAM_MAX_FRAME_BYTES: %w", envPrefix, err)
		}
		cfg.Stream.MaxFrameBytes = n
	}
	if v := env("STREAM_APOLOGY"); v != "" {
		cfg.Stream.Apology = v
	}
	if v := env("LOGGER_LEVEL"); v != "" {
		cfg.Logger.Level = v
	}
	if v := env("LOGGER_FORMAT"); v != "" {
		cfg.Logger.Format = v
	}
	if v := env("LOGGER_OUTPUT"); v != "" {
		cfg.Logger.Output = v
	}
	if v := env("TRACER_ENABLED"); v == "true" {
		cfg.Tracer.Enabled = true
	}
	if v := env("TRACER_EXPORTER"); v != "" {
		cfg.Tracer.Exporter = v
	}
	return nil
}

func env(key string) string {
	return os.Getenv(envPrefix + key)
}
