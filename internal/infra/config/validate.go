package config

import (
	"fmt"
	"net/url"
	"strings"
)

// ValidationError accumulates config validation errors.
type ValidationError struct {
	Errors []string
}

func (v *ValidationError) Error() string {
	return "config validation failed:\n  - " + strings.Join(v.Errors, "\n  - ")
}

// HasErrors reports whether any validation errors have been recorded.
func (v *ValidationError) HasErrors() bool {
	return len(v.Errors) > 0
}

// Add records a formatted validation error.
func (v *ValidationError) Add(format string, args ...interface{}) {
	v.Errors = append(v.Errors, fmt.Sprintf(format, args...))
}

// Validate checks cfg for structural correctness. It returns a *ValidationError
// when one or more problems are found, allowing callers to inspect all issues.
func Validate(cfg *Config) error {
	ve := &ValidationError{}
	validateAgent(cfg, ve)
	validateStream(cfg, ve)
	validateLogger(cfg, ve)
	validateTracer(cfg, ve)
	if ve.HasErrors() {
		return ve
	}
	return nil
}

func validateAgent(cfg *Config, ve *ValidationError) {
	a := cfg.Agent
	if a.Endpoint == "" {
		ve.Add("agent.endpoint is required")
	} else if u, err := url.Parse(a.Endpoint); err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		ve.Add("agent.endpoint %q must be an absolute http(s) URL", a.Endpoint)
	}
	if a.ConnTimeout < 0 {
		ve.Add("agent.conn_timeout must be >= 0")
	}
	if a.RespTimeout < 0 {
		ve.Add("agent.resp_timeout must be >= 0")
	}
	if a.Pool.MaxIdleConns < 0 || a.Pool.MaxIdleConnsPerHost < 0 || a.Pool.MaxConnsPerHost < 0 {
		ve.Add("agent.pool sizes must be >= 0")
	}
	if a.Breaker.Enabled {
		if a.Breaker.MaxFailures == 0 {
			ve.Add("agent.breaker.max_failures must be > 0 when the breaker is enabled")
		}
		if a.Breaker.OpenTimeout <= 0 {
			ve.Add("agent.breaker.open_timeout must be > 0 when the breaker is enabled")
		}
	}
}

func validateStream(cfg *Config, ve *ValidationError) {
	s := cfg.Stream
	if s.MaxFrameBytes <= 0 {
		ve.Add("stream.max_frame_bytes must be > 0")
	}
	if s.ReadBufferBytes <= 0 {
		ve.Add("stream.read_buffer_bytes must be > 0")
	}
	if strings.TrimSpace(s.ToolOutputsField) == "" {
		ve.Add("stream.tool_outputs_field is required")
	}
	if s.Apology == "" {
		ve.Add("stream.apology must not be empty")
	}
}

func validateLogger(cfg *Config, ve *ValidationError) {
	switch strings.ToLower(cfg.Logger.Level) {
	case "debug", "info", "warn", "warning", "error":
	default:
		ve.Add("logger.level %q is invalid (debug, info, warn, error)", cfg.Logger.Level)
	}
	switch strings.ToLower(cfg.Logger.Format) {
	case "text", "json":
	default:
		ve.Add("logger.format %q is invalid (text, json)", cfg.Logger.Format)
	}
}

func validateTracer(cfg *Config, ve *ValidationError) {
	if !cfg.Tracer.Enabled {
		return
	}
	switch cfg.Tracer.Exporter {
	case "noop", "", "stdout":
	default:
		ve.Add("tracer.exporter %q is invalid (noop, stdout)", cfg.Tracer.Exporter)
	}
}
