package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"

	"github.com/joho/godotenv"

	"chatstream/internal/adapter/agent"
	"chatstream/internal/domain"
	"chatstream/internal/infra/config"
	"chatstream/internal/infra/logger"
	"chatstream/internal/infra/tracer"
	"chatstream/internal/usecase"
	"chatstream/internal/usecase/eventbus"
	"chatstream/internal/usecase/stream"
)

// app is the wired runtime shared by the chat and ask commands.
type app struct {
	cfg    *config.Config
	log    *slog.Logger
	bus    *eventbus.Bus
	thread *usecase.ChatThread

	closers []func(context.Context) error
}

// loadConfig reads the dotenv file, the config file and flag overrides.
func loadConfig(flags *rootFlags) (*config.Config, error) {
	if flags.envFile != "" {
		if err := godotenv.Load(flags.envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s: %w", domain.ErrConfigLoad, flags.envFile, err)
		}
	}

	path := flags.configPath
	if path == "" {
		path = config.DefaultPath
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrConfigLoad, err)
	}

	if flags.endpoint != "" {
		cfg.Agent.Endpoint = flags.endpoint
	}
	if flags.logLevel != "" {
		cfg.Logger.Level = flags.logLevel
	}
	if err := config.Validate(cfg); err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrConfigLoad, err)
	}
	return cfg, nil
}

// newApp wires logger, tracer, transport, event bus and chat thread.
func newApp(ctx context.Context, flags *rootFlags) (*app, error) {
	cfg, err := loadConfig(flags)
	if err != nil {
		return nil, err
	}

	log, logCloser, err := logger.New(cfg.Logger)
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}
	a := &app{cfg: cfg, log: log}
	a.closers = append(a.closers, func(context.Context) error { return logCloser() })

	tracerShutdown, err := tracer.Setup(ctx, cfg.Tracer)
	if err != nil {
		a.close(ctx)
		return nil, fmt.Errorf("tracer: %w", err)
	}
	a.closers = append(a.closers, tracerShutdown)

	client := agent.NewClient(cfg.Agent, agent.WithLogger(log))
	var opener stream.Opener = client
	if cfg.Agent.Breaker.Enabled {
		opener = agent.NewBreaker(opener, cfg.Agent.Breaker, log)
	}

	a.bus = eventbus.New(log)
	a.closers = append(a.closers, func(context.Context) error { a.bus.Close(); return nil })

	a.thread = usecase.NewChatThread(opener,
		usecase.WithThreadLogger(log),
		usecase.WithThreadPublisher(a.bus),
		usecase.WithSessionOptions(usecase.StreamOptions(cfg.Stream)...),
	)
	log.Debug("chatstream ready", "endpoint", client.Endpoint(), "thread_id", a.thread.ID())
	return a, nil
}

// close releases resources in reverse order of acquisition.
func (a *app) close(ctx context.Context) {
	if a.thread != nil {
		a.thread.Stop()
		if s := a.thread.Current(); s != nil {
			s.Wait()
		}
	}
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](ctx); err != nil && a.log != nil {
			a.log.Warn("shutdown step failed", "error", err)
		}
	}
}
