package main

import (
	"context"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"chatstream/internal/domain"
)

func newAskCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "ask <query>",
		Short: "Ask a single question and print the streamed answer",
		Long: `Send one query, stream the answer to stdout and exit.
Ctrl-C aborts the stream. The exit code is non-zero unless the answer
completed.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runAsk(ctx, cmd, flags, strings.Join(args, " "))
		},
	}
}

func runAsk(ctx context.Context, cmd *cobra.Command, flags *rootFlags, query string) error {
	a, err := newApp(context.WithoutCancel(ctx), flags)
	if err != nil {
		return err
	}
	defer a.close(context.WithoutCancel(ctx))

	p := newPrinter(cmd.OutOrStdout(), cmd.ErrOrStderr(), a.cfg.Stream.Apology)
	a.bus.SubscribeAll(p.handle)

	s, err := a.thread.Send(ctx, query)
	if err != nil {
		return err
	}
	res := s.Wait()
	a.log.Debug("ask finished",
		"session_id", res.SessionID,
		"status", res.Status.String(),
		"frames", res.Frames,
		"dropped", res.Dropped,
	)
	if res.Status != domain.StatusCompleted {
		return domain.NewDomainError("ask", res.Err, res.Status.String())
	}
	return nil
}
