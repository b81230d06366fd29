package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"chatstream/internal/domain"
)

const chatHelp = `Type a message and press Enter. Commands:
  /tools   list tool outputs from the last answer
  /clear   start a new conversation
  /exit    quit
Ctrl-C stops a streaming answer; at the prompt it quits.`

func newChatCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "chat",
		Short: "Start an interactive chat session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp(cmd.Context(), flags)
			if err != nil {
				return err
			}
			defer a.close(context.WithoutCancel(cmd.Context()))

			interrupts := make(chan os.Signal, 1)
			signal.Notify(interrupts, os.Interrupt)
			defer signal.Stop(interrupts)

			return runChat(cmd.Context(), a, replIO{
				in:          cmd.InOrStdin(),
				out:         cmd.OutOrStdout(),
				errOut:      cmd.ErrOrStderr(),
				interactive: isTerminal(cmd.InOrStdin()),
			}, interrupts)
		},
	}
}

type replIO struct {
	in          io.Reader
	out, errOut io.Writer
	interactive bool
}

func isTerminal(r io.Reader) bool {
	f, ok := r.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// runChat reads queries line by line until EOF, /exit or an interrupt at
// the prompt. An interrupt while an answer streams stops that answer.
func runChat(ctx context.Context, a *app, rio replIO, interrupts <-chan os.Signal) error {
	p := newPrinter(rio.out, rio.errOut, a.cfg.Stream.Apology)
	unsubscribe := a.bus.SubscribeAll(p.handle)
	defer unsubscribe()

	lines := make(chan string)
	quit := make(chan struct{})
	defer close(quit)
	go func() {
		defer close(lines)
		sc := bufio.NewScanner(rio.in)
		sc.Buffer(make([]byte, 64*1024), 1024*1024)
		for sc.Scan() {
			select {
			case lines <- sc.Text():
			case <-quit:
				return
			}
		}
	}()

	if rio.interactive {
		fmt.Fprintln(rio.out, chatHelp)
	}
	for {
		if rio.interactive {
			fmt.Fprint(rio.out, "> ")
		}

		var line string
		select {
		case <-ctx.Done():
			return nil
		case <-interrupts:
			fmt.Fprintln(rio.out)
			return nil
		case l, ok := <-lines:
			if !ok {
				return nil
			}
			line = strings.TrimSpace(l)
		}

		switch {
		case line == "":
			continue
		case line == "/exit" || line == "/quit":
			return nil
		case line == "/clear":
			a.thread.Clear(ctx)
			continue
		case line == "/tools":
			printTools(rio.out, a.thread.ToolOutputs())
			continue
		case line == "/help":
			fmt.Fprintln(rio.out, chatHelp)
			continue
		}

		s, err := a.thread.Send(ctx, line)
		if err != nil {
			fmt.Fprintf(rio.errOut, "error: %v\n", err)
			continue
		}
		select {
		case <-s.Done():
		case <-interrupts:
			a.thread.Stop()
			<-s.Done()
		}
		if res := s.Wait(); res.Status == domain.StatusErrored {
			a.log.Debug("answer failed", "code", string(domain.ErrorCodeOf(res.Err)))
		}
	}
}
