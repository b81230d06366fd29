package main

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/charmbracelet/lipgloss"

	"chatstream/internal/domain"
)

// maxToolPreview bounds the tool content shown inline.
const maxToolPreview = 120

// printer renders session events as plain text. Snapshots are cumulative,
// so only the unseen suffix is written; a snapshot that rewrites earlier
// text is printed again in full on a new line.
type printer struct {
	mu      sync.Mutex
	out     io.Writer
	errOut  io.Writer
	apology string
	shown   string

	toolStyle    lipgloss.Style
	stoppedStyle lipgloss.Style
}

// newPrinter styles markers per writer, so redirected output stays plain.
func newPrinter(out, errOut io.Writer, apology string) *printer {
	p := &printer{out: out, errOut: errOut, apology: apology}
	p.toolStyle = lipgloss.NewRenderer(errOut).NewStyle().
		Foreground(lipgloss.Color("62"))
	p.stoppedStyle = lipgloss.NewRenderer(out).NewStyle().
		Foreground(lipgloss.Color("214")).
		Bold(true)
	return p
}

func (p *printer) handle(_ context.Context, ev domain.Event) {
	p.mu.Lock()
	defer p.mu.Unlock()

	switch ev.Type {
	case domain.EventSessionStarted:
		p.shown = ""
	case domain.EventStreamSnapshot:
		p.render(ev.State.StreamingText)
	case domain.EventStreamToolOutput:
		for _, t := range ev.Batch {
			fmt.Fprintln(p.errOut, p.toolStyle.Render("[tool "+t.Name+"]"), preview(t.Content))
		}
	case domain.EventSessionCompleted:
		if ev.State.FinalText != nil {
			p.render(*ev.State.FinalText)
		}
		fmt.Fprintln(p.out)
	case domain.EventSessionErrored:
		if p.shown != "" {
			fmt.Fprintln(p.out)
		}
		fmt.Fprintln(p.out, p.apology)
		fmt.Fprintf(p.errOut, "error: %s\n", ev.Error)
	case domain.EventSessionAborted:
		fmt.Fprintln(p.out, "", p.stoppedStyle.Render("[stopped]"))
	case domain.EventThreadCleared:
		fmt.Fprintln(p.out, "(conversation cleared)")
	}
}

func (p *printer) render(text string) {
	if strings.HasPrefix(text, p.shown) {
		io.WriteString(p.out, text[len(p.shown):])
	} else {
		fmt.Fprint(p.out, "\n"+text)
	}
	p.shown = text
}

func preview(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	if len(s) <= maxToolPreview {
		return s
	}
	return s[:maxToolPreview] + "..."
}

// printTools lists tool outputs for the /tools command.
func printTools(w io.Writer, tools []domain.ToolOutputEvent) {
	if len(tools) == 0 {
		fmt.Fprintln(w, "(no tool outputs)")
		return
	}
	for i, t := range tools {
		status := t.Status
		if status == "" {
			status = "-"
		}
		fmt.Fprintf(w, "%d. %s [%s] call=%s\n   %s\n", i+1, t.Name, status, t.ToolCallID, preview(t.Content))
	}
}
