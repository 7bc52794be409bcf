package tui

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"
)

// Prompter surfaces the connectivity detector's sync prompt inside the TUI.
// ConfirmSync blocks until the user answers or the context ends; an
// unanswered prompt counts as a deferral.
type Prompter struct {
	program *tea.Program
}

// NewPrompter wraps a running program.
func NewPrompter(program *tea.Program) *Prompter {
	return &Prompter{program: program}
}

func (p *Prompter) ConfirmSync(ctx context.Context, pendingCount int) bool {
	reply := make(chan bool, 1)
	p.program.Send(SyncPromptMsg{PendingCount: pendingCount, Reply: reply})

	select {
	case accepted := <-reply:
		return accepted
	case <-ctx.Done():
		return false
	}
}
