package tui

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/lexcodex/reagent/agents/pattern"
	"github.com/lexcodex/reagent/framework"
)

// eventMsg carries a loop event to the UI goroutine.
type eventMsg framework.Event

// tokenMsg is one streamed fragment of model output.
type tokenMsg struct {
	kind framework.TokenKind
	text string
}

// progressMsg is a human-readable status line from the loop or planner.
type progressMsg string

// doneMsg ends a task. It is always the last message on a task channel.
type doneMsg struct {
	result  *pattern.RunResult
	err     error
	elapsed time.Duration
}

// listen waits for the next message of a running task.
func listen(ch <-chan tea.Msg) tea.Cmd {
	return func() tea.Msg {
		msg, ok := <-ch
		if !ok {
			return nil
		}
		return msg
	}
}
