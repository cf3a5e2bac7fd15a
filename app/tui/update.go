package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/lexcodex/reagent/framework"
)

const helpText = `Commands:
  /plan [on|off]  plan before acting (toggles without an argument)
  /clear          start a new conversation
  /usage          show context window usage
  /quit           leave
Enter sends, alt+enter inserts a newline, esc stops a running task.`

const maxObservationLines = 12

// Update applies incoming Bubble Tea messages to mutate the Model state.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		return m.handleResize(msg), nil
	case tea.KeyMsg:
		return m.handleKey(msg)
	case spinner.TickMsg:
		if !m.running {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	case tokenMsg:
		if msg.kind == framework.TokenContent {
			m.partial += msg.text
		}
		return m, listen(m.events)
	case progressMsg:
		return m.addEntry(entrySystem, string(msg)), listen(m.events)
	case eventMsg:
		return m.handleEvent(framework.Event(msg)), listen(m.events)
	case doneMsg:
		return m.handleDone(msg), nil
	}
	return m, nil
}

func (m Model) handleResize(msg tea.WindowSizeMsg) Model {
	m.width = msg.Width
	m.height = msg.Height
	inputHeight := m.input.Height() + 1
	feedHeight := msg.Height - inputHeight - 2
	if feedHeight < 1 {
		feedHeight = 1
	}
	m.feed.Width = msg.Width
	m.feed.Height = feedHeight
	m.input.SetWidth(msg.Width - 2)
	m.ready = true
	return m.refreshFeed()
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c":
		if m.running {
			return m.stop(), nil
		}
		return m, tea.Quit
	case "esc":
		if m.running {
			return m.stop(), nil
		}
		return m, nil
	case "enter":
		return m.submit()
	case "pgup", "pgdown":
		var cmd tea.Cmd
		m.feed, cmd = m.feed.Update(msg)
		return m, cmd
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) handleEvent(e framework.Event) Model {
	switch e.Type {
	case framework.EventPlan:
		return m.addEntry(entrySystem, "Plan:\n"+strings.TrimRight(e.Message, "\n"))
	case framework.EventThought:
		m.partial = ""
		return m.addEntry(entryThought, e.Message)
	case framework.EventAction:
		return m.addEntry(entryAction, e.Message)
	case framework.EventObservation:
		return m.addEntry(entryObservation, clipLines(e.Message, maxObservationLines))
	case framework.EventFinalAnswer:
		m.partial = ""
		return m.addEntry(entryAnswer, e.Message)
	case framework.EventReflection:
		return m.addEntry(entryReflection, e.Message)
	case framework.EventSummary:
		return m.addEntry(entrySystem, "Context restarted from a summary.")
	case framework.EventUsage:
		return m.refreshUsage()
	}
	return m
}

func (m Model) handleDone(msg doneMsg) Model {
	m.running = false
	m.cancel = nil
	m.events = nil
	m.partial = ""
	m.status.duration += msg.elapsed
	m = m.refreshUsage()
	switch {
	case msg.err == nil:
		if msg.result != nil && msg.result.Recovery != "" {
			m = m.addEntry(entrySystem, fmt.Sprintf("(answer recovered from malformed output: %s)", msg.result.Recovery))
		}
	case errors.Is(msg.err, context.Canceled):
		m = m.addEntry(entrySystem, "Stopped.")
	default:
		m = m.addEntry(entryError, msg.err.Error())
	}
	return m
}

func (m Model) runCommand(raw string) (Model, tea.Cmd) {
	fields := strings.Fields(strings.TrimPrefix(raw, "/"))
	if len(fields) == 0 {
		return m.addEntry(entrySystem, helpText), nil
	}
	switch fields[0] {
	case "help":
		return m.addEntry(entrySystem, helpText), nil
	case "quit", "exit":
		m = m.stop()
		return m, tea.Quit
	case "usage":
		snap := m.ctrl.Usage()
		return m.addEntry(entrySystem, fmt.Sprintf("Context: %d/%d tokens (%.1f%%, %s), %d messages.",
			snap.CurrentTokens, snap.MaxTokens, snap.UsagePercent, snap.State, len(snap.Messages))), nil
	case "plan":
		if m.running {
			return m.addEntry(entrySystem, "Wait for the running task to finish."), nil
		}
		on := !m.ctrl.PlanFirst()
		if len(fields) > 1 {
			on = fields[1] == "on"
		}
		m.ctrl.SetPlanFirst(on)
		m.status.planFirst = on
		state := "off"
		if on {
			state = "on"
		}
		return m.addEntry(entrySystem, "Planning is "+state+"."), nil
	case "clear":
		if m.running {
			return m.addEntry(entrySystem, "Wait for the running task to finish."), nil
		}
		m.ctrl.Reset()
		m.entries = nil
		m.status.duration = 0
		m = m.refreshUsage()
		return m.addEntry(entrySystem, "New conversation."), nil
	}
	return m.addEntry(entrySystem, fmt.Sprintf("Unknown command /%s. Try /help.", fields[0])), nil
}

func clipLines(s string, max int) string {
	lines := strings.Split(strings.TrimRight(s, "\n"), "\n")
	if len(lines) <= max {
		return strings.Join(lines, "\n")
	}
	return strings.Join(lines[:max], "\n") + fmt.Sprintf("\n… %d more lines", len(lines)-max)
}
