package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// Options configures the chat UI.
type Options struct {
	Controller Controller
	Workspace  string
	ModelName  string
}

// Run starts the chat UI and blocks until the user quits.
func Run(ctx context.Context, opts Options) error {
	if opts.Controller == nil {
		return fmt.Errorf("controller is required")
	}
	program := tea.NewProgram(
		NewModel(opts),
		tea.WithContext(ctx),
		tea.WithAltScreen(),
	)
	_, err := program.Run()
	return err
}

type entryKind int

const (
	entryUser entryKind = iota
	entryThought
	entryAction
	entryObservation
	entryAnswer
	entryReflection
	entrySystem
	entryError
)

// entry is one line group in the feed.
type entry struct {
	kind entryKind
	text string
	at   time.Time
}

// Model implements tea.Model. A task runs on its own goroutine and reports
// back through a channel that the model drains one message at a time.
type Model struct {
	ctrl Controller

	feed    viewport.Model
	input   textarea.Model
	spinner spinner.Model
	status  StatusBar

	entries []entry
	partial string

	running bool
	cancel  context.CancelFunc
	events  chan tea.Msg
	started time.Time

	width  int
	height int
	ready  bool
}

// NewModel builds the initial UI state.
func NewModel(opts Options) Model {
	input := textarea.New()
	input.Placeholder = "Describe a task, or /help"
	input.ShowLineNumbers = false
	input.SetHeight(3)
	input.CharLimit = 0
	input.KeyMap.InsertNewline = key.NewBinding(key.WithKeys("alt+enter", "ctrl+j"))
	input.Focus()

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))

	snap := opts.Controller.Usage()
	return Model{
		ctrl:    opts.Controller,
		feed:    viewport.New(0, 0),
		input:   input,
		spinner: sp,
		status: StatusBar{
			workspace: opts.Workspace,
			model:     opts.ModelName,
			planFirst: opts.Controller.PlanFirst(),
			tokens:    snap.CurrentTokens,
			maxTokens: snap.MaxTokens,
		},
	}
}

// Init fulfills the Bubble Tea Model interface.
func (m Model) Init() tea.Cmd {
	return textarea.Blink
}

// submit starts a task or runs a slash command.
func (m Model) submit() (Model, tea.Cmd) {
	value := strings.TrimSpace(m.input.Value())
	if value == "" {
		return m, nil
	}
	m.input.Reset()
	if strings.HasPrefix(value, "/") {
		return m.runCommand(value)
	}
	if m.running {
		return m.addEntry(entrySystem, "A task is already running. Press esc to stop it."), nil
	}
	m = m.addEntry(entryUser, value)

	ctx, cancel := context.WithCancel(context.Background())
	ch := make(chan tea.Msg, 64)
	m.running = true
	m.cancel = cancel
	m.events = ch
	m.partial = ""
	m.started = time.Now()

	ctrl := m.ctrl
	go func() {
		defer close(ch)
		send := func(msg tea.Msg) {
			select {
			case ch <- msg:
			case <-ctx.Done():
			}
		}
		start := time.Now()
		result, err := ctrl.Run(ctx, value, send)
		// the done message must arrive even after cancellation
		ch <- doneMsg{result: result, err: err, elapsed: time.Since(start)}
	}()
	return m, tea.Batch(listen(ch), m.spinner.Tick)
}

func (m Model) stop() Model {
	if m.cancel != nil {
		m.cancel()
	}
	return m
}

// addEntry appends to the feed and keeps the view pinned to the bottom.
func (m Model) addEntry(kind entryKind, text string) Model {
	m.entries = append(m.entries, entry{kind: kind, text: text, at: time.Now()})
	return m.refreshFeed()
}

func (m Model) refreshFeed() Model {
	if !m.ready {
		return m
	}
	m.feed.SetContent(m.renderEntries())
	m.feed.GotoBottom()
	return m
}

func (m Model) refreshUsage() Model {
	snap := m.ctrl.Usage()
	m.status.tokens = snap.CurrentTokens
	m.status.maxTokens = snap.MaxTokens
	return m
}
