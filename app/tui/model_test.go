package tui

import (
	"context"
	"errors"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lexcodex/reagent/agents/pattern"
	"github.com/lexcodex/reagent/framework"
)

type fakeController struct {
	planFirst bool
	resets    int
	run       func(ctx context.Context, task string, send func(tea.Msg)) (*pattern.RunResult, error)
}

func (f *fakeController) Run(ctx context.Context, task string, send func(tea.Msg)) (*pattern.RunResult, error) {
	return f.run(ctx, task, send)
}
func (f *fakeController) SetPlanFirst(on bool) { f.planFirst = on }
func (f *fakeController) PlanFirst() bool      { return f.planFirst }
func (f *fakeController) Reset()               { f.resets++ }
func (f *fakeController) Usage() framework.WindowSnapshot {
	return framework.WindowSnapshot{CurrentTokens: 120, MaxTokens: 1000}
}

func newTestModel(ctrl Controller) Model {
	m := NewModel(Options{Controller: ctrl, Workspace: "/tmp/ws", ModelName: "test"})
	updated, _ := m.Update(tea.WindowSizeMsg{Width: 100, Height: 40})
	return updated.(Model)
}

func typeAndSend(m Model, text string) (Model, tea.Cmd) {
	m.input.SetValue(text)
	updated, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	return updated.(Model), cmd
}

// drain feeds task messages back into the model until the task finishes.
func drain(t *testing.T, m Model) Model {
	t.Helper()
	ch := m.events
	require.NotNil(t, ch)
	timeout := time.After(2 * time.Second)
	for m.running {
		select {
		case msg, ok := <-ch:
			if !ok {
				t.Fatal("task channel closed without done message")
			}
			updated, _ := m.Update(msg)
			m = updated.(Model)
		case <-timeout:
			t.Fatal("task did not finish")
		}
	}
	return m
}

func kinds(m Model) []entryKind {
	out := make([]entryKind, 0, len(m.entries))
	for _, e := range m.entries {
		out = append(out, e.kind)
	}
	return out
}

func TestModelRunsTaskAndRendersEvents(t *testing.T) {
	ctrl := &fakeController{run: func(ctx context.Context, task string, send func(tea.Msg)) (*pattern.RunResult, error) {
		send(tokenMsg{kind: framework.TokenContent, text: "<thought>look"})
		send(eventMsg{Type: framework.EventThought, Message: "look at " + task})
		send(eventMsg{Type: framework.EventAction, Message: `ListFilesTool().run({})`})
		send(eventMsg{Type: framework.EventObservation, Message: "a.txt"})
		send(eventMsg{Type: framework.EventFinalAnswer, Message: "one file"})
		send(eventMsg{Type: framework.EventUsage})
		return &pattern.RunResult{FinalAnswer: "one file"}, nil
	}}
	m := newTestModel(ctrl)

	m, cmd := typeAndSend(m, "count files")
	require.NotNil(t, cmd)
	assert.True(t, m.running)
	assert.Empty(t, m.input.Value())

	m = drain(t, m)
	assert.Equal(t, []entryKind{entryUser, entryThought, entryAction, entryObservation, entryAnswer}, kinds(m))
	assert.Equal(t, "look at count files", m.entries[1].text)
	assert.Empty(t, m.partial)
	assert.Equal(t, 120, m.status.tokens)
	assert.Contains(t, m.View(), "ready")
}

func TestModelStopsRunningTask(t *testing.T) {
	ctrl := &fakeController{run: func(ctx context.Context, task string, send func(tea.Msg)) (*pattern.RunResult, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	}}
	m := newTestModel(ctrl)
	m, _ = typeAndSend(m, "long task")

	updated, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEsc})
	m = updated.(Model)
	assert.Nil(t, cmd)
	m = drain(t, m)
	assert.Equal(t, "Stopped.", m.entries[len(m.entries)-1].text)
}

func TestModelReportsErrors(t *testing.T) {
	ctrl := &fakeController{run: func(ctx context.Context, task string, send func(tea.Msg)) (*pattern.RunResult, error) {
		return nil, errors.New("model call failed: 503")
	}}
	m := newTestModel(ctrl)
	m, _ = typeAndSend(m, "x")
	m = drain(t, m)
	last := m.entries[len(m.entries)-1]
	assert.Equal(t, entryError, last.kind)
	assert.Equal(t, "model call failed: 503", last.text)
}

func TestModelSlashCommands(t *testing.T) {
	ctrl := &fakeController{}
	m := newTestModel(ctrl)

	m, _ = typeAndSend(m, "/plan")
	assert.True(t, ctrl.planFirst)
	assert.True(t, m.status.planFirst)
	m, _ = typeAndSend(m, "/plan off")
	assert.False(t, ctrl.planFirst)

	m, _ = typeAndSend(m, "/usage")
	assert.Contains(t, m.entries[len(m.entries)-1].text, "120/1000 tokens")

	m, _ = typeAndSend(m, "/clear")
	assert.Equal(t, 1, ctrl.resets)
	require.Len(t, m.entries, 1)
	assert.Equal(t, "New conversation.", m.entries[0].text)

	m, _ = typeAndSend(m, "/bogus")
	assert.Contains(t, m.entries[len(m.entries)-1].text, "Unknown command /bogus")

	_, cmd := typeAndSend(m, "/quit")
	require.NotNil(t, cmd)
	assert.Equal(t, tea.Quit(), cmd())
}

func TestClipLines(t *testing.T) {
	assert.Equal(t, "a\nb", clipLines("a\nb\n", 3))
	assert.Equal(t, "a\nb\n… 2 more lines", clipLines("a\nb\nc\nd", 2))
}
