package tui

import (
	"context"
	"log/slog"
	"sync"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/lexcodex/reagent/agents"
	"github.com/lexcodex/reagent/agents/pattern"
	"github.com/lexcodex/reagent/framework"
	"github.com/lexcodex/reagent/persistence"
)

// Controller is what the UI needs from an agent session.
type Controller interface {
	// Run executes one task, delivering loop events through send.
	Run(ctx context.Context, task string, send func(tea.Msg)) (*pattern.RunResult, error)
	SetPlanFirst(on bool)
	PlanFirst() bool
	Reset()
	Usage() framework.WindowSnapshot
}

// SessionController drives an agents.Session and saves the conversation
// after every task when a store is configured.
type SessionController struct {
	Session *agents.Session
	Store   *persistence.SQLiteStore
	Logger  *slog.Logger

	mu     sync.Mutex
	record *persistence.Session
}

func (c *SessionController) Run(ctx context.Context, task string, send func(tea.Msg)) (*pattern.RunResult, error) {
	agent := c.Session.Agent
	agent.Telemetry = framework.TelemetryFunc(func(e framework.Event) { send(eventMsg(e)) })
	agent.OnToken = func(kind framework.TokenKind, text string) { send(tokenMsg{kind: kind, text: text}) }
	agent.OnProgress = func(msg string) { send(progressMsg(msg)) }

	result, err := agent.Run(ctx, task)
	c.save(context.WithoutCancel(ctx), task)
	return result, err
}

func (c *SessionController) save(ctx context.Context, task string) {
	if c.Store == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.record == nil {
		c.record = &persistence.Session{Title: task}
	}
	c.record.Messages = c.Session.Agent.Window().GetMessages()
	if err := c.Store.SaveSession(ctx, c.record); err != nil {
		c.logger().Warn("chat not saved", "error", err)
		return
	}
	if plan := c.Session.State.Plan(); plan != nil {
		if err := c.Store.SavePlan(ctx, c.record.ID, plan); err != nil {
			c.logger().Warn("plan not saved", "error", err)
		}
	}
}

func (c *SessionController) SetPlanFirst(on bool) { c.Session.Agent.PlanFirst = on }
func (c *SessionController) PlanFirst() bool      { return c.Session.Agent.PlanFirst }

// Reset clears the transcript and starts a new saved conversation.
func (c *SessionController) Reset() {
	c.Session.Agent.Reset()
	c.Session.State.SetPlan(nil)
	c.mu.Lock()
	c.record = nil
	c.mu.Unlock()
}

func (c *SessionController) Usage() framework.WindowSnapshot {
	return c.Session.Agent.Window().Snapshot()
}

func (c *SessionController) logger() *slog.Logger {
	if c.Logger == nil {
		return slog.Default()
	}
	return c.Logger
}
