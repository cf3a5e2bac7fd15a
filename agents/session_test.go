package agents

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lexcodex/reagent/framework"
	"github.com/lexcodex/reagent/llm"
	"github.com/lexcodex/reagent/tools"
)

type scriptedModel struct {
	replies []string
}

func (m *scriptedModel) StreamChat(ctx context.Context, messages []framework.Message, options *framework.LLMOptions) (<-chan framework.StreamChunk, error) {
	reply := m.replies[0]
	m.replies = m.replies[1:]
	ch := make(chan framework.StreamChunk, 2)
	ch <- framework.StreamChunk{Content: reply}
	ch <- framework.StreamChunk{Usage: &framework.Usage{PromptTokens: 50, CompletionTokens: 5, TotalTokens: 55}}
	close(ch)
	return ch, nil
}

func TestNewSessionRunsTaskWithPlanTools(t *testing.T) {
	ws := t.TempDir()
	cfg, err := LoadGlobalConfig(DefaultConfigPath(ws), ws)
	require.NoError(t, err)

	model := &scriptedModel{replies: []string{
		`{"steps": [{"description": "say hi", "expected_tools": []}]}`,
		`<thought>done</thought><action>UpdateStepStatusTool().run({"step_number": 1, "status": "completed"})</action>`,
		`<thought>ok</thought><final_answer>hi</final_answer>`,
	}}
	session, err := NewSession(cfg, SessionOptions{Model: model, PlanFirst: true})
	require.NoError(t, err)

	res, err := session.Agent.Run(context.Background(), "greet")
	require.NoError(t, err)
	assert.Equal(t, "hi", res.FinalAnswer)
	require.NotNil(t, session.State.Plan())
	assert.Equal(t, framework.StepCompleted, session.State.Plan().Steps[0].Status)
	assert.Contains(t, session.Planner.ToolNames, "ReadFileTool")
}

func TestNewModelSelectsProvider(t *testing.T) {
	cfg := &GlobalConfig{}
	cfg.Model.BaseURL = "http://localhost:8000/v1/"
	cfg.Model.Name = "m"
	model, err := NewModel(cfg, nil)
	require.NoError(t, err)
	client, ok := model.(*llm.Client)
	require.True(t, ok)
	assert.Equal(t, "http://localhost:8000/v1", client.BaseURL)

	cfg.Model.Provider = "bedrock"
	_, err = NewModel(cfg, nil)
	assert.Error(t, err)
}

func TestNewModelTagsClientLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	model, err := NewModel(&GlobalConfig{}, logger)
	require.NoError(t, err)
	client := model.(*llm.Client)
	client.Logger.Info("hello")
	assert.Contains(t, buf.String(), "component=openai")
}

func TestSessionsShareWorkspaceTodos(t *testing.T) {
	ws := t.TempDir()
	cfg, err := LoadGlobalConfig(DefaultConfigPath(ws), ws)
	require.NoError(t, err)
	shared, err := tools.NewShared(ws)
	require.NoError(t, err)

	one, err := NewSession(cfg, SessionOptions{Model: &scriptedModel{}, Shared: shared})
	require.NoError(t, err)
	two, err := NewSession(cfg, SessionOptions{Model: &scriptedModel{}, Shared: shared})
	require.NoError(t, err)

	a, ok := one.Tools.Get("add_todo")
	require.True(t, ok)
	b, ok := two.Tools.Get("add_todo")
	require.True(t, ok)
	assert.Same(t, shared.Todos, a.(*tools.AddTodoTool).Store)
	assert.Same(t, shared.Todos, b.(*tools.AddTodoTool).Store)
}
