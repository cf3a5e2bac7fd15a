package server

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/lexcodex/reagent/agents"
	"github.com/lexcodex/reagent/framework"
	"github.com/lexcodex/reagent/tools"
)

type scriptedModel struct {
	mu      sync.Mutex
	replies []string
}

func (m *scriptedModel) StreamChat(ctx context.Context, messages []framework.Message, options *framework.LLMOptions) (<-chan framework.StreamChunk, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.replies) == 0 {
		return nil, errors.New("no scripted reply left")
	}
	reply := m.replies[0]
	m.replies = m.replies[1:]
	ch := make(chan framework.StreamChunk, 2)
	ch <- framework.StreamChunk{Content: reply}
	ch <- framework.StreamChunk{Usage: &framework.Usage{PromptTokens: 40, CompletionTokens: 4, TotalTokens: 44}}
	close(ch)
	return ch, nil
}

// newFactory returns a factory whose sessions each replay replies.
func newFactory(t *testing.T, replies ...string) SessionFactory {
	t.Helper()
	ws := t.TempDir()
	cfg, err := agents.LoadGlobalConfig(agents.DefaultConfigPath(ws), ws)
	require.NoError(t, err)
	shared, err := tools.NewShared(ws)
	require.NoError(t, err)
	return func(planFirst bool) (*agents.Session, error) {
		model := &scriptedModel{replies: append([]string(nil), replies...)}
		return agents.NewSession(cfg, agents.SessionOptions{Model: model, PlanFirst: planFirst, Shared: shared})
	}
}
