package framework

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestContextWindowWrapsMessages(t *testing.T) {
	w := NewContextWindow("sys", 100)
	w.AddUserMessage("task")
	w.AddAssistantAction("ReadFileTool().run({})")
	w.AddObservation("ok")
	w.AddFinalAnswer("done")

	msgs := w.GetMessages()
	require.Len(t, msgs, 5)
	assert.Equal(t, Message{Role: RoleSystem, Content: "sys"}, msgs[0])
	assert.Equal(t, "<question>task</question>", msgs[1].Content)
	assert.Equal(t, RoleAssistant, msgs[2].Role)
	assert.Equal(t, "<action>ReadFileTool().run({})</action>", msgs[2].Content)
	assert.Equal(t, RoleUser, msgs[3].Role)
	assert.Equal(t, "<observation>ok</observation>", msgs[3].Content)
	assert.Equal(t, "<final_answer>done</final_answer>", msgs[4].Content)
}

func TestContextWindowGetMessagesIsCopy(t *testing.T) {
	w := NewContextWindow("sys", 100)
	w.AddUserMessage("task")
	msgs := w.GetMessages()
	msgs[0].Content = "tampered"

	assert.Equal(t, "sys", w.GetMessages()[0].Content)
	assert.Equal(t, 2, w.Len())
}

func TestContextWindowEvictsOldestNonSystem(t *testing.T) {
	w := NewContextWindow("sys", 100)
	w.AddUserMessage("a")
	w.AddObservation("b")

	w.UpdateTokenUsage(80)
	assert.Equal(t, 3, w.Len())

	w.UpdateTokenUsage(150)
	msgs := w.GetMessages()
	require.Len(t, msgs, 1)
	assert.Equal(t, RoleSystem, msgs[0].Role)
	// the reported figure is kept until the provider sends a new one
	assert.Equal(t, 150, w.CurrentTokens())
}

func TestContextWindowEvictionInvariant(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	w := NewContextWindow("sys", 500)
	for i := 0; i < 2000; i++ {
		switch rng.Intn(5) {
		case 0:
			w.AddUserMessage("u")
		case 1:
			w.AddAssistantAction("a")
		case 2:
			w.AddObservation("o")
		case 3:
			w.AddFinalAnswer("f")
		case 4:
			w.UpdateTokenUsage(rng.Intn(1000))
			if w.Len() != 1 && w.CurrentTokens() > w.MaxTokens() {
				t.Fatalf("iteration %d: %d messages with %d/%d tokens", i, w.Len(), w.CurrentTokens(), w.MaxTokens())
			}
		}
		if w.GetMessages()[0].Role != RoleSystem {
			t.Fatalf("iteration %d: system message displaced", i)
		}
	}
}

func TestContextWindowUsageQueries(t *testing.T) {
	w := NewContextWindow("sys", 1000)
	assert.Equal(t, 0.0, w.GetTokenUsagePercent())
	assert.Equal(t, 1000, w.GetRemainingTokens())

	w.UpdateTokenUsage(250)
	assert.InDelta(t, 25.0, w.GetTokenUsagePercent(), 0.001)
	assert.Equal(t, 750, w.GetRemainingTokens())
	assert.Equal(t, BudgetOK, w.CheckBudget())

	w.UpdateTokenUsage(850)
	assert.Equal(t, BudgetNeedsCompression, w.CheckBudget())

	w.UpdateTokenUsage(1200)
	assert.Equal(t, 0, w.GetRemainingTokens())
	assert.Equal(t, BudgetCritical, w.CheckBudget())
	assert.Equal(t, "Critical", w.CheckBudget().String())
}

func TestContextWindowDefaultsBudget(t *testing.T) {
	w := NewContextWindow("sys", 0)
	assert.Equal(t, DefaultMaxContextTokens, w.MaxTokens())
}

func TestContextWindowResetSegment(t *testing.T) {
	w := NewContextWindow("sys", 100)
	w.AddUserMessage("task")
	w.AddObservation("o")
	w.ResetSegment("did a and b")

	msgs := w.GetMessages()
	require.Len(t, msgs, 2)
	assert.Equal(t, "sys", msgs[0].Content)
	assert.Equal(t, "<summary>did a and b</summary>", msgs[1].Content)
}

func TestContextWindowSnapshot(t *testing.T) {
	w := NewContextWindow("sys", 200)
	w.AddUserMessage("task")
	w.UpdateTokenUsage(150)

	snap := w.Snapshot()
	assert.Len(t, snap.Messages, 2)
	assert.Equal(t, 150, snap.CurrentTokens)
	assert.Equal(t, 50, snap.RemainingTokens)
	assert.Equal(t, BudgetWarning, snap.State)

	w.AddObservation("later")
	assert.Len(t, snap.Messages, 2)
}
