package persistence

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lexcodex/reagent/framework"
)

func openStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := NewSQLiteStore(filepath.Join(t.TempDir(), "history.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestSQLiteStoreSessionRoundTrip(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()

	session := &Session{
		ID:    "s1",
		Title: "fix config",
		Messages: []framework.Message{
			{Role: framework.RoleSystem, Content: "rules"},
			{Role: framework.RoleUser, Content: "<question>fix it</question>"},
			{Role: framework.RoleAssistant, Content: "<final_answer>done</final_answer>"},
		},
	}
	require.NoError(t, store.SaveSession(ctx, session))
	assert.False(t, session.CreatedAt.IsZero())

	loaded, err := store.LoadSession(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, "fix config", loaded.Title)
	assert.Equal(t, session.Messages, loaded.Messages)

	// saving again replaces the transcript
	session.Messages = session.Messages[:1]
	require.NoError(t, store.SaveSession(ctx, session))
	loaded, err = store.LoadSession(ctx, "s1")
	require.NoError(t, err)
	assert.Len(t, loaded.Messages, 1)
}

func TestSQLiteStoreListAndDelete(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()

	require.NoError(t, store.SaveSession(ctx, &Session{ID: "old", Title: "first"}))
	time.Sleep(5 * time.Millisecond)
	require.NoError(t, store.SaveSession(ctx, &Session{ID: "new", Title: "second", Messages: []framework.Message{
		{Role: framework.RoleUser, Content: "q"},
	}}))

	list, err := store.ListSessions(ctx, 0)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "new", list[0].ID)
	assert.Equal(t, 1, list[0].MessageCount)
	assert.Equal(t, 0, list[1].MessageCount)

	limited, err := store.ListSessions(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)

	require.NoError(t, store.DeleteSession(ctx, "old"))
	err = store.DeleteSession(ctx, "old")
	assert.True(t, errors.Is(err, ErrSessionNotFound))
	_, err = store.LoadSession(ctx, "old")
	assert.True(t, errors.Is(err, ErrSessionNotFound))
}

func TestSQLiteStorePlans(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()
	require.NoError(t, store.SaveSession(ctx, &Session{ID: "s"}))

	none, err := store.LatestPlan(ctx, "s")
	require.NoError(t, err)
	assert.Nil(t, none)

	plan := framework.NewTaskPlan("task", []*framework.PlanStep{
		framework.NewPlanStep(1, "read", nil),
		framework.NewPlanStep(2, "write", nil),
	})
	require.NoError(t, store.SavePlan(ctx, "s", plan))
	plan.Steps[0].MarkCompleted("ok")
	require.NoError(t, store.SavePlan(ctx, "s", plan))

	latest, err := store.LatestPlan(ctx, "s")
	require.NoError(t, err)
	require.Len(t, latest.Steps, 2)
	assert.Equal(t, "task", latest.TaskDescription)
	assert.Equal(t, framework.StepCompleted, latest.Steps[0].Status)
	assert.Equal(t, framework.StepPending, latest.Steps[1].Status)

	// plans go with their session
	require.NoError(t, store.DeleteSession(ctx, "s"))
	gone, err := store.LatestPlan(ctx, "s")
	require.NoError(t, err)
	assert.Nil(t, gone)
}

func TestSQLiteStoreHonorsCancelledContext(t *testing.T) {
	store := openStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.ErrorIs(t, store.SaveSession(ctx, &Session{ID: "x"}), context.Canceled)
	_, err := store.LoadSession(ctx, "x")
	assert.ErrorIs(t, err, context.Canceled)
	_, err = store.ListSessions(ctx, 0)
	assert.ErrorIs(t, err, context.Canceled)
	assert.ErrorIs(t, store.DeleteSession(ctx, "x"), context.Canceled)
	assert.ErrorIs(t, store.SavePlan(ctx, "x", framework.SingleStepPlan("t")), context.Canceled)
	_, err = store.LatestPlan(ctx, "x")
	assert.ErrorIs(t, err, context.Canceled)
}
