package llm

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lexcodex/reagent/framework"
)

func TestFlattenTranscript(t *testing.T) {
	system, body := flattenTranscript([]framework.Message{
		{Role: framework.RoleSystem, Content: "rules\n"},
		{Role: framework.RoleUser, Content: "<question>q</question>"},
		{Role: framework.RoleAssistant, Content: "<action>X().run({})</action>"},
		{Role: framework.RoleUser, Content: "<observation>o</observation>"},
	})
	assert.Equal(t, "rules", system)
	assert.Equal(t, "<question>q</question>\n[Assistant]: <action>X().run({})</action>\n<observation>o</observation>", body)
}

func TestFlattenTranscriptEmpty(t *testing.T) {
	system, body := flattenTranscript(nil)
	assert.Empty(t, system)
	assert.Empty(t, body)
}

func TestApplyCallOptions(t *testing.T) {
	set := map[string]interface{}{}
	record := func(key string, value interface{}) { set[key] = value }

	applyCallOptions(record, "base", 0.2, &framework.LLMOptions{Model: "big", Temperature: 0.7})
	assert.Equal(t, "big", set["model"])
	assert.Equal(t, 0.7, set["temperature"])

	applyCallOptions(record, "base", 0.2, nil)
	assert.Equal(t, "base", set["model"])
	assert.Equal(t, 0.2, set["temperature"])
}

func TestGenerateOnceRelaysResult(t *testing.T) {
	ch := make(chan framework.StreamChunk, 1)
	generateOnce(context.Background(), ch, func() (string, error) { return "hi", nil })
	chunk, ok := <-ch
	require.True(t, ok)
	assert.Equal(t, "hi", chunk.Content)
	_, ok = <-ch
	assert.False(t, ok)
}

func TestGenerateOnceReturnsWhenReaderGone(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	ch := make(chan framework.StreamChunk)
	done := make(chan struct{})
	go func() {
		generateOnce(ctx, ch, func() (string, error) { return "", errors.New("boom") })
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("generateOnce blocked on an unread channel")
	}
}
