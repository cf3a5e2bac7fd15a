package llm

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/lexcodex/reagent/framework"
)

// InstrumentedModel wraps a LanguageModel and emits telemetry for prompts and
// completed streams.
type InstrumentedModel struct {
	Inner     framework.LanguageModel
	Telemetry framework.Telemetry
	Debug     bool
}

func NewInstrumentedModel(inner framework.LanguageModel, telemetry framework.Telemetry, debug bool) *InstrumentedModel {
	return &InstrumentedModel{Inner: inner, Telemetry: telemetry, Debug: debug}
}

// StreamChat forwards to the inner model. The response event is emitted once
// the relayed stream ends.
func (m *InstrumentedModel) StreamChat(ctx context.Context, messages []framework.Message, options *framework.LLMOptions) (<-chan framework.StreamChunk, error) {
	m.emitPrompt(ctx, messages, options)
	started := time.Now()
	inner, err := m.Inner.StreamChat(ctx, messages, options)
	if err != nil {
		m.emitResponse(ctx, "", nil, err, time.Since(started))
		return nil, err
	}
	out := make(chan framework.StreamChunk)
	go func() {
		defer close(out)
		var text strings.Builder
		var usage *framework.Usage
		var streamErr error
		for chunk := range inner {
			text.WriteString(chunk.Content)
			if chunk.Usage != nil {
				usage = chunk.Usage
			}
			if chunk.Err != nil {
				streamErr = chunk.Err
			}
			select {
			case out <- chunk:
			case <-ctx.Done():
				// drain so the producer can exit
				for range inner {
				}
				m.emitResponse(ctx, text.String(), usage, ctx.Err(), time.Since(started))
				return
			}
		}
		m.emitResponse(ctx, text.String(), usage, streamErr, time.Since(started))
	}()
	return out, nil
}

func (m *InstrumentedModel) emitPrompt(ctx context.Context, messages []framework.Message, options *framework.LLMOptions) {
	if m == nil || m.Telemetry == nil {
		return
	}
	roles := make([]string, 0, len(messages))
	for _, msg := range messages {
		roles = append(roles, string(msg.Role))
	}
	metadata := map[string]interface{}{
		"model":         modelFromOptions(options),
		"message_count": len(messages),
		"roles":         roles,
	}
	if len(messages) > 0 {
		metadata["last_message_preview"] = clip(messages[len(messages)-1].Content, 1024)
	}
	if m.Debug {
		full := make([]map[string]interface{}, 0, len(messages))
		for _, msg := range messages {
			full = append(full, map[string]interface{}{
				"role":    msg.Role,
				"content": clip(msg.Content, 8192),
			})
		}
		metadata["messages"] = full
	}
	taskID := taskInfo(ctx, metadata)
	m.Telemetry.Emit(framework.Event{
		Type:      framework.EventLLMPrompt,
		TaskID:    taskID,
		Timestamp: time.Now().UTC(),
		Message:   fmt.Sprintf("llm prompt with %d messages", len(messages)),
		Metadata:  metadata,
	})
}

func (m *InstrumentedModel) emitResponse(ctx context.Context, text string, usage *framework.Usage, err error, elapsed time.Duration) {
	if m == nil || m.Telemetry == nil {
		return
	}
	metadata := map[string]interface{}{
		"text_preview": clip(text, 1024),
		"chars":        len(text),
		"elapsed_ms":   elapsed.Milliseconds(),
	}
	if usage != nil {
		metadata["usage"] = *usage
	}
	if err != nil {
		metadata["error"] = err.Error()
	}
	taskID := taskInfo(ctx, metadata)
	m.Telemetry.Emit(framework.Event{
		Type:      framework.EventLLMResponse,
		TaskID:    taskID,
		Timestamp: time.Now().UTC(),
		Message:   "llm response",
		Metadata:  metadata,
	})
}

func modelFromOptions(options *framework.LLMOptions) string {
	if options != nil && options.Model != "" {
		return options.Model
	}
	return ""
}

func taskInfo(ctx context.Context, metadata map[string]interface{}) string {
	task, ok := framework.TaskContextFrom(ctx)
	if !ok {
		return ""
	}
	if task.Instruction != "" {
		metadata["instruction_preview"] = clip(task.Instruction, 1024)
	}
	return task.ID
}

func clip(s string, max int) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	if max <= 0 {
		return ""
	}
	if len(s) <= max {
		return s
	}
	return s[:max] + "...(truncated)"
}
