package framework

import (
	"context"
	"strings"
)

// Usage is the provider-reported token accounting for one completion.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// StreamChunk is one increment of a streamed completion. Usage is normally
// only set on the terminal chunk. Err ends the stream.
type StreamChunk struct {
	Content   string
	Reasoning string
	Usage     *Usage
	Err       error
}

// LLMOptions overrides per-call model settings.
type LLMOptions struct {
	Model       string
	Temperature float64
	MaxTokens   int
}

// LanguageModel streams chat completions. The returned channel is closed
// when the stream ends; a failure mid-stream arrives as a chunk with Err set.
type LanguageModel interface {
	StreamChat(ctx context.Context, messages []Message, options *LLMOptions) (<-chan StreamChunk, error)
}

// CompletionResult is an accumulated stream.
type CompletionResult struct {
	Content   string
	Reasoning string
	Usage     *Usage
}

// TokenKind tags streamed text handed to observers.
type TokenKind string

const (
	TokenContent   TokenKind = "content"
	TokenReasoning TokenKind = "reasoning"
	TokenPlan      TokenKind = "plan"
)

// Collect drains a stream, forwarding each increment to onToken when set.
// The last usage record seen wins.
func Collect(ctx context.Context, stream <-chan StreamChunk, kind TokenKind, onToken func(TokenKind, string)) (*CompletionResult, error) {
	var content, reasoning strings.Builder
	result := &CompletionResult{}
	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case chunk, ok := <-stream:
			if !ok {
				result.Content = content.String()
				result.Reasoning = reasoning.String()
				return result, nil
			}
			if chunk.Err != nil {
				return nil, chunk.Err
			}
			if chunk.Reasoning != "" {
				reasoning.WriteString(chunk.Reasoning)
				if onToken != nil {
					onToken(TokenReasoning, chunk.Reasoning)
				}
			}
			if chunk.Content != "" {
				content.WriteString(chunk.Content)
				if onToken != nil {
					onToken(kind, chunk.Content)
				}
			}
			if chunk.Usage != nil {
				u := *chunk.Usage
				result.Usage = &u
			}
		}
	}
}
