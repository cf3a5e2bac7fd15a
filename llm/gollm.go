package llm

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/teilomillet/gollm"

	"github.com/lexcodex/reagent/framework"
)

// GollmModel serves framework.LanguageModel through gollm so providers other
// than OpenAI-compatible endpoints can drive the loop. gollm reports no
// token usage, so the context window keeps its last count.
type GollmModel struct {
	Provider string

	mu          sync.Mutex
	llm         gollm.LLM
	model       string
	temperature float64
}

// NewGollmModel builds a gollm-backed model.
func NewGollmModel(provider, model, apiKey string, maxTokens int, temperature float64) (*GollmModel, error) {
	if maxTokens <= 0 {
		maxTokens = 4096
	}
	opts := []gollm.ConfigOption{
		gollm.SetProvider(provider),
		gollm.SetModel(model),
		gollm.SetMaxTokens(maxTokens),
		gollm.SetTemperature(temperature),
		gollm.SetMaxRetries(0),
		gollm.SetLogLevel(gollm.LogLevelWarn),
	}
	if apiKey != "" {
		opts = append(opts, gollm.SetAPIKey(apiKey))
	}
	l, err := gollm.NewLLM(opts...)
	if err != nil {
		return nil, fmt.Errorf("create gollm %s client: %w", provider, err)
	}
	return &GollmModel{Provider: provider, llm: l, model: model, temperature: temperature}, nil
}

// StreamChat flattens the transcript into one prompt and relays gollm tokens.
func (g *GollmModel) StreamChat(ctx context.Context, messages []framework.Message, options *framework.LLMOptions) (<-chan framework.StreamChunk, error) {
	system, body := flattenTranscript(messages)
	promptOpts := []gollm.PromptOption{}
	if system != "" {
		promptOpts = append(promptOpts, gollm.WithSystemPrompt(system, gollm.CacheTypeEphemeral))
	}
	if options != nil && options.MaxTokens > 0 {
		promptOpts = append(promptOpts, gollm.WithMaxLength(options.MaxTokens))
	}
	prompt := gollm.NewPrompt(body, promptOpts...)

	// gollm keeps model settings on the client, so a call's overrides and
	// the request start happen under one lock.
	g.mu.Lock()
	applyCallOptions(g.llm.SetOption, g.model, g.temperature, options)
	if !g.llm.SupportsStreaming() {
		g.mu.Unlock()
		ch := make(chan framework.StreamChunk)
		go generateOnce(ctx, ch, func() (string, error) { return g.llm.Generate(ctx, prompt) })
		return ch, nil
	}
	stream, err := g.llm.Stream(ctx, prompt)
	g.mu.Unlock()
	if err != nil {
		return nil, err
	}
	ch := make(chan framework.StreamChunk)
	go func() {
		defer close(ch)
		defer stream.Close()
		for {
			token, err := stream.Next(ctx)
			if errors.Is(err, io.EOF) {
				return
			}
			if err != nil {
				select {
				case ch <- framework.StreamChunk{Err: err}:
				case <-ctx.Done():
				}
				return
			}
			if token == nil || token.Text == "" {
				continue
			}
			select {
			case ch <- framework.StreamChunk{Content: token.Text}:
			case <-ctx.Done():
				return
			}
		}
	}()
	return ch, nil
}

// applyCallOptions points the client at the call's model and temperature,
// restoring the configured defaults when the call names none.
func applyCallOptions(set func(string, interface{}), model string, temperature float64, options *framework.LLMOptions) {
	if options != nil && options.Model != "" {
		model = options.Model
	}
	if options != nil && options.Temperature != 0 {
		temperature = options.Temperature
	}
	set("model", model)
	set("temperature", temperature)
}

// generateOnce relays a non-streaming completion as a single chunk. It
// gives up on the send once ctx is done so an abandoned reader cannot strand
// the goroutine.
func generateOnce(ctx context.Context, ch chan<- framework.StreamChunk, generate func() (string, error)) {
	defer close(ch)
	text, err := generate()
	chunk := framework.StreamChunk{Content: text}
	if err != nil {
		chunk = framework.StreamChunk{Err: err}
	}
	select {
	case ch <- chunk:
	case <-ctx.Done():
	}
}

// flattenTranscript joins system messages into the system prompt and lays
// the rest out in order. User turns already carry their protocol tags, so
// only assistant turns need a marker.
func flattenTranscript(messages []framework.Message) (string, string) {
	var system []string
	var parts []string
	for _, msg := range messages {
		switch msg.Role {
		case framework.RoleSystem:
			system = append(system, strings.TrimSpace(msg.Content))
		case framework.RoleAssistant:
			parts = append(parts, "[Assistant]: "+msg.Content)
		default:
			parts = append(parts, msg.Content)
		}
	}
	return strings.Join(system, "\n"), strings.Join(parts, "\n")
}
