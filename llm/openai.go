package llm

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/lexcodex/reagent/framework"
)

const (
	DefaultBaseURL = "https://integrate.api.nvidia.com/v1"
	DefaultModel   = "openai/gpt-oss-120b"
)

// Client implements framework.LanguageModel against any OpenAI-compatible
// chat completions endpoint using server-sent events.
type Client struct {
	BaseURL string
	APIKey  string
	Model   string
	Debug   bool
	Logger  *slog.Logger
	client  *http.Client
}

type chatRequest struct {
	Model         string         `json:"model"`
	Messages      []chatMessage  `json:"messages"`
	Stream        bool           `json:"stream"`
	StreamOptions *streamOptions `json:"stream_options,omitempty"`
	Temperature   *float64       `json:"temperature,omitempty"`
	MaxTokens     int            `json:"max_tokens,omitempty"`
}

type streamOptions struct {
	IncludeUsage bool `json:"include_usage"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatChunk struct {
	Choices []struct {
		Delta struct {
			Content          string `json:"content"`
			ReasoningContent string `json:"reasoning_content"`
			Reasoning        string `json:"reasoning"`
		} `json:"delta"`
		FinishReason *string `json:"finish_reason"`
	} `json:"choices"`
	Usage *framework.Usage `json:"usage"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

// NewClient builds a client. Empty values fall back to the defaults.
func NewClient(baseURL, apiKey, model string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if model == "" {
		model = DefaultModel
	}
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		APIKey:  apiKey,
		Model:   model,
		client:  &http.Client{Timeout: 10 * time.Minute},
	}
}

// SetDebugLogging enables or disables request/response payload logging.
func (c *Client) SetDebugLogging(enabled bool) {
	c.Debug = enabled
}

// StreamChat posts the transcript with stream=true and decodes the SSE
// response. Usage arrives on the terminal chunk when the provider honours
// stream_options.include_usage.
func (c *Client) StreamChat(ctx context.Context, messages []framework.Message, options *framework.LLMOptions) (<-chan framework.StreamChunk, error) {
	payload := chatRequest{
		Model:         c.model(options),
		Messages:      convertMessages(messages),
		Stream:        true,
		StreamOptions: &streamOptions{IncludeUsage: true},
	}
	if options != nil {
		if options.Temperature != 0 {
			t := options.Temperature
			payload.Temperature = &t
		}
		payload.MaxTokens = options.MaxTokens
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	c.logPayload("/chat/completions", body)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "text/event-stream")
	if c.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.APIKey)
	}
	resp, err := c.getHTTPClient().Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= 300 {
		defer resp.Body.Close()
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		detail := strings.TrimSpace(string(msg))
		if detail != "" {
			return nil, fmt.Errorf("openai error: %s: %s", resp.Status, detail)
		}
		return nil, fmt.Errorf("openai error: %s", resp.Status)
	}

	ch := make(chan framework.StreamChunk)
	go func() {
		defer resp.Body.Close()
		defer close(ch)
		send := func(chunk framework.StreamChunk) bool {
			select {
			case ch <- chunk:
				return true
			case <-ctx.Done():
				return false
			}
		}
		if err := c.readEvents(resp.Body, send); err != nil {
			send(framework.StreamChunk{Err: err})
		}
	}()
	return ch, nil
}

// Complete streams a completion and accumulates it.
func (c *Client) Complete(ctx context.Context, messages []framework.Message, options *framework.LLMOptions) (*framework.CompletionResult, error) {
	stream, err := c.StreamChat(ctx, messages, options)
	if err != nil {
		return nil, err
	}
	return framework.Collect(ctx, stream, framework.TokenContent, nil)
}

// readEvents decodes "data:" lines until [DONE] or EOF.
func (c *Client) readEvents(r io.Reader, send func(framework.StreamChunk) bool) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if !strings.HasPrefix(line, "data:") {
			continue
		}
		data := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
		if data == "[DONE]" {
			return nil
		}
		c.logResponse("/chat/completions", []byte(data))
		var chunk chatChunk
		if err := json.Unmarshal([]byte(data), &chunk); err != nil {
			return fmt.Errorf("decode stream chunk: %w", err)
		}
		if chunk.Error != nil {
			return fmt.Errorf("openai error: %s", chunk.Error.Message)
		}
		out := framework.StreamChunk{Usage: chunk.Usage}
		for _, choice := range chunk.Choices {
			out.Content += choice.Delta.Content
			if choice.Delta.ReasoningContent != "" {
				out.Reasoning += choice.Delta.ReasoningContent
			} else {
				out.Reasoning += choice.Delta.Reasoning
			}
		}
		if out.Content == "" && out.Reasoning == "" && out.Usage == nil {
			continue
		}
		if !send(out) {
			return nil
		}
	}
	return scanner.Err()
}

func (c *Client) getHTTPClient() *http.Client {
	if c.client != nil {
		return c.client
	}
	c.client = &http.Client{Timeout: 10 * time.Minute}
	return c.client
}

func (c *Client) model(options *framework.LLMOptions) string {
	if options != nil && options.Model != "" {
		return options.Model
	}
	if c.Model != "" {
		return c.Model
	}
	return DefaultModel
}

func convertMessages(messages []framework.Message) []chatMessage {
	out := make([]chatMessage, 0, len(messages))
	for _, msg := range messages {
		out = append(out, chatMessage{Role: string(msg.Role), Content: msg.Content})
	}
	return out
}

func (c *Client) logPayload(path string, payload []byte) {
	if !c.Debug {
		return
	}
	c.logger().Debug("llm request", "path", path, "payload", truncate(string(payload), 2048))
}

func (c *Client) logResponse(path string, resp []byte) {
	if !c.Debug {
		return
	}
	c.logger().Debug("llm stream chunk", "path", path, "payload", truncate(string(resp), 2048))
}

func (c *Client) logger() *slog.Logger {
	if c.Logger == nil {
		return slog.Default().With("component", "openai")
	}
	return c.Logger
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "...(truncated)"
}
