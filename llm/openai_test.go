package llm

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lexcodex/reagent/framework"
)

type roundTripFunc func(*http.Request) *http.Response

func (f roundTripFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req), nil
}

func sseResponse(status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Status:     http.StatusText(status),
		Body:       io.NopCloser(strings.NewReader(body)),
		Header:     make(http.Header),
	}
}

func collect(t *testing.T, ch <-chan framework.StreamChunk) []framework.StreamChunk {
	t.Helper()
	var out []framework.StreamChunk
	for chunk := range ch {
		out = append(out, chunk)
	}
	return out
}

func TestClientStreamChat(t *testing.T) {
	body := strings.Join([]string{
		`data: {"choices":[{"delta":{"reasoning_content":"thinking"}}]}`,
		``,
		`: keep-alive`,
		`data: {"choices":[{"delta":{"content":"<thought>hi"}}]}`,
		`data: {"choices":[{"delta":{"content":"</thought>"},"finish_reason":"stop"}]}`,
		`data: {"choices":[],"usage":{"prompt_tokens":42,"completion_tokens":7,"total_tokens":49}}`,
		`data: [DONE]`,
		`data: {"choices":[{"delta":{"content":"ignored"}}]}`,
	}, "\n")
	client := NewClient("http://fake/v1/", "secret", "m")
	client.client = &http.Client{Transport: roundTripFunc(func(req *http.Request) *http.Response {
		assert.Equal(t, "/v1/chat/completions", req.URL.Path)
		assert.Equal(t, "Bearer secret", req.Header.Get("Authorization"))
		var payload map[string]interface{}
		assert.NoError(t, json.NewDecoder(req.Body).Decode(&payload))
		assert.Equal(t, "override", payload["model"])
		assert.Equal(t, true, payload["stream"])
		assert.Equal(t, map[string]interface{}{"include_usage": true}, payload["stream_options"])
		assert.Equal(t, 0.2, payload["temperature"])
		assert.Equal(t, float64(256), payload["max_tokens"])
		msgs := payload["messages"].([]interface{})
		assert.Equal(t, map[string]interface{}{"role": "system", "content": "sys"}, msgs[0])
		return sseResponse(200, body)
	})}

	ch, err := client.StreamChat(context.Background(), []framework.Message{
		{Role: framework.RoleSystem, Content: "sys"},
		{Role: framework.RoleUser, Content: "<question>hi</question>"},
	}, &framework.LLMOptions{Model: "override", Temperature: 0.2, MaxTokens: 256})
	require.NoError(t, err)

	res, err := framework.Collect(context.Background(), ch, framework.TokenContent, nil)
	require.NoError(t, err)
	assert.Equal(t, "<thought>hi</thought>", res.Content)
	assert.Equal(t, "thinking", res.Reasoning)
	require.NotNil(t, res.Usage)
	assert.Equal(t, 42, res.Usage.PromptTokens)
	assert.Equal(t, 49, res.Usage.TotalTokens)
}

func TestClientStreamChatWithoutUsage(t *testing.T) {
	client := NewClient("http://fake", "", "")
	client.client = &http.Client{Transport: roundTripFunc(func(req *http.Request) *http.Response {
		assert.Empty(t, req.Header.Get("Authorization"))
		var payload map[string]interface{}
		assert.NoError(t, json.NewDecoder(req.Body).Decode(&payload))
		assert.Equal(t, DefaultModel, payload["model"])
		_, hasTemp := payload["temperature"]
		assert.False(t, hasTemp)
		return sseResponse(200, "data: {\"choices\":[{\"delta\":{\"content\":\"ok\"}}]}\n")
	})}

	ch, err := client.StreamChat(context.Background(), nil, nil)
	require.NoError(t, err)
	chunks := collect(t, ch)
	require.Len(t, chunks, 1)
	assert.Equal(t, "ok", chunks[0].Content)
	assert.Nil(t, chunks[0].Usage)
}

func TestClientStreamChatReasoningField(t *testing.T) {
	body := strings.Join([]string{
		`data: {"choices":[{"delta":{"reasoning":"thinking"}}]}`,
		`data: {"choices":[{"delta":{"reasoning_content":" more","reasoning":" dup"}}]}`,
		`data: {"choices":[{"delta":{"content":"<final_answer>ok</final_answer>"}}]}`,
		`data: [DONE]`,
	}, "\n")
	client := NewClient("http://fake", "k", "m")
	client.client = &http.Client{Transport: roundTripFunc(func(req *http.Request) *http.Response {
		return sseResponse(200, body)
	})}

	res, err := client.Complete(context.Background(), nil, nil)
	require.NoError(t, err)
	assert.Equal(t, "thinking more", res.Reasoning)
	assert.Equal(t, "<final_answer>ok</final_answer>", res.Content)
}

func TestClientStreamChatHTTPError(t *testing.T) {
	client := NewClient("http://fake", "k", "m")
	client.client = &http.Client{Transport: roundTripFunc(func(req *http.Request) *http.Response {
		return sseResponse(401, `{"error":"bad key"}`)
	})}

	_, err := client.StreamChat(context.Background(), nil, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad key")
}

func TestClientStreamChatMidStreamFailures(t *testing.T) {
	cases := map[string]string{
		"provider error": "data: {\"choices\":[{\"delta\":{\"content\":\"par\"}}]}\ndata: {\"error\":{\"message\":\"overloaded\"}}\n",
		"bad json":       "data: {\"choices\":[{\"delta\":{\"content\":\"par\"}}]}\ndata: {oops\n",
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			client := NewClient("http://fake", "k", "m")
			client.client = &http.Client{Transport: roundTripFunc(func(req *http.Request) *http.Response {
				return sseResponse(200, body)
			})}
			ch, err := client.StreamChat(context.Background(), nil, nil)
			require.NoError(t, err)
			chunks := collect(t, ch)
			require.Len(t, chunks, 2)
			assert.Equal(t, "par", chunks[0].Content)
			assert.Error(t, chunks[1].Err)
		})
	}
}
