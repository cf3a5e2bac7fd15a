package tools

import (
	"context"
	"errors"
	"strings"

	"github.com/lexcodex/reagent/framework"
)

// SummarizeContextTool lets the model restart its transcript from a summary
// when the context window runs low.
type SummarizeContextTool struct {
	State *framework.SessionState
}

func (t *SummarizeContextTool) Name() string { return "summarize_context" }
func (t *SummarizeContextTool) Description() string {
	return "Replaces the conversation so far with your summary. Include the task, what is done, key findings and next steps."
}
func (t *SummarizeContextTool) Parameters() []framework.ToolParameter {
	return []framework.ToolParameter{
		{Name: "summary", Type: "string", Description: "self-contained summary of the work so far", Required: true},
	}
}
func (t *SummarizeContextTool) Run(ctx context.Context, params map[string]interface{}) (string, error) {
	summary, err := framework.RequireString(params, "summary")
	if err != nil {
		return "", err
	}
	summary = strings.TrimSpace(summary)
	if summary == "" {
		return "", errors.New("summary must not be empty")
	}
	t.State.RequestSegment(summary)
	return "Summary recorded. The conversation continues from the summary.", nil
}
