package pattern

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"unicode"

	"github.com/lexcodex/reagent/framework"
)

const (
	planningTemperature = 0.7
	planningMaxTokens   = 2048
	previewLength       = 80
)

// TaskPlanner asks a model for a step plan. Planning is advisory: every
// failure degrades to a one-step plan holding the raw task.
type TaskPlanner struct {
	Model         framework.LanguageModel
	PlanningModel string
	ToolNames     []string
	MaxPlanSteps  int
	Env           Environment
	Logger        *slog.Logger

	// OnToken receives the streamed plan text and any reasoning.
	OnToken func(kind framework.TokenKind, text string)
}

// NewTaskPlanner wires a planner from the shared config.
func NewTaskPlanner(model framework.LanguageModel, cfg *framework.Config, toolNames []string, env Environment, logger *slog.Logger) *TaskPlanner {
	if logger == nil {
		logger = slog.Default()
	}
	p := &TaskPlanner{
		Model:     model,
		ToolNames: toolNames,
		Env:       env,
		Logger:    logger.With("component", "planner"),
	}
	if cfg != nil {
		p.PlanningModel = cfg.PlannerModel()
		p.MaxPlanSteps = cfg.MaxPlanSteps
	}
	return p
}

// CreatePlan streams a planning completion and parses it into a TaskPlan.
// progress, when set, receives a live preview and any error summary.
func (p *TaskPlanner) CreatePlan(ctx context.Context, task string, progress func(string)) *framework.TaskPlan {
	return p.createPlan(ctx, task, progress, p.OnToken)
}

func (p *TaskPlanner) createPlan(ctx context.Context, task string, progress func(string), onToken func(framework.TokenKind, string)) *framework.TaskPlan {
	report := func(msg string) {
		if progress != nil {
			progress(msg)
		}
	}
	maxSteps := p.MaxPlanSteps
	if maxSteps <= 0 {
		maxSteps = framework.DefaultMaxPlanSteps
	}

	text, err := p.stream(ctx, task, maxSteps, report, onToken)
	if err != nil {
		perr := &framework.PlanningError{Cause: err}
		p.logger().Warn("planning failed, using single step", "error", perr)
		report(fmt.Sprintf("Planning failed: %v. Treating the task as a single step.", err))
		return framework.SingleStepPlan(task)
	}

	plan := ParsePlan(task, text)
	if plan.Compact(maxSteps) {
		p.logger().Info("plan compacted", "steps", len(plan.Steps), "max", maxSteps)
	}
	return plan
}

func (p *TaskPlanner) stream(ctx context.Context, task string, maxSteps int, report func(string), onToken func(framework.TokenKind, string)) (string, error) {
	if p.Model == nil {
		return "", fmt.Errorf("planner has no model")
	}
	messages := buildPlanningMessages(task, p.ToolNames, maxSteps, p.Env)
	stream, err := p.Model.StreamChat(ctx, messages, &framework.LLMOptions{
		Model:       p.PlanningModel,
		Temperature: planningTemperature,
		MaxTokens:   planningMaxTokens,
	})
	if err != nil {
		return "", err
	}
	var seen strings.Builder
	res, err := framework.Collect(ctx, stream, framework.TokenPlan, func(kind framework.TokenKind, text string) {
		if onToken != nil {
			onToken(kind, text)
		}
		if kind != framework.TokenPlan {
			return
		}
		seen.WriteString(text)
		report("Planning: " + preview(seen.String(), previewLength))
	})
	if err != nil {
		return "", err
	}
	return res.Content, nil
}

func (p *TaskPlanner) logger() *slog.Logger {
	if p.Logger == nil {
		return slog.Default()
	}
	return p.Logger
}

func preview(s string, max int) string {
	s = strings.Join(strings.Fields(s), " ")
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return "..." + string(r[len(r)-max:])
}

type planPayload struct {
	Steps []struct {
		Description   string   `json:"description"`
		ExpectedTools []string `json:"expected_tools"`
	} `json:"steps"`
}

// ParsePlan reads planner output. JSON is tried first; then numbered or
// bulleted lines; if nothing is found the task itself becomes the only step.
func ParsePlan(task, text string) *framework.TaskPlan {
	if steps := parseJSONSteps(text); len(steps) > 0 {
		return framework.NewTaskPlan(task, steps)
	}
	if steps := parseListSteps(text); len(steps) > 0 {
		return framework.NewTaskPlan(task, steps)
	}
	return framework.SingleStepPlan(task)
}

func parseJSONSteps(text string) []*framework.PlanStep {
	snippet := ExtractJSONSnippet(text)
	if snippet == "" {
		return nil
	}
	var payload planPayload
	if err := json.Unmarshal([]byte(snippet), &payload); err != nil {
		return nil
	}
	steps := make([]*framework.PlanStep, 0, len(payload.Steps))
	for _, raw := range payload.Steps {
		desc := strings.TrimSpace(raw.Description)
		if desc == "" {
			continue
		}
		steps = append(steps, framework.NewPlanStep(len(steps)+1, desc, raw.ExpectedTools))
	}
	return steps
}

func parseListSteps(text string) []*framework.PlanStep {
	var steps []*framework.PlanStep
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		var desc string
		switch {
		case line[0] >= '0' && line[0] <= '9':
			digits := strings.IndexFunc(line, func(r rune) bool { return !unicode.IsDigit(r) })
			if digits < 0 || (line[digits] != '.' && line[digits] != ')') {
				continue
			}
			desc = line[digits+1:]
		case line[0] == '-', line[0] == '*':
			desc = line[1:]
		default:
			continue
		}
		desc = strings.TrimSpace(desc)
		if desc == "" {
			continue
		}
		steps = append(steps, framework.NewPlanStep(len(steps)+1, desc, nil))
	}
	return steps
}
