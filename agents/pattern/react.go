package pattern

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/lexcodex/reagent/framework"
)

const defaultMaxIterations = 30

// ReActAgent drives one conversation through think, act and observe turns.
// It owns the context window; a single goroutine must call Run at a time.
type ReActAgent struct {
	Model     framework.LanguageModel
	Tools     *framework.ToolRegistry
	Config    *framework.Config
	Planner   *TaskPlanner
	State     *framework.SessionState
	Env       Environment
	Logger    *slog.Logger
	Telemetry framework.Telemetry

	// PlanFirst runs the planner before the first turn of every task.
	PlanFirst bool
	// OnToken receives streamed content, reasoning and plan text.
	OnToken func(kind framework.TokenKind, text string)
	// OnProgress receives human-readable progress lines.
	OnProgress func(string)

	maxIterations int
	dispatcher    *framework.Dispatcher
	window        *framework.ContextWindow
}

// RunResult summarizes a finished task.
type RunResult struct {
	TaskID      string
	FinalAnswer string
	Reflection  string
	Recovery    Recovery
	Turns       int
	Plan        *framework.TaskPlan
}

// Initialize wires configuration and builds the context window.
func (a *ReActAgent) Initialize(config *framework.Config) error {
	if a.Model == nil {
		return errors.New("react agent missing language model")
	}
	if config == nil {
		config = &framework.Config{}
	}
	a.Config = config
	a.maxIterations = config.MaxIterations
	if a.maxIterations <= 0 {
		a.maxIterations = defaultMaxIterations
	}
	if a.Tools == nil {
		a.Tools = framework.NewToolRegistry()
	}
	a.Tools.Seal()
	if a.Logger == nil {
		a.Logger = slog.Default()
	}
	a.Logger = a.Logger.With("component", "react")
	if a.State == nil {
		a.State = framework.NewSessionState()
	}
	if a.Env.Workspace == "" {
		a.Env.Workspace = config.Workspace
	}
	if a.Env.OperatingSystem == "" {
		a.Env.OperatingSystem = config.OperatingSystem
	}
	if a.Env.Language == "" {
		a.Env.Language = config.Language
	}
	a.dispatcher = framework.NewDispatcher(a.Tools, a.Logger)
	a.Reset()
	return nil
}

// Reset starts a fresh transcript holding only the system prompt.
func (a *ReActAgent) Reset() {
	prompt := BuildSystemPrompt(a.Tools.All(), a.Env)
	a.window = framework.NewContextWindow(prompt, a.Config.MaxContextTokens)
}

// Window exposes the context window. Readers on other goroutines should use
// its Snapshot method.
func (a *ReActAgent) Window() *framework.ContextWindow {
	return a.window
}

// debugf logs at debug level whenever agent debug logging is enabled.
func (a *ReActAgent) debugf(msg string, args ...interface{}) {
	if a.Config == nil || !a.Config.DebugAgent {
		return
	}
	a.Logger.Debug(msg, args...)
}

// Run executes task until the model produces a final answer. Only a protocol
// violation, a model failure or cancellation end the task with an error;
// tool problems are fed back to the model as observations.
func (a *ReActAgent) Run(ctx context.Context, task string) (*RunResult, error) {
	if a.window == nil {
		if err := a.Initialize(a.Config); err != nil {
			return nil, err
		}
	}
	result := &RunResult{TaskID: uuid.NewString()}
	ctx = framework.WithTaskContext(ctx, framework.TaskContext{ID: result.TaskID, Instruction: task})
	a.emit(result.TaskID, 0, framework.EventTaskStart, task, nil)

	question := task
	if a.PlanFirst && a.Planner != nil {
		plan := a.Planner.createPlan(ctx, task, a.progress, a.OnToken)
		a.State.SetPlan(plan)
		result.Plan = plan
		a.emit(result.TaskID, 0, framework.EventPlan, plan.Markdown(), nil)
		question = fmt.Sprintf("%s\n\nPlan (update it with UpdateStepStatusTool as you go):\n%s", task, plan.Format())
	}
	a.window.AddUserMessage(question)

	for turn := 1; turn <= a.maxIterations; turn++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		result.Turns = turn
		text, err := a.complete(ctx, result.TaskID, turn)
		if err != nil {
			a.emit(result.TaskID, turn, framework.EventTaskError, err.Error(), nil)
			return nil, fmt.Errorf("model call failed: %w", err)
		}

		decision, err := DecideTurn(text)
		if err != nil {
			a.Logger.Error("unusable model output", "turn", turn, "output", truncate(text, 500))
			a.emit(result.TaskID, turn, framework.EventTaskError, err.Error(), nil)
			return nil, err
		}
		if decision.Sections.HasThought {
			a.emit(result.TaskID, turn, framework.EventThought, decision.Sections.Thought, nil)
		}

		if decision.IsFinal {
			if decision.Recovery != RecoveryNone {
				a.Logger.Warn("recovered final answer from malformed output", "heuristic", decision.Recovery)
			}
			a.window.AddFinalAnswer(decision.FinalAnswer)
			result.FinalAnswer = decision.FinalAnswer
			result.Recovery = decision.Recovery
			a.emit(result.TaskID, turn, framework.EventFinalAnswer, decision.FinalAnswer, nil)
			if decision.Sections.HasReflection {
				result.Reflection = decision.Sections.Reflection
				a.emit(result.TaskID, turn, framework.EventReflection, decision.Sections.Reflection, nil)
			}
			return result, nil
		}

		a.window.AddAssistantAction(decision.Action)
		a.emit(result.TaskID, turn, framework.EventAction, decision.Action, nil)
		observation := a.dispatcher.Execute(ctx, decision.Action)
		a.window.AddObservation(observation)
		a.emit(result.TaskID, turn, framework.EventObservation, observation, nil)

		if summary, ok := a.State.TakeSegment(); ok {
			a.window.ResetSegment(summary)
			a.emit(result.TaskID, turn, framework.EventSummary, summary, nil)
			a.debugf("started new context segment", "turn", turn)
		}
	}
	err := &framework.ProtocolError{Reason: fmt.Sprintf("no final answer after %d turns", a.maxIterations)}
	a.emit(result.TaskID, a.maxIterations, framework.EventTaskError, err.Error(), nil)
	return nil, err
}

// complete streams one model reply over the whole transcript and records the
// provider's token report.
func (a *ReActAgent) complete(ctx context.Context, taskID string, turn int) (string, error) {
	opts := &framework.LLMOptions{
		Model:       a.Config.Model,
		Temperature: a.Config.Temperature,
		MaxTokens:   a.Config.MaxTokens,
	}
	stream, err := a.Model.StreamChat(ctx, a.window.GetMessages(), opts)
	if err != nil {
		return "", err
	}
	started := time.Now()
	res, err := framework.Collect(ctx, stream, framework.TokenContent, a.OnToken)
	if err != nil {
		return "", err
	}
	a.debugf("model reply", "turn", turn, "chars", len(res.Content), "reasoning_chars", len(res.Reasoning), "elapsed", time.Since(started))

	switch {
	case res.Usage == nil:
		a.Logger.Warn("usage not found in stream, token count is stale", "turn", turn, "current_tokens", a.window.CurrentTokens())
	case res.Usage.PromptTokens <= 0:
		a.Logger.Warn("prompt_tokens missing from usage, token count is stale", "turn", turn)
	default:
		a.window.UpdateTokenUsage(res.Usage.PromptTokens)
		a.emit(taskID, turn, framework.EventUsage, "", map[string]interface{}{
			"prompt_tokens":     res.Usage.PromptTokens,
			"completion_tokens": res.Usage.CompletionTokens,
			"total_tokens":      res.Usage.TotalTokens,
			"usage_percent":     a.window.GetTokenUsagePercent(),
		})
		if state := a.window.CheckBudget(); state >= framework.BudgetNeedsCompression {
			a.progress(fmt.Sprintf("Context usage %.1f%% (%s)", a.window.GetTokenUsagePercent(), state))
		}
	}
	return res.Content, nil
}

func (a *ReActAgent) progress(msg string) {
	if a.OnProgress != nil {
		a.OnProgress(msg)
	}
}

func (a *ReActAgent) emit(taskID string, turn int, typ framework.EventType, msg string, meta map[string]interface{}) {
	if a.Telemetry == nil {
		return
	}
	a.Telemetry.Emit(framework.Event{
		Type:      typ,
		TaskID:    taskID,
		Turn:      turn,
		Message:   msg,
		Timestamp: time.Now(),
		Metadata:  meta,
	})
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}
