package tools

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/lexcodex/reagent/framework"
)

const noPlan = "No active plan. Plans exist only when the task was started with planning enabled."

// UpdateStepStatusTool records progress on a plan step.
type UpdateStepStatusTool struct {
	State *framework.SessionState
}

func (t *UpdateStepStatusTool) Name() string { return "update_step_status" }
func (t *UpdateStepStatusTool) Description() string {
	return "Updates a plan step: in_progress, completed, failed or skipped, with an optional result or error."
}
func (t *UpdateStepStatusTool) Parameters() []framework.ToolParameter {
	return []framework.ToolParameter{
		{Name: "step_number", Type: "integer", Description: "1-based step number", Required: true},
		{Name: "status", Type: "string", Description: "pending, in_progress, completed, failed or skipped", Required: true},
		{Name: "result", Type: "string", Description: "outcome for completed or skipped steps"},
		{Name: "error", Type: "string", Description: "reason for failed steps"},
	}
}
func (t *UpdateStepStatusTool) Run(ctx context.Context, params map[string]interface{}) (string, error) {
	plan := t.State.Plan()
	if plan == nil {
		return stepReply(false, noPlan, nil)
	}
	n, err := framework.OptionalInt(params, "step_number", 0)
	if err != nil {
		return "", err
	}
	step := plan.StepByNumber(n)
	if step == nil {
		return stepReply(false, fmt.Sprintf("Step %d does not exist; the plan has %d steps.", n, len(plan.Steps)), nil)
	}
	raw, err := framework.RequireString(params, "status")
	if err != nil {
		return "", err
	}
	status, err := framework.ParseStepStatus(raw)
	if err != nil {
		return stepReply(false, err.Error(), nil)
	}
	result := framework.OptionalString(params, "result", "")
	switch status {
	case framework.StepInProgress:
		step.MarkStarted()
	case framework.StepCompleted:
		step.MarkCompleted(result)
	case framework.StepFailed:
		step.MarkFailed(framework.OptionalString(params, "error", result))
	case framework.StepSkipped:
		step.MarkSkipped(result)
	case framework.StepPending:
		step.Status = framework.StepPending
	}
	return stepReply(true, fmt.Sprintf("Step %d is now %s.", n, status), step.ToMap())
}

func stepReply(success bool, result string, step map[string]interface{}) (string, error) {
	data, err := json.Marshal(map[string]interface{}{
		"success": success,
		"result":  result,
		"step":    step,
	})
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// MoveToNextStepTool advances the plan cursor.
type MoveToNextStepTool struct {
	State *framework.SessionState
}

func (t *MoveToNextStepTool) Name() string        { return "move_to_next_step" }
func (t *MoveToNextStepTool) Description() string { return "Moves the plan to its next step." }
func (t *MoveToNextStepTool) Parameters() []framework.ToolParameter {
	return nil
}
func (t *MoveToNextStepTool) Run(ctx context.Context, params map[string]interface{}) (string, error) {
	plan := t.State.Plan()
	if plan == nil {
		return noPlan, nil
	}
	if !plan.MoveToNextStep() {
		return "Already at the last step.", nil
	}
	step := plan.GetCurrentStep()
	return fmt.Sprintf("Now on step %d: %s", step.StepNumber, step.Description), nil
}

// GetPlanStatusTool reports the whole plan.
type GetPlanStatusTool struct {
	State *framework.SessionState
}

func (t *GetPlanStatusTool) Name() string        { return "get_plan_status" }
func (t *GetPlanStatusTool) Description() string { return "Returns the plan, its progress and a formatted view." }
func (t *GetPlanStatusTool) Parameters() []framework.ToolParameter {
	return nil
}
func (t *GetPlanStatusTool) Run(ctx context.Context, params map[string]interface{}) (string, error) {
	plan := t.State.Plan()
	if plan == nil {
		return noPlan, nil
	}
	m := plan.ToMap()
	m["formatted_plan"] = plan.Format()
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return "", err
	}
	return string(data), nil
}
