package framework

import (
	"bufio"
	"fmt"
	"strings"
	"time"
)

// DefaultMaxPlanSteps bounds a plan before compaction merges steps.
const DefaultMaxPlanSteps = 6

// StepStatus is the lifecycle state of a plan step.
type StepStatus string

const (
	StepPending    StepStatus = "pending"
	StepInProgress StepStatus = "in_progress"
	StepCompleted  StepStatus = "completed"
	StepFailed     StepStatus = "failed"
	StepSkipped    StepStatus = "skipped"
)

// ParseStepStatus validates a status string supplied by the model.
func ParseStepStatus(s string) (StepStatus, error) {
	switch status := StepStatus(strings.ToLower(strings.TrimSpace(s))); status {
	case StepPending, StepInProgress, StepCompleted, StepFailed, StepSkipped:
		return status, nil
	default:
		return "", fmt.Errorf("unknown step status %q", s)
	}
}

// PlanStep is one unit of a TaskPlan. Marks are permissive: repeating one
// simply overwrites the previous outcome and timestamp.
type PlanStep struct {
	StepNumber    int        `json:"step_number" yaml:"step_number"`
	Description   string     `json:"description" yaml:"description"`
	ExpectedTools []string   `json:"expected_tools" yaml:"expected_tools"`
	Status        StepStatus `json:"status" yaml:"status"`
	Result        string     `json:"result,omitempty" yaml:"result,omitempty"`
	Error         string     `json:"error,omitempty" yaml:"error,omitempty"`
	StartTime     *time.Time `json:"start_time,omitempty" yaml:"start_time,omitempty"`
	EndTime       *time.Time `json:"end_time,omitempty" yaml:"end_time,omitempty"`
}

// NewPlanStep returns a pending step.
func NewPlanStep(number int, description string, expectedTools []string) *PlanStep {
	if expectedTools == nil {
		expectedTools = []string{}
	}
	return &PlanStep{
		StepNumber:    number,
		Description:   description,
		ExpectedTools: expectedTools,
		Status:        StepPending,
	}
}

func (s *PlanStep) MarkStarted() {
	now := time.Now()
	s.Status = StepInProgress
	s.StartTime = &now
}

func (s *PlanStep) MarkCompleted(result string) {
	now := time.Now()
	s.Status = StepCompleted
	s.Result = result
	s.EndTime = &now
}

func (s *PlanStep) MarkFailed(errMsg string) {
	now := time.Now()
	s.Status = StepFailed
	s.Error = errMsg
	s.EndTime = &now
}

// MarkSkipped records reason as the step result.
func (s *PlanStep) MarkSkipped(reason string) {
	now := time.Now()
	s.Status = StepSkipped
	s.Result = reason
	s.EndTime = &now
}

// ToMap is the dictionary form handed to the model by the plan tools.
func (s *PlanStep) ToMap() map[string]interface{} {
	m := map[string]interface{}{
		"step_number":    s.StepNumber,
		"description":    s.Description,
		"expected_tools": append([]string{}, s.ExpectedTools...),
		"status":         string(s.Status),
		"result":         nilIfEmpty(s.Result),
		"error":          nilIfEmpty(s.Error),
		"start_time":     nil,
		"end_time":       nil,
	}
	if s.StartTime != nil {
		m["start_time"] = s.StartTime.Format(time.RFC3339)
	}
	if s.EndTime != nil {
		m["end_time"] = s.EndTime.Format(time.RFC3339)
	}
	return m
}

func nilIfEmpty(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

// TaskPlan is the ordered step list for one task.
type TaskPlan struct {
	TaskDescription string      `json:"task_description" yaml:"task_description"`
	Steps           []*PlanStep `json:"steps" yaml:"steps"`
	CreatedAt       time.Time   `json:"created_at" yaml:"created_at"`
	CurrentStep     int         `json:"current_step" yaml:"current_step"`
}

// NewTaskPlan builds a plan positioned at its first step.
func NewTaskPlan(task string, steps []*PlanStep) *TaskPlan {
	return &TaskPlan{
		TaskDescription: task,
		Steps:           steps,
		CreatedAt:       time.Now(),
	}
}

// SingleStepPlan treats the whole task as one step.
func SingleStepPlan(task string) *TaskPlan {
	return NewTaskPlan(task, []*PlanStep{NewPlanStep(1, task, nil)})
}

// GetCurrentStep returns nil once the plan is exhausted.
func (p *TaskPlan) GetCurrentStep() *PlanStep {
	if p == nil || p.CurrentStep < 0 || p.CurrentStep >= len(p.Steps) {
		return nil
	}
	return p.Steps[p.CurrentStep]
}

// MoveToNextStep advances the cursor, stopping at the last step. It reports
// whether the cursor moved.
func (p *TaskPlan) MoveToNextStep() bool {
	if p.CurrentStep < len(p.Steps)-1 {
		p.CurrentStep++
		return true
	}
	return false
}

// StepByNumber finds a step by its 1-based number.
func (p *TaskPlan) StepByNumber(n int) *PlanStep {
	for _, s := range p.Steps {
		if s.StepNumber == n {
			return s
		}
	}
	return nil
}

// PlanProgress aggregates step states.
type PlanProgress struct {
	Total           int     `json:"total"`
	Completed       int     `json:"completed"`
	Failed          int     `json:"failed"`
	Skipped         int     `json:"skipped"`
	InProgress      int     `json:"in_progress"`
	Pending         int     `json:"pending"`
	ProgressPercent float64 `json:"progress_percent"`
}

// GetProgress counts steps per status. The percentage counts completed steps only.
func (p *TaskPlan) GetProgress() PlanProgress {
	prog := PlanProgress{Total: len(p.Steps)}
	for _, s := range p.Steps {
		switch s.Status {
		case StepCompleted:
			prog.Completed++
		case StepFailed:
			prog.Failed++
		case StepSkipped:
			prog.Skipped++
		case StepInProgress:
			prog.InProgress++
		default:
			prog.Pending++
		}
	}
	if prog.Total > 0 {
		prog.ProgressPercent = float64(prog.Completed) / float64(prog.Total) * 100
	}
	return prog
}

// Compact merges contiguous steps so the plan has at most maxSteps entries.
// Chunks hold ceil(n/maxSteps) steps; descriptions are joined with " / ",
// expected tools are unioned in first-seen order, steps are renumbered and
// the cursor returns to the first step. It reports whether anything changed.
func (p *TaskPlan) Compact(maxSteps int) bool {
	if maxSteps <= 0 {
		maxSteps = DefaultMaxPlanSteps
	}
	n := len(p.Steps)
	if n <= maxSteps {
		return false
	}
	chunk := (n + maxSteps - 1) / maxSteps
	merged := make([]*PlanStep, 0, (n+chunk-1)/chunk)
	for start := 0; start < n; start += chunk {
		end := start + chunk
		if end > n {
			end = n
		}
		descs := make([]string, 0, end-start)
		var tools []string
		seen := make(map[string]bool)
		for _, s := range p.Steps[start:end] {
			descs = append(descs, s.Description)
			for _, tool := range s.ExpectedTools {
				if !seen[tool] {
					seen[tool] = true
					tools = append(tools, tool)
				}
			}
		}
		merged = append(merged, NewPlanStep(len(merged)+1, strings.Join(descs, " / "), tools))
	}
	p.Steps = merged
	p.CurrentStep = 0
	return true
}

var statusIcons = map[StepStatus]string{
	StepPending:    "⏳",
	StepInProgress: "🔄",
	StepCompleted:  "✅",
	StepFailed:     "❌",
	StepSkipped:    "⏭️",
}

// Format renders a status view for people and for the model.
func (p *TaskPlan) Format() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Task plan: %s\n", p.TaskDescription)
	prog := p.GetProgress()
	fmt.Fprintf(&b, "Progress: %d/%d completed (%.1f%%)\n\n", prog.Completed, prog.Total, prog.ProgressPercent)
	for i, s := range p.Steps {
		marker := "  "
		if i == p.CurrentStep {
			marker = "→ "
		}
		fmt.Fprintf(&b, "%s%s Step %d: %s\n", marker, statusIcons[s.Status], s.StepNumber, s.Description)
		if len(s.ExpectedTools) > 0 {
			fmt.Fprintf(&b, "     tools: %s\n", strings.Join(s.ExpectedTools, ", "))
		}
		if s.Result != "" {
			fmt.Fprintf(&b, "     result: %s\n", s.Result)
		}
		if s.Error != "" {
			fmt.Fprintf(&b, "     error: %s\n", s.Error)
		}
	}
	return b.String()
}

// Markdown renders the checklist form: "- [x] " for completed steps and
// "- [ ] " for everything else.
func (p *TaskPlan) Markdown() string {
	var b strings.Builder
	for _, s := range p.Steps {
		box := "[ ]"
		if s.Status == StepCompleted {
			box = "[x]"
		}
		fmt.Fprintf(&b, "- %s %s\n", box, strings.ReplaceAll(s.Description, "\n", " "))
	}
	return b.String()
}

// ParseChecklist reads the Markdown checklist form back into a plan. Lines
// that are not checklist items are ignored.
func ParseChecklist(task, text string) *TaskPlan {
	var steps []*PlanStep
	scanner := bufio.NewScanner(strings.NewReader(text))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		var done bool
		switch {
		case strings.HasPrefix(line, "- [ ] "):
		case strings.HasPrefix(line, "- [x] "):
			done = true
		default:
			continue
		}
		step := NewPlanStep(len(steps)+1, strings.TrimSpace(line[6:]), nil)
		if done {
			step.Status = StepCompleted
		}
		steps = append(steps, step)
	}
	plan := NewTaskPlan(task, steps)
	for i, s := range steps {
		if s.Status != StepCompleted {
			plan.CurrentStep = i
			break
		}
		plan.CurrentStep = i
	}
	return plan
}

// ToMap is the dictionary form returned by get_plan_status.
func (p *TaskPlan) ToMap() map[string]interface{} {
	steps := make([]map[string]interface{}, 0, len(p.Steps))
	for _, s := range p.Steps {
		steps = append(steps, s.ToMap())
	}
	return map[string]interface{}{
		"task_description": p.TaskDescription,
		"steps":            steps,
		"created_at":       p.CreatedAt.Format(time.RFC3339),
		"current_step":     p.CurrentStep,
		"progress":         p.GetProgress(),
	}
}
