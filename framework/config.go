package framework

import "time"

// Config is the read-only settings object consumed by the agent core.
type Config struct {
	Model            string
	PlanningModel    string
	APIKey           string
	BaseURL          string
	Workspace        string
	OperatingSystem  string
	Language         string
	CommandTimeout   time.Duration
	MaxContextTokens int
	MaxPlanSteps     int
	MaxIterations    int
	MaxSearchResults int
	MaxFindFiles     int
	Temperature      float64
	MaxTokens        int
	DebugLLM         bool
	DebugAgent       bool
}

// PlannerModel returns the planning model, falling back to the main model.
func (c *Config) PlannerModel() string {
	if c == nil {
		return ""
	}
	if c.PlanningModel != "" {
		return c.PlanningModel
	}
	return c.Model
}
