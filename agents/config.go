package agents

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/lexcodex/reagent/framework"
	"github.com/lexcodex/reagent/llm"
)

const configDirName = ".reagent"

// Defaults applied when neither the config file nor the environment sets a value.
const (
	DefaultMaxContextTokens = 128000
	DefaultMaxPlanSteps     = 6
	DefaultMaxIterations    = 30
	DefaultTemperature      = 0.2
)

// Environment variables consulted when the config file leaves a field empty.
const (
	EnvAPIKey        = "OPENAI_API_KEY"
	EnvBaseURL       = "REAGENT_BASE_URL"
	EnvModel         = "REAGENT_MODEL"
	EnvPlanningModel = "REAGENT_PLANNING_MODEL"
)

// ConfigDir returns the workspace-local configuration directory.
func ConfigDir(workspace string) string {
	if workspace == "" {
		workspace = "."
	}
	return filepath.Join(workspace, configDirName)
}

// DefaultConfigPath returns .reagent/config.yaml within the workspace.
func DefaultConfigPath(workspace string) string {
	return filepath.Join(ConfigDir(workspace), "config.yaml")
}

// DefaultDatabasePath returns .reagent/sessions.db within the workspace.
func DefaultDatabasePath(workspace string) string {
	return filepath.Join(ConfigDir(workspace), "sessions.db")
}

// GlobalConfig matches .reagent/config.yaml inside the workspace.
type GlobalConfig struct {
	Version string        `yaml:"version"`
	Model   ModelConfig   `yaml:"model"`
	Agent   AgentConfig   `yaml:"agent"`
	Logging LoggingConfig `yaml:"logging"`
	Storage StorageConfig `yaml:"storage"`

	// Workspace is resolved at load time and never written back.
	Workspace string `yaml:"-"`
}

// ModelConfig selects the provider and models.
type ModelConfig struct {
	Name          string  `yaml:"name"`
	PlanningModel string  `yaml:"planning_model"`
	Provider      string  `yaml:"provider"`
	BaseURL       string  `yaml:"base_url"`
	APIKey        string  `yaml:"api_key"`
	Temperature   float64 `yaml:"temperature"`
	MaxTokens     int     `yaml:"max_tokens"`
}

// AgentConfig controls the loop.
type AgentConfig struct {
	MaxContextTokens int    `yaml:"max_context_tokens"`
	MaxPlanSteps     int    `yaml:"max_plan_steps"`
	MaxIterations    int    `yaml:"max_iterations"`
	CommandTimeout   string `yaml:"command_timeout"`
	MaxSearchResults int    `yaml:"max_search_results"`
	MaxFindFiles     int    `yaml:"max_find_files"`
	Language         string `yaml:"language"`
	OperatingSystem  string `yaml:"operating_system"`
}

// LoggingConfig describes log output.
type LoggingConfig struct {
	Level string `yaml:"level"`
	File  string `yaml:"file"`
	LLM   bool   `yaml:"llm_debug"`
	Agent bool   `yaml:"agent_debug"`
}

// StorageConfig locates the session database.
type StorageConfig struct {
	SQLitePath string `yaml:"sqlite_path"`
}

// LoadGlobalConfig loads the config or returns defaults when missing. Empty
// fields are filled from the environment, then from defaults.
func LoadGlobalConfig(path, workspace string) (*GlobalConfig, error) {
	cfg := &GlobalConfig{Version: "1.0.0"}
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	case errors.Is(err, os.ErrNotExist):
	default:
		return nil, err
	}
	cfg.Workspace = workspace
	cfg.applyEnv(os.Getenv)
	cfg.applyDefaults()
	return cfg, nil
}

// SaveGlobalConfig writes the config to disk.
func SaveGlobalConfig(path string, cfg *GlobalConfig) error {
	if cfg == nil {
		return errors.New("config missing")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}

func (c *GlobalConfig) applyEnv(getenv func(string) string) {
	fill := func(dst *string, key string) {
		if *dst == "" {
			*dst = getenv(key)
		}
	}
	fill(&c.Model.APIKey, EnvAPIKey)
	fill(&c.Model.BaseURL, EnvBaseURL)
	fill(&c.Model.Name, EnvModel)
	fill(&c.Model.PlanningModel, EnvPlanningModel)
}

func (c *GlobalConfig) applyDefaults() {
	if c.Model.Name == "" {
		c.Model.Name = llm.DefaultModel
	}
	if c.Model.BaseURL == "" {
		c.Model.BaseURL = llm.DefaultBaseURL
	}
	if c.Model.Temperature == 0 {
		c.Model.Temperature = DefaultTemperature
	}
	if c.Agent.MaxContextTokens <= 0 {
		c.Agent.MaxContextTokens = DefaultMaxContextTokens
	}
	if c.Agent.MaxPlanSteps <= 0 {
		c.Agent.MaxPlanSteps = DefaultMaxPlanSteps
	}
	if c.Agent.MaxIterations <= 0 {
		c.Agent.MaxIterations = DefaultMaxIterations
	}
	if c.Agent.CommandTimeout == "" {
		c.Agent.CommandTimeout = framework.DefaultCommandTimeout.String()
	}
	if c.Agent.OperatingSystem == "" {
		c.Agent.OperatingSystem = runtime.GOOS
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Storage.SQLitePath == "" {
		c.Storage.SQLitePath = DefaultDatabasePath(c.Workspace)
	}
}

// IsGollm reports whether the model provider is routed through gollm.
func (c *GlobalConfig) IsGollm() bool {
	return strings.HasPrefix(c.Model.Provider, "gollm:")
}

// Validate checks the settings needed before talking to a model.
func (c *GlobalConfig) Validate() error {
	if c == nil {
		return errors.New("config missing")
	}
	var problems []string
	if c.Model.APIKey == "" && !c.IsGollm() {
		problems = append(problems, fmt.Sprintf("no API key: set %s or model.api_key", EnvAPIKey))
	}
	if c.Workspace == "" {
		problems = append(problems, "workspace not set")
	} else if info, err := os.Stat(c.Workspace); err != nil || !info.IsDir() {
		problems = append(problems, fmt.Sprintf("workspace %s is not a directory", c.Workspace))
	}
	if _, err := c.commandTimeout(); err != nil {
		problems = append(problems, fmt.Sprintf("agent.command_timeout: %v", err))
	}
	if len(problems) > 0 {
		return fmt.Errorf("invalid configuration: %s", strings.Join(problems, "; "))
	}
	return nil
}

func (c *GlobalConfig) commandTimeout() (time.Duration, error) {
	if c.Agent.CommandTimeout == "" {
		return framework.DefaultCommandTimeout, nil
	}
	d, err := time.ParseDuration(c.Agent.CommandTimeout)
	if err != nil {
		return 0, err
	}
	if d <= 0 {
		return 0, fmt.Errorf("must be positive, got %s", d)
	}
	return d, nil
}

// ToFramework produces the read-only settings consumed by the agent core.
func (c *GlobalConfig) ToFramework() *framework.Config {
	timeout, err := c.commandTimeout()
	if err != nil {
		timeout = framework.DefaultCommandTimeout
	}
	return &framework.Config{
		Model:            c.Model.Name,
		PlanningModel:    c.Model.PlanningModel,
		APIKey:           c.Model.APIKey,
		BaseURL:          c.Model.BaseURL,
		Workspace:        c.Workspace,
		OperatingSystem:  c.Agent.OperatingSystem,
		Language:         c.Agent.Language,
		CommandTimeout:   timeout,
		MaxContextTokens: c.Agent.MaxContextTokens,
		MaxPlanSteps:     c.Agent.MaxPlanSteps,
		MaxIterations:    c.Agent.MaxIterations,
		MaxSearchResults: c.Agent.MaxSearchResults,
		MaxFindFiles:     c.Agent.MaxFindFiles,
		Temperature:      c.Model.Temperature,
		MaxTokens:        c.Model.MaxTokens,
		DebugLLM:         c.Logging.LLM,
		DebugAgent:       c.Logging.Agent,
	}
}
