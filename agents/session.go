package agents

import (
	"errors"
	"log/slog"
	"strings"

	"github.com/lexcodex/reagent/agents/pattern"
	"github.com/lexcodex/reagent/framework"
	"github.com/lexcodex/reagent/llm"
	"github.com/lexcodex/reagent/tools"
)

// SessionOptions customizes NewSession. Zero values are fine.
type SessionOptions struct {
	// Model overrides the provider built from the config.
	Model     framework.LanguageModel
	Runner    framework.CommandRunner
	Logger    *slog.Logger
	Telemetry framework.Telemetry
	PlanFirst bool
	// Shared is the workspace lock and todo store. Callers running several
	// sessions on one workspace build it once with tools.NewShared.
	Shared *tools.Shared
}

// Session bundles everything one conversation needs: the model, the tool set,
// the shared plan state, the planner and the loop.
type Session struct {
	Config  *framework.Config
	Model   framework.LanguageModel
	Tools   *framework.ToolRegistry
	State   *framework.SessionState
	Planner *pattern.TaskPlanner
	Agent   *pattern.ReActAgent
}

// NewSession wires model, tools, planner and agent from cfg.
func NewSession(cfg *GlobalConfig, opts SessionOptions) (*Session, error) {
	if cfg == nil {
		return nil, errors.New("config missing")
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	fcfg := cfg.ToFramework()

	model := opts.Model
	if model == nil {
		built, err := NewModel(cfg, logger)
		if err != nil {
			return nil, err
		}
		model = built
	}
	if opts.Telemetry != nil {
		model = llm.NewInstrumentedModel(model, opts.Telemetry, fcfg.DebugLLM)
	}

	state := framework.NewSessionState()
	registry, err := tools.NewRegistry(tools.Options{
		Workspace:        fcfg.Workspace,
		CommandTimeout:   fcfg.CommandTimeout,
		MaxSearchResults: fcfg.MaxSearchResults,
		MaxFindFiles:     fcfg.MaxFindFiles,
		Runner:           opts.Runner,
		State:            state,
		Shared:           opts.Shared,
	})
	if err != nil {
		return nil, err
	}

	env := pattern.Environment{
		OperatingSystem: fcfg.OperatingSystem,
		Workspace:       fcfg.Workspace,
		Language:        fcfg.Language,
	}
	planner := pattern.NewTaskPlanner(model, fcfg, classNames(registry), env, logger)
	agent := &pattern.ReActAgent{
		Model:     model,
		Tools:     registry,
		Planner:   planner,
		State:     state,
		Env:       env,
		Logger:    logger,
		Telemetry: opts.Telemetry,
		PlanFirst: opts.PlanFirst,
	}
	if err := agent.Initialize(fcfg); err != nil {
		return nil, err
	}
	return &Session{
		Config:  fcfg,
		Model:   model,
		Tools:   registry,
		State:   state,
		Planner: planner,
		Agent:   agent,
	}, nil
}

// NewModel builds the provider named by cfg.Model.Provider. An empty provider
// or "openai" selects the OpenAI-compatible client; "gollm:<name>" routes
// through gollm.
func NewModel(cfg *GlobalConfig, logger *slog.Logger) (framework.LanguageModel, error) {
	if cfg.IsGollm() {
		provider := strings.TrimPrefix(cfg.Model.Provider, "gollm:")
		return llm.NewGollmModel(provider, cfg.Model.Name, cfg.Model.APIKey, cfg.Model.MaxTokens, cfg.Model.Temperature)
	}
	switch cfg.Model.Provider {
	case "", "openai":
	default:
		return nil, errors.New("unknown model provider " + cfg.Model.Provider)
	}
	client := llm.NewClient(cfg.Model.BaseURL, cfg.Model.APIKey, cfg.Model.Name)
	if logger == nil {
		logger = slog.Default()
	}
	client.Logger = logger.With("component", "openai")
	client.SetDebugLogging(cfg.Logging.LLM)
	return client, nil
}

// classNames lists tools the way the model addresses them in actions.
func classNames(registry *framework.ToolRegistry) []string {
	names := registry.Names()
	out := make([]string, 0, len(names))
	for _, name := range names {
		out = append(out, framework.ClassName(name))
	}
	return out
}
