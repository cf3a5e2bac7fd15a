package tools

import (
	"path/filepath"
	"time"

	"github.com/lexcodex/reagent/framework"
	"github.com/lexcodex/reagent/persistence"
)

// Options configures the default tool set.
type Options struct {
	Workspace        string
	CommandTimeout   time.Duration
	MaxSearchResults int
	MaxFindFiles     int
	Runner           framework.CommandRunner
	State            *framework.SessionState
	// Shared carries the workspace-wide lock and todo store. Sessions that
	// run side by side on one workspace must pass the same value.
	Shared *Shared
}

// Shared is the per-workspace state every session's tools agree on.
type Shared struct {
	Lock  *FileLock
	Todos persistence.TodoStore
}

// NewShared builds the lock and file-backed todo store for workspace.
func NewShared(workspace string) (*Shared, error) {
	store, err := persistence.NewFileTodoStore(TodoPath(workspace))
	if err != nil {
		return nil, err
	}
	return &Shared{Lock: &FileLock{}, Todos: store}, nil
}

// TodoPath is where the workspace todo list lives.
func TodoPath(workspace string) string {
	return filepath.Join(workspace, ".reagent", "todos.json")
}

// DefaultTools builds every built-in tool for a workspace. A missing runner
// or shared state is created from the workspace.
func DefaultTools(opts Options) ([]framework.Tool, error) {
	if opts.Runner == nil {
		opts.Runner = framework.NewLocalCommandRunner(opts.Workspace, opts.CommandTimeout)
	}
	shared := opts.Shared
	if shared == nil {
		built, err := NewShared(opts.Workspace)
		if err != nil {
			return nil, err
		}
		shared = built
	}
	if opts.State == nil {
		opts.State = framework.NewSessionState()
	}
	lock, todos := shared.Lock, shared.Todos
	list := []framework.Tool{
		&ReadFileTool{Workspace: opts.Workspace},
		&WriteFileTool{Workspace: opts.Workspace, Lock: lock},
		&EditFileTool{Workspace: opts.Workspace, Lock: lock},
		&ListFilesTool{Workspace: opts.Workspace},
		&DeleteFileTool{Workspace: opts.Workspace, Lock: lock},
		&SearchInFilesTool{Workspace: opts.Workspace, MaxResults: opts.MaxSearchResults},
		&FindFilesTool{Workspace: opts.Workspace, MaxFiles: opts.MaxFindFiles},
		&RunCommandTool{Workspace: opts.Workspace, Timeout: opts.CommandTimeout, Runner: opts.Runner},
		&AddTodoTool{Store: todos},
		&ListTodosTool{Store: todos},
		&UpdateTodoTool{Store: todos},
		&DeleteTodoTool{Store: todos},
		&GetTodoStatsTool{Store: todos},
		&UpdateStepStatusTool{State: opts.State},
		&MoveToNextStepTool{State: opts.State},
		&GetPlanStatusTool{State: opts.State},
		&SummarizeContextTool{State: opts.State},
	}
	for _, command := range GitCommands {
		list = append(list, &GitTool{Workspace: opts.Workspace, Command: command, Timeout: opts.CommandTimeout, Runner: opts.Runner})
	}
	return list, nil
}

// NewRegistry registers DefaultTools into a fresh registry.
func NewRegistry(opts Options) (*framework.ToolRegistry, error) {
	list, err := DefaultTools(opts)
	if err != nil {
		return nil, err
	}
	registry := framework.NewToolRegistry()
	for _, tool := range list {
		if err := registry.Register(tool); err != nil {
			return nil, err
		}
	}
	return registry, nil
}
