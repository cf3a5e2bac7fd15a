package framework

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"unicode"
)

// Tool is a capability the model can invoke by name. Run returns the
// observation text; a returned error is turned into an observation by the
// dispatcher, so tools may fail freely.
type Tool interface {
	Name() string
	Description() string
	Parameters() []ToolParameter
	Run(ctx context.Context, params map[string]interface{}) (string, error)
}

// ToolParameter describes an argument the tool accepts.
type ToolParameter struct {
	Name        string
	Type        string
	Description string
	Required    bool
	Default     interface{}
}

// ErrRegistrySealed is returned when registering after a session has started.
var ErrRegistrySealed = errors.New("tool registry is sealed")

// ToolRegistry maps tool names to capabilities. It is filled once at session
// start and sealed before the loop runs, after which it is read-only.
type ToolRegistry struct {
	mu      sync.RWMutex
	tools   map[string]Tool
	aliases map[string]string
	order   []string
	sealed  bool
}

// NewToolRegistry builds a registry instance.
func NewToolRegistry() *ToolRegistry {
	return &ToolRegistry{
		tools:   make(map[string]Tool),
		aliases: make(map[string]string),
	}
}

// Register adds a tool. Each tool is also reachable under its CamelCase
// "<Name>Tool" alias, which is how models usually spell it in actions.
func (r *ToolRegistry) Register(tool Tool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.sealed {
		return ErrRegistrySealed
	}
	name := tool.Name()
	if name == "" {
		return errors.New("tool name required")
	}
	if _, exists := r.tools[name]; exists {
		return fmt.Errorf("tool %s already registered", name)
	}
	r.tools[name] = tool
	r.order = append(r.order, name)
	if alias := ClassName(name); alias != name {
		r.aliases[alias] = name
	}
	return nil
}

// MustRegister registers every tool and panics on the first failure.
func (r *ToolRegistry) MustRegister(tools ...Tool) {
	for _, t := range tools {
		if err := r.Register(t); err != nil {
			panic(err)
		}
	}
}

// Seal freezes the registry.
func (r *ToolRegistry) Seal() {
	r.mu.Lock()
	r.sealed = true
	r.mu.Unlock()
}

// Get fetches a tool by name or alias.
func (r *ToolRegistry) Get(name string) (Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if tool, ok := r.tools[name]; ok {
		return tool, true
	}
	if canonical, ok := r.aliases[name]; ok {
		return r.tools[canonical], true
	}
	if canonical, ok := r.aliases[name+"Tool"]; ok {
		return r.tools[canonical], true
	}
	tool, ok := r.tools[SnakeName(name)]
	return tool, ok
}

// All returns the tools in registration order.
func (r *ToolRegistry) All() []Tool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	res := make([]Tool, 0, len(r.order))
	for _, name := range r.order {
		res = append(res, r.tools[name])
	}
	return res
}

// Names returns the registered names in registration order.
func (r *ToolRegistry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]string(nil), r.order...)
}

// ClassName converts read_file into ReadFileTool.
func ClassName(name string) string {
	var b strings.Builder
	for _, part := range strings.Split(name, "_") {
		if part == "" {
			continue
		}
		b.WriteString(strings.ToUpper(part[:1]))
		b.WriteString(part[1:])
	}
	b.WriteString("Tool")
	return b.String()
}

// SnakeName converts ReadFileTool (or ReadFile) into read_file.
func SnakeName(name string) string {
	name = strings.TrimSuffix(name, "Tool")
	var b strings.Builder
	runes := []rune(name)
	for i, r := range runes {
		if unicode.IsUpper(r) {
			if i > 0 && (unicode.IsLower(runes[i-1]) || (i+1 < len(runes) && unicode.IsLower(runes[i+1]))) {
				b.WriteByte('_')
			}
			b.WriteRune(unicode.ToLower(r))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// ToolSchema renders the JSON-schema-like parameter object for a tool.
func ToolSchema(tool Tool) map[string]interface{} {
	props := make(map[string]interface{})
	required := []string{}
	for _, param := range tool.Parameters() {
		prop := map[string]interface{}{
			"type":        param.Type,
			"description": param.Description,
		}
		if param.Default != nil {
			prop["default"] = param.Default
		}
		props[param.Name] = prop
		if param.Required {
			required = append(required, param.Name)
		}
	}
	return map[string]interface{}{
		"type":       "object",
		"properties": props,
		"required":   required,
	}
}
