package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/lexcodex/reagent/agents"
	"github.com/lexcodex/reagent/framework"
	"github.com/lexcodex/reagent/persistence"
	"github.com/lexcodex/reagent/tools"
)

// modelOverride replaces the configured provider; tests set it.
var modelOverride framework.LanguageModel

// resolveWorkspace turns the workspace flag into an absolute directory,
// defaulting to cwd.
func resolveWorkspace(dir string) (string, error) {
	if dir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return "", err
		}
		dir = wd
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", err
	}
	info, err := os.Stat(abs)
	if err != nil {
		return "", fmt.Errorf("workspace: %w", err)
	}
	if !info.IsDir() {
		return "", fmt.Errorf("workspace %s is not a directory", abs)
	}
	return abs, nil
}

// buildSession validates the config and wires a session for one task.
func buildSession(cfg *agents.GlobalConfig, planFirst bool, telemetry framework.Telemetry, shared *tools.Shared) (*agents.Session, error) {
	if modelOverride == nil {
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
	}
	return agents.NewSession(cfg, agents.SessionOptions{
		Model:     modelOverride,
		Logger:    logger,
		Telemetry: telemetry,
		PlanFirst: planFirst,
		Shared:    shared,
	})
}

// withTrace adds a JSONL trace sink under .reagent when agent_debug is on.
// The returned close func is never nil.
func withTrace(cfg *agents.GlobalConfig, sink framework.Telemetry) (framework.Telemetry, func()) {
	if !cfg.Logging.Agent {
		return sink, func() {}
	}
	path := filepath.Join(agents.ConfigDir(cfg.Workspace), "trace.jsonl")
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		logger.Warn("trace disabled", "error", err)
		return sink, func() {}
	}
	trace, err := framework.NewJSONFileTelemetry(path)
	if err != nil {
		logger.Warn("trace disabled", "error", err)
		return sink, func() {}
	}
	return framework.MultiplexTelemetry{Sinks: []framework.Telemetry{sink, trace}}, func() { _ = trace.Close() }
}

// openStore opens the session database named by the config.
func openStore(cfg *agents.GlobalConfig) (*persistence.SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(cfg.Storage.SQLitePath), 0o755); err != nil {
		return nil, err
	}
	return persistence.NewSQLiteStore(cfg.Storage.SQLitePath)
}

// sessionTitle shortens a task into a one-line history title.
func sessionTitle(task string) string {
	title := strings.Join(strings.Fields(task), " ")
	if len(title) > 60 {
		title = title[:57] + "..."
	}
	return title
}

// readConfigMap deserializes config.yaml into a generic map for dotted lookups.
func readConfigMap(path string) (map[string]interface{}, error) {
	data := map[string]interface{}{}
	bytes, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return data, nil
		}
		return nil, err
	}
	if err := yaml.Unmarshal(bytes, &data); err != nil {
		return nil, err
	}
	return data, nil
}

// writeConfigMap persists the config map back to YAML, creating directories.
func writeConfigMap(path string, data map[string]interface{}) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	bytes, err := yaml.Marshal(data)
	if err != nil {
		return err
	}
	return os.WriteFile(path, bytes, 0o644)
}

// getConfigValue traverses a nested map using dotted notation.
func getConfigValue(data map[string]interface{}, key string) (interface{}, bool) {
	parts := strings.Split(key, ".")
	var current interface{} = data
	for _, part := range parts {
		m, ok := current.(map[string]interface{})
		if !ok {
			return nil, false
		}
		value, ok := m[part]
		if !ok {
			return nil, false
		}
		current = value
	}
	return current, true
}

// setConfigValue mutates/creates nested keys referenced via dotted notation.
func setConfigValue(data map[string]interface{}, key string, value interface{}) error {
	parts := strings.Split(key, ".")
	current := data
	for i, part := range parts {
		if i == len(parts)-1 {
			current[part] = value
			return nil
		}
		next, ok := current[part].(map[string]interface{})
		if !ok {
			next = map[string]interface{}{}
			current[part] = next
		}
		current = next
	}
	return nil
}

// parseValue attempts to coerce CLI input into bool/int/float before storing.
func parseValue(input string) interface{} {
	if b, err := strconv.ParseBool(input); err == nil {
		return b
	}
	if i, err := strconv.ParseInt(input, 10, 64); err == nil {
		return i
	}
	if f, err := strconv.ParseFloat(input, 64); err == nil {
		return f
	}
	return input
}

// prettyValue renders nested values in a human-readable one-line format.
func prettyValue(v interface{}) string {
	switch value := v.(type) {
	case []interface{}:
		var parts []string
		for _, item := range value {
			parts = append(parts, prettyValue(item))
		}
		return "[" + strings.Join(parts, ", ") + "]"
	case map[string]interface{}:
		b, _ := yaml.Marshal(value)
		return strings.TrimSpace(string(b))
	default:
		return fmt.Sprint(value)
	}
}

// defaultLogPath is where interactive sessions log.
func defaultLogPath() string {
	return filepath.Join(agents.ConfigDir(workspace), "reagent.log")
}
