package agents

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lexcodex/reagent/llm"
)

func TestLoadGlobalConfigDefaults(t *testing.T) {
	ws := t.TempDir()
	t.Setenv(EnvAPIKey, "")
	t.Setenv(EnvBaseURL, "")
	t.Setenv(EnvModel, "")
	t.Setenv(EnvPlanningModel, "")

	cfg, err := LoadGlobalConfig(DefaultConfigPath(ws), ws)
	require.NoError(t, err)
	assert.Equal(t, llm.DefaultModel, cfg.Model.Name)
	assert.Equal(t, llm.DefaultBaseURL, cfg.Model.BaseURL)
	assert.Equal(t, DefaultMaxContextTokens, cfg.Agent.MaxContextTokens)
	assert.Equal(t, DefaultMaxPlanSteps, cfg.Agent.MaxPlanSteps)
	assert.Equal(t, DefaultMaxIterations, cfg.Agent.MaxIterations)
	assert.Equal(t, filepath.Join(ws, ".reagent", "sessions.db"), cfg.Storage.SQLitePath)

	fcfg := cfg.ToFramework()
	assert.Equal(t, 300*time.Second, fcfg.CommandTimeout)
	assert.Equal(t, llm.DefaultModel, fcfg.PlannerModel())

	err = cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), EnvAPIKey)
}

func TestLoadGlobalConfigFilePrecedesEnvironment(t *testing.T) {
	ws := t.TempDir()
	path := DefaultConfigPath(ws)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(`
model:
  name: file-model
  temperature: 0.7
agent:
  max_plan_steps: 4
  command_timeout: 45s
logging:
  level: debug
  llm_debug: true
`), 0o644))
	t.Setenv(EnvModel, "env-model")
	t.Setenv(EnvPlanningModel, "env-planner")
	t.Setenv(EnvAPIKey, "sk-env")

	cfg, err := LoadGlobalConfig(path, ws)
	require.NoError(t, err)
	assert.Equal(t, "file-model", cfg.Model.Name)
	assert.Equal(t, "env-planner", cfg.Model.PlanningModel)
	assert.Equal(t, "sk-env", cfg.Model.APIKey)
	require.NoError(t, cfg.Validate())

	fcfg := cfg.ToFramework()
	assert.Equal(t, 4, fcfg.MaxPlanSteps)
	assert.Equal(t, 45*time.Second, fcfg.CommandTimeout)
	assert.Equal(t, 0.7, fcfg.Temperature)
	assert.Equal(t, "env-planner", fcfg.PlannerModel())
	assert.True(t, fcfg.DebugLLM)
	assert.Equal(t, ws, fcfg.Workspace)
}

func TestValidateRejectsBadSettings(t *testing.T) {
	cfg := &GlobalConfig{Workspace: filepath.Join(t.TempDir(), "missing")}
	cfg.Model.Provider = "gollm:anthropic"
	cfg.Agent.CommandTimeout = "soon"

	err := cfg.Validate()
	require.Error(t, err)
	assert.NotContains(t, err.Error(), "API key")
	assert.Contains(t, err.Error(), "is not a directory")
	assert.Contains(t, err.Error(), "command_timeout")
}

func TestSaveGlobalConfigRoundTrip(t *testing.T) {
	ws := t.TempDir()
	t.Setenv(EnvAPIKey, "")
	path := DefaultConfigPath(ws)
	cfg := &GlobalConfig{Version: "1.0.0"}
	cfg.Model.Name = "saved"
	cfg.Storage.SQLitePath = "/tmp/x.db"
	require.NoError(t, SaveGlobalConfig(path, cfg))

	loaded, err := LoadGlobalConfig(path, ws)
	require.NoError(t, err)
	assert.Equal(t, "saved", loaded.Model.Name)
	assert.Equal(t, "/tmp/x.db", loaded.Storage.SQLitePath)
}
