package cmd

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestConfigHelpers(t *testing.T) {
	data := map[string]interface{}{
		"model": map[string]interface{}{
			"name": "openai/gpt-oss-120b",
		},
	}
	value, ok := getConfigValue(data, "model.name")
	require.True(t, ok)
	require.Equal(t, "openai/gpt-oss-120b", value)

	require.NoError(t, setConfigValue(data, "model.name", "local"))
	value, ok = getConfigValue(data, "model.name")
	require.True(t, ok)
	require.Equal(t, "local", value)

	require.NoError(t, setConfigValue(data, "agent.max_plan_steps", 10))
	value, ok = getConfigValue(data, "agent.max_plan_steps")
	require.True(t, ok)
	require.Equal(t, 10, value)

	_, ok = getConfigValue(data, "agent.missing")
	require.False(t, ok)
}

func TestParseValue(t *testing.T) {
	require.Equal(t, true, parseValue("true"))
	require.Equal(t, int64(42), parseValue("42"))
	require.Equal(t, 0.5, parseValue("0.5"))
	require.Equal(t, "45s", parseValue("45s"))
}

func TestMaskSecret(t *testing.T) {
	require.Equal(t, "****", maskSecret("short"))
	require.Equal(t, "abcd****wxyz", maskSecret("abcdefghijklmnopqrstuvwxyz"))
}
