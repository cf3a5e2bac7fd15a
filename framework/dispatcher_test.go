package framework

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"math/rand"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubTool struct {
	name string
	run  func(params map[string]interface{}) (string, error)
}

func (t stubTool) Name() string        { return t.name }
func (t stubTool) Description() string { return "stub tool" }
func (t stubTool) Parameters() []ToolParameter {
	return []ToolParameter{{Name: "value", Type: "string", Required: false}}
}
func (t stubTool) Run(ctx context.Context, params map[string]interface{}) (string, error) {
	return t.run(params)
}

func newTestDispatcher(t *testing.T) *Dispatcher {
	t.Helper()
	reg := NewToolRegistry()
	require.NoError(t, reg.Register(stubTool{name: "echo", run: func(p map[string]interface{}) (string, error) {
		return "echo: " + OptionalString(p, "value", ""), nil
	}}))
	require.NoError(t, reg.Register(stubTool{name: "fail", run: func(map[string]interface{}) (string, error) {
		return "", errors.New("disk on fire")
	}}))
	require.NoError(t, reg.Register(stubTool{name: "boom", run: func(map[string]interface{}) (string, error) {
		panic("kaboom")
	}}))
	require.NoError(t, reg.Register(stubTool{name: "escape", run: func(map[string]interface{}) (string, error) {
		return "", &PathSecurityError{Path: "../etc/passwd", Workspace: "/ws"}
	}}))
	require.NoError(t, reg.Register(stubTool{name: "quiet", run: func(map[string]interface{}) (string, error) {
		return "", nil
	}}))
	reg.Seal()
	return NewDispatcher(reg, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestDispatcherExecute(t *testing.T) {
	d := newTestDispatcher(t)
	ctx := context.Background()

	assert.Equal(t, "echo: hi", d.Execute(ctx, `echo().run({"value": "hi"})`))
	assert.Equal(t, "echo: hi", d.Execute(ctx, `EchoTool().run({'value': 'hi'})`))

	obs := d.Execute(ctx, `missing().run({})`)
	assert.Contains(t, obs, "missing does not exist")
	assert.Contains(t, obs, "echo, fail, boom, escape, quiet")

	assert.Contains(t, d.Execute(ctx, `echo.run({})`), "Format error")
	assert.Contains(t, d.Execute(ctx, `echo().run({'value': nope})`), "Parameter error")
	assert.Contains(t, d.Execute(ctx, `fail().run({})`), "disk on fire")
	assert.Contains(t, d.Execute(ctx, `boom().run({})`), "kaboom")
	assert.Contains(t, d.Execute(ctx, `escape().run({})`), "Path error")
	assert.Equal(t, "quiet completed with no output.", d.Execute(ctx, `quiet().run({})`))
}

func TestDispatcherNeverFails(t *testing.T) {
	d := newTestDispatcher(t)
	rng := rand.New(rand.NewSource(42))
	alphabet := []rune(`abcXYZ_(){}[]'"\.,:; 0123456789run<>` + "\n\t")
	prefixes := []string{"", "echo().run(", "boom().run({", "X().run({'a': ", "fail().run("}
	for i := 0; i < 3000; i++ {
		var b strings.Builder
		b.WriteString(prefixes[rng.Intn(len(prefixes))])
		for n := rng.Intn(40); n > 0; n-- {
			b.WriteRune(alphabet[rng.Intn(len(alphabet))])
		}
		text := b.String()
		var obs string
		require.NotPanics(t, func() { obs = d.Execute(context.Background(), text) }, text)
		assert.NotEmpty(t, obs, text)
	}
}

func TestToolRegistry(t *testing.T) {
	reg := NewToolRegistry()
	echo := stubTool{name: "read_file"}
	require.NoError(t, reg.Register(echo))
	assert.EqualError(t, reg.Register(echo), "tool read_file already registered")

	for _, name := range []string{"read_file", "ReadFileTool", "ReadFile"} {
		got, ok := reg.Get(name)
		assert.True(t, ok, name)
		assert.Equal(t, "read_file", got.Name())
	}
	_, ok := reg.Get("WriteFileTool")
	assert.False(t, ok)

	reg.Seal()
	assert.ErrorIs(t, reg.Register(stubTool{name: "late"}), ErrRegistrySealed)
	assert.Equal(t, []string{"read_file"}, reg.Names())
}

func TestToolNameConversions(t *testing.T) {
	assert.Equal(t, "ReadFileTool", ClassName("read_file"))
	assert.Equal(t, "edit_file", SnakeName("EditFileTool"))
	assert.Equal(t, "run_command", SnakeName("RunCommand"))
	assert.Equal(t, "search_in_files", SnakeName("SearchInFilesTool"))
}

func TestToolSchema(t *testing.T) {
	schema := ToolSchema(stubTool{name: "echo"})
	assert.Equal(t, "object", schema["type"])
	props := schema["properties"].(map[string]interface{})
	assert.Contains(t, props, "value")
	assert.Empty(t, schema["required"])
}
