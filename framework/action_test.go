package framework

import (
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseActionJSONRoundTrip(t *testing.T) {
	cases := []map[string]interface{}{
		{},
		{"path": "/ws/a.txt"},
		{"n": 3.0, "ok": true, "none": nil},
		{"nested": map[string]interface{}{"list": []interface{}{1.0, "two", false}}},
		{"quote": `she said "hi" }`, "paren": "f(x))", "brace": "{{"},
		{"unicode": "héllo wörld ✓", "newline": "a\nb"},
	}
	for i, params := range cases {
		for _, name := range []string{"ReadFileTool", "_x", "run_command", "T9"} {
			t.Run(fmt.Sprintf("%d/%s", i, name), func(t *testing.T) {
				encoded, err := json.Marshal(params)
				require.NoError(t, err)
				action, err := ParseAction(fmt.Sprintf("%s().run(%s)", name, encoded))
				require.NoError(t, err)
				assert.Equal(t, name, action.ToolName)
				assert.Equal(t, params, action.Parameters)
			})
		}
	}
}

func TestParseActionPythonLiteral(t *testing.T) {
	action, err := ParseAction(`EditFileTool().run({'path': '/ws/a.txt', 'old_string': 'x', 'new_string': 'y', 'replace_all': True, 'note': None})`)
	require.NoError(t, err)
	assert.Equal(t, "EditFileTool", action.ToolName)
	assert.Equal(t, map[string]interface{}{
		"path":        "/ws/a.txt",
		"old_string":  "x",
		"new_string":  "y",
		"replace_all": true,
		"note":        nil,
	}, action.Parameters)
}

func TestParseActionBracesInsideStrings(t *testing.T) {
	cases := map[string]string{
		`W().run({'content': 'a } b'})`:            "a } b",
		`W().run({'content': 'x { y'}) trailing`:   "x { y",
		`W().run({"content": "close ) paren"})`:     "close ) paren",
		`W().run({'content': 'it\'s } fine'})`:     "it's } fine",
		`W().run({"content": "esc \" } still"})`:   `esc " } still`,
		`W().run({'content': "mixed ' } quotes"})`: "mixed ' } quotes",
	}
	for text, want := range cases {
		action, err := ParseAction(text)
		require.NoError(t, err, text)
		assert.Equal(t, want, action.Parameters["content"], text)
	}
}

func TestParseActionToleratesWhitespaceAndUnclosed(t *testing.T) {
	action, err := ParseAction("  ListFilesTool().run(  \n {'path': '.'})")
	require.NoError(t, err)
	assert.Equal(t, ".", action.Parameters["path"])

	_, err = ParseAction("ListFilesTool().run({'path': '.'")
	var paramErr *ParameterError
	assert.True(t, errors.As(err, &paramErr))
}

func TestParseActionFormatErrors(t *testing.T) {
	for _, text := range []string{
		"",
		"just some prose",
		"ReadFileTool.run({})",
		"ReadFileTool().run('path')",
		"ReadFileTool().run([1, 2])",
		"9Tool().run({})",
	} {
		_, err := ParseAction(text)
		var formatErr *FormatError
		assert.True(t, errors.As(err, &formatErr), "expected format error for %q, got %v", text, err)
	}
}

func TestParseActionParameterErrors(t *testing.T) {
	for _, text := range []string{
		"T().run({'a': __import__('os').system('id')})",
		"T().run({'a': open('x')})",
		"T().run({'a' 1})",
		"T().run({1: }",
	} {
		_, err := ParseAction(text)
		var paramErr *ParameterError
		assert.True(t, errors.As(err, &paramErr), "expected parameter error for %q, got %v", text, err)
	}
}

func TestParsePythonLiteral(t *testing.T) {
	cases := []struct {
		in   string
		want interface{}
	}{
		{`'a' "b"`, "ab"},
		{`(1, 2,)`, []interface{}{1.0, 2.0}},
		{`[-1.5e3, +2, 1_000]`, []interface{}{-1500.0, 2.0, 1000.0}},
		{`{'k': [True, False, None]}`, map[string]interface{}{"k": []interface{}{true, false, nil}}},
		{`{1: 'one'}`, map[string]interface{}{"1": "one"}},
		{`'''multi
line'''`, "multi\nline"},
		{`'é\x41\n'`, "éA\n"},
		{"{'a': 1,  # comment\n 'b': 2}", map[string]interface{}{"a": 1.0, "b": 2.0}},
	}
	for _, tc := range cases {
		got, err := ParsePythonLiteral(tc.in)
		require.NoError(t, err, tc.in)
		assert.Equal(t, tc.want, got, tc.in)
	}

	for _, bad := range []string{`os.system`, `{'a': 1} extra`, `'open`, `[1 2]`, `{[1]: 2}`} {
		_, err := ParsePythonLiteral(bad)
		assert.Error(t, err, bad)
	}
}
