package framework

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

var actionHeader = regexp.MustCompile(`^\s*([A-Za-z_]\w*)\(\)\.run\(`)

// ParsedAction is a tool invocation decoded from model text.
type ParsedAction struct {
	ToolName   string
	Parameters map[string]interface{}
}

// ParseAction decodes `ToolName().run({...})`. The parameter literal is read
// as JSON first and as a restricted Python literal second; nothing is ever
// evaluated.
func ParseAction(text string) (*ParsedAction, error) {
	loc := actionHeader.FindStringSubmatchIndex(text)
	if loc == nil {
		return nil, &FormatError{Text: text, Reason: "expected ToolName().run({...})"}
	}
	name := text[loc[2]:loc[3]]
	rest := strings.TrimLeft(text[loc[1]:], " \t\r\n")
	if !strings.HasPrefix(rest, "{") {
		return nil, &FormatError{Text: text, Reason: "parameters must be a {...} literal"}
	}
	literal := extractBraced(rest)
	params, err := parseParameterLiteral(literal)
	if err != nil {
		return nil, err
	}
	return &ParsedAction{ToolName: name, Parameters: params}, nil
}

// extractBraced returns the balanced {...} prefix of s. Braces inside quoted
// strings are ignored. When the literal never closes, the remainder is
// returned without its trailing parentheses.
func extractBraced(s string) string {
	depth := 0
	var quote byte
	escaped := false
	for i := 0; i < len(s); i++ {
		c := s[i]
		if escaped {
			escaped = false
			continue
		}
		if c == '\\' {
			escaped = true
			continue
		}
		if quote != 0 {
			if c == quote {
				quote = 0
			}
			continue
		}
		switch c {
		case '"', '\'':
			quote = c
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return s[:i+1]
			}
		}
	}
	return strings.TrimRight(strings.TrimSpace(s), ")")
}

func parseParameterLiteral(literal string) (map[string]interface{}, error) {
	var decoded interface{}
	jsonErr := json.Unmarshal([]byte(literal), &decoded)
	if jsonErr != nil {
		value, err := ParsePythonLiteral(literal)
		if err != nil {
			return nil, &ParameterError{Literal: literal, Cause: fmt.Errorf("not JSON (%v) and not a literal (%w)", jsonErr, err)}
		}
		decoded = value
	}
	params, ok := decoded.(map[string]interface{})
	if !ok {
		return nil, &ParameterError{Literal: literal, Cause: fmt.Errorf("parameters must be a mapping, got %T", decoded)}
	}
	return params, nil
}
