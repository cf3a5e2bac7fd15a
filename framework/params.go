package framework

import (
	"fmt"
	"strconv"
	"strings"
)

// RequireString fetches a mandatory string parameter.
func RequireString(params map[string]interface{}, key string) (string, error) {
	v, ok := params[key]
	if !ok || v == nil {
		return "", fmt.Errorf("missing required parameter %q", key)
	}
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("parameter %q must be a string, got %T", key, v)
	}
	return s, nil
}

// OptionalString returns the string parameter or fallback when absent.
func OptionalString(params map[string]interface{}, key, fallback string) string {
	switch v := params[key].(type) {
	case string:
		return v
	case nil:
		return fallback
	default:
		return fmt.Sprint(v)
	}
}

// OptionalInt accepts JSON numbers and numeric strings.
func OptionalInt(params map[string]interface{}, key string, fallback int) (int, error) {
	switch v := params[key].(type) {
	case nil:
		return fallback, nil
	case float64:
		return int(v), nil
	case int:
		return v, nil
	case int64:
		return int(v), nil
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return 0, fmt.Errorf("parameter %q must be an integer", key)
		}
		return n, nil
	default:
		return 0, fmt.Errorf("parameter %q must be an integer, got %T", key, v)
	}
}

// OptionalBool accepts booleans and "true"/"false" strings.
func OptionalBool(params map[string]interface{}, key string, fallback bool) bool {
	switch v := params[key].(type) {
	case bool:
		return v
	case string:
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}
