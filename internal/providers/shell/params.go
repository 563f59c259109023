package shell

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"

	"github.com/GriffinCanCode/termhost/internal/domain/terminal"
)

func stringParam(params map[string]any, key string) string {
	s, _ := params[key].(string)
	return s
}

func firstString(params map[string]any, keys ...string) string {
	for _, key := range keys {
		if s := stringParam(params, key); s != "" {
			return s
		}
	}
	return ""
}

// presentString requires key to be a string but accepts "".
func presentString(params map[string]any, key string) (string, error) {
	s, ok := params[key].(string)
	if !ok {
		return "", fmt.Errorf("%w: %s is required", terminal.ErrInvalidConfig, key)
	}
	return s, nil
}

// intParam reads an integer that may arrive as a JSON number, a Go integer or
// a numeric string. Missing keys yield def.
func intParam(params map[string]any, key string, def int) (int, error) {
	raw, present := params[key]
	if !present || raw == nil {
		return def, nil
	}

	switch v := raw.(type) {
	case int:
		return v, nil
	case int64:
		return int(v), nil
	case float64:
		if v != math.Trunc(v) {
			return 0, fmt.Errorf("%w: %s must be an integer", terminal.ErrInvalidConfig, key)
		}
		return int(v), nil
	case json.Number:
		n, err := v.Int64()
		if err != nil {
			return 0, fmt.Errorf("%w: %s must be an integer", terminal.ErrInvalidConfig, key)
		}
		return int(n), nil
	case string:
		n, err := strconv.Atoi(v)
		if err != nil {
			return 0, fmt.Errorf("%w: %s must be an integer", terminal.ErrInvalidConfig, key)
		}
		return n, nil
	default:
		return 0, fmt.Errorf("%w: %s must be an integer, got %T", terminal.ErrInvalidConfig, key, raw)
	}
}

func envParam(params map[string]any, key string) map[string]string {
	switch v := params[key].(type) {
	case map[string]string:
		return v
	case map[string]any:
		env := make(map[string]string, len(v))
		for k, val := range v {
			if s, ok := val.(string); ok {
				env[k] = s
			}
		}
		return env
	}
	return nil
}
