package params

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/maestrojobs/maestro/cluster"
)

// coerce converts a raw caller-supplied value to the parameter's declared
// type. String inputs (e.g. from an interactive prompt) are parsed; native
// values are accepted when they already match the declared type.
func coerce(spec cluster.ParamSpec, raw interface{}) (interface{}, error) {
	switch spec.Type {
	case cluster.TypeText:
		if s, ok := raw.(string); ok {
			return s, nil
		}
	case cluster.TypeNumber:
		switch v := raw.(type) {
		case int:
			return float64(v), nil
		case int64:
			return float64(v), nil
		case float64:
			return v, nil
		case json.Number:
			if f, err := v.Float64(); err == nil {
				return f, nil
			}
		case string:
			if f, err := strconv.ParseFloat(strings.TrimSpace(v), 64); err == nil {
				return f, nil
			}
		}
	case cluster.TypeBoolean:
		switch v := raw.(type) {
		case bool:
			return v, nil
		case string:
			switch strings.ToLower(strings.TrimSpace(v)) {
			case "true":
				return true, nil
			case "false":
				return false, nil
			}
		}
	case cluster.TypeEnum:
		if s, ok := raw.(string); ok {
			if len(spec.Choices) == 0 {
				return s, nil
			}
			for _, choice := range spec.Choices {
				if s == choice {
					return s, nil
				}
			}
		}
	case cluster.TypeObject:
		switch v := raw.(type) {
		case map[string]interface{}, []interface{}:
			return v, nil
		case string:
			var decoded interface{}
			if err := json.Unmarshal([]byte(v), &decoded); err == nil {
				switch decoded.(type) {
				case map[string]interface{}, []interface{}:
					return decoded, nil
				}
			}
		}
	}
	return nil, &cluster.InvalidParameterError{Name: spec.Name, Value: raw, Want: spec.Type}
}
