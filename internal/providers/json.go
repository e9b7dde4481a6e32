package providers

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// splitJSONPath splits "name#.field" into the secret name and JSON path.
func splitJSONPath(key string) (name, path string) {
	if idx := strings.Index(key, "#"); idx != -1 {
		return key[:idx], key[idx+1:]
	}
	return key, ""
}

// extractJSONPath extracts a value from JSON using a simple dotted path
func extractJSONPath(jsonStr, path string) (string, error) {
	if !strings.HasPrefix(path, ".") {
		return "", fmt.Errorf("JSON path must start with '.'")
	}

	var data interface{}
	if err := json.Unmarshal([]byte(jsonStr), &data); err != nil {
		return "", fmt.Errorf("invalid JSON: %w", err)
	}

	current := data
	for _, part := range strings.Split(strings.TrimPrefix(path, "."), ".") {
		if part == "" {
			continue
		}
		switch v := current.(type) {
		case map[string]interface{}:
			next, ok := v[part]
			if !ok {
				return "", fmt.Errorf("path not found: %s", part)
			}
			current = next
		case []interface{}:
			index, err := strconv.Atoi(part)
			if err != nil || index < 0 || index >= len(v) {
				return "", fmt.Errorf("invalid array index: %s", part)
			}
			current = v[index]
		default:
			return "", fmt.Errorf("cannot traverse path at: %s", part)
		}
	}

	switch v := current.(type) {
	case string:
		return v, nil
	case nil:
		return "", nil
	default:
		b, err := json.Marshal(v)
		if err != nil {
			return "", fmt.Errorf("failed to marshal result: %w", err)
		}
		return string(b), nil
	}
}

// applyJSONPath returns value unchanged when path is empty.
func applyJSONPath(value, path string) (string, error) {
	if path == "" {
		return value, nil
	}
	extracted, err := extractJSONPath(value, path)
	if err != nil {
		return "", fmt.Errorf("failed to extract JSON path '%s': %w", path, err)
	}
	return extracted, nil
}

func stringOption(config map[string]interface{}, key string) string {
	if v, ok := config[key].(string); ok {
		return v
	}
	return ""
}

func boolOption(config map[string]interface{}, key string, def bool) bool {
	if v, ok := config[key].(bool); ok {
		return v
	}
	return def
}
