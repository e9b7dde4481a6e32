package providers

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractJSONPath(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name          string
		jsonStr       string
		path          string
		expectedValue string
		errorContains string
	}{
		{
			name:          "simple string field",
			jsonStr:       `{"master": "0123", "old": "4567"}`,
			path:          ".master",
			expectedValue: "0123",
		},
		{
			name:          "nested field",
			jsonStr:       `{"totp": {"key": "abcd"}}`,
			path:          ".totp.key",
			expectedValue: "abcd",
		},
		{
			name:          "array index",
			jsonStr:       `{"keys": ["a", "b"]}`,
			path:          ".keys.1",
			expectedValue: "b",
		},
		{
			name:          "number as string",
			jsonStr:       `{"port": 5432}`,
			path:          ".port",
			expectedValue: "5432",
		},
		{
			name:          "null value",
			jsonStr:       `{"optional": null}`,
			path:          ".optional",
			expectedValue: "",
		},
		{
			name:          "object as JSON",
			jsonStr:       `{"a": {"b": "c"}}`,
			path:          ".a",
			expectedValue: `{"b":"c"}`,
		},
		{
			name:          "missing field",
			jsonStr:       `{"a": "b"}`,
			path:          ".missing",
			errorContains: "path not found",
		},
		{
			name:          "index out of range",
			jsonStr:       `{"keys": ["a"]}`,
			path:          ".keys.3",
			errorContains: "invalid array index",
		},
		{
			name:          "invalid json",
			jsonStr:       `not json`,
			path:          ".a",
			errorContains: "invalid JSON",
		},
		{
			name:          "path without leading dot",
			jsonStr:       `{"a": "b"}`,
			path:          "a",
			errorContains: "must start with '.'",
		},
		{
			name:          "traverse into scalar",
			jsonStr:       `{"a": "b"}`,
			path:          ".a.b",
			errorContains: "cannot traverse",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := extractJSONPath(tt.jsonStr, tt.path)
			if tt.errorContains != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errorContains)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expectedValue, got)
		})
	}
}

func TestSplitJSONPath(t *testing.T) {
	t.Parallel()

	name, path := splitJSONPath("prod/totp#.master")
	assert.Equal(t, "prod/totp", name)
	assert.Equal(t, ".master", path)

	name, path = splitJSONPath("prod/totp")
	assert.Equal(t, "prod/totp", name)
	assert.Empty(t, path)
}
