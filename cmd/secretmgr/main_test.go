package main

import (
	"bytes"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestReport(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		err      error
		wantCode int
		want     string
	}{
		{
			name:     "yaml errors are simplified",
			err:      fmt.Errorf("load config: %w", fmt.Errorf("yaml: line 3: did not find expected key")),
			wantCode: 1,
			want:     "Invalid YAML format: line 3: did not find expected key",
		},
		{
			name:     "missing files get a suggestion",
			err:      fmt.Errorf("open secretmgr.yaml: no such file or directory"),
			wantCode: 1,
			want:     "Verify the path exists",
		},
		{
			name:     "plain errors pass through",
			err:      fmt.Errorf("1 secret(s) failed to load"),
			wantCode: 1,
			want:     "Error: 1 secret(s) failed to load",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			var out bytes.Buffer
			assert.Equal(t, tt.wantCode, report(&out, tt.err))
			assert.Contains(t, out.String(), tt.want)
		})
	}
}
