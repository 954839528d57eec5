package apicloud

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestList_Unmarshal(t *testing.T) {
	tests := []struct {
		name string
		body string
		want List[string]
	}{
		{"array", `["a", "b"]`, List[string]{"a", "b"}},
		{"null", `null`, nil},
		{"empty object", `{}`, List[string]{}},
		{"positional keys in numeric order", `{"10": "k", "2": "c", "0": "a", "1": "b"}`, List[string]{"a", "b", "c", "k"}},
		{"non-numeric keys in string order", `{"b": "2", "a": "1", "10": "0"}`, List[string]{"0", "1", "2"}},
		{"scalar", `false`, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got List[string]
			require.NoError(t, json.Unmarshal([]byte(tt.body), &got))
			assert.Equal(t, tt.want, got)
		})
	}
}
