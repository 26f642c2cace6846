package expr

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromJSON(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name     string
		input    any
		expected string
	}{
		{
			name:     "state shortcut",
			input:    map[string]any{"complete": "/s/t1"},
			expected: "/s/t1 eq complete",
		},
		{
			name: "symbolic and",
			input: map[string]any{"&": []any{
				map[string]any{"complete": "t1"},
				map[string]any{"aborted": "t2"},
			}},
			expected: "(t1 eq complete) and (t2 eq aborted)",
		},
		{
			name:     "not",
			input:    map[string]any{"~": map[string]any{"active": "t1"}},
			expected: "not (t1 eq active)",
		},
		{
			name:     "scalar leaves",
			input:    map[string]any{"ge": []any{"t1:YMD", 20200101}},
			expected: "t1:YMD ge 20200101",
		},
		{
			name:     "float leaf from json",
			input:    map[string]any{"lt": []any{"t1:N", float64(3)}},
			expected: "t1:N lt 3",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			e, err := FromJSON(tc.input)
			require.NoError(t, err)
			got, err := e.Render(nil)
			require.NoError(t, err)
			assert.Equal(t, tc.expected, got)
		})
	}
}

func TestFromJSON_Errors(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name  string
		input any
		msg   string
	}{
		{"two keys", map[string]any{"and": nil, "or": nil}, "exactly one operator"},
		{"unknown op", map[string]any{"xor": []any{"a", "b"}}, `unknown expression operator "xor"`},
		{"bad arity", map[string]any{"and": []any{"a"}}, "takes two operands"},
		{"fractional", 2.5, "non-integer constant"},
		{"state without path", map[string]any{"complete": 3}, "expects a node path"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := FromJSON(tc.input)
			assert.ErrorContains(t, err, tc.msg)
		})
	}
}
