package nodeid

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func segs(names ...string) []PathSegment {
	out := make([]PathSegment, len(names))
	for i, n := range names {
		out[i] = NewPathSegment(n)
	}
	return out
}

func TestParse(t *testing.T) {
	testCases := []struct {
		name         string
		rawID        string
		expectErr    bool
		expectedAddr *Address
	}{
		{
			name:         "absolute path",
			rawID:        "/s/f/t",
			expectedAddr: &Address{Absolute: true, Path: segs("s", "f", "t")},
		},
		{
			name:         "relative path with attribute",
			rawID:        "../f1/t1:YMD",
			expectedAddr: &Address{Path: segs("..", "f1", "t1"), Attr: "YMD"},
		},
		{
			name:         "digit-leading relative path",
			rawID:        "./1a",
			expectedAddr: &Address{Path: segs(".", "1a")},
		},
		{
			name:         "attribute of current node",
			rawID:        ":VAR",
			expectedAddr: &Address{Path: segs("."), Attr: "VAR"},
		},
		{
			name:         "suite attribute",
			rawID:        "/s:VAR",
			expectedAddr: &Address{Absolute: true, Path: segs("s"), Attr: "VAR"},
		},
		{
			name:      "error - empty path segment",
			rawID:     "a//b",
			expectErr: true,
		},
		{
			name:      "error - invalid segment",
			rawID:     "a/b c",
			expectErr: true,
		},
		{
			name:      "error - empty string",
			rawID:     "",
			expectErr: true,
		},
		{
			name:      "error - root only",
			rawID:     "/",
			expectErr: true,
		},
		{
			name:      "error - empty attribute",
			rawID:     "/s/t:",
			expectErr: true,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			addr, err := Parse(tc.rawID)

			if tc.expectErr {
				require.Error(t, err)
				return
			}

			require.NoError(t, err)
			require.NotNil(t, addr)
			assert.True(t, tc.expectedAddr.Equal(addr), "Parsed address does not match expected address")
		})
	}
}

func TestMustParse_Panics(t *testing.T) {
	assert.Panics(t, func() { MustParse("a//b") })
	assert.Equal(t, "/s/t", MustParse("/s/t").String())
}
