package flow

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const suiteJSON = `{
	"limits": {"lim": 2},
	"f": {
		"FVAR": 1,
		"t1": {"script": ["echo 1", "echo $FVAR"], "events": ["e"]},
		"t2": {
			"triggers": "t1 == complete",
			"completes": {"or": [{"aborted": "t1"}, {"complete": "../t0"}]},
			"meters": {"m": [0, 10, 5]}
		}
	},
	"t0": {"labels": {"info": "hi"}, "inlimits": ["lim", "-s lim"], "time": "10:00", "repeat": 2},
	"t3": {},
	"tasks": ["x", "y"]
}`

func decodeTree(t *testing.T, text string) map[string]any {
	t.Helper()
	var tree map[string]any
	require.NoError(t, json.Unmarshal([]byte(text), &tree))
	return tree
}

func TestLoadJSON(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	tree := decodeTree(t, suiteJSON)

	// --- Act ---
	s := mustSuite(t, "s", WithJSON(tree))

	// --- Assert ---
	expected := "suite s\n" +
		"  limit lim 2\n" +
		"  family f\n" +
		"    edit FVAR '1'\n" +
		"    task t1\n" +
		"      event e\n" +
		"    task t2\n" +
		"      complete (t1 eq aborted) or (../t0 eq complete)\n" +
		"      trigger t1 == complete\n" +
		"      meter m 0 10 5\n" +
		"  endfamily\n" +
		"  task t0\n" +
		"    repeat day 2\n" +
		"    inlimit lim\n" +
		"    inlimit -s lim\n" +
		"    label info \"hi\"\n" +
		"    time 10:00\n" +
		"  task t3\n" +
		"  task x\n" +
		"  task y\n" +
		"endsuite\n"
	assert.Equal(t, expected, mustDefinition(t, s))

	t1, err := s.Find("f/t1")
	require.NoError(t, err)
	lines, _, err := t1.GenerateScript()
	require.NoError(t, err)
	text := strings.Join(lines, "\n")
	assert.Contains(t, text, "export FVAR=\"%FVAR%\"")
	assert.Contains(t, text, "%nopp\n\necho 1\necho $FVAR\n\n%end")
}

func TestLoadJSON_Mappings(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	s := mustSuite(t, "s")
	tree := decodeTree(t, `{
		"families": {"a": {"tasks": ["t"]}},
		"variables": {"X": "x", "YMD": [20200101, 20200105]},
		"zombies": true,
		"autocancel": 3,
		"defstatus": "suspended"
	}`)

	// --- Act ---
	err := s.LoadJSON(tree)

	// --- Assert ---
	require.NoError(t, err)
	assert.Equal(t, "/s/a/t", s.Tasks()[0].FullName())
	def := mustDefinition(t, s)
	assert.Contains(t, def, "  defstatus suspended\n")
	assert.Contains(t, def, "  repeat date YMD 20200101 20200105\n  edit X 'x'\n")
	assert.Contains(t, def, "  autocancel 3\n  zombie ecf:fob::300\n")
}

func TestLoadJSON_Errors(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name     string
		tree     string
		expected string
	}{
		{"follow", `{"t": {"follow": "/s/f:YMD"}}`, "follow cannot be loaded"},
		{"script on family", `{"script": "echo"}`, "only tasks have a script"},
		{"bad defstatus", `{"defstatus": "sleepy"}`, "invalid defstatus"},
		{"bad limit", `{"limits": {"l": "many"}}`, "is not an integer"},
		{"bad child", `{"t": 3}`, "expected a mapping"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			s := mustSuite(t, "s")
			err := s.LoadJSON(decodeTree(t, tc.tree))
			assert.ErrorContains(t, err, tc.expected)
		})
	}
}
