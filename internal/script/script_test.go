package script

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type exportable string

func (e exportable) ExportName() string { return string(e) }

func TestLines_Stub(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name     string
		script   *Lines
		expected []string
	}{
		{
			name:     "single string",
			script:   New(`echo "boom"`),
			expected: []string{`echo "boom"`},
		},
		{
			name:     "multi-line string is right trimmed",
			script:   New("echo a   \necho b\t"),
			expected: []string{"echo a", "echo b"},
		},
		{
			name:     "nested scripts and lists",
			script:   New("a", New("b", []any{"c", New("d")}), []string{"e"}),
			expected: []string{"a", "b", "c", "d", "e"},
		},
		{
			name:     "exportables render as shell variables",
			script:   New(exportable("YMD"), 3),
			expected: []string{"$YMD", "3"},
		},
		{
			name:     "environment comes first",
			script:   New("run").SetEnv("FOO", "x").SetEnv("BAR", 2).SetEnv("FOO", "y"),
			expected: []string{`export FOO="y"`, `export BAR="2"`, "run"},
		},
		{
			name:     "empty",
			script:   New(),
			expected: nil,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := tc.script.Stub()
			require.NoError(t, err)
			if diff := cmp.Diff(tc.expected, got); diff != "" {
				t.Errorf("stub mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestLines_LowercaseEnvironmentRejected(t *testing.T) {
	t.Parallel()

	_, err := New("x").SetEnv("foo", "1").Stub()
	assert.EqualError(t, err, "Environment variables should be uppercased (foo)")

	_, err = New("x").SetEnv("_1", "1").Stub()
	assert.Error(t, err)
}

func TestLines_RequiredExportables(t *testing.T) {
	t.Parallel()

	inner := New("x").Require("B")
	s := New(inner, []any{New().Require("A")}).Require("C", "A")

	assert.Equal(t, []string{"A", "B", "C"}, s.RequiredExportables())
}

func TestFile_Stub(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	path := filepath.Join(t.TempDir(), "body.sh")
	require.NoError(t, os.WriteFile(path, []byte("echo 1\necho 2"), 0o644))

	// --- Act ---
	got, err := NewFile(path, "echo 3").SetEnv("X", "1").Stub()

	// --- Assert ---
	require.NoError(t, err)
	assert.Equal(t, []string{`export X="1"`, "echo 1", "echo 2", "echo 3"}, got)

	_, err = NewFile(filepath.Join(t.TempDir(), "missing")).Stub()
	assert.ErrorContains(t, err, "failed to read script file")
}

func TestPython_Stub(t *testing.T) {
	t.Parallel()

	got, err := NewPython("\nprint(1)\nprint(2)\n").Arg("a", "1").Arg("b", "x").Stub()
	require.NoError(t, err)

	assert.Equal(t, []string{
		"python3 -u --a=1 --b=x - <<EOS",
		"print(1)",
		"print(2)",
		"EOS",
	}, got)

	p := NewPython("pass")
	p.Version = 2
	got, err = p.Stub()
	require.NoError(t, err)
	assert.Equal(t, "python2 -u - <<EOS", got[0])
}

func TestTemplate_Stub(t *testing.T) {
	t.Parallel()

	t.Run("values and functions", func(t *testing.T) {
		tmpl := NewTemplate(New(`echo "{{ .w1 }}, {{ .w2 | shout }}!"`), map[string]any{
			"w1":    "Hello",
			"w2":    "world",
			"shout": strings.ToUpper,
		})

		got, err := tmpl.Stub()
		require.NoError(t, err)
		assert.Equal(t, []string{`echo "Hello, WORLD!"`}, got)
	})

	t.Run("exportables are required and render as shell variables", func(t *testing.T) {
		tmpl := NewTemplate(New("cd {{ .dir }}"), map[string]any{"dir": exportable("WORKDIR")})

		got, err := tmpl.Stub()
		require.NoError(t, err)
		assert.Equal(t, []string{"cd $WORKDIR"}, got)
		assert.Equal(t, []string{"WORKDIR"}, tmpl.RequiredExportables())
	})

	t.Run("missing parameter fails", func(t *testing.T) {
		_, err := NewTemplate(New("{{ .nope }}"), nil).Stub()
		assert.ErrorContains(t, err, "failed to render script template")
	})

	t.Run("parameters added later", func(t *testing.T) {
		tmpl := NewTemplate(New("{{ .a }}{{ .b }}"), map[string]any{"a": 1})
		tmpl.AddParameters(map[string]any{"b": 2})

		got, err := tmpl.Stub()
		require.NoError(t, err)
		assert.Equal(t, []string{"12"}, got)
	})
}

type recordingInstaller struct {
	saved  map[string][]string
	copied map[string]string
}

func (r *recordingInstaller) Save(_ context.Context, lines []string, target string) error {
	r.saved[target] = lines
	return nil
}

func (r *recordingInstaller) Copy(_ context.Context, source, target string) error {
	r.copied[target] = source
	return nil
}

func TestHeaders_Install(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	rec := &recordingInstaller{saved: map[string][]string{}, copied: map[string]string{}}
	inline := NewInline("task", "  echo head  \n set -e", "/inc", Head)
	file := NewFileHeader("family", "tail.h", "/home/suite", "/inc", Tail)
	legacy := NewLegacy("qsub.h")
	ctx := context.Background()

	// --- Act ---
	n1, err1 := inline.Install(ctx, rec)
	n2, err2 := file.Install(ctx, rec)
	n3, err3 := legacy.Install(ctx, rec)

	// --- Assert ---
	require.NoError(t, err1)
	require.NoError(t, err2)
	require.NoError(t, err3)

	assert.Equal(t, "task_head.h", n1)
	assert.Equal(t, "family_tail.h", n2)
	assert.Equal(t, "qsub.h", n3)

	assert.Equal(t, []string{"echo head", "set -e"}, rec.saved["/inc/task_head.h"])
	assert.Equal(t, "/home/files/tail.h", rec.copied["/inc/family_tail.h"])
	assert.Len(t, rec.saved, 1)
	assert.Len(t, rec.copied, 1)
}
