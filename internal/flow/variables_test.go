package flow

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetVariable_Inference(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name     string
		value    any
		expected string
	}{
		{"string", "hello", "edit V 'hello'"},
		{"int", 42, "edit V '42'"},
		{"integral float", 2.0, "edit V '2.0'"},
		{"float", 2.5, "edit V '2.5'"},
		{"bool", true, "edit V 'True'"},
		{"deferred", Defer(func() (any, error) { return 7, nil }), "edit V '7'"},
		{"date pair", []any{20200101, 20200131}, "repeat date V 20200101 20200131"},
		{"dates with step", []any{"2020-01-01", "2020-01-31", 2}, "repeat date V 20200101 20200131 2"},
		{"integer pair", []int{1, 10}, "repeat integer V 1 10"},
		{"enumerated", []int{1, 5, 9}, `repeat enumerated V "1" "5" "9"`},
		{"strings", []string{"a", "b"}, `repeat string V "a" "b"`},
		{"mixed", []any{"a", 1}, `repeat string V "a" "1"`},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			// --- Arrange ---
			s := mustSuite(t, "s")
			task := mustAdd(t, s, KindTask, "t")

			// --- Act ---
			err := task.SetVariable("V", tc.value)

			// --- Assert ---
			require.NoError(t, err)
			d, err := task.Generate()
			require.NoError(t, err)
			assert.Equal(t, []string{tc.expected}, d.Lines())
		})
	}
}

func TestSetVariable_Rejects(t *testing.T) {
	t.Parallel()

	s := mustSuite(t, "s")
	task := mustAdd(t, s, KindTask, "t")

	assert.ErrorContains(t, task.SetVariable("V", struct{}{}), "Cannot convert")
	assert.ErrorContains(t, task.SetVariable("lower", 1), "is not a valid variable name")
}

func TestSetVariable_AnchorVariables(t *testing.T) {
	t.Parallel()

	t.Run("top level family while suite leaves it unset", func(t *testing.T) {
		s := mustSuite(t, "s")
		f := mustAdd(t, s, KindFamily, "f")
		assert.NoError(t, f.SetVariable("ECF_FILES", "/files"))
	})

	t.Run("top level family when suite sets it", func(t *testing.T) {
		s := mustSuite(t, "s", WithFiles("/files"))
		f := mustAdd(t, s, KindFamily, "f")
		assert.EqualError(t, f.SetVariable("ECF_FILES", "/other"), "ECF_FILES can only be set at the suite level")
	})

	t.Run("nested family", func(t *testing.T) {
		s := mustSuite(t, "s")
		f := mustAdd(t, s, KindFamily, "f")
		g := mustAdd(t, f, KindFamily, "g")
		assert.Error(t, g.SetVariable("ECF_HOME", "/home"))
	})

	t.Run("anchor family", func(t *testing.T) {
		s := mustSuite(t, "s", WithFiles("/files"))
		f := mustAdd(t, s, KindFamily, "f")
		a := mustAdd(t, f, KindAnchorFamily, "a")
		assert.NoError(t, a.SetVariable("ECF_INCLUDE", "/inc"))
	})
}

func TestLookupVariable(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	s := mustSuite(t, "s", WithVariables(map[string]any{"A": 1, "B": 2}))
	f := mustAdd(t, s, KindFamily, "f", WithVariable("B", 3), WithVariable("YMD", []any{20200101, 20201231}))
	task := mustAdd(t, f, KindTask, "t", WithVariable("C", "c"))

	// --- Act ---
	b, err := task.LookupVariableValue("B")
	require.NoError(t, err)
	ymd, err := task.LookupVariableValue("YMD")
	require.NoError(t, err)
	def, err := task.LookupVariableValue("MISSING", "fallback")
	require.NoError(t, err)
	_, missingErr := task.LookupVariableValue("MISSING")

	// --- Assert ---
	assert.Equal(t, "3", b)
	assert.Equal(t, "20200101", ymd)
	assert.Equal(t, "fallback", def)

	var varErr *VariableError
	require.ErrorAs(t, missingErr, &varErr)
	assert.ErrorIs(t, missingErr, ErrNotFound)
	assert.Equal(t, "Variable MISSING is not defined", missingErr.Error())

	var names []string
	for _, e := range task.AllExportables() {
		names = append(names, e.Name())
	}
	assert.Equal(t, []string{"A", "B", "YMD", "C"}, names)

	vars := task.AllVariables()
	require.Len(t, vars, 3)
	assert.Same(t, f, vars[1].Owner())
}

func TestAnchorFamily_DefaultFiles(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	s := mustSuite(t, "s", WithFiles("/files"), WithExtn(".sh"))
	f := mustAdd(t, s, KindFamily, "f")
	a := mustAdd(t, f, KindAnchorFamily, "a")
	task := mustAdd(t, a, KindTask, "t")
	plain := mustAdd(t, f, KindTask, "p")

	// --- Act ---
	files, err := a.FilesPath()

	// --- Assert ---
	require.NoError(t, err)
	assert.Equal(t, "/files/f/a", files)
	assert.Equal(t, "/files/f/a/t.sh", task.DeployPath())
	assert.Equal(t, "/files/p.sh", plain.DeployPath())

	include, err := task.IncludePath()
	require.NoError(t, err)
	assert.Equal(t, "/files/f/a", include)

	def := mustDefinition(t, s)
	assert.Contains(t, def, "    family a\n      edit ECF_FILES '/files/f/a'\n")
}
