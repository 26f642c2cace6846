package yamltree_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vk/ecflowgen/internal/builder"
	"github.com/vk/ecflowgen/internal/config"
	"github.com/vk/ecflowgen/internal/testutil"
	"github.com/vk/ecflowgen/internal/yamltree"
)

const suitesYAML = `
hosts:
  quiet:
    kind: "null"
    limit: 3
externs:
  /other/f/t: task
  /other/g: ""
suites:
  s:
    host: quiet
    limits: {lim: 2}
    f:
      FVAR: 1
      t1:
        events: [e]
      t2:
        triggers: t1 == complete
        inlimits: lim
  empty: ~
`

func TestLoader_DecodesModel(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	root := testutil.WriteFiles(t, map[string]string{"suites.yaml": suitesYAML})
	file := filepath.Join(root, "suites.yaml")
	limit := 3

	// --- Act ---
	model, err := yamltree.NewLoader().Load(context.Background(), root)

	// --- Assert ---
	require.NoError(t, err)
	assert.Empty(t, cmp.Diff(map[string]*config.Host{
		"quiet": {Name: "quiet", Kind: "null", Limit: &limit, Source: file},
	}, model.Hosts))
	assert.Empty(t, cmp.Diff([]*config.Extern{
		{Address: "/other/f/t", Kind: config.ExternTask, Source: file},
		{Address: "/other/g", Kind: config.ExternNode, Source: file},
	}, model.Externs))

	require.Len(t, model.Suites, 2)
	s, empty := model.Suites[0], model.Suites[1]
	assert.Equal(t, "s", s.Name)
	assert.Equal(t, "quiet", s.Host)
	assert.NotContains(t, s.Tree, "host")
	assert.Equal(t, map[string]any{"lim": 2}, s.Tree["limits"])
	assert.Equal(t, "empty", empty.Name)
	assert.Nil(t, empty.Tree)
}

func TestLoader_BuildsDefinition(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	ctx := context.Background()
	root := testutil.WriteFiles(t, map[string]string{
		"a/suites.yaml": suitesYAML,
		"b/more.json":   `{"suites": {"j": {"t": {"time": "10:00"}}}}`,
	})
	model, err := yamltree.NewLoader().Load(ctx, root)
	require.NoError(t, err)

	// --- Act ---
	res, err := builder.Build(ctx, model)

	// --- Assert ---
	require.NoError(t, err)
	s, ok := res.Suite("s")
	require.True(t, ok)
	d, err := s.Definition()
	require.NoError(t, err)
	got := d.String()
	assert.Contains(t, got, "  limit lim 2\n")
	assert.Contains(t, got, "  family f\n")
	assert.Contains(t, got, "    edit FVAR '1'\n")
	assert.Contains(t, got, "    task t2\n      trigger t1 == complete\n")
	assert.Contains(t, got, "      inlimit lim\n")

	j, ok := res.Suite("j")
	require.True(t, ok)
	d, err = j.Definition()
	require.NoError(t, err)
	assert.Contains(t, d.String(), "  task t\n    time 10:00\n")
}

func TestLoader_Errors(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name    string
		content string
		wantErr string
	}{
		{name: "unknown top-level key", content: "suite:\n  s: {}\n", wantErr: "field suite not found"},
		{name: "suites as a list", content: "suites:\n  - s\n", wantErr: "suites must be a mapping"},
		{name: "suite as a scalar", content: "suites:\n  s: 3\n", wantErr: "suite s must be a mapping"},
		{name: "host not a name", content: "suites:\n  s:\n    host: [a]\n", wantErr: "host of suite s must be a name"},
		{name: "broken yaml", content: "suites: [\n", wantErr: "failed to decode suite file"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			// --- Arrange ---
			root := testutil.WriteFiles(t, map[string]string{"bad.yaml": tc.content})

			// --- Act ---
			_, err := yamltree.NewLoader().Load(context.Background(), root)

			// --- Assert ---
			assert.ErrorContains(t, err, tc.wantErr)
		})
	}
}
