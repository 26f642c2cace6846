package hcl_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vk/ecflowgen/internal/builder"
	"github.com/vk/ecflowgen/internal/config"
	"github.com/vk/ecflowgen/internal/expr"
	"github.com/vk/ecflowgen/internal/hcl"
	"github.com/vk/ecflowgen/internal/testutil"
)

const demoSuite = `
host "hpc" {
  kind     = "slurm"
  hostname = "hpc01"
  user     = "ops"
  limit    = 5
}

extern "/other/f/t" {
  kind = "task"
}

suite "s" {
  host = "hpc"
  variables = {
    PROJECT = "demo"
    COUNT   = 3
  }

  limit "jobs" {
    max = 2
  }

  family "f" {
    repeat "date" {
      name  = "YMD"
      start = 20200101
      end   = 20200105
    }

    task "t1" {
      events = ["ready"]
      time   = "10:00"
    }

    task "t2" {
      trigger  = t1 || t1.aborted
      inlimits = ["/s:jobs"]

      label "info" {
        value = "hello"
      }
    }
  }

  task "last" {
    trigger  = f.t2 && node("/other/f/t")
    complete = f.YMD >= 20200103
    zombies  = true
  }
}
`

func intPtr(i int) *int { return &i }

func TestLoader_DecodesModel(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	root := testutil.WriteFiles(t, map[string]string{"suite.hcl": demoSuite})
	file := filepath.Join(root, "suite.hcl")

	// --- Act ---
	model, err := hcl.NewLoader().Load(context.Background(), root)

	// --- Assert ---
	require.NoError(t, err)

	expectedHosts := map[string]*config.Host{
		"hpc": {Name: "hpc", Kind: "slurm", Hostname: "hpc01", User: "ops", Limit: intPtr(5), Source: file},
	}
	assert.Empty(t, cmp.Diff(expectedHosts, model.Hosts))
	assert.Empty(t, cmp.Diff([]*config.Extern{{Address: "/other/f/t", Kind: config.ExternTask, Source: file}}, model.Externs))

	expectedSuite := &config.Node{
		Kind:      config.KindSuite,
		Name:      "s",
		Source:    file,
		Host:      "hpc",
		Variables: map[string]any{"PROJECT": "demo", "COUNT": 3},
		Limits:    map[string]int{"jobs": 2},
		Children: []*config.Node{
			{
				Kind:   config.KindFamily,
				Name:   "f",
				Source: file,
				Repeat: &config.Repeat{Kind: "date", Name: "YMD", Start: 20200101, End: 20200105},
				Children: []*config.Node{
					{Kind: config.KindTask, Name: "t1", Source: file, Events: []string{"ready"}, Times: []string{"10:00"}},
					{Kind: config.KindTask, Name: "t2", Source: file, InLimits: []string{"/s:jobs"}, Labels: map[string]string{"info": "hello"}},
				},
			},
			{Kind: config.KindTask, Name: "last", Source: file, Zombies: []string{}},
		},
	}
	require.Len(t, model.Suites, 1)
	diff := cmp.Diff(expectedSuite, model.Suites[0],
		cmpopts.IgnoreFields(config.Node{}, "Triggers", "Completes"),
		cmpopts.EquateEmpty(),
	)
	assert.Empty(t, diff)

	last := model.Suites[0].Children[1]
	require.Len(t, last.Triggers, 1)
	assert.Equal(t, `f.t2 && node("/other/f/t")`, last.Triggers[0].String())
	require.Len(t, last.Completes, 1)
	assert.Equal(t, "f.YMD >= 20200103", last.Completes[0].String())
}

func TestLoader_BuildsDefinition(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	ctx := context.Background()
	root := testutil.WriteFiles(t, map[string]string{"suite.hcl": demoSuite})
	model, err := hcl.NewLoader().Load(ctx, root)
	require.NoError(t, err)

	// --- Act ---
	res, err := builder.Build(ctx, model)
	require.NoError(t, err)
	s, ok := res.Suite("s")
	require.True(t, ok)
	d, err := s.Definition()

	// --- Assert ---
	require.NoError(t, err)
	got := d.String()
	assert.Contains(t, got, "  edit PROJECT 'demo'\n")
	assert.Contains(t, got, "  limit jobs 2\n")
	assert.Contains(t, got, "    repeat date YMD 20200101 20200105\n")
	assert.Contains(t, got, "      trigger (t1 eq complete) or (t1 eq aborted)\n")
	assert.Contains(t, got, "      inlimit /s:jobs\n")
	assert.Contains(t, got, "      label info \"hello\"\n")
	assert.Contains(t, got, "    trigger (f/t2 eq complete) and (/other/f/t eq complete)\n")
	assert.Contains(t, got, "    complete f:YMD ge 20200103\n")
	assert.Contains(t, got, "      time 10:00\n")
	assert.Contains(t, got, "      event ready\n")
	assert.Equal(t, []string{"/other/f/t"}, d.Externs)
}

func TestLoader_KeepsChildOrder(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	root := testutil.WriteFiles(t, map[string]string{
		"b.hcl": `suite "s" {
  task "zeta" {}
  family "alpha" {
    task "x" {}
  }
  anchor_family "mid" {}
}`,
	})

	// --- Act ---
	model, err := hcl.NewLoader().Load(context.Background(), root)

	// --- Assert ---
	require.NoError(t, err)
	require.Len(t, model.Suites, 1)
	var names []string
	var kinds []config.Kind
	for _, c := range model.Suites[0].Children {
		names = append(names, c.Name)
		kinds = append(kinds, c.Kind)
	}
	assert.Equal(t, []string{"zeta", "alpha", "mid"}, names)
	assert.Equal(t, []config.Kind{config.KindTask, config.KindFamily, config.KindAnchorFamily}, kinds)
}

func TestLoader_Errors(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name    string
		content string
		wantErr string
	}{
		{
			name:    "syntax error",
			content: `suite "s" {`,
			wantErr: "failed to parse HCL file",
		},
		{
			name:    "unknown attribute",
			content: `suite "s" { colour = "red" }`,
			wantErr: "Unsupported argument",
		},
		{
			name:    "task with children",
			content: `suite "s" { task "t" { task "u" {} } }`,
			wantErr: "a task cannot contain task blocks",
		},
		{
			name:    "variables must be an object",
			content: `suite "s" { variables = ["a"] }`,
			wantErr: "variables must be an object",
		},
		{
			name: "duplicate host",
			content: `host "h" {}
host "h" {}`,
			wantErr: `host "h" defined twice`,
		},
		{
			name:    "zombies of the wrong type",
			content: `suite "s" { zombies = 3 }`,
			wantErr: "zombies must be a bool or a list of strings",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			// --- Arrange ---
			root := testutil.WriteFiles(t, map[string]string{"bad.hcl": tc.content})

			// --- Act ---
			_, err := hcl.NewLoader().Load(context.Background(), root)

			// --- Assert ---
			assert.ErrorContains(t, err, tc.wantErr)
		})
	}
}

func TestExpression_Translation(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name     string
		trigger  string
		expected string
	}{
		{name: "bare node means complete", trigger: `a`, expected: "a eq complete"},
		{name: "trailing state", trigger: `a.aborted`, expected: "a eq aborted"},
		{name: "explicit comparison", trigger: `a == "active"`, expected: "a eq active"},
		{name: "negation", trigger: `!a`, expected: "not (a eq complete)"},
		{name: "nested family path", trigger: `f.x.complete`, expected: "f/x eq complete"},
		{name: "event attribute", trigger: `a.go`, expected: "a:go"},
		{name: "meter comparison", trigger: `a.progress >= 50`, expected: "a:progress ge 50"},
		{name: "arithmetic", trigger: `f.YMD % 2 == 0`, expected: "f:YMD % 2 eq 0"},
		{name: "julian day", trigger: `julian(f.YMD) > 10`, expected: "cal::date_to_julian(f:YMD) gt 10"},
		{name: "all complete", trigger: `all_complete(a, f.x)`, expected: "(a eq complete) and (f/x eq complete)"},
		{name: "node by string", trigger: `node("/s/a")`, expected: "a eq complete"},
		{name: "parentheses", trigger: `(a || f.x) && a.go`, expected: "((a eq complete) or (f/x eq complete)) and a:go"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			// --- Arrange ---
			ctx := context.Background()
			root := testutil.WriteFiles(t, map[string]string{"s.hcl": `suite "s" {
  task "a" {
    events = ["go"]
    meter "progress" {
      max = 100
    }
  }
  family "f" {
    repeat "integer" {
      name  = "YMD"
      start = 1
      end   = 9
    }
    task "x" {}
  }
  task "b" {
    trigger = ` + tc.trigger + `
  }
}`})
			model, err := hcl.NewLoader().Load(ctx, root)
			require.NoError(t, err)

			// --- Act ---
			res, err := builder.Build(ctx, model)
			require.NoError(t, err)
			s, _ := res.Suite("s")
			d, err := s.Definition()

			// --- Assert ---
			require.NoError(t, err)
			assert.Contains(t, d.String(), "  task b\n    trigger "+tc.expected+"\n")
		})
	}
}

func TestExpression_Errors(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name    string
		trigger string
		wantErr string
		wantIs  error
	}{
		{name: "conditional", trigger: `a ? a : a`, wantIs: expr.ErrBooleanCoercion},
		{name: "unknown node", trigger: `nope`, wantErr: `cannot resolve "nope"`},
		{name: "unknown function", trigger: `upper(a)`, wantErr: `unknown function "upper"`},
		{name: "fractional constant", trigger: `a.progress > 1.5`, wantErr: "only integers"},
		{name: "absolute path outside the suite", trigger: `node("/elsewhere/t")`, wantErr: "not declared extern"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			// --- Arrange ---
			ctx := context.Background()
			root := testutil.WriteFiles(t, map[string]string{"s.hcl": `suite "s" {
  task "a" {
    meter "progress" {
      max = 100
    }
  }
  task "b" {
    trigger = ` + tc.trigger + `
  }
}`})
			model, err := hcl.NewLoader().Load(ctx, root)
			require.NoError(t, err)

			// --- Act ---
			_, err = builder.Build(ctx, model)

			// --- Assert ---
			require.Error(t, err)
			if tc.wantIs != nil {
				assert.ErrorIs(t, err, tc.wantIs)
			}
			if tc.wantErr != "" {
				assert.ErrorContains(t, err, tc.wantErr)
			}
		})
	}
}
