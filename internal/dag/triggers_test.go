package dag

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vk/ecflowgen/internal/defs"
)

func buildDefs(t *testing.T) (*defs.Defs, *defs.Node, *defs.Node, *defs.Node) {
	t.Helper()
	d := defs.New()
	s := defs.NewSuite("s")
	f := defs.NewFamily("f")
	t1 := defs.NewTask("t1")
	t2 := defs.NewTask("t2")
	require.NoError(t, d.AddSuite(s))
	require.NoError(t, s.AddChild(f))
	require.NoError(t, f.AddChild(t1))
	require.NoError(t, f.AddChild(t2))
	return d, f, t1, t2
}

func TestCheckTriggers(t *testing.T) {
	t.Run("sibling trigger is fine", func(t *testing.T) {
		// --- Arrange ---
		d, _, _, t2 := buildDefs(t)
		t2.AddTrigger("t1 eq complete", "/s/f/t1")

		// --- Act & Assert ---
		assert.NoError(t, CheckTriggers(d))
	})

	t.Run("waiting on the enclosing family deadlocks", func(t *testing.T) {
		d, _, t1, _ := buildDefs(t)
		t1.AddTrigger("/s/f eq complete", "/s/f")

		err := CheckTriggers(d)

		require.Error(t, err)
		assert.ErrorContains(t, err, "trigger deadlock")
		assert.ErrorContains(t, err, "cycle detected: /s/f -> /s/f/t1 -> /s/f")
	})

	t.Run("mutual triggers deadlock", func(t *testing.T) {
		d, _, t1, t2 := buildDefs(t)
		t1.AddTrigger("t2 eq complete", "/s/f/t2")
		t2.AddTrigger("t1 eq complete", "/s/f/t1")

		assert.EqualError(t, CheckTriggers(d), "trigger deadlock: cycle detected: /s/f/t1 -> /s/f/t2 -> /s/f/t1")
	})

	t.Run("attribute and extern references add no edges", func(t *testing.T) {
		d, f, t1, _ := buildDefs(t)
		f.AddVariable("YMD", "20200101")
		t1.AddTrigger("../f:YMD gt 1 and /other/x eq complete", "/s/f:YMD", "/other/x")

		g, err := TriggerGraph(d)
		require.NoError(t, err)

		assert.Empty(t, g.waitsOn("/s/f/t1"))
		assert.NoError(t, CheckTriggers(d))
	})

	t.Run("complete expressions are ignored", func(t *testing.T) {
		d, f, _, _ := buildDefs(t)
		f.AddComplete("t1 eq complete", "/s/f/t1")

		assert.NoError(t, CheckTriggers(d))
	})
}
