package flow

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestNode_AddKeepsOrderAndRejectsDuplicates(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	s := mustSuite(t, "s")
	f := mustAdd(t, s, KindFamily, "f")
	t1 := mustAdd(t, f, KindTask, "t1")
	t2 := mustAdd(t, f, KindTask, "t2")

	// --- Act ---
	dup, err := NewTask("t1")
	require.NoError(t, err)
	addErr := f.Add(dup)

	// --- Assert ---
	var dupErr *DuplicateNodeError
	require.ErrorAs(t, addErr, &dupErr)
	assert.Equal(t, "/s/f/t1", dupErr.Existing)
	assert.Nil(t, dup.Parent())
	assert.Equal(t, []*Node{t1, t2}, f.Children())
	assert.Equal(t, "/s/f/t2", t2.FullName())
}

func TestNode_StructuralErrors(t *testing.T) {
	t.Parallel()

	s := mustSuite(t, "s")
	task := mustAdd(t, s, KindTask, "t")
	other := mustSuite(t, "other")
	fam, err := NewFamily("f")
	require.NoError(t, err)
	task2, err := NewTask("t2")
	require.NoError(t, err)

	testCases := []struct {
		name     string
		parent   *Node
		child    *Node
		expected string
	}{
		{"suite below suite", s, other, "Cannot add Suite 'other' to Suite '/s'"},
		{"task below task", task, task2, "Cannot add 't2' to task '/s/t'"},
		{"family below task", task, fam, "Cannot add Family 'f' to Task '/s/t'"},
		{"node to itself", s, s, "Cannot add Suite 's' to itself"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.parent.Add(tc.child)

			var genErr *GenerateError
			require.ErrorAs(t, err, &genErr)
			assert.Equal(t, tc.expected, err.Error())
		})
	}
}

func TestNode_AddMovesEntries(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	s := mustSuite(t, "s")
	a := mustAdd(t, s, KindFamily, "a")
	b := mustAdd(t, s, KindFamily, "b")
	task := mustAdd(t, a, KindTask, "t")
	ev := NewEvent("done")
	require.NoError(t, task.Add(ev))

	// --- Act ---
	require.NoError(t, b.Add(task))
	require.NoError(t, b.Add(ev))

	// --- Assert ---
	assert.Empty(t, a.Children())
	assert.Same(t, b, task.Parent())
	assert.Equal(t, "/s/b/t", task.FullName())
	assert.Same(t, b, ev.Owner())
	assert.False(t, task.Has("done"))
}

func TestNode_AddRejectsAncestorBelowDescendant(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	s := mustSuite(t, "s")
	f := mustAdd(t, s, KindFamily, "f")
	g := mustAdd(t, f, KindFamily, "g")
	task := mustAdd(t, g, KindTask, "t")

	testCases := []struct {
		name     string
		parent   *Node
		child    *Node
		expected string
	}{
		{"parent below child", g, f, "Cannot add Family '/s/f' below its own descendant '/s/f/g'"},
		{"grandparent below grandchild", g, s, "Cannot add Suite 's' to Family '/s/f/g'"},
		{"family below its task", task, f, "Cannot add Family '/s/f' below its own descendant '/s/f/g/t'"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			// --- Act ---
			err := tc.parent.Add(tc.child)

			// --- Assert ---
			var genErr *GenerateError
			require.ErrorAs(t, err, &genErr)
			assert.Equal(t, tc.expected, err.Error())
			assert.Same(t, s, f.Parent())
			assert.Same(t, f, g.Parent())
			assert.Equal(t, []*Node{f}, s.Children())
			assert.Equal(t, "/s/f/g/t", task.FullName())
		})
	}
}

func TestNode_AddDuplicateKeepsAttachedNode(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	s := mustSuite(t, "s")
	a := mustAdd(t, s, KindFamily, "a")
	b := mustAdd(t, s, KindFamily, "b")
	moving := mustAdd(t, a, KindTask, "t")
	sibling := mustAdd(t, a, KindTask, "u")
	clash := mustAdd(t, b, KindTask, "t")

	// --- Act ---
	err := b.Add(moving)

	// --- Assert ---
	var dupErr *DuplicateNodeError
	require.ErrorAs(t, err, &dupErr)
	assert.Equal(t, "/s/b/t", dupErr.Existing)
	assert.Same(t, a, moving.Parent())
	assert.Equal(t, []*Node{moving, sibling}, a.Children())
	assert.Equal(t, "/s/a/t", moving.FullName())
	assert.Equal(t, []*Node{clash}, b.Children())
}

func TestNode_Remove(t *testing.T) {
	t.Parallel()

	s := mustSuite(t, "s")
	task := mustAdd(t, s, KindTask, "t")

	e, err := s.Remove("t")
	require.NoError(t, err)
	assert.Same(t, task, e)
	assert.Nil(t, task.Parent())

	_, err = s.Remove("t")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestNode_RelativePath(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	s := mustSuite(t, "s")
	f1 := mustAdd(t, s, KindFamily, "f1")
	t1 := mustAdd(t, f1, KindTask, "t1")
	t2 := mustAdd(t, f1, KindTask, "t2")
	f2 := mustAdd(t, s, KindFamily, "f2")
	t3 := mustAdd(t, f2, KindTask, "t3")
	num := mustAdd(t, f1, KindTask, "00")
	v, err := NewVariable("VAR", 1)
	require.NoError(t, err)
	require.NoError(t, f1.Add(v))
	detached, err := NewTask("lonely")
	require.NoError(t, err)

	g := mustAdd(t, f1, KindFamily, "g")
	deep := mustAdd(t, g, KindTask, "deep")

	testCases := []struct {
		name     string
		path     func() (string, error)
		expected string
	}{
		{"sibling", func() (string, error) { return t2.RelativePath(t1) }, "t2"},
		{"cousin", func() (string, error) { return t3.RelativePath(t1) }, "../f2/t3"},
		{"suite is absolute", func() (string, error) { return s.RelativePath(t1) }, "/s"},
		{"own parent", func() (string, error) { return f1.RelativePath(t1) }, "."},
		{"digit leading", func() (string, error) { return num.RelativePath(t1) }, "./00"},
		{"attribute of parent", func() (string, error) { return v.RelativePath(t1) }, "../f1:VAR"},
		{"attribute of grandparent", func() (string, error) { return v.RelativePath(deep) }, "../../f1:VAR"},
		{"attribute of self", func() (string, error) { return v.RelativePath(f1) }, "f1:VAR"},
		{"no viewpoint", func() (string, error) { return t3.RelativePath(nil) }, "/s/f2/t3"},
		{"detached", func() (string, error) { return detached.RelativePath(t1) }, "????"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			// --- Act ---
			got, err := tc.path()

			// --- Assert ---
			require.NoError(t, err)
			assert.Equal(t, tc.expected, got)
		})
	}
}

func TestNode_FindAndLookup(t *testing.T) {
	t.Parallel()

	s := mustSuite(t, "s")
	f := mustAdd(t, s, KindFamily, "f")
	task := mustAdd(t, f, KindTask, "t")
	ev := NewEvent("ready")
	require.NoError(t, task.Add(ev))

	got, err := task.Find("../f/t")
	require.NoError(t, err)
	assert.Same(t, task, got)

	got, err = task.Find("/s/f")
	require.NoError(t, err)
	assert.Same(t, f, got)

	_, err = f.Find("missing")
	assert.ErrorIs(t, err, ErrNotFound)

	e, err := s.Lookup("/s/f/t:ready")
	require.NoError(t, err)
	assert.Same(t, ev, e)

	_, err = s.Lookup("/s/f/t:nope")
	assert.ErrorIs(t, err, ErrNotFound)

	assert.PanicsWithError(t, "Path /other/f is not below root /s", func() {
		_, _ = task.Find("/other/f")
	})
}

func TestNode_RelativePathRoundTrip(t *testing.T) {
	t.Parallel()

	rapid.Check(t, func(rt *rapid.T) {
		s, err := NewSuite("s", WithHost(quietHost()))
		require.NoError(rt, err)
		nodes := []*Node{s}

		count := rapid.IntRange(1, 20).Draw(rt, "count")
		for i := 0; i < count; i++ {
			var families []*Node
			for _, n := range nodes {
				if n.Kind() != KindTask {
					families = append(families, n)
				}
			}
			parent := rapid.SampledFrom(families).Draw(rt, "parent")
			prefix := rapid.SampledFrom([]string{"", "f", "t_"}).Draw(rt, "prefix")
			kind := rapid.SampledFrom([]Kind{KindFamily, KindTask}).Draw(rt, "kind")
			n, err := create(kind, fmt.Sprintf("%s%d", prefix, i), parent, nil, nil)
			require.NoError(rt, err)
			nodes = append(nodes, n)
		}

		from := rapid.SampledFrom(nodes[1:]).Draw(rt, "from")
		to := rapid.SampledFrom(nodes).Draw(rt, "to")

		rel, err := to.RelativePath(from)
		require.NoError(rt, err)
		got, err := from.Parent().Find(rel)
		require.NoError(rt, err)
		if got != to {
			rt.Fatalf("path %q from %s resolved to %s, want %s", rel, from.FullName(), got.FullName(), to.FullName())
		}
	})
}
