package flow

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/vk/ecflowgen/internal/host"
)

// quietHost is a local host that adds no variables or labels, so that
// generated definitions only hold what a test sets.
func quietHost() host.Host {
	return host.NewLocal(host.WithEcflowPath("/usr/bin"), host.WithoutLabel(), host.WithServerEcfVars())
}

func mustSuite(t *testing.T, name string, opts ...Option) *Node {
	t.Helper()
	s, err := NewSuite(name, append([]Option{WithHost(quietHost())}, opts...)...)
	require.NoError(t, err)
	return s
}

func mustAdd(t *testing.T, parent *Node, kind Kind, name string, opts ...Option) *Node {
	t.Helper()
	n, err := create(kind, name, parent, nil, opts)
	require.NoError(t, err)
	return n
}

func mustDefinition(t *testing.T, n *Node) string {
	t.Helper()
	d, err := n.Definition()
	require.NoError(t, err)
	return d.String()
}
