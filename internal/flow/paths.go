package flow

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/vk/ecflowgen/internal/expr"
	"github.com/vk/ecflowgen/internal/nodeid"
)

// detachedPath is what a node outside any suite renders as when referenced.
const detachedPath = "????"

// FullName returns the absolute path of the node, such as /s/f/t.
func (n *Node) FullName() string {
	if n.parent == nil {
		return "/" + n.name
	}
	return n.parent.FullName() + "/" + n.name
}

func (n *Node) pathNames() []string {
	if n.parent == nil {
		return []string{n.name}
	}
	return append(n.parent.pathNames(), n.name)
}

// viewNode returns the node a reference is rendered from.
func viewNode(l expr.Locatable) *Node {
	switch v := l.(type) {
	case *Node:
		return v
	case Attribute:
		return v.Owner()
	}
	return nil
}

// RelativePath returns the path of n as written in an expression owned by
// viewpoint. Paths are relative to the viewpoint's parent, as ecFlow
// resolves them.
func (n *Node) RelativePath(viewpoint expr.Locatable) (string, error) {
	if n.kind == KindSuite {
		return n.FullName(), nil
	}
	if n.parent == nil {
		return detachedPath, nil
	}
	v := viewNode(viewpoint)
	if v == nil || v.Root() != n.Root() || v.parent == nil {
		return n.FullName(), nil
	}

	rel := relPath(v.parent.pathNames(), n.pathNames())
	if rel != "" && unicode.IsDigit(rune(rel[0])) {
		rel = "./" + rel
	}
	return rel, nil
}

// relPath is the lexical relative path between two absolute name lists.
func relPath(from, to []string) string {
	common := 0
	for common < len(from) && common < len(to) && from[common] == to[common] {
		common++
	}
	var parts []string
	for range from[common:] {
		parts = append(parts, "..")
	}
	parts = append(parts, to[common:]...)
	if len(parts) == 0 {
		return "."
	}
	return strings.Join(parts, "/")
}

// attributePath appends name to the owner's relative path. A path ending
// in "." or ".." names the owner as a directory, which ecFlow does not
// accept before ":name", so the owner is spelled out.
func attributePath(owner *Node, viewpoint expr.Locatable, name string) (string, error) {
	if owner == nil {
		return "", fmt.Errorf("attribute %s is not attached to a node", name)
	}
	rel, err := owner.RelativePath(viewpoint)
	if err != nil {
		return "", err
	}
	parts := strings.Split(rel, "/")
	switch parts[len(parts)-1] {
	case "..":
		parts[len(parts)-1] = "../../" + owner.name
	case ".":
		parts[len(parts)-1] = "../" + owner.name
	}
	return strings.Join(parts, "/") + ":" + name, nil
}

// Find resolves a node path relative to n. A leading "/" starts at the
// root, whose name must match; ".." and "." are honoured.
func (n *Node) Find(path string) (*Node, error) {
	cur := n
	segments := strings.Split(path, "/")
	if strings.HasPrefix(path, "/") {
		root := n.Root()
		segments = segments[1:]
		if len(segments) == 0 || segments[0] != root.name {
			invariant(fmt.Sprintf("Path %s is not below root %s", path, root.FullName()))
		}
		cur, segments = root, segments[1:]
	}

	for _, s := range segments {
		switch s {
		case "", ".":
			continue
		case "..":
			if cur.parent == nil {
				return nil, fmt.Errorf("%w: parent of %s", ErrNotFound, cur.FullName())
			}
			cur = cur.parent
		default:
			next, ok := cur.Child(s)
			if !ok {
				return nil, fmt.Errorf("%w: %s in %s", ErrNotFound, s, cur.FullName())
			}
			cur = next
		}
	}
	return cur, nil
}

// Lookup resolves an address such as ../f/t or /s/t:EVENT to a node or
// one of its attributes. Attributes are looked up by name.
func (n *Node) Lookup(address string) (Entry, error) {
	addr, err := nodeid.Parse(address)
	if err != nil {
		return nil, fmt.Errorf("invalid address %q: %w", address, err)
	}
	target, err := n.Find(addr.Node().String())
	if err != nil {
		return nil, err
	}
	if !addr.HasAttr() {
		return target, nil
	}
	for _, a := range target.Attributes() {
		if a.Name() == addr.Attr {
			return a, nil
		}
	}
	return nil, fmt.Errorf("%w: attribute %s of %s", ErrNotFound, addr.Attr, target.FullName())
}
