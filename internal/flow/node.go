package flow

import (
	"fmt"

	"github.com/vk/ecflowgen/internal/defs"
	"github.com/vk/ecflowgen/internal/expr"
	"github.com/vk/ecflowgen/internal/host"
	"github.com/vk/ecflowgen/internal/script"
)

// Kind identifies the type of a tree node.
type Kind int

const (
	KindSuite Kind = iota
	KindFamily
	KindAnchorFamily
	KindTask
)

func (k Kind) String() string {
	switch k {
	case KindSuite:
		return "Suite"
	case KindFamily:
		return "Family"
	case KindAnchorFamily:
		return "AnchorFamily"
	case KindTask:
		return "Task"
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Entry is anything held in a node's ordered children: a *Node or an
// Attribute.
type Entry interface {
	Name() string
	FullName() string
	entry()
}

// taskSpec holds the settings only tasks have.
type taskSpec struct {
	script       script.Script
	submitArgs   map[string]string
	exitHook     []string
	cleanWorkdir bool
	autolimit    bool
}

// Node is a suite, family, anchor family or task.
//
// Children are kept in insertion order under a key: the name for nodes and
// variables, a fixed key such as "_trigger" for the attributes a node has
// at most one of.
type Node struct {
	kind   Kind
	name   string
	parent *Node
	extern bool

	keys    []string
	entries map[string]Entry

	host         host.Host
	workdir      string
	hasWorkdir   bool
	modules      []string
	purgeModules bool

	heads []any
	tails []any

	task *taskSpec
}

func newNode(kind Kind, name string) *Node {
	n := &Node{kind: kind, name: name, entries: map[string]Entry{}}
	if kind == KindTask {
		n.task = &taskSpec{autolimit: true}
	}
	return n
}

func (n *Node) entry() {}

// Kind returns the node type.
func (n *Node) Kind() Kind { return n.kind }

// Name returns the node name.
func (n *Node) Name() string { return n.name }

// Parent returns the node holding n, or nil for a root.
func (n *Node) Parent() *Node { return n.parent }

// IsExtern reports whether n is a placeholder for a node defined elsewhere.
func (n *Node) IsExtern() bool { return n.extern }

// IsAnchor reports whether n carries ECF_FILES/ECF_INCLUDE defaults of its
// own: suites and anchor families.
func (n *Node) IsAnchor() bool { return n.kind == KindSuite || n.kind == KindAnchorFamily }

// Root returns the topmost ancestor.
func (n *Node) Root() *Node {
	cur := n
	for cur.parent != nil {
		cur = cur.parent
	}
	return cur
}

// Suite returns the enclosing suite, or nil when the tree has no suite at
// its root.
func (n *Node) Suite() *Node {
	if r := n.Root(); r.kind == KindSuite {
		return r
	}
	return nil
}

// Anchor returns the nearest anchor above n, or n itself when it is one.
func (n *Node) Anchor() *Node {
	for cur := n; cur != nil; cur = cur.parent {
		if cur.IsAnchor() {
			return cur
		}
	}
	return nil
}

func (n *Node) parentAnchor() *Node {
	if n.parent == nil {
		return nil
	}
	return n.parent.Anchor()
}

// Entries returns the children in insertion order.
func (n *Node) Entries() []Entry {
	out := make([]Entry, 0, len(n.keys))
	for _, k := range n.keys {
		out = append(out, n.entries[k])
	}
	return out
}

// Children returns the child nodes in insertion order.
func (n *Node) Children() []*Node {
	var out []*Node
	for _, k := range n.keys {
		if c, ok := n.entries[k].(*Node); ok {
			out = append(out, c)
		}
	}
	return out
}

// Attributes returns the attributes in insertion order.
func (n *Node) Attributes() []Attribute {
	var out []Attribute
	for _, k := range n.keys {
		if a, ok := n.entries[k].(Attribute); ok {
			out = append(out, a)
		}
	}
	return out
}

// Child returns the direct child node called name.
func (n *Node) Child(name string) (*Node, bool) {
	c, ok := n.entries[name].(*Node)
	return c, ok
}

// Attribute returns the attribute stored under key.
func (n *Node) Attribute(key string) (Attribute, bool) {
	a, ok := n.entries[key].(Attribute)
	return a, ok
}

// Has reports whether an entry is stored under key.
func (n *Node) Has(key string) bool {
	_, ok := n.entries[key]
	return ok
}

// Tasks returns every task at or below n, depth first.
func (n *Node) Tasks() []*Node {
	var out []*Node
	n.walk(func(c *Node) {
		if c.kind == KindTask {
			out = append(out, c)
		}
	})
	return out
}

// Families returns every family and anchor family below n, depth first.
func (n *Node) Families() []*Node {
	var out []*Node
	n.walk(func(c *Node) {
		if c.kind == KindFamily || c.kind == KindAnchorFamily {
			out = append(out, c)
		}
	})
	return out
}

func (n *Node) walk(fn func(*Node)) {
	fn(n)
	for _, c := range n.Children() {
		c.walk(fn)
	}
}

func entryKey(e Entry) string {
	if a, ok := e.(Attribute); ok {
		return a.key()
	}
	return e.Name()
}

// Add attaches e below n. Nodes and attributes already attached elsewhere
// are moved, but only once the new parent has accepted them.
func (n *Node) Add(e Entry) error {
	switch x := e.(type) {
	case *Node:
		if err := n.checkChild(x); err != nil {
			return err
		}
	case Attribute:
	default:
		return fmt.Errorf("cannot add %T to %s", e, n.FullName())
	}

	k := entryKey(e)
	if existing, ok := n.entries[k]; ok {
		return &DuplicateNodeError{Parent: n.FullName(), New: e.Name(), Existing: existing.FullName()}
	}

	switch x := e.(type) {
	case *Node:
		if x.parent != nil {
			x.parent.remove(x.name)
		}
		x.parent = n
	case Attribute:
		if o := x.Owner(); o != nil {
			o.remove(k)
		}
		x.setOwner(n)
	}
	n.keys = append(n.keys, k)
	n.entries[k] = e
	return nil
}

func (n *Node) checkChild(c *Node) error {
	if c == n {
		return generateErrorf("Cannot add %s '%s' to itself", c.kind, c.name)
	}
	if c.kind == KindSuite {
		return generateErrorf("Cannot add Suite '%s' to %s '%s'", c.name, n.kind, n.FullName())
	}
	for p := n.parent; p != nil; p = p.parent {
		if p == c {
			return generateErrorf("Cannot add %s '%s' below its own descendant '%s'", c.kind, c.FullName(), n.FullName())
		}
	}
	if n.kind != KindTask {
		return nil
	}
	if c.kind == KindTask {
		return generateErrorf("Cannot add '%s' to task '%s'", c.name, n.FullName())
	}
	return generateErrorf("Cannot add %s '%s' to Task '%s'", c.kind, c.name, n.FullName())
}

// Remove detaches the entry stored under key and returns it.
func (n *Node) Remove(key string) (Entry, error) {
	e := n.remove(key)
	if e == nil {
		return nil, fmt.Errorf("%w: %s in %s", ErrNotFound, key, n.FullName())
	}
	return e, nil
}

func (n *Node) remove(key string) Entry {
	e, ok := n.entries[key]
	if !ok {
		return nil
	}
	delete(n.entries, key)
	for i, k := range n.keys {
		if k == key {
			n.keys = append(n.keys[:i:i], n.keys[i+1:]...)
			break
		}
	}
	switch x := e.(type) {
	case *Node:
		x.parent = nil
	case Attribute:
		x.setOwner(nil)
	}
	return e
}

// replace stores a under its key, dropping any previous holder.
func (n *Node) replace(a Attribute) error {
	n.remove(a.key())
	return n.Add(a)
}

// Host returns the host selected on n or its nearest ancestor.
func (n *Node) Host() host.Host {
	for cur := n; cur != nil; cur = cur.parent {
		if cur.host != nil {
			return cur.host
		}
	}
	return nil
}

// Workdir returns the working directory jobs below n change into.
func (n *Node) Workdir() (string, bool) {
	for cur := n; cur != nil; cur = cur.parent {
		if cur.hasWorkdir {
			return cur.workdir, true
		}
	}
	return "", false
}

// TaskModules lists the environment modules loaded by tasks below n: the
// host's modules first, then those set along the ancestors.
func (n *Node) TaskModules() []string {
	var mods []string
	if n.kind == KindTask {
		if h := n.Host(); h != nil {
			mods = append(mods, h.Config().Modules...)
		}
	}
	return append(mods, n.inheritedModules()...)
}

func (n *Node) inheritedModules() []string {
	var mods []string
	if n.kind != KindSuite && n.parent != nil {
		mods = n.parent.inheritedModules()
	}
	return append(mods, n.modules...)
}

// TaskPurgeModules reports whether jobs below n start with `module purge`.
func (n *Node) TaskPurgeModules() bool {
	if n.kind == KindTask {
		if h := n.Host(); h != nil && h.Config().PurgeModules {
			return true
		}
	}
	return n.inheritedPurge()
}

func (n *Node) inheritedPurge() bool {
	if n.purgeModules {
		return true
	}
	return n.kind != KindSuite && n.parent != nil && n.parent.inheritedPurge()
}

// AsExpr makes a node usable as an expression operand: `n eq complete`.
func (n *Node) AsExpr() expr.Expr { return n.Complete() }

func (n *Node) state(s string) expr.Expr { return expr.Eq(expr.RefTo(n), expr.Status(s)) }

func (n *Node) Complete() expr.Expr { return n.state("complete") }
func (n *Node) Aborted() expr.Expr { return n.state("aborted") }
func (n *Node) Unknown() expr.Expr { return n.state("unknown") }
func (n *Node) Queued() expr.Expr { return n.state("queued") }
func (n *Node) Submitted() expr.Expr { return n.state("submitted") }
func (n *Node) Active() expr.Expr { return n.state("active") }

func (n *Node) String() string {
	return fmt.Sprintf("%s(%s)", n.kind, n.FullName())
}

func (n *Node) defsKind() defs.Kind {
	switch n.kind {
	case KindSuite:
		return defs.KindSuite
	case KindTask:
		return defs.KindTask
	}
	return defs.KindFamily
}
