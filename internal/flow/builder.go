package flow

import (
	"errors"
	"fmt"

	"github.com/vk/ecflowgen/internal/host"
)

// Builder creates nodes inside nested scopes: every node created while a
// scope is open is attached to the node owning it.
//
// Building never stops at the first failure. Constructors always return
// the node, and errors are collected for Err.
type Builder struct {
	stack  []*Node
	errs   []error
	limits map[host.Host]*Limit
}

// NewBuilder creates a builder with no open scope.
func NewBuilder() *Builder {
	return &Builder{limits: map[host.Host]*Limit{}}
}

// Err returns every error recorded so far, joined.
func (b *Builder) Err() error { return errors.Join(b.errs...) }

func (b *Builder) record(err error) {
	if err != nil {
		b.errs = append(b.errs, err)
	}
}

// Current returns the node owning the innermost scope, or nil when no
// scope is open or the innermost one is unscoped.
func (b *Builder) Current() *Node {
	if len(b.stack) == 0 {
		return nil
	}
	return b.stack[len(b.stack)-1]
}

// Enter opens a scope on n. The returned function closes it and panics if
// another scope is still open above it.
func (b *Builder) Enter(n *Node) func() {
	b.stack = append(b.stack, n)
	depth := len(b.stack)
	return func() {
		if len(b.stack) != depth || b.stack[depth-1] != n {
			invariant(fmt.Sprintf("scope of %v closed out of order", n))
		}
		b.stack = b.stack[:depth-1]
	}
}

// Within runs fn with a scope open on n.
func (b *Builder) Within(n *Node, fn func()) {
	defer b.Enter(n)()
	fn()
}

// Unscoped runs fn in a scope that attaches nothing: nodes created inside
// are detached.
func (b *Builder) Unscoped(fn func()) {
	defer b.Enter(nil)()
	fn()
}

func (b *Builder) create(kind Kind, name string, parent *Node, opts []Option) *Node {
	n, err := create(kind, name, parent, b.hostLimit, opts)
	b.record(err)
	return n
}

// Suite creates a suite. Suites are roots and ignore the open scope.
func (b *Builder) Suite(name string, opts ...Option) *Node {
	return b.create(KindSuite, name, nil, opts)
}

// Family creates a family in the current scope.
func (b *Builder) Family(name string, opts ...Option) *Node {
	return b.create(KindFamily, name, b.Current(), opts)
}

// AnchorFamily creates an anchor family in the current scope.
func (b *Builder) AnchorFamily(name string, opts ...Option) *Node {
	return b.create(KindAnchorFamily, name, b.Current(), opts)
}

// Task creates a task in the current scope.
func (b *Builder) Task(name string, opts ...Option) *Node {
	return b.create(KindTask, name, b.Current(), opts)
}

// Add attaches e to the current node.
func (b *Builder) Add(e Entry) {
	cur := b.Current()
	if cur == nil {
		b.record(fmt.Errorf("cannot add %s outside a node scope", e.Name()))
		return
	}
	b.record(cur.Add(e))
}

// Attach records err, or attaches e when err is nil. It takes the results
// of the attribute constructors directly:
//
//	b.Attach(flow.NewRepeatDate("YMD", 20200101, 20201231))
func (b *Builder) Attach(e Entry, err error) {
	if err != nil {
		b.record(err)
		return
	}
	b.Add(e)
}

// Variable sets a variable or repeat on the current node.
func (b *Builder) Variable(name string, value any) {
	cur := b.Current()
	if cur == nil {
		b.record(fmt.Errorf("cannot set %s outside a node scope", name))
		return
	}
	b.record(cur.SetVariable(name, value))
}

// BuildHostLimit creates the limit counting the jobs of h on the current
// node. Tasks created afterwards on h join it, unless they opt out with
// WithoutAutolimit. A limit of the same name already on the node is
// reused.
func (b *Builder) BuildHostLimit(h host.Host) *Limit {
	c := h.Config()
	cur := b.Current()
	if c.Limit <= 0 || cur == nil {
		return nil
	}
	name := EcflowName(c.Name)
	l, ok := cur.entries[name].(*Limit)
	if !ok {
		l = NewLimit(name, c.Limit)
		if err := cur.Add(l); err != nil {
			b.record(err)
			return nil
		}
	}
	b.limits[h] = l
	return l
}

func (b *Builder) hostLimit(h host.Host) *Limit { return b.limits[h] }

// NewSuite creates a detached suite.
func NewSuite(name string, opts ...Option) (*Node, error) {
	return create(KindSuite, name, nil, nil, opts)
}

// NewFamily creates a detached family.
func NewFamily(name string, opts ...Option) (*Node, error) {
	return create(KindFamily, name, nil, nil, opts)
}

// NewAnchorFamily creates a detached anchor family.
func NewAnchorFamily(name string, opts ...Option) (*Node, error) {
	return create(KindAnchorFamily, name, nil, nil, opts)
}

// NewTask creates a detached task.
func NewTask(name string, opts ...Option) (*Node, error) {
	return create(KindTask, name, nil, nil, opts)
}
