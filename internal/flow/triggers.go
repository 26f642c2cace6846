package flow

import (
	"errors"
	"fmt"

	"github.com/vk/ecflowgen/internal/defs"
	"github.com/vk/ecflowgen/internal/expr"
)

// Trigger holds a node until its expression is true.
type Trigger struct {
	attrBase
	value expr.Expr
}

// NewTrigger wraps v, normalized as an expression operand.
func NewTrigger(v any) *Trigger {
	return &Trigger{attrBase: attrBase{name: "trigger", fixedKey: "_trigger"}, value: expr.Make(v)}
}

func (t *Trigger) Expr() expr.Expr { return t.value }

func (t *Trigger) build(g *generation, d *defs.Node) error {
	text, refs, err := g.expression("Trigger", t.owner, t.value)
	if err != nil {
		return err
	}
	addTriggerPart(d, text, refs)
	return nil
}

// The first trigger-kind attribute of a node is its trigger; the others
// are ANDed to it.
func addTriggerPart(d *defs.Node, text string, refs []string) {
	if len(d.Trigger) == 0 {
		d.AddTrigger(text, refs...)
		return
	}
	d.AddPartTrigger(text, true, refs...)
}

// Complete marks a node complete without running it once its expression
// is true.
type Complete struct {
	attrBase
	value expr.Expr
}

func NewComplete(v any) *Complete {
	return &Complete{attrBase: attrBase{name: "complete", fixedKey: "_complete"}, value: expr.Make(v)}
}

func (c *Complete) Expr() expr.Expr { return c.value }

func (c *Complete) build(g *generation, d *defs.Node) error {
	text, refs, err := g.expression("Complete", c.owner, c.value)
	if err != nil {
		return err
	}
	if len(d.Complete) == 0 {
		d.AddComplete(text, refs...)
	} else {
		d.AddPartComplete(text, true, refs...)
	}
	return nil
}

// Follow keeps a copy of a repeat in step with the original: the follower
// may not run ahead of it until the original's owner completes.
type Follow struct {
	attrBase
	repeat followable
	copy   Exportable
}

func (f *Follow) Repeat() Exportable { return f.repeat }

func (f *Follow) build(g *generation, d *defs.Node) error {
	owner := f.repeat.Owner()
	if owner == nil {
		return generateErrorf("Cannot follow detached repeat %s", f.repeat.Name())
	}
	e := expr.Or(owner.Complete(), expr.Lt(f.copy, f.repeat))
	text, refs, err := g.expression("Trigger", f.owner, e)
	if err != nil {
		return err
	}
	addTriggerPart(d, text, refs)
	return nil
}

// Follow copies repeat r onto n under the same name and holds n back until
// its copy catches up with r. Date, datetime and enumerated repeats can be
// followed.
func (n *Node) Follow(r Exportable) (*Follow, error) {
	src, ok := r.(followable)
	if !ok {
		return nil, fmt.Errorf("cannot follow %T %s", r, r.FullName())
	}
	cp, err := src.follow(r.Name())
	if err != nil {
		return nil, err
	}
	if err := n.replace(cp); err != nil {
		return nil, err
	}
	f := &Follow{
		attrBase: attrBase{name: "follow", fixedKey: "_follow_" + r.FullName()},
		repeat:   src,
		copy:     cp.(Exportable),
	}
	if err := n.Add(f); err != nil {
		return nil, err
	}
	return f, nil
}

// put stores a under its key, dropping the previous holder.
func (n *Node) put(a Attribute) {
	if err := n.replace(a); err != nil {
		invariant(err.Error())
	}
}

// Trigger returns the trigger expression, if any.
func (n *Node) Trigger() (expr.Expr, bool) {
	if t, ok := n.entries["_trigger"].(*Trigger); ok {
		return t.value, true
	}
	return nil, false
}

// CompleteExpr returns the complete expression, if any.
func (n *Node) CompleteExpr() (expr.Expr, bool) {
	if c, ok := n.entries["_complete"].(*Complete); ok {
		return c.value, true
	}
	return nil, false
}

func (n *Node) SetTrigger(v any) { n.put(NewTrigger(v)) }

// AndTrigger ANDs v into the trigger, starting one when there is none.
func (n *Node) AndTrigger(v any) {
	if cur, ok := n.Trigger(); ok {
		v = expr.And(cur, v)
	}
	n.put(NewTrigger(v))
}

// OrTrigger ORs v into the trigger, starting one when there is none.
func (n *Node) OrTrigger(v any) {
	if cur, ok := n.Trigger(); ok {
		v = expr.Or(cur, v)
	}
	n.put(NewTrigger(v))
}

func (n *Node) SetComplete(v any) { n.put(NewComplete(v)) }

func (n *Node) AndComplete(v any) {
	if cur, ok := n.CompleteExpr(); ok {
		v = expr.And(cur, v)
	}
	n.put(NewComplete(v))
}

func (n *Node) OrComplete(v any) {
	if cur, ok := n.CompleteExpr(); ok {
		v = expr.Or(cur, v)
	}
	n.put(NewComplete(v))
}

// Then makes next wait for n to complete and returns next, so that calls
// chain: a.Then(b).Then(c).
func (n *Node) Then(next *Node) *Node {
	next.AndTrigger(n.Complete())
	return next
}

// After makes n wait for prev to complete and returns prev.
func (n *Node) After(prev *Node) *Node {
	n.AndTrigger(prev.Complete())
	return prev
}

// Sequence chains the nodes so each runs after the one before it.
func Sequence(nodes ...*Node) error {
	if len(nodes) == 0 {
		return errors.New("cannot sequence an empty list of nodes")
	}
	for i := 1; i < len(nodes); i++ {
		nodes[i-1].Then(nodes[i])
	}
	return nil
}
