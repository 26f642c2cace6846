package flow

import (
	"context"
	"errors"
	"fmt"

	"github.com/vk/ecflowgen/internal/defs"
	"github.com/vk/ecflowgen/internal/expr"
)

// generation is the state of one pass over a tree.
type generation struct {
	// refs collects every node and attribute the expressions and inlimits
	// point at.
	refs []expr.Locatable
}

// expression resolves, checks and renders e as seen from owner. It
// returns the text and the absolute names of the references.
func (g *generation) expression(kind string, owner *Node, e expr.Expr) (string, []string, error) {
	if owner == nil {
		return "", nil, generateErrorf("%s expression is not attached to a node", kind)
	}
	r, err := expr.Resolve(e)
	if err == nil {
		r, err = expr.ResolveAll(r)
	}
	if err == nil {
		err = expr.Validate(r)
	}
	if err != nil {
		return "", nil, &GenerateError{Msg: fmt.Sprintf("Invalid %s expression for node %s", kind, owner.FullName()), Err: err}
	}

	s := r.Simplify()
	if c, ok := s.(expr.Constant); ok {
		return "", nil, generateErrorf("%s expression \"%s\" simplifies to constant \"%s\" for node %s",
			kind, r.String(), c.String(), owner.FullName())
	}
	text, err := s.Render(owner)
	if err != nil {
		return "", nil, &GenerateError{Msg: fmt.Sprintf("Cannot render %s expression for node %s", kind, owner.FullName()), Err: err}
	}

	refs := expr.Refs(s)
	g.refs = append(g.refs, refs...)
	names := make([]string, len(refs))
	for i, ref := range refs {
		names[i] = ref.FullName()
	}
	return text, names, nil
}

// Generate builds the definition of n and everything below it.
func (n *Node) Generate() (*defs.Node, error) {
	return n.generate(&generation{})
}

func (n *Node) generate(g *generation) (*defs.Node, error) {
	if n.extern {
		invariant("Generating extern nodes is not permitted")
	}
	d := &defs.Node{Kind: n.defsKind(), Name: n.name}

	var errs []error
	for _, e := range n.Entries() {
		switch x := e.(type) {
		case *Node:
			if err := n.checkChild(x); err != nil {
				errs = append(errs, err)
				continue
			}
			c, err := x.generate(g)
			if err != nil {
				errs = append(errs, err)
				continue
			}
			if err := d.AddChild(c); err != nil {
				errs = append(errs, err)
			}
		case Attribute:
			if err := x.build(g, d); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return d, errors.Join(errs...)
}

// Definition builds the document for the suite holding n. References
// leaving the suite become extern declarations; they must point at
// placeholders made by the Extern constructors.
func (n *Node) Definition() (*defs.Defs, error) {
	root := n.Root()
	if root.kind != KindSuite {
		return nil, generateErrorf("%s is not inside a suite", n.FullName())
	}

	g := &generation{}
	s, err := root.generate(g)
	if err != nil {
		return nil, err
	}

	d := defs.New()
	for _, ref := range g.refs {
		if owner := viewNode(ref); owner != nil && owner.Root() == root {
			continue
		}
		if !isKnownExtern(ref) {
			invariant(fmt.Sprintf("Attempting to add unknown extern reference %s", ref.FullName()))
		}
		d.AddExtern(ref.FullName())
	}
	if err := d.AddSuite(s); err != nil {
		return nil, err
	}
	return d, nil
}

// CheckDefinition builds the definition and verifies that every reference
// in it resolves.
func (n *Node) CheckDefinition() (*defs.Defs, error) {
	d, err := n.Definition()
	if err != nil {
		return nil, err
	}
	if err := d.Check(); err != nil {
		return nil, fmt.Errorf("ecflow definitions failed checks: %w", err)
	}
	return d, nil
}

// Replacer installs a definition on a server, replacing the node at path.
type Replacer interface {
	Replace(ctx context.Context, path string, d *defs.Defs) error
}

// ReplaceOnServer checks the definition of the suite holding n and hands
// it to r to replace the suite on the server.
func (n *Node) ReplaceOnServer(ctx context.Context, r Replacer) error {
	root := n.Root()
	if root.extern {
		invariant("Attempting to play extern nodes to the server is not permitted")
	}
	d, err := n.CheckDefinition()
	if err != nil {
		return err
	}
	return r.Replace(ctx, root.FullName(), d)
}
