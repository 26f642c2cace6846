package defs

import (
	"errors"
	"fmt"
	"strings"
)

// Check verifies that every trigger, complete and inlimit reference
// resolves, either inside the document or through an extern declaration.
func (d *Defs) Check() error {
	var errs []error
	for _, s := range d.Suites {
		s.Walk(func(n *Node) {
			exprs := []struct {
				kw string
				e  Expression
			}{{"complete", n.Complete}, {"trigger", n.Trigger}}
			for _, x := range exprs {
				for _, p := range x.e {
					for _, ref := range p.Refs {
						if err := d.checkRef(ref); err != nil {
							errs = append(errs, fmt.Errorf("%s of %s (%s): %w", x.kw, n.FullName(), p.Expr, err))
						}
					}
				}
			}
			for _, l := range n.InLimits {
				if err := d.checkInLimit(n, l); err != nil {
					errs = append(errs, fmt.Errorf("inlimit of %s: %w", n.FullName(), err))
				}
			}
		})
	}
	return errors.Join(errs...)
}

func (d *Defs) isExtern(ref string) bool {
	nodePart, _, _ := strings.Cut(ref, ":")
	for _, e := range d.Externs {
		if e == ref || e == nodePart {
			return true
		}
	}
	return false
}

func (d *Defs) checkRef(ref string) error {
	if d.isExtern(ref) {
		return nil
	}
	nodePart, attr, hasAttr := strings.Cut(ref, ":")
	n, ok := d.Find(nodePart)
	if !ok {
		return fmt.Errorf("unknown node %s", nodePart)
	}
	if hasAttr && !n.HasAttribute(attr) && !isGenerated(attr) {
		return fmt.Errorf("node %s has no attribute %s", nodePart, attr)
	}
	return nil
}

func (d *Defs) checkInLimit(n *Node, l InLimit) error {
	if l.Path == "" {
		for cur := n; cur != nil; cur = cur.Parent {
			for _, lim := range cur.Limits {
				if lim.Name == l.Name {
					return nil
				}
			}
		}
		return fmt.Errorf("limit %s not found in ancestors", l.Name)
	}
	if d.isExtern(l.Path + ":" + l.Name) {
		return nil
	}
	target, ok := d.Find(l.Path)
	if !ok {
		return fmt.Errorf("unknown node %s", l.Path)
	}
	for _, lim := range target.Limits {
		if lim.Name == l.Name {
			return nil
		}
	}
	return fmt.Errorf("node %s has no limit %s", l.Path, l.Name)
}

// isGenerated reports whether the server generates the variable for
// every node, so references to it always resolve.
func isGenerated(name string) bool {
	return strings.HasPrefix(name, "ECF_") || name == "TASK" || name == "FAMILY" || name == "SUITE"
}
