package dag

import (
	"fmt"
	"strings"

	"github.com/vk/ecflowgen/internal/defs"
)

// TriggerGraph builds the dependency graph of a definition. An edge a -> b
// means b waits for a. Attribute references and references leaving the
// definition (externs) add no edges.
func TriggerGraph(d *defs.Defs) (*Graph, error) {
	g := New()
	for _, s := range d.Suites {
		s.Walk(func(n *defs.Node) { g.AddNode(n.FullName()) })
	}

	var errs []error
	for _, s := range d.Suites {
		s.Walk(func(n *defs.Node) {
			to := n.FullName()
			for _, c := range n.Children {
				if err := g.AddEdge(c.FullName(), to); err != nil {
					errs = append(errs, err)
				}
			}
			for _, p := range n.Trigger {
				for _, ref := range p.Refs {
					if strings.Contains(ref, ":") || ref == to {
						continue
					}
					if _, ok := d.Find(ref); !ok {
						continue
					}
					if err := g.AddEdge(ref, to); err != nil {
						errs = append(errs, err)
					}
				}
			}
		})
	}
	if len(errs) > 0 {
		return nil, fmt.Errorf("building trigger graph: %w", errs[0])
	}
	return g, nil
}

// CheckTriggers reports trigger dependencies that can never be satisfied,
// such as a task waiting for its own family to complete.
func CheckTriggers(d *defs.Defs) error {
	g, err := TriggerGraph(d)
	if err != nil {
		return err
	}
	if err := g.DetectCycles(); err != nil {
		return fmt.Errorf("trigger deadlock: %w", err)
	}
	return nil
}
