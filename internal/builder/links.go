package builder

import (
	"fmt"
	"strings"

	"github.com/vk/ecflowgen/internal/config"
	"github.com/vk/ecflowgen/internal/flow"
)

// link resolves the references of one node once every tree exists.
func (b *builder) link(job linkJob) {
	c, n := job.cfg, job.node
	fail := func(what string, err error) {
		b.errs = append(b.errs, fmt.Errorf("%s: %s of %s: %w", c.Source, what, n.FullName(), err))
	}

	for _, t := range c.Triggers {
		v, err := t.Resolve(n, b.scope)
		if err != nil {
			fail(fmt.Sprintf("trigger %q", t), err)
			continue
		}
		n.AndTrigger(v)
	}
	for _, t := range c.Completes {
		v, err := t.Resolve(n, b.scope)
		if err != nil {
			fail(fmt.Sprintf("complete %q", t), err)
			continue
		}
		n.AndComplete(v)
	}

	for _, addr := range c.Follow {
		e, err := b.scope.Reference(n, addr)
		if err != nil {
			fail("follow", err)
			continue
		}
		r, ok := e.(flow.Exportable)
		if !ok {
			fail("follow", fmt.Errorf("%s is not a repeat", e.FullName()))
			continue
		}
		if _, err := n.Follow(r); err != nil {
			fail("follow", err)
		}
	}

	for _, target := range c.InLimits {
		il, err := b.inLimit(n, target)
		if err != nil {
			fail("inlimit", err)
			continue
		}
		if err := n.Add(il); err != nil {
			fail("inlimit", err)
		}
	}
}

// inLimit builds an inlimit on target: a "path:limit" address resolved
// like any reference, or a bare limit name left to the engine.
func (b *builder) inLimit(n *flow.Node, target string) (*flow.InLimit, error) {
	if !strings.Contains(target, ":") {
		return flow.NewInLimit(target)
	}
	e, err := b.scope.Reference(n, target)
	if err != nil {
		return nil, err
	}
	l, ok := e.(*flow.Limit)
	if !ok {
		return nil, fmt.Errorf("%s is not a limit", e.FullName())
	}
	return flow.NewInLimit(l)
}

var _ config.Scope = (*resolver)(nil)
