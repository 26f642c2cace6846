package builder

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/vk/ecflowgen/internal/config"
	"github.com/vk/ecflowgen/internal/ctxlog"
	"github.com/vk/ecflowgen/internal/flow"
	"github.com/vk/ecflowgen/internal/host"
)

// Result holds the trees built from a model.
type Result struct {
	Suites []*flow.Node
	// Externs maps each declared extern address to its placeholder.
	Externs map[string]flow.Entry
}

// Suite returns the built suite called name.
func (r *Result) Suite(name string) (*flow.Node, bool) {
	for _, s := range r.Suites {
		if s.Name() == name {
			return s, true
		}
	}
	return nil, false
}

type linkJob struct {
	cfg  *config.Node
	node *flow.Node
}

type builder struct {
	fb    *flow.Builder
	hosts map[string]host.Host
	scope *resolver
	links []linkJob
	errs  []error
}

// Build constructs every suite of model.
func Build(ctx context.Context, model *config.Model) (*Result, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Build: Starting suite construction.", "suites", len(model.Suites))

	b := &builder{
		fb:    flow.NewBuilder(),
		hosts: map[string]host.Host{},
		scope: &resolver{externs: map[string]flow.Entry{}},
	}

	// First pass: hosts and externs.
	names := make([]string, 0, len(model.Hosts))
	for name := range model.Hosts {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		h, err := newHost(model.Hosts[name])
		if err != nil {
			b.errs = append(b.errs, err)
			continue
		}
		b.hosts[name] = h
	}
	for _, ext := range model.Externs {
		e, err := newExtern(ext)
		if err != nil {
			b.errs = append(b.errs, fmt.Errorf("%s: %w", ext.Source, err))
			continue
		}
		b.scope.externs[ext.Address] = e
	}
	logger.Debug("Build: Hosts and externs ready.", "hosts", len(b.hosts), "externs", len(b.scope.externs))

	// Second pass: nodes and their static attributes.
	seen := map[string]string{}
	res := &Result{Externs: b.scope.externs}
	for _, s := range model.Suites {
		if prev, ok := seen[s.Name]; ok {
			b.errs = append(b.errs, fmt.Errorf("%s: suite %s already defined in %s", s.Source, s.Name, prev))
			continue
		}
		seen[s.Name] = s.Source
		if n := b.node(s); n != nil {
			res.Suites = append(res.Suites, n)
		}
	}
	logger.Debug("Build: Node creation complete.", "links", len(b.links))

	// Third pass: references.
	for _, job := range b.links {
		b.link(job)
	}
	logger.Debug("Build: Linking complete.")

	if err := errors.Join(append([]error{b.fb.Err()}, b.errs...)...); err != nil {
		return res, err
	}
	logger.Debug("Build: Suite construction successful.", "suites", len(res.Suites))
	return res, nil
}

func newExtern(e *config.Extern) (flow.Entry, error) {
	switch e.Kind {
	case config.ExternNode, "":
		return flow.ExternNode(e.Address)
	case config.ExternTask:
		return flow.ExternTask(e.Address)
	case config.ExternYMD:
		return flow.ExternYMD(e.Address)
	case config.ExternEvent:
		return flow.ExternEvent(e.Address)
	case config.ExternMeter:
		return flow.ExternMeter(e.Address)
	case config.ExternVariable:
		return flow.ExternVariable(e.Address)
	}
	return nil, fmt.Errorf("unknown extern kind %q for %s", e.Kind, e.Address)
}
