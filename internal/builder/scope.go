package builder

import (
	"errors"
	"fmt"
	"strings"

	"github.com/vk/ecflowgen/internal/flow"
)

// resolver implements config.Scope over the built trees.
type resolver struct {
	externs map[string]flow.Entry
}

func (r *resolver) Reference(owner *flow.Node, address string) (flow.Entry, error) {
	if e, ok := r.externs[address]; ok {
		return e, nil
	}

	root := owner.Root()
	if strings.HasPrefix(address, "/") {
		suite := root.FullName()
		if address != suite && !strings.HasPrefix(address, suite+"/") && !strings.HasPrefix(address, suite+":") {
			return nil, fmt.Errorf("%w: %s is outside %s and not declared extern", flow.ErrNotFound, address, suite)
		}
		return root.Lookup(address)
	}

	var first error
	for _, base := range []*flow.Node{owner.Parent(), root} {
		if base == nil {
			continue
		}
		e, err := base.Lookup(address)
		if err == nil {
			return e, nil
		}
		if !errors.Is(err, flow.ErrNotFound) {
			return nil, err
		}
		if first == nil {
			first = err
		}
	}
	return nil, fmt.Errorf("cannot resolve %q from %s: %w", address, owner.FullName(), first)
}
