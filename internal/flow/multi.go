package flow

// Tasks creates one task per name in the current scope, sharing opts.
func (b *Builder) Tasks(names []string, opts ...Option) []*Node {
	out := make([]*Node, len(names))
	for i, name := range names {
		out[i] = b.Task(name, opts...)
	}
	return out
}

// Families creates one family per name in the current scope.
func (b *Builder) Families(names []string, opts ...Option) []*Node {
	out := make([]*Node, len(names))
	for i, name := range names {
		out[i] = b.Family(name, opts...)
	}
	return out
}

// Events adds one event per name to the current node.
func (b *Builder) Events(names ...string) []*Event {
	out := make([]*Event, len(names))
	for i, name := range names {
		out[i] = NewEvent(name)
		b.Add(out[i])
	}
	return out
}

// Limits adds one limit per name to the current node, all with the same
// maximum.
func (b *Builder) Limits(max int, names ...string) []*Limit {
	out := make([]*Limit, len(names))
	for i, name := range names {
		out[i] = NewLimit(name, max)
		b.Add(out[i])
	}
	return out
}

// InLimits adds an inlimit on each target, a *Limit or a limit name.
func (b *Builder) InLimits(targets ...any) []*InLimit {
	var out []*InLimit
	for _, t := range targets {
		il, err := NewInLimit(t)
		b.Attach(il, err)
		if err == nil {
			out = append(out, il)
		}
	}
	return out
}
