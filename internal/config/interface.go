package config

import (
	"context"

	"github.com/vk/ecflowgen/internal/flow"
)

// Loader is the interface for a format-specific suite loader.
type Loader interface {
	// Load reads the suite files found at the given paths and translates
	// them into the format-agnostic model.
	Load(ctx context.Context, paths ...string) (*Model, error)
}

// Expression is a condition whose references can only be resolved once the
// node tree exists, such as a trigger.
type Expression interface {
	// Resolve builds the expression for a condition owned by owner. The
	// result is anything flow accepts as a trigger value.
	Resolve(owner *flow.Node, scope Scope) (any, error)
	// String is the source text, used in error messages.
	String() string
}

// Scope resolves references made by expressions.
type Scope interface {
	// Reference resolves a node path or a "path:attribute" address seen
	// from owner: relative to the owner's parent first, then to the suite,
	// then among the externs.
	Reference(owner *flow.Node, address string) (flow.Entry, error)
}
