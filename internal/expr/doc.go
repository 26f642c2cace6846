// Package expr implements the trigger expression algebra: an immutable tree
// of boolean, comparison and arithmetic operators over node references,
// status tokens and constants.
//
// Expressions are built with the free functions And, Or, Not, Eq, Ne, Lt, Le,
// Gt, Ge, Add, Sub, Mod and Div. Operands are normalized by Make, so callers
// may pass strings (status tokens), integers and booleans (constants), other
// expressions, or anything implementing Expressible.
//
// Simplify folds the short-circuit identities of "and" and "or". Render
// produces the engine's textual syntax, resolving each node reference to a
// path relative to a viewpoint.
package expr
