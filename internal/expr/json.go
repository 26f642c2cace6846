package expr

import (
	"fmt"
	"sort"
)

var jsonBinary = map[string]func(l, r any) Expr{
	"or": Or, "|": Or,
	"and": And, "&": And,
	"eq": Eq, "==": Eq,
	"ne": Ne, "!=": Ne,
	"lt": Lt, "<": Lt,
	"le": Le, "<=": Le,
	"gt": Gt, ">": Gt,
	"ge": Ge, ">=": Ge,
	"mod": Mod, "%": Mod,
	"div": Div, "/": Div,
}

// States are the node states the engine understands.
var States = []string{"complete", "unknown", "aborted", "submitted", "suspended", "active", "queued"}

// IsState reports whether s names a node state.
func IsState(s string) bool {
	for _, st := range States {
		if st == s {
			return true
		}
	}
	return false
}

// FromJSON builds an expression from its decoded JSON/YAML form: a mapping
// with exactly one operator key. Binary operators take a two element list,
// "not"/"~" takes a single operand and a state name takes the node path:
//
//	{"and": [{"complete": "/s/t1"}, {"aborted": "/s/t2"}]}
//
// Scalar leaves become status tokens and constants, as with Make.
func FromJSON(v any) (Expr, error) {
	switch x := v.(type) {
	case map[string]any:
		return fromJSONMap(x)
	case string, bool, int, int64, float64:
		if f, ok := x.(float64); ok {
			if f != float64(int64(f)) {
				return nil, fmt.Errorf("%w: non-integer constant %v", ErrInvalidOperand, f)
			}
			return Const(int64(f)), nil
		}
		return Make(x), nil
	}
	return nil, fmt.Errorf("%w: cannot decode %T as an expression", ErrInvalidOperand, v)
}

func fromJSONMap(m map[string]any) (Expr, error) {
	if len(m) != 1 {
		keys := make([]string, 0, len(m))
		for k := range m {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		return nil, fmt.Errorf("expression mapping must have exactly one operator, got %v", keys)
	}

	for op, args := range m {
		if fn, ok := jsonBinary[op]; ok {
			list, ok := args.([]any)
			if !ok || len(list) != 2 {
				return nil, fmt.Errorf("operator %q takes two operands", op)
			}
			l, err := FromJSON(list[0])
			if err != nil {
				return nil, err
			}
			r, err := FromJSON(list[1])
			if err != nil {
				return nil, err
			}
			return fn(l, r), nil
		}

		switch {
		case op == "not" || op == "~":
			a, err := FromJSON(args)
			if err != nil {
				return nil, err
			}
			return Not(a), nil
		case IsState(op):
			path, ok := args.(string)
			if !ok {
				return nil, fmt.Errorf("state %q expects a node path, got %T", op, args)
			}
			return Eq(Status(path), Status(op)), nil
		}
		return nil, fmt.Errorf("unknown expression operator %q", op)
	}
	panic("unreachable")
}
