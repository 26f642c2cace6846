package expr

import (
	"errors"
	"fmt"
)

// Make normalizes a raw operand into an expression.
func Make(v any) Expr {
	switch x := v.(type) {
	case nil:
		return invalidf("nil operand")
	case Expr:
		return x
	case Expressible:
		return x.AsExpr()
	case string:
		return Status(x)
	case bool, int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return Const(x)
	}
	return invalidf("cannot use %T in an expression", v)
}

func binop(op string, prec int, l, r any) Expr {
	return &BinOp{op: op, left: Make(l), right: Make(r), prec: prec}
}

func And(l, r any) Expr { return binop("and", precLogic, l, r) }
func Or(l, r any) Expr { return binop("or", precLogic, l, r) }
func Eq(l, r any) Expr { return binop("eq", precCompare, l, r) }
func Ne(l, r any) Expr { return binop("ne", precCompare, l, r) }
func Lt(l, r any) Expr { return binop("lt", precCompare, l, r) }
func Le(l, r any) Expr { return binop("le", precCompare, l, r) }
func Gt(l, r any) Expr { return binop("gt", precCompare, l, r) }
func Ge(l, r any) Expr { return binop("ge", precCompare, l, r) }
func Add(l, r any) Expr { return binop("+", precAdditive, l, r) }
func Sub(l, r any) Expr { return binop("-", precAdditive, l, r) }
func Mod(l, r any) Expr { return binop("%", precMultiplier, l, r) }
func Div(l, r any) Expr { return binop("/", precMultiplier, l, r) }

// Not negates v.
func Not(v any) Expr {
	return &NotOp{arg: Make(v)}
}

// AllComplete ANDs every item together; nodes contribute their complete
// state through Expressible.
func AllComplete(items ...any) (Expr, error) {
	if len(items) == 0 {
		return nil, errors.New("cannot wait on an empty list of nodes")
	}
	e := Make(items[0])
	for _, it := range items[1:] {
		e = And(e, it)
	}
	return e, Validate(e)
}

// Validate reports the first construction error inside e.
func Validate(e Expr) error {
	var err error
	Walk(e, func(x Expr) bool {
		if inv, ok := x.(*invalid); ok {
			err = inv.err
			return false
		}
		return true
	})
	return err
}

// Walk visits e depth first, left to right. Deferred expressions are not
// resolved, but frozen ones are entered. Returning false from fn stops the
// walk.
func Walk(e Expr, fn func(Expr) bool) bool {
	if !fn(e) {
		return false
	}
	switch x := e.(type) {
	case *BinOp:
		return Walk(x.left, fn) && Walk(x.right, fn)
	case *NotOp:
		return Walk(x.arg, fn)
	case *Func:
		return Walk(x.arg, fn)
	case *Deferred:
		if x.resolved != nil {
			return Walk(x.resolved, fn)
		}
	}
	return true
}

// Refs lists the targets referenced by e, in order of appearance.
func Refs(e Expr) []Locatable {
	var out []Locatable
	Walk(e, func(x Expr) bool {
		if r, ok := x.(*Ref); ok {
			out = append(out, r.target)
		}
		return true
	})
	return out
}

// Resolve replaces a top-level deferred expression with its result.
func Resolve(e Expr) (Expr, error) {
	d, ok := e.(*Deferred)
	if !ok {
		return e, nil
	}
	r, err := d.Resolve()
	if err != nil {
		return nil, fmt.Errorf("resolving deferred expression: %w", err)
	}
	return r, nil
}

// ResolveAll invokes every deferred callback inside e exactly once. The
// returned tree keeps the deferred nodes, frozen on their results, so it
// renders exactly like e while Walk and Refs can see inside them.
func ResolveAll(e Expr) (Expr, error) {
	switch x := e.(type) {
	case *BinOp:
		l, err := ResolveAll(x.left)
		if err != nil {
			return nil, err
		}
		r, err := ResolveAll(x.right)
		if err != nil {
			return nil, err
		}
		if l == x.left && r == x.right {
			return x, nil
		}
		return &BinOp{op: x.op, left: l, right: r, prec: x.prec}, nil
	case *NotOp:
		arg, err := ResolveAll(x.arg)
		if err != nil {
			return nil, err
		}
		if arg == x.arg {
			return x, nil
		}
		return &NotOp{arg: arg}, nil
	case *Func:
		arg, err := ResolveAll(x.arg)
		if err != nil {
			return nil, err
		}
		if arg == x.arg {
			return x, nil
		}
		return &Func{name: x.name, arg: arg}, nil
	case *Deferred:
		if x.resolved != nil {
			return x, nil
		}
		r, err := x.Resolve()
		if err != nil {
			return nil, fmt.Errorf("resolving deferred expression: %w", err)
		}
		r, err = ResolveAll(r)
		if err != nil {
			return nil, err
		}
		return &Deferred{fn: x.fn, resolved: r}, nil
	}
	return e, nil
}
