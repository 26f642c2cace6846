package expr

import (
	"errors"
	"fmt"
	"strconv"
)

// ErrBooleanCoercion is reported whenever an expression is asked for a
// native truth value.
var ErrBooleanCoercion = errors.New("You cannot use 'and', 'or' and 'not' in trigger expressions. Use '&', '|' and '~' instead")

// ErrInvalidOperand is reported when a value cannot be turned into an
// expression operand.
var ErrInvalidOperand = errors.New("invalid expression operand")

// Operator precedences, used only to decide on parenthesization.
const (
	precLogic      = 0
	precCompare    = 1
	precAdditive   = 2
	precMultiplier = 3
	precAtom       = 99
	precDeferred   = -1
)

// Locatable is anything an expression can reference: a node or an attribute
// that knows its absolute name and its path as seen from a viewpoint.
type Locatable interface {
	FullName() string
	RelativePath(viewpoint Locatable) (string, error)
}

// Expressible values can stand in for an expression operand.
type Expressible interface {
	AsExpr() Expr
}

// Expr is a node of the expression tree.
type Expr interface {
	// Simplify returns a new tree with the and/or identities folded.
	Simplify() Expr
	// Render produces the engine syntax, with references relative to viewpoint.
	Render(viewpoint Locatable) (string, error)
	// String is the debug form, with references shown by full name.
	String() string

	precedence() int
}

// Truth always fails: expressions have no native boolean value.
func Truth(Expr) (bool, error) {
	return false, ErrBooleanCoercion
}

// BinOp is a binary operation.
type BinOp struct {
	op    string
	left  Expr
	right Expr
	prec  int
}

func (b *BinOp) Op() string { return b.op }
func (b *BinOp) Left() Expr { return b.left }
func (b *BinOp) Right() Expr { return b.right }
func (b *BinOp) precedence() int { return b.prec }

func (b *BinOp) Render(viewpoint Locatable) (string, error) {
	l, err := renderOperand(b.left, b.prec, viewpoint)
	if err != nil {
		return "", err
	}
	r, err := renderOperand(b.right, b.prec, viewpoint)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s %s %s", l, b.op, r), nil
}

func renderOperand(e Expr, parent int, viewpoint Locatable) (string, error) {
	s, err := e.Render(viewpoint)
	if err != nil {
		return "", err
	}
	if needsParens(parent, e.precedence()) {
		return "(" + s + ")", nil
	}
	return s, nil
}

// needsParens decides whether an operand is wrapped. "and" and "or" wrap
// every operand that is not an atom; other operators wrap operands that
// bind no tighter than they do.
func needsParens(parent, child int) bool {
	if parent == precLogic {
		return child != precAtom
	}
	return parent >= child
}

func (b *BinOp) String() string {
	return fmt.Sprintf("(%s %s %s)", b.left, b.op, b.right)
}

// NotOp negates its argument. It renders like a function call and so binds
// as an atom.
type NotOp struct {
	arg Expr
}

func (n *NotOp) Arg() Expr { return n.arg }
func (n *NotOp) precedence() int { return precAtom }
func (n *NotOp) String() string { return fmt.Sprintf("not (%s)", n.arg) }

func (n *NotOp) Simplify() Expr {
	arg := n.arg.Simplify()
	if arg == n.arg {
		return n
	}
	return &NotOp{arg: arg}
}

func (n *NotOp) Render(viewpoint Locatable) (string, error) {
	s, err := n.arg.Render(viewpoint)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("not (%s)", s), nil
}

// Status is a bare token, usually a node state such as "complete".
type Status string

func (s Status) precedence() int { return precAtom }
func (s Status) Simplify() Expr { return s }
func (s Status) String() string { return string(s) }
func (s Status) Render(Locatable) (string, error) { return string(s), nil }

// Constant is a literal value known at build time: a bool or an int64.
type Constant struct {
	v any
}

// Const builds a constant from a bool or any integer kind.
func Const(v any) Expr {
	switch x := v.(type) {
	case bool:
		return Constant{v: x}
	case int:
		return Constant{v: int64(x)}
	case int8:
		return Constant{v: int64(x)}
	case int16:
		return Constant{v: int64(x)}
	case int32:
		return Constant{v: int64(x)}
	case int64:
		return Constant{v: x}
	case uint:
		return Constant{v: int64(x)}
	case uint8:
		return Constant{v: int64(x)}
	case uint16:
		return Constant{v: int64(x)}
	case uint32:
		return Constant{v: int64(x)}
	case uint64:
		return Constant{v: int64(x)}
	}
	return invalidf("cannot make a constant from %T", v)
}

// Value returns the underlying bool or int64.
func (c Constant) Value() any { return c.v }
func (c Constant) precedence() int { return precAtom }
func (c Constant) Simplify() Expr { return c }

func (c Constant) truthy() bool {
	switch x := c.v.(type) {
	case bool:
		return x
	case int64:
		return x != 0
	}
	return false
}

func (c Constant) Render(Locatable) (string, error) {
	return c.literal(), nil
}

func (c Constant) String() string {
	return c.literal()
}

func (c Constant) literal() string {
	switch x := c.v.(type) {
	case bool:
		if x {
			return "True"
		}
		return "False"
	case int64:
		return strconv.FormatInt(x, 10)
	}
	return fmt.Sprint(c.v)
}

// Ref is a reference to a node or attribute, rendered as a relative path.
type Ref struct {
	target Locatable
}

// RefTo builds a reference to target.
func RefTo(target Locatable) *Ref {
	return &Ref{target: target}
}

func (r *Ref) Target() Locatable { return r.target }
func (r *Ref) precedence() int { return precAtom }
func (r *Ref) Simplify() Expr { return r }
func (r *Ref) String() string { return r.target.FullName() }

func (r *Ref) Render(viewpoint Locatable) (string, error) {
	return r.target.RelativePath(viewpoint)
}

// Func is a single-argument engine function such as cal::date_to_julian.
type Func struct {
	name string
	arg  Expr
}

// Call builds a function call expression.
func Call(name string, arg any) Expr {
	return &Func{name: name, arg: Make(arg)}
}

func (f *Func) Name() string { return f.name }
func (f *Func) Arg() Expr { return f.arg }
func (f *Func) precedence() int { return precAtom }
func (f *Func) String() string { return fmt.Sprintf("%s(%s)", f.name, f.arg) }

func (f *Func) Simplify() Expr {
	arg := f.arg.Simplify()
	if arg == f.arg {
		return f
	}
	return &Func{name: f.name, arg: arg}
}

func (f *Func) Render(viewpoint Locatable) (string, error) {
	s, err := f.arg.Render(viewpoint)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s(%s)", f.name, s), nil
}

// Deferred is an expression produced by a callback at render time.
type Deferred struct {
	fn func() (any, error)
	// resolved is set on frozen copies made by ResolveAll.
	resolved Expr
}

// Defer wraps fn; its result goes through Make when the expression is
// resolved.
func Defer(fn func() (any, error)) *Deferred {
	return &Deferred{fn: fn}
}

// Resolve invokes the callback, or returns the frozen result.
func (d *Deferred) Resolve() (Expr, error) {
	if d.resolved != nil {
		return d.resolved, nil
	}
	v, err := d.fn()
	if err != nil {
		return nil, err
	}
	e := Make(v)
	if err := Validate(e); err != nil {
		return nil, err
	}
	return e, nil
}

func (d *Deferred) precedence() int { return precDeferred }
// Simplify folds a frozen result like any other subtree; an unresolved
// callback is left alone.
func (d *Deferred) Simplify() Expr {
	if d.resolved != nil {
		return d.resolved.Simplify()
	}
	return d
}

func (d *Deferred) String() string {
	if d.resolved != nil {
		return d.resolved.String()
	}
	return "<deferred>"
}

func (d *Deferred) Render(viewpoint Locatable) (string, error) {
	e, err := d.Resolve()
	if err != nil {
		return "", err
	}
	return e.Render(viewpoint)
}

// invalid carries a construction error until the expression is used.
type invalid struct {
	err error
}

func invalidf(format string, args ...any) Expr {
	return &invalid{err: fmt.Errorf("%w: "+format, append([]any{ErrInvalidOperand}, args...)...)}
}

// Invalid wraps err as an expression that fails when rendered or validated.
func Invalid(err error) Expr {
	return &invalid{err: err}
}

func (i *invalid) precedence() int { return precAtom }
func (i *invalid) Simplify() Expr { return i }
func (i *invalid) String() string { return "<invalid: " + i.err.Error() + ">" }

func (i *invalid) Render(Locatable) (string, error) {
	return "", i.err
}
