package hcl

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclsyntax"
	"github.com/zclconf/go-cty/cty"

	"github.com/vk/ecflowgen/internal/config"
	"github.com/vk/ecflowgen/internal/expr"
	"github.com/vk/ecflowgen/internal/flow"
)

// states may close a traversal, as in f.t2.aborted.
var states = map[string]bool{
	"complete":  true,
	"aborted":   true,
	"active":    true,
	"queued":    true,
	"submitted": true,
	"unknown":   true,
}

// Expression is a trigger or complete condition written as a native HCL
// expression. It implements config.Expression.
type Expression struct {
	src  hclsyntax.Expression
	text string
}

func newExpression(e hcl.Expression, src []byte) (*Expression, error) {
	syn, ok := e.(hclsyntax.Expression)
	if !ok {
		return nil, fmt.Errorf("%s: condition must be written in native syntax", e.Range())
	}
	return &Expression{src: syn, text: sourceText(src, e)}, nil
}

func (e *Expression) String() string { return e.text }

// Resolve implements config.Expression.
func (e *Expression) Resolve(owner *flow.Node, scope config.Scope) (any, error) {
	t := &translator{owner: owner, scope: scope}
	return t.condition(e.src)
}

type translator struct {
	owner *flow.Node
	scope config.Scope
}

var comparisons = map[*hclsyntax.Operation]func(l, r any) expr.Expr{
	hclsyntax.OpEqual:              expr.Eq,
	hclsyntax.OpNotEqual:           expr.Ne,
	hclsyntax.OpLessThan:           expr.Lt,
	hclsyntax.OpLessThanOrEqual:    expr.Le,
	hclsyntax.OpGreaterThan:        expr.Gt,
	hclsyntax.OpGreaterThanOrEqual: expr.Ge,
	hclsyntax.OpAdd:                expr.Add,
	hclsyntax.OpSubtract:           expr.Sub,
	hclsyntax.OpModulo:             expr.Mod,
	hclsyntax.OpDivide:             expr.Div,
}

// condition translates e where a truth value is expected: a bare node
// means that node is complete.
func (t *translator) condition(e hclsyntax.Expression) (any, error) {
	switch x := e.(type) {
	case *hclsyntax.BinaryOpExpr:
		switch x.Op {
		case hclsyntax.OpLogicalAnd, hclsyntax.OpLogicalOr:
			l, err := t.condition(x.LHS)
			if err != nil {
				return nil, err
			}
			r, err := t.condition(x.RHS)
			if err != nil {
				return nil, err
			}
			if x.Op == hclsyntax.OpLogicalAnd {
				return expr.And(l, r), nil
			}
			return expr.Or(l, r), nil
		}
		return t.operand(e)
	case *hclsyntax.UnaryOpExpr:
		if x.Op == hclsyntax.OpLogicalNot {
			v, err := t.condition(x.Val)
			if err != nil {
				return nil, err
			}
			return expr.Not(v), nil
		}
	case *hclsyntax.ParenthesesExpr:
		return t.condition(x.Expression)
	case *hclsyntax.ConditionalExpr:
		return nil, fmt.Errorf("%s: %w", x.Range(), expr.ErrBooleanCoercion)
	case *hclsyntax.ScopeTraversalExpr, *hclsyntax.FunctionCallExpr:
		v, err := t.operand(e)
		if err != nil {
			return nil, err
		}
		return complete(v), nil
	}
	return t.operand(e)
}

// complete turns a node reference back into the node, which stands for
// the node being complete.
func complete(v any) any {
	if r, ok := v.(*expr.Ref); ok {
		if n, ok := r.Target().(*flow.Node); ok {
			return n
		}
	}
	return v
}

// operand translates e where a value is expected: a bare node is a
// reference to it.
func (t *translator) operand(e hclsyntax.Expression) (any, error) {
	switch x := e.(type) {
	case *hclsyntax.BinaryOpExpr:
		build, ok := comparisons[x.Op]
		if !ok {
			return nil, fmt.Errorf("%s: unsupported operator in condition", x.Range())
		}
		l, err := t.operand(x.LHS)
		if err != nil {
			return nil, err
		}
		r, err := t.operand(x.RHS)
		if err != nil {
			return nil, err
		}
		return build(l, r), nil
	case *hclsyntax.ParenthesesExpr:
		return t.condition(x.Expression)
	case *hclsyntax.UnaryOpExpr:
		if x.Op == hclsyntax.OpLogicalNot {
			return t.condition(e)
		}
		v, err := t.literal(x)
		if err != nil {
			return nil, err
		}
		return v, nil
	case *hclsyntax.LiteralValueExpr, *hclsyntax.TemplateExpr:
		return t.literal(x)
	case *hclsyntax.ScopeTraversalExpr:
		return t.traversal(x)
	case *hclsyntax.FunctionCallExpr:
		return t.call(x)
	case *hclsyntax.ConditionalExpr:
		return nil, fmt.Errorf("%s: %w", x.Range(), expr.ErrBooleanCoercion)
	}
	return nil, fmt.Errorf("%s: unsupported expression in condition", e.Range())
}

// literal evaluates a constant: strings are states, numbers and bools are
// constants.
func (t *translator) literal(e hclsyntax.Expression) (any, error) {
	val, diags := e.Value(nil)
	if diags.HasErrors() {
		return nil, diags
	}
	switch val.Type() {
	case cty.String:
		return expr.Status(val.AsString()), nil
	case cty.Bool:
		return expr.Const(val.True()), nil
	case cty.Number:
		bf := val.AsBigFloat()
		i, acc := bf.Int64()
		if !bf.IsInt() || acc != big.Exact {
			return nil, fmt.Errorf("%s: only integers can be used in conditions", e.Range())
		}
		return expr.Const(i), nil
	}
	return nil, fmt.Errorf("%s: unsupported %s value in condition", e.Range(), val.Type().FriendlyName())
}

// traversal resolves a dotted path such as t1, f.t2, f.t2.aborted or
// f.t2.YMD. A trailing state compares the node with it; a trailing name
// that is not a child node is looked up as an attribute.
func (t *translator) traversal(x *hclsyntax.ScopeTraversalExpr) (any, error) {
	names := make([]string, 0, len(x.Traversal))
	for _, step := range x.Traversal {
		switch s := step.(type) {
		case hcl.TraverseRoot:
			names = append(names, s.Name)
		case hcl.TraverseAttr:
			names = append(names, s.Name)
		default:
			return nil, fmt.Errorf("%s: only dotted names can reference nodes", x.Range())
		}
	}

	if last := names[len(names)-1]; len(names) > 1 && states[last] {
		n, err := t.reference(x.Range(), strings.Join(names[:len(names)-1], "/"))
		if err != nil {
			return nil, err
		}
		return expr.Eq(expr.RefTo(n), expr.Status(last)), nil
	}

	path := strings.Join(names, "/")
	e, err := t.scope.Reference(t.owner, path)
	if err == nil {
		return t.ref(e), nil
	}
	if len(names) > 1 {
		addr := strings.Join(names[:len(names)-1], "/") + ":" + names[len(names)-1]
		if a, aerr := t.scope.Reference(t.owner, addr); aerr == nil {
			return t.ref(a), nil
		}
	}
	return nil, fmt.Errorf("%s: %w", x.Range(), err)
}

func (t *translator) reference(rng hcl.Range, address string) (expr.Locatable, error) {
	e, err := t.scope.Reference(t.owner, address)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", rng, err)
	}
	l, ok := e.(expr.Locatable)
	if !ok {
		return nil, fmt.Errorf("%s: %s cannot be referenced", rng, address)
	}
	return l, nil
}

// ref turns a resolved entry into an operand: nodes become references,
// attributes go through their own expression form.
func (t *translator) ref(e flow.Entry) any {
	if n, ok := e.(*flow.Node); ok {
		return expr.RefTo(n)
	}
	return e
}

// call handles the functions available in conditions:
//
//	node("../f/t")          a node or "path:attribute" given as a string
//	julian(f.YMD)           the julian day of a date
//	all_complete(t1, f.t2)  every argument is complete
func (t *translator) call(x *hclsyntax.FunctionCallExpr) (any, error) {
	switch x.Name {
	case "node":
		if len(x.Args) != 1 {
			return nil, fmt.Errorf("%s: node() takes one path", x.Range())
		}
		val, diags := x.Args[0].Value(nil)
		if diags.HasErrors() {
			return nil, diags
		}
		if val.Type() != cty.String {
			return nil, fmt.Errorf("%s: node() takes a string", x.Range())
		}
		e, err := t.scope.Reference(t.owner, val.AsString())
		if err != nil {
			return nil, fmt.Errorf("%s: %w", x.Range(), err)
		}
		return t.ref(e), nil
	case "julian":
		if len(x.Args) != 1 {
			return nil, fmt.Errorf("%s: julian() takes one argument", x.Range())
		}
		v, err := t.operand(x.Args[0])
		if err != nil {
			return nil, err
		}
		return expr.Call("cal::date_to_julian", v), nil
	case "all_complete":
		items := make([]any, 0, len(x.Args))
		for _, a := range x.Args {
			v, err := t.operand(a)
			if err != nil {
				return nil, err
			}
			items = append(items, complete(v))
		}
		all, err := expr.AllComplete(items...)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", x.Range(), err)
		}
		return all, nil
	}
	return nil, fmt.Errorf("%s: unknown function %q in condition", x.Range(), x.Name)
}
