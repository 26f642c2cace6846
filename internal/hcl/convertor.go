package hcl

import (
	"context"
	"fmt"
	"math/big"

	"github.com/hashicorp/hcl/v2"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/convert"
	"github.com/zclconf/go-cty/cty/function"
	"github.com/zclconf/go-cty/cty/function/stdlib"
	"github.com/zclconf/go-cty/cty/gocty"

	"github.com/vk/ecflowgen/internal/ctxlog"
)

// evalContext is the context static attribute values are evaluated in. It
// offers a few string and collection functions and no variables.
func evalContext() *hcl.EvalContext {
	return &hcl.EvalContext{
		Functions: map[string]function.Function{
			"concat": stdlib.ConcatFunc,
			"format": stdlib.FormatFunc,
			"join":   stdlib.JoinFunc,
			"lower":  stdlib.LowerFunc,
			"range":  stdlib.RangeFunc,
			"upper":  stdlib.UpperFunc,
		},
	}
}

// Converter turns evaluated HCL values into the plain Go values of the
// config model.
type Converter struct{}

// NewConverter creates a new HCL converter.
func NewConverter() *Converter {
	return &Converter{}
}

// Evaluate evaluates expr and converts the result with ToGo. An attribute
// that was not written gives nil.
func (c *Converter) Evaluate(ctx context.Context, expr hcl.Expression, attrName string) (any, error) {
	if !isExprDefined(ctx, expr, attrName) {
		return nil, nil
	}
	val, diags := expr.Value(evalContext())
	if diags.HasErrors() {
		return nil, diags
	}
	return c.ToGo(ctx, val)
}

// ToGo converts a cty value into nil, a string, a bool, an int, a float64,
// a []any or a map[string]any.
func (c *Converter) ToGo(ctx context.Context, val cty.Value) (any, error) {
	logger := ctxlog.FromContext(ctx)

	if val.IsNull() {
		return nil, nil
	}
	if !val.IsWhollyKnown() {
		return nil, fmt.Errorf("value is not known")
	}

	ty := val.Type()
	switch {
	case ty == cty.String:
		var s string
		err := gocty.FromCtyValue(val, &s)
		return s, err
	case ty == cty.Bool:
		var b bool
		err := gocty.FromCtyValue(val, &b)
		return b, err
	case ty == cty.Number:
		bf := val.AsBigFloat()
		if bf.IsInt() {
			if i, acc := bf.Int64(); acc == big.Exact {
				return int(i), nil
			}
		}
		f, _ := bf.Float64()
		return f, nil
	case ty.IsListType() || ty.IsTupleType() || ty.IsSetType():
		out := make([]any, 0, val.LengthInt())
		for it := val.ElementIterator(); it.Next(); {
			_, ev := it.Element()
			v, err := c.ToGo(ctx, ev)
			if err != nil {
				return nil, err
			}
			out = append(out, v)
		}
		return out, nil
	case ty.IsMapType() || ty.IsObjectType():
		out := make(map[string]any, val.LengthInt())
		for it := val.ElementIterator(); it.Next(); {
			k, ev := it.Element()
			v, err := c.ToGo(ctx, ev)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", k.AsString(), err)
			}
			out[k.AsString()] = v
		}
		return out, nil
	}
	logger.Debug("Unsupported value type.", "type", ty.FriendlyName())
	return nil, fmt.Errorf("unsupported value of type %s", ty.FriendlyName())
}

// Strings evaluates expr as a string or a list of strings.
func (c *Converter) Strings(ctx context.Context, expr hcl.Expression, attrName string) ([]string, error) {
	if !isExprDefined(ctx, expr, attrName) {
		return nil, nil
	}
	val, diags := expr.Value(evalContext())
	if diags.HasErrors() {
		return nil, diags
	}
	if val.Type() == cty.String {
		return []string{val.AsString()}, nil
	}
	converted, err := convert.Convert(val, cty.List(cty.String))
	if err != nil {
		return nil, fmt.Errorf("%s must be a string or a list of strings: %w", attrName, err)
	}
	var out []string
	if err := gocty.FromCtyValue(converted, &out); err != nil {
		return nil, err
	}
	return out, nil
}
