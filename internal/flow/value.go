package flow

import (
	"fmt"
	"strconv"
	"time"

	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/convert"
	"github.com/zclconf/go-cty/cty/gocty"
)

// Value is an attribute value: either a literal or a callback evaluated
// each time the tree is generated.
type Value struct {
	lit any
	fn  func() (any, error)
}

// Lit wraps a literal value.
func Lit(v any) Value { return Value{lit: v} }

// Defer wraps a callback. It runs on every generation pass and its result
// is never cached between passes.
func Defer(fn func() (any, error)) Value { return Value{fn: fn} }

// IsDeferred reports whether the value is computed at generation time.
func (v Value) IsDeferred() bool { return v.fn != nil }

// Resolve returns the literal or invokes the callback.
func (v Value) Resolve() (any, error) {
	if v.fn != nil {
		return v.fn()
	}
	return v.lit, nil
}

func (v Value) String() string {
	if v.fn != nil {
		return "<deferred>"
	}
	return formatValue(v.lit)
}

// asValue accepts a Value, a bare callback or a literal.
func asValue(v any) Value {
	switch x := v.(type) {
	case Value:
		return x
	case func() (any, error):
		return Defer(x)
	}
	return Lit(v)
}

// formatValue renders a literal the way it appears in definitions.
func formatValue(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case bool:
		if x {
			return "True"
		}
		return "False"
	case float64:
		if x == float64(int64(x)) {
			return strconv.FormatFloat(x, 'f', 1, 64)
		}
		return strconv.FormatFloat(x, 'g', -1, 64)
	case fmt.Stringer:
		return x.String()
	}
	return fmt.Sprint(v)
}

// resolveString resolves v and formats the result.
func resolveString(v Value) (string, error) {
	r, err := v.Resolve()
	if err != nil {
		return "", err
	}
	return formatValue(r), nil
}

// resolveInt resolves v to an integer. Integral floats are accepted since
// decoded JSON numbers arrive as float64.
func resolveInt(v Value) (int, error) {
	r, err := v.Resolve()
	if err != nil {
		return 0, err
	}
	return toInt(r)
}

// toCty lifts a Go value into cty. cty values pass through unchanged.
func toCty(v any) (cty.Value, error) {
	switch x := v.(type) {
	case nil:
		return cty.NilVal, fmt.Errorf("no value")
	case cty.Value:
		return x, nil
	}
	ty, err := gocty.ImpliedType(v)
	if err != nil {
		return cty.NilVal, err
	}
	return gocty.ToCtyValue(v, ty)
}

// isScalar reports whether v is a string, a bool or a number.
func isScalar(v any) bool {
	if _, ok := v.(cty.Value); ok || v == nil {
		return false
	}
	ty, err := gocty.ImpliedType(v)
	return err == nil && ty.IsPrimitiveType()
}

// toInt accepts any integer kind, an integral float or a numeric string.
func toInt(v any) (int, error) {
	cv, err := toCty(v)
	if err != nil {
		return 0, fmt.Errorf("%v (%T) is not an integer", v, v)
	}
	num, err := convert.Convert(cv, cty.Number)
	if err != nil || num.IsNull() {
		return 0, fmt.Errorf("%q is not an integer", fmt.Sprint(v))
	}
	var n int
	if err := gocty.FromCtyValue(num, &n); err != nil {
		return 0, fmt.Errorf("%v is not an integer", v)
	}
	return n, nil
}

// isInt reports whether v is an integer kind, or an integral float.
func isInt(v any) bool {
	switch v.(type) {
	case bool, string:
		return false
	}
	_, err := toInt(v)
	return err == nil
}

// asList turns a slice, a cty list or tuple, or a pair of ints into []any.
// Elements of cty collections come back as strings, bools, ints or floats.
func asList(v any) ([]any, bool) {
	switch x := v.(type) {
	case []any:
		return x, true
	case [2]int:
		return []any{x[0], x[1]}, true
	case []time.Time:
		out := make([]any, len(x))
		for i, t := range x {
			out[i] = t
		}
		return out, true
	case string:
		return nil, false
	}
	cv, err := toCty(v)
	if err != nil {
		return nil, false
	}
	ty := cv.Type()
	if cv.IsNull() || !cv.IsWhollyKnown() || !(ty.IsListType() || ty.IsTupleType() || ty.IsSetType()) {
		return nil, false
	}
	out := make([]any, 0, cv.LengthInt())
	for it := cv.ElementIterator(); it.Next(); {
		_, e := it.Element()
		out = append(out, fromCty(e))
	}
	return out, true
}

func fromCty(v cty.Value) any {
	if v.IsNull() || !v.IsKnown() {
		return nil
	}
	switch v.Type() {
	case cty.String:
		return v.AsString()
	case cty.Bool:
		return v.True()
	case cty.Number:
		var n int
		if err := gocty.FromCtyValue(v, &n); err == nil {
			return n
		}
		f, _ := v.AsBigFloat().Float64()
		return f
	}
	return v
}
