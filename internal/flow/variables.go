package flow

import (
	"fmt"
	"strconv"
)

// Variables that locate a suite on disk. They may be set only on anchors,
// or on a top-level family while the suite leaves them unset.
var anchorVariables = map[string]bool{"ECF_HOME": true, "ECF_FILES": true, "ECF_INCLUDE": true}

// SetVariable adds a variable or a repeat under name, replacing any entry
// of the same name. Lists become repeats:
//
//   - two dates, with an optional integer step: RepeatDate;
//   - two integers: RepeatInteger;
//   - other integer lists: RepeatEnumerated;
//   - any other list: RepeatString.
//
// Scalars and deferred values become a Variable.
func (n *Node) SetVariable(name string, value any) error {
	if anchorVariables[name] && !n.IsAnchor() {
		s := n.Suite()
		if (s != nil && s.Has(name)) || n.parent != s {
			return fmt.Errorf("%s can only be set at the suite level", name)
		}
	}
	a, err := makeVariable(name, value)
	if err != nil {
		return err
	}
	return n.replace(a)
}

func makeVariable(name string, value any) (Attribute, error) {
	if err := checkVariableName(name); err != nil {
		return nil, err
	}
	switch value.(type) {
	case Value, func() (any, error):
		return NewVariable(name, value)
	}

	if l, ok := asList(value); ok {
		return makeRepeat(name, l)
	}

	if isScalar(value) {
		return NewVariable(name, value)
	}
	return nil, fmt.Errorf("Cannot convert %v (%T) into variable or repeat", value, value)
}

func makeRepeat(name string, l []any) (Attribute, error) {
	if (len(l) == 2 || len(l) == 3) && isDate(l[0]) && isDate(l[1]) {
		if len(l) == 2 {
			return NewRepeatDate(name, l[0], l[1])
		}
		if isInt(l[2]) {
			step, _ := toInt(l[2])
			return NewRepeatDate(name, l[0], l[1], step)
		}
	}

	ints := make([]int, 0, len(l))
	for _, v := range l {
		if !isInt(v) {
			ints = nil
			break
		}
		i, _ := toInt(v)
		ints = append(ints, i)
	}
	if len(ints) == 2 {
		return NewRepeatInteger(name, ints[0], ints[1])
	}
	if len(ints) > 0 {
		return NewRepeatEnumerated(name, ints)
	}

	values := make([]string, len(l))
	for i, v := range l {
		values[i] = formatValue(v)
	}
	return NewRepeatString(name, values)
}

// LookupVariable finds the variable or repeat called name on n or its
// nearest ancestor.
func (n *Node) LookupVariable(name string) (Exportable, error) {
	for cur := n; cur != nil; cur = cur.parent {
		if v, ok := cur.entries[name].(Exportable); ok {
			return v, nil
		}
	}
	return nil, fmt.Errorf("%w: variable %s from %s", ErrNotFound, name, n.FullName())
}

// LookupVariableValue returns the value of the variable called name, or
// def when given and the variable is not defined. Repeats give their first
// value.
func (n *Node) LookupVariableValue(name string, def ...string) (string, error) {
	v, err := n.LookupVariable(name)
	if err != nil {
		if len(def) > 0 {
			return def[0], nil
		}
		return "", &VariableError{Name: name}
	}
	return exportValue(v)
}

func exportValue(v Exportable) (string, error) {
	switch x := v.(type) {
	case *Variable:
		return resolveString(x.value)
	case *RepeatDate:
		return strconv.FormatInt(dateInt(x.start), 10), nil
	case *RepeatDateTime:
		return x.start.Format(dateTimeLayout), nil
	case *RepeatInteger:
		return strconv.Itoa(x.start), nil
	case *RepeatString:
		return x.values[0], nil
	case *RepeatEnumerated:
		return x.values[0], nil
	}
	return "", fmt.Errorf("no value for %s", v.FullName())
}

// lineage returns the path from the root down to n.
func (n *Node) lineage() []*Node {
	if n.parent == nil {
		return []*Node{n}
	}
	return append(n.parent.lineage(), n)
}

// AllExportables returns the variables and repeats visible from n. Names
// keep the position of their first definition from the root down; the
// definition nearest to n wins.
func (n *Node) AllExportables() []Exportable {
	var order []string
	byName := map[string]Exportable{}
	for _, cur := range n.lineage() {
		for _, a := range cur.Attributes() {
			e, ok := a.(Exportable)
			if !ok {
				continue
			}
			if _, seen := byName[e.Name()]; !seen {
				order = append(order, e.Name())
			}
			byName[e.Name()] = e
		}
	}
	out := make([]Exportable, len(order))
	for i, name := range order {
		out[i] = byName[name]
	}
	return out
}

// AllVariables is AllExportables without the repeats.
func (n *Node) AllVariables() []*Variable {
	var out []*Variable
	for _, e := range n.AllExportables() {
		if v, ok := e.(*Variable); ok {
			out = append(out, v)
		}
	}
	return out
}

// FilesPath returns ECF_FILES as seen from n.
func (n *Node) FilesPath() (string, error) {
	return n.LookupVariableValue("ECF_FILES")
}

// IncludePath returns ECF_INCLUDE as seen from n, defaulting to the files
// path.
func (n *Node) IncludePath() (string, error) {
	if _, err := n.LookupVariable("ECF_INCLUDE"); err != nil {
		return n.FilesPath()
	}
	return n.LookupVariableValue("ECF_INCLUDE")
}
