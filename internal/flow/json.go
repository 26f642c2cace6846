package flow

import (
	"fmt"
	"sort"
	"strings"

	"github.com/vk/ecflowgen/internal/expr"
	"github.com/vk/ecflowgen/internal/script"
)

// reservedKeys are the attribute keys of a JSON tree. Every other key is a
// variable when upper case, and a child node otherwise.
var reservedKeys = map[string]bool{
	"script": true, "autocancel": true, "completes": true, "cron": true,
	"date": true, "day": true, "defstatus": true, "families": true,
	"follow": true, "inlimits": true, "labels": true, "limits": true,
	"meters": true, "repeat": true, "tasks": true, "time": true,
	"today": true, "triggers": true, "variables": true, "zombies": true,
	"events": true,
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// normalizeJSON turns integral float64 values into ints, recursively.
func normalizeJSON(v any) any {
	switch x := v.(type) {
	case float64:
		if x == float64(int64(x)) {
			return int(x)
		}
	case []any:
		out := make([]any, len(x))
		for i, e := range x {
			out[i] = normalizeJSON(e)
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(x))
		for k, e := range x {
			out[k] = normalizeJSON(e)
		}
		return out
	}
	return v
}

// hasJSONChildren reports whether a tree holds keys that are neither
// variables nor attributes.
func hasJSONChildren(tree map[string]any) bool {
	for k := range tree {
		if !IsVariableName(k) && !reservedKeys[k] {
			return true
		}
	}
	return false
}

// LoadJSON adds the content of a decoded JSON tree to n. Keys are
// processed in sorted order. Child trees with children of their own
// become families, the others tasks.
func (n *Node) LoadJSON(tree map[string]any) error {
	for _, k := range sortedKeys(tree) {
		v := normalizeJSON(tree[k])
		var err error
		switch {
		case IsVariableName(k):
			err = n.SetVariable(k, v)
		case reservedKeys[k]:
			err = n.setJSONAttribute(k, v)
		default:
			err = n.addJSONChild(k, v)
		}
		if err != nil {
			return fmt.Errorf("loading %s of %s: %w", k, n.FullName(), err)
		}
	}
	return nil
}

func (n *Node) addJSONChild(name string, v any) error {
	sub, ok := v.(map[string]any)
	if !ok {
		if v != nil {
			return fmt.Errorf("expected a mapping, got %T", v)
		}
		sub = map[string]any{}
	}
	kind := KindTask
	if hasJSONChildren(sub) {
		kind = KindFamily
	}
	c, err := create(kind, name, n, nil, nil)
	if err != nil {
		return err
	}
	return c.LoadJSON(sub)
}

func jsonStrings(v any) ([]string, error) {
	if s, ok := v.(string); ok {
		return []string{s}, nil
	}
	l, ok := asList(v)
	if !ok {
		return nil, fmt.Errorf("expected a string or a list, got %T", v)
	}
	out := make([]string, len(l))
	for i, e := range l {
		s, ok := e.(string)
		if !ok {
			return nil, fmt.Errorf("expected a string, got %T", e)
		}
		out[i] = s
	}
	return out, nil
}

func jsonExpr(v any) (expr.Expr, error) {
	if s, ok := v.(string); ok {
		return expr.Status(s), nil
	}
	return expr.FromJSON(v)
}

func (n *Node) setJSONAttribute(key string, v any) error {
	switch key {
	case "script":
		if n.kind != KindTask {
			return fmt.Errorf("only tasks have a script")
		}
		lines, err := jsonStrings(v)
		if err != nil {
			return err
		}
		vals := make([]any, len(lines))
		for i, l := range lines {
			vals[i] = l
		}
		n.task.script = script.New(vals...)
		return nil
	case "variables":
		m, ok := v.(map[string]any)
		if !ok {
			return fmt.Errorf("expected a mapping, got %T", v)
		}
		for _, name := range sortedKeys(m) {
			if err := n.SetVariable(name, m[name]); err != nil {
				return err
			}
		}
		return nil
	case "triggers":
		e, err := jsonExpr(v)
		if err != nil {
			return err
		}
		n.SetTrigger(e)
		return nil
	case "completes":
		e, err := jsonExpr(v)
		if err != nil {
			return err
		}
		n.SetComplete(e)
		return nil
	case "follow":
		return fmt.Errorf("follow cannot be loaded from a JSON tree")
	case "families", "tasks":
		return n.addJSONChildren(key, v)
	case "labels":
		m, ok := v.(map[string]any)
		if !ok {
			return fmt.Errorf("expected a mapping, got %T", v)
		}
		for _, name := range sortedKeys(m) {
			if err := n.Add(NewLabel(name, m[name])); err != nil {
				return err
			}
		}
		return nil
	case "limits":
		m, ok := v.(map[string]any)
		if !ok {
			return fmt.Errorf("expected a mapping, got %T", v)
		}
		for _, name := range sortedKeys(m) {
			size, err := toInt(m[name])
			if err != nil {
				return err
			}
			if err := n.Add(NewLimit(name, size)); err != nil {
				return err
			}
		}
		return nil
	case "meters":
		return n.addJSONMeters(v)
	case "events":
		names, err := jsonStrings(v)
		if err != nil {
			return err
		}
		for _, name := range names {
			if err := n.Add(NewEvent(name)); err != nil {
				return err
			}
		}
		return nil
	case "inlimits":
		names, err := jsonStrings(v)
		if err != nil {
			return err
		}
		for _, name := range names {
			newFn := NewInLimit
			if rest, ok := strings.CutPrefix(name, "-s "); ok {
				name, newFn = strings.TrimSpace(rest), NewSubmissionInLimit
			}
			il, err := newFn(name)
			if err != nil {
				return err
			}
			if err := n.Add(il); err != nil {
				return err
			}
		}
		return nil
	case "repeat":
		step, err := toInt(v)
		if err != nil {
			return err
		}
		return n.replace(NewRepeatDay(step))
	case "zombies":
		if v == nil || v == true {
			z, _ := NewZombies()
			return n.replace(z)
		}
		specs, err := jsonStrings(v)
		if err != nil {
			return err
		}
		z, err := NewZombies(specs...)
		if err != nil {
			return err
		}
		return n.replace(z)
	}
	return n.setJSONScalar(key, v)
}

// setJSONScalar handles the attributes built from a single value.
func (n *Node) setJSONScalar(key string, v any) error {
	var a Attribute
	var err error
	switch key {
	case "autocancel":
		a, err = NewAutocancel(v)
	case "cron":
		a, err = NewCron(fmt.Sprint(v), CronFields{})
	case "date":
		a, err = NewDate(v)
	case "day":
		a, err = NewDay(fmt.Sprint(v))
	case "defstatus":
		a, err = NewDefstatus(fmt.Sprint(v))
	case "time":
		a, err = NewTime(fmt.Sprint(v))
	case "today":
		a, err = NewToday(fmt.Sprint(v))
	default:
		return fmt.Errorf("unknown attribute %q", key)
	}
	if err != nil {
		return err
	}
	return n.replace(a)
}

// addJSONChildren creates families or tasks from a list of names or a
// mapping of names to trees.
func (n *Node) addJSONChildren(key string, v any) error {
	kind := KindFamily
	if key == "tasks" {
		kind = KindTask
	}
	if m, ok := v.(map[string]any); ok {
		for _, name := range sortedKeys(m) {
			c, err := create(kind, name, n, nil, nil)
			if err != nil {
				return err
			}
			sub, _ := m[name].(map[string]any)
			if err := c.LoadJSON(sub); err != nil {
				return err
			}
		}
		return nil
	}
	names, err := jsonStrings(v)
	if err != nil {
		return err
	}
	for _, name := range names {
		if _, err := create(kind, name, n, nil, nil); err != nil {
			return err
		}
	}
	return nil
}

// addJSONMeters accepts a list of names, with a 0..100 range, or a mapping
// of names to a maximum or a [min, max, threshold] list.
func (n *Node) addJSONMeters(v any) error {
	m, ok := v.(map[string]any)
	if !ok {
		names, err := jsonStrings(v)
		if err != nil {
			return err
		}
		for _, name := range names {
			if err := n.Add(NewMeter(name, 0, 100)); err != nil {
				return err
			}
		}
		return nil
	}
	for _, name := range sortedKeys(m) {
		var bounds []int
		if l, ok := asList(m[name]); ok {
			for _, e := range l {
				i, err := toInt(e)
				if err != nil {
					return err
				}
				bounds = append(bounds, i)
			}
		} else {
			top, err := toInt(m[name])
			if err != nil {
				return err
			}
			bounds = []int{0, top}
		}
		if len(bounds) < 2 || len(bounds) > 3 {
			return fmt.Errorf("meter %s needs min, max and an optional threshold", name)
		}
		if err := n.Add(NewMeter(name, bounds[0], bounds[1], bounds[2:]...)); err != nil {
			return err
		}
	}
	return nil
}
