package flow

import (
	"fmt"
	"strings"
	"time"
)

// externNode builds a detached chain of placeholders for path: a suite,
// then families, then a last node of the given kind.
func externNode(path string, tail Kind) (*Node, error) {
	var names []string
	for _, p := range strings.Split(path, "/") {
		if p != "" {
			names = append(names, p)
		}
	}
	if len(names) == 0 {
		return nil, fmt.Errorf("invalid extern path %q", path)
	}

	cur := newNode(KindSuite, names[0])
	cur.extern = true
	for i, name := range names[1:] {
		kind := KindFamily
		if i == len(names)-2 {
			kind = tail
		}
		next := newNode(kind, name)
		next.extern = true
		if err := cur.Add(next); err != nil {
			return nil, err
		}
		cur = next
	}
	return cur, nil
}

// ExternNode maps a node defined outside this tree, for use in
// expressions. The result is a family, or the suite for a one-level path.
func ExternNode(path string) (*Node, error) { return externNode(path, KindFamily) }

// ExternFamily is ExternNode.
func ExternFamily(path string) (*Node, error) { return externNode(path, KindFamily) }

// ExternTask maps a task defined outside this tree.
func ExternTask(path string) (*Node, error) { return externNode(path, KindTask) }

// ExternAttribute maps the attribute at "path:name" defined outside this
// tree. ctor builds the attribute from its name.
func ExternAttribute(address string, ctor func(name string) (Attribute, error)) (Attribute, error) {
	path, name, ok := strings.Cut(address, ":")
	if !ok || name == "" {
		return nil, fmt.Errorf("invalid extern attribute %q, expected path:name", address)
	}
	owner, err := ExternNode(path)
	if err != nil {
		return nil, err
	}
	a, err := ctor(name)
	if err != nil {
		return nil, err
	}
	if err := owner.Add(a); err != nil {
		return nil, err
	}
	return a, nil
}

// ExternYMD maps a date repeat defined outside this tree.
func ExternYMD(address string) (*RepeatDate, error) {
	a, err := ExternAttribute(address, func(name string) (Attribute, error) {
		now := time.Now()
		return NewRepeatDate(name, now, now)
	})
	if err != nil {
		return nil, err
	}
	return a.(*RepeatDate), nil
}

// ExternEvent maps an event defined outside this tree.
func ExternEvent(address string) (*Event, error) {
	a, err := ExternAttribute(address, func(name string) (Attribute, error) {
		return NewEvent(name), nil
	})
	if err != nil {
		return nil, err
	}
	return a.(*Event), nil
}

// ExternMeter maps a meter defined outside this tree.
func ExternMeter(address string) (*Meter, error) {
	a, err := ExternAttribute(address, func(name string) (Attribute, error) {
		return NewMeter(name, 0, 0), nil
	})
	if err != nil {
		return nil, err
	}
	return a.(*Meter), nil
}

// ExternVariable maps a variable defined outside this tree. Compare it
// against integers only.
func ExternVariable(address string) (*Variable, error) {
	a, err := ExternAttribute(address, func(name string) (Attribute, error) {
		return NewVariable(name, 0)
	})
	if err != nil {
		return nil, err
	}
	return a.(*Variable), nil
}

// isKnownExtern reports whether a reference made from outside its tree
// points at a placeholder.
func isKnownExtern(target any) bool {
	switch t := target.(type) {
	case *Node:
		return t.extern
	case interface{ Owner() *Node }:
		o := t.Owner()
		return o != nil && o.extern
	}
	return false
}
