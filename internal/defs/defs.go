package defs

import (
	"fmt"
	"strings"
)

// Kind identifies the type of a definition node.
type Kind int

const (
	KindSuite Kind = iota
	KindFamily
	KindTask
)

func (k Kind) String() string {
	switch k {
	case KindSuite:
		return "suite"
	case KindFamily:
		return "family"
	case KindTask:
		return "task"
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Defs is a complete definition document: extern declarations and suites.
type Defs struct {
	Externs []string
	Suites  []*Node
}

// New creates an empty definition document.
func New() *Defs {
	return &Defs{}
}

// AddExtern declares an extern path. Duplicate declarations are ignored.
func (d *Defs) AddExtern(path string) {
	for _, e := range d.Externs {
		if e == path {
			return
		}
	}
	d.Externs = append(d.Externs, path)
}

// AddSuite appends a suite. Suite names must be unique.
func (d *Defs) AddSuite(s *Node) error {
	if s.Kind != KindSuite {
		return fmt.Errorf("cannot add %s %q as a suite", s.Kind, s.Name)
	}
	for _, existing := range d.Suites {
		if existing.Name == s.Name {
			return fmt.Errorf("duplicate suite %q", s.Name)
		}
	}
	d.Suites = append(d.Suites, s)
	return nil
}

// Find resolves an absolute node path such as /s/f/t.
func (d *Defs) Find(path string) (*Node, bool) {
	parts := strings.Split(strings.TrimPrefix(path, "/"), "/")
	for _, s := range d.Suites {
		if s.Name == parts[0] {
			return s.descend(parts[1:])
		}
	}
	return nil, false
}

// PartOp joins a trigger or complete part to the ones before it.
type PartOp int

const (
	PartFirst PartOp = iota
	PartAnd
	PartOr
)

// Part is one line of a trigger or complete expression.
type Part struct {
	Op   PartOp
	Expr string
	// Refs holds the absolute addresses (/s/t or /s/t:ATTR) the
	// expression depends on.
	Refs []string
}

// Expression is an ordered list of trigger or complete parts.
type Expression []Part

// Node is a suite, family or task in the definition model.
type Node struct {
	Kind     Kind
	Name     string
	Parent   *Node
	Children []*Node

	Defstatus  string
	Late       *Late
	Complete   Expression
	Trigger    Expression
	Repeat     *Repeat
	Variables  []Variable
	Limits     []Limit
	InLimits   []InLimit
	Labels     []Label
	Meters     []Meter
	Events     []Event
	Times      []string
	Todays     []string
	Dates      []Date
	Days       []string
	Crons      []*Cron
	Autocancel *Autocancel
	Zombies    []Zombie
}

// NewSuite creates a suite node.
func NewSuite(name string) *Node { return &Node{Kind: KindSuite, Name: name} }

// NewFamily creates a family node.
func NewFamily(name string) *Node { return &Node{Kind: KindFamily, Name: name} }

// NewTask creates a task node.
func NewTask(name string) *Node { return &Node{Kind: KindTask, Name: name} }

// FullName returns the absolute path of the node.
func (n *Node) FullName() string {
	if n.Parent == nil {
		return "/" + n.Name
	}
	return n.Parent.FullName() + "/" + n.Name
}

// AddChild attaches a family or task.
func (n *Node) AddChild(c *Node) error {
	switch {
	case c.Kind == KindSuite:
		return fmt.Errorf("cannot add suite %q below %s", c.Name, n.FullName())
	case n.Kind == KindTask:
		return fmt.Errorf("cannot add %s %q below task %s", c.Kind, c.Name, n.FullName())
	}
	for _, existing := range n.Children {
		if existing.Name == c.Name {
			return fmt.Errorf("duplicate node %q in %s", c.Name, n.FullName())
		}
	}
	c.Parent = n
	n.Children = append(n.Children, c)
	return nil
}

// Child returns the direct child with the given name.
func (n *Node) Child(name string) (*Node, bool) {
	for _, c := range n.Children {
		if c.Name == name {
			return c, true
		}
	}
	return nil, false
}

func (n *Node) descend(parts []string) (*Node, bool) {
	cur := n
	for _, p := range parts {
		if p == "" {
			continue
		}
		next, ok := cur.Child(p)
		if !ok {
			return nil, false
		}
		cur = next
	}
	return cur, true
}

// AddTrigger sets the first part of the trigger.
func (n *Node) AddTrigger(expr string, refs ...string) {
	n.Trigger = Expression{{Op: PartFirst, Expr: expr, Refs: refs}}
}

// AddPartTrigger appends a part to the trigger, starting it if empty.
func (n *Node) AddPartTrigger(expr string, and bool, refs ...string) {
	n.Trigger = appendPart(n.Trigger, expr, and, refs)
}

// AddComplete sets the first part of the complete expression.
func (n *Node) AddComplete(expr string, refs ...string) {
	n.Complete = Expression{{Op: PartFirst, Expr: expr, Refs: refs}}
}

// AddPartComplete appends a part to the complete expression.
func (n *Node) AddPartComplete(expr string, and bool, refs ...string) {
	n.Complete = appendPart(n.Complete, expr, and, refs)
}

func appendPart(e Expression, expr string, and bool, refs []string) Expression {
	op := PartOr
	if and {
		op = PartAnd
	}
	if len(e) == 0 {
		op = PartFirst
	}
	return append(e, Part{Op: op, Expr: expr, Refs: refs})
}

// AddRepeat sets the repeat. A node carries at most one.
func (n *Node) AddRepeat(r *Repeat) error {
	if n.Repeat != nil {
		return fmt.Errorf("node %s already has a repeat (%s), cannot add %s", n.FullName(), n.Repeat.Name, r.Name)
	}
	n.Repeat = r
	return nil
}

// AddVariable adds or overwrites a variable.
func (n *Node) AddVariable(name, value string) {
	for i := range n.Variables {
		if n.Variables[i].Name == name {
			n.Variables[i].Value = value
			return
		}
	}
	n.Variables = append(n.Variables, Variable{Name: name, Value: value})
}

// Variable returns the value of a variable set directly on this node.
func (n *Node) Variable(name string) (string, bool) {
	for _, v := range n.Variables {
		if v.Name == name {
			return v.Value, true
		}
	}
	return "", false
}

// AddLimit declares a limit.
func (n *Node) AddLimit(name string, max int) error {
	for _, l := range n.Limits {
		if l.Name == name {
			return fmt.Errorf("duplicate limit %q on %s", name, n.FullName())
		}
	}
	n.Limits = append(n.Limits, Limit{Name: name, Max: max})
	return nil
}

func (n *Node) AddInLimit(l InLimit) { n.InLimits = append(n.InLimits, l) }
func (n *Node) AddLabel(name, value string) { n.Labels = append(n.Labels, Label{Name: name, Value: value}) }
func (n *Node) AddMeter(m Meter) { n.Meters = append(n.Meters, m) }
func (n *Node) AddEvent(name string) { n.Events = append(n.Events, Event{Name: name}) }
func (n *Node) AddTime(ts string) { n.Times = append(n.Times, ts) }
func (n *Node) AddToday(ts string) { n.Todays = append(n.Todays, ts) }
func (n *Node) AddDate(d Date) { n.Dates = append(n.Dates, d) }
func (n *Node) AddDay(day string) { n.Days = append(n.Days, day) }
func (n *Node) AddCron(c *Cron) { n.Crons = append(n.Crons, c) }
func (n *Node) AddZombie(z Zombie) { n.Zombies = append(n.Zombies, z) }
func (n *Node) AddDefstatus(state string) { n.Defstatus = state }
func (n *Node) AddLate(l *Late) { n.Late = l }
func (n *Node) AddAutocancel(a *Autocancel) { n.Autocancel = a }

// HasAttribute reports whether the node declares a variable, repeat,
// event, meter, label or limit called name.
func (n *Node) HasAttribute(name string) bool {
	if _, ok := n.Variable(name); ok {
		return true
	}
	if n.Repeat != nil && n.Repeat.Name == name {
		return true
	}
	for _, e := range n.Events {
		if e.Name == name {
			return true
		}
	}
	for _, m := range n.Meters {
		if m.Name == name {
			return true
		}
	}
	for _, l := range n.Labels {
		if l.Name == name {
			return true
		}
	}
	for _, l := range n.Limits {
		if l.Name == name {
			return true
		}
	}
	return false
}

// Walk visits the node and its descendants depth first.
func (n *Node) Walk(fn func(*Node)) {
	fn(n)
	for _, c := range n.Children {
		c.Walk(fn)
	}
}
