package defs

import (
	"strings"
)

const indentUnit = "  "

// String renders the definition text.
func (d *Defs) String() string {
	var sb strings.Builder
	for _, e := range d.Externs {
		sb.WriteString("extern " + e + "\n")
	}
	for _, s := range d.Suites {
		s.render(&sb, 0)
	}
	return sb.String()
}

// String renders the node and its subtree as definition text.
func (n *Node) String() string {
	var sb strings.Builder
	n.render(&sb, 0)
	return sb.String()
}

// Lines returns the attribute lines of the node itself, in print order.
func (n *Node) Lines() []string {
	var lines []string
	add := func(s string) { lines = append(lines, s) }

	if n.Defstatus != "" {
		add("defstatus " + n.Defstatus)
	}
	if n.Late != nil {
		add(n.Late.String())
	}
	for _, l := range n.Complete.lines("complete") {
		add(l)
	}
	for _, l := range n.Trigger.lines("trigger") {
		add(l)
	}
	if n.Repeat != nil {
		add(n.Repeat.String())
	}
	for _, v := range n.Variables {
		add(v.String())
	}
	for _, l := range n.Limits {
		add(l.String())
	}
	for _, l := range n.InLimits {
		add(l.String())
	}
	for _, l := range n.Labels {
		add(l.String())
	}
	for _, m := range n.Meters {
		add(m.String())
	}
	for _, e := range n.Events {
		add(e.String())
	}
	for _, t := range n.Times {
		add("time " + t)
	}
	for _, t := range n.Todays {
		add("today " + t)
	}
	for _, d := range n.Dates {
		add(d.String())
	}
	for _, d := range n.Days {
		add("day " + d)
	}
	for _, c := range n.Crons {
		add(c.String())
	}
	if n.Autocancel != nil {
		add(n.Autocancel.String())
	}
	for _, z := range n.Zombies {
		add(z.String())
	}
	return lines
}

func (e Expression) lines(keyword string) []string {
	out := make([]string, 0, len(e))
	for _, p := range e {
		switch p.Op {
		case PartAnd:
			out = append(out, keyword+" -a "+p.Expr)
		case PartOr:
			out = append(out, keyword+" -o "+p.Expr)
		default:
			out = append(out, keyword+" "+p.Expr)
		}
	}
	return out
}

func (n *Node) render(sb *strings.Builder, depth int) {
	pad := strings.Repeat(indentUnit, depth)
	sb.WriteString(pad + n.Kind.String() + " " + n.Name + "\n")
	for _, l := range n.Lines() {
		sb.WriteString(pad + indentUnit + l + "\n")
	}
	for _, c := range n.Children {
		c.render(sb, depth+1)
	}
	switch n.Kind {
	case KindSuite:
		sb.WriteString(pad + "endsuite\n")
	case KindFamily:
		sb.WriteString(pad + "endfamily\n")
	}
}
