package config

import "fmt"

// Model is the unified, format-agnostic representation of the suite files
// of one run.
type Model struct {
	Suites []*Node
	// Externs are the addresses of nodes and attributes defined outside the
	// loaded suites, such as /other/f/t or /other/f/t:YMD.
	Externs []*Extern
	Hosts   map[string]*Host
}

// NewModel creates an empty model.
func NewModel() *Model {
	return &Model{Hosts: map[string]*Host{}}
}

// Merge adds the content of other to m. Hosts must be unique.
func (m *Model) Merge(other *Model) error {
	for name, h := range other.Hosts {
		if prev, ok := m.Hosts[name]; ok {
			return fmt.Errorf("host %q defined in %s and %s", name, prev.Source, h.Source)
		}
		m.Hosts[name] = h
	}
	m.Suites = append(m.Suites, other.Suites...)
	m.Externs = append(m.Externs, other.Externs...)
	return nil
}

// Kind is the kind of a model node.
type Kind string

const (
	KindSuite        Kind = "suite"
	KindFamily       Kind = "family"
	KindAnchorFamily Kind = "anchor_family"
	KindTask         Kind = "task"
)

// Node is the format-agnostic representation of a suite, family or task.
type Node struct {
	Kind   Kind
	Name   string
	Source string

	// Host names an entry of Model.Hosts.
	Host      string
	Variables map[string]any
	Defstatus string
	Triggers  []Expression
	Completes []Expression
	// Follow holds "path:repeat" addresses of repeats to follow.
	Follow []string

	Script  string
	Manual  string
	Workdir string
	Modules []string

	Repeat   *Repeat
	Limits   map[string]int
	InLimits []string
	Labels   map[string]string
	Meters   []*Meter
	Events   []string

	Times  []string
	Todays []string
	Dates  []string
	Days   []string
	Crons  []*Cron

	Late       string
	Autocancel any
	// Zombies is nil for none; an empty slice installs the defaults.
	Zombies []string

	Children []*Node

	// Tree is a nested mapping loaded as a whole below the node, for
	// formats that describe content that way.
	Tree map[string]any
}

// Repeat describes a repeat attribute.
type Repeat struct {
	Kind   string
	Name   string
	Start  any
	End    any
	Step   any
	Values []any
}

// Meter describes a meter attribute.
type Meter struct {
	Name      string
	Min       int
	Max       int
	Threshold *int
}

// Cron describes a cron attribute.
type Cron struct {
	Value          string
	DaysOfWeek     []int
	DaysOfMonth    []int
	LastDayOfMonth bool
	Months         []int
}

// ExternKind is the kind of placeholder an extern creates.
type ExternKind string

const (
	ExternNode     ExternKind = "node"
	ExternTask     ExternKind = "task"
	ExternYMD      ExternKind = "ymd"
	ExternEvent    ExternKind = "event"
	ExternMeter    ExternKind = "meter"
	ExternVariable ExternKind = "variable"
)

// Extern declares a node or attribute defined outside the loaded suites.
type Extern struct {
	Address string
	Kind    ExternKind
	Source  string
}

// Host describes a job execution target.
type Host struct {
	Name       string
	Kind       string
	Hostname   string
	User       string
	Limit      *int
	EcflowPath string
	Modules    []string
	Variables  map[string]string
	Source     string
}
