package hcl

import "github.com/hashicorp/hcl/v2"

// fileRoot is a struct used to decode all possible top-level blocks from any
// file. Suite blocks are left in Remain so they decode in source order.
type fileRoot struct {
	Hosts   []*hostBlock   `hcl:"host,block"`
	Externs []*externBlock `hcl:"extern,block"`
	Remain  hcl.Body       `hcl:",remain"`
}

type hostBlock struct {
	Name       string            `hcl:"name,label"`
	Kind       string            `hcl:"kind,optional"`
	Hostname   string            `hcl:"hostname,optional"`
	User       string            `hcl:"user,optional"`
	Limit      *int              `hcl:"limit,optional"`
	EcflowPath string            `hcl:"ecflow_path,optional"`
	Modules    []string          `hcl:"modules,optional"`
	Variables  map[string]string `hcl:"variables,optional"`
}

type externBlock struct {
	Address string `hcl:"address,label"`
	Kind    string `hcl:"kind,optional"`
}

// nodeBlock is the body of a suite, family, anchor_family or task block.
// Child nodes stay in Remain so they keep their source order.
type nodeBlock struct {
	Host       string         `hcl:"host,optional"`
	Variables  hcl.Expression `hcl:"variables,optional"`
	Defstatus  string         `hcl:"defstatus,optional"`
	Trigger    hcl.Expression `hcl:"trigger,optional"`
	Complete   hcl.Expression `hcl:"complete,optional"`
	Follow     []string       `hcl:"follow,optional"`
	Script     string         `hcl:"script,optional"`
	Manual     string         `hcl:"manual,optional"`
	Workdir    string         `hcl:"workdir,optional"`
	Modules    []string       `hcl:"modules,optional"`
	InLimits   []string       `hcl:"inlimits,optional"`
	Events     []string       `hcl:"events,optional"`
	Time       hcl.Expression `hcl:"time,optional"`
	Today      hcl.Expression `hcl:"today,optional"`
	Date       hcl.Expression `hcl:"date,optional"`
	Day        hcl.Expression `hcl:"day,optional"`
	Late       string         `hcl:"late,optional"`
	Autocancel hcl.Expression `hcl:"autocancel,optional"`
	Zombies    hcl.Expression `hcl:"zombies,optional"`

	Repeat *repeatBlock  `hcl:"repeat,block"`
	Limits []*limitBlock `hcl:"limit,block"`
	Labels []*labelBlock `hcl:"label,block"`
	Meters []*meterBlock `hcl:"meter,block"`
	Crons  []*cronBlock  `hcl:"cron,block"`

	Remain hcl.Body `hcl:",remain"`
}

type repeatBlock struct {
	Kind   string         `hcl:"kind,label"`
	Name   string         `hcl:"name,optional"`
	Start  hcl.Expression `hcl:"start,optional"`
	End    hcl.Expression `hcl:"end,optional"`
	Step   hcl.Expression `hcl:"step,optional"`
	Values hcl.Expression `hcl:"values,optional"`
}

type limitBlock struct {
	Name string `hcl:"name,label"`
	Max  int    `hcl:"max"`
}

type labelBlock struct {
	Name  string `hcl:"name,label"`
	Value string `hcl:"value,optional"`
}

type meterBlock struct {
	Name      string `hcl:"name,label"`
	Min       int    `hcl:"min,optional"`
	Max       int    `hcl:"max"`
	Threshold *int   `hcl:"threshold,optional"`
}

type cronBlock struct {
	Time           string `hcl:"time"`
	DaysOfWeek     []int  `hcl:"days_of_week,optional"`
	DaysOfMonth    []int  `hcl:"days_of_month,optional"`
	LastDayOfMonth bool   `hcl:"last_day_of_month,optional"`
	Months         []int  `hcl:"months,optional"`
}

// suiteSchema lists the blocks allowed next to hosts and externs.
var suiteSchema = &hcl.BodySchema{
	Blocks: []hcl.BlockHeaderSchema{
		{Type: "suite", LabelNames: []string{"name"}},
	},
}

// childSchema lists the node blocks allowed inside a node.
var childSchema = &hcl.BodySchema{
	Blocks: []hcl.BlockHeaderSchema{
		{Type: "family", LabelNames: []string{"name"}},
		{Type: "anchor_family", LabelNames: []string{"name"}},
		{Type: "task", LabelNames: []string{"name"}},
	},
}
