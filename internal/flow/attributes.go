package flow

import (
	"flag"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/vk/ecflowgen/internal/cron"
	"github.com/vk/ecflowgen/internal/defs"
	"github.com/vk/ecflowgen/internal/expr"
)

// Attribute is a child entry of a node that is not itself a node.
type Attribute interface {
	Entry
	Owner() *Node
	RelativePath(viewpoint expr.Locatable) (string, error)

	key() string
	setOwner(*Node)
	build(g *generation, target *defs.Node) error
}

// attrBase carries the name and owner every attribute has. Attributes a
// node holds at most one of are stored under a fixed key.
type attrBase struct {
	name     string
	fixedKey string
	owner    *Node
}

func (a *attrBase) entry() {}

func (a *attrBase) Name() string { return a.name }
func (a *attrBase) Owner() *Node { return a.owner }
func (a *attrBase) setOwner(n *Node) { a.owner = n }

func (a *attrBase) key() string {
	if a.fixedKey != "" {
		return a.fixedKey
	}
	return a.name
}

// FullName is the owner's path followed by ":name".
func (a *attrBase) FullName() string {
	if a.owner == nil {
		return ":" + a.name
	}
	return a.owner.FullName() + ":" + a.name
}

func (a *attrBase) RelativePath(viewpoint expr.Locatable) (string, error) {
	return attributePath(a.owner, viewpoint, a.name)
}

// Exportable is a variable-like attribute that job scripts can export.
type Exportable interface {
	Attribute
	ExportName() string
	Exported() bool
	SetExport(on bool)
	// Shell is the reference to the exported value inside a script.
	Shell() string
	// Ecf is the ecFlow substitution of the value.
	Ecf() string
}

type exportBase struct {
	attrBase
	exported bool
}

func (e *exportBase) ExportName() string { return e.name }
func (e *exportBase) Exported() bool { return e.exported }
func (e *exportBase) SetExport(on bool) { e.exported = on }
func (e *exportBase) Shell() string { return "$" + e.name }
func (e *exportBase) Ecf() string { return "%" + e.name + "%" }

// IsVariableName reports whether name can be a variable: upper case and
// starting with a letter.
func IsVariableName(name string) bool {
	if name == "" || strings.ToUpper(name) != name {
		return false
	}
	c := name[0]
	return c >= 'A' && c <= 'Z'
}

func checkVariableName(name string) error {
	if !IsVariableName(name) {
		return fmt.Errorf("'%s' is not a valid variable name", name)
	}
	return nil
}

// Variable is an `edit` line.
type Variable struct {
	exportBase
	value Value
}

// NewVariable creates a variable. value may be a literal, a Value or a
// func() (any, error) evaluated at generation time.
func NewVariable(name string, value any) (*Variable, error) {
	if err := checkVariableName(name); err != nil {
		return nil, err
	}
	return &Variable{exportBase: exportBase{attrBase: attrBase{name: name}}, value: asValue(value)}, nil
}

func (v *Variable) Value() Value { return v.value }
func (v *Variable) AsExpr() expr.Expr { return expr.RefTo(v) }

func (v *Variable) build(_ *generation, t *defs.Node) error {
	s, err := resolveString(v.value)
	if err != nil {
		return fmt.Errorf("variable %s: %w", v.FullName(), err)
	}
	t.AddVariable(v.name, s)
	return nil
}

// Limit caps the number of tasks running at once below its owner.
type Limit struct {
	attrBase
	max int
}

func NewLimit(name string, max int) *Limit {
	return &Limit{attrBase: attrBase{name: name}, max: max}
}

func (l *Limit) Max() int { return l.max }
func (l *Limit) String() string { return fmt.Sprintf("Limit(%s)", l.FullName()) }

func (l *Limit) build(_ *generation, t *defs.Node) error {
	return t.AddLimit(l.name, l.max)
}

// InLimit consumes tokens of a limit. The limit is given either as a
// *Limit, referenced by path, or by name, looked up through the ancestors
// by the engine.
type InLimit struct {
	attrBase
	limit      *Limit
	tokens     int
	submission bool
}

// NewInLimit creates an inlimit on target, a *Limit or a limit name.
// Tokens default to one.
func NewInLimit(target any, tokens ...int) (*InLimit, error) {
	return newInLimit(target, false, tokens)
}

// NewSubmissionInLimit creates an inlimit whose tokens are only held while
// the job is being submitted.
func NewSubmissionInLimit(target any, tokens ...int) (*InLimit, error) {
	return newInLimit(target, true, tokens)
}

func newInLimit(target any, submission bool, tokens []int) (*InLimit, error) {
	n := 1
	if len(tokens) > 0 {
		n = tokens[0]
	}
	prefix := "_"
	if submission {
		prefix = "_-s "
	}
	switch l := target.(type) {
	case *Limit:
		return &InLimit{attrBase: attrBase{name: l.name, fixedKey: prefix + l.String()}, limit: l, tokens: n, submission: submission}, nil
	case string:
		return &InLimit{attrBase: attrBase{name: l, fixedKey: prefix + l}, tokens: n, submission: submission}, nil
	}
	return nil, fmt.Errorf("cannot make an inlimit from %T", target)
}

func (l *InLimit) build(g *generation, t *defs.Node) error {
	il := defs.InLimit{Name: l.name, Tokens: l.tokens, Submission: l.submission}
	if l.limit != nil {
		owner := l.limit.Owner()
		if owner == nil {
			return generateErrorf("InLimit %s refers to a detached limit", l.name)
		}
		g.refs = append(g.refs, l.limit)
		il.Path = owner.FullName()
	}
	t.AddInLimit(il)
	return nil
}

// Label is a text value a job can update.
type Label struct {
	attrBase
	value Value
}

func NewLabel(name string, value any) *Label {
	return &Label{attrBase: attrBase{name: name}, value: asValue(value)}
}

func (l *Label) AsExpr() expr.Expr { return expr.RefTo(l) }

func (l *Label) build(_ *generation, t *defs.Node) error {
	s, err := resolveString(l.value)
	if err != nil {
		return fmt.Errorf("label %s: %w", l.FullName(), err)
	}
	t.AddLabel(l.name, s)
	return nil
}

// Meter is an integer progress value a job can update.
type Meter struct {
	attrBase
	min, max, threshold int
}

// NewMeter creates a meter. The threshold defaults to max.
func NewMeter(name string, min, max int, threshold ...int) *Meter {
	th := max
	if len(threshold) > 0 {
		th = threshold[0]
	}
	return &Meter{attrBase: attrBase{name: name}, min: min, max: max, threshold: th}
}

func (m *Meter) AsExpr() expr.Expr { return expr.RefTo(m) }

func (m *Meter) build(_ *generation, t *defs.Node) error {
	t.AddMeter(defs.Meter{Name: m.name, Min: m.min, Max: m.max, Threshold: m.threshold})
	return nil
}

// Event is a flag a job can set.
type Event struct {
	attrBase
}

func NewEvent(name string) *Event {
	return &Event{attrBase: attrBase{name: name}}
}

func (e *Event) AsExpr() expr.Expr { return expr.RefTo(e) }

func (e *Event) build(_ *generation, t *defs.Node) error {
	t.AddEvent(e.name)
	return nil
}

// Defstatus is the state a node starts in.
type Defstatus struct {
	attrBase
	state string
}

func NewDefstatus(state string) (*Defstatus, error) {
	if !expr.IsState(state) {
		return nil, fmt.Errorf("invalid defstatus %q", state)
	}
	return &Defstatus{attrBase: attrBase{name: "defstatus", fixedKey: "_defstatus"}, state: state}, nil
}

func (d *Defstatus) State() string { return d.state }

func (d *Defstatus) build(_ *generation, t *defs.Node) error {
	t.AddDefstatus(d.state)
	return nil
}

// Late flags a task as late when it stays too long submitted or active,
// or finishes after a given time.
type Late struct {
	attrBase
	late *defs.Late
}

// NewLate parses a late specification such as "-s +00:15 -c +02:00".
func NewLate(spec string) (*Late, error) {
	fs := flag.NewFlagSet("late", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	submitted := fs.String("s", "", "time allowed in submitted state")
	active := fs.String("a", "", "latest time to become active")
	complete := fs.String("c", "", "time to complete by")
	if err := fs.Parse(strings.Fields(spec)); err != nil {
		return nil, fmt.Errorf("invalid late %q: %w", spec, err)
	}
	if fs.NArg() > 0 {
		return nil, fmt.Errorf("invalid late %q: unexpected %q", spec, fs.Args())
	}

	l := &defs.Late{}
	if *submitted != "" {
		ts, _, err := defs.ParseTimeSlot(*submitted)
		if err != nil {
			return nil, err
		}
		l.Submitted = &ts
	}
	if *active != "" {
		ts, _, err := defs.ParseTimeSlot(*active)
		if err != nil {
			return nil, err
		}
		l.Active = &ts
	}
	if *complete != "" {
		ts, rel, err := defs.ParseTimeSlot(*complete)
		if err != nil {
			return nil, err
		}
		l.Complete, l.CompleteRelative = &ts, rel
	}
	if l.Submitted == nil && l.Active == nil && l.Complete == nil {
		return nil, fmt.Errorf("invalid late %q: one of -s, -a or -c is required", spec)
	}
	return &Late{attrBase: attrBase{name: "late", fixedKey: "_late"}, late: l}, nil
}

func (l *Late) build(_ *generation, t *defs.Node) error {
	cp := *l.late
	t.AddLate(&cp)
	return nil
}

// Zombies sets how the server treats zombie jobs.
type Zombies struct {
	attrBase
	zombies []defs.Zombie
}

// NewZombies parses "type:action:children:lifetime" specifications. With
// none, ecf, path and user zombies are fobbed for 300 seconds.
func NewZombies(specs ...string) (*Zombies, error) {
	z := &Zombies{attrBase: attrBase{name: "zombies", fixedKey: "_zombies"}}
	if len(specs) == 0 {
		for _, kind := range []string{"ecf", "path", "user"} {
			z.zombies = append(z.zombies, defs.Zombie{Type: kind, Action: "fob", Lifetime: 300})
		}
		return z, nil
	}
	for _, spec := range specs {
		parts := strings.Split(spec, ":")
		if len(parts) != 4 {
			return nil, fmt.Errorf("invalid zombie %q, expected type:action:children:lifetime", spec)
		}
		zb := defs.Zombie{Type: parts[0], Action: parts[1]}
		if parts[2] != "" {
			zb.Children = strings.Split(parts[2], ",")
		}
		if parts[3] != "" {
			n, err := strconv.Atoi(parts[3])
			if err != nil {
				return nil, fmt.Errorf("invalid zombie lifetime in %q: %w", spec, err)
			}
			zb.Lifetime = n
		}
		z.zombies = append(z.zombies, zb)
	}
	return z, nil
}

func (z *Zombies) build(_ *generation, t *defs.Node) error {
	for _, zb := range z.zombies {
		t.AddZombie(zb)
	}
	return nil
}

// Autocancel removes a node from the server some time after it completes.
type Autocancel struct {
	attrBase
	ac *defs.Autocancel
}

// NewAutocancel accepts true (immediately), an [2]int hour/minute pair,
// an integer number of days, or a "[+]hh:mm" / days string.
func NewAutocancel(v any) (*Autocancel, error) {
	var spec string
	switch x := v.(type) {
	case bool:
		if !x {
			return nil, fmt.Errorf("invalid autocancel %v", v)
		}
		spec = "+00:00"
	case [2]int:
		spec = fmt.Sprintf("%02d:%02d", x[0], x[1])
	case string:
		spec = x
	default:
		if l, ok := asList(v); ok && len(l) == 2 {
			h, herr := toInt(l[0])
			m, merr := toInt(l[1])
			if herr != nil || merr != nil {
				return nil, fmt.Errorf("invalid autocancel %v", v)
			}
			spec = fmt.Sprintf("%02d:%02d", h, m)
			break
		}
		days, err := toInt(v)
		if err != nil {
			return nil, fmt.Errorf("invalid autocancel %v", v)
		}
		spec = strconv.Itoa(days)
	}

	ac := &defs.Autocancel{}
	if strings.Contains(spec, ":") {
		ts, rel, err := defs.ParseTimeSlot(spec)
		if err != nil {
			return nil, fmt.Errorf("invalid autocancel: %w", err)
		}
		ac.Time, ac.Relative = &ts, rel
	} else {
		days, err := strconv.Atoi(spec)
		if err != nil {
			return nil, fmt.Errorf("invalid autocancel %q", spec)
		}
		ac.Days = days
	}
	return &Autocancel{attrBase: attrBase{name: "autocancel", fixedKey: "_autocancel"}, ac: ac}, nil
}

func (a *Autocancel) build(_ *generation, t *defs.Node) error {
	cp := *a.ac
	t.AddAutocancel(&cp)
	return nil
}

// Time holds a task until a time of day. The value is an ecFlow series
// ("10:00", "+00:30", "00:00 23:00 01:00") or a crontab expression.
type Time struct {
	attrBase
	series string
}

func seriesOf(value string, today bool) (string, error) {
	if cron.IsSeries(value) {
		return value, nil
	}
	c, err := cron.Parse(value)
	if err != nil {
		return "", err
	}
	if today {
		return c.Today()
	}
	return c.Time()
}

func NewTime(value string) (*Time, error) {
	s, err := seriesOf(value, false)
	if err != nil {
		return nil, err
	}
	return &Time{attrBase: attrBase{name: "time", fixedKey: "_time"}, series: s}, nil
}

func (tm *Time) build(_ *generation, t *defs.Node) error {
	t.AddTime(tm.series)
	return nil
}

// Today is like Time but does not wait for the next day when the time
// has already passed.
type Today struct {
	attrBase
	series string
}

func NewToday(value string) (*Today, error) {
	s, err := seriesOf(value, true)
	if err != nil {
		return nil, err
	}
	return &Today{attrBase: attrBase{name: "today", fixedKey: "_today"}, series: s}, nil
}

func (td *Today) build(_ *generation, t *defs.Node) error {
	t.AddToday(td.series)
	return nil
}

// CronFields restrict an ecFlow series given to NewCron.
type CronFields struct {
	DaysOfWeek          []int
	LastWeekDaysOfMonth []int
	DaysOfMonth         []int
	LastDayOfMonth      bool
	Months              []int
}

func (f CronFields) empty() bool {
	return len(f.DaysOfWeek) == 0 && len(f.LastWeekDaysOfMonth) == 0 &&
		len(f.DaysOfMonth) == 0 && !f.LastDayOfMonth && len(f.Months) == 0
}

// Cron repeats a task on a schedule.
type Cron struct {
	attrBase
	cron *defs.Cron
}

// NewCron creates a cron from an ecFlow series with optional restrictions,
// or from a crontab expression when value holds no time.
func NewCron(value string, fields CronFields) (*Cron, error) {
	c := &Cron{attrBase: attrBase{name: "cron", fixedKey: "_cron"}}
	if strings.Contains(value, ":") || !fields.empty() {
		c.cron = &defs.Cron{
			WeekDays:       fields.DaysOfWeek,
			LastWeekDays:   fields.LastWeekDaysOfMonth,
			DaysOfMonth:    fields.DaysOfMonth,
			LastDayOfMonth: fields.LastDayOfMonth,
			Months:         fields.Months,
			TimeSeries:     value,
		}
		return c, nil
	}
	tab, err := cron.Parse(value)
	if err != nil {
		return nil, err
	}
	c.cron = tab.Cron()
	return c, nil
}

func (c *Cron) build(_ *generation, t *defs.Node) error {
	cp := *c.cron
	t.AddCron(&cp)
	return nil
}

// Date holds a node until a calendar date. Zero parts are wildcards.
type Date struct {
	attrBase
	date defs.Date
}

// NewDate accepts a time.Time, a "dd.mm.yyyy" string with "*" wildcards, or
// a day, month, year list.
func NewDate(v any) (*Date, error) {
	var d defs.Date
	switch x := v.(type) {
	case time.Time:
		d = defs.Date{Day: x.Day(), Month: int(x.Month()), Year: x.Year()}
	case string:
		parts := strings.Split(x, ".")
		if len(parts) != 3 {
			return nil, fmt.Errorf("invalid date %q, expected dd.mm.yyyy", x)
		}
		var vals [3]int
		for i, p := range parts {
			if p == "*" {
				continue
			}
			n, err := strconv.Atoi(p)
			if err != nil {
				return nil, fmt.Errorf("invalid date %q: %w", x, err)
			}
			vals[i] = n
		}
		d = defs.Date{Day: vals[0], Month: vals[1], Year: vals[2]}
	default:
		l, ok := asList(v)
		if !ok || len(l) != 3 {
			return nil, fmt.Errorf("invalid date %v", v)
		}
		var vals [3]int
		for i, p := range l {
			if s, ok := p.(string); ok && s == "*" {
				continue
			}
			n, err := toInt(p)
			if err != nil {
				return nil, fmt.Errorf("invalid date %v: %w", v, err)
			}
			vals[i] = n
		}
		d = defs.Date{Day: vals[0], Month: vals[1], Year: vals[2]}
	}
	key := fmt.Sprintf("_date_%d_%d_%d", d.Day, d.Month, d.Year)
	return &Date{attrBase: attrBase{name: "date", fixedKey: key}, date: d}, nil
}

func (d *Date) build(_ *generation, t *defs.Node) error {
	t.AddDate(d.date)
	return nil
}

var weekdays = []string{"sunday", "monday", "tuesday", "wednesday", "thursday", "friday", "saturday"}

// Day holds a node until a day of the week.
type Day struct {
	attrBase
	day string
}

func NewDay(day string) (*Day, error) {
	d := strings.ToLower(day)
	for _, w := range weekdays {
		if w == d {
			return &Day{attrBase: attrBase{name: "day", fixedKey: "_day_" + d}, day: d}, nil
		}
	}
	return nil, fmt.Errorf("invalid day %q", day)
}

func (d *Day) build(_ *generation, t *defs.Node) error {
	t.AddDay(d.day)
	return nil
}

// Manual is the help text shown for a node. It is written at the top of
// task scripts and into .man files for families.
type Manual struct {
	attrBase
	text string
}

func NewManual(text string) *Manual {
	return &Manual{attrBase: attrBase{name: "manual", fixedKey: "_manual"}, text: text}
}

func (m *Manual) Text() string { return m.text }

// Stub returns the manual wrapped in %manual/%end, or nothing when blank.
func (m *Manual) Stub() []string {
	if strings.TrimSpace(m.text) == "" {
		return nil
	}
	lines := []string{"%manual"}
	for _, l := range strings.Split(strings.Trim(m.text, "\n"), "\n") {
		lines = append(lines, strings.TrimRight(l, " \t"))
	}
	return append(lines, "%end")
}

func (m *Manual) build(*generation, *defs.Node) error { return nil }
