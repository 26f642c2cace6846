package defs

import (
	"fmt"
	"strconv"
	"strings"
)

// Variable is an `edit` line.
type Variable struct {
	Name  string
	Value string
}

func (v Variable) String() string { return fmt.Sprintf("edit %s '%s'", v.Name, v.Value) }

// Limit is a `limit` declaration.
type Limit struct {
	Name string
	Max  int
}

func (l Limit) String() string { return fmt.Sprintf("limit %s %d", l.Name, l.Max) }

// InLimit attaches a node to a limit. Path is empty when the limit is
// looked up by name through the ancestors. A Submission inlimit holds its
// tokens only while the job is being submitted.
type InLimit struct {
	Name       string
	Path       string
	Tokens     int
	Submission bool
}

func (l InLimit) String() string {
	s := "inlimit "
	if l.Submission {
		s += "-s "
	}
	if l.Path != "" {
		s += l.Path + ":"
	}
	s += l.Name
	if l.Tokens > 1 {
		s += " " + strconv.Itoa(l.Tokens)
	}
	return s
}

// Label is a `label` line.
type Label struct {
	Name  string
	Value string
}

func (l Label) String() string { return fmt.Sprintf("label %s \"%s\"", l.Name, l.Value) }

// Meter is a `meter` line.
type Meter struct {
	Name      string
	Min       int
	Max       int
	Threshold int
}

func (m Meter) String() string {
	return fmt.Sprintf("meter %s %d %d %d", m.Name, m.Min, m.Max, m.Threshold)
}

// Event is an `event` line.
type Event struct {
	Name string
}

func (e Event) String() string { return "event " + e.Name }

// Date is a `date` line. Zero fields print as wildcards.
type Date struct {
	Day, Month, Year int
}

func (d Date) String() string {
	part := func(v int) string {
		if v == 0 {
			return "*"
		}
		return strconv.Itoa(v)
	}
	return fmt.Sprintf("date %s.%s.%s", part(d.Day), part(d.Month), part(d.Year))
}

// TimeSlot is an hh:mm value.
type TimeSlot struct {
	Hour, Minute int
}

func (t TimeSlot) String() string { return fmt.Sprintf("%02d:%02d", t.Hour, t.Minute) }

// ParseTimeSlot parses "hh:mm", with an optional leading "+" reported as
// relative.
func ParseTimeSlot(s string) (TimeSlot, bool, error) {
	relative := strings.HasPrefix(s, "+")
	s = strings.TrimPrefix(s, "+")
	hh, mm, ok := strings.Cut(s, ":")
	if !ok {
		return TimeSlot{}, false, fmt.Errorf("invalid time slot %q, expected hh:mm", s)
	}
	h, err := strconv.Atoi(hh)
	if err != nil {
		return TimeSlot{}, false, fmt.Errorf("invalid hour in time slot %q: %w", s, err)
	}
	m, err := strconv.Atoi(mm)
	if err != nil {
		return TimeSlot{}, false, fmt.Errorf("invalid minute in time slot %q: %w", s, err)
	}
	return TimeSlot{Hour: h, Minute: m}, relative, nil
}

// Cron is a `cron` line. WeekDays use 0 for Sunday.
type Cron struct {
	WeekDays       []int
	LastWeekDays   []int
	DaysOfMonth    []int
	LastDayOfMonth bool
	Months         []int
	TimeSeries     string
}

func joinInts(vs []int, suffix string) []string {
	out := make([]string, len(vs))
	for i, v := range vs {
		out[i] = strconv.Itoa(v) + suffix
	}
	return out
}

func (c *Cron) String() string {
	parts := []string{"cron"}
	if w := append(joinInts(c.WeekDays, ""), joinInts(c.LastWeekDays, "L")...); len(w) > 0 {
		parts = append(parts, "-w", strings.Join(w, ","))
	}
	d := joinInts(c.DaysOfMonth, "")
	if c.LastDayOfMonth {
		d = append(d, "L")
	}
	if len(d) > 0 {
		parts = append(parts, "-d", strings.Join(d, ","))
	}
	if len(c.Months) > 0 {
		parts = append(parts, "-m", strings.Join(joinInts(c.Months, ""), ","))
	}
	parts = append(parts, c.TimeSeries)
	return strings.Join(parts, " ")
}

// Late is a `late` line. Submitted is always relative and Active always
// absolute.
type Late struct {
	Submitted        *TimeSlot
	Active           *TimeSlot
	Complete         *TimeSlot
	CompleteRelative bool
}

func (l *Late) String() string {
	parts := []string{"late"}
	if l.Submitted != nil {
		parts = append(parts, "-s", "+"+l.Submitted.String())
	}
	if l.Active != nil {
		parts = append(parts, "-a", l.Active.String())
	}
	if l.Complete != nil {
		c := l.Complete.String()
		if l.CompleteRelative {
			c = "+" + c
		}
		parts = append(parts, "-c", c)
	}
	return strings.Join(parts, " ")
}

// Autocancel is an `autocancel` line: either a number of days or a time
// slot, optionally relative.
type Autocancel struct {
	Days     int
	Time     *TimeSlot
	Relative bool
}

func (a *Autocancel) String() string {
	if a.Time == nil {
		return fmt.Sprintf("autocancel %d", a.Days)
	}
	if a.Relative {
		return "autocancel +" + a.Time.String()
	}
	return "autocancel " + a.Time.String()
}

// Zombie is a `zombie` line.
type Zombie struct {
	Type     string
	Action   string
	Children []string
	Lifetime int
}

func (z Zombie) String() string {
	return fmt.Sprintf("zombie %s:%s:%s:%d", z.Type, z.Action, strings.Join(z.Children, ","), z.Lifetime)
}

// RepeatKind selects the repeat flavour.
type RepeatKind int

const (
	RepeatDate RepeatKind = iota
	RepeatDateTime
	RepeatInteger
	RepeatString
	RepeatEnumerated
	RepeatDay
	RepeatDateList
)

// Repeat is a `repeat` line. Start/End/Step serve the date, integer and
// day repeats; the datetime repeat keeps its textual forms. Values holds
// the string, enumerated and datelist entries.
type Repeat struct {
	Kind   RepeatKind
	Name   string
	Start  int64
	End    int64
	Step   int64
	Values []string

	StartText string
	EndText   string
	StepText  string
}

func quoteAll(vs []string) string {
	out := make([]string, len(vs))
	for i, v := range vs {
		out[i] = strconv.Quote(v)
	}
	return strings.Join(out, " ")
}

func (r *Repeat) String() string {
	switch r.Kind {
	case RepeatDate, RepeatInteger:
		kind := "date"
		if r.Kind == RepeatInteger {
			kind = "integer"
		}
		s := fmt.Sprintf("repeat %s %s %d %d", kind, r.Name, r.Start, r.End)
		if r.Step != 1 {
			s += fmt.Sprintf(" %d", r.Step)
		}
		return s
	case RepeatDateTime:
		return fmt.Sprintf("repeat datetime %s %s %s %s", r.Name, r.StartText, r.EndText, r.StepText)
	case RepeatString:
		return fmt.Sprintf("repeat string %s %s", r.Name, quoteAll(r.Values))
	case RepeatEnumerated:
		return fmt.Sprintf("repeat enumerated %s %s", r.Name, quoteAll(r.Values))
	case RepeatDay:
		return fmt.Sprintf("repeat day %d", r.Step)
	case RepeatDateList:
		return fmt.Sprintf("repeat datelist %s %s", r.Name, quoteAll(r.Values))
	}
	return fmt.Sprintf("repeat unknown %s", r.Name)
}
