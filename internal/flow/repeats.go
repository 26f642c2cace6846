package flow

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/vk/ecflowgen/internal/defs"
	"github.com/vk/ecflowgen/internal/expr"
)

const (
	dateLayout     = "20060102"
	dateTimeLayout = "20060102T150405"
)

var isoDate = regexp.MustCompile(`^\d\d\d+-\d\d-\d\d$`)

// isDate reports whether v looks like a date: a time.Time, a yyyy-mm-dd
// string, or a yyyymmdd / yyyymmddhh integer.
func isDate(v any) bool {
	switch x := v.(type) {
	case time.Time:
		return true
	case string:
		return isoDate.MatchString(x)
	}
	if !isInt(v) {
		return false
	}
	n, _ := toInt(v)
	return (n >= 19000100 && n <= 21990101) || (n >= 1900010000 && n <= 2199010100)
}

// asDate converts v to a time. Integers are yyyymmdd or yyyymmddhh;
// strings are yyyy-mm-dd, yyyymmdd or yyyymmddThh[mm[ss]].
func asDate(v any) (time.Time, error) {
	switch x := v.(type) {
	case time.Time:
		return x, nil
	case string:
		switch {
		case strings.Contains(x, "T"):
			for _, layout := range []string{"20060102T15", "20060102T1504", dateTimeLayout} {
				if t, err := time.Parse(layout, x); err == nil {
					return t, nil
				}
			}
			return time.Time{}, fmt.Errorf("invalid date %q", x)
		case strings.Contains(x, "-"):
			t, err := time.Parse("2006-01-02", x)
			if err != nil {
				return time.Time{}, fmt.Errorf("invalid date %q: %w", x, err)
			}
			return t, nil
		}
		t, err := time.Parse(dateLayout, x)
		if err != nil {
			return time.Time{}, fmt.Errorf("invalid date %q: %w", x, err)
		}
		return t, nil
	}
	n, err := toInt(v)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %v", v)
	}
	hour := 0
	if n >= 21990101 {
		n, hour = n/100, n%100
	}
	t := time.Date(n/10000, time.Month(n/100%100), n%100, hour, 0, 0, 0, time.UTC)
	if t.Year() != n/10000 || int(t.Month()) != n/100%100 || t.Day() != n%100 {
		return time.Time{}, fmt.Errorf("invalid date %v", v)
	}
	return t, nil
}

func dateInt(t time.Time) int64 {
	return int64(t.Year()*10000 + int(t.Month())*100 + t.Day())
}

// asDelta converts v to a duration: a time.Duration or "HH:MM[:SS]".
func asDelta(v any) (time.Duration, error) {
	switch x := v.(type) {
	case time.Duration:
		return x, nil
	case string:
		parts := strings.Split(x, ":")
		if len(parts) < 2 || len(parts) > 3 {
			return 0, fmt.Errorf("invalid time delta %q, expected HH:MM[:SS]", x)
		}
		var total time.Duration
		units := []time.Duration{time.Hour, time.Minute, time.Second}
		for i, p := range parts {
			n, err := strconv.Atoi(p)
			if err != nil {
				return 0, fmt.Errorf("invalid time delta %q: %w", x, err)
			}
			total += time.Duration(n) * units[i]
		}
		return total, nil
	}
	return 0, fmt.Errorf("invalid time delta %v", v)
}

// formatDelta renders d as HH:MM:SS; hours may exceed 24.
func formatDelta(d time.Duration) string {
	s := int64(d / time.Second)
	return fmt.Sprintf("%02d:%02d:%02d", s/3600, s/60%60, s%60)
}

// RepeatDate loops over days, keeping the current date in yyyymmdd form.
type RepeatDate struct {
	exportBase
	start, end time.Time
	step       int
}

// NewRepeatDate creates a date repeat. start and end accept anything
// asDate does; the step is in days and defaults to one.
func NewRepeatDate(name string, start, end any, step ...int) (*RepeatDate, error) {
	if err := checkVariableName(name); err != nil {
		return nil, err
	}
	s, err := asDate(start)
	if err != nil {
		return nil, err
	}
	e, err := asDate(end)
	if err != nil {
		return nil, err
	}
	st := 1
	if len(step) > 0 {
		st = step[0]
	}
	return &RepeatDate{exportBase: exportBase{attrBase: attrBase{name: name}}, start: s, end: e, step: st}, nil
}

func (r *RepeatDate) AsExpr() expr.Expr { return expr.RefTo(r) }

// Julian is the current date as a julian day number.
func (r *RepeatDate) Julian() expr.Expr { return expr.Call("cal::date_to_julian", r) }
func (r *RepeatDate) Day() expr.Expr { return expr.Mod(r, 100) }
func (r *RepeatDate) Month() expr.Expr { return expr.Mod(expr.Div(r, 100), 100) }
func (r *RepeatDate) Year() expr.Expr { return expr.Div(r, 10000) }

// DayOfWeek counts from Monday as 0.
func (r *RepeatDate) DayOfWeek() expr.Expr { return expr.Mod(r.Julian(), 7) }

func (r *RepeatDate) IsWeekday(d time.Weekday) expr.Expr {
	return expr.Eq(r.DayOfWeek(), (int(d)+6)%7)
}

// Add offsets the date by days, or adds the julian values of two date
// repeats.
func (r *RepeatDate) Add(v any) expr.Expr {
	if o, ok := v.(*RepeatDate); ok {
		return expr.Add(r.Julian(), o.Julian())
	}
	return expr.Add(r, v)
}

func (r *RepeatDate) Sub(v any) expr.Expr {
	if o, ok := v.(*RepeatDate); ok {
		return expr.Sub(r.Julian(), o.Julian())
	}
	return expr.Sub(r, v)
}

func (r *RepeatDate) follow(name string) (Attribute, error) {
	return NewRepeatDate(name, r.start, r.end, r.step)
}

func (r *RepeatDate) build(_ *generation, t *defs.Node) error {
	return t.AddRepeat(&defs.Repeat{
		Kind:  defs.RepeatDate,
		Name:  r.name,
		Start: dateInt(r.start),
		End:   dateInt(r.end),
		Step:  int64(r.step),
	})
}

// RepeatDateTime loops over instants; its value is seconds since the
// epoch.
type RepeatDateTime struct {
	exportBase
	start, end time.Time
	step       time.Duration
}

// NewRepeatDateTime creates a datetime repeat. The step defaults to one
// day.
func NewRepeatDateTime(name string, start, end any, step ...any) (*RepeatDateTime, error) {
	if err := checkVariableName(name); err != nil {
		return nil, err
	}
	s, err := asDate(start)
	if err != nil {
		return nil, err
	}
	e, err := asDate(end)
	if err != nil {
		return nil, err
	}
	st := 24 * time.Hour
	if len(step) > 0 {
		if st, err = asDelta(step[0]); err != nil {
			return nil, err
		}
	}
	return &RepeatDateTime{exportBase: exportBase{attrBase: attrBase{name: name}}, start: s, end: e, step: st}, nil
}

func (r *RepeatDateTime) AsExpr() expr.Expr { return expr.RefTo(r) }
func (r *RepeatDateTime) Second() expr.Expr { return expr.Mod(r, 60) }
func (r *RepeatDateTime) Minute() expr.Expr { return expr.Mod(expr.Div(r, 60), 60) }
func (r *RepeatDateTime) Hour() expr.Expr { return expr.Mod(expr.Div(r, 3600), 24) }

// DayOfWeek counts from Sunday as 0.
func (r *RepeatDateTime) DayOfWeek() expr.Expr {
	return expr.Mod(expr.Add(expr.Div(r, 86400), 4), 7)
}

func (r *RepeatDateTime) follow(name string) (Attribute, error) {
	return NewRepeatDateTime(name, r.start, r.end, r.step)
}

func (r *RepeatDateTime) build(_ *generation, t *defs.Node) error {
	return t.AddRepeat(&defs.Repeat{
		Kind:      defs.RepeatDateTime,
		Name:      r.name,
		StartText: r.start.Format(dateTimeLayout),
		EndText:   r.end.Format(dateTimeLayout),
		StepText:  formatDelta(r.step),
	})
}

// RepeatDateList loops over an explicit list of dates. Like RepeatDate its
// value is the current date in yyyymmdd form.
type RepeatDateList struct {
	exportBase
	dates []time.Time
}

// NewRepeatDateList creates a datelist repeat. Each date accepts anything
// asDate does.
func NewRepeatDateList(name string, dates []any) (*RepeatDateList, error) {
	if err := checkVariableName(name); err != nil {
		return nil, err
	}
	if len(dates) == 0 {
		return nil, fmt.Errorf("repeat %s needs at least one date", name)
	}
	ts := make([]time.Time, len(dates))
	for i, d := range dates {
		t, err := asDate(d)
		if err != nil {
			return nil, err
		}
		ts[i] = t
	}
	return &RepeatDateList{exportBase: exportBase{attrBase: attrBase{name: name}}, dates: ts}, nil
}

func (r *RepeatDateList) AsExpr() expr.Expr { return expr.RefTo(r) }
func (r *RepeatDateList) Day() expr.Expr { return expr.Mod(r, 100) }
func (r *RepeatDateList) Month() expr.Expr { return expr.Mod(expr.Div(r, 100), 100) }
func (r *RepeatDateList) Year() expr.Expr { return expr.Div(r, 10000) }

func (r *RepeatDateList) follow(name string) (Attribute, error) {
	return &RepeatDateList{exportBase: exportBase{attrBase: attrBase{name: name}}, dates: r.dates}, nil
}

func (r *RepeatDateList) build(_ *generation, t *defs.Node) error {
	vs := make([]string, len(r.dates))
	for i, d := range r.dates {
		vs[i] = d.Format(dateLayout)
	}
	return t.AddRepeat(&defs.Repeat{Kind: defs.RepeatDateList, Name: r.name, Values: vs})
}

// RepeatInteger loops over an integer range.
type RepeatInteger struct {
	exportBase
	start, end, step int
}

func NewRepeatInteger(name string, start, end int, step ...int) (*RepeatInteger, error) {
	if err := checkVariableName(name); err != nil {
		return nil, err
	}
	st := 1
	if len(step) > 0 {
		st = step[0]
	}
	return &RepeatInteger{exportBase: exportBase{attrBase: attrBase{name: name}}, start: start, end: end, step: st}, nil
}

func (r *RepeatInteger) AsExpr() expr.Expr { return expr.RefTo(r) }

func (r *RepeatInteger) build(_ *generation, t *defs.Node) error {
	return t.AddRepeat(&defs.Repeat{
		Kind:  defs.RepeatInteger,
		Name:  r.name,
		Start: int64(r.start),
		End:   int64(r.end),
		Step:  int64(r.step),
	})
}

// RepeatString loops over a list of strings. In expressions its value is
// the index of the current string.
type RepeatString struct {
	exportBase
	values []string
}

func NewRepeatString(name string, values []string) (*RepeatString, error) {
	if err := checkVariableName(name); err != nil {
		return nil, err
	}
	if len(values) == 0 {
		return nil, fmt.Errorf("repeat %s needs at least one value", name)
	}
	return &RepeatString{exportBase: exportBase{attrBase: attrBase{name: name}}, values: values}, nil
}

func (r *RepeatString) AsExpr() expr.Expr { return expr.RefTo(r) }
func (r *RepeatString) Values() []string { return r.values }

// operand maps a string onto its index; other operands pass through.
func (r *RepeatString) operand(v any) any {
	s, ok := v.(string)
	if !ok {
		return v
	}
	for i, val := range r.values {
		if val == s {
			return i
		}
	}
	return expr.Invalid(fmt.Errorf("RepeatString: Cannot find %s in %v", s, r.values))
}

func (r *RepeatString) Eq(v any) expr.Expr { return expr.Eq(r, r.operand(v)) }
func (r *RepeatString) Ne(v any) expr.Expr { return expr.Ne(r, r.operand(v)) }
func (r *RepeatString) Lt(v any) expr.Expr { return expr.Lt(r, r.operand(v)) }
func (r *RepeatString) Le(v any) expr.Expr { return expr.Le(r, r.operand(v)) }
func (r *RepeatString) Gt(v any) expr.Expr { return expr.Gt(r, r.operand(v)) }
func (r *RepeatString) Ge(v any) expr.Expr { return expr.Ge(r, r.operand(v)) }

func (r *RepeatString) build(_ *generation, t *defs.Node) error {
	return t.AddRepeat(&defs.Repeat{Kind: defs.RepeatString, Name: r.name, Values: r.values})
}

// RepeatEnumerated loops over a list of integers.
type RepeatEnumerated struct {
	exportBase
	values []string
}

func NewRepeatEnumerated(name string, values []int) (*RepeatEnumerated, error) {
	if err := checkVariableName(name); err != nil {
		return nil, err
	}
	if len(values) == 0 {
		return nil, fmt.Errorf("repeat %s needs at least one value", name)
	}
	vs := make([]string, len(values))
	for i, v := range values {
		vs[i] = strconv.Itoa(v)
	}
	return &RepeatEnumerated{exportBase: exportBase{attrBase: attrBase{name: name}}, values: vs}, nil
}

func (r *RepeatEnumerated) AsExpr() expr.Expr { return expr.RefTo(r) }

func (r *RepeatEnumerated) follow(name string) (Attribute, error) {
	return &RepeatEnumerated{exportBase: exportBase{attrBase: attrBase{name: name}}, values: r.values}, nil
}

func (r *RepeatEnumerated) build(_ *generation, t *defs.Node) error {
	return t.AddRepeat(&defs.Repeat{Kind: defs.RepeatEnumerated, Name: r.name, Values: r.values})
}

// RepeatDay repeats a node forever, every step days.
type RepeatDay struct {
	attrBase
	step int
}

func NewRepeatDay(step int) *RepeatDay {
	return &RepeatDay{attrBase: attrBase{name: "day", fixedKey: "_repeat"}, step: step}
}

func (r *RepeatDay) build(_ *generation, t *defs.Node) error {
	return t.AddRepeat(&defs.Repeat{Kind: defs.RepeatDay, Step: int64(r.step)})
}

// followable repeats can be copied onto another node by Follow.
type followable interface {
	Exportable
	follow(name string) (Attribute, error)
}
