// Package cron converts five-field crontab expressions into the time
// series used by ecFlow time, today and cron attributes.
package cron

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/vk/ecflowgen/internal/defs"
)

var names = map[string]int{
	"SUN": 0, "MON": 1, "TUE": 2, "WED": 3, "THU": 4, "FRI": 5, "SAT": 6,
	"JAN": 1, "FEB": 2, "MAR": 3, "APR": 4, "MAY": 5, "JUN": 6,
	"JUL": 7, "AUG": 8, "SEP": 9, "OCT": 10, "NOV": 11, "DEC": 12,
}

// Error reports a crontab that cannot be expressed as an ecFlow series.
type Error struct {
	Spec   string
	Reason string
}

func (e *Error) Error() string {
	if e.Reason == "" {
		return fmt.Sprintf("Cron: Cannot represent %s", e.Spec)
	}
	return fmt.Sprintf("Cron: Cannot represent %s: %s", e.Spec, e.Reason)
}

// Crontab is a parsed `m h dom mon dow` expression. Nil restriction
// slices mean `*`.
type Crontab struct {
	DaysOfWeek  []int
	DaysOfMonth []int
	Months      []int
	series      string
}

type field struct {
	first, last int
}

var (
	minuteField = field{0, 59}
	hourField   = field{0, 23}
	domField    = field{1, 31}
	monthField  = field{1, 12}
	dowField    = field{0, 6}
)

// num maps a token onto the field's range, wrapping out of range values
// so that 7 is Sunday again.
func (f field) num(tok string) (int, error) {
	up := strings.ToUpper(tok)
	if len(up) > 3 {
		up = up[:3]
	}
	v, ok := names[up]
	if !ok {
		n, err := strconv.Atoi(tok)
		if err != nil {
			return 0, fmt.Errorf("invalid value %q", tok)
		}
		v = n
	}
	span := f.last - f.first + 1
	return ((v-f.first)%span+span)%span + f.first, nil
}

// expand parses one field. It returns nil for `*`.
func (f field) expand(spec string) ([]int, error) {
	if spec == "*" {
		return nil, nil
	}

	set := map[int]struct{}{}
	for _, part := range strings.Split(spec, ",") {
		rng, stepStr, hasStep := strings.Cut(part, "/")
		if !hasStep {
			stepStr = "1"
		}
		lo, hi, isRange := strings.Cut(rng, "-")
		if !isRange {
			hi = lo
		}

		start, end := f.first, f.last
		if rng != "*" {
			var err error
			if start, err = f.num(lo); err != nil {
				return nil, err
			}
			if end, err = f.num(hi); err != nil {
				return nil, err
			}
		}
		step, err := f.num(stepStr)
		if err != nil {
			return nil, err
		}
		if start > end {
			return nil, fmt.Errorf("range %q is reversed", part)
		}
		if step <= 0 {
			return nil, fmt.Errorf("step in %q must be positive", part)
		}
		for i := start; i <= end; i += step {
			set[i] = struct{}{}
		}
	}

	out := make([]int, 0, len(set))
	for v := range set {
		out = append(out, v)
	}
	sort.Ints(out)
	return out, nil
}

func span(from, to int) []int {
	out := make([]int, 0, to-from+1)
	for i := from; i <= to; i++ {
		out = append(out, i)
	}
	return out
}

// Parse parses a five-field crontab expression.
func Parse(spec string) (*Crontab, error) {
	fields := strings.Fields(spec)
	if len(fields) != 5 {
		return nil, &Error{Spec: spec, Reason: "expected 5 fields"}
	}

	parsed := make([][]int, 5)
	for i, f := range []field{minuteField, hourField, domField, monthField, dowField} {
		vals, err := f.expand(fields[i])
		if err != nil {
			return nil, &Error{Spec: spec, Reason: err.Error()}
		}
		parsed[i] = vals
	}
	minutes, hours := parsed[0], parsed[1]

	c := &Crontab{DaysOfMonth: parsed[2], Months: parsed[3], DaysOfWeek: parsed[4]}

	if minutes == nil && hours == nil {
		c.series = "00:00 23:59 00:01"
		return c, nil
	}
	if minutes == nil {
		minutes = span(0, 59)
	}
	if hours == nil {
		hours = span(0, 23)
	}

	// Hours and minutes are sorted, so the product is in time order.
	slots := make([]int, 0, len(hours)*len(minutes))
	for _, h := range hours {
		for _, m := range minutes {
			slots = append(slots, h*60+m)
		}
	}

	if len(slots) == 1 {
		c.series = slot(slots[0])
		return c, nil
	}
	inc := slots[1] - slots[0]
	for i := 2; i < len(slots); i++ {
		if slots[i]-slots[i-1] != inc {
			return nil, &Error{Spec: spec}
		}
	}
	c.series = fmt.Sprintf("%s %s %s", slot(slots[0]), slot(slots[len(slots)-1]), slot(inc))
	return c, nil
}

func slot(minutes int) string {
	return fmt.Sprintf("%02d:%02d", minutes/60, minutes%60)
}

// Series returns the time series: a single slot or `start end step`.
func (c *Crontab) Series() string { return c.series }

func (c *Crontab) restricted() bool {
	return c.DaysOfWeek != nil || c.DaysOfMonth != nil || c.Months != nil
}

// Time returns the series for a `time` attribute. Day and month
// restrictions cannot be expressed there.
func (c *Crontab) Time() (string, error) {
	if c.restricted() {
		return "", fmt.Errorf("time attributes cannot restrict days or months, use a cron attribute")
	}
	return c.series, nil
}

// Today returns the series for a `today` attribute.
func (c *Crontab) Today() (string, error) {
	if c.restricted() {
		return "", fmt.Errorf("today attributes cannot restrict days or months, use a cron attribute")
	}
	return c.series, nil
}

// Cron returns the equivalent cron attribute.
func (c *Crontab) Cron() *defs.Cron {
	return &defs.Cron{
		WeekDays:    c.DaysOfWeek,
		DaysOfMonth: c.DaysOfMonth,
		Months:      c.Months,
		TimeSeries:  c.series,
	}
}

// IsSeries reports whether value is already an ecFlow time series
// (`hh:mm`, `+hh:mm` or `start end step`) rather than a crontab.
func IsSeries(value string) bool {
	return len(value) >= 5 && strings.Contains(value, ":")
}
