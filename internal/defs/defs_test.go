package defs

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefs_String(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	d := New()
	d.AddExtern("/other/x")
	d.AddExtern("/other/x")
	s := NewSuite("s")
	require.NoError(t, d.AddSuite(s))
	s.AddVariable("ECF_HOME", "/home")
	require.NoError(t, s.AddLimit("l1", 2))

	f := NewFamily("f")
	require.NoError(t, s.AddChild(f))
	require.NoError(t, f.AddRepeat(&Repeat{Kind: RepeatDate, Name: "YMD", Start: 20200101, End: 20201231, Step: 1}))

	task := NewTask("t")
	require.NoError(t, f.AddChild(task))
	task.AddEvent("a")
	task.AddTrigger("/other/x eq complete", "/other/x")
	task.AddPartTrigger("../f:YMD gt 20200105", true, "/s/f:YMD")
	task.AddInLimit(InLimit{Name: "l1", Path: "/s"})
	task.AddMeter(Meter{Name: "m", Min: 0, Max: 10, Threshold: 10})
	task.AddLabel("info", "hello")
	task.AddDefstatus("suspended")
	task.AddTime("+00:02")
	task.AddDate(Date{Day: 1})
	task.AddDay("monday")
	task.AddCron(&Cron{WeekDays: []int{0, 2}, TimeSeries: "11:00"})

	// --- Act ---
	got := d.String()

	// --- Assert ---
	want := strings.Join([]string{
		"extern /other/x",
		"suite s",
		"  edit ECF_HOME '/home'",
		"  limit l1 2",
		"  family f",
		"    repeat date YMD 20200101 20201231",
		"    task t",
		"      defstatus suspended",
		"      trigger /other/x eq complete",
		"      trigger -a ../f:YMD gt 20200105",
		"      inlimit /s:l1",
		"      label info \"hello\"",
		"      meter m 0 10 10",
		"      event a",
		"      time +00:02",
		"      date 1.*.*",
		"      day monday",
		"      cron -w 0,2 11:00",
		"  endfamily",
		"endsuite",
		"",
	}, "\n")
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("definition mismatch (-want +got):\n%s", diff)
	}
	assert.NoError(t, d.Check())
}

func TestAttributeLines(t *testing.T) {
	t.Parallel()

	ts := func(h, m int) *TimeSlot { return &TimeSlot{Hour: h, Minute: m} }

	testCases := []struct {
		name     string
		attr     interface{ String() string }
		expected string
	}{
		{"repeat date with step", &Repeat{Kind: RepeatDate, Name: "D", Start: 20200101, End: 20200201, Step: 7}, "repeat date D 20200101 20200201 7"},
		{"repeat integer", &Repeat{Kind: RepeatInteger, Name: "I", Start: 1, End: 5, Step: 1}, "repeat integer I 1 5"},
		{"repeat string", &Repeat{Kind: RepeatString, Name: "S", Values: []string{"a", "b"}}, `repeat string S "a" "b"`},
		{"repeat enumerated", &Repeat{Kind: RepeatEnumerated, Name: "E", Values: []string{"1", "2"}}, `repeat enumerated E "1" "2"`},
		{"repeat datetime", &Repeat{Kind: RepeatDateTime, Name: "DT", StartText: "20190101T120000", EndText: "20190102T000000", StepText: "36:01:05"}, "repeat datetime DT 20190101T120000 20190102T000000 36:01:05"},
		{"repeat day", &Repeat{Kind: RepeatDay, Step: 1}, "repeat day 1"},
		{"repeat datelist", &Repeat{Kind: RepeatDateList, Name: "DL", Values: []string{"20200101", "20200315"}}, `repeat datelist DL "20200101" "20200315"`},
		{"late", &Late{Submitted: ts(0, 15), Active: ts(20, 0), Complete: ts(2, 0), CompleteRelative: true}, "late -s +00:15 -a 20:00 -c +02:00"},
		{"relative autocancel", &Autocancel{Time: ts(1, 30), Relative: true}, "autocancel +01:30"},
		{"absolute autocancel", &Autocancel{Time: ts(1, 30)}, "autocancel 01:30"},
		{"autocancel days", &Autocancel{Days: 3}, "autocancel 3"},
		{"zombie", Zombie{Type: "ecf", Action: "fob", Lifetime: 300}, "zombie ecf:fob::300"},
		{"cron last week days", &Cron{LastWeekDays: []int{5}, TimeSeries: "23:00"}, "cron -w 5L 23:00"},
		{"cron last day of month", &Cron{DaysOfMonth: []int{1}, LastDayOfMonth: true, TimeSeries: "23:00"}, "cron -d 1,L 23:00"},
		{"cron everything", &Cron{WeekDays: []int{1}, LastWeekDays: []int{5}, DaysOfMonth: []int{1}, LastDayOfMonth: true, Months: []int{1, 12}, TimeSeries: "+01:00"}, "cron -w 1,5L -d 1,L -m 1,12 +01:00"},
		{"date", Date{Day: 31, Month: 12, Year: 2012}, "date 31.12.2012"},
		{"inlimit by name with tokens", InLimit{Name: "l", Tokens: 2}, "inlimit l 2"},
		{"inlimit on submission", InLimit{Name: "l", Path: "/s/f", Submission: true}, "inlimit -s /s/f:l"},
		{"inlimit on submission with tokens", InLimit{Name: "l", Tokens: 3, Submission: true}, "inlimit -s l 3"},
		{"edit", Variable{Name: "A", Value: "x y"}, "edit A 'x y'"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, tc.attr.String())
		})
	}
}

func TestParseTimeSlot(t *testing.T) {
	t.Parallel()

	slot, rel, err := ParseTimeSlot("+01:30")
	require.NoError(t, err)
	assert.True(t, rel)
	assert.Equal(t, TimeSlot{Hour: 1, Minute: 30}, slot)

	_, _, err = ParseTimeSlot("0130")
	assert.ErrorContains(t, err, "expected hh:mm")
}

func TestNode_Structure(t *testing.T) {
	t.Parallel()

	s := NewSuite("s")
	task := NewTask("t")
	require.NoError(t, s.AddChild(task))

	assert.ErrorContains(t, s.AddChild(NewTask("t")), "duplicate node")
	assert.ErrorContains(t, task.AddChild(NewTask("x")), "below task")
	assert.ErrorContains(t, s.AddChild(NewSuite("x")), "cannot add suite")

	require.NoError(t, task.AddRepeat(&Repeat{Kind: RepeatInteger, Name: "A", Start: 1, End: 2, Step: 1}))
	err := task.AddRepeat(&Repeat{Kind: RepeatInteger, Name: "B", Start: 1, End: 2, Step: 1})
	assert.ErrorContains(t, err, "already has a repeat")

	task.AddVariable("V", "1")
	task.AddVariable("V", "2")
	v, ok := task.Variable("V")
	assert.True(t, ok)
	assert.Equal(t, "2", v)
	assert.Len(t, task.Variables, 1)

	d := New()
	require.NoError(t, d.AddSuite(s))
	assert.ErrorContains(t, d.AddSuite(NewSuite("s")), "duplicate suite")
	found, ok := d.Find("/s/t")
	require.True(t, ok)
	assert.Same(t, task, found)
}

func TestDefs_Check(t *testing.T) {
	t.Parallel()

	d := New()
	s := NewSuite("s")
	require.NoError(t, d.AddSuite(s))
	task := NewTask("t")
	require.NoError(t, s.AddChild(task))

	task.AddTrigger("missing eq complete", "/s/missing")
	task.AddPartTrigger(":NOPE eq 1", false, "/s/t:NOPE")
	task.AddPartTrigger(":ECF_TRYNO gt 1", true, "/s/t:ECF_TRYNO")
	task.AddComplete("/ext/t eq complete", "/ext/t")
	task.AddInLimit(InLimit{Name: "l", Path: "/s"})

	err := d.Check()
	require.Error(t, err)
	assert.ErrorContains(t, err, "unknown node /s/missing")
	assert.ErrorContains(t, err, "node /s/t has no attribute NOPE")
	assert.ErrorContains(t, err, "unknown node /ext/t")
	assert.ErrorContains(t, err, "node /s has no limit l")
	assert.NotContains(t, err.Error(), "ECF_TRYNO")

	d.AddExtern("/ext/t")
	err = d.Check()
	require.Error(t, err)
	assert.NotContains(t, err.Error(), "/ext/t")
}
