package builder

import (
	"fmt"
	"sort"

	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/convert"
	"github.com/zclconf/go-cty/cty/gocty"

	"github.com/vk/ecflowgen/internal/config"
	"github.com/vk/ecflowgen/internal/flow"
	"github.com/vk/ecflowgen/internal/host"
	"github.com/vk/ecflowgen/internal/script"
)

// node creates c in the current scope, then its attributes and children
// inside its own scope.
func (b *builder) node(c *config.Node) *flow.Node {
	opts, h := b.options(c)

	var n *flow.Node
	switch c.Kind {
	case config.KindSuite:
		n = b.fb.Suite(c.Name, opts...)
	case config.KindFamily:
		n = b.fb.Family(c.Name, opts...)
	case config.KindAnchorFamily:
		n = b.fb.AnchorFamily(c.Name, opts...)
	case config.KindTask:
		n = b.fb.Task(c.Name, opts...)
	default:
		b.errs = append(b.errs, fmt.Errorf("%s: unknown node kind %q", c.Source, c.Kind))
		return nil
	}
	b.links = append(b.links, linkJob{cfg: c, node: n})

	b.fb.Within(n, func() {
		if h != nil && c.Kind != config.KindTask {
			b.fb.BuildHostLimit(h)
		}
		b.attributes(c)
		for _, child := range c.Children {
			b.node(child)
		}
	})
	return n
}

func (b *builder) options(c *config.Node) ([]flow.Option, host.Host) {
	var opts []flow.Option
	var h host.Host
	if c.Host != "" {
		var ok bool
		if h, ok = b.hosts[c.Host]; ok {
			opts = append(opts, flow.WithHost(h))
		} else {
			b.errs = append(b.errs, fmt.Errorf("%s: %s %s uses unknown host %q", c.Source, c.Kind, c.Name, c.Host))
		}
	}
	if len(c.Variables) > 0 {
		opts = append(opts, flow.WithVariables(c.Variables))
	}
	if c.Defstatus != "" {
		opts = append(opts, flow.WithDefstatus(c.Defstatus))
	}
	if c.Script != "" {
		opts = append(opts, flow.WithScript(script.New(c.Script)))
	}
	if c.Manual != "" {
		opts = append(opts, flow.WithManual(c.Manual))
	}
	if c.Workdir != "" {
		opts = append(opts, flow.WithWorkdir(c.Workdir))
	}
	if len(c.Modules) > 0 {
		opts = append(opts, flow.WithModules(c.Modules...))
	}
	if c.Tree != nil {
		opts = append(opts, flow.WithJSON(c.Tree))
	}
	return opts, h
}

// attributes attaches everything that references no other node.
func (b *builder) attributes(c *config.Node) {
	for _, name := range sortedKeys(c.Limits) {
		b.fb.Add(flow.NewLimit(name, c.Limits[name]))
	}
	for _, name := range sortedKeys(c.Labels) {
		b.fb.Add(flow.NewLabel(name, c.Labels[name]))
	}
	for _, m := range c.Meters {
		if m.Threshold != nil {
			b.fb.Add(flow.NewMeter(m.Name, m.Min, m.Max, *m.Threshold))
		} else {
			b.fb.Add(flow.NewMeter(m.Name, m.Min, m.Max))
		}
	}
	for _, e := range c.Events {
		b.fb.Add(flow.NewEvent(e))
	}
	if c.Repeat != nil {
		b.fb.Attach(newRepeat(c.Repeat))
	}
	for _, t := range c.Times {
		b.fb.Attach(flow.NewTime(t))
	}
	for _, t := range c.Todays {
		b.fb.Attach(flow.NewToday(t))
	}
	for _, d := range c.Dates {
		b.fb.Attach(flow.NewDate(d))
	}
	for _, d := range c.Days {
		b.fb.Attach(flow.NewDay(d))
	}
	for _, cr := range c.Crons {
		b.fb.Attach(flow.NewCron(cr.Value, flow.CronFields{
			DaysOfWeek:     cr.DaysOfWeek,
			DaysOfMonth:    cr.DaysOfMonth,
			LastDayOfMonth: cr.LastDayOfMonth,
			Months:         cr.Months,
		}))
	}
	if c.Late != "" {
		b.fb.Attach(flow.NewLate(c.Late))
	}
	if c.Autocancel != nil {
		b.fb.Attach(flow.NewAutocancel(c.Autocancel))
	}
	if c.Zombies != nil {
		b.fb.Attach(flow.NewZombies(c.Zombies...))
	}
}

func newRepeat(r *config.Repeat) (flow.Attribute, error) {
	switch r.Kind {
	case "date":
		steps, err := ints(r.Step)
		if err != nil {
			return nil, fmt.Errorf("repeat date %s: %w", r.Name, err)
		}
		return flow.NewRepeatDate(r.Name, r.Start, r.End, steps...)
	case "datetime":
		if r.Step == nil {
			return flow.NewRepeatDateTime(r.Name, r.Start, r.End)
		}
		return flow.NewRepeatDateTime(r.Name, r.Start, r.End, r.Step)
	case "integer":
		bounds, err := ints(r.Start, r.End)
		if err != nil {
			return nil, fmt.Errorf("repeat integer %s: %w", r.Name, err)
		}
		if len(bounds) != 2 {
			return nil, fmt.Errorf("repeat integer %s needs a start and an end", r.Name)
		}
		steps, err := ints(r.Step)
		if err != nil {
			return nil, fmt.Errorf("repeat integer %s: %w", r.Name, err)
		}
		return flow.NewRepeatInteger(r.Name, bounds[0], bounds[1], steps...)
	case "enumerated":
		values, err := ints(r.Values...)
		if err != nil {
			return nil, fmt.Errorf("repeat enumerated %s: %w", r.Name, err)
		}
		return flow.NewRepeatEnumerated(r.Name, values)
	case "datelist":
		return flow.NewRepeatDateList(r.Name, r.Values)
	case "string":
		values := make([]string, len(r.Values))
		for i, v := range r.Values {
			values[i] = fmt.Sprint(v)
		}
		return flow.NewRepeatString(r.Name, values)
	case "day":
		steps, err := ints(r.Step)
		if err != nil {
			return nil, fmt.Errorf("repeat day: %w", err)
		}
		step := 1
		if len(steps) > 0 {
			step = steps[0]
		}
		return flow.NewRepeatDay(step), nil
	}
	return nil, fmt.Errorf("unknown repeat kind %q", r.Kind)
}

// ints converts the non-nil values to integers through cty, so integral
// floats and numeric strings are accepted.
func ints(values ...any) ([]int, error) {
	var out []int
	for _, v := range values {
		if v == nil {
			continue
		}
		ty, err := gocty.ImpliedType(v)
		if err != nil {
			return nil, fmt.Errorf("%v (%T) is not an integer", v, v)
		}
		cv, err := gocty.ToCtyValue(v, ty)
		if err == nil {
			cv, err = convert.Convert(cv, cty.Number)
		}
		var n int
		if err == nil {
			err = gocty.FromCtyValue(cv, &n)
		}
		if err != nil {
			return nil, fmt.Errorf("%v is not an integer", v)
		}
		out = append(out, n)
	}
	return out, nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
