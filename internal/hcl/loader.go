package hcl

import (
	"context"
	"fmt"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"

	"github.com/vk/ecflowgen/internal/config"
	"github.com/vk/ecflowgen/internal/ctxlog"
	"github.com/vk/ecflowgen/internal/fsutil"
)

// Extension is the file extension of HCL suite files.
const Extension = ".hcl"

// Loader is the HCL-specific implementation of the config.Loader interface.
type Loader struct {
	conv *Converter
}

// NewLoader creates a new HCL suite loader.
func NewLoader() *Loader {
	return &Loader{conv: NewConverter()}
}

// Load parses every .hcl file found at paths. Hosts, externs and suites
// may appear in any file.
func (l *Loader) Load(ctx context.Context, paths ...string) (*config.Model, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("HCL loader started.", "path_count", len(paths))

	files, err := fsutil.FindFiles(paths, Extension)
	if err != nil {
		return nil, err
	}
	logger.Debug("Discovered HCL files.", "count", len(files))

	parser := hclparse.NewParser()
	model := config.NewModel()

	for _, file := range files {
		hclFile, diags := parser.ParseHCLFile(file)
		if diags.HasErrors() {
			return nil, fmt.Errorf("failed to parse HCL file %s: %w", file, diags)
		}

		m, err := l.decodeFile(ctx, file, hclFile)
		if err != nil {
			return nil, err
		}
		if err := model.Merge(m); err != nil {
			return nil, err
		}
	}

	logger.Debug("HCL loading complete.", "suites", len(model.Suites), "externs", len(model.Externs), "hosts", len(model.Hosts))
	return model, nil
}

func (l *Loader) decodeFile(ctx context.Context, file string, f *hcl.File) (*config.Model, error) {
	var root fileRoot
	if diags := gohcl.DecodeBody(f.Body, nil, &root); diags.HasErrors() {
		return nil, fmt.Errorf("failed to decode HCL file %s: %w", file, diags)
	}

	m := config.NewModel()
	for _, h := range root.Hosts {
		if _, dup := m.Hosts[h.Name]; dup {
			return nil, fmt.Errorf("host %q defined twice in %s", h.Name, file)
		}
		m.Hosts[h.Name] = &config.Host{
			Name:       h.Name,
			Kind:       h.Kind,
			Hostname:   h.Hostname,
			User:       h.User,
			Limit:      h.Limit,
			EcflowPath: h.EcflowPath,
			Modules:    h.Modules,
			Variables:  h.Variables,
			Source:     file,
		}
	}
	for _, e := range root.Externs {
		kind := config.ExternKind(e.Kind)
		if kind == "" {
			kind = config.ExternNode
		}
		m.Externs = append(m.Externs, &config.Extern{Address: e.Address, Kind: kind, Source: file})
	}

	content, diags := root.Remain.Content(suiteSchema)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to decode HCL file %s: %w", file, diags)
	}
	for _, block := range content.Blocks {
		n, err := l.decodeNode(ctx, config.KindSuite, block, file, f.Bytes)
		if err != nil {
			return nil, err
		}
		m.Suites = append(m.Suites, n)
	}
	return m, nil
}

// decodeNode translates a suite, family or task block and, recursively,
// its children in the order they were written.
func (l *Loader) decodeNode(ctx context.Context, kind config.Kind, block *hcl.Block, file string, src []byte) (*config.Node, error) {
	name := block.Labels[0]
	var b nodeBlock
	if diags := gohcl.DecodeBody(block.Body, nil, &b); diags.HasErrors() {
		return nil, fmt.Errorf("%s %s: %w", kind, name, diags)
	}
	fail := func(err error) (*config.Node, error) {
		return nil, fmt.Errorf("%s: %s %s: %w", block.DefRange, kind, name, err)
	}

	n := &config.Node{
		Kind:      kind,
		Name:      name,
		Source:    file,
		Host:      b.Host,
		Defstatus: b.Defstatus,
		Follow:    b.Follow,
		Script:    b.Script,
		Manual:    b.Manual,
		Workdir:   b.Workdir,
		Modules:   b.Modules,
		InLimits:  b.InLimits,
		Events:    b.Events,
		Late:      b.Late,
	}

	vars, err := l.conv.Evaluate(ctx, b.Variables, "variables")
	if err != nil {
		return fail(err)
	}
	if vars != nil {
		m, ok := vars.(map[string]any)
		if !ok {
			return fail(fmt.Errorf("variables must be an object, not %T", vars))
		}
		n.Variables = m
	}

	for _, c := range []struct {
		expr hcl.Expression
		name string
		into *[]config.Expression
	}{
		{b.Trigger, "trigger", &n.Triggers},
		{b.Complete, "complete", &n.Completes},
	} {
		if !isExprDefined(ctx, c.expr, c.name) {
			continue
		}
		e, err := newExpression(c.expr, src)
		if err != nil {
			return fail(err)
		}
		*c.into = append(*c.into, e)
	}

	if n.Times, err = l.conv.Strings(ctx, b.Time, "time"); err != nil {
		return fail(err)
	}
	if n.Todays, err = l.conv.Strings(ctx, b.Today, "today"); err != nil {
		return fail(err)
	}
	if n.Dates, err = l.conv.Strings(ctx, b.Date, "date"); err != nil {
		return fail(err)
	}
	if n.Days, err = l.conv.Strings(ctx, b.Day, "day"); err != nil {
		return fail(err)
	}
	if n.Autocancel, err = l.conv.Evaluate(ctx, b.Autocancel, "autocancel"); err != nil {
		return fail(err)
	}
	if n.Zombies, err = l.zombies(ctx, b.Zombies); err != nil {
		return fail(err)
	}
	if b.Repeat != nil {
		if n.Repeat, err = l.repeat(ctx, b.Repeat); err != nil {
			return fail(err)
		}
	}

	if len(b.Limits) > 0 {
		n.Limits = make(map[string]int, len(b.Limits))
		for _, lim := range b.Limits {
			n.Limits[lim.Name] = lim.Max
		}
	}
	if len(b.Labels) > 0 {
		n.Labels = make(map[string]string, len(b.Labels))
		for _, lab := range b.Labels {
			n.Labels[lab.Name] = lab.Value
		}
	}
	for _, m := range b.Meters {
		n.Meters = append(n.Meters, &config.Meter{Name: m.Name, Min: m.Min, Max: m.Max, Threshold: m.Threshold})
	}
	for _, c := range b.Crons {
		n.Crons = append(n.Crons, &config.Cron{
			Value:          c.Time,
			DaysOfWeek:     c.DaysOfWeek,
			DaysOfMonth:    c.DaysOfMonth,
			LastDayOfMonth: c.LastDayOfMonth,
			Months:         c.Months,
		})
	}

	children, diags := b.Remain.Content(childSchema)
	if diags.HasErrors() {
		return fail(diags)
	}
	if kind == config.KindTask && len(children.Blocks) > 0 {
		return fail(fmt.Errorf("a task cannot contain %s blocks", children.Blocks[0].Type))
	}
	for _, cb := range children.Blocks {
		child, err := l.decodeNode(ctx, config.Kind(cb.Type), cb, file, src)
		if err != nil {
			return nil, err
		}
		n.Children = append(n.Children, child)
	}
	return n, nil
}

// zombies reads "zombies = true" as the default set and a list as explicit
// zombie specifications.
func (l *Loader) zombies(ctx context.Context, expr hcl.Expression) ([]string, error) {
	v, err := l.conv.Evaluate(ctx, expr, "zombies")
	if err != nil || v == nil {
		return nil, err
	}
	switch x := v.(type) {
	case bool:
		if x {
			return []string{}, nil
		}
		return nil, nil
	case string:
		return []string{x}, nil
	case []any:
		specs := make([]string, 0, len(x))
		for _, s := range x {
			str, ok := s.(string)
			if !ok {
				return nil, fmt.Errorf("zombies must be strings, got %T", s)
			}
			specs = append(specs, str)
		}
		return specs, nil
	}
	return nil, fmt.Errorf("zombies must be a bool or a list of strings, not %T", v)
}

func (l *Loader) repeat(ctx context.Context, b *repeatBlock) (*config.Repeat, error) {
	r := &config.Repeat{Kind: b.Kind, Name: b.Name}
	var err error
	if r.Start, err = l.conv.Evaluate(ctx, b.Start, "start"); err != nil {
		return nil, err
	}
	if r.End, err = l.conv.Evaluate(ctx, b.End, "end"); err != nil {
		return nil, err
	}
	if r.Step, err = l.conv.Evaluate(ctx, b.Step, "step"); err != nil {
		return nil, err
	}
	values, err := l.conv.Evaluate(ctx, b.Values, "values")
	if err != nil {
		return nil, err
	}
	if values != nil {
		list, ok := values.([]any)
		if !ok {
			return nil, fmt.Errorf("repeat %s values must be a list, not %T", b.Kind, values)
		}
		r.Values = list
	}
	return r, nil
}

var _ config.Loader = (*Loader)(nil)
