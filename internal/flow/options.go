package flow

import (
	"errors"
	"fmt"
	"path/filepath"
	"sort"

	"github.com/vk/ecflowgen/internal/host"
	"github.com/vk/ecflowgen/internal/script"
)

type namedValue struct {
	name  string
	value any
}

// nodeConfig collects the options of a node before they are applied in a
// fixed order.
type nodeConfig struct {
	host         host.Host
	workdir      *string
	modules      []string
	purgeModules bool
	vars         []namedValue
	heads        []any
	tails        []any
	json         map[string]any
	triggers     []any
	completes    []any
	defstatus    string
	manual       *string
	attrs        []Entry

	script       script.Script
	submitArgs   map[string]string
	exitHook     []string
	cleanWorkdir bool
	noAutolimit  bool
	taskOnly     map[string]bool
}

func (c *nodeConfig) taskOption(name string) {
	if c.taskOnly == nil {
		c.taskOnly = map[string]bool{}
	}
	c.taskOnly[name] = true
}

// Option configures a node when it is created.
type Option func(*nodeConfig)

// WithHost selects the host jobs below the node run on.
func WithHost(h host.Host) Option { return func(c *nodeConfig) { c.host = h } }

// WithWorkdir sets the directory jobs below the node change into.
func WithWorkdir(dir string) Option { return func(c *nodeConfig) { c.workdir = &dir } }

// WithModules adds environment modules loaded by jobs below the node. A
// module prefixed with "-" is unloaded instead.
func WithModules(modules ...string) Option {
	return func(c *nodeConfig) { c.modules = append(c.modules, modules...) }
}

func WithPurgeModules() Option { return func(c *nodeConfig) { c.purgeModules = true } }

// WithVariable adds a variable or repeat, see SetVariable.
func WithVariable(name string, value any) Option {
	return func(c *nodeConfig) { c.vars = append(c.vars, namedValue{name, value}) }
}

// WithVariables adds variables in name order.
func WithVariables(vars map[string]any) Option {
	return func(c *nodeConfig) {
		names := make([]string, 0, len(vars))
		for k := range vars {
			names = append(names, k)
		}
		sort.Strings(names)
		for _, k := range names {
			c.vars = append(c.vars, namedValue{k, vars[k]})
		}
	}
}

func WithHome(path string) Option { return WithVariable("ECF_HOME", path) }
func WithFiles(path string) Option { return WithVariable("ECF_FILES", path) }
func WithInclude(path string) Option { return WithVariable("ECF_INCLUDE", path) }
func WithOut(path string) Option { return WithVariable("ECF_OUT", path) }
func WithExtn(extn string) Option { return WithVariable("ECF_EXTN", extn) }

// WithHead adds a header included before the body of jobs below the node:
// inline code as a string, a [2]string name and code pair, or a
// script.Header.
func WithHead(h any) Option { return func(c *nodeConfig) { c.heads = append(c.heads, h) } }

// WithTail adds a header included after the body, as WithHead.
func WithTail(h any) Option { return func(c *nodeConfig) { c.tails = append(c.tails, h) } }

// WithJSON builds the node's content from a decoded JSON mapping, see
// LoadJSON.
func WithJSON(tree map[string]any) Option { return func(c *nodeConfig) { c.json = tree } }

func WithTrigger(v any) Option { return func(c *nodeConfig) { c.triggers = append(c.triggers, v) } }
func WithComplete(v any) Option { return func(c *nodeConfig) { c.completes = append(c.completes, v) } }
func WithDefstatus(state string) Option { return func(c *nodeConfig) { c.defstatus = state } }
func WithManual(text string) Option { return func(c *nodeConfig) { c.manual = &text } }

// WithAttributes adds prebuilt attributes or child nodes.
func WithAttributes(entries ...Entry) Option {
	return func(c *nodeConfig) { c.attrs = append(c.attrs, entries...) }
}

// WithScript sets the body of a task.
func WithScript(s script.Script) Option {
	return func(c *nodeConfig) {
		c.script = s
		c.taskOption("script")
	}
}

// WithSubmitArguments passes scheduler directives to the task's host.
func WithSubmitArguments(args map[string]string) Option {
	return func(c *nodeConfig) {
		c.submitArgs = args
		c.taskOption("submit_arguments")
	}
}

// WithExitHook adds lines run when the task's job exits.
func WithExitHook(lines ...string) Option {
	return func(c *nodeConfig) {
		c.exitHook = append(c.exitHook, lines...)
		c.taskOption("exit_hook")
	}
}

// WithCleanWorkdir removes the working directory before the task runs.
func WithCleanWorkdir() Option {
	return func(c *nodeConfig) {
		c.cleanWorkdir = true
		c.taskOption("clean_workdir")
	}
}

// WithoutAutolimit keeps the task out of its host's limit.
func WithoutAutolimit() Option {
	return func(c *nodeConfig) {
		c.noAutolimit = true
		c.taskOption("autolimit")
	}
}

// create builds a node below parent, which may be nil. Tasks join the
// limit that limits returns for their host. The node is returned even when
// an option fails so that building can carry on.
func create(kind Kind, name string, parent *Node, limits func(host.Host) *Limit, opts []Option) (*Node, error) {
	cfg := &nodeConfig{}
	for _, opt := range opts {
		opt(cfg)
	}

	n := newNode(kind, name)
	if parent != nil {
		if err := parent.Add(n); err != nil {
			return n, err
		}
	}

	var errs []error
	if kind != KindTask && len(cfg.taskOnly) > 0 {
		names := make([]string, 0, len(cfg.taskOnly))
		for k := range cfg.taskOnly {
			names = append(names, k)
		}
		sort.Strings(names)
		errs = append(errs, fmt.Errorf("%s %s: options %v only apply to tasks", kind, n.FullName(), names))
	}

	h := cfg.host
	if h == nil && kind == KindSuite {
		h = host.NewDefault()
	}
	if h != nil {
		n.host = h
		if label, ok := host.Label(h); ok {
			errs = append(errs, n.Add(NewLabel("exec_host", label)))
		}
	}

	if cfg.manual != nil {
		errs = append(errs, n.Add(NewManual(*cfg.manual)))
	}
	if cfg.json != nil {
		errs = append(errs, n.LoadJSON(cfg.json))
	}

	for _, v := range cfg.vars {
		errs = append(errs, n.SetVariable(v.name, v.value))
	}
	if h != nil {
		for _, v := range host.Variables(h) {
			if !n.Has(v.Name) {
				errs = append(errs, n.SetVariable(v.Name, v.Value))
			}
		}
	}

	if cfg.workdir != nil {
		n.workdir, n.hasWorkdir = *cfg.workdir, true
	}
	n.modules = cfg.modules
	n.purgeModules = cfg.purgeModules
	n.heads = cfg.heads
	n.tails = cfg.tails

	for _, t := range cfg.triggers {
		n.AndTrigger(t)
	}
	for _, c := range cfg.completes {
		n.AndComplete(c)
	}
	if cfg.defstatus != "" {
		d, err := NewDefstatus(cfg.defstatus)
		errs = append(errs, err)
		if err == nil {
			errs = append(errs, n.Add(d))
		}
	}
	for _, e := range cfg.attrs {
		errs = append(errs, n.Add(e))
	}

	if kind == KindAnchorFamily && !n.Has("ECF_FILES") {
		errs = append(errs, n.SetVariable("ECF_FILES", Defer(n.defaultFilesPath)))
	}

	if kind == KindTask {
		errs = append(errs, n.configureTask(cfg, limits))
	}
	return n, errors.Join(errs...)
}

// defaultFilesPath places an anchor family's files below its parent
// anchor's, following the node path.
func (n *Node) defaultFilesPath() (any, error) {
	pa := n.parentAnchor()
	if pa == nil {
		return nil, &VariableError{Name: "ECF_FILES"}
	}
	files, err := pa.FilesPath()
	if err != nil {
		return nil, err
	}
	return filepath.Join(files, relPath(pa.pathNames(), n.pathNames())), nil
}

func (n *Node) configureTask(cfg *nodeConfig, limits func(host.Host) *Limit) error {
	t := n.task
	if cfg.script != nil {
		t.script = cfg.script
	}
	t.submitArgs = cfg.submitArgs
	t.exitHook = cfg.exitHook
	t.cleanWorkdir = cfg.cleanWorkdir
	t.autolimit = !cfg.noAutolimit

	if !t.autolimit {
		return nil
	}
	h := n.Host()
	if h == nil {
		return nil
	}
	if _, err := h.Postamble(); errors.Is(err, host.ErrNullHost) {
		return &GenerateError{Msg: fmt.Sprintf("Cannot create task %s", n.FullName()), Err: err}
	}
	if limits == nil {
		return nil
	}
	limit := limits(h)
	if limit == nil {
		return nil
	}
	il, err := NewInLimit(limit)
	if err != nil {
		return err
	}
	if n.Has(il.key()) {
		return nil
	}
	return n.Add(il)
}
