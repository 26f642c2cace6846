package flow

import (
	"fmt"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/vk/ecflowgen/internal/host"
	"github.com/vk/ecflowgen/internal/script"
)

// shellVar finds $NAME and ${NAME references in job text.
var shellVar = regexp.MustCompile(`\$\{?([A-Z_][A-Z0-9_]*)`)

func (n *Node) convertHeaders(raw []any, pos script.Position) ([]script.Header, error) {
	var out []script.Header
	for _, h := range raw {
		if hd, ok := h.(script.Header); ok {
			out = append(out, hd)
			continue
		}
		include, err := n.IncludePath()
		if err != nil {
			return nil, fmt.Errorf("%s header of %s: %w", pos, n.FullName(), err)
		}
		switch x := h.(type) {
		case string:
			out = append(out, script.NewInline(strings.ToLower(n.kind.String()), x, include, pos))
		case [2]string:
			out = append(out, script.NewInline(x[0], x[1], include, pos))
		default:
			return nil, fmt.Errorf("%s header of %s: unsupported %T", pos, n.FullName(), h)
		}
	}
	return out, nil
}

// Headers returns the headers included around the jobs of n: heads from
// the suite down, tails from n up.
func (n *Node) Headers() (heads, tails []script.Header, err error) {
	if n.parent != nil {
		heads, tails, err = n.parent.Headers()
		if err != nil {
			return nil, nil, err
		}
	}
	own, err := n.convertHeaders(n.heads, script.Head)
	if err != nil {
		return nil, nil, err
	}
	ownTails, err := n.convertHeaders(n.tails, script.Tail)
	if err != nil {
		return nil, nil, err
	}
	return append(heads, own...), append(ownTails, tails...), nil
}

// Manual returns the manual of n, if it has one.
func (n *Node) Manual() (*Manual, bool) {
	m, ok := n.entries["_manual"].(*Manual)
	return m, ok
}

func (n *Node) moduleLines(h host.Host) []string {
	var lines []string
	if src := h.Config().ModuleSource; src != "" {
		lines = append(lines, fmt.Sprintf("source \"%s\"", src))
	}
	if n.TaskPurgeModules() {
		lines = append(lines, "module purge")
	}
	for _, mod := range n.TaskModules() {
		if rm, ok := strings.CutPrefix(mod, "-"); ok {
			name, _, _ := strings.Cut(rm, "/")
			lines = append(lines, fmt.Sprintf("module rm %s &> /dev/null", name))
			continue
		}
		name, _, _ := strings.Cut(mod, "/")
		lines = append(lines,
			fmt.Sprintf("module rm %s &> /dev/null || true", name),
			fmt.Sprintf("module load %s &> /dev/null", mod),
		)
	}
	return lines
}

func (n *Node) workdirLines() []string {
	dir, ok := n.Workdir()
	if !ok {
		return nil
	}
	var lines []string
	if n.task.cleanWorkdir {
		lines = append(lines, fmt.Sprintf("[[ -d \"%s\" ]] && rm -rf \"%s\"", dir, dir))
	}
	return append(lines,
		fmt.Sprintf("[[ -d \"%s\" ]] || mkdir -p \"%s\"", dir, dir),
		fmt.Sprintf("cd \"%s\"", dir),
	)
}

// usedExports lists, sorted, the exportables visible from n that the job
// refers to or that are always exported.
func (n *Node) usedExports(text string, required []string) []string {
	used := map[string]bool{}
	for _, m := range shellVar.FindAllStringSubmatch(text, -1) {
		used[m[1]] = true
	}
	for _, r := range required {
		used[r] = true
	}

	var out []string
	for _, e := range n.AllExportables() {
		if used[e.ExportName()] || e.Exported() {
			out = append(out, e.ExportName())
		}
	}
	sort.Strings(out)
	return out
}

// GenerateScript assembles the job script of a task. It returns the
// script lines and the headers the script includes.
func (n *Node) GenerateScript() ([]string, []script.Header, error) {
	if n.kind != KindTask {
		return nil, nil, generateErrorf("Cannot generate a script for %s %s", n.kind, n.FullName())
	}
	h := n.Host()
	if h == nil {
		return nil, nil, generateErrorf("No host for task %s", n.FullName())
	}

	var body []string
	var required []string
	if s := n.task.script; s != nil {
		var err error
		if body, err = s.Stub(); err != nil {
			return nil, nil, &GenerateError{Msg: "Failed to generate script for " + n.FullName(), Err: err}
		}
		required = s.RequiredExportables()
	}
	heads, tails, err := n.Headers()
	if err != nil {
		return nil, nil, err
	}

	var lines []string
	if m, ok := n.Manual(); ok {
		lines = append(lines, m.Stub()...)
	}

	lines = append(lines, "#!/bin/bash", "")
	submit, err := h.SubmitArguments(n.task.submitArgs)
	if err != nil {
		return nil, nil, &GenerateError{Msg: "Failed to generate script for " + n.FullName(), Err: err}
	}
	lines = append(lines, submit...)
	lines = append(lines,
		`echo "Running on: $(hostname)" || true`,
		"set -x # echo script lines as they are executed",
		"set -e # stop the shell on first error",
		"set -u # fail when using an undefined variable",
		"",
	)

	preamble, err := host.Preamble(h, n.task.exitHook)
	if err != nil {
		return nil, nil, &GenerateError{Msg: "Failed to generate script for " + n.FullName(), Err: err}
	}
	lines = append(lines, preamble...)

	modules := n.moduleLines(h)
	workdir := n.workdirLines()

	text := strings.Join(append(append(append([]string(nil), body...), workdir...), modules...), "\n")
	if exports := n.usedExports(text, required); len(exports) > 0 {
		for _, v := range exports {
			lines = append(lines, fmt.Sprintf("export %s=\"%%%s%%\"", v, v))
		}
		lines = append(lines, "")
	}

	if len(heads) > 0 {
		for _, hd := range heads {
			lines = append(lines, fmt.Sprintf("%%include <%s>", hd.IncludeName()))
		}
		lines = append(lines, "")
	}

	if len(modules) > 0 {
		lines = append(lines, modules...)
		lines = append(lines, "")
	}
	lines = append(lines, workdir...)
	lines = append(lines, `echo "Current working directory: $(pwd)"`, "")

	lines = append(lines, "%nopp", "")
	lines = append(lines, body...)
	lines = append(lines, "", "%end", "")

	if len(tails) > 0 {
		for _, t := range tails {
			lines = append(lines, fmt.Sprintf("%%include <%s>", t.IncludeName()))
		}
		lines = append(lines, "")
	}

	postamble, err := h.Postamble()
	if err != nil {
		return nil, nil, &GenerateError{Msg: "Failed to generate script for " + n.FullName(), Err: err}
	}
	lines = append(lines, postamble...)

	return lines, append(heads, tails...), nil
}

// DeployPath is where the task script is deployed: the anchor's files
// directory, the task name and ECF_EXTN. It is empty when the anchor has
// no files path.
func (n *Node) DeployPath() string {
	a := n.Anchor()
	if a == nil {
		return ""
	}
	files, err := a.FilesPath()
	if err != nil {
		return ""
	}
	extn, _ := n.LookupVariableValue("ECF_EXTN", ".ecf")
	return filepath.Join(files, n.name) + extn
}

// ManualPath is where the manual of a family is deployed.
func (n *Node) ManualPath() string {
	a := n.Anchor()
	if a == nil {
		return ""
	}
	files, err := a.FilesPath()
	if err != nil {
		return ""
	}
	return filepath.Join(files, n.name+".man")
}
