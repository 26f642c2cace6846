package script

import (
	"fmt"
	"os"
	"sort"
	"strings"
)

// Exportable is a named value that a job exports as `NAME="%NAME%"`.
// Inside a script it renders as `$NAME`.
type Exportable interface {
	ExportName() string
}

// Script produces the lines of a job's body.
type Script interface {
	// Stub returns the script lines.
	Stub() ([]string, error)
	// RequiredExportables names the exportables the script needs exported,
	// beyond the ones found by scanning its text.
	RequiredExportables() []string
}

type envVar struct {
	name  string
	value string
}

// Lines is the basic composable script: environment exports followed by
// its values in insertion order. A value is a string, a Script, an
// Exportable, a list of those, or anything printable.
type Lines struct {
	values   []any
	env      []envVar
	required []string
}

// New creates a script from the given values.
func New(values ...any) *Lines {
	return &Lines{values: values}
}

// Add appends values to the script.
func (l *Lines) Add(values ...any) *Lines {
	l.values = append(l.values, values...)
	return l
}

// SetEnv defines an environment variable exported at the top of the script.
// Redefining a variable keeps its original position.
func (l *Lines) SetEnv(name string, value any) *Lines {
	v := fmt.Sprint(value)
	for i := range l.env {
		if l.env[i].name == name {
			l.env[i].value = v
			return l
		}
	}
	l.env = append(l.env, envVar{name: name, value: v})
	return l
}

// Require forces the named exportables into the job's export block.
func (l *Lines) Require(names ...string) *Lines {
	l.required = append(l.required, names...)
	return l
}

// RequiredExportables implements Script.
func (l *Lines) RequiredExportables() []string {
	set := map[string]struct{}{}
	for _, n := range l.required {
		set[n] = struct{}{}
	}
	collectRequired(l.values, set)
	return sortedKeys(set)
}

func collectRequired(values []any, set map[string]struct{}) {
	for _, v := range values {
		switch x := v.(type) {
		case Script:
			for _, n := range x.RequiredExportables() {
				set[n] = struct{}{}
			}
		case []any:
			collectRequired(x, set)
		}
	}
}

// Stub implements Script.
func (l *Lines) Stub() ([]string, error) {
	return l.stub(nil)
}

// stub renders the environment exports, then the generated lines, then
// the values.
func (l *Lines) stub(generate func() ([]string, error)) ([]string, error) {
	var lines []string
	for _, e := range l.env {
		if strings.ToUpper(e.name) != e.name || strings.ToLower(e.name) == e.name {
			return nil, fmt.Errorf("Environment variables should be uppercased (%s)", e.name)
		}
		lines = append(lines, fmt.Sprintf("export %s=\"%s\"", e.name, e.value))
	}

	if generate != nil {
		gen, err := generate()
		if err != nil {
			return nil, err
		}
		lines = append(lines, gen...)
	}

	rest, err := Expand(l.values...)
	if err != nil {
		return nil, err
	}
	return append(lines, rest...), nil
}

func (l *Lines) String() string {
	lines, err := l.Stub()
	if err != nil {
		return "<invalid script: " + err.Error() + ">"
	}
	return strings.Join(lines, "\n")
}

// Expand flattens script values into lines. Strings are split on newlines
// and right-trimmed; nil values are skipped.
func Expand(values ...any) ([]string, error) {
	var lines []string
	for _, v := range values {
		switch x := v.(type) {
		case nil:
		case Script:
			sub, err := x.Stub()
			if err != nil {
				return nil, err
			}
			lines = append(lines, sub...)
		case []any:
			sub, err := Expand(x...)
			if err != nil {
				return nil, err
			}
			lines = append(lines, sub...)
		case []string:
			for _, s := range x {
				lines = append(lines, splitText(s)...)
			}
		case Exportable:
			lines = append(lines, "$"+x.ExportName())
		case string:
			lines = append(lines, splitText(x)...)
		default:
			lines = append(lines, splitText(fmt.Sprint(x))...)
		}
	}
	return lines, nil
}

func splitText(s string) []string {
	parts := strings.Split(s, "\n")
	for i, p := range parts {
		parts[i] = strings.TrimRight(p, " \t\r")
	}
	return parts
}

func sortedKeys(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// File is a script whose body is read from disk when the stub is
// generated.
type File struct {
	*Lines
	path string
}

// NewFile creates a file-backed script. Extra values follow the file body.
func NewFile(path string, values ...any) *File {
	return &File{Lines: New(values...), path: path}
}

// Path returns the script file.
func (f *File) Path() string { return f.path }

// Stub implements Script.
func (f *File) Stub() ([]string, error) {
	return f.stub(func() ([]string, error) {
		data, err := os.ReadFile(f.path)
		if err != nil {
			return nil, fmt.Errorf("failed to read script file '%s': %w", f.path, err)
		}
		return strings.Split(string(data), "\n"), nil
	})
}

// Python wraps its body in a here-document fed to the python interpreter.
type Python struct {
	*Lines
	Version int
	args    []envVar
}

// NewPython creates a python 3 script.
func NewPython(values ...any) *Python {
	return &Python{Lines: New(values...), Version: 3}
}

// Arg adds a `--key=value` interpreter argument.
func (p *Python) Arg(key, value string) *Python {
	p.args = append(p.args, envVar{name: key, value: value})
	return p
}

// Stub implements Script.
func (p *Python) Stub() ([]string, error) {
	body, err := p.Lines.Stub()
	if err != nil {
		return nil, err
	}
	if len(body) > 0 && body[0] == "" {
		body = body[1:]
	}
	if len(body) > 0 && body[len(body)-1] == "" {
		body = body[:len(body)-1]
	}

	var args strings.Builder
	for _, a := range p.args {
		fmt.Fprintf(&args, "--%s=%s ", a.name, a.value)
	}

	lines := []string{fmt.Sprintf("python%d -u %s- <<EOS", p.Version, args.String())}
	lines = append(lines, body...)
	return append(lines, "EOS"), nil
}
