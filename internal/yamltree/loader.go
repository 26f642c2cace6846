// Package yamltree loads suites written as nested mappings in YAML or JSON
// files. The trees are handed to flow as they are; only hosts, externs and
// the host selection of each suite are read here.
package yamltree

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/vk/ecflowgen/internal/config"
	"github.com/vk/ecflowgen/internal/ctxlog"
	"github.com/vk/ecflowgen/internal/fsutil"
)

// Extensions are the file extensions this loader reads.
var Extensions = []string{".yaml", ".yml", ".json"}

type document struct {
	Hosts   map[string]hostDoc `yaml:"hosts"`
	Externs map[string]string  `yaml:"externs"`
	// Suites is kept as a node so that suites keep their document order.
	Suites yaml.Node `yaml:"suites"`
}

type hostDoc struct {
	Kind       string            `yaml:"kind"`
	Hostname   string            `yaml:"hostname"`
	User       string            `yaml:"user"`
	Limit      *int              `yaml:"limit"`
	EcflowPath string            `yaml:"ecflow_path"`
	Modules    []string          `yaml:"modules"`
	Variables  map[string]string `yaml:"variables"`
}

// Loader implements config.Loader for YAML and JSON suite files.
type Loader struct{}

// NewLoader creates a new YAML/JSON suite loader.
func NewLoader() *Loader {
	return &Loader{}
}

// Load implements config.Loader.
func (l *Loader) Load(ctx context.Context, paths ...string) (*config.Model, error) {
	logger := ctxlog.FromContext(ctx)

	files, err := fsutil.FindFiles(paths, Extensions...)
	if err != nil {
		return nil, err
	}
	logger.Debug("Discovered YAML/JSON suite files.", "count", len(files))

	model := config.NewModel()
	for _, file := range files {
		data, err := os.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("failed to read suite file %s: %w", file, err)
		}
		m, err := decode(file, data)
		if err != nil {
			return nil, err
		}
		if err := model.Merge(m); err != nil {
			return nil, err
		}
	}

	logger.Debug("YAML/JSON loading complete.", "suites", len(model.Suites), "externs", len(model.Externs), "hosts", len(model.Hosts))
	return model, nil
}

func decode(file string, data []byte) (*config.Model, error) {
	var doc document
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to decode suite file %s: %w", file, err)
	}

	m := config.NewModel()
	for _, name := range sortedKeys(doc.Hosts) {
		h := doc.Hosts[name]
		m.Hosts[name] = &config.Host{
			Name:       name,
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
	for _, addr := range sortedKeys(doc.Externs) {
		kind := config.ExternKind(doc.Externs[addr])
		if kind == "" {
			kind = config.ExternNode
		}
		m.Externs = append(m.Externs, &config.Extern{Address: addr, Kind: kind, Source: file})
	}

	if doc.Suites.Kind == 0 {
		return m, nil
	}
	if doc.Suites.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("%s:%d: suites must be a mapping of names to trees", file, doc.Suites.Line)
	}
	for i := 0; i+1 < len(doc.Suites.Content); i += 2 {
		key, val := doc.Suites.Content[i], doc.Suites.Content[i+1]
		s, err := suite(file, key, val)
		if err != nil {
			return nil, err
		}
		m.Suites = append(m.Suites, s)
	}
	return m, nil
}

// suite reads one suite entry. A null tree is an empty suite.
func suite(file string, key, val *yaml.Node) (*config.Node, error) {
	var raw any
	if err := val.Decode(&raw); err != nil {
		return nil, fmt.Errorf("%s:%d: suite %s: %w", file, val.Line, key.Value, err)
	}
	tree := map[string]any{}
	if raw != nil {
		norm, ok := normalize(raw).(map[string]any)
		if !ok {
			return nil, fmt.Errorf("%s:%d: suite %s must be a mapping", file, val.Line, key.Value)
		}
		tree = norm
	}

	n := &config.Node{Kind: config.KindSuite, Name: key.Value, Source: file}
	if h, ok := tree["host"]; ok {
		name, ok := h.(string)
		if !ok {
			return nil, fmt.Errorf("%s:%d: host of suite %s must be a name", file, val.Line, key.Value)
		}
		n.Host = name
		delete(tree, "host")
	}
	if len(tree) > 0 {
		n.Tree = tree
	}
	return n, nil
}

// normalize turns mappings with non-string keys, such as `1: x`, into
// string-keyed maps, recursively.
func normalize(v any) any {
	switch x := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(x))
		for k, e := range x {
			out[k] = normalize(e)
		}
		return out
	case map[any]any:
		out := make(map[string]any, len(x))
		for k, e := range x {
			out[fmt.Sprint(k)] = normalize(e)
		}
		return out
	case []any:
		out := make([]any, len(x))
		for i, e := range x {
			out[i] = normalize(e)
		}
		return out
	}
	return v
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

var _ config.Loader = (*Loader)(nil)
