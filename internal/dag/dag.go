package dag

import (
	"fmt"
	"slices"
	"sort"
	"strings"
)

// New creates an empty Graph.
func New() *Graph {
	return &Graph{vertices: make(map[string]*vertex)}
}

// AddNode adds the node at path. Adding a path twice is a no-op.
func (g *Graph) AddNode(path string) {
	if _, ok := g.vertices[path]; ok {
		return
	}
	g.vertices[path] = &vertex{
		path:     path,
		waitsOn:  make(map[string]*vertex),
		unblocks: make(map[string]*vertex),
	}
}

// AddEdge records that the node at to waits for the node at from. Both
// nodes must have been added.
func (g *Graph) AddEdge(from, to string) error {
	if from == to {
		return fmt.Errorf("node %s cannot wait for itself", from)
	}
	f, ok := g.vertices[from]
	if !ok {
		return fmt.Errorf("unknown node %s", from)
	}
	t, ok := g.vertices[to]
	if !ok {
		return fmt.Errorf("unknown node %s", to)
	}
	t.waitsOn[from] = f
	f.unblocks[to] = t
	return nil
}

// waitsOn lists the paths the node at path waits for, sorted.
func (g *Graph) waitsOn(path string) []string {
	v, ok := g.vertices[path]
	if !ok {
		return nil
	}
	return sortedPaths(v.waitsOn)
}

// FindCycle returns the first cycle found as a path list that starts and
// ends on the same node, or nil. Vertices are visited in sorted order so
// the result is stable.
func (g *Graph) FindCycle() []string {
	const (
		onStack = 1
		done    = 2
	)
	state := make(map[string]int, len(g.vertices))
	var stack, cycle []string

	var visit func(v *vertex) bool
	visit = func(v *vertex) bool {
		switch state[v.path] {
		case done:
			return false
		case onStack:
			i := slices.Index(stack, v.path)
			cycle = append(slices.Clone(stack[i:]), v.path)
			return true
		}
		state[v.path] = onStack
		stack = append(stack, v.path)
		for _, p := range sortedPaths(v.unblocks) {
			if visit(v.unblocks[p]) {
				return true
			}
		}
		stack = stack[:len(stack)-1]
		state[v.path] = done
		return false
	}

	for _, p := range sortedPaths(g.vertices) {
		if visit(g.vertices[p]) {
			return cycle
		}
	}
	return nil
}

// DetectCycles returns an error naming the first cycle, if any.
func (g *Graph) DetectCycles() error {
	if c := g.FindCycle(); c != nil {
		return fmt.Errorf("cycle detected: %s", strings.Join(c, " -> "))
	}
	return nil
}

func sortedPaths(m map[string]*vertex) []string {
	paths := make([]string, 0, len(m))
	for p := range m {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}
