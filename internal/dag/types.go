package dag

// Graph is a dependency graph over the full paths of definition nodes. An
// edge from a to b means b cannot run to completion before a does.
type Graph struct {
	vertices map[string]*vertex
}

type vertex struct {
	path string
	// waitsOn are the vertices this one waits for.
	waitsOn map[string]*vertex
	// unblocks are the vertices waiting for this one.
	unblocks map[string]*vertex
}
