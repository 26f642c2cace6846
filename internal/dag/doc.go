// Package dag holds a small directed graph with cycle detection, and the
// trigger lint built on it: every node of a definition becomes a vertex,
// trigger references become edges, and a family implicitly depends on its
// children. A cycle means the suite can never run to completion.
package dag
