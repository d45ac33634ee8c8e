// Package toposort provides a generic topological sort used by the module
// resolver to order the use-dependency DAG so that a module's dependencies
// are always loaded before the module itself.
package toposort

import "fmt"

// Sort returns roots and their transitive dependencies in dependency-first
// order: dag(n) is visited, and yielded, before n itself. key extracts a
// comparable identity for cycle detection and memoization.
//
// Sort panics if dag describes a cycle reachable from roots; the resolver
// pass recovers from this and reports it as a diagnostic instead (spec.md
// §4.3 "Unresolved use" / "Circular module dependency").
func Sort[Node any, Key comparable](roots []Node, key func(Node) Key, dag func(Node) []Node) []Node {
	s := &Sorter[Node, Key]{Key: key}
	return s.Sort(roots, dag)
}

// Sorter holds reusable scratch space across repeated sorts of similarly
// shaped graphs, amortizing allocation.
type Sorter[Node any, Key comparable] struct {
	Key func(Node) Key

	state map[Key]bool // false: on stack, not yet yielded. true: yielded.
	order []Node
}

// Sort performs one topological sort, reusing s's scratch space.
func (s *Sorter[Node, Key]) Sort(roots []Node, dag func(Node) []Node) []Node {
	if s.state == nil {
		s.state = make(map[Key]bool, len(roots))
	} else {
		clear(s.state)
	}
	s.order = s.order[:0]

	var path []Node
	var visit func(Node)
	visit = func(n Node) {
		k := s.Key(n)
		if yielded, onStack := s.state[k]; onStack {
			if !yielded {
				panic(fmt.Sprintf("toposort: cycle detected at %v", k))
			}
			return
		}
		s.state[k] = false
		path = append(path, n)
		for _, child := range dag(n) {
			visit(child)
		}
		path = path[:len(path)-1]
		s.state[k] = true
		s.order = append(s.order, n)
	}
	for _, root := range roots {
		visit(root)
	}
	out := make([]Node, len(s.order))
	copy(out, s.order)
	return out
}
