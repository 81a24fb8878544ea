package core

import "sort"

// depGraph is siteloom's own minimal directed graph over node names,
// purpose-built for exactly what Pipeline needs: add every node once, add
// every dependency edge once, then ask for a valid execution order or, if
// none exists, for the cycle that blocks one (spec.md §4.7). It carries
// none of a general-purpose graph library's surface (layered BFS,
// Graphviz export, edge removal, parent/child queries) since Pipeline
// never mutates a graph once built and never asks it anything else.
type depGraph struct {
	// runsBefore[a] is the set of nodes a must run before.
	runsBefore map[string]map[string]struct{}
	// blockedBy counts, for each node, how many not-yet-placed
	// dependencies still stand between it and being ready to run.
	blockedBy map[string]int
}

func newDepGraph() *depGraph {
	return &depGraph{
		runsBefore: map[string]map[string]struct{}{},
		blockedBy:  map[string]int{},
	}
}

// addNode registers name, idempotently.
func (g *depGraph) addNode(name string) {
	if _, ok := g.runsBefore[name]; ok {
		return
	}
	g.runsBefore[name] = map[string]struct{}{}
	g.blockedBy[name] = 0
}

// addEdge records that from must run before to. Both must already be
// registered via addNode; duplicate edges are idempotent.
func (g *depGraph) addEdge(from, to string) {
	successors, ok := g.runsBefore[from]
	if !ok {
		return
	}
	if _, exists := successors[to]; exists {
		return
	}
	successors[to] = struct{}{}
	g.blockedBy[to]++
}

// order computes a valid execution order via Kahn's algorithm: nodes with
// no remaining blockers are repeatedly peeled off, breaking ties
// alphabetically so the result is deterministic across runs. ok is false
// when the graph holds a cycle, in which case order covers only the
// acyclic portion.
func (g *depGraph) order() (sorted []string, ok bool) {
	remaining := make(map[string]int, len(g.blockedBy))
	for name, n := range g.blockedBy {
		remaining[name] = n
	}

	var ready []string
	for name, n := range remaining {
		if n == 0 {
			ready = append(ready, name)
		}
	}
	sort.Strings(ready)

	for len(ready) > 0 {
		next := ready[0]
		ready = ready[1:]
		sorted = append(sorted, next)

		successors := make([]string, 0, len(g.runsBefore[next]))
		for s := range g.runsBefore[next] {
			successors = append(successors, s)
		}
		sort.Strings(successors)

		for _, s := range successors {
			remaining[s]--
			if remaining[s] == 0 {
				ready = append(ready, s)
			}
		}
		sort.Strings(ready)
	}

	return sorted, len(sorted) == len(g.blockedBy)
}

// cycleThrough returns the chain of node names forming the first cycle
// reachable from seed, as the first repeated node followed by every node on
// the cycle and back to it, or nil if no cycle is reachable from seed. The
// cycle need not pass through seed itself. It walks edges
// depth-first, tracking the current path so a repeat of any in-progress
// node immediately identifies the cycle.
func (g *depGraph) cycleThrough(seed string) []string {
	var path []string
	onPath := map[string]int{} // name -> index within path
	visited := map[string]bool{}

	var walk func(name string) []string
	walk = func(name string) []string {
		if i, onStack := onPath[name]; onStack {
			cycle := append([]string(nil), path[i:]...)
			return append(cycle, name)
		}
		if visited[name] {
			return nil
		}
		visited[name] = true

		onPath[name] = len(path)
		path = append(path, name)

		successors := make([]string, 0, len(g.runsBefore[name]))
		for s := range g.runsBefore[name] {
			successors = append(successors, s)
		}
		sort.Strings(successors)
		for _, s := range successors {
			if cycle := walk(s); cycle != nil {
				return cycle
			}
		}

		delete(onPath, name)
		path = path[:len(path)-1]
		return nil
	}

	return walk(seed)
}
