// Package depgraph stores "s must be evaluated before t" edges between
// named variables.
package depgraph

import "sort"

// DependencyNode holds both adjacency views of one name
type DependencyNode struct {
	Name string

	dependents map[string]struct{} // names that depend on this one
	dependees  map[string]struct{} // names this one depends on
}

// DependencyGraph is a set of ordered pairs (s, t) meaning t depends on s.
// every pair is recorded in s's dependents and t's dependees; link and
// unlink are the only code that touches either side, so the two views can
// not drift apart. a name with no edges is not stored at all.
//
// the graph never rejects a pair for closing a cycle. it is a plain edge
// store; cycle detection belongs to whoever orders the recalculation.
type DependencyGraph struct {
	nodes map[string]*DependencyNode
	size  int
}

// NewDependencyGraph creates an empty dependency graph
func NewDependencyGraph() *DependencyGraph {
	return &DependencyGraph{
		nodes: make(map[string]*DependencyNode),
	}
}

// getOrCreateNode gets an existing node or creates a new one
func (dg *DependencyGraph) getOrCreateNode(name string) *DependencyNode {
	if node, exists := dg.nodes[name]; exists {
		return node
	}
	node := &DependencyNode{
		Name:       name,
		dependents: make(map[string]struct{}),
		dependees:  make(map[string]struct{}),
	}
	dg.nodes[name] = node
	return node
}

// cleanupNodeIfEmpty removes a node once it has no edges left
func (dg *DependencyGraph) cleanupNodeIfEmpty(name string) {
	node, exists := dg.nodes[name]
	if !exists {
		return
	}
	if len(node.dependents) > 0 || len(node.dependees) > 0 {
		return
	}
	delete(dg.nodes, name)
}

// link inserts (s, t) into both views. returns false if it was present.
func (dg *DependencyGraph) link(s, t string) bool {
	sNode := dg.getOrCreateNode(s)
	if _, exists := sNode.dependents[t]; exists {
		return false
	}
	tNode := dg.getOrCreateNode(t)
	sNode.dependents[t] = struct{}{}
	tNode.dependees[s] = struct{}{}
	dg.size++
	return true
}

// unlink removes (s, t) from both views. returns false if it was absent.
func (dg *DependencyGraph) unlink(s, t string) bool {
	sNode, sExists := dg.nodes[s]
	tNode, tExists := dg.nodes[t]
	if !sExists || !tExists {
		return false
	}
	if _, exists := sNode.dependents[t]; !exists {
		return false
	}
	delete(sNode.dependents, t)
	delete(tNode.dependees, s)
	dg.size--

	dg.cleanupNodeIfEmpty(s)
	dg.cleanupNodeIfEmpty(t)
	return true
}

// Size returns the number of distinct (s, t) pairs
func (dg *DependencyGraph) Size() int {
	return dg.size
}

// DependeeCount returns how many names t depends on, 0 if t is unknown
func (dg *DependencyGraph) DependeeCount(t string) int {
	if node, exists := dg.nodes[t]; exists {
		return len(node.dependees)
	}
	return 0
}

// HasDependents reports whether anything depends on s
func (dg *DependencyGraph) HasDependents(s string) bool {
	node, exists := dg.nodes[s]
	return exists && len(node.dependents) > 0
}

// HasDependees reports whether t depends on anything
func (dg *DependencyGraph) HasDependees(t string) bool {
	node, exists := dg.nodes[t]
	return exists && len(node.dependees) > 0
}

// Dependents returns the names that depend on s, sorted. unknown names
// yield an empty slice.
func (dg *DependencyGraph) Dependents(s string) []string {
	node, exists := dg.nodes[s]
	if !exists {
		return []string{}
	}
	return sortedKeys(node.dependents)
}

// Dependees returns the names t depends on, sorted
func (dg *DependencyGraph) Dependees(t string) []string {
	node, exists := dg.nodes[t]
	if !exists {
		return []string{}
	}
	return sortedKeys(node.dependees)
}

// AddDependency records that t depends on s. adding an existing pair is a
// no-op.
func (dg *DependencyGraph) AddDependency(s, t string) {
	dg.link(s, t)
}

// RemoveDependency removes the pair (s, t) if present and reports whether
// anything was removed
func (dg *DependencyGraph) RemoveDependency(s, t string) bool {
	return dg.unlink(s, t)
}

// ReplaceDependents removes every (s, *) pair, then adds (s, t) for each t
// in newDependents
func (dg *DependencyGraph) ReplaceDependents(s string, newDependents []string) {
	for _, t := range dg.Dependents(s) {
		dg.unlink(s, t)
	}
	for _, t := range newDependents {
		dg.link(s, t)
	}
}

// ReplaceDependees removes every (*, t) pair, then adds (s, t) for each s
// in newDependees
func (dg *DependencyGraph) ReplaceDependees(t string, newDependees []string) {
	for _, s := range dg.Dependees(t) {
		dg.unlink(s, t)
	}
	for _, s := range newDependees {
		dg.link(s, t)
	}
}

// NodeCount returns the number of names with at least one edge
func (dg *DependencyGraph) NodeCount() int {
	return len(dg.nodes)
}

// Clear removes all nodes and dependencies from the graph
func (dg *DependencyGraph) Clear() {
	dg.nodes = make(map[string]*DependencyNode)
	dg.size = 0
}

func sortedKeys(set map[string]struct{}) []string {
	result := make([]string, 0, len(set))
	for name := range set {
		result = append(result, name)
	}
	sort.Strings(result)
	return result
}
