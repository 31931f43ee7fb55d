package depgraph

import (
	"errors"
	"sort"
	"strings"
)

// ErrCircular is matched by every CircularError via errors.Is
var ErrCircular = errors.New("circular dependency")

// CircularError reports a dependency chain that leads back to a name already
// on the current visitation path
type CircularError struct {
	Path []string // visitation path, first and last element are the same name
}

func (e *CircularError) Error() string {
	if len(e.Path) == 0 {
		return ErrCircular.Error()
	}
	return ErrCircular.Error() + ": " + strings.Join(e.Path, " -> ")
}

// Is lets errors.Is(err, ErrCircular) match any CircularError
func (e *CircularError) Is(target error) bool {
	return target == ErrCircular
}

// Adjacency answers which names directly depend on a name
type Adjacency interface {
	Dependents(name string) []string
}

var _ Adjacency = (*DependencyGraph)(nil)
var _ Adjacency = (*Overlay)(nil)

// CalculationOrder returns every name reachable from start by following
// dependents edges, start names included, ordered so that each name comes
// after everything it depends on. if any walk revisits a name that is still
// being visited the whole call fails with a *CircularError and no order.
func CalculationOrder(adj Adjacency, start ...string) ([]string, error) {
	// three states: unvisited (not in map), visiting (false), visited (true)
	state := make(map[string]bool)
	var postOrder []string
	var path []string

	var visit func(name string) error
	visit = func(name string) error {
		if completed, exists := state[name]; exists {
			if !completed {
				return &CircularError{Path: cyclePath(path, name)}
			}
			return nil
		}

		state[name] = false
		path = append(path, name)

		dependents := adj.Dependents(name)
		sort.Strings(dependents)
		for _, dependent := range dependents {
			if err := visit(dependent); err != nil {
				return err
			}
		}

		path = path[:len(path)-1]
		state[name] = true
		postOrder = append(postOrder, name)
		return nil
	}

	for _, name := range start {
		if err := visit(name); err != nil {
			return nil, err
		}
	}

	// reverse post-order puts dependencies first
	order := make([]string, len(postOrder))
	for i, name := range postOrder {
		order[len(postOrder)-1-i] = name
	}
	return order, nil
}

// cyclePath trims path to the part that closes on name
func cyclePath(path []string, name string) []string {
	for i, p := range path {
		if p == name {
			cycle := make([]string, 0, len(path)-i+1)
			cycle = append(cycle, path[i:]...)
			return append(cycle, name)
		}
	}
	return []string{name, name}
}

// Overlay is a read-only view of a graph as it would look after
// ReplaceDependees(target, dependees). the base graph is not modified.
type Overlay struct {
	base    *DependencyGraph
	target  string
	added   map[string]struct{}
	removed map[string]struct{}
}

// WithDependees returns a view of dg in which target depends on exactly
// newDependees
func (dg *DependencyGraph) WithDependees(target string, newDependees []string) *Overlay {
	o := &Overlay{
		base:    dg,
		target:  target,
		added:   make(map[string]struct{}),
		removed: make(map[string]struct{}),
	}

	wanted := make(map[string]struct{}, len(newDependees))
	for _, s := range newDependees {
		wanted[s] = struct{}{}
	}
	for _, s := range dg.Dependees(target) {
		if _, keep := wanted[s]; !keep {
			o.removed[s] = struct{}{}
		}
	}
	for s := range wanted {
		o.added[s] = struct{}{}
	}
	return o
}

// Dependents returns the dependents of s as seen through the overlay, sorted
func (o *Overlay) Dependents(s string) []string {
	_, add := o.added[s]
	_, remove := o.removed[s]

	base := o.base.Dependents(s)
	if !add && !remove {
		return base
	}

	result := make([]string, 0, len(base)+1)
	hasTarget := false
	for _, t := range base {
		if t == o.target {
			if remove {
				continue
			}
			hasTarget = true
		}
		result = append(result, t)
	}
	if add && !hasTarget {
		result = append(result, o.target)
		sort.Strings(result)
	}
	return result
}

// Commit applies the overlay to its base graph
func (o *Overlay) Commit() {
	dependees := make([]string, 0, len(o.added))
	for s := range o.added {
		dependees = append(dependees, s)
	}
	sort.Strings(dependees)
	o.base.ReplaceDependees(o.target, dependees)
}
