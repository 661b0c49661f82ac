// Package graph provides the deduplicated dependency graph shared by all
// analyzer, scanner, advisor and reporter components.
//
// Package-manager plugins report per-scope dependency trees; the [Builder]
// collapses them into one graph with a single node per distinct
// [model.Identifier], so diamond dependencies and repeated subtrees share
// nodes and memory grows with the number of distinct packages rather than
// with tree size. Scope membership is recorded per (project, scope) as a set
// of root nodes, from which each scope's transitive closure can be
// recovered.
//
// The graph follows a build-once-then-freeze discipline: a single writer
// ingests all projects through the Builder, Build finalizes the graph, and
// all later consumers read it without synchronization.
package graph

import (
	"fmt"
	"slices"

	"github.com/complykit/complykit/pkg/model"
)

// Edge is a directed dependency between two graph nodes, identified by
// their stable node indices.
type Edge struct {
	From int `json:"from"`
	To   int `json:"to"`
}

// Compare orders edges by (from, to).
func (e Edge) Compare(other Edge) int {
	if e.From != other.From {
		if e.From < other.From {
			return -1
		}
		return 1
	}
	switch {
	case e.To < other.To:
		return -1
	case e.To > other.To:
		return 1
	default:
		return 0
	}
}

// Root is a top-level dependency of one scope: a node index plus the linkage
// the package manager reported for it.
type Root struct {
	Node    int           `json:"node"`
	Linkage model.Linkage `json:"linkage,omitempty"`
}

// Graph is the finalized, read-only dependency graph produced by
// [Builder.Build]. Exported fields form the serialized representation;
// adjacency indices are rebuilt on demand after deserialization via
// [Graph.Restore].
type Graph struct {
	// Packages maps node index to package Identifier, in stable
	// first-sighting order.
	Packages []model.Identifier `json:"packages"`

	// Edges is the deduplicated edge list, sorted by (from, to).
	Edges []Edge `json:"edges,omitempty"`

	// Scopes maps a qualified scope name (see [model.ScopeQualifier]) to the
	// scope's root nodes.
	Scopes map[string][]Root `json:"scopes,omitempty"`

	// Issues holds structural problems found during construction, such as
	// dependency cycles. They degrade the graph but do not invalidate it.
	Issues []model.Issue `json:"issues,omitempty"`

	index    map[model.Identifier]int
	outgoing [][]int
	incoming [][]int
}

// Restore rebuilds the internal lookup and adjacency indices from the
// exported fields. It must be called after deserializing a Graph and returns
// an error if an edge or scope root references a node that does not exist.
func (g *Graph) Restore() error {
	g.index = make(map[model.Identifier]int, len(g.Packages))
	for i, id := range g.Packages {
		g.index[id] = i
	}
	g.outgoing = make([][]int, len(g.Packages))
	g.incoming = make([][]int, len(g.Packages))
	for _, e := range g.Edges {
		if e.From < 0 || e.From >= len(g.Packages) || e.To < 0 || e.To >= len(g.Packages) {
			return fmt.Errorf("edge %d->%d references unknown node", e.From, e.To)
		}
		g.outgoing[e.From] = append(g.outgoing[e.From], e.To)
		g.incoming[e.To] = append(g.incoming[e.To], e.From)
	}
	for scope, roots := range g.Scopes {
		for _, r := range roots {
			if r.Node < 0 || r.Node >= len(g.Packages) {
				return fmt.Errorf("scope %q references unknown node %d", scope, r.Node)
			}
		}
	}
	return nil
}

// NodeCount returns the number of distinct packages in the graph.
func (g *Graph) NodeCount() int { return len(g.Packages) }

// EdgeCount returns the number of distinct edges in the graph.
func (g *Graph) EdgeCount() int { return len(g.Edges) }

// Identifier returns the package Identifier of the node at index i.
func (g *Graph) Identifier(i int) model.Identifier { return g.Packages[i] }

// IndexOf returns the node index for the given Identifier.
func (g *Graph) IndexOf(id model.Identifier) (int, bool) {
	i, ok := g.index[id]
	return i, ok
}

// Dependencies returns the node indices this node depends on.
// The returned slice is a read-only view.
func (g *Graph) Dependencies(i int) []int { return g.outgoing[i] }

// Dependents returns the node indices that depend on this node.
// The returned slice is a read-only view.
func (g *Graph) Dependents(i int) []int { return g.incoming[i] }

// ScopeRoots returns the root nodes of the qualified scope.
func (g *Graph) ScopeRoots(qualifier string) []Root { return g.Scopes[qualifier] }

// ScopeDependencies returns the transitive closure of the qualified scope's
// roots as a sorted slice of node indices.
func (g *Graph) ScopeDependencies(qualifier string) []int {
	seen := make(map[int]bool)
	var stack []int
	for _, r := range g.Scopes[qualifier] {
		if !seen[r.Node] {
			seen[r.Node] = true
			stack = append(stack, r.Node)
		}
	}
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for _, dep := range g.outgoing[n] {
			if !seen[dep] {
				seen[dep] = true
				stack = append(stack, dep)
			}
		}
	}

	out := make([]int, 0, len(seen))
	for n := range seen {
		out = append(out, n)
	}
	slices.Sort(out)
	return out
}

// SortedPackages returns the package Identifiers sorted lexically, for
// deterministic report output. Node indices are unaffected.
func (g *Graph) SortedPackages() []model.Identifier {
	out := slices.Clone(g.Packages)
	slices.SortFunc(out, model.Identifier.Compare)
	return out
}
