package graph

import (
	"slices"
	"strings"

	"github.com/complykit/complykit/pkg/errors"
	"github.com/complykit/complykit/pkg/model"
)

// builderSource attributes builder-generated Issues.
const builderSource = "dependency-graph-builder"

// Builder accumulates per-project, per-scope dependency trees into one
// deduplicated graph. Each distinct Identifier is inserted into the node
// table at most once; later sightings reuse the node and only contribute new
// edges, so repeated subtrees collapse into shared subgraphs.
//
// Builder is single-writer and not safe for concurrent use. After Build has
// been called the builder is frozen; further ingestion is refused.
type Builder struct {
	packages []model.Identifier
	index    map[model.Identifier]int

	edges   []Edge
	edgeSet map[Edge]struct{}

	scopes   map[string][]Root
	metadata map[model.Identifier]model.Package
	issues   []model.Issue

	built bool
}

// NewBuilder creates an empty Builder.
func NewBuilder() *Builder {
	return &Builder{
		index:    make(map[model.Identifier]int),
		edgeSet:  make(map[Edge]struct{}),
		scopes:   make(map[string][]Root),
		metadata: make(map[model.Identifier]model.Package),
	}
}

// AddDependencies ingests the dependency tree one package-manager plugin
// reported for a single scope of a single project. It may be called any
// number of times before Build; calling it for the same (project, scope)
// twice unions the root sets. Issues attached to the references are
// collected onto the graph.
//
// Returns an error once the builder is frozen by Build.
func (b *Builder) AddDependencies(projectID model.Identifier, scopeName string, refs []model.PackageReference) error {
	if b.built {
		return errors.New(errors.ErrCodeInternal, "graph already built, cannot add dependencies for %s", projectID)
	}

	qualifier := model.ScopeQualifier(projectID, scopeName)
	for _, ref := range refs {
		node := b.intern(ref.ID)
		b.addRoot(qualifier, Root{Node: node, Linkage: ref.Linkage})
		b.addTree(node, ref.Dependencies)
		b.collectIssues(ref)
	}
	return nil
}

// AddPackage records metadata for a package node. When several plugins
// report metadata for the same Identifier, each later report patches the
// earlier one field by field: non-empty values override, empty values leave
// the prior value in place.
func (b *Builder) AddPackage(pkg model.Package) error {
	if b.built {
		return errors.New(errors.ErrCodeInternal, "graph already built, cannot add package %s", pkg.ID)
	}
	if existing, ok := b.metadata[pkg.ID]; ok {
		b.metadata[pkg.ID] = existing.Merge(pkg)
	} else {
		b.metadata[pkg.ID] = pkg
	}
	return nil
}

// Build finalizes the graph and returns it together with the flat package
// list (one entry per node, sorted by Identifier). Dependency cycles are
// detected here: each cycle is recorded as an Issue and its closing edge
// dropped, so all traversals of the returned graph terminate.
//
// Build freezes the builder; subsequent Add calls fail.
func (b *Builder) Build() (*Graph, []model.Package, error) {
	if b.built {
		return nil, nil, errors.New(errors.ErrCodeInternal, "graph already built")
	}
	b.built = true

	b.breakCycles()
	slices.SortFunc(b.edges, Edge.Compare)

	g := &Graph{
		Packages: b.packages,
		Edges:    b.edges,
		Scopes:   b.scopes,
		Issues:   b.issues,
	}
	if err := g.Restore(); err != nil {
		return nil, nil, errors.Wrap(errors.ErrCodeInternal, err, "finalizing graph")
	}

	pkgs := make([]model.Package, 0, len(b.packages))
	for _, id := range b.packages {
		if meta, ok := b.metadata[id]; ok {
			meta.ID = id
			pkgs = append(pkgs, meta)
		} else {
			pkgs = append(pkgs, model.Package{ID: id})
		}
	}
	slices.SortFunc(pkgs, func(a, c model.Package) int { return a.ID.Compare(c.ID) })

	return g, pkgs, nil
}

// intern returns the node index for id, inserting it into the node table on
// first sighting. Indices are stable: a node never moves once assigned.
func (b *Builder) intern(id model.Identifier) int {
	if i, ok := b.index[id]; ok {
		return i
	}
	i := len(b.packages)
	b.packages = append(b.packages, id)
	b.index[id] = i
	return i
}

func (b *Builder) addRoot(qualifier string, root Root) {
	for _, r := range b.scopes[qualifier] {
		if r == root {
			return
		}
	}
	b.scopes[qualifier] = append(b.scopes[qualifier], root)
}

func (b *Builder) addTree(parent int, children []model.PackageReference) {
	for _, child := range children {
		node := b.intern(child.ID)
		b.addEdge(Edge{From: parent, To: node})
		b.addTree(node, child.Dependencies)
		b.collectIssues(child)
	}
}

// addEdge inserts an edge unless it is already present; inserting the same
// edge twice is a no-op.
func (b *Builder) addEdge(e Edge) {
	if _, ok := b.edgeSet[e]; ok {
		return
	}
	b.edgeSet[e] = struct{}{}
	b.edges = append(b.edges, e)
}

func (b *Builder) collectIssues(ref model.PackageReference) {
	b.issues = append(b.issues, ref.Issues...)
}

// breakCycles detects directed cycles with DFS white/gray/black coloring,
// records each as an Issue and removes the closing back-edge. Node order is
// deterministic, so the same input always drops the same edges.
func (b *Builder) breakCycles() {
	const (
		white = iota
		gray
		black
	)

	outgoing := make([][]int, len(b.packages))
	for _, e := range b.edges {
		outgoing[e.From] = append(outgoing[e.From], e.To)
	}

	color := make([]int, len(b.packages))
	onStack := make([]int, 0, len(b.packages))
	var drop []Edge

	var dfs func(n int)
	dfs = func(n int) {
		color[n] = gray
		onStack = append(onStack, n)
		for _, child := range outgoing[n] {
			switch color[child] {
			case white:
				dfs(child)
			case gray:
				drop = append(drop, Edge{From: n, To: child})
				b.issues = append(b.issues, model.NewWarning(builderSource,
					"dependency cycle: %s", b.cyclePath(onStack, child)))
			}
		}
		onStack = onStack[:len(onStack)-1]
		color[n] = black
	}

	for n := range b.packages {
		if color[n] == white {
			dfs(n)
		}
	}

	if len(drop) == 0 {
		return
	}
	dropSet := make(map[Edge]struct{}, len(drop))
	for _, e := range drop {
		dropSet[e] = struct{}{}
		delete(b.edgeSet, e)
	}
	b.edges = slices.DeleteFunc(b.edges, func(e Edge) bool {
		_, ok := dropSet[e]
		return ok
	})
}

// cyclePath renders the cycle from the first occurrence of start on the DFS
// stack back to itself, e.g. "a -> b -> a".
func (b *Builder) cyclePath(stack []int, start int) string {
	from := 0
	for i, n := range stack {
		if n == start {
			from = i
			break
		}
	}
	var sb strings.Builder
	for _, n := range stack[from:] {
		sb.WriteString(b.packages[n].String())
		sb.WriteString(" -> ")
	}
	sb.WriteString(b.packages[start].String())
	return sb.String()
}
