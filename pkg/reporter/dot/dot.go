// Package dot renders the dependency graph in Graphviz DOT format, with an
// optional SVG rasterization for direct viewing.
package dot

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/goccy/go-graphviz"

	"github.com/complykit/complykit/pkg/model"
	"github.com/complykit/complykit/pkg/reporter"
)

// Name is the format name.
const Name = "dot"

func init() {
	reporter.Register(Name, func() reporter.Reporter { return &Reporter{} })
}

// Options configures graph rendering.
type Options struct {
	// Detailed includes the effective license in node labels.
	Detailed bool
}

// Reporter generates DOT graphs.
type Reporter struct {
	Opts Options
}

func (r *Reporter) Name() string     { return Name }
func (r *Reporter) FileName() string { return "graph.dot" }

// Generate writes the dependency graph as DOT. Project roots get a shaded
// fill so the repository's own packages stand out from third-party ones.
func (r *Reporter) Generate(ctx context.Context, in *reporter.Input, w io.Writer) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	_, err := io.WriteString(w, ToDOT(in, r.Opts))
	return err
}

// ToDOT converts the graph to Graphviz DOT format. The result can be
// rendered with [RenderSVG] or any external Graphviz toolchain.
func ToDOT(in *reporter.Input, opts Options) string {
	projects := make(map[model.Identifier]bool, len(in.Projects))
	for _, p := range in.Projects {
		projects[p.ID] = true
	}

	var buf bytes.Buffer
	buf.WriteString("digraph dependencies {\n")
	buf.WriteString("  rankdir=LR;\n")
	buf.WriteString("  node [shape=box, style=\"rounded,filled\", fillcolor=white, fontsize=12, margin=\"0.2,0.1\"];\n")
	buf.WriteString("  ranksep=0.5;\n")
	buf.WriteString("  nodesep=0.3;\n")
	buf.WriteString("\n")

	for i := range in.Graph.NodeCount() {
		id := in.Graph.Identifier(i)
		attrs := []string{fmt.Sprintf("label=%q", fmtLabel(id, in, opts))}
		if projects[id] {
			attrs = append(attrs, "fillcolor=lightgrey")
		}
		fmt.Fprintf(&buf, "  %q [%s];\n", id.String(), strings.Join(attrs, ", "))
	}

	buf.WriteString("\n")
	for _, e := range in.Graph.Edges {
		fmt.Fprintf(&buf, "  %q -> %q;\n",
			in.Graph.Identifier(e.From).String(), in.Graph.Identifier(e.To).String())
	}

	buf.WriteString("}\n")
	return buf.String()
}

func fmtLabel(id model.Identifier, in *reporter.Input, opts Options) string {
	label := id.Name
	if id.Version != "" {
		label += "\n" + id.Version
	}
	if opts.Detailed {
		expr := in.EffectiveLicense(model.Package{ID: id})
		if expr == "" {
			expr = "unknown license"
		}
		label += "\n" + expr
	}
	return label
}

// RenderSVG renders a DOT graph to SVG using Graphviz.
func RenderSVG(ctx context.Context, dot string) ([]byte, error) {
	gv, err := graphviz.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("init graphviz: %w", err)
	}
	defer gv.Close()

	g, err := graphviz.ParseBytes([]byte(dot))
	if err != nil {
		return nil, fmt.Errorf("parse DOT: %w", err)
	}
	defer g.Close()

	var buf bytes.Buffer
	if err := gv.Render(ctx, g, graphviz.SVG, &buf); err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}
	return buf.Bytes(), nil
}

var _ reporter.Reporter = (*Reporter)(nil)
