package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/complykit/complykit/pkg/config"
	"github.com/complykit/complykit/pkg/errors"
	"github.com/complykit/complykit/pkg/license"
	"github.com/complykit/complykit/pkg/model"
	"github.com/complykit/complykit/pkg/reporter"
	// Reporters register on import.
	_ "github.com/complykit/complykit/pkg/reporter/cdx"
	"github.com/complykit/complykit/pkg/reporter/dot"
	_ "github.com/complykit/complykit/pkg/reporter/spdxdoc"
	"github.com/complykit/complykit/pkg/storage"
)

// formatSVG is handled in the CLI: it is the dot reporter plus Graphviz
// rendering, not a registered format of its own.
const formatSVG = "svg"

// reportOpts holds the command-line flags for the report command.
type reportOpts struct {
	name    string
	formats string
	output  string
}

// reportCommand creates the report command.
func (c *CLI) reportCommand() *cobra.Command {
	var opts reportOpts

	cmd := &cobra.Command{
		Use:   "report <dir>",
		Short: "Generate compliance reports from a stored run result",
		Long: fmt.Sprintf(`Report renders the stored run result into output documents.

Available formats: %s, svg.

Examples:
  complykit report . --format spdx
  complykit report . --format spdx,cyclonedx,svg -o ./reports`,
			strings.Join(reporter.Names(), ", ")),
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runReport(cmd.Context(), args[0], &opts)
		},
	}

	cmd.Flags().StringVarP(&opts.name, "name", "n", "", "run name (default: directory name)")
	cmd.Flags().StringVarP(&opts.formats, "format", "f", "spdx", "output format(s), comma-separated")
	cmd.Flags().StringVarP(&opts.output, "output", "o", ".", "output directory")

	return cmd
}

func (c *CLI) runReport(ctx context.Context, dir string, opts *reportOpts) error {
	name := opts.name
	if name == "" {
		name = runName(dir)
	}

	store, err := c.newStore(ctx)
	if err != nil {
		return err
	}
	defer store.Close(ctx)

	result, err := store.Load(ctx, name)
	if err != nil {
		if errors.GetCode(err) != errors.ErrCodeResultNotFound {
			return err
		}
		if result, err = c.runAnalyze(ctx, dir, &analyzeOpts{name: name}); err != nil {
			return err
		}
	}

	cfg, err := loadConfig(dir)
	if err != nil {
		return err
	}
	in, err := buildInput(result, cfg)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(opts.output, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}

	for _, format := range strings.Split(opts.formats, ",") {
		format = strings.TrimSpace(format)
		path, err := c.generateReport(ctx, in, format, opts.output)
		if err != nil {
			return err
		}
		printFile(path)
	}
	printSuccess("Reports written for %s", name)
	return nil
}

func (c *CLI) generateReport(ctx context.Context, in *reporter.Input, format, outDir string) (string, error) {
	if format == formatSVG {
		svg, err := dot.RenderSVG(ctx, dot.ToDOT(in, dot.Options{Detailed: true}))
		if err != nil {
			return "", err
		}
		path := filepath.Join(outDir, "graph.svg")
		return path, os.WriteFile(path, svg, 0o644)
	}

	r, err := reporter.Create(format)
	if err != nil {
		return "", err
	}
	path := filepath.Join(outDir, r.FileName())
	f, err := os.Create(path)
	if err != nil {
		return "", err
	}
	if err := r.Generate(ctx, in, f); err != nil {
		f.Close()
		return "", fmt.Errorf("generate %s report: %w", format, err)
	}
	return path, f.Close()
}

// buildInput assembles the reporter input from a stored result. A nil cfg
// resolves licenses without excludes, curations, or choices.
func buildInput(result *storage.RunResult, cfg *config.Config) (*reporter.Input, error) {
	in := &reporter.Input{
		RunName:  result.Name,
		Projects: result.Analyzer.Projects,
		Graph:    result.Analyzer.Graph,
		Packages: result.Analyzer.Packages,
		Issues:   result.Analyzer.Issues,
	}
	if result.Advisor != nil {
		in.Vulnerabilities = result.Advisor.Vulnerabilities
	}

	if len(result.Scans) > 0 {
		resolverCfg := license.ResolverConfig{}
		if cfg != nil {
			resolverCfg = cfg.ResolverConfig()
		}
		resolver, err := license.NewResolver(resolverCfg)
		if err != nil {
			return nil, err
		}

		byID := make(map[model.Identifier]model.Package, len(in.Packages))
		for _, pkg := range in.Packages {
			byID[pkg.ID] = pkg
		}
		for _, rec := range result.Scans {
			resolver.Resolve(byID[rec.ID], rec.Summary.Licenses, rec.Summary.Copyrights)
		}
		in.Licenses = resolver
	}
	return in, nil
}
