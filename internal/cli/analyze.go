package cli

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/complykit/complykit/pkg/analyzer"
	// Package-manager plugins register on import.
	_ "github.com/complykit/complykit/pkg/analyzer/gomod"
	_ "github.com/complykit/complykit/pkg/analyzer/npm"
	"github.com/complykit/complykit/pkg/buildinfo"
	"github.com/complykit/complykit/pkg/storage"
)

// analyzeOpts holds the command-line flags for the analyze command.
type analyzeOpts struct {
	managers string // comma-separated package manager names, empty = all
	name     string // run name override
}

// analyzeCommand creates the analyze command.
func (c *CLI) analyzeCommand() *cobra.Command {
	var opts analyzeOpts

	cmd := &cobra.Command{
		Use:   "analyze <dir>",
		Short: "Read dependency manifests and build the dependency graph",
		Long: `Analyze walks the repository, parses every supported definition file
(go.mod, package-lock.json), builds the shared dependency graph, applies
package curations from .complykit.toml, and stores the result.

Examples:
  complykit analyze .
  complykit analyze ~/src/app --managers NPM --name acme/app`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := c.runAnalyze(cmd.Context(), args[0], &opts)
			return err
		},
	}

	cmd.Flags().StringVar(&opts.managers, "managers", "", "package managers to use (comma-separated, default all)")
	cmd.Flags().StringVarP(&opts.name, "name", "n", "", "run name (default: directory name)")

	return cmd
}

// runAnalyze analyzes dir and persists the result under the run name.
func (c *CLI) runAnalyze(ctx context.Context, dir string, opts *analyzeOpts) (*storage.RunResult, error) {
	cfg, err := loadConfig(dir)
	if err != nil {
		return nil, err
	}

	var managers []string
	if opts.managers != "" {
		managers = strings.Split(opts.managers, ",")
	}
	a, err := analyzer.New(analyzer.Options{Managers: managers, Logger: c.Logger})
	if err != nil {
		return nil, err
	}

	spinner := newSpinner(ctx, "Analyzing dependencies...")
	spinner.Start()
	prog := newProgress(c.Logger)
	res, err := a.Run(ctx, dir, cfg)
	if err != nil {
		spinner.StopWithError("Analysis failed")
		return nil, err
	}
	spinner.Stop()
	prog.done(fmt.Sprintf("Analyzed %d projects", len(res.Projects)))

	name := opts.name
	if name == "" {
		name = runName(dir)
	}
	result := &storage.RunResult{
		Name:      name,
		CreatedAt: time.Now().UTC(),
		Version:   buildinfo.Version,
		Analyzer:  res,
	}

	store, err := c.newStore(ctx)
	if err != nil {
		return nil, err
	}
	defer store.Close(ctx)
	if err := store.Save(ctx, result); err != nil {
		return nil, err
	}

	printSuccess("Analyzed %s", name)
	printStats(len(res.Projects), res.Graph.NodeCount(), res.Graph.EdgeCount())
	printIssues(res.Issues)
	printNextStep("Scan licenses", fmt.Sprintf("complykit scan %s", dir))

	return result, nil
}
