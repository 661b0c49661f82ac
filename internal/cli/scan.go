package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/complykit/complykit/pkg/errors"
	"github.com/complykit/complykit/pkg/license"
	"github.com/complykit/complykit/pkg/model"
	"github.com/complykit/complykit/pkg/scanner"
	"github.com/complykit/complykit/pkg/scanner/heuristic"
)

// scanCommand creates the scan command.
func (c *CLI) scanCommand() *cobra.Command {
	var name string

	cmd := &cobra.Command{
		Use:   "scan <dir>",
		Short: "Scan project sources for licenses and copyrights",
		Long: `Scan runs the built-in license scanner over the repository sources,
records license and copyright findings per project, and resolves each
project's effective license using the curations and choices from
.complykit.toml. Results with known provenance are cached; rescanning an
unchanged revision is free.

Run analyze first; scan reuses its stored result.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runScan(cmd.Context(), args[0], name)
		},
	}

	cmd.Flags().StringVarP(&name, "name", "n", "", "run name (default: directory name)")

	return cmd
}

func (c *CLI) runScan(ctx context.Context, dir, name string) error {
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
		// No stored analysis yet; produce one.
		if result, err = c.runAnalyze(ctx, dir, &analyzeOpts{name: name}); err != nil {
			return err
		}
	}

	cfg, err := loadConfig(dir)
	if err != nil {
		return err
	}
	scanCache, err := c.newCache()
	if err != nil {
		return err
	}
	defer scanCache.Close()

	runner := scanner.NewRunner(heuristic.New(), scanCache, c.Logger)
	resolver, err := license.NewResolver(cfg.ResolverConfig())
	if err != nil {
		return err
	}

	spinner := newSpinner(ctx, "Scanning sources...")
	spinner.Start()

	var records []scanner.Record
	for _, project := range result.Analyzer.Projects {
		prov := model.Provenance{}
		if project.VCS != (model.VCSInfo{}) {
			vcs := project.VCS
			prov.VCS = &vcs
		}
		rec, err := runner.ScanPackage(ctx, project.ID, dir, prov)
		if err != nil {
			spinner.StopWithError("Scan failed")
			return err
		}
		records = append(records, *rec)
		resolver.Resolve(project.ToPackage(), rec.Summary.Licenses, rec.Summary.Copyrights)
	}
	spinner.Stop()

	result.Scans = records
	if err := store.Save(ctx, result); err != nil {
		return err
	}

	printSuccess("Scanned %d projects", len(records))
	for _, project := range result.Analyzer.Projects {
		expr, ok := resolver.EffectiveLicense(project.ID, license.ViewConcludedOrDeclaredAndDetected)
		if !ok || expr == "" {
			expr = "unknown"
		}
		printKeyValue(project.ID.Name, expr)
	}
	printNextStep("Check vulnerabilities", fmt.Sprintf("complykit advise %s", dir))

	return nil
}
