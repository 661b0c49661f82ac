package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/complykit/complykit/pkg/advisor"
	"github.com/complykit/complykit/pkg/advisor/osv"
	"github.com/complykit/complykit/pkg/errors"
)

// adviseCommand creates the advise command.
func (c *CLI) adviseCommand() *cobra.Command {
	var name string

	cmd := &cobra.Command{
		Use:   "advise <dir>",
		Short: "Query vulnerability databases for all packages",
		Long: `Advise queries OSV.dev for every package in the dependency graph and
stores the known vulnerabilities with the run result. Provider outages
degrade to per-package issues; the rest of the run is unaffected.

Run analyze first; advise reuses its stored result.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runAdvise(cmd.Context(), args[0], name)
		},
	}

	cmd.Flags().StringVarP(&name, "name", "n", "", "run name (default: directory name)")

	return cmd
}

func (c *CLI) runAdvise(ctx context.Context, dir, name string) error {
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

	httpCache, err := c.newCache()
	if err != nil {
		return err
	}
	defer httpCache.Close()

	adv := advisor.New([]advisor.Provider{osv.New(httpCache)}, c.Logger)

	spinner := newSpinner(ctx, "Querying vulnerability databases...")
	spinner.Start()
	advRes, err := adv.Run(ctx, result.Analyzer.Packages)
	if err != nil {
		spinner.StopWithError("Advisory run failed")
		return err
	}
	spinner.Stop()

	result.Advisor = advRes
	if err := store.Save(ctx, result); err != nil {
		return err
	}

	affected := len(advRes.Vulnerabilities)
	if affected == 0 {
		printSuccess("No known vulnerabilities in %d packages", len(result.Analyzer.Packages))
	} else {
		printWarning("%d of %d packages have known vulnerabilities", affected, len(result.Analyzer.Packages))
		for id, vulns := range advRes.Vulnerabilities {
			for _, v := range vulns {
				printDetail("%s: %s (%s %.1f)", id, v.ID, v.Rating, v.Score)
			}
		}
	}
	printIssues(advRes.Issues)
	printNextStep("Generate reports", fmt.Sprintf("complykit report %s", dir))

	return nil
}
