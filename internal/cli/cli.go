// Package cli implements the complykit command-line interface.
package cli

import (
	"context"
	"io"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/complykit/complykit/pkg/buildinfo"
	"github.com/complykit/complykit/pkg/cache"
	"github.com/complykit/complykit/pkg/config"
	"github.com/complykit/complykit/pkg/storage"
)

// =============================================================================
// Constants
// =============================================================================

// appName is the application name used for directories and display.
const appName = "complykit"

// Log levels exported for use in main.go.
const (
	LogDebug = log.DebugLevel
	LogInfo  = log.InfoLevel
)

// =============================================================================
// CLI - Central CLI State
// =============================================================================

// CLI holds shared state for all commands.
type CLI struct {
	Logger *log.Logger

	// storeOpts select the result store backend; bound as persistent flags.
	resultsDir string
	mongoURI   string
	noCache    bool
}

// New creates a new CLI instance with a default logger.
func New(w io.Writer, level log.Level) *CLI {
	return &CLI{Logger: newLogger(w, level)}
}

// SetLogLevel updates the logger's level.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
}

// RootCommand creates the root cobra command with all subcommands registered.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:          appName,
		Short:        "Complykit analyzes dependency licenses and vulnerabilities",
		Long:         `Complykit inspects a repository's dependency manifests, resolves the license situation of every package, queries vulnerability databases, and generates compliance reports (SPDX, CycloneDX, dependency graphs).`,
		Version:      buildinfo.Version,
		SilenceUsage: true,
	}

	root.SetVersionTemplate(buildinfo.Template())

	root.PersistentFlags().StringVar(&c.resultsDir, "results-dir", "", "directory for stored run results (default: XDG data dir)")
	root.PersistentFlags().StringVar(&c.mongoURI, "mongo", "", "MongoDB URI for shared result storage (overrides --results-dir)")
	root.PersistentFlags().BoolVar(&c.noCache, "no-cache", false, "disable the scan/advisory cache")

	// Register all subcommands
	root.AddCommand(c.analyzeCommand())
	root.AddCommand(c.scanCommand())
	root.AddCommand(c.adviseCommand())
	root.AddCommand(c.reportCommand())
	root.AddCommand(c.serveCommand())
	root.AddCommand(c.cacheCommand())
	root.AddCommand(c.completionCommand())

	return root
}

// =============================================================================
// Backend Factories
// =============================================================================

// newStore creates the result store selected by the persistent flags.
func (c *CLI) newStore(ctx context.Context) (storage.Store, error) {
	if c.mongoURI != "" {
		return storage.NewMongoStore(ctx, c.mongoURI)
	}
	dir := c.resultsDir
	if dir == "" {
		var err error
		if dir, err = resultsDir(); err != nil {
			return nil, err
		}
	}
	return storage.NewFileStore(dir)
}

// newCache creates the shared cache for scan results and HTTP responses.
func (c *CLI) newCache() (cache.Cache, error) {
	if c.noCache {
		return cache.NewNullCache(), nil
	}
	dir, err := cacheDir()
	if err != nil {
		return cache.NewNullCache(), nil
	}
	return cache.NewFileCache(dir)
}

// loadConfig reads the repository configuration from root, returning an
// empty configuration when the file is absent.
func loadConfig(root string) (*config.Config, error) {
	return config.LoadDir(root)
}

// =============================================================================
// Paths
// =============================================================================

// cacheDir returns the cache directory using XDG standard (~/.cache/complykit/).
func cacheDir() (string, error) {
	if cacheHome := os.Getenv("XDG_CACHE_HOME"); cacheHome != "" {
		return filepath.Join(cacheHome, appName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".cache", appName), nil
}

// resultsDir returns the result store directory using XDG standard
// (~/.local/share/complykit/results/).
func resultsDir() (string, error) {
	if dataHome := os.Getenv("XDG_DATA_HOME"); dataHome != "" {
		return filepath.Join(dataHome, appName, "results"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".local", "share", appName, "results"), nil
}

// runName derives the default run name from the repository directory.
func runName(dir string) string {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return filepath.Base(dir)
	}
	return filepath.Base(abs)
}
