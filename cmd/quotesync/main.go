// Package main is the quotesync command-line client. It works on the same
// record store as the service and runs sync cycles in the foreground.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/jsamuelsen/quote-sync/internal/bootstrap"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		stop()
		os.Exit(1)
	}
}

// cli carries global flags and the application wired for one invocation.
type cli struct {
	configDir string
	profile   string
	verbose   bool

	app *bootstrap.App
}

func newRootCmd() *cobra.Command {
	c := &cli{}

	root := &cobra.Command{
		Use:   "quotesync",
		Short: "Manage a local quote collection and sync it with a remote",
		Long: `quotesync keeps a local, categorised collection of quotes and
reconciles it with a remote posts collection.

Examples:
  quotesync add "Stay hungry" --category Life
  quotesync list --category Life
  quotesync random
  quotesync sync
  quotesync sync --policy manual --resolve local
  quotesync export --out backup.json`,
		SilenceUsage:       true,
		SilenceErrors:      true,
		PersistentPreRunE:  c.open,
		PersistentPostRunE: c.close,
	}

	profile := os.Getenv("APP_ENVIRONMENT")
	if profile == "" {
		profile = "local"
	}

	flags := root.PersistentFlags()
	flags.StringVar(&c.configDir, "config-dir", "configs", "directory holding base.yaml and profile files")
	flags.StringVar(&c.profile, "profile", profile, "configuration profile")
	flags.BoolVarP(&c.verbose, "verbose", "v", false, "log at the configured level instead of warn")

	root.AddCommand(
		c.newAddCmd(),
		c.newListCmd(),
		c.newRandomCmd(),
		c.newCategoriesCmd(),
		c.newImportCmd(),
		c.newExportCmd(),
		c.newSyncCmd(),
		c.newStatusCmd(),
		c.newAutoSyncCmd(),
	)

	return root
}

func (c *cli) open(cmd *cobra.Command, _ []string) error {
	cfg, err := bootstrap.LoadConfig(c.configDir, c.profile)
	if err != nil {
		return err
	}

	if !c.verbose {
		cfg.Log.Level = "warn"
	}

	logger := bootstrap.NewLogger(cfg, cmd.ErrOrStderr())

	c.app, err = bootstrap.New(cmd.Context(), cfg, logger)

	return err
}

func (c *cli) close(cmd *cobra.Command, _ []string) error {
	if c.app == nil {
		return nil
	}

	return c.app.Close(context.WithoutCancel(cmd.Context()))
}
