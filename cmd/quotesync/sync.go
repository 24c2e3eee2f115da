package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jsamuelsen/quote-sync/internal/domain"
)

func (c *cli) newSyncCmd() *cobra.Command {
	var (
		policy  string
		resolve string
		discard bool
	)

	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Run one sync cycle against the remote",
		Long: `Push every dirty quote, pull a batch from the remote and merge it.

A local quote that is dirty and differs from its remote counterpart is a
conflict. With the server_wins policy the remote copy is applied at once.
With the manual policy conflicts are printed and, unless --resolve or
--discard is given, left for a later cycle.

Examples:
  quotesync sync
  quotesync sync --policy manual
  quotesync sync --policy manual --resolve local
  quotesync sync --policy manual --discard`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if resolve != "" && discard {
				return fmt.Errorf("--resolve and --discard are mutually exclusive")
			}

			var choice domain.Choice

			if resolve != "" {
				var err error

				choice, err = domain.ParseChoice(resolve)
				if err != nil {
					return err
				}
			}

			if policy != "" {
				p, err := domain.ParsePolicy(policy)
				if err != nil {
					return err
				}

				c.app.Engine.SetPolicy(p)
			}

			out := cmd.OutOrStdout()
			engine := c.app.Engine

			printReport(out, engine.Sync(cmd.Context()))

			pending := engine.Conflicts()
			if len(pending) == 0 {
				return nil
			}

			printConflicts(out, pending)

			switch {
			case discard:
				fmt.Fprintf(out, "discarded %d conflicts\n", engine.DiscardConflicts())
			case choice != "":
				n, err := engine.ResolveAll(cmd.Context(), choice)
				if err != nil {
					return err
				}

				fmt.Fprintf(out, "resolved %d conflicts keeping %s\n", n, choice)
			default:
				fmt.Fprintln(out, mutedStyle.Render("unresolved; rerun with --resolve remote|local or --discard"))
			}

			return nil
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&policy, "policy", "", "conflict policy for this run: server_wins or manual (default from config)")
	flags.StringVar(&resolve, "resolve", "", "resolve pending conflicts keeping remote or local")
	flags.BoolVar(&discard, "discard", false, "drop pending conflicts and leave local records dirty")

	return cmd
}

func (c *cli) newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show sync preferences and unsynced quotes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			out := cmd.OutOrStdout()
			prefs := c.app.Store.Preferences()

			fmt.Fprintf(out, "remote:     %s\n", c.app.Config.Remote.BaseURL)
			fmt.Fprintf(out, "policy:     %s\n", c.app.Engine.Policy())
			fmt.Fprintf(out, "auto-sync:  %t\n", prefs.AutoSync)
			fmt.Fprintf(out, "last sync:  %s\n", formatTime(prefs.LastSync))
			fmt.Fprintf(out, "quotes:     %d\n", len(c.app.Store.Snapshot()))

			dirty := c.app.Store.Dirty()
			fmt.Fprintf(out, "unsynced:   %d\n", len(dirty))
			printQuotes(out, dirty)

			return nil
		},
	}
}

func (c *cli) newAutoSyncCmd() *cobra.Command {
	return &cobra.Command{
		Use:       "autosync <on|off>",
		Short:     "Turn the service's periodic sync on or off",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{"on", "off"},
		RunE: func(cmd *cobra.Command, args []string) error {
			switch args[0] {
			case "on":
				return c.app.Scheduler.SetEnabled(cmd.Context(), true)
			case "off":
				return c.app.Scheduler.SetEnabled(cmd.Context(), false)
			default:
				return fmt.Errorf("expected on or off, got %q", args[0])
			}
		},
	}
}
