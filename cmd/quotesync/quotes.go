package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

func (c *cli) newAddCmd() *cobra.Command {
	var category string

	cmd := &cobra.Command{
		Use:   "add <text>",
		Short: "Add a quote to the local collection",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			q, err := c.app.Store.Add(cmd.Context(), strings.Join(args, " "), category)
			if err != nil && q.ID == "" {
				return err
			}

			printQuote(cmd.OutOrStdout(), q)

			return err
		},
	}

	cmd.Flags().StringVarP(&category, "category", "c", "", "category of the quote (required)")
	_ = cmd.MarkFlagRequired("category")

	return cmd
}

func (c *cli) newListCmd() *cobra.Command {
	var category string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List quotes, filtered by category",
		Long:  "List quotes. Without --category the last selected category is used. Dirty records are marked with *.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if category == "" {
				category = c.app.Store.SelectedCategory()
			}

			printQuotes(cmd.OutOrStdout(), c.app.Store.List(category))

			return nil
		},
	}

	cmd.Flags().StringVarP(&category, "category", "c", "", `category to show, "all" for every quote`)

	return cmd
}

func (c *cli) newRandomCmd() *cobra.Command {
	var category string

	cmd := &cobra.Command{
		Use:   "random",
		Short: "Print one random quote",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if category == "" {
				category = c.app.Store.SelectedCategory()
			}

			q, err := c.app.Store.Random(category)
			if err != nil {
				return err
			}

			printQuote(cmd.OutOrStdout(), q)

			return nil
		},
	}

	cmd.Flags().StringVarP(&category, "category", "c", "", "category to draw from")

	return cmd
}

func (c *cli) newCategoriesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "categories",
		Short: "List categories; the selected one is marked with >",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			selected := c.app.Store.SelectedCategory()

			for _, name := range c.app.Store.Categories() {
				marker := " "
				if name == selected {
					marker = ">"
				}

				fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", marker, name)
			}

			return nil
		},
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "select <category>",
		Short: "Remember a category as the default filter",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.app.Store.SelectCategory(cmd.Context(), args[0])
		},
	})

	return cmd
}

func (c *cli) newImportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "import <file>",
		Short: `Import quotes from a JSON array or {"quotes": [...]} document`,
		Long: `Import quotes from a JSON file ("-" reads stdin). Entries whose text and
category match an existing quote, ignoring case, are skipped.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var (
				doc []byte
				err error
			)

			if args[0] == "-" {
				doc, err = io.ReadAll(cmd.InOrStdin())
			} else {
				doc, err = os.ReadFile(args[0])
			}

			if err != nil {
				return fmt.Errorf("reading %s: %w", args[0], err)
			}

			res, err := c.app.Transfer.Import(cmd.Context(), doc)
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "imported %d, skipped %d\n", res.Added, res.Skipped)

			return nil
		},
	}
}

func (c *cli) newExportCmd() *cobra.Command {
	var out string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export every quote as a JSON array",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if out == "-" {
				return c.app.Transfer.Export(cmd.OutOrStdout())
			}

			if out == "" {
				out = c.app.Transfer.ExportFileName()
			}

			f, err := os.Create(out)
			if err != nil {
				return fmt.Errorf("creating %s: %w", out, err)
			}

			if err := c.app.Transfer.Export(f); err != nil {
				_ = f.Close()
				return err
			}

			if err := f.Close(); err != nil {
				return fmt.Errorf("writing %s: %w", out, err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "exported to %s\n", out)

			return nil
		},
	}

	cmd.Flags().StringVarP(&out, "out", "o", "", `output file, "-" for stdout (default quotes-YYYY-MM-DD.json)`)

	return cmd
}
