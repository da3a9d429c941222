package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"saldo/internal/core"
)

func categoriesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "categories",
		Short: "List the categories of an owner",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			owner, _ := cmd.Flags().GetString("owner")
			rawKind, _ := cmd.Flags().GetString("kind")
			var kind core.Kind
			if rawKind != "" {
				k, err := core.ParseKind(rawKind)
				if err != nil {
					return fmt.Errorf("--kind: %w", err)
				}
				kind = k
			}

			a, err := setup(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			l, err := a.ledger(cmd.Context(), owner)
			if err != nil {
				return err
			}
			cats := l.Categories()
			if kind != "" {
				cats = l.CategoriesForKind(kind)
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			defer w.Flush()

			headerStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("86"))
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
				headerStyle.Render("ID"),
				headerStyle.Render("Name"),
				headerStyle.Render("Kind"),
				headerStyle.Render("Color"),
				headerStyle.Render("Default"))
			for _, c := range cats {
				swatch := lipgloss.NewStyle().Foreground(lipgloss.Color(c.Color)).Render("■ " + c.Color)
				def := ""
				if c.IsDefault {
					def = "yes"
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", c.ID, c.Name, c.Kind, swatch, def)
			}
			return nil
		},
	}
	addOwnerFlag(cmd)
	cmd.Flags().String("kind", "", "only list categories of this kind (income, expense)")
	return cmd
}
