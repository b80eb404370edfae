package commands

import (
	"fmt"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"fintrack/internal/core"
)

type overview struct {
	Transactions []core.Transaction `json:"transactions"`
	Budgets      []core.Budget      `json:"budgets"`
}

func newOverviewCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "overview",
		Short: "Show transactions and budgets together",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := a.client(cmd.Context())
			if err != nil {
				return err
			}

			var out overview
			g, ctx := errgroup.WithContext(cmd.Context())
			g.Go(func() error {
				items, err := c.Transactions().List(ctx)
				out.Transactions = items
				return err
			})
			g.Go(func() error {
				items, err := c.Budgets().List(ctx)
				out.Budgets = items
				return err
			})
			if err := g.Wait(); err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			if a.cfg.Output == "json" {
				return writeJSON(w, out)
			}
			fmt.Fprintf(w, "Transactions (%d)\n", len(out.Transactions))
			if err := printTransactions(w, "table", out.Transactions); err != nil {
				return err
			}
			fmt.Fprintf(w, "\nBudgets (%d)\n", len(out.Budgets))
			return printBudgets(w, "table", out.Budgets)
		},
	}
}
