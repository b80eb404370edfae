package commands

import (
	"github.com/spf13/cobra"

	"fintrack/internal/core"
	"fintrack/internal/view"
)

func newBudgetsCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "budgets",
		Short: "List and add budgets",
	}
	cmd.AddCommand(newBudgetsListCommand(a), newBudgetsAddCommand(a))
	return cmd
}

func (a *app) budgetsView(cmd *cobra.Command) (*view.View[core.Budget], error) {
	c, err := a.client(cmd.Context())
	if err != nil {
		return nil, err
	}
	v := view.NewBudgets(c.Budgets(), view.NewNotifier(), view.WithLogger(a.logger))
	v.Mount()
	return v, nil
}

func newBudgetsListCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List budgets",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			v, err := a.budgetsView(cmd)
			if err != nil {
				return err
			}
			if err := v.Load(cmd.Context()); err != nil {
				return err
			}
			return printBudgets(cmd.OutOrStdout(), a.cfg.Output, v.Items())
		},
	}
}

func newBudgetsAddCommand(a *app) *cobra.Command {
	var category, amount, start, end string
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add a budget for a date range",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			v, err := a.budgetsView(cmd)
			if err != nil {
				return err
			}
			v.SetDraft(map[string]string{
				"Category":  category,
				"Amount":    amount,
				"StartDate": start,
				"EndDate":   end,
			})
			created, err := v.Submit(cmd.Context())
			if err := outcome(cmd, v.Notifier(), err); err != nil {
				return err
			}
			return printBudgets(cmd.OutOrStdout(), a.cfg.Output, []core.Budget{created})
		},
	}
	cmd.Flags().StringVar(&category, "category", "", "category")
	cmd.Flags().StringVar(&amount, "amount", "", "budgeted amount")
	cmd.Flags().StringVar(&start, "start", "", "start date, YYYY-MM-DD")
	cmd.Flags().StringVar(&end, "end", "", "end date, YYYY-MM-DD")
	return cmd
}
