package commands

import (
	"github.com/spf13/cobra"

	"fintrack/internal/core"
	"fintrack/internal/log"
	"fintrack/internal/view"
)

func newTransactionsCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "transactions",
		Aliases: []string{"tx"},
		Short:   "List and edit transactions",
	}
	cmd.AddCommand(
		newTransactionsListCommand(a),
		newTransactionsAddCommand(a),
		newTransactionsUpdateCommand(a),
		newTransactionsDeleteCommand(a),
	)
	return cmd
}

// transactionsView mounts a fresh view over the backend collection.
func (a *app) transactionsView(cmd *cobra.Command) (*view.View[core.Transaction], error) {
	c, err := a.client(cmd.Context())
	if err != nil {
		return nil, err
	}
	v := view.NewTransactions(c.Transactions(), view.NewNotifier(), view.WithLogger(a.logger))
	v.Mount()
	return v, nil
}

func newTransactionsListCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List transactions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			v, err := a.transactionsView(cmd)
			if err != nil {
				return err
			}
			if err := v.Load(cmd.Context()); err != nil {
				return err
			}
			return printTransactions(cmd.OutOrStdout(), a.cfg.Output, v.Items())
		},
	}
}

type transactionFlags struct {
	category    string
	amount      string
	description string
}

func (f *transactionFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.category, "category", "", "category")
	cmd.Flags().StringVar(&f.amount, "amount", "", "amount, e.g. 12.50")
	cmd.Flags().StringVar(&f.description, "description", "", "free text description")
}

func (f *transactionFlags) draft() map[string]string {
	return map[string]string{
		"Category":    f.category,
		"Amount":      f.amount,
		"Description": f.description,
	}
}

func newTransactionsAddCommand(a *app) *cobra.Command {
	var f transactionFlags
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add a transaction",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			v, err := a.transactionsView(cmd)
			if err != nil {
				return err
			}
			v.SetDraft(f.draft())
			created, err := v.Submit(cmd.Context())
			if err := outcome(cmd, v.Notifier(), err); err != nil {
				return err
			}
			a.logger.Debug("Transaction created", log.FieldResourceID, created.TransactionID.String())
			return printTransactions(cmd.OutOrStdout(), a.cfg.Output, []core.Transaction{created})
		},
	}
	f.register(cmd)
	return cmd
}

func newTransactionsUpdateCommand(a *app) *cobra.Command {
	var f transactionFlags
	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Replace a transaction's fields",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			v, err := a.transactionsView(cmd)
			if err != nil {
				return err
			}
			v.SetDraft(f.draft())
			updated, err := v.Update(cmd.Context(), core.ID(args[0]))
			if err := outcome(cmd, v.Notifier(), err); err != nil {
				return err
			}
			return printTransactions(cmd.OutOrStdout(), a.cfg.Output, []core.Transaction{updated})
		},
	}
	f.register(cmd)
	return cmd
}

func newTransactionsDeleteCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a transaction",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			v, err := a.transactionsView(cmd)
			if err != nil {
				return err
			}
			return outcome(cmd, v.Notifier(), v.Delete(cmd.Context(), core.ID(args[0])))
		},
	}
}
