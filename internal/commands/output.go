package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"fintrack/internal/core"
)

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func printTransactions(w io.Writer, format string, items []core.Transaction) error {
	if format == "json" {
		return writeJSON(w, items)
	}
	if len(items) == 0 {
		_, err := fmt.Fprintln(w, "No transactions yet.")
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tCATEGORY\tAMOUNT\tDESCRIPTION")
	for _, t := range items {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", t.TransactionID, t.Category, t.Amount.Display(), t.Description)
	}
	return tw.Flush()
}

func printBudgets(w io.Writer, format string, items []core.Budget) error {
	if format == "json" {
		return writeJSON(w, items)
	}
	if len(items) == 0 {
		_, err := fmt.Fprintln(w, "No budgets yet.")
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tCATEGORY\tAMOUNT\tSTART\tEND")
	for _, b := range items {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", b.BudgetID, b.Category, b.Amount.Display(), b.StartDate.Display(), b.EndDate.Display())
	}
	return tw.Flush()
}
