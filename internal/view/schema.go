package view

import (
	"fmt"
	"strings"

	"fintrack/internal/core"
)

// Draft holds raw form values keyed by field name.
type Draft map[string]string

// Clone returns an independent copy.
func (d Draft) Clone() Draft {
	out := make(Draft, len(d))
	for k, v := range d {
		out[k] = v
	}
	return out
}

// Field describes one form input.
type Field struct {
	Name  string
	Label string
	Type  string // text, number, date
}

// Messages are the user-facing texts published for each outcome.
type Messages struct {
	Created      string
	CreateFailed string
	Updated      string
	UpdateFailed string
	Deleted      string
	DeleteFailed string
	EmptyAmount  string
	Invalid      string
}

// Schema binds the generic view to one resource kind.
type Schema[R any] struct {
	Kind        string // URL segment and log resource, e.g. "transactions"
	Name        string // display name, e.g. "Transaction"
	Fields      []Field
	AmountField string
	CanUpdate   bool
	CanDelete   bool
	Messages    Messages

	// Build converts a draft into a request payload.
	Build func(Draft) (R, error)
	IDOf  func(R) core.ID
}

// EmptyDraft returns a draft with every field present and blank.
func (s Schema[R]) EmptyDraft() Draft {
	d := make(Draft, len(s.Fields))
	for _, f := range s.Fields {
		d[f.Name] = ""
	}
	return d
}

// HasField reports whether name is one of the schema's form fields.
func (s Schema[R]) HasField(name string) bool {
	for _, f := range s.Fields {
		if f.Name == name {
			return true
		}
	}
	return false
}

// TransactionSchema describes the Transactions view.
func TransactionSchema() Schema[core.Transaction] {
	return Schema[core.Transaction]{
		Kind: "transactions",
		Name: "Transaction",
		Fields: []Field{
			{Name: "Category", Label: "Category", Type: "text"},
			{Name: "Amount", Label: "Amount", Type: "number"},
			{Name: "Description", Label: "Description", Type: "text"},
		},
		AmountField: "Amount",
		CanUpdate:   true,
		CanDelete:   true,
		Messages: Messages{
			Created:      "Transaction successfully added!",
			CreateFailed: "Failed to add transaction",
			Updated:      "Transaction updated successfully!",
			UpdateFailed: "Failed to update transaction",
			Deleted:      "Transaction deleted successfully!",
			DeleteFailed: "Failed to delete transaction",
			EmptyAmount:  "Amount cannot be empty or zero",
			Invalid:      "Transaction is invalid",
		},
		Build: buildTransaction,
		IDOf:  core.Transaction.ID,
	}
}

// BudgetSchema describes the Budgets view.
func BudgetSchema() Schema[core.Budget] {
	return Schema[core.Budget]{
		Kind: "budgets",
		Name: "Budget",
		Fields: []Field{
			{Name: "Category", Label: "Category", Type: "text"},
			{Name: "Amount", Label: "Amount", Type: "number"},
			{Name: "StartDate", Label: "Start Date", Type: "date"},
			{Name: "EndDate", Label: "End Date", Type: "date"},
		},
		AmountField: "Amount",
		Messages: Messages{
			Created:      "Budget successfully added!",
			CreateFailed: "An error occurred while adding the budget. Please try again later.",
			EmptyAmount:  "Amount cannot be empty or zero",
			Invalid:      "Budget is invalid",
		},
		Build: buildBudget,
		IDOf:  core.Budget.ID,
	}
}

func buildTransaction(d Draft) (core.Transaction, error) {
	amount, err := core.ParseMoney(d["Amount"])
	if err != nil {
		return core.Transaction{}, fmt.Errorf("amount: %w", err)
	}
	return core.Transaction{
		Category:    strings.TrimSpace(d["Category"]),
		Amount:      amount,
		Description: strings.TrimSpace(d["Description"]),
	}, nil
}

func buildBudget(d Draft) (core.Budget, error) {
	amount, err := core.ParseMoney(d["Amount"])
	if err != nil {
		return core.Budget{}, fmt.Errorf("amount: %w", err)
	}
	start, err := core.ParseDate(d["StartDate"])
	if err != nil {
		return core.Budget{}, fmt.Errorf("start date: %w", err)
	}
	end, err := core.ParseDate(d["EndDate"])
	if err != nil {
		return core.Budget{}, fmt.Errorf("end date: %w", err)
	}
	return core.Budget{
		Category:  strings.TrimSpace(d["Category"]),
		Amount:    amount,
		StartDate: start,
		EndDate:   end,
	}, nil
}
