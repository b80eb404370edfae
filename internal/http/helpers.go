package http

import (
	"net/http"
	"strings"

	"fintrack/internal/core"
	"fintrack/internal/view"
)

// normalizeBase turns a configured base path into "" (root) or "/segment"
// without a trailing slash.
func normalizeBase(base string) string {
	base = strings.TrimSpace(base)
	base = strings.Trim(base, "/")
	if base == "" {
		return ""
	}
	return "/" + base
}

// isHTMX reports whether the request was issued by htmx.
func isHTMX(r *http.Request) bool {
	return r.Header.Get("HX-Request") == "true"
}

// row is one rendered list entry.
type row struct {
	ID       string
	Category string
	Amount   string
	Detail   string
}

func transactionRow(t core.Transaction) row {
	return row{
		ID:       t.TransactionID.String(),
		Category: t.Category,
		Amount:   t.Amount.Display(),
		Detail:   t.Description,
	}
}

func budgetRow(b core.Budget) row {
	return row{
		ID:       b.BudgetID.String(),
		Category: b.Category,
		Amount:   b.Amount.Display(),
		Detail:   "Start Date: " + b.StartDate.Display() + ", End Date: " + b.EndDate.Display(),
	}
}

// formField is a schema field with its current draft value.
type formField struct {
	view.Field
	Value string
}

func formFields(fields []view.Field, draft view.Draft) []formField {
	out := make([]formField, 0, len(fields))
	for _, f := range fields {
		out = append(out, formField{Field: f, Value: draft[f.Name]})
	}
	return out
}

func fieldNames(fields []view.Field) []string {
	names := make([]string, 0, len(fields))
	for _, f := range fields {
		names = append(names, f.Name)
	}
	return names
}
