package core

import (
	"encoding/json"
	"errors"
	"strconv"
	"strings"
)

type (
	// ID is a server-assigned identifier. The backend may emit it as a JSON
	// number or a string; the client treats it as opaque text.
	ID string

	Transaction struct {
		TransactionID ID     `json:"TransactionID,omitempty"`
		Category      string `json:"Category"`
		Amount        Money  `json:"Amount"`
		Description   string `json:"Description"`
	}

	Budget struct {
		BudgetID  ID     `json:"BudgetID,omitempty"`
		Category  string `json:"Category"`
		Amount    Money  `json:"Amount"`
		StartDate Date   `json:"StartDate"`
		EndDate   Date   `json:"EndDate"`
	}
)

var (
	ErrEmptyAmount    = errors.New("amount cannot be empty or zero")
	ErrInvalidAmount  = errors.New("invalid amount")
	ErrEmptyCategory  = errors.New("empty category")
	ErrInvalidDate    = errors.New("invalid date")
	ErrMissingDate    = errors.New("start and end date are required")
	ErrDateOrder      = errors.New("end date must not be before start date")
	ErrDescriptionLen = errors.New("description too long (max 255 characters)")
)

// String returns the identifier text.
func (id ID) String() string { return string(id) }

// MarshalJSON emits canonical integers as JSON numbers so the backend sees
// the same shape it produced. Anything else, "007" included, stays a string.
func (id ID) MarshalJSON() ([]byte, error) {
	s := string(id)
	if n, err := strconv.ParseInt(s, 10, 64); err == nil && strconv.FormatInt(n, 10) == s {
		return []byte(s), nil
	}
	return json.Marshal(s)
}

func (id *ID) UnmarshalJSON(b []byte) error {
	raw := strings.TrimSpace(string(b))
	if raw == "null" {
		*id = ""
		return nil
	}
	if strings.HasPrefix(raw, `"`) {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*id = ID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*id = ID(n.String())
	return nil
}

// ID returns the transaction identifier.
func (t Transaction) ID() ID { return t.TransactionID }

// ID returns the budget identifier.
func (b Budget) ID() ID { return b.BudgetID }

// UnmarshalJSON also accepts the "Start Date"/"End Date" keys some backends
// emit in list responses.
func (b *Budget) UnmarshalJSON(data []byte) error {
	type plain Budget
	var aux struct {
		plain
		SpacedStart *Date `json:"Start Date"`
		SpacedEnd   *Date `json:"End Date"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	*b = Budget(aux.plain)
	if b.StartDate.IsZero() && aux.SpacedStart != nil {
		b.StartDate = *aux.SpacedStart
	}
	if b.EndDate.IsZero() && aux.SpacedEnd != nil {
		b.EndDate = *aux.SpacedEnd
	}
	return nil
}

// Validate checks the fields the backend requires before persisting.
func (t Transaction) Validate() error {
	if strings.TrimSpace(t.Category) == "" {
		return ErrEmptyCategory
	}
	if t.Amount.IsZero() {
		return ErrEmptyAmount
	}
	if len(t.Description) > 255 {
		return ErrDescriptionLen
	}
	return nil
}

func (b Budget) Validate() error {
	if strings.TrimSpace(b.Category) == "" {
		return ErrEmptyCategory
	}
	if b.Amount.IsZero() {
		return ErrEmptyAmount
	}
	if b.StartDate.IsZero() || b.EndDate.IsZero() {
		return ErrMissingDate
	}
	if b.EndDate.Before(b.StartDate.Time) {
		return ErrDateOrder
	}
	return nil
}
