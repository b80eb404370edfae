package core

import (
	"encoding/json"
	"testing"
)

func TestIDJSON(t *testing.T) {
	cases := []struct {
		raw  string
		want ID
	}{
		{`{"TransactionID":7}`, "7"},
		{`{"TransactionID":"abc-1"}`, "abc-1"},
		{`{"TransactionID":null}`, ""},
		{`{}`, ""},
	}
	for _, tc := range cases {
		var tx Transaction
		if err := json.Unmarshal([]byte(tc.raw), &tx); err != nil {
			t.Fatalf("%s: %v", tc.raw, err)
		}
		if tx.ID() != tc.want {
			t.Fatalf("%s: got %q want %q", tc.raw, tx.ID(), tc.want)
		}
	}

	b, _ := json.Marshal(Transaction{TransactionID: "7", Category: "Food", Amount: MustMoney("1.5")})
	if string(b) != `{"TransactionID":7,"Category":"Food","Amount":1.5,"Description":""}` {
		t.Fatalf("marshal numeric id: %s", b)
	}
	for id, want := range map[ID]string{
		"7":     `7`,
		"-3":    `-3`,
		"007":   `"007"`,
		"+5":    `"+5"`,
		"-0":    `"-0"`,
		"abc-1": `"abc-1"`,
		"":      `""`,
	} {
		b, err := json.Marshal(id)
		if err != nil || string(b) != want {
			t.Fatalf("marshal %q: got %s (err=%v) want %s", id, b, err, want)
		}
		var back ID
		if err := json.Unmarshal(b, &back); err != nil || back != id {
			t.Fatalf("round trip %q: got %q (err=%v)", id, back, err)
		}
	}

	b, _ = json.Marshal(Transaction{Category: "Food", Amount: MustMoney("2")})
	if string(b) != `{"Category":"Food","Amount":2,"Description":""}` {
		t.Fatalf("marshal without id: %s", b)
	}
}

func TestTransactionValidate(t *testing.T) {
	good := Transaction{Category: "Food", Amount: MustMoney("12.5")}
	if err := good.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}

	bads := []Transaction{
		{Category: "", Amount: MustMoney("1")},
		{Category: "Food"},
		{Category: "Food", Amount: MustMoney("1"), Description: string(make([]byte, 256))},
	}
	for i, tx := range bads {
		if err := tx.Validate(); err == nil {
			t.Fatalf("case %d expected error", i)
		}
	}
}

func TestBudgetValidate(t *testing.T) {
	good := Budget{Category: "Food", Amount: MustMoney("50"), StartDate: NewDate(2024, 1, 1), EndDate: NewDate(2024, 1, 31)}
	if err := good.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}

	bads := []Budget{
		{Category: "", Amount: MustMoney("50"), StartDate: NewDate(2024, 1, 1), EndDate: NewDate(2024, 1, 31)},
		{Category: "Food", StartDate: NewDate(2024, 1, 1), EndDate: NewDate(2024, 1, 31)},
		{Category: "Food", Amount: MustMoney("50"), EndDate: NewDate(2024, 1, 31)},
		{Category: "Food", Amount: MustMoney("50"), StartDate: NewDate(2024, 2, 1), EndDate: NewDate(2024, 1, 31)},
	}
	for i, b := range bads {
		if err := b.Validate(); err == nil {
			t.Fatalf("case %d expected error", i)
		}
	}
}

func TestBudgetSpacedDateKeys(t *testing.T) {
	var b Budget
	raw := `{"Category":"Food","Amount":50,"Start Date":"01-01-2024","End Date":"01-31-2024"}`
	if err := json.Unmarshal([]byte(raw), &b); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if b.StartDate.String() != "2024-01-01" || b.EndDate.String() != "2024-01-31" {
		t.Fatalf("dates: %q %q", b.StartDate, b.EndDate)
	}
	if b.Amount.Display() != "50 USD" {
		t.Fatalf("amount: %q", b.Amount.Display())
	}
}
