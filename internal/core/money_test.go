package core

import (
	"encoding/json"
	"errors"
	"testing"
)

func TestParseMoney(t *testing.T) {
	cases := []struct {
		in  string
		out string
		err error
	}{
		{"1", "1", nil},
		{"1.0", "1", nil},
		{"1.23", "1.23", nil},
		{"1,000", "1000", nil},
		{"1,234.50", "1234.5", nil},
		{"-12,345,678.9", "-12345678.9", nil},
		{"1,23", "", ErrInvalidAmount},
		{"1,2345", "", ErrInvalidAmount},
		{",100", "", ErrInvalidAmount},
		{"1.000,50", "", ErrInvalidAmount},
		{" 2.50 ", "2.5", nil},
		{"-12.5", "-12.5", nil},
		{"0", "", ErrEmptyAmount},
		{"0.00", "", ErrEmptyAmount},
		{"", "", ErrEmptyAmount},
		{"   ", "", ErrEmptyAmount},
		{"abc", "", ErrInvalidAmount},
		{"1.2.3", "", ErrInvalidAmount},
	}
	for _, tc := range cases {
		got, err := ParseMoney(tc.in)
		if tc.err != nil {
			if !errors.Is(err, tc.err) {
				t.Fatalf("%q expected %v, got %v", tc.in, tc.err, err)
			}
			continue
		}
		if err != nil || got.String() != tc.out {
			t.Fatalf("%q expected %s, got %s (err=%v)", tc.in, tc.out, got.String(), err)
		}
	}
}

func TestMoneyJSON(t *testing.T) {
	b, err := json.Marshal(MustMoney("50"))
	if err != nil || string(b) != "50" {
		t.Fatalf("marshal: %s %v", b, err)
	}

	for _, raw := range []string{`50`, `"50"`, `50.0`} {
		var m Money
		if err := json.Unmarshal([]byte(raw), &m); err != nil {
			t.Fatalf("unmarshal %s: %v", raw, err)
		}
		if m.Display() != "50 USD" {
			t.Fatalf("unmarshal %s: display %q", raw, m.Display())
		}
	}
}

func TestParseDate(t *testing.T) {
	cases := []struct {
		in   string
		want string
		ok   bool
	}{
		{"2024-01-31", "2024-01-31", true},
		{"01-31-2024", "2024-01-31", true},
		{"2024-01-31T10:00:00Z", "2024-01-31", true},
		{"", "", true},
		{"31/01/2024", "", false},
	}
	for _, tc := range cases {
		d, err := ParseDate(tc.in)
		if tc.ok != (err == nil) {
			t.Fatalf("%q: unexpected err %v", tc.in, err)
		}
		if tc.ok && d.String() != tc.want {
			t.Fatalf("%q: got %q want %q", tc.in, d.String(), tc.want)
		}
	}
}

func TestDateDisplayParsesOnce(t *testing.T) {
	var b Budget
	if err := json.Unmarshal([]byte(`{"Category":"Food","Amount":50,"StartDate":"2024-01-01","EndDate":"2024-01-31"}`), &b); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if b.StartDate.Display() != "1/1/2024" || b.EndDate.Display() != "1/31/2024" {
		t.Fatalf("display: %q %q", b.StartDate.Display(), b.EndDate.Display())
	}
}
