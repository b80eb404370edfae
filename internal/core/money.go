// Package core provides money parsing and handling utilities.
//
// This file contains the decimal-backed Money type used for transaction and
// budget amounts, and the calendar Date used for budget periods.
package core

import (
	"encoding/json"
	"regexp"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Currency is the only currency the client displays.
const Currency = "USD"

// DateLayout is the ISO calendar date format used on the wire.
const DateLayout = "2006-01-02"

// groupedAmount matches amounts with well-formed thousands separators.
var groupedAmount = regexp.MustCompile(`^[+-]?\d{1,3}(,\d{3})+(\.\d+)?$`)

// dateLayouts are tried in order when decoding dates from the backend.
var dateLayouts = []string{DateLayout, "01-02-2006", time.RFC3339}

type (
	Money struct {
		decimal.Decimal
	}

	Date struct {
		time.Time
	}
)

// MustMoney parses s and panics on failure. Intended for tests and constants.
func MustMoney(s string) Money {
	m, err := ParseMoney(s)
	if err != nil {
		panic(err)
	}
	return m
}

// ParseMoney converts a form value to Money.
//
// It accepts both dot (12.34) and comma (12,34) decimal separators. Negative
// amounts are allowed; only presence and non-zero value are enforced.
//
// Examples:
//
//	ParseMoney("12.34") -> 12.34, nil
//	ParseMoney("1,234.50") -> 1234.5, nil
//	ParseMoney("12,34")    -> ErrInvalidAmount
//	ParseMoney("")      -> ErrEmptyAmount
//	ParseMoney("0.00")  -> ErrEmptyAmount
//	ParseMoney("abc")   -> ErrInvalidAmount
func ParseMoney(s string) (Money, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Money{}, ErrEmptyAmount
	}
	if strings.Contains(s, ",") {
		if !groupedAmount.MatchString(s) {
			return Money{}, ErrInvalidAmount
		}
		s = strings.ReplaceAll(s, ",", "")
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Money{}, ErrInvalidAmount
	}
	if d.IsZero() {
		return Money{}, ErrEmptyAmount
	}
	return Money{Decimal: d}, nil
}

// MarshalJSON writes the amount as a bare JSON number.
func (m Money) MarshalJSON() ([]byte, error) {
	return []byte(m.Decimal.String()), nil
}

// UnmarshalJSON accepts JSON numbers, quoted numbers and null.
func (m *Money) UnmarshalJSON(b []byte) error {
	return m.Decimal.UnmarshalJSON(b)
}

// Display renders the amount the way the lists show it, e.g. "50 USD".
func (m Money) Display() string {
	return m.Decimal.String() + " " + Currency
}

// NewDate creates a new Date from year, month, day
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// ParseDate parses a calendar date. An empty string yields the zero Date.
func ParseDate(s string) (Date, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Date{}, nil
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			y, mo, d := t.Date()
			return NewDate(y, int(mo), d), nil
		}
	}
	return Date{}, ErrInvalidDate
}

// String returns the ISO form, or "" for the zero date.
func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Format(DateLayout)
}

// Display renders the date for lists (month/day/year).
func (d Date) Display() string {
	if d.IsZero() {
		return ""
	}
	return d.Format("1/2/2006")
}

func (d Date) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

func (d *Date) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*d = Date{}
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}
