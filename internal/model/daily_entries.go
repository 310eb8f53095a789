package model

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// DateLayout is the calendar-day key format used for daily entries.
const DateLayout = "2006-01-02"

// DailyEntries maps a calendar date (YYYY-MM-DD) to the total amount logged
// that day. Stored as a JSON column; validated on every scan and write so a
// malformed row is rejected instead of silently trusted.
type DailyEntries map[string]decimal.Decimal

// Validate checks that every key is a calendar date and every amount is
// non-negative.
func (d DailyEntries) Validate() error {
	for date, amount := range d {
		_, err := time.Parse(DateLayout, date)
		if err != nil {
			return fmt.Errorf("invalid daily entry date %q: %w", date, err)
		}
		if amount.IsNegative() {
			return fmt.Errorf("negative daily entry amount for %s: %s", date, amount)
		}
	}
	return nil
}

// Add accumulates amount into the entry for date. Multiple calls on the same
// day sum, they never overwrite.
func (d DailyEntries) Add(date string, amount decimal.Decimal) {
	d[date] = d[date].Add(amount)
}

// Sum returns the total of all daily amounts.
func (d DailyEntries) Sum() decimal.Decimal {
	total := decimal.Zero
	for _, amount := range d {
		total = total.Add(amount)
	}
	return total
}

// Dates returns the entry dates in descending order.
func (d DailyEntries) Dates() []string {
	dates := make([]string, 0, len(d))
	for date := range d {
		dates = append(dates, date)
	}
	sort.Sort(sort.Reverse(sort.StringSlice(dates)))
	return dates
}

// Value implements driver.Valuer.
func (d DailyEntries) Value() (driver.Value, error) {
	if d == nil {
		return "{}", nil
	}
	err := d.Validate()
	if err != nil {
		return nil, err
	}
	b, err := json.Marshal(d)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan implements sql.Scanner.
func (d *DailyEntries) Scan(src any) error {
	var b []byte
	switch v := src.(type) {
	case nil:
		*d = DailyEntries{}
		return nil
	case []byte:
		b = v
	case string:
		b = []byte(v)
	default:
		return fmt.Errorf("cannot scan %T into DailyEntries", src)
	}

	// The original schema defaulted the column to a JSON array.
	if len(b) == 0 || string(b) == "[]" || string(b) == "null" {
		*d = DailyEntries{}
		return nil
	}

	entries := DailyEntries{}
	err := json.Unmarshal(b, &entries)
	if err != nil {
		return fmt.Errorf("malformed daily entries: %w", err)
	}
	err = entries.Validate()
	if err != nil {
		return err
	}
	*d = entries
	return nil
}

// Clone returns a copy that can be mutated without aliasing the receiver.
func (d DailyEntries) Clone() DailyEntries {
	out := make(DailyEntries, len(d))
	for date, amount := range d {
		out[date] = amount
	}
	return out
}
