// Package core provides money parsing and handling utilities.
//
// Amounts are whole minor units of the household currency (yen by default),
// so no rounding happens anywhere after parsing.
package core

import (
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/shopspring/decimal"
)

type Money struct {
	Minor int64
}

// MaxAmount is the largest amount a single record may carry, one trillion
// minor units. Sums of millions of such records still fit in an int64.
var MaxAmount = Money{Minor: 1_000_000_000_000}

var maxMinor = decimal.NewFromInt(MaxAmount.Minor)

// currencyMarks are stripped before parsing; thousands separators go too.
var currencyMarks = strings.NewReplacer(",", "", "¥", "", "￥", "", "円", "", " ", "", "\u00a0", "")

// ParseAmount parses a non-negative whole amount.
//
// It tolerates thousands separators, yen marks and a zero fraction as
// produced by spreadsheets ("1,200", "¥1200", "1200円", "1200.0").
// Fractional, negative, non-numeric or input above MaxAmount fails with
// ErrInvalidAmount.
func ParseAmount(s string) (Money, error) {
	s = currencyMarks.Replace(strings.TrimSpace(s))
	if s == "" {
		return Money{}, ErrInvalidAmount
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Money{}, ErrInvalidAmount
	}
	if d.IsNegative() || !d.Equal(d.Truncate(0)) || d.GreaterThan(maxMinor) {
		return Money{}, ErrInvalidAmount
	}
	return Money{Minor: d.IntPart()}, nil
}

// ParsePrice parses a shopping-list price, which may carry a fraction.
// An empty cell is a zero price.
func ParsePrice(s string) (decimal.Decimal, error) {
	s = currencyMarks.Replace(strings.TrimSpace(s))
	if s == "" {
		return decimal.Zero, nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil || d.IsNegative() {
		return decimal.Zero, ErrInvalidAmount
	}
	return d, nil
}

func (m Money) Validate() error {
	if m.Minor < 0 || m.Minor > MaxAmount.Minor {
		return ErrInvalidAmount
	}
	return nil
}

func (m Money) Add(o Money) Money { return Money{Minor: m.Minor + o.Minor} }

func (m Money) Sub(o Money) Money { return Money{Minor: m.Minor - o.Minor} }

// String formats m with thousands separators, e.g. "12,345".
func (m Money) String() string {
	return humanize.Comma(m.Minor)
}

// Yen formats m the way amounts are shown to people, e.g. "12,345 円".
func (m Money) Yen() string {
	return m.String() + " 円"
}
