package core

import (
	"errors"
	"testing"
)

func TestParseAmount(t *testing.T) {
	cases := []struct {
		in  string
		out int64
		ok  bool
	}{
		{"0", 0, true},
		{"1200", 1200, true},
		{"1,200", 1200, true},
		{"¥1,200", 1200, true},
		{"1200円", 1200, true},
		{" 980 ", 980, true},
		{"1200.0", 1200, true},
		{"12.5", 0, false},
		{"-1", 0, false},
		{"abc", 0, false},
		{"", 0, false},
		{"99999999999999999999", 0, false},
		{"1,000,000,000,000", 1_000_000_000_000, true},
		{"1000000000001", 0, false},
		{"9223372036854775807", 0, false},
	}
	for _, tc := range cases {
		got, err := ParseAmount(tc.in)
		if tc.ok {
			if err != nil || got.Minor != tc.out {
				t.Fatalf("%q expected %d, got %d (err=%v)", tc.in, tc.out, got.Minor, err)
			}
			continue
		}
		if !errors.Is(err, ErrInvalidAmount) {
			t.Fatalf("%q expected ErrInvalidAmount, got %v", tc.in, err)
		}
	}
}

func TestMoneyValidateCeiling(t *testing.T) {
	if err := MaxAmount.Validate(); err != nil {
		t.Fatalf("MaxAmount should be valid: %v", err)
	}
	if err := (Money{Minor: MaxAmount.Minor + 1}).Validate(); !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("above MaxAmount: got %v", err)
	}
}

func TestMoneyFormat(t *testing.T) {
	if got := (Money{Minor: 1234567}).String(); got != "1,234,567" {
		t.Fatalf("unexpected format %q", got)
	}
	if got := (Money{Minor: 980}).Yen(); got != "980 円" {
		t.Fatalf("unexpected yen format %q", got)
	}
}

func TestParsePrice(t *testing.T) {
	p, err := ParsePrice("198.5")
	if err != nil || p.String() != "198.5" {
		t.Fatalf("expected 198.5, got %s (err=%v)", p, err)
	}
	if p, err := ParsePrice(""); err != nil || !p.IsZero() {
		t.Fatalf("empty price should be zero, got %s (err=%v)", p, err)
	}
	if _, err := ParsePrice("-3"); err == nil {
		t.Fatalf("expected error for negative price")
	}
}
