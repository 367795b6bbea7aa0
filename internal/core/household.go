package core

import (
	"errors"
	"strings"
)

// DefaultCategories is the category list offered when the household file
// does not define one.
var DefaultCategories = []string{
	"食費", "日用品", "外食", "交通費", "地方競馬", "中央競馬(G1)", "カード(オリパ)", "投資", "その他",
}

// Household names the two participants and carries per-household settings.
// Payers are written to the ledger by display name.
type Household struct {
	NameA         string
	NameB         string
	Categories    []string
	MonthlyBudget Money
}

func DefaultHousehold() Household {
	return Household{
		NameA:      "りく",
		NameB:      "彼女",
		Categories: append([]string(nil), DefaultCategories...),
	}
}

func (h Household) Validate() error {
	a, b := strings.TrimSpace(h.NameA), strings.TrimSpace(h.NameB)
	if a == "" || b == "" {
		return errors.New("both participant names are required")
	}
	if strings.EqualFold(a, b) {
		return errors.New("participant names must differ")
	}
	if strings.EqualFold(a, string(PersonB)) || strings.EqualFold(b, string(PersonA)) {
		return errors.New("participant names clash with the A/B tokens")
	}
	return h.MonthlyBudget.Validate()
}

// Name returns the display name of p.
func (h Household) Name(p Person) string {
	if p == PersonB {
		return h.NameB
	}
	return h.NameA
}

// ParsePayer maps a display name or a canonical A/B token to a Person.
func (h Household) ParsePayer(s string) (Person, error) {
	s = strings.TrimSpace(s)
	switch {
	case s == "":
		return "", ErrInvalidPayer
	case strings.EqualFold(s, h.NameA), strings.EqualFold(s, string(PersonA)):
		return PersonA, nil
	case strings.EqualFold(s, h.NameB), strings.EqualFold(s, string(PersonB)):
		return PersonB, nil
	}
	return "", ErrInvalidPayer
}

// HasCategory reports whether c is one of the configured categories. An
// empty category list accepts anything.
func (h Household) HasCategory(c string) bool {
	if len(h.Categories) == 0 {
		return true
	}
	c = strings.TrimSpace(c)
	for _, known := range h.Categories {
		if known == c {
			return true
		}
	}
	return false
}
