package core

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

const (
	PersonA Person = "A"
	PersonB Person = "B"
)

const (
	Shared    SplitType = "shared"
	PersonalA SplitType = "personal_a"
	PersonalB SplitType = "personal_b"
)

type (
	// Person identifies one of the two participants of a household.
	Person string

	// SplitType says whose cost an expense is.
	SplitType string

	Date struct {
		time.Time
	}

	// ExpenseRecord is one ledger row. Year and Month mirror Date and are
	// re-derived whenever the record is written.
	ExpenseRecord struct {
		Date     Date
		Category string
		Amount   Money
		Memo     string
		Payer    Person
		Split    SplitType
		Year     int
		Month    int // 1-12
	}
)

var (
	// ErrValidation matches every *ValidationError.
	ErrValidation = errors.New("validation failed")
	// ErrInvariant marks input that would break a ledger invariant, such as
	// a split contribution larger than the payment.
	ErrInvariant = errors.New("invariant violation")

	ErrInvalidDate   = errors.New("invalid date")
	ErrInvalidAmount = errors.New("invalid amount")
	ErrInvalidPayer  = errors.New("invalid payer")
	ErrInvalidSplit  = errors.New("invalid split type")
	ErrEmptyCategory = errors.New("empty category")
	ErrEmptyName     = errors.New("empty item name")
	ErrInvalidStatus = errors.New("invalid status")
	ErrInvalidPeriod = errors.New("invalid period")
)

// ValidationError reports a malformed field of a row or of user input.
type ValidationError struct {
	Field string
	Value string
	Err   error
}

func (e *ValidationError) Error() string {
	if e.Value == "" {
		return fmt.Sprintf("%s: %v", e.Field, e.Err)
	}
	return fmt.Sprintf("%s %q: %v", e.Field, e.Value, e.Err)
}

func (e *ValidationError) Unwrap() error { return e.Err }

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

func invalid(field, value string, err error) error {
	return &ValidationError{Field: field, Value: value, Err: err}
}

func (p Person) Valid() bool { return p == PersonA || p == PersonB }

// Other returns the counterpart of p.
func (p Person) Other() Person {
	if p == PersonA {
		return PersonB
	}
	return PersonA
}

// ParseSplitType accepts the canonical tokens case-insensitively. An empty
// value is Shared, which is how rows written before the split column
// existed are read.
func ParseSplitType(s string) (SplitType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", string(Shared):
		return Shared, nil
	case string(PersonalA):
		return PersonalA, nil
	case string(PersonalB):
		return PersonalB, nil
	}
	return "", ErrInvalidSplit
}

func (s SplitType) Valid() bool {
	return s == Shared || s == PersonalA || s == PersonalB
}

// PersonalFor returns the personal split type of p.
func PersonalFor(p Person) SplitType {
	if p == PersonB {
		return PersonalB
	}
	return PersonalA
}

func (d Date) Validate() error {
	if d.IsZero() {
		return ErrInvalidDate
	}
	return nil
}

func (d Date) Month() int { return int(d.Time.Month()) }

// String renders the date the way it is stored in the ledger.
func (d Date) String() string { return d.Format(time.DateOnly) }

// NewDate creates a new Date from year, month, day
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// DateOf truncates t to its calendar day in t's location.
func DateOf(t time.Time) Date {
	return NewDate(t.Year(), int(t.Month()), t.Day())
}

var dateLayouts = []string{
	time.DateOnly,
	"2006/01/02",
	"2006-1-2",
	"2006/1/2",
	time.DateTime,
	"2006/01/02 15:04:05",
	time.RFC3339,
}

// sheetsEpoch is day zero of spreadsheet serial dates.
var sheetsEpoch = time.Date(1899, 12, 30, 0, 0, 0, 0, time.UTC)

// ParseDate parses the date formats found in the ledger, including
// spreadsheet serial day numbers.
func ParseDate(s string) (Date, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Date{}, ErrInvalidDate
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return DateOf(t), nil
		}
	}
	if serial, err := ParseAmount(s); err == nil && serial.Minor > 0 && serial.Minor < 2958466 {
		return DateOf(sheetsEpoch.AddDate(0, 0, int(serial.Minor))), nil
	}
	return Date{}, ErrInvalidDate
}

// NewExpenseRecord validates the fields and derives Year and Month from date.
func NewExpenseRecord(date Date, category string, amount Money, memo string, payer Person, split SplitType) (ExpenseRecord, error) {
	r := ExpenseRecord{
		Date:     date,
		Category: strings.TrimSpace(category),
		Amount:   amount,
		Memo:     strings.TrimSpace(memo),
		Payer:    payer,
		Split:    split,
	}
	if err := r.Validate(); err != nil {
		return ExpenseRecord{}, err
	}
	return r.Derive(), nil
}

func (r ExpenseRecord) Validate() error {
	if err := r.Date.Validate(); err != nil {
		return invalid("date", "", err)
	}
	if r.Category == "" {
		return invalid("category", "", ErrEmptyCategory)
	}
	if err := r.Amount.Validate(); err != nil {
		return invalid("amount", r.Amount.String(), err)
	}
	if !r.Payer.Valid() {
		return invalid("payer", string(r.Payer), ErrInvalidPayer)
	}
	if !r.Split.Valid() {
		return invalid("split", string(r.Split), ErrInvalidSplit)
	}
	return nil
}

// Derive returns r with Year and Month recomputed from Date.
func (r ExpenseRecord) Derive() ExpenseRecord {
	r.Year = r.Date.Year()
	r.Month = r.Date.Month()
	return r
}

// Consistent reports whether the stored Year and Month agree with Date.
func (r ExpenseRecord) Consistent() bool {
	return r.Year == r.Date.Year() && r.Month == r.Date.Month()
}
