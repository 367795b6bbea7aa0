// Package settlement computes how shared spending is balanced between the
// two participants of a household, and turns jointly paid purchases into
// ledger records.
package settlement

import "kakeibo/internal/core"

const (
	None Direction = "none"
	// AtoB means PersonA owes PersonB.
	AtoB Direction = "a_to_b"
	// BtoA means PersonB owes PersonA.
	BtoA Direction = "b_to_a"
)

type Direction string

// Result is the outcome of settling one set of records.
//
// Transfer is half the imbalance rounded down. Unsettled is the remainder
// of an odd imbalance (0 or 1) that is left unpaid.
type Result struct {
	PaidByA    core.Money
	PaidByB    core.Money
	Difference core.Money // PaidByA - PaidByB, may be negative
	Transfer   core.Money
	Unsettled  core.Money
	Direction  Direction
}

// Debtor returns who pays the transfer. ok is false when nothing is owed.
func (r Result) Debtor() (p core.Person, ok bool) {
	switch r.Direction {
	case AtoB:
		return core.PersonA, true
	case BtoA:
		return core.PersonB, true
	}
	return "", false
}

// Compute settles the shared records among records. Personal records are
// ignored whoever paid them. Records must already be validated.
func Compute(records []core.ExpenseRecord) Result {
	var res Result
	for _, r := range records {
		if r.Split != core.Shared {
			continue
		}
		switch r.Payer {
		case core.PersonA:
			res.PaidByA = res.PaidByA.Add(r.Amount)
		case core.PersonB:
			res.PaidByB = res.PaidByB.Add(r.Amount)
		}
	}
	d := res.PaidByA.Minor - res.PaidByB.Minor
	res.Difference = core.Money{Minor: d}
	switch {
	case d > 0:
		res.Direction = BtoA
	case d < 0:
		res.Direction = AtoB
		d = -d
	default:
		res.Direction = None
	}
	res.Transfer = core.Money{Minor: d / 2}
	res.Unsettled = core.Money{Minor: d % 2}
	return res
}

// ForPeriod settles only the records that belong to p.
func ForPeriod(records []core.ExpenseRecord, p core.Period) Result {
	return Compute(p.Filter(records))
}
