package settlement

import (
	"fmt"
	"strings"

	"kakeibo/internal/core"
)

// SplitPayment is one purchase paid jointly by both participants.
// ContributionA + ContributionB always equals Total.
type SplitPayment struct {
	Total         core.Money
	ContributionA core.Money
	ContributionB core.Money
}

// NewSplitPayment derives B's share. A contribution outside [0, total] is
// rejected with core.ErrInvariant.
func NewSplitPayment(total, contributionA core.Money) (SplitPayment, error) {
	if total.Minor < 0 || contributionA.Minor < 0 {
		return SplitPayment{}, fmt.Errorf("%w: negative amount", core.ErrInvariant)
	}
	if total.Minor > core.MaxAmount.Minor {
		return SplitPayment{}, fmt.Errorf("%w: total %s exceeds the maximum %s", core.ErrInvariant, total, core.MaxAmount)
	}
	if contributionA.Minor > total.Minor {
		return SplitPayment{}, fmt.Errorf("%w: contribution %s exceeds total %s",
			core.ErrInvariant, contributionA, total)
	}
	return SplitPayment{
		Total:         total,
		ContributionA: contributionA,
		ContributionB: total.Sub(contributionA),
	}, nil
}

// Share returns the part paid by p.
func (s SplitPayment) Share(p core.Person) core.Money {
	if p == core.PersonB {
		return s.ContributionB
	}
	return s.ContributionA
}

// Entry is what a participant submits for one payment.
type Entry struct {
	Date     core.Date
	Category string
	Memo     string
	Split    core.SplitType
	Payment  SplitPayment
}

// Materialize turns an entry into the ledger records to append: A's record
// first, then B's. A zero share writes no record, so a zero total writes
// nothing at all. When both participants paid, each memo is marked with
// whose share it is.
func Materialize(e Entry, h core.Household) ([]core.ExpenseRecord, error) {
	p := e.Payment
	if p.ContributionA.Minor+p.ContributionB.Minor != p.Total.Minor ||
		p.ContributionA.Minor < 0 || p.ContributionB.Minor < 0 {
		return nil, fmt.Errorf("%w: shares %s + %s do not add up to %s",
			core.ErrInvariant, p.ContributionA, p.ContributionB, p.Total)
	}
	both := p.ContributionA.Minor > 0 && p.ContributionB.Minor > 0

	var out []core.ExpenseRecord
	for _, person := range []core.Person{core.PersonA, core.PersonB} {
		share := p.Share(person)
		if share.Minor == 0 {
			continue
		}
		memo := strings.TrimSpace(e.Memo)
		if both {
			memo = shareMemo(memo, h.Name(person))
		}
		rec, err := core.NewExpenseRecord(e.Date, e.Category, share, memo, person, e.Split)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, nil
}

func shareMemo(memo, name string) string {
	marker := fmt.Sprintf("(%s's share)", name)
	if memo == "" {
		return marker
	}
	return memo + " " + marker
}

// SinglePayer is the entry for a payment made entirely by one person.
func SinglePayer(date core.Date, category, memo string, split core.SplitType, payer core.Person, amount core.Money) (Entry, error) {
	contributionA := amount
	if payer == core.PersonB {
		contributionA = core.Money{}
	}
	payment, err := NewSplitPayment(amount, contributionA)
	if err != nil {
		return Entry{}, err
	}
	return Entry{Date: date, Category: category, Memo: memo, Split: split, Payment: payment}, nil
}
