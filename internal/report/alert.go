package report

import (
	"time"

	"github.com/shopspring/decimal"

	"kakeibo/internal/core"
)

type AlertLevel string

const (
	AlertNone AlertLevel = "none"
	// AlertNear is raised from 80% of the budget.
	AlertNear AlertLevel = "near"
	AlertOver AlertLevel = "over"
)

const nearBudgetPercent = 80

// Alert is the month-to-date spending of the real-world current month.
type Alert struct {
	Period    core.Period
	Spent     core.Money
	Budget    core.Money
	Remaining core.Money // negative once over budget
	Percent   int        // of budget, 0 when no budget is set
	Level     AlertLevel
}

// BudgetAlert always looks at the month containing now, never at the
// month a user selected for browsing. A zero budget disables the alert.
func BudgetAlert(records []core.ExpenseRecord, now time.Time, budget core.Money) Alert {
	p := core.CurrentPeriod(now)
	a := Alert{Period: p, Budget: budget, Level: AlertNone}
	for _, r := range records {
		if p.Contains(r) {
			a.Spent = a.Spent.Add(r.Amount)
		}
	}
	if budget.Minor <= 0 {
		return a
	}
	a.Remaining = budget.Sub(a.Spent)
	a.Percent = int(decimal.NewFromInt(a.Spent.Minor).
		Mul(decimal.NewFromInt(100)).
		Div(decimal.NewFromInt(budget.Minor)).
		IntPart())
	switch {
	case a.Spent.Minor > budget.Minor:
		a.Level = AlertOver
	case a.Percent >= nearBudgetPercent:
		a.Level = AlertNear
	}
	return a
}
