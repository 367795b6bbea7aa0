// Package report aggregates ledger records for the category, day and payer
// views. Every view is scoped by the same Period filter the settlement uses.
package report

import (
	"sort"
	"time"

	"kakeibo/internal/core"
)

// ByCategory sums the period's records per category, largest first. Ties
// keep the order in which the categories first appear.
func ByCategory(records []core.ExpenseRecord, p core.Period) []core.CategoryAmount {
	idx := map[string]int{}
	var out []core.CategoryAmount
	for _, r := range records {
		if !p.Contains(r) {
			continue
		}
		i, ok := idx[r.Category]
		if !ok {
			i = len(out)
			idx[r.Category] = i
			out = append(out, core.CategoryAmount{Name: r.Category})
		}
		out[i].Amount = out[i].Amount.Add(r.Amount)
		out[i].Count++
	}
	sort.SliceStable(out, func(a, b int) bool { return out[a].Amount.Minor > out[b].Amount.Minor })
	return out
}

// ByDay sums the period's records per calendar date in ascending order.
func ByDay(records []core.ExpenseRecord, p core.Period) []core.DayAmount {
	idx := map[time.Time]int{}
	var out []core.DayAmount
	for _, r := range records {
		if !p.Contains(r) {
			continue
		}
		i, ok := idx[r.Date.Time]
		if !ok {
			i = len(out)
			idx[r.Date.Time] = i
			out = append(out, core.DayAmount{Date: r.Date})
		}
		out[i].Amount = out[i].Amount.Add(r.Amount)
		out[i].Count++
	}
	sort.Slice(out, func(a, b int) bool { return out[a].Date.Before(out[b].Date.Time) })
	return out
}

// ByPayer sums everything each participant paid in the period, shared or
// not. Participants without records are omitted.
func ByPayer(records []core.ExpenseRecord, p core.Period, h core.Household) []core.PayerAmount {
	var totals [2]core.Money
	var seen [2]bool
	for _, r := range records {
		if !p.Contains(r) {
			continue
		}
		i := 0
		if r.Payer == core.PersonB {
			i = 1
		}
		totals[i] = totals[i].Add(r.Amount)
		seen[i] = true
	}
	var out []core.PayerAmount
	for i, person := range []core.Person{core.PersonA, core.PersonB} {
		if seen[i] {
			out = append(out, core.PayerAmount{Payer: person, Name: h.Name(person), Amount: totals[i]})
		}
	}
	return out
}

// Overview is the month total with its category breakdown.
func Overview(records []core.ExpenseRecord, p core.Period) core.MonthOverview {
	ov := core.MonthOverview{Period: p, ByCategory: ByCategory(records, p)}
	for _, c := range ov.ByCategory {
		ov.Total = ov.Total.Add(c.Amount)
		ov.Count += c.Count
	}
	return ov
}

// History returns the period's records newest first. Records of the same
// day keep their ledger order.
func History(records []core.ExpenseRecord, p core.Period) []core.ExpenseRecord {
	out := p.Filter(records)
	sort.SliceStable(out, func(a, b int) bool { return out[a].Date.After(out[b].Date.Time) })
	return out
}
