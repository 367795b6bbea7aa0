package core

import (
	"strconv"
	"strings"
)

type ledgerField int

const (
	colDate ledgerField = iota
	colCategory
	colAmount
	colMemo
	colPayer
	colSplit
	colYear
	colMonth
	ledgerFieldCount
)

// LedgerHeader is the header row written to an empty ledger sheet.
var LedgerHeader = []string{"date", "category", "amount", "memo", "payer", "split", "year", "month"}

// ledgerAliases maps known header names, including the original Japanese
// sheet headers, to columns.
var ledgerAliases = map[string]ledgerField{
	"date": colDate, "日付": colDate,
	"category": colCategory, "カテゴリー": colCategory, "カテゴリ": colCategory,
	"amount": colAmount, "金額": colAmount, "金額（円）": colAmount,
	"memo": colMemo, "メモ": colMemo,
	"payer": colPayer, "buyer": colPayer, "支払者": colPayer, "購入者": colPayer,
	"split": colSplit, "split_type": colSplit, "splittype": colSplit, "区分": colSplit,
	"year": colYear, "年": colYear,
	"month": colMonth, "月": colMonth,
}

// LedgerLayout turns untyped ledger rows into ExpenseRecords and back.
// Columns are located by header name when the header is recognised and
// fall back to the positional LedgerHeader order otherwise.
type LedgerLayout struct {
	household Household
	cols      [ledgerFieldCount]int
}

// NewLedgerLayout locates columns by header name. When the header names
// date and amount, the other columns of the original five-column sheet
// (category, memo, payer) fall back to their position if the header does
// not name them and that position is not taken. Split, year and month have
// no fallback and stay unmapped.
func NewLedgerLayout(h Household, header []string) LedgerLayout {
	l := LedgerLayout{household: h}
	for i := range l.cols {
		l.cols[i] = i
	}
	if len(header) == 0 {
		return l
	}
	var cols [ledgerFieldCount]int
	for i := range cols {
		cols[i] = -1
	}
	taken := make([]bool, len(header))
	for i, name := range header {
		f, ok := ledgerAliases[strings.ToLower(strings.TrimSpace(name))]
		if !ok {
			continue
		}
		taken[i] = true
		if cols[f] == -1 {
			cols[f] = i
		}
	}
	if cols[colDate] < 0 || cols[colAmount] < 0 {
		return l
	}
	for _, f := range []ledgerField{colCategory, colMemo, colPayer} {
		if cols[f] == -1 && int(f) < len(header) && !taken[f] {
			cols[f] = int(f)
			taken[f] = true
		}
	}
	l.cols = cols
	return l
}

// Widen extends header with the LedgerHeader names of the fields the
// layout has no column for, and returns the layout over the wider header.
// ok is false when every field already has a column.
func (l LedgerLayout) Widen(header []string) (wide []string, wl LedgerLayout, ok bool) {
	wide = append([]string(nil), header...)
	wl = l
	for f, c := range l.cols {
		if c < 0 {
			wl.cols[f] = len(wide)
			wide = append(wide, LedgerHeader[f])
			ok = true
		}
	}
	return wide, wl, ok
}

// IsHeader reports whether cells look like a header row rather than data.
func IsHeader(cells []string) bool {
	if len(cells) == 0 {
		return false
	}
	_, ok := ledgerAliases[strings.ToLower(strings.TrimSpace(cells[0]))]
	return ok
}

func (l LedgerLayout) get(cells []string, f ledgerField) string {
	i := l.cols[f]
	if i < 0 || i >= len(cells) {
		return ""
	}
	return strings.TrimSpace(cells[i])
}

// ParseRow builds a validated record from positional cells. Stored year and
// month are kept when numeric so that month filters see what the sheet
// holds; otherwise they are derived from the date.
func (l LedgerLayout) ParseRow(cells []string) (ExpenseRecord, error) {
	raw := l.get(cells, colDate)
	date, err := ParseDate(raw)
	if err != nil {
		return ExpenseRecord{}, invalid("date", raw, err)
	}
	raw = l.get(cells, colAmount)
	amount, err := ParseAmount(raw)
	if err != nil {
		return ExpenseRecord{}, invalid("amount", raw, err)
	}
	raw = l.get(cells, colPayer)
	payer, err := l.household.ParsePayer(raw)
	if err != nil {
		return ExpenseRecord{}, invalid("payer", raw, err)
	}
	raw = l.get(cells, colSplit)
	split, err := ParseSplitType(raw)
	if err != nil {
		return ExpenseRecord{}, invalid("split", raw, err)
	}
	rec, err := NewExpenseRecord(date, l.get(cells, colCategory), amount, l.get(cells, colMemo), payer, split)
	if err != nil {
		return ExpenseRecord{}, err
	}
	if y, err := strconv.Atoi(l.get(cells, colYear)); err == nil && y > 0 {
		rec.Year = y
	}
	if m, err := strconv.Atoi(l.get(cells, colMonth)); err == nil && m >= 1 && m <= 12 {
		rec.Month = m
	}
	return rec, nil
}

// ParseMap builds a record from a keyed row such as a decoded JSON object.
// Keys are matched against the known header names.
func (l LedgerLayout) ParseMap(m map[string]string) (ExpenseRecord, error) {
	cells := make([]string, ledgerFieldCount)
	for k, v := range m {
		if f, ok := ledgerAliases[strings.ToLower(strings.TrimSpace(k))]; ok {
			cells[f] = v
		}
	}
	positional := LedgerLayout{household: l.household}
	for i := range positional.cols {
		positional.cols[i] = i
	}
	return positional.ParseRow(cells)
}

// Row serialises r into the layout's columns, so appended rows line up
// with the sheet's own header. Fields the header has no column for are
// dropped, so writers widen the header first. Year and month always come
// from the date.
func (l LedgerLayout) Row(r ExpenseRecord) []string {
	r = r.Derive()
	values := [ledgerFieldCount]string{
		colDate:     r.Date.String(),
		colCategory: r.Category,
		colAmount:   strconv.FormatInt(r.Amount.Minor, 10),
		colMemo:     r.Memo,
		colPayer:    l.household.Name(r.Payer),
		colSplit:    string(r.Split),
		colYear:     strconv.Itoa(r.Year),
		colMonth:    strconv.Itoa(r.Month),
	}
	width := 0
	for _, c := range l.cols {
		width = max(width, c+1)
	}
	out := make([]string, width)
	for f, c := range l.cols {
		if c >= 0 {
			out[c] = values[f]
		}
	}
	return out
}

// Rows serialises records in order.
func (l LedgerLayout) Rows(records []ExpenseRecord) [][]string {
	out := make([][]string, len(records))
	for i, r := range records {
		out[i] = l.Row(r)
	}
	return out
}
