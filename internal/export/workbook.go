// Package export writes a month of the ledger as an Excel workbook and
// reads ledger rows back from one.
package export

import (
	"errors"
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"kakeibo/internal/core"
	"kakeibo/internal/settlement"
)

const (
	SheetLedger    = "Ledger"
	SheetSummary   = "Summary"
	SheetBreakdown = "Breakdown"

	// yen amounts with thousands separators
	numFmtThousands = 3
)

// Month is everything exported for one period.
type Month struct {
	Household  core.Household
	Period     core.Period
	Records    []core.ExpenseRecord
	Settlement settlement.Result
	Overview   core.MonthOverview
}

// WriteWorkbook renders m as an .xlsx workbook to w.
func WriteWorkbook(w io.Writer, m Month) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SheetLedger); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}
	for _, name := range []string{SheetSummary, SheetBreakdown} {
		if _, err := f.NewSheet(name); err != nil {
			return fmt.Errorf("create sheet %s: %w", name, err)
		}
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return err
	}
	amount, err := f.NewStyle(&excelize.Style{NumFmt: numFmtThousands})
	if err != nil {
		return err
	}
	wb := &workbook{f: f, bold: bold, amount: amount}

	wb.ledger(m)
	wb.summary(m)
	wb.breakdown(m)
	if wb.err != nil {
		return wb.err
	}

	f.SetActiveSheet(0)
	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

// workbook remembers the first error so the sheet writers stay linear.
type workbook struct {
	f            *excelize.File
	bold, amount int
	err          error
}

func (wb *workbook) row(sheet string, r int, values ...any) {
	if wb.err != nil {
		return
	}
	cell, err := excelize.CoordinatesToCellName(1, r)
	if err != nil {
		wb.err = err
		return
	}
	wb.err = wb.f.SetSheetRow(sheet, cell, &values)
}

func (wb *workbook) style(sheet, from, to string, id int) {
	if wb.err == nil {
		wb.err = wb.f.SetCellStyle(sheet, from, to, id)
	}
}

func (wb *workbook) width(sheet, from, to string, w float64) {
	if wb.err == nil {
		wb.err = wb.f.SetColWidth(sheet, from, to, w)
	}
}

func (wb *workbook) ledger(m Month) {
	header := make([]any, len(core.LedgerHeader))
	for i, h := range core.LedgerHeader {
		header[i] = h
	}
	wb.row(SheetLedger, 1, header...)
	wb.style(SheetLedger, "A1", "H1", wb.bold)
	for i, r := range m.Records {
		wb.row(SheetLedger, i+2,
			r.Date.String(), r.Category, r.Amount.Minor, r.Memo,
			m.Household.Name(r.Payer), string(r.Split), r.Year, r.Month)
	}
	if n := len(m.Records); n > 0 {
		wb.style(SheetLedger, "C2", fmt.Sprintf("C%d", n+1), wb.amount)
	}
	wb.width(SheetLedger, "A", "A", 12)
	wb.width(SheetLedger, "B", "B", 16)
	wb.width(SheetLedger, "D", "D", 32)
}

func (wb *workbook) summary(m Month) {
	s := m.Settlement
	h := m.Household
	wb.row(SheetSummary, 1, "period", m.Period.String())
	wb.row(SheetSummary, 2, "total", m.Overview.Total.Minor)
	wb.row(SheetSummary, 3, "records", m.Overview.Count)
	wb.row(SheetSummary, 4, "paid by "+h.NameA, s.PaidByA.Minor)
	wb.row(SheetSummary, 5, "paid by "+h.NameB, s.PaidByB.Minor)
	wb.row(SheetSummary, 6, "transfer", s.Transfer.Minor)
	wb.row(SheetSummary, 7, "direction", DirectionText(s, h))
	wb.row(SheetSummary, 8, "unsettled", s.Unsettled.Minor)
	wb.style(SheetSummary, "A1", "A8", wb.bold)
	wb.style(SheetSummary, "B2", "B2", wb.amount)
	wb.style(SheetSummary, "B4", "B6", wb.amount)
	wb.width(SheetSummary, "A", "A", 20)
	wb.width(SheetSummary, "B", "B", 24)
}

func (wb *workbook) breakdown(m Month) {
	wb.row(SheetBreakdown, 1, "category", "amount", "count")
	wb.style(SheetBreakdown, "A1", "C1", wb.bold)
	for i, c := range m.Overview.ByCategory {
		wb.row(SheetBreakdown, i+2, c.Name, c.Amount.Minor, c.Count)
	}
	if n := len(m.Overview.ByCategory); n > 0 {
		wb.style(SheetBreakdown, "B2", fmt.Sprintf("B%d", n+1), wb.amount)
	}
	wb.width(SheetBreakdown, "A", "A", 20)
}

// DirectionText renders who pays whom, e.g. "Mei -> Riku".
func DirectionText(s settlement.Result, h core.Household) string {
	switch s.Direction {
	case settlement.AtoB:
		return h.NameA + " -> " + h.NameB
	case settlement.BtoA:
		return h.NameB + " -> " + h.NameA
	}
	return "settled"
}

// ReadRows returns the rows of one sheet of an .xlsx workbook, or of its
// first sheet when sheet is empty.
func ReadRows(r io.Reader, sheet string) ([][]string, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	if sheet == "" {
		list := f.GetSheetList()
		if len(list) == 0 {
			return nil, errors.New("workbook has no sheets")
		}
		sheet = list[0]
	}
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("read sheet %s: %w", sheet, err)
	}
	return rows, nil
}
