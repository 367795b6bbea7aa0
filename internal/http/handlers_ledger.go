package http

import (
	"bytes"
	"fmt"
	"net/http"
	"strings"

	"kakeibo/internal/core"
	"kakeibo/internal/export"
	"kakeibo/internal/log"
	"kakeibo/internal/report"
	"kakeibo/internal/services"
	"kakeibo/internal/settlement"
)

const (
	maxUploadBytes = 10 << 20
	xlsxType       = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

func (s *Server) handleCategories(w http.ResponseWriter, _ *http.Request) {
	h := s.ledger.Household()
	writeJSON(w, http.StatusOK, map[string]any{
		"categories": h.Categories,
		"participants": map[string]string{
			string(core.PersonA): h.NameA,
			string(core.PersonB): h.NameB,
		},
	})
}

func (s *Server) handleListExpenses(w http.ResponseWriter, r *http.Request) {
	p, err := s.parsePeriod(r)
	if err != nil {
		s.writeError(w, r, err, log.OpRead)
		return
	}
	records, warnings, err := s.ledger.Expenses(r.Context(), p)
	if err != nil {
		s.writeError(w, r, err, log.OpRead)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"period":   toPeriod(p),
		"records":  toRecords(records, s.ledger.Household()),
		"warnings": toWarnings(warnings),
	})
}

// handleCreateExpense records one payment. A zero amount is accepted and
// records nothing.
func (s *Server) handleCreateExpense(w http.ResponseWriter, r *http.Request) {
	var req expenseRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err, log.OpAppend)
		return
	}
	in, err := s.expenseInput(req)
	if err != nil {
		s.writeError(w, r, err, log.OpAppend)
		return
	}
	records, err := s.ledger.RecordExpense(r.Context(), in)
	if err != nil {
		s.writeError(w, r, err, log.OpAppend)
		return
	}
	status := http.StatusCreated
	if len(records) == 0 {
		status = http.StatusOK
	}
	writeJSON(w, status, map[string]any{"records": toRecords(records, s.ledger.Household())})
}

func (s *Server) expenseInput(req expenseRequest) (services.ExpenseInput, error) {
	date := core.DateOf(s.now())
	if v := strings.TrimSpace(req.Date); v != "" {
		d, err := core.ParseDate(v)
		if err != nil {
			return services.ExpenseInput{}, validation("date", v, err)
		}
		date = d
	}
	split, err := core.ParseSplitType(req.Split)
	if err != nil {
		return services.ExpenseInput{}, validation("split", req.Split, err)
	}
	in := services.ExpenseInput{
		Date:     date,
		Category: req.Category,
		Amount:   core.Money(req.Amount),
		Memo:     strings.TrimSpace(req.Memo),
		Split:    split,
	}
	if v := strings.TrimSpace(req.Payer); v != "" {
		payer, err := s.ledger.Household().ParsePayer(v)
		if err != nil {
			return services.ExpenseInput{}, validation("payer", v, err)
		}
		in.Payer = payer
	}
	if req.ContributionA != nil {
		c := core.Money(*req.ContributionA)
		in.ContributionA = &c
	}
	return in, nil
}

// handleReplaceExpenses is the bulk edit: the submitted records become the
// whole ledger.
func (s *Server) handleReplaceExpenses(w http.ResponseWriter, r *http.Request) {
	var req replaceLedgerRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err, log.OpReplace)
		return
	}
	h := s.ledger.Household()
	records := make([]core.ExpenseRecord, 0, len(req.Records))
	for i, in := range req.Records {
		rec, err := func() (core.ExpenseRecord, error) {
			date, err := core.ParseDate(in.Date)
			if err != nil {
				return core.ExpenseRecord{}, validation("date", in.Date, err)
			}
			payer, err := h.ParsePayer(in.Payer)
			if err != nil {
				return core.ExpenseRecord{}, validation("payer", in.Payer, err)
			}
			split, err := core.ParseSplitType(in.Split)
			if err != nil {
				return core.ExpenseRecord{}, validation("split", in.Split, err)
			}
			return core.NewExpenseRecord(date, in.Category, core.Money(in.Amount), in.Memo, payer, split)
		}()
		if err != nil {
			s.writeError(w, r, fmt.Errorf("record %d: %w", i+1, err), log.OpReplace)
			return
		}
		records = append(records, rec)
	}
	if err := s.ledger.ReplaceLedger(r.Context(), records); err != nil {
		s.writeError(w, r, err, log.OpReplace)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"replaced": len(records)})
}

// handleImportExpenses appends the rows of an uploaded workbook. The form
// field "file" holds the workbook and "sheet" optionally names the sheet.
func (s *Server) handleImportExpenses(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		s.writeError(w, r, fmt.Errorf("%w: %v", errBadRequest, err), log.OpAppend)
		return
	}
	file, _, err := r.FormFile("file")
	if err != nil {
		s.writeError(w, r, fmt.Errorf("%w: %v", errBadRequest, err), log.OpAppend)
		return
	}
	defer file.Close()

	sheet := strings.TrimSpace(r.FormValue("sheet"))
	if sheet == "" {
		sheet = export.SheetLedger
	}
	rows, err := export.ReadRows(file, sheet)
	if err != nil {
		s.writeError(w, r, fmt.Errorf("%w: %v", errBadRequest, err), log.OpAppend)
		return
	}
	records, warnings, err := s.ledger.ImportRows(r.Context(), rows)
	if err != nil {
		s.writeError(w, r, err, log.OpAppend)
		return
	}
	status := http.StatusCreated
	if len(records) == 0 {
		status = http.StatusOK
	}
	writeJSON(w, status, map[string]any{
		"records":  toRecords(records, s.ledger.Household()),
		"warnings": toWarnings(warnings),
	})
}

func (s *Server) handleSettlement(w http.ResponseWriter, r *http.Request) {
	p, err := s.parsePeriod(r)
	if err != nil {
		s.writeError(w, r, err, log.OpSettle)
		return
	}
	res, warnings, err := s.ledger.Settlement(r.Context(), p)
	if err != nil {
		s.writeError(w, r, err, log.OpSettle)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"period":     toPeriod(p),
		"settlement": toSettlement(res, s.ledger.Household()),
		"warnings":   toWarnings(warnings),
	})
}

func (s *Server) handleBreakdown(w http.ResponseWriter, r *http.Request) {
	p, err := s.parsePeriod(r)
	if err != nil {
		s.writeError(w, r, err, log.OpRead)
		return
	}
	b, warnings, err := s.ledger.Breakdown(r.Context(), p, strings.TrimSpace(r.URL.Query().Get("by")))
	if err != nil {
		s.writeError(w, r, err, log.OpRead)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"period":   toPeriod(p),
		"by":       b.By,
		"rows":     toBreakdown(b),
		"warnings": toWarnings(warnings),
	})
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	p, err := s.parsePeriod(r)
	if err != nil {
		s.writeError(w, r, err, log.OpRead)
		return
	}
	sum, err := s.ledger.Summary(r.Context(), p)
	if err != nil {
		s.writeError(w, r, err, log.OpRead)
		return
	}
	s.metrics.ObserveAlert(sum.Alert)
	h := s.ledger.Household()
	writeJSON(w, http.StatusOK, map[string]any{
		"period":           toPeriod(sum.Period),
		"overview":         toOverview(sum.Overview),
		"settlement":       toSettlement(sum.Settlement, h),
		"alert":            toAlert(sum.Alert),
		"pending_shopping": sum.PendingShopping,
		"warnings":         toWarnings(sum.Warnings),
	})
}

// handleExport streams the period as an .xlsx workbook.
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	p, err := s.parsePeriod(r)
	if err != nil {
		s.writeError(w, r, err, log.OpRead)
		return
	}
	records, _, err := s.ledger.Expenses(r.Context(), p)
	if err != nil {
		s.writeError(w, r, err, log.OpRead)
		return
	}
	var buf bytes.Buffer
	err = export.WriteWorkbook(&buf, export.Month{
		Household:  s.ledger.Household(),
		Period:     p,
		Records:    records,
		Settlement: settlement.ForPeriod(records, p),
		Overview:   report.Overview(records, p),
	})
	if err != nil {
		s.writeError(w, r, err, log.OpRead)
		return
	}
	w.Header().Set("Content-Type", xlsxType)
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="kakeibo-%s.xlsx"`, p))
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}
