package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"kakeibo/internal/core"
	"kakeibo/internal/log"
	"kakeibo/internal/report"
	"kakeibo/internal/settlement"
	"kakeibo/internal/sheets"
)

var (
	ErrUnknownCategory  = errors.New("unknown category")
	ErrUnknownBreakdown = errors.New("unknown breakdown")
	ErrMissingPayer     = errors.New("either payer or contribution_a is required")
)

// RowWarning reports a sheet row that was skipped. Row is the 1-based row
// number as shown in the spreadsheet.
type RowWarning struct {
	Row int
	Err error
}

// Observer receives domain events, typically to feed metrics.
type Observer interface {
	ExpenseRecorded(split core.SplitType, amount core.Money)
	RowSkipped(sheet string)
}

type nopObserver struct{}

func (nopObserver) ExpenseRecorded(core.SplitType, core.Money) {}
func (nopObserver) RowSkipped(string)                          {}

type Options struct {
	LedgerSheet   string
	ShoppingSheet string
	Logger        *log.Logger
	Observer      Observer
	// Now is the clock used for the budget alert.
	Now func() time.Time
}

// LedgerService runs every read-compute and write path of the household
// ledger against one row store. The period is always passed in.
type LedgerService struct {
	store         sheets.RowStore
	household     core.Household
	ledgerSheet   string
	shoppingSheet string
	logger        *log.Logger
	rows          *log.StructuredLogger
	observer      Observer
	now           func() time.Time

	// serialises read-modify-write sequences
	writeMu sync.Mutex
}

func NewLedgerService(store sheets.RowStore, h core.Household, opts Options) *LedgerService {
	if opts.LedgerSheet == "" {
		opts.LedgerSheet = "Ledger"
	}
	if opts.ShoppingSheet == "" {
		opts.ShoppingSheet = "Shopping"
	}
	if opts.Logger == nil {
		opts.Logger = log.Discard()
	}
	if opts.Observer == nil {
		opts.Observer = nopObserver{}
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	logger := opts.Logger.WithComponent(log.ComponentLedger)
	return &LedgerService{
		store:         store,
		household:     h,
		ledgerSheet:   opts.LedgerSheet,
		shoppingSheet: opts.ShoppingSheet,
		logger:        logger,
		rows:          log.NewStructuredLogger(logger),
		observer:      opts.Observer,
		now:           opts.Now,
	}
}

func (s *LedgerService) Household() core.Household { return s.household }

// Ledger is the parsed content of the ledger sheet.
type Ledger struct {
	Layout   core.LedgerLayout
	Records  []core.ExpenseRecord
	Warnings []RowWarning
}

// LoadLedger reads and parses the whole ledger. Malformed rows are skipped
// and reported as warnings; blank rows are ignored.
func (s *LedgerService) LoadLedger(ctx context.Context) (*Ledger, error) {
	snap, err := s.store.ReadAll(ctx, s.ledgerSheet)
	if err != nil {
		return nil, fmt.Errorf("read ledger: %w", err)
	}
	return s.parseLedger(ctx, snap), nil
}

func (s *LedgerService) parseLedger(ctx context.Context, snap sheets.Snapshot) *Ledger {
	header, rows, first := snap.Header, snap.Rows, 2
	if len(header) > 0 && !core.IsHeader(header) {
		// headerless sheet: the first row is data
		rows = append([][]string{header}, rows...)
		header, first = nil, 1
	}
	l := &Ledger{Layout: core.NewLedgerLayout(s.household, header)}
	for i, cells := range rows {
		if blank(cells) {
			continue
		}
		rec, err := l.Layout.ParseRow(cells)
		if err != nil {
			l.Warnings = append(l.Warnings, RowWarning{Row: i + first, Err: err})
			s.rows.LogRowSkipped(ctx, s.ledgerSheet, i+first, err)
			s.observer.RowSkipped(s.ledgerSheet)
			continue
		}
		l.Records = append(l.Records, rec)
	}
	return l
}

func blank(cells []string) bool {
	for _, c := range cells {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

// ExpenseInput is one submitted payment. Payer set means one person paid
// everything; otherwise ContributionA is A's part of Amount and B paid the
// rest.
type ExpenseInput struct {
	Date          core.Date
	Category      string
	Amount        core.Money
	Memo          string
	Split         core.SplitType
	Payer         core.Person
	ContributionA *core.Money
}

// RecordExpense materialises the input into ledger records and appends
// them. A zero amount records nothing and is not an error.
func (s *LedgerService) RecordExpense(ctx context.Context, in ExpenseInput) ([]core.ExpenseRecord, error) {
	category := strings.TrimSpace(in.Category)
	if category != "" && !s.household.HasCategory(category) {
		return nil, &core.ValidationError{Field: "category", Value: category, Err: ErrUnknownCategory}
	}
	if in.Split == "" {
		in.Split = core.Shared
	}

	var (
		entry settlement.Entry
		err   error
	)
	switch {
	case in.Payer != "":
		if !in.Payer.Valid() {
			return nil, &core.ValidationError{Field: "payer", Value: string(in.Payer), Err: core.ErrInvalidPayer}
		}
		entry, err = settlement.SinglePayer(in.Date, category, in.Memo, in.Split, in.Payer, in.Amount)
	case in.ContributionA != nil:
		var payment settlement.SplitPayment
		payment, err = settlement.NewSplitPayment(in.Amount, *in.ContributionA)
		entry = settlement.Entry{Date: in.Date, Category: category, Memo: in.Memo, Split: in.Split, Payment: payment}
	default:
		return nil, &core.ValidationError{Field: "payer", Err: ErrMissingPayer}
	}
	if err != nil {
		return nil, err
	}

	records, err := settlement.Materialize(entry, s.household)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		s.logger.InfoContext(ctx, "Zero amount, nothing recorded", log.FieldCategory, category)
		return nil, nil
	}

	if err := s.appendRecords(ctx, records); err != nil {
		return nil, err
	}
	for _, r := range records {
		s.observer.ExpenseRecorded(r.Split, r.Amount)
		s.logger.InfoContext(ctx, "Expense recorded", log.NewFields().WithRecord(r).ToSlice()...)
	}
	return records, nil
}

func (s *LedgerService) appendRecords(ctx context.Context, records []core.ExpenseRecord) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	snap, err := s.store.ReadAll(ctx, s.ledgerSheet)
	if err != nil {
		return fmt.Errorf("read ledger: %w", err)
	}
	var rows [][]string
	header := snap.Header
	if snap.Empty() {
		rows = append(rows, append([]string(nil), core.LedgerHeader...))
		header = core.LedgerHeader
	} else if !core.IsHeader(header) {
		header = nil
	}
	layout := core.NewLedgerLayout(s.household, header)
	if header != nil && len(rows) == 0 {
		// a sheet without split, year or month columns would read the new
		// rows back as shared
		if wide, wl, ok := layout.Widen(header); ok {
			snap.Header = wide
			if err := s.store.ReplaceSnapshot(ctx, s.ledgerSheet, snap); err != nil {
				return fmt.Errorf("widen ledger header: %w", err)
			}
			s.logger.InfoContext(ctx, "Ledger header widened", log.FieldSheet, s.ledgerSheet, "header", wide)
			layout = wl
		}
	}
	rows = append(rows, layout.Rows(records)...)

	if err := s.store.AppendMany(ctx, s.ledgerSheet, rows); err != nil {
		return fmt.Errorf("append ledger rows: %w", err)
	}
	return nil
}

// ImportRows appends the valid rows of an external table, such as an
// uploaded workbook, to the ledger. The first row is used as a header when
// it looks like one.
func (s *LedgerService) ImportRows(ctx context.Context, rows [][]string) ([]core.ExpenseRecord, []RowWarning, error) {
	var snap sheets.Snapshot
	if len(rows) > 0 {
		snap = sheets.Snapshot{Header: rows[0], Rows: rows[1:]}
	}
	l := s.parseLedger(ctx, snap)
	if len(l.Records) == 0 {
		return nil, l.Warnings, nil
	}
	if err := s.appendRecords(ctx, l.Records); err != nil {
		return nil, l.Warnings, err
	}
	s.logger.InfoContext(ctx, "Rows imported", log.FieldRows, len(l.Records), "skipped", len(l.Warnings))
	return l.Records, l.Warnings, nil
}

// ReplaceLedger overwrites the ledger with records, rewriting the header
// and re-deriving every year and month. Last writer wins.
func (s *LedgerService) ReplaceLedger(ctx context.Context, records []core.ExpenseRecord) error {
	for i, r := range records {
		if err := r.Validate(); err != nil {
			return fmt.Errorf("record %d: %w", i+1, err)
		}
	}
	layout := core.NewLedgerLayout(s.household, core.LedgerHeader)
	snap := sheets.Snapshot{
		Header: append([]string(nil), core.LedgerHeader...),
		Rows:   layout.Rows(records),
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	if err := s.store.ReplaceSnapshot(ctx, s.ledgerSheet, snap); err != nil {
		return fmt.Errorf("replace ledger: %w", err)
	}
	s.logger.InfoContext(ctx, "Ledger replaced", log.FieldRows, len(records))
	return nil
}

// Expenses returns the period's records, newest first.
func (s *LedgerService) Expenses(ctx context.Context, p core.Period) ([]core.ExpenseRecord, []RowWarning, error) {
	l, err := s.LoadLedger(ctx)
	if err != nil {
		return nil, nil, err
	}
	return report.History(l.Records, p), l.Warnings, nil
}

func (s *LedgerService) Settlement(ctx context.Context, p core.Period) (settlement.Result, []RowWarning, error) {
	l, err := s.LoadLedger(ctx)
	if err != nil {
		return settlement.Result{}, nil, err
	}
	res := settlement.ForPeriod(l.Records, p)
	s.logger.DebugContext(ctx, "Settlement computed",
		log.FieldOperation, log.OpSettle, log.FieldPeriod, p.String(), "direction", string(res.Direction), "transfer", res.Transfer.Minor)
	return res, l.Warnings, nil
}

// Breakdown groups a period's spending by category, day or payer.
type Breakdown struct {
	By         string
	Categories []core.CategoryAmount
	Days       []core.DayAmount
	Payers     []core.PayerAmount
}

func (s *LedgerService) Breakdown(ctx context.Context, p core.Period, by string) (Breakdown, []RowWarning, error) {
	if by == "" {
		by = "category"
	}
	if by != "category" && by != "day" && by != "payer" {
		return Breakdown{}, nil, &core.ValidationError{Field: "by", Value: by, Err: ErrUnknownBreakdown}
	}
	l, err := s.LoadLedger(ctx)
	if err != nil {
		return Breakdown{}, nil, err
	}
	b := Breakdown{By: by}
	switch by {
	case "category":
		b.Categories = report.ByCategory(l.Records, p)
	case "day":
		b.Days = report.ByDay(l.Records, p)
	case "payer":
		b.Payers = report.ByPayer(l.Records, p, s.household)
	}
	return b, l.Warnings, nil
}

func (s *LedgerService) Overview(ctx context.Context, p core.Period) (core.MonthOverview, []RowWarning, error) {
	l, err := s.LoadLedger(ctx)
	if err != nil {
		return core.MonthOverview{}, nil, err
	}
	return report.Overview(l.Records, p), l.Warnings, nil
}

// Alert compares this real-world month's spending with the budget.
func (s *LedgerService) Alert(ctx context.Context) (report.Alert, error) {
	l, err := s.LoadLedger(ctx)
	if err != nil {
		return report.Alert{}, err
	}
	return report.BudgetAlert(l.Records, s.now(), s.household.MonthlyBudget), nil
}

// Summary is the dashboard for one selected period.
type Summary struct {
	Period          core.Period
	Overview        core.MonthOverview
	Settlement      settlement.Result
	Alert           report.Alert
	PendingShopping int
	Warnings        []RowWarning
}

// Summary loads the ledger and the shopping list concurrently.
func (s *LedgerService) Summary(ctx context.Context, p core.Period) (Summary, error) {
	var (
		ledger   *Ledger
		shopping []ShoppingEntry
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		ledger, err = s.LoadLedger(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		shopping, _, err = s.ListShopping(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return Summary{}, err
	}

	sum := Summary{
		Period:     p,
		Overview:   report.Overview(ledger.Records, p),
		Settlement: settlement.ForPeriod(ledger.Records, p),
		Alert:      report.BudgetAlert(ledger.Records, s.now(), s.household.MonthlyBudget),
		Warnings:   ledger.Warnings,
	}
	for _, e := range shopping {
		if e.Item.Status == core.Pending {
			sum.PendingShopping++
		}
	}
	return sum, nil
}
