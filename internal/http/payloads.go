package http

import (
	"encoding/json"
	"strings"

	"github.com/shopspring/decimal"

	"kakeibo/internal/core"
	"kakeibo/internal/export"
	"kakeibo/internal/report"
	"kakeibo/internal/services"
	"kakeibo/internal/settlement"
)

// amountField accepts an amount as a JSON number or as a string such as
// "1,200" or "¥1200".
type amountField core.Money

func (a *amountField) UnmarshalJSON(data []byte) error {
	raw := strings.TrimSpace(string(data))
	if strings.HasPrefix(raw, `"`) {
		if err := json.Unmarshal(data, &raw); err != nil {
			return err
		}
	}
	m, err := core.ParseAmount(raw)
	if err != nil {
		return &core.ValidationError{Field: "amount", Value: raw, Err: err}
	}
	*a = amountField(m)
	return nil
}

// priceField accepts a shopping-list price as a JSON number or a string.
// null reads as a zero price, like an empty cell.
type priceField decimal.Decimal

func (p *priceField) UnmarshalJSON(data []byte) error {
	raw := strings.TrimSpace(string(data))
	if raw == "null" {
		*p = priceField(decimal.Zero)
		return nil
	}
	if strings.HasPrefix(raw, `"`) {
		if err := json.Unmarshal(data, &raw); err != nil {
			return err
		}
	}
	d, err := core.ParsePrice(raw)
	if err != nil {
		return &core.ValidationError{Field: "expected_price", Value: raw, Err: err}
	}
	*p = priceField(d)
	return nil
}

type expenseRequest struct {
	Date          string       `json:"date"`
	Category      string       `json:"category"`
	Amount        amountField  `json:"amount"`
	Memo          string       `json:"memo"`
	Split         string       `json:"split"`
	Payer         string       `json:"payer"`
	ContributionA *amountField `json:"contribution_a"`
}

type recordPayload struct {
	Date     string `json:"date"`
	Category string `json:"category"`
	Amount   int64  `json:"amount"`
	Memo     string `json:"memo,omitempty"`
	Payer    string `json:"payer"`
	Split    string `json:"split"`
}

type recordResponse struct {
	recordPayload
	PayerName string `json:"payer_name"`
	Year      int    `json:"year"`
	Month     int    `json:"month"`
}

type replaceLedgerRequest struct {
	Records []struct {
		Date     string      `json:"date"`
		Category string      `json:"category"`
		Amount   amountField `json:"amount"`
		Memo     string      `json:"memo"`
		Payer    string      `json:"payer"`
		Split    string      `json:"split"`
	} `json:"records"`
}

type warningResponse struct {
	Row   int    `json:"row"`
	Error string `json:"error"`
}

type periodResponse struct {
	Year  int `json:"year"`
	Month int `json:"month"`
}

type settlementResponse struct {
	PaidByA    int64  `json:"paid_by_a"`
	PaidByB    int64  `json:"paid_by_b"`
	Difference int64  `json:"difference"`
	Transfer   int64  `json:"transfer"`
	Unsettled  int64  `json:"unsettled"`
	Direction  string `json:"direction"`
	From       string `json:"from,omitempty"`
	To         string `json:"to,omitempty"`
	Text       string `json:"text"`
}

type amountRow struct {
	Key    string `json:"key"`
	Label  string `json:"label,omitempty"`
	Amount int64  `json:"amount"`
	Count  int    `json:"count,omitempty"`
}

type overviewResponse struct {
	Total      int64       `json:"total"`
	Count      int         `json:"count"`
	ByCategory []amountRow `json:"by_category"`
}

type alertResponse struct {
	Period    periodResponse `json:"period"`
	Spent     int64          `json:"spent"`
	Budget    int64          `json:"budget"`
	Remaining int64          `json:"remaining"`
	Percent   int            `json:"percent"`
	Level     string         `json:"level"`
}

type shoppingRequest struct {
	Item          string     `json:"item"`
	Place         string     `json:"place"`
	ExpectedPrice priceField `json:"expected_price"`
	Status        string     `json:"status"`
	Memo          string     `json:"memo"`
}

type shoppingResponse struct {
	Index         *int   `json:"index,omitempty"`
	Item          string `json:"item"`
	Place         string `json:"place,omitempty"`
	ExpectedPrice string `json:"expected_price"`
	Status        string `json:"status"`
	Memo          string `json:"memo,omitempty"`
}

type errorResponse struct {
	Error     string `json:"error"`
	RequestID string `json:"request_id,omitempty"`
}

func toRecord(r core.ExpenseRecord, h core.Household) recordResponse {
	return recordResponse{
		recordPayload: recordPayload{
			Date:     r.Date.String(),
			Category: r.Category,
			Amount:   r.Amount.Minor,
			Memo:     r.Memo,
			Payer:    string(r.Payer),
			Split:    string(r.Split),
		},
		PayerName: h.Name(r.Payer),
		Year:      r.Year,
		Month:     r.Month,
	}
}

func toRecords(records []core.ExpenseRecord, h core.Household) []recordResponse {
	out := make([]recordResponse, 0, len(records))
	for _, r := range records {
		out = append(out, toRecord(r, h))
	}
	return out
}

func toWarnings(ws []services.RowWarning) []warningResponse {
	out := make([]warningResponse, 0, len(ws))
	for _, w := range ws {
		out = append(out, warningResponse{Row: w.Row, Error: w.Err.Error()})
	}
	return out
}

func toPeriod(p core.Period) periodResponse {
	return periodResponse{Year: p.Year, Month: p.Month}
}

func toSettlement(s settlement.Result, h core.Household) settlementResponse {
	out := settlementResponse{
		PaidByA:    s.PaidByA.Minor,
		PaidByB:    s.PaidByB.Minor,
		Difference: s.Difference.Minor,
		Transfer:   s.Transfer.Minor,
		Unsettled:  s.Unsettled.Minor,
		Direction:  string(s.Direction),
		Text:       export.DirectionText(s, h),
	}
	if debtor, ok := s.Debtor(); ok {
		out.From = h.Name(debtor)
		out.To = h.Name(debtor.Other())
	}
	return out
}

func toCategories(cs []core.CategoryAmount) []amountRow {
	out := make([]amountRow, 0, len(cs))
	for _, c := range cs {
		out = append(out, amountRow{Key: c.Name, Amount: c.Amount.Minor, Count: c.Count})
	}
	return out
}

func toOverview(o core.MonthOverview) overviewResponse {
	return overviewResponse{Total: o.Total.Minor, Count: o.Count, ByCategory: toCategories(o.ByCategory)}
}

func toBreakdown(b services.Breakdown) []amountRow {
	switch b.By {
	case "day":
		out := make([]amountRow, 0, len(b.Days))
		for _, d := range b.Days {
			out = append(out, amountRow{Key: d.Date.String(), Amount: d.Amount.Minor, Count: d.Count})
		}
		return out
	case "payer":
		out := make([]amountRow, 0, len(b.Payers))
		for _, p := range b.Payers {
			out = append(out, amountRow{Key: string(p.Payer), Label: p.Name, Amount: p.Amount.Minor})
		}
		return out
	}
	return toCategories(b.Categories)
}

func toAlert(a report.Alert) alertResponse {
	return alertResponse{
		Period:    toPeriod(a.Period),
		Spent:     a.Spent.Minor,
		Budget:    a.Budget.Minor,
		Remaining: a.Remaining.Minor,
		Percent:   a.Percent,
		Level:     string(a.Level),
	}
}

func toShopping(e services.ShoppingEntry) shoppingResponse {
	out := toShoppingItem(e.Item)
	out.Index = &e.Index
	return out
}

func toShoppingItem(i core.ShoppingItem) shoppingResponse {
	return shoppingResponse{
		Item:          i.Name,
		Place:         i.Place,
		ExpectedPrice: i.ExpectedPrice.String(),
		Status:        string(i.Status),
		Memo:          i.Memo,
	}
}

// item converts a request into a shopping item. Status defaults to pending.
func (req shoppingRequest) item() (core.ShoppingItem, error) {
	status, err := core.ParseShoppingStatus(req.Status)
	if err != nil {
		return core.ShoppingItem{}, &core.ValidationError{Field: "status", Value: req.Status, Err: err}
	}
	item := core.ShoppingItem{
		Name:          strings.TrimSpace(req.Item),
		Place:         strings.TrimSpace(req.Place),
		ExpectedPrice: decimal.Decimal(req.ExpectedPrice),
		Status:        status,
		Memo:          strings.TrimSpace(req.Memo),
	}
	if err := item.Validate(); err != nil {
		return core.ShoppingItem{}, err
	}
	return item, nil
}
