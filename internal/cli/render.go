package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"kakeibo/internal/core"
	"kakeibo/internal/export"
	"kakeibo/internal/report"
	"kakeibo/internal/services"
	"kakeibo/internal/settlement"
)

// Theme colors (Flexoki Dark)
var (
	ColorBorder    = lipgloss.Color("#282726")
	ColorTextDim   = lipgloss.Color("#575653")
	ColorTextMuted = lipgloss.Color("#6F6E69")
	ColorText      = lipgloss.Color("#FFFCF0")
	ColorAccent    = lipgloss.Color("#3AA99F")
	ColorGreen     = lipgloss.Color("#879A39")
	ColorOrange    = lipgloss.Color("#DA702C")
	ColorRed       = lipgloss.Color("#D14D41")
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorText).
			Align(lipgloss.Center)

	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorAccent).
			Padding(0, 1)

	cellStyle = lipgloss.NewStyle().
			Foreground(ColorText).
			Padding(0, 1)

	amountStyle = cellStyle.
			Foreground(ColorGreen).
			Align(lipgloss.Right)

	mutedStyle = lipgloss.NewStyle().
			Foreground(ColorTextMuted)

	warnStyle = lipgloss.NewStyle().
			Foreground(ColorOrange)

	errStyle = lipgloss.NewStyle().
			Foreground(ColorRed).
			Bold(true)
)

// Table is a bordered text table. Columns listed in Amounts are right
// aligned and colored as money.
type Table struct {
	Title   string
	Headers []string
	Rows    [][]string
	Amounts []int
}

func RenderTitle(title string) string {
	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(ColorBorder).
		Width(55).
		Align(lipgloss.Center).
		Padding(0, 1).
		Render(titleStyle.Render(title))
}

func RenderTable(t Table) string {
	if len(t.Rows) == 0 && len(t.Headers) == 0 {
		return ""
	}
	amounts := map[int]bool{}
	for _, c := range t.Amounts {
		amounts[c] = true
	}
	tbl := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(ColorTextDim)).
		Headers(t.Headers...).
		Rows(t.Rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == table.HeaderRow:
				return headerStyle
			case amounts[col]:
				return amountStyle
			}
			return cellStyle
		})

	var b strings.Builder
	if t.Title != "" {
		b.WriteString("  ")
		b.WriteString(headerStyle.Render(t.Title))
		b.WriteString("\n")
	}
	b.WriteString(tbl.Render())
	b.WriteString("\n")
	return b.String()
}

func RenderSettlement(p core.Period, res settlement.Result, h core.Household) string {
	rows := [][]string{
		{"Paid by " + h.NameA, res.PaidByA.Yen()},
		{"Paid by " + h.NameB, res.PaidByB.Yen()},
		{"Difference", core.Money{Minor: abs(res.Difference.Minor)}.Yen()},
		{"Transfer", res.Transfer.Yen()},
		{"Direction", export.DirectionText(res, h)},
	}
	if res.Unsettled.Minor > 0 {
		rows = append(rows, []string{"Left unsettled", res.Unsettled.Yen()})
	}
	return RenderTable(Table{
		Title:   "Settlement " + p.String(),
		Headers: []string{"", "Amount"},
		Rows:    rows,
		Amounts: []int{1},
	})
}

func RenderRecords(records []core.ExpenseRecord, h core.Household) string {
	rows := make([][]string, 0, len(records))
	for _, r := range records {
		rows = append(rows, []string{r.Date.String(), r.Category, r.Amount.Yen(), h.Name(r.Payer), string(r.Split), r.Memo})
	}
	return RenderTable(Table{
		Headers: []string{"Date", "Category", "Amount", "Payer", "Split", "Memo"},
		Rows:    rows,
		Amounts: []int{2},
	})
}

func RenderBreakdown(p core.Period, b services.Breakdown) string {
	var (
		headers []string
		rows    [][]string
	)
	switch b.By {
	case "day":
		headers = []string{"Day", "Amount", "Records"}
		for _, d := range b.Days {
			rows = append(rows, []string{d.Date.String(), d.Amount.Yen(), strconv.Itoa(d.Count)})
		}
	case "payer":
		headers = []string{"Payer", "Amount"}
		for _, pa := range b.Payers {
			rows = append(rows, []string{pa.Name, pa.Amount.Yen()})
		}
	default:
		headers = []string{"Category", "Amount", "Records"}
		for _, c := range b.Categories {
			rows = append(rows, []string{c.Name, c.Amount.Yen(), strconv.Itoa(c.Count)})
		}
	}
	return RenderTable(Table{
		Title:   fmt.Sprintf("Spending by %s, %s", b.By, p),
		Headers: headers,
		Rows:    rows,
		Amounts: []int{1},
	})
}

func RenderShopping(entries []services.ShoppingEntry) string {
	rows := make([][]string, 0, len(entries))
	for _, e := range entries {
		mark := "[ ]"
		if e.Item.Status == core.Purchased {
			mark = "[x]"
		}
		rows = append(rows, []string{strconv.Itoa(e.Index), mark, e.Item.Name, e.Item.Place, e.Item.ExpectedPrice.String(), e.Item.Memo})
	}
	return RenderTable(Table{
		Title:   "Shopping list",
		Headers: []string{"#", "", "Item", "Place", "Price", "Memo"},
		Rows:    rows,
		Amounts: []int{4},
	})
}

// RenderAlert is one line on this month's spending against the budget.
func RenderAlert(a report.Alert) string {
	if a.Budget.Minor <= 0 {
		return mutedStyle.Render(fmt.Sprintf("  %s spent so far: %s", a.Period, a.Spent.Yen()))
	}
	line := fmt.Sprintf("  %s spent %s of %s (%d%%)", a.Period, a.Spent.Yen(), a.Budget.Yen(), a.Percent)
	switch a.Level {
	case report.AlertOver:
		return errStyle.Render(line + ", over budget")
	case report.AlertNear:
		return warnStyle.Render(line + ", close to budget")
	}
	return mutedStyle.Render(line)
}

func RenderWarnings(sheet string, ws []services.RowWarning) string {
	if len(ws) == 0 {
		return ""
	}
	var b strings.Builder
	fmt.Fprintf(&b, "  %d malformed rows skipped in %s\n", len(ws), sheet)
	for _, w := range ws {
		b.WriteString(warnStyle.Render(fmt.Sprintf("    row %d: %v", w.Row, w.Err)))
		b.WriteString("\n")
	}
	return b.String()
}

func abs(n int64) int64 {
	if n < 0 {
		return -n
	}
	return n
}
