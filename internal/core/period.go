package core

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Period is the calendar month that scopes settlement and aggregation.
type Period struct {
	Year  int
	Month int // 1-12
}

func NewPeriod(year, month int) (Period, error) {
	p := Period{Year: year, Month: month}
	if err := p.Validate(); err != nil {
		return Period{}, err
	}
	return p, nil
}

// CurrentPeriod is the real-world month containing now. It drives alerts
// and month-to-date metrics, never the user-selected views.
func CurrentPeriod(now time.Time) Period {
	return Period{Year: now.Year(), Month: int(now.Month())}
}

// ParsePeriod accepts "2025-03", "2025/03" and "2025-3".
func ParsePeriod(s string) (Period, error) {
	s = strings.TrimSpace(s)
	sep := strings.IndexAny(s, "-/")
	if sep < 0 {
		return Period{}, invalid("period", s, ErrInvalidPeriod)
	}
	y, err1 := strconv.Atoi(s[:sep])
	m, err2 := strconv.Atoi(s[sep+1:])
	if err1 != nil || err2 != nil {
		return Period{}, invalid("period", s, ErrInvalidPeriod)
	}
	p, err := NewPeriod(y, m)
	if err != nil {
		return Period{}, invalid("period", s, ErrInvalidPeriod)
	}
	return p, nil
}

func (p Period) Validate() error {
	if p.Year < 1 || p.Year > 9999 || p.Month < 1 || p.Month > 12 {
		return ErrInvalidPeriod
	}
	return nil
}

// Contains matches on the record's stored Year and Month.
func (p Period) Contains(r ExpenseRecord) bool {
	return r.Year == p.Year && r.Month == p.Month
}

// Filter returns the records that belong to p, preserving order.
func (p Period) Filter(records []ExpenseRecord) []ExpenseRecord {
	out := make([]ExpenseRecord, 0, len(records))
	for _, r := range records {
		if p.Contains(r) {
			out = append(out, r)
		}
	}
	return out
}

func (p Period) Start() Date { return NewDate(p.Year, p.Month, 1) }

func (p Period) Next() Period {
	if p.Month == 12 {
		return Period{Year: p.Year + 1, Month: 1}
	}
	return Period{Year: p.Year, Month: p.Month + 1}
}

func (p Period) Prev() Period {
	if p.Month == 1 {
		return Period{Year: p.Year - 1, Month: 12}
	}
	return Period{Year: p.Year, Month: p.Month - 1}
}

func (p Period) String() string { return fmt.Sprintf("%04d-%02d", p.Year, p.Month) }
