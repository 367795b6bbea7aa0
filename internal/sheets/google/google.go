package google

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/time/rate"
	gsheet "google.golang.org/api/sheets/v4"

	"kakeibo/internal/log"
	ports "kakeibo/internal/sheets"
)

// Options tune a Client. Zero values pick the defaults.
type Options struct {
	SpreadsheetID string
	// MaxRetries is the number of retries after the first attempt.
	MaxRetries int
	// RequestsPerMinute caps calls to stay under the Sheets quota; 0 disables it.
	RequestsPerMinute int
	BaseBackoff       time.Duration
	Logger            *log.Logger
}

const (
	defaultMaxRetries  = 3
	defaultBaseBackoff = time.Second
	maxBackoff         = 30 * time.Second
)

// Client is a RowStore backed by one spreadsheet; each sheet (tab) of it
// holds one table.
type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	maxRetries    int
	baseBackoff   time.Duration
	limiter       *rate.Limiter
	logger        *log.Logger
}

// Ensure interface conformance
var _ ports.RowStore = (*Client)(nil)

func New(svc *gsheet.Service, opts Options) (*Client, error) {
	if svc == nil {
		return nil, errors.New("sheets service not initialized")
	}
	id := strings.TrimSpace(opts.SpreadsheetID)
	if id == "" {
		return nil, errors.New("missing spreadsheet id")
	}
	c := &Client{
		svc:           svc,
		spreadsheetID: id,
		maxRetries:    opts.MaxRetries,
		baseBackoff:   opts.BaseBackoff,
		limiter:       rate.NewLimiter(rate.Inf, 1),
		logger:        opts.Logger,
	}
	if c.maxRetries < 0 {
		c.maxRetries = 0
	} else if c.maxRetries == 0 {
		c.maxRetries = defaultMaxRetries
	}
	if c.baseBackoff <= 0 {
		c.baseBackoff = defaultBaseBackoff
	}
	if opts.RequestsPerMinute > 0 {
		burst := min(opts.RequestsPerMinute, 10)
		c.limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(opts.RequestsPerMinute)), burst)
	}
	if c.logger == nil {
		c.logger = log.Discard()
	}
	c.logger = c.logger.WithComponent(log.ComponentSheets)
	return c, nil
}

// ReadAll reads every row of sheet. Numbers come back unformatted and
// dates as their displayed text.
func (c *Client) ReadAll(ctx context.Context, sheet string) (ports.Snapshot, error) {
	var resp *gsheet.ValueRange
	err := c.do(ctx, log.OpRead, sheet, func() error {
		var err error
		resp, err = c.svc.Spreadsheets.Values.Get(c.spreadsheetID, sheetRange(sheet)).
			ValueRenderOption("UNFORMATTED_VALUE").
			DateTimeRenderOption("FORMATTED_STRING").
			Context(ctx).Do()
		return err
	})
	if err != nil {
		return ports.Snapshot{}, err
	}
	if len(resp.Values) == 0 {
		return ports.Snapshot{}, nil
	}
	rows := make([][]string, 0, len(resp.Values)-1)
	for _, r := range resp.Values[1:] {
		rows = append(rows, toStrings(r))
	}
	return ports.Snapshot{Header: toStrings(resp.Values[0]), Rows: rows}, nil
}

func (c *Client) Append(ctx context.Context, sheet string, row []string) error {
	return c.AppendMany(ctx, sheet, [][]string{row})
}

// AppendMany appends all rows in one call so their order is kept.
func (c *Client) AppendMany(ctx context.Context, sheet string, rows [][]string) error {
	if len(rows) == 0 {
		return nil
	}
	vr := &gsheet.ValueRange{Values: toValues(rows)}
	err := c.do(ctx, log.OpAppend, sheet, func() error {
		_, err := c.svc.Spreadsheets.Values.Append(c.spreadsheetID, sheetRange(sheet), vr).
			ValueInputOption("RAW").
			InsertDataOption("INSERT_ROWS").
			Context(ctx).Do()
		return err
	})
	if err == nil {
		c.logger.DebugContext(ctx, "Rows appended", log.FieldSheet, sheet, log.FieldRows, len(rows))
	}
	return err
}

// ReplaceSnapshot clears the sheet and writes snap from A1. The two calls
// are not atomic: a failure after the clear leaves the sheet empty.
func (c *Client) ReplaceSnapshot(ctx context.Context, sheet string, snap ports.Snapshot) error {
	err := c.do(ctx, log.OpReplace, sheet, func() error {
		_, err := c.svc.Spreadsheets.Values.Clear(c.spreadsheetID, sheetRange(sheet), &gsheet.ClearValuesRequest{}).
			Context(ctx).Do()
		return err
	})
	if err != nil || snap.Empty() {
		return err
	}
	grid := make([][]string, 0, len(snap.Rows)+1)
	if len(snap.Header) > 0 {
		grid = append(grid, snap.Header)
	}
	grid = append(grid, snap.Rows...)
	vr := &gsheet.ValueRange{Values: toValues(grid)}
	err = c.do(ctx, log.OpReplace, sheet, func() error {
		_, err := c.svc.Spreadsheets.Values.Update(c.spreadsheetID, cellRange(sheet, 0, 0), vr).
			ValueInputOption("RAW").
			Context(ctx).Do()
		return err
	})
	if err != nil {
		c.logger.ErrorContext(ctx, "Sheet cleared but rewrite failed", log.FieldSheet, sheet, log.FieldError, err)
	}
	return err
}

// UpdateCell writes one cell of the data row below the header.
func (c *Client) UpdateCell(ctx context.Context, sheet string, row, col int, value string) error {
	if row < 0 || col < 0 {
		return fmt.Errorf("%w: %s row %d col %d", ports.ErrOutOfRange, sheet, row, col)
	}
	vr := &gsheet.ValueRange{Values: toValues([][]string{{value}})}
	return c.do(ctx, log.OpUpdate, sheet, func() error {
		_, err := c.svc.Spreadsheets.Values.Update(c.spreadsheetID, cellRange(sheet, row+1, col), vr).
			ValueInputOption("RAW").
			Context(ctx).Do()
		return err
	})
}
