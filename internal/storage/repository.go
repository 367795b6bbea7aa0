package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"kakeibo/internal/log"
	ports "kakeibo/internal/sheets"

	_ "modernc.org/sqlite"
)

// SQLiteRepository is a durable RowStore. Each sheet is a set of rows keyed
// by position, row 0 being the header. With an outbox every write is also
// queued, in the same transaction, for replication to another store.
type SQLiteRepository struct {
	db     *sql.DB
	outbox bool
	logger *log.Logger
}

var _ ports.RowStore = (*SQLiteRepository)(nil)

type Option func(*SQLiteRepository)

// WithOutbox records every write in the sync outbox.
func WithOutbox() Option {
	return func(r *SQLiteRepository) { r.outbox = true }
}

func WithLogger(l *log.Logger) Option {
	return func(r *SQLiteRepository) { r.logger = l }
}

func NewSQLiteRepository(dbPath string, opts ...Option) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)")
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// SQLite allows one writer; serialising here avoids SQLITE_BUSY.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	r := &SQLiteRepository{db: db, logger: log.Discard()}
	for _, o := range opts {
		o(r)
	}
	r.logger = r.logger.WithComponent(log.ComponentStorage)
	return r, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Ping reports whether the database answers.
func (r *SQLiteRepository) Ping(ctx context.Context) error {
	if err := r.db.PingContext(ctx); err != nil {
		return unavailable("ping", err)
	}
	return nil
}

func unavailable(op string, err error) error {
	return fmt.Errorf("%w: sqlite %s: %w", ports.ErrUnavailable, op, err)
}

func (r *SQLiteRepository) ReadAll(ctx context.Context, sheet string) (ports.Snapshot, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT cells FROM sheet_rows WHERE sheet = ? ORDER BY position`, sheet)
	if err != nil {
		return ports.Snapshot{}, unavailable("read", err)
	}
	defer rows.Close()

	var grid [][]string
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return ports.Snapshot{}, unavailable("scan", err)
		}
		var cells []string
		if err := json.Unmarshal([]byte(raw), &cells); err != nil {
			return ports.Snapshot{}, fmt.Errorf("decode row of %s: %w", sheet, err)
		}
		grid = append(grid, cells)
	}
	if err := rows.Err(); err != nil {
		return ports.Snapshot{}, unavailable("read", err)
	}
	if len(grid) == 0 {
		return ports.Snapshot{}, nil
	}
	return ports.Snapshot{Header: grid[0], Rows: grid[1:]}, nil
}

func (r *SQLiteRepository) Append(ctx context.Context, sheet string, row []string) error {
	return r.AppendMany(ctx, sheet, [][]string{row})
}

func (r *SQLiteRepository) AppendMany(ctx context.Context, sheet string, rows [][]string) error {
	if len(rows) == 0 {
		return nil
	}
	return r.inTx(ctx, "append", func(tx *sql.Tx) error {
		var next int64
		if err := tx.QueryRowContext(ctx,
			`SELECT COALESCE(MAX(position) + 1, 0) FROM sheet_rows WHERE sheet = ?`, sheet).Scan(&next); err != nil {
			return err
		}
		if err := insertRows(ctx, tx, sheet, next, rows); err != nil {
			return err
		}
		return r.enqueue(ctx, tx, ports.AppendMutation(sheet, rows))
	})
}

// ReplaceSnapshot swaps the sheet in one transaction.
func (r *SQLiteRepository) ReplaceSnapshot(ctx context.Context, sheet string, snap ports.Snapshot) error {
	return r.inTx(ctx, "replace", func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM sheet_rows WHERE sheet = ?`, sheet); err != nil {
			return err
		}
		grid := make([][]string, 0, len(snap.Rows)+1)
		if len(snap.Header) > 0 {
			grid = append(grid, snap.Header)
		}
		grid = append(grid, snap.Rows...)
		if err := insertRows(ctx, tx, sheet, 0, grid); err != nil {
			return err
		}
		return r.enqueue(ctx, tx, ports.ReplaceMutation(sheet, snap))
	})
}

func (r *SQLiteRepository) UpdateCell(ctx context.Context, sheet string, row, col int, value string) error {
	if row < 0 || col < 0 {
		return fmt.Errorf("%w: %s row %d col %d", ports.ErrOutOfRange, sheet, row, col)
	}
	return r.inTx(ctx, "update_cell", func(tx *sql.Tx) error {
		var raw string
		err := tx.QueryRowContext(ctx,
			`SELECT cells FROM sheet_rows WHERE sheet = ? AND position = ?`, sheet, row+1).Scan(&raw)
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("%w: %s row %d col %d", ports.ErrOutOfRange, sheet, row, col)
		}
		if err != nil {
			return err
		}
		var cells []string
		if err := json.Unmarshal([]byte(raw), &cells); err != nil {
			return fmt.Errorf("decode row of %s: %w", sheet, err)
		}
		for len(cells) <= col {
			cells = append(cells, "")
		}
		cells[col] = value
		enc, err := json.Marshal(cells)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx,
			`UPDATE sheet_rows SET cells = ?, updated_at = strftime('%Y-%m-%dT%H:%M:%fZ', 'now')
			 WHERE sheet = ? AND position = ?`, string(enc), sheet, row+1); err != nil {
			return err
		}
		return r.enqueue(ctx, tx, ports.CellMutation(sheet, row, col, value))
	})
}

func insertRows(ctx context.Context, tx *sql.Tx, sheet string, start int64, rows [][]string) error {
	stmt, err := tx.PrepareContext(ctx, `INSERT INTO sheet_rows (sheet, position, cells) VALUES (?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()
	for i, row := range rows {
		if row == nil {
			row = []string{}
		}
		enc, err := json.Marshal(row)
		if err != nil {
			return err
		}
		if _, err := stmt.ExecContext(ctx, sheet, start+int64(i), string(enc)); err != nil {
			return err
		}
	}
	return nil
}

// inTx runs fn in a transaction. Domain errors pass through unchanged and
// database errors are reported as unavailable.
func (r *SQLiteRepository) inTx(ctx context.Context, op string, fn func(*sql.Tx) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return unavailable(op, err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		if errors.Is(err, ports.ErrOutOfRange) {
			return err
		}
		return unavailable(op, err)
	}
	if err := tx.Commit(); err != nil {
		return unavailable(op, err)
	}
	return nil
}
