package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	ports "kakeibo/internal/sheets"
)

// OutboxEntry is a queued mutation waiting to be replicated.
type OutboxEntry struct {
	ID       int64
	Mutation ports.Mutation
	Attempts int
}

// OutboxStats counts entries by status.
type OutboxStats struct {
	Pending int
	Failed  int
}

func (r *SQLiteRepository) enqueue(ctx context.Context, tx *sql.Tx, m ports.Mutation) error {
	if !r.outbox {
		return nil
	}
	enc, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("encode mutation: %w", err)
	}
	_, err = tx.ExecContext(ctx, `INSERT INTO sync_outbox (mutation) VALUES (?)`, string(enc))
	return err
}

// PendingMutations returns up to limit pending entries, oldest first.
func (r *SQLiteRepository) PendingMutations(ctx context.Context, limit int) ([]OutboxEntry, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, mutation, attempts FROM sync_outbox WHERE status = 'pending' ORDER BY id LIMIT ?`, limit)
	if err != nil {
		return nil, unavailable("outbox read", err)
	}
	defer rows.Close()

	var out []OutboxEntry
	for rows.Next() {
		var (
			e   OutboxEntry
			raw string
		)
		if err := rows.Scan(&e.ID, &raw, &e.Attempts); err != nil {
			return nil, unavailable("outbox scan", err)
		}
		if err := json.Unmarshal([]byte(raw), &e.Mutation); err != nil {
			return nil, fmt.Errorf("decode outbox entry %d: %w", e.ID, err)
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable("outbox read", err)
	}
	return out, nil
}

func (r *SQLiteRepository) MarkSynced(ctx context.Context, id int64) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE sync_outbox SET status = 'synced', last_error = NULL,
		 updated_at = strftime('%Y-%m-%dT%H:%M:%fZ', 'now') WHERE id = ?`, id)
	if err != nil {
		return unavailable("outbox mark synced", err)
	}
	return nil
}

// MarkFailed records a failed attempt. Once maxAttempts is reached the entry
// leaves the pending queue for good.
func (r *SQLiteRepository) MarkFailed(ctx context.Context, id int64, cause error, maxAttempts int) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE sync_outbox SET attempts = attempts + 1, last_error = ?,
		 status = CASE WHEN attempts + 1 >= ? THEN 'failed' ELSE 'pending' END,
		 updated_at = strftime('%Y-%m-%dT%H:%M:%fZ', 'now') WHERE id = ?`,
		cause.Error(), maxAttempts, id)
	if err != nil {
		return unavailable("outbox mark failed", err)
	}
	return nil
}

// CleanupSynced deletes synced entries older than age.
func (r *SQLiteRepository) CleanupSynced(ctx context.Context, age time.Duration) (int64, error) {
	cutoff := time.Now().UTC().Add(-age).Format("2006-01-02T15:04:05.000Z")
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM sync_outbox WHERE status = 'synced' AND updated_at < ?`, cutoff)
	if err != nil {
		return 0, unavailable("outbox cleanup", err)
	}
	return res.RowsAffected()
}

func (r *SQLiteRepository) OutboxStats(ctx context.Context) (OutboxStats, error) {
	var s OutboxStats
	err := r.db.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(status = 'pending'), 0), COALESCE(SUM(status = 'failed'), 0) FROM sync_outbox`).
		Scan(&s.Pending, &s.Failed)
	if err != nil {
		return OutboxStats{}, unavailable("outbox stats", err)
	}
	return s, nil
}
