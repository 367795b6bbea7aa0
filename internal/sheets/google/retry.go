package google

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"google.golang.org/api/googleapi"

	"kakeibo/internal/log"
	ports "kakeibo/internal/sheets"
)

// do runs call under the quota limiter, retrying transient failures with
// exponential backoff. The final error wraps ports.ErrUnavailable.
func (c *Client) do(ctx context.Context, op, sheet string, call func() error) error {
	var err error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			wait := backoff(c.baseBackoff, attempt)
			c.logger.WarnContext(ctx, "Retrying Sheets call",
				log.FieldOperation, op, log.FieldSheet, sheet, log.FieldAttempt, attempt, "wait", wait, log.FieldError, err)
			t := time.NewTimer(wait)
			select {
			case <-ctx.Done():
				t.Stop()
				return fmt.Errorf("%w: %s %s: %w", ports.ErrUnavailable, op, sheet, ctx.Err())
			case <-t.C:
			}
		}
		if werr := c.limiter.Wait(ctx); werr != nil {
			return fmt.Errorf("%w: %s %s: %w", ports.ErrUnavailable, op, sheet, werr)
		}
		if err = call(); err == nil {
			return nil
		}
		if !retryable(err) {
			break
		}
	}
	return fmt.Errorf("%w: %s %s: %w", ports.ErrUnavailable, op, sheet, err)
}

// backoff doubles base per attempt, capped at 30s.
func backoff(base time.Duration, attempt int) time.Duration {
	d := base
	for i := 1; i < attempt; i++ {
		d *= 2
		if d >= maxBackoff {
			return maxBackoff
		}
	}
	return min(d, maxBackoff)
}

// retryable reports quota, server and transport errors. Client errors such
// as a bad range or missing permission are final.
func retryable(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		return gerr.Code == http.StatusTooManyRequests || gerr.Code >= 500
	}
	var nerr net.Error
	if errors.As(err, &nerr) {
		return true
	}
	return errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, io.EOF)
}
