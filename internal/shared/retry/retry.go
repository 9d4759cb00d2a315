// Package retry runs an operation with a per-attempt timeout and bounded retries.
package retry

import (
	"context"
	"errors"
	"log/slog"
	"time"
)

// Policy controls how Do retries.
type Policy struct {
	Retries int           // additional attempts after the first
	Timeout time.Duration // per attempt, 0 means no extra deadline
	Backoff time.Duration // multiplied by the attempt number
}

// Do は fn を最大 Retries+1 回実行します。各試行には Timeout の期限が付きます。
// 親の ctx がキャンセルされた場合は即座に打ち切ります。最後のエラーを返します。
func Do(ctx context.Context, p Policy, fn func(ctx context.Context) error) error {
	var err error
	for attempt := 0; attempt <= p.Retries; attempt++ {
		if attempt > 0 {
			wait := time.Duration(attempt) * p.Backoff
			slog.Warn("retrying", "attempt", attempt, "wait", wait, "error", err)
			select {
			case <-ctx.Done():
				return errors.Join(err, ctx.Err())
			case <-time.After(wait):
			}
		}

		err = runAttempt(ctx, p.Timeout, fn)
		if err == nil {
			return nil
		}
		if ctx.Err() != nil {
			return err
		}
	}
	return err
}

func runAttempt(ctx context.Context, timeout time.Duration, fn func(ctx context.Context) error) error {
	if timeout <= 0 {
		return fn(ctx)
	}
	actx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return fn(actx)
}
