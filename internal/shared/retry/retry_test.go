package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDo(t *testing.T) {
	t.Parallel()

	errTemp := errors.New("temporary")

	tests := []struct {
		name      string
		retries   int
		failFirst int
		wantCalls int
		wantErr   bool
	}{
		{name: "first attempt succeeds", retries: 2, failFirst: 0, wantCalls: 1},
		{name: "succeeds after retries", retries: 2, failFirst: 2, wantCalls: 3},
		{name: "gives up", retries: 2, failFirst: 5, wantCalls: 3, wantErr: true},
		{name: "no retries", retries: 0, failFirst: 1, wantCalls: 1, wantErr: true},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			calls := 0
			err := Do(context.Background(), Policy{Retries: tt.retries, Backoff: time.Millisecond}, func(ctx context.Context) error {
				calls++
				if calls <= tt.failFirst {
					return errTemp
				}
				return nil
			})
			assert.Equal(t, tt.wantCalls, calls)
			if tt.wantErr {
				assert.ErrorIs(t, err, errTemp)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestDo_PerAttemptTimeout(t *testing.T) {
	t.Parallel()

	err := Do(context.Background(), Policy{Timeout: 10 * time.Millisecond}, func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestDo_StopsWhenParentCancelled(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	err := Do(ctx, Policy{Retries: 5, Backoff: time.Hour}, func(ctx context.Context) error {
		calls++
		cancel()
		return errors.New("fail")
	})
	assert.Error(t, err)
	assert.Equal(t, 1, calls)
}
