package usecase_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pair_tracker/internal/feature/tracker/domain"
	"pair_tracker/internal/feature/tracker/domain/entity"
	"pair_tracker/internal/feature/tracker/usecase"
)

// mockBuilder は DashboardBuilder インターフェースのモック実装です。
type mockBuilder struct {
	BuildFunc  func(ctx context.Context, runID string, now time.Time) (*entity.Dashboard, error)
	BuildCalls atomic.Int32
}

func (m *mockBuilder) Build(ctx context.Context, runID string, now time.Time) (*entity.Dashboard, error) {
	m.BuildCalls.Add(1)
	if m.BuildFunc != nil {
		return m.BuildFunc(ctx, runID, now)
	}
	return nil, errors.New("BuildFunc is not implemented")
}

// listenerFunc adapts a function to SnapshotListener.
type listenerFunc func(entity.Snapshot)

func (f listenerFunc) OnSnapshot(s entity.Snapshot) { f(s) }

type recordedPass struct {
	kind string
	at   time.Time
}

type mockRecorder struct {
	mu     sync.Mutex
	passes []recordedPass
}

func (m *mockRecorder) ObservePass(kind string, _ time.Duration, at time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.passes = append(m.passes, recordedPass{kind: kind, at: at})
}

func TestRefresher_Trigger_SuccessThenFailure(t *testing.T) {
	t.Parallel()

	fail := false
	builder := &mockBuilder{
		BuildFunc: func(ctx context.Context, runID string, now time.Time) (*entity.Dashboard, error) {
			if fail {
				return nil, &domain.DataShapeError{Columns: []string{"foo", "bar"}, Reason: "expected symbols not found"}
			}
			return &entity.Dashboard{RunID: runID, GeneratedAt: now}, nil
		},
	}
	rec := &mockRecorder{}
	r := usecase.NewRefresher(builder, time.Minute, rec)

	var got []entity.Snapshot
	r.Subscribe(listenerFunc(func(s entity.Snapshot) { got = append(got, s) }))

	assert.Equal(t, entity.Snapshot{}, r.Latest())

	snap := r.Trigger(context.Background())
	require.NotNil(t, snap.Dashboard)
	assert.Nil(t, snap.Failure)
	assert.NotEmpty(t, snap.Dashboard.RunID)
	assert.Equal(t, snap.LastRefresh.Add(time.Minute), snap.NextRefresh)
	assert.Equal(t, snap, r.Latest())

	fail = true
	snap = r.Trigger(context.Background())
	assert.Nil(t, snap.Dashboard, "a failed pass must not keep the previous dashboard")
	require.NotNil(t, snap.Failure)
	assert.Equal(t, "data_shape", snap.Failure.Kind)
	assert.Equal(t, []string{"foo", "bar"}, snap.Failure.Columns)
	assert.Contains(t, snap.Failure.Message, "raw columns: foo, bar")
	assert.NotEmpty(t, snap.Failure.RunID)

	require.Len(t, got, 2)
	assert.Equal(t, snap, got[1])

	require.Len(t, rec.passes, 2)
	assert.Equal(t, "ok", rec.passes[0].kind)
	assert.Equal(t, "data_shape", rec.passes[1].kind)
	assert.Equal(t, snap.LastRefresh, rec.passes[1].at)
}

func TestRefresher_Trigger_NilRecorder(t *testing.T) {
	t.Parallel()

	builder := &mockBuilder{
		BuildFunc: func(ctx context.Context, runID string, now time.Time) (*entity.Dashboard, error) {
			return nil, errors.New("boom")
		},
	}
	r := usecase.NewRefresher(builder, time.Minute, nil)
	snap := r.Trigger(context.Background())
	require.NotNil(t, snap.Failure)
	assert.Equal(t, "fetch_error", snap.Failure.Kind)
	assert.Nil(t, snap.Failure.Columns)
}

func TestRefresher_PassesNeverOverlap(t *testing.T) {
	t.Parallel()

	var active, maxActive atomic.Int32
	builder := &mockBuilder{
		BuildFunc: func(ctx context.Context, runID string, now time.Time) (*entity.Dashboard, error) {
			n := active.Add(1)
			for {
				m := maxActive.Load()
				if n <= m || maxActive.CompareAndSwap(m, n) {
					break
				}
			}
			time.Sleep(5 * time.Millisecond)
			active.Add(-1)
			return &entity.Dashboard{}, nil
		},
	}
	r := usecase.NewRefresher(builder, time.Minute, nil)

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			r.Trigger(context.Background())
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(5), builder.BuildCalls.Load())
	assert.Equal(t, int32(1), maxActive.Load())
}

func TestRefresher_Run(t *testing.T) {
	t.Parallel()

	builder := &mockBuilder{
		BuildFunc: func(ctx context.Context, runID string, now time.Time) (*entity.Dashboard, error) {
			return &entity.Dashboard{}, nil
		},
	}
	r := usecase.NewRefresher(builder, time.Hour, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	// 初回パスの公開後に停止させる
	r.Subscribe(listenerFunc(func(entity.Snapshot) { cancel() }))

	done := make(chan error, 1)
	go func() { done <- r.Run(ctx) }()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
	assert.Equal(t, int32(1), builder.BuildCalls.Load())
	assert.NotNil(t, r.Latest().Dashboard)
}

func TestRefresher_Run_InvalidInterval(t *testing.T) {
	t.Parallel()

	r := usecase.NewRefresher(&mockBuilder{}, 0, nil)
	assert.Error(t, r.Run(context.Background()))
}

func TestRefresher_Trigger_FailureCarriesRunID(t *testing.T) {
	t.Parallel()

	var seen string
	builder := &mockBuilder{
		BuildFunc: func(ctx context.Context, runID string, now time.Time) (*entity.Dashboard, error) {
			seen = runID
			return nil, errors.New("boom")
		},
	}
	r := usecase.NewRefresher(builder, time.Minute, nil)
	snap := r.Trigger(context.Background())
	require.NotNil(t, snap.Failure)
	assert.NotEmpty(t, seen)
	assert.Equal(t, seen, snap.Failure.RunID)
}

func TestRefresher_Trigger_CancelledCallerKeepsDashboard(t *testing.T) {
	t.Parallel()

	builder := &mockBuilder{
		BuildFunc: func(ctx context.Context, runID string, now time.Time) (*entity.Dashboard, error) {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			return &entity.Dashboard{RunID: runID}, nil
		},
	}
	r := usecase.NewRefresher(builder, time.Minute, nil)

	var published int
	r.Subscribe(listenerFunc(func(entity.Snapshot) { published++ }))

	good := r.Trigger(context.Background())
	require.NotNil(t, good.Dashboard)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	snap := r.Trigger(ctx)

	assert.Equal(t, good, snap)
	assert.Equal(t, good, r.Latest())
	assert.Equal(t, 1, published, "a cancelled pass is not broadcast")
	assert.Equal(t, int32(2), builder.BuildCalls.Load())
}

func TestRefresher_Trigger_PassDeadline(t *testing.T) {
	t.Parallel()

	var deadline time.Time
	var ok bool
	builder := &mockBuilder{
		BuildFunc: func(ctx context.Context, runID string, now time.Time) (*entity.Dashboard, error) {
			deadline, ok = ctx.Deadline()
			return &entity.Dashboard{}, nil
		},
	}
	r := usecase.NewRefresher(builder, time.Minute, nil)
	before := time.Now()
	r.Trigger(context.Background())

	require.True(t, ok)
	assert.WithinDuration(t, before.Add(time.Minute), deadline, 5*time.Second)
}
