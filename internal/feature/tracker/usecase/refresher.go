package usecase

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"pair_tracker/internal/feature/tracker/domain"
	"pair_tracker/internal/feature/tracker/domain/entity"
)

// DashboardBuilder は1回分のダッシュボード生成を行います。
type DashboardBuilder interface {
	Build(ctx context.Context, runID string, now time.Time) (*entity.Dashboard, error)
}

// SnapshotListener は新しいスナップショットが公開されるたびに通知を受け取ります。
type SnapshotListener interface {
	OnSnapshot(snap entity.Snapshot)
}

// PassRecorder records the outcome of each pass (prometheus in production).
type PassRecorder interface {
	ObservePass(kind string, elapsed time.Duration, at time.Time)
}

// Refresher はダッシュボードを定期的に再生成し、最新の状態を保持します。
// パスは同時に1つしか実行されません。失敗したパスは以前の成功結果を置き換えます。
// 呼び出し元のキャンセルで中断されたパスは公開されません。
type Refresher struct {
	builder  DashboardBuilder
	interval time.Duration
	timeout  time.Duration
	recorder PassRecorder
	now      func() time.Time
	newRunID func() string

	passMu sync.Mutex // serializes passes

	mu        sync.RWMutex
	snapshot  entity.Snapshot
	listeners []SnapshotListener
}

// NewRefresher は新しい Refresher を作成します。recorder は nil でも構いません。
func NewRefresher(builder DashboardBuilder, interval time.Duration, recorder PassRecorder) *Refresher {
	return &Refresher{
		builder:  builder,
		interval: interval,
		timeout:  interval,
		recorder: recorder,
		now:      time.Now,
		newRunID: uuid.NewString,
	}
}

// Interval returns the auto refresh period.
func (r *Refresher) Interval() time.Duration { return r.interval }

// Subscribe registers l to be notified after every pass.
func (r *Refresher) Subscribe(l SnapshotListener) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.listeners = append(r.listeners, l)
}

// Latest は最後に公開されたスナップショットを返します。まだパスが実行されていない場合はゼロ値です。
func (r *Refresher) Latest() entity.Snapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.snapshot
}

// Run は直ちに1回パスを実行し、その後 interval ごとに実行します。ctx がキャンセルされるまでブロックします。
func (r *Refresher) Run(ctx context.Context) error {
	if r.interval <= 0 {
		return errors.New("refresh interval must be positive")
	}
	r.Trigger(ctx)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			r.Trigger(ctx)
		}
	}
}

// Trigger は1回パスを実行し、その結果を公開して返します。
// 実行中のパスがある場合は、それが終わるまで待機してから実行します。
// パスには interval を上限とする期限が付きます。ctx がキャンセルされて失敗した場合は
// 結果を公開せず、直前のスナップショットを返します。
func (r *Refresher) Trigger(ctx context.Context) entity.Snapshot {
	r.passMu.Lock()
	defer r.passMu.Unlock()

	passCtx := ctx
	if r.timeout > 0 {
		var cancel context.CancelFunc
		passCtx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	runID := r.newRunID()
	started := r.now()
	dash, err := r.builder.Build(passCtx, runID, started)
	finished := r.now()
	elapsed := finished.Sub(started)

	if err != nil && errors.Is(ctx.Err(), context.Canceled) {
		slog.Warn("refresh cancelled", "run_id", runID, "error", err)
		return r.Latest()
	}

	snap := entity.Snapshot{
		LastRefresh: finished,
		NextRefresh: finished.Add(r.interval),
	}
	kind := domain.Kind(err)
	if err != nil {
		snap.Failure = failureFrom(err, runID, finished)
		slog.Error("refresh failed", "run_id", runID, "kind", kind, "error", err, "elapsed", elapsed)
	} else {
		snap.Dashboard = dash
		slog.Info("refresh completed", "run_id", runID, "elapsed", elapsed)
	}
	if r.recorder != nil {
		r.recorder.ObservePass(kind, elapsed, finished)
	}

	r.mu.Lock()
	r.snapshot = snap
	listeners := append([]SnapshotListener(nil), r.listeners...)
	r.mu.Unlock()

	for _, l := range listeners {
		l.OnSnapshot(snap)
	}
	return snap
}

func failureFrom(err error, runID string, at time.Time) *entity.Failure {
	f := &entity.Failure{
		RunID:   runID,
		Kind:    domain.Kind(err),
		Message: err.Error(),
		At:      at,
	}
	var shape *domain.DataShapeError
	if errors.As(err, &shape) {
		f.Columns = append([]string(nil), shape.Columns...)
	}
	return f
}
