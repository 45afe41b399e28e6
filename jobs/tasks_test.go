package jobs

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/require"

	"github.com/obrastock/obrastock/internal/ledger"
	"github.com/obrastock/obrastock/internal/observability"
)

type fakeRecomputer struct {
	calls    []int64
	repaired map[int64]int
	errOn    int64
}

func (f *fakeRecomputer) RecomputeFulfilled(_ context.Context, requisitionID int64) ([]ledger.LineRecompute, error) {
	f.calls = append(f.calls, requisitionID)
	if f.errOn != 0 && requisitionID == f.errOn {
		return nil, context.DeadlineExceeded
	}
	out := make([]ledger.LineRecompute, f.repaired[requisitionID])
	return out, nil
}

type fakeInvalidator struct {
	calls int
}

func (f *fakeInvalidator) Invalidate(context.Context) error {
	f.calls++
	return nil
}

func TestRecomputeHandler(t *testing.T) {
	svc := &fakeRecomputer{repaired: map[int64]int{1: 2, 2: 0}}
	cache := &fakeInvalidator{}
	handler := NewRecomputeHandler(svc, cache, observability.NewMetrics(), slog.Default())

	task, err := NewRecomputeTask([]int64{1, 2})
	require.NoError(t, err)

	require.NoError(t, handler(context.Background(), task))
	require.Equal(t, []int64{1, 2}, svc.calls)
	require.Equal(t, 1, cache.calls)
}

func TestRecomputeHandlerSkipsCacheWhenNothingRepaired(t *testing.T) {
	svc := &fakeRecomputer{repaired: map[int64]int{1: 0}}
	cache := &fakeInvalidator{}
	handler := NewRecomputeHandler(svc, cache, observability.NewMetrics(), slog.Default())

	task, err := NewRecomputeTask([]int64{1})
	require.NoError(t, err)

	require.NoError(t, handler(context.Background(), task))
	require.Equal(t, 0, cache.calls)
}

func TestRecomputeHandlerBadPayload(t *testing.T) {
	handler := NewRecomputeHandler(&fakeRecomputer{}, nil, observability.NewMetrics(), slog.Default())
	err := handler(context.Background(), asynq.NewTask(TaskRecomputeRequisition, []byte("{")))
	require.ErrorIs(t, err, asynq.SkipRetry)
}

func TestSweepHandlerContinuesPastFailures(t *testing.T) {
	svc := &fakeRecomputer{repaired: map[int64]int{3: 1}, errOn: 2}
	cache := &fakeInvalidator{}
	list := func(context.Context) ([]int64, error) { return []int64{1, 2, 3}, nil }
	handler := NewSweepHandler(svc, list, cache, observability.NewMetrics(), slog.Default())

	task, err := NewSweepTask(time.Now().UTC())
	require.NoError(t, err)

	require.NoError(t, handler(context.Background(), task))
	require.Equal(t, []int64{1, 2, 3}, svc.calls)
	require.Equal(t, 1, cache.calls)
}
