package jobs

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	"github.com/obrastock/obrastock/internal/ledger"
	"github.com/obrastock/obrastock/internal/observability"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskRecomputeRequisition repairs the fulfilled cache of specific
	// requisitions, queued by the change feed after ledger writes.
	TaskRecomputeRequisition = "ledger:recompute"
	// TaskReconcileSweep walks every open requisition nightly and repairs
	// cache drift the change feed may have missed.
	TaskReconcileSweep = "ledger:reconcile_sweep"
)

// RecomputePayload lists the requisitions to repair.
type RecomputePayload struct {
	RequisitionIDs []int64 `json:"requisition_ids"`
}

// NewRecomputeTask constructs a recompute task.
func NewRecomputeTask(requisitionIDs []int64) (*asynq.Task, error) {
	body, err := json.Marshal(RecomputePayload{RequisitionIDs: requisitionIDs})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskRecomputeRequisition, body, asynq.Queue(QueueDefault)), nil
}

// SweepPayload carries scheduling metadata.
type SweepPayload struct {
	ScheduledFor time.Time `json:"scheduled_for"`
}

// NewSweepTask constructs a nightly sweep task.
func NewSweepTask(at time.Time) (*asynq.Task, error) {
	body, err := json.Marshal(SweepPayload{ScheduledFor: at})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskReconcileSweep, body, asynq.Queue(QueueDefault)), nil
}

// Recomputer is the slice of the ledger service the jobs need.
type Recomputer interface {
	RecomputeFulfilled(ctx context.Context, requisitionID int64) ([]ledger.LineRecompute, error)
}

// RequisitionLister yields the requisition ids the sweep should visit.
type RequisitionLister func(ctx context.Context) ([]int64, error)

// Invalidator drops cached reports after repairs.
type Invalidator interface {
	Invalidate(ctx context.Context) error
}

// NewRecomputeHandler builds the handler for change-feed recompute tasks.
func NewRecomputeHandler(svc Recomputer, cache Invalidator, metrics *observability.Metrics, logger *slog.Logger) asynq.HandlerFunc {
	return func(ctx context.Context, t *asynq.Task) error {
		var payload RecomputePayload
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return asynq.SkipRetry
		}
		repaired := 0
		for _, id := range payload.RequisitionIDs {
			changed, err := svc.RecomputeFulfilled(ctx, id)
			if err != nil {
				return err
			}
			repaired += len(changed)
		}
		metrics.ObserveRepairs(repaired)
		if repaired > 0 && cache != nil {
			if err := cache.Invalidate(ctx); err != nil {
				logger.Warn("report cache invalidation failed", slog.Any("error", err))
			}
		}
		logger.Info("recompute task done", slog.Int("requisitions", len(payload.RequisitionIDs)), slog.Int("repaired", repaired))
		return nil
	}
}

// NewSweepHandler builds the handler for the nightly reconcile sweep.
func NewSweepHandler(svc Recomputer, list RequisitionLister, cache Invalidator, metrics *observability.Metrics, logger *slog.Logger) asynq.HandlerFunc {
	return func(ctx context.Context, t *asynq.Task) error {
		var payload SweepPayload
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return asynq.SkipRetry
		}
		ids, err := list(ctx)
		if err != nil {
			return err
		}
		repaired := 0
		for _, id := range ids {
			changed, err := svc.RecomputeFulfilled(ctx, id)
			if err != nil {
				logger.Error("sweep recompute failed", slog.Int64("requisition_id", id), slog.Any("error", err))
				continue
			}
			repaired += len(changed)
		}
		metrics.ObserveRepairs(repaired)
		if repaired > 0 && cache != nil {
			if err := cache.Invalidate(ctx); err != nil {
				logger.Warn("report cache invalidation failed", slog.Any("error", err))
			}
		}
		logger.Info("reconcile sweep done", slog.Int("requisitions", len(ids)), slog.Int("repaired", repaired))
		return nil
	}
}
