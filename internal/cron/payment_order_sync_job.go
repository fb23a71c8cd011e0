package cron

import (
	"context"
	"fmt"

	"github.com/angelmondragon/toolyard-backend/internal/reconciliation"
	"github.com/angelmondragon/toolyard-backend/pkg/logger"
)

type paymentRepairer interface {
	RepairAll(ctx context.Context) (reconciliation.RepairResult, error)
}

type PaymentOrderSyncJobParams struct {
	Logger     *logger.Logger
	Reconciler paymentRepairer
}

// NewPaymentOrderSyncJob builds the job that re-runs reconciliation for every
// paid payment, confirming orders whose status drifted.
func NewPaymentOrderSyncJob(params PaymentOrderSyncJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Reconciler == nil {
		return nil, fmt.Errorf("reconciler required")
	}
	return &paymentOrderSyncJob{logg: params.Logger, reconciler: params.Reconciler}, nil
}

type paymentOrderSyncJob struct {
	logg       *logger.Logger
	reconciler paymentRepairer
}

func (j *paymentOrderSyncJob) Name() string { return "payment-order-sync" }

func (j *paymentOrderSyncJob) Run(ctx context.Context) error {
	res, err := j.reconciler.RepairAll(ctx)
	logCtx := j.logg.WithFields(ctx, map[string]any{
		"payments_scanned": res.Scanned,
		"orders_confirmed": res.Confirmed,
		"payments_failed":  res.Failed,
	})
	if err != nil {
		return fmt.Errorf("payment order sync: %w", err)
	}
	if res.Confirmed > 0 {
		j.logg.Warn(logCtx, "repaired orders that missed confirmation")
		return nil
	}
	j.logg.Info(logCtx, "payment order sync complete")
	return nil
}
