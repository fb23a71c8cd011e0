package cron

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/angelmondragon/toolyard-backend/internal/reconciliation"
	"github.com/angelmondragon/toolyard-backend/pkg/logger"
)

type fakeRepairer struct {
	result reconciliation.RepairResult
	err    error
	calls  int
}

func (f *fakeRepairer) RepairAll(context.Context) (reconciliation.RepairResult, error) {
	f.calls++
	return f.result, f.err
}

func TestPaymentOrderSyncJobRunsRepair(t *testing.T) {
	repairer := &fakeRepairer{result: reconciliation.RepairResult{Scanned: 5, Confirmed: 2}}
	job, err := NewPaymentOrderSyncJob(PaymentOrderSyncJobParams{
		Logger:     logger.New(logger.Options{ServiceName: "test", Output: io.Discard}),
		Reconciler: repairer,
	})
	if err != nil {
		t.Fatalf("NewPaymentOrderSyncJob: %v", err)
	}
	if job.Name() != "payment-order-sync" {
		t.Fatalf("unexpected name %q", job.Name())
	}
	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if repairer.calls != 1 {
		t.Fatalf("expected one repair pass, got %d", repairer.calls)
	}
}

func TestPaymentOrderSyncJobPropagatesError(t *testing.T) {
	repairer := &fakeRepairer{err: errors.New("row failed"), result: reconciliation.RepairResult{Scanned: 3, Failed: 1}}
	job, err := NewPaymentOrderSyncJob(PaymentOrderSyncJobParams{
		Logger:     logger.New(logger.Options{ServiceName: "test", Output: io.Discard}),
		Reconciler: repairer,
	})
	if err != nil {
		t.Fatalf("NewPaymentOrderSyncJob: %v", err)
	}
	if err := job.Run(context.Background()); err == nil {
		t.Fatal("expected error")
	}
}

func TestNewPaymentOrderSyncJobRequiresDeps(t *testing.T) {
	if _, err := NewPaymentOrderSyncJob(PaymentOrderSyncJobParams{}); err == nil {
		t.Fatal("expected error")
	}
}
