package cron

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/multierr"

	"github.com/sahilkhatri/pharmakart-backend/internal/refunds"
	"github.com/sahilkhatri/pharmakart-backend/pkg/enums"
	"github.com/sahilkhatri/pharmakart-backend/pkg/logger"
)

const refundRetryBatchSize = 50

type pendingRefundLister interface {
	FindRefsWithPendingRefunds(ctx context.Context, limit int) ([]string, error)
}

type refundRetrier interface {
	RetryPending(ctx context.Context, orderRef string) (*refunds.Result, error)
}

// RefundRetryJobParams configure the parked refund sweeper.
type RefundRetryJobParams struct {
	Logger    *logger.Logger
	Orders    pendingRefundLister
	Refunds   refundRetrier
	BatchSize int
}

// NewRefundRetryJob builds the job that re-drives refunds parked at pending
// after a gateway outage. Each ref is retried independently so one bad order
// cannot stall the rest of the batch.
func NewRefundRetryJob(params RefundRetryJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Orders == nil {
		return nil, fmt.Errorf("orders lister required")
	}
	if params.Refunds == nil {
		return nil, fmt.Errorf("refund service required")
	}
	batch := params.BatchSize
	if batch <= 0 {
		batch = refundRetryBatchSize
	}
	return &refundRetryJob{
		logg:    params.Logger,
		orders:  params.Orders,
		refunds: params.Refunds,
		batch:   batch,
	}, nil
}

type refundRetryJob struct {
	logg    *logger.Logger
	orders  pendingRefundLister
	refunds refundRetrier
	batch   int
}

func (j *refundRetryJob) Name() string { return "refund-retry" }

func (j *refundRetryJob) Run(ctx context.Context) error {
	start := time.Now()
	refs, err := j.orders.FindRefsWithPendingRefunds(ctx, j.batch)
	if err != nil {
		return fmt.Errorf("list pending refunds: %w", err)
	}

	var errs []error
	recovered, stillPending := 0, 0
	for _, ref := range refs {
		result, err := j.refunds.RetryPending(ctx, ref)
		if err != nil {
			refCtx := j.logg.WithField(ctx, "order_ref", ref)
			j.logg.Error(refCtx, "refund retry failed", err)
			errs = append(errs, fmt.Errorf("retry %s: %w", ref, err))
			continue
		}
		if result.RefundStatus == enums.RefundStatusPending {
			stillPending++
			continue
		}
		recovered++
	}

	logCtx := j.logg.WithFields(ctx, map[string]any{
		"scanned":       len(refs),
		"recovered":     recovered,
		"still_pending": stillPending,
		"duration_ms":   time.Since(start).Milliseconds(),
	})
	j.logg.Info(logCtx, "refund retry sweep complete")
	return multierr.Combine(errs...)
}
