package reconciler

import (
	"context"
	"fmt"

	"github.com/sourcegraph/conc/pool"

	"golang-bank-recon-service/pkg/errors"
	"golang-bank-recon-service/pkg/logger"
)

// DefaultMaxConcurrency bounds a batch when the caller gives no limit.
const DefaultMaxConcurrency = 4

// BatchItem is the result of one request in a batch.
type BatchItem struct {
	Request *Request
	Outcome *Outcome
	Err     error
}

// RunBatch reconciles independent bank statements concurrently, at most
// maxConcurrency at a time. Items come back in request order. A bank code
// that already has a run in flight, in this batch or another, is rejected
// before it runs. The returned error summarizes every failed item.
func (s *Service) RunBatch(ctx context.Context, requests []*Request, maxConcurrency int) ([]BatchItem, error) {
	if maxConcurrency < 1 {
		maxConcurrency = DefaultMaxConcurrency
	}

	log := s.logger.WithFields(logger.Fields{
		"requests":        len(requests),
		"max_concurrency": maxConcurrency,
	})
	log.Info("Starting reconciliation batch")

	items := make([]BatchItem, len(requests))
	var held []string
	p := pool.New().WithMaxGoroutines(maxConcurrency).WithContext(ctx)

	for i, req := range requests {
		items[i].Request = req
		if req == nil {
			items[i].Err = errors.InternalError("batch", fmt.Errorf("request %d is nil", i))
			continue
		}
		if !s.locks.TryLock(req.BankCode) {
			items[i].Err = errors.New(errors.KindConfiguration,
				fmt.Sprintf("bank %s already has a run in progress", req.BankCode)).
				WithContext("bank_code", req.BankCode)
			log.WithField("bank_code", req.BankCode).Warn("Rejected duplicate bank in batch")
			continue
		}
		held = append(held, req.BankCode)

		p.Go(func(ctx context.Context) error {
			outcome, err := s.Reconcile(ctx, req)
			items[i].Outcome = outcome
			items[i].Err = err
			return err
		})
	}

	// Run errors are collected per item below.
	_ = p.Wait()
	for _, code := range held {
		s.locks.Unlock(code)
	}

	var failed []*errors.ReconcilerError
	for _, item := range items {
		if item.Err != nil {
			failed = append(failed, errors.WrapIfNeeded(item.Err, errors.KindInternal, "reconciliation run failed"))
		}
	}
	if len(failed) > 0 {
		summary := errors.NewErrorSummary(failed)
		log.WithError(summary).Warn("Reconciliation batch finished with errors")
		return items, summary
	}

	log.Info("Reconciliation batch completed")
	return items, nil
}
