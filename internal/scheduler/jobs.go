package scheduler

import (
	"context"
	"time"

	"github.com/felipemaiocch/wenvest/internal/config"
	"github.com/felipemaiocch/wenvest/internal/logger"
	"github.com/felipemaiocch/wenvest/internal/marketdata"
	"github.com/felipemaiocch/wenvest/internal/services"
)

// UpdatePricesJob refreshes the last few days of bars for every ledger ticker.
type UpdatePricesJob struct {
	priceHistoryService services.PriceHistoryServicer
}

// NewUpdatePricesJob creates an UpdatePricesJob.
func NewUpdatePricesJob(priceHistoryService services.PriceHistoryServicer) *UpdatePricesJob {
	return &UpdatePricesJob{priceHistoryService: priceHistoryService}
}

func (j *UpdatePricesJob) Name() string { return "update_prices" }

func (j *UpdatePricesJob) Run(ctx context.Context) error {
	result, err := j.priceHistoryService.UpdateAll(ctx, services.UpdateDays)
	if err != nil {
		return err
	}
	if result.Failed > 0 {
		logger.Named("scheduler").Warnw("price update had failures", "failed", result.Failed, "total", result.Total)
	}
	return nil
}

// SyncDividendsJob records new dividend events of held tickers.
type SyncDividendsJob struct {
	dividendService services.DividendServicer
}

// NewSyncDividendsJob creates a SyncDividendsJob.
func NewSyncDividendsJob(dividendService services.DividendServicer) *SyncDividendsJob {
	return &SyncDividendsJob{dividendService: dividendService}
}

func (j *SyncDividendsJob) Name() string { return "sync_dividends" }

func (j *SyncDividendsJob) Run(ctx context.Context) error {
	_, err := j.dividendService.SyncDividends(ctx)
	return err
}

// SnapshotJob records a valuation of every portfolio.
type SnapshotJob struct {
	snapshotService services.PortfolioSnapshotServicer
	now             func() time.Time
}

// NewSnapshotJob creates a SnapshotJob.
func NewSnapshotJob(snapshotService services.PortfolioSnapshotServicer) *SnapshotJob {
	return &SnapshotJob{snapshotService: snapshotService, now: time.Now}
}

func (j *SnapshotJob) Name() string { return "record_snapshots" }

func (j *SnapshotJob) Run(ctx context.Context) error {
	_, err := j.snapshotService.ComputeAndRecordSnapshots(ctx, j.now().UTC())
	return err
}

// RegisterJobs adds the data jobs on the schedules from cfg.
func RegisterJobs(
	s *Scheduler,
	cfg *config.Config,
	priceHistoryService services.PriceHistoryServicer,
	dividendService services.DividendServicer,
	snapshotService services.PortfolioSnapshotServicer,
) error {
	jobs := []struct {
		schedule string
		job      Job
	}{
		{cfg.CronUpdatePrices, NewUpdatePricesJob(priceHistoryService)},
		{cfg.CronDividends, NewSyncDividendsJob(dividendService)},
		{cfg.CronSnapshots, NewSnapshotJob(snapshotService)},
	}
	for _, j := range jobs {
		if err := s.AddJob(j.schedule, j.job); err != nil {
			return err
		}
	}
	return nil
}

// PruneCacheJob drops expired entries from the quote cache.
type PruneCacheJob struct {
	cache *marketdata.QuoteCache
}

// NewPruneCacheJob creates a PruneCacheJob.
func NewPruneCacheJob(cache *marketdata.QuoteCache) *PruneCacheJob {
	return &PruneCacheJob{cache: cache}
}

func (j *PruneCacheJob) Name() string { return "prune_quote_cache" }

func (j *PruneCacheJob) Run(context.Context) error {
	if n := j.cache.Prune(); n > 0 {
		logger.Named("scheduler").Debugw("pruned quote cache", "removed", n, "remaining", j.cache.Len())
	}
	return nil
}
