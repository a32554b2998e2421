package jobs

import (
	"context"
	"fmt"

	"github.com/wonny/fundquant/internal/collector"
	"github.com/wonny/fundquant/internal/contracts"
	"github.com/wonny/fundquant/pkg/logger"
)

// NAVCollectionJob pulls new NAV points for every stored fund
// ⭐ SSOT: 데이터 수집 스케줄은 이 Job에서만
type NAVCollectionJob struct {
	collector *collector.Collector
	source    contracts.SeriesSource
	workers   int
	schedule  string
	logger    *logger.Logger
}

// NewNAVCollectionJob creates a new NAV collection job
func NewNAVCollectionJob(col *collector.Collector, source contracts.SeriesSource, workers int, schedule string, log *logger.Logger) *NAVCollectionJob {
	return &NAVCollectionJob{
		collector: col,
		source:    source,
		workers:   workers,
		schedule:  schedule,
		logger:    log,
	}
}

// Name returns the job name
func (j *NAVCollectionJob) Name() string {
	return "nav_collection"
}

// Schedule returns the cron schedule (with seconds)
func (j *NAVCollectionJob) Schedule() string {
	return j.schedule
}

// Run fetches NAV history incrementally (from each fund's last stored date)
func (j *NAVCollectionJob) Run(ctx context.Context) error {
	j.logger.Info("Starting scheduled NAV collection")

	codes, err := j.source.ListCodes(ctx)
	if err != nil {
		return fmt.Errorf("list codes: %w", err)
	}

	results, err := j.collector.FetchAll(ctx, codes, collector.Config{Workers: j.workers})
	if err != nil {
		return fmt.Errorf("fetch nav: %w", err)
	}

	failed := 0
	for _, r := range results {
		if r.Error != nil {
			failed++
		}
	}
	// 전부 실패 = 소스 장애로 보고 재시도
	if len(results) > 0 && failed == len(results) {
		return fmt.Errorf("all %d funds failed", failed)
	}

	j.logger.WithFields(map[string]interface{}{
		"funds":  len(results),
		"failed": failed,
	}).Info("Scheduled NAV collection completed")
	return nil
}
