// Package collector pulls fund NAV histories and names from eastmoney into
// the local store.
package collector

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/wonny/fundquant/internal/contracts"
	"github.com/wonny/fundquant/internal/external/eastmoney"
	"github.com/wonny/fundquant/pkg/logger"
	"github.com/wonny/fundquant/pkg/redis"
)

// NAVFetcher is the remote side (eastmoney.Client)
type NAVFetcher interface {
	FetchNAV(ctx context.Context, code string, from, to time.Time) ([]contracts.PricePoint, error)
	FetchName(ctx context.Context, code string) (string, error)
	ListFunds(ctx context.Context) ([]eastmoney.Fund, error)
}

// PriceStore is the local price table (store.PriceRepository)
type PriceStore interface {
	LatestDate(ctx context.Context, code string) (time.Time, error)
	SavePoints(ctx context.Context, code string, points []contracts.PricePoint) error
}

// FundStore is the local fund table (store.FundRepository)
type FundStore interface {
	Upsert(ctx context.Context, code, name, source string) error
}

// Collector orchestrates NAV collection
// ⭐ SSOT: 데이터 수집 오케스트레이션은 이 패키지에서만
type Collector struct {
	fetcher NAVFetcher
	prices  PriceStore
	funds   FundStore
	cache   *redis.Cache
	logger  *logger.Logger
}

// Config holds collector configuration
type Config struct {
	Workers int       // Number of concurrent workers
	From    time.Time // zero = 저장된 최신 날짜 다음날부터 (없으면 전체)
	To      time.Time // zero = 오늘까지
}

// NewCollector creates a new Collector instance. cache may be nil.
func NewCollector(fetcher NAVFetcher, prices PriceStore, funds FundStore, cache *redis.Cache, log *logger.Logger) *Collector {
	return &Collector{
		fetcher: fetcher,
		prices:  prices,
		funds:   funds,
		cache:   cache,
		logger:  log.WithField("module", "collector"),
	}
}

// FetchResult represents the result of a fetch operation
type FetchResult struct {
	Code       string
	Name       string
	PriceCount int
	Error      error
}

// SyncFundList stores every listed fund's code and name
func (c *Collector) SyncFundList(ctx context.Context) (int, error) {
	funds, err := c.fetcher.ListFunds(ctx)
	if err != nil {
		return 0, fmt.Errorf("list funds: %w", err)
	}

	for _, f := range funds {
		if err := c.funds.Upsert(ctx, f.Code, f.Name, eastmoney.SourceName); err != nil {
			return 0, fmt.Errorf("save fund %s: %w", f.Code, err)
		}
	}

	c.logger.WithField("fund_count", len(funds)).Info("Fund list synced")
	return len(funds), nil
}

// FetchAll fetches NAV history (and names) for codes with a worker pool.
// Per-code failures are reported in the results, never abort the run.
func (c *Collector) FetchAll(ctx context.Context, codes []string, cfg Config) ([]FetchResult, error) {
	workers := cfg.Workers
	if workers < 1 {
		workers = 1
	}

	c.logger.WithFields(map[string]interface{}{
		"fund_count": len(codes),
		"workers":    workers,
	}).Info("Starting NAV collection")

	results := make([]FetchResult, 0, len(codes))
	resultCh := make(chan FetchResult, len(codes))
	codeCh := make(chan string, len(codes))

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			c.navWorker(ctx, workerID, codeCh, resultCh, cfg)
		}(i)
	}

	for _, code := range codes {
		codeCh <- code
	}
	close(codeCh)

	go func() {
		wg.Wait()
		close(resultCh)
	}()

	successCount := 0
	failCount := 0
	for result := range resultCh {
		results = append(results, result)
		if result.Error != nil {
			failCount++
		} else {
			successCount++
		}
	}

	c.logger.WithFields(map[string]interface{}{
		"success": successCount,
		"failed":  failCount,
		"total":   len(results),
	}).Info("NAV collection completed")

	if err := ctx.Err(); err != nil {
		return results, err
	}
	return results, nil
}

func (c *Collector) navWorker(ctx context.Context, workerID int, codeCh <-chan string, resultCh chan<- FetchResult, cfg Config) {
	for code := range codeCh {
		if err := ctx.Err(); err != nil {
			resultCh <- FetchResult{Code: code, Error: err}
			continue
		}

		result := c.fetchOne(ctx, code, cfg)
		if result.Error != nil {
			c.logger.WithError(result.Error).WithFields(map[string]interface{}{
				"worker": workerID,
				"code":   code,
			}).Error("Failed to collect NAV")
		} else {
			c.logger.WithFields(map[string]interface{}{
				"worker": workerID,
				"code":   code,
				"count":  result.PriceCount,
			}).Debug("Collected NAV")
		}
		resultCh <- result
	}
}

func (c *Collector) fetchOne(ctx context.Context, code string, cfg Config) FetchResult {
	result := FetchResult{Code: code}

	from := cfg.From
	if from.IsZero() {
		latest, err := c.prices.LatestDate(ctx, code)
		if err != nil {
			result.Error = err
			return result
		}
		if !latest.IsZero() {
			from = latest.AddDate(0, 0, 1)
		}
	}

	points, err := c.fetcher.FetchNAV(ctx, code, from, cfg.To)
	if err != nil {
		result.Error = fmt.Errorf("fetch nav: %w", err)
		return result
	}

	if err := c.prices.SavePoints(ctx, code, points); err != nil {
		result.Error = fmt.Errorf("save nav: %w", err)
		return result
	}
	result.PriceCount = len(points)

	name, err := c.name(ctx, code)
	if err != nil {
		// 이름 실패는 가격 수집 결과에 영향 없음
		c.logger.WithCode(code).WithError(err).Warn("Fund name unavailable")
		return result
	}
	result.Name = name

	if err := c.funds.Upsert(ctx, code, name, eastmoney.SourceName); err != nil {
		result.Error = fmt.Errorf("save fund: %w", err)
	}
	return result
}

// name resolves a fund name, going through the redis cache when configured
func (c *Collector) name(ctx context.Context, code string) (string, error) {
	if c.cache == nil {
		return c.fetcher.FetchName(ctx, code)
	}

	var name string
	err := c.cache.GetOrSet(ctx, redis.FundNameKey(code), &name, redis.TTLLong, func() (interface{}, error) {
		return c.fetcher.FetchName(ctx, code)
	})
	return name, err
}
