package collector

import (
	"context"
	"fmt"
	"time"

	"github.com/wonny/fundquant/internal/contracts"
	"github.com/wonny/fundquant/pkg/redis"
)

// RemoteSource implements contracts.SeriesSource directly over eastmoney,
// for runs without a database. Histories are cached per code and day.
type RemoteSource struct {
	fetcher NAVFetcher
	codes   []string
	cache   *redis.Cache
	now     func() time.Time
}

// NewRemoteSource creates a source serving codes. cache may be nil.
func NewRemoteSource(fetcher NAVFetcher, codes []string, cache *redis.Cache) *RemoteSource {
	return &RemoteSource{fetcher: fetcher, codes: codes, cache: cache, now: time.Now}
}

// ListCodes implements contracts.SeriesSource
func (s *RemoteSource) ListCodes(ctx context.Context) ([]string, error) {
	out := make([]string, len(s.codes))
	copy(out, s.codes)
	return out, nil
}

// LoadSeries implements contracts.SeriesSource. A code that cannot be
// fetched comes back with LoadErr set so the batch records it as failed.
func (s *RemoteSource) LoadSeries(ctx context.Context, codes []string) ([]contracts.Instrument, error) {
	if len(codes) == 0 {
		codes = s.codes
	}

	out := make([]contracts.Instrument, 0, len(codes))
	for _, code := range codes {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		inst := contracts.Instrument{Code: code}
		points, err := s.history(ctx, code)
		if err != nil {
			inst.LoadErr = fmt.Errorf("load %s: %w", code, err)
		}
		inst.Points = points
		out = append(out, inst)
	}
	return out, nil
}

func (s *RemoteSource) history(ctx context.Context, code string) ([]contracts.PricePoint, error) {
	if s.cache == nil {
		return s.fetcher.FetchNAV(ctx, code, time.Time{}, time.Time{})
	}

	var points []contracts.PricePoint
	key := redis.NavHistoryKey(code, s.now().Format("20060102"))
	err := s.cache.GetOrSet(ctx, key, &points, redis.TTLDaily, func() (interface{}, error) {
		return s.fetcher.FetchNAV(ctx, code, time.Time{}, time.Time{})
	})
	return points, err
}
