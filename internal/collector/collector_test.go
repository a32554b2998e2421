package collector

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/fundquant/internal/contracts"
	"github.com/wonny/fundquant/internal/external/eastmoney"
	"github.com/wonny/fundquant/pkg/config"
	"github.com/wonny/fundquant/pkg/logger"
	"github.com/wonny/fundquant/pkg/redis"
)

var day = time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

type fakeFetcher struct {
	mu       sync.Mutex
	navCalls map[string]time.Time // code → from
	failNAV  map[string]bool
	failName map[string]bool
}

func newFakeFetcher() *fakeFetcher {
	return &fakeFetcher{navCalls: map[string]time.Time{}, failNAV: map[string]bool{}, failName: map[string]bool{}}
}

func (f *fakeFetcher) FetchNAV(ctx context.Context, code string, from, to time.Time) ([]contracts.PricePoint, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.navCalls[code] = from
	if f.failNAV[code] {
		return nil, errors.New("boom")
	}
	return []contracts.PricePoint{
		{Date: day, Close: contracts.Float(1.0)},
		{Date: day.AddDate(0, 0, 1), Close: contracts.Float(1.01)},
	}, nil
}

func (f *fakeFetcher) FetchName(ctx context.Context, code string) (string, error) {
	if f.failName[code] {
		return "", errors.New("no page")
	}
	return "fund " + code, nil
}

func (f *fakeFetcher) ListFunds(ctx context.Context) ([]eastmoney.Fund, error) {
	return []eastmoney.Fund{{Code: "000001", Name: "a"}, {Code: "000002", Name: "b"}}, nil
}

type fakeStore struct {
	mu     sync.Mutex
	latest map[string]time.Time
	saved  map[string]int
	names  map[string]string
}

func newFakeStore() *fakeStore {
	return &fakeStore{latest: map[string]time.Time{}, saved: map[string]int{}, names: map[string]string{}}
}

func (s *fakeStore) LatestDate(ctx context.Context, code string) (time.Time, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.latest[code], nil
}

func (s *fakeStore) SavePoints(ctx context.Context, code string, points []contracts.PricePoint) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.saved[code] += len(points)
	return nil
}

func (s *fakeStore) Upsert(ctx context.Context, code, name, source string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.names[code] = name
	return nil
}

func disabledCache(t *testing.T) *redis.Cache {
	t.Helper()
	client, err := redis.New(context.Background(), &config.Config{})
	require.NoError(t, err)
	return redis.NewCache(client, "test")
}

func TestCollector_FetchAll(t *testing.T) {
	fetcher := newFakeFetcher()
	fetcher.failNAV["000003"] = true
	fetcher.failName["000002"] = true

	store := newFakeStore()
	store.latest["000001"] = day.AddDate(0, 0, -10)

	c := NewCollector(fetcher, store, store, disabledCache(t), logger.Nop())
	results, err := c.FetchAll(context.Background(), []string{"000001", "000002", "000003"}, Config{Workers: 2})
	require.NoError(t, err)
	require.Len(t, results, 3)

	sort.Slice(results, func(i, j int) bool { return results[i].Code < results[j].Code })

	assert.NoError(t, results[0].Error)
	assert.Equal(t, 2, results[0].PriceCount)
	assert.Equal(t, "fund 000001", results[0].Name)
	assert.Equal(t, day.AddDate(0, 0, -9), fetcher.navCalls["000001"], "resumes after the stored date")
	assert.True(t, fetcher.navCalls["000002"].IsZero(), "no stored date fetches everything")

	assert.NoError(t, results[1].Error, "name failure does not fail the fund")
	assert.Equal(t, 2, store.saved["000002"])
	assert.NotContains(t, store.names, "000002")

	assert.Error(t, results[2].Error)
	assert.Zero(t, store.saved["000003"])
}

func TestCollector_FetchAllCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	store := newFakeStore()
	c := NewCollector(newFakeFetcher(), store, store, nil, logger.Nop())
	results, err := c.FetchAll(ctx, []string{"000001", "000002"}, Config{Workers: 1})
	assert.ErrorIs(t, err, context.Canceled)
	require.Len(t, results, 2)
	for _, r := range results {
		assert.ErrorIs(t, r.Error, context.Canceled)
	}
}

func TestCollector_SyncFundList(t *testing.T) {
	store := newFakeStore()
	c := NewCollector(newFakeFetcher(), store, store, nil, logger.Nop())

	n, err := c.SyncFundList(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, map[string]string{"000001": "a", "000002": "b"}, store.names)
}

func TestRemoteSource(t *testing.T) {
	fetcher := newFakeFetcher()
	fetcher.failNAV["000002"] = true

	src := NewRemoteSource(fetcher, []string{"000001", "000002"}, disabledCache(t))

	codes, err := src.ListCodes(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"000001", "000002"}, codes)

	insts, err := src.LoadSeries(context.Background(), nil)
	require.NoError(t, err)
	require.Len(t, insts, 2)

	assert.NoError(t, insts[0].LoadErr)
	assert.Len(t, insts[0].Points, 2)
	assert.Error(t, insts[1].LoadErr)
	assert.Equal(t, contracts.KindUnexpectedFailure, contracts.ErrorKind(insts[1].LoadErr))
}
