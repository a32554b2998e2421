package service

import (
	"context"
	"errors"
	"math"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/fundquant/internal/analysisconfig"
	"github.com/wonny/fundquant/internal/batch"
	"github.com/wonny/fundquant/internal/contracts"
	"github.com/wonny/fundquant/pkg/logger"
)

type memorySource struct {
	instruments []contracts.Instrument
	block       chan struct{}
}

func (m *memorySource) ListCodes(ctx context.Context) ([]string, error) {
	codes := make([]string, len(m.instruments))
	for i, inst := range m.instruments {
		codes[i] = inst.Code
	}
	return codes, nil
}

func (m *memorySource) LoadSeries(ctx context.Context, codes []string) ([]contracts.Instrument, error) {
	if m.block != nil {
		<-m.block
	}
	if len(codes) == 0 {
		return m.instruments, nil
	}
	var out []contracts.Instrument
	for _, code := range codes {
		for _, inst := range m.instruments {
			if inst.Code == code {
				out = append(out, inst)
			}
		}
	}
	return out, nil
}

type recordingSink struct {
	mu      sync.Mutex
	results []*contracts.BatchResult
	err     error
}

func (r *recordingSink) SaveRecords(ctx context.Context, result *contracts.BatchResult) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.results = append(r.results, result)
	return r.err
}

type fixedHistory struct {
	run *contracts.BatchResult
}

func (f fixedHistory) LatestRun(ctx context.Context) (*contracts.BatchResult, error) {
	if f.run == nil {
		return nil, errors.New("empty")
	}
	return f.run, nil
}

func wave(code string, n int, phase float64) contracts.Instrument {
	inst := contracts.Instrument{Code: code}
	d := time.Date(2023, 1, 2, 0, 0, 0, 0, time.UTC)
	nav := 1.0
	for i := 0; i < n; i++ {
		nav *= 1 + 0.004*math.Sin(phase+float64(i)/3)
		inst.Points = append(inst.Points, contracts.PricePoint{Date: d.AddDate(0, 0, i), Close: contracts.Float(nav)})
	}
	return inst
}

func TestAnalysisService_Run(t *testing.T) {
	src := &memorySource{instruments: []contracts.Instrument{
		wave("000002", 200, 1),
		wave("000001", 200, 2),
		{Code: "000009", Points: []contracts.PricePoint{{Date: time.Date(2023, 1, 2, 0, 0, 0, 0, time.UTC), Close: contracts.Float(1)}}},
	}}

	profile := analysisconfig.Default()
	profile.BenchmarkCode = "000001"

	good := &recordingSink{}
	bad := &recordingSink{err: errors.New("disk full")}
	var progressed atomic.Int32

	svc := NewAnalysisService(src, profile, logger.Nop(),
		WithSinks(bad, good),
		WithNames(contracts.StaticNames{"000001": "Benchmark Fund"}),
		WithProgress(func(contracts.Progress) { progressed.Add(1) }),
		WithNumCPU(2),
	)

	single := batch.Single()
	result, err := svc.Run(context.Background(), RunOptions{Concurrency: &single})
	require.NoError(t, err)

	assert.Equal(t, 2, result.Succeeded)
	assert.Equal(t, 1, result.Failed)
	assert.Equal(t, int32(3), progressed.Load())
	assert.NotEmpty(t, result.ProfileHash)
	require.Len(t, good.results, 1, "a failing sink does not stop the others")

	rec, err := svc.Record(context.Background(), "000001")
	require.NoError(t, err)
	assert.Equal(t, "Benchmark Fund", rec.Name)

	beta, ok := rec.Value(contracts.FieldKey(contracts.WindowFull, contracts.MetricBeta))
	require.True(t, ok)
	require.True(t, beta.Valid, "benchmark regressed on itself")
	assert.InDelta(t, 1.0, beta.Float64, 1e-9)

	failed, err := svc.Record(context.Background(), "000009")
	require.NoError(t, err)
	assert.Equal(t, contracts.KindInsufficientData, failed.ErrorKind)

	_, err = svc.Record(context.Background(), "999999")
	assert.ErrorIs(t, err, ErrRecordNotFound)
}

func TestAnalysisService_LatestFallbacks(t *testing.T) {
	svc := NewAnalysisService(&memorySource{}, nil, logger.Nop())
	_, err := svc.Latest(context.Background())
	assert.ErrorIs(t, err, ErrNoResult)

	stored := &contracts.BatchResult{RunID: "stored"}
	svc = NewAnalysisService(&memorySource{}, nil, logger.Nop(), WithHistory(fixedHistory{run: stored}))
	got, err := svc.Latest(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "stored", got.RunID)
}

func TestAnalysisService_RejectsConcurrentRun(t *testing.T) {
	src := &memorySource{instruments: []contracts.Instrument{wave("000001", 50, 0)}, block: make(chan struct{})}
	svc := NewAnalysisService(src, nil, logger.Nop())

	done := make(chan error, 1)
	go func() {
		_, err := svc.Run(context.Background(), RunOptions{})
		done <- err
	}()

	require.Eventually(t, svc.Running, time.Second, time.Millisecond)
	_, err := svc.Run(context.Background(), RunOptions{})
	assert.ErrorIs(t, err, ErrRunInProgress)

	close(src.block)
	require.NoError(t, <-done)
	assert.False(t, svc.Running())
}

func TestAnalysisService_InvalidConcurrency(t *testing.T) {
	svc := NewAnalysisService(&memorySource{instruments: []contracts.Instrument{wave("000001", 50, 0)}}, nil, logger.Nop())

	bad := batch.Concurrency{Mode: "turbo"}
	_, err := svc.Run(context.Background(), RunOptions{Concurrency: &bad})
	assert.ErrorIs(t, err, contracts.ErrInvalidConcurrency)
	assert.False(t, svc.Running())
}

func TestAnalysisService_ConcurrencyPrecedence(t *testing.T) {
	src := &memorySource{instruments: []contracts.Instrument{wave("000001", 50, 0), wave("000002", 50, 1)}}
	svc := NewAnalysisService(src, nil, logger.Nop(), WithConcurrency(batch.Custom(3)), WithNumCPU(2))

	result, err := svc.Run(context.Background(), RunOptions{})
	require.NoError(t, err)
	assert.Equal(t, 3, result.Workers, "service default replaces the profile")

	single := batch.Single()
	result, err = svc.Run(context.Background(), RunOptions{Concurrency: &single})
	require.NoError(t, err)
	assert.Equal(t, 1, result.Workers, "per-run override wins")
}
