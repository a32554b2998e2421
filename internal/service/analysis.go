// Package service wires sources, the batch dispatcher and result sinks into
// the operations the CLI, scheduler and API call.
package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/wonny/fundquant/internal/analysisconfig"
	"github.com/wonny/fundquant/internal/batch"
	"github.com/wonny/fundquant/internal/contracts"
	"github.com/wonny/fundquant/internal/metrics"
	"github.com/wonny/fundquant/internal/series"
	"github.com/wonny/fundquant/pkg/logger"
	"github.com/wonny/fundquant/pkg/redis"
)

var (
	// ErrRunInProgress: a batch is already running in this process
	ErrRunInProgress = errors.New("analysis run already in progress")
	// ErrNoResult: no batch has finished yet (memory, cache and history empty)
	ErrNoResult = errors.New("no analysis result available")
	// ErrRecordNotFound: the latest batch has no record for the code
	ErrRecordNotFound = errors.New("record not found")
)

// RunHistory loads the latest persisted run (store.RecordRepository)
type RunHistory interface {
	LatestRun(ctx context.Context) (*contracts.BatchResult, error)
}

// RunOptions are per-run overrides
type RunOptions struct {
	Codes []string // empty = every code of the source
	// Reference as-of date; zero = each series' last date
	Reference time.Time
	// Concurrency override; nil = profile default
	Concurrency *batch.Concurrency
	Progress    contracts.ProgressFunc
}

// AnalysisService runs batches and serves their results
// ⭐ SSOT: 배치 실행 진입점은 여기서만 (CLI, scheduler, API 공통)
type AnalysisService struct {
	source     contracts.SeriesSource
	dispatcher *batch.Dispatcher
	profile    *analysisconfig.Profile
	logger     *logger.Logger

	names    contracts.NameLookup
	sinks    []contracts.RecordSink
	cache    *redis.Cache
	history  RunHistory
	progress contracts.ProgressFunc
	numCPU   int
	threads  *batch.Concurrency

	running atomic.Bool
	mu      sync.RWMutex
	latest  *contracts.BatchResult
}

// Option configures an AnalysisService
type Option func(*AnalysisService)

// WithNames sets the fallback name lookup
func WithNames(names contracts.NameLookup) Option {
	return func(s *AnalysisService) { s.names = names }
}

// WithSinks adds result sinks (database, spreadsheet, ...)
func WithSinks(sinks ...contracts.RecordSink) Option {
	return func(s *AnalysisService) { s.sinks = append(s.sinks, sinks...) }
}

// WithCache caches finished results in redis
func WithCache(cache *redis.Cache) Option {
	return func(s *AnalysisService) { s.cache = cache }
}

// WithHistory falls back to persisted runs when nothing is in memory
func WithHistory(h RunHistory) Option {
	return func(s *AnalysisService) { s.history = h }
}

// WithProgress receives progress of every run (e.g. websocket hub)
func WithProgress(fn contracts.ProgressFunc) Option {
	return func(s *AnalysisService) { s.progress = fn }
}

// WithNumCPU overrides the CPU count used for AUTO concurrency
func WithNumCPU(n int) Option {
	return func(s *AnalysisService) { s.numCPU = n }
}

// WithConcurrency replaces the profile's default concurrency (ANALYSIS_THREAD_MODE)
func WithConcurrency(c batch.Concurrency) Option {
	return func(s *AnalysisService) { s.threads = &c }
}

// NewAnalysisService creates the service for profile
func NewAnalysisService(source contracts.SeriesSource, profile *analysisconfig.Profile, log *logger.Logger, opts ...Option) *AnalysisService {
	if profile == nil {
		profile = analysisconfig.Default()
	}
	s := &AnalysisService{
		source:  source,
		profile: profile,
		logger:  log.WithField("module", "analysis"),
	}
	for _, opt := range opts {
		opt(s)
	}

	hash, err := analysisconfig.Hash(profile)
	if err != nil {
		s.logger.WithError(err).Warn("Profile hash unavailable")
	}
	dispatcherOpts := []batch.Option{batch.WithProfileHash(hash)}
	if s.numCPU > 0 {
		dispatcherOpts = append(dispatcherOpts, batch.WithNumCPU(s.numCPU))
	}
	s.dispatcher = batch.NewDispatcher(metrics.NewCalculator(profile.MetricsOptions()), log, dispatcherOpts...)
	return s
}

// Running reports whether a batch is in progress
func (s *AnalysisService) Running() bool {
	return s.running.Load()
}

// Profile returns the active analysis profile
func (s *AnalysisService) Profile() *analysisconfig.Profile {
	return s.profile
}

// Run loads instruments, runs the batch and hands the result to every sink.
// Sink failures are logged; the returned result is still complete.
func (s *AnalysisService) Run(ctx context.Context, opts RunOptions) (*contracts.BatchResult, error) {
	if !s.running.CompareAndSwap(false, true) {
		return nil, ErrRunInProgress
	}
	defer s.running.Store(false)

	instruments, err := s.source.LoadSeries(ctx, opts.Codes)
	if err != nil {
		return nil, fmt.Errorf("load series: %w", err)
	}

	concurrency := s.profile.BatchConcurrency()
	if s.threads != nil {
		concurrency = *s.threads
	}
	if opts.Concurrency != nil {
		concurrency = *opts.Concurrency
	}

	result, err := s.dispatcher.Run(ctx, batch.Request{
		Instruments: instruments,
		Reference:   opts.Reference,
		Benchmark:   s.benchmark(ctx, instruments),
		Concurrency: concurrency,
		Names:       s.names,
		Progress:    s.fanOut(opts.Progress),
	})
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.latest = result
	s.mu.Unlock()

	if s.cache != nil {
		if err := s.cache.Set(ctx, redis.LatestRunKey(), result, redis.TTLMedium); err != nil {
			s.logger.WithError(err).Warn("Failed to cache latest run")
		}
	}

	for _, sink := range s.sinks {
		if err := sink.SaveRecords(ctx, result); err != nil {
			s.logger.WithError(err).WithField("run_id", result.RunID).Error("Failed to save batch result")
		}
	}

	return result, nil
}

// Latest returns the newest result: memory, then redis, then history
func (s *AnalysisService) Latest(ctx context.Context) (*contracts.BatchResult, error) {
	s.mu.RLock()
	latest := s.latest
	s.mu.RUnlock()
	if latest != nil {
		return latest, nil
	}

	if s.cache != nil {
		var cached contracts.BatchResult
		found, err := s.cache.Get(ctx, redis.LatestRunKey(), &cached)
		if err != nil {
			s.logger.WithError(err).Warn("Failed to read cached run")
		}
		if found {
			return &cached, nil
		}
	}

	if s.history != nil {
		run, err := s.history.LatestRun(ctx)
		if err == nil {
			return run, nil
		}
		s.logger.WithError(err).Debug("No persisted run")
	}

	return nil, ErrNoResult
}

// Record returns the latest record of code
func (s *AnalysisService) Record(ctx context.Context, code string) (contracts.AnalysisRecord, error) {
	latest, err := s.Latest(ctx)
	if err != nil {
		return contracts.AnalysisRecord{}, err
	}
	rec, ok := latest.Record(code)
	if !ok {
		return contracts.AnalysisRecord{}, fmt.Errorf("%s: %w", code, ErrRecordNotFound)
	}
	return rec, nil
}

// benchmark resolves the profile's benchmark series; any problem disables
// regression metrics for the run instead of failing it
func (s *AnalysisService) benchmark(ctx context.Context, instruments []contracts.Instrument) *contracts.Series {
	code := s.profile.BenchmarkCode
	if code == "" {
		return nil
	}

	var raw *contracts.Instrument
	for i := range instruments {
		if instruments[i].Code == code {
			raw = &instruments[i]
			break
		}
	}
	if raw == nil {
		loaded, err := s.source.LoadSeries(ctx, []string{code})
		if err != nil || len(loaded) == 0 {
			s.logger.WithCode(code).Warn("Benchmark not available, regression metrics disabled")
			return nil
		}
		raw = &loaded[0]
	}
	if raw.LoadErr != nil {
		s.logger.WithCode(code).WithError(raw.LoadErr).Warn("Benchmark failed to load")
		return nil
	}

	bench, err := series.Validate(code, raw.Points)
	if err != nil {
		s.logger.WithCode(code).WithError(err).Warn("Benchmark series invalid")
		return nil
	}
	return bench
}

func (s *AnalysisService) fanOut(perRun contracts.ProgressFunc) contracts.ProgressFunc {
	if s.progress == nil && perRun == nil {
		return nil
	}
	return func(p contracts.Progress) {
		if s.progress != nil {
			s.progress(p)
		}
		if perRun != nil {
			perRun(p)
		}
	}
}
