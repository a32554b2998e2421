// Package batch runs the per-instrument analysis pipeline over a bounded
// worker pool.
package batch

import (
	"context"
	"fmt"
	"runtime"
	"sort"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/wonny/fundquant/internal/assembler"
	"github.com/wonny/fundquant/internal/contracts"
	"github.com/wonny/fundquant/internal/metrics"
	"github.com/wonny/fundquant/internal/series"
	"github.com/wonny/fundquant/internal/window"
	"github.com/wonny/fundquant/pkg/logger"
)

// Request is one batch run
type Request struct {
	Instruments []contracts.Instrument
	// Reference is the as-of date; zero means each series' last date
	Reference   time.Time
	Benchmark   *contracts.Series
	Concurrency Concurrency
	Names       contracts.NameLookup
	// Progress is called from worker goroutines and must be safe for concurrent use
	Progress contracts.ProgressFunc
}

type computeFunc func(s *contracts.Series, w contracts.Window, benchmark *contracts.Series) contracts.MetricSet

// Dispatcher fans instruments out to workers and collects their records
// ⭐ SSOT: 배치 병렬 처리는 여기서만
type Dispatcher struct {
	compute     computeFunc
	logger      *logger.Logger
	profileHash string
	numCPU      int
}

// Option configures a Dispatcher
type Option func(*Dispatcher)

// WithProfileHash records the analysis profile hash on every result
func WithProfileHash(hash string) Option {
	return func(d *Dispatcher) { d.profileHash = hash }
}

// WithNumCPU overrides runtime.NumCPU for AUTO resolution
func WithNumCPU(n int) Option {
	return func(d *Dispatcher) { d.numCPU = n }
}

// NewDispatcher creates a dispatcher around calc
func NewDispatcher(calc *metrics.Calculator, log *logger.Logger, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		compute: calc.Compute,
		logger:  log.WithField("module", "batch"),
		numCPU:  runtime.NumCPU(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Run analyses every instrument of req. Per-instrument failures become
// failed records; only an invalid concurrency config or a cancelled context
// fail the batch.
//
// Instruments are validated first; the calendar-year plan is derived from
// the series that passed validation only.
func (d *Dispatcher) Run(ctx context.Context, req Request) (*contracts.BatchResult, error) {
	workers, err := req.Concurrency.Resolve(d.numCPU)
	if err != nil {
		return nil, err
	}

	started := time.Now()
	runID := uuid.NewString()
	log := d.logger.WithField("run_id", runID)
	n := len(req.Instruments)

	log.WithFields(map[string]interface{}{
		"instruments": n,
		"workers":     workers,
		"mode":        req.Concurrency.String(),
	}).Info("Batch started")

	inputs := make([]prepared, n)
	if err := runPool(ctx, workers, n, func(i int) {
		inputs[i] = prepare(req.Instruments[i])
	}); err != nil {
		return nil, fmt.Errorf("batch %s aborted: %w", runID, err)
	}

	valid := make([]*contracts.Series, 0, n)
	for _, in := range inputs {
		if in.err == nil {
			valid = append(valid, in.series)
		}
	}
	plan := window.Plan{
		Reference: req.Reference,
		Years:     window.PlanYears(valid, req.Reference),
	}
	labels := window.Labels(plan)
	log.WithFields(map[string]interface{}{
		"valid": len(valid),
		"years": len(plan.Years),
	}).Debug("Window plan ready")

	records := make([]contracts.AnalysisRecord, n)
	var done int64

	if err := runPool(ctx, workers, n, func(i int) {
		inst := req.Instruments[i]
		records[i] = d.analyse(log, inst, inputs[i], plan, labels, req.Benchmark, req.Names)

		finished := atomic.AddInt64(&done, 1)
		if req.Progress != nil {
			req.Progress(contracts.Progress{
				RunID:  runID,
				Code:   inst.Code,
				Status: records[i].Status,
				Done:   int(finished),
				Total:  n,
			})
		}
	}); err != nil {
		return nil, fmt.Errorf("batch %s aborted: %w", runID, err)
	}

	// 코드 기준 정렬 → 워커 수와 무관한 결정적 출력
	sort.SliceStable(records, func(a, b int) bool {
		return records[a].Code < records[b].Code
	})

	result := &contracts.BatchResult{
		RunID:       runID,
		ProfileHash: d.profileHash,
		Workers:     workers,
		StartedAt:   started,
		FinishedAt:  time.Now(),
		Schema:      assembler.Schema(labels),
		Records:     records,
	}
	if !req.Reference.IsZero() {
		ref := req.Reference
		result.Reference = &ref
	}
	for _, r := range records {
		if r.Failed() {
			result.Failed++
		} else {
			result.Succeeded++
		}
	}

	log.WithFields(map[string]interface{}{
		"succeeded": result.Succeeded,
		"failed":    result.Failed,
		"duration":  result.Duration().String(),
	}).Info("Batch completed")

	return result, nil
}

// runPool calls fn(i) for i in [0, n) on at most workers goroutines.
// Each call must only write its own slot.
func runPool(ctx context.Context, workers, n int, fn func(i int)) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for i := 0; i < n; i++ {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			fn(i)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}
	return ctx.Err()
}

// prepared is one instrument after loading and validation
type prepared struct {
	series *contracts.Series
	err    error
}

// prepare validates inst; it never panics
func prepare(inst contracts.Instrument) (p prepared) {
	defer func() {
		if r := recover(); r != nil {
			p = prepared{err: fmt.Errorf("%s: panic: %v: %w", inst.Code, r, contracts.ErrUnexpectedFailure)}
		}
	}()

	if inst.LoadErr != nil {
		return prepared{err: inst.LoadErr}
	}
	s, err := series.Validate(inst.Code, inst.Points)
	return prepared{series: s, err: err}
}

// analyse runs Segmenter → Calculator × windows → Assembler for one
// validated instrument. It never panics.
func (d *Dispatcher) analyse(
	log *logger.Logger,
	inst contracts.Instrument,
	in prepared,
	plan window.Plan,
	labels []contracts.Window,
	benchmark *contracts.Series,
	names contracts.NameLookup,
) (rec contracts.AnalysisRecord) {
	id := assembler.Identity{Code: inst.Code, Name: inst.Name}

	fail := func(err error) contracts.AnalysisRecord {
		log.WithCode(inst.Code).WithError(err).WithField("error_kind", contracts.ErrorKind(err)).
			Warn("Instrument analysis failed")
		return assembler.Failed(id, labels, err)
	}

	defer func() {
		if r := recover(); r != nil {
			rec = fail(fmt.Errorf("%s: panic: %v: %w", inst.Code, r, contracts.ErrUnexpectedFailure))
		}
	}()

	if id.Name == "" && names != nil {
		id.Name = names.Name(inst.Code)
	}

	if in.err != nil {
		return fail(in.err)
	}

	windows := window.Segment(in.series, plan)
	sets := make([]contracts.MetricSet, len(windows))
	for i, w := range windows {
		sets[i] = d.compute(in.series, w, benchmark)
	}

	return assembler.Assemble(id, in.series, sets)
}
