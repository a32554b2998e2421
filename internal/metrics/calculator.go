// Package metrics computes the return and risk battery for one window.
package metrics

import (
	"github.com/wonny/fundquant/internal/contracts"
	"github.com/wonny/fundquant/internal/window"
)

// Options holds the conventions used by every formula
type Options struct {
	PeriodsPerYear    float64 // 연환산 기간 수 (기본 252 거래일)
	RiskFreeRate      float64 // 연 무위험 수익률
	AnnualizeAlpha    bool    // alpha × PeriodsPerYear
	MinOLSDispersion  int     // ols_dispersion 최소 수익률 개수
	MinMonthlyAnomaly int     // monthly_anomaly 최소 월 수익률 개수
	MinSignificance   int     // t-검정 최소 수익률 개수
}

// DefaultOptions returns 252 periods/year, rf 0, and the minimum-coverage rules
func DefaultOptions() Options {
	return Options{
		PeriodsPerYear:    252,
		RiskFreeRate:      0,
		AnnualizeAlpha:    true,
		MinOLSDispersion:  30,
		MinMonthlyAnomaly: 12,
		MinSignificance:   30,
	}
}

// Calculator computes MetricSets. It holds no mutable state and is safe
// for concurrent use.
// ⭐ SSOT: 지표 공식은 이 패키지에서만
type Calculator struct {
	opts Options
}

// NewCalculator creates a calculator; zero PeriodsPerYear falls back to 252
func NewCalculator(opts Options) *Calculator {
	if opts.PeriodsPerYear <= 0 {
		opts.PeriodsPerYear = DefaultOptions().PeriodsPerYear
	}
	return &Calculator{opts: opts}
}

// Options returns the calculator conventions
func (c *Calculator) Options() Options {
	return c.opts
}

// Compute returns the metric set of w. benchmark may be nil, in which case
// the regression outputs stay null. Metrics below their minimum are null.
func (c *Calculator) Compute(s *contracts.Series, w contracts.Window, benchmark *contracts.Series) contracts.MetricSet {
	set := contracts.NewMetricSet(w.Label, w.Kind)
	points := window.Slice(s, w)
	set.SetFloat(contracts.MetricPointCount, float64(len(points)))

	switch w.Kind {
	case contracts.KindPeriod:
		set.Set(contracts.MetricChange, change(points))
		lo, hi := dailyRange(points)
		set.Set(contracts.MetricMinDailyReturn, lo)
		set.Set(contracts.MetricMaxDailyReturn, hi)
	case contracts.KindAnalysis:
		c.analysis(&set, points, w, benchmark)
	}
	return set
}

func (c *Calculator) analysis(set *contracts.MetricSet, points []contracts.Point, w contracts.Window, benchmark *contracts.Series) {
	if len(points) < 2 {
		return
	}

	p := c.opts.PeriodsPerYear
	r := simpleReturns(points)

	annual := annualizedReturn(r, len(points), p)
	vol := volatility(r, p)
	mdd, second := drawdowns(r)

	set.Set(contracts.MetricTotalReturn, change(points))
	set.Set(contracts.MetricAnnualizedReturn, annual)
	set.Set(contracts.MetricVolatility, vol)
	set.Set(contracts.MetricMaxDrawdown, mdd)
	set.Set(contracts.MetricSecondDrawdown, second)
	set.Set(contracts.MetricSharpe, sharpe(annual, vol, c.opts.RiskFreeRate))
	set.Set(contracts.MetricSortino, sortino(r, annual, c.opts.RiskFreeRate, p))
	set.Set(contracts.MetricCalmar, calmar(annual, mdd))

	var benchPoints []contracts.Point
	if benchmark != nil {
		benchPoints = window.Slice(benchmark, w)
		fit := regress(points, benchPoints)
		alpha := fit.alpha
		if c.opts.AnnualizeAlpha && alpha.Valid {
			alpha = contracts.Some(alpha.Float64 * p)
		}
		set.Set(contracts.MetricBeta, fit.beta)
		set.Set(contracts.MetricAlpha, alpha)
		set.Set(contracts.MetricRSquared, fit.rSquared)
	}

	weekly := bucketReturns(points, weekKey)
	monthly := bucketReturns(points, monthKey)
	quarterly := bucketReturns(points, quarterKey)

	set.Set(contracts.MetricUpDayRatio, upRatio(r))
	set.Set(contracts.MetricUpWeekRatio, upRatio(weekly))
	set.Set(contracts.MetricUpMonthRatio, upRatio(monthly))
	set.Set(contracts.MetricUpQuarterRatio, upRatio(quarterly))
	set.Set(contracts.MetricWeeklyVolatility, sampleStd(weekly))
	set.Set(contracts.MetricMonthlyVolatility, sampleStd(monthly))
	set.Set(contracts.MetricQuarterlyVolatility, sampleStd(quarterly))

	if len(r) >= c.opts.MinOLSDispersion {
		set.Set(contracts.MetricOLSDispersion, olsDispersion(points))
	}
	if len(monthly) >= c.opts.MinMonthlyAnomaly {
		set.Set(contracts.MetricMonthlyAnomaly, maxAbsZ(monthly))
	}

	set.Set(contracts.MetricInformationRatio, informationRatio(points, benchPoints, benchmark != nil, p))
	if len(r) >= c.opts.MinSignificance {
		sig := returnSignificance(r, p)
		set.Set(contracts.MetricReturnTStat, sig.tStat)
		set.Set(contracts.MetricReturnPValue, sig.pValue)
		set.Set(contracts.MetricReturnCILower, sig.ciLower)
		set.Set(contracts.MetricReturnCIUpper, sig.ciUpper)
	}
	set.Set(contracts.MetricMaxMedianMonthly, maxMedianRatio(monthly))
}
