package metrics

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/wonny/fundquant/internal/contracts"
)

// informationRatio = mean(active)·P / (std(active)·√P).
// Active returns are fund minus benchmark over common dates; without a
// benchmark the fund returns themselves are used (zero benchmark).
func informationRatio(points []contracts.Point, bench []contracts.Point, hasBench bool, periodsPerYear float64) contracts.NullFloat {
	var active []float64
	if hasBench {
		x, y := alignReturns(points, bench)
		active = make([]float64, len(y))
		for i := range y {
			active[i] = y[i] - x[i]
		}
	} else {
		active = simpleReturns(points)
	}
	if len(active) < 2 {
		return contracts.Null
	}

	mean, std := stat.MeanStdDev(active, nil)
	if negligibleSpread(std, active) {
		return contracts.Null
	}
	return contracts.Some(mean * periodsPerYear / (std * math.Sqrt(periodsPerYear)))
}

type significance struct {
	tStat   contracts.NullFloat
	pValue  contracts.NullFloat
	ciLower contracts.NullFloat
	ciUpper contracts.NullFloat
}

var nullSignificance = significance{
	tStat: contracts.Null, pValue: contracts.Null,
	ciLower: contracts.Null, ciUpper: contracts.Null,
}

// returnSignificance runs a one-sample t-test of mean(r) > 0 and returns the
// 95% confidence interval of the mean, annualized (×P)
func returnSignificance(r []float64, periodsPerYear float64) significance {
	n := float64(len(r))
	if len(r) < 2 {
		return nullSignificance
	}
	mean, std := stat.MeanStdDev(r, nil)
	if negligibleSpread(std, r) {
		return nullSignificance
	}

	se := std / math.Sqrt(n)
	t := mean / se
	dist := distuv.StudentsT{Mu: 0, Sigma: 1, Nu: n - 1}
	q := dist.Quantile(0.975)

	return significance{
		tStat:   contracts.Some(t),
		pValue:  contracts.Some(1 - dist.CDF(t)),
		ciLower: contracts.Some((mean - q*se) * periodsPerYear),
		ciUpper: contracts.Some((mean + q*se) * periodsPerYear),
	}
}

// maxMedianRatio is max/median of the positive monthly returns
func maxMedianRatio(monthly []float64) contracts.NullFloat {
	if len(monthly) < 2 {
		return contracts.Null
	}
	var pos []float64
	for _, v := range monthly {
		if v > 0 {
			pos = append(pos, v)
		}
	}
	if len(pos) == 0 {
		return contracts.Null
	}

	sort.Float64s(pos)
	mid := len(pos) / 2
	median := pos[mid]
	if len(pos)%2 == 0 {
		median = (pos[mid-1] + pos[mid]) / 2
	}
	return contracts.Some(pos[len(pos)-1] / median)
}

// dailyRange returns the smallest and largest return inside the window
func dailyRange(points []contracts.Point) (lo, hi contracts.NullFloat) {
	r := simpleReturns(points)
	if len(r) == 0 {
		return contracts.Null, contracts.Null
	}
	return contracts.Some(floats.Min(r)), contracts.Some(floats.Max(r))
}
