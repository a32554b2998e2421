package metrics

import (
	"math"

	"github.com/wonny/fundquant/internal/contracts"
)

// sharpe = (annualized return - rf) / volatility
func sharpe(annual, vol contracts.NullFloat, rf float64) contracts.NullFloat {
	if !annual.Valid || !vol.Valid || vol.Float64 == 0 {
		return contracts.Null
	}
	return contracts.Some((annual.Float64 - rf) / vol.Float64)
}

// sortino = (annualized return - rf) / (downside deviation × √P),
// downside deviation = sqrt(mean(min(r, 0)²)) over all returns
func sortino(r []float64, annual contracts.NullFloat, rf, periodsPerYear float64) contracts.NullFloat {
	if !annual.Valid || len(r) == 0 {
		return contracts.Null
	}

	sumSq := 0.0
	negatives := 0
	for _, v := range r {
		if v < 0 {
			sumSq += v * v
			negatives++
		}
	}
	if negatives == 0 {
		return contracts.Null
	}

	downside := math.Sqrt(sumSq/float64(len(r))) * math.Sqrt(periodsPerYear)
	if downside == 0 {
		return contracts.Null
	}
	return contracts.Some((annual.Float64 - rf) / downside)
}

// calmar = annualized return / |max drawdown|
func calmar(annual, mdd contracts.NullFloat) contracts.NullFloat {
	if !annual.Valid || !mdd.Valid || mdd.Float64 == 0 {
		return contracts.Null
	}
	return contracts.Some(annual.Float64 / math.Abs(mdd.Float64))
}
