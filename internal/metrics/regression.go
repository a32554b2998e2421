package metrics

import (
	"fmt"
	"math"
	"time"

	"gonum.org/v1/gonum/stat"

	"github.com/wonny/fundquant/internal/contracts"
)

type fit struct {
	alpha    contracts.NullFloat
	beta     contracts.NullFloat
	rSquared contracts.NullFloat
}

var nullFit = fit{alpha: contracts.Null, beta: contracts.Null, rSquared: contracts.Null}

// regress fits fund returns on benchmark returns over common return dates.
// A return is dated by its ending point.
func regress(fund, bench []contracts.Point) fit {
	x, y := alignReturns(fund, bench)
	if err := checkRegressor(x); err != nil {
		return nullFit
	}

	alpha, beta := stat.LinearRegression(x, y, nil, false)
	return fit{
		alpha:    contracts.Some(alpha),
		beta:     contracts.Some(beta),
		rSquared: contracts.Some(stat.RSquared(x, y, nil, alpha, beta)),
	}
}

func alignReturns(fund, bench []contracts.Point) (x, y []float64) {
	benchByDate := make(map[time.Time]float64, len(bench))
	for i := 1; i < len(bench); i++ {
		benchByDate[bench[i].Date] = bench[i].Close/bench[i-1].Close - 1
	}
	for i := 1; i < len(fund); i++ {
		b, ok := benchByDate[fund[i].Date]
		if !ok {
			continue
		}
		x = append(x, b)
		y = append(y, fund[i].Close/fund[i-1].Close-1)
	}
	return x, y
}

func checkRegressor(x []float64) error {
	if len(x) < 2 {
		return fmt.Errorf("%d overlapping returns: %w", len(x), contracts.ErrInsufficientData)
	}
	if negligibleSpread(stat.StdDev(x, nil), x) {
		return contracts.ErrDegenerateRegression
	}
	return nil
}

// olsDispersion is the sample std of residuals of log returns regressed on
// their time index
func olsDispersion(points []contracts.Point) contracts.NullFloat {
	n := len(points) - 1
	if n < 2 {
		return contracts.Null
	}

	x := make([]float64, n)
	y := make([]float64, n)
	for i := 1; i < len(points); i++ {
		x[i-1] = float64(i)
		y[i-1] = math.Log(points[i].Close / points[i-1].Close)
	}

	alpha, beta := stat.LinearRegression(x, y, nil, false)
	residuals := make([]float64, n)
	for i := range y {
		residuals[i] = y[i] - (alpha + beta*x[i])
	}
	return sampleStd(residuals)
}
