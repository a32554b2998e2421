package metrics

import (
	"math"

	"gonum.org/v1/gonum/stat"

	"github.com/wonny/fundquant/internal/contracts"
)

// simpleReturns returns close_t/close_{t-1} - 1 for consecutive points
func simpleReturns(points []contracts.Point) []float64 {
	if len(points) < 2 {
		return nil
	}
	r := make([]float64, len(points)-1)
	for i := 1; i < len(points); i++ {
		r[i-1] = points[i].Close/points[i-1].Close - 1
	}
	return r
}

// change is last/first - 1; needs 2 points
func change(points []contracts.Point) contracts.NullFloat {
	if len(points) < 2 {
		return contracts.Null
	}
	first := points[0].Close
	if first == 0 {
		return contracts.Null
	}
	return contracts.Some(points[len(points)-1].Close/first - 1)
}

// annualizedReturn is (Π(1+r))^(P/pointCount) - 1
func annualizedReturn(r []float64, pointCount int, periodsPerYear float64) contracts.NullFloat {
	if len(r) == 0 || pointCount == 0 {
		return contracts.Null
	}
	growth := 1.0
	for _, v := range r {
		growth *= 1 + v
	}
	if growth <= 0 {
		return contracts.Null
	}
	return contracts.Some(math.Pow(growth, periodsPerYear/float64(pointCount)) - 1)
}

// volatility is the annualized sample standard deviation of r
func volatility(r []float64, periodsPerYear float64) contracts.NullFloat {
	std := sampleStd(r)
	if !std.Valid {
		return contracts.Null
	}
	return contracts.Some(std.Float64 * math.Sqrt(periodsPerYear))
}

// sampleStd is the n-1 standard deviation; needs 2 values.
// A spread within rounding noise of the values resolves to exactly 0.
func sampleStd(x []float64) contracts.NullFloat {
	if len(x) < 2 {
		return contracts.Null
	}
	std := stat.StdDev(x, nil)
	if negligibleSpread(std, x) {
		return contracts.Some(0)
	}
	return contracts.Some(std)
}

// relSpreadTolerance bounds the floating-point noise a constant-rate series
// leaves in its standard deviation
const relSpreadTolerance = 1e-12

// negligibleSpread reports whether std is at or below 1e-12 × max(1, mean|x|)
func negligibleSpread(std float64, x []float64) bool {
	if len(x) == 0 {
		return true
	}
	sumAbs := 0.0
	for _, v := range x {
		sumAbs += math.Abs(v)
	}
	return std <= relSpreadTolerance*math.Max(1, sumAbs/float64(len(x)))
}

// upRatio is the share of returns >= 0; needs 1 return
func upRatio(r []float64) contracts.NullFloat {
	if len(r) == 0 {
		return contracts.Null
	}
	up := 0
	for _, v := range r {
		if v >= 0 {
			up++
		}
	}
	return contracts.Some(float64(up) / float64(len(r)))
}
