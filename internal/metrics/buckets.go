package metrics

import (
	"time"

	"gonum.org/v1/gonum/stat"

	"github.com/wonny/fundquant/internal/contracts"
)

type bucketFunc func(t time.Time) int

func weekKey(t time.Time) int {
	y, w := t.ISOWeek()
	return y*100 + w
}

func monthKey(t time.Time) int {
	return t.Year()*100 + int(t.Month())
}

func quarterKey(t time.Time) int {
	return t.Year()*10 + (int(t.Month())-1)/3 + 1
}

// bucketReturns resamples to the last close of each bucket and returns the
// change between consecutive bucket closes (n buckets → n-1 returns)
func bucketReturns(points []contracts.Point, key bucketFunc) []float64 {
	var closes []float64
	last := 0
	for i, p := range points {
		k := key(p.Date)
		if i == 0 || k != last {
			closes = append(closes, p.Close)
			last = k
			continue
		}
		closes[len(closes)-1] = p.Close
	}

	if len(closes) < 2 {
		return nil
	}
	r := make([]float64, len(closes)-1)
	for i := 1; i < len(closes); i++ {
		r[i-1] = closes[i]/closes[i-1] - 1
	}
	return r
}

// maxAbsZ is the largest |z-score| among x (sample std)
func maxAbsZ(x []float64) contracts.NullFloat {
	if len(x) < 2 {
		return contracts.Null
	}
	mean, std := stat.MeanStdDev(x, nil)
	if negligibleSpread(std, x) {
		return contracts.Null
	}
	best := 0.0
	for _, v := range x {
		z := (v - mean) / std
		if z < 0 {
			z = -z
		}
		if z > best {
			best = z
		}
	}
	return contracts.Some(best)
}
