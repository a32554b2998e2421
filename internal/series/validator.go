// Package series turns raw price points into a validated Series.
package series

import (
	"fmt"
	"math"
	"sort"

	"github.com/wonny/fundquant/internal/contracts"
)

// MinPoints is the minimum number of valid closes a series needs
const MinPoints = 2

// Validate cleans raw points for one instrument.
// ⭐ SSOT: 정렬/중복제거/결측제거 규칙은 여기서만
//
// Rules:
//   - zero date, non-finite value or close <= 0 → ErrMalformedSeries
//   - stable sort by date, duplicate dates keep the latest-inserted point
//   - points without close are dropped and counted
//   - fewer than MinPoints remaining → ErrInsufficientData
func Validate(code string, raw []contracts.PricePoint) (*contracts.Series, error) {
	for i, p := range raw {
		if err := checkPoint(p); err != nil {
			return nil, fmt.Errorf("%s point %d: %w", code, i, err)
		}
	}

	sorted := make([]contracts.PricePoint, len(raw))
	copy(sorted, raw)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Date.Before(sorted[j].Date)
	})

	points := make([]contracts.Point, 0, len(sorted))
	dropped := 0
	for i, p := range sorted {
		// 같은 날짜가 뒤에 또 있으면 뒤쪽(나중에 입력된 값)을 유지
		if i+1 < len(sorted) && sorted[i+1].Date.Equal(p.Date) {
			dropped++
			continue
		}
		if p.Close == nil {
			dropped++
			continue
		}
		points = append(points, contracts.Point{
			Date:   p.Date,
			Close:  *p.Close,
			Open:   p.Open,
			High:   p.High,
			Low:    p.Low,
			Volume: p.Volume,
			Amount: p.Amount,
		})
	}

	if len(points) < MinPoints {
		return nil, fmt.Errorf("%s has %d valid points (need %d): %w",
			code, len(points), MinPoints, contracts.ErrInsufficientData)
	}

	return &contracts.Series{
		Code:    code,
		Points:  points,
		Dropped: dropped,
	}, nil
}

func checkPoint(p contracts.PricePoint) error {
	if p.Date.IsZero() {
		return fmt.Errorf("missing date: %w", contracts.ErrMalformedSeries)
	}

	fields := []struct {
		name string
		v    *float64
	}{
		{"open", p.Open},
		{"high", p.High},
		{"low", p.Low},
		{"close", p.Close},
		{"prev_close", p.PrevClose},
		{"volume", p.Volume},
		{"amount", p.Amount},
	}
	for _, f := range fields {
		if f.v != nil && (math.IsNaN(*f.v) || math.IsInf(*f.v, 0)) {
			return fmt.Errorf("%s is not a finite number: %w", f.name, contracts.ErrMalformedSeries)
		}
	}

	if p.Close != nil && *p.Close <= 0 {
		return fmt.Errorf("close %v <= 0: %w", *p.Close, contracts.ErrMalformedSeries)
	}
	return nil
}
