package window

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/fundquant/internal/contracts"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// dailySeries returns one point per calendar day in [from, to]
func dailySeries(from, to time.Time) *contracts.Series {
	s := &contracts.Series{Code: "000001"}
	for d, v := from, 1.0; !d.After(to); d, v = d.AddDate(0, 0, 1), v+0.01 {
		s.Points = append(s.Points, contracts.Point{Date: d, Close: v})
	}
	return s
}

func byLabel(ws []contracts.Window) map[contracts.WindowLabel]contracts.Window {
	m := make(map[contracts.WindowLabel]contracts.Window, len(ws))
	for _, w := range ws {
		m[w.Label] = w
	}
	return m
}

func TestSegment_Order(t *testing.T) {
	s := dailySeries(date(2022, 6, 1), date(2024, 3, 31))
	ws := Segment(s, Plan{Years: []int{2022, 2023, 2024}})

	labels := make([]contracts.WindowLabel, len(ws))
	for i, w := range ws {
		labels[i] = w.Label
	}
	assert.Equal(t, []contracts.WindowLabel{
		"FULL", "LAST_3Y", "LAST_1Y",
		"TRAILING_1W", "TRAILING_1M", "TRAILING_2M", "TRAILING_3M", "TRAILING_6M",
		"TRAILING_9M", "TRAILING_1Y", "TRAILING_2Y", "TRAILING_3Y",
		"YEAR_2022", "YEAR_2023", "YEAR_2024",
	}, labels)

	assert.Len(t, Labels(Plan{Years: []int{2022, 2023, 2024}}), len(ws))
}

func TestSegment_Bounds(t *testing.T) {
	s := dailySeries(date(2022, 6, 1), date(2024, 3, 31))
	ws := byLabel(Segment(s, Plan{Years: []int{2022, 2024}}))

	full := ws[contracts.WindowFull]
	assert.Equal(t, date(2022, 6, 1), full.Start)
	assert.Equal(t, date(2024, 3, 31), full.End)
	assert.Equal(t, s.Len(), full.PointCount)
	assert.Equal(t, contracts.KindAnalysis, full.Kind)

	week := ws[contracts.WindowTrail1W]
	assert.Equal(t, date(2024, 3, 24), week.Start)
	assert.Equal(t, 8, week.PointCount, "inclusive on both ends")
	assert.Equal(t, contracts.KindPeriod, week.Kind)

	y22 := ws[contracts.YearLabel(2022)]
	assert.Equal(t, date(2022, 1, 1), y22.Start)
	assert.Equal(t, date(2022, 12, 31), y22.End)
	assert.Equal(t, 214, y22.PointCount) // Jun 1 .. Dec 31

	y24 := ws[contracts.YearLabel(2024)]
	assert.Equal(t, date(2024, 3, 31), y24.End, "clipped at reference")
}

func TestSegment_ExplicitReference(t *testing.T) {
	s := dailySeries(date(2023, 1, 1), date(2023, 12, 31))
	ref := date(2023, 6, 30)
	ws := byLabel(Segment(s, Plan{Reference: ref}))

	full := ws[contracts.WindowFull]
	pts := Slice(s, full)
	require.NotEmpty(t, pts)
	assert.Equal(t, ref, pts[len(pts)-1].Date, "end point is the latest point <= R")
}

func TestSegment_ShortWindowsStillBuilt(t *testing.T) {
	s := dailySeries(date(2024, 3, 30), date(2024, 3, 31))
	ws := byLabel(Segment(s, Plan{Years: []int{2019}}))

	assert.Equal(t, 0, ws[contracts.YearLabel(2019)].PointCount)
	assert.Equal(t, 2, ws[contracts.WindowTrail3Y].PointCount)
}

func TestSlice_Empty(t *testing.T) {
	s := dailySeries(date(2024, 1, 1), date(2024, 1, 10))
	w := contracts.Window{Start: date(2025, 1, 1), End: date(2025, 2, 1)}
	assert.Empty(t, Slice(s, w))

	inverted := contracts.Window{Start: date(2024, 1, 5), End: date(2024, 1, 2)}
	assert.Empty(t, Slice(s, inverted))
}

func TestPlanYears(t *testing.T) {
	valid := func(ds ...time.Time) *contracts.Series {
		s := &contracts.Series{Code: "x"}
		for _, d := range ds {
			s.Points = append(s.Points, contracts.Point{Date: d, Close: 1})
		}
		return s
	}
	a := valid(date(2021, 12, 30), date(2022, 1, 2))
	b := valid(date(2023, 12, 30), date(2024, 1, 2))

	all := []*contracts.Series{a, nil, b}
	assert.Equal(t, []int{2021, 2022, 2023, 2024}, PlanYears(all, time.Time{}))
	assert.Equal(t, []int{2021, 2022, 2023}, PlanYears(all, date(2023, 12, 31)))
	assert.Empty(t, PlanYears(nil, time.Time{}))
}

// businessDays returns one point per weekday in [from, to], close rising 0.01 a day
func businessDays(from, to time.Time) *contracts.Series {
	s := &contracts.Series{Code: "000001"}
	v := 1.0
	for d := from; !d.After(to); d = d.AddDate(0, 0, 1) {
		if d.Weekday() == time.Saturday || d.Weekday() == time.Sunday {
			continue
		}
		s.Points = append(s.Points, contracts.Point{Date: d, Close: v})
		v += 0.01
	}
	return s
}

func TestSegment_ReferenceOnNonTradingDay(t *testing.T) {
	s := businessDays(date(2024, 1, 1), date(2024, 3, 29))
	saturday := date(2024, 3, 16)
	friday := date(2024, 3, 15)
	require.Equal(t, time.Saturday, saturday.Weekday())

	ws := byLabel(Segment(s, Plan{Reference: saturday}))

	for _, label := range []contracts.WindowLabel{
		contracts.WindowFull,
		contracts.WindowTrail1W,
		contracts.WindowTrail1M,
	} {
		pts := Slice(s, ws[label])
		require.NotEmpty(t, pts, label)
		assert.Equal(t, friday, pts[len(pts)-1].Date, "%s ends at the latest point <= R", label)
		assert.Equal(t, len(pts), ws[label].PointCount, label)
	}

	// 1W: [Mar 9 (Sat), Mar 16 (Sat)] → Mon 11 .. Fri 15
	week := Slice(s, ws[contracts.WindowTrail1W])
	assert.Equal(t, 5, ws[contracts.WindowTrail1W].PointCount)
	assert.Equal(t, date(2024, 3, 11), week[0].Date)

	// FULL 은 R 이후 포인트 (Mar 18..29) 를 포함하지 않음
	full := ws[contracts.WindowFull]
	assert.Equal(t, date(2024, 1, 1), full.Start)
	assert.Equal(t, saturday, full.End)
	assert.Equal(t, 55, full.PointCount) // Jan 1 .. Mar 15 weekdays
}
