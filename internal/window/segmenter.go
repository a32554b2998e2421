// Package window derives the labeled date windows metrics are computed over.
package window

import (
	"sort"
	"time"

	"github.com/wonny/fundquant/internal/contracts"
)

// Plan is the batch-wide window plan
type Plan struct {
	// Reference is the as-of date R; zero means each series' own last date
	Reference time.Time
	// Years lists the calendar-year windows, ascending
	Years []int
}

type spec struct {
	label  contracts.WindowLabel
	kind   contracts.WindowKind
	years  int
	months int
	days   int
}

// 고정 순서: 분석 윈도우 → 기간 변화 윈도우 → 연도 윈도우
var fixed = []spec{
	{label: contracts.WindowFull, kind: contracts.KindAnalysis},
	{label: contracts.WindowLast3Y, kind: contracts.KindAnalysis, years: 3},
	{label: contracts.WindowLast1Y, kind: contracts.KindAnalysis, years: 1},
	{label: contracts.WindowTrail1W, kind: contracts.KindPeriod, days: 7},
	{label: contracts.WindowTrail1M, kind: contracts.KindPeriod, months: 1},
	{label: contracts.WindowTrail2M, kind: contracts.KindPeriod, months: 2},
	{label: contracts.WindowTrail3M, kind: contracts.KindPeriod, months: 3},
	{label: contracts.WindowTrail6M, kind: contracts.KindPeriod, months: 6},
	{label: contracts.WindowTrail9M, kind: contracts.KindPeriod, months: 9},
	{label: contracts.WindowTrail1Y, kind: contracts.KindPeriod, years: 1},
	{label: contracts.WindowTrail2Y, kind: contracts.KindPeriod, years: 2},
	{label: contracts.WindowTrail3Y, kind: contracts.KindPeriod, years: 3},
}

// Segment builds every window of plan for s, in fixed order.
// Windows are built even when they hold too few points; PointCount may be 0.
func Segment(s *contracts.Series, plan Plan) []contracts.Window {
	ref := Reference(s, plan)
	windows := make([]contracts.Window, 0, len(fixed)+len(plan.Years))

	for _, f := range fixed {
		start := s.First()
		if f.years != 0 || f.months != 0 || f.days != 0 {
			start = ref.AddDate(-f.years, -f.months, -f.days)
		}
		windows = append(windows, build(s, f.label, f.kind, start, ref))
	}

	for _, y := range plan.Years {
		start := time.Date(y, time.January, 1, 0, 0, 0, 0, ref.Location())
		end := time.Date(y, time.December, 31, 0, 0, 0, 0, ref.Location())
		if end.After(ref) {
			end = ref
		}
		windows = append(windows, build(s, contracts.YearLabel(y), contracts.KindPeriod, start, end))
	}

	return windows
}

// Labels returns the window labels Segment produces for plan
func Labels(plan Plan) []contracts.Window {
	out := make([]contracts.Window, 0, len(fixed)+len(plan.Years))
	for _, f := range fixed {
		out = append(out, contracts.Window{Label: f.label, Kind: f.kind})
	}
	for _, y := range plan.Years {
		out = append(out, contracts.Window{Label: contracts.YearLabel(y), Kind: contracts.KindPeriod})
	}
	return out
}

// Reference resolves R for s: the plan's date, or the series' last date
func Reference(s *contracts.Series, plan Plan) time.Time {
	if plan.Reference.IsZero() {
		return s.Last()
	}
	return plan.Reference
}

func build(s *contracts.Series, label contracts.WindowLabel, kind contracts.WindowKind, start, end time.Time) contracts.Window {
	w := contracts.Window{Label: label, Kind: kind, Start: start, End: end}
	w.PointCount = len(Slice(s, w))
	return w
}

// Slice returns the points of s inside w (shares the backing array)
func Slice(s *contracts.Series, w contracts.Window) []contracts.Point {
	if w.End.Before(w.Start) {
		return nil
	}
	lo := sort.Search(len(s.Points), func(i int) bool {
		return !s.Points[i].Date.Before(w.Start)
	})
	hi := sort.Search(len(s.Points), func(i int) bool {
		return s.Points[i].Date.After(w.End)
	})
	if lo >= hi {
		return nil
	}
	return s.Points[lo:hi]
}

// PlanYears returns the union of calendar years present across the
// validated series of a batch, ignoring points after the reference date
// (zero reference keeps everything). Nil series are skipped.
func PlanYears(validated []*contracts.Series, reference time.Time) []int {
	seen := make(map[int]struct{})
	for _, s := range validated {
		if s == nil {
			continue
		}
		for _, p := range s.Points {
			if !reference.IsZero() && p.Date.After(reference) {
				continue
			}
			seen[p.Date.Year()] = struct{}{}
		}
	}

	years := make([]int, 0, len(seen))
	for y := range seen {
		years = append(years, y)
	}
	sort.Ints(years)
	return years
}
