package contracts

import (
	"fmt"
	"time"
)

// WindowLabel names a window; it prefixes every record key
type WindowLabel string

// Fixed window labels. Calendar-year labels are built with YearLabel.
const (
	WindowFull      WindowLabel = "FULL"
	WindowLast3Y    WindowLabel = "LAST_3Y"
	WindowLast1Y    WindowLabel = "LAST_1Y"
	WindowTrail1W   WindowLabel = "TRAILING_1W"
	WindowTrail1M   WindowLabel = "TRAILING_1M"
	WindowTrail2M   WindowLabel = "TRAILING_2M"
	WindowTrail3M   WindowLabel = "TRAILING_3M"
	WindowTrail6M   WindowLabel = "TRAILING_6M"
	WindowTrail9M   WindowLabel = "TRAILING_9M"
	WindowTrail1Y   WindowLabel = "TRAILING_1Y"
	WindowTrail2Y   WindowLabel = "TRAILING_2Y"
	WindowTrail3Y   WindowLabel = "TRAILING_3Y"
	yearLabelPrefix             = "YEAR_"
)

// YearLabel returns the label of the calendar-year window for year
func YearLabel(year int) WindowLabel {
	return WindowLabel(fmt.Sprintf("%s%04d", yearLabelPrefix, year))
}

// WindowKind selects which metric battery a window gets
type WindowKind int

const (
	// KindAnalysis windows get the full return/risk battery
	KindAnalysis WindowKind = iota
	// KindPeriod windows only get the price change
	KindPeriod
)

// String returns the kind name
func (k WindowKind) String() string {
	switch k {
	case KindAnalysis:
		return "analysis"
	case KindPeriod:
		return "period"
	default:
		return "unknown"
	}
}

// Window is a labeled closed date interval [Start, End]
type Window struct {
	Label      WindowLabel `json:"label"`
	Kind       WindowKind  `json:"kind"`
	Start      time.Time   `json:"start"`
	End        time.Time   `json:"end"`
	PointCount int         `json:"point_count"`
}

// Contains reports whether t lies inside the window (inclusive)
func (w Window) Contains(t time.Time) bool {
	return !t.Before(w.Start) && !t.After(w.End)
}
