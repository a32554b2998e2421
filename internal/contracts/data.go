package contracts

import "time"

// PricePoint is one raw observation for an instrument on a date.
// nil 필드는 값 없음 (원본 데이터 결측)
type PricePoint struct {
	Date      time.Time `json:"date"`
	Open      *float64  `json:"open,omitempty"`
	High      *float64  `json:"high,omitempty"`
	Low       *float64  `json:"low,omitempty"`
	Close     *float64  `json:"close,omitempty"`
	PrevClose *float64  `json:"prev_close,omitempty"`
	Volume    *float64  `json:"volume,omitempty"`
	Amount    *float64  `json:"amount,omitempty"`
}

// Point is a validated observation; Close is always present and > 0
type Point struct {
	Date   time.Time `json:"date"`
	Close  float64   `json:"close"`
	Open   *float64  `json:"open,omitempty"`
	High   *float64  `json:"high,omitempty"`
	Low    *float64  `json:"low,omitempty"`
	Volume *float64  `json:"volume,omitempty"`
	Amount *float64  `json:"amount,omitempty"`
}

// Series is the cleaned, date-ascending price history of one instrument
// ⭐ SSOT: 날짜 오름차순, 중복 없음, 검증 후 불변
type Series struct {
	Code    string  `json:"code"`
	Points  []Point `json:"points"`
	Dropped int     `json:"dropped"` // 중복/종가 결측으로 제거된 포인트 수
}

// Len returns the number of points
func (s *Series) Len() int {
	return len(s.Points)
}

// First returns the first date
func (s *Series) First() time.Time {
	return s.Points[0].Date
}

// Last returns the last date
func (s *Series) Last() time.Time {
	return s.Points[len(s.Points)-1].Date
}

// Instrument is one fund's raw input to a batch
type Instrument struct {
	Code   string       `json:"code"`
	Name   string       `json:"name,omitempty"`
	Points []PricePoint `json:"points"`
	// LoadErr is set by a source that could not decode this instrument;
	// the batch records it as failed instead of dropping it
	LoadErr error `json:"-"`
}

// Float returns a pointer to v (helper for building PricePoints)
func Float(v float64) *float64 {
	return &v
}
