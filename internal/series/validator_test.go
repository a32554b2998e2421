package series

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/fundquant/internal/contracts"
)

func day(d int) time.Time {
	return time.Date(2024, 1, d, 0, 0, 0, 0, time.UTC)
}

func pt(d int, close float64) contracts.PricePoint {
	return contracts.PricePoint{Date: day(d), Close: contracts.Float(close)}
}

func TestValidate_SortsAndDedupes(t *testing.T) {
	raw := []contracts.PricePoint{
		pt(3, 1.03),
		pt(1, 1.00),
		pt(2, 1.01),
		pt(2, 1.02), // 나중 값 유지
	}

	s, err := Validate("000001", raw)
	require.NoError(t, err)

	require.Equal(t, 3, s.Len())
	assert.Equal(t, day(1), s.First())
	assert.Equal(t, day(3), s.Last())
	assert.Equal(t, 1.02, s.Points[1].Close)
	assert.Equal(t, 1, s.Dropped)
}

func TestValidate_DropsMissingClose(t *testing.T) {
	raw := []contracts.PricePoint{
		pt(1, 1.0),
		{Date: day(2), Open: contracts.Float(1.0)},
		pt(3, 1.1),
	}

	s, err := Validate("000001", raw)
	require.NoError(t, err)
	assert.Equal(t, 2, s.Len())
	assert.Equal(t, 1, s.Dropped)
}

func TestValidate_DoesNotMutateInput(t *testing.T) {
	raw := []contracts.PricePoint{pt(2, 1.1), pt(1, 1.0)}
	_, err := Validate("000001", raw)
	require.NoError(t, err)
	assert.Equal(t, day(2), raw[0].Date)
}

func TestValidate_Errors(t *testing.T) {
	tests := []struct {
		name string
		raw  []contracts.PricePoint
		want error
	}{
		{"empty", nil, contracts.ErrInsufficientData},
		{"single point", []contracts.PricePoint{pt(1, 1)}, contracts.ErrInsufficientData},
		{"only one close", []contracts.PricePoint{pt(1, 1), {Date: day(2)}}, contracts.ErrInsufficientData},
		{"nan close", []contracts.PricePoint{pt(1, 1), pt(2, math.NaN())}, contracts.ErrMalformedSeries},
		{"inf volume", []contracts.PricePoint{pt(1, 1), {Date: day(2), Close: contracts.Float(1), Volume: contracts.Float(math.Inf(1))}}, contracts.ErrMalformedSeries},
		{"zero date", []contracts.PricePoint{pt(1, 1), {Close: contracts.Float(1)}}, contracts.ErrMalformedSeries},
		{"negative close", []contracts.PricePoint{pt(1, 1), pt(2, -1)}, contracts.ErrMalformedSeries},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Validate("000001", tt.raw)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}
