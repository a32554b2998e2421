package assembler

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/fundquant/internal/contracts"
)

var windows = []contracts.Window{
	{Label: contracts.WindowFull, Kind: contracts.KindAnalysis},
	{Label: contracts.WindowTrail1M, Kind: contracts.KindPeriod},
}

func TestSchema(t *testing.T) {
	schema := Schema(windows)

	analysis := len(contracts.MetricKeys(contracts.KindAnalysis))
	period := len(contracts.MetricKeys(contracts.KindPeriod))
	require.Len(t, schema, analysis+period)
	assert.Equal(t, "FULL.point_count", schema[0])
	assert.Equal(t, "FULL.max_median_monthly_ratio", schema[analysis-1])
	assert.Equal(t, "TRAILING_1M.change", schema[analysis])
	assert.Equal(t, "TRAILING_1M.point_count", schema[analysis+1])
	assert.Equal(t, "TRAILING_1M.max_daily_return", schema[analysis+period-1])
}

func TestAssemble(t *testing.T) {
	full := contracts.NewMetricSet(contracts.WindowFull, contracts.KindAnalysis)
	full.SetFloat(contracts.MetricSharpe, 1.2)
	month := contracts.NewMetricSet(contracts.WindowTrail1M, contracts.KindPeriod)
	month.SetFloat(contracts.MetricChange, 0.03)

	s := &contracts.Series{
		Code:    "000001",
		Dropped: 2,
		Points: []contracts.Point{
			{Date: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), Close: 1},
			{Date: time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC), Close: 1.1},
		},
	}

	rec := Assemble(Identity{Code: "000001", Name: "Growth"}, s, []contracts.MetricSet{full, month})

	assert.Equal(t, contracts.StatusOK, rec.Status)
	assert.Equal(t, 2, rec.PointCount)
	assert.Equal(t, 2, rec.DroppedPoints)
	require.NotNil(t, rec.StartDate)
	assert.Equal(t, s.First(), *rec.StartDate)
	assert.NoError(t, CheckSchema(rec, Schema(windows)))

	v, ok := rec.Value("FULL.sharpe")
	require.True(t, ok)
	assert.Equal(t, 1.2, v.Float64)
	v, _ = rec.Value("TRAILING_1M.change")
	assert.Equal(t, 0.03, v.Float64)
}

func TestFailed(t *testing.T) {
	err := fmt.Errorf("000002: %w", contracts.ErrMalformedSeries)
	rec := Failed(Identity{Code: "000002"}, windows, err)

	assert.True(t, rec.Failed())
	assert.Equal(t, contracts.KindMalformedSeries, rec.ErrorKind)
	assert.Contains(t, rec.Error, "malformed series")
	assert.Nil(t, rec.StartDate)
	assert.NoError(t, CheckSchema(rec, Schema(windows)))
	for _, f := range rec.Fields {
		assert.False(t, f.Value.Valid, f.Key)
	}
}

func TestCheckSchema_Mismatch(t *testing.T) {
	rec := Failed(Identity{Code: "x"}, windows[:1], nil)
	assert.Error(t, CheckSchema(rec, Schema(windows)))

	swapped := Schema(windows)
	swapped[0], swapped[1] = swapped[1], swapped[0]
	assert.Error(t, CheckSchema(Failed(Identity{Code: "x"}, windows, nil), swapped))
}
