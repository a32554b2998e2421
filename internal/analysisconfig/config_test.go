package analysisconfig

import (
	"errors"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/fundquant/internal/batch"
)

func TestLoad_File(t *testing.T) {
	path := "../../config/analysis/default.yaml"
	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Skip("profile file not found")
	}

	p, data, err := Load(path)
	require.NoError(t, err)
	assert.NotEmpty(t, data)
	assert.Equal(t, "fund_default", p.ProfileID)
	assert.Equal(t, 252.0, p.PeriodsPerYear)

	hash, err := Hash(p)
	require.NoError(t, err)
	assert.Len(t, hash, 64)

	hash2, _ := Hash(p)
	assert.Equal(t, hash, hash2, "hash must be deterministic")
}

func TestLoad_EmptyPathUsesDefault(t *testing.T) {
	p, data, err := Load("")
	require.NoError(t, err)
	assert.Nil(t, data)
	assert.Equal(t, Default(), p)
	assert.NoError(t, Validate(p))
}

func TestParse_PartialKeepsDefaults(t *testing.T) {
	p, err := Parse([]byte("profile_id: csi\nrisk_free_rate: 0.03\nconcurrency:\n  mode: custom\n  workers: 6\n"))
	require.NoError(t, err)

	assert.Equal(t, 0.03, p.RiskFreeRate)
	assert.Equal(t, 252.0, p.PeriodsPerYear)
	assert.Equal(t, batch.Custom(6), p.BatchConcurrency())

	opts := p.MetricsOptions()
	assert.Equal(t, 0.03, opts.RiskFreeRate)
	assert.Equal(t, 30, opts.MinOLSDispersion)
	assert.Equal(t, 30, opts.MinSignificance)
}

func TestParse_UnknownFieldFails(t *testing.T) {
	_, err := Parse([]byte("profile_id: x\nperiod_per_year: 250\n"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(p *Profile)
		field  string
	}{
		{"missing id", func(p *Profile) { p.ProfileID = "" }, "profile_id"},
		{"zero periods", func(p *Profile) { p.PeriodsPerYear = 0 }, "periods_per_year"},
		{"rf too large", func(p *Profile) { p.RiskFreeRate = 3 }, "risk_free_rate"},
		{"bad mode", func(p *Profile) { p.Concurrency.Mode = "turbo" }, "concurrency.mode"},
		{"custom without workers", func(p *Profile) { p.Concurrency.Mode = "custom" }, "concurrency.workers"},
		{"ols min", func(p *Profile) { p.MinPoints.OLSDispersion = 1 }, "min_points.ols_dispersion"},
		{"significance min", func(p *Profile) { p.MinPoints.Significance = 0 }, "min_points.significance"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := Default()
			tt.mutate(p)

			err := Validate(p)
			var verr ValidationError
			require.True(t, errors.As(err, &verr), "got %v", err)
			assert.Equal(t, tt.field, verr.Field)
		})
	}
}

func TestHash_ChangesWithProfile(t *testing.T) {
	a, _ := Hash(Default())
	p := Default()
	p.RiskFreeRate = 0.02
	b, _ := Hash(p)
	assert.NotEqual(t, a, b)
}
