package analysisconfig

import (
	"github.com/wonny/fundquant/internal/batch"
	"github.com/wonny/fundquant/internal/metrics"
)

// Profile is the analysis profile: formula conventions and batch defaults
type Profile struct {
	ProfileID      string      `yaml:"profile_id" json:"profile_id"`
	Version        string      `yaml:"version" json:"version"`
	PeriodsPerYear float64     `yaml:"periods_per_year" json:"periods_per_year"`
	RiskFreeRate   float64     `yaml:"risk_free_rate" json:"risk_free_rate"`
	AnnualizeAlpha bool        `yaml:"annualize_alpha" json:"annualize_alpha"`
	BenchmarkCode  string      `yaml:"benchmark_code" json:"benchmark_code"` // 비어 있으면 회귀 지표 null
	Concurrency    Concurrency `yaml:"concurrency" json:"concurrency"`
	MinPoints      MinPoints   `yaml:"min_points" json:"min_points"`
}

// Concurrency 기본 배치 병렬 설정 (CLI/ENV 로 덮어쓸 수 있음)
type Concurrency struct {
	Mode    string `yaml:"mode" json:"mode"`
	Workers int    `yaml:"workers" json:"workers"`
}

// MinPoints 최소 커버리지 규칙
type MinPoints struct {
	OLSDispersion  int `yaml:"ols_dispersion" json:"ols_dispersion"`
	MonthlyAnomaly int `yaml:"monthly_anomaly" json:"monthly_anomaly"`
	Significance   int `yaml:"significance" json:"significance"`
}

// Default returns the built-in profile used when no file is configured
func Default() *Profile {
	opts := metrics.DefaultOptions()
	return &Profile{
		ProfileID:      "default",
		Version:        "1",
		PeriodsPerYear: opts.PeriodsPerYear,
		RiskFreeRate:   opts.RiskFreeRate,
		AnnualizeAlpha: opts.AnnualizeAlpha,
		Concurrency:    Concurrency{Mode: string(batch.ModeAuto)},
		MinPoints: MinPoints{
			OLSDispersion:  opts.MinOLSDispersion,
			MonthlyAnomaly: opts.MinMonthlyAnomaly,
			Significance:   opts.MinSignificance,
		},
	}
}

// MetricsOptions converts the profile to calculator options
func (p *Profile) MetricsOptions() metrics.Options {
	return metrics.Options{
		PeriodsPerYear:    p.PeriodsPerYear,
		RiskFreeRate:      p.RiskFreeRate,
		AnnualizeAlpha:    p.AnnualizeAlpha,
		MinOLSDispersion:  p.MinPoints.OLSDispersion,
		MinMonthlyAnomaly: p.MinPoints.MonthlyAnomaly,
		MinSignificance:   p.MinPoints.Significance,
	}
}

// BatchConcurrency returns the profile's default concurrency
func (p *Profile) BatchConcurrency() batch.Concurrency {
	c := batch.Concurrency{Mode: batch.Mode(p.Concurrency.Mode), Workers: p.Concurrency.Workers}
	if c.Mode == "" {
		c.Mode = batch.ModeAuto
	}
	return c
}
