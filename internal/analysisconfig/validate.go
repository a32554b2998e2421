package analysisconfig

import (
	"fmt"
	"math"

	"github.com/wonny/fundquant/internal/batch"
)

// ValidationError 검증 실패 (프로그램 중단)
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Validate checks all required constraints
func Validate(p *Profile) error {
	if p.ProfileID == "" {
		return ValidationError{"profile_id", "required"}
	}
	if p.PeriodsPerYear <= 0 || p.PeriodsPerYear > 366 {
		return ValidationError{"periods_per_year", "must be in (0, 366]"}
	}
	if math.IsNaN(p.RiskFreeRate) || p.RiskFreeRate < -1 || p.RiskFreeRate > 1 {
		return ValidationError{"risk_free_rate", "must be in [-1, 1]"}
	}

	switch batch.Mode(p.Concurrency.Mode) {
	case batch.ModeAuto, batch.ModeSingle, "":
	case batch.ModeCustom:
		if p.Concurrency.Workers < 1 {
			return ValidationError{"concurrency.workers", "must be >= 1 for custom mode"}
		}
	default:
		return ValidationError{"concurrency.mode", "must be one of: auto, single, custom"}
	}

	if p.MinPoints.OLSDispersion < 2 {
		return ValidationError{"min_points.ols_dispersion", "must be >= 2"}
	}
	if p.MinPoints.MonthlyAnomaly < 2 {
		return ValidationError{"min_points.monthly_anomaly", "must be >= 2"}
	}
	if p.MinPoints.Significance < 2 {
		return ValidationError{"min_points.significance", "must be >= 2"}
	}
	return nil
}
