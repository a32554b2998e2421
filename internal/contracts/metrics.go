package contracts

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
)

// NullFloat is a metric value that may be absent
type NullFloat struct {
	Float64 float64
	Valid   bool
}

// Null is the absent value
var Null = NullFloat{}

// Some returns a valid value; NaN/Inf collapse to Null
func Some(v float64) NullFloat {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return Null
	}
	return NullFloat{Float64: v, Valid: true}
}

// Ptr returns nil for Null, used by the excel and db writers
func (n NullFloat) Ptr() *float64 {
	if !n.Valid {
		return nil
	}
	v := n.Float64
	return &v
}

// MarshalJSON renders Null as JSON null
func (n NullFloat) MarshalJSON() ([]byte, error) {
	if !n.Valid {
		return []byte("null"), nil
	}
	return []byte(strconv.FormatFloat(n.Float64, 'g', -1, 64)), nil
}

// UnmarshalJSON accepts a number or null
func (n *NullFloat) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		*n = Null
		return nil
	}
	var v float64
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("null float: %w", err)
	}
	*n = Some(v)
	return nil
}

// MetricKey names one metric inside a window
type MetricKey string

// Analysis window metrics
const (
	MetricPointCount          MetricKey = "point_count"
	MetricTotalReturn         MetricKey = "total_return"
	MetricAnnualizedReturn    MetricKey = "annualized_return"
	MetricVolatility          MetricKey = "volatility"
	MetricMaxDrawdown         MetricKey = "max_drawdown"
	MetricSecondDrawdown      MetricKey = "second_drawdown"
	MetricSharpe              MetricKey = "sharpe"
	MetricSortino             MetricKey = "sortino"
	MetricCalmar              MetricKey = "calmar"
	MetricBeta                MetricKey = "beta"
	MetricAlpha               MetricKey = "alpha"
	MetricRSquared            MetricKey = "r_squared"
	MetricUpDayRatio          MetricKey = "up_day_ratio"
	MetricUpWeekRatio         MetricKey = "up_week_ratio"
	MetricUpMonthRatio        MetricKey = "up_month_ratio"
	MetricUpQuarterRatio      MetricKey = "up_quarter_ratio"
	MetricWeeklyVolatility    MetricKey = "weekly_volatility"
	MetricMonthlyVolatility   MetricKey = "monthly_volatility"
	MetricQuarterlyVolatility MetricKey = "quarterly_volatility"
	MetricOLSDispersion       MetricKey = "ols_dispersion"
	MetricMonthlyAnomaly      MetricKey = "monthly_anomaly"
	MetricInformationRatio    MetricKey = "information_ratio"
	MetricReturnTStat         MetricKey = "return_t_stat"
	MetricReturnPValue        MetricKey = "return_p_value"
	MetricReturnCILower       MetricKey = "return_ci_lower"
	MetricReturnCIUpper       MetricKey = "return_ci_upper"
	MetricMaxMedianMonthly    MetricKey = "max_median_monthly_ratio"
)

// Period window metrics
const (
	MetricChange         MetricKey = "change"
	MetricMinDailyReturn MetricKey = "min_daily_return"
	MetricMaxDailyReturn MetricKey = "max_daily_return"
)

var (
	analysisKeys = []MetricKey{
		MetricPointCount,
		MetricTotalReturn,
		MetricAnnualizedReturn,
		MetricVolatility,
		MetricMaxDrawdown,
		MetricSecondDrawdown,
		MetricSharpe,
		MetricSortino,
		MetricCalmar,
		MetricBeta,
		MetricAlpha,
		MetricRSquared,
		MetricUpDayRatio,
		MetricUpWeekRatio,
		MetricUpMonthRatio,
		MetricUpQuarterRatio,
		MetricWeeklyVolatility,
		MetricMonthlyVolatility,
		MetricQuarterlyVolatility,
		MetricOLSDispersion,
		MetricMonthlyAnomaly,
		MetricInformationRatio,
		MetricReturnTStat,
		MetricReturnPValue,
		MetricReturnCILower,
		MetricReturnCIUpper,
		MetricMaxMedianMonthly,
	}
	periodKeys = []MetricKey{
		MetricChange,
		MetricPointCount,
		MetricMinDailyReturn,
		MetricMaxDailyReturn,
	}

	keyIndex = map[WindowKind]map[MetricKey]int{
		KindAnalysis: indexOf(analysisKeys),
		KindPeriod:   indexOf(periodKeys),
	}
)

func indexOf(keys []MetricKey) map[MetricKey]int {
	m := make(map[MetricKey]int, len(keys))
	for i, k := range keys {
		m[k] = i
	}
	return m
}

// MetricKeys returns the fixed key list of a window kind
func MetricKeys(kind WindowKind) []MetricKey {
	var keys []MetricKey
	switch kind {
	case KindAnalysis:
		keys = analysisKeys
	case KindPeriod:
		keys = periodKeys
	}
	out := make([]MetricKey, len(keys))
	copy(out, keys)
	return out
}

// MetricSet holds one window's values in key order
// ⭐ SSOT: 키 목록은 WindowKind 별로 고정
type MetricSet struct {
	Label  WindowLabel
	Kind   WindowKind
	values []NullFloat
}

// NewMetricSet returns an all-null set for the window
func NewMetricSet(label WindowLabel, kind WindowKind) MetricSet {
	return MetricSet{
		Label:  label,
		Kind:   kind,
		values: make([]NullFloat, len(keyIndex[kind])),
	}
}

func (m *MetricSet) index(key MetricKey) int {
	i, ok := keyIndex[m.Kind][key]
	if !ok {
		panic(fmt.Sprintf("metric %q is not defined for %s windows", key, m.Kind))
	}
	return i
}

// Set stores v under key; non-finite values become null
func (m *MetricSet) Set(key MetricKey, v NullFloat) {
	if v.Valid {
		v = Some(v.Float64)
	}
	m.values[m.index(key)] = v
}

// SetFloat is Set(key, Some(v))
func (m *MetricSet) SetFloat(key MetricKey, v float64) {
	m.Set(key, Some(v))
}

// Get returns the value under key
func (m MetricSet) Get(key MetricKey) NullFloat {
	return m.values[m.index(key)]
}

// Keys returns the key list of this set
func (m MetricSet) Keys() []MetricKey {
	return MetricKeys(m.Kind)
}

// Values returns a copy of the values in key order
func (m MetricSet) Values() []NullFloat {
	out := make([]NullFloat, len(m.values))
	copy(out, m.values)
	return out
}

// AllNull reports whether no value is set
func (m MetricSet) AllNull() bool {
	for _, v := range m.values {
		if v.Valid {
			return false
		}
	}
	return true
}
