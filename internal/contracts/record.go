package contracts

import "time"

// RecordStatus marks whether an instrument was analysed
type RecordStatus string

const (
	StatusOK     RecordStatus = "ok"
	StatusFailed RecordStatus = "failed"
)

// Field is one flat metric column of a record
type Field struct {
	Key   string    `json:"key"`
	Value NullFloat `json:"value"`
}

// FieldKey builds "<WINDOW_LABEL>.<metric>"
func FieldKey(label WindowLabel, key MetricKey) string {
	return string(label) + "." + string(key)
}

// AnalysisRecord is the flat per-instrument summary row
// ⭐ SSOT: 한 배치의 모든 레코드는 같은 키 목록을 가짐
type AnalysisRecord struct {
	Code          string       `json:"code"`
	Name          string       `json:"name"`
	Status        RecordStatus `json:"status"`
	ErrorKind     string       `json:"error_kind,omitempty"`
	Error         string       `json:"error,omitempty"`
	StartDate     *time.Time   `json:"start_date,omitempty"`
	EndDate       *time.Time   `json:"end_date,omitempty"`
	PointCount    int          `json:"point_count"`
	DroppedPoints int          `json:"dropped_points"`
	Fields        []Field      `json:"fields"`
}

// Value looks up a field by its flat key
func (r AnalysisRecord) Value(key string) (NullFloat, bool) {
	for _, f := range r.Fields {
		if f.Key == key {
			return f.Value, true
		}
	}
	return Null, false
}

// Failed reports whether the record carries an error marker
func (r AnalysisRecord) Failed() bool {
	return r.Status == StatusFailed
}

// BatchResult is the output of one batch run
type BatchResult struct {
	RunID       string           `json:"run_id"`
	ProfileHash string           `json:"profile_hash"`
	Reference   *time.Time       `json:"reference,omitempty"`
	Workers     int              `json:"workers"`
	StartedAt   time.Time        `json:"started_at"`
	FinishedAt  time.Time        `json:"finished_at"`
	Schema      []string         `json:"schema"`
	Records     []AnalysisRecord `json:"records"`
	Succeeded   int              `json:"succeeded"`
	Failed      int              `json:"failed"`
}

// Duration returns the wall time of the run
func (b *BatchResult) Duration() time.Duration {
	return b.FinishedAt.Sub(b.StartedAt)
}

// Record returns the record for code
func (b *BatchResult) Record(code string) (AnalysisRecord, bool) {
	for _, r := range b.Records {
		if r.Code == code {
			return r, true
		}
	}
	return AnalysisRecord{}, false
}

// Progress is reported once per finished instrument
type Progress struct {
	RunID  string       `json:"run_id"`
	Code   string       `json:"code"`
	Status RecordStatus `json:"status"`
	Done   int          `json:"done"`
	Total  int          `json:"total"`
}
