// Package assembler flattens per-window metric sets into one record.
package assembler

import (
	"fmt"

	"github.com/wonny/fundquant/internal/contracts"
)

// Identity is what the record carries besides metrics
type Identity struct {
	Code string
	Name string
}

// Schema returns the flat key list for windows, in window order × key order
// ⭐ SSOT: 레코드 컬럼 순서는 여기서만 결정
func Schema(windows []contracts.Window) []string {
	keys := make([]string, 0, len(windows)*len(contracts.MetricKeys(contracts.KindAnalysis)))
	for _, w := range windows {
		for _, k := range contracts.MetricKeys(w.Kind) {
			keys = append(keys, contracts.FieldKey(w.Label, k))
		}
	}
	return keys
}

// Assemble builds the record of a successfully analysed series.
// sets must be in window order; the schema is derived from them.
func Assemble(id Identity, s *contracts.Series, sets []contracts.MetricSet) contracts.AnalysisRecord {
	rec := contracts.AnalysisRecord{
		Code:   id.Code,
		Name:   id.Name,
		Status: contracts.StatusOK,
		Fields: make([]contracts.Field, 0, len(sets)*len(contracts.MetricKeys(contracts.KindAnalysis))),
	}

	if s != nil && s.Len() > 0 {
		start, end := s.First(), s.Last()
		rec.StartDate = &start
		rec.EndDate = &end
		rec.PointCount = s.Len()
		rec.DroppedPoints = s.Dropped
	}

	for _, set := range sets {
		values := set.Values()
		for i, k := range set.Keys() {
			rec.Fields = append(rec.Fields, contracts.Field{
				Key:   contracts.FieldKey(set.Label, k),
				Value: values[i],
			})
		}
	}
	return rec
}

// Failed builds the all-null record of an instrument whose pipeline failed
func Failed(id Identity, windows []contracts.Window, err error) contracts.AnalysisRecord {
	schema := Schema(windows)
	rec := contracts.AnalysisRecord{
		Code:      id.Code,
		Name:      id.Name,
		Status:    contracts.StatusFailed,
		ErrorKind: contracts.ErrorKind(err),
		Fields:    make([]contracts.Field, len(schema)),
	}
	if err != nil {
		rec.Error = err.Error()
	}
	for i, key := range schema {
		rec.Fields[i] = contracts.Field{Key: key, Value: contracts.Null}
	}
	return rec
}

// CheckSchema verifies rec carries exactly schema, in order
func CheckSchema(rec contracts.AnalysisRecord, schema []string) error {
	if len(rec.Fields) != len(schema) {
		return fmt.Errorf("record %s has %d fields, schema has %d", rec.Code, len(rec.Fields), len(schema))
	}
	for i, f := range rec.Fields {
		if f.Key != schema[i] {
			return fmt.Errorf("record %s field %d is %q, want %q", rec.Code, i, f.Key, schema[i])
		}
	}
	return nil
}
