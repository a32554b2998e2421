package contracts

import "context"

// SeriesSource provides raw price histories (TDX files, database, ...)
type SeriesSource interface {
	// ListCodes returns every instrument code the source can load
	ListCodes(ctx context.Context) ([]string, error)
	// LoadSeries loads raw points for codes; nil/empty codes means all
	LoadSeries(ctx context.Context, codes []string) ([]Instrument, error)
}

// NameLookup resolves a display name for a code ("" when unknown)
type NameLookup interface {
	Name(code string) string
}

// RecordSink consumes a finished batch (database, cache, spreadsheet)
type RecordSink interface {
	SaveRecords(ctx context.Context, result *BatchResult) error
}

// StaticNames is an in-memory NameLookup
type StaticNames map[string]string

// Name implements NameLookup
func (s StaticNames) Name(code string) string {
	return s[code]
}

// ProgressFunc receives batch progress; it must not block for long
type ProgressFunc func(Progress)
