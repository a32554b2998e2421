// Package tdx reads TDX (通达信) daily history files (*.day).
package tdx

import (
	"context"
	"encoding/binary"
	"fmt"
	"io/fs"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/wonny/fundquant/internal/contracts"
	"github.com/wonny/fundquant/pkg/logger"
)

// RecordSize is the size of one daily record
const RecordSize = 32

// Reader loads instruments from a directory of .day files
// ⭐ SSOT: TDX 바이너리 포맷 해석은 여기서만
type Reader struct {
	dir     string
	minDate time.Time
	logger  *logger.Logger
}

// Option configures a Reader
type Option func(*Reader)

// WithMinDate skips records before d
func WithMinDate(d time.Time) Option {
	return func(r *Reader) { r.minDate = d }
}

// NewReader creates a reader over dir
func NewReader(dir string, log *logger.Logger, opts ...Option) *Reader {
	r := &Reader{
		dir:    dir,
		logger: log.WithField("module", "tdx"),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// files maps code → path for every .day file under dir
func (r *Reader) files() (map[string]string, error) {
	out := make(map[string]string)
	err := filepath.WalkDir(r.dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.EqualFold(filepath.Ext(path), ".day") {
			return nil
		}
		code := CodeFromFilename(filepath.Base(path))
		if code == "" {
			r.logger.WithField("file", path).Warn("Cannot derive code from file name, skipping")
			return nil
		}
		out[code] = path
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan tdx dir %s: %w", r.dir, err)
	}
	return out, nil
}

// ListCodes implements contracts.SeriesSource
func (r *Reader) ListCodes(ctx context.Context) ([]string, error) {
	files, err := r.files()
	if err != nil {
		return nil, err
	}
	codes := make([]string, 0, len(files))
	for code := range files {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes, nil
}

// LoadSeries implements contracts.SeriesSource. Files that fail to decode
// come back with LoadErr set; unknown codes are skipped with a warning.
func (r *Reader) LoadSeries(ctx context.Context, codes []string) ([]contracts.Instrument, error) {
	files, err := r.files()
	if err != nil {
		return nil, err
	}

	if len(codes) == 0 {
		for code := range files {
			codes = append(codes, code)
		}
		sort.Strings(codes)
	}

	out := make([]contracts.Instrument, 0, len(codes))
	for _, code := range codes {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		path, ok := files[code]
		if !ok {
			r.logger.WithCode(code).Warn("No .day file for code")
			continue
		}

		points, err := r.readFile(path)
		inst := contracts.Instrument{Code: code, Points: points}
		if err != nil {
			r.logger.WithCode(code).WithError(err).Warn("Failed to decode .day file")
			inst.LoadErr = err
		}
		out = append(out, inst)
	}

	r.logger.WithFields(map[string]interface{}{
		"requested": len(codes),
		"loaded":    len(out),
	}).Debug("TDX series loaded")

	return out, nil
}

func (r *Reader) readFile(path string) ([]contracts.PricePoint, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	points, err := Decode(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filepath.Base(path), err)
	}

	if r.minDate.IsZero() {
		return points, nil
	}
	kept := points[:0]
	for _, p := range points {
		if !p.Date.Before(r.minDate) {
			kept = append(kept, p)
		}
	}
	return kept, nil
}

// Decode parses a .day payload.
//
// Record layout (little endian, 32 bytes):
//
//	0  uint32  date yyyymmdd
//	4  float32 open
//	8  float32 high
//	12 float32 low
//	16 float32 close
//	20 float32 amount     (0 = absent)
//	24 float32 volume     (0 = absent)
//	28 uint32  prev close (0 = absent)
func Decode(data []byte) ([]contracts.PricePoint, error) {
	if len(data)%RecordSize != 0 {
		return nil, fmt.Errorf("size %d is not a multiple of %d: %w", len(data), RecordSize, contracts.ErrMalformedSeries)
	}

	n := len(data) / RecordSize
	points := make([]contracts.PricePoint, 0, n)
	for i := 0; i < n; i++ {
		rec := data[i*RecordSize : (i+1)*RecordSize]

		date, err := parseDate(binary.LittleEndian.Uint32(rec[0:4]))
		if err != nil {
			return nil, fmt.Errorf("record %d: %w", i, err)
		}

		points = append(points, contracts.PricePoint{
			Date:      date,
			Open:      price(f32(rec[4:8])),
			High:      price(f32(rec[8:12])),
			Low:       price(f32(rec[12:16])),
			Close:     price(f32(rec[16:20])),
			Amount:    optional(f32(rec[20:24])),
			Volume:    optional(f32(rec[24:28])),
			PrevClose: optional(round4(float64(binary.LittleEndian.Uint32(rec[28:32])))),
		})
	}
	return points, nil
}

func f32(b []byte) float64 {
	return float64(math.Float32frombits(binary.LittleEndian.Uint32(b)))
}

// price rounds to 4 decimals; float32 noise otherwise leaks into returns
func price(v float64) *float64 {
	r := round4(v)
	return &r
}

func optional(v float64) *float64 {
	if v == 0 {
		return nil
	}
	return &v
}

func round4(v float64) float64 {
	return math.Round(v*1e4) / 1e4
}

func parseDate(v uint32) (time.Time, error) {
	y, m, d := int(v/10000), int(v%10000/100), int(v%100)
	t := time.Date(y, time.Month(m), d, 0, 0, 0, 0, time.UTC)
	if y < 1900 || t.Year() != y || int(t.Month()) != m || t.Day() != d {
		return time.Time{}, fmt.Errorf("invalid date %d: %w", v, contracts.ErrMalformedSeries)
	}
	return t, nil
}

// CodeFromFilename derives the instrument code:
// "33#501018.day" → "501018", "sh501018.day" → "501018"
func CodeFromFilename(name string) string {
	base := strings.TrimSuffix(name, filepath.Ext(name))
	if i := strings.LastIndex(base, "#"); i >= 0 {
		return base[i+1:]
	}
	return strings.TrimLeft(strings.ToLower(base), "abcdefghijklmnopqrstuvwxyz")
}
