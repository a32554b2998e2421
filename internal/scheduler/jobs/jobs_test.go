package jobs

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/fundquant/internal/contracts"
	"github.com/wonny/fundquant/internal/service"
	"github.com/wonny/fundquant/pkg/logger"
)

func TestReportCleanupJob(t *testing.T) {
	dir := t.TempDir()
	now := time.Date(2025, 6, 1, 3, 0, 0, 0, time.UTC)

	write := func(name string, age time.Duration) string {
		p := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(p, []byte("x"), 0o644))
		require.NoError(t, os.Chtimes(p, now.Add(-age), now.Add(-age)))
		return p
	}
	old := write("old.xlsx", 40*24*time.Hour)
	fresh := write("fresh.xlsx", time.Hour)
	other := write("notes.txt", 90*24*time.Hour)

	job := NewReportCleanupJob(dir, 30*24*time.Hour, logger.Nop())
	job.now = func() time.Time { return now }
	require.NoError(t, job.Run(context.Background()))

	assert.NoFileExists(t, old)
	assert.FileExists(t, fresh)
	assert.FileExists(t, other)

	missing := NewReportCleanupJob(filepath.Join(dir, "nope"), time.Hour, logger.Nop())
	assert.NoError(t, missing.Run(context.Background()))
}

type oneFund struct{}

func (oneFund) ListCodes(ctx context.Context) ([]string, error) { return []string{"000001"}, nil }

func (oneFund) LoadSeries(ctx context.Context, codes []string) ([]contracts.Instrument, error) {
	d := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	return []contracts.Instrument{{Code: "000001", Points: []contracts.PricePoint{
		{Date: d, Close: contracts.Float(1)},
		{Date: d.AddDate(0, 0, 1), Close: contracts.Float(1.01)},
		{Date: d.AddDate(0, 0, 2), Close: contracts.Float(1.02)},
	}}}, nil
}

func TestAnalysisJob(t *testing.T) {
	svc := service.NewAnalysisService(oneFund{}, nil, logger.Nop())
	job := NewAnalysisJob(svc, "0 30 18 * * 1-5", logger.Nop())

	assert.Equal(t, "fund_analysis", job.Name())
	assert.Equal(t, "0 30 18 * * 1-5", job.Schedule())
	require.NoError(t, job.Run(context.Background()))

	latest, err := svc.Latest(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, latest.Succeeded)
}
