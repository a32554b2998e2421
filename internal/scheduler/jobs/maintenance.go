package jobs

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/wonny/fundquant/pkg/logger"
)

// ReportCleanupJob deletes spreadsheet reports older than keep
type ReportCleanupJob struct {
	dir    string
	keep   time.Duration
	now    func() time.Time
	logger *logger.Logger
}

// NewReportCleanupJob creates a new report cleanup job
func NewReportCleanupJob(dir string, keep time.Duration, log *logger.Logger) *ReportCleanupJob {
	return &ReportCleanupJob{
		dir:    dir,
		keep:   keep,
		now:    time.Now,
		logger: log,
	}
}

// Name returns the job name
func (j *ReportCleanupJob) Name() string {
	return "report_cleanup"
}

// Schedule returns the cron schedule (daily 03:00)
func (j *ReportCleanupJob) Schedule() string {
	return "0 0 3 * * *"
}

// Run removes *.xlsx files whose modification time is past the retention
func (j *ReportCleanupJob) Run(ctx context.Context) error {
	entries, err := os.ReadDir(j.dir)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read report dir: %w", err)
	}

	cutoff := j.now().Add(-j.keep)
	removed := 0
	for _, e := range entries {
		if err := ctx.Err(); err != nil {
			return err
		}
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".xlsx") {
			continue
		}
		info, err := e.Info()
		if err != nil || !info.ModTime().Before(cutoff) {
			continue
		}
		if err := os.Remove(filepath.Join(j.dir, e.Name())); err != nil {
			return fmt.Errorf("remove %s: %w", e.Name(), err)
		}
		removed++
	}

	if removed > 0 {
		j.logger.WithField("removed", removed).Info("Report cleanup completed")
	}
	return nil
}
