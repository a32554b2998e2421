package jobs

import (
	"context"
	"errors"

	"github.com/wonny/fundquant/internal/service"
	"github.com/wonny/fundquant/pkg/logger"
)

// AnalysisJob runs the full batch analysis
type AnalysisJob struct {
	svc      *service.AnalysisService
	schedule string
	logger   *logger.Logger
}

// NewAnalysisJob creates a new analysis job
func NewAnalysisJob(svc *service.AnalysisService, schedule string, log *logger.Logger) *AnalysisJob {
	return &AnalysisJob{svc: svc, schedule: schedule, logger: log}
}

// Name returns the job name
func (j *AnalysisJob) Name() string {
	return "fund_analysis"
}

// Schedule returns the cron schedule (with seconds)
func (j *AnalysisJob) Schedule() string {
	return j.schedule
}

// Run analyses every fund with the profile defaults
func (j *AnalysisJob) Run(ctx context.Context) error {
	result, err := j.svc.Run(ctx, service.RunOptions{})
	if errors.Is(err, service.ErrRunInProgress) {
		// API 트리거와 겹침: 재시도하지 않음
		j.logger.Warn("Analysis already running, scheduled run skipped")
		return nil
	}
	if err != nil {
		return err
	}

	j.logger.WithFields(map[string]interface{}{
		"run_id":    result.RunID,
		"succeeded": result.Succeeded,
		"failed":    result.Failed,
	}).Info("Scheduled analysis completed")
	return nil
}
