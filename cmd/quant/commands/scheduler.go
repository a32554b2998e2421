package commands

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/wonny/fundquant/internal/scheduler"
	"github.com/wonny/fundquant/internal/scheduler/jobs"
	"github.com/wonny/fundquant/internal/service"
	"github.com/wonny/fundquant/internal/store"
)

var schedulerSource string

// schedulerCmd represents the scheduler command
var schedulerCmd = &cobra.Command{
	Use:   "scheduler",
	Short: "스케줄러 관리",
	Long: `정기 작업 스케줄러를 관리합니다.

Jobs:
  nav_collection   NAV 증분 수집 (SCHEDULE_COLLECT, DATABASE_URL 필요)
  fund_analysis    전체 배치 분석 (SCHEDULE_ANALYSIS)
  report_cleanup   오래된 xlsx 삭제 (EXPORT_RETENTION)

Examples:
  go run ./cmd/quant scheduler start
  go run ./cmd/quant scheduler list
  go run ./cmd/quant scheduler run fund_analysis`,
}

// schedulerStartCmd starts the scheduler
var schedulerStartCmd = &cobra.Command{
	Use:   "start",
	Short: "스케줄러 시작 (Ctrl+C 로 종료)",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		a, sched, err := setupScheduler(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		printJobs(cmd, sched)
		sched.Start()
		PrintSuccess(cmd.OutOrStdout(), "Scheduler started")

		<-ctx.Done()
		sched.Stop()
		return nil
	},
}

// schedulerListCmd lists jobs and their next run
var schedulerListCmd = &cobra.Command{
	Use:   "list",
	Short: "등록된 작업 목록",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, sched, err := setupScheduler(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		// Entry.Next 는 cron 이 시작되어야 계산됨
		sched.Start()
		defer sched.Stop()
		printJobs(cmd, sched)
		return nil
	},
}

// schedulerRunCmd runs one job now
var schedulerRunCmd = &cobra.Command{
	Use:   "run [job]",
	Short: "작업 즉시 실행",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, sched, err := setupScheduler(cmd)
		if err != nil {
			return err
		}
		defer a.Close()
		defer sched.Stop()

		result, err := sched.RunJob(args[0])
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		PrintKeyValue(out, "Job", result.JobName, 9)
		PrintKeyValue(out, "Attempts", fmt.Sprintf("%d", result.Attempts), 9)
		PrintKeyValue(out, "Duration", result.Duration.Round(time.Millisecond).String(), 9)
		if !result.Success {
			PrintError(out, result.Error)
			return fmt.Errorf("job %s failed", result.JobName)
		}
		PrintSuccess(out, "Job completed")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(schedulerCmd)
	schedulerCmd.AddCommand(schedulerStartCmd)
	schedulerCmd.AddCommand(schedulerListCmd)
	schedulerCmd.AddCommand(schedulerRunCmd)

	schedulerCmd.PersistentFlags().StringVar(&schedulerSource, "source", "", "series source for fund_analysis (default: db if configured, else tdx)")
}

// setupScheduler connects the app and registers every job
func setupScheduler(cmd *cobra.Command) (*app, *scheduler.Scheduler, error) {
	ctx := cmd.Context()

	a, err := newApp(ctx, false)
	if err != nil {
		return nil, nil, err
	}

	sourceName := schedulerSource
	if sourceName == "" {
		sourceName = a.defaultSource()
	}
	source, err := a.source(sourceName, nil)
	if err != nil {
		a.Close()
		return nil, nil, err
	}

	svc, err := a.analysisService(ctx, source)
	if err != nil {
		a.Close()
		return nil, nil, err
	}

	sched, err := a.scheduler(svc)
	if err != nil {
		a.Close()
		return nil, nil, err
	}
	return a, sched, nil
}

// scheduler registers the collection, analysis and cleanup jobs
func (a *app) scheduler(svc *service.AnalysisService) (*scheduler.Scheduler, error) {
	sched := scheduler.New(a.log)

	if a.db != nil {
		col, err := a.collector()
		if err != nil {
			return nil, err
		}
		job := jobs.NewNAVCollectionJob(col, store.NewPriceRepository(a.db.Pool),
			a.cfg.Eastmoney.Workers, a.cfg.Eastmoney.Schedule, a.log.WithField("job", "nav_collection"))
		if err := sched.AddJob(job); err != nil {
			return nil, err
		}
	} else {
		a.log.Info("Database not configured, nav_collection job disabled")
	}

	if err := sched.AddJob(jobs.NewAnalysisJob(svc, a.cfg.Analysis.Schedule, a.log.WithField("job", "fund_analysis"))); err != nil {
		return nil, err
	}
	if err := sched.AddJob(jobs.NewReportCleanupJob(a.cfg.Analysis.ExportDir, a.cfg.Analysis.ExportKeep, a.log.WithField("job", "report_cleanup"))); err != nil {
		return nil, err
	}

	return sched, nil
}

func printJobs(cmd *cobra.Command, sched *scheduler.Scheduler) {
	out := cmd.OutOrStdout()
	stats := sched.GetJobStats()

	widths := []int{16, 18, 20}
	PrintTableHeader(out, []string{"Job", "Schedule", "Next Run"}, widths)
	for _, name := range sched.GetAllJobs() {
		next := "-"
		if st := stats[name]; st.NextRun != nil {
			next = st.NextRun.Format("2006-01-02 15:04:05")
		}
		PrintTableRow(out, []string{name, stats[name].Schedule, next}, widths)
	}
	PrintSeparator(out)
}
