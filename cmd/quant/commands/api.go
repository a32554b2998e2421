package commands

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/wonny/fundquant/internal/api"
	"github.com/wonny/fundquant/internal/api/handlers"
	"github.com/wonny/fundquant/internal/batch"
	"github.com/wonny/fundquant/internal/contracts"
	"github.com/wonny/fundquant/internal/export/excel"
	"github.com/wonny/fundquant/internal/realtime"
	"github.com/wonny/fundquant/internal/service"
	"github.com/wonny/fundquant/internal/store"
)

var (
	apiSource        string
	apiCodes         string
	apiWithScheduler bool
)

// apiCmd represents the api command
var apiCmd = &cobra.Command{
	Use:   "api",
	Short: "Start the HTTP API server",
	Long: `Start the fundquant HTTP API server.

Endpoints:
  GET  /health
  GET  /ws/progress                 배치 진행률 (websocket)
  GET  /api/analysis/latest
  GET  /api/analysis/status
  GET  /api/analysis/export         xlsx 다운로드
  GET  /api/analysis/records/{code}
  POST /api/analysis/run            {"codes":[], "reference":"", "threads":""}
  POST /api/data/collect            (DATABASE_URL 필요)

Examples:
  go run ./cmd/quant api
  go run ./cmd/quant api --source tdx --with-scheduler`,
	RunE: runAPI,
}

func init() {
	rootCmd.AddCommand(apiCmd)

	apiCmd.Flags().StringVar(&apiSource, "source", "", "series source: tdx|db|eastmoney (default: db if configured, else tdx)")
	apiCmd.Flags().StringVar(&apiCodes, "codes", "", "fund codes for --source eastmoney")
	apiCmd.Flags().BoolVar(&apiWithScheduler, "with-scheduler", false, "also run the scheduled jobs")
}

func runAPI(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, false)
	if err != nil {
		return err
	}
	defer a.Close()

	hub := realtime.NewHub(a.log)
	go hub.Run(ctx)

	sourceName := apiSource
	if sourceName == "" {
		sourceName = a.defaultSource()
	}
	source, err := a.source(sourceName, splitCodes(apiCodes))
	if err != nil {
		return err
	}

	svc, err := a.analysisService(ctx, source, service.WithProgress(hub.Publish))
	if err != nil {
		return err
	}

	h := api.Handlers{
		Analysis: handlers.NewAnalysisHandler(ctx, svc, hub, a.log),
		Hub:      hub,
	}
	if a.db != nil {
		col, err := a.collector()
		if err != nil {
			return err
		}
		h.Data = handlers.NewDataHandler(col, store.NewPriceRepository(a.db.Pool), a.cfg.Eastmoney.Workers, a.log)
	}

	if apiWithScheduler {
		sched, err := a.scheduler(svc)
		if err != nil {
			return err
		}
		sched.Start()
		defer sched.Stop()
	}

	server := api.New(a.cfg, a.log, api.NewRouter(h, a.log))
	return server.Run(ctx)
}

// analysisService builds the service every long-running command shares:
// stored/remote names, redis cache, database history and both sinks
func (a *app) analysisService(ctx context.Context, source contracts.SeriesSource, extra ...service.Option) (*service.AnalysisService, error) {
	profile, err := a.profile("")
	if err != nil {
		return nil, err
	}
	threads, err := batch.ParseConcurrency(a.cfg.Analysis.ThreadSpec())
	if err != nil {
		return nil, err
	}

	opts := []service.Option{
		service.WithNames(a.names(ctx, false)),
		service.WithCache(a.cache),
		service.WithConcurrency(threads),
		service.WithSinks(excel.NewWriter(a.cfg.Analysis.ExportDir, a.log)),
	}
	if a.db != nil {
		records := store.NewRecordRepository(a.db.Pool)
		opts = append(opts, service.WithSinks(records), service.WithHistory(records))
	}
	opts = append(opts, extra...)

	return service.NewAnalysisService(source, profile, a.log, opts...), nil
}
