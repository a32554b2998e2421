package commands

import (
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/wonny/fundquant/internal/batch"
	"github.com/wonny/fundquant/internal/contracts"
	"github.com/wonny/fundquant/internal/export/excel"
	"github.com/wonny/fundquant/internal/service"
	"github.com/wonny/fundquant/internal/store"
)

var (
	analyzeSource    string
	analyzeCodes     string
	analyzeThreads   string
	analyzeReference string
	analyzeProfile   string
	analyzeExport    bool
	analyzeExportDir string
	analyzeNoSave    bool
	analyzeJSON      bool
	analyzeLimit     int
	analyzeNames     bool
)

// analyzeCmd represents the analyze command
var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "배치 지표 분석 실행",
	Long: `모든(또는 지정한) 펀드의 가격 시계열을 분석합니다.

각 펀드에 대해 FULL / LAST_3Y / LAST_1Y / 연도별 / TRAILING 구간 지표를
계산하고 펀드당 한 행의 레코드를 만듭니다.
실패한 펀드는 error_kind 와 함께 기록되며 배치는 계속됩니다.

Threads:
  auto       min(CPU×2, max(4, CPU))
  single     순차 실행
  custom:N   N 개 워커 (N < 1 이면 1)

Examples:
  go run ./cmd/quant analyze --source tdx
  go run ./cmd/quant analyze --source db --threads custom:8 --reference 2024-12-31
  go run ./cmd/quant analyze --source eastmoney --codes 000001,110022 --json`,
	RunE: runAnalyze,
}

func init() {
	rootCmd.AddCommand(analyzeCmd)

	analyzeCmd.Flags().StringVar(&analyzeSource, "source", "", "series source: tdx|db|eastmoney (default: db if configured, else tdx)")
	analyzeCmd.Flags().StringVar(&analyzeCodes, "codes", "", "comma separated fund codes (default: all codes of the source)")
	analyzeCmd.Flags().StringVar(&analyzeThreads, "threads", "", "auto|single|custom:N (default: ANALYSIS_THREAD_MODE)")
	analyzeCmd.Flags().StringVar(&analyzeReference, "reference", "", "as-of date YYYY-MM-DD (default: last date of each series)")
	analyzeCmd.Flags().StringVar(&analyzeProfile, "profile", "", "analysis profile YAML (default: ANALYSIS_PROFILE)")
	analyzeCmd.Flags().BoolVar(&analyzeExport, "export", true, "write the spreadsheet report")
	analyzeCmd.Flags().StringVar(&analyzeExportDir, "export-dir", "", "report directory (default: EXPORT_DIR)")
	analyzeCmd.Flags().BoolVar(&analyzeNoSave, "no-save", false, "do not store records in the database")
	analyzeCmd.Flags().BoolVar(&analyzeJSON, "json", false, "print the batch result as JSON")
	analyzeCmd.Flags().IntVar(&analyzeLimit, "limit", 50, "rows shown in the summary table (0 = all)")
	analyzeCmd.Flags().BoolVar(&analyzeNames, "fetch-names", false, "look up missing fund names on eastmoney")
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, false)
	if err != nil {
		return err
	}
	defer a.Close()

	threadSpec := analyzeThreads
	if threadSpec == "" {
		threadSpec = a.cfg.Analysis.ThreadSpec()
	}
	concurrency, err := batch.ParseConcurrency(threadSpec)
	if err != nil {
		return err
	}

	reference, err := parseDateFlag("reference", analyzeReference)
	if err != nil {
		return err
	}

	profile, err := a.profile(analyzeProfile)
	if err != nil {
		return err
	}

	sourceName := analyzeSource
	if sourceName == "" {
		sourceName = a.defaultSource()
	}
	codes := splitCodes(analyzeCodes)
	source, err := a.source(sourceName, codes)
	if err != nil {
		return err
	}

	opts := []service.Option{
		service.WithNames(a.names(ctx, analyzeNames || sourceName == sourceEastmoney)),
		service.WithCache(a.cache),
	}
	if a.db != nil && !analyzeNoSave {
		opts = append(opts, service.WithSinks(store.NewRecordRepository(a.db.Pool)))
	}
	if analyzeExport {
		dir := analyzeExportDir
		if dir == "" {
			dir = a.cfg.Analysis.ExportDir
		}
		opts = append(opts, service.WithSinks(excel.NewWriter(dir, a.log)))
	}
	svc := service.NewAnalysisService(source, profile, a.log, opts...)

	out := cmd.OutOrStdout()
	var progress contracts.ProgressFunc
	if verbose && !analyzeJSON {
		progress = func(p contracts.Progress) {
			PrintProgress(out, "Analyze", p.Code+" "+string(p.Status), p.Done, p.Total)
		}
	}

	a.log.WithFields(map[string]interface{}{
		"source":  sourceName,
		"codes":   len(codes),
		"threads": concurrency.String(),
		"profile": profile.ProfileID,
	}).Info("Starting analysis")

	result, err := svc.Run(ctx, service.RunOptions{
		Codes:       codes,
		Reference:   reference,
		Concurrency: &concurrency,
		Progress:    progress,
	})
	if err != nil {
		return fmt.Errorf("analysis failed: %w", err)
	}

	if analyzeJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	}

	PrintBatchSummary(out, result, analyzeLimit)
	if result.Failed > 0 {
		PrintWarning(out, fmt.Sprintf("%d funds failed, see the error_kind column", result.Failed))
	}
	PrintSuccess(out, fmt.Sprintf("Analysed %d funds in %s", len(result.Records), result.Duration().Round(time.Millisecond)))
	return nil
}
