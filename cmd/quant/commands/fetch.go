package commands

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/wonny/fundquant/internal/collector"
	"github.com/wonny/fundquant/internal/store"
)

var (
	fetchCodes   string
	fetchFrom    string
	fetchTo      string
	fetchWorkers int
)

// fetchCmd represents the fetch command
var fetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "eastmoney 데이터 수집",
	Long: `eastmoney 에서 펀드 목록과 NAV 히스토리를 수집해 DB 에 저장합니다.

DATABASE_URL 이 필요합니다. 수집한 데이터는 analyze --source db 로 분석합니다.

Examples:
  go run ./cmd/quant fetch funds
  go run ./cmd/quant fetch nav --codes 000001,110022
  go run ./cmd/quant fetch nav --from 2020-01-01 --workers 8`,
}

// fetchFundsCmd syncs the fund universe
var fetchFundsCmd = &cobra.Command{
	Use:   "funds",
	Short: "펀드 목록(코드/이름) 동기화",
	RunE:  runFetchFunds,
}

// fetchNavCmd collects NAV history
var fetchNavCmd = &cobra.Command{
	Use:   "nav",
	Short: "NAV 히스토리 수집 (기본: 저장된 마지막 날짜 이후만)",
	Long: `펀드별 NAV 히스토리를 수집합니다.

--codes 가 없으면 DB 에 저장된 모든 펀드를 대상으로 합니다.
--from 이 없으면 펀드별 마지막 저장 날짜 다음날부터 증분 수집합니다.`,
	RunE: runFetchNav,
}

func init() {
	rootCmd.AddCommand(fetchCmd)
	fetchCmd.AddCommand(fetchFundsCmd)
	fetchCmd.AddCommand(fetchNavCmd)

	fetchNavCmd.Flags().StringVar(&fetchCodes, "codes", "", "comma separated fund codes (default: all stored funds)")
	fetchNavCmd.Flags().StringVar(&fetchFrom, "from", "", "start date YYYY-MM-DD (default: incremental)")
	fetchNavCmd.Flags().StringVar(&fetchTo, "to", "", "end date YYYY-MM-DD (default: today)")
	fetchNavCmd.Flags().IntVar(&fetchWorkers, "workers", 0, "concurrent workers (default: EASTMONEY_WORKERS)")
}

func runFetchFunds(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, true)
	if err != nil {
		return err
	}
	defer a.Close()

	col, err := a.collector()
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	PrintJobHeader(out, "Fund List Sync", [][2]string{
		{"Source", a.cfg.Eastmoney.PageBaseURL},
		{"Started", time.Now().Format("2006-01-02 15:04:05")},
	})

	n, err := col.SyncFundList(ctx)
	if err != nil {
		PrintError(out, err.Error())
		return err
	}
	PrintSuccess(out, fmt.Sprintf("Synced %d funds", n))
	return nil
}

func runFetchNav(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, true)
	if err != nil {
		return err
	}
	defer a.Close()

	col, err := a.collector()
	if err != nil {
		return err
	}

	cfg := collector.Config{Workers: fetchWorkers}
	if cfg.Workers <= 0 {
		cfg.Workers = a.cfg.Eastmoney.Workers
	}
	if cfg.From, err = parseDateFlag("from", fetchFrom); err != nil {
		return err
	}
	if cfg.To, err = parseDateFlag("to", fetchTo); err != nil {
		return err
	}

	codes := splitCodes(fetchCodes)
	if len(codes) == 0 {
		codes, err = store.NewPriceRepository(a.db.Pool).ListCodes(ctx)
		if err != nil {
			return fmt.Errorf("failed to list stored funds: %w", err)
		}
		if len(codes) == 0 {
			return fmt.Errorf("no stored funds: run 'fetch funds' or pass --codes")
		}
	}

	out := cmd.OutOrStdout()
	period := "incremental"
	if fetchFrom != "" || fetchTo != "" {
		period = fmt.Sprintf("%s ~ %s", orDash(fetchFrom), orDash(fetchTo))
	}
	PrintJobHeader(out, "NAV Collection", [][2]string{
		{"Funds", fmt.Sprintf("%d", len(codes))},
		{"Period", period},
		{"Workers", fmt.Sprintf("%d", cfg.Workers)},
	})

	start := time.Now()
	results, err := col.FetchAll(ctx, codes, cfg)
	if err != nil {
		return fmt.Errorf("collection aborted: %w", err)
	}

	widths := []int{8, 24, 8, 30}
	PrintTableHeader(out, []string{"Code", "Name", "Points", "Error"}, widths)
	failed, points := 0, 0
	for _, r := range results {
		errText := ""
		if r.Error != nil {
			failed++
			errText = r.Error.Error()
		}
		points += r.PriceCount
		PrintTableRow(out, []string{r.Code, r.Name, fmt.Sprintf("%d", r.PriceCount), errText}, widths)
	}
	PrintSeparator(out)

	if failed > 0 {
		PrintWarning(out, fmt.Sprintf("%d of %d funds failed", failed, len(results)))
	}
	PrintSuccess(out, fmt.Sprintf("Stored %d points in %.2fs", points, time.Since(start).Seconds()))
	return nil
}

// parseDateFlag parses an optional YYYY-MM-DD flag
func parseDateFlag(name, value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse("2006-01-02", value)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid --%s %q (expected YYYY-MM-DD)", name, value)
	}
	return t, nil
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
