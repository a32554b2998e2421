package commands

import (
	"github.com/spf13/cobra"
)

var (
	// Global flags
	configFile string
	env        string
	verbose    bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "quant",
	Short: "fundquant - 펀드 순자산가치 배치 분석 시스템",
	Long: `fundquant Unified CLI

펀드/지수 일별 가격 시계열을 읽어 기간별 성과·위험 지표를 계산하고
펀드당 한 행의 요약 레코드로 저장/내보내기 합니다.

Sources:
  tdx        로컬 TDX *.day 파일
  db         PostgreSQL fund.daily_prices
  eastmoney  원격 NAV 히스토리 (DB 없이)

Usage:
  go run ./cmd/quant [command]

Examples:
  go run ./cmd/quant analyze --source tdx --threads auto
  go run ./cmd/quant fetch nav --codes 000001,110022
  go run ./cmd/quant api
  go run ./cmd/quant db check`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "config file (default is .env)")
	rootCmd.PersistentFlags().StringVar(&env, "env", "", "environment override (development|staging|production)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output (debug logs)")
}
