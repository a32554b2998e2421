package commands

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/wonny/fundquant/internal/export/excel"
	"github.com/wonny/fundquant/internal/store"
)

var exportDir string

// exportCmd represents the export command
var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "마지막 분석 결과를 엑셀로 내보내기",
	Long: `DB 에 저장된 가장 최근 배치 결과를 xlsx 파일로 씁니다.

Examples:
  go run ./cmd/quant export
  go run ./cmd/quant export --dir ./out`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		a, err := newApp(ctx, true)
		if err != nil {
			return err
		}
		defer a.Close()

		result, err := store.NewRecordRepository(a.db.Pool).LatestRun(ctx)
		if errors.Is(err, store.ErrNoRuns) {
			PrintWarning(cmd.OutOrStdout(), "No stored analysis run yet: run 'analyze' first")
			return nil
		}
		if err != nil {
			return err
		}

		dir := exportDir
		if dir == "" {
			dir = a.cfg.Analysis.ExportDir
		}
		if err := excel.NewWriter(dir, a.log).SaveRecords(ctx, result); err != nil {
			return fmt.Errorf("export failed: %w", err)
		}

		PrintSuccess(cmd.OutOrStdout(), fmt.Sprintf("Exported %d records to %s",
			len(result.Records), filepath.Join(dir, excel.FileName(result))))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(exportCmd)
	exportCmd.Flags().StringVar(&exportDir, "dir", "", "output directory (default: EXPORT_DIR)")
}
