package commands

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/wonny/fundquant/internal/contracts"
)

// ═══════════════════════════════════════════════════════════
// Common Formatting Utilities
// 모든 커맨드가 동일한 출력 포맷을 사용하도록 통일
// ═══════════════════════════════════════════════════════════

const (
	separator       = "───────────────────────────────────────────────────────────"
	doubleSeparator = "═══════════════════════════════════════════════════════════"
)

// PrintJobHeader prints a formatted command header with key/value lines
func PrintJobHeader(w io.Writer, title string, kv [][2]string) {
	fmt.Fprintln(w)
	fmt.Fprintln(w, doubleSeparator)
	fmt.Fprintf(w, "  %s\n", title)
	fmt.Fprintln(w, separator)
	for _, pair := range kv {
		fmt.Fprintf(w, "  %-10s: %s\n", pair[0], pair[1])
	}
	fmt.Fprintln(w, separator)
}

// PrintProgress prints a progress step with counter
// Example: [Analyze] 110022 ok [3/120]
func PrintProgress(w io.Writer, tag string, message string, current int, total int) {
	fmt.Fprintf(w, "[%s] %s [%d/%d]\n", tag, message, current, total)
}

// PrintSeparator prints a visual separator
func PrintSeparator(w io.Writer) {
	fmt.Fprintln(w, separator)
}

// PrintWarning prints a warning message
func PrintWarning(w io.Writer, message string) {
	fmt.Fprintf(w, "⚠️  %s\n", message)
}

// PrintSuccess prints a success message
func PrintSuccess(w io.Writer, message string) {
	fmt.Fprintf(w, "✅ %s\n", message)
}

// PrintError prints an error message
func PrintError(w io.Writer, message string) {
	fmt.Fprintf(w, "❌ %s\n", message)
}

// PrintTableHeader prints a table header
func PrintTableHeader(w io.Writer, columns []string, widths []int) {
	PrintTableRow(w, columns, widths)

	totalWidth := 0
	for i, width := range widths {
		totalWidth += width
		if i < len(widths)-1 {
			totalWidth += 2 // spacing
		}
	}
	fmt.Fprintln(w, strings.Repeat("─", totalWidth))
}

// PrintTableRow prints a table row
func PrintTableRow(w io.Writer, values []string, widths []int) {
	for i, val := range values {
		fmt.Fprintf(w, "%-*s", widths[i], truncate(val, widths[i]))
		if i < len(values)-1 {
			fmt.Fprint(w, "  ")
		}
	}
	fmt.Fprintln(w)
}

// PrintKeyValue prints key-value pairs
func PrintKeyValue(w io.Writer, key string, value string, keyWidth int) {
	fmt.Fprintf(w, "   %-*s : %s\n", keyWidth, key, value)
}

// truncate cuts s to width runes (names are often CJK)
func truncate(s string, width int) string {
	r := []rune(s)
	if len(r) <= width {
		return s
	}
	if width <= 1 {
		return string(r[:width])
	}
	return string(r[:width-1]) + "…"
}

// formatValue renders a metric; null prints as "-"
func formatValue(v contracts.NullFloat, percent bool) string {
	if !v.Valid {
		return "-"
	}
	if percent {
		return fmt.Sprintf("%.2f%%", v.Float64*100)
	}
	return fmt.Sprintf("%.3f", v.Float64)
}

// summaryColumns are the FULL-window metrics shown in the console table
var summaryColumns = []struct {
	title   string
	key     contracts.MetricKey
	percent bool
}{
	{"Return", contracts.MetricTotalReturn, true},
	{"AnnRet", contracts.MetricAnnualizedReturn, true},
	{"Vol", contracts.MetricVolatility, true},
	{"MaxDD", contracts.MetricMaxDrawdown, true},
	{"Sharpe", contracts.MetricSharpe, false},
}

// PrintBatchSummary prints the run header and one row per record
func PrintBatchSummary(w io.Writer, result *contracts.BatchResult, limit int) {
	ref := "latest per series"
	if result.Reference != nil {
		ref = result.Reference.Format("2006-01-02")
	}
	PrintJobHeader(w, "Fund Analysis", [][2]string{
		{"Run ID", result.RunID},
		{"Reference", ref},
		{"Workers", fmt.Sprintf("%d", result.Workers)},
		{"Duration", result.Duration().Round(time.Millisecond).String()},
	})

	columns := []string{"Code", "Name", "Status"}
	widths := []int{8, 20, 22}
	for _, c := range summaryColumns {
		columns = append(columns, c.title)
		widths = append(widths, 9)
	}
	PrintTableHeader(w, columns, widths)

	for i, rec := range result.Records {
		if limit > 0 && i >= limit {
			fmt.Fprintf(w, "... %d more\n", len(result.Records)-limit)
			break
		}
		status := string(rec.Status)
		if rec.Failed() {
			status = rec.ErrorKind
		}
		row := []string{rec.Code, rec.Name, status}
		for _, c := range summaryColumns {
			v, _ := rec.Value(contracts.FieldKey(contracts.WindowFull, c.key))
			row = append(row, formatValue(v, c.percent))
		}
		PrintTableRow(w, row, widths)
	}

	PrintSeparator(w)
	PrintKeyValue(w, "Succeeded", fmt.Sprintf("%d", result.Succeeded), 10)
	PrintKeyValue(w, "Failed", fmt.Sprintf("%d", result.Failed), 10)
}
