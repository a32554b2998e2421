package eastmoney

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/wonny/fundquant/internal/contracts"
)

// navPage is one page of the f10/lsjz NAV history API
type navPage struct {
	Data struct {
		LSJZList []navRow `json:"LSJZList"`
	} `json:"Data"`
	ErrCode    int    `json:"ErrCode"`
	ErrMsg     string `json:"ErrMsg"`
	TotalCount int    `json:"TotalCount"`
	PageSize   int    `json:"PageSize"`
	PageIndex  int    `json:"PageIndex"`
}

// navRow: FSRQ=날짜, DWJZ=단위순값, LJJZ=누적순값, JZZZL=일간 증감률(%)
type navRow struct {
	FSRQ  string `json:"FSRQ"`
	DWJZ  string `json:"DWJZ"`
	LJJZ  string `json:"LJJZ"`
	JZZZL string `json:"JZZZL"`
}

// maxNavPages guards against an API that never reports an end
const maxNavPages = 500

// FetchNAV fetches the unit NAV history of code between from and to (inclusive).
// Zero from/to leave that side open. Points come back newest first from the
// API; the validator sorts them, so no ordering is imposed here.
func (c *Client) FetchNAV(ctx context.Context, code string, from, to time.Time) ([]contracts.PricePoint, error) {
	if !validCode(code) {
		return nil, fmt.Errorf("invalid fund code %q", code)
	}

	var points []contracts.PricePoint
	for pageIndex := 1; pageIndex <= maxNavPages; pageIndex++ {
		page, err := c.fetchNavPage(ctx, code, pageIndex, from, to)
		if err != nil {
			return nil, fmt.Errorf("fetch nav %s page %d: %w", code, pageIndex, err)
		}

		rows := page.Data.LSJZList
		if len(rows) == 0 {
			break
		}

		for _, row := range rows {
			p, ok := parseNavRow(row)
			if !ok {
				continue
			}
			points = append(points, p)
		}

		if page.TotalCount > 0 && pageIndex*c.pageSize >= page.TotalCount {
			break
		}
	}

	c.logger.WithFields(map[string]interface{}{
		"code":   code,
		"points": len(points),
	}).Debug("Fetched NAV history")

	return points, nil
}

func (c *Client) fetchNavPage(ctx context.Context, code string, pageIndex int, from, to time.Time) (*navPage, error) {
	params := url.Values{}
	params.Set("fundCode", code)
	params.Set("pageIndex", strconv.Itoa(pageIndex))
	params.Set("pageSize", strconv.Itoa(c.pageSize))
	params.Set("startDate", formatDate(from))
	params.Set("endDate", formatDate(to))

	var page navPage
	if err := c.httpClient.GetJSON(ctx, c.apiURL+"/f10/lsjz?"+params.Encode(), &page); err != nil {
		return nil, err
	}
	if page.ErrCode != 0 {
		return nil, fmt.Errorf("api error %d: %s", page.ErrCode, page.ErrMsg)
	}
	return &page, nil
}

// parseNavRow converts one API row; rows without a date are skipped,
// rows without a NAV keep the date with Close=nil (validator drops them)
func parseNavRow(row navRow) (contracts.PricePoint, bool) {
	date, err := time.Parse("2006-01-02", strings.TrimSpace(row.FSRQ))
	if err != nil {
		return contracts.PricePoint{}, false
	}

	p := contracts.PricePoint{Date: date}
	if nav, ok := parseDecimal(row.DWJZ); ok {
		p.Close = contracts.Float(nav)
		if pct, ok := parseDecimal(row.JZZZL); ok && pct > -100 {
			p.PrevClose = contracts.Float(nav / (1 + pct/100))
		}
	}
	return p, true
}

func parseDecimal(s string) (float64, bool) {
	s = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(s), "%"))
	if s == "" || s == "--" {
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format("2006-01-02")
}
