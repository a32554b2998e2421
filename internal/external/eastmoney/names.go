package eastmoney

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"sync"

	"github.com/PuerkitoBio/goquery"

	"github.com/wonny/fundquant/internal/contracts"
)

// Fund is one entry of the open-ended fund list
type Fund struct {
	Code string `json:"code"`
	Name string `json:"name"`
}

// list page: 200 funds per page (사이트 최대값)
const listPageSize = 200

var (
	listDatasRe = regexp.MustCompile(`(?s)datas:(\[.*?\])\s*,\s*count:`)
	listPagesRe = regexp.MustCompile(`pages:"?(\d+)"?`)
)

// FetchName scrapes the display name of code from its fund page
func (c *Client) FetchName(ctx context.Context, code string) (string, error) {
	if !validCode(code) {
		return "", fmt.Errorf("invalid fund code %q", code)
	}

	html, err := c.fetchText(ctx, c.pageURL, "/"+code+".html", nil)
	if err != nil {
		return "", fmt.Errorf("fetch fund page %s: %w", code, err)
	}

	name, err := parseFundName(html)
	if err != nil {
		return "", fmt.Errorf("parse fund page %s: %w", code, err)
	}
	return name, nil
}

// parseFundName reads ".fundDetail-tit" and falls back to <title>
func parseFundName(html string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return "", fmt.Errorf("failed to parse HTML: %w", err)
	}

	candidates := []string{
		doc.Find(".fundDetail-tit div").First().Text(),
		doc.Find(".fundDetail-tit").First().Text(),
		doc.Find("title").First().Text(),
	}
	for _, text := range candidates {
		if name := cleanName(text); name != "" {
			return name, nil
		}
	}
	return "", fmt.Errorf("fund name not found")
}

// cleanName strips "(000001)" and anything after it
func cleanName(text string) string {
	text = strings.TrimSpace(text)
	for _, sep := range []string{"(", "（"} {
		if i := strings.Index(text, sep); i >= 0 {
			text = text[:i]
		}
	}
	return strings.TrimSpace(text)
}

// ListFunds walks every page of the open-ended fund NAV table
func (c *Client) ListFunds(ctx context.Context) ([]Fund, error) {
	var funds []Fund
	pages := 1
	for page := 1; page <= pages; page++ {
		body, err := c.fetchText(ctx, c.pageURL, "/Data/Fund_JJJZ_Data.aspx", listParams(page))
		if err != nil {
			return nil, fmt.Errorf("fetch fund list page %d: %w", page, err)
		}

		batch, total, err := parseFundList(body)
		if err != nil {
			return nil, fmt.Errorf("parse fund list page %d: %w", page, err)
		}
		funds = append(funds, batch...)

		if page == 1 && total > 0 {
			pages = total
		}
	}

	c.logger.WithFields(map[string]interface{}{
		"funds": len(funds),
		"pages": pages,
	}).Info("Fetched fund list")

	return funds, nil
}

func listParams(page int) url.Values {
	params := url.Values{}
	params.Set("t", "10")
	params.Set("lx", "1")
	params.Set("letter", "")
	params.Set("gsid", "")
	params.Set("text", "")
	params.Set("sort", "rzdf,desc")
	params.Set("page", fmt.Sprintf("%d,%d", page, listPageSize))
	return params
}

// parseFundList parses `var db={chars:[..],datas:[[code,name,...],..],count:[..],pages:"N",...}`.
// The datas array is valid JSON, so it is cut out and decoded directly.
func parseFundList(body string) ([]Fund, int, error) {
	m := listDatasRe.FindStringSubmatch(body)
	if m == nil {
		return nil, 0, fmt.Errorf("datas array not found")
	}

	var rows [][]string
	if err := json.Unmarshal([]byte(m[1]), &rows); err != nil {
		return nil, 0, fmt.Errorf("decode datas: %w", err)
	}

	funds := make([]Fund, 0, len(rows))
	for _, row := range rows {
		if len(row) < 2 || !validCode(row[0]) {
			continue
		}
		funds = append(funds, Fund{Code: row[0], Name: strings.TrimSpace(row[1])})
	}

	total := 0
	if pm := listPagesRe.FindStringSubmatch(body); pm != nil {
		total, _ = strconv.Atoi(pm[1])
	}
	return funds, total, nil
}

// NameResolver is a contracts.NameLookup that scrapes names on first use.
// Lookups after a failed scrape return "" without retrying.
type NameResolver struct {
	client *Client
	ctx    context.Context

	mu    sync.Mutex
	names map[string]string
}

// NewNameResolver creates a resolver seeded with known names (may be nil)
func NewNameResolver(ctx context.Context, client *Client, known contracts.StaticNames) *NameResolver {
	names := make(map[string]string, len(known))
	for code, name := range known {
		names[code] = name
	}
	return &NameResolver{client: client, ctx: ctx, names: names}
}

// Name implements contracts.NameLookup
func (r *NameResolver) Name(code string) string {
	r.mu.Lock()
	name, ok := r.names[code]
	r.mu.Unlock()
	if ok {
		return name
	}

	name, err := r.client.FetchName(r.ctx, code)
	if err != nil {
		r.client.logger.WithCode(code).WithError(err).Warn("Fund name lookup failed")
		name = ""
	}

	r.mu.Lock()
	r.names[code] = name
	r.mu.Unlock()
	return name
}
