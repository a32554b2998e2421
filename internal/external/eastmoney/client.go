// Package eastmoney fetches fund NAV history and fund names from eastmoney.
package eastmoney

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/wonny/fundquant/pkg/config"
	"github.com/wonny/fundquant/pkg/httputil"
	"github.com/wonny/fundquant/pkg/logger"
)

// SourceName is stored in fund.instruments.source for funds fetched here
const SourceName = "eastmoney"

// Client handles communication with eastmoney fund endpoints
// ⭐ SSOT: eastmoney 호출은 이 클라이언트에서만
type Client struct {
	httpClient *httputil.Client
	logger     *logger.Logger
	apiURL     string
	pageURL    string
	pageSize   int
}

// NewClient creates a new eastmoney client.
// httpClient should already carry the rate limiter (WithRate / WithLimiter).
func NewClient(httpClient *httputil.Client, cfg config.EastmoneyConfig, log *logger.Logger) *Client {
	pageSize := cfg.PageSize
	if pageSize <= 0 {
		pageSize = 49
	}

	// lsjz API는 Referer 없으면 빈 응답
	httpClient.WithHeader("Referer", httputil.Normalize(cfg.PageBaseURL)+"/")

	return &Client{
		httpClient: httpClient,
		logger:     log,
		apiURL:     httputil.Normalize(cfg.BaseURL),
		pageURL:    httputil.Normalize(cfg.PageBaseURL),
		pageSize:   pageSize,
	}
}

// fetchText fetches a text body from base+path
func (c *Client) fetchText(ctx context.Context, base, path string, params url.Values) (string, error) {
	fullURL := base + path
	if len(params) > 0 {
		fullURL = fmt.Sprintf("%s?%s", fullURL, params.Encode())
	}

	resp, err := c.httpClient.Get(ctx, fullURL)
	if err != nil {
		return "", fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response body: %w", err)
	}

	return string(body), nil
}

// validCode reports whether code looks like a six digit fund code
func validCode(code string) bool {
	if len(code) != 6 {
		return false
	}
	return strings.Trim(code, "0123456789") == ""
}
