package httputil_test

import (
	"context"
	"fmt"
	"time"

	"github.com/wonny/fundquant/pkg/config"
	"github.com/wonny/fundquant/pkg/httputil"
	"github.com/wonny/fundquant/pkg/logger"
)

// Example_basic demonstrates basic HTTP client usage
func Example_basic() {
	log := logger.New(&config.Config{Env: "production", LogLevel: "info"})

	// Create HTTP client (SSOT)
	client := httputil.New(log)

	var page struct {
		ErrCode    int `json:"ErrCode"`
		TotalCount int `json:"TotalCount"`
	}
	err := client.GetJSON(context.Background(), "https://api.fund.eastmoney.com/f10/lsjz?fundCode=110022", &page)
	if err != nil {
		fmt.Printf("Request failed: %v\n", err)
		return
	}
	fmt.Printf("Points: %d\n", page.TotalCount)
}

// Example_rateLimited demonstrates throttling and a fixed Referer
func Example_rateLimited() {
	log := logger.New(&config.Config{Env: "production", LogLevel: "info"})

	// 2 requests/s, 5 retries starting at 2s
	client := httputil.NewWithTimeout(log, 10*time.Second).
		WithRate(2, 1).
		WithRetry(5, 2*time.Second).
		WithHeader("Referer", "https://fund.eastmoney.com/")

	resp, err := client.Get(context.Background(), "https://fund.eastmoney.com/110022.html")
	if err != nil {
		fmt.Printf("Request failed after retries: %v\n", err)
		return
	}
	defer resp.Body.Close()
	fmt.Printf("Status: %d\n", resp.StatusCode)
}
