package httputil_test

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"time"

	"github.com/wonny/screener/pkg/config"
	"github.com/wonny/screener/pkg/httputil"
	"github.com/wonny/screener/pkg/logger"
)

// Example_fetchPage demonstrates a retried page fetch
func Example_fetchPage() {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			w.WriteHeader(http.StatusServiceUnavailable) // 첫 요청은 일시 장애
			return
		}
		fmt.Fprint(w, "<table></table>")
	}))
	defer srv.Close()

	// Create HTTP client (SSOT)
	client := httputil.New(&config.Config{}, logger.Nop()).
		WithRetry(3, 10*time.Millisecond)

	page, err := client.FetchPage(context.Background(), srv.URL)
	if err != nil {
		fmt.Printf("Request failed: %v\n", err)
		return
	}

	fmt.Printf("Status: %d, calls: %d\n", page.StatusCode, calls)
	// Output:
	// Status: 200, calls: 2
}

// Example_backoff shows the retry delay schedule
func Example_backoff() {
	client := httputil.New(&config.Config{}, logger.Nop())

	for retry := 1; retry <= 3; retry++ {
		fmt.Println(client.Backoff(retry))
	}
	// Output:
	// 300ms
	// 600ms
	// 1.2s
}
