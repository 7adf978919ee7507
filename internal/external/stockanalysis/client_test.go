package stockanalysis

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/screener/pkg/config"
	"github.com/wonny/screener/pkg/httputil"
	"github.com/wonny/screener/pkg/logger"
)

const historyPage = `<html><body>
<table>
<thead><tr><th>Date</th><th>Open</th><th>High</th><th>Low</th><th>Close</th><th>Adj. Close</th><th>Change</th><th>Volume</th></tr></thead>
<tbody>
<tr><td>Mar 15, 2024</td><td>171.17</td><td>172.62</td><td>170.29</td><td>172.62</td><td>172.13</td><td>0.85%</td><td>121,664,700</td></tr>
<tr><td>Mar 14, 2024</td><td>172.91</td><td>174.31</td><td>172.05</td><td>173.00</td><td>172.51</td><td>1.10%</td><td>72,913,507</td></tr>
<tr><td>Dividend</td><td colspan="7">0.24 Cash Dividend</td></tr>
<tr><td>Mar 13, 2024</td><td>172.77</td><td>x</td><td>170.52</td><td>171.13</td><td>170.65</td><td>-1.0%</td><td>51,948,951</td></tr>
</tbody>
</table></body></html>`

func TestParseHistory(t *testing.T) {
	records, err := parseHistory(strings.NewReader(historyPage))
	require.NoError(t, err)

	require.Len(t, records, 2)
	assert.Equal(t, "2024-03-15", records[0].Date)
	assert.Equal(t, 171.17, records[0].Open)
	assert.Equal(t, 172.62, records[0].High)
	assert.Equal(t, 170.29, records[0].Low)
	assert.Equal(t, 172.62, records[0].Close)
	assert.Equal(t, 121664700.0, records[0].Volume)
	assert.InDelta(t, 1.45, records[0].Diff, 1e-9)

	assert.Equal(t, "2024-03-14", records[1].Date)
	assert.Less(t, records[1].Diff, 0.1)
}

func TestFetchPricePage(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		assert.Equal(t, "/stocks/aapl/history/", r.URL.Path)
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		fmt.Fprint(w, historyPage)
	}))
	defer server.Close()

	httpClient := httputil.New(&config.Config{}, logger.Nop())
	client := NewClient(httpClient, config.StockAnalysisConfig{BaseURL: server.URL}, logger.Nop())

	records, err := client.FetchPricePage(context.Background(), "AAPL", 1)
	require.NoError(t, err)
	assert.Len(t, records, 2)

	more, err := client.FetchPricePage(context.Background(), "AAPL", 2)
	require.NoError(t, err)
	assert.Empty(t, more)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}
