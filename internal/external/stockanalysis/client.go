package stockanalysis

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/wonny/screener/internal/contracts"
	"github.com/wonny/screener/pkg/config"
	"github.com/wonny/screener/pkg/httputil"
	"github.com/wonny/screener/pkg/logger"
)

const historyDateLayout = "Jan 2, 2006"

// RowsPerPage is large enough that any window fits on page 1
const RowsPerPage = 5000

// Client reads US daily price history from stockanalysis.com
// ⭐ SSOT: 미국 종목 시세 호출은 이 클라이언트에서만
type Client struct {
	httpClient *httputil.Client
	logger     *logger.Logger
	baseURL    string
}

// NewClient creates a new StockAnalysis client
func NewClient(httpClient *httputil.Client, cfg config.StockAnalysisConfig, log *logger.Logger) *Client {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = "https://stockanalysis.com"
	}

	return &Client{
		httpClient: httpClient,
		logger:     log.WithField("source", "stockanalysis"),
		baseURL:    baseURL,
	}
}

// FetchPricePage returns the history table, most recent first.
// The source serves the whole history on one page, so any page after the first is empty.
func (c *Client) FetchPricePage(ctx context.Context, ticker string, page int) ([]contracts.PriceRecord, error) {
	if page > 1 {
		return nil, nil
	}

	fullURL := fmt.Sprintf("%s/stocks/%s/history/", c.baseURL, strings.ToLower(ticker))
	raw, err := c.httpClient.FetchPage(ctx, fullURL)
	if err != nil {
		return nil, fmt.Errorf("fetch history %s: %w", ticker, err)
	}
	if !raw.OK() {
		return nil, fmt.Errorf("fetch history %s: unexpected status code %d", ticker, raw.StatusCode)
	}

	r, err := raw.UTF8Reader()
	if err != nil {
		return nil, err
	}

	records, err := parseHistory(r)
	if err != nil {
		return nil, fmt.Errorf("parse history %s: %w", ticker, err)
	}

	c.logger.WithFields(map[string]interface{}{
		"ticker": ticker,
		"count":  len(records),
	}).Debug("Fetched price history")

	return records, nil
}

// parseHistory reads "table tbody tr" rows.
// Columns: Date | Open | High | Low | Close | Adj. Close | Change | Volume
// The table has no signed change column usable as diff, so diff = close - open.
func parseHistory(r io.Reader) ([]contracts.PriceRecord, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, err
	}

	var records []contracts.PriceRecord
	doc.Find("table tbody tr").Each(func(i int, row *goquery.Selection) {
		cells := row.Find("td")
		if cells.Length() < 8 {
			return
		}

		date, err := time.Parse(historyDateLayout, strings.TrimSpace(cells.Eq(0).Text()))
		if err != nil {
			return
		}

		var values [5]float64
		for j, col := range []int{1, 2, 3, 4, 7} {
			v, ok := parseNum(cells.Eq(col).Text())
			if !ok {
				return
			}
			values[j] = v
		}

		records = append(records, contracts.PriceRecord{
			Date:   date.Format(contracts.DateLayout),
			Open:   values[0],
			High:   values[1],
			Low:    values[2],
			Close:  values[3],
			Volume: values[4],
			Diff:   values[3] - values[0],
		})
	})

	return records, nil
}

func parseNum(s string) (float64, bool) {
	s = strings.TrimSpace(strings.ReplaceAll(s, ",", ""))
	s = strings.TrimPrefix(s, "$")
	if s == "" || s == "-" {
		return 0, true
	}

	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}
