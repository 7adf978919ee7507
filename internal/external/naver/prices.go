package naver

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/wonny/screener/internal/contracts"
)

var dateRe = regexp.MustCompile(`^(\d{4})\.(\d{2})\.(\d{2})$`)

// FetchPricePage fetches one page of the daily price table (sise_day), most recent first.
// Page 1 is the latest trading day. A page past the end parses to zero records.
// ⭐ SSOT: 네이버 일별 시세 페이지 호출은 이 함수에서만
func (c *Client) FetchPricePage(ctx context.Context, code string, page int) ([]contracts.PriceRecord, error) {
	params := url.Values{}
	params.Set("code", code)
	params.Set("page", strconv.Itoa(page))

	header := http.Header{}
	header.Set("Referer", fmt.Sprintf("%s/item/sise.naver?code=%s", c.baseURL, code))

	raw, err := c.fetch(ctx, c.baseURL, "/item/sise_day.naver", params, header)
	if err != nil {
		return nil, fmt.Errorf("fetch price page %s/%d: %w", code, page, err)
	}

	r, err := raw.UTF8Reader()
	if err != nil {
		return nil, err
	}

	records, err := parsePricePage(r)
	if err != nil {
		return nil, fmt.Errorf("parse price page %s/%d: %w", code, page, err)
	}

	c.logger.WithFields(map[string]interface{}{
		"stock_code": code,
		"page":       page,
		"count":      len(records),
	}).Debug("Fetched price page")

	return records, nil
}

// parsePricePage extracts daily rows from the sise_day table.
// 컬럼: 날짜 | 종가 | 전일비 | 시가 | 고가 | 저가 | 거래량
// Rows that are not data rows or fail to parse are skipped.
func parsePricePage(r io.Reader) ([]contracts.PriceRecord, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, err
	}

	var records []contracts.PriceRecord
	doc.Find("tr").Each(func(i int, row *goquery.Selection) {
		cells := row.Find("td")
		if cells.Length() < 7 {
			return
		}

		m := dateRe.FindStringSubmatch(strings.TrimSpace(cells.Eq(0).Text()))
		if m == nil {
			return // 구분선, 빈 행
		}

		var values [5]float64
		for j, col := range []int{1, 3, 4, 5, 6} {
			v, ok := parseNum(cells.Eq(col).Text())
			if !ok {
				return
			}
			values[j] = v
		}

		diff, ok := parseDiff(cells.Eq(2).Text())
		if !ok {
			return
		}

		records = append(records, contracts.PriceRecord{
			Date:   m[1] + "-" + m[2] + "-" + m[3],
			Close:  values[0],
			Open:   values[1],
			High:   values[2],
			Low:    values[3],
			Volume: values[4],
			Diff:   diff,
		})
	})

	return records, nil
}

// parseDiff reads the 전일비 cell; 하락/하한가 markers make it negative
func parseDiff(s string) (float64, bool) {
	negative := strings.Contains(s, "하락") || strings.Contains(s, "하한가")

	for _, marker := range []string{"상한가", "하한가", "상승", "하락", "보합"} {
		s = strings.ReplaceAll(s, marker, "")
	}

	v, ok := parseNum(s)
	if !ok {
		return 0, false
	}
	if negative {
		v = -v
	}
	return v, true
}

func parseNum(s string) (float64, bool) {
	s = strings.Join(strings.Fields(s), "")
	s = strings.ReplaceAll(s, ",", "")
	s = strings.TrimPrefix(s, "+")
	if s == "" || s == "-" {
		return 0, true
	}

	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}
