package krx

import (
	"context"
	"fmt"
	"io"
	"strings"
	"unicode"

	"github.com/PuerkitoBio/goquery"

	"github.com/wonny/screener/internal/contracts"
)

// FetchListing returns the listed companies of the given markets (KOSPI and KOSDAQ by default).
// Codes are deduplicated across markets, first occurrence wins.
func (c *Client) FetchListing(ctx context.Context, markets ...Market) ([]contracts.Instrument, error) {
	if len(markets) == 0 {
		markets = []Market{KOSPI, KOSDAQ}
	}

	seen := make(map[string]struct{})
	var all []contracts.Instrument

	for _, market := range markets {
		page, err := c.fetchCorpList(ctx, market)
		if err != nil {
			return nil, fmt.Errorf("fetch %s listing: %w", market.Tag, err)
		}

		r, err := page.UTF8Reader()
		if err != nil {
			return nil, err
		}

		instruments, err := parseCorpList(r, market.Tag)
		if err != nil {
			return nil, fmt.Errorf("parse %s listing: %w", market.Tag, err)
		}

		for _, inst := range instruments {
			if _, dup := seen[inst.Code]; dup {
				continue
			}
			seen[inst.Code] = struct{}{}
			all = append(all, inst)
		}

		c.logger.WithFields(map[string]interface{}{
			"market": market.Tag,
			"count":  len(instruments),
		}).Debug("Fetched KIND listing")
	}

	c.logger.WithField("count", len(all)).Info("Fetched KRX listing")
	return all, nil
}

// parseCorpList reads the KIND download table.
// 컬럼: 회사명 | 종목코드 | ...
func parseCorpList(r io.Reader, tag string) ([]contracts.Instrument, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, err
	}

	var instruments []contracts.Instrument
	doc.Find("tr").Each(func(i int, row *goquery.Selection) {
		cells := row.Find("td")
		if cells.Length() < 2 {
			return // 헤더(th) 행
		}

		name := strings.TrimSpace(cells.Eq(0).Text())
		code := normalizeCode(cells.Eq(1).Text())
		if name == "" || code == "" {
			return
		}

		instruments = append(instruments, contracts.Instrument{
			Code:   code,
			Name:   name,
			Market: tag,
		})
	})

	return instruments, nil
}

// normalizeCode left-pads numeric codes to 6 digits (엑셀 변환 시 앞자리 0 유실)
func normalizeCode(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}

	numeric := true
	for _, r := range s {
		if !unicode.IsDigit(r) {
			numeric = false
			break
		}
	}
	if numeric && len(s) < 6 {
		s = strings.Repeat("0", 6-len(s)) + s
	}
	return s
}
