package naver

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	"github.com/tidwall/gjson"

	"github.com/wonny/screener/internal/contracts"
)

// USExchanges are the exchanges listed by the marketValue API
var USExchanges = []string{"NYSE", "NASDAQ", "AMEX"}

// FetchUSListing returns every instrument of the given US exchanges.
// Page 1 carries totalCount and pageSize, which decide how many pages follow.
func (c *Client) FetchUSListing(ctx context.Context, exchanges ...string) ([]contracts.Instrument, error) {
	if len(exchanges) == 0 {
		exchanges = USExchanges
	}

	var all []contracts.Instrument
	for _, exchange := range exchanges {
		instruments, err := c.fetchExchange(ctx, exchange)
		if err != nil {
			return nil, err
		}
		all = append(all, instruments...)
	}

	c.logger.WithField("count", len(all)).Info("Fetched US listing")
	return all, nil
}

func (c *Client) fetchExchange(ctx context.Context, exchange string) ([]contracts.Instrument, error) {
	first, err := c.fetchListingPage(ctx, exchange, 1)
	if err != nil {
		return nil, err
	}

	totalCount := first.Get("totalCount").Int()
	pageSize := first.Get("pageSize").Int()
	if pageSize <= 0 {
		pageSize = 20
	}
	totalPages := int((totalCount + pageSize - 1) / pageSize)

	instruments := parseListing(first, exchange)
	for page := 2; page <= totalPages; page++ {
		doc, err := c.fetchListingPage(ctx, exchange, page)
		if err != nil {
			return nil, err
		}
		instruments = append(instruments, parseListing(doc, exchange)...)
	}

	c.logger.WithFields(map[string]interface{}{
		"exchange": exchange,
		"pages":    totalPages,
		"count":    len(instruments),
	}).Debug("Fetched exchange listing")

	return instruments, nil
}

func (c *Client) fetchListingPage(ctx context.Context, exchange string, page int) (gjson.Result, error) {
	params := url.Values{}
	params.Set("page", strconv.Itoa(page))

	raw, err := c.fetch(ctx, c.apiBaseURL, "/stock/exchange/"+url.PathEscape(exchange)+"/marketValue", params, nil)
	if err != nil {
		return gjson.Result{}, fmt.Errorf("fetch %s listing page %d: %w", exchange, page, err)
	}
	if !gjson.ValidBytes(raw.Body) {
		return gjson.Result{}, fmt.Errorf("invalid JSON in %s listing page %d", exchange, page)
	}

	return gjson.ParseBytes(raw.Body), nil
}

// parseListing prefers the English name and falls back to the Korean one
func parseListing(doc gjson.Result, exchange string) []contracts.Instrument {
	var instruments []contracts.Instrument
	doc.Get("stocks").ForEach(func(_, node gjson.Result) bool {
		code := node.Get("symbolCode").String()
		if code == "" {
			return true
		}

		name := node.Get("stockNameEng").String()
		if name == "" {
			name = node.Get("stockName").String()
		}

		instruments = append(instruments, contracts.Instrument{
			Code:   code,
			Name:   name,
			Market: exchange,
		})
		return true
	})
	return instruments
}
