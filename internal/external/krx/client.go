package krx

import (
	"context"
	"fmt"
	"net/url"

	"github.com/wonny/screener/pkg/config"
	"github.com/wonny/screener/pkg/httputil"
	"github.com/wonny/screener/pkg/logger"
)

// Market is a KIND market type and the tag attached to its instruments
type Market struct {
	Type string // KIND marketType parameter
	Tag  string
}

var (
	KOSPI  = Market{Type: "stockMkt", Tag: "KOSPI"}
	KOSDAQ = Market{Type: "kosdaqMkt", Tag: "KOSDAQ"}
)

// Client handles communication with KIND (KRX listed company disclosure)
// ⭐ SSOT: KRX 상장종목 목록 호출은 이 클라이언트에서만
type Client struct {
	httpClient *httputil.Client
	logger     *logger.Logger
	baseURL    string
}

// NewClient creates a new KIND client
func NewClient(httpClient *httputil.Client, cfg config.KRXConfig, log *logger.Logger) *Client {
	baseURL := cfg.KindBaseURL
	if baseURL == "" {
		baseURL = "http://kind.krx.co.kr"
	}

	return &Client{
		httpClient: httpClient,
		logger:     log.WithField("source", "krx"),
		baseURL:    baseURL,
	}
}

func (c *Client) fetchCorpList(ctx context.Context, market Market) (*httputil.RawPage, error) {
	params := url.Values{}
	params.Set("method", "download")
	params.Set("searchType", "13")
	params.Set("marketType", market.Type)

	fullURL := fmt.Sprintf("%s/corpgeneral/corpList.do?%s", c.baseURL, params.Encode())
	page, err := c.httpClient.FetchPage(ctx, fullURL)
	if err != nil {
		return nil, err
	}
	if !page.OK() {
		return nil, fmt.Errorf("unexpected status code %d: %s", page.StatusCode, fullURL)
	}
	return page, nil
}
