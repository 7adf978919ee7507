package naver

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/wonny/screener/pkg/config"
	"github.com/wonny/screener/pkg/httputil"
	"github.com/wonny/screener/pkg/logger"
)

// Client handles communication with Naver Finance
// ⭐ SSOT: Naver Finance 호출은 이 클라이언트에서만
type Client struct {
	httpClient *httputil.Client
	logger     *logger.Logger
	baseURL    string // finance.naver.com (HTML)
	apiBaseURL string // api.stock.naver.com (JSON)
}

// NewClient creates a new Naver Finance client
func NewClient(httpClient *httputil.Client, cfg config.NaverConfig, log *logger.Logger) *Client {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = "https://finance.naver.com"
	}
	apiBaseURL := cfg.APIBaseURL
	if apiBaseURL == "" {
		apiBaseURL = "https://api.stock.naver.com"
	}

	return &Client{
		httpClient: httpClient,
		logger:     log.WithField("source", "naver"),
		baseURL:    baseURL,
		apiBaseURL: apiBaseURL,
	}
}

// fetch GETs base+path and fails on a non-2xx page
func (c *Client) fetch(ctx context.Context, base, path string, params url.Values, header http.Header) (*httputil.RawPage, error) {
	fullURL := base + path
	if len(params) > 0 {
		fullURL = fmt.Sprintf("%s?%s", fullURL, params.Encode())
	}

	page, err := c.httpClient.FetchPageWithHeaders(ctx, fullURL, header)
	if err != nil {
		return nil, err
	}
	if !page.OK() {
		return nil, fmt.Errorf("unexpected status code %d: %s", page.StatusCode, fullURL)
	}

	return page, nil
}
