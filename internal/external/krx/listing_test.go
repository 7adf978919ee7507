package krx

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/encoding/korean"

	"github.com/wonny/screener/pkg/config"
	"github.com/wonny/screener/pkg/httputil"
	"github.com/wonny/screener/pkg/logger"
)

const kospiList = `<html><head><meta http-equiv="Content-Type" content="text/html; charset=euc-kr"></head><body>
<table>
<tr><th>회사명</th><th>종목코드</th><th>업종</th></tr>
<tr><td>삼성전자</td><td>005930</td><td>통신 및 방송 장비 제조업</td></tr>
<tr><td>SK하이닉스</td><td>660</td><td>반도체 제조업</td></tr>
<tr><td></td><td>000000</td><td>-</td></tr>
</table></body></html>`

const kosdaqList = `<html><head><meta http-equiv="Content-Type" content="text/html; charset=euc-kr"></head><body>
<table>
<tr><th>회사명</th><th>종목코드</th></tr>
<tr><td>에코프로비엠</td><td>247540</td></tr>
<tr><td>삼성전자</td><td>005930</td></tr>
</table></body></html>`

func TestParseCorpList(t *testing.T) {
	instruments, err := parseCorpList(strings.NewReader(kospiList), "KOSPI")
	require.NoError(t, err)

	require.Len(t, instruments, 2)
	assert.Equal(t, "005930", instruments[0].Code)
	assert.Equal(t, "삼성전자", instruments[0].Name)
	assert.Equal(t, "KOSPI", instruments[0].Market)
	assert.Equal(t, "000660", instruments[1].Code)
}

func TestNormalizeCode(t *testing.T) {
	assert.Equal(t, "005930", normalizeCode(" 5930 "))
	assert.Equal(t, "247540", normalizeCode("247540"))
	assert.Equal(t, "0001A0", normalizeCode("0001A0"))
	assert.Equal(t, "", normalizeCode("  "))
}

func TestFetchListing(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/corpgeneral/corpList.do", r.URL.Path)
		assert.Equal(t, "download", r.URL.Query().Get("method"))
		assert.Equal(t, "13", r.URL.Query().Get("searchType"))

		body := kospiList
		if r.URL.Query().Get("marketType") == "kosdaqMkt" {
			body = kosdaqList
		}
		encoded, err := korean.EUCKR.NewEncoder().String(body)
		if err != nil {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/vnd.ms-excel")
		fmt.Fprint(w, encoded)
	}))
	defer server.Close()

	httpClient := httputil.New(&config.Config{}, logger.Nop())
	client := NewClient(httpClient, config.KRXConfig{KindBaseURL: server.URL}, logger.Nop())

	instruments, err := client.FetchListing(context.Background())
	require.NoError(t, err)

	require.Len(t, instruments, 3)
	assert.Equal(t, "005930", instruments[0].Code)
	assert.Equal(t, "000660", instruments[1].Code)
	assert.Equal(t, "247540", instruments[2].Code)
	assert.Equal(t, "KOSDAQ", instruments[2].Market)
}

func TestFetchListing_ServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer server.Close()

	httpClient := httputil.New(&config.Config{}, logger.Nop())
	client := NewClient(httpClient, config.KRXConfig{KindBaseURL: server.URL}, logger.Nop())

	_, err := client.FetchListing(context.Background(), KOSPI)
	assert.Error(t, err)
}
