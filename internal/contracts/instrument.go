package contracts

// Instrument is one tradable symbol in a screening universe
// ⭐ SSOT: 유니버스 종목 단위
type Instrument struct {
	Code   string `json:"code"`   // 005930, AAPL
	Name   string `json:"name"`   // 삼성전자, Apple Inc.
	Market string `json:"market"` // KOSPI, KOSDAQ, NASDAQ ...
}

// String returns "Name(Code)"
func (i Instrument) String() string {
	if i.Name == "" {
		return i.Code
	}
	return i.Name + "(" + i.Code + ")"
}
