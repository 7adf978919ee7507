package contracts

import "time"

// DateLayout is the normalized trading date format
const DateLayout = "2006-01-02"

// PriceRecord is one trading day of an instrument.
// Series of records are always ordered most-recent-first.
type PriceRecord struct {
	Date   string  `json:"date"` // YYYY-MM-DD
	Open   float64 `json:"open"`
	High   float64 `json:"high"`
	Low    float64 `json:"low"`
	Close  float64 `json:"close"`
	Volume float64 `json:"volume"`
	Diff   float64 `json:"diff"` // 전일 대비, 하락이면 음수
}

// Time parses Date. The zero time is returned for a malformed date.
func (p PriceRecord) Time() time.Time {
	t, err := time.Parse(DateLayout, p.Date)
	if err != nil {
		return time.Time{}
	}
	return t
}

// Valid reports whether the record can feed the predicates
func (p PriceRecord) Valid() bool {
	return p.Date != "" && p.High >= p.Low && p.Low >= 0 && p.Volume >= 0
}
