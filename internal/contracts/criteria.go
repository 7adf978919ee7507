package contracts

import (
	"errors"
	"fmt"
)

// ErrInvalidCriteria is returned when screening criteria are inconsistent
var ErrInvalidCriteria = errors.New("invalid screening criteria")

// ScreeningCriteria holds the thresholds of one screening run
// ⭐ SSOT: 스크리닝 조건
type ScreeningCriteria struct {
	AmplitudeDays   int     `json:"amplitude_days"`    // 진폭 계산 기간
	AmplitudeMinPct float64 `json:"amplitude_min_pct"` // 진폭 하한 (%)
	AmplitudeMaxPct float64 `json:"amplitude_max_pct"` // 진폭 상한 (%)
	NewHighDays     int     `json:"new_high_days"`     // 신고가 기준 기간
	RecentDays      int     `json:"recent_days"`       // 거래량/연속상승 기간
	RowsPerPage     int     `json:"rows_per_page"`     // 소스 페이지당 행 수
	Concurrency     int     `json:"concurrency"`       // 동시 종목 처리 수
}

// DefaultScreeningCriteria returns the standard breakout criteria
func DefaultScreeningCriteria() ScreeningCriteria {
	return ScreeningCriteria{
		AmplitudeDays:   20,
		AmplitudeMinPct: 10,
		AmplitudeMaxPct: 30,
		NewHighDays:     250,
		RecentDays:      3,
		RowsPerPage:     10,
		Concurrency:     30,
	}
}

// Validate rejects criteria that could never match or would never terminate
func (c ScreeningCriteria) Validate() error {
	switch {
	case c.AmplitudeDays <= 0:
		return fmt.Errorf("%w: amplitude days must be positive, got %d", ErrInvalidCriteria, c.AmplitudeDays)
	case c.AmplitudeMinPct < 0:
		return fmt.Errorf("%w: amplitude min must not be negative, got %g", ErrInvalidCriteria, c.AmplitudeMinPct)
	case c.AmplitudeMinPct > c.AmplitudeMaxPct:
		return fmt.Errorf("%w: amplitude min %g > max %g", ErrInvalidCriteria, c.AmplitudeMinPct, c.AmplitudeMaxPct)
	case c.NewHighDays <= 0:
		return fmt.Errorf("%w: new high days must be positive, got %d", ErrInvalidCriteria, c.NewHighDays)
	case c.RecentDays < 2:
		return fmt.Errorf("%w: recent days must be at least 2, got %d", ErrInvalidCriteria, c.RecentDays)
	case c.RowsPerPage <= 0:
		return fmt.Errorf("%w: rows per page must be positive, got %d", ErrInvalidCriteria, c.RowsPerPage)
	case c.Concurrency <= 0:
		return fmt.Errorf("%w: concurrency must be positive, got %d", ErrInvalidCriteria, c.Concurrency)
	}
	return nil
}

// LightWindowDays is the record count the light stage needs
func (c ScreeningCriteria) LightWindowDays() int {
	return max(c.AmplitudeDays, c.RecentDays)
}

// WeightWindowDays is the record count the weight stage needs
func (c ScreeningCriteria) WeightWindowDays() int {
	return c.NewHighDays
}
