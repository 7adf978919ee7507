package profile

import (
	"github.com/wonny/screener/internal/contracts"
)

// Profile is a named set of screening criteria kept in YAML
type Profile struct {
	Meta     Meta     `yaml:"meta" json:"meta"`
	Criteria Criteria `yaml:"criteria" json:"criteria"`
}

// Meta 메타 정보
type Meta struct {
	ProfileID string `yaml:"profile_id" json:"profile_id"`
	Version   string `yaml:"version" json:"version"`
	Market    string `yaml:"market" json:"market"`     // kr, us (빈 값 = 설정값 사용)
	Schedule  string `yaml:"schedule" json:"schedule"` // cron (초 포함), 빈 값 = 설정값 사용
}

// Criteria overrides the configured defaults; omitted fields keep them
type Criteria struct {
	AmplitudeDays   *int     `yaml:"amplitude_days" json:"amplitude_days,omitempty"`
	AmplitudeMinPct *float64 `yaml:"amplitude_min_pct" json:"amplitude_min_pct,omitempty"`
	AmplitudeMaxPct *float64 `yaml:"amplitude_max_pct" json:"amplitude_max_pct,omitempty"`
	NewHighDays     *int     `yaml:"new_high_days" json:"new_high_days,omitempty"`
	RecentDays      *int     `yaml:"recent_days" json:"recent_days,omitempty"`
	Concurrency     *int     `yaml:"concurrency" json:"concurrency,omitempty"`
}

// Apply returns defaults with the profile's fields laid over them
func (p *Profile) Apply(defaults contracts.ScreeningCriteria) contracts.ScreeningCriteria {
	c := defaults
	if v := p.Criteria.AmplitudeDays; v != nil {
		c.AmplitudeDays = *v
	}
	if v := p.Criteria.AmplitudeMinPct; v != nil {
		c.AmplitudeMinPct = *v
	}
	if v := p.Criteria.AmplitudeMaxPct; v != nil {
		c.AmplitudeMaxPct = *v
	}
	if v := p.Criteria.NewHighDays; v != nil {
		c.NewHighDays = *v
	}
	if v := p.Criteria.RecentDays; v != nil {
		c.RecentDays = *v
	}
	if v := p.Criteria.Concurrency; v != nil {
		c.Concurrency = *v
	}
	return c
}
