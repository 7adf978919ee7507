package profile

import (
	"fmt"
	"regexp"

	"github.com/robfig/cron/v3"
)

// ValidationError 검증 실패 (프로그램 중단)
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Warning 권장 위반 (경고만)
type Warning struct {
	Code    string
	Message string
}

var profileIDPattern = regexp.MustCompile(`^[a-z0-9][a-z0-9_-]*$`)

var scheduleParser = cron.NewParser(
	cron.Second | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor,
)

// Validate checks the fields a profile can get wrong on its own.
// Cross-field criteria rules run on the merged criteria (contracts.ScreeningCriteria.Validate).
func Validate(p *Profile) error {
	// === Meta ===
	if !profileIDPattern.MatchString(p.Meta.ProfileID) {
		return ValidationError{"meta.profile_id", "required, lowercase letters, digits, '_' or '-'"}
	}
	switch p.Meta.Market {
	case "", "kr", "us":
	default:
		return ValidationError{"meta.market", "must be kr or us"}
	}
	if p.Meta.Schedule != "" {
		if _, err := scheduleParser.Parse(p.Meta.Schedule); err != nil {
			return ValidationError{"meta.schedule", err.Error()}
		}
	}

	// === Criteria ===
	c := p.Criteria
	if c.AmplitudeDays != nil && *c.AmplitudeDays <= 0 {
		return ValidationError{"criteria.amplitude_days", "must be > 0"}
	}
	if c.AmplitudeMinPct != nil && *c.AmplitudeMinPct < 0 {
		return ValidationError{"criteria.amplitude_min_pct", "must be >= 0"}
	}
	if c.AmplitudeMinPct != nil && c.AmplitudeMaxPct != nil && *c.AmplitudeMinPct > *c.AmplitudeMaxPct {
		return ValidationError{"criteria.amplitude_max_pct", "must be >= amplitude_min_pct"}
	}
	if c.NewHighDays != nil && *c.NewHighDays <= 0 {
		return ValidationError{"criteria.new_high_days", "must be > 0"}
	}
	if c.RecentDays != nil && *c.RecentDays < 2 {
		return ValidationError{"criteria.recent_days", "must be >= 2"}
	}
	if c.Concurrency != nil && *c.Concurrency <= 0 {
		return ValidationError{"criteria.concurrency", "must be > 0"}
	}

	return nil
}

// Warn checks recommended constraints (non-fatal)
func Warn(p *Profile) []Warning {
	var warnings []Warning
	c := p.Criteria

	// 신고가 기간이 진폭 기간보다 짧으면 2차가 1차보다 느슨함
	if c.NewHighDays != nil && c.AmplitudeDays != nil && *c.NewHighDays < *c.AmplitudeDays {
		warnings = append(warnings, Warning{
			Code:    "SHORT_NEW_HIGH",
			Message: "new_high_days < amplitude_days: 2차 조건이 1차보다 짧은 기간을 봄",
		})
	}

	if c.AmplitudeMaxPct != nil && *c.AmplitudeMaxPct > 100 {
		warnings = append(warnings, Warning{
			Code:    "WIDE_AMPLITUDE",
			Message: "amplitude_max_pct > 100%: 진폭 상한이 사실상 없음",
		})
	}

	// 소스 차단 우려
	if c.Concurrency != nil && *c.Concurrency > 100 {
		warnings = append(warnings, Warning{
			Code:    "HIGH_CONCURRENCY",
			Message: "concurrency > 100: 소스 레이트 리밋에 걸릴 수 있음",
		})
	}

	return warnings
}
