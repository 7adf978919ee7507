package selection

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/wonny/screener/internal/contracts"
)

// Report is the human and JSON view of a screening run
type Report struct {
	UniverseSize   int                         `json:"universe_size"`
	LightPassed    int                         `json:"light_passed"`
	Criteria       contracts.ScreeningCriteria `json:"criteria"`
	Matched        []contracts.Instrument      `json:"matched"`
	Rejected       map[string]int              `json:"rejected"`
	StartedAt      time.Time                   `json:"started_at"`
	ElapsedSeconds float64                     `json:"elapsed_seconds"`
}

// BuildReport assembles a report from a run result
func BuildReport(result *contracts.ScreeningResult) *Report {
	matched := make([]contracts.Instrument, len(result.Matched))
	copy(matched, result.Matched)

	rejected := make(map[string]int, len(result.Rejected))
	for k, v := range result.Rejected {
		rejected[k] = v
	}

	return &Report{
		UniverseSize:   result.UniverseSize,
		LightPassed:    result.LightPassed,
		Criteria:       result.Criteria,
		Matched:        matched,
		Rejected:       rejected,
		StartedAt:      result.StartedAt,
		ElapsedSeconds: float64(result.ElapsedMs) / 1000.0,
	}
}

// Text renders the report as plain text
func (r *Report) Text() string {
	c := r.Criteria
	var b strings.Builder

	fmt.Fprintf(&b, "size: %d\n", r.UniverseSize)
	fmt.Fprintf(&b, "1차 통과: %d\n", r.LightPassed)
	b.WriteString("\n")
	fmt.Fprintf(&b, "%d일 기준 신고가\n", c.NewHighDays)
	fmt.Fprintf(&b, "%d일 기준 진폭 %g~%g%%\n", c.AmplitudeDays, c.AmplitudeMinPct, c.AmplitudeMaxPct)
	fmt.Fprintf(&b, "최근 %d일 중 오늘이 거래량 최대가 X\n", c.RecentDays)
	fmt.Fprintf(&b, "최근 %d일 연달아 상승\n", c.RecentDays)
	b.WriteString("\n")

	if len(r.Matched) == 0 {
		b.WriteString("- 해당 종목 없음\n")
	}
	for _, inst := range r.Matched {
		fmt.Fprintf(&b, "- %s (%s)\n", inst.Name, inst.Code)
	}

	if len(r.Rejected) > 0 {
		b.WriteString("\n탈락 사유:\n")
		reasons := make([]string, 0, len(r.Rejected))
		for reason := range r.Rejected {
			reasons = append(reasons, reason)
		}
		sort.Strings(reasons)
		for _, reason := range reasons {
			fmt.Fprintf(&b, "  %-18s %d\n", reason, r.Rejected[reason])
		}
	}

	b.WriteString("\n")
	fmt.Fprintf(&b, "전체 걸린 시간: %.3fs\n", r.ElapsedSeconds)

	return b.String()
}
