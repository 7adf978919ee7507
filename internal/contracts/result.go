package contracts

import "time"

// Rejection reasons tallied per run
const (
	ReasonNoData          = "no_data"
	ReasonAmplitude       = "amplitude"
	ReasonMaxVolume       = "max_volume"
	ReasonConsecutiveRise = "consecutive_rise"
	ReasonNewHigh         = "new_high"
	ReasonFailed          = "failed"
)

// ScreeningResult is the outcome of one two-phase screening run
type ScreeningResult struct {
	Criteria     ScreeningCriteria `json:"criteria"`
	UniverseSize int               `json:"universe_size"`
	LightPassed  int               `json:"light_passed"`
	Matched      []Instrument      `json:"matched"`  // 유니버스 입력 순서 유지
	Rejected     map[string]int    `json:"rejected"` // 사유별 탈락 수
	StartedAt    time.Time         `json:"started_at"`
	ElapsedMs    int64             `json:"elapsed_ms"`
}

// Elapsed returns the run duration
func (r *ScreeningResult) Elapsed() time.Duration {
	return time.Duration(r.ElapsedMs) * time.Millisecond
}

// MatchedCodes returns matched instrument codes in order
func (r *ScreeningResult) MatchedCodes() []string {
	codes := make([]string, 0, len(r.Matched))
	for _, inst := range r.Matched {
		codes = append(codes, inst.Code)
	}
	return codes
}
