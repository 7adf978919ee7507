package selection

import (
	"context"
	"fmt"
	"time"

	"github.com/wonny/screener/internal/contracts"
	"github.com/wonny/screener/internal/runner"
	"github.com/wonny/screener/internal/series"
	"github.com/wonny/screener/pkg/logger"
	"github.com/wonny/screener/pkg/metrics"
)

const (
	stageLight  = "light"
	stageWeight = "weight"
)

// UniverseSource lists the instruments to screen
type UniverseSource interface {
	ListInstruments(ctx context.Context) ([]contracts.Instrument, error)
}

// Screener runs the two-phase breakout screen.
// The light stage reads a short window for every instrument; only its survivors
// pay for the long new-high window in the weight stage.
// ⭐ SSOT: 스크리닝 로직은 여기서만
type Screener struct {
	universe UniverseSource
	reader   *series.Reader
	logger   *logger.Logger
}

// NewScreener creates a new screener
func NewScreener(universe UniverseSource, reader *series.Reader, log *logger.Logger) *Screener {
	return &Screener{
		universe: universe,
		reader:   reader,
		logger:   log.WithField("module", "screener"),
	}
}

// verdict is a task outcome; reason is empty when the instrument passed
type verdict struct {
	inst   contracts.Instrument
	reason string
}

// Screen validates criteria, lists the universe and screens it
func (s *Screener) Screen(ctx context.Context, criteria contracts.ScreeningCriteria) (*contracts.ScreeningResult, error) {
	if err := criteria.Validate(); err != nil {
		return nil, err
	}
	if s.universe == nil {
		return nil, fmt.Errorf("no universe source configured")
	}

	universe, err := s.universe.ListInstruments(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list universe: %w", err)
	}

	return s.ScreenInstruments(ctx, criteria, universe)
}

// ScreenInstruments screens the given universe. Matched keeps universe order.
func (s *Screener) ScreenInstruments(ctx context.Context, criteria contracts.ScreeningCriteria, universe []contracts.Instrument) (*contracts.ScreeningResult, error) {
	if err := criteria.Validate(); err != nil {
		return nil, err
	}

	timer := metrics.NewTimer()
	result := &contracts.ScreeningResult{
		Criteria:     criteria,
		UniverseSize: len(universe),
		Matched:      make([]contracts.Instrument, 0),
		Rejected:     make(map[string]int),
		StartedAt:    time.Now(),
	}

	s.logger.WithFields(map[string]interface{}{
		"universe":    len(universe),
		"concurrency": criteria.Concurrency,
	}).Info("Screening started")

	// Phase 1: light checks over the whole universe
	lightDays := criteria.LightWindowDays()
	light := s.runStage(ctx, stageLight, universe, criteria.Concurrency, result.Rejected,
		func(ctx context.Context, inst contracts.Instrument) string {
			window, err := s.reader.Window(ctx, inst.Code, lightDays, criteria.RowsPerPage)
			if err != nil {
				return contracts.ReasonNoData
			}
			return lightReason(window, criteria)
		})
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("screening cancelled in light stage: %w", err)
	}
	result.LightPassed = len(light)

	// Phase 2: new-high check over light survivors only
	weightDays := criteria.WeightWindowDays()
	matched := s.runStage(ctx, stageWeight, light, criteria.Concurrency, result.Rejected,
		func(ctx context.Context, inst contracts.Instrument) string {
			// 페이지 하나라도 실패하면 오래된 날이 "오늘"이 될 수 있음
			window, err := s.reader.Window(ctx, inst.Code, weightDays, criteria.RowsPerPage)
			if err != nil {
				return contracts.ReasonNoData
			}
			return weightReason(window)
		})
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("screening cancelled in weight stage: %w", err)
	}
	result.Matched = append(result.Matched, matched...)

	elapsed := timer.Elapsed()
	result.ElapsedMs = elapsed.Milliseconds()
	metrics.RecordScreen(elapsed, len(result.Matched))

	s.logger.WithFields(map[string]interface{}{
		"total_input":  result.UniverseSize,
		"light_passed": result.LightPassed,
		"matched":      len(result.Matched),
		"filters":      result.Rejected,
		"elapsed_ms":   result.ElapsedMs,
	}).Info("Screening completed")

	return result, nil
}

// runStage fans check out over instruments and returns the passing ones in order.
// Rejection reasons are tallied into rejected once the fan-out has finished.
func (s *Screener) runStage(
	ctx context.Context,
	stage string,
	instruments []contracts.Instrument,
	limit int,
	rejected map[string]int,
	check func(ctx context.Context, inst contracts.Instrument) string,
) []contracts.Instrument {
	verdicts, stats := runner.Run(ctx, instruments, limit,
		func(ctx context.Context, inst contracts.Instrument) (verdict, bool, error) {
			return verdict{inst: inst, reason: check(ctx, inst)}, true, nil
		})

	passed := make([]contracts.Instrument, 0)
	for _, v := range verdicts {
		metrics.RecordStage(stage, v.reason == "")
		if v.reason != "" {
			rejected[v.reason]++
			continue
		}
		passed = append(passed, v.inst)
	}
	if stats.Failed > 0 {
		rejected[contracts.ReasonFailed] += stats.Failed
	}

	s.logger.WithFields(map[string]interface{}{
		"stage":  stage,
		"input":  stats.Total,
		"passed": len(passed),
		"failed": stats.Failed,
	}).Debug("Stage completed")

	return passed
}

// lightReason evaluates amplitude, volume and rise, cheapest first
func lightReason(window []contracts.PriceRecord, c contracts.ScreeningCriteria) string {
	switch {
	case len(window) == 0:
		return contracts.ReasonNoData
	case !Amplitude(window, c.AmplitudeDays, c.AmplitudeMinPct, c.AmplitudeMaxPct):
		return contracts.ReasonAmplitude
	case !NotMaxVolumeInLast(window, c.RecentDays):
		return contracts.ReasonMaxVolume
	case !ConsecutiveRise(window, c.RecentDays):
		return contracts.ReasonConsecutiveRise
	}
	return ""
}

func weightReason(window []contracts.PriceRecord) string {
	switch {
	case len(window) == 0:
		return contracts.ReasonNoData
	case !NewHighPrice(window):
		return contracts.ReasonNewHigh
	}
	return ""
}
