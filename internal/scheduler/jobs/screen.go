package jobs

import (
	"context"
	"errors"
	"fmt"

	"github.com/wonny/screener/internal/api/handlers"
	"github.com/wonny/screener/internal/contracts"
	"github.com/wonny/screener/internal/scheduler"
	"github.com/wonny/screener/internal/selection"
	"github.com/wonny/screener/pkg/logger"
)

// Screener runs one screening pass
type Screener interface {
	Screen(ctx context.Context, criteria contracts.ScreeningCriteria) (*contracts.ScreeningResult, error)
}

// RunSaver persists a finished run
type RunSaver interface {
	SaveRun(ctx context.Context, result *contracts.ScreeningResult) (int64, error)
}

// ScreenJob screens the universe after market close
// ⭐ SSOT: 정기 스크리닝 작업
type ScreenJob struct {
	screener Screener
	runs     RunSaver           // nil = 결과 저장 안 함
	feed     handlers.Publisher // nil = 알림 안 함
	criteria contracts.ScreeningCriteria
	schedule string
	logger   *logger.Logger
}

// NewScreenJob creates a new screening job
func NewScreenJob(screener Screener, runs RunSaver, criteria contracts.ScreeningCriteria, schedule string, log *logger.Logger) *ScreenJob {
	return &ScreenJob{
		screener: screener,
		runs:     runs,
		criteria: criteria,
		schedule: schedule,
		logger:   log.WithField("job", "screening"),
	}
}

// WithFeed publishes finished runs to feed
func (j *ScreenJob) WithFeed(feed handlers.Publisher) *ScreenJob {
	j.feed = feed
	return j
}

// Name returns the job name
func (j *ScreenJob) Name() string {
	return "screening"
}

// Schedule returns the cron schedule
func (j *ScreenJob) Schedule() string {
	return j.schedule
}

// Run executes the screening job.
// Feed events match the ones POST /api/screen publishes.
func (j *ScreenJob) Run(ctx context.Context) error {
	j.publish(handlers.EventRunStarted, j.criteria)

	result, err := j.screener.Screen(ctx, j.criteria)
	if err != nil {
		j.publish(handlers.EventRunFailed, map[string]string{"error": err.Error()})
		if errors.Is(err, contracts.ErrInvalidCriteria) {
			return fmt.Errorf("%w: %w", scheduler.ErrPermanent, err)
		}
		return fmt.Errorf("screening failed: %w", err)
	}

	resp := handlers.ScreenResponse{Report: selection.BuildReport(result)}
	j.logger.WithFields(map[string]interface{}{
		"universe": resp.UniverseSize,
		"passed":   resp.LightPassed,
		"matched":  len(resp.Matched),
	}).Info("Screening report\n" + resp.Text())

	var saveErr error
	if j.runs != nil {
		id, err := j.runs.SaveRun(ctx, result)
		if err != nil {
			// 저장 실패로 스크리닝을 다시 돌리지 않음
			saveErr = fmt.Errorf("%w: failed to save run: %w", scheduler.ErrPermanent, err)
		} else {
			resp.RunID = id
			j.logger.WithField("run_id", id).Info("Screening run saved")
		}
	}

	j.publish(handlers.EventRunCompleted, resp)
	return saveErr
}

func (j *ScreenJob) publish(eventType string, data interface{}) {
	if j.feed != nil {
		j.feed.Publish(eventType, data)
	}
}
