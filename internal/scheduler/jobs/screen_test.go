package jobs

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/screener/internal/api/handlers"
	"github.com/wonny/screener/internal/contracts"
	"github.com/wonny/screener/internal/scheduler"
	"github.com/wonny/screener/pkg/logger"
)

type stubScreener struct {
	result *contracts.ScreeningResult
	err    error
	got    contracts.ScreeningCriteria
}

func (s *stubScreener) Screen(ctx context.Context, criteria contracts.ScreeningCriteria) (*contracts.ScreeningResult, error) {
	s.got = criteria
	return s.result, s.err
}

type stubSaver struct {
	saved []*contracts.ScreeningResult
	err   error
}

func (s *stubSaver) SaveRun(ctx context.Context, result *contracts.ScreeningResult) (int64, error) {
	if s.err != nil {
		return 0, s.err
	}
	s.saved = append(s.saved, result)
	return int64(len(s.saved)), nil
}

func sampleResult() *contracts.ScreeningResult {
	return &contracts.ScreeningResult{
		Criteria:     contracts.DefaultScreeningCriteria(),
		UniverseSize: 3,
		LightPassed:  1,
		Matched:      []contracts.Instrument{{Code: "005930", Name: "삼성전자", Market: "KOSPI"}},
		Rejected:     map[string]int{contracts.ReasonAmplitude: 2},
		StartedAt:    time.Now(),
		ElapsedMs:    1500,
	}
}

func TestScreenJob_Metadata(t *testing.T) {
	job := NewScreenJob(&stubScreener{}, nil, contracts.DefaultScreeningCriteria(), "0 40 15 * * 1-5", logger.Nop())

	assert.Equal(t, "screening", job.Name())
	assert.Equal(t, "0 40 15 * * 1-5", job.Schedule())
}

func TestScreenJob_RunSaves(t *testing.T) {
	criteria := contracts.DefaultScreeningCriteria()
	criteria.NewHighDays = 120
	screener := &stubScreener{result: sampleResult()}
	saver := &stubSaver{}

	job := NewScreenJob(screener, saver, criteria, "@daily", logger.Nop())
	require.NoError(t, job.Run(context.Background()))

	assert.Equal(t, criteria, screener.got)
	require.Len(t, saver.saved, 1)
	assert.Equal(t, screener.result, saver.saved[0])
}

type recordingFeed struct {
	events []string
	data   []interface{}
}

func (f *recordingFeed) Publish(eventType string, data interface{}) {
	f.events = append(f.events, eventType)
	f.data = append(f.data, data)
}

func TestScreenJob_PublishesRunEvents(t *testing.T) {
	feed := &recordingFeed{}
	criteria := contracts.DefaultScreeningCriteria()
	job := NewScreenJob(&stubScreener{result: sampleResult()}, &stubSaver{}, criteria, "@daily", logger.Nop()).WithFeed(feed)

	require.NoError(t, job.Run(context.Background()))
	assert.Equal(t, []string{handlers.EventRunStarted, handlers.EventRunCompleted}, feed.events)
	assert.Equal(t, criteria, feed.data[0])

	resp, ok := feed.data[1].(handlers.ScreenResponse)
	require.True(t, ok, "completed payload has the API response shape")
	assert.Equal(t, int64(1), resp.RunID)
	assert.Equal(t, 3, resp.UniverseSize)
}

func TestScreenJob_PublishesFailure(t *testing.T) {
	feed := &recordingFeed{}
	job := NewScreenJob(&stubScreener{err: errors.New("universe down")}, nil, contracts.DefaultScreeningCriteria(), "@daily", logger.Nop()).WithFeed(feed)

	require.Error(t, job.Run(context.Background()))
	assert.Equal(t, []string{handlers.EventRunStarted, handlers.EventRunFailed}, feed.events)
	assert.Equal(t, map[string]string{"error": "universe down"}, feed.data[1])
}

func TestScreenJob_SaveFailureStillPublishesReport(t *testing.T) {
	feed := &recordingFeed{}
	job := NewScreenJob(&stubScreener{result: sampleResult()}, &stubSaver{err: errors.New("db down")}, contracts.DefaultScreeningCriteria(), "@daily", logger.Nop()).WithFeed(feed)

	require.ErrorIs(t, job.Run(context.Background()), scheduler.ErrPermanent)
	require.Equal(t, []string{handlers.EventRunStarted, handlers.EventRunCompleted}, feed.events)

	resp := feed.data[1].(handlers.ScreenResponse)
	assert.Zero(t, resp.RunID)
}

func TestScreenJob_RunWithoutStore(t *testing.T) {
	job := NewScreenJob(&stubScreener{result: sampleResult()}, nil, contracts.DefaultScreeningCriteria(), "@daily", logger.Nop())
	assert.NoError(t, job.Run(context.Background()))
}

func TestScreenJob_Errors(t *testing.T) {
	tests := []struct {
		name      string
		screenErr error
		saveErr   error
		permanent bool
	}{
		{"transient screen failure", errors.New("universe down"), nil, false},
		{"invalid criteria", fmt.Errorf("%w: recent days", contracts.ErrInvalidCriteria), nil, true},
		{"save failure", nil, errors.New("db down"), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			screener := &stubScreener{err: tt.screenErr}
			if tt.screenErr == nil {
				screener.result = sampleResult()
			}
			job := NewScreenJob(screener, &stubSaver{err: tt.saveErr}, contracts.DefaultScreeningCriteria(), "@daily", logger.Nop())

			err := job.Run(context.Background())
			require.Error(t, err)
			assert.Equal(t, tt.permanent, errors.Is(err, scheduler.ErrPermanent))
		})
	}
}
