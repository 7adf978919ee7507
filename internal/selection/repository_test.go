package selection

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/screener/internal/contracts"
)

func TestRepository_SaveAndGetRun(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}
	url := os.Getenv("DATABASE_URL")
	if url == "" {
		t.Skip("DATABASE_URL not set, skipping integration test")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := pgxpool.New(ctx, url)
	require.NoError(t, err)
	defer pool.Close()

	repo := NewRepository(pool)
	require.NoError(t, repo.EnsureSchema(ctx))

	result := &contracts.ScreeningResult{
		Criteria:     contracts.DefaultScreeningCriteria(),
		UniverseSize: 3,
		LightPassed:  1,
		Matched:      []contracts.Instrument{{Code: "005930", Name: "삼성전자", Market: "KOSPI"}},
		Rejected:     map[string]int{contracts.ReasonAmplitude: 2},
		StartedAt:    time.Now().UTC().Truncate(time.Millisecond),
		ElapsedMs:    4200,
	}

	id, err := repo.SaveRun(ctx, result)
	require.NoError(t, err)

	run, err := repo.GetRun(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, id, run.ID)
	assert.Equal(t, result.Matched, run.Result.Matched)
	assert.Equal(t, result.Rejected, run.Result.Rejected)
	assert.Equal(t, result.Criteria, run.Result.Criteria)
	assert.True(t, result.StartedAt.Equal(run.Result.StartedAt))

	runs, err := repo.ListRuns(ctx, 5)
	require.NoError(t, err)
	assert.NotEmpty(t, runs)

	_, err = repo.GetRun(ctx, -1)
	assert.ErrorIs(t, err, ErrRunNotFound)
}
