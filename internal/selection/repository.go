package selection

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/wonny/screener/internal/contracts"
)

// ErrRunNotFound is returned when a run id does not exist
var ErrRunNotFound = errors.New("screening run not found")

// Repository persists screening runs
// ⭐ SSOT: 스크리닝 이력 저장/조회는 여기서만
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a new run repository
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// RunSummary is one row of the run history
type RunSummary struct {
	ID     int64                      `json:"id"`
	Result *contracts.ScreeningResult `json:"result"`
}

const schemaDDL = `
	CREATE SCHEMA IF NOT EXISTS selection;
	CREATE TABLE IF NOT EXISTS selection.screening_runs (
		id            BIGSERIAL PRIMARY KEY,
		started_at    TIMESTAMPTZ NOT NULL,
		criteria      JSONB       NOT NULL,
		universe_size INTEGER     NOT NULL,
		light_passed  INTEGER     NOT NULL,
		matched       JSONB       NOT NULL,
		rejected      JSONB       NOT NULL,
		elapsed_ms    BIGINT      NOT NULL,
		created_at    TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);
`

// EnsureSchema creates the run history table if missing
func (r *Repository) EnsureSchema(ctx context.Context) error {
	if _, err := r.pool.Exec(ctx, schemaDDL); err != nil {
		return fmt.Errorf("failed to create screening_runs: %w", err)
	}
	return nil
}

// SaveRun stores a finished run and returns its id
func (r *Repository) SaveRun(ctx context.Context, result *contracts.ScreeningResult) (int64, error) {
	criteriaJSON, err := json.Marshal(result.Criteria)
	if err != nil {
		return 0, fmt.Errorf("failed to marshal criteria: %w", err)
	}
	matchedJSON, err := json.Marshal(result.Matched)
	if err != nil {
		return 0, fmt.Errorf("failed to marshal matched: %w", err)
	}
	rejectedJSON, err := json.Marshal(result.Rejected)
	if err != nil {
		return 0, fmt.Errorf("failed to marshal rejected: %w", err)
	}

	query := `
		INSERT INTO selection.screening_runs (
			started_at, criteria, universe_size, light_passed, matched, rejected, elapsed_ms
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id
	`

	var id int64
	err = r.pool.QueryRow(ctx, query,
		result.StartedAt, criteriaJSON, result.UniverseSize, result.LightPassed,
		matchedJSON, rejectedJSON, result.ElapsedMs,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("failed to save screening run: %w", err)
	}

	return id, nil
}

// GetRun retrieves one run
func (r *Repository) GetRun(ctx context.Context, id int64) (*RunSummary, error) {
	query := `
		SELECT id, started_at, criteria, universe_size, light_passed, matched, rejected, elapsed_ms
		FROM selection.screening_runs
		WHERE id = $1
	`

	run, err := scanRun(r.pool.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: id %d", ErrRunNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get screening run: %w", err)
	}

	return run, nil
}

// ListRuns returns the most recent runs first
func (r *Repository) ListRuns(ctx context.Context, limit int) ([]RunSummary, error) {
	query := `
		SELECT id, started_at, criteria, universe_size, light_passed, matched, rejected, elapsed_ms
		FROM selection.screening_runs
		ORDER BY started_at DESC, id DESC
		LIMIT $1
	`

	rows, err := r.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query screening runs: %w", err)
	}
	defer rows.Close()

	runs := make([]RunSummary, 0)
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		runs = append(runs, *run)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return runs, nil
}

func scanRun(row pgx.Row) (*RunSummary, error) {
	var (
		run                                     RunSummary
		result                                  contracts.ScreeningResult
		criteriaJSON, matchedJSON, rejectedJSON []byte
	)

	err := row.Scan(
		&run.ID, &result.StartedAt, &criteriaJSON, &result.UniverseSize, &result.LightPassed,
		&matchedJSON, &rejectedJSON, &result.ElapsedMs,
	)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(criteriaJSON, &result.Criteria); err != nil {
		return nil, fmt.Errorf("failed to unmarshal criteria: %w", err)
	}
	if err := json.Unmarshal(matchedJSON, &result.Matched); err != nil {
		return nil, fmt.Errorf("failed to unmarshal matched: %w", err)
	}
	if err := json.Unmarshal(rejectedJSON, &result.Rejected); err != nil {
		return nil, fmt.Errorf("failed to unmarshal rejected: %w", err)
	}

	run.Result = &result
	return &run, nil
}
