package universe

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/wonny/screener/internal/contracts"
)

// PostgresSource reads the active listing from data.stocks
// ⭐ SSOT: DB 종목 목록 조회는 여기서만
type PostgresSource struct {
	pool    *pgxpool.Pool
	markets []string // market filter, empty = all
}

// NewPostgresSource creates a listing source backed by Postgres
func NewPostgresSource(pool *pgxpool.Pool, markets ...string) *PostgresSource {
	if markets == nil {
		markets = []string{}
	}
	return &PostgresSource{pool: pool, markets: markets}
}

// ListInstruments implements Source
func (s *PostgresSource) ListInstruments(ctx context.Context) ([]contracts.Instrument, error) {
	query := `
		SELECT code, name, market
		FROM data.stocks
		WHERE status = 'active'
		  AND (cardinality($1::text[]) = 0 OR market = ANY($1))
		ORDER BY code
	`

	rows, err := s.pool.Query(ctx, query, s.markets)
	if err != nil {
		return nil, fmt.Errorf("failed to query stocks: %w", err)
	}
	defer rows.Close()

	instruments := make([]contracts.Instrument, 0)
	for rows.Next() {
		var inst contracts.Instrument
		if err := rows.Scan(&inst.Code, &inst.Name, &inst.Market); err != nil {
			return nil, fmt.Errorf("failed to scan stock: %w", err)
		}
		instruments = append(instruments, inst)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return instruments, nil
}
