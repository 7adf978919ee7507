package commands

import (
	"context"
	"fmt"

	"github.com/wonny/screener/internal/contracts"
	"github.com/wonny/screener/internal/external/krx"
	"github.com/wonny/screener/internal/external/naver"
	"github.com/wonny/screener/internal/external/stockanalysis"
	"github.com/wonny/screener/internal/profile"
	"github.com/wonny/screener/internal/selection"
	"github.com/wonny/screener/internal/series"
	"github.com/wonny/screener/internal/universe"
	"github.com/wonny/screener/pkg/config"
	"github.com/wonny/screener/pkg/database"
	"github.com/wonny/screener/pkg/httputil"
	"github.com/wonny/screener/pkg/logger"
	"github.com/wonny/screener/pkg/redis"
)

const redisPrefix = "screener"

// deps holds everything a command needs, built once per process
type deps struct {
	cfg      *config.Config
	profile  *profile.Profile // nil unless --profile is given
	log      *logger.Logger
	redis    *redis.Client
	db       *database.DB // nil unless Postgres is configured
	universe universe.Source
	reader   *series.Reader
	screener *selection.Screener
	runs     *selection.Repository // nil unless Postgres is configured
}

// loadConfig loads configuration and applies profile and global flag overrides.
// Flags win over the profile, the profile wins over the environment.
func loadConfig() (*config.Config, *profile.Profile, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}

	var prof *profile.Profile
	if profilePath != "" {
		prof, err = profile.Load(profilePath)
		if err != nil {
			return nil, nil, fmt.Errorf("load profile %s: %w", profilePath, err)
		}
		if prof.Meta.Market != "" {
			cfg.Screening.Market = prof.Meta.Market
		}
		if prof.Meta.Schedule != "" {
			cfg.Screening.Schedule = prof.Meta.Schedule
		}
	}

	if market != "" {
		cfg.Screening.Market = market
	}
	if universeSource != "" {
		cfg.Screening.UniverseSource = universeSource
	}
	if verbose {
		cfg.LogLevel = "debug"
	}

	switch cfg.Screening.Market {
	case "kr", "us":
	default:
		return nil, nil, fmt.Errorf("--market must be one of: kr, us")
	}
	switch cfg.Screening.UniverseSource {
	case "remote":
	case "postgres":
		if cfg.Database.URL == "" {
			return nil, nil, fmt.Errorf("DATABASE_URL is required for --universe-source postgres")
		}
	default:
		return nil, nil, fmt.Errorf("--universe-source must be one of: remote, postgres")
	}

	return cfg, prof, nil
}

// logProfile records which profile (and which revision of it, by hash) shaped this run
func logProfile(log *logger.Logger, prof *profile.Profile) {
	profLog := log.WithFields(map[string]interface{}{
		"profile": prof.Meta.ProfileID,
		"version": prof.Meta.Version,
	})

	hash, err := profile.Hash(prof)
	if err != nil {
		profLog.WithError(err).Warn("Failed to hash screening profile")
	} else {
		profLog = profLog.WithField("hash", hash)
	}
	profLog.Info("Screening profile loaded")

	for _, w := range profile.Warn(prof) {
		log.WithField("code", w.Code).Warn(w.Message)
	}
}

// buildDeps wires config, clients, universe, reader and screener
func buildDeps(ctx context.Context) (*deps, error) {
	cfg, prof, err := loadConfig()
	if err != nil {
		return nil, err
	}

	log := logger.New(cfg)
	d := &deps{cfg: cfg, profile: prof, log: log}

	if prof != nil {
		logProfile(log, prof)
	}

	// 1. Optional infrastructure
	d.redis, err = redis.New(cfg)
	if err != nil {
		return nil, fmt.Errorf("connect to redis: %w", err)
	}

	if cfg.Database.URL != "" {
		d.db, err = database.New(ctx, cfg)
		if err != nil {
			d.Close()
			return nil, fmt.Errorf("connect to database: %w", err)
		}
		d.runs = selection.NewRepository(d.db.Pool)
		if err := d.runs.EnsureSchema(ctx); err != nil {
			d.Close()
			return nil, fmt.Errorf("ensure run history schema: %w", err)
		}
		log.Info("Connected to database")
	}

	// 2. Sources (가격 소스마다 분산 레이트 리밋 키가 다름)
	// http.Client (커넥션 풀)은 프로세스당 하나, 소스별 복사본이 공유
	limiter := redis.NewRateLimiter(d.redis, redisPrefix)
	httpClient := httputil.New(cfg, log)
	naverClient := naver.NewClient(
		httpClient.WithRateLimiter(limiter, redis.NaverRateLimit), cfg.Naver, log)

	var pages series.PageSource
	var remote universe.Source
	switch cfg.Screening.Market {
	case "us":
		pages = stockanalysis.NewClient(
			httpClient.WithRateLimiter(limiter, redis.StockAnalysisRateLimit), cfg.StockAnalysis, log)
		remote = universe.SourceFunc(func(ctx context.Context) ([]contracts.Instrument, error) {
			return naverClient.FetchUSListing(ctx, naver.USExchanges...)
		})
	default:
		pages = naverClient
		kind := krx.NewClient(httpClient, cfg.KRX, log)
		remote = universe.SourceFunc(func(ctx context.Context) ([]contracts.Instrument, error) {
			return kind.FetchListing(ctx, krx.KOSPI, krx.KOSDAQ)
		})
	}

	// 3. Universe
	var src universe.Source = remote
	if cfg.Screening.UniverseSource == "postgres" {
		src = universe.NewPostgresSource(d.db.Pool, postgresMarkets(cfg.Screening.Market)...)
	}
	cache := redis.NewCache(d.redis, redisPrefix)
	d.universe = universe.NewCached(
		universe.Dedup(src),
		cache,
		redis.UniverseKey(cfg.Screening.Market, cfg.Screening.UniverseSource),
		cfg.Screening.UniverseTTL,
		log,
	)

	// 4. Screening
	d.reader = series.NewReader(pages, log)
	d.screener = selection.NewScreener(d.universe, d.reader, log)

	return d, nil
}

// Close releases connections
func (d *deps) Close() {
	if d.db != nil {
		d.db.Close()
	}
	if d.redis != nil {
		_ = d.redis.Close()
	}
}

// criteria is the default criteria of this process: SCREEN_* settings with the profile laid over
func (d *deps) criteria() contracts.ScreeningCriteria {
	c := defaultCriteria(d.cfg)
	if d.profile != nil {
		c = d.profile.Apply(c)
	}
	return c
}

// defaultCriteria builds criteria from SCREEN_* settings
func defaultCriteria(cfg *config.Config) contracts.ScreeningCriteria {
	s := cfg.Screening
	return contracts.ScreeningCriteria{
		AmplitudeDays:   s.AmplitudeDays,
		AmplitudeMinPct: s.AmplitudeMinPct,
		AmplitudeMaxPct: s.AmplitudeMaxPct,
		NewHighDays:     s.NewHighDays,
		RecentDays:      s.RecentDays,
		RowsPerPage:     rowsPerPage(cfg),
		Concurrency:     s.Concurrency,
	}
}

// rowsPerPage is the number of records one source page holds.
// The US history page carries the whole history on page 1.
func rowsPerPage(cfg *config.Config) int {
	if cfg.Screening.Market == "us" {
		return stockanalysis.RowsPerPage
	}
	return cfg.Screening.RowsPerPage
}

// postgresMarkets maps the market flag to data.stocks market values
func postgresMarkets(market string) []string {
	if market == "us" {
		return naver.USExchanges
	}
	return []string{krx.KOSPI.Tag, krx.KOSDAQ.Tag}
}
