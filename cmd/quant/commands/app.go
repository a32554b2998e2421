package commands

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"

	"github.com/wonny/fundquant/internal/analysisconfig"
	"github.com/wonny/fundquant/internal/collector"
	"github.com/wonny/fundquant/internal/contracts"
	"github.com/wonny/fundquant/internal/external/eastmoney"
	"github.com/wonny/fundquant/internal/source/tdx"
	"github.com/wonny/fundquant/internal/store"
	"github.com/wonny/fundquant/pkg/config"
	"github.com/wonny/fundquant/pkg/database"
	"github.com/wonny/fundquant/pkg/httputil"
	"github.com/wonny/fundquant/pkg/logger"
	"github.com/wonny/fundquant/pkg/redis"
)

// Source names accepted by --source
const (
	sourceTDX       = "tdx"
	sourceDB        = "db"
	sourceEastmoney = "eastmoney"
)

// app bundles the shared dependencies every command builds the same way
// ⭐ SSOT: 커맨드 공통 초기화는 여기서만
type app struct {
	cfg    *config.Config
	log    *logger.Logger
	db     *database.DB // nil = DATABASE_URL 미설정
	redis  *redis.Client
	cache  *redis.Cache
	remote *eastmoney.Client
}

// loadConfig applies the global flags and reads the environment
func loadConfig() (*config.Config, error) {
	if configFile != "" {
		if err := godotenv.Load(configFile); err != nil {
			return nil, fmt.Errorf("load config file %s: %w", configFile, err)
		}
	}
	if env != "" {
		if err := os.Setenv("ENV", env); err != nil {
			return nil, err
		}
	}

	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if verbose {
		cfg.LogLevel = "debug"
	}
	return cfg, nil
}

// newApp connects everything a command may need. The database is optional:
// without DATABASE_URL a.db stays nil and DB-backed features are skipped.
func newApp(ctx context.Context, needDB bool) (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	log := logger.New(cfg)

	a := &app{cfg: cfg, log: log}

	db, err := database.New(ctx, cfg)
	switch {
	case errors.Is(err, database.ErrNotConfigured):
		if needDB {
			return nil, fmt.Errorf("this command needs DATABASE_URL: %w", err)
		}
		log.Debug("Database not configured, running without persistence")
	case err != nil:
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	default:
		if err := db.Migrate(ctx); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to migrate database: %w", err)
		}
		a.db = db
	}

	rc, err := redis.New(ctx, cfg)
	if err != nil {
		// 캐시는 선택 사항: 연결 실패 시 비활성 클라이언트로 계속
		log.WithError(err).Warn("Redis unavailable, caching disabled")
		rc, _ = redis.New(ctx, &config.Config{})
	}
	a.redis = rc
	a.cache = redis.NewCache(rc, "fundquant")

	httpClient := httputil.New(log).WithRate(cfg.Eastmoney.RatePerSec, 1)
	if rc.Enabled() {
		// 여러 프로세스가 같은 사이트를 호출할 때 공유 한도
		limit := redis.NewRateLimiter(rc, "fundquant").Bind(redis.EastmoneyRateLimit(cfg.Eastmoney.RatePerSec))
		httpClient.WithLimiter(limit)
	}
	a.remote = eastmoney.NewClient(httpClient, cfg.Eastmoney, log.WithField("module", "eastmoney"))

	return a, nil
}

// Close releases connections
func (a *app) Close() {
	if a.db != nil {
		a.db.Close()
	}
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.log.WithError(err).Warn("Failed to close redis")
		}
	}
}

// profile loads the analysis profile from path (flag) or ANALYSIS_PROFILE
func (a *app) profile(path string) (*analysisconfig.Profile, error) {
	if path == "" {
		path = a.cfg.Analysis.ProfilePath
	}
	p, _, err := analysisconfig.Load(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load analysis profile: %w", err)
	}
	return p, nil
}

// source builds the series source named by --source
func (a *app) source(name string, codes []string) (contracts.SeriesSource, error) {
	switch name {
	case sourceTDX:
		if a.cfg.Analysis.TDXDataDir == "" {
			return nil, fmt.Errorf("TDX_DATA_DIR is not set")
		}
		return tdx.NewReader(a.cfg.Analysis.TDXDataDir, a.log.WithField("module", "tdx")), nil
	case sourceDB:
		if a.db == nil {
			return nil, fmt.Errorf("source db needs DATABASE_URL: %w", database.ErrNotConfigured)
		}
		return store.NewPriceRepository(a.db.Pool), nil
	case sourceEastmoney:
		if len(codes) == 0 {
			return nil, fmt.Errorf("source eastmoney needs --codes")
		}
		return collector.NewRemoteSource(a.remote, codes, a.cache), nil
	default:
		return nil, fmt.Errorf("unknown source %q (tdx|db|eastmoney)", name)
	}
}

// defaultSource picks db when a database is configured, else tdx
func (a *app) defaultSource() string {
	if a.db != nil {
		return sourceDB
	}
	return sourceTDX
}

// names returns stored names, topped up from eastmoney when remote is true
func (a *app) names(ctx context.Context, remote bool) contracts.NameLookup {
	var known contracts.StaticNames
	if a.db != nil {
		stored, err := store.NewFundRepository(a.db.Pool).Names(ctx)
		if err != nil {
			a.log.WithError(err).Warn("Failed to load stored fund names")
		}
		known = stored
	}
	if remote {
		return eastmoney.NewNameResolver(ctx, a.remote, known)
	}
	return known
}

// collector builds the NAV collector; it writes to the database
func (a *app) collector() (*collector.Collector, error) {
	if a.db == nil {
		return nil, fmt.Errorf("collection needs DATABASE_URL: %w", database.ErrNotConfigured)
	}
	return collector.NewCollector(
		a.remote,
		store.NewPriceRepository(a.db.Pool),
		store.NewFundRepository(a.db.Pool),
		a.cache,
		a.log,
	), nil
}

// splitCodes parses "000001,110022" (spaces allowed)
func splitCodes(s string) []string {
	var codes []string
	for _, c := range strings.Split(s, ",") {
		if c = strings.TrimSpace(c); c != "" {
			codes = append(codes, c)
		}
	}
	return codes
}
