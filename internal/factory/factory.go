package factory

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/sqrrr/gamehub/internal/config"
	"github.com/sqrrr/gamehub/internal/dependencies/clock"
	"github.com/sqrrr/gamehub/internal/dependencies/random"
	"github.com/sqrrr/gamehub/internal/services/assets"
	"github.com/sqrrr/gamehub/internal/services/auth"
	"github.com/sqrrr/gamehub/internal/services/dictionary"
	"github.com/sqrrr/gamehub/internal/services/economy"
	"github.com/sqrrr/gamehub/internal/services/ledger"
	"github.com/sqrrr/gamehub/internal/services/lobby"
	"github.com/sqrrr/gamehub/internal/services/round"
	"github.com/sqrrr/gamehub/internal/services/scheduler"
	"github.com/sqrrr/gamehub/internal/socket"
	"github.com/sqrrr/gamehub/internal/storage"
	"github.com/sqrrr/gamehub/internal/storage/memory"
	"github.com/sqrrr/gamehub/internal/storage/postgres"
	redisstorage "github.com/sqrrr/gamehub/internal/storage/redis"
)

// App contains all wired application components
type App struct {
	// Storage
	Storage storage.Storage

	// External dependencies
	Clock  clock.Clock
	Random random.Random

	// Services
	Dictionary *dictionary.Service
	Ledger     *ledger.Ledger
	Auth       *auth.Service
	Registry   *lobby.Registry
	Catalog    *round.Catalog
	Gate       *assets.Gate
	Scheduler  *scheduler.Scheduler
	Rounds     *round.Controller
	Economy    *economy.Service

	// Realtime
	Hub    *socket.Hub
	Socket *socket.Handler

	Logger *slog.Logger

	sweepInterval time.Duration
}

// Config holds configuration for the application factory
type Config struct {
	// Logger is the application logger (optional)
	// If nil, a no-op logger is used
	Logger *slog.Logger

	// StorageType selects the storage backend ("memory", "redis" or "postgres")
	// If empty, defaults to "memory"
	StorageType    string
	RedisConfig    *redisstorage.Config
	PostgresConfig *postgres.Config

	// DictionaryPath is the wordle word list. If empty, words saved in
	// storage by an earlier run are used.
	DictionaryPath string

	// Catalog is used as is when set, otherwise it is read from CatalogPath
	Catalog     *round.Catalog
	CatalogPath string

	// EconomyConfigPath overrides the built-in pay tables when set
	EconomyConfigPath string
	EconomySeed       []byte

	AuthConfig   auth.Config
	LobbyConfig  lobby.Config
	RoundConfig  round.Config
	AssetsConfig assets.Config
	SocketConfig socket.Config

	// SweepInterval paces expired token and abandoned session cleanup.
	// Defaults to one minute.
	SweepInterval time.Duration
}

// FromEnv maps environment configuration onto factory settings
func FromEnv(env *config.Config, logger *slog.Logger) Config {
	authCfg := auth.DefaultConfig()
	authCfg.SessionDuration = env.SessionDuration
	authCfg.AdminUsernames = env.AdminUsernames

	lobbyCfg := lobby.DefaultConfig()
	lobbyCfg.ChatHistoryLimit = env.ChatHistoryLimit

	roundCfg := round.DefaultConfig()
	roundCfg.RoundDuration = env.RoundDuration
	roundCfg.ExtendQuorumRatio = env.ExtendQuorumRatio
	roundCfg.AutoplayDelay = env.AutoplayDelay

	assetsCfg := assets.DefaultConfig()
	assetsCfg.TTL = env.AssetTokenTTL

	socketCfg := socket.DefaultConfig()
	socketCfg.RateLimit = env.SocketRateLimit
	socketCfg.RateBurst = env.SocketRateBurst
	socketCfg.AllowedOrigins = env.AllowedOrigins

	redisCfg := redisstorage.DefaultConfig()
	redisCfg.URL = env.RedisURL

	pgCfg := postgres.DefaultConfig()
	pgCfg.DSN = env.DSN()

	return Config{
		Logger:            logger,
		StorageType:       env.StorageType,
		RedisConfig:       &redisCfg,
		PostgresConfig:    &pgCfg,
		DictionaryPath:    env.DictionaryPath,
		CatalogPath:       env.CatalogPath,
		EconomyConfigPath: env.EconomyConfigPath,
		EconomySeed:       env.Seed(),
		AuthConfig:        authCfg,
		LobbyConfig:       lobbyCfg,
		RoundConfig:       roundCfg,
		AssetsConfig:      assetsCfg,
		SocketConfig:      socketCfg,
		SweepInterval:     env.AssetSweepInterval,
	}
}

// New creates a new application with all dependencies wired and the
// persisted ledger loaded
func New(ctx context.Context, cfg Config) (*App, error) {
	// Use no-op logger if not provided
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	cfg.Logger = logger

	catalog := cfg.Catalog
	if catalog == nil {
		if cfg.CatalogPath == "" {
			return nil, errors.New("CatalogPath required when no Catalog is given")
		}
		loaded, err := round.LoadCatalog(cfg.CatalogPath)
		if err != nil {
			return nil, err
		}
		catalog = loaded
	}
	if catalog.Len() == 0 {
		logger.Warn("catalog is empty; rounds cannot start")
	}

	econCfg := economy.DefaultConfig()
	if cfg.EconomyConfigPath != "" {
		loaded, err := economy.LoadConfig(cfg.EconomyConfigPath)
		if err != nil {
			return nil, err
		}
		econCfg = loaded
	}
	if len(cfg.EconomySeed) == 0 {
		return nil, errors.New("EconomySeed is required")
	}

	store, err := openStorage(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	app, err := newWithDependencies(dependencies{
		store:   store,
		clock:   clock.New(),
		random:  random.New(),
		tokens:  random.New(),
		rng:     economy.StreamSource(cfg.EconomySeed),
		catalog: catalog,
		economy: econCfg,
		logger:  logger,
	}, cfg)
	if err != nil {
		_ = store.Close()
		return nil, err
	}

	if err := app.Ledger.Load(ctx); err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("load ledger: %w", err)
	}
	app.loadDictionary(ctx, cfg.DictionaryPath)

	return app, nil
}

// openStorage connects the configured backend, falling back to memory when a
// durable store is unreachable
func openStorage(ctx context.Context, cfg Config, logger *slog.Logger) (storage.Storage, error) {
	storageType := cfg.StorageType
	if storageType == "" {
		storageType = config.StorageMemory
	}

	var (
		store storage.Storage
		err   error
	)
	switch storageType {
	case config.StorageMemory:
		return memory.New(), nil
	case config.StorageRedis:
		if cfg.RedisConfig == nil {
			return nil, errors.New("RedisConfig required when StorageType is redis")
		}
		store, err = redisstorage.New(*cfg.RedisConfig)
	case config.StoragePostgres:
		if cfg.PostgresConfig == nil {
			return nil, errors.New("PostgresConfig required when StorageType is postgres")
		}
		dialCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		defer cancel()
		store, err = postgres.New(dialCtx, *cfg.PostgresConfig)
	default:
		return nil, fmt.Errorf("invalid StorageType %q: must be memory, redis or postgres", storageType)
	}

	if err != nil {
		logger.Warn("storage unavailable, falling back to memory",
			slog.String("storage", storageType),
			slog.String("error", err.Error()))
		return memory.New(), nil
	}
	logger.Info("storage connected", slog.String("storage", storageType))
	return store, nil
}

func (a *App) loadDictionary(ctx context.Context, path string) {
	if path != "" {
		err := a.Dictionary.LoadFromFile(ctx, path)
		if err == nil {
			a.Logger.Info("dictionary loaded", slog.Int("words", a.Dictionary.WordCount()))
			return
		}
		a.Logger.Warn("could not load dictionary file",
			slog.String("path", path),
			slog.String("error", err.Error()))
	}
	if err := a.Dictionary.LoadFromStorage(ctx); err != nil {
		a.Logger.Warn("no stored dictionary; wordle is unavailable", slog.String("error", err.Error()))
	}
}

type dependencies struct {
	store   storage.Storage
	clock   clock.Clock
	random  random.Random
	tokens  random.Random
	rng     economy.RandomSource
	catalog *round.Catalog
	economy economy.Config
	logger  *slog.Logger
}

// newWithDependencies creates an App with the given dependencies (useful for testing)
func newWithDependencies(deps dependencies, cfg Config) (*App, error) {
	logger := deps.logger

	if cfg.AuthConfig.SessionDuration == 0 {
		cfg.AuthConfig = auth.DefaultConfig()
	}
	if cfg.LobbyConfig == (lobby.Config{}) {
		cfg.LobbyConfig = lobby.DefaultConfig()
	}
	if cfg.RoundConfig.RoundDuration == 0 {
		cfg.RoundConfig = round.DefaultConfig()
	}
	if err := cfg.RoundConfig.Validate(); err != nil {
		return nil, fmt.Errorf("round config: %w", err)
	}
	if cfg.AssetsConfig.TTL == 0 {
		cfg.AssetsConfig = assets.DefaultConfig()
	}
	if cfg.SocketConfig.RateBurst == 0 {
		cfg.SocketConfig = socket.DefaultConfig()
	}

	dict := dictionary.New(deps.store)
	ledgerSvc := ledger.New(deps.store, deps.clock, logger)
	authSvc := auth.New(ledgerSvc, deps.clock, cfg.AuthConfig)
	registry := lobby.New(deps.store, deps.clock, deps.random, logger, cfg.LobbyConfig)
	gate := assets.New(deps.clock, deps.tokens, logger, cfg.AssetsConfig)
	sched := scheduler.New(deps.clock, logger)
	hub := socket.NewHub(logger)

	rounds := round.NewController(registry, deps.catalog, ledgerSvc, gate, sched,
		deps.store, deps.clock, deps.random, hub, logger, cfg.RoundConfig)

	econ, err := economy.New(ledgerSvc, deps.clock, deps.rng, logger, deps.economy, dict)
	if err != nil {
		return nil, err
	}

	socketHandler := socket.NewHandler(hub, authSvc, rounds, econ, registry, deps.clock, logger, cfg.SocketConfig)

	return &App{
		Storage:    deps.store,
		Clock:      deps.clock,
		Random:     deps.random,
		Dictionary: dict,
		Ledger:     ledgerSvc,
		Auth:       authSvc,
		Registry:   registry,
		Catalog:    deps.catalog,
		Gate:       gate,
		Scheduler:  sched,
		Rounds:     rounds,
		Economy:    econ,
		Hub:        hub,
		Socket:     socketHandler,
		Logger:     logger,

		sweepInterval: cfg.SweepInterval,
	}, nil
}

// Run starts the background workers and blocks until ctx is cancelled
func (a *App) Run(ctx context.Context) {
	sweepInterval := a.sweepInterval
	if sweepInterval <= 0 {
		sweepInterval = time.Minute
	}
	go a.Ledger.Run(ctx)
	go a.Gate.Run(ctx, sweepInterval)

	sweep := time.NewTicker(sweepInterval)
	defer sweep.Stop()
	sessions := time.NewTicker(time.Hour)
	defer sessions.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-sweep.C:
			a.Economy.Sweep()
		case <-sessions.C:
			if n := a.Auth.CleanExpiredSessions(); n > 0 {
				a.Logger.Info("expired sessions removed", slog.Int("count", n))
			}
		}
	}
}

// StopRealtime cancels every round timer and disconnects all sockets.
// Hijacked websocket connections are not covered by http.Server.Shutdown,
// so this runs first.
func (a *App) StopRealtime() {
	a.Scheduler.Stop()
	a.Hub.Close()
}

// Close flushes dirty users and closes storage
func (a *App) Close(ctx context.Context) error {
	var errs []error
	if err := a.Ledger.Flush(ctx); err != nil {
		errs = append(errs, fmt.Errorf("flush ledger: %w", err))
	}
	if err := a.Storage.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close storage: %w", err))
	}
	return errors.Join(errs...)
}
