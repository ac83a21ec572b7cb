package factory

import (
	"errors"
	"io"
	"log/slog"

	"github.com/NESSBZID/bncho/internal/api"
	"github.com/NESSBZID/bncho/internal/bancho"
	"github.com/NESSBZID/bncho/internal/dependencies/clock"
	"github.com/NESSBZID/bncho/internal/dependencies/geoloc"
	"github.com/NESSBZID/bncho/internal/dependencies/random"
	"github.com/NESSBZID/bncho/internal/state"
	"github.com/NESSBZID/bncho/internal/storage"
	"github.com/NESSBZID/bncho/internal/storage/memory"
	redisstorage "github.com/NESSBZID/bncho/internal/storage/redis"
	"github.com/NESSBZID/bncho/internal/transport"
)

// Storage type constants
const (
	StorageTypeMemory = "memory"
	StorageTypeRedis  = "redis"
)

// App contains all wired application components
type App struct {
	// Storage
	Storage storage.Storage

	// External dependencies
	Clock  clock.Clock
	Random random.Random
	Geoloc geoloc.Resolver

	// Components
	World     *state.World
	Bancho    *bancho.Server
	Transport *transport.Server
	API       *api.Server
}

// Config holds configuration for the application factory
type Config struct {
	// Logger is the application logger (optional)
	// If nil, a no-op logger is used
	Logger *slog.Logger
	// StorageType selects the storage backend ("memory" or "redis")
	// If empty, defaults to "memory"
	StorageType string
	// RedisConfig holds Redis connection settings (required if StorageType is "redis")
	RedisConfig *redisstorage.Config
	// BanchoConfig holds protocol settings (optional)
	// If zero value, defaults to bancho.DefaultConfig()
	BanchoConfig bancho.Config
	// TransportConfig holds TCP listener settings (optional)
	TransportConfig transport.Config
	// APIConfig holds status page listener settings (optional)
	APIConfig api.Config
}

// New creates a new application with all dependencies wired
func New(cfg Config) (*App, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}

	var store storage.Storage
	storageType := cfg.StorageType
	if storageType == "" {
		storageType = StorageTypeMemory
	}
	switch storageType {
	case StorageTypeMemory:
		store = memory.New()
	case StorageTypeRedis:
		if cfg.RedisConfig == nil {
			return nil, errors.New("RedisConfig required when StorageType is redis")
		}
		redisStore, err := redisstorage.New(*cfg.RedisConfig)
		if err != nil {
			return nil, err
		}
		store = redisStore
	default:
		return nil, errors.New("invalid StorageType: must be 'memory' or 'redis'")
	}

	clk := clock.New()
	rnd := random.New()
	geo := geoloc.New()

	banchoCfg := cfg.BanchoConfig
	if banchoCfg.SessionTimeout == 0 {
		banchoCfg = bancho.DefaultConfig()
	}
	transportCfg := cfg.TransportConfig
	if transportCfg.Addr == "" {
		transportCfg = transport.DefaultConfig()
	}
	apiCfg := cfg.APIConfig
	if apiCfg.Addr == "" {
		apiCfg = api.DefaultConfig()
	}

	return newWithDependencies(store, clk, rnd, geo, banchoCfg, transportCfg, apiCfg, logger), nil
}

// newWithDependencies creates an App with the given dependencies (useful for testing)
func newWithDependencies(
	store storage.Storage,
	clk clock.Clock,
	rnd random.Random,
	geo geoloc.Resolver,
	banchoCfg bancho.Config,
	transportCfg transport.Config,
	apiCfg api.Config,
	logger *slog.Logger,
) *App {
	world := state.NewWorld(logger, clk)
	banchoSrv := bancho.NewServer(
		banchoCfg,
		logger,
		world,
		store,
		bancho.NewBasicCommands(rnd),
		geo,
		clk,
		rnd,
	)

	return &App{
		Storage:   store,
		Clock:     clk,
		Random:    rnd,
		Geoloc:    geo,
		World:     world,
		Bancho:    banchoSrv,
		Transport: transport.NewServer(transportCfg, logger, banchoSrv),
		API:       api.NewServer(apiCfg, logger, banchoSrv),
	}
}
