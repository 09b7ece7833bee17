package factory

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/mcoot/tileworld/internal/api"
	"github.com/mcoot/tileworld/internal/config"
	"github.com/mcoot/tileworld/internal/dependencies/clock"
	"github.com/mcoot/tileworld/internal/dependencies/idgen"
	"github.com/mcoot/tileworld/internal/feed"
	"github.com/mcoot/tileworld/internal/gateway"
	"github.com/mcoot/tileworld/internal/model"
	"github.com/mcoot/tileworld/internal/persist"
	"github.com/mcoot/tileworld/internal/presence"
	"github.com/mcoot/tileworld/internal/relay"
	"github.com/mcoot/tileworld/internal/services/auth"
	"github.com/mcoot/tileworld/internal/storage"
	"github.com/mcoot/tileworld/internal/storage/cache"
	"github.com/mcoot/tileworld/internal/storage/memory"
	mongostorage "github.com/mcoot/tileworld/internal/storage/mongo"
	redisstorage "github.com/mcoot/tileworld/internal/storage/redis"
)

// App contains all wired application components
type App struct {
	// Storage
	Storage storage.ProfileStore

	// External dependencies
	Clock clock.Clock
	IDs   idgen.Generator

	// Services
	AuthService *auth.Service
	Registry    *presence.MemoryRegistry
	Syncer      *persist.Syncer
	Relay       *relay.Relay
	Gateway     *gateway.Handler
	Feed        feed.Publisher
	FeedServer  *feed.EmbeddedServer // nil unless feed.embedded is set

	// Router is the complete HTTP handler (REST API + websocket endpoint)
	Router http.Handler

	logger *slog.Logger
	cancel context.CancelFunc
}

// New creates a new application with all dependencies wired from cfg.
// If logger is nil, a no-op logger is used.
func New(ctx context.Context, cfg config.Config, logger *slog.Logger) (*App, error) {
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}

	store, err := newStorage(ctx, cfg.Storage)
	if err != nil {
		return nil, err
	}

	publisher, feedServer, err := newFeed(cfg.Feed, logger)
	if err != nil {
		closeStore(store)
		return nil, err
	}

	app := newWithDependencies(store, clock.New(), idgen.New(), publisher, cfg, logger)
	app.FeedServer = feedServer
	return app, nil
}

func newStorage(ctx context.Context, cfg config.StorageConf) (storage.ProfileStore, error) {
	var store storage.ProfileStore

	switch cfg.Type {
	case "", config.StorageMemory:
		store = memory.New()
	case config.StorageRedis:
		redisCfg := redisstorage.DefaultConfig()
		redisCfg.URL = cfg.Redis.URL
		redisCfg.KeyPrefix = cfg.Redis.KeyPrefix
		redisCfg.PoolSize = cfg.Redis.PoolSize
		redisCfg.MinIdleConns = cfg.Redis.MinIdleConns
		redisStore, err := redisstorage.New(redisCfg)
		if err != nil {
			return nil, fmt.Errorf("redis storage: %w", err)
		}
		store = redisStore
	case config.StorageMongo:
		mongoCfg := mongostorage.DefaultConfig()
		mongoCfg.URI = cfg.Mongo.URI
		mongoCfg.Database = cfg.Mongo.Database
		mongoCfg.Collection = cfg.Mongo.Collection
		mongoStore, err := mongostorage.New(ctx, mongoCfg)
		if err != nil {
			return nil, fmt.Errorf("mongo storage: %w", err)
		}
		store = mongoStore
	default:
		return nil, errors.New("invalid storage type: must be 'memory', 'redis' or 'mongo'")
	}

	if !cfg.Cache.Enabled {
		return store, nil
	}
	cached, err := cache.New(store, cache.Config{MaxCost: cfg.Cache.MaxCost, TTL: cfg.Cache.TTL})
	if err != nil {
		closeStore(store)
		return nil, fmt.Errorf("profile cache: %w", err)
	}
	return cached, nil
}

func newFeed(cfg config.FeedConf, logger *slog.Logger) (feed.Publisher, *feed.EmbeddedServer, error) {
	url := cfg.URL
	var srv *feed.EmbeddedServer

	if cfg.Embedded {
		var err error
		srv, err = feed.NewEmbeddedServer(logger, feed.WithPort(cfg.EmbeddedPort))
		if err != nil {
			return nil, nil, err
		}
		if err := srv.Start(); err != nil {
			return nil, nil, err
		}
		url = srv.ClientURL()
	}

	if url == "" {
		return feed.Nop{}, nil, nil
	}

	publisher, err := feed.Connect(url, cfg.SubjectPrefix, logger)
	if err != nil {
		if srv != nil {
			srv.Shutdown()
		}
		return nil, nil, err
	}
	return publisher, srv, nil
}

// newWithDependencies creates an App with the given dependencies (useful for testing)
func newWithDependencies(store storage.ProfileStore, clk clock.Clock, ids idgen.Generator, publisher feed.Publisher, cfg config.Config, logger *slog.Logger) *App {
	authService := auth.New(store, clk, ids, auth.Config{
		JWTSecret: cfg.Auth.JWTSecret,
		TokenTTL:  cfg.Auth.TokenTTL,
	})
	registry := presence.NewRegistry()
	syncer := persist.New(store, persist.Config{
		QueueSize:    cfg.Persist.QueueSize,
		WriteTimeout: cfg.Persist.WriteTimeout,
	}, logger)

	rl := relay.New(registry, syncer, clk, logger, relay.Config{
		Spawn:              model.Position{X: cfg.World.SpawnX, Y: cfg.World.SpawnY},
		SessionPolicy:      relay.SessionPolicy(cfg.Session.Policy),
		CheckpointInterval: cfg.Persist.CheckpointInterval,
	}, relay.WithFeed(publisher))

	authenticator := gateway.NewAuthenticator(authService, store, cfg.Auth.LookupTimeout, logger)
	gw := gateway.NewHandler(authenticator, rl, ids, gateway.Config{
		WriteWait:      gateway.DefaultConfig().WriteWait,
		PongWait:       cfg.WS.PongWait,
		PingPeriod:     cfg.WS.PingPeriod,
		SendBuffer:     cfg.WS.SendBuffer,
		MaxMessageSize: cfg.WS.MaxMessageSize,
	}, logger)

	router := api.NewRouter(api.RouterConfig{
		Logger:      logger,
		Clock:       clk,
		AuthService: authService,
		Registry:    registry,
		WSHandler:   gw,
	})

	return &App{
		Storage:     store,
		Clock:       clk,
		IDs:         ids,
		AuthService: authService,
		Registry:    registry,
		Syncer:      syncer,
		Relay:       rl,
		Gateway:     gw,
		Feed:        publisher,
		Router:      router,
		logger:      logger,
	}
}

// Start launches the persistence worker and the relay loop
func (a *App) Start(ctx context.Context) {
	ctx, a.cancel = context.WithCancel(ctx)
	a.Syncer.Start()
	go a.Relay.Run(ctx)
}

// Close stops the relay (disconnecting every player), drains pending
// checkpoints and releases external connections.
func (a *App) Close() error {
	if a.cancel != nil {
		a.cancel()
		<-a.Relay.Done()
	}
	// Leave writes queued during shutdown are drained here
	a.Syncer.Close()

	var errs []error
	if err := a.Feed.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close feed: %w", err))
	}
	if a.FeedServer != nil {
		a.FeedServer.Shutdown()
	}
	if closer, ok := a.Storage.(storage.Closer); ok {
		if err := closer.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close storage: %w", err))
		}
	}
	a.logger.Info("application stopped")
	return errors.Join(errs...)
}

func closeStore(store storage.ProfileStore) {
	if closer, ok := store.(storage.Closer); ok {
		_ = closer.Close()
	}
}
