package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "realtime_chat/docs"
	"realtime_chat/internal/config"
	"realtime_chat/internal/gateway"
	"realtime_chat/internal/handlers"
	"realtime_chat/internal/logger"
	"realtime_chat/internal/repository"
	"realtime_chat/internal/repository/db"
	"realtime_chat/internal/repository/mongodb"
	"realtime_chat/internal/server"
	"realtime_chat/internal/service"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg, err := config.Load("configs")
	if err != nil {
		logger.Get(logger.InfoLevel).Fatalw("error reading config", "err", err)
	}

	// init logger
	log := logger.Init(cfg.LogLevel, cfg.LogFormat)
	defer func() { _ = log.Sync() }()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// guest registry (redis)
	guests, closeGuests, err := openGuestRegistry(ctx, cfg.Redis, log)
	if err != nil {
		log.Fatalw("failed to connect to redis", "err", err)
	}
	defer closeGuests()

	// open store
	repos, closeStore, err := openStore(ctx, cfg.Store, guests, log)
	if err != nil {
		log.Fatalw("failed to open store", "driver", cfg.Store.Driver, "err", err)
	}
	defer closeStore()

	// wire dependencies
	services := service.NewService(repos, service.Options{
		SigningKey:  cfg.Auth.SigningKey,
		TokenTTL:    cfg.Auth.TokenTTL,
		GuestPolicy: cfg.Guest.Policy,
		GuestTTL:    cfg.Guest.TTL,
	})
	if cfg.Auth.SigningKey == "" {
		log.Warnw("auth.signing_key not set; using the built-in development key")
	}
	if cfg.Guest.Policy == service.GuestPolicyMinted && repos.Guests == nil {
		log.Warnw("guests.policy is minted but no guest registry is configured; guests cannot connect")
	}

	hub := gateway.NewHub(services.Chat, gateway.NewRegistry(), log)
	go hub.Run(ctx)

	realtime := gateway.New(services, hub, log, cfg.AllowedOrigins)
	apiHandler := handlers.NewHandler(services, realtime, log)

	// start HTTP server
	srv := &server.Server{}
	runHTTPServer(srv, cfg.Port, server.WithCORS(apiHandler.InitRoutes(), cfg.AllowedOrigins), log)
	log.Infow("server_started", "port", cfg.Port, "store", cfg.Store.Driver, "guest_policy", cfg.Guest.Policy)

	// graceful shutdown
	waitForShutdown(cancel, srv, log)
}

// openStore connects the configured backend and returns the repository
// aggregate with a cleanup func.
func openStore(ctx context.Context, cfg config.StoreConfig, guests repository.GuestRegistry, log *logger.Logger) (*repository.Repository, func(), error) {
	switch cfg.Driver {
	case config.DriverMongo:
		client, err := mongodb.Connect(ctx, cfg.MongoURI)
		if err != nil {
			return nil, nil, err
		}
		database := client.Database(cfg.MongoDatabase)
		if err := mongodb.EnsureIndexes(ctx, database); err != nil {
			_ = client.Disconnect(context.Background())
			return nil, nil, err
		}
		log.Infow("store_connected", "driver", cfg.Driver, "database", cfg.MongoDatabase)
		return mongodb.NewRepository(database, guests), func() {
			if err := client.Disconnect(context.Background()); err != nil {
				log.Errorw("failed to disconnect mongo", "err", err)
			}
		}, nil
	default:
		path := cfg.SQLitePath
		if path == "" {
			log.Infow("db.path not set in config; using default file", "default", "chat.db")
			path = "chat.db"
		}
		sqlDB, err := db.InitDB(path)
		if err != nil {
			return nil, nil, err
		}
		log.Infow("store_connected", "driver", config.DriverSQLite, "path", path)
		return repository.NewRepository(sqlDB, guests), func() {
			if err := sqlDB.Close(); err != nil {
				log.Errorw("failed to close sqlite", "err", err)
			}
		}, nil
	}
}

// openGuestRegistry connects to redis, or starts an embedded server when no
// URL is configured. With neither, guests run without a registry.
func openGuestRegistry(ctx context.Context, cfg config.RedisConfig, log *logger.Logger) (repository.GuestRegistry, func(), error) {
	url := cfg.URL
	var embedded *miniredis.Miniredis
	if url == "" {
		if !cfg.Embedded {
			log.Infow("guest registry disabled")
			return nil, func() {}, nil
		}
		mr, err := miniredis.Run()
		if err != nil {
			return nil, nil, fmt.Errorf("start embedded redis: %w", err)
		}
		embedded = mr
		url = "redis://" + mr.Addr()
		log.Infow("embedded redis started", "addr", mr.Addr())
	}

	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, nil, fmt.Errorf("ping redis: %w", err)
	}
	return repository.NewGuestRedis(client), func() {
		_ = client.Close()
		if embedded != nil {
			embedded.Close()
		}
	}, nil
}

// runHTTPServer runs the HTTP server in a separate goroutine.
func runHTTPServer(srv *server.Server, port string, handler http.Handler, log *logger.Logger) {
	go func() {
		if port == "" {
			port = "3000"
		}
		if err := srv.Run(port, handler); err != nil {
			log.Fatalw("error starting server", "err", err)
		}
	}()
}

// waitForShutdown listens for termination signals and performs graceful shutdown.
func waitForShutdown(cancel context.CancelFunc, srv *server.Server, log *logger.Logger) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Infow("shutting down server...")

	// stop the hub; it closes every realtime connection
	cancel()

	// allow in-flight requests to complete
	ctx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Errorw("server forced to shutdown", "err", err)
	}
}
