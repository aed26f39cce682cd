package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	gfshutdown "github.com/gelmium/graceful-shutdown"
	"github.com/spf13/pflag"

	"skillswap/internal/chat"
	"skillswap/internal/config"
	"skillswap/internal/database"
	"skillswap/internal/review"
	"skillswap/internal/room"
	"skillswap/internal/security"
	"skillswap/internal/server"
	"skillswap/internal/session"
	wsocket "skillswap/internal/websocket"
)

func main() {
	flags := pflag.NewFlagSet("skillswap", pflag.ContinueOnError)
	configPath := flags.String("config", "skillswap.jsonc", "path to the JSONC config file")
	if err := flags.Parse(os.Args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			os.Exit(0)
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	bootLogger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	manager := config.NewConfigManager(*configPath, bootLogger)
	if err := manager.Initialize(); err != nil {
		bootLogger.Error("failed to load configuration", "path", *configPath, "error", err)
		os.Exit(1)
	}
	cfg := manager.GetConfig()
	logger := cfg.NewLogger()

	os.Exit(run(manager, cfg, logger))
}

func run(manager *config.ConfigManager, cfg *config.ServerConfig, logger *slog.Logger) int {
	ctx := context.Background()
	metrics := config.NewServerMetrics()
	validator := security.NewInputValidator(cfg)
	limiter := config.NewRateLimiter(cfg)
	manager.RegisterCallback(limiter.UpdateConfig)

	var chatRepo chat.Repository = chat.NewInMemoryRepository()
	var reviewRepo review.Repository = review.NewInMemoryRepository()
	var health server.HealthChecker
	var mongoDB *database.MongoDB
	if cfg.MongoURI != "" {
		mongoCfg := database.DefaultMongoConfig()
		mongoCfg.URI = cfg.MongoURI
		mongoCfg.Database = cfg.MongoDatabase
		mongoCfg.ConnectTimeout = cfg.MongoConnectTimeout.Duration
		mongoCfg.MaxPoolSize = cfg.MongoMaxPoolSize

		db, err := database.NewMongoDB(ctx, mongoCfg, logger)
		if err != nil {
			logger.Error("failed to connect to MongoDB", "error", err)
			return 1
		}
		if err := db.CreateIndexes(ctx); err != nil {
			logger.Error("failed to create MongoDB indexes", "error", err)
			_ = db.Close(ctx)
			return 1
		}
		mongoDB = db
		health = db
		chatRepo = chat.NewMongoRepository(db)
		reviewRepo = review.NewMongoRepository(db)
	} else {
		logger.Warn("mongo_uri not set, using in-memory storage")
	}

	relay := room.NewRelay(metrics, logger)
	connections := wsocket.NewManager(metrics, logger)

	srv := server.New(server.Dependencies{
		Chats:       chat.NewService(chatRepo, relay, validator, limiter, metrics, logger),
		Reviews:     review.NewService(reviewRepo, validator, metrics, logger),
		Sessions:    session.NewManager(cfg, logger),
		Sockets:     wsocket.NewHandler(cfg, connections, relay, metrics, logger),
		Rooms:       relay,
		Connections: connections,
		Metrics:     metrics,
		Database:    health,
		Logger:      logger,
	})

	httpServer := &http.Server{
		Addr:              cfg.Port,
		Handler:           srv,
		ReadHeaderTimeout: 10 * time.Second,
	}

	watchCtx, stopWatch := context.WithCancel(ctx)
	go manager.Watch(watchCtx)

	go func() {
		logger.Info("starting skillswap server", "addr", cfg.Port, "websocket", "/ws")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server failed", "error", err)
			os.Exit(1)
		}
	}()

	// Operations run concurrently; MongoDB closes only after HTTP traffic stops.
	operations := map[string]gfshutdown.Operation{
		"config-watcher": func(context.Context) error {
			stopWatch()
			return nil
		},
		"http-server": func(ctx context.Context) error {
			if err := httpServer.Shutdown(ctx); err != nil {
				return err
			}
			if err := connections.Shutdown(ctx, cfg.WriteTimeout.Duration); err != nil {
				return err
			}
			if mongoDB != nil {
				return mongoDB.Close(ctx)
			}
			return nil
		},
	}

	wait := gfshutdown.GracefulShutdown(ctx, cfg.ShutdownTimeout.Duration, operations)
	exitCode := <-wait
	logger.Info("server stopped", "exit_code", exitCode)
	return exitCode
}
