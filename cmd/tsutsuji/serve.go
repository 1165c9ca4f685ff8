package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/cors"
	"github.com/spf13/cobra"

	"github.com/Mr-Leon909/tsutsuji-app/config"
	database "github.com/Mr-Leon909/tsutsuji-app/db"
	"github.com/Mr-Leon909/tsutsuji-app/handler"
	"github.com/Mr-Leon909/tsutsuji-app/health"
	natsClient "github.com/Mr-Leon909/tsutsuji-app/nats"
	"github.com/Mr-Leon909/tsutsuji-app/persist"
	"github.com/Mr-Leon909/tsutsuji-app/pkg/jwt"
	"github.com/Mr-Leon909/tsutsuji-app/publisher"
	"github.com/Mr-Leon909/tsutsuji-app/repository"
	"github.com/Mr-Leon909/tsutsuji-app/store"
	"github.com/Mr-Leon909/tsutsuji-app/subscriber"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP client and the gRPC health sidecar",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			return serve(cmd.Context(), cfg)
		},
	}
}

func serve(ctx context.Context, cfg *config.Config) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	if cfg.AutoMigrate {
		if err := database.Migrate(cfg.Database, "up"); err != nil {
			return err
		}
	}

	dbConn, err := database.NewConnection(cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer dbConn.Close()
	log.Println("Database connected successfully")

	tokens := jwt.NewManager(cfg.Session.Secret, cfg.Session.Expiry)

	persister, closePersister, err := newPersister(ctx, cfg)
	if err != nil {
		return err
	}
	defer closePersister()

	// NATS is optional; without it events are dropped
	var nc *natsClient.Client
	if cfg.NATS.URL != "" {
		nc, err = natsClient.NewClient(natsClient.Config{
			URL:           cfg.NATS.URL,
			MaxReconnects: cfg.NATS.MaxReconnects,
			ReconnectWait: cfg.NATS.ReconnectWait,
			ClientID:      cfg.NATS.ClientID,
		})
		if err != nil {
			log.Printf("Failed to connect to NATS, continuing without events: %v", err)
			nc = nil
		}
	}
	eventPublisher := publisher.NewEventPublisher(nc, cfg.NATS.ClientID)

	users := repository.NewUserRepository(dbConn.DB)
	posts := repository.NewPostRepository(dbConn.DB)
	likes := repository.NewLikeRepository(dbConn.DB)
	comments := repository.NewCommentRepository(dbConn.DB)

	sessionStore := store.NewSessionStore(users, persister, tokens)
	feedStore := store.NewFeedStore(posts, likes,
		store.WithRollback(cfg.RollbackOnFailure),
		store.WithPostEvents(eventPublisher),
	)
	commentStore := store.NewCommentStore(comments, users,
		store.WithRollback(cfg.RollbackOnFailure),
		store.WithCommentEvents(eventPublisher),
	)

	if user := sessionStore.Restore(ctx); user == nil {
		log.Println("No stored session, login required")
	}

	if nc != nil {
		refresher := subscriber.NewRefresher(ctx, nc, cfg.NATS.ClientID, sessionStore, feedStore, commentStore)
		if err := refresher.Start(); err != nil {
			log.Printf("Failed to start refresher: %v", err)
		} else {
			defer refresher.Stop()
		}
	}

	h := handler.New(sessionStore, feedStore, commentStore, users, handler.Options{
		UploadsDir:     cfg.UploadsDir,
		MaxUploadBytes: cfg.MaxUploadBytes,
		AllowedOrigins: cfg.AllowedOrigins,
	})
	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Content-Type", "Accept", "X-Requested-With"},
		AllowCredentials: true,
	})
	httpServer := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           corsHandler.Handler(h.Routes()),
		ReadHeaderTimeout: 10 * time.Second,
	}

	healthServer := health.NewServer(dbConn, tokens, cfg.HealthInterval)
	listener, err := net.Listen("tcp", fmt.Sprintf(":%s", cfg.GRPCPort))
	if err != nil {
		return fmt.Errorf("failed to listen on port %s: %w", cfg.GRPCPort, err)
	}
	go healthServer.Watch(ctx)

	go func() {
		log.Printf("gRPC health server listening on port %s", cfg.GRPCPort)
		if err := healthServer.Serve(listener); err != nil {
			log.Printf("Failed to serve gRPC: %v", err)
		}
	}()

	go func() {
		log.Printf("HTTP server listening on port %s", cfg.HTTPPort)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Failed to serve HTTP: %v", err)
		}
	}()

	// Graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	log.Println("Shutting down...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("HTTP shutdown error: %v", err)
	}
	healthServer.GracefulStop()
	if nc != nil {
		if err := nc.Drain(); err != nil {
			log.Printf("NATS drain error: %v", err)
		}
	}
	log.Println("Stopped cleanly")
	return nil
}

func newPersister(ctx context.Context, cfg *config.Config) (persist.Persister, func(), error) {
	if cfg.Session.Backend == config.SessionBackendRedis {
		redisClient := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.URL,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			PoolSize: 10,
		})
		if err := redisClient.Ping(ctx).Err(); err != nil {
			redisClient.Close()
			return nil, nil, fmt.Errorf("failed to connect to Redis: %w", err)
		}
		log.Println("Redis connected successfully")
		return persist.NewRedisPersister(redisClient, cfg.Redis.KeyPrefix, cfg.Session.Expiry), func() { redisClient.Close() }, nil
	}

	p, err := persist.NewFilePersister(cfg.Session.Dir)
	if err != nil {
		return nil, nil, err
	}
	return p, func() {}, nil
}
