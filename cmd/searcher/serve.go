package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/spf13/cobra"

	"github.com/Adithya-Monish-Kumar-K/fieldsearch/internal/catalog"
	"github.com/Adithya-Monish-Kumar-K/fieldsearch/internal/searcher/cache"
	"github.com/Adithya-Monish-Kumar-K/fieldsearch/internal/searcher/executor"
	"github.com/Adithya-Monish-Kumar-K/fieldsearch/internal/searcher/handler"
	"github.com/Adithya-Monish-Kumar-K/fieldsearch/internal/searcher/reload"
	"github.com/Adithya-Monish-Kumar-K/fieldsearch/pkg/health"
	"github.com/Adithya-Monish-Kumar-K/fieldsearch/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/fieldsearch/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/fieldsearch/pkg/middleware"
	pkgredis "github.com/Adithya-Monish-Kumar-K/fieldsearch/pkg/redis"
)

var serveWatch bool

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the query API over HTTP",
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().BoolVar(&serveWatch, "watch", true, "reload the store when a new build is committed to its directory")
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	store, err := resolveStore(ctx)
	if err != nil {
		return err
	}
	slog.Info("starting search service", "port", cfg.Server.Port, "store", store)

	m := metrics.New()
	if cfg.Metrics.Enabled {
		shutdown, err := metrics.StartServer(fmt.Sprintf(":%d", cfg.Metrics.Port), m)
		if err != nil {
			return err
		}
		defer shutdown(context.Background())
	}

	holder, err := executor.OpenHolder(store, m)
	if err != nil {
		return err
	}
	defer holder.Close()

	checker := health.NewChecker()
	checker.Register("index_store", health.StoreCheck(holder))

	exec := executor.New(holder, cfg.Search, m)
	var cacheAdmin handler.CacheAdmin
	if cfg.Redis.Addr != "" {
		redisClient, err := pkgredis.NewClient(cfg.Redis)
		if err != nil {
			slog.Warn("redis unavailable, search caching disabled", "error", err)
			msg := "caching disabled: " + err.Error()
			checker.Register("redis", func(context.Context) health.ComponentHealth {
				return health.ComponentHealth{Status: health.StatusDegraded, Message: msg}
			})
		} else {
			defer redisClient.Close()
			queryCache := cache.New(redisClient, cfg.Redis, m)
			exec.WithCache(queryCache)
			cacheAdmin = queryCache
			checker.Register("redis", health.PingCheck(redisClient))
			slog.Info("search cache enabled", "addr", cfg.Redis.Addr, "ttl", cfg.Redis.CacheTTL)
		}
	}

	if cfg.Catalog.Driver != "" {
		cat, err := catalog.Open(ctx, cfg.Catalog)
		if err != nil {
			slog.Warn("catalog unavailable", "error", err)
		} else {
			defer cat.Close()
			checker.Register("catalog", health.PingCheck(cat))
		}
	}

	reloader, err := reload.New(holder, store)
	if err != nil {
		return err
	}
	if serveWatch {
		if err := reloader.Watch(ctx); err != nil {
			return err
		}
	}
	if len(cfg.Kafka.Brokers) > 0 {
		consumer := kafka.NewConsumer(cfg.Kafka, cfg.Kafka.Topics.IndexComplete, reloader.HandleMessage)
		go func() {
			if err := consumer.Start(ctx); err != nil {
				slog.Error("index notification consumer error", "error", err)
			}
		}()
		slog.Info("listening for index notifications", "topic", cfg.Kafka.Topics.IndexComplete)
	}

	mux := http.NewServeMux()
	handler.New(exec, cacheAdmin, cfg.Search).Register(mux)
	mux.HandleFunc("GET /health/live", checker.LiveHandler())
	mux.HandleFunc("GET /health/ready", checker.ReadyHandler())

	var chain http.Handler = mux
	chain = middleware.Timeout(cfg.Server.WriteTimeout)(chain)
	chain = middleware.Metrics(m)(chain)
	chain = middleware.RequestID(chain)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      chain,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		<-ctx.Done()
		slog.Info("shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("server shutdown error", "error", err)
		}
	}()

	slog.Info("search service listening", "addr", server.Addr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("serving: %w", err)
	}
	slog.Info("search service stopped")
	return nil
}
