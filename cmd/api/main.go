// @title                       SEO CRM API
// @version                     1.0
// @description                 Clients, keywords and backlinks of an SEO agency, behind role-based routing and tenant-scoped access.
// @BasePath                    /
// @securityDefinitions.apikey  BearerAuth
// @in                          header
// @name                        Authorization
package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"

	_ "github.com/rankwise/seo-crm/docs"
	"github.com/rankwise/seo-crm/internal/api"
	mongostore "github.com/rankwise/seo-crm/internal/infrastructure/db/mongo"
	"github.com/rankwise/seo-crm/internal/infrastructure/db/postgres"
	redisstore "github.com/rankwise/seo-crm/internal/infrastructure/db/redis"
	"github.com/rankwise/seo-crm/internal/pkg/config"
	"github.com/rankwise/seo-crm/pkg/logger"
)

func main() {
	cfg := config.Load()
	log := logger.Init(logger.Options{
		Level:   cfg.LogLevel,
		Pretty:  !cfg.IsProduction(),
		Service: "seo-crm",
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// --- Postgres ---
	db, err := postgres.Connect(ctx, postgres.Config{
		DSN:          cfg.Postgres.DSN,
		MaxOpenConns: cfg.Postgres.MaxOpenConns,
		Timeout:      cfg.StoreTimeout,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("postgres connection failed")
	}
	defer db.Close()

	if cfg.Postgres.Migrate {
		if err := postgres.Migrate(ctx, db); err != nil {
			log.Fatal().Err(err).Msg("schema migration failed")
		}
	}

	// --- MongoDB (audit trail) ---
	mongoClient, mongoDB, err := mongostore.Connect(ctx, mongostore.Config{
		URI:      cfg.Mongo.URI,
		Database: cfg.Mongo.Database,
		AppName:  "seo-crm",
		Timeout:  cfg.StoreTimeout,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("mongodb connection failed")
	}
	defer func() { _ = mongoClient.Disconnect(context.Background()) }()

	if err := mongostore.NewAuditRepository(mongoDB, cfg.StoreTimeout).EnsureIndexes(ctx); err != nil {
		log.Warn().Err(err).Msg("audit indexes not created")
	}

	// --- Redis (session revocation) ---
	rdb, err := redisstore.Connect(ctx, redisstore.Config{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
		Timeout:  cfg.StoreTimeout,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("redis connection failed")
	}
	defer rdb.Close()

	e := api.NewRouter(cfg, api.Dependencies{Postgres: db, Mongo: mongoDB, Redis: rdb}, log)

	go func() {
		log.Info().Str("port", cfg.Port).Str("env", cfg.Env).Msg("server starting")
		if err := e.Start(":" + cfg.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown failed")
	}
}
