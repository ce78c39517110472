package main

import (
	"context"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"

	"dishmap/internal/adapters/blob"
	server "dishmap/internal/adapters/http_server"
	"dishmap/internal/adapters/observability"
	"dishmap/internal/adapters/places"
	redisad "dishmap/internal/adapters/redis"
	"dishmap/internal/app"
	"dishmap/internal/domain"
	"dishmap/internal/media"
	"dishmap/internal/shared"
	"dishmap/internal/storage"
)

func main() {
	_ = godotenv.Load() // .env is optional

	cfg, err := shared.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}

	// set global logger (console in dev, JSON otherwise)
	log.Logger = observability.NewLogger(cfg.AppEnv, cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	reg := observability.InitRegistry()
	observability.Serve(cfg.MetricsAddr, reg)

	// record store
	records, closeStore, err := storage.Open(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Str("backend", cfg.RecordStore).Msg("open record store failed")
	}
	defer closeStore()
	log.Info().Str("backend", cfg.RecordStore).Msg("record store ready")

	// media
	blobs, localDir, err := blob.Open(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Str("backend", cfg.MediaBackend).Msg("open media backend failed")
	}
	gen := media.NewGenerator(blobs, cfg.MediaWorkers)

	// provider
	client, err := places.New(cfg.PlacesBase, cfg.PlacesKey, cfg.PlacesRPS, cfg.UpstreamTimeout)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize places client")
	}
	var gw domain.PlacesGateway = client
	if cfg.RedisAddr != "" && cfg.DetailsCacheTTL > 0 {
		cache := redisad.New(cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB)
		defer cache.Close()
		if err := cache.Ping(ctx); err != nil {
			log.Warn().Err(err).Str("addr", cfg.RedisAddr).Msg("redis unreachable; details cache will fall through")
		}
		gw = places.NewCachedGateway(client, cache, cfg.DetailsCacheTTL)
		log.Info().Dur("ttl", cfg.DetailsCacheTTL).Msg("details cache enabled")
	}

	// http
	srv := server.New()
	if cfg.MetricsAddr == "" {
		srv.Mount("/metrics", observability.MetricsHandler(reg))
	}
	srv.MountHandlers(&server.Handlers{
		Search:  app.NewSearchService(gw, records),
		Detail:  app.NewDetailService(gw, records),
		Ingest:  app.NewIngestionService(blobs, gen, records),
		Photos:  app.NewPhotoService(gw),
		Records: app.NewRecordService(records),
	})
	if localDir != "" {
		srv.MountStatic(blob.PublicPrefix, localDir)
	}

	httpSrv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           srv.Mux(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpSrv.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("http shutdown failed")
		}
	}()

	log.Info().Str("addr", httpSrv.Addr).Msg("API listening")
	if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatal().Err(err).Msg("http server failed")
	}
	log.Info().Msg("API stopped")
}
