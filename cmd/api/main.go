package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"syscall"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/oklog/run"
	"github.com/rs/zerolog/log"

	server "airnest/internal/adapters/http_server"
	"airnest/internal/adapters/observability"
	"airnest/internal/adapters/rabbitmq"
	redisad "airnest/internal/adapters/redis"
	"airnest/internal/adapters/turnstile"
	"airnest/internal/app"
	"airnest/internal/domain"
	"airnest/internal/shared"
	"airnest/internal/storage/memory"
	mysqlrepo "airnest/internal/storage/mysql"
)

// store is what both storage drivers provide.
type store interface {
	domain.PropertyRepository
	domain.ReservationRepository
	domain.ReviewRepository
	domain.WishlistRepository
	domain.DraftRepository
}

func main() {
	cfg := shared.Load()

	// set global logger (console in dev, JSON otherwise)
	log.Logger = observability.NewLogger(cfg.AppEnv, cfg.LogLevel)

	repo, closeRepo := openStore(cfg)
	defer closeRepo()

	cache := redisad.New(cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB)
	defer cache.Close()
	pingCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	if err := cache.Ping(pingCtx); err != nil {
		// reads fall through to storage while redis is down
		log.Warn().Err(err).Str("addr", cfg.RedisAddr).Msg("redis ping failed")
	}
	cancel()

	var events domain.EventPublisher
	if cfg.AMQPURL != "" {
		pub := rabbitmq.New(cfg.AMQPURL)
		defer pub.Close()
		events = pub
	} else {
		log.Warn().Msg("AMQP_URL is empty; reservation events disabled")
	}

	var bot domain.BotVerifier
	if cfg.TurnstileSecret != "" {
		tc, err := turnstile.New(cfg.TurnstileURL, cfg.TurnstileSecret, cfg.TurnstileRPS)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to initialize turnstile client")
		}
		bot = tc
	}

	handlers := &server.Handlers{
		Bookings: app.NewBookingService(repo, repo, cache, events, cfg.CacheTTL).
			WithObserver(observability.ObserveBooking),
		Properties: app.NewPropertyQueries(repo, repo, cache, cfg.CacheTTL, cfg.SearchWorkers),
		Reviews:    app.NewReviewService(repo, repo, repo, cache, cfg.CacheTTL),
		Wishlist:   app.NewWishlistService(repo, repo),
		Drafts:     app.NewDraftService(repo, cache),
		Listings:   app.NewListingService(repo, cache),
	}

	// http
	srv := server.New(cfg.RequestTimeout)
	srv.MountHandlers(handlers, server.Security{
		JWTSecret:      cfg.JWTSecret,
		BookingLimiter: server.NewClientLimiter(cfg.BookingRPS, cfg.BookingBurst),
		Bot:            bot,
	})
	reg := observability.InitRegistry()
	metricsSrv := observability.NewMetricsServer(cfg.MetricsAddr, reg)
	httpSrv := &http.Server{Addr: cfg.HTTPAddr, Handler: srv.Mux(), ReadHeaderTimeout: 5 * time.Second}

	g := &run.Group{}
	g.Add(func() error {
		log.Info().Str("addr", cfg.HTTPAddr).Msg("API listening")
		return httpSrv.ListenAndServe()
	}, func(error) {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpSrv.Shutdown(ctx); err != nil {
			log.Error().Err(err).Msg("http shutdown failed")
		}
	})
	g.Add(func() error {
		log.Info().Str("addr", cfg.MetricsAddr).Msg("metrics listening")
		return metricsSrv.ListenAndServe()
	}, func(error) {
		if err := metricsSrv.Close(); err != nil {
			log.Error().Err(err).Msg("failed to stop metrics server")
		}
	})
	g.Add(run.SignalHandler(context.Background(), syscall.SIGINT, syscall.SIGTERM))

	err := g.Run()
	var sig run.SignalError
	switch {
	case errors.As(err, &sig):
		log.Info().Str("signal", sig.Signal.String()).Msg("shutting down")
	case err != nil && !errors.Is(err, http.ErrServerClosed):
		log.Error().Err(err).Msg("server stopped")
		closeRepo()
		os.Exit(1)
	}
}

func openStore(cfg shared.Config) (store, func()) {
	switch cfg.Storage {
	case "memory":
		log.Warn().Msg("using in-memory storage; data is lost on exit")
		return memory.New(), func() {}
	case "mysql":
	default:
		log.Fatal().Str("driver", cfg.Storage).Msg("unknown STORAGE_DRIVER")
	}

	db, err := sql.Open("mysql", cfg.MySQLDSN)
	if err != nil {
		log.Fatal().Err(err).Msg("sql.Open failed")
	}
	if err := db.Ping(); err != nil {
		log.Fatal().Err(err).Msg("db.Ping failed")
	}
	log.Info().Msg("database connection ok")
	return mysqlrepo.New(db), func() { _ = db.Close() }
}
