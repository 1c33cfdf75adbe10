// Command calendar-warmer precomputes the booked-dates calendar of every
// published property into redis.
package main

import (
	"context"
	"database/sql"
	"os"
	"os/signal"
	"sync"
	"sync/atomic"
	"syscall"

	_ "github.com/go-sql-driver/mysql"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/semaphore"

	"airnest/internal/adapters/observability"
	redisad "airnest/internal/adapters/redis"
	"airnest/internal/app"
	"airnest/internal/shared"
	mysqlrepo "airnest/internal/storage/mysql"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	cfg := shared.Load()

	log.Logger = observability.NewLogger(cfg.AppEnv, cfg.LogLevel)

	log.Info().
		Int("workers", cfg.WarmWorkers).
		Dur("ttl", cfg.CacheTTL).
		Msg("calendar warmer starting")

	db, err := sql.Open("mysql", cfg.MySQLDSN)
	if err != nil {
		log.Fatal().Err(err).Msg("sql.Open failed")
	}
	defer db.Close()
	if err := db.PingContext(ctx); err != nil {
		log.Fatal().Err(err).Msg("db.Ping failed")
	}
	log.Info().Msg("db ping ok")

	repo := mysqlrepo.New(db)
	cache := redisad.New(cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB)
	defer cache.Close()
	if err := cache.Ping(ctx); err != nil {
		log.Fatal().Err(err).Msg("redis ping failed")
	}
	bookings := app.NewBookingService(repo, repo, cache, nil, cfg.CacheTTL)

	ids, err := repo.ListPublishedIDs(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("list published properties failed")
	}

	workers := cfg.WarmWorkers
	if workers < 1 {
		workers = 1
	}
	sem := semaphore.NewWeighted(int64(workers))
	var wg sync.WaitGroup
	var failed atomic.Int64

	for _, id := range ids {
		// acquire before launching the goroutine; release inside it
		if err := sem.Acquire(ctx, 1); err != nil {
			log.Warn().Err(err).Msg("warming interrupted")
			break
		}

		wg.Add(1)
		go func(propertyID string) {
			defer wg.Done()
			defer sem.Release(1)

			if err := bookings.WarmCalendar(ctx, propertyID); err != nil {
				failed.Add(1)
				log.Warn().Str("property", propertyID).Err(err).Msg("warm failed")
				return
			}
			log.Debug().Str("property", propertyID).Msg("warm ok")
		}(id)
	}

	wg.Wait()
	log.Info().Int("properties", len(ids)).Int64("failed", failed.Load()).Msg("calendar warming completed")
	if failed.Load() > 0 {
		os.Exit(1)
	}
}
