package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"slices"
	"strings"
	"syscall"
	"time"

	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"

	"github.com/supchat-io/notifyhub/internal/api"
	"github.com/supchat-io/notifyhub/internal/config"
	"github.com/supchat-io/notifyhub/internal/counter"
	"github.com/supchat-io/notifyhub/internal/dispatch"
	"github.com/supchat-io/notifyhub/internal/hub"
	"github.com/supchat-io/notifyhub/internal/prefs"
	"github.com/supchat-io/notifyhub/internal/stats"
	"github.com/supchat-io/notifyhub/internal/store"
)

const defaultSigningKey = "wT0phFUusHZIrDhL9bUKPUhwaxKhpi/SaI6PtgB+MgU="

type stringSliceFlag []string

func (s *stringSliceFlag) String() string {
	return strings.Join(*s, ",")
}

func (s *stringSliceFlag) Set(value string) error {
	*s = append(*s, strings.Split(value, ",")...)
	return nil
}

var (
	addr           string
	dsn            string
	redisAddr      string
	signingKey     string
	allowedOrigins stringSliceFlag
)

func main() {
	flag.StringVar(&addr, "addr", "localhost:8000", "server address")
	flag.StringVar(&dsn, "dsn", "host=localhost user=postgres password=postgres dbname=postgres sslmode=disable", "database connection string")
	flag.StringVar(&redisAddr, "redis-addr", "", "redis address for unread counters; empty uses in-memory counters")
	flag.StringVar(&signingKey, "signing-key", defaultSigningKey, "base64 encoded signing key")
	flag.Var(&allowedOrigins, "allowed-origins", "comma-separated list of allowed origins for CORS")
	flag.Parse()

	logger := log.New(os.Stderr, "[notifyhub] ", log.LstdFlags)

	cfg, err := config.NewConfig(addr, dsn, redisAddr, signingKey, allowedOrigins)
	if err != nil {
		logger.Fatal("config:", err)
	}

	repo, err := store.NewPgNotifyRepository(cfg.DatabaseDSN)
	if err != nil {
		logger.Fatal("db open:", err)
	}
	defer func() {
		if err := repo.Close(); err != nil {
			logger.Fatal("db close:", err)
		}
	}()

	var counters counter.Store
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		if err := rdb.Ping(context.Background()).Err(); err != nil {
			logger.Fatal("redis ping:", err)
		}
		counters = counter.NewRedisStore(rdb)
	} else {
		logger.Println("no redis address configured, using in-memory counters")
		counters = counter.NewMemoryStore()
	}

	mux := http.NewServeMux()

	statsUpdater := stats.NewStatsUpdater(mux)

	// channel rooms are joinable by members only; workspace rooms are
	// open to any authenticated connection
	authorizer := hub.AuthorizerFunc(func(userId, roomId string) bool {
		channelId, ok := strings.CutPrefix(roomId, "channel:")
		if !ok {
			return strings.HasPrefix(roomId, "workspace:")
		}

		members, err := repo.ChannelMembers(channelId)
		if err != nil {
			logger.Println("channel members:", err)
			return false
		}

		return slices.Contains(members, userId)
	})

	notifyHub := hub.NewHub(logger, statsUpdater, authorizer)
	prefsSvc := prefs.NewService(logger, repo)
	dispatcher := dispatch.NewDispatcher(logger, repo, counters, notifyHub, prefsSvc, statsUpdater, cfg.EventQueueSize)

	srv := api.NewNotifyApp(mux, logger, notifyHub, dispatcher, repo, counters, prefsSvc, statsUpdater, cfg)

	statsUpdater.Run()
	defer statsUpdater.Stop()

	go dispatcher.Run()

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigs:
		logger.Printf("received signal: %s\n", sig)
	case err := <-errCh:
		logger.Println("server:", err)
	}

	shutDownCtx, cancel := context.WithTimeout(
		context.Background(),
		10*time.Second,
	)
	defer cancel()

	if err := srv.Shutdown(shutDownCtx); err != nil {
		logger.Fatalln("HTTP server shutdown:", err)
	}

	logger.Println("shutting down dispatcher...")
	dispatcher.Shutdown()

	logger.Println("shutdown complete")
}
