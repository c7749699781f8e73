package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"streamchat/internal/config"
	"streamchat/internal/db"
	"streamchat/internal/events"
	"streamchat/internal/httpapi"
	"streamchat/internal/httpapi/handlers"
	"streamchat/internal/provider"
	"streamchat/internal/search"
	"streamchat/internal/session"
)

func main() {
	cfg := config.Load()

	gdb := db.Connect(cfg.DBDSN)
	if err := gdb.AutoMigrate(&session.Session{}, &session.Message{}); err != nil {
		log.Fatalf("db migrate: %v", err)
	}

	sessions := session.NewService(session.NewRepo(gdb))

	// Redis is a cache only; an unreachable server degrades to uncached search.
	var rdb *redis.Client
	if cfg.RedisAddr != "" {
		rdb = redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		pingCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		if err := rdb.Ping(pingCtx).Err(); err != nil {
			log.Printf("redis unavailable, search cache disabled: %v", err)
			rdb = nil
		}
		cancel()
	}

	var pub *events.Publisher
	if cfg.RabbitURL != "" {
		p, err := events.NewPublisher(cfg.RabbitURL, cfg.RabbitQueue)
		if err != nil {
			log.Printf("rabbit unavailable, completion events disabled: %v", err)
		} else {
			pub = p
			defer pub.Close()
		}
	}

	h := handlers.NewHandler(
		sessions,
		provider.DefaultRegistry(),
		search.NewClient(rdb, cfg.SearchCacheTTL),
		cfg.SerperAPIKey,
		pub,
	)

	srv := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: httpapi.NewRouter(h),
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		log.Printf("server listening on %s", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("listen: %v", err)
		}
	}()

	<-ctx.Done()
	log.Printf("server shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("shutdown: %v", err)
	}
}
