package config

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	HTTPAddr string

	// DBDSN selects the backing database. A MySQL DSN
	// (user:pass@tcp(host:port)/db?...) uses the MySQL driver; anything else is
	// treated as a SQLite file path. Empty means ./streamchat.db.
	DBDSN string

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// Search
	SerperAPIKey   string
	SearchCacheTTL time.Duration

	// rabbitMQ (empty RabbitURL disables event publishing)
	RabbitURL   string
	RabbitQueue string

	ArchiveFile string
}

func Load() Config {
	addr := os.Getenv("HTTP_ADDR")
	if addr == "" {
		addr = ":8080"
	}

	dsn := os.Getenv("DB_DSN")
	if dsn == "" {
		dsn = "streamchat.db"
	}

	redisAddr := os.Getenv("REDIS_ADDR")
	if redisAddr == "" {
		redisAddr = "127.0.0.1:6379"
	}

	redisDB := 0
	if v := os.Getenv("REDIS_DB"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			redisDB = n
		}
	}

	cacheTTL := 15 * time.Minute
	if v := os.Getenv("SEARCH_CACHE_TTL_SECONDS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cacheTTL = time.Duration(n) * time.Second
		}
	}

	rabbitQueue := os.Getenv("RABBIT_QUEUE")
	if rabbitQueue == "" {
		rabbitQueue = "chat_completed"
	}

	archiveFile := os.Getenv("ARCHIVE_FILE")
	if archiveFile == "" {
		archiveFile = "chat_archive.jsonl"
	}

	return Config{
		HTTPAddr: addr,
		DBDSN:    dsn,

		RedisAddr:     redisAddr,
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
		RedisDB:       redisDB,

		SerperAPIKey:   os.Getenv("SERPER_API_KEY"),
		SearchCacheTTL: cacheTTL,

		RabbitURL:   os.Getenv("RABBIT_URL"),
		RabbitQueue: rabbitQueue,

		ArchiveFile: archiveFile,
	}
}
