package main

import (
	"context"
	"os"
	"strconv"
	"time"

	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/vidscribe/transcript-dispatcher/pkg/cache"
	"github.com/vidscribe/transcript-dispatcher/pkg/dispatcher"
	"github.com/vidscribe/transcript-dispatcher/pkg/logging"
	"github.com/vidscribe/transcript-dispatcher/pkg/ratelimit"
	"github.com/vidscribe/transcript-dispatcher/pkg/transcript"
)

func main() {
	logging.Setup(logging.Config{
		Level:  logging.LogLevel(getEnv("LOG_LEVEL", "info")),
		Pretty: getEnv("LOG_PRETTY", "") == "true",
		Output: os.Stderr,
	})

	port := getEnv("PORT", "8080")

	cfg := dispatcher.Config{
		MaxWorkers:   getEnvInt("MAX_WORKERS", 10),
		MaxBatchSize: getEnvInt("MAX_BATCH_SIZE", 50),
		Rate: ratelimit.Config{
			InitialRate:            getEnvFloat("INITIAL_RATE", 5),
			MinRate:                getEnvFloat("MIN_RATE", 1),
			MaxRate:                getEnvFloat("MAX_RATE", 20),
			BackoffFactor:          getEnvFloat("BACKOFF_FACTOR", 1.5),
			RecoveryFactor:         getEnvFloat("RECOVERY_FACTOR", 1.25),
			SuccessThreshold:       getEnvInt("SUCCESS_THRESHOLD", 10),
			MaxConsecutiveFailures: getEnvInt("MAX_CONSECUTIVE_FAILURES", 5),
		},
		Retry: dispatcher.RetryConfig{
			MaxAttempts:    getEnvInt("RETRY_MAX_ATTEMPTS", 3),
			Delay:          getEnvDuration("RETRY_DELAY", 500*time.Millisecond),
			AttemptTimeout: getEnvDuration("ATTEMPT_TIMEOUT", 20*time.Second),
		},
	}

	var provider transcript.Provider = transcript.NewYouTubeProvider(transcript.YouTubeConfig{
		BaseURL:   getEnv("UPSTREAM_URL", transcript.DefaultBaseURL),
		UserAgent: getEnv("USER_AGENT", "transcript-dispatcher/0.1.0"),
		Timeout:   getEnvDuration("UPSTREAM_TIMEOUT", 15*time.Second),
	})

	// Redis-backed transcript cache is optional. Without it every request
	// goes straight upstream.
	if redisURL := os.Getenv("REDIS_URL"); redisURL != "" {
		redisClient := redis.NewClient(&redis.Options{
			Addr: redisURL,
		})
		if err := redisClient.Ping(context.Background()).Err(); err != nil {
			log.Fatal().Err(err).Str("redis_url", redisURL).Msg("Failed to connect to Redis")
		}
		log.Info().Str("redis_url", redisURL).Msg("Transcript cache enabled")

		manager := cache.NewManager(redisClient, getEnvDuration("CACHE_TTL", time.Hour))
		provider = cache.NewCachedProvider(provider, manager)
	}

	d, err := dispatcher.New(provider, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create dispatcher")
	}

	srv := newServer(d)

	mux := http.NewServeMux()
	mux.HandleFunc("POST /transcript", srv.handleSingle)
	mux.HandleFunc("POST /transcripts/batch", srv.handleBatch)
	mux.HandleFunc("GET /transcript", srv.handleSingleQuery)
	mux.HandleFunc("GET /transcript/text", srv.handleTextOnly)
	mux.HandleFunc("GET /health", srv.handleHealth)
	mux.HandleFunc("GET /stats", srv.handleStats)
	mux.Handle("GET /metrics", promhttp.Handler())

	addr := ":" + port
	log.Info().
		Str("addr", addr).
		Int("max_workers", cfg.MaxWorkers).
		Int("max_batch_size", cfg.MaxBatchSize).
		Msg("Starting transcript dispatcher server")

	if err := http.ListenAndServe(addr, mux); err != nil {
		log.Fatal().Err(err).Msg("Server failed")
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
		log.Warn().Str("key", key).Str("value", value).Msg("Invalid integer env value, using default")
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
		log.Warn().Str("key", key).Str("value", value).Msg("Invalid float env value, using default")
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
		log.Warn().Str("key", key).Str("value", value).Msg("Invalid duration env value, using default")
	}
	return defaultValue
}
