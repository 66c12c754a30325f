package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"slack-emoji-bot/internal/ai"
	"slack-emoji-bot/internal/bot"
	"slack-emoji-bot/internal/config"
	"slack-emoji-bot/internal/database"
	"slack-emoji-bot/internal/label"
	"slack-emoji-bot/internal/recommend"
	"slack-emoji-bot/internal/vector"
)

func main() {
	// No .env file is fine in production
	_ = godotenv.Load()
	cfg := config.Load()

	logger := newLogger()
	defer logger.Sync()

	db, err := database.NewDB(cfg.DBHost, cfg.DBUser, cfg.DBPassword, cfg.DBName, cfg.DBPort)
	if err != nil {
		logger.Fatal("connect to database", zap.Error(err))
	}

	embedder := newEmbedder(cfg, logger)
	index := vector.NewPGIndex(db.DB)
	transport := bot.NewSlackTransport(cfg.SlackBotToken)

	recommender := recommend.NewRecommender(db, embedder, index, transport, logger)
	labels := label.NewService(db, embedder, index, logger)
	handler := bot.NewHandler(recommender, labels, transport, cfg.EventTimeout, logger)

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: bot.NewRouter(handler, cfg.SlackSigningSecret, logger),
	}

	go func() {
		logger.Info("emoji recommendation bot is running", zap.String("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("http server", zap.Error(err))
		}
	}()

	// Wait for interrupt signal
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown", zap.Error(err))
	}
}

func newLogger() *zap.Logger {
	var (
		logger *zap.Logger
		err    error
	)
	if os.Getenv("APP_ENV") == "production" {
		logger, err = zap.NewProduction()
	} else {
		logger, err = zap.NewDevelopment()
	}
	if err != nil {
		panic(err)
	}
	return logger
}

// newEmbedder picks the embedding provider and wraps it with the redis
// cache when one is configured.
func newEmbedder(cfg *config.Config, logger *zap.Logger) ai.Embedder {
	var embedder ai.Embedder
	switch cfg.EmbeddingProvider {
	case "openai":
		embedder = ai.NewOpenAIEmbedder(cfg.OpenAIAPIKey)
	default:
		embedder = ai.NewGatewayEmbedder(cfg.EmbeddingURL, cfg.EmbeddingToken,
			cfg.EmbeddingDim, cfg.RetryCount, cfg.RetryWait)
	}

	if cfg.RedisAddr == "" {
		return embedder
	}
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	})
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		logger.Warn("redis unreachable, embedding cache disabled", zap.Error(err))
		return embedder
	}
	return ai.NewCachedEmbedder(embedder, rdb, logger)
}
