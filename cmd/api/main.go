package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"

	"talenthub/internal/ai"
	"talenthub/internal/ai/gemini"
	"talenthub/internal/api"
	"talenthub/internal/auth"
	"talenthub/internal/config"
	"talenthub/internal/database"
	"talenthub/internal/matching"
	"talenthub/internal/storage"
)

func main() {
	cfg := config.MustLoad()

	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	db, err := database.InitDatabase(cfg.Database)
	if err != nil {
		log.Fatalf("init database: %v", err)
	}
	logger.Info("database connection ready")

	if err := db.AutoMigrate(
		&database.User{},
		&database.Resume{},
		&database.JobPosting{},
		&database.Application{},
	); err != nil {
		log.Fatalf("auto migrate: %v", err)
	}
	logger.Info("database migrated")

	privateKeyPEM, err := os.ReadFile(cfg.Auth.PrivateKeyPath)
	if err != nil {
		log.Fatalf("read jwt private key: %v", err)
	}
	publicKeyPEM, err := os.ReadFile(cfg.Auth.PublicKeyPath)
	if err != nil {
		log.Fatalf("read jwt public key: %v", err)
	}
	authService, err := auth.NewAuthService(privateKeyPEM, publicKeyPEM, cfg.Auth.AccessTTL, cfg.Auth.RefreshTTL)
	if err != nil {
		log.Fatalf("init auth service: %v", err)
	}

	storageClient, err := storage.NewClient(cfg.MinIO)
	if err != nil {
		log.Fatalf("init storage client: %v", err)
	}
	logger.Info("storage client ready", slog.String("bucket", cfg.MinIO.Bucket))

	redisClient := redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr()})
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Error("close redis client failed", slog.Any("error", err))
		}
	}()
	if err := redisClient.Ping(context.Background()).Err(); err != nil {
		log.Fatalf("ping redis: %v", err)
	}

	asynqClient := asynq.NewClient(asynq.RedisClientOpt{Addr: cfg.Redis.Addr()})
	defer func() {
		if err := asynqClient.Close(); err != nil {
			logger.Error("close asynq client failed", slog.Any("error", err))
		}
	}()

	recommender := buildRecommender(cfg, logger)
	matcher := matching.NewService(db, recommender, logger, cfg.Matching.MaxJobs)

	router := api.NewRouter(logger)
	api.RegisterRoutes(router, cfg, db, asynqClient, authService, redisClient, logger, storageClient, matcher)

	address := fmt.Sprintf(":%d", cfg.API.Port)
	logger.Info("api listening", slog.String("address", address))
	if err := router.Run(address); err != nil {
		log.Fatalf("failed to start api server: %v", err)
	}
}

// buildRecommender 初始化 Gemini 推荐后端。
// 未配置 API key 时返回 nil，匹配服务整体走启发式路径。
func buildRecommender(cfg *config.Config, logger *slog.Logger) ai.Recommender {
	if cfg.Gemini.APIKey == "" {
		logger.Warn("gemini api key not configured, ai recommendations disabled")
		return nil
	}

	client, err := gemini.NewClient(context.Background(), cfg.Gemini.APIKey, cfg.Gemini.Model)
	if err != nil {
		logger.Error("init gemini client failed, ai recommendations disabled", slog.Any("error", err))
		return nil
	}

	logger.Info("gemini recommender ready", slog.String("model", client.Model()))
	return gemini.NewRecommender(client, logger, cfg.Gemini.Timeout)
}
