package main

import (
	"context"
	"log"
	"log/slog"
	"os"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"

	"talenthub/internal/ai"
	"talenthub/internal/ai/gemini"
	"talenthub/internal/config"
	"talenthub/internal/database"
	"talenthub/internal/metrics"
	"talenthub/internal/storage"
	"talenthub/internal/tasks"
	"talenthub/internal/worker"
)

func main() {
	cfg := config.MustLoad()

	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	db, err := database.InitDatabase(cfg.Database)
	if err != nil {
		log.Fatalf("init database: %v", err)
	}
	logger.Info("database connection ready for worker")

	storageClient, err := storage.NewClient(cfg.MinIO)
	if err != nil {
		log.Fatalf("init storage client: %v", err)
	}
	logger.Info("storage client ready", slog.String("bucket", cfg.MinIO.Bucket))

	redisAddr := cfg.Redis.Addr()
	redisClient := redis.NewClient(&redis.Options{Addr: redisAddr})
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Error("close redis client failed", slog.Any("error", err))
		}
	}()

	if err := redisClient.Ping(context.Background()).Err(); err != nil {
		log.Fatalf("ping redis: %v", err)
	}

	server := asynq.NewServer(asynq.RedisClientOpt{Addr: redisAddr}, asynq.Config{
		Concurrency: 10,
	})

	analyzeHandler := worker.NewAnalyzeTaskHandler(db, storageClient, redisClient, buildAnalyzer(cfg, logger), logger)

	mux := asynq.NewServeMux()
	mux.Use(metrics.AsynqMetricsMiddleware())
	mux.Handle(tasks.TypeResumeAnalyze, analyzeHandler)

	logger.Info("worker service started", slog.String("redis_addr", redisAddr))
	if err := server.Run(mux); err != nil {
		logger.Error("worker server stopped", slog.Any("error", err))
	}
}

// buildAnalyzer 初始化 Gemini 简历分析后端。
// 未配置 API key 时返回 nil，worker 整体走关键词解析路径。
func buildAnalyzer(cfg *config.Config, logger *slog.Logger) ai.Analyzer {
	if cfg.Gemini.APIKey == "" {
		logger.Warn("gemini api key not configured, ai resume analysis disabled")
		return nil
	}

	client, err := gemini.NewClient(context.Background(), cfg.Gemini.APIKey, cfg.Gemini.Model)
	if err != nil {
		logger.Error("init gemini client failed, ai resume analysis disabled", slog.Any("error", err))
		return nil
	}

	logger.Info("gemini analyzer ready", slog.String("model", client.Model()))
	return gemini.NewAnalyzer(client, logger, cfg.Gemini.Timeout)
}
