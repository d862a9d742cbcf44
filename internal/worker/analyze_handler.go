package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"talenthub/internal/ai"
	"talenthub/internal/database"
	"talenthub/internal/errcode"
	"talenthub/internal/matching"
	"talenthub/internal/metrics"
	"talenthub/internal/storage"
	"talenthub/internal/tasks"
)

// 简历文件读取上限，超出部分忽略。
const maxResumeFileBytes = 10 << 20

// AnalyzeTaskHandler 负责消费简历解析任务。
// AI 分析为增强路径：不可用时回退到关键词解析，任务照常完成。
type AnalyzeTaskHandler struct {
	db          *gorm.DB
	storage     *storage.Client
	redisClient *redis.Client
	analyzer    ai.Analyzer
	logger      *slog.Logger
}

// NewAnalyzeTaskHandler 创建任务处理器。analyzer 可为 nil。
func NewAnalyzeTaskHandler(
	db *gorm.DB,
	storageClient *storage.Client,
	redisClient *redis.Client,
	analyzer ai.Analyzer,
	logger *slog.Logger,
) *AnalyzeTaskHandler {
	return &AnalyzeTaskHandler{
		db:          db,
		storage:     storageClient,
		redisClient: redisClient,
		analyzer:    analyzer,
		logger:      logger,
	}
}

// ProcessTask 实现 asynq.Handler。
func (h *AnalyzeTaskHandler) ProcessTask(ctx context.Context, t *asynq.Task) (retErr error) {
	log := h.logger

	var payload tasks.ResumeAnalyzePayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		log.Error("unmarshal task payload failed", slog.Any("error", err))
		return err
	}

	log = log.With(
		slog.String("correlation_id", payload.CorrelationID),
		slog.Int("resume_id", int(payload.ResumeID)),
	)
	log.Info("starting resume analysis task")

	var resume database.Resume
	if err := h.db.WithContext(ctx).First(&resume, payload.ResumeID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			log.Warn("resume not found, skipping task")
			return nil
		}
		log.Error("query resume failed", slog.Any("error", err))
		return err
	}

	log = log.With(slog.Uint64("user_id", uint64(resume.UserID)))

	defer func() {
		if retErr == nil {
			return
		}
		if !isFinalAsynqAttempt(ctx) {
			return
		}

		if err := h.db.WithContext(ctx).Model(&resume).
			Update("processing_status", database.ResumeStatusFailed).Error; err != nil {
			log.Error("mark resume failed", slog.Any("error", err))
		}

		notify := ResumeAnalysisNotifyMessage{
			Status:        "error",
			ResumeID:      resume.ID,
			CorrelationID: payload.CorrelationID,
			ErrorCode:     errcode.SystemError,
			ErrorMessage:  strings.TrimSpace(retErr.Error()),
		}
		if err := h.publishNotify(ctx, resume.UserID, notify); err != nil {
			log.Error("publish analysis error notification failed", slog.Any("error", err))
		}
	}()

	if err := h.db.WithContext(ctx).Model(&resume).
		Update("processing_status", database.ResumeStatusProcessing).Error; err != nil {
		log.Error("mark resume processing", slog.Any("error", err))
		return err
	}

	rawText, err := h.loadResumeText(ctx, resume.ObjectKey)
	if err != nil {
		// 对象已不存在时重试无意义，直接标记失败并通知
		if storage.IsNoSuchKey(err) {
			log.Warn("resume object missing from storage", slog.String("object_key", resume.ObjectKey))
			if dbErr := h.db.WithContext(ctx).Model(&resume).
				Update("processing_status", database.ResumeStatusFailed).Error; dbErr != nil {
				log.Error("mark resume failed", slog.Any("error", dbErr))
			}
			notify := ResumeAnalysisNotifyMessage{
				Status:        "error",
				ResumeID:      resume.ID,
				CorrelationID: payload.CorrelationID,
				ErrorCode:     errcode.ResourceMissing,
				ErrorMessage:  "resume file is no longer available",
			}
			if pubErr := h.publishNotify(ctx, resume.UserID, notify); pubErr != nil {
				log.Error("publish analysis error notification failed", slog.Any("error", pubErr))
			}
			return nil
		}
		log.Error("load resume file failed", slog.Any("error", err))
		return err
	}

	parsed := parseResumeText(rawText)

	analysis, degraded := h.analyze(ctx, log, rawText, parsed)

	// AI 解析出的技能补全关键词解析的空缺
	if len(parsed.Skills) == 0 && analysis != nil {
		parsed.Skills = analysis.Skills
	}

	parsedJSON, err := json.Marshal(parsed)
	if err != nil {
		return fmt.Errorf("marshal parsed data: %w", err)
	}
	analysisJSON, err := json.Marshal(analysis)
	if err != nil {
		return fmt.Errorf("marshal analysis: %w", err)
	}

	updates := map[string]any{
		"raw_text":          truncateLine(rawText, 100000),
		"parsed_data":       parsedJSON,
		"analysis":          analysisJSON,
		"processing_status": database.ResumeStatusCompleted,
	}
	if err := h.db.WithContext(ctx).Model(&resume).Updates(updates).Error; err != nil {
		log.Error("update resume failed", slog.Any("error", err))
		return err
	}

	notify := ResumeAnalysisNotifyMessage{
		Status:        "completed",
		ResumeID:      resume.ID,
		CorrelationID: payload.CorrelationID,
		ErrorCode:     errcode.OK,
		Degraded:      degraded,
	}
	if degraded {
		notify.ErrorCode = errcode.AIDegraded
	}
	if err := h.publishNotify(ctx, resume.UserID, notify); err != nil {
		log.Error("publish redis notification failed", slog.Any("error", err))
		return err
	}

	log.Info("resume analysis task completed",
		slog.Int("skill_count", len(parsed.Skills)),
		slog.Bool("degraded", degraded),
	)
	return nil
}

// analyze 调 AI 做结构化分析，失败时回退到关键词解析结果。
// 返回的 degraded 表示结果并非来自 AI。
func (h *AnalyzeTaskHandler) analyze(ctx context.Context, log *slog.Logger, rawText string, parsed parsedResumeData) (*ai.ResumeAnalysis, bool) {
	if h.analyzer != nil && rawText != "" {
		analysis, err := h.analyzer.Analyze(ctx, rawText)
		if err == nil {
			metrics.ObserveAICall("analyze", "ok")
			return analysis, false
		}
		kind := ai.KindOf(err)
		metrics.ObserveAICall("analyze", kind.String())
		log.Warn("ai analysis failed, falling back to keyword parsing",
			slog.String("error_class", kind.String()),
			slog.Any("error", err),
		)
	}

	return heuristicAnalysis(parsed), true
}

func heuristicAnalysis(parsed parsedResumeData) *ai.ResumeAnalysis {
	analysis := &ai.ResumeAnalysis{
		Skills:          parsed.Skills,
		ExperienceYears: matching.InferExperienceYears(len(parsed.Experience)),
		Summary:         parsed.Summary,
	}

	if len(parsed.Skills) > 0 {
		analysis.Strengths = append(analysis.Strengths,
			fmt.Sprintf("Resume lists %d recognizable skills", len(parsed.Skills)))
	}
	if len(parsed.Experience) > 0 {
		analysis.Strengths = append(analysis.Strengths,
			fmt.Sprintf("Resume documents %d work periods", len(parsed.Experience)))
	}
	if len(parsed.Skills) == 0 {
		analysis.Improvements = append(analysis.Improvements,
			"Add a dedicated skills section with concrete technologies")
	}
	if len(parsed.Experience) == 0 {
		analysis.Improvements = append(analysis.Improvements,
			"Add work experience entries with date ranges")
	}

	return analysis
}

func (h *AnalyzeTaskHandler) loadResumeText(ctx context.Context, objectKey string) (string, error) {
	if objectKey == "" {
		return "", errors.New("resume has no stored file")
	}

	object, err := h.storage.GetObject(ctx, objectKey)
	if err != nil {
		return "", fmt.Errorf("fetch resume object: %w", err)
	}
	defer object.Close()

	data, err := io.ReadAll(io.LimitReader(object, maxResumeFileBytes))
	if err != nil {
		return "", fmt.Errorf("read resume object: %w", err)
	}

	return extractPlainText(data), nil
}

func (h *AnalyzeTaskHandler) publishNotify(ctx context.Context, userID uint, notify ResumeAnalysisNotifyMessage) error {
	data, err := json.Marshal(notify)
	if err != nil {
		return fmt.Errorf("marshal notification payload: %w", err)
	}
	channel := fmt.Sprintf("user_notify:%d", userID)
	if err := h.redisClient.Publish(ctx, channel, data).Err(); err != nil {
		return fmt.Errorf("publish redis notification to %q: %w", channel, err)
	}
	return nil
}

func isFinalAsynqAttempt(ctx context.Context) bool {
	retryCount, ok1 := asynq.GetRetryCount(ctx)
	maxRetry, ok2 := asynq.GetMaxRetry(ctx)
	if !ok1 || !ok2 {
		return false
	}
	return retryCount >= maxRetry
}
