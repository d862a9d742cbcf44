package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/dutchcoders/go-clamd"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"talenthub/internal/api/middleware"
	"talenthub/internal/database"
	"talenthub/internal/storage"
	"talenthub/internal/tasks"
)

// ResumeHandler 负责简历上传、查询与解析状态接口。
type ResumeHandler struct {
	db          *gorm.DB
	asynqClient *asynq.Client
	storage     *storage.Client
	logger      *slog.Logger
	clamdAddr   string
	maxResumes  int
}

// NewResumeHandler 构造 ResumeHandler。
func NewResumeHandler(
	db *gorm.DB,
	asynqClient *asynq.Client,
	storageClient *storage.Client,
	logger *slog.Logger,
	clamdAddr string,
	maxResumes int,
) *ResumeHandler {
	return &ResumeHandler{
		db:          db,
		asynqClient: asynqClient,
		storage:     storageClient,
		logger:      logger,
		clamdAddr:   clamdAddr,
		maxResumes:  maxResumes,
	}
}

var errInvalidResumeID = errors.New("invalid resume id")

var allowedResumeExtensions = map[string]string{
	".pdf":  "application/pdf",
	".doc":  "application/msword",
	".docx": "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
	".txt":  "text/plain",
}

type resumeListItem struct {
	ID               uint      `json:"id"`
	Title            string    `json:"title"`
	ProcessingStatus string    `json:"processingStatus"`
	CreatedAt        time.Time `json:"createdAt"`
}

type resumeResponse struct {
	ID               uint           `json:"id"`
	Title            string         `json:"title"`
	ProcessingStatus string         `json:"processingStatus"`
	ParsedData       datatypes.JSON `json:"parsedData,omitempty"`
	Analysis         datatypes.JSON `json:"analysis,omitempty"`
	CreatedAt        time.Time      `json:"createdAt"`
	UpdatedAt        time.Time      `json:"updatedAt"`
}

// UploadResume 接收简历文件：先病毒扫描，再写入对象存储，
// 建档后投递异步解析任务，接口立即返回 202。
func (h *ResumeHandler) UploadResume(c *gin.Context) {
	userID, ok := userIDFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}

	file, err := c.FormFile("file")
	if err != nil {
		BadRequest(c, "missing file")
		return
	}

	ext := strings.ToLower(filepath.Ext(file.Filename))
	contentType, allowed := allowedResumeExtensions[ext]
	if !allowed {
		BadRequest(c, "unsupported file type")
		return
	}

	ctx := c.Request.Context()

	var count int64
	if err := h.db.WithContext(ctx).
		Model(&database.Resume{}).
		Where("user_id = ?", userID).
		Count(&count).Error; err != nil {
		Internal(c, "failed to count resumes")
		return
	}
	if h.maxResumes > 0 && count >= int64(h.maxResumes) {
		Forbidden(c, "resume limit reached")
		return
	}

	clamdClient := clamd.NewClamd(h.clamdAddr)

	fileReader, err := file.Open()
	if err != nil {
		Internal(c, "failed to open file")
		return
	}

	abortChan := make(chan bool)
	scanChan, err := clamdClient.ScanStream(fileReader, abortChan)
	fileReader.Close()
	if err != nil {
		h.logger.Error("scan file", slog.String("error", err.Error()))
		Internal(c, "failed to scan file")
		return
	}
	defer close(abortChan)

	for result := range scanChan {
		if result.Status != clamd.RES_OK {
			BadRequest(c, "malicious file detected")
			return
		}
	}

	fileReader, err = file.Open()
	if err != nil {
		Internal(c, "failed to reopen file")
		return
	}
	defer fileReader.Close()

	objectKey := fmt.Sprintf("resumes/%d/%s%s", userID, uuid.NewString(), ext)
	if _, err := h.storage.UploadFile(ctx, objectKey, fileReader, file.Size, contentType); err != nil {
		h.logger.Error("upload resume", slog.String("error", err.Error()))
		Internal(c, "failed to upload file")
		return
	}

	title := c.PostForm("title")
	if title == "" {
		title = strings.TrimSuffix(file.Filename, ext)
	}

	resume := database.Resume{
		Title:            title,
		UserID:           userID,
		ObjectKey:        objectKey,
		ProcessingStatus: database.ResumeStatusPending,
	}
	if err := h.db.WithContext(ctx).Create(&resume).Error; err != nil {
		Internal(c, "failed to create resume record")
		return
	}

	correlationID := middleware.GetCorrelationID(c)
	task, err := tasks.NewResumeAnalyzeTask(resume.ID, correlationID)
	if err != nil {
		Internal(c, "failed to create task")
		return
	}
	info, err := h.asynqClient.Enqueue(task, asynq.MaxRetry(3))
	if err != nil {
		Internal(c, "failed to enqueue resume analysis")
		return
	}

	c.JSON(http.StatusAccepted, gin.H{
		"id":      resume.ID,
		"status":  resume.ProcessingStatus,
		"task_id": info.ID,
	})
}

// ListResumes 列出用户全部简历及其处理状态。
func (h *ResumeHandler) ListResumes(c *gin.Context) {
	userID, ok := userIDFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}

	var resumes []database.Resume
	if err := h.db.WithContext(c.Request.Context()).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&resumes).Error; err != nil {
		Internal(c, "failed to list resumes")
		return
	}

	items := make([]resumeListItem, 0, len(resumes))
	for _, r := range resumes {
		items = append(items, resumeListItem{
			ID:               r.ID,
			Title:            r.Title,
			ProcessingStatus: r.ProcessingStatus,
			CreatedAt:        r.CreatedAt,
		})
	}

	c.JSON(http.StatusOK, items)
}

// GetResume 返回指定简历的解析与分析结果。
func (h *ResumeHandler) GetResume(c *gin.Context) {
	userID, ok := userIDFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}

	resume, err := h.getResumeForUser(c.Request.Context(), c.Param("id"), userID)
	if err != nil {
		switch {
		case errors.Is(err, errInvalidResumeID):
			BadRequest(c, "invalid resume id")
		case errors.Is(err, gorm.ErrRecordNotFound):
			NotFound(c, "resume not found")
		default:
			Internal(c, "failed to query resume")
		}
		return
	}

	c.JSON(http.StatusOK, resumeResponse{
		ID:               resume.ID,
		Title:            resume.Title,
		ProcessingStatus: resume.ProcessingStatus,
		ParsedData:       resume.ParsedData,
		Analysis:         resume.Analysis,
		CreatedAt:        resume.CreatedAt,
		UpdatedAt:        resume.UpdatedAt,
	})
}

// GetResumeStatus 返回处理状态，供前端轮询（WebSocket 之外的兜底）。
func (h *ResumeHandler) GetResumeStatus(c *gin.Context) {
	userID, ok := userIDFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}

	resume, err := h.getResumeForUser(c.Request.Context(), c.Param("id"), userID)
	if err != nil {
		switch {
		case errors.Is(err, errInvalidResumeID):
			BadRequest(c, "invalid resume id")
		case errors.Is(err, gorm.ErrRecordNotFound):
			NotFound(c, "resume not found")
		default:
			Internal(c, "failed to query resume")
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"id":     resume.ID,
		"status": resume.ProcessingStatus,
	})
}

// DownloadResume 签发限时下载链接，附件名取简历标题。
func (h *ResumeHandler) DownloadResume(c *gin.Context) {
	userID, ok := userIDFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}

	resume, err := h.getResumeForUser(c.Request.Context(), c.Param("id"), userID)
	if err != nil {
		switch {
		case errors.Is(err, errInvalidResumeID):
			BadRequest(c, "invalid resume id")
		case errors.Is(err, gorm.ErrRecordNotFound):
			NotFound(c, "resume not found")
		default:
			Internal(c, "failed to query resume")
		}
		return
	}
	if resume.ObjectKey == "" {
		NotFound(c, "resume file not available")
		return
	}

	filename := resume.Title + strings.ToLower(filepath.Ext(resume.ObjectKey))
	params := map[string]string{
		"response-content-disposition": fmt.Sprintf("attachment; filename=%q", filename),
	}
	url, err := h.storage.GeneratePresignedURLWithParams(c.Request.Context(), resume.ObjectKey, 15*time.Minute, params)
	if err != nil {
		h.logger.Error("presign resume download", slog.String("error", err.Error()))
		Internal(c, "failed to generate download link")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"url":        url,
		"expires_in": int((15 * time.Minute).Seconds()),
	})
}

// DeleteResume 删除指定简历及其对象存储文件。
func (h *ResumeHandler) DeleteResume(c *gin.Context) {
	userID, ok := userIDFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}

	resume, err := h.getResumeForUser(c.Request.Context(), c.Param("id"), userID)
	if err != nil {
		switch {
		case errors.Is(err, errInvalidResumeID):
			BadRequest(c, "invalid resume id")
		case errors.Is(err, gorm.ErrRecordNotFound):
			NotFound(c, "resume not found")
		default:
			Internal(c, "failed to query resume")
		}
		return
	}

	ctx := c.Request.Context()
	if err := h.db.WithContext(ctx).Delete(&database.Resume{}, resume.ID).Error; err != nil {
		Internal(c, "failed to delete resume")
		return
	}

	if resume.ObjectKey != "" {
		if err := h.storage.DeleteObject(ctx, resume.ObjectKey); err != nil {
			h.logger.Warn("remove resume object",
				slog.String("object_key", resume.ObjectKey),
				slog.String("error", err.Error()),
			)
		}
	}

	c.Status(http.StatusNoContent)
}

func (h *ResumeHandler) getResumeForUser(ctx context.Context, rawID string, userID uint) (*database.Resume, error) {
	resumeID, err := strconv.ParseUint(rawID, 10, 64)
	if err != nil {
		return nil, errInvalidResumeID
	}

	var resume database.Resume
	if err := h.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", uint(resumeID), userID).
		First(&resume).Error; err != nil {
		return nil, err
	}
	return &resume, nil
}
