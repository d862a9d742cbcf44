package api

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"talenthub/internal/database"
	"talenthub/internal/matching"
)

// ApplicationHandler 负责投递相关接口。
type ApplicationHandler struct {
	db      *gorm.DB
	matcher *matching.Service
	logger  *slog.Logger
}

// NewApplicationHandler 构造 ApplicationHandler。
func NewApplicationHandler(db *gorm.DB, matcher *matching.Service, logger *slog.Logger) *ApplicationHandler {
	return &ApplicationHandler{
		db:      db,
		matcher: matcher,
		logger:  logger,
	}
}

type applyRequest struct {
	ResumeID uint `json:"resumeId"`
}

type applicationResponse struct {
	ID         uint           `json:"id"`
	JobID      uint           `json:"jobId"`
	JobTitle   string         `json:"jobTitle"`
	Company    string         `json:"company"`
	ResumeID   uint           `json:"resumeId,omitempty"`
	Status     string         `json:"status"`
	AIAnalysis datatypes.JSON `json:"aiAnalysis,omitempty"`
	CreatedAt  time.Time      `json:"createdAt"`
}

// Apply 投递职位。匹配快照在此刻计算并随投递冻结，
// 之后职位或简历变化不再影响已投递记录。
func (h *ApplicationHandler) Apply(c *gin.Context) {
	userID, ok := userIDFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}

	jobID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		BadRequest(c, "invalid job id")
		return
	}

	// body 可选：不带 resumeId 时用纯画像快照
	var req applyRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			BadRequest(c, err.Error())
			return
		}
	}

	ctx := c.Request.Context()

	var job database.JobPosting
	if err := h.db.WithContext(ctx).First(&job, uint(jobID)).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			NotFound(c, "job posting not found")
			return
		}
		Internal(c, "failed to query job posting")
		return
	}
	if job.Status != database.JobStatusActive {
		Conflict(c, "job posting is not accepting applications")
		return
	}

	var existing int64
	if err := h.db.WithContext(ctx).
		Model(&database.Application{}).
		Where("user_id = ? AND job_posting_id = ?", userID, job.ID).
		Count(&existing).Error; err != nil {
		Internal(c, "failed to check existing application")
		return
	}
	if existing > 0 {
		Conflict(c, "already applied to this job")
		return
	}

	snapshot, err := h.matcher.Snapshot(ctx, userID, req.ResumeID, &job)
	if err != nil {
		// 快照失败不阻塞投递本身
		h.logger.Warn("application snapshot failed",
			slog.Uint64("user_id", uint64(userID)),
			slog.Uint64("job_id", uint64(job.ID)),
			slog.Any("error", err),
		)
		snapshot = nil
	}

	application := database.Application{
		UserID:       userID,
		JobPostingID: job.ID,
		ResumeID:     req.ResumeID,
		Status:       "submitted",
		AIAnalysis:   datatypes.JSON(snapshot),
	}
	if err := h.db.WithContext(ctx).Create(&application).Error; err != nil {
		Internal(c, "failed to create application")
		return
	}

	c.JSON(http.StatusCreated, applicationResponse{
		ID:         application.ID,
		JobID:      job.ID,
		JobTitle:   job.Title,
		Company:    job.CompanyName,
		ResumeID:   application.ResumeID,
		Status:     application.Status,
		AIAnalysis: application.AIAnalysis,
		CreatedAt:  application.CreatedAt,
	})
}

// ListApplications 列出当前用户的全部投递。
func (h *ApplicationHandler) ListApplications(c *gin.Context) {
	userID, ok := userIDFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}

	var applications []database.Application
	if err := h.db.WithContext(c.Request.Context()).
		Preload("JobPosting").
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&applications).Error; err != nil {
		Internal(c, "failed to list applications")
		return
	}

	items := make([]applicationResponse, 0, len(applications))
	for _, app := range applications {
		items = append(items, applicationResponse{
			ID:         app.ID,
			JobID:      app.JobPostingID,
			JobTitle:   app.JobPosting.Title,
			Company:    app.JobPosting.CompanyName,
			ResumeID:   app.ResumeID,
			Status:     app.Status,
			AIAnalysis: app.AIAnalysis,
			CreatedAt:  app.CreatedAt,
		})
	}

	c.JSON(http.StatusOK, items)
}

// ListJobApplications 列出某职位收到的投递，仅职位所有者可见。
func (h *ApplicationHandler) ListJobApplications(c *gin.Context) {
	userID, ok := userIDFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}

	jobID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		BadRequest(c, "invalid job id")
		return
	}

	ctx := c.Request.Context()

	var job database.JobPosting
	if err := h.db.WithContext(ctx).
		Where("id = ? AND recruiter_id = ?", uint(jobID), userID).
		First(&job).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			NotFound(c, "job posting not found")
			return
		}
		Internal(c, "failed to query job posting")
		return
	}

	var applications []database.Application
	if err := h.db.WithContext(ctx).
		Preload("User").
		Where("job_posting_id = ?", job.ID).
		Order("created_at DESC").
		Find(&applications).Error; err != nil {
		Internal(c, "failed to list applications")
		return
	}

	items := make([]gin.H, 0, len(applications))
	for _, app := range applications {
		items = append(items, gin.H{
			"id":         app.ID,
			"applicant":  app.User.Username,
			"headline":   app.User.Headline,
			"resumeId":   app.ResumeID,
			"status":     app.Status,
			"aiAnalysis": app.AIAnalysis,
			"createdAt":  app.CreatedAt,
		})
	}

	c.JSON(http.StatusOK, gin.H{"jobId": job.ID, "applications": items})
}
