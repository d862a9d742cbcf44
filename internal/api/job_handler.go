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

// JobHandler 负责职位的发布、查询与 AI 匹配接口。
type JobHandler struct {
	db      *gorm.DB
	matcher *matching.Service
	logger  *slog.Logger
}

// NewJobHandler 构造 JobHandler。
func NewJobHandler(db *gorm.DB, matcher *matching.Service, logger *slog.Logger) *JobHandler {
	return &JobHandler{
		db:      db,
		matcher: matcher,
		logger:  logger,
	}
}

var errInvalidJobID = errors.New("invalid job id")

type jobRequest struct {
	Title          string         `json:"title" binding:"required"`
	Description    string         `json:"description"`
	CompanyName    string         `json:"companyName" binding:"required"`
	Industry       string         `json:"industry"`
	City           string         `json:"city"`
	State          string         `json:"state"`
	Remote         bool           `json:"remote"`
	EmploymentType string         `json:"employmentType" binding:"omitempty,oneof=full-time part-time contract internship"`
	WorkMode       string         `json:"workMode" binding:"omitempty,oneof=onsite remote hybrid"`
	SalaryMin      int            `json:"salaryMin" binding:"omitempty,min=0"`
	SalaryMax      int            `json:"salaryMax" binding:"omitempty,min=0"`
	Requirements   datatypes.JSON `json:"requirements"`
	Status         string         `json:"status" binding:"omitempty,oneof=active paused closed draft"`
}

type jobResponse struct {
	ID             uint                  `json:"id"`
	Title          string                `json:"title"`
	Description    string                `json:"description,omitempty"`
	CompanyName    string                `json:"companyName"`
	Industry       string                `json:"industry,omitempty"`
	City           string                `json:"city,omitempty"`
	State          string                `json:"state,omitempty"`
	Remote         bool                  `json:"remote"`
	EmploymentType string                `json:"employmentType,omitempty"`
	WorkMode       string                `json:"workMode,omitempty"`
	SalaryMin      int                   `json:"salaryMin,omitempty"`
	SalaryMax      int                   `json:"salaryMax,omitempty"`
	Requirements   datatypes.JSON        `json:"requirements,omitempty"`
	Status         string                `json:"status"`
	CreatedAt      time.Time             `json:"createdAt"`
	AIMatch        *matching.MatchResult `json:"aiMatch,omitempty"`
}

type paginationResponse struct {
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"totalPages"`
}

// CreateJob 创建职位，仅招聘方可用。
func (h *JobHandler) CreateJob(c *gin.Context) {
	userID, ok := userIDFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}

	var req jobRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, err.Error())
		return
	}

	status := req.Status
	if status == "" {
		status = database.JobStatusDraft
	}

	job := database.JobPosting{
		RecruiterID:    userID,
		Title:          req.Title,
		Description:    req.Description,
		CompanyName:    req.CompanyName,
		Industry:       req.Industry,
		City:           req.City,
		State:          req.State,
		Remote:         req.Remote,
		EmploymentType: req.EmploymentType,
		WorkMode:       req.WorkMode,
		SalaryMin:      req.SalaryMin,
		SalaryMax:      req.SalaryMax,
		Requirements:   req.Requirements,
		Status:         status,
	}

	if err := h.db.WithContext(c.Request.Context()).Create(&job).Error; err != nil {
		Internal(c, "failed to create job posting")
		return
	}

	c.JSON(http.StatusCreated, newJobResponse(job, nil))
}

// UpdateJob 更新招聘方自己的职位。
func (h *JobHandler) UpdateJob(c *gin.Context) {
	userID, ok := userIDFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}

	job, err := h.getJobForRecruiter(c, userID)
	if err != nil {
		switch {
		case errors.Is(err, errInvalidJobID):
			BadRequest(c, "invalid job id")
		case errors.Is(err, gorm.ErrRecordNotFound):
			NotFound(c, "job posting not found")
		default:
			Internal(c, "failed to query job posting")
		}
		return
	}

	var req jobRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, err.Error())
		return
	}

	updates := map[string]any{
		"title":           req.Title,
		"description":     req.Description,
		"company_name":    req.CompanyName,
		"industry":        req.Industry,
		"city":            req.City,
		"state":           req.State,
		"remote":          req.Remote,
		"employment_type": req.EmploymentType,
		"work_mode":       req.WorkMode,
		"salary_min":      req.SalaryMin,
		"salary_max":      req.SalaryMax,
	}
	if len(req.Requirements) > 0 {
		updates["requirements"] = req.Requirements
	}
	if req.Status != "" {
		updates["status"] = req.Status
	}

	ctx := c.Request.Context()
	if err := h.db.WithContext(ctx).Model(job).Updates(updates).Error; err != nil {
		Internal(c, "failed to update job posting")
		return
	}
	if err := h.db.WithContext(ctx).First(job, job.ID).Error; err != nil {
		Internal(c, "failed to reload job posting")
		return
	}

	c.JSON(http.StatusOK, newJobResponse(*job, nil))
}

// ListJobs 列出 active 职位，支持与匹配接口相同的粗筛条件。
func (h *JobHandler) ListJobs(c *gin.Context) {
	filters := filtersFromQuery(c)
	page, limit := paginationFromQuery(c)

	ctx := c.Request.Context()
	jobs, err := matching.BuildJobSet(ctx, h.db, filters, matching.MaxJobSetSize)
	if err != nil {
		h.logger.Error("list jobs failed", slog.Any("error", err))
		Internal(c, "failed to list job postings")
		return
	}

	paged, pagination := paginate(jobs, page, limit)
	items := make([]jobResponse, 0, len(paged))
	for _, job := range paged {
		items = append(items, newJobResponse(job, nil))
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data": gin.H{
			"jobs":       items,
			"pagination": pagination,
		},
	})
}

// GetJob 返回单个职位详情。
func (h *JobHandler) GetJob(c *gin.Context) {
	jobID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		BadRequest(c, "invalid job id")
		return
	}

	var job database.JobPosting
	if err := h.db.WithContext(c.Request.Context()).First(&job, uint(jobID)).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			NotFound(c, "job posting not found")
			return
		}
		Internal(c, "failed to query job posting")
		return
	}

	c.JSON(http.StatusOK, newJobResponse(job, nil))
}

// AIMatches 执行匹配管线并返回按分数排序的职位列表。
// AI 依赖故障不会产生空结果：响应带 degraded 标记，
// 数据完全来自启发式回退。
func (h *JobHandler) AIMatches(c *gin.Context) {
	userID, ok := userIDFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}

	filters := filtersFromQuery(c)
	page, limit := paginationFromQuery(c)

	var resumeID uint
	if raw := c.Query("resumeId"); raw != "" {
		parsed, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			BadRequest(c, "invalid resume id")
			return
		}
		resumeID = uint(parsed)
	}

	result, err := h.matcher.MatchJobs(c.Request.Context(), userID, resumeID, filters)
	if err != nil {
		if errors.Is(err, matching.ErrUserNotFound) {
			NotFound(c, "user not found")
			return
		}
		h.logger.Error("ai matching failed",
			slog.Uint64("user_id", uint64(userID)),
			slog.Any("error", err),
		)
		Internal(c, "failed to compute job matches")
		return
	}

	paged, pagination := paginate(result.Jobs, page, limit)
	items := make([]jobResponse, 0, len(paged))
	for _, jm := range paged {
		match := jm.Match
		items = append(items, newJobResponse(jm.Job, &match))
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data": gin.H{
			"jobs":            items,
			"pagination":      pagination,
			"resumeAnalyzed":  result.ResumeAnalyzed,
			"userSkills":      result.UserSkills,
			"degraded":        result.Degraded,
			"mockData":        result.MockData,
			"overallInsights": result.OverallInsights,
		},
	})
}

func (h *JobHandler) getJobForRecruiter(c *gin.Context, userID uint) (*database.JobPosting, error) {
	jobID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return nil, errInvalidJobID
	}

	var job database.JobPosting
	if err := h.db.WithContext(c.Request.Context()).
		Where("id = ? AND recruiter_id = ?", uint(jobID), userID).
		First(&job).Error; err != nil {
		return nil, err
	}
	return &job, nil
}

func filtersFromQuery(c *gin.Context) matching.JobFilters {
	filters := matching.JobFilters{
		EmploymentType: c.Query("employmentType"),
		WorkMode:       c.Query("workMode"),
		Industry:       c.Query("industry"),
		Location:       c.Query("location"),
	}
	if raw := c.Query("remote"); raw != "" {
		if remote, err := strconv.ParseBool(raw); err == nil {
			filters.Remote = &remote
		}
	}
	if raw := c.Query("minSalary"); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil && v > 0 {
			filters.MinSalary = v
		}
	}
	if raw := c.Query("maxSalary"); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil && v > 0 {
			filters.MaxSalary = v
		}
	}
	return filters
}

func paginationFromQuery(c *gin.Context) (page, limit int) {
	page, _ = strconv.Atoi(c.DefaultQuery("page", "1"))
	if page <= 0 {
		page = 1
	}
	limit, _ = strconv.Atoi(c.DefaultQuery("limit", "10"))
	if limit <= 0 || limit > matching.MaxJobSetSize {
		limit = 10
	}
	return page, limit
}

// paginate 对已排序的切片做内存分页（候选集本身封顶 50）。
func paginate[T any](items []T, page, limit int) ([]T, paginationResponse) {
	total := int64(len(items))
	totalPages := (len(items) + limit - 1) / limit
	if totalPages == 0 {
		totalPages = 1
	}

	start := (page - 1) * limit
	if start >= len(items) {
		return []T{}, paginationResponse{Page: page, Limit: limit, Total: total, TotalPages: totalPages}
	}
	end := start + limit
	if end > len(items) {
		end = len(items)
	}
	return items[start:end], paginationResponse{Page: page, Limit: limit, Total: total, TotalPages: totalPages}
}

func newJobResponse(job database.JobPosting, match *matching.MatchResult) jobResponse {
	return jobResponse{
		ID:             job.ID,
		Title:          job.Title,
		Description:    job.Description,
		CompanyName:    job.CompanyName,
		Industry:       job.Industry,
		City:           job.City,
		State:          job.State,
		Remote:         job.Remote,
		EmploymentType: job.EmploymentType,
		WorkMode:       job.WorkMode,
		SalaryMin:      job.SalaryMin,
		SalaryMax:      job.SalaryMax,
		Requirements:   job.Requirements,
		Status:         job.Status,
		CreatedAt:      job.CreatedAt,
		AIMatch:        match,
	}
}
