package api

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"gorm.io/datatypes"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"talenthub/internal/database"
	"talenthub/internal/matching"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(
		&database.User{},
		&database.Resume{},
		&database.JobPosting{},
		&database.Application{},
	); err != nil {
		t.Fatalf("auto migrate: %v", err)
	}
	return db
}

func seedUser(t *testing.T, db *gorm.DB, role string, skills string) uint {
	t.Helper()
	user := database.User{
		Username:     fmt.Sprintf("user-%s-%s", role, strings.ReplaceAll(t.Name(), "/", "_")),
		PasswordHash: "x",
		Role:         role,
	}
	if skills != "" {
		user.Skills = datatypes.JSON(skills)
	}
	if err := db.Create(&user).Error; err != nil {
		t.Fatalf("seed user: %v", err)
	}
	return user.ID
}

func seedActiveJob(t *testing.T, db *gorm.DB, title, requirements string) uint {
	t.Helper()
	job := database.JobPosting{
		Title:       title,
		CompanyName: "ACME",
		Status:      database.JobStatusActive,
	}
	if requirements != "" {
		job.Requirements = datatypes.JSON(requirements)
	}
	if err := db.Create(&job).Error; err != nil {
		t.Fatalf("seed job: %v", err)
	}
	return job.ID
}

// asUser 模拟认证中间件，把用户身份注入请求上下文。
func asUser(userID uint) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set("userID", userID)
		c.Next()
	}
}

func newJobTestRouter(db *gorm.DB, userID uint) *gin.Engine {
	gin.SetMode(gin.TestMode)
	logger := slog.Default()
	matcher := matching.NewService(db, nil, logger, 0)
	handler := NewJobHandler(db, matcher, logger)

	r := gin.New()
	r.GET("/jobs", asUser(userID), handler.ListJobs)
	r.GET("/jobs/ai-matches", asUser(userID), handler.AIMatches)
	r.GET("/jobs/:id", asUser(userID), handler.GetJob)
	r.POST("/recruiter/jobs", asUser(userID), handler.CreateJob)
	return r
}

type aiMatchesResponse struct {
	Success bool `json:"success"`
	Data    struct {
		Jobs []struct {
			ID      uint `json:"id"`
			AIMatch *struct {
				MatchScore int    `json:"matchScore"`
				Source     string `json:"source"`
			} `json:"aiMatch"`
		} `json:"jobs"`
		Pagination struct {
			Page       int   `json:"page"`
			Limit      int   `json:"limit"`
			Total      int64 `json:"total"`
			TotalPages int   `json:"totalPages"`
		} `json:"pagination"`
		Degraded   bool     `json:"degraded"`
		MockData   bool     `json:"mockData"`
		UserSkills []string `json:"userSkills"`
	} `json:"data"`
}

func TestAIMatchesHeuristicFallback(t *testing.T) {
	db := newTestDB(t)
	userID := seedUser(t, db, database.RoleStudent, `[{"name":"react"}]`)
	seedActiveJob(t, db, "React Dev", `{"skills":[{"name":"react"}],"experience":{"min":0}}`)
	seedActiveJob(t, db, "Go Dev", `{"skills":[{"name":"go"}],"experience":{"min":3}}`)

	router := newJobTestRouter(db, userID)
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/jobs/ai-matches", nil)
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var resp aiMatchesResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}

	if !resp.Success {
		t.Fatal("expected success flag")
	}
	if !resp.Data.Degraded {
		t.Fatal("expected degraded flag without an ai backend")
	}
	if len(resp.Data.Jobs) != 2 {
		t.Fatalf("expected 2 jobs, got %d", len(resp.Data.Jobs))
	}
	first := resp.Data.Jobs[0].AIMatch
	if first == nil || first.Source != "heuristic" {
		t.Fatalf("expected heuristic match on first job, got %+v", first)
	}
	if second := resp.Data.Jobs[1].AIMatch; second != nil && first.MatchScore < second.MatchScore {
		t.Fatal("jobs are not sorted by score descending")
	}
	if len(resp.Data.UserSkills) != 1 || resp.Data.UserSkills[0] != "react" {
		t.Fatalf("unexpected user skills: %v", resp.Data.UserSkills)
	}
}

func TestAIMatchesPagination(t *testing.T) {
	db := newTestDB(t)
	userID := seedUser(t, db, database.RoleStudent, "")
	for i := 0; i < 3; i++ {
		seedActiveJob(t, db, fmt.Sprintf("Job %d", i), "")
	}

	router := newJobTestRouter(db, userID)
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/jobs/ai-matches?page=2&limit=2", nil)
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}

	var resp aiMatchesResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}

	if resp.Data.Pagination.Total != 3 || resp.Data.Pagination.TotalPages != 2 {
		t.Fatalf("unexpected pagination: %+v", resp.Data.Pagination)
	}
	if len(resp.Data.Jobs) != 1 {
		t.Fatalf("expected 1 job on page 2, got %d", len(resp.Data.Jobs))
	}
}

func TestAIMatchesMockFallback(t *testing.T) {
	db := newTestDB(t)
	userID := seedUser(t, db, database.RoleStudent, "")

	router := newJobTestRouter(db, userID)
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/jobs/ai-matches?limit=10", nil)
	router.ServeHTTP(w, req)

	var resp aiMatchesResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}

	if !resp.Data.MockData {
		t.Fatal("expected mock data flag on empty database")
	}
	if len(resp.Data.Jobs) != matching.MockJobCount {
		t.Fatalf("expected %d mock jobs, got %d", matching.MockJobCount, len(resp.Data.Jobs))
	}
}

func TestAIMatchesUnknownUser(t *testing.T) {
	db := newTestDB(t)

	router := newJobTestRouter(db, 424242)
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/jobs/ai-matches", nil)
	router.ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d: %s", w.Code, w.Body.String())
	}
}

func TestCreateJobDefaultsToDraft(t *testing.T) {
	db := newTestDB(t)
	recruiterID := seedUser(t, db, database.RoleRecruiter, "")

	router := newJobTestRouter(db, recruiterID)
	body := `{"title":"Backend Engineer","companyName":"ACME","employmentType":"full-time"}`
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/recruiter/jobs", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}

	var job database.JobPosting
	if err := db.First(&job, "title = ?", "Backend Engineer").Error; err != nil {
		t.Fatalf("query created job: %v", err)
	}
	if job.Status != database.JobStatusDraft {
		t.Fatalf("expected draft status, got %q", job.Status)
	}
	if job.RecruiterID != recruiterID {
		t.Fatalf("expected recruiter %d, got %d", recruiterID, job.RecruiterID)
	}
}

func TestCreateJobValidation(t *testing.T) {
	db := newTestDB(t)
	recruiterID := seedUser(t, db, database.RoleRecruiter, "")

	router := newJobTestRouter(db, recruiterID)
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/recruiter/jobs", strings.NewReader(`{"title":""}`))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
}

func TestListJobsExcludesInactive(t *testing.T) {
	db := newTestDB(t)
	userID := seedUser(t, db, database.RoleStudent, "")
	seedActiveJob(t, db, "Active Job", "")
	paused := database.JobPosting{Title: "Paused Job", CompanyName: "ACME", Status: database.JobStatusPaused}
	if err := db.Create(&paused).Error; err != nil {
		t.Fatalf("seed paused job: %v", err)
	}

	router := newJobTestRouter(db, userID)
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/jobs", nil)
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if strings.Contains(w.Body.String(), "Paused Job") {
		t.Fatal("paused job leaked into listing")
	}
	if !strings.Contains(w.Body.String(), "Active Job") {
		t.Fatal("active job missing from listing")
	}
}
