package matching

import (
	"context"
	"errors"
	"testing"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"talenthub/internal/ai"
	"talenthub/internal/database"
)

type stubRecommender struct {
	set   *ai.RecommendationSet
	err   error
	calls int
}

func (s *stubRecommender) Recommend(_ context.Context, _ ai.Profile, _ []ai.Job) (*ai.RecommendationSet, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return s.set, nil
}

func seedMatchingUser(t *testing.T, db *gorm.DB) uint {
	t.Helper()
	user := database.User{
		Username:     "student",
		PasswordHash: "x",
		Role:         database.RoleStudent,
		Skills:       datatypes.JSON(`[{"name":"react"},{"name":"sql"}]`),
	}
	if err := db.Create(&user).Error; err != nil {
		t.Fatalf("seed user: %v", err)
	}
	return user.ID
}

func TestMatchJobsDegradesOnRateLimit(t *testing.T) {
	db := newTestDB(t)
	userID := seedMatchingUser(t, db)

	jobs := []database.JobPosting{
		{Title: "React Dev", CompanyName: "A", Status: database.JobStatusActive,
			Requirements: datatypes.JSON(`{"skills":[{"name":"react"}],"experience":{"min":0}}`)},
		{Title: "Go Dev", CompanyName: "B", Status: database.JobStatusActive,
			Requirements: datatypes.JSON(`{"skills":[{"name":"go"}],"experience":{"min":3}}`)},
	}
	if err := db.Create(&jobs).Error; err != nil {
		t.Fatalf("seed jobs: %v", err)
	}

	stub := &stubRecommender{err: ai.NewFailure(ai.RateLimited, errors.New("quota exhausted"))}
	svc := NewService(db, stub, nil, 0)

	result, err := svc.MatchJobs(context.Background(), userID, 0, JobFilters{})
	if err != nil {
		t.Fatalf("match jobs: %v", err)
	}

	if !result.Degraded {
		t.Fatal("expected degraded result after rate limit")
	}
	if stub.calls != 1 {
		t.Fatalf("expected exactly one recommend attempt, got %d", stub.calls)
	}
	if len(result.Jobs) != 2 {
		t.Fatalf("expected 2 jobs, got %d", len(result.Jobs))
	}
	for _, jm := range result.Jobs {
		if jm.Match.Source != SourceHeuristic {
			t.Fatalf("expected heuristic source for job %q, got %q", jm.Job.Title, jm.Match.Source)
		}
	}
	// react 职位满分 (80/80)，go 职位零分 → 降序
	if result.Jobs[0].Job.Title != "React Dev" {
		t.Fatalf("expected React Dev ranked first, got %q", result.Jobs[0].Job.Title)
	}
}

func TestMatchJobsMergesAIRecommendations(t *testing.T) {
	db := newTestDB(t)
	userID := seedMatchingUser(t, db)

	older := time.Now().Add(-time.Hour)
	jobs := []database.JobPosting{
		{Model: gorm.Model{CreatedAt: older}, Title: "First", CompanyName: "A", Status: database.JobStatusActive,
			Requirements: datatypes.JSON(`{"skills":[{"name":"react"}]}`)},
		{Title: "Second", CompanyName: "B", Status: database.JobStatusActive,
			Requirements: datatypes.JSON(`{"skills":[{"name":"go"}]}`)},
	}
	if err := db.Create(&jobs).Error; err != nil {
		t.Fatalf("seed jobs: %v", err)
	}

	// 候选集按创建时间倒序：Second 在下标 0
	stub := &stubRecommender{set: &ai.RecommendationSet{
		OverallInsights: "solid frontend profile",
		Recommendations: []ai.Recommendation{
			{JobIndex: 0, MatchScore: 88, Reasons: []string{"great fit"}},
		},
	}}
	svc := NewService(db, stub, nil, 0)

	result, err := svc.MatchJobs(context.Background(), userID, 0, JobFilters{})
	if err != nil {
		t.Fatalf("match jobs: %v", err)
	}

	if result.Degraded {
		t.Fatal("expected non-degraded result")
	}
	if result.OverallInsights != "solid frontend profile" {
		t.Fatalf("unexpected insights: %q", result.OverallInsights)
	}

	sources := map[string]string{}
	scores := map[string]int{}
	for _, jm := range result.Jobs {
		sources[jm.Job.Title] = jm.Match.Source
		scores[jm.Job.Title] = jm.Match.MatchScore
	}
	if sources["Second"] != SourceAI || scores["Second"] != 88 {
		t.Fatalf("expected AI result for Second, got source=%q score=%d", sources["Second"], scores["Second"])
	}
	if sources["First"] != SourceHeuristic {
		t.Fatalf("expected heuristic fallback for First, got %q", sources["First"])
	}
	if result.Jobs[0].Match.MatchScore < result.Jobs[1].Match.MatchScore {
		t.Fatal("results are not sorted by score descending")
	}
}

func TestMatchJobsMockFallbackOnEmptyDatabase(t *testing.T) {
	db := newTestDB(t)
	userID := seedMatchingUser(t, db)

	svc := NewService(db, nil, nil, 0)

	result, err := svc.MatchJobs(context.Background(), userID, 0, JobFilters{})
	if err != nil {
		t.Fatalf("match jobs: %v", err)
	}

	if !result.MockData {
		t.Fatal("expected mock data flag")
	}
	if len(result.Jobs) != MockJobCount {
		t.Fatalf("expected %d mock jobs, got %d", MockJobCount, len(result.Jobs))
	}
	if !result.Degraded {
		t.Fatal("expected degraded flag without a recommender")
	}
}

func TestMatchJobsUnknownUser(t *testing.T) {
	db := newTestDB(t)
	svc := NewService(db, nil, nil, 0)

	_, err := svc.MatchJobs(context.Background(), 999, 0, JobFilters{})
	if !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
}

func TestMatchJobsPrefersCompletedResumeSkills(t *testing.T) {
	db := newTestDB(t)
	userID := seedMatchingUser(t, db)

	resume := database.Resume{
		Title:            "CV",
		UserID:           userID,
		ProcessingStatus: database.ResumeStatusCompleted,
		ParsedData:       datatypes.JSON(`{"skills":["python","pandas"],"experience":[{"period":"2020-2023"}]}`),
	}
	if err := db.Create(&resume).Error; err != nil {
		t.Fatalf("seed resume: %v", err)
	}

	job := database.JobPosting{
		Title: "Data Role", CompanyName: "A", Status: database.JobStatusActive,
		Requirements: datatypes.JSON(`{"skills":[{"name":"python"}]}`),
	}
	if err := db.Create(&job).Error; err != nil {
		t.Fatalf("seed job: %v", err)
	}

	svc := NewService(db, nil, nil, 0)
	result, err := svc.MatchJobs(context.Background(), userID, 0, JobFilters{})
	if err != nil {
		t.Fatalf("match jobs: %v", err)
	}

	if !result.ResumeAnalyzed {
		t.Fatal("expected resume-backed profile")
	}
	if len(result.UserSkills) != 2 || result.UserSkills[0] != "python" {
		t.Fatalf("expected resume skills, got %v", result.UserSkills)
	}
	if result.Jobs[0].Match.MatchScore != 100 {
		t.Fatalf("expected full score for python job, got %d", result.Jobs[0].Match.MatchScore)
	}
}

func TestSnapshotIsDeterministicHeuristic(t *testing.T) {
	db := newTestDB(t)
	userID := seedMatchingUser(t, db)

	job := &database.JobPosting{
		Title: "React Dev", CompanyName: "A", Status: database.JobStatusActive,
		Requirements: datatypes.JSON(`{"skills":[{"name":"react"}],"experience":{"min":0}}`),
	}
	if err := db.Create(job).Error; err != nil {
		t.Fatalf("seed job: %v", err)
	}

	svc := NewService(db, nil, nil, 0)

	first, err := svc.Snapshot(context.Background(), userID, 0, job)
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	second, err := svc.Snapshot(context.Background(), userID, 0, job)
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}

	if string(first) != string(second) {
		t.Fatalf("snapshot not deterministic:\nfirst:  %s\nsecond: %s", first, second)
	}
	if len(first) == 0 {
		t.Fatal("expected non-empty snapshot payload")
	}
}
