package matching

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"gorm.io/gorm"

	"talenthub/internal/ai"
	"talenthub/internal/database"
	"talenthub/internal/metrics"
)

// ErrUserNotFound 表示请求的用户不存在，对调用方是致命错误。
var ErrUserNotFound = errors.New("user not found")

// Service 驱动完整的匹配管线：
// 候选集查询 → 画像归一化 → 生成式推荐（首选）→ 启发式回退 → 合并排序。
// Recommender 通过构造参数注入，便于在测试中替换为假实现。
type Service struct {
	db          *gorm.DB
	recommender ai.Recommender
	logger      *slog.Logger
	maxJobs     int
}

// NewService 构造匹配服务。recommender 可以为 nil（纯启发式模式）。
func NewService(db *gorm.DB, recommender ai.Recommender, logger *slog.Logger, maxJobs int) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	if maxJobs <= 0 || maxJobs > MaxJobSetSize {
		maxJobs = MaxJobSetSize
	}
	return &Service{
		db:          db,
		recommender: recommender,
		logger:      logger,
		maxJobs:     maxJobs,
	}
}

// JobMatch 把职位与其匹配结果绑定在一起。
type JobMatch struct {
	Job   database.JobPosting
	Match MatchResult
}

// Result 是一次匹配请求的完整产出。
// Degraded 表示 AI 路径失败、结果完全来自启发式回退；
// MockData 表示数据库无 active 职位、返回的是演示数据。
type Result struct {
	Jobs            []JobMatch
	Degraded        bool
	MockData        bool
	ResumeAnalyzed  bool
	UserSkills      []string
	OverallInsights string
}

// MatchJobs 对指定用户执行匹配。resumeID 为 0 时取用户最近一份
// 已完成解析的简历；没有可用简历则回退到用户档案。
func (s *Service) MatchJobs(ctx context.Context, userID, resumeID uint, filters JobFilters) (*Result, error) {
	var user database.User
	if err := s.db.WithContext(ctx).First(&user, userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("load user %d: %w", userID, err)
	}

	resume := s.loadResume(ctx, userID, resumeID)

	var profile CandidateProfile
	if resume != nil {
		profile = NormalizeResume(resume, &user)
	} else {
		profile = NormalizeUser(&user)
	}

	jobs, err := BuildJobSet(ctx, s.db, filters, s.maxJobs)
	if err != nil {
		return nil, fmt.Errorf("build job set: %w", err)
	}

	result := &Result{
		ResumeAnalyzed: resume != nil,
		UserSkills:     profile.Skills,
	}
	if len(jobs) == 0 {
		jobs = MockJobPostings()
		result.MockData = true
	}

	recs := s.recommend(ctx, userID, profile, jobs, result)

	result.Jobs = make([]JobMatch, 0, len(jobs))
	for i := range jobs {
		match := s.matchOne(profile, &jobs[i], recs[i])
		result.Jobs = append(result.Jobs, JobMatch{Job: jobs[i], Match: match})
	}

	// 稳定排序：分数相同的职位保持查询顺序（创建时间倒序）。
	sort.SliceStable(result.Jobs, func(i, j int) bool {
		return result.Jobs[i].Match.MatchScore > result.Jobs[j].Match.MatchScore
	})

	return result, nil
}

// recommend 调用生成式后端，失败时按类别记录并整体降级。
// 单次回退，不做任何重试。
func (s *Service) recommend(ctx context.Context, userID uint, profile CandidateProfile, jobs []database.JobPosting, result *Result) map[int]*ai.Recommendation {
	recs := make(map[int]*ai.Recommendation, len(jobs))
	if s.recommender == nil {
		result.Degraded = true
		return recs
	}

	set, err := s.recommender.Recommend(ctx, toAIProfile(profile), toAIJobs(jobs))
	if err != nil {
		kind := ai.KindOf(err)
		metrics.ObserveAICall("recommend", kind.String())
		s.logger.Warn("ai recommendation failed, falling back to heuristic scoring",
			slog.Uint64("user_id", uint64(userID)),
			slog.Int("job_count", len(jobs)),
			slog.String("error_class", kind.String()),
			slog.Any("error", err),
		)
		result.Degraded = true
		return recs
	}

	metrics.ObserveAICall("recommend", "ok")
	result.OverallInsights = set.OverallInsights
	for i := range set.Recommendations {
		rec := set.Recommendations[i]
		recs[rec.JobIndex] = &rec
	}
	return recs
}

// matchOne 为单个职位选择匹配结果：优先采用按下标对位的
// AI 推荐，缺失则启发式打分。任何单职位层面的 panic 都被
// 隔离并替换为中性占位结果，不影响整批请求。
func (s *Service) matchOne(profile CandidateProfile, job *database.JobPosting, rec *ai.Recommendation) (match MatchResult) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("per-job match processing panicked",
				slog.Uint64("job_id", uint64(job.ID)),
				slog.Any("panic", r),
			)
			match = NeutralResult(job.ID)
		}
	}()

	if rec != nil {
		return fromRecommendation(job.ID, rec)
	}
	return Score(profile, job)
}

// Snapshot 计算投递时刻的匹配快照（启发式路径，确定性），
// 序列化后冻结在 Application.AIAnalysis 中。
func (s *Service) Snapshot(ctx context.Context, userID, resumeID uint, job *database.JobPosting) (json.RawMessage, error) {
	var user database.User
	if err := s.db.WithContext(ctx).First(&user, userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("load user %d: %w", userID, err)
	}

	resume := s.loadResume(ctx, userID, resumeID)

	var profile CandidateProfile
	if resume != nil {
		profile = NormalizeResume(resume, &user)
	} else {
		profile = NormalizeUser(&user)
	}

	match := Score(profile, job)
	payload, err := json.Marshal(match)
	if err != nil {
		return nil, fmt.Errorf("marshal match snapshot: %w", err)
	}
	return payload, nil
}

// loadResume 加载指定或最近一份已完成解析的简历。
// 简历缺失或读取失败都不致命：记录后回退到用户档案画像，
// 保证数据侧的局部故障不会让整个匹配请求失败。
func (s *Service) loadResume(ctx context.Context, userID, resumeID uint) *database.Resume {
	var resume database.Resume
	query := s.db.WithContext(ctx).
		Where("user_id = ? AND processing_status = ?", userID, database.ResumeStatusCompleted)
	if resumeID > 0 {
		query = query.Where("id = ?", resumeID)
	}

	err := query.Order("updated_at DESC").First(&resume).Error
	switch {
	case err == nil:
		return &resume
	case errors.Is(err, gorm.ErrRecordNotFound):
		return nil
	default:
		s.logger.Warn("load resume failed, degrading to profile-only matching",
			slog.Uint64("user_id", uint64(userID)),
			slog.Any("error", err),
		)
		return nil
	}
}

func toAIProfile(profile CandidateProfile) ai.Profile {
	return ai.Profile{
		Skills:              profile.Skills,
		ExperienceYears:     profile.ExperienceYears,
		PreferredJobTypes:   profile.Preferences.JobTypes,
		PreferredIndustries: profile.Preferences.Industries,
		PreferredLocations:  profile.Preferences.Locations,
		WorkMode:            profile.Preferences.WorkMode,
	}
}

func toAIJobs(jobs []database.JobPosting) []ai.Job {
	out := make([]ai.Job, 0, len(jobs))
	for i := range jobs {
		job := &jobs[i]
		req := decodeRequirements(job)

		skills := make([]string, 0, len(req.Skills))
		for _, skill := range req.Skills {
			if name := strings.TrimSpace(skill.Name); name != "" {
				skills = append(skills, name)
			}
		}

		out = append(out, ai.Job{
			Index:          i,
			Title:          job.Title,
			CompanyName:    job.CompanyName,
			Industry:       job.Industry,
			City:           job.City,
			State:          job.State,
			Remote:         job.Remote,
			EmploymentType: job.EmploymentType,
			WorkMode:       job.WorkMode,
			RequiredSkills: skills,
			MinExperience:  req.Experience.Min,
			Description:    truncate(job.Description, 600),
		})
	}
	return out
}

func fromRecommendation(jobID uint, rec *ai.Recommendation) MatchResult {
	summary := ""
	if len(rec.Reasons) > 0 {
		summary = rec.Reasons[0]
	}
	return MatchResult{
		JobID:            jobID,
		MatchScore:       clamp(rec.MatchScore),
		MatchingSkills:   lowered(rec.MatchingSkills),
		MissingSkills:    lowered(rec.MissingSkills),
		Reasons:          orEmpty(rec.Reasons),
		Suggestions:      orEmpty(rec.ImprovementSuggestions),
		AIRecommendation: summary,
		Source:           SourceAI,
	}
}

func lowered(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v = strings.ToLower(strings.TrimSpace(v)); v != "" {
			out = append(out, v)
		}
	}
	return out
}

func orEmpty(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}

func truncate(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit]) + "..."
}
