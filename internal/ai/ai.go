package ai

import (
	"context"
	"errors"
	"fmt"
)

// Profile 是送入推荐后端的候选人画像（已归一化）。
type Profile struct {
	Skills              []string `json:"skills"`
	ExperienceYears     int      `json:"experienceYears"`
	PreferredJobTypes   []string `json:"preferredJobTypes,omitempty"`
	PreferredIndustries []string `json:"preferredIndustries,omitempty"`
	PreferredLocations  []string `json:"preferredLocations,omitempty"`
	WorkMode            string   `json:"workMode,omitempty"`
}

// Job 是送入推荐后端的职位摘要，Index 为职位在候选集中的位置，
// 推荐结果通过该下标回关联。
type Job struct {
	Index          int      `json:"index"`
	Title          string   `json:"title"`
	CompanyName    string   `json:"companyName"`
	Industry       string   `json:"industry,omitempty"`
	City           string   `json:"city,omitempty"`
	State          string   `json:"state,omitempty"`
	Remote         bool     `json:"remote"`
	EmploymentType string   `json:"employmentType,omitempty"`
	WorkMode       string   `json:"workMode,omitempty"`
	RequiredSkills []string `json:"requiredSkills"`
	MinExperience  int      `json:"minExperience"`
	Description    string   `json:"description,omitempty"`
}

// Recommendation 是推荐后端对单个职位的打分结果。
type Recommendation struct {
	JobIndex               int      `json:"jobIndex"`
	MatchScore             int      `json:"matchScore"`
	MatchingSkills         []string `json:"matchingSkills"`
	MissingSkills          []string `json:"missingSkills"`
	Reasons                []string `json:"reasons"`
	ImprovementSuggestions []string `json:"improvementSuggestions"`
}

// RecommendationSet 是一次推荐调用的完整结果。
type RecommendationSet struct {
	Recommendations []Recommendation `json:"recommendations"`
	OverallInsights string           `json:"overallInsights"`
}

// Recommender 是生成式推荐后端的抽象。
// 实现必须在内部施加硬超时，调用方依赖其不会无限阻塞。
type Recommender interface {
	Recommend(ctx context.Context, profile Profile, jobs []Job) (*RecommendationSet, error)
}

// ResumeAnalysis 是简历文本分析的结构化结果。
type ResumeAnalysis struct {
	Skills          []string `json:"skills"`
	ExperienceYears int      `json:"experienceYears"`
	Summary         string   `json:"summary"`
	Strengths       []string `json:"strengths"`
	Improvements    []string `json:"improvements"`
}

// Analyzer 是简历文本分析后端的抽象，失败语义与 Recommender 一致。
type Analyzer interface {
	Analyze(ctx context.Context, resumeText string) (*ResumeAnalysis, error)
}

// FailureKind 区分推荐后端的失败类别，调用方据此决定降级策略。
type FailureKind int

const (
	// RateLimited 表示配额耗尽（HTTP 429 等），立即降级，不重试。
	RateLimited FailureKind = iota + 1
	// TransientUnavailable 表示网络/模型侧的临时错误，降级并记录。
	TransientUnavailable
	// MalformedResponse 表示响应中没有可解析的 JSON。
	MalformedResponse
)

func (k FailureKind) String() string {
	switch k {
	case RateLimited:
		return "rate_limited"
	case TransientUnavailable:
		return "transient_unavailable"
	case MalformedResponse:
		return "malformed_response"
	default:
		return "unknown"
	}
}

// Failure 携带失败类别的错误值，替代以异常驱动的降级控制流。
type Failure struct {
	Kind FailureKind
	Err  error
}

func (f *Failure) Error() string {
	if f.Err == nil {
		return f.Kind.String()
	}
	return fmt.Sprintf("%s: %v", f.Kind, f.Err)
}

func (f *Failure) Unwrap() error { return f.Err }

// NewFailure 构造指定类别的 Failure。
func NewFailure(kind FailureKind, err error) *Failure {
	return &Failure{Kind: kind, Err: err}
}

// KindOf 返回错误对应的失败类别；非 Failure 错误视为临时错误。
func KindOf(err error) FailureKind {
	var f *Failure
	if errors.As(err, &f) {
		return f.Kind
	}
	return TransientUnavailable
}

// IsRateLimited 判断错误是否为配额类失败。
func IsRateLimited(err error) bool {
	return KindOf(err) == RateLimited
}
