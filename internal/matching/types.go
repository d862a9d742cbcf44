package matching

// UserSkill 是用户档案中技能的存储形态。
type UserSkill struct {
	Name     string `json:"name"`
	Level    string `json:"level,omitempty"`
	Category string `json:"category,omitempty"`
}

// SalaryRange 表示期望/提供的薪资区间。
type SalaryRange struct {
	Min int `json:"min,omitempty"`
	Max int `json:"max,omitempty"`
}

// Preferences 是用户的求职偏好。
type Preferences struct {
	JobTypes    []string    `json:"jobTypes,omitempty"`
	Industries  []string    `json:"industries,omitempty"`
	Locations   []string    `json:"locations,omitempty"`
	SalaryRange SalaryRange `json:"salaryRange,omitempty"`
	WorkMode    string      `json:"workMode,omitempty"`
}

// CandidateProfile 是归一化后的候选人画像，
// 由简历解析结果或用户档案二者之一产出，下游统一消费该形态。
type CandidateProfile struct {
	Skills          []string
	ExperienceYears int
	Preferences     Preferences
}

// RequiredSkill 是职位要求中的单项技能。
type RequiredSkill struct {
	Name       string `json:"name"`
	Level      string `json:"level,omitempty"`
	IsRequired bool   `json:"isRequired,omitempty"`
}

// ExperienceRequirement 是职位的经验要求。
type ExperienceRequirement struct {
	Min   int    `json:"min,omitempty"`
	Max   int    `json:"max,omitempty"`
	Level string `json:"level,omitempty"`
}

// Requirements 对应 JobPosting.Requirements 的 JSONB 结构。
type Requirements struct {
	Skills     []RequiredSkill       `json:"skills,omitempty"`
	Experience ExperienceRequirement `json:"experience,omitempty"`
}

// 匹配来源标识。
const (
	SourceAI        = "ai"
	SourceHeuristic = "heuristic"
)

// MatchResult 是单个职位的匹配结果。仅在响应中出现，从不落库。
type MatchResult struct {
	JobID            uint     `json:"jobId"`
	MatchScore       int      `json:"matchScore"`
	MatchingSkills   []string `json:"matchingSkills"`
	MissingSkills    []string `json:"missingSkills"`
	Reasons          []string `json:"reasons"`
	Suggestions      []string `json:"suggestions"`
	AIRecommendation string   `json:"aiRecommendation,omitempty"`
	Source           string   `json:"source"`
}

// JobFilters 是候选职位集的粗筛条件。
type JobFilters struct {
	EmploymentType string
	WorkMode       string
	Industry       string
	Location       string
	Remote         *bool
	MinSalary      int
	MaxSalary      int
}
