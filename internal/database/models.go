package database

import (
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// 用户角色常量。
const (
	RoleStudent   = "student"
	RoleRecruiter = "recruiter"
)

// 简历处理状态常量，与前端轮询/推送保持一致。
const (
	ResumeStatusPending    = "pending"
	ResumeStatusProcessing = "processing"
	ResumeStatusCompleted  = "completed"
	ResumeStatusFailed     = "failed"
)

// 职位状态常量，仅 active 参与匹配。
const (
	JobStatusActive = "active"
	JobStatusPaused = "paused"
	JobStatusClosed = "closed"
	JobStatusDraft  = "draft"
)

// User 表示系统中的账号信息。
// Skills 与 Preferences 以 JSONB 存储：
//   - Skills:      [{"name": "...", "level": "...", "category": "..."}]
//   - Preferences: {"jobTypes": [...], "industries": [...], "locations": [...],
//     "salaryRange": {"min": 0, "max": 0}, "workMode": "..."}
type User struct {
	gorm.Model
	Username     string         `gorm:"uniqueIndex;size:64"`
	PasswordHash string         `gorm:"size:255"`
	Role         string         `gorm:"size:16;index;default:student"`
	Headline     string         `gorm:"size:255"`
	Skills       datatypes.JSON `gorm:"type:jsonb"`
	Preferences  datatypes.JSON `gorm:"type:jsonb"`
	Resumes      []Resume       `gorm:"constraint:OnDelete:CASCADE"`
}

// Resume 表示用户上传的简历。
// ParsedData 为解析产物（技能/经历/教育），Analysis 为 AI 分析结果，
// 两者均由 worker 异步写入，匹配管线只读。
type Resume struct {
	gorm.Model
	Title            string         `gorm:"size:255"`
	UserID           uint           `gorm:"index"`
	User             User           `gorm:"constraint:OnDelete:CASCADE"`
	ObjectKey        string         `gorm:"size:512"`
	RawText          string         `gorm:"type:text"`
	ParsedData       datatypes.JSON `gorm:"type:jsonb"`
	Analysis         datatypes.JSON `gorm:"type:jsonb"`
	ProcessingStatus string         `gorm:"size:32;index;default:pending"`
}

// JobPosting 表示招聘方发布的职位。
// 过滤字段（类型/模式/行业/地点/薪资）为独立列以便查询，
// Requirements 以 JSONB 存储：
//
//	{"skills": [{"name": "...", "level": "...", "isRequired": true}],
//	 "experience": {"min": 0, "max": 0, "level": "..."}}
type JobPosting struct {
	gorm.Model
	RecruiterID    uint           `gorm:"index"`
	Title          string         `gorm:"size:255"`
	Description    string         `gorm:"type:text"`
	CompanyName    string         `gorm:"size:255"`
	Industry       string         `gorm:"size:128;index"`
	City           string         `gorm:"size:128"`
	State          string         `gorm:"size:128"`
	Remote         bool           `gorm:"index"`
	EmploymentType string         `gorm:"size:32;index"`
	WorkMode       string         `gorm:"size:32;index"`
	SalaryMin      int            `gorm:"default:0"`
	SalaryMax      int            `gorm:"default:0"`
	Requirements   datatypes.JSON `gorm:"type:jsonb"`
	Status         string         `gorm:"size:16;index;default:draft"`
}

// Application 表示一次投递。
// AIAnalysis 为投递时刻计算的匹配快照，之后不再更新，
// 与浏览时实时计算的匹配结果生命周期不同。
type Application struct {
	gorm.Model
	UserID       uint           `gorm:"index;uniqueIndex:idx_user_job"`
	User         User           `gorm:"constraint:OnDelete:CASCADE"`
	JobPostingID uint           `gorm:"index;uniqueIndex:idx_user_job"`
	JobPosting   JobPosting     `gorm:"constraint:OnDelete:CASCADE"`
	ResumeID     uint           `gorm:"index"`
	Status       string         `gorm:"size:32;default:submitted"`
	AIAnalysis   datatypes.JSON `gorm:"type:jsonb"`
}
