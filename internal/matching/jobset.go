package matching

import (
	"context"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"talenthub/internal/database"
)

// MaxJobSetSize 限制单次匹配请求的候选职位数量。
// 该上限约束送往推荐后端的 prompt 规模，是成本安全阀而非查询优化。
const MaxJobSetSize = 50

// BuildJobSet 按粗筛条件查询 active 职位，按创建时间倒序，
// 数量封顶 limit（非正时取 MaxJobSetSize）。
func BuildJobSet(ctx context.Context, db *gorm.DB, filters JobFilters, limit int) ([]database.JobPosting, error) {
	if limit <= 0 || limit > MaxJobSetSize {
		limit = MaxJobSetSize
	}

	query := db.WithContext(ctx).
		Model(&database.JobPosting{}).
		Where("status = ?", database.JobStatusActive)

	if filters.EmploymentType != "" {
		query = query.Where("employment_type = ?", filters.EmploymentType)
	}
	if filters.WorkMode != "" {
		query = query.Where("work_mode = ?", filters.WorkMode)
	}
	if filters.Industry != "" {
		query = query.Where("LOWER(industry) LIKE ?", likePattern(filters.Industry))
	}
	if filters.Location != "" {
		pattern := likePattern(filters.Location)
		query = query.Where("LOWER(city) LIKE ? OR LOWER(state) LIKE ?", pattern, pattern)
	}
	if filters.Remote != nil {
		query = query.Where("remote = ?", *filters.Remote)
	}
	if filters.MinSalary > 0 {
		query = query.Where("salary_max >= ?", filters.MinSalary)
	}
	if filters.MaxSalary > 0 {
		query = query.Where("salary_min <= ?", filters.MaxSalary)
	}

	var jobs []database.JobPosting
	if err := query.
		Order("created_at DESC").
		Limit(limit).
		Find(&jobs).Error; err != nil {
		return nil, fmt.Errorf("query active postings: %w", err)
	}

	return jobs, nil
}

func likePattern(value string) string {
	return "%" + strings.ToLower(strings.TrimSpace(value)) + "%"
}
