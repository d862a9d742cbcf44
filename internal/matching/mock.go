package matching

import (
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"talenthub/internal/database"
)

// MockJobCount 是兜底职位的固定数量。
const MockJobCount = 3

// MockJobPostings 返回一小组演示职位，在数据库没有任何 active
// 职位时替代真实数据，保证前端不会渲染完全空白的列表。
// 这是体验兜底，不是权威数据。
func MockJobPostings() []database.JobPosting {
	return []database.JobPosting{
		{
			Model:          gorm.Model{ID: 900001},
			Title:          "Frontend Developer",
			CompanyName:    "TechCorp Solutions",
			Industry:       "Technology",
			City:           "San Francisco",
			State:          "CA",
			Remote:         true,
			EmploymentType: "full-time",
			WorkMode:       "remote",
			SalaryMin:      90000,
			SalaryMax:      130000,
			Status:         database.JobStatusActive,
			Requirements: datatypes.JSON([]byte(`{
				"skills": [
					{"name": "React", "isRequired": true},
					{"name": "JavaScript", "isRequired": true},
					{"name": "CSS", "isRequired": false}
				],
				"experience": {"min": 2, "max": 5, "level": "mid"}
			}`)),
		},
		{
			Model:          gorm.Model{ID: 900002},
			Title:          "Backend Engineer",
			CompanyName:    "DataFlow Systems",
			Industry:       "Technology",
			City:           "Austin",
			State:          "TX",
			Remote:         false,
			EmploymentType: "full-time",
			WorkMode:       "hybrid",
			SalaryMin:      100000,
			SalaryMax:      150000,
			Status:         database.JobStatusActive,
			Requirements: datatypes.JSON([]byte(`{
				"skills": [
					{"name": "Node.js", "isRequired": true},
					{"name": "MongoDB", "isRequired": true},
					{"name": "Docker", "isRequired": false}
				],
				"experience": {"min": 3, "max": 7, "level": "mid"}
			}`)),
		},
		{
			Model:          gorm.Model{ID: 900003},
			Title:          "Data Analyst Intern",
			CompanyName:    "InsightWorks",
			Industry:       "Analytics",
			City:           "New York",
			State:          "NY",
			Remote:         false,
			EmploymentType: "internship",
			WorkMode:       "onsite",
			SalaryMin:      45000,
			SalaryMax:      60000,
			Status:         database.JobStatusActive,
			Requirements: datatypes.JSON([]byte(`{
				"skills": [
					{"name": "SQL", "isRequired": true},
					{"name": "Python", "isRequired": false}
				],
				"experience": {"min": 0, "max": 1, "level": "entry"}
			}`)),
		},
	}
}
