package matching

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"

	"talenthub/internal/database"
)

// 启发式打分权重。这些是沿用已上线排序行为的调参常量，
// 调整任何一项都会静默改变全量用户的排序，未经产品确认不得修改。
const (
	skillWeight      = 50
	experienceWeight = 30
	locationWeight   = 20
	jobTypeWeight    = 20
	industryWeight   = 20

	// neutralScore 用于没有任何可用评分因子的职位，
	// 避免对未声明要求的职位产生惩罚或加成。
	neutralScore = 50
)

// Score 对单个职位做确定性的启发式打分。
// 纯函数：相同输入必然产出相同结果，无隐藏随机性。
func Score(profile CandidateProfile, job *database.JobPosting) MatchResult {
	req := decodeRequirements(job)

	var earned, total float64
	var reasons, suggestions []string

	matchingSkills, missingSkills := overlapSkills(profile.Skills, req.Skills)

	// 技能因子：仅当职位声明了技能要求时适用。
	skillApplicable := len(req.Skills) > 0
	if skillApplicable {
		total += skillWeight
		earned += skillWeight * float64(len(matchingSkills)) / float64(len(req.Skills))

		if len(matchingSkills) > 0 {
			reasons = append(reasons, "Strong skill match: "+strings.Join(matchingSkills, ", "))
		} else {
			reasons = append(reasons, "No overlapping skills with the listed requirements")
		}
		if len(missingSkills) > 0 {
			suggestions = append(suggestions, "Consider developing: "+strings.Join(missingSkills, ", "))
		}
	}

	// 经验因子：职位声明了技能或最低年限才适用；
	// 最低年限为 0 时给满分（职位对经验无门槛）。
	minExp := req.Experience.Min
	if skillApplicable || minExp > 0 {
		total += experienceWeight
		switch {
		case minExp <= 0 || profile.ExperienceYears >= minExp:
			earned += experienceWeight
			reasons = append(reasons, "Meets the experience requirement")
		default:
			earned += float64(profile.ExperienceYears) / float64(minExp) * experienceWeight
			suggestions = append(suggestions,
				fmt.Sprintf("Build up to %d years of relevant experience", minExp))
		}
	}

	// 地点因子：仅当用户声明了地点偏好时适用；远程职位视为命中。
	if len(profile.Preferences.Locations) > 0 {
		total += locationWeight
		if job.Remote || locationPreferred(profile.Preferences.Locations, job) {
			earned += locationWeight
			reasons = append(reasons, "Located in a preferred area")
		}
	}

	// 职位类型因子：仅当用户声明了类型偏好时适用。
	if len(profile.Preferences.JobTypes) > 0 {
		total += jobTypeWeight
		if containsFold(profile.Preferences.JobTypes, job.EmploymentType) {
			earned += jobTypeWeight
			reasons = append(reasons, "Matches your preferred job type")
		}
	}

	// 行业因子：仅当用户声明了行业偏好时适用。
	if len(profile.Preferences.Industries) > 0 {
		total += industryWeight
		if containsFold(profile.Preferences.Industries, job.Industry) {
			earned += industryWeight
			reasons = append(reasons, "Matches your preferred industry")
		}
	}

	score := neutralScore
	if total > 0 {
		score = clamp(int(math.Round(earned / total * 100)))
	}
	if len(reasons) == 0 {
		reasons = append(reasons, "The posting declares no specific requirements to compare against")
	}

	return MatchResult{
		JobID:          job.ID,
		MatchScore:     score,
		MatchingSkills: matchingSkills,
		MissingSkills:  missingSkills,
		Reasons:        reasons,
		Suggestions:    suggestions,
		Source:         SourceHeuristic,
	}
}

// NeutralResult 是单职位处理出错时的占位结果，
// 保证批量匹配的局部失败不会拖垮整个请求。
func NeutralResult(jobID uint) MatchResult {
	return MatchResult{
		JobID:          jobID,
		MatchScore:     neutralScore,
		MatchingSkills: []string{},
		MissingSkills:  []string{},
		Reasons:        []string{"Basic match - processing error"},
		Suggestions:    []string{},
		Source:         SourceHeuristic,
	}
}

func decodeRequirements(job *database.JobPosting) Requirements {
	var req Requirements
	if len(job.Requirements) > 0 {
		_ = json.Unmarshal(job.Requirements, &req)
	}
	return req
}

// overlapSkills 做大小写不敏感的双向子串匹配：
// 职位技能与候选人技能任一方向包含即视为命中。
func overlapSkills(profileSkills []string, required []RequiredSkill) (matching, missing []string) {
	matching = make([]string, 0, len(required))
	missing = make([]string, 0, len(required))

	for _, reqSkill := range required {
		name := strings.ToLower(strings.TrimSpace(reqSkill.Name))
		if name == "" {
			continue
		}
		if skillKnown(profileSkills, name) {
			matching = append(matching, name)
		} else {
			missing = append(missing, name)
		}
	}
	return matching, missing
}

func skillKnown(profileSkills []string, jobSkill string) bool {
	for _, have := range profileSkills {
		if strings.Contains(have, jobSkill) || strings.Contains(jobSkill, have) {
			return true
		}
	}
	return false
}

func locationPreferred(preferred []string, job *database.JobPosting) bool {
	city := strings.ToLower(job.City)
	state := strings.ToLower(job.State)
	for _, loc := range preferred {
		loc = strings.ToLower(strings.TrimSpace(loc))
		if loc == "" {
			continue
		}
		if strings.Contains(city, loc) || strings.Contains(state, loc) {
			return true
		}
	}
	return false
}

func containsFold(values []string, target string) bool {
	for _, v := range values {
		if strings.EqualFold(strings.TrimSpace(v), strings.TrimSpace(target)) {
			return true
		}
	}
	return false
}

func clamp(score int) int {
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}
