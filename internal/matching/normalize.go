package matching

import (
	"encoding/json"
	"strings"

	"talenthub/internal/database"
)

// 经验年限推断：每段经历按两年折算，封顶十年。
// 这两个值是沿用已上线排序行为的调参常量，调整会静默改变
// 全量用户的排序结果，未经产品确认不得修改。
const (
	YearsPerExperienceEntry    = 2
	MaxInferredExperienceYears = 10
)

// parsedResume 对应 Resume.ParsedData 的 JSONB 结构。
// skills 的元素历史上既可能是字符串，也可能是 {"name": ...} 对象，
// 归一化边界在此处统一消解，下游不再接触这种二义形态。
type parsedResume struct {
	Skills     []json.RawMessage `json:"skills"`
	Experience []json.RawMessage `json:"experience"`
}

// NormalizeUser 从用户档案产出归一化画像。
func NormalizeUser(user *database.User) CandidateProfile {
	var skills []UserSkill
	if len(user.Skills) > 0 {
		_ = json.Unmarshal(user.Skills, &skills)
	}

	names := make([]string, 0, len(skills))
	for _, s := range skills {
		names = append(names, s.Name)
	}

	var prefs Preferences
	if len(user.Preferences) > 0 {
		_ = json.Unmarshal(user.Preferences, &prefs)
	}

	return CandidateProfile{
		Skills:      normalizeSkillNames(names),
		Preferences: prefs,
	}
}

// NormalizeResume 从已完成解析的简历产出归一化画像。
// 偏好仍取自用户档案（简历不携带偏好）。
func NormalizeResume(resume *database.Resume, user *database.User) CandidateProfile {
	profile := NormalizeUser(user)

	if resume == nil || len(resume.ParsedData) == 0 {
		return profile
	}

	var parsed parsedResume
	if err := json.Unmarshal(resume.ParsedData, &parsed); err != nil {
		return profile
	}

	names := make([]string, 0, len(parsed.Skills))
	for _, raw := range parsed.Skills {
		if name := decodeSkillName(raw); name != "" {
			names = append(names, name)
		}
	}
	if len(names) > 0 {
		profile.Skills = normalizeSkillNames(names)
	}

	profile.ExperienceYears = InferExperienceYears(len(parsed.Experience))

	return profile
}

// InferExperienceYears 按经历条目数推断经验年限。
func InferExperienceYears(experienceEntries int) int {
	if experienceEntries <= 0 {
		return 0
	}
	years := experienceEntries * YearsPerExperienceEntry
	if years > MaxInferredExperienceYears {
		return MaxInferredExperienceYears
	}
	return years
}

// decodeSkillName 接受字符串或 {"name": ...} 对象两种历史形态。
func decodeSkillName(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return strings.TrimSpace(s)
	}

	var obj struct {
		Name string `json:"name"`
	}
	if err := json.Unmarshal(raw, &obj); err == nil {
		return strings.TrimSpace(obj.Name)
	}

	return ""
}

// normalizeSkillNames 统一小写、去空白并去重，保持首次出现的顺序。
func normalizeSkillNames(names []string) []string {
	seen := make(map[string]struct{}, len(names))
	result := make([]string, 0, len(names))
	for _, name := range names {
		name = strings.ToLower(strings.TrimSpace(name))
		if name == "" {
			continue
		}
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		result = append(result, name)
	}
	return result
}
