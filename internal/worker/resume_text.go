package worker

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

// parsedResumeData 对应 Resume.ParsedData 的 JSONB 结构。
type parsedResumeData struct {
	Skills     []string          `json:"skills"`
	Experience []experienceEntry `json:"experience"`
	Summary    string            `json:"summary,omitempty"`
}

type experienceEntry struct {
	Period  string `json:"period"`
	Snippet string `json:"snippet"`
}

// 关键词表覆盖常见技术栈与职业技能，用于无 AI 时的兜底解析。
// 匹配为小写包含匹配，新增条目保持小写。
var knownSkills = []string{
	"go", "golang", "java", "python", "javascript", "typescript", "c++", "c#",
	"rust", "kotlin", "swift", "ruby", "php", "scala", "sql", "html", "css",
	"react", "vue", "angular", "node.js", "next.js", "spring", "django",
	"flask", "gin", "rails", "express",
	"postgresql", "mysql", "mongodb", "redis", "elasticsearch", "sqlite",
	"kafka", "rabbitmq", "grpc", "rest", "graphql", "websocket",
	"docker", "kubernetes", "terraform", "ansible", "jenkins", "git",
	"aws", "gcp", "azure", "linux", "ci/cd", "prometheus", "grafana",
	"machine learning", "deep learning", "data analysis", "pandas", "numpy",
	"tensorflow", "pytorch", "spark", "hadoop", "tableau", "excel",
	"project management", "agile", "scrum", "communication", "leadership",
}

var yearRangePattern = regexp.MustCompile(`(?i)\b(19|20)\d{2}\s*[-–—~]\s*((19|20)\d{2}|present|now|current)\b`)

// extractPlainText 从原始字节中提取纯文本。
// 可打印字符占比过低（典型为未解码的二进制格式）时放弃提取。
func extractPlainText(data []byte) string {
	if len(data) == 0 {
		return ""
	}

	var builder strings.Builder
	printable := 0
	total := 0
	for i := 0; i < len(data); {
		r, size := utf8.DecodeRune(data[i:])
		i += size
		total++
		switch {
		case r == '\n' || r == '\t':
			printable++
			builder.WriteRune(r)
		case r == utf8.RuneError && size == 1:
			builder.WriteByte(' ')
		case unicode.IsPrint(r):
			printable++
			builder.WriteRune(r)
		default:
			builder.WriteByte(' ')
		}
	}

	if total == 0 || float64(printable)/float64(total) < 0.5 {
		return ""
	}

	return collapseWhitespace(builder.String())
}

func collapseWhitespace(s string) string {
	lines := strings.Split(s, "\n")
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		line = strings.Join(strings.Fields(line), " ")
		if line != "" {
			out = append(out, line)
		}
	}
	return strings.Join(out, "\n")
}

// parseResumeText 对简历文本做关键词级解析，产出与 AI 解析
// 同构的结果，供匹配管线在无 AI 时继续工作。
func parseResumeText(text string) parsedResumeData {
	parsed := parsedResumeData{}
	if text == "" {
		return parsed
	}

	lower := strings.ToLower(text)
	seen := make(map[string]struct{})
	for _, skill := range knownSkills {
		if _, ok := seen[skill]; ok {
			continue
		}
		if containsSkill(lower, skill) {
			seen[skill] = struct{}{}
			parsed.Skills = append(parsed.Skills, skill)
		}
	}

	for _, line := range strings.Split(text, "\n") {
		match := yearRangePattern.FindString(line)
		if match == "" {
			continue
		}
		parsed.Experience = append(parsed.Experience, experienceEntry{
			Period:  strings.TrimSpace(match),
			Snippet: truncateLine(strings.TrimSpace(line), 160),
		})
	}

	if lines := strings.SplitN(text, "\n", 4); len(lines) > 0 {
		parsed.Summary = truncateLine(strings.Join(lines[:min(3, len(lines))], " "), 280)
	}

	return parsed
}

// containsSkill 做词边界敏感的包含匹配，避免 "go" 命中 "google" 一类误报。
func containsSkill(lower, skill string) bool {
	idx := 0
	for {
		pos := strings.Index(lower[idx:], skill)
		if pos < 0 {
			return false
		}
		pos += idx
		before := byte(' ')
		if pos > 0 {
			before = lower[pos-1]
		}
		after := byte(' ')
		if end := pos + len(skill); end < len(lower) {
			after = lower[end]
		}
		if isBoundary(before) && isBoundary(after) {
			return true
		}
		idx = pos + len(skill)
		if idx >= len(lower) {
			return false
		}
	}
}

func isBoundary(b byte) bool {
	return !(b >= 'a' && b <= 'z') && !(b >= '0' && b <= '9')
}

func truncateLine(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max])
}
