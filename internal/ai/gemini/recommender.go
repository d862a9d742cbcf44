package gemini

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	_ "embed"

	"talenthub/internal/ai"
)

//go:embed prompt.md
var promptTemplate string

const defaultTimeout = 12 * time.Second

type contentGenerator interface {
	GenerateContent(ctx context.Context, prompt string) (string, error)
}

// Recommender 通过 Gemini 为候选集中的每个职位生成推荐打分。
// 每次调用施加硬超时，保证匹配管线不会阻塞在该依赖上。
type Recommender struct {
	generator contentGenerator
	logger    *slog.Logger
	timeout   time.Duration
}

// NewRecommender 构造 Recommender。timeout 非正时使用默认值。
func NewRecommender(generator contentGenerator, logger *slog.Logger, timeout time.Duration) *Recommender {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Recommender{
		generator: generator,
		logger:    logger,
		timeout:   timeout,
	}
}

// Recommend 实现 ai.Recommender。
func (r *Recommender) Recommend(ctx context.Context, profile ai.Profile, jobs []ai.Job) (*ai.RecommendationSet, error) {
	if len(jobs) == 0 {
		return &ai.RecommendationSet{}, nil
	}

	profileJSON, err := json.MarshalIndent(profile, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal profile payload: %w", err)
	}

	jobsJSON, err := json.MarshalIndent(jobs, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal jobs payload: %w", err)
	}

	prompt := buildPrompt(string(profileJSON), string(jobsJSON))

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	start := time.Now()
	raw, err := r.generator.GenerateContent(ctx, prompt)
	if err != nil {
		var failure *ai.Failure
		if errors.As(err, &failure) {
			return nil, err
		}
		if ctxErr := ctx.Err(); errors.Is(ctxErr, context.DeadlineExceeded) {
			return nil, ai.NewFailure(ai.TransientUnavailable, ctxErr)
		}
		return nil, ai.NewFailure(ai.TransientUnavailable, err)
	}

	r.logger.Debug("gemini recommendation response",
		slog.Int("job_count", len(jobs)),
		slog.Int("response_length", len(raw)),
		slog.Duration("latency", time.Since(start)),
	)

	set, err := parseRecommendations(raw, len(jobs))
	if err != nil {
		return nil, err
	}

	return set, nil
}

func buildPrompt(profileJSON, jobsJSON string) string {
	prompt := strings.ReplaceAll(promptTemplate, "{{PROFILE_JSON}}", profileJSON)
	prompt = strings.ReplaceAll(prompt, "{{JOBS_JSON}}", jobsJSON)
	return prompt
}

// parseRecommendations 在响应文本中定位第一段配平的 {...} 并解析。
// 解析失败或形状不符即判定 MalformedResponse，由调用方降级。
func parseRecommendations(raw string, jobCount int) (*ai.RecommendationSet, error) {
	cleaned := stripCodeFence(raw)

	payload, ok := extractBalancedJSON(cleaned)
	if !ok {
		return nil, ai.NewFailure(ai.MalformedResponse, errors.New("no json object found in response"))
	}

	var wire struct {
		Recommendations []struct {
			JobIndex               *int     `json:"jobIndex"`
			MatchScore             *float64 `json:"matchScore"`
			MatchingSkills         []string `json:"matchingSkills"`
			MissingSkills          []string `json:"missingSkills"`
			Reasons                []string `json:"reasons"`
			ImprovementSuggestions []string `json:"improvementSuggestions"`
		} `json:"recommendations"`
		OverallInsights string `json:"overallInsights"`
	}
	if err := json.Unmarshal([]byte(payload), &wire); err != nil {
		return nil, ai.NewFailure(ai.MalformedResponse, fmt.Errorf("parse response json: %w", err))
	}

	if len(wire.Recommendations) == 0 {
		return nil, ai.NewFailure(ai.MalformedResponse, errors.New("response carries no recommendations"))
	}

	set := &ai.RecommendationSet{OverallInsights: strings.TrimSpace(wire.OverallInsights)}
	for _, rec := range wire.Recommendations {
		// 形状校验：下标与分数缺失或越界的条目直接丢弃，
		// 对应职位由调用方回退到启发式打分。
		if rec.JobIndex == nil || rec.MatchScore == nil {
			continue
		}
		idx := *rec.JobIndex
		if idx < 0 || idx >= jobCount {
			continue
		}
		set.Recommendations = append(set.Recommendations, ai.Recommendation{
			JobIndex:               idx,
			MatchScore:             clampScore(int(*rec.MatchScore + 0.5)),
			MatchingSkills:         rec.MatchingSkills,
			MissingSkills:          rec.MissingSkills,
			Reasons:                rec.Reasons,
			ImprovementSuggestions: rec.ImprovementSuggestions,
		})
	}

	if len(set.Recommendations) == 0 {
		return nil, ai.NewFailure(ai.MalformedResponse, errors.New("no usable recommendation entries"))
	}

	return set, nil
}

func stripCodeFence(raw string) string {
	raw = strings.TrimSpace(raw)
	if strings.HasPrefix(raw, "```") {
		raw = strings.TrimPrefix(raw, "```json")
		raw = strings.TrimPrefix(raw, "```")
		raw = strings.TrimSpace(raw)
		if idx := strings.LastIndex(raw, "```"); idx != -1 {
			raw = raw[:idx]
		}
	}
	return strings.TrimSpace(strings.Trim(raw, "`"))
}

// extractBalancedJSON 返回文本中第一段大括号配平的子串。
// 跳过字符串字面量内部的大括号与转义字符。
func extractBalancedJSON(s string) (string, bool) {
	start := strings.IndexByte(s, '{')
	if start < 0 {
		return "", false
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		ch := s[i]
		if escaped {
			escaped = false
			continue
		}
		switch ch {
		case '\\':
			if inString {
				escaped = true
			}
		case '"':
			inString = !inString
		case '{':
			if !inString {
				depth++
			}
		case '}':
			if !inString {
				depth--
				if depth == 0 {
					return s[start : i+1], true
				}
			}
		}
	}
	return "", false
}

func clampScore(score int) int {
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}
