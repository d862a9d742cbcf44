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

//go:embed analyze_prompt.md
var analyzePromptTemplate string

// 过长的简历文本直接截断，控制 token 成本。
const maxResumeTextRunes = 12000

// Analyzer 通过 Gemini 对简历原文做结构化分析。
type Analyzer struct {
	generator contentGenerator
	logger    *slog.Logger
	timeout   time.Duration
}

// NewAnalyzer 构造 Analyzer。timeout 非正时使用默认值。
func NewAnalyzer(generator contentGenerator, logger *slog.Logger, timeout time.Duration) *Analyzer {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Analyzer{
		generator: generator,
		logger:    logger,
		timeout:   timeout,
	}
}

// Analyze 实现 ai.Analyzer。
func (a *Analyzer) Analyze(ctx context.Context, resumeText string) (*ai.ResumeAnalysis, error) {
	resumeText = strings.TrimSpace(resumeText)
	if resumeText == "" {
		return nil, ai.NewFailure(ai.MalformedResponse, errors.New("resume text is empty"))
	}
	if runes := []rune(resumeText); len(runes) > maxResumeTextRunes {
		resumeText = string(runes[:maxResumeTextRunes])
	}

	prompt := strings.ReplaceAll(analyzePromptTemplate, "{{RESUME_TEXT}}", resumeText)

	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	start := time.Now()
	raw, err := a.generator.GenerateContent(ctx, prompt)
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

	a.logger.Debug("gemini analysis response",
		slog.Int("response_length", len(raw)),
		slog.Duration("latency", time.Since(start)),
	)

	return parseAnalysis(raw)
}

func parseAnalysis(raw string) (*ai.ResumeAnalysis, error) {
	cleaned := stripCodeFence(raw)

	payload, ok := extractBalancedJSON(cleaned)
	if !ok {
		return nil, ai.NewFailure(ai.MalformedResponse, errors.New("no json object found in response"))
	}

	var analysis ai.ResumeAnalysis
	if err := json.Unmarshal([]byte(payload), &analysis); err != nil {
		return nil, ai.NewFailure(ai.MalformedResponse, fmt.Errorf("parse analysis json: %w", err))
	}

	if len(analysis.Skills) == 0 && analysis.Summary == "" {
		return nil, ai.NewFailure(ai.MalformedResponse, errors.New("analysis carries no content"))
	}

	if analysis.ExperienceYears < 0 {
		analysis.ExperienceYears = 0
	}
	for i, skill := range analysis.Skills {
		analysis.Skills[i] = strings.ToLower(strings.TrimSpace(skill))
	}

	return &analysis, nil
}
