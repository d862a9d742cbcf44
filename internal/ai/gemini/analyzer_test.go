package gemini

import (
	"context"
	"reflect"
	"testing"
	"time"

	"talenthub/internal/ai"
)

func TestAnalyzeParsesResponse(t *testing.T) {
	stub := &stubGenerator{response: `{
		"skills": ["Go", " SQL "],
		"experienceYears": 4,
		"summary": "Backend engineer with four years of experience.",
		"strengths": ["solid database background"],
		"improvements": ["add open source work"]
	}`}

	a := NewAnalyzer(stub, nil, time.Second)
	analysis, err := a.Analyze(context.Background(), "some resume text")
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}

	if !reflect.DeepEqual(analysis.Skills, []string{"go", "sql"}) {
		t.Fatalf("expected lowercased skills, got %v", analysis.Skills)
	}
	if analysis.ExperienceYears != 4 {
		t.Fatalf("unexpected years: %d", analysis.ExperienceYears)
	}
}

func TestAnalyzeRejectsEmptyText(t *testing.T) {
	stub := &stubGenerator{}

	a := NewAnalyzer(stub, nil, time.Second)
	_, err := a.Analyze(context.Background(), "   ")
	if ai.KindOf(err) != ai.MalformedResponse {
		t.Fatalf("expected malformed classification, got %v", err)
	}
	if len(stub.prompts) != 0 {
		t.Fatal("generator should not be called for empty input")
	}
}

func TestAnalyzeMalformedResponse(t *testing.T) {
	stub := &stubGenerator{response: "no json here"}

	a := NewAnalyzer(stub, nil, time.Second)
	_, err := a.Analyze(context.Background(), "resume text")
	if ai.KindOf(err) != ai.MalformedResponse {
		t.Fatalf("expected malformed classification, got %v", err)
	}
}

func TestAnalyzeNegativeYearsClamped(t *testing.T) {
	stub := &stubGenerator{response: `{"skills":["go"],"experienceYears":-3,"summary":"x"}`}

	a := NewAnalyzer(stub, nil, time.Second)
	analysis, err := a.Analyze(context.Background(), "resume text")
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}
	if analysis.ExperienceYears != 0 {
		t.Fatalf("expected clamped years, got %d", analysis.ExperienceYears)
	}
}
