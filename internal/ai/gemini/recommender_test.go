package gemini

import (
	"context"
	"errors"
	"testing"
	"time"

	"talenthub/internal/ai"
)

type stubGenerator struct {
	response string
	err      error
	prompts  []string
}

func (s *stubGenerator) GenerateContent(_ context.Context, prompt string) (string, error) {
	s.prompts = append(s.prompts, prompt)
	if s.err != nil {
		return "", s.err
	}
	return s.response, nil
}

func testProfile() ai.Profile {
	return ai.Profile{Skills: []string{"go", "sql"}, ExperienceYears: 3}
}

func testJobs() []ai.Job {
	return []ai.Job{
		{Index: 0, Title: "Backend Engineer", CompanyName: "ACME", RequiredSkills: []string{"go"}},
		{Index: 1, Title: "Data Analyst", CompanyName: "ACME", RequiredSkills: []string{"sql"}},
	}
}

func TestRecommendParsesResponse(t *testing.T) {
	stub := &stubGenerator{response: `{
		"recommendations": [
			{"jobIndex": 0, "matchScore": 85, "matchingSkills": ["go"], "missingSkills": [], "reasons": ["direct skill match"], "improvementSuggestions": []},
			{"jobIndex": 1, "matchScore": 60, "matchingSkills": ["sql"], "missingSkills": ["tableau"], "reasons": ["partial match"], "improvementSuggestions": ["learn tableau"]}
		],
		"overallInsights": "strong backend profile"
	}`}

	r := NewRecommender(stub, nil, time.Second)
	set, err := r.Recommend(context.Background(), testProfile(), testJobs())
	if err != nil {
		t.Fatalf("recommend: %v", err)
	}

	if len(set.Recommendations) != 2 {
		t.Fatalf("expected 2 recommendations, got %d", len(set.Recommendations))
	}
	if set.Recommendations[0].MatchScore != 85 {
		t.Fatalf("unexpected score: %d", set.Recommendations[0].MatchScore)
	}
	if set.OverallInsights != "strong backend profile" {
		t.Fatalf("unexpected insights: %q", set.OverallInsights)
	}
	if len(stub.prompts) != 1 {
		t.Fatalf("expected one generation call, got %d", len(stub.prompts))
	}
}

func TestRecommendStripsCodeFence(t *testing.T) {
	stub := &stubGenerator{response: "```json\n" + `{"recommendations":[{"jobIndex":0,"matchScore":70,"reasons":["ok"]}],"overallInsights":""}` + "\n```"}

	r := NewRecommender(stub, nil, time.Second)
	set, err := r.Recommend(context.Background(), testProfile(), testJobs())
	if err != nil {
		t.Fatalf("recommend: %v", err)
	}
	if len(set.Recommendations) != 1 || set.Recommendations[0].MatchScore != 70 {
		t.Fatalf("unexpected result: %+v", set.Recommendations)
	}
}

func TestRecommendExtractsEmbeddedJSON(t *testing.T) {
	stub := &stubGenerator{response: `Here is my analysis:
{"recommendations":[{"jobIndex":1,"matchScore":55}],"overallInsights":"x"}
Hope this helps!`}

	r := NewRecommender(stub, nil, time.Second)
	set, err := r.Recommend(context.Background(), testProfile(), testJobs())
	if err != nil {
		t.Fatalf("recommend: %v", err)
	}
	if len(set.Recommendations) != 1 || set.Recommendations[0].JobIndex != 1 {
		t.Fatalf("unexpected result: %+v", set.Recommendations)
	}
}

func TestRecommendMalformedResponse(t *testing.T) {
	stub := &stubGenerator{response: "I cannot produce JSON today."}

	r := NewRecommender(stub, nil, time.Second)
	_, err := r.Recommend(context.Background(), testProfile(), testJobs())
	if err == nil {
		t.Fatal("expected error for non-JSON response")
	}
	if ai.KindOf(err) != ai.MalformedResponse {
		t.Fatalf("expected malformed response classification, got %v", ai.KindOf(err))
	}
}

func TestRecommendDropsInvalidIndices(t *testing.T) {
	stub := &stubGenerator{response: `{"recommendations":[
		{"jobIndex": 5, "matchScore": 90},
		{"jobIndex": -1, "matchScore": 90},
		{"matchScore": 90},
		{"jobIndex": 0, "matchScore": 150}
	],"overallInsights":""}`}

	r := NewRecommender(stub, nil, time.Second)
	set, err := r.Recommend(context.Background(), testProfile(), testJobs())
	if err != nil {
		t.Fatalf("recommend: %v", err)
	}
	if len(set.Recommendations) != 1 {
		t.Fatalf("expected only one usable entry, got %d", len(set.Recommendations))
	}
	if set.Recommendations[0].MatchScore != 100 {
		t.Fatalf("expected score clamped to 100, got %d", set.Recommendations[0].MatchScore)
	}
}

func TestRecommendAllEntriesInvalid(t *testing.T) {
	stub := &stubGenerator{response: `{"recommendations":[{"jobIndex": 9, "matchScore": 50}],"overallInsights":""}`}

	r := NewRecommender(stub, nil, time.Second)
	_, err := r.Recommend(context.Background(), testProfile(), testJobs())
	if ai.KindOf(err) != ai.MalformedResponse {
		t.Fatalf("expected malformed response, got %v", err)
	}
}

func TestRecommendPassesThroughFailureKind(t *testing.T) {
	stub := &stubGenerator{err: ai.NewFailure(ai.RateLimited, errors.New("429"))}

	r := NewRecommender(stub, nil, time.Second)
	_, err := r.Recommend(context.Background(), testProfile(), testJobs())
	if !ai.IsRateLimited(err) {
		t.Fatalf("expected rate-limited classification, got %v", err)
	}
}

func TestRecommendWrapsUnknownErrors(t *testing.T) {
	stub := &stubGenerator{err: errors.New("connection refused")}

	r := NewRecommender(stub, nil, time.Second)
	_, err := r.Recommend(context.Background(), testProfile(), testJobs())
	if ai.KindOf(err) != ai.TransientUnavailable {
		t.Fatalf("expected transient classification, got %v", err)
	}
}

func TestRecommendEmptyJobSet(t *testing.T) {
	stub := &stubGenerator{}

	r := NewRecommender(stub, nil, time.Second)
	set, err := r.Recommend(context.Background(), testProfile(), nil)
	if err != nil {
		t.Fatalf("recommend: %v", err)
	}
	if len(set.Recommendations) != 0 {
		t.Fatalf("expected empty set, got %+v", set)
	}
	if len(stub.prompts) != 0 {
		t.Fatal("generator should not be called for an empty job set")
	}
}
