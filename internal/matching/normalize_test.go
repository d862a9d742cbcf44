package matching

import (
	"reflect"
	"testing"

	"gorm.io/datatypes"

	"talenthub/internal/database"
)

func TestNormalizeUser(t *testing.T) {
	user := &database.User{
		Skills: datatypes.JSON(`[{"name":"Go","level":"advanced"},{"name":"  SQL "},{"name":"go"}]`),
		Preferences: datatypes.JSON(`{
			"jobTypes":["full-time"],
			"industries":["technology"],
			"locations":["Austin"],
			"workMode":"hybrid"
		}`),
	}

	profile := NormalizeUser(user)

	if !reflect.DeepEqual(profile.Skills, []string{"go", "sql"}) {
		t.Fatalf("unexpected skills: %v", profile.Skills)
	}
	if profile.Preferences.WorkMode != "hybrid" {
		t.Fatalf("unexpected work mode: %q", profile.Preferences.WorkMode)
	}
	if !reflect.DeepEqual(profile.Preferences.Locations, []string{"Austin"}) {
		t.Fatalf("unexpected locations: %v", profile.Preferences.Locations)
	}
}

func TestNormalizeResumeAcceptsBothSkillShapes(t *testing.T) {
	user := &database.User{}
	resume := &database.Resume{
		ParsedData: datatypes.JSON(`{
			"skills": ["Go", {"name":"Python"}, "", {"name":"  "}],
			"experience": [{"period":"2019-2021"},{"period":"2021-present"}]
		}`),
	}

	profile := NormalizeResume(resume, user)

	if !reflect.DeepEqual(profile.Skills, []string{"go", "python"}) {
		t.Fatalf("unexpected skills: %v", profile.Skills)
	}
	if profile.ExperienceYears != 4 {
		t.Fatalf("expected 4 inferred years for 2 entries, got %d", profile.ExperienceYears)
	}
}

func TestNormalizeResumeFallsBackToUserSkills(t *testing.T) {
	user := &database.User{
		Skills: datatypes.JSON(`[{"name":"java"}]`),
	}
	resume := &database.Resume{
		ParsedData: datatypes.JSON(`not json`),
	}

	profile := NormalizeResume(resume, user)

	if !reflect.DeepEqual(profile.Skills, []string{"java"}) {
		t.Fatalf("expected user skills on parse failure, got %v", profile.Skills)
	}
}

func TestNormalizeResumeNilResume(t *testing.T) {
	user := &database.User{Skills: datatypes.JSON(`[{"name":"go"}]`)}

	profile := NormalizeResume(nil, user)

	if !reflect.DeepEqual(profile.Skills, []string{"go"}) {
		t.Fatalf("unexpected skills: %v", profile.Skills)
	}
	if profile.ExperienceYears != 0 {
		t.Fatalf("expected zero experience, got %d", profile.ExperienceYears)
	}
}

func TestInferExperienceYears(t *testing.T) {
	cases := []struct {
		entries int
		want    int
	}{
		{0, 0},
		{-1, 0},
		{1, 2},
		{3, 6},
		{5, 10},
		{8, 10},
	}
	for _, tc := range cases {
		if got := InferExperienceYears(tc.entries); got != tc.want {
			t.Errorf("InferExperienceYears(%d) = %d, want %d", tc.entries, got, tc.want)
		}
	}
}
