package matching

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"talenthub/internal/database"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(
		&database.User{},
		&database.Resume{},
		&database.JobPosting{},
		&database.Application{},
	); err != nil {
		t.Fatalf("auto migrate: %v", err)
	}
	return db
}

func TestBuildJobSetOnlyActiveAndCapped(t *testing.T) {
	db := newTestDB(t)

	jobs := make([]database.JobPosting, 0, 60)
	for i := 0; i < 60; i++ {
		jobs = append(jobs, database.JobPosting{
			Title:       fmt.Sprintf("Job %d", i),
			CompanyName: "ACME",
			Status:      database.JobStatusActive,
		})
	}
	jobs = append(jobs,
		database.JobPosting{Title: "Paused", CompanyName: "ACME", Status: database.JobStatusPaused},
		database.JobPosting{Title: "Draft", CompanyName: "ACME", Status: database.JobStatusDraft},
	)
	if err := db.Create(&jobs).Error; err != nil {
		t.Fatalf("seed jobs: %v", err)
	}

	got, err := BuildJobSet(context.Background(), db, JobFilters{}, 0)
	if err != nil {
		t.Fatalf("build job set: %v", err)
	}

	if len(got) != MaxJobSetSize {
		t.Fatalf("expected cap of %d jobs, got %d", MaxJobSetSize, len(got))
	}
	for _, job := range got {
		if job.Status != database.JobStatusActive {
			t.Fatalf("non-active job %q leaked into the set", job.Title)
		}
	}
}

func TestBuildJobSetFilters(t *testing.T) {
	db := newTestDB(t)

	remote := true
	seed := []database.JobPosting{
		{Title: "A", CompanyName: "X", Status: database.JobStatusActive, EmploymentType: "full-time", WorkMode: "remote", Industry: "Technology", City: "Austin", State: "TX", Remote: true, SalaryMin: 100000, SalaryMax: 150000},
		{Title: "B", CompanyName: "X", Status: database.JobStatusActive, EmploymentType: "internship", WorkMode: "onsite", Industry: "Finance", City: "New York", State: "NY", SalaryMin: 40000, SalaryMax: 60000},
		{Title: "C", CompanyName: "X", Status: database.JobStatusActive, EmploymentType: "full-time", WorkMode: "hybrid", Industry: "technology", City: "Seattle", State: "WA", SalaryMin: 90000, SalaryMax: 120000},
	}
	if err := db.Create(&seed).Error; err != nil {
		t.Fatalf("seed jobs: %v", err)
	}

	cases := []struct {
		name    string
		filters JobFilters
		want    []string
	}{
		{"employment type", JobFilters{EmploymentType: "internship"}, []string{"B"}},
		{"industry case-insensitive", JobFilters{Industry: "TECH"}, []string{"A", "C"}},
		{"location matches city or state", JobFilters{Location: "york"}, []string{"B"}},
		{"remote only", JobFilters{Remote: &remote}, []string{"A"}},
		{"salary window", JobFilters{MinSalary: 130000}, []string{"A"}},
		{"max salary", JobFilters{MaxSalary: 50000}, []string{"B"}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := BuildJobSet(context.Background(), db, tc.filters, 10)
			if err != nil {
				t.Fatalf("build job set: %v", err)
			}
			titles := make(map[string]bool, len(got))
			for _, job := range got {
				titles[job.Title] = true
			}
			if len(got) != len(tc.want) {
				t.Fatalf("expected %d jobs, got %d (%v)", len(tc.want), len(got), titles)
			}
			for _, want := range tc.want {
				if !titles[want] {
					t.Fatalf("expected job %q in result, got %v", want, titles)
				}
			}
		})
	}
}

func TestBuildJobSetEmptyDatabase(t *testing.T) {
	db := newTestDB(t)

	got, err := BuildJobSet(context.Background(), db, JobFilters{}, 0)
	if err != nil {
		t.Fatalf("build job set: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("expected empty set, got %d jobs", len(got))
	}
}
