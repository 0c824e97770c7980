package stats

import (
	"errors"
	"testing"

	"quiz-stats-service/internal/domain"
)

func TestAttributeCategoriesSplitsEvenlyAcrossRounds(t *testing.T) {
	quizzes := map[string]domain.Quiz{
		"mixed": {Slug: "mixed", Rounds: []domain.Round{
			{Position: 1, CategoryID: "c-hist", CategoryName: "History"},
			{Position: 2, CategoryID: "c-geo", CategoryName: "Geography"},
			{Position: 3},
		}},
		"geo": {Slug: "geo", Rounds: []domain.Round{
			{Position: 1, CategoryID: "c-geo", CategoryName: "Geography"},
		}},
	}
	completions := []domain.QuizCompletion{
		{QuizSlug: "mixed", Score: 7, TotalQuestions: 11},
		{QuizSlug: "geo", Score: 4, TotalQuestions: 5},
		{QuizSlug: "unknown", Score: 5, TotalQuestions: 5},
	}

	got, err := AttributeCategories(completions, quizzes)
	if err != nil {
		t.Fatalf("attribute: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 categories, got %+v", got)
	}
	// mixed: 11/2 = 5 questions and 7/2 = 3 correct per categorized round.
	hist, geo := got[0], got[1]
	if hist.Name != "History" || hist.Correct != 3 || hist.Total != 5 || hist.Percentage != 60 || hist.Quizzes != 1 {
		t.Fatalf("unexpected history stat %+v", hist)
	}
	if geo.Name != "Geography" || geo.Correct != 7 || geo.Total != 10 || geo.Percentage != 70 || geo.Quizzes != 2 {
		t.Fatalf("unexpected geography stat %+v", geo)
	}
}

func TestAttributeCategoriesSkipsUncategorizedQuizzes(t *testing.T) {
	quizzes := map[string]domain.Quiz{"plain": {Slug: "plain", Rounds: []domain.Round{{Position: 1}}}}
	got, err := AttributeCategories([]domain.QuizCompletion{{QuizSlug: "plain", Score: 1, TotalQuestions: 2}}, quizzes)
	if err != nil {
		t.Fatalf("attribute: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("expected no categories, got %+v", got)
	}
}

func TestAttributeCategoriesRejectsMalformedCompletion(t *testing.T) {
	_, err := AttributeCategories([]domain.QuizCompletion{{QuizSlug: "x", Score: -1, TotalQuestions: 2}}, nil)
	if !errors.Is(err, domain.ErrMalformedCompletion) {
		t.Fatalf("expected malformed completion error, got %v", err)
	}
}

func TestBreakdownHighlights(t *testing.T) {
	var categories []domain.CategoryStat
	for i, name := range []string{"A", "B", "C", "D", "E", "F", "G"} {
		categories = append(categories, domain.CategoryStat{Name: name, Percentage: float64(10 * (i + 1))})
	}

	got := Breakdown(categories)
	if len(got.All) != 7 || got.All[0].Name != "G" || got.All[6].Name != "A" {
		t.Fatalf("expected all sorted descending, got %+v", got.All)
	}
	if len(got.Strongest) != 5 || got.Strongest[0].Name != "G" || got.Strongest[4].Name != "C" {
		t.Fatalf("unexpected strongest %+v", got.Strongest)
	}
	if len(got.Weakest) != 5 || got.Weakest[0].Name != "E" || got.Weakest[4].Name != "A" {
		t.Fatalf("unexpected weakest %+v", got.Weakest)
	}
}

func TestBreakdownWithFewCategoriesOverlaps(t *testing.T) {
	got := Breakdown([]domain.CategoryStat{{Name: "Only", Percentage: 50}})
	if len(got.Strongest) != 1 || len(got.Weakest) != 1 || len(got.All) != 1 {
		t.Fatalf("expected single category in every list, got %+v", got)
	}

	empty := Breakdown(nil)
	if empty.Strongest == nil || empty.Weakest == nil || empty.All == nil {
		t.Fatalf("expected empty, non-nil lists, got %+v", empty)
	}
}
