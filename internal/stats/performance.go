package stats

import (
	"time"

	"quiz-stats-service/internal/domain"
)

// PerformanceLimit caps the performance chart to the most recent completions.
const PerformanceLimit = 100

// PerformanceSeries maps completions to chart points ordered oldest first.
func PerformanceSeries(completions []domain.QuizCompletion) ([]domain.PerformancePoint, error) {
	ordered := sortedOldestFirst(completions)
	points := make([]domain.PerformancePoint, 0, len(ordered))
	for _, c := range ordered {
		if err := c.Validate(); err != nil {
			return nil, err
		}
		points = append(points, domain.PerformancePoint{
			Date:     c.CompletedAt.UTC().Format(time.DateOnly),
			Score:    Percentage(c.Score, c.TotalQuestions),
			QuizSlug: c.QuizSlug,
		})
	}
	return points, nil
}

// PublicFromTotals derives the global comparison when no pre-computed row exists.
func PublicFromTotals(totals domain.GlobalTotals) domain.PublicComparison {
	return domain.PublicComparison{
		AverageScore:       Percentage(totals.Correct, totals.Questions),
		TotalUsers:         totals.Users,
		TotalQuizzesPlayed: totals.Quizzes,
	}
}
