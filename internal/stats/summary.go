package stats

import "quiz-stats-service/internal/domain"

// Summarize turns raw completion totals into the headline counters.
func Summarize(totals domain.CompletionTotals) domain.Summary {
	return domain.Summary{
		AverageScore:            Percentage(totals.Correct, totals.Questions),
		TotalQuestionsAttempted: totals.Questions,
		TotalQuizzesPlayed:      totals.Quizzes,
		TotalCorrectAnswers:     totals.Correct,
		PerfectScores:           totals.Perfect,
	}
}

// FromSummaryRow maps a pre-computed summary row onto the output shapes.
func FromSummaryRow(row domain.UserStatsSummary) (domain.Summary, domain.Streaks) {
	summary := domain.Summary{
		AverageScore:            RoundTenth(row.AverageScore),
		TotalQuestionsAttempted: row.TotalQuestionsAttempted,
		TotalQuizzesPlayed:      row.TotalQuizzesPlayed,
		TotalCorrectAnswers:     row.TotalCorrectAnswers,
		PerfectScores:           row.PerfectScores,
	}
	streaks := domain.Streaks{
		CurrentQuestionStreak: row.CurrentQuestionStreak,
		BestQuestionStreak:    row.BestQuestionStreak,
		CurrentQuizStreak:     row.CurrentQuizStreak,
		BestQuizStreak:        row.BestQuizStreak,
	}
	return summary, streaks
}
