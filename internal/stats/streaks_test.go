package stats

import (
	"errors"
	"testing"
	"time"

	"quiz-stats-service/internal/domain"
)

func at(day string) time.Time {
	t, err := time.Parse(time.DateOnly, day)
	if err != nil {
		panic(err)
	}
	return t
}

func completion(day string, score, total int) domain.QuizCompletion {
	return domain.QuizCompletion{UserID: "u1", QuizSlug: "quiz-" + day, Score: score, TotalQuestions: total, CompletedAt: at(day)}
}

func TestStreaksZeroState(t *testing.T) {
	streaks, err := CalculateStreaks(nil)
	if err != nil {
		t.Fatalf("streaks: %v", err)
	}
	if streaks != (domain.Streaks{}) {
		t.Fatalf("expected zero streaks, got %+v", streaks)
	}
}

func TestQuestionStreakBreaksOnImperfectQuiz(t *testing.T) {
	streaks, err := CalculateStreaks([]domain.QuizCompletion{
		completion("2024-03-01", 5, 5),
		completion("2024-03-02", 5, 5),
		completion("2024-03-03", 3, 5),
	})
	if err != nil {
		t.Fatalf("streaks: %v", err)
	}
	if streaks.BestQuestionStreak != 10 {
		t.Fatalf("expected best question streak 10, got %d", streaks.BestQuestionStreak)
	}
	if streaks.CurrentQuestionStreak != 3 {
		t.Fatalf("expected current question streak 3, got %d", streaks.CurrentQuestionStreak)
	}
}

func TestQuestionStreakIgnoresInputOrder(t *testing.T) {
	streaks, err := CalculateStreaks([]domain.QuizCompletion{
		completion("2024-03-03", 3, 5),
		completion("2024-03-01", 5, 5),
		completion("2024-03-02", 5, 5),
	})
	if err != nil {
		t.Fatalf("streaks: %v", err)
	}
	if streaks.BestQuestionStreak != 10 || streaks.CurrentQuestionStreak != 3 {
		t.Fatalf("expected best=10 current=3, got %+v", streaks)
	}
}

func TestQuizStreakGapRule(t *testing.T) {
	sevenDays, err := CalculateStreaks([]domain.QuizCompletion{
		completion("2024-01-01", 1, 5),
		completion("2024-01-08", 1, 5),
	})
	if err != nil {
		t.Fatalf("streaks: %v", err)
	}
	if sevenDays.CurrentQuizStreak != 2 || sevenDays.BestQuizStreak != 2 {
		t.Fatalf("expected quiz streak 2 for a 7 day gap, got %+v", sevenDays)
	}

	eightDays, err := CalculateStreaks([]domain.QuizCompletion{
		completion("2024-01-01", 1, 5),
		completion("2024-01-09", 1, 5),
	})
	if err != nil {
		t.Fatalf("streaks: %v", err)
	}
	if eightDays.CurrentQuizStreak != 1 || eightDays.BestQuizStreak != 1 {
		t.Fatalf("expected quiz streak reset for an 8 day gap, got %+v", eightDays)
	}
}

func TestQuizStreakKeepsBestAfterReset(t *testing.T) {
	streaks, err := CalculateStreaks([]domain.QuizCompletion{
		completion("2024-01-01", 5, 5),
		completion("2024-01-03", 5, 5),
		completion("2024-01-05", 5, 5),
		completion("2024-02-20", 5, 5),
	})
	if err != nil {
		t.Fatalf("streaks: %v", err)
	}
	if streaks.BestQuizStreak != 3 || streaks.CurrentQuizStreak != 1 {
		t.Fatalf("expected best=3 current=1, got %+v", streaks)
	}
	if streaks.BestQuestionStreak != 20 || streaks.CurrentQuestionStreak != 20 {
		t.Fatalf("expected unbroken question streak of 20, got %+v", streaks)
	}
}

func TestStreaksRejectMalformedCompletion(t *testing.T) {
	_, err := CalculateStreaks([]domain.QuizCompletion{completion("2024-01-01", 6, 5)})
	if !errors.Is(err, domain.ErrMalformedCompletion) {
		t.Fatalf("expected malformed completion error, got %v", err)
	}
}

func TestSummarizeScenario(t *testing.T) {
	summary := Summarize(domain.CompletionTotals{Quizzes: 2, Questions: 10, Correct: 9, Perfect: 1})
	if summary.AverageScore != 90.0 {
		t.Fatalf("expected average 90.0, got %v", summary.AverageScore)
	}
	if summary.TotalQuizzesPlayed != 2 || summary.TotalCorrectAnswers != 9 || summary.PerfectScores != 1 {
		t.Fatalf("unexpected summary %+v", summary)
	}
}

func TestPercentageRounding(t *testing.T) {
	if got := Percentage(7, 9); got != 77.8 {
		t.Fatalf("expected 77.8, got %v", got)
	}
	if got := Percentage(3, 0); got != 0 {
		t.Fatalf("expected divide-by-zero guard to yield 0, got %v", got)
	}
	if got := Percentage(1, 3); got != 33.3 {
		t.Fatalf("expected 33.3, got %v", got)
	}
}
