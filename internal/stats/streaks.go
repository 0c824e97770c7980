package stats

import (
	"sort"
	"time"

	"quiz-stats-service/internal/domain"
)

// QuizStreakGapDays is the largest whole-day gap between two completions
// that still keeps a quiz streak alive.
const QuizStreakGapDays = 7

// CalculateStreaks derives question and quiz streaks from a user's full
// completion history. The input may be in any order; it is not modified.
func CalculateStreaks(completions []domain.QuizCompletion) (domain.Streaks, error) {
	if len(completions) == 0 {
		return domain.Streaks{}, nil
	}
	for _, c := range completions {
		if err := c.Validate(); err != nil {
			return domain.Streaks{}, err
		}
	}
	ordered := sortedOldestFirst(completions)

	var streaks domain.Streaks
	streaks.CurrentQuestionStreak, streaks.BestQuestionStreak = questionStreak(ordered)
	streaks.CurrentQuizStreak, streaks.BestQuizStreak = quizStreak(ordered)
	return streaks, nil
}

// questionStreak counts consecutive correct answers. A perfect quiz extends
// the run by all of its questions; an imperfect one breaks it, and the run
// restarts from that quiz's correct answers.
func questionStreak(ordered []domain.QuizCompletion) (current, best int) {
	for _, c := range ordered {
		if c.Perfect() {
			current += c.TotalQuestions
		} else {
			current = c.Score
		}
		if current > best {
			best = current
		}
	}
	return current, best
}

func quizStreak(ordered []domain.QuizCompletion) (current, best int) {
	current, best = 1, 1
	for i := 1; i < len(ordered); i++ {
		if daysBetween(ordered[i-1].CompletedAt, ordered[i].CompletedAt) <= QuizStreakGapDays {
			current++
			if current > best {
				best = current
			}
		} else {
			current = 1
		}
	}
	return current, best
}

// daysBetween floors the elapsed time between a and b to whole days.
func daysBetween(a, b time.Time) int {
	return int(b.Sub(a) / (24 * time.Hour))
}

func sortedOldestFirst(completions []domain.QuizCompletion) []domain.QuizCompletion {
	ordered := make([]domain.QuizCompletion, len(completions))
	copy(ordered, completions)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].CompletedAt.Before(ordered[j].CompletedAt)
	})
	return ordered
}
