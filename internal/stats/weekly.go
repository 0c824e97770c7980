package stats

import (
	"fmt"
	"time"

	"quiz-stats-service/internal/domain"
)

// WeeksTracked is the length of the scratchcard calendar.
const WeeksTracked = 52

// WeekKey returns the ISO-8601 week key ("2024-W01") of t, evaluated in UTC.
func WeekKey(t time.Time) string {
	year, week := t.UTC().ISOWeek()
	return fmt.Sprintf("%d-W%02d", year, week)
}

// WindowStart is the earliest instant covered by the scratchcard ending at now.
func WindowStart(now time.Time) time.Time {
	return midnightUTC(now).AddDate(0, 0, -7*WeeksTracked)
}

// WeeklyStreak builds the 52-week calendar ending at now, oldest first. When a
// week holds several completions the earliest one is reported.
func WeeklyStreak(completions []domain.QuizCompletion, now time.Time) []domain.WeekEntry {
	earliest := make(map[string]domain.QuizCompletion, len(completions))
	for _, c := range completions {
		key := WeekKey(c.CompletedAt)
		if seen, ok := earliest[key]; !ok || c.CompletedAt.Before(seen.CompletedAt) {
			earliest[key] = c
		}
	}

	today := midnightUTC(now)
	entries := make([]domain.WeekEntry, 0, WeeksTracked)
	for i := WeeksTracked - 1; i >= 0; i-- {
		day := today.AddDate(0, 0, -7*i)
		key := WeekKey(day)
		entry := domain.WeekEntry{
			Week: key,
			Date: day.Format(time.DateOnly),
		}
		if c, ok := earliest[key]; ok {
			completedAt := c.CompletedAt.UTC()
			entry.Completed = true
			entry.CompletedAt = &completedAt
			entry.QuizSlug = c.QuizSlug
		}
		entries = append(entries, entry)
	}
	return entries
}

func midnightUTC(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
