package app

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"
	"quiz-stats-service/internal/domain"
	"quiz-stats-service/internal/stats"
)

// historyFunc returns a user's full completion history. Critical shares one
// memoized loader between the summary and category fallbacks.
type historyFunc func() ([]domain.QuizCompletion, error)

func (s *StatsService) historyLoader(ctx context.Context, userID string) historyFunc {
	return sync.OnceValues(func() ([]domain.QuizCompletion, error) {
		completions, err := s.store.ListCompletions(ctx, userID, domain.CompletionFilter{})
		if err != nil {
			return nil, fmt.Errorf("list completions: %w", err)
		}
		return completions, nil
	})
}

// SummaryAndStreaks returns the headline counters and streaks for a user.
func (s *StatsService) SummaryAndStreaks(ctx context.Context, userID string) (domain.Summary, domain.Streaks, error) {
	userID, err := normalizeUserID(userID)
	if err != nil {
		return domain.Summary{}, domain.Streaks{}, err
	}
	return s.summaryAndStreaks(ctx, userID, s.historyLoader(ctx, userID))
}

func (s *StatsService) summaryAndStreaks(ctx context.Context, userID string, history historyFunc) (domain.Summary, domain.Streaks, error) {
	tables, err := s.precomputed(ctx)
	if err != nil {
		return domain.Summary{}, domain.Streaks{}, err
	}
	if tables.UserSummary {
		row, found, err := s.store.UserSummary(ctx, userID)
		if err != nil {
			return domain.Summary{}, domain.Streaks{}, fmt.Errorf("load user summary: %w", err)
		}
		if found {
			summary, streaks := stats.FromSummaryRow(row)
			return summary, streaks, nil
		}
		s.logger.Debug("user summary not precomputed", "user_id", userID)
	}

	var (
		totals  domain.CompletionTotals
		streaks domain.Streaks
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		totals, err = s.store.CompletionTotals(gctx, userID)
		if err != nil {
			return fmt.Errorf("aggregate completions: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		completions, err := history()
		if err != nil {
			return err
		}
		streaks, err = stats.CalculateStreaks(completions)
		return err
	})
	if err := g.Wait(); err != nil {
		return domain.Summary{}, domain.Streaks{}, err
	}
	return stats.Summarize(totals), streaks, nil
}

// Categories returns the per-category accuracy breakdown for a user.
func (s *StatsService) Categories(ctx context.Context, userID string) (domain.CategoryBreakdown, error) {
	userID, err := normalizeUserID(userID)
	if err != nil {
		return domain.CategoryBreakdown{}, err
	}
	return s.categories(ctx, userID, s.historyLoader(ctx, userID))
}

func (s *StatsService) categories(ctx context.Context, userID string, history historyFunc) (domain.CategoryBreakdown, error) {
	tables, err := s.precomputed(ctx)
	if err != nil {
		return domain.CategoryBreakdown{}, err
	}
	if tables.UserCategories {
		rows, err := s.store.UserCategoryStats(ctx, userID)
		if err != nil {
			return domain.CategoryBreakdown{}, fmt.Errorf("load category stats: %w", err)
		}
		if len(rows) > 0 {
			return stats.Breakdown(stats.FromCategoryRows(rows)), nil
		}
		s.logger.Debug("category stats not precomputed", "user_id", userID)
	}

	completions, err := history()
	if err != nil {
		return domain.CategoryBreakdown{}, err
	}
	quizzes, err := s.quizStructures(ctx, completions)
	if err != nil {
		return domain.CategoryBreakdown{}, err
	}
	categories, err := stats.AttributeCategories(completions, quizzes)
	if err != nil {
		return domain.CategoryBreakdown{}, err
	}
	return stats.Breakdown(categories), nil
}

// quizStructures loads each distinct quiz once. A quiz that cannot be loaded
// is left out so its completions simply do not count towards categories.
func (s *StatsService) quizStructures(ctx context.Context, completions []domain.QuizCompletion) (map[string]domain.Quiz, error) {
	slugs := make(map[string]struct{})
	for _, c := range completions {
		slugs[c.QuizSlug] = struct{}{}
	}

	var mu sync.Mutex
	quizzes := make(map[string]domain.Quiz, len(slugs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(quizLookupConcurrency)
	for slug := range slugs {
		g.Go(func() error {
			quiz, err := s.catalog.GetQuiz(gctx, slug)
			if err != nil {
				if !errors.Is(err, domain.ErrQuizNotFound) {
					s.logger.Debug("quiz structure lookup failed", "quiz_slug", slug, "error", err)
				}
				return nil
			}
			mu.Lock()
			quizzes[slug] = quiz
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	// Lookups swallow their own errors; a cancelled parent still has to surface.
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return quizzes, nil
}

// WeeklyStreak returns the 52-week scratchcard for a user.
func (s *StatsService) WeeklyStreak(ctx context.Context, userID string) ([]domain.WeekEntry, error) {
	userID, err := normalizeUserID(userID)
	if err != nil {
		return nil, err
	}
	return s.weeklyStreak(ctx, userID)
}

func (s *StatsService) weeklyStreak(ctx context.Context, userID string) ([]domain.WeekEntry, error) {
	now := s.now()
	recent, err := s.store.ListCompletions(ctx, userID, domain.CompletionFilter{
		Since:       stats.WindowStart(now),
		Limit:       stats.WeeksTracked,
		NewestFirst: true,
	})
	if err != nil {
		return nil, fmt.Errorf("list recent completions: %w", err)
	}
	return stats.WeeklyStreak(recent, now), nil
}

// PerformanceOverTime returns the user's most recent scores, oldest first.
func (s *StatsService) PerformanceOverTime(ctx context.Context, userID string) ([]domain.PerformancePoint, error) {
	userID, err := normalizeUserID(userID)
	if err != nil {
		return nil, err
	}
	return s.performanceOverTime(ctx, userID)
}

func (s *StatsService) performanceOverTime(ctx context.Context, userID string) ([]domain.PerformancePoint, error) {
	recent, err := s.store.ListCompletions(ctx, userID, domain.CompletionFilter{
		Limit:       stats.PerformanceLimit,
		NewestFirst: true,
	})
	if err != nil {
		return nil, fmt.Errorf("list recent completions: %w", err)
	}
	return stats.PerformanceSeries(recent)
}

// PublicStats returns the global comparison baseline.
func (s *StatsService) PublicStats(ctx context.Context) (domain.PublicComparison, error) {
	tables, err := s.precomputed(ctx)
	if err != nil {
		return domain.PublicComparison{}, err
	}
	if tables.PublicSummary {
		row, found, err := s.store.PublicSummary(ctx)
		if err != nil {
			return domain.PublicComparison{}, fmt.Errorf("load public summary: %w", err)
		}
		if found {
			return domain.PublicComparison{
				AverageScore:       stats.RoundTenth(row.AverageScore),
				TotalUsers:         row.TotalUsers,
				TotalQuizzesPlayed: row.TotalQuizzesPlayed,
			}, nil
		}
		s.logger.Debug("public summary not precomputed")
	}

	totals, err := s.store.GlobalTotals(ctx)
	if err != nil {
		return domain.PublicComparison{}, fmt.Errorf("aggregate global completions: %w", err)
	}
	return stats.PublicFromTotals(totals), nil
}

// SeasonStats returns the user's standing in the season active now, or nil
// when no season is running.
func (s *StatsService) SeasonStats(ctx context.Context, userID string) (*domain.SeasonStat, error) {
	userID, err := normalizeUserID(userID)
	if err != nil {
		return nil, err
	}
	return s.seasonStats(ctx, userID)
}

func (s *StatsService) seasonStats(ctx context.Context, userID string) (*domain.SeasonStat, error) {
	season, ok, err := s.store.ActiveSeason(ctx, s.now())
	if err != nil {
		return nil, fmt.Errorf("load active season: %w", err)
	}
	if !ok {
		return nil, nil
	}

	stat, found, err := s.store.SeasonStat(ctx, season.ID, userID)
	if err != nil {
		return nil, fmt.Errorf("load season stats: %w", err)
	}
	if !found {
		stat = domain.SeasonStat{}
	}
	stat.SeasonID = season.ID
	stat.Name = season.Name
	stat.StartsAt = season.StartsAt.UTC()
	stat.EndsAt = season.EndsAt.UTC()
	stat.AverageScore = stats.RoundTenth(stat.AverageScore)
	return &stat, nil
}
