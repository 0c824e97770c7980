package app

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"
	"quiz-stats-service/internal/domain"
	"quiz-stats-service/internal/stats"
)

// LeagueComparisons ranks the user inside every private league they belong
// to. Deferred does not call it. A league whose stats or rank cannot be
// loaded is left out of the result.
func (s *StatsService) LeagueComparisons(ctx context.Context, userID string) ([]domain.LeagueComparison, error) {
	userID, err := normalizeUserID(userID)
	if err != nil {
		return nil, err
	}
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	leagues, err := s.store.UserLeagues(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list user leagues: %w", err)
	}

	results := make([]*domain.LeagueComparison, len(leagues))
	var g errgroup.Group
	g.SetLimit(s.leagueConcurrency)
	for i, league := range leagues {
		g.Go(func() error {
			comparison, err := s.compareLeague(ctx, league, userID)
			if err != nil {
				s.logger.Warn("league comparison skipped", "league_id", league.ID, "user_id", userID, "error", err)
				return nil
			}
			results[i] = &comparison
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	out := make([]domain.LeagueComparison, 0, len(results))
	for _, r := range results {
		if r != nil {
			out = append(out, *r)
		}
	}
	return out, nil
}

func (s *StatsService) compareLeague(ctx context.Context, league domain.League, userID string) (domain.LeagueComparison, error) {
	leagueStats, err := s.store.LeagueStats(ctx, league.ID)
	if err != nil {
		return domain.LeagueComparison{}, fmt.Errorf("load league stats: %w", err)
	}
	if s.ranker == nil {
		return domain.LeagueComparison{}, fmt.Errorf("league ranking not configured")
	}
	rank, err := s.ranker.LeagueRank(ctx, league.ID, userID)
	if err != nil {
		return domain.LeagueComparison{}, fmt.Errorf("rank user in league: %w", err)
	}
	return domain.LeagueComparison{
		LeagueID:     league.ID,
		Name:         league.Name,
		MemberCount:  leagueStats.MemberCount,
		AverageScore: stats.RoundTenth(leagueStats.AverageScore),
		UserRank:     rank,
	}, nil
}
