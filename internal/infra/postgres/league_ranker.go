package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
	"quiz-stats-service/internal/domain"
)

// leagueRankSQL ranks league members by total correct answers; ties share a rank.
const leagueRankSQL = `
SELECT ranked.rank
FROM (
	SELECT m.user_id,
	       RANK() OVER (ORDER BY COALESCE(SUM(c.score), 0) DESC) AS rank
	FROM private_league_members m
	LEFT JOIN quiz_completions c ON c.user_id = m.user_id
	WHERE m.league_id = $1
	GROUP BY m.user_id
) ranked
WHERE ranked.user_id = $2`

// LeagueRanker runs the window-function ranking query over a pgx pool.
type LeagueRanker struct {
	pool *pgxpool.Pool
}

func NewLeagueRanker(pool *pgxpool.Pool) *LeagueRanker {
	return &LeagueRanker{pool: pool}
}

func (r *LeagueRanker) LeagueRank(ctx context.Context, leagueID, userID string) (int, error) {
	var rank int64
	err := r.pool.QueryRow(ctx, leagueRankSQL, leagueID, userID).Scan(&rank)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, fmt.Errorf("user %s in league %s: %w", userID, leagueID, domain.ErrLeagueNotFound)
	}
	if err != nil {
		return 0, fmt.Errorf("rank league %s: %w", leagueID, err)
	}
	return int(rank), nil
}
