package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"quiz-stats-service/internal/domain"
)

const (
	tableUserSummary    = "user_stats_summary"
	tableUserCategories = "user_category_stats"
	tablePublicSummary  = "public_stats_summary"
)

// Store implements app.Store on Postgres through bun.
type Store struct {
	db *bun.DB
}

func NewStore(db *bun.DB) *Store {
	return &Store{db: db}
}

// OpenDB opens a bun handle on the given Postgres DSN.
func OpenDB(dsn string) *bun.DB {
	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn)))
	return bun.NewDB(sqldb, pgdialect.New())
}

func (s *Store) CompletionTotals(ctx context.Context, userID string) (domain.CompletionTotals, error) {
	var row totalsRow
	err := s.db.NewSelect().
		Model((*completionModel)(nil)).
		ColumnExpr("COUNT(*) AS quizzes").
		ColumnExpr("COALESCE(SUM(qc.total_questions), 0) AS questions").
		ColumnExpr("COALESCE(SUM(qc.score), 0) AS correct").
		ColumnExpr("COUNT(*) FILTER (WHERE qc.score = qc.total_questions) AS perfect").
		Where("qc.user_id = ?", userID).
		Scan(ctx, &row)
	if err != nil {
		return domain.CompletionTotals{}, err
	}
	return domain.CompletionTotals(row), nil
}

func (s *Store) ListCompletions(ctx context.Context, userID string, filter domain.CompletionFilter) ([]domain.QuizCompletion, error) {
	var rows []completionModel
	q := s.db.NewSelect().
		Model(&rows).
		Where("qc.user_id = ?", userID)
	if !filter.Since.IsZero() {
		q = q.Where("qc.completed_at >= ?", filter.Since)
	}
	if filter.NewestFirst {
		q = q.Order("qc.completed_at DESC", "qc.id DESC")
	} else {
		q = q.Order("qc.completed_at ASC", "qc.id ASC")
	}
	if filter.Limit > 0 {
		q = q.Limit(filter.Limit)
	}
	if err := q.Scan(ctx); err != nil {
		return nil, err
	}

	out := make([]domain.QuizCompletion, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.toDomain())
	}
	return out, nil
}

func (s *Store) GlobalTotals(ctx context.Context) (domain.GlobalTotals, error) {
	var row globalTotalsRow
	err := s.db.NewSelect().
		Model((*completionModel)(nil)).
		ColumnExpr("COUNT(DISTINCT qc.user_id) AS users").
		ColumnExpr("COUNT(*) AS quizzes").
		ColumnExpr("COALESCE(SUM(qc.total_questions), 0) AS questions").
		ColumnExpr("COALESCE(SUM(qc.score), 0) AS correct").
		Scan(ctx, &row)
	if err != nil {
		return domain.GlobalTotals{}, err
	}
	return domain.GlobalTotals(row), nil
}

func (s *Store) GetQuiz(ctx context.Context, slug string) (domain.Quiz, error) {
	exists, err := s.db.NewSelect().
		TableExpr("quizzes").
		Where("slug = ?", slug).
		Exists(ctx)
	if err != nil {
		return domain.Quiz{}, fmt.Errorf("load quiz %s: %w", slug, err)
	}
	if !exists {
		return domain.Quiz{}, domain.ErrQuizNotFound
	}

	var rows []roundRow
	err = s.db.NewSelect().
		TableExpr("quiz_rounds AS r").
		ColumnExpr("r.position").
		ColumnExpr("COALESCE(c.id::text, '') AS category_id").
		ColumnExpr("COALESCE(c.name, '') AS category_name").
		Join("LEFT JOIN categories AS c ON c.id = r.category_id").
		Where("r.quiz_slug = ?", slug).
		OrderExpr("r.position ASC").
		Scan(ctx, &rows)
	if err != nil {
		return domain.Quiz{}, fmt.Errorf("load rounds of %s: %w", slug, err)
	}

	quiz := domain.Quiz{Slug: slug, Rounds: make([]domain.Round, 0, len(rows))}
	for _, r := range rows {
		quiz.Rounds = append(quiz.Rounds, domain.Round(r))
	}
	return quiz, nil
}

func (s *Store) PrecomputedTables(ctx context.Context) (domain.PrecomputedTables, error) {
	var names []string
	err := s.db.NewSelect().
		TableExpr("information_schema.tables").
		Column("table_name").
		Where("table_schema = current_schema()").
		Where("table_name IN (?)", bun.In([]string{tableUserSummary, tableUserCategories, tablePublicSummary})).
		Scan(ctx, &names)
	if err != nil {
		return domain.PrecomputedTables{}, err
	}

	var tables domain.PrecomputedTables
	for _, name := range names {
		switch name {
		case tableUserSummary:
			tables.UserSummary = true
		case tableUserCategories:
			tables.UserCategories = true
		case tablePublicSummary:
			tables.PublicSummary = true
		}
	}
	return tables, nil
}

func (s *Store) UserSummary(ctx context.Context, userID string) (domain.UserStatsSummary, bool, error) {
	var row userSummaryModel
	err := s.db.NewSelect().
		Model(&row).
		Where("uss.user_id = ?", userID).
		Limit(1).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.UserStatsSummary{}, false, nil
	}
	if err != nil {
		return domain.UserStatsSummary{}, false, err
	}
	summary, err := row.toDomain()
	if err != nil {
		return domain.UserStatsSummary{}, false, err
	}
	return summary, true, nil
}

func (s *Store) UserCategoryStats(ctx context.Context, userID string) ([]domain.UserCategoryStats, error) {
	var rows []categoryStatRow
	err := s.db.NewSelect().
		TableExpr("user_category_stats AS ucs").
		ColumnExpr("ucs.user_id, c.name AS category_name").
		ColumnExpr("ucs.correct, ucs.total, ucs.quizzes, ucs.percentage").
		Join("JOIN categories AS c ON c.id = ucs.category_id").
		Where("ucs.user_id = ?", userID).
		OrderExpr("ucs.percentage DESC, c.name ASC").
		Scan(ctx, &rows)
	if err != nil {
		return nil, err
	}

	out := make([]domain.UserCategoryStats, 0, len(rows))
	for _, r := range rows {
		stat, err := r.toDomain()
		if err != nil {
			return nil, err
		}
		out = append(out, stat)
	}
	return out, nil
}

func (s *Store) PublicSummary(ctx context.Context) (domain.PublicStatsSummary, bool, error) {
	var row publicSummaryModel
	err := s.db.NewSelect().
		Model(&row).
		OrderExpr("pss.id ASC").
		Limit(1).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.PublicStatsSummary{}, false, nil
	}
	if err != nil {
		return domain.PublicStatsSummary{}, false, err
	}
	avg, err := parseNumeric(row.AverageScore)
	if err != nil {
		return domain.PublicStatsSummary{}, false, fmt.Errorf("public average_score: %w", err)
	}
	return domain.PublicStatsSummary{
		TotalUsers:         row.TotalUsers,
		TotalQuizzesPlayed: row.TotalQuizzesPlayed,
		AverageScore:       avg,
	}, true, nil
}

func (s *Store) ActiveSeason(ctx context.Context, at time.Time) (domain.Season, bool, error) {
	var row seasonModel
	err := s.db.NewSelect().
		Model(&row).
		Where("s.starts_at <= ?", at).
		Where("s.ends_at > ?", at).
		OrderExpr("s.starts_at DESC").
		Limit(1).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Season{}, false, nil
	}
	if err != nil {
		return domain.Season{}, false, err
	}
	return domain.Season{ID: row.ID, Name: row.Name, StartsAt: row.StartsAt, EndsAt: row.EndsAt}, true, nil
}

func (s *Store) SeasonStat(ctx context.Context, seasonID, userID string) (domain.SeasonStat, bool, error) {
	var row seasonStatModel
	err := s.db.NewSelect().
		Model(&row).
		Where("ss.season_id = ?", seasonID).
		Where("ss.user_id = ?", userID).
		Limit(1).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.SeasonStat{}, false, nil
	}
	if err != nil {
		return domain.SeasonStat{}, false, err
	}
	avg, err := parseNumeric(row.AverageScore)
	if err != nil {
		return domain.SeasonStat{}, false, fmt.Errorf("season %s average_score: %w", seasonID, err)
	}
	return domain.SeasonStat{
		SeasonID:       row.SeasonID,
		QuizzesPlayed:  row.QuizzesPlayed,
		TotalCorrect:   row.TotalCorrect,
		TotalQuestions: row.TotalQuestions,
		AverageScore:   avg,
		Rank:           row.Rank,
	}, true, nil
}

func (s *Store) UserLeagues(ctx context.Context, userID string) ([]domain.League, error) {
	var rows []leagueRow
	err := s.db.NewSelect().
		TableExpr("private_leagues AS l").
		ColumnExpr("l.id, l.name").
		Join("JOIN private_league_members AS m ON m.league_id = l.id").
		Where("m.user_id = ?", userID).
		OrderExpr("l.id ASC").
		Scan(ctx, &rows)
	if err != nil {
		return nil, err
	}
	out := make([]domain.League, 0, len(rows))
	for _, r := range rows {
		out = append(out, domain.League(r))
	}
	return out, nil
}

func (s *Store) LeagueStats(ctx context.Context, leagueID string) (domain.PrivateLeagueStats, error) {
	var row leagueStatsModel
	err := s.db.NewSelect().
		Model(&row).
		Where("pls.league_id = ?", leagueID).
		Limit(1).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.PrivateLeagueStats{}, domain.ErrLeagueNotFound
	}
	if err != nil {
		return domain.PrivateLeagueStats{}, err
	}
	avg, err := parseNumeric(row.AverageScore)
	if err != nil {
		return domain.PrivateLeagueStats{}, fmt.Errorf("league %s average_score: %w", leagueID, err)
	}
	return domain.PrivateLeagueStats{
		LeagueID:           row.LeagueID,
		MemberCount:        row.MemberCount,
		TotalQuizzesPlayed: row.TotalQuizzesPlayed,
		AverageScore:       avg,
	}, nil
}
