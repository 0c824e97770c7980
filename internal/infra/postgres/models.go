package postgres

import (
	"fmt"
	"strconv"
	"time"

	"github.com/uptrace/bun"
	"quiz-stats-service/internal/domain"
)

type completionModel struct {
	bun.BaseModel `bun:"table:quiz_completions,alias:qc"`

	ID             int64     `bun:"id,pk,autoincrement"`
	UserID         string    `bun:"user_id,notnull"`
	QuizSlug       string    `bun:"quiz_slug,notnull"`
	Score          int       `bun:"score,notnull"`
	TotalQuestions int       `bun:"total_questions,notnull"`
	CompletedAt    time.Time `bun:"completed_at,notnull"`
}

func (m completionModel) toDomain() domain.QuizCompletion {
	return domain.QuizCompletion{
		UserID:         m.UserID,
		QuizSlug:       m.QuizSlug,
		Score:          m.Score,
		TotalQuestions: m.TotalQuestions,
		CompletedAt:    m.CompletedAt.UTC(),
	}
}

// Averages and percentages are numeric columns; pgdriver hands them over as
// text so they are parsed explicitly.

type userSummaryModel struct {
	bun.BaseModel `bun:"table:user_stats_summary,alias:uss"`

	UserID                  string `bun:"user_id,pk"`
	TotalQuizzesPlayed      int    `bun:"total_quizzes_played"`
	TotalQuestionsAttempted int    `bun:"total_questions_attempted"`
	TotalCorrectAnswers     int    `bun:"total_correct_answers"`
	PerfectScores           int    `bun:"perfect_scores"`
	AverageScore            string `bun:"average_score"`
	CurrentQuestionStreak   int    `bun:"current_question_streak"`
	BestQuestionStreak      int    `bun:"best_question_streak"`
	CurrentQuizStreak       int    `bun:"current_quiz_streak"`
	BestQuizStreak          int    `bun:"best_quiz_streak"`
}

func (m userSummaryModel) toDomain() (domain.UserStatsSummary, error) {
	avg, err := parseNumeric(m.AverageScore)
	if err != nil {
		return domain.UserStatsSummary{}, fmt.Errorf("user %s average_score: %w", m.UserID, err)
	}
	return domain.UserStatsSummary{
		UserID:                  m.UserID,
		TotalQuizzesPlayed:      m.TotalQuizzesPlayed,
		TotalQuestionsAttempted: m.TotalQuestionsAttempted,
		TotalCorrectAnswers:     m.TotalCorrectAnswers,
		PerfectScores:           m.PerfectScores,
		AverageScore:            avg,
		CurrentQuestionStreak:   m.CurrentQuestionStreak,
		BestQuestionStreak:      m.BestQuestionStreak,
		CurrentQuizStreak:       m.CurrentQuizStreak,
		BestQuizStreak:          m.BestQuizStreak,
	}, nil
}

type categoryStatRow struct {
	UserID       string `bun:"user_id"`
	CategoryName string `bun:"category_name"`
	Correct      int    `bun:"correct"`
	Total        int    `bun:"total"`
	Quizzes      int    `bun:"quizzes"`
	Percentage   string `bun:"percentage"`
}

func (r categoryStatRow) toDomain() (domain.UserCategoryStats, error) {
	pct, err := parseNumeric(r.Percentage)
	if err != nil {
		return domain.UserCategoryStats{}, fmt.Errorf("category %s percentage: %w", r.CategoryName, err)
	}
	return domain.UserCategoryStats{
		UserID:       r.UserID,
		CategoryName: r.CategoryName,
		Correct:      r.Correct,
		Total:        r.Total,
		Quizzes:      r.Quizzes,
		Percentage:   pct,
	}, nil
}

type publicSummaryModel struct {
	bun.BaseModel `bun:"table:public_stats_summary,alias:pss"`

	ID                 int    `bun:"id,pk"`
	TotalUsers         int    `bun:"total_users"`
	TotalQuizzesPlayed int    `bun:"total_quizzes_played"`
	AverageScore       string `bun:"average_score"`
}

type roundRow struct {
	Position     int    `bun:"position"`
	CategoryID   string `bun:"category_id"`
	CategoryName string `bun:"category_name"`
}

type totalsRow struct {
	Quizzes   int `bun:"quizzes"`
	Questions int `bun:"questions"`
	Correct   int `bun:"correct"`
	Perfect   int `bun:"perfect"`
}

type globalTotalsRow struct {
	Users     int `bun:"users"`
	Quizzes   int `bun:"quizzes"`
	Questions int `bun:"questions"`
	Correct   int `bun:"correct"`
}

type seasonModel struct {
	bun.BaseModel `bun:"table:seasons,alias:s"`

	ID       string    `bun:"id,pk"`
	Name     string    `bun:"name,notnull"`
	StartsAt time.Time `bun:"starts_at,notnull"`
	EndsAt   time.Time `bun:"ends_at,notnull"`
}

type seasonStatModel struct {
	bun.BaseModel `bun:"table:season_stats,alias:ss"`

	SeasonID       string `bun:"season_id,pk"`
	UserID         string `bun:"user_id,pk"`
	QuizzesPlayed  int    `bun:"quizzes_played"`
	TotalCorrect   int    `bun:"total_correct"`
	TotalQuestions int    `bun:"total_questions"`
	AverageScore   string `bun:"average_score"`
	Rank           int    `bun:"rank"`
}

type leagueRow struct {
	ID   string `bun:"id"`
	Name string `bun:"name"`
}

type leagueStatsModel struct {
	bun.BaseModel `bun:"table:private_league_stats,alias:pls"`

	LeagueID           string `bun:"league_id,pk"`
	MemberCount        int    `bun:"member_count"`
	TotalQuizzesPlayed int    `bun:"total_quizzes_played"`
	AverageScore       string `bun:"average_score"`
}

func parseNumeric(raw string) (float64, error) {
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("parse numeric %q: %w", raw, err)
	}
	return v, nil
}
