package domain

import (
	"fmt"
	"time"
)

// QuizCompletion is one recorded quiz attempt by a user.
type QuizCompletion struct {
	UserID         string
	QuizSlug       string
	Score          int
	TotalQuestions int
	CompletedAt    time.Time
}

// Perfect reports whether every presented question was answered correctly.
func (c QuizCompletion) Perfect() bool {
	return c.Score == c.TotalQuestions
}

// Validate rejects rows that cannot be aggregated. Zero-question rows are
// tolerated; percentage helpers guard the division.
func (c QuizCompletion) Validate() error {
	if c.TotalQuestions < 0 || c.Score < 0 || c.Score > c.TotalQuestions {
		return fmt.Errorf("%w: quiz %q score %d/%d", ErrMalformedCompletion, c.QuizSlug, c.Score, c.TotalQuestions)
	}
	return nil
}

// CompletionFilter narrows a completion listing. Zero values mean "no bound".
type CompletionFilter struct {
	Since       time.Time
	Limit       int
	NewestFirst bool
}

// CompletionTotals is the aggregate of all completions of one user.
type CompletionTotals struct {
	Quizzes   int
	Questions int
	Correct   int
	Perfect   int
}

// GlobalTotals is the aggregate of every completion in the store.
type GlobalTotals struct {
	Users     int
	Quizzes   int
	Questions int
	Correct   int
}

// Round is one round of a quiz; CategoryID is empty for uncategorized rounds.
type Round struct {
	Position     int
	CategoryID   string
	CategoryName string
}

// Categorized reports whether the round contributes to category stats.
func (r Round) Categorized() bool {
	return r.CategoryID != ""
}

// Quiz is the structural reference data needed to attribute scores to categories.
type Quiz struct {
	Slug   string
	Rounds []Round
}

// UserStatsSummary is the pre-computed per-user counter row.
type UserStatsSummary struct {
	UserID                  string
	TotalQuizzesPlayed      int
	TotalQuestionsAttempted int
	TotalCorrectAnswers     int
	PerfectScores           int
	AverageScore            float64
	CurrentQuestionStreak   int
	BestQuestionStreak      int
	CurrentQuizStreak       int
	BestQuizStreak          int
}

// UserCategoryStats is the pre-computed per (user, category) row.
type UserCategoryStats struct {
	UserID       string
	CategoryName string
	Correct      int
	Total        int
	Quizzes      int
	Percentage   float64
}

// PublicStatsSummary is the single pre-computed global row.
type PublicStatsSummary struct {
	TotalUsers         int
	TotalQuizzesPlayed int
	AverageScore       float64
}

// PrecomputedTables records which denormalized tables the store can serve.
type PrecomputedTables struct {
	UserSummary    bool
	UserCategories bool
	PublicSummary  bool
}

// Season is a dated competition window.
type Season struct {
	ID       string
	Name     string
	StartsAt time.Time
	EndsAt   time.Time
}

// ActiveAt reports whether t falls inside [StartsAt, EndsAt).
func (s Season) ActiveAt(t time.Time) bool {
	return !t.Before(s.StartsAt) && t.Before(s.EndsAt)
}

// League is a private league a user belongs to.
type League struct {
	ID   string
	Name string
}

// PrivateLeagueStats is the pre-computed aggregate for one league.
type PrivateLeagueStats struct {
	LeagueID           string
	MemberCount        int
	TotalQuizzesPlayed int
	AverageScore       float64
}

// Summary holds the headline counters for one user.
type Summary struct {
	AverageScore            float64 `json:"averageScore"`
	TotalQuestionsAttempted int     `json:"totalQuestionsAttempted"`
	TotalQuizzesPlayed      int     `json:"totalQuizzesPlayed"`
	TotalCorrectAnswers     int     `json:"totalCorrectAnswers"`
	PerfectScores           int     `json:"perfectScores"`
}

// Streaks holds the question and quiz streak counters.
type Streaks struct {
	CurrentQuestionStreak int `json:"currentQuestionStreak"`
	BestQuestionStreak    int `json:"bestQuestionStreak"`
	CurrentQuizStreak     int `json:"currentQuizStreak"`
	BestQuizStreak        int `json:"bestQuizStreak"`
}

// CategoryStat is the accuracy of one user in one category.
type CategoryStat struct {
	Name       string  `json:"name"`
	Correct    int     `json:"correct"`
	Total      int     `json:"total"`
	Percentage float64 `json:"percentage"`
	Quizzes    int     `json:"quizzes"`
}

// CategoryBreakdown splits category stats for display.
type CategoryBreakdown struct {
	Strongest []CategoryStat `json:"strongest"`
	Weakest   []CategoryStat `json:"weakest"`
	All       []CategoryStat `json:"all"`
}

// WeekEntry is one cell of the 52-week scratchcard.
type WeekEntry struct {
	Week        string     `json:"week"`
	Date        string     `json:"date"`
	Completed   bool       `json:"completed"`
	CompletedAt *time.Time `json:"completedAt,omitempty"`
	QuizSlug    string     `json:"quizSlug,omitempty"`
}

// PerformancePoint is one completion on the performance chart.
type PerformancePoint struct {
	Date     string  `json:"date"`
	Score    float64 `json:"score"`
	QuizSlug string  `json:"quizSlug"`
}

// PublicComparison is the global baseline a user is compared against.
type PublicComparison struct {
	AverageScore       float64 `json:"averageScore"`
	TotalUsers         int     `json:"totalUsers"`
	TotalQuizzesPlayed int     `json:"totalQuizzesPlayed"`
}

// LeagueComparison places a user inside one private league.
type LeagueComparison struct {
	LeagueID     string  `json:"leagueId"`
	Name         string  `json:"name"`
	MemberCount  int     `json:"memberCount"`
	AverageScore float64 `json:"averageScore"`
	UserRank     int     `json:"userRank"`
}

// Comparisons groups the comparative displays.
type Comparisons struct {
	Public  PublicComparison   `json:"public"`
	Leagues []LeagueComparison `json:"leagues"`
}

// SeasonStat is a user's standing in the active season.
type SeasonStat struct {
	SeasonID       string    `json:"seasonId"`
	Name           string    `json:"name"`
	StartsAt       time.Time `json:"startsAt"`
	EndsAt         time.Time `json:"endsAt"`
	QuizzesPlayed  int       `json:"quizzesPlayed"`
	TotalCorrect   int       `json:"totalCorrect"`
	TotalQuestions int       `json:"totalQuestions"`
	AverageScore   float64   `json:"averageScore"`
	Rank           int       `json:"rank"` // 0 when unranked
}

// CriticalStats is everything needed for first paint.
type CriticalStats struct {
	Summary      Summary           `json:"summary"`
	Streaks      Streaks           `json:"streaks"`
	Categories   CategoryBreakdown `json:"categories"`
	WeeklyStreak []WeekEntry       `json:"weeklyStreak"`
}

// DeferredStats is streamed after first paint.
type DeferredStats struct {
	PerformanceOverTime []PerformancePoint `json:"performanceOverTime"`
	Comparisons         Comparisons        `json:"comparisons"`
	SeasonStats         *SeasonStat        `json:"seasonStats"`
}
