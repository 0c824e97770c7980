package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"quiz-stats-service/internal/domain"
)

// Store is an in-process implementation of app.Store and app.LeagueRanker.
// It backs the demo server and tests; pre-computed tables are "present" only
// once something has been written to them.
type Store struct {
	mu sync.RWMutex

	completions   []domain.QuizCompletion
	quizzes       map[string]domain.Quiz
	summaries     map[string]domain.UserStatsSummary
	categoryStats map[string][]domain.UserCategoryStats
	public        *domain.PublicStatsSummary
	seasons       []domain.Season
	seasonStats   map[string]domain.SeasonStat
	leagues       map[string]domain.League
	leagueStats   map[string]domain.PrivateLeagueStats
	members       map[string][]string

	summaryTable  bool
	categoryTable bool
	publicTable   bool
}

func NewStore() *Store {
	return &Store{
		quizzes:       make(map[string]domain.Quiz),
		summaries:     make(map[string]domain.UserStatsSummary),
		categoryStats: make(map[string][]domain.UserCategoryStats),
		seasonStats:   make(map[string]domain.SeasonStat),
		leagues:       make(map[string]domain.League),
		leagueStats:   make(map[string]domain.PrivateLeagueStats),
		members:       make(map[string][]string),
	}
}

// AddCompletions appends raw completion rows.
func (s *Store) AddCompletions(completions ...domain.QuizCompletion) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.completions = append(s.completions, completions...)
}

// PutQuiz registers quiz structure.
func (s *Store) PutQuiz(quiz domain.Quiz) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.quizzes[quiz.Slug] = quiz
}

// PutUserSummary writes a pre-computed summary row.
func (s *Store) PutUserSummary(row domain.UserStatsSummary) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.summaryTable = true
	s.summaries[row.UserID] = row
}

// PutUserCategoryStats replaces a user's pre-computed category rows.
func (s *Store) PutUserCategoryStats(userID string, rows ...domain.UserCategoryStats) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.categoryTable = true
	s.categoryStats[userID] = rows
}

// PutPublicSummary writes the global pre-computed row.
func (s *Store) PutPublicSummary(row domain.PublicStatsSummary) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.publicTable = true
	s.public = &row
}

// PutSeason registers a season.
func (s *Store) PutSeason(season domain.Season) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seasons = append(s.seasons, season)
}

// PutSeasonStat writes a user's pre-computed season row.
func (s *Store) PutSeasonStat(userID string, stat domain.SeasonStat) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seasonStats[seasonKey(stat.SeasonID, userID)] = stat
}

// PutLeague registers a league with its members and optional aggregate.
func (s *Store) PutLeague(league domain.League, stats *domain.PrivateLeagueStats, members ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.leagues[league.ID] = league
	if stats != nil {
		s.leagueStats[league.ID] = *stats
	}
	s.members[league.ID] = append([]string(nil), members...)
}

func (s *Store) CompletionTotals(_ context.Context, userID string) (domain.CompletionTotals, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var totals domain.CompletionTotals
	for _, c := range s.completions {
		if c.UserID != userID {
			continue
		}
		totals.Quizzes++
		totals.Questions += c.TotalQuestions
		totals.Correct += c.Score
		if c.Perfect() {
			totals.Perfect++
		}
	}
	return totals, nil
}

func (s *Store) ListCompletions(_ context.Context, userID string, filter domain.CompletionFilter) ([]domain.QuizCompletion, error) {
	s.mu.RLock()
	out := make([]domain.QuizCompletion, 0)
	for _, c := range s.completions {
		if c.UserID != userID {
			continue
		}
		if !filter.Since.IsZero() && c.CompletedAt.Before(filter.Since) {
			continue
		}
		out = append(out, c)
	}
	s.mu.RUnlock()

	sort.SliceStable(out, func(i, j int) bool {
		if filter.NewestFirst {
			return out[i].CompletedAt.After(out[j].CompletedAt)
		}
		return out[i].CompletedAt.Before(out[j].CompletedAt)
	})
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

func (s *Store) GlobalTotals(_ context.Context) (domain.GlobalTotals, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	users := make(map[string]struct{})
	var totals domain.GlobalTotals
	for _, c := range s.completions {
		users[c.UserID] = struct{}{}
		totals.Quizzes++
		totals.Questions += c.TotalQuestions
		totals.Correct += c.Score
	}
	totals.Users = len(users)
	return totals, nil
}

func (s *Store) GetQuiz(_ context.Context, slug string) (domain.Quiz, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	quiz, ok := s.quizzes[slug]
	if !ok {
		return domain.Quiz{}, domain.ErrQuizNotFound
	}
	return quiz, nil
}

func (s *Store) PrecomputedTables(_ context.Context) (domain.PrecomputedTables, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return domain.PrecomputedTables{
		UserSummary:    s.summaryTable,
		UserCategories: s.categoryTable,
		PublicSummary:  s.publicTable,
	}, nil
}

func (s *Store) UserSummary(_ context.Context, userID string) (domain.UserStatsSummary, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	row, ok := s.summaries[userID]
	return row, ok, nil
}

func (s *Store) UserCategoryStats(_ context.Context, userID string) ([]domain.UserCategoryStats, error) {
	s.mu.RLock()
	rows := append([]domain.UserCategoryStats(nil), s.categoryStats[userID]...)
	s.mu.RUnlock()

	sort.SliceStable(rows, func(i, j int) bool {
		return rows[i].Percentage > rows[j].Percentage
	})
	return rows, nil
}

func (s *Store) PublicSummary(_ context.Context) (domain.PublicStatsSummary, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.public == nil {
		return domain.PublicStatsSummary{}, false, nil
	}
	return *s.public, true, nil
}

func (s *Store) ActiveSeason(_ context.Context, at time.Time) (domain.Season, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var (
		active domain.Season
		found  bool
	)
	// Overlapping seasons resolve to the latest start, as in Postgres.
	for _, season := range s.seasons {
		if season.ActiveAt(at) && (!found || season.StartsAt.After(active.StartsAt)) {
			active, found = season, true
		}
	}
	return active, found, nil
}

func (s *Store) SeasonStat(_ context.Context, seasonID, userID string) (domain.SeasonStat, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	stat, ok := s.seasonStats[seasonKey(seasonID, userID)]
	return stat, ok, nil
}

func (s *Store) UserLeagues(_ context.Context, userID string) ([]domain.League, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []domain.League
	for leagueID, members := range s.members {
		for _, member := range members {
			if member == userID {
				out = append(out, s.leagues[leagueID])
				break
			}
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Store) LeagueStats(_ context.Context, leagueID string) (domain.PrivateLeagueStats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	stats, ok := s.leagueStats[leagueID]
	if !ok {
		return domain.PrivateLeagueStats{}, domain.ErrLeagueNotFound
	}
	return stats, nil
}

// LeagueRank ranks members by total correct answers, ties sharing a rank
// (SQL RANK semantics).
func (s *Store) LeagueRank(_ context.Context, leagueID, userID string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	members, ok := s.members[leagueID]
	if !ok {
		return 0, domain.ErrLeagueNotFound
	}
	scores := make(map[string]int, len(members))
	for _, m := range members {
		scores[m] = 0
	}
	for _, c := range s.completions {
		if _, ok := scores[c.UserID]; ok {
			scores[c.UserID] += c.Score
		}
	}
	mine, ok := scores[userID]
	if !ok {
		return 0, domain.ErrLeagueNotFound
	}
	rank := 1
	for _, score := range scores {
		if score > mine {
			rank++
		}
	}
	return rank, nil
}

func seasonKey(seasonID, userID string) string {
	return seasonID + "::" + userID
}
