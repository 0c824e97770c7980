package app

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
	"quiz-stats-service/internal/domain"
)

// CompletionStore reads raw quiz completions.
type CompletionStore interface {
	CompletionTotals(ctx context.Context, userID string) (domain.CompletionTotals, error)
	ListCompletions(ctx context.Context, userID string, filter domain.CompletionFilter) ([]domain.QuizCompletion, error)
	GlobalTotals(ctx context.Context) (domain.GlobalTotals, error)
}

// QuizCatalog loads quiz structure (rounds and their categories).
type QuizCatalog interface {
	GetQuiz(ctx context.Context, slug string) (domain.Quiz, error)
}

// PrecomputedStore serves the denormalized summary tables. Lookups report
// found=false on a table miss; err is reserved for genuine failures.
type PrecomputedStore interface {
	PrecomputedTables(ctx context.Context) (domain.PrecomputedTables, error)
	UserSummary(ctx context.Context, userID string) (domain.UserStatsSummary, bool, error)
	UserCategoryStats(ctx context.Context, userID string) ([]domain.UserCategoryStats, error)
	PublicSummary(ctx context.Context) (domain.PublicStatsSummary, bool, error)
}

// SeasonStore serves seasons and per-user season aggregates.
type SeasonStore interface {
	ActiveSeason(ctx context.Context, at time.Time) (domain.Season, bool, error)
	SeasonStat(ctx context.Context, seasonID, userID string) (domain.SeasonStat, bool, error)
}

// LeagueStore serves league membership and pre-computed league aggregates.
type LeagueStore interface {
	UserLeagues(ctx context.Context, userID string) ([]domain.League, error)
	LeagueStats(ctx context.Context, leagueID string) (domain.PrivateLeagueStats, error)
}

// LeagueRanker ranks a user among the members of one league.
type LeagueRanker interface {
	LeagueRank(ctx context.Context, leagueID, userID string) (int, error)
}

// Store is everything the stats service reads.
type Store interface {
	CompletionStore
	QuizCatalog
	PrecomputedStore
	SeasonStore
	LeagueStore
}

// Options tunes a StatsService. Zero values fall back to defaults.
type Options struct {
	CriticalTTL       time.Duration
	QueryTimeout      time.Duration
	LeagueConcurrency int
	Logger            *slog.Logger
	Clock             func() time.Time

	// Catalog overrides the store's quiz lookups, typically with a caching
	// decorator around the same store.
	Catalog QuizCatalog
}

const (
	defaultCriticalTTL       = 30 * time.Second
	defaultLeagueConcurrency = 4
	quizLookupConcurrency    = 8
)

// StatsService computes per-user statistics, preferring pre-computed tables
// and falling back to aggregating raw completions.
type StatsService struct {
	store   Store
	catalog QuizCatalog
	ranker  LeagueRanker
	cache   Cache

	criticalTTL       time.Duration
	queryTimeout      time.Duration
	leagueConcurrency int
	logger            *slog.Logger
	now               func() time.Time

	sf singleflight.Group

	probeMu sync.Mutex
	probed  bool
	tables  domain.PrecomputedTables
}

func NewStatsService(store Store, ranker LeagueRanker, cache Cache, opts Options) *StatsService {
	s := &StatsService{
		store:             store,
		catalog:           opts.Catalog,
		ranker:            ranker,
		cache:             cache,
		criticalTTL:       opts.CriticalTTL,
		queryTimeout:      opts.QueryTimeout,
		leagueConcurrency: opts.LeagueConcurrency,
		logger:            opts.Logger,
		now:               opts.Clock,
	}
	if s.catalog == nil {
		s.catalog = store
	}
	if s.criticalTTL <= 0 {
		s.criticalTTL = defaultCriticalTTL
	}
	if s.leagueConcurrency <= 0 {
		s.leagueConcurrency = defaultLeagueConcurrency
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

// precomputed resolves the capability probe once per process. A failed probe
// is not remembered so the next request retries it.
func (s *StatsService) precomputed(ctx context.Context) (domain.PrecomputedTables, error) {
	s.probeMu.Lock()
	defer s.probeMu.Unlock()
	if s.probed {
		return s.tables, nil
	}

	tables, err := s.store.PrecomputedTables(ctx)
	if err != nil {
		return domain.PrecomputedTables{}, fmt.Errorf("probe precomputed tables: %w", err)
	}
	for name, ok := range map[string]bool{
		"user_stats_summary":   tables.UserSummary,
		"user_category_stats":  tables.UserCategories,
		"public_stats_summary": tables.PublicSummary,
	} {
		if !ok {
			s.logger.Warn("precomputed table unavailable, aggregating raw completions", "table", name)
		}
	}
	s.tables, s.probed = tables, true
	return tables, nil
}

func (s *StatsService) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.queryTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.queryTimeout)
}

func normalizeUserID(userID string) (string, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return "", domain.ErrInvalidUserID
	}
	return userID, nil
}
