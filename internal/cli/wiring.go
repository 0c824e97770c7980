package cli

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"quiz-stats-service/internal/app"
	"quiz-stats-service/internal/config"
	"quiz-stats-service/internal/domain"
	"quiz-stats-service/internal/infra/memory"
	"quiz-stats-service/internal/infra/postgres"
	rediscache "quiz-stats-service/internal/infra/redis"
)

// buildService wires the stats service from config: Postgres when a URL is
// configured (otherwise an in-memory demo store), Redis when an address is
// configured (otherwise an in-process cache). The returned func releases
// every connection.
func buildService(ctx context.Context, cfg config.Config, logger *slog.Logger) (*app.StatsService, func(), error) {
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	var (
		store  app.Store
		ranker app.LeagueRanker
	)
	if cfg.Postgres.URL != "" {
		db := postgres.OpenDB(cfg.Postgres.URL)
		closers = append(closers, func() { _ = db.Close() })

		pool, err := pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("connect postgres pool: %w", err)
		}
		closers = append(closers, pool.Close)

		store = postgres.NewStore(db)
		ranker = postgres.NewLeagueRanker(pool)
	} else {
		logger.Info("postgres not configured, serving in-memory demo data")
		demo := demoStore(time.Now())
		store, ranker = demo, demo
	}

	quizTTL := config.TTLDuration(cfg.Stats.QuizTTL, 10*time.Minute)
	var (
		cache   app.Cache
		catalog app.QuizCatalog
	)
	if cfg.Redis.Addr != "" {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		closers = append(closers, func() { _ = client.Close() })
		cache = rediscache.NewCache(client)
		catalog = rediscache.NewQuizCatalog(client, store, quizTTL)
	} else {
		cache = memory.NewCache()
		catalog = memory.NewQuizCatalog(store, quizTTL)
	}

	service := app.NewStatsService(store, ranker, cache, app.Options{
		Catalog:           catalog,
		CriticalTTL:       config.TTLDuration(cfg.Stats.CriticalTTL, 30*time.Second),
		QueryTimeout:      config.TTLDuration(cfg.Stats.QueryTimeout, 0),
		LeagueConcurrency: cfg.Stats.LeagueConcurrency,
		Logger:            logger,
	})
	return service, cleanup, nil
}

// demoStore seeds a small data set so the server is explorable without a database.
func demoStore(now time.Time) *memory.Store {
	store := memory.NewStore()
	store.PutQuiz(domain.Quiz{Slug: "times-tables", Rounds: []domain.Round{
		{Position: 1, CategoryID: "maths", CategoryName: "Maths"},
		{Position: 2, CategoryID: "maths", CategoryName: "Maths"},
	}})
	store.PutQuiz(domain.Quiz{Slug: "capitals", Rounds: []domain.Round{
		{Position: 1, CategoryID: "geography", CategoryName: "Geography"},
		{Position: 2, CategoryID: "history", CategoryName: "History"},
		{Position: 3},
	}})

	day := 24 * time.Hour
	store.AddCompletions(
		domain.QuizCompletion{UserID: "demo", QuizSlug: "times-tables", Score: 8, TotalQuestions: 10, CompletedAt: now.Add(-20 * day)},
		domain.QuizCompletion{UserID: "demo", QuizSlug: "capitals", Score: 10, TotalQuestions: 10, CompletedAt: now.Add(-13 * day)},
		domain.QuizCompletion{UserID: "demo", QuizSlug: "times-tables", Score: 10, TotalQuestions: 10, CompletedAt: now.Add(-6 * day)},
		domain.QuizCompletion{UserID: "friend", QuizSlug: "capitals", Score: 6, TotalQuestions: 10, CompletedAt: now.Add(-3 * day)},
	)

	season := domain.Season{ID: "current", Name: "Current season", StartsAt: now.Add(-30 * day), EndsAt: now.Add(60 * day)}
	store.PutSeason(season)
	store.PutSeasonStat("demo", domain.SeasonStat{SeasonID: season.ID, QuizzesPlayed: 3, TotalCorrect: 28, TotalQuestions: 30, AverageScore: 93.3, Rank: 1})

	store.PutLeague(domain.League{ID: "family", Name: "Family league"},
		&domain.PrivateLeagueStats{LeagueID: "family", MemberCount: 2, TotalQuizzesPlayed: 4, AverageScore: 85},
		"demo", "friend")
	return store
}
