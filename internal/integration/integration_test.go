package integration

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	goredis "github.com/redis/go-redis/v9"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/migrate"
	"quiz-stats-service/internal/app"
	"quiz-stats-service/internal/infra/postgres"
	pgmigrations "quiz-stats-service/internal/infra/postgres/migrations"
	infraredis "quiz-stats-service/internal/infra/redis"
)

var fixedNow = time.Date(2024, 1, 10, 12, 0, 0, 0, time.UTC)

func TestStatsEndToEnd(t *testing.T) {
	ctx := context.Background()
	requireDocker(t)

	pgURL, pgCleanup := startPostgres(t, ctx)
	defer pgCleanup()
	redisURL, redisCleanup := startRedis(t, ctx)
	defer redisCleanup()

	db := postgres.OpenDB(pgURL)
	defer db.Close()
	migrateAndSeed(t, ctx, db)

	pool, err := pgxpool.Connect(ctx, pgURL)
	if err != nil {
		t.Fatalf("connect pg: %v", err)
	}
	defer pool.Close()

	redisClient, err := redisClientFromURL(redisURL)
	if err != nil {
		t.Fatalf("redis client: %v", err)
	}
	defer redisClient.Close()

	service := app.NewStatsService(postgres.NewStore(db), postgres.NewLeagueRanker(pool), infraredis.NewCache(redisClient), app.Options{
		Clock: func() time.Time { return fixedNow },
	})

	critical, err := service.Critical(ctx, "u1")
	if err != nil {
		t.Fatalf("critical: %v", err)
	}
	if critical.Summary.TotalQuizzesPlayed != 2 || critical.Summary.AverageScore != 90.0 || critical.Summary.PerfectScores != 1 {
		t.Fatalf("unexpected summary from raw completions %+v", critical.Summary)
	}
	if critical.Streaks.CurrentQuizStreak != 2 {
		t.Fatalf("expected quiz streak 2, got %+v", critical.Streaks)
	}
	if len(critical.Categories.All) != 1 || critical.Categories.All[0].Name != "Maths" || critical.Categories.All[0].Percentage != 90 {
		t.Fatalf("unexpected categories %+v", critical.Categories.All)
	}
	if exists, err := redisClient.Exists(ctx, "stats:critical:u1").Result(); err != nil || exists != 1 {
		t.Fatalf("expected critical stats cached in redis, exists=%d err=%v", exists, err)
	}

	// A pre-computed row becomes visible once the cached entry is invalidated.
	if _, err := db.ExecContext(ctx, `INSERT INTO user_stats_summary
		(user_id, total_quizzes_played, total_questions_attempted, total_correct_answers, perfect_scores, average_score, best_quiz_streak)
		VALUES ('u1', 50, 500, 400, 7, 80.0, 9)`); err != nil {
		t.Fatalf("insert summary: %v", err)
	}
	if err := service.InvalidateUser(ctx, "u1"); err != nil {
		t.Fatalf("invalidate: %v", err)
	}
	critical, err = service.Critical(ctx, "u1")
	if err != nil {
		t.Fatalf("critical after invalidate: %v", err)
	}
	if critical.Summary.TotalQuizzesPlayed != 50 || critical.Streaks.BestQuizStreak != 9 {
		t.Fatalf("expected precomputed summary, got %+v %+v", critical.Summary, critical.Streaks)
	}

	deferred, err := service.Deferred(ctx, "u1")
	if err != nil {
		t.Fatalf("deferred: %v", err)
	}
	if len(deferred.PerformanceOverTime) != 2 || deferred.PerformanceOverTime[0].Score != 80 {
		t.Fatalf("unexpected performance series %+v", deferred.PerformanceOverTime)
	}
	if deferred.Comparisons.Public.TotalUsers != 2 || deferred.Comparisons.Public.TotalQuizzesPlayed != 3 {
		t.Fatalf("unexpected public comparison %+v", deferred.Comparisons.Public)
	}
	if deferred.SeasonStats == nil || deferred.SeasonStats.Rank != 2 {
		t.Fatalf("unexpected season stats %+v", deferred.SeasonStats)
	}

	leagues, err := service.LeagueComparisons(ctx, "u2")
	if err != nil {
		t.Fatalf("leagues: %v", err)
	}
	if len(leagues) != 1 || leagues[0].UserRank != 2 || leagues[0].MemberCount != 2 {
		t.Fatalf("unexpected league comparisons %+v", leagues)
	}
}

func migrateAndSeed(t *testing.T, ctx context.Context, db *bun.DB) {
	t.Helper()
	migrator := migrate.NewMigrator(db, pgmigrations.Migrations)
	if err := migrator.Init(ctx); err != nil {
		t.Fatalf("migrator init: %v", err)
	}
	if _, err := migrator.Migrate(ctx); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	statements := []string{
		`INSERT INTO quizzes (slug, title) VALUES ('times-tables', 'Times tables')`,
		`INSERT INTO categories (id, name) VALUES (1, 'Maths')`,
		`INSERT INTO quiz_rounds (quiz_slug, position, category_id) VALUES ('times-tables', 1, 1), ('times-tables', 2, NULL)`,
		`INSERT INTO quiz_completions (user_id, quiz_slug, score, total_questions, completed_at) VALUES
			('u1', 'times-tables', 4, 5, '2024-01-01T09:00:00Z'),
			('u1', 'times-tables', 5, 5, '2024-01-08T09:00:00Z'),
			('u2', 'times-tables', 2, 5, '2024-01-09T09:00:00Z')`,
		`INSERT INTO seasons (id, name, starts_at, ends_at) VALUES ('spring', 'Spring', '2024-01-01T00:00:00Z', '2024-04-01T00:00:00Z')`,
		`INSERT INTO season_stats (season_id, user_id, quizzes_played, total_correct, total_questions, average_score, rank)
			VALUES ('spring', 'u1', 2, 9, 10, 90.0, 2)`,
		`INSERT INTO private_leagues (id, name) VALUES ('l1', 'Class 5B')`,
		`INSERT INTO private_league_members (league_id, user_id) VALUES ('l1', 'u1'), ('l1', 'u2')`,
		`INSERT INTO private_league_stats (league_id, member_count, total_quizzes_played, average_score) VALUES ('l1', 2, 3, 73.3)`,
	}
	for _, stmt := range statements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			t.Fatalf("seed %q: %v", stmt, err)
		}
	}
}

func startPostgres(t *testing.T, ctx context.Context) (string, func()) {
	t.Helper()
	req := tc.ContainerRequest{
		Image:        "postgres:15-alpine",
		Env:          map[string]string{"POSTGRES_USER": "quiz", "POSTGRES_PASSWORD": "quizpass", "POSTGRES_DB": "quizdb"},
		ExposedPorts: []string{"5432/tcp"},
		WaitingFor:   wait.ForLog("database system is ready to accept connections").WithOccurrence(2).WithStartupTimeout(60 * time.Second),
	}
	container, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		if strings.Contains(err.Error(), "Cannot connect to the Docker daemon") {
			t.Skipf("docker not available: %v", err)
		}
		t.Fatalf("start postgres: %v", err)
	}
	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("host: %v", err)
	}
	port, err := container.MappedPort(ctx, "5432/tcp")
	if err != nil {
		t.Fatalf("port: %v", err)
	}
	dsn := fmt.Sprintf("postgres://quiz:quizpass@%s:%s/quizdb?sslmode=disable", host, port.Port())
	return dsn, func() {
		_ = container.Terminate(ctx)
	}
}

func startRedis(t *testing.T, ctx context.Context) (string, func()) {
	t.Helper()
	req := tc.ContainerRequest{
		Image:        "redis:7-alpine",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForListeningPort("6379/tcp").WithStartupTimeout(30 * time.Second),
	}
	container, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		if strings.Contains(err.Error(), "Cannot connect to the Docker daemon") {
			t.Skipf("docker not available: %v", err)
		}
		t.Fatalf("start redis: %v", err)
	}
	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("redis host: %v", err)
	}
	port, err := container.MappedPort(ctx, "6379/tcp")
	if err != nil {
		t.Fatalf("redis port: %v", err)
	}
	url := fmt.Sprintf("redis://%s:%s", host, port.Port())
	return url, func() {
		_ = container.Terminate(ctx)
	}
}

func redisClientFromURL(url string) (*goredis.Client, error) {
	opts, err := goredis.ParseURL(url)
	if err != nil {
		return nil, err
	}
	return goredis.NewClient(opts), nil
}

func requireDocker(t *testing.T) {
	t.Helper()
	if _, err := tc.NewDockerProvider(); err != nil {
		t.Skipf("docker not available: %v", err)
	}
}
