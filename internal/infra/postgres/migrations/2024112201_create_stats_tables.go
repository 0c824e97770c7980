package migrations

import (
	"context"
	_ "embed"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/migrate"
)

//go:embed 0001_create_stats_tables.sql
var createStatsTablesSQL string

var Migrations = migrate.NewMigrations()

func init() {
	Migrations.MustRegister(
		func(ctx context.Context, db *bun.DB) error {
			_, err := db.ExecContext(ctx, createStatsTablesSQL)
			return err
		},
		func(ctx context.Context, db *bun.DB) error {
			_, err := db.ExecContext(ctx, `DROP TABLE IF EXISTS
				private_league_stats, private_league_members, private_leagues,
				season_stats, seasons, public_stats_summary, user_category_stats,
				user_stats_summary, quiz_completions, quiz_rounds, categories, quizzes`)
			return err
		},
	)
}
