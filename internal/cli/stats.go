package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"quiz-stats-service/internal/config"
)

// NewStatsCmd prints a user's critical and deferred stats as JSON.
func NewStatsCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "stats <userID>",
		Short: "Print a user's stats as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadOptional(*configPath)
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			service, cleanup, err := buildService(ctx, cfg, newLogger(os.Stderr, cfg))
			if err != nil {
				return err
			}
			defer cleanup()

			pending := service.StartDeferred(ctx, args[0])
			critical, err := service.Critical(ctx, args[0])
			if err != nil {
				return fmt.Errorf("critical stats: %w", err)
			}
			deferred := <-pending
			if deferred.Err != nil {
				return fmt.Errorf("deferred stats: %w", deferred.Err)
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(map[string]any{
				"critical": critical,
				"deferred": deferred.Stats,
			})
		},
	}
}

var errNoSharedCache = errors.New("invalidate needs redis.addr: without a shared cache there is nothing to invalidate")

// NewInvalidateCmd drops every cached stats entry of a user.
func NewInvalidateCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "invalidate <userID>",
		Short: "Invalidate a user's cached stats",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadOptional(*configPath)
			if err != nil {
				return err
			}
			// An in-process cache would belong to this command alone.
			if cfg.Redis.Addr == "" {
				return errNoSharedCache
			}
			ctx := cmd.Context()
			service, cleanup, err := buildService(ctx, cfg, newLogger(os.Stderr, cfg))
			if err != nil {
				return err
			}
			defer cleanup()

			if err := service.InvalidateUser(ctx, args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "invalidated cached stats for %s\n", args[0])
			return nil
		},
	}
}
