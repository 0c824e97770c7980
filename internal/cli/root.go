package cli

import (
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"quiz-stats-service/internal/config"
)

var (
	port       string
	configPath string
	logLevel   string
)

// Execute runs the CLI.
func Execute() error {
	return newRootCmd().Execute()
}

func newRootCmd() *cobra.Command {
	envPort := os.Getenv("PORT")
	envConfig := os.Getenv("CONFIG_PATH")
	if envConfig == "" {
		envConfig = "config/config.yaml"
	}

	cmd := &cobra.Command{
		Use:           "quiz-stats",
		Short:         "Per-user quiz statistics with cached critical stats and streamed deferred stats",
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	cmd.PersistentFlags().StringVar(&port, "port", envPort, "port to listen on (overrides server.port)")
	cmd.PersistentFlags().StringVar(&configPath, "config", envConfig, "path to YAML config")
	cmd.PersistentFlags().StringVar(&logLevel, "log-level", os.Getenv("LOG_LEVEL"), "log level (overrides log.level)")
	cmd.AddCommand(NewStartCmd(&configPath, &port))
	cmd.AddCommand(NewMigrateCmd(&configPath))
	cmd.AddCommand(NewStatsCmd(&configPath))
	cmd.AddCommand(NewInvalidateCmd(&configPath))
	return cmd
}

// newLogger builds the process logger. The flag wins over the config file.
func newLogger(w io.Writer, cfg config.Config) *slog.Logger {
	level := cfg.Log.Level
	if logLevel != "" {
		level = logLevel
	}
	logger := slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: config.LogLevel(level)}))
	slog.SetDefault(logger)
	return logger
}
