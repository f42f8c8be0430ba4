package cli

import (
	"os"

	"github.com/spf13/cobra"
)

var (
	port       string
	configPath string
)

// Execute runs the CLI.
func Execute() error {
	return newRootCmd().Execute()
}

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mla-quiz-service",
		Short: "Serve medical MCQ attempts with live shuffle, timing and resume",
		Long: "mla-quiz-service runs quiz attempts over a websocket: questions and\n" +
			"options are shuffled per attempt, answers are scored as they are\n" +
			"submitted, and interrupted attempts can be resumed from a snapshot.",
	}

	cmd.PersistentFlags().StringVar(&port, "port", envOr("PORT", "8080"), "HTTP listen port")
	cmd.PersistentFlags().StringVar(&configPath, "config", envOr("CONFIG_PATH", "config/config.yaml"), "config file (YAML)")
	cmd.AddCommand(NewStartCmd(&configPath, &port))
	cmd.AddCommand(NewMigrateCmd(&configPath))
	return cmd
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
