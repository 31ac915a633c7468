package root

import (
	"context"
	"io"
	"log/slog"

	"github.com/spf13/cobra"
)

type rootFlags struct {
	debugMode  bool
	configPath string
}

func NewRootCmd() *cobra.Command {
	var flags rootFlags

	cmd := &cobra.Command{
		Use:   "kisan",
		Short: "kisan - farming assistant chat backend",
		Long:  "kisan streams farming-assistant conversations, tracks tool progress and keeps follow-up suggestions fresh",
		Example: `  kisan serve
  kisan serve --listen :9090
  kisan chat "mera pyaaj kharab ho raha hai"
  kisan version`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			level := slog.LevelInfo
			if flags.debugMode {
				level = slog.LevelDebug
			}
			slog.SetDefault(slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{
				Level: level,
			})))
			return nil
		},
		// If no subcommand is specified, show help
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
		SilenceErrors: true,
		SilenceUsage:  true,
	}

	cmd.PersistentFlags().BoolVarP(&flags.debugMode, "debug", "d", false, "Enable debug logging")
	cmd.PersistentFlags().StringVarP(&flags.configPath, "config", "c", "", "Path to config file")

	cmd.AddCommand(newServeCmd(&flags))
	cmd.AddCommand(newChatCmd(&flags))
	cmd.AddCommand(newVersionCmd())

	return cmd
}

func Execute(ctx context.Context, stdout, stderr io.Writer, args ...string) error {
	rootCmd := NewRootCmd()
	rootCmd.SetOut(stdout)
	rootCmd.SetErr(stderr)
	rootCmd.SetArgs(args)
	return rootCmd.ExecuteContext(ctx)
}
