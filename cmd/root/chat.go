package root

import (
	"bufio"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/cropwise/kisan/pkg/chat"
	"github.com/cropwise/kisan/pkg/config"
	"github.com/cropwise/kisan/pkg/httpclient"
	"github.com/cropwise/kisan/pkg/runtime"
	"github.com/cropwise/kisan/pkg/thread"
)

func newChatCmd(flags *rootFlags) *cobra.Command {
	var (
		endpoint string
		resume   string
	)

	cmd := &cobra.Command{
		Use:   "chat [message]",
		Short: "Chat with the farming agent from the terminal",
		Long:  "Send a single message, or start an interactive session when no message is given. Conversations are saved as threads.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(flags.configPath)
			if err != nil {
				return err
			}
			if endpoint != "" {
				cfg.AgentEndpoint = endpoint
			}

			store, err := thread.NewSQLiteStore(cfg.DB.Path)
			if err != nil {
				return fmt.Errorf("opening thread store: %w", err)
			}
			defer store.Close()

			coord := thread.NewCoordinator(store)
			if resume != "" {
				if _, err := coord.SwitchTo(cmd.Context(), resume); err != nil {
					return fmt.Errorf("resuming thread %s: %w", resume, err)
				}
			} else {
				coord.NewThread()
			}
			defer coord.Flush(cmd.Context())

			client := runtime.NewClient(cfg.AgentEndpoint, httpclient.NewHttpClient())

			if len(args) == 1 {
				return runTurn(cmd, client, coord, args[0])
			}

			scanner := bufio.NewScanner(cmd.InOrStdin())
			fmt.Fprintln(cmd.OutOrStdout(), "Type a message, or /exit to quit.")
			for {
				fmt.Fprint(cmd.OutOrStdout(), "> ")
				if !scanner.Scan() {
					return scanner.Err()
				}
				line := strings.TrimSpace(scanner.Text())
				switch {
				case line == "":
					continue
				case line == "/exit":
					return nil
				}
				if err := runTurn(cmd, client, coord, line); err != nil {
					return err
				}
			}
		},
	}

	cmd.Flags().StringVarP(&endpoint, "endpoint", "e", "", "Agent endpoint (overrides config)")
	cmd.Flags().StringVarP(&resume, "thread", "t", "", "Resume an existing thread by id")

	return cmd
}

// runTurn sends one user message and prints the assembled reply, including
// any tool activity the agent reported along the way.
func runTurn(cmd *cobra.Command, client *runtime.Client, coord *thread.Coordinator, text string) error {
	coord.Append(chat.NewUserMessage(text))

	current := coord.Current()
	asm := runtime.NewAssembler()
	msg, err := client.Stream(cmd.Context(), runtime.Request{Messages: current.Messages}, asm)
	if err != nil {
		if msg != nil {
			coord.Append(*msg)
		}
		return err
	}
	if msg == nil {
		fmt.Fprintln(cmd.OutOrStdout(), "(no response)")
		return nil
	}

	out := cmd.OutOrStdout()
	for _, part := range msg.Parts {
		switch part.Type {
		case chat.PartTypeToolCall:
			fmt.Fprintf(out, "[tool] %s\n", part.ToolName)
		case chat.PartTypeText:
			fmt.Fprintln(out, part.Text)
		}
	}

	coord.Append(*msg)
	return nil
}
