package root

import (
	"fmt"
	"log/slog"
	"net"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/cropwise/kisan/pkg/config"
	"github.com/cropwise/kisan/pkg/httpclient"
	"github.com/cropwise/kisan/pkg/server"
	"github.com/cropwise/kisan/pkg/suggest"
	"github.com/cropwise/kisan/pkg/thread"
)

func newServeCmd(flags *rootFlags) *cobra.Command {
	var listen string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(flags.configPath)
			if err != nil {
				return err
			}
			if listen != "" {
				cfg.Listen = listen
			}
			if flags.debugMode {
				cfg.Debug = true
			}

			store, err := thread.NewSQLiteStore(cfg.DB.Path)
			if err != nil {
				return fmt.Errorf("opening thread store: %w", err)
			}
			defer store.Close()

			client := httpclient.NewHttpClient()
			completer := suggest.NewSarvamClient(suggest.SarvamConfig{
				URL:              cfg.Upstream.URL,
				APIKey:           cfg.Upstream.APIKey,
				Model:            cfg.Upstream.Model,
				MaxTokens:        cfg.Upstream.MaxTokens,
				Temperature:      cfg.Upstream.Temperature,
				MaxRetries:       cfg.Retry.MaxRetries,
				RateLimitBase:    cfg.Retry.RateLimitBase,
				ServerErrorStep:  cfg.Retry.ServerErrorStep,
				NetworkErrorStep: cfg.Retry.NetworkErrorStep,
			}, client)
			orch := suggest.NewOrchestrator(completer, store)

			srv := server.New(store, orch, cfg.AgentEndpoint, client)

			ln, err := net.Listen("tcp", cfg.Listen)
			if err != nil {
				return fmt.Errorf("listening on %s: %w", cfg.Listen, err)
			}
			slog.Info("Server listening", "address", ln.Addr().String(), "db", cfg.DB.Path)

			g, ctx := errgroup.WithContext(cmd.Context())
			g.Go(func() error {
				return srv.Serve(ctx, ln)
			})
			g.Go(func() error {
				<-ctx.Done()
				ln.Close()
				return nil
			})
			return g.Wait()
		},
	}

	cmd.Flags().StringVarP(&listen, "listen", "l", "", "Listen address (overrides config)")

	return cmd
}
