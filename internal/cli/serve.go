package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/gridquery/gridquery/internal/cliopt"
	"github.com/gridquery/gridquery/internal/server"
)

func newServeCommand(g *cliopt.GlobalOptions) *cobra.Command {
	var port int
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the configured grids over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := ResolveConfig(*g)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("port") {
				cfg.HTTP.Port = port
			}
			if len(cfg.Grids) == 0 {
				return fmt.Errorf("no grids configured")
			}

			ctx := cmd.Context()
			backend, err := OpenBackend(ctx, cfg)
			if err != nil {
				return err
			}
			defer backend.Close()

			grids, err := backend.OpenGrids(ctx, cfg)
			if err != nil {
				return err
			}
			httpServer, err := server.New(grids...)
			if err != nil {
				return err
			}
			if err := httpServer.Start(cfg.HTTP.Port); err != nil {
				return err
			}
			logger.Info().Int("grids", len(grids)).Str("backend", cfg.Backend).Msg("serving grids")

			<-ctx.Done()
			logger.Warn().Msg("received shutdown signal!")

			// load balancers may need time to deregister the instance
			sleepTime := cfg.HTTP.ShutdownSleepSec
			logger.Info().Msg(fmt.Sprintf("sleeping for %ds before exiting", sleepTime))
			time.Sleep(time.Second * time.Duration(sleepTime))

			shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Second*10)
			defer cancel()
			if err := httpServer.Shutdown(shutdownCtx); err != nil {
				logger.Error().Err(err).Msg("failed to shutdown HTTP server")
				return err
			}
			logger.Info().Msg("successfully shutdown HTTP server")
			return nil
		},
	}
	cmd.Flags().IntVarP(&port, "port", "p", 0, "listen port (overrides http.port)")
	return cmd
}
