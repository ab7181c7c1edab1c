package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/spf13/cobra"

	"labelledshell/internal/agent"
	"labelledshell/internal/config"
)

func newAgentCmd(a *app) *cobra.Command {
	var engineName string
	cmd := &cobra.Command{
		Use:   "agent",
		Short: "Serve the execution API used by the remote engine",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if engineName == config.EngineRemote {
				return errors.New("an agent cannot use the remote engine")
			}
			engine, err := a.newEngine(engineName)
			if err != nil {
				return err
			}

			srv := &http.Server{
				Addr:              a.cfg.Agent.Listen,
				Handler:           agent.NewServer(a.cfg.Agent.ID, engine, a.logger).Routes(),
				ReadHeaderTimeout: 10 * time.Second,
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()
			go func() {
				<-ctx.Done()
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				_ = srv.Shutdown(shutdownCtx)
			}()

			a.logger.Info("agent listening", "addr", srv.Addr, "id", a.cfg.Agent.ID, "engine", engineName)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&engineName, "engine", config.EngineLocal, "engine used to run jobs: local or virtual")
	return cmd
}
