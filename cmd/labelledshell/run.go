package main

import (
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"labelledshell/internal/config"
	"labelledshell/internal/core"
	"labelledshell/internal/ledger"
	"labelledshell/internal/security"
	"labelledshell/internal/storage"
)

func newRunCmd(a *app) *cobra.Command {
	var noLedger bool
	cmd := &cobra.Command{
		Use:   "run <pipeline.yaml>",
		Short: "Run every step of a pipeline file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := core.LoadPipeline(args[0])
			if err != nil {
				return err
			}
			r, err := a.newRunner(cmd, !noLedger)
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()
			return r.Run(ctx, p)
		},
	}
	cmd.Flags().BoolVar(&noLedger, "no-ledger", false, "do not journal executions")
	return cmd
}

// newRunner wires the configured engine, log storage and ledger.
func (a *app) newRunner(cmd *cobra.Command, withLedger bool) (*core.Runner, error) {
	reg, err := newRegistry()
	if err != nil {
		return nil, err
	}
	engine, err := a.newEngine(a.cfg.Engine)
	if err != nil {
		return nil, err
	}

	r := &core.Runner{
		Registry:   reg,
		Engine:     engine,
		LogStorage: storage.NewLogStorage(a.cfg.Log.Dir),
		AgentID:    a.cfg.Agent.ID,
		BaseEnv:    a.baseEnv(),
		WorkDir:    a.cfg.Step.WorkDir,
		Out:        cmd.OutOrStdout(),
		Logger:     a.logger.WithPrefix("runner"),
	}
	// the agent owns the environment of remote steps
	r.ForwardOverrides = a.cfg.Engine == config.EngineRemote

	if withLedger && a.cfg.Ledger.Enabled {
		keys, created, err := security.EnsureKeyPair(a.cfg.Keys.Dir)
		if err != nil {
			return nil, err
		}
		if created {
			a.logger.Info("generated runner keys", "dir", a.cfg.Keys.Dir)
		}
		l, err := ledger.Open(a.cfg.Ledger.Path, keys)
		if err != nil {
			return nil, err
		}
		r.Ledger = l
	}
	return r, nil
}
