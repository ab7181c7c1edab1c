package main

import (
	"fmt"
	"os"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"labelledshell/internal/config"
	"labelledshell/internal/durable"
	"labelledshell/internal/engine/local"
	"labelledshell/internal/engine/remote"
	"labelledshell/internal/engine/virtual"
	"labelledshell/internal/logging"
	"labelledshell/internal/registry"
	"labelledshell/internal/step"
)

// app carries what every subcommand needs once flags are parsed.
type app struct {
	configPath string
	logLevel   string

	cfg    *config.Config
	logger *log.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:           "labelledshell",
		Short:         "Run labelled shell build steps",
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(a.configPath)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("log-level") {
				cfg.Log.Level = a.logLevel
			}
			a.cfg = cfg
			a.logger = logging.New(cfg.Log.Level, cmd.ErrOrStderr())
			return nil
		},
	}
	root.PersistentFlags().StringVar(&a.configPath, "config", "", "config file (default ./labelledshell.yaml)")
	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "info", "log level: debug, info, warn, error")

	root.AddCommand(
		newRunCmd(a),
		newStepCmd(a),
		newAgentCmd(a),
		newLedgerCmd(a),
		newKeysCmd(a),
		newStepsCmd(),
	)
	return root
}

// newRegistry returns the registry of every step this binary knows.
func newRegistry() (*registry.Registry, error) {
	r := registry.New()
	if err := step.Register(r); err != nil {
		return nil, err
	}
	return r, nil
}

// newEngine builds the engine selected by the config. Agents never use the
// remote engine for themselves.
func (a *app) newEngine(name string) (durable.Engine, error) {
	switch name {
	case config.EngineLocal:
		e := local.New(a.cfg.Step.Timeout, a.logger.WithPrefix("local"))
		e.Shell = a.cfg.Shell
		return e, nil
	case config.EngineVirtual:
		return virtual.New(a.cfg.Step.Timeout, a.logger.WithPrefix("virtual")), nil
	case config.EngineRemote:
		return remote.New(a.cfg.Agent.URL, a.cfg.Agent.PollInterval, a.logger.WithPrefix("remote")), nil
	default:
		return nil, fmt.Errorf("%w: unknown engine %q", config.ErrInvalidConfig, name)
	}
}

func (a *app) baseEnv() durable.EnvVars {
	return durable.EnvVarsFromSlice(os.Environ())
}
