package main

import (
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"labelledshell/internal/core"
	"labelledshell/internal/step"
)

func newStepCmd(a *app) *cobra.Command {
	var (
		script string
		label  string
	)
	cmd := &cobra.Command{
		Use:   "step",
		Short: "Run a single labelledShell step",
		Example: `  labelledshell step --script 'make test' --label 'Unit tests'
  PATH='$PATH:/opt/bin' labelledshell step --script 'echo hi'`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			args := map[string]any{}
			// Leaving --script out reaches the step as a missing script.
			if cmd.Flags().Changed("script") {
				args["script"] = script
			}
			if cmd.Flags().Changed("label") {
				args["label"] = label
			}
			r, err := a.newRunner(cmd, false)
			if err != nil {
				return err
			}
			p := &core.Pipeline{Steps: []core.StepSpec{{Function: step.FunctionName, Args: args}}}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()
			return r.Run(ctx, p)
		},
	}
	cmd.Flags().StringVar(&script, "script", "", "shell script to run")
	cmd.Flags().StringVar(&label, "label", "", "label shown for the step")
	return cmd
}

func newStepsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "steps",
		Short: "List registered steps",
		Args:  cobra.NoArgs,
		// The registry needs no config.
		PersistentPreRunE: func(*cobra.Command, []string) error { return nil },
		RunE: func(cmd *cobra.Command, _ []string) error {
			reg, err := newRegistry()
			if err != nil {
				return err
			}
			for _, name := range reg.Names() {
				d, _ := reg.Lookup(name)
				fmt.Fprintf(cmd.OutOrStdout(), "%-16s %s\n", name, d.DisplayName())
			}
			return nil
		},
	}
}
