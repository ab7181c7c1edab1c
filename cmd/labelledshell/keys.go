package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"labelledshell/internal/security"
)

func newKeysCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "keys",
		Short: "Create the ledger signing keys if missing and print the public key",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			kp, created, err := security.EnsureKeyPair(a.cfg.Keys.Dir)
			if err != nil {
				return err
			}
			if created {
				a.logger.Info("generated runner keys", "dir", a.cfg.Keys.Dir)
			}
			fmt.Fprintln(cmd.OutOrStdout(), kp.PublicHex())
			return nil
		},
	}
}
