package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"labelledshell/internal/ledger"
)

func newLedgerCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ledger",
		Short: "Inspect the execution ledger",
	}

	open := func() (*ledger.Ledger, error) {
		return ledger.Open(a.cfg.Ledger.Path, nil)
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "inspect",
		Short: "List ledger blocks",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			l, err := open()
			if err != nil {
				return err
			}
			for _, b := range l.Blocks() {
				fmt.Fprintf(cmd.OutOrStdout(), "%4d %s %-14s exit=%-3d %-20s %s\n",
					b.Index, b.Timestamp, b.Function, b.ExitCode, b.Summary, short(b.Hash))
			}
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "verify",
		Short: "Check hashes, links and signatures of every block",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			l, err := open()
			if err != nil {
				return err
			}
			if err := l.VerifyChain(); err != nil {
				return fmt.Errorf("verification failed: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "ledger ok (%d blocks)\n", l.Len())
			return nil
		},
	})
	return cmd
}

func short(hash string) string {
	if len(hash) > 16 {
		return hash[:16]
	}
	return hash
}
