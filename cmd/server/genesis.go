package main

import (
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"rwaledger/internal/core"
	"rwaledger/internal/genesis"
)

func genesisCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "genesis",
		Short: "Inspect genesis documents",
	}

	var file string
	check := &cobra.Command{
		Use:   "check",
		Short: "Validate a genesis file and dry-run it against an empty ledger",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return checkGenesis(cmd, file)
		},
	}
	check.Flags().StringVarP(&file, "file", "f", "genesis.yaml", "Genesis file path (YAML)")
	cmd.AddCommand(check)
	return cmd
}

func checkGenesis(cmd *cobra.Command, file string) error {
	gen, err := genesis.Load(file, time.Now())
	if err != nil {
		return err
	}
	c, err := core.New(gen.Config, core.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
	if err != nil {
		return fmt.Errorf("build ledger: %w", err)
	}
	if err := gen.Apply(cmd.Context(), c); err != nil {
		return fmt.Errorf("apply genesis: %w", err)
	}

	meta := c.Metadata()
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "genesis ok: %s (%s), admin %s\n", meta.Name, meta.Symbol, gen.Config.Admin.Hex())
	fmt.Fprintf(out, "  jurisdictions: %d\n", len(gen.Jurisdictions))
	fmt.Fprintf(out, "  identities:    %d\n", len(gen.Identities))
	fmt.Fprintf(out, "  lockups:       %d\n", len(gen.Lockups))
	fmt.Fprintf(out, "  total supply:  %s\n", c.TotalSupply().String())
	fmt.Fprintf(out, "  journal seq:   %d\n", c.Sequence())
	return nil
}
