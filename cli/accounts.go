package cli

import (
	"fmt"

	"github.com/fundme/deploy"
	"github.com/fundme/global"
	"github.com/fundme/util"
	"github.com/spf13/cobra"
)

var accountsCmd = &cobra.Command{
	Use:   "accounts",
	Short: "List the accounts and named accounts of a network",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := signalContext()
		defer cancel()

		rt, err := deploy.NewRuntime(ctx, cfg, global.Network)
		if err != nil {
			return err
		}
		defer rt.Close()

		out := cmd.OutOrStdout()
		for i, s := range rt.Signers {
			bal, err := rt.Backend.BalanceAt(ctx, s.Address)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "#%-2d %s %s ETH\n", i, s.Address, util.FormatEther(bal))
		}
		for name := range cfg.NamedAccounts {
			s, err := rt.NamedAccount(name)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "%-8s %s\n", name, s.Address)
		}
		return nil
	},
}
