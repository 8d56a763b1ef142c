package cli

import (
	"context"
	"fmt"

	"github.com/fundme/deploy"
	"github.com/fundme/global"
	"github.com/fundme/meta"
	"github.com/fundme/scripts"
	"github.com/spf13/cobra"
)

var clientScripts = map[string]func(context.Context, *deploy.Runtime) (*meta.Receipt, error){
	"fund":     scripts.Fund,
	"withdraw": scripts.Withdraw,
}

var runCmd = &cobra.Command{
	Use:   "run [fund|withdraw]",
	Short: "Fund or withdraw from the deployed FundMe contract",
	Long: `fund sends 0.1 ETH to FundMe from the deployer account;
withdraw calls withdrawAll. Both wait for one confirmation.

Example:
  fundme run fund --network localhost`,
	Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
	ValidArgs: []string{"fund", "withdraw"},
	RunE: func(cmd *cobra.Command, args []string) error {
		script := clientScripts[args[0]]
		ctx, cancel := signalContext()
		defer cancel()

		rt, err := deploy.NewRuntime(ctx, cfg, global.Network)
		if err != nil {
			return err
		}
		defer rt.Close()

		r, err := script(ctx, rt)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "tx %s included in block %d, gas used %d\n", r.TxHash, r.BlockHeight, r.GasUsed)
		return nil
	},
}
