package cli

import (
	"context"

	"github.com/fundme/explorer"
	"github.com/fundme/global"
	"github.com/fundme/rpc"
	"github.com/spf13/cobra"
)

var explorerListen string

var explorerCmd = &cobra.Command{
	Use:   "explorer",
	Short: "Serve an Etherscan compatible verification API for a running node",
	Long: `Serves /api with verifysourcecode, checkverifystatus and getsourcecode.
Point etherscan.apiURL at it to exercise contract verification locally.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := signalContext()
		defer cancel()

		network, err := cfg.Network(global.Network)
		if err != nil {
			return err
		}
		client, err := rpc.Dial(ctx, network.URL)
		if err != nil {
			return err
		}
		lookup := func(ctx context.Context, address string) (string, bool) {
			acc, err := client.AccountAt(ctx, address)
			if err != nil || !acc.IsContract() {
				return "", false
			}
			return acc.Data.ContractName, true
		}
		return explorer.New(lookup, cfg.Etherscan.APIKey).ListenAndServe(ctx, explorerListen)
	},
}

func init() {
	explorerCmd.Flags().StringVar(&explorerListen, "listen", "127.0.0.1:8546", "listen address")
}
