package cli

import (
	"fmt"

	"github.com/fundme/deploy"
	"github.com/fundme/global"
	"github.com/spf13/cobra"
)

var deployTags []string

var deployCmd = &cobra.Command{
	Use:   "deploy",
	Short: "Run the deploy scripts on the selected network",
	Long: `Runs the deploy scripts in order (00_deploy_mocks, 01_deploy_fund_me).
Only scripts carrying one of --tags are run; without tags every script runs.

Example:
  fundme deploy --network localhost --tags fundme`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := signalContext()
		defer cancel()

		rt, err := deploy.NewRuntime(ctx, cfg, global.Network)
		if err != nil {
			return err
		}
		defer rt.Close()
		defer writeGasReport(rt.Local)

		if err := deploy.Run(ctx, rt, deployTags...); err != nil {
			return err
		}
		deps, err := rt.Deployments.Deployments()
		if err != nil {
			return err
		}
		for _, d := range deps {
			fmt.Fprintf(cmd.OutOrStdout(), "%-20s %s\n", d.Name, d.Address)
		}
		return nil
	},
}

func init() {
	deployCmd.Flags().StringSliceVar(&deployTags, "tags", nil, "only run scripts with these tags (all, mocks, fundme)")
}
