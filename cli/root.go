// Package cli fundme 命令行：部署、运行本地节点、执行脚本。
package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/cloudflare/cfssl/log"
	"github.com/fundme/chain"
	"github.com/fundme/config"
	"github.com/fundme/global"
	"github.com/spf13/cobra"
)

var (
	// 全局参数
	configPath string
	verbose    bool

	cfg *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "fundme",
	Short: "Deploy and operate the FundMe crowdfunding contract",
	Long: `fundme deploys the FundMe contract together with its price feed,
runs a local development node, and funds or withdraws from a deployed contract.

Networks, named accounts and the gas reporter are configured in fundme.yaml;
secrets such as GOERLI_PRIVATE_KEY and ETHERSCAN_API_KEY are read from .env.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		global.Verbose = verbose
		if verbose {
			log.Level = log.LevelDebug
		} else {
			log.Level = log.LevelInfo
		}
		var err error
		if cfg, err = config.Load(configPath); err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file (default is <root>/fundme.yaml)")
	rootCmd.PersistentFlags().StringVar(&global.RootDir, "root", ".", "project root directory")
	rootCmd.PersistentFlags().StringVarP(&global.Network, "network", "n", "", "network to use (default is defaultNetwork in config)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	rootCmd.AddCommand(deployCmd, nodeCmd, runCmd, accountsCmd, explorerCmd)
}

// Execute 出错时以状态码 1 退出
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// 收到 Ctrl+C 时取消
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

// 开启 gasReporter 时把统计写入文件
func writeGasReport(c *chain.Chain) {
	if c == nil || !cfg.GasReporter.Enabled {
		return
	}
	path := cfg.GasReporter.OutputFile
	if !filepath.IsAbs(path) {
		path = filepath.Join(global.RootDir, path)
	}
	f, err := os.Create(path)
	if err != nil {
		log.Errorf("gas report: %s", err)
		return
	}
	defer f.Close()
	if err := c.GasReporter().WriteReport(f, c.GasPrice()); err != nil {
		log.Errorf("gas report: %s", err)
		return
	}
	log.Infof("gas report written to %s", path)
}
